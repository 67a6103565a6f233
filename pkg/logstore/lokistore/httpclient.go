package lokistore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

type LokiHTTPClientConf struct {
	Address string
}

type Client struct {
	client  *http.Client
	address string
}

func NewClient(conf *LokiHTTPClientConf) *Client {
	return &Client{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		address: conf.Address,
	}
}

type QueryRangeStreamResponse struct {
	Status string         `json:"status"`
	Data   QueryRangeData `json:"data"`
}

type QueryRangeData struct {
	ResultType string                 `json:"resultType"`
	Result     []QueryRangeStreamItem `json:"result"`
}

type QueryRangeStreamItem struct {
	Stream map[string]string      `json:"stream"`
	Values QueryRangeStreamValues `json:"values"`
}

// QueryRangeStreamValues are [<unix epoch in nanoseconds>, <log line>] pairs
type QueryRangeStreamValues [][]string

type PushRequest struct {
	Streams []PushStream `json:"streams"`
}

type PushStream struct {
	Stream map[string]string `json:"stream"`
	Values [][]string        `json:"values"`
}

func nanos(t time.Time) string {
	return strconv.FormatInt(t.UnixNano(), 10)
}

func (c *Client) QueryRange(selector string, start, end time.Time, limit uint32) (*QueryRangeStreamResponse, error) {
	params := make(map[string][]string)
	params["query"] = []string{selector}
	params["direction"] = []string{"forward"}

	if limit > 0 {
		params["limit"] = []string{fmt.Sprintf("%d", limit)}
	}

	if !start.IsZero() {
		params["start"] = []string{nanos(start)}
	}

	if !end.IsZero() {
		params["end"] = []string{nanos(end)}
	}

	resBytes, err := c.get("/loki/api/v1/query_range", params)

	if err != nil {
		return nil, err
	}

	resp := &QueryRangeStreamResponse{}

	if err := json.Unmarshal(resBytes, resp); err != nil {
		return nil, err
	}

	return resp, nil
}

func (c *Client) Push(req *PushRequest) error {
	body, err := json.Marshal(req)

	if err != nil {
		return err
	}

	res, err := c.client.Post(c.address+"/loki/api/v1/push", "application/json", bytes.NewReader(body))

	if err != nil {
		return err
	}

	defer res.Body.Close()

	if res.StatusCode >= 300 {
		msg, _ := ioutil.ReadAll(res.Body)
		return fmt.Errorf("loki push returned %d: %s", res.StatusCode, string(msg))
	}

	return nil
}

// Ready calls the readiness endpoint of the Loki instance
func (c *Client) Ready() error {
	_, err := c.get("/ready", nil)
	return err
}

func (c *Client) get(path string, params map[string][]string) ([]byte, error) {
	urlVals := url.Values(params)
	encodedURLVals := urlVals.Encode()

	req, err := http.NewRequest(
		"GET",
		fmt.Sprintf("%s%s?%s", c.address, path, encodedURLVals),
		nil,
	)

	if err != nil {
		return nil, err
	}

	res, err := c.client.Do(req)

	if err != nil {
		return nil, err
	}

	defer res.Body.Close()

	body, err := ioutil.ReadAll(res.Body)

	if err != nil {
		return nil, err
	}

	if res.StatusCode >= 300 {
		return nil, fmt.Errorf("loki request to %s returned %d: %s", path, res.StatusCode, string(body))
	}

	return body, nil
}
