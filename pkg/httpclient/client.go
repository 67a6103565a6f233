package httpclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/porter-dev/matrix-agent/internal/logger"
)

type HTTPClientConf struct {
	WebhookURL     string `env:"ALERT_WEBHOOK_URL"`
	WebhookToken   string `env:"ALERT_WEBHOOK_TOKEN"`
	TimeoutSeconds int    `env:"ALERT_WEBHOOK_TIMEOUT_SECONDS,default=3"`
}

type Client struct {
	client *http.Client
	token  string
	host   string
	logger *logger.Logger
}

func NewClient(conf *HTTPClientConf, l *logger.Logger) *Client {
	timeout := time.Duration(conf.TimeoutSeconds) * time.Second

	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	return &Client{
		client: &http.Client{
			Timeout: timeout,
		},
		token:  conf.WebhookToken,
		host:   conf.WebhookURL,
		logger: l,
	}
}

// Enabled is false when no webhook URL is configured.
func (c *Client) Enabled() bool {
	return c.host != ""
}

// Post sends body as JSON and fails on any non-2xx response.
func (c *Client) Post(path string, body interface{}) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s%s", c.host, path)

	req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return err
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return err
	}

	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 1024))

		c.logger.Debug().Caller().Msgf("webhook %s returned %d: %s", url, res.StatusCode, string(msg))

		return fmt.Errorf("webhook returned status %d", res.StatusCode)
	}

	return nil
}
