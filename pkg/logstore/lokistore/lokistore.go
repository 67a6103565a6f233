package lokistore

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/porter-dev/matrix-agent/pkg/logstore"
	"github.com/porter-dev/matrix-agent/pkg/pulsar"
)

type LokiStore struct {
	name   string
	client *Client

	// TailPeriod is how often Tail polls Loki for new lines
	TailPeriod time.Duration
}

type LogStoreConfig struct {
	Address string
}

func New(name string, config LogStoreConfig) (*LokiStore, error) {
	address := config.Address

	if address == "" {
		address = "http://localhost:3100"
	}

	return &LokiStore{
		name:       name,
		client:     NewClient(&LokiHTTPClientConf{Address: address}),
		TailPeriod: 2 * time.Second,
	}, nil
}

func (store *LokiStore) Push(labels map[string]string, line string, t time.Time) error {
	return store.PushBatch(labels, []logstore.Entry{{Timestamp: t, Line: line}})
}

// PushBatch pushes entries as one stream in a single request.
func (store *LokiStore) PushBatch(labels map[string]string, entries []logstore.Entry) error {
	streamLabels := map[string]string{"store": store.name}

	for k, v := range labels {
		streamLabels[k] = v
	}

	values := make([][]string, 0, len(entries))

	for _, e := range entries {
		values = append(values, []string{nanos(e.Timestamp), logstore.TruncateLine(e.Line)})
	}

	err := store.client.Push(&PushRequest{
		Streams: []PushStream{
			{
				Stream: streamLabels,
				Values: values,
			},
		},
	})

	if err != nil {
		return fmt.Errorf("error pushing to loki client. Error %w", err)
	}

	return nil
}

type entry struct {
	ts   time.Time
	line string
}

func (store *LokiStore) query(labels map[string]string, start, end time.Time, limit uint32) ([]entry, error) {
	selectorLabels := map[string]string{"store": store.name}

	for k, v := range labels {
		selectorLabels[k] = v
	}

	resp, err := store.client.QueryRange(logstore.LabelsMapToString(selectorLabels, "="), start, end, limit)

	if err != nil {
		return nil, fmt.Errorf("error querying logs from loki store with name %s. Error: %w", store.name, err)
	}

	var entries []entry

	for _, item := range resp.Data.Result {
		for _, v := range item.Values {
			if len(v) != 2 {
				continue
			}

			ns, err := strconv.ParseInt(v[0], 10, 64)

			if err != nil {
				continue
			}

			entries = append(entries, entry{ts: time.Unix(0, ns), line: v[1]})
		}
	}

	// streams come back separately, interleave them by time
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ts.Before(entries[j].ts)
	})

	return entries, nil
}

func (store *LokiStore) Query(options logstore.QueryOptions, w logstore.Writer, stopCh <-chan struct{}) error {
	entries, err := store.query(options.Labels, options.Start, options.End, options.Limit)

	if err != nil {
		return err
	}

	for i := range entries {
		select {
		case <-stopCh:
			return nil
		default:
		}

		if err := w.Write(&entries[i].ts, entries[i].line); err != nil {
			return err
		}
	}

	return nil
}

func (store *LokiStore) Tail(options logstore.TailOptions, w logstore.Writer, stopCh <-chan struct{}) error {
	since := options.Start

	if since.IsZero() {
		since = time.Now()
	}

	// lines strictly after since are new
	since = since.Add(-time.Nanosecond)

	p := pulsar.NewPulsar(store.TailPeriod)
	pulses := p.Pulsate()

	defer p.Stop()

	for {
		select {
		case <-stopCh:
			return nil
		case <-pulses:
			entries, err := store.query(options.Labels, since, time.Time{}, options.Limit)

			if err != nil {
				return err
			}

			for i := range entries {
				if !entries[i].ts.After(since) {
					continue
				}

				w.Write(&entries[i].ts, entries[i].line)
				since = entries[i].ts
			}
		}
	}
}

// Reachable reports whether the Loki instance answers its readiness probe
func (store *LokiStore) Reachable() bool {
	return store.client.Ready() == nil
}
