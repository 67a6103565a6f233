package logstore

import (
	"fmt"
	"sync"
	"time"

	"github.com/porter-dev/matrix-agent/pkg/pulsar"
)

const (
	DefaultBatchSize     = 100
	DefaultFlushInterval = time.Second
)

// BufferedWriter collects lines and pushes them to a LogStore in batches, once
// BatchSize lines are pending, on every flush interval and on Close.
//
// Write never fails. The first push error is passed to the error handler and
// returned by Close along with the number of lines lost.
type BufferedWriter struct {
	store     LogStore
	labels    map[string]string
	batchSize int
	onError   func(error)

	mu      sync.Mutex
	pending []Entry

	flushMu sync.Mutex
	err     error
	dropped int

	pulsar    *pulsar.Pulsar
	done      chan struct{}
	closeOnce sync.Once
}

func NewBufferedWriter(store LogStore, labels map[string]string, onError func(error)) *BufferedWriter {
	return newBufferedWriter(store, labels, DefaultBatchSize, DefaultFlushInterval, onError)
}

func newBufferedWriter(store LogStore, labels map[string]string, batchSize int, interval time.Duration, onError func(error)) *BufferedWriter {
	w := &BufferedWriter{
		store:     store,
		labels:    labels,
		batchSize: batchSize,
		onError:   onError,
		pulsar:    pulsar.NewPulsar(interval),
		done:      make(chan struct{}),
	}

	go func() {
		defer close(w.done)

		for range w.pulsar.Pulsate() {
			w.Flush()
		}
	}()

	return w
}

func (w *BufferedWriter) Write(timestamp *time.Time, log string) error {
	t := time.Now()

	if timestamp != nil {
		t = *timestamp
	}

	w.mu.Lock()
	w.pending = append(w.pending, Entry{Timestamp: t, Line: log})
	full := len(w.pending) >= w.batchSize
	w.mu.Unlock()

	if full {
		w.Flush()
	}

	return nil
}

// Flush pushes every pending line.
func (w *BufferedWriter) Flush() {
	w.flushMu.Lock()
	defer w.flushMu.Unlock()

	w.mu.Lock()
	entries := w.pending
	w.pending = nil
	w.mu.Unlock()

	if len(entries) == 0 {
		return
	}

	pushed, err := pushEntries(w.store, w.labels, entries)

	if err == nil {
		return
	}

	w.dropped += len(entries) - pushed

	if w.err == nil {
		w.err = err

		if w.onError != nil {
			w.onError(err)
		}
	}
}

// Close stops the periodic flush and pushes the remaining lines.
func (w *BufferedWriter) Close() error {
	w.closeOnce.Do(func() {
		w.pulsar.Stop()
		<-w.done
	})

	w.Flush()

	w.flushMu.Lock()
	defer w.flushMu.Unlock()

	if w.err != nil {
		return fmt.Errorf("%d log lines could not be stored: %w", w.dropped, w.err)
	}

	return nil
}

func pushEntries(store LogStore, labels map[string]string, entries []Entry) (int, error) {
	if bp, ok := store.(BatchPusher); ok {
		if err := bp.PushBatch(labels, entries); err != nil {
			return 0, err
		}

		return len(entries), nil
	}

	for i, e := range entries {
		if err := store.Push(labels, e.Line, e.Timestamp); err != nil {
			return i, err
		}
	}

	return len(entries), nil
}
