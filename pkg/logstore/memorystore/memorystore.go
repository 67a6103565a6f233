package memorystore

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nxadm/tail"
	"github.com/porter-dev/matrix-agent/pkg/logstore"
)

// maxRecordSize bounds a single encoded record in the log file. Records
// written with truncated lines always fit.
const maxRecordSize = 1024 * 1024

type MemoryStore struct {
	name     string
	location string

	mu sync.Mutex
}

type Options struct {
	Dir string // Store the log file at this location. Defaults to /var/tmp
}

// record is a single line of the log file
type record struct {
	Timestamp time.Time         `json:"ts"`
	Labels    map[string]string `json:"labels"`
	Line      string            `json:"line"`
}

func (store *MemoryStore) createLogFile() error {
	logFilePath := store.location

	logFileDir := filepath.Dir(logFilePath)

	err := os.MkdirAll(logFileDir, os.ModePerm)

	if err != nil {
		return fmt.Errorf("error creating log directory for memory store with name %s. Error: %w", store.name, err)
	}

	f, err := os.OpenFile(logFilePath, os.O_WRONLY|os.O_CREATE, 0666)

	if err != nil {
		return fmt.Errorf("error creating log file for memory store with name %s. Error: %w", store.name, err)
	}

	defer f.Close()

	return nil
}

func New(name string, options Options) (*MemoryStore, error) {
	store := new(MemoryStore)
	store.name = name

	logFileDir := options.Dir

	if logFileDir == "" {
		logFileDir = filepath.Join(os.TempDir(), "matrix-agent")
	}

	store.location = path.Join(logFileDir, name+".log")

	err := store.createLogFile()

	if err != nil {
		return nil, err
	}

	return store, nil
}

func decodeRecord(text string) (*record, bool) {
	if strings.TrimSpace(text) == "" {
		return nil, false
	}

	rec := &record{}

	if err := json.Unmarshal([]byte(text), rec); err != nil {
		return nil, false
	}

	return rec, true
}

func (store *MemoryStore) Query(options logstore.QueryOptions, w logstore.Writer, stopCh <-chan struct{}) error {
	logFilePath := store.location

	f, err := os.Open(logFilePath)

	if err != nil {
		return fmt.Errorf("error querying memory store with name %s. Error: %w", store.name, err)
	}

	defer f.Close()

	reader := bufio.NewReader(f)

	var written uint32

	for {
		select {
		case <-stopCh:
			return nil
		default:
		}

		text, err := readRecord(reader)

		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("error querying memory store with name %s. Error: %w", store.name, err)
		}

		rec, ok := decodeRecord(text)

		if !ok || !logstore.LabelsMatch(options.Labels, rec.Labels) || !logstore.InRange(rec.Timestamp, options.Start, options.End) {
			continue
		}

		if err := w.Write(&rec.Timestamp, rec.Line); err != nil {
			return err
		}

		written++

		if options.Limit > 0 && written >= options.Limit {
			return nil
		}
	}
}

// readRecord returns the next line of r. Lines longer than maxRecordSize
// are skipped.
func readRecord(r *bufio.Reader) (string, error) {
	var buf []byte

	oversized := false

	for {
		chunk, isPrefix, err := r.ReadLine()

		if err != nil {
			return "", err
		}

		if !oversized {
			buf = append(buf, chunk...)

			if len(buf) > maxRecordSize {
				oversized = true
				buf = nil
			}
		}

		if isPrefix {
			continue
		}

		if !oversized {
			return string(buf), nil
		}

		oversized = false
	}
}

func (store *MemoryStore) Tail(options logstore.TailOptions, w logstore.Writer, stopCh <-chan struct{}) error {
	logFilePath := store.location

	t, err := tail.TailFile(logFilePath, tail.Config{Follow: true, Poll: true})

	if err != nil {
		return fmt.Errorf("error streaming memory store with name %s. Error: %w", store.name, err)
	}

	done := make(chan struct{})

	go func(t *tail.Tail) {
		defer close(done)

		for line := range t.Lines {
			if line.Err != nil {
				continue
			}

			rec, ok := decodeRecord(line.Text)

			if !ok || !logstore.LabelsMatch(options.Labels, rec.Labels) || !logstore.InRange(rec.Timestamp, options.Start, time.Time{}) {
				continue
			}

			w.Write(&rec.Timestamp, rec.Line)
		}
	}(t)

	<-stopCh
	t.Stop()
	t.Cleanup()

	// no writes after Tail returns
	<-done

	return nil
}

func (store *MemoryStore) Push(labels map[string]string, line string, t time.Time) error {
	return store.PushBatch(labels, []logstore.Entry{{Timestamp: t, Line: line}})
}

func (store *MemoryStore) PushBatch(labels map[string]string, entries []logstore.Entry) error {
	var buf bytes.Buffer

	for _, e := range entries {
		data, err := json.Marshal(&record{
			Timestamp: e.Timestamp,
			Labels:    labels,
			Line:      logstore.TruncateLine(e.Line),
		})

		if err != nil {
			return fmt.Errorf("error encoding log line for memory store with name %s. Error: %w", store.name, err)
		}

		buf.Write(data)
		buf.WriteByte('\n')
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	f, err := os.OpenFile(store.location, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0600)

	if err != nil {
		return fmt.Errorf("error opening log file for memory store with name %s. Error: %w", store.name, err)
	}

	defer f.Close()

	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("error pushing log to memory store with name %s. Error: %w", store.name, err)
	}

	return nil
}
