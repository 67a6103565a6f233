package logstore

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingStore keeps every push. Batches are only accepted through
// batchStore.
type recordingStore struct {
	mu     sync.Mutex
	pushes [][]string
	err    error
}

func (s *recordingStore) Query(options QueryOptions, writer Writer, stopCh <-chan struct{}) error {
	return nil
}

func (s *recordingStore) Tail(options TailOptions, writer Writer, stopCh <-chan struct{}) error {
	return nil
}

func (s *recordingStore) Push(labels map[string]string, line string, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}

	s.pushes = append(s.pushes, []string{line})

	return nil
}

func (s *recordingStore) Pushes() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([][]string{}, s.pushes...)
}

type batchStore struct {
	recordingStore
}

func (s *batchStore) PushBatch(labels map[string]string, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}

	var lines []string

	for _, e := range entries {
		lines = append(lines, e.Line)
	}

	s.pushes = append(s.pushes, lines)

	return nil
}

func TestBufferedWriterBatches(t *testing.T) {
	store := &batchStore{}
	w := newBufferedWriter(store, map[string]string{"run": "r"}, 2, time.Hour, nil)

	require.NoError(t, w.Write(nil, "a"))
	assert.Empty(t, store.Pushes())

	require.NoError(t, w.Write(nil, "b"))
	require.NoError(t, w.Write(nil, "c"))
	require.NoError(t, w.Close())

	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, store.Pushes())
}

func TestBufferedWriterFlushesPeriodically(t *testing.T) {
	store := &batchStore{}
	w := newBufferedWriter(store, nil, 100, 5*time.Millisecond, nil)
	defer w.Close()

	require.NoError(t, w.Write(nil, "slow output"))

	require.Eventually(t, func() bool {
		return len(store.Pushes()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestBufferedWriterFallsBackToPush(t *testing.T) {
	store := &recordingStore{}
	w := newBufferedWriter(store, nil, 10, time.Hour, nil)

	require.NoError(t, w.Write(nil, "a"))
	require.NoError(t, w.Write(nil, "b"))
	require.NoError(t, w.Close())

	assert.Equal(t, [][]string{{"a"}, {"b"}}, store.Pushes())
}

func TestBufferedWriterReportsFirstError(t *testing.T) {
	store := &batchStore{recordingStore{err: errors.New("loki unreachable")}}

	var reported []error

	w := newBufferedWriter(store, nil, 2, time.Hour, func(err error) {
		reported = append(reported, err)
	})

	for _, line := range []string{"a", "b", "c", "d", "e"} {
		assert.NoError(t, w.Write(nil, line), "writes never fail")
	}

	err := w.Close()

	require.Error(t, err)
	assert.ErrorIs(t, err, store.err)
	assert.Contains(t, err.Error(), "5 log lines")
	assert.Len(t, reported, 1)
}

func TestTruncateLine(t *testing.T) {
	assert.Equal(t, "short", TruncateLine("short"))

	long := strings.Repeat("é", MaxLineLength)
	cut := TruncateLine(long)

	assert.LessOrEqual(t, len(cut), MaxLineLength)
	assert.True(t, strings.HasSuffix(cut, truncatedSuffix))
	assert.True(t, utf8.ValidString(cut))
}
