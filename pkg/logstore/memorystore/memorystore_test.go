package memorystore

import (
	"encoding/json"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/porter-dev/matrix-agent/pkg/logstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lineBuffer struct {
	mu    sync.Mutex
	lines []string
}

func (b *lineBuffer) Write(timestamp *time.Time, log string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lines = append(b.lines, log)

	return nil
}

func (b *lineBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]string{}, b.lines...)
}

func TestQueryFiltersByLabels(t *testing.T) {
	store, err := New("query", Options{Dir: t.TempDir()})
	require.NoError(t, err)

	now := time.Now()

	require.NoError(t, store.Push(map[string]string{"run": "r1", "job": "a"}, "a: compiling", now))
	require.NoError(t, store.Push(map[string]string{"run": "r1", "job": "b"}, "b: compiling", now))
	require.NoError(t, store.Push(map[string]string{"run": "r2", "job": "a"}, "other run", now))
	require.NoError(t, store.Push(map[string]string{"run": "r1", "job": "a"}, "a: test result: ok", now.Add(time.Second)))

	buf := &lineBuffer{}
	err = store.Query(logstore.QueryOptions{Labels: map[string]string{"run": "r1", "job": "a"}}, buf, make(chan struct{}))
	require.NoError(t, err)

	assert.Equal(t, []string{"a: compiling", "a: test result: ok"}, buf.lines)

	buf = &lineBuffer{}
	err = store.Query(logstore.QueryOptions{Labels: map[string]string{"run": "r1"}}, buf, make(chan struct{}))
	require.NoError(t, err)

	assert.Len(t, buf.lines, 3, "run selector should match every job of the run")
}

func TestQueryLimitAndRange(t *testing.T) {
	store, err := New("range", Options{Dir: t.TempDir()})
	require.NoError(t, err)

	start := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Push(map[string]string{"run": "r"}, string(rune('a'+i)), start.Add(time.Duration(i)*time.Minute)))
	}

	buf := &lineBuffer{}
	err = store.Query(logstore.QueryOptions{
		Labels: map[string]string{"run": "r"},
		Start:  start.Add(time.Minute),
		End:    start.Add(3 * time.Minute),
	}, buf, make(chan struct{}))
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "d"}, buf.lines)

	buf = &lineBuffer{}
	err = store.Query(logstore.QueryOptions{Labels: map[string]string{"run": "r"}, Limit: 2}, buf, make(chan struct{}))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, buf.lines)
}

func TestPushTruncatesLongLines(t *testing.T) {
	store, err := New("long", Options{Dir: t.TempDir()})
	require.NoError(t, err)

	now := time.Now()

	require.NoError(t, store.Push(map[string]string{"run": "a"}, strings.Repeat("x", 2*1024*1024), now))
	require.NoError(t, store.Push(map[string]string{"run": "b"}, "hello from run b", now))

	buf := &lineBuffer{}
	require.NoError(t, store.Query(logstore.QueryOptions{Labels: map[string]string{"run": "b"}}, buf, make(chan struct{})))
	assert.Equal(t, []string{"hello from run b"}, buf.Lines())

	buf = &lineBuffer{}
	require.NoError(t, store.Query(logstore.QueryOptions{Labels: map[string]string{"run": "a"}}, buf, make(chan struct{})))
	require.Len(t, buf.Lines(), 1)
	assert.Len(t, buf.Lines()[0], logstore.MaxLineLength)
}

func TestQuerySkipsOversizedRecords(t *testing.T) {
	store, err := New("oversized", Options{Dir: t.TempDir()})
	require.NoError(t, err)

	now := time.Now()

	// a record too large to read back, as written by an unbounded writer
	data, err := json.Marshal(&record{
		Timestamp: now,
		Labels:    map[string]string{"run": "a"},
		Line:      strings.Repeat("x", 2*maxRecordSize),
	})
	require.NoError(t, err)

	f, err := os.OpenFile(store.location, os.O_WRONLY|os.O_APPEND, 0600)
	require.NoError(t, err)
	_, err = f.Write(append(data, '\n'))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, store.Push(map[string]string{"run": "b"}, "hello from run b", now))

	buf := &lineBuffer{}
	require.NoError(t, store.Query(logstore.QueryOptions{}, buf, make(chan struct{})))
	assert.Equal(t, []string{"hello from run b"}, buf.Lines())
}

func TestPushBatch(t *testing.T) {
	store, err := New("batch", Options{Dir: t.TempDir()})
	require.NoError(t, err)

	now := time.Now()

	require.NoError(t, store.PushBatch(map[string]string{"run": "r"}, []logstore.Entry{
		{Timestamp: now, Line: "one"},
		{Timestamp: now.Add(time.Millisecond), Line: "two"},
	}))

	buf := &lineBuffer{}
	require.NoError(t, store.Query(logstore.QueryOptions{Labels: map[string]string{"run": "r"}}, buf, make(chan struct{})))
	assert.Equal(t, []string{"one", "two"}, buf.Lines())
}

func TestTailFollowsNewLines(t *testing.T) {
	store, err := New("tail", Options{Dir: t.TempDir()})
	require.NoError(t, err)

	start := time.Now()

	require.NoError(t, store.Push(map[string]string{"run": "r"}, "before start", start.Add(-time.Hour)))
	require.NoError(t, store.Push(map[string]string{"run": "r"}, "first", start))

	buf := &lineBuffer{}
	stopCh := make(chan struct{})
	done := make(chan error)

	go func() {
		done <- store.Tail(logstore.TailOptions{Labels: map[string]string{"run": "r"}, Start: start}, buf, stopCh)
	}()

	require.NoError(t, store.Push(map[string]string{"run": "other"}, "other run", start))
	require.NoError(t, store.Push(map[string]string{"run": "r"}, "second", start.Add(time.Second)))

	require.Eventually(t, func() bool {
		return len(buf.Lines()) == 2
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{"first", "second"}, buf.Lines())

	close(stopCh)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("tail did not stop")
	}
}
