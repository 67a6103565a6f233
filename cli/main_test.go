package main

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/porter-dev/matrix-agent/internal/logger"
	"github.com/porter-dev/matrix-agent/pkg/logstore/memorystore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

func TestRunRejectsUnknownEvent(t *testing.T) {
	out := &bytes.Buffer{}

	code := run(&options{event: "tag", branch: "master", dryRun: true, out: out}, logger.New(false, io.Discard))

	assert.Equal(t, 2, code)
	assert.Empty(t, out.String())
}

func TestRunRejectsUnknownJob(t *testing.T) {
	out := &bytes.Buffer{}

	code := run(&options{event: "push", branch: "master", dryRun: true, jobs: []string{"rustfmt", "clippy"}, out: out}, logger.New(false, io.Discard))

	assert.Equal(t, 2, code)
}

func TestDryRunSelectedJobs(t *testing.T) {
	out := &bytes.Buffer{}

	code := run(&options{event: "push", branch: "master", dryRun: true, jobs: []string{"rustfmt"}, out: out}, logger.New(false, io.Discard))
	require.Equal(t, 0, code)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")

	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "rustfmt"))
}

func TestDryRunUntriggeredEvent(t *testing.T) {
	out := &bytes.Buffer{}

	code := run(&options{event: "push", branch: "feature/foo", dryRun: true, jobs: []string{"rustfmt"}, out: out}, logger.New(false, io.Discard))

	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "nothing to run")
}

func TestLogsQuery(t *testing.T) {
	store, err := memorystore.New("cli", memorystore.Options{Dir: t.TempDir()})
	require.NoError(t, err)

	now := time.Now()

	require.NoError(t, store.Push(map[string]string{"run": "r1", "job": "j1"}, "compiling", now))
	require.NoError(t, store.Push(map[string]string{"run": "r1", "job": "j2"}, "other job", now))
	require.NoError(t, store.Push(map[string]string{"run": "r2", "job": "j3"}, "other run", now))

	out := &bytes.Buffer{}
	code := runLogs(&logsOptions{runID: "r1", jobID: "j1", out: out}, store, logger.New(false, io.Discard), make(chan struct{}))

	require.Equal(t, 0, code)
	assert.Equal(t, now.Format(time.RFC3339Nano)+" compiling\n", out.String())

	assert.Equal(t, 2, runLogs(&logsOptions{out: out}, store, logger.New(false, io.Discard), make(chan struct{})))
	assert.Equal(t, 2, runLogs(&logsOptions{runID: "r1", since: "yesterday", out: out}, store, logger.New(false, io.Discard), make(chan struct{})))
}

func TestLogsFollow(t *testing.T) {
	store, err := memorystore.New("cli", memorystore.Options{Dir: t.TempDir()})
	require.NoError(t, err)

	require.NoError(t, store.Push(map[string]string{"run": "r1", "job": "j1"}, "compiling", time.Now()))

	out := &syncBuffer{}
	stopCh := make(chan struct{})
	done := make(chan int)

	go func() {
		done <- runLogs(&logsOptions{runID: "r1", follow: true, out: out}, store, logger.New(false, io.Discard), stopCh)
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "compiling")
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, store.Push(map[string]string{"run": "r1", "job": "j1"}, "test result: ok", time.Now()))

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "test result: ok")
	}, 5*time.Second, 10*time.Millisecond)

	close(stopCh)

	select {
	case code := <-done:
		assert.Equal(t, 0, code)
	case <-time.After(5 * time.Second):
		t.Fatal("following did not stop")
	}
}
