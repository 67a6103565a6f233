package consumer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/porter-dev/matrix-agent/internal/logger"
	"github.com/porter-dev/matrix-agent/pkg/queue"
	"github.com/porter-dev/matrix-agent/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type scriptedExecutor struct {
	errs     map[string]error
	executed []string
}

func (s *scriptedExecutor) Execute(ctx context.Context, runUID string) error {
	s.executed = append(s.executed, runUID)
	return s.errs[runUID]
}

func TestConsumeOne(t *testing.T) {
	ctx := context.Background()
	q := queue.NewMemoryQueue()

	require.NoError(t, q.Requeue(ctx, &queue.Item{RunID: "ok", Score: 1}))
	require.NoError(t, q.Requeue(ctx, &queue.Item{RunID: "missing", Score: 2}))
	require.NoError(t, q.Requeue(ctx, &queue.Item{RunID: "finished", Score: 3}))
	require.NoError(t, q.Requeue(ctx, &queue.Item{RunID: "stale", Score: 4}))
	require.NoError(t, q.Requeue(ctx, &queue.Item{RunID: "broken", Score: 5}))

	exec := &scriptedExecutor{errs: map[string]error{
		"missing":  fmt.Errorf("could not read run: %w", gorm.ErrRecordNotFound),
		"finished": runner.ErrRunFinished,
		"broken":   errors.New("database is locked"),
		"stale":    fmt.Errorf("%w: run stale: no trigger", runner.ErrRunNotPlannable),
	}}

	c := NewRunConsumer(q, exec, time.Hour, logger.New(false, nil))

	assert.True(t, c.ConsumeOne(ctx))
	assert.True(t, c.ConsumeOne(ctx))
	assert.True(t, c.ConsumeOne(ctx))
	assert.True(t, c.ConsumeOne(ctx))
	assert.False(t, c.ConsumeOne(ctx))

	assert.Equal(t, []string{"ok", "missing", "finished", "stale", "broken"}, exec.executed)

	// only the failure to track state is put back, with its original score
	item, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, &queue.Item{RunID: "broken", Score: 5}, item)

	assert.False(t, c.ConsumeOne(ctx))
}

func TestStartStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	q := queue.NewMemoryQueue()
	require.NoError(t, q.Enqueue(ctx, "run"))

	exec := &scriptedExecutor{}
	c := NewRunConsumer(q, exec, 5*time.Millisecond, logger.New(false, nil))

	done := make(chan struct{})

	go func() {
		c.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		n, _ := q.Len(ctx)
		return n == 0
	}, time.Second, 5*time.Millisecond)

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
}
