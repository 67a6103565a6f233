package consumer

import (
	"context"
	"errors"
	"time"

	"github.com/porter-dev/matrix-agent/internal/logger"
	"github.com/porter-dev/matrix-agent/pkg/pulsar"
	"github.com/porter-dev/matrix-agent/pkg/queue"
	"github.com/porter-dev/matrix-agent/pkg/runner"
	"gorm.io/gorm"
)

// RunExecutor executes a stored run.
type RunExecutor interface {
	Execute(ctx context.Context, runUID string) error
}

// RunnerExecutor adapts a runner.Runner to RunExecutor.
type RunnerExecutor struct {
	Runner *runner.Runner
}

func (r *RunnerExecutor) Execute(ctx context.Context, runUID string) error {
	_, err := r.Runner.Execute(ctx, runUID)
	return err
}

// RunConsumer drains the queue on every pulse, executing one run at a time.
type RunConsumer struct {
	queue    queue.Queue
	executor RunExecutor
	pulsar   *pulsar.Pulsar
	logger   *logger.Logger
}

func NewRunConsumer(q queue.Queue, executor RunExecutor, period time.Duration, l *logger.Logger) *RunConsumer {
	return &RunConsumer{
		queue:    q,
		executor: executor,
		pulsar:   pulsar.NewPulsar(period),
		logger:   l,
	}
}

// Start blocks until ctx is done or Stop is called.
func (c *RunConsumer) Start(ctx context.Context) {
	c.logger.Info().Caller().Msgf("starting run consumer on %s queue", c.queue.Kind())

	go func() {
		<-ctx.Done()
		c.Stop()
	}()

	for range c.pulsar.Pulsate() {
		for c.ConsumeOne(ctx) {
		}
	}
}

func (c *RunConsumer) Stop() {
	c.pulsar.Stop()
}

// ConsumeOne executes the next pending run and reports whether the queue
// might hold more items.
func (c *RunConsumer) ConsumeOne(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}

	item, err := c.queue.Dequeue(ctx)

	if err != nil {
		if !errors.Is(err, queue.ErrNoPendingItem) {
			c.logger.Error().Caller().Msgf("cannot get pending item from queue: %v", err)
		}

		return false
	}

	err = c.executor.Execute(ctx, item.RunID)

	switch {
	case err == nil:
		return true
	case errors.Is(err, runner.ErrRunFinished):
		c.logger.Debug().Caller().Msgf("run %s has already finished, dropping", item.RunID)
		return true
	case errors.Is(err, runner.ErrRunNotPlannable):
		c.logger.Warn().Caller().Msgf("%v, dropping", err)
		return true
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.logger.Warn().Caller().Msgf("run %s not found, dropping", item.RunID)
		return true
	}

	c.logger.Error().Caller().Msgf("error executing run %s, requeuing: %v", item.RunID, err)

	if err := c.queue.Requeue(context.Background(), item); err != nil {
		c.logger.Error().Caller().Msgf("error requeuing run %s: %v", item.RunID, err)
	}

	// wait for the next pulse before retrying
	return false
}
