package runner

import (
	"context"
	"fmt"

	"github.com/porter-dev/matrix-agent/internal/models"
	"github.com/porter-dev/matrix-agent/pkg/queue"
	"github.com/porter-dev/matrix-agent/pkg/workflow"
)

// Dispatcher creates runs for incoming events and queues them for the
// consumer.
type Dispatcher struct {
	Runner *Runner
	Queue  queue.Queue
}

// Dispatch returns the queued run, or nil if ev matches no trigger.
func (d *Dispatcher) Dispatch(ctx context.Context, ev workflow.Event) (*models.Run, error) {
	run, err := d.Runner.CreateRun(ev)

	if err != nil || run == nil {
		return nil, err
	}

	if err := d.Queue.Enqueue(ctx, run.UniqueID); err != nil {
		return nil, fmt.Errorf("could not enqueue run %s: %w", run.UniqueID, err)
	}

	return run, nil
}
