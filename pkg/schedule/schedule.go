// Package schedule fires runs for the cron triggers of a workflow.
package schedule

import (
	"context"
	"time"

	"github.com/porter-dev/matrix-agent/api/server/types"
	"github.com/porter-dev/matrix-agent/internal/logger"
	"github.com/porter-dev/matrix-agent/internal/models"
	"github.com/porter-dev/matrix-agent/pkg/pulsar"
	"github.com/porter-dev/matrix-agent/pkg/workflow"
)

const DefaultBranch = "master"

type Dispatcher interface {
	Dispatch(ctx context.Context, ev workflow.Event) (*models.Run, error)
}

type Scheduler struct {
	schedules  []workflow.Schedule
	branch     string
	dispatcher Dispatcher
	pulsar     *pulsar.Pulsar
	logger     *logger.Logger

	last time.Time
}

// NewScheduler evaluates the schedules of w every period. Scheduled runs
// are created for branch.
func NewScheduler(w *workflow.Workflow, branch string, dispatcher Dispatcher, period time.Duration, l *logger.Logger) *Scheduler {
	if branch == "" {
		branch = DefaultBranch
	}

	return &Scheduler{
		schedules:  w.On.Schedule,
		branch:     branch,
		dispatcher: dispatcher,
		pulsar:     pulsar.NewPulsar(period),
		logger:     l,
		last:       time.Now(),
	}
}

// Start blocks until ctx is done. It returns immediately if the workflow has
// no schedules.
func (s *Scheduler) Start(ctx context.Context) {
	if len(s.schedules) == 0 {
		return
	}

	s.logger.Info().Caller().Msgf("starting scheduler with %d schedules", len(s.schedules))

	go func() {
		<-ctx.Done()
		s.pulsar.Stop()
	}()

	for t := range s.pulsar.Pulsate() {
		s.Tick(ctx, t)
	}
}

// Tick dispatches at most one scheduled run if any schedule fired since the
// previous tick.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) *models.Run {
	from := s.last
	s.last = now

	for _, sched := range s.schedules {
		due, err := sched.Due(from, now)

		if err != nil {
			s.logger.Error().Caller().Msgf("%v", err)
			continue
		}

		if !due {
			continue
		}

		run, err := s.dispatcher.Dispatch(ctx, workflow.Event{
			Type:   types.EventTypeSchedule,
			Branch: s.branch,
			Time:   now,
		})

		if err != nil {
			s.logger.Error().Caller().Msgf("could not dispatch scheduled run for %q: %v", sched.Cron, err)
			return nil
		}

		return run
	}

	return nil
}
