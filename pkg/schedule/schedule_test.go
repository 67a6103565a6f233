package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/porter-dev/matrix-agent/api/server/types"
	"github.com/porter-dev/matrix-agent/internal/logger"
	"github.com/porter-dev/matrix-agent/internal/models"
	"github.com/porter-dev/matrix-agent/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events []workflow.Event
}

func (r *recorder) Dispatch(ctx context.Context, ev workflow.Event) (*models.Run, error) {
	r.events = append(r.events, ev)
	return models.NewRun("CI", ev.Type, ev.Branch, ev.Commit), nil
}

func TestTick(t *testing.T) {
	w := &workflow.Workflow{
		On: workflow.Triggers{
			Schedule: []workflow.Schedule{{Cron: "0 3 * * *"}, {Cron: "30 3 * * *"}},
		},
	}

	rec := &recorder{}

	s := NewScheduler(w, "", rec, time.Minute, logger.New(false, nil))
	s.last = time.Date(2021, 1, 1, 2, 58, 0, 0, time.UTC)

	assert.Nil(t, s.Tick(context.Background(), time.Date(2021, 1, 1, 2, 59, 0, 0, time.UTC)))

	run := s.Tick(context.Background(), time.Date(2021, 1, 1, 3, 0, 0, 0, time.UTC))
	require.NotNil(t, run)

	assert.Nil(t, s.Tick(context.Background(), time.Date(2021, 1, 1, 3, 1, 0, 0, time.UTC)))

	require.Len(t, rec.events, 1)
	assert.Equal(t, types.EventTypeSchedule, rec.events[0].Type)
	assert.Equal(t, DefaultBranch, rec.events[0].Branch)

	// a missed tick still fires once
	s.last = time.Date(2021, 1, 1, 3, 20, 0, 0, time.UTC)
	require.NotNil(t, s.Tick(context.Background(), time.Date(2021, 1, 1, 3, 45, 0, 0, time.UTC)))
	assert.Len(t, rec.events, 2)
}

func TestStartWithoutSchedules(t *testing.T) {
	s := NewScheduler(&workflow.Workflow{}, "main", &recorder{}, time.Millisecond, logger.New(false, nil))

	done := make(chan struct{})

	go func() {
		s.Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler without schedules should return")
	}
}
