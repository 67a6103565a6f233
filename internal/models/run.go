package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/porter-dev/matrix-agent/api/server/types"
	"gorm.io/gorm"
)

type Run struct {
	gorm.Model

	UniqueID string `gorm:"unique"`

	Workflow string
	Event    types.EventType
	Branch   string `gorm:"index"`
	Commit   string
	Status   types.RunStatus `gorm:"index"`

	StartedAt  *time.Time
	FinishedAt *time.Time

	Jobs []Job
}

func NewRun(workflow string, event types.EventType, branch, commit string) *Run {
	return &Run{
		UniqueID: uuid.NewString(),
		Workflow: workflow,
		Event:    event,
		Branch:   branch,
		Commit:   commit,
		Status:   types.RunStatusQueued,
	}
}

func (r *Run) NumFailed() int {
	res := 0

	for _, j := range r.Jobs {
		if j.Status == types.JobStatusFailed {
			res++
		}
	}

	return res
}

func (r *Run) ToAPITypeMeta() *types.RunMeta {
	return &types.RunMeta{
		ID:         r.UniqueID,
		Workflow:   r.Workflow,
		Event:      r.Event,
		Branch:     r.Branch,
		Commit:     r.Commit,
		Status:     r.Status,
		NumJobs:    len(r.Jobs),
		NumFailed:  r.NumFailed(),
		CreatedAt:  r.CreatedAt,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
}

func (r *Run) ToAPIType() *types.Run {
	res := &types.Run{
		RunMeta: r.ToAPITypeMeta(),
		Jobs:    make([]*types.Job, 0, len(r.Jobs)),
	}

	for i := range r.Jobs {
		res.Jobs = append(res.Jobs, r.Jobs[i].ToAPIType())
	}

	return res
}
