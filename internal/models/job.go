package models

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/porter-dev/matrix-agent/api/server/types"
	"gorm.io/gorm"
)

type Job struct {
	gorm.Model

	UniqueID string `gorm:"unique"`
	RunID    uint   `gorm:"index"`

	WorkflowJob string
	Name        string
	Toolchain   string

	// Matrix is the JSON-encoded matrix combination, empty for jobs without a matrix
	Matrix []byte

	Status      types.JobStatus
	FailureKind types.FailureKind
	FailedStep  *int
	ExitCode    int

	StartedAt  *time.Time
	FinishedAt *time.Time

	Steps []Step
}

type Step struct {
	gorm.Model

	JobID uint `gorm:"index"`

	StepIndex int
	Name      string
	Status    types.StepStatus
	ExitCode  int
}

func NewJob(workflowJob, name, toolchain string, matrix map[string]string) *Job {
	job := &Job{
		UniqueID:    uuid.NewString(),
		WorkflowJob: workflowJob,
		Name:        name,
		Toolchain:   toolchain,
		Status:      types.JobStatusPending,
	}

	if len(matrix) > 0 {
		// a map[string]string always marshals
		job.Matrix, _ = json.Marshal(matrix)
	}

	return job
}

func (j *Job) MatrixValues() map[string]string {
	if len(j.Matrix) == 0 {
		return nil
	}

	res := make(map[string]string)

	if err := json.Unmarshal(j.Matrix, &res); err != nil {
		return nil
	}

	return res
}

func (j *Job) ToAPIType() *types.Job {
	res := &types.Job{
		ID:          j.UniqueID,
		WorkflowJob: j.WorkflowJob,
		Name:        j.Name,
		Toolchain:   j.Toolchain,
		Matrix:      j.MatrixValues(),
		Status:      j.Status,
		FailureKind: j.FailureKind,
		FailedStep:  j.FailedStep,
		ExitCode:    j.ExitCode,
		StartedAt:   j.StartedAt,
		FinishedAt:  j.FinishedAt,
		Steps:       make([]types.Step, 0, len(j.Steps)),
	}

	steps := append([]Step{}, j.Steps...)

	sort.Slice(steps, func(a, b int) bool {
		return steps[a].StepIndex < steps[b].StepIndex
	})

	for _, s := range steps {
		res.Steps = append(res.Steps, types.Step{
			Index:    s.StepIndex,
			Name:     s.Name,
			Status:   s.Status,
			ExitCode: s.ExitCode,
		})
	}

	return res
}
