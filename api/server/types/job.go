package types

import "time"

type Step struct {
	Index    int        `json:"index"`
	Name     string     `json:"name"`
	Status   StepStatus `json:"status"`
	ExitCode int        `json:"exit_code"`
}

type Job struct {
	ID          string            `json:"id"`
	WorkflowJob string            `json:"workflow_job"`
	Name        string            `json:"name"`
	Toolchain   string            `json:"toolchain"`
	Matrix      map[string]string `json:"matrix,omitempty"`
	Status      JobStatus         `json:"status"`
	FailureKind FailureKind       `json:"failure_kind,omitempty"`
	FailedStep  *int              `json:"failed_step,omitempty"`
	ExitCode    int               `json:"exit_code"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	FinishedAt  *time.Time        `json:"finished_at,omitempty"`
	Steps       []Step            `json:"steps"`
}

type ListJobsRequest struct {
	Status      *JobStatus `schema:"status"`
	WorkflowJob *string    `schema:"workflow_job"`
}

type ListJobsResponse struct {
	Jobs []*Job `json:"jobs"`
}
