package types

import "time"

// TriggerRunRequest describes the repository event a run is requested for
type TriggerRunRequest struct {
	Event  EventType `json:"event" form:"required,oneof=push pull_request schedule"`
	Branch string    `json:"branch" form:"required"`
	Commit string    `json:"commit"`
}

type TriggerRunResponse struct {
	// Skipped is set when no workflow trigger matches the event, in which case
	// Run is empty
	Skipped bool     `json:"skipped"`
	Run     *RunMeta `json:"run,omitempty"`
}

type RunMeta struct {
	ID         string     `json:"id"`
	Workflow   string     `json:"workflow"`
	Event      EventType  `json:"event"`
	Branch     string     `json:"branch"`
	Commit     string     `json:"commit"`
	Status     RunStatus  `json:"status"`
	NumJobs    int        `json:"num_jobs"`
	NumFailed  int        `json:"num_failed"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

type Run struct {
	*RunMeta

	Jobs []*Job `json:"jobs"`
}

type ListRunsRequest struct {
	*PaginationRequest

	Status *RunStatus `schema:"status"`
	Event  *EventType `schema:"event"`
	Branch *string    `schema:"branch"`
}

type ListRunsResponse struct {
	Runs       []*RunMeta          `json:"runs"`
	Pagination *PaginationResponse `json:"pagination"`
}
