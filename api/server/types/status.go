package types

type EventType string

const (
	EventTypePush        EventType = "push"
	EventTypePullRequest EventType = "pull_request"
	EventTypeSchedule    EventType = "schedule"
)

// Valid reports whether e is one of the events a workflow can trigger on.
func (e EventType) Valid() bool {
	switch e {
	case EventTypePush, EventTypePullRequest, EventTypeSchedule:
		return true
	}

	return false
}

type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusSucceeded StepStatus = "succeeded"
	StepStatusFailed    StepStatus = "failed"

	// StepStatusSkipped is used both for steps whose condition evaluated to false
	// and for steps after a failed step
	StepStatusSkipped StepStatus = "skipped"
)

// FailureKind says which part of a job failed. A failed job has exactly one.
type FailureKind string

const (
	FailureKindNone               FailureKind = ""
	FailureKindToolchainInstall   FailureKind = "toolchain_install"
	FailureKindTargetRegistration FailureKind = "target_registration"
	FailureKindDependencyPin      FailureKind = "dependency_pin"
	FailureKindScript             FailureKind = "script"
	FailureKindInfrastructure     FailureKind = "infrastructure"
)

type GetStatusResponse struct {
	QueueKind    string `json:"queue_kind"`
	QueueDepth   int64  `json:"queue_depth"`
	LogStoreKind string `json:"log_store_kind"`
	ExecutorKind string `json:"executor_kind"`
	WorkflowName string `json:"workflow_name"`
	WorkflowJobs int    `json:"workflow_jobs"`
}
