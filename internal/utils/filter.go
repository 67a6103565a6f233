package utils

import "github.com/porter-dev/matrix-agent/api/server/types"

type ListRunsFilter struct {
	Status *types.RunStatus
	Event  *types.EventType
	Branch *string
}

type ListJobsFilter struct {
	Status      *types.JobStatus
	WorkflowJob *string
}
