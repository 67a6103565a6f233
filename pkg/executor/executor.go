// Package executor runs the steps of a planned job, either as local
// subprocesses or as a Kubernetes Job.
package executor

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/porter-dev/matrix-agent/api/server/types"
	"github.com/porter-dev/matrix-agent/pkg/logstore"
	"github.com/porter-dev/matrix-agent/pkg/planner"
)

const (
	KindLocal      = "local"
	KindKubernetes = "kubernetes"
)

// Executor runs a single planned job to completion. Execute never returns
// a nil result; failures of any kind are reported through it.
type Executor interface {
	Kind() string
	Execute(ctx context.Context, id string, job *planner.Job, w logstore.Writer) *Result
}

type StepResult struct {
	Index    int
	Status   types.StepStatus
	ExitCode int

	StartedAt  *time.Time
	FinishedAt *time.Time
}

type Result struct {
	Status      types.JobStatus
	FailureKind types.FailureKind
	FailedStep  *int
	ExitCode    int

	// Err is a *StepError when the job failed
	Err error

	Steps []StepResult
}

// StepError is the failure of one step of a job.
type StepError struct {
	Step     int
	Kind     types.FailureKind
	ExitCode int
	Err      error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d failed (%s, exit code %d): %v", e.Step, e.Kind, e.ExitCode, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func newResult(job *planner.Job) *Result {
	res := &Result{
		Status: types.JobStatusSucceeded,
		Steps:  make([]StepResult, len(job.Steps)),
	}

	for i, step := range job.Steps {
		res.Steps[i] = StepResult{Index: step.Index, Status: types.StepStatusPending}

		if step.Skipped {
			res.Steps[i].Status = types.StepStatusSkipped
		}
	}

	return res
}

// fail marks step i as failed and every later pending step as skipped.
func (r *Result) fail(i int, kind types.FailureKind, exitCode int, err error) {
	idx := i

	r.Status = types.JobStatusFailed
	r.FailureKind = kind
	r.FailedStep = &idx
	r.ExitCode = exitCode
	r.Err = &StepError{Step: i, Kind: kind, ExitCode: exitCode, Err: err}

	if i >= 0 && i < len(r.Steps) {
		r.Steps[i].Status = types.StepStatusFailed
		r.Steps[i].ExitCode = exitCode
	}

	r.skipPending()
}

func (r *Result) skipPending() {
	for j := range r.Steps {
		if r.Steps[j].Status == types.StepStatusPending {
			r.Steps[j].Status = types.StepStatusSkipped
		}
	}
}

// Failed reports whether the result is a failure.
func (r *Result) Failed() bool {
	return r.Status == types.JobStatusFailed
}

func stepEnv(job *planner.Job, step *planner.Step) map[string]string {
	env := make(map[string]string, len(job.Env)+len(step.Env))

	for k, v := range job.Env {
		env[k] = v
	}

	for k, v := range step.Env {
		env[k] = v
	}

	return env
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))

	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

func now() *time.Time {
	t := time.Now()
	return &t
}
