// Package runner plans runs, persists them and executes their jobs.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/porter-dev/matrix-agent/api/server/types"
	"github.com/porter-dev/matrix-agent/internal/logger"
	"github.com/porter-dev/matrix-agent/internal/models"
	"github.com/porter-dev/matrix-agent/internal/repository"
	"github.com/porter-dev/matrix-agent/pkg/alerter"
	"github.com/porter-dev/matrix-agent/pkg/executor"
	"github.com/porter-dev/matrix-agent/pkg/logstore"
	"github.com/porter-dev/matrix-agent/pkg/metrics"
	"github.com/porter-dev/matrix-agent/pkg/planner"
	"github.com/porter-dev/matrix-agent/pkg/workflow"
	"golang.org/x/sync/errgroup"
)

const DefaultParallelism = 4

var (
	ErrRunFinished = errors.New("run has already finished")

	// ErrRunNotPlannable is returned when the current workflow can no longer
	// plan a stored run. The run is finished as failed.
	ErrRunNotPlannable = errors.New("run cannot be planned by the current workflow")
)

type Runner struct {
	Planner    *planner.Planner
	Repository *repository.Repository
	Executor   executor.Executor
	LogStore   logstore.LogStore

	// Metrics and Alerter are optional
	Metrics *metrics.Metrics
	Alerter *alerter.Alerter

	Logger      *logger.Logger
	Parallelism int

	// Jobs restricts created runs to the given workflow job ids. Empty
	// selects every job.
	Jobs []string
}

// CreateRun plans the jobs triggered by ev and stores them as a queued run.
// It returns nil if no trigger matches ev.
func (r *Runner) CreateRun(ev workflow.Event) (*models.Run, error) {
	plan, err := r.Planner.Plan(ev)

	if err != nil {
		return nil, fmt.Errorf("could not plan run: %w", err)
	}

	if plan == nil {
		if r.Metrics != nil {
			r.Metrics.RunSkipped(ev.Type)
		}

		r.Logger.Info().Caller().Msgf("%s event on %s matches no trigger, skipping", ev.Type, ev.Branch)

		return nil, nil
	}

	plan = plan.Filter(r.Jobs)

	run := models.NewRun(plan.Workflow, ev.Type, ev.Branch, ev.Commit)

	for _, pj := range plan.Jobs {
		job := models.NewJob(pj.WorkflowJob, pj.Name, pj.Toolchain.String(), pj.Matrix)

		for _, ps := range pj.Steps {
			status := types.StepStatusPending

			if ps.Skipped {
				status = types.StepStatusSkipped
			}

			job.Steps = append(job.Steps, models.Step{
				StepIndex: ps.Index,
				Name:      ps.Name,
				Status:    status,
			})
		}

		run.Jobs = append(run.Jobs, *job)
	}

	run, err = r.Repository.Run.CreateRun(run)

	if err != nil {
		return nil, fmt.Errorf("could not store run: %w", err)
	}

	r.Logger.Info().Caller().Msgf("created run %s with %d jobs for %s event on %s", run.UniqueID, len(run.Jobs), ev.Type, ev.Branch)

	return run, nil
}

// Execute runs every unfinished job of the stored run. Jobs fail
// independently; the returned error only reports failures to track state,
// in which case the run can be executed again.
func (r *Runner) Execute(ctx context.Context, runUID string) (*models.Run, error) {
	run, err := r.Repository.Run.ReadRun(runUID)

	if err != nil {
		return nil, fmt.Errorf("could not read run %s: %w", runUID, err)
	}

	if run.Status == types.RunStatusSucceeded || run.Status == types.RunStatusFailed {
		return run, ErrRunFinished
	}

	// plans are deterministic for a given workflow and event
	plan, err := r.Planner.Plan(workflow.Event{
		Type:   run.Event,
		Branch: run.Branch,
		Commit: run.Commit,
		Time:   run.CreatedAt,
	})

	if err != nil {
		return r.abandon(run, err.Error())
	}

	if plan == nil {
		return r.abandon(run, "the event no longer matches a workflow trigger")
	}

	planned := make(map[string]*planner.Job, len(plan.Jobs))

	for _, pj := range plan.Jobs {
		planned[pj.Name] = pj
	}

	if run.StartedAt == nil {
		run.StartedAt = now()
	}

	run.Status = types.RunStatusRunning

	if _, err := r.Repository.Run.UpdateRun(run); err != nil {
		return nil, fmt.Errorf("could not update run %s: %w", runUID, err)
	}

	parallelism := r.Parallelism

	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}

	g := &errgroup.Group{}
	g.SetLimit(parallelism)

	for i := range run.Jobs {
		job := &run.Jobs[i]

		if job.Status == types.JobStatusSucceeded || job.Status == types.JobStatusFailed {
			continue
		}

		pj, ok := planned[job.Name]

		if !ok {
			// the workflow changed since the run was created
			g.Go(func() error {
				return r.failJob(job, fmt.Errorf("job %s is not part of the current workflow", job.Name))
			})

			continue
		}

		g.Go(func() error {
			return r.executeJob(ctx, run, job, pj)
		})
	}

	if err := g.Wait(); err != nil {
		return run, err
	}

	return r.finish(run)
}

// abandon fails every unfinished job of a run the workflow cannot plan and
// finishes the run.
func (r *Runner) abandon(run *models.Run, reason string) (*models.Run, error) {
	for i := range run.Jobs {
		job := &run.Jobs[i]

		if job.Status == types.JobStatusSucceeded || job.Status == types.JobStatusFailed {
			continue
		}

		if err := r.failJob(job, fmt.Errorf("job %s of run %s cannot run: %s", job.Name, run.UniqueID, reason)); err != nil {
			return run, err
		}
	}

	if run.StartedAt == nil {
		run.StartedAt = now()
	}

	finished, err := r.finish(run)

	if err != nil {
		return finished, err
	}

	return finished, fmt.Errorf("%w: run %s: %s", ErrRunNotPlannable, run.UniqueID, reason)
}

func (r *Runner) executeJob(ctx context.Context, run *models.Run, job *models.Job, pj *planner.Job) error {
	job.Status = types.JobStatusRunning
	job.StartedAt = now()

	if _, err := r.Repository.Job.UpdateJob(job); err != nil {
		return fmt.Errorf("could not update job %s: %w", job.Name, err)
	}

	if r.Metrics != nil {
		r.Metrics.JobStarted()
	}

	labels := map[string]string{
		"run": run.UniqueID,
		"job": job.UniqueID,
	}

	w := logstore.NewBufferedWriter(r.LogStore, labels, func(err error) {
		r.Logger.Warn().Caller().Msgf("could not store output of job %s of run %s: %v", job.Name, run.UniqueID, err)
	})

	res := r.Executor.Execute(ctx, job.UniqueID, pj, w)

	if err := w.Close(); err != nil {
		r.Logger.Warn().Caller().Msgf("output of job %s of run %s is incomplete: %v", job.Name, run.UniqueID, err)
	}

	applyResult(job, res)

	if r.Metrics != nil {
		r.Metrics.JobFinished(job.WorkflowJob, job.Status, job.FailureKind, job.FinishedAt.Sub(*job.StartedAt).Seconds())
	}

	if res.Failed() {
		r.Logger.Info().Caller().Msgf("job %s of run %s failed: %v", job.Name, run.UniqueID, res.Err)
	} else {
		r.Logger.Debug().Caller().Msgf("job %s of run %s succeeded", job.Name, run.UniqueID)
	}

	if _, err := r.Repository.Job.UpdateJob(job); err != nil {
		return fmt.Errorf("could not update job %s: %w", job.Name, err)
	}

	return nil
}

func (r *Runner) failJob(job *models.Job, err error) error {
	t := now()
	idx := 0

	job.Status = types.JobStatusFailed
	job.FailureKind = types.FailureKindInfrastructure
	job.FailedStep = &idx
	job.ExitCode = -1
	job.StartedAt = t
	job.FinishedAt = t

	for i := range job.Steps {
		if job.Steps[i].Status == types.StepStatusPending {
			job.Steps[i].Status = types.StepStatusSkipped
		}
	}

	r.Logger.Warn().Caller().Msgf("%v", err)

	if _, err := r.Repository.Job.UpdateJob(job); err != nil {
		return fmt.Errorf("could not update job %s: %w", job.Name, err)
	}

	return nil
}

func applyResult(job *models.Job, res *executor.Result) {
	job.FinishedAt = now()
	job.Status = res.Status
	job.FailureKind = res.FailureKind
	job.FailedStep = res.FailedStep
	job.ExitCode = res.ExitCode

	byIndex := make(map[int]executor.StepResult, len(res.Steps))

	for _, s := range res.Steps {
		byIndex[s.Index] = s
	}

	for i := range job.Steps {
		if s, ok := byIndex[job.Steps[i].StepIndex]; ok {
			job.Steps[i].Status = s.Status
			job.Steps[i].ExitCode = s.ExitCode
		}
	}
}

// finish sets the final run status: failed iff at least one job failed.
func (r *Runner) finish(run *models.Run) (*models.Run, error) {
	run.FinishedAt = now()
	run.Status = types.RunStatusSucceeded

	if run.NumFailed() > 0 {
		run.Status = types.RunStatusFailed
	}

	if _, err := r.Repository.Run.UpdateRun(run); err != nil {
		return run, fmt.Errorf("could not update run %s: %w", run.UniqueID, err)
	}

	if r.Metrics != nil {
		r.Metrics.RunFinished(run.Status, run.Event)
	}

	r.Logger.Info().Caller().Msgf("run %s %s: %d of %d jobs failed", run.UniqueID, run.Status, run.NumFailed(), len(run.Jobs))

	if err := r.Alerter.HandleRun(run); err != nil {
		r.Logger.Error().Caller().Msgf("%v", err)
	}

	return run, nil
}

func now() *time.Time {
	t := time.Now()
	return &t
}
