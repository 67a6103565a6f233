package alerter

import (
	"fmt"
	"time"

	"github.com/porter-dev/matrix-agent/api/server/types"
	"github.com/porter-dev/matrix-agent/internal/logger"
	"github.com/porter-dev/matrix-agent/internal/models"
	"github.com/porter-dev/matrix-agent/pkg/httpclient"
)

type RunAlertConfiguration string

const (
	RunAlertConfigurationEvery    RunAlertConfiguration = "every"
	RunAlertConfigurationFailures RunAlertConfiguration = "failures"
)

type AlertConf struct {
	Mode RunAlertConfiguration `env:"ALERT_MODE,default=failures"`
}

// RunSummary is the webhook payload.
type RunSummary struct {
	Run        *types.RunMeta `json:"run"`
	FailedJobs []*FailedJob   `json:"failed_jobs"`
}

type FailedJob struct {
	Name        string            `json:"name"`
	FailureKind types.FailureKind `json:"failure_kind"`
	FailedStep  *int              `json:"failed_step,omitempty"`
	ExitCode    int               `json:"exit_code"`
}

type Alerter struct {
	AlertConf *AlertConf
	Client    *httpclient.Client
	Logger    *logger.Logger
}

// HandleRun notifies the webhook about a finished run. Only failed runs are
// sent unless the alerter is configured to notify on every run.
func (a *Alerter) HandleRun(run *models.Run) error {
	if a == nil || a.Client == nil || !a.Client.Enabled() {
		return nil
	}

	if !a.shouldAlert(run) {
		return nil
	}

	summary := &RunSummary{
		Run:        run.ToAPITypeMeta(),
		FailedJobs: make([]*FailedJob, 0),
	}

	for _, job := range run.Jobs {
		if job.Status != types.JobStatusFailed {
			continue
		}

		summary.FailedJobs = append(summary.FailedJobs, &FailedJob{
			Name:        job.Name,
			FailureKind: job.FailureKind,
			FailedStep:  job.FailedStep,
			ExitCode:    job.ExitCode,
		})
	}

	start := time.Now()

	if err := a.Client.Post("", summary); err != nil {
		return fmt.Errorf("could not notify run %s: %w", run.UniqueID, err)
	}

	a.Logger.Info().Caller().Msgf("notified run %s (%s) in %s", run.UniqueID, run.Status, time.Since(start))

	return nil
}

func (a *Alerter) shouldAlert(run *models.Run) bool {
	if a.AlertConf != nil && a.AlertConf.Mode == RunAlertConfigurationEvery {
		return run.Status == types.RunStatusSucceeded || run.Status == types.RunStatusFailed
	}

	return run.Status == types.RunStatusFailed
}
