package alerter

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/porter-dev/matrix-agent/api/server/types"
	"github.com/porter-dev/matrix-agent/internal/logger"
	"github.com/porter-dev/matrix-agent/internal/models"
	"github.com/porter-dev/matrix-agent/pkg/httpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRun(status types.RunStatus) *models.Run {
	run := models.NewRun("CI", types.EventTypePush, "master", "abc")
	run.Status = status

	ok := models.NewJob("test", "test (crossbeam, nightly)", "nightly", nil)
	ok.Status = types.JobStatusSucceeded

	failedStep := 3
	failed := models.NewJob("test", "test (crossbeam-deque, 1.28.0)", "1.28.0", nil)
	failed.Status = types.JobStatusFailed
	failed.FailureKind = types.FailureKindScript
	failed.FailedStep = &failedStep
	failed.ExitCode = 101

	run.Jobs = append(run.Jobs, *ok, *failed)

	return run
}

func newTestAlerter(t *testing.T, mode RunAlertConfiguration, handler http.HandlerFunc) *Alerter {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	l := logger.New(false, nil)

	return &Alerter{
		AlertConf: &AlertConf{Mode: mode},
		Client: httpclient.NewClient(&httpclient.HTTPClientConf{
			WebhookURL:     srv.URL,
			WebhookToken:   "secret",
			TimeoutSeconds: 1,
		}, l),
		Logger: l,
	}
}

func TestHandleRunSendsFailedJobs(t *testing.T) {
	var got RunSummary
	calls := 0

	a := newTestAlerter(t, RunAlertConfigurationFailures, func(w http.ResponseWriter, r *http.Request) {
		calls++

		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	})

	require.NoError(t, a.HandleRun(newTestRun(types.RunStatusFailed)))

	assert.Equal(t, 1, calls)
	assert.Equal(t, types.RunStatusFailed, got.Run.Status)
	require.Len(t, got.FailedJobs, 1)
	assert.Equal(t, "test (crossbeam-deque, 1.28.0)", got.FailedJobs[0].Name)
	assert.Equal(t, types.FailureKindScript, got.FailedJobs[0].FailureKind)
	assert.Equal(t, 3, *got.FailedJobs[0].FailedStep)
	assert.Equal(t, 101, got.FailedJobs[0].ExitCode)
}

func TestHandleRunMode(t *testing.T) {
	calls := 0
	handler := func(w http.ResponseWriter, r *http.Request) { calls++ }

	failures := newTestAlerter(t, RunAlertConfigurationFailures, handler)
	require.NoError(t, failures.HandleRun(newTestRun(types.RunStatusSucceeded)))
	assert.Equal(t, 0, calls)

	every := newTestAlerter(t, RunAlertConfigurationEvery, handler)
	require.NoError(t, every.HandleRun(newTestRun(types.RunStatusSucceeded)))
	assert.Equal(t, 1, calls)

	require.NoError(t, every.HandleRun(newTestRun(types.RunStatusRunning)))
	assert.Equal(t, 1, calls)
}

func TestHandleRunWebhookError(t *testing.T) {
	a := newTestAlerter(t, RunAlertConfigurationFailures, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	assert.Error(t, a.HandleRun(newTestRun(types.RunStatusFailed)))
}

func TestHandleRunDisabled(t *testing.T) {
	a := &Alerter{
		Client: httpclient.NewClient(&httpclient.HTTPClientConf{}, logger.New(false, nil)),
	}

	assert.NoError(t, a.HandleRun(newTestRun(types.RunStatusFailed)))
}
