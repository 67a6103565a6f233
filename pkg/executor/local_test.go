package executor

import (
	"context"
	"testing"

	"github.com/porter-dev/matrix-agent/api/server/types"
	"github.com/porter-dev/matrix-agent/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocalExecutor(t *testing.T) *LocalExecutor {
	e := NewLocalExecutor(t.TempDir(), logger.New(false, nil))
	e.BaseEnv = []string{"PATH=/usr/local/bin:/usr/bin:/bin"}

	return e
}

func TestLocalExecuteSucceeds(t *testing.T) {
	w := &memWriter{}

	res := newLocalExecutor(t).Execute(context.Background(), "id", testJob("true", "echo $CRATE on $RUST_VERSION"), w)

	require.False(t, res.Failed(), "%v", res.Err)
	assert.Equal(t, types.JobStatusSucceeded, res.Status)
	assert.Equal(t, types.FailureKindNone, res.FailureKind)
	assert.Nil(t, res.FailedStep)

	statuses := []types.StepStatus{}

	for _, s := range res.Steps {
		statuses = append(statuses, s.Status)
	}

	assert.Equal(t, []types.StepStatus{
		types.StepStatusSucceeded,
		types.StepStatusSkipped,
		types.StepStatusSucceeded,
		types.StepStatusSucceeded,
	}, statuses)

	assert.Contains(t, w.Lines(), "installing")
	assert.Contains(t, w.Lines(), "crossbeam on nightly")
}

func TestLocalExecuteClassifiesFailedCommand(t *testing.T) {
	res := newLocalExecutor(t).Execute(context.Background(), "id", testJob("exit 3", "echo unreachable"), &memWriter{})

	require.True(t, res.Failed())
	assert.Equal(t, types.FailureKindTargetRegistration, res.FailureKind)
	require.NotNil(t, res.FailedStep)
	assert.Equal(t, 2, *res.FailedStep)
	assert.Equal(t, 3, res.ExitCode)

	assert.Equal(t, types.StepStatusFailed, res.Steps[2].Status)
	assert.Equal(t, types.StepStatusSkipped, res.Steps[3].Status)
}

func TestLocalExecuteScriptFailure(t *testing.T) {
	res := newLocalExecutor(t).Execute(context.Background(), "id", testJob("true", "exit 101"), &memWriter{})

	require.True(t, res.Failed())
	assert.Equal(t, types.FailureKindScript, res.FailureKind)
	assert.Equal(t, 3, *res.FailedStep)
	assert.Equal(t, 101, res.ExitCode)
}

func TestLocalExecuteMissingBinary(t *testing.T) {
	job := testJob("true", "true")
	job.Steps[0].Commands[0].Args = []string{"matrix-agent-no-such-binary"}

	res := newLocalExecutor(t).Execute(context.Background(), "id", job, &memWriter{})

	require.True(t, res.Failed())
	assert.Equal(t, types.FailureKindInfrastructure, res.FailureKind)
	assert.Equal(t, 0, *res.FailedStep)
	assert.Equal(t, -1, res.ExitCode)

	var stepErr *StepError
	require.ErrorAs(t, res.Err, &stepErr)
	assert.Equal(t, 0, stepErr.Step)
	assert.Equal(t, types.FailureKindInfrastructure, stepErr.Kind)
}

func TestLocalExecuteCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := newLocalExecutor(t).Execute(ctx, "id", testJob("true", "true"), &memWriter{})

	require.True(t, res.Failed())
	assert.Equal(t, types.FailureKindInfrastructure, res.FailureKind)
}

func TestLineWriter(t *testing.T) {
	w := &memWriter{}
	lw := &lineWriter{w: w}

	lw.Write([]byte("one\ntw"))
	lw.Write([]byte("o\r\nthree"))
	lw.Flush()

	assert.Equal(t, []string{"one", "two", "three"}, w.Lines())
}
