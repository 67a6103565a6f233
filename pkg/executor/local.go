package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/porter-dev/matrix-agent/api/server/types"
	"github.com/porter-dev/matrix-agent/internal/logger"
	"github.com/porter-dev/matrix-agent/pkg/logstore"
	"github.com/porter-dev/matrix-agent/pkg/planner"
)

// LocalExecutor runs every command of a job as a subprocess in Dir, the
// shared source checkout.
type LocalExecutor struct {
	Dir    string
	Logger *logger.Logger

	// BaseEnv defaults to the environment of the agent process
	BaseEnv []string
}

func NewLocalExecutor(dir string, l *logger.Logger) *LocalExecutor {
	return &LocalExecutor{
		Dir:    dir,
		Logger: l,
	}
}

func (e *LocalExecutor) Kind() string {
	return KindLocal
}

func (e *LocalExecutor) Execute(ctx context.Context, id string, job *planner.Job, w logstore.Writer) *Result {
	res := newResult(job)

	for i, step := range job.Steps {
		if res.Steps[i].Status != types.StepStatusPending {
			continue
		}

		res.Steps[i].StartedAt = now()

		writeLine(w, fmt.Sprintf("##[step] %s", step.Name))

		cmdIdx, exitCode, err := e.runStep(ctx, job, step, w)

		res.Steps[i].FinishedAt = now()

		if err != nil {
			kind := step.FailureKind(cmdIdx)

			var exitErr *exec.ExitError

			if ctx.Err() != nil || !errors.As(err, &exitErr) {
				kind = types.FailureKindInfrastructure
			}

			e.Logger.Debug().Caller().Msgf("job %s (%s) failed at step %d (%s): %v", job.Name, id, i, step.Name, err)

			writeLine(w, fmt.Sprintf("##[error] %s failed: %v", step.Name, err))

			res.fail(i, kind, exitCode, err)

			return res
		}

		res.Steps[i].Status = types.StepStatusSucceeded
	}

	return res
}

// runStep returns the index of the failed command within the step, its exit
// code and the error it failed with.
func (e *LocalExecutor) runStep(ctx context.Context, job *planner.Job, step *planner.Step, w logstore.Writer) (int, int, error) {
	env := e.environ(stepEnv(job, step))

	if step.Commands == nil {
		args := append(append([]string{}, job.Shell...), step.Script)
		code, err := e.run(ctx, args, env, w)

		return 0, code, err
	}

	for i, cmd := range step.Commands {
		writeLine(w, "$ "+strings.Join(cmd.Args, " "))

		if code, err := e.run(ctx, cmd.Args, env, w); err != nil {
			return i, code, err
		}
	}

	return 0, 0, nil
}

func (e *LocalExecutor) environ(env map[string]string) []string {
	base := e.BaseEnv

	if base == nil {
		base = os.Environ()
	}

	res := append([]string{}, base...)

	for _, k := range sortedKeys(env) {
		res = append(res, k+"="+env[k])
	}

	return res
}

func (e *LocalExecutor) run(ctx context.Context, args []string, env []string, w logstore.Writer) (int, error) {
	if len(args) == 0 {
		return -1, fmt.Errorf("empty command")
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = e.Dir
	cmd.Env = env

	lw := &lineWriter{w: w}
	cmd.Stdout = lw
	cmd.Stderr = lw

	err := cmd.Run()
	lw.Flush()

	if err != nil {
		var exitErr *exec.ExitError

		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), err
		}

		return -1, err
	}

	return 0, nil
}

// lineWriter splits process output into lines for a logstore.Writer. Stdout
// and stderr share one lineWriter, so writes are serialized.
type lineWriter struct {
	w logstore.Writer

	mu  sync.Mutex
	buf bytes.Buffer
}

func (lw *lineWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	lw.buf.Write(p)

	for {
		line, err := lw.buf.ReadString('\n')

		if err != nil {
			// incomplete line, keep it for the next write
			lw.buf.Reset()
			lw.buf.WriteString(line)

			return len(p), nil
		}

		writeLine(lw.w, strings.TrimRight(line, "\r\n"))
	}
}

func (lw *lineWriter) Flush() {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	if lw.buf.Len() > 0 {
		writeLine(lw.w, strings.TrimRight(lw.buf.String(), "\r\n"))
		lw.buf.Reset()
	}
}

func writeLine(w logstore.Writer, line string) {
	if w == nil {
		return
	}

	t := time.Now()

	w.Write(&t, line)
}
