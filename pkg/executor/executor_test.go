package executor

import (
	"sync"
	"time"

	"github.com/porter-dev/matrix-agent/api/server/types"
	"github.com/porter-dev/matrix-agent/pkg/planner"
	"github.com/porter-dev/matrix-agent/pkg/toolchain"
	"github.com/porter-dev/matrix-agent/pkg/workflow"
)

type memWriter struct {
	mu    sync.Mutex
	lines []string
}

func (m *memWriter) Write(t *time.Time, line string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lines = append(m.lines, line)

	return nil
}

func (m *memWriter) Lines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string{}, m.lines...)
}

var nightly, _ = toolchain.Parse("nightly")

func cmd(kind types.FailureKind, args ...string) toolchain.Command {
	return toolchain.Command{Args: args, FailureKind: kind}
}

// testJob has a toolchain step, a step skipped by condition, a target step
// and a script step.
func testJob(targetCmd, script string) *planner.Job {
	return &planner.Job{
		WorkflowJob: "test",
		Name:        "test (crossbeam, nightly)",
		Toolchain:   nightly,
		Env:         map[string]string{"RUST_VERSION": "nightly"},
		Shell:       []string{"sh", "-c"},
		Steps: []*planner.Step{
			{
				Index:    0,
				Name:     "install",
				Action:   workflow.ActionToolchain,
				Commands: []toolchain.Command{cmd(types.FailureKindToolchainInstall, "sh", "-c", "echo installing")},
			},
			{
				Index:   1,
				Name:    "pin",
				Action:  workflow.ActionPin,
				Skipped: true,
			},
			{
				Index:  2,
				Name:   "targets",
				Action: workflow.ActionTargets,
				Commands: []toolchain.Command{
					cmd(types.FailureKindTargetRegistration, "sh", "-c", "true"),
					cmd(types.FailureKindTargetRegistration, "sh", "-c", targetCmd),
				},
			},
			{
				Index:  3,
				Name:   "script",
				Action: workflow.ActionRun,
				Script: script,
				Env:    map[string]string{"CRATE": "crossbeam"},
			},
		},
	}
}
