// Package planner turns a workflow and a triggering event into the concrete
// list of jobs a run executes.
package planner

import (
	"fmt"

	"github.com/google/shlex"
	"github.com/porter-dev/matrix-agent/api/server/types"
	"github.com/porter-dev/matrix-agent/pkg/toolchain"
	"github.com/porter-dev/matrix-agent/pkg/workflow"
)

const DefaultShell = "bash -e -c"

// ToolchainEnvVar carries the selected toolchain identifier into every step.
const ToolchainEnvVar = "RUST_VERSION"

type Step struct {
	Index  int
	Name   string
	Action workflow.StepAction

	// Skipped is set when the step condition evaluated to false
	Skipped bool

	// Commands is set for toolchain, targets, components and pin steps
	Commands []toolchain.Command

	// Script is set for run steps
	Script string

	Env map[string]string
}

type Job struct {
	WorkflowJob string
	Name        string
	Toolchain   *toolchain.Identifier
	Matrix      workflow.Combination
	Env         map[string]string
	Shell       []string
	Steps       []*Step
}

type Plan struct {
	Workflow string
	Event    workflow.Event
	Jobs     []*Job
}

type Planner struct {
	workflow *workflow.Workflow
	eval     *workflow.Evaluator
	shell    []string
}

func New(w *workflow.Workflow) (*Planner, error) {
	eval, err := workflow.NewEvaluator()

	if err != nil {
		return nil, err
	}

	shellCmd := w.Defaults.Run.Shell

	if shellCmd == "" {
		shellCmd = DefaultShell
	}

	shell, err := shlex.Split(shellCmd)

	if err != nil || len(shell) == 0 {
		return nil, fmt.Errorf("invalid shell %q: %v", shellCmd, err)
	}

	return &Planner{
		workflow: w,
		eval:     eval,
		shell:    shell,
	}, nil
}

func (p *Planner) Workflow() *workflow.Workflow {
	return p.workflow
}

// Plan returns the jobs ev triggers, or nil if no trigger of the workflow
// matches ev.
func (p *Planner) Plan(ev workflow.Event) (*Plan, error) {
	if !p.workflow.On.Matches(ev) {
		return nil, nil
	}

	plan := &Plan{
		Workflow: p.workflow.Name,
		Event:    ev,
	}

	for _, wj := range p.workflow.Jobs {
		combos := []workflow.Combination{nil}

		if wj.Strategy.Matrix != nil {
			combos = wj.Strategy.Matrix.Expand()
		}

		for _, combo := range combos {
			job, err := p.planJob(wj, combo, ev)

			if err != nil {
				return nil, fmt.Errorf("job %s: %w", wj.ID, err)
			}

			plan.Jobs = append(plan.Jobs, job)
		}
	}

	return plan, nil
}

func eventScope(ev workflow.Event) map[string]string {
	return map[string]string{
		"type":   string(ev.Type),
		"branch": ev.Branch,
		"commit": ev.Commit,
	}
}

func merge(maps ...map[string]string) map[string]string {
	res := make(map[string]string)

	for _, m := range maps {
		for k, v := range m {
			res[k] = v
		}
	}

	return res
}

func (p *Planner) planJob(wj *workflow.Job, combo workflow.Combination, ev workflow.Event) (*Job, error) {
	scope := workflow.Scope{
		Matrix: combo,
		Env:    p.workflow.Env,
		Event:  eventScope(ev),
	}

	name, err := p.eval.Interpolate(wj.Name, scope)

	if err != nil {
		return nil, err
	}

	if len(combo) > 0 {
		name = fmt.Sprintf("%s (%s)", name, wj.Strategy.Matrix.Label(combo))
	}

	tcName, err := p.eval.Interpolate(wj.Toolchain, scope)

	if err != nil {
		return nil, err
	}

	tc, err := toolchain.Parse(tcName)

	if err != nil {
		return nil, err
	}

	jobEnv, err := p.eval.InterpolateMap(wj.Env, scope)

	if err != nil {
		return nil, err
	}

	env := merge(p.workflow.Env, jobEnv)

	if _, ok := env[ToolchainEnvVar]; !ok {
		env[ToolchainEnvVar] = tc.String()
	}

	job := &Job{
		WorkflowJob: wj.ID,
		Name:        name,
		Toolchain:   tc,
		Matrix:      combo,
		Env:         env,
		Shell:       p.shell,
	}

	scope.Env = env

	for i, ws := range wj.Steps {
		step, err := p.planStep(i, ws, scope)

		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, ws.Name, err)
		}

		job.Steps = append(job.Steps, step)
	}

	return job, nil
}

func (p *Planner) planStep(i int, ws *workflow.Step, scope workflow.Scope) (*Step, error) {
	step := &Step{
		Index:  i,
		Name:   ws.Name,
		Action: ws.Action(),
	}

	if step.Name == "" {
		step.Name = fmt.Sprintf("step %d", i)
	}

	ok, err := p.eval.Condition(ws.If, scope)

	if err != nil {
		return nil, err
	}

	if !ok {
		step.Skipped = true
		return step, nil
	}

	step.Env, err = p.eval.InterpolateMap(ws.Env, scope)

	if err != nil {
		return nil, err
	}

	switch step.Action {
	case workflow.ActionRun:
		step.Script, err = p.eval.Interpolate(ws.Run, scope)
	case workflow.ActionToolchain:
		var tcName string

		tcName, err = p.eval.Interpolate(ws.Toolchain, scope)

		if err == nil {
			var tc *toolchain.Identifier

			if tc, err = toolchain.Parse(tcName); err == nil {
				step.Commands = toolchain.InstallCommands(tc)
			}
		}
	case workflow.ActionTargets:
		step.Commands = toolchain.TargetCommands(ws.Targets)
	case workflow.ActionComponents:
		step.Commands = toolchain.ComponentCommands(ws.Components)
	case workflow.ActionPin:
		step.Commands = toolchain.PinCommands(ws.Pin.Package, ws.Pin.Version)
	default:
		err = fmt.Errorf("step has no action")
	}

	if err != nil {
		return nil, err
	}

	return step, nil
}

// FailureKind classifies a failure of the step's command at index cmd. Run
// steps always fail as scripts.
func (s *Step) FailureKind(cmd int) types.FailureKind {
	if s.Action == workflow.ActionRun {
		return types.FailureKindScript
	}

	if cmd >= 0 && cmd < len(s.Commands) {
		return s.Commands[cmd].FailureKind
	}

	return types.FailureKindInfrastructure
}

// Filter keeps only the jobs declared by the given workflow job ids. An empty
// list keeps everything.
func (p *Plan) Filter(ids []string) *Plan {
	if p == nil || len(ids) == 0 {
		return p
	}

	keep := make(map[string]bool, len(ids))

	for _, id := range ids {
		keep[id] = true
	}

	res := &Plan{Workflow: p.Workflow, Event: p.Event}

	for _, j := range p.Jobs {
		if keep[j.WorkflowJob] {
			res.Jobs = append(res.Jobs, j)
		}
	}

	return res
}
