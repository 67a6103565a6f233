package workflow

import (
	"fmt"
	"strings"
)

func (w *Workflow) Validate() error {
	if len(w.Jobs) == 0 {
		return fmt.Errorf("workflow %q has no jobs", w.Name)
	}

	if w.On.Push == nil && w.On.PullRequest == nil && len(w.On.Schedule) == 0 {
		return fmt.Errorf("workflow %q has no triggers", w.Name)
	}

	for _, f := range []*BranchFilter{w.On.Push, w.On.PullRequest} {
		if f == nil {
			continue
		}

		if err := f.validate(); err != nil {
			return err
		}
	}

	for _, s := range w.On.Schedule {
		if _, err := s.expression(); err != nil {
			return err
		}
	}

	eval, err := NewEvaluator()

	if err != nil {
		return err
	}

	seen := make(map[string]bool)

	for _, job := range w.Jobs {
		if seen[job.ID] {
			return fmt.Errorf("job %s is declared twice", job.ID)
		}

		seen[job.ID] = true

		if err := job.validate(eval); err != nil {
			return fmt.Errorf("job %s: %w", job.ID, err)
		}
	}

	return nil
}

func (j *Job) validate(eval *Evaluator) error {
	if strings.TrimSpace(j.Toolchain) == "" {
		return fmt.Errorf("no toolchain")
	}

	if len(j.Steps) == 0 {
		return fmt.Errorf("no steps")
	}

	if j.Strategy.Matrix != nil {
		if err := j.Strategy.Matrix.validate(); err != nil {
			return err
		}
	}

	exprs := []string{j.Name, j.Toolchain}

	for _, v := range j.Env {
		exprs = append(exprs, v)
	}

	for i, step := range j.Steps {
		actions := step.actions()

		if len(actions) != 1 {
			return fmt.Errorf("step %d (%s) must declare exactly one of run, toolchain, targets, components or pin, got %d", i, step.Name, len(actions))
		}

		if step.Pin != nil && (step.Pin.Package == "" || step.Pin.Version == "") {
			return fmt.Errorf("step %d (%s): pin requires package and version", i, step.Name)
		}

		if err := eval.checkSyntax(step.If, true); err != nil {
			return fmt.Errorf("step %d (%s): %w", i, step.Name, err)
		}

		exprs = append(exprs, step.Run, step.Toolchain)

		for _, v := range step.Env {
			exprs = append(exprs, v)
		}
	}

	for _, e := range exprs {
		if err := eval.checkSyntax(e, false); err != nil {
			return err
		}
	}

	return nil
}
