// Package workflow holds the declarative CI description: triggers, jobs,
// their matrices and steps.
package workflow

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default.yml
var defaultWorkflow []byte

type Workflow struct {
	Name     string            `yaml:"name"`
	On       Triggers          `yaml:"on"`
	Env      map[string]string `yaml:"env"`
	Defaults Defaults          `yaml:"defaults"`
	Jobs     Jobs              `yaml:"jobs"`
}

type Defaults struct {
	Run RunDefaults `yaml:"run"`
}

type RunDefaults struct {
	// Shell is the command prefix used for run steps, e.g. "bash -e -c"
	Shell string `yaml:"shell"`
}

type Job struct {
	// ID is the key of the job in the jobs mapping
	ID string `yaml:"-"`

	Name      string            `yaml:"name"`
	Toolchain string            `yaml:"toolchain"`
	Env       map[string]string `yaml:"env"`
	Strategy  Strategy          `yaml:"strategy"`
	Steps     []*Step           `yaml:"steps"`
}

type Strategy struct {
	Matrix *Matrix `yaml:"matrix"`
}

type Pin struct {
	Package string `yaml:"package"`
	Version string `yaml:"version"`
}

type Step struct {
	Name string            `yaml:"name"`
	If   string            `yaml:"if"`
	Env  map[string]string `yaml:"env"`

	// exactly one of the following is set
	Run        string   `yaml:"run"`
	Toolchain  string   `yaml:"toolchain"`
	Targets    []string `yaml:"targets"`
	Components []string `yaml:"components"`
	Pin        *Pin     `yaml:"pin"`
}

type StepAction string

const (
	ActionRun        StepAction = "run"
	ActionToolchain  StepAction = "toolchain"
	ActionTargets    StepAction = "targets"
	ActionComponents StepAction = "components"
	ActionPin        StepAction = "pin"
)

func (s *Step) actions() []StepAction {
	var res []StepAction

	if s.Run != "" {
		res = append(res, ActionRun)
	}

	if s.Toolchain != "" {
		res = append(res, ActionToolchain)
	}

	if len(s.Targets) > 0 {
		res = append(res, ActionTargets)
	}

	if len(s.Components) > 0 {
		res = append(res, ActionComponents)
	}

	if s.Pin != nil {
		res = append(res, ActionPin)
	}

	return res
}

// Action returns the single action of a validated step.
func (s *Step) Action() StepAction {
	if actions := s.actions(); len(actions) == 1 {
		return actions[0]
	}

	return ""
}

// Jobs keeps the declaration order of the jobs mapping.
type Jobs []*Job

func (j *Jobs) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: jobs must be a mapping", value.Line)
	}

	res := make(Jobs, 0, len(value.Content)/2)

	for i := 0; i+1 < len(value.Content); i += 2 {
		job := &Job{}

		if err := value.Content[i+1].Decode(job); err != nil {
			return err
		}

		job.ID = value.Content[i].Value

		if job.Name == "" {
			job.Name = job.ID
		}

		res = append(res, job)
	}

	*j = res

	return nil
}

func (j Jobs) Get(id string) *Job {
	for _, job := range j {
		if job.ID == id {
			return job
		}
	}

	return nil
}

func Parse(data []byte) (*Workflow, error) {
	w := &Workflow{}

	if err := yaml.Unmarshal(data, w); err != nil {
		return nil, fmt.Errorf("could not parse workflow: %w", err)
	}

	if err := w.Validate(); err != nil {
		return nil, err
	}

	return w, nil
}

func Load(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)

	if err != nil {
		return nil, fmt.Errorf("could not read workflow file %s: %w", path, err)
	}

	return Parse(data)
}

// Default returns the built-in CI workflow.
func Default() *Workflow {
	w, err := Parse(defaultWorkflow)

	if err != nil {
		panic(fmt.Sprintf("built-in workflow is invalid: %v", err))
	}

	return w
}
