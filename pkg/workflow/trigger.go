package workflow

import (
	"fmt"
	"time"

	"github.com/bmatcuk/doublestar"
	"github.com/gorhill/cronexpr"
	"github.com/porter-dev/matrix-agent/api/server/types"
	"gopkg.in/yaml.v3"
)

// Event is the repository event a run is requested for.
type Event struct {
	Type   types.EventType
	Branch string
	Commit string
	Time   time.Time
}

type BranchFilter struct {
	Branches       []string `yaml:"branches"`
	BranchesIgnore []string `yaml:"branches-ignore"`
}

type Schedule struct {
	Cron string `yaml:"cron"`
}

// Triggers is the "on" section. A nil filter means the event is not a
// trigger; an empty filter matches every branch.
type Triggers struct {
	Push        *BranchFilter
	PullRequest *BranchFilter
	Schedule    []Schedule
}

func (t *Triggers) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		return t.enable(value.Value, nil)
	case yaml.SequenceNode:
		for _, n := range value.Content {
			if err := t.enable(n.Value, nil); err != nil {
				return err
			}
		}

		return nil
	case yaml.MappingNode:
		for i := 0; i+1 < len(value.Content); i += 2 {
			if err := t.enable(value.Content[i].Value, value.Content[i+1]); err != nil {
				return err
			}
		}

		return nil
	}

	return fmt.Errorf("line %d: unsupported trigger definition", value.Line)
}

func (t *Triggers) enable(name string, body *yaml.Node) error {
	decodeFilter := func() (*BranchFilter, error) {
		f := &BranchFilter{}

		if body == nil || body.Tag == "!!null" {
			return f, nil
		}

		if err := body.Decode(f); err != nil {
			return nil, err
		}

		return f, nil
	}

	var err error

	switch types.EventType(name) {
	case types.EventTypePush:
		t.Push, err = decodeFilter()
	case types.EventTypePullRequest:
		t.PullRequest, err = decodeFilter()
	case types.EventTypeSchedule:
		if body == nil {
			return fmt.Errorf("schedule trigger requires a list of cron entries")
		}

		err = body.Decode(&t.Schedule)
	default:
		return fmt.Errorf("unsupported trigger %q", name)
	}

	return err
}

func (f *BranchFilter) validate() error {
	for _, p := range append(append([]string{}, f.Branches...), f.BranchesIgnore...) {
		if _, err := doublestar.Match(p, ""); err != nil {
			return fmt.Errorf("invalid branch pattern %q: %w", p, err)
		}
	}

	return nil
}

// Matches reports whether branch passes the filter. branches-ignore wins over
// branches.
func (f *BranchFilter) Matches(branch string) bool {
	for _, p := range f.BranchesIgnore {
		if ok, _ := doublestar.Match(p, branch); ok {
			return false
		}
	}

	if len(f.Branches) == 0 {
		return true
	}

	for _, p := range f.Branches {
		if ok, _ := doublestar.Match(p, branch); ok {
			return true
		}
	}

	return false
}

// Matches reports whether ev triggers a run of the workflow.
func (t *Triggers) Matches(ev Event) bool {
	switch ev.Type {
	case types.EventTypePush:
		return t.Push != nil && t.Push.Matches(ev.Branch)
	case types.EventTypePullRequest:
		return t.PullRequest != nil && t.PullRequest.Matches(ev.Branch)
	case types.EventTypeSchedule:
		return len(t.Schedule) > 0
	}

	return false
}

func (s Schedule) expression() (*cronexpr.Expression, error) {
	expr, err := cronexpr.Parse(s.Cron)

	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", s.Cron, err)
	}

	return expr, nil
}

// Next returns the first firing time strictly after t.
func (s Schedule) Next(t time.Time) (time.Time, error) {
	expr, err := s.expression()

	if err != nil {
		return time.Time{}, err
	}

	return expr.Next(t), nil
}

// Due reports whether the schedule fires in the half-open interval (from, to].
func (s Schedule) Due(from, to time.Time) (bool, error) {
	next, err := s.Next(from)

	if err != nil {
		return false, err
	}

	return !next.IsZero() && !next.After(to), nil
}
