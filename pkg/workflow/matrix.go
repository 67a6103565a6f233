package workflow

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

type Axis struct {
	Name   string
	Values []string
}

// Matrix is a job strategy matrix. Axes keep their declaration order, the
// first axis varies slowest when expanded.
type Matrix struct {
	Axes    []Axis
	Include []map[string]string
	Exclude []map[string]string
}

// Combination is a single assignment of values to matrix keys.
type Combination map[string]string

func (m *Matrix) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: matrix must be a mapping", value.Line)
	}

	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i].Value, value.Content[i+1]

		switch key {
		case "include":
			if err := val.Decode(&m.Include); err != nil {
				return err
			}
		case "exclude":
			if err := val.Decode(&m.Exclude); err != nil {
				return err
			}
		default:
			axis := Axis{Name: key}

			if err := val.Decode(&axis.Values); err != nil {
				return fmt.Errorf("line %d: matrix axis %s must be a list: %w", val.Line, key, err)
			}

			m.Axes = append(m.Axes, axis)
		}
	}

	return nil
}

func (m *Matrix) hasAxis(name string) bool {
	for _, a := range m.Axes {
		if a.Name == name {
			return true
		}
	}

	return false
}

func (m *Matrix) validate() error {
	if len(m.Axes) == 0 && len(m.Include) == 0 {
		return fmt.Errorf("matrix has no axes")
	}

	for _, a := range m.Axes {
		if len(a.Values) == 0 {
			return fmt.Errorf("matrix axis %s is empty", a.Name)
		}

		seen := make(map[string]bool)

		for _, v := range a.Values {
			if seen[v] {
				return fmt.Errorf("matrix axis %s lists %q twice", a.Name, v)
			}

			seen[v] = true
		}
	}

	for _, ex := range m.Exclude {
		for k := range ex {
			if !m.hasAxis(k) {
				return fmt.Errorf("matrix exclude refers to unknown axis %s", k)
			}
		}
	}

	return nil
}

// Expand returns the cartesian product of the axes, minus excluded
// combinations, plus included ones.
func (m *Matrix) Expand() []Combination {
	res := []Combination{{}}

	for _, axis := range m.Axes {
		next := make([]Combination, 0, len(res)*len(axis.Values))

		for _, c := range res {
			for _, v := range axis.Values {
				nc := c.clone()
				nc[axis.Name] = v
				next = append(next, nc)
			}
		}

		res = next
	}

	if len(m.Axes) == 0 {
		res = nil
	}

	filtered := res[:0]

	for _, c := range res {
		if !m.excluded(c) {
			filtered = append(filtered, c)
		}
	}

	res = filtered

	for _, inc := range m.Include {
		res = m.include(res, inc)
	}

	return res
}

func (m *Matrix) excluded(c Combination) bool {
	for _, ex := range m.Exclude {
		if c.matches(ex) {
			return true
		}
	}

	return false
}

// include merges extra keys into every combination the entry's axis keys
// match, or appends the entry as a new combination when nothing matches.
func (m *Matrix) include(combos []Combination, inc map[string]string) []Combination {
	axisKeys := make(map[string]string)

	for k, v := range inc {
		if m.hasAxis(k) {
			axisKeys[k] = v
		}
	}

	merged := false

	if len(axisKeys) > 0 && len(axisKeys) < len(inc) {
		for _, c := range combos {
			if c.matches(axisKeys) {
				for k, v := range inc {
					c[k] = v
				}

				merged = true
			}
		}
	}

	if merged {
		return combos
	}

	for _, c := range combos {
		if c.equal(inc) {
			return combos
		}
	}

	return append(combos, Combination(inc).clone())
}

func (c Combination) clone() Combination {
	res := make(Combination, len(c))

	for k, v := range c {
		res[k] = v
	}

	return res
}

func (c Combination) matches(sub map[string]string) bool {
	for k, v := range sub {
		if c[k] != v {
			return false
		}
	}

	return true
}

func (c Combination) equal(other map[string]string) bool {
	return len(c) == len(other) && c.matches(other)
}

// Label renders the values of c in axis order followed by the remaining keys
// sorted by name, e.g. "crossbeam-deque, nightly".
func (m *Matrix) Label(c Combination) string {
	values := make([]string, 0, len(c))
	used := make(map[string]bool)

	for _, a := range m.Axes {
		if v, ok := c[a.Name]; ok {
			values = append(values, v)
			used[a.Name] = true
		}
	}

	var rest []string

	for k := range c {
		if !used[k] {
			rest = append(rest, k)
		}
	}

	sort.Strings(rest)

	for _, k := range rest {
		values = append(values, c[k])
	}

	return strings.Join(values, ", ")
}
