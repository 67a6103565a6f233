package workflow

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func parseMatrix(t *testing.T, data string) *Matrix {
	t.Helper()

	m := &Matrix{}
	require.NoError(t, yaml.Unmarshal([]byte(data), m))
	require.NoError(t, m.validate())

	return m
}

func TestExpandOrder(t *testing.T) {
	m := parseMatrix(t, `
os: [linux, macos]
rust: [1.28.0, nightly]
`)

	want := []Combination{
		{"os": "linux", "rust": "1.28.0"},
		{"os": "linux", "rust": "nightly"},
		{"os": "macos", "rust": "1.28.0"},
		{"os": "macos", "rust": "nightly"},
	}

	if diff := cmp.Diff(want, m.Expand()); diff != "" {
		t.Errorf("unexpected expansion (-want +got):\n%s", diff)
	}
}

func TestExpandIncludeExclude(t *testing.T) {
	m := parseMatrix(t, `
os: [linux, macos]
rust: [1.28.0, nightly]
exclude:
  - os: macos
    rust: 1.28.0
include:
  - os: linux
    rust: nightly
    miri: "true"
  - os: windows
    rust: stable
`)

	want := []Combination{
		{"os": "linux", "rust": "1.28.0"},
		{"os": "linux", "rust": "nightly", "miri": "true"},
		{"os": "macos", "rust": "nightly"},
		{"os": "windows", "rust": "stable"},
	}

	if diff := cmp.Diff(want, m.Expand()); diff != "" {
		t.Errorf("unexpected expansion (-want +got):\n%s", diff)
	}
}

func TestExpandIncludeExisting(t *testing.T) {
	m := parseMatrix(t, `
rust: [stable]
include:
  - rust: stable
`)

	assert.Len(t, m.Expand(), 1)
}

func TestExcludeUnknownAxis(t *testing.T) {
	m := &Matrix{}
	require.NoError(t, yaml.Unmarshal([]byte(`
rust: [stable]
exclude:
  - os: linux
`), m))

	assert.Error(t, m.validate())
}

func TestLabel(t *testing.T) {
	m := parseMatrix(t, `
crates: [crossbeam-deque]
rust: [nightly]
`)

	assert.Equal(t, "crossbeam-deque, nightly", m.Label(Combination{"rust": "nightly", "crates": "crossbeam-deque"}))
	assert.Equal(t, "nightly, a, b", m.Label(Combination{"rust": "nightly", "b": "b", "a": "a"}))
}
