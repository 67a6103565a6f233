package workflow

import (
	"testing"
	"time"

	"github.com/porter-dev/matrix-agent/api/server/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultTriggers(t *testing.T) {
	on := Default().On

	for _, branch := range []string{"master", "staging", "trying"} {
		assert.True(t, on.Matches(Event{Type: types.EventTypePush, Branch: branch}), branch)
	}

	for _, branch := range []string{"feature/foo", "main", "master2", ""} {
		assert.False(t, on.Matches(Event{Type: types.EventTypePush, Branch: branch}), branch)
	}

	for _, branch := range []string{"master", "feature/foo", ""} {
		assert.True(t, on.Matches(Event{Type: types.EventTypePullRequest, Branch: branch}), branch)
	}

	assert.False(t, on.Matches(Event{Type: types.EventTypeSchedule, Branch: "master"}))
}

func TestTriggerForms(t *testing.T) {
	tests := map[string]struct {
		data        string
		push, pr    bool
		schedules   int
		pushMatches string
	}{
		"scalar": {data: `push`, push: true},
		"list":   {data: `[push, pull_request]`, push: true, pr: true},
		"mapping": {
			data: `
push:
  branches: ["release/**"]
  branches-ignore: ["release/old/**"]
schedule:
  - cron: "0 3 * * *"
`,
			push:        true,
			schedules:   1,
			pushMatches: "release/1.0",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			on := Triggers{}
			require.NoError(t, yaml.Unmarshal([]byte(tt.data), &on))

			assert.Equal(t, tt.push, on.Push != nil)
			assert.Equal(t, tt.pr, on.PullRequest != nil)
			assert.Len(t, on.Schedule, tt.schedules)

			if tt.pushMatches != "" {
				assert.True(t, on.Matches(Event{Type: types.EventTypePush, Branch: tt.pushMatches}))
			}
		})
	}
}

func TestBranchFilter(t *testing.T) {
	f := &BranchFilter{
		Branches:       []string{"release/**", "master"},
		BranchesIgnore: []string{"release/old/**"},
	}

	assert.True(t, f.Matches("master"))
	assert.True(t, f.Matches("release/1.x/rc"))
	assert.False(t, f.Matches("release/old/1.0"))
	assert.False(t, f.Matches("feature"))

	assert.True(t, (&BranchFilter{}).Matches("anything"))
}

func TestScheduleDue(t *testing.T) {
	s := Schedule{Cron: "0 3 * * *"}

	at := func(h, m int) time.Time {
		return time.Date(2021, 3, 1, h, m, 0, 0, time.UTC)
	}

	next, err := s.Next(at(2, 0))
	require.NoError(t, err)
	assert.Equal(t, at(3, 0), next)

	due, err := s.Due(at(2, 59), at(3, 0))
	require.NoError(t, err)
	assert.True(t, due)

	due, err = s.Due(at(3, 0), at(3, 1))
	require.NoError(t, err)
	assert.False(t, due)

	_, err = Schedule{Cron: "nope"}.Due(at(0, 0), at(1, 0))
	assert.Error(t, err)
}
