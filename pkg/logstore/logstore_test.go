package logstore

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type sliceWriter struct {
	lines []string
	err   error
}

func (s *sliceWriter) Write(timestamp *time.Time, log string) error {
	s.lines = append(s.lines, log)
	return s.err
}

func TestMultiWriter(t *testing.T) {
	a, b := &sliceWriter{}, &sliceWriter{}

	assert.NoError(t, MultiWriter(a, b).Write(nil, "line"))
	assert.Equal(t, []string{"line"}, a.lines)
	assert.Equal(t, []string{"line"}, b.lines)

	failing := &sliceWriter{err: errors.New("closed")}
	c := &sliceWriter{}

	assert.Error(t, MultiWriter(failing, c).Write(nil, "line"))
	assert.Empty(t, c.lines)
}

func TestLabelsMatch(t *testing.T) {
	labels := map[string]string{"run": "r1", "job": "j1", "store": "matrix"}

	assert.True(t, LabelsMatch(map[string]string{"run": "r1"}, labels))
	assert.True(t, LabelsMatch(nil, labels))
	assert.False(t, LabelsMatch(map[string]string{"run": "r2"}, labels))
	assert.False(t, LabelsMatch(map[string]string{"step": "0"}, labels))
}

func TestLabelsMapToString(t *testing.T) {
	assert.Equal(t, `{job="j1", run="r1"}`, LabelsMapToString(map[string]string{"run": "r1", "job": "j1"}, "="))
}
