package logstore

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

func LabelsMapToString(labels map[string]string, matcher string) string {
	lstrs := make([]string, 0, len(labels))

	for l, v := range labels {
		lstrs = append(lstrs, fmt.Sprintf("%s%s%q", l, matcher, v))
	}

	sort.Strings(lstrs)
	return fmt.Sprintf("{%s}", strings.Join(lstrs, ", "))
}

// LabelsMatch reports whether every label in selector is present in labels
// with the same value.
func LabelsMatch(selector, labels map[string]string) bool {
	for k, v := range selector {
		if labels[k] != v {
			return false
		}
	}

	return true
}

// InRange reports whether t is within [start, end], treating zero bounds as
// open.
func InRange(t, start, end time.Time) bool {
	if !start.IsZero() && t.Before(start) {
		return false
	}

	if !end.IsZero() && t.After(end) {
		return false
	}

	return true
}
