package types

import "time"

type GetLogRequest struct {
	Limit      uint       `schema:"limit"`
	StartRange *time.Time `schema:"start_range"`
	EndRange   *time.Time `schema:"end_range"`
	RunID      string     `schema:"run_id" form:"required"`
	JobID      string     `schema:"job_id"`

	// Follow streams lines as newline-delimited LogLine objects until the
	// client disconnects. EndRange and Limit are ignored.
	Follow bool `schema:"follow"`
}

type LogLine struct {
	Timestamp *time.Time `json:"timestamp"`
	Line      string     `json:"line"`
}

type GetLogResponse struct {
	ContinueTime *time.Time `json:"continue_time"`
	Logs         []LogLine  `json:"logs"`
}
