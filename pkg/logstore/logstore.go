package logstore

import (
	"time"
	"unicode/utf8"
)

// MaxLineLength is the longest line, in bytes, that stores keep. Longer
// lines are cut.
const MaxLineLength = 64 * 1024

const truncatedSuffix = " [truncated]"

type Writer interface {
	Write(timestamp *time.Time, log string) error
}

type TailOptions struct {
	Labels map[string]string
	Start  time.Time
	Limit  uint32
}

type QueryOptions struct {
	Labels map[string]string
	Start  time.Time
	End    time.Time
	Limit  uint32
}

// LogStore keeps the output lines of jobs, labelled with the run and job
// they belong to.
type LogStore interface {
	Query(options QueryOptions, writer Writer, stopCh <-chan struct{}) error
	Tail(options TailOptions, writer Writer, stopCh <-chan struct{}) error
	Push(labels map[string]string, line string, t time.Time) error
}

// Entry is a single timestamped line.
type Entry struct {
	Timestamp time.Time
	Line      string
}

// BatchPusher is implemented by stores that can push many lines of one
// stream in a single call.
type BatchPusher interface {
	PushBatch(labels map[string]string, entries []Entry) error
}

// TruncateLine cuts line to MaxLineLength bytes without splitting a rune.
func TruncateLine(line string) string {
	if len(line) <= MaxLineLength {
		return line
	}

	cut := MaxLineLength - len(truncatedSuffix)

	for cut > 0 && !utf8.RuneStart(line[cut]) {
		cut--
	}

	return line[:cut] + truncatedSuffix
}

type multiWriter struct {
	writers []Writer
}

// MultiWriter duplicates every line to all writers, stopping at the first
// error.
func MultiWriter(writers ...Writer) Writer {
	return &multiWriter{writers: writers}
}

func (m *multiWriter) Write(timestamp *time.Time, log string) error {
	for _, w := range m.writers {
		if err := w.Write(timestamp, log); err != nil {
			return err
		}
	}

	return nil
}
