package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

type Logger struct {
	logger *zerolog.Logger
}

func New(isDebug bool, output io.Writer) *Logger {
	logLevel := zerolog.InfoLevel

	if isDebug {
		logLevel = zerolog.DebugLevel
	}

	l := zerolog.New(output).Level(logLevel).With().Timestamp().Logger()

	return &Logger{logger: &l}
}

// NewConsole writes human-readable lines to stdout
func NewConsole(isDebug bool) *Logger {
	return New(isDebug, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
}

// NewErrorConsole is used before the env configuration has been decoded
func NewErrorConsole(isDebug bool) *Logger {
	return New(isDebug, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

// With returns a child logger carrying the given string fields.
func (l *Logger) With(fields map[string]string) *Logger {
	ctx := l.logger.With()

	for k, v := range fields {
		ctx = ctx.Str(k, v)
	}

	child := ctx.Logger()

	return &Logger{logger: &child}
}

func (l *Logger) Zerolog() *zerolog.Logger {
	return l.logger
}

func (l *Logger) Debug() *zerolog.Event {
	return l.logger.Debug()
}

func (l *Logger) Info() *zerolog.Event {
	return l.logger.Info()
}

func (l *Logger) Warn() *zerolog.Event {
	return l.logger.Warn()
}

func (l *Logger) Error() *zerolog.Event {
	return l.logger.Error()
}

func (l *Logger) Fatal() *zerolog.Event {
	return l.logger.Fatal()
}
