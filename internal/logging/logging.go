// Package logging builds the process logger. Production environments emit
// JSON for log shipping; everything else is human-readable text at debug
// level.
package logging

import (
	"log/slog"
	"os"
)

// Logger wraps slog with a Fatal helper for bootstrap failures.
type Logger struct {
	*slog.Logger
}

// New creates the logger for the given environment name.
func New(env string) *Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return &Logger{Logger: slog.New(handler)}
}

// Fatal logs at error level and exits the process.
func (l *Logger) Fatal(msg string, args ...any) {
	l.Logger.Error(msg, args...)
	os.Exit(1)
}
