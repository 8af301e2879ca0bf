// Package log provides a structured logging interface for tracegen.
//
// The Logger interface is slog-compatible so that either the zerolog backend
// (NewZerologLogger) or the standard library JSON handler (NewSlogLogger) can
// sit behind it.
//
// Example usage:
//
//	logger := log.NewZerologLogger(os.Stderr, log.LevelInfo, true).With(
//	    log.StageKey, "simulate",
//	)
//	logger.Info("Group synthesized",
//	    log.GroupIDKey, id,
//	    log.RowsKey, 1000,
//	)
package log

import (
	"context"
	"strings"

	"github.com/YuminosukeSato/tracegen/pkg/errors"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
type Logger interface {
	// Debug logs a debug-level message with optional key-value fields.
	Debug(msg string, fields ...any)

	// Info logs an info-level message with optional key-value fields.
	Info(msg string, fields ...any)

	// Warn logs a warning-level message with optional key-value fields.
	Warn(msg string, fields ...any)

	// Error logs an error-level message. If the first field is an error it
	// is attached as the record's error, with its stack trace when the
	// backend supports it.
	//
	//   logger.Error("Synthesis failed", err, log.GroupIDKey, id)
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits records at the given level.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts "debug", "info", "warn" or "error" into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, errors.NewValidationError("log.level", "unknown log level", s)
	}
}

// splitError peels a leading error off a field list.
func splitError(fields []any) (error, []any) {
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			return err, fields[1:]
		}
	}
	return nil, fields
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any)                {}
func (nopLogger) Info(string, ...any)                 {}
func (nopLogger) Warn(string, ...any)                 {}
func (nopLogger) Error(string, ...any)                {}
func (n nopLogger) With(...any) Logger                { return n }
func (nopLogger) Enabled(context.Context, Level) bool { return false }
