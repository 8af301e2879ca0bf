package log

import (
	"context"
	"io"
	"time"

	"github.com/YuminosukeSato/tracegen/pkg/errors"
	"github.com/rs/zerolog"
)

// ZerologLogger implements Logger on top of zerolog.
type ZerologLogger struct {
	zl    zerolog.Logger
	level Level
}

// NewZerologLogger creates a zerolog-backed Logger writing to w. With
// console set, records are rendered by zerolog.ConsoleWriter; otherwise one
// JSON object per line is written.
func NewZerologLogger(w io.Writer, level Level, console bool) *ZerologLogger {
	if console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	zl := zerolog.New(w).Level(toZerologLevel(level)).With().Timestamp().Logger()
	return &ZerologLogger{zl: zl, level: level}
}

// InstallWarningSink routes errors.Warn through this logger.
func (l *ZerologLogger) InstallWarningSink() {
	errors.SetZerologWarnFunc(func(w error) {
		e := l.zl.Warn()
		if m, ok := w.(zerolog.LogObjectMarshaler); ok {
			e = e.Object("warning", m)
		}
		e.Msg(w.Error())
	})
}

// Debug implements Logger.Debug.
func (l *ZerologLogger) Debug(msg string, fields ...any) {
	l.emit(l.zl.Debug(), msg, fields)
}

// Info implements Logger.Info.
func (l *ZerologLogger) Info(msg string, fields ...any) {
	l.emit(l.zl.Info(), msg, fields)
}

// Warn implements Logger.Warn.
func (l *ZerologLogger) Warn(msg string, fields ...any) {
	l.emit(l.zl.Warn(), msg, fields)
}

// Error implements Logger.Error.
func (l *ZerologLogger) Error(msg string, fields ...any) {
	l.emit(l.zl.Error(), msg, fields)
}

// With implements Logger.With.
func (l *ZerologLogger) With(fields ...any) Logger {
	return &ZerologLogger{
		zl:    l.zl.With().Fields(normalizeFields(fields)).Logger(),
		level: l.level,
	}
}

// Enabled implements Logger.Enabled.
func (l *ZerologLogger) Enabled(_ context.Context, level Level) bool {
	return level >= l.level
}

func (l *ZerologLogger) emit(e *zerolog.Event, msg string, fields []any) {
	if e == nil {
		return
	}
	err, rest := splitError(fields)
	if err != nil {
		e = e.Err(err)
		var m zerolog.LogObjectMarshaler
		if errors.As(err, &m) {
			e = e.Object("error_detail", m)
		}
		if st := extractStacktrace(err); st != "" {
			e = e.Str(StacktraceAttrKey, st)
		}
	}
	e.Fields(normalizeFields(rest)).Msg(msg)
}

// normalizeFields turns errors into strings so they render in key-value
// position and drops a dangling key without value.
func normalizeFields(fields []any) []any {
	out := make([]any, 0, len(fields))
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		value := fields[i+1]
		if err, ok := value.(error); ok {
			value = err.Error()
		}
		out = append(out, key, value)
	}
	return out
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}
