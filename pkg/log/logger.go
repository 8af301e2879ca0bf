package log

import (
	"context"
	"io"
	"log/slog"
)

// SetupLogger installs a JSON slog handler in Cloud Logging format writing
// to w as the process default and returns it wrapped as a Logger.
func SetupLogger(w io.Writer, loglevel string) (Logger, error) {
	level, err := ParseLevel(loglevel)
	if err != nil {
		return nil, err
	}
	logger := NewSlogLogger(w, level)
	slog.SetDefault(logger.sl)
	return logger, nil
}

// SlogLogger implements Logger on top of log/slog.
type SlogLogger struct {
	sl *slog.Logger
}

// NewSlogLogger creates a JSON slog Logger writing to w whose error
// records carry a cockroachdb/errors stack trace.
func NewSlogLogger(w io.Writer, level Level) *SlogLogger {
	ops := slog.HandlerOptions{
		AddSource: true,
		Level:     slog.Level(level),
		// Replace attributes to convert to CloudLogging format.
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.LevelKey:
				attr = slog.Attr{Key: "severity", Value: attr.Value}
			case slog.MessageKey:
				attr = slog.Attr{Key: "message", Value: attr.Value}
			case slog.SourceKey:
				attr = slog.Attr{Key: "logging.googleapis.com/sourceLocation", Value: attr.Value}
			}
			return attr
		},
	}
	handler := slog.NewJSONHandler(w, &ops)
	return &SlogLogger{sl: slog.New(WrapByErrFmtHandler(handler))}
}

// Debug implements Logger.Debug.
func (l *SlogLogger) Debug(msg string, fields ...any) { l.sl.Debug(msg, slogArgs(fields)...) }

// Info implements Logger.Info.
func (l *SlogLogger) Info(msg string, fields ...any) { l.sl.Info(msg, slogArgs(fields)...) }

// Warn implements Logger.Warn.
func (l *SlogLogger) Warn(msg string, fields ...any) { l.sl.Warn(msg, slogArgs(fields)...) }

// Error implements Logger.Error.
func (l *SlogLogger) Error(msg string, fields ...any) { l.sl.Error(msg, slogArgs(fields)...) }

// With implements Logger.With.
func (l *SlogLogger) With(fields ...any) Logger {
	return &SlogLogger{sl: l.sl.With(slogArgs(fields)...)}
}

// Enabled implements Logger.Enabled.
func (l *SlogLogger) Enabled(ctx context.Context, level Level) bool {
	return l.sl.Enabled(ctx, slog.Level(level))
}

func slogArgs(fields []any) []any {
	err, rest := splitError(fields)
	if err == nil {
		return rest
	}
	return append([]any{ErrAttr(err)}, rest...)
}

const (
	ErrAttrKey        = "error"
	StacktraceAttrKey = "stacktrace"
)

// ErrAttr is a wrapper to pass err to slog.
func ErrAttr(err error) slog.Attr {
	return slog.Any(ErrAttrKey, err)
}
