package log

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
)

// ErrFmtHandler is a slog handler that adds the cockroachdb/errors stack
// trace of an "error" attribute as a separate "stacktrace" attribute.
type ErrFmtHandler struct {
	handler slog.Handler
}

// WrapByErrFmtHandler wraps handler with stack trace extraction.
func WrapByErrFmtHandler(handler slog.Handler) slog.Handler {
	return &ErrFmtHandler{handler: handler}
}

func (eh *ErrFmtHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return eh.handler.Enabled(ctx, l)
}

func (eh *ErrFmtHandler) Handle(ctx context.Context, r slog.Record) error {
	var stacktrace string
	r.Attrs(func(attr slog.Attr) bool {
		if attr.Key != ErrAttrKey {
			return true
		}
		if err, ok := attr.Value.Any().(error); ok {
			stacktrace = extractStacktrace(err)
		}
		return false
	})
	if stacktrace != "" {
		r.AddAttrs(slog.String(StacktraceAttrKey, stacktrace))
	}
	return eh.handler.Handle(ctx, r)
}

func (eh *ErrFmtHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ErrFmtHandler{handler: eh.handler.WithAttrs(attrs)}
}

func (eh *ErrFmtHandler) WithGroup(g string) slog.Handler {
	return &ErrFmtHandler{handler: eh.handler.WithGroup(g)}
}

// extractStacktrace returns the outermost safe detail carrying a stack.
func extractStacktrace(err error) string {
	for _, payload := range errors.GetAllSafeDetails(err) {
		if len(payload.SafeDetails) > 0 && payload.SafeDetails[0] != "" {
			return payload.SafeDetails[0]
		}
	}
	return ""
}
