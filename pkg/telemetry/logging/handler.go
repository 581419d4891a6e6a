package logging

import (
	"context"
	"log/slog"
)

// ContextHandler is a slog.Handler that adds the fields stored in the
// record's context and redacts PII from attribute values.
type ContextHandler struct {
	next     slog.Handler
	redactor *Redactor
}

// NewContextHandler wraps next. A nil redactor disables redaction.
func NewContextHandler(next slog.Handler, redactor *Redactor) *ContextHandler {
	return &ContextHandler{next: next, redactor: redactor}
}

// Enabled implements slog.Handler.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)

	fields := extractContextFields(ctx)
	for i := 0; i+1 < len(fields); i += 2 {
		out.AddAttrs(slog.Any(fields[i].(string), fields[i+1]))
	}

	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.redact(a))
		return true
	})

	return h.next.Handle(ctx, out)
}

// WithAttrs implements slog.Handler.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.redact(a)
	}
	return &ContextHandler{next: h.next.WithAttrs(redacted), redactor: h.redactor}
}

// WithGroup implements slog.Handler.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{next: h.next.WithGroup(name), redactor: h.redactor}
}

func (h *ContextHandler) redact(a slog.Attr) slog.Attr {
	if h.redactor == nil {
		return a
	}

	value := a.Value.Resolve()
	switch value.Kind() {
	case slog.KindString:
		redacted := h.redactor.RedactArgs(a.Key, value.String())
		return slog.Any(a.Key, redacted[1])
	case slog.KindGroup:
		group := value.Group()
		attrs := make([]any, len(group))
		for i, ga := range group {
			attrs[i] = h.redact(ga)
		}
		return slog.Group(a.Key, attrs...)
	case slog.KindAny:
		if err, ok := value.Any().(error); ok {
			return slog.String(a.Key, h.redactor.RedactString(err.Error()))
		}
		return a
	default:
		return a
	}
}
