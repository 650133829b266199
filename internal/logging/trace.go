package logging

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

type contextKey string

const traceIDKey contextKey = "trace_id"

// NewTraceID generates a ULID trace identifier. ULIDs are sortable by
// creation time, which keeps interleaved log files greppable in order.
func NewTraceID() string {
	return ulid.Make().String()
}

// ContextWithTraceID returns a child context carrying the trace ID.
func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceIDFromContext extracts the trace ID from ctx, reporting whether one
// was present.
func TraceIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(traceIDKey).(string)
	return id, ok && id != ""
}

// GetOrGenerateTraceID returns the trace ID carried by ctx, generating a
// fresh one when absent. It does not store the generated ID; callers pair it
// with ContextWithTraceID.
func GetOrGenerateTraceID(ctx context.Context) string {
	if id, ok := TraceIDFromContext(ctx); ok {
		return id
	}
	return NewTraceID()
}

// traceHook stamps events with the trace ID carried by the event context.
// Events logged without .Ctx(ctx) are left untouched.
type traceHook struct{}

func (traceHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	if id, ok := TraceIDFromContext(e.GetCtx()); ok {
		e.Str("trace_id", id)
	}
}
