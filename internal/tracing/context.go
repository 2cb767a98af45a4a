package tracing

import (
	"context"

	"github.com/google/uuid"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// TraceIDKey is the context key for trace ID
	TraceIDKey ContextKey = "trace_id"
	// SessionNameKey is the context key for the session an operation targets
	SessionNameKey ContextKey = "session_name"
	// OperationKey is the context key for the session operation name
	OperationKey ContextKey = "operation"
)

// TraceContext holds tracing information
type TraceContext struct {
	TraceID     string
	SessionName string
	Operation   string
}

// NewTraceID generates a new trace ID
func NewTraceID() string {
	return uuid.New().String()
}

// WithTraceID adds a trace ID to the context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// WithSessionName adds a session name to the context
func WithSessionName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, SessionNameKey, name)
}

// WithOperation adds an operation name to the context
func WithOperation(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, OperationKey, op)
}

// GetTraceID retrieves the trace ID from the context
func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// GetSessionName retrieves the session name from the context
func GetSessionName(ctx context.Context) string {
	if name, ok := ctx.Value(SessionNameKey).(string); ok {
		return name
	}
	return ""
}

// GetOperation retrieves the operation name from the context
func GetOperation(ctx context.Context) string {
	if op, ok := ctx.Value(OperationKey).(string); ok {
		return op
	}
	return ""
}

// FromContext extracts all tracing information from the context
func FromContext(ctx context.Context) *TraceContext {
	return &TraceContext{
		TraceID:     GetTraceID(ctx),
		SessionName: GetSessionName(ctx),
		Operation:   GetOperation(ctx),
	}
}

// NewContext creates a new context with tracing information
func NewContext(ctx context.Context, tc *TraceContext) context.Context {
	if tc.TraceID != "" {
		ctx = WithTraceID(ctx, tc.TraceID)
	}
	if tc.SessionName != "" {
		ctx = WithSessionName(ctx, tc.SessionName)
	}
	if tc.Operation != "" {
		ctx = WithOperation(ctx, tc.Operation)
	}
	return ctx
}

// NewCommandContext creates a context for one CLI invocation with a fresh trace ID
func NewCommandContext(ctx context.Context) context.Context {
	return WithTraceID(ctx, NewTraceID())
}
