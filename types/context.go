package types

import "context"

// contextKey is used for storing values in context.Context.
type contextKey string

const (
	keyTraceID contextKey = "trace_id"
	keyRunID   contextKey = "run_id"
	keyProject contextKey = "project"
)

// WithTraceID adds trace ID to context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, keyTraceID, traceID)
}

// TraceID extracts trace ID from context.
func TraceID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyTraceID).(string)
	return v, ok && v != ""
}

// WithRunID adds run ID to context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, keyRunID, runID)
}

// RunID extracts run ID from context.
func RunID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyRunID).(string)
	return v, ok && v != ""
}

// WithProject adds the tracking project name to context.
func WithProject(ctx context.Context, project string) context.Context {
	return context.WithValue(ctx, keyProject, project)
}

// Project extracts the tracking project name from context.
func Project(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyProject).(string)
	return v, ok && v != ""
}
