package ktx

import (
	"context"
)

// ContextKey is a custom type for context keys to avoid key collisions.
type ContextKey string

const (
	// KeyCorrelationID carries the id of the request or message that started a job.
	KeyCorrelationID ContextKey = "correlationID"
	// KeySource names the entry point that started a job (http, queue, cli).
	KeySource ContextKey = "source"
)

// WithCorrelationID returns a context carrying id. An empty id leaves ctx unchanged.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, KeyCorrelationID, id)
}

// CorrelationID reads the id set by WithCorrelationID.
func CorrelationID(ctx context.Context) (string, bool) {
	return readString(ctx, KeyCorrelationID)
}

// WithSource records the entry point in ctx.
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, KeySource, source)
}

// Source reads the entry point set by WithSource.
func Source(ctx context.Context) (string, bool) {
	return readString(ctx, KeySource)
}

// LogFields returns the context values as logger key/value pairs.
func LogFields(ctx context.Context) []interface{} {
	var kv []interface{}
	if id, ok := CorrelationID(ctx); ok {
		kv = append(kv, string(KeyCorrelationID), id)
	}
	if src, ok := Source(ctx); ok {
		kv = append(kv, string(KeySource), src)
	}
	return kv
}

func readString(ctx context.Context, key ContextKey) (string, bool) {
	v, ok := ctx.Value(key).(string)
	return v, ok && v != ""
}
