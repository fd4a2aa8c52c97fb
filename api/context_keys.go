package api

import "context"

// contextKey is a private type to prevent context key collisions across packages.
type contextKey string

const (
	// ContextKeyRequestID stores the unique request identifier (string)
	ContextKeyRequestID contextKey = "request_id"
)

// GetRequestID extracts the request ID from the context.
func GetRequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ContextKeyRequestID).(string)
	return id, ok
}

// GetRequestIDOrDefault returns the request ID, or "unknown" if none is set.
func GetRequestIDOrDefault(ctx context.Context) string {
	if id, ok := GetRequestID(ctx); ok && id != "" {
		return id
	}
	return "unknown"
}

// WithRequestID stores the request ID in the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}
