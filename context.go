package goSession

import (
	"context"

	"github.com/google/uuid"
)

type requestIDContextKey struct{}

// WithRequestID attaches a correlation ID to ctx. Operations carry it into
// their log records and auth events, so one user action can be followed
// across sign-in, the follow-up status check and the audit trail.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, id)
}

// NewRequestID returns a short random correlation ID.
func NewRequestID() string {
	return uuid.NewString()[:8]
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id
}

// opContext folds the request ID from ctx into a log field map, allocating
// one only when needed.
func opContext(ctx context.Context, fields map[string]any) map[string]any {
	rid := requestIDFromContext(ctx)
	if rid == "" {
		return fields
	}
	if fields == nil {
		fields = make(map[string]any, 1)
	}
	fields["request_id"] = rid
	return fields
}
