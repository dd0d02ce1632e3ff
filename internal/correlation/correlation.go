// Package correlation threads the per-request correlation id through
// context.Context so it reaches every outbound client call, every log
// line, and every emitted OutboxEvent without relying on global state.
package correlation

import (
	"context"

	"github.com/google/uuid"
)

// HeaderName is the HTTP header the facade reads the id from, and echoes
// it back under.
const HeaderName = "X-Correlation-ID"

type contextKey struct{}

// WithID attaches id to ctx, replacing any id already carried.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the correlation id carried by ctx, generating and
// attaching a fresh one on first access if none is present. The returned
// context must be used downstream so later readers observe the same id.
func FromContext(ctx context.Context) (string, context.Context) {
	if id, ok := ctx.Value(contextKey{}).(string); ok && id != "" {
		return id, ctx
	}
	id := uuid.NewString()
	return id, WithID(ctx, id)
}

// IDOrEmpty returns the correlation id carried by ctx without generating
// one, for call sites (like outbound request headers and HTTP error
// bodies) that must not mutate context.
func IDOrEmpty(ctx context.Context) string {
	if id, ok := ctx.Value(contextKey{}).(string); ok {
		return id
	}
	return ""
}
