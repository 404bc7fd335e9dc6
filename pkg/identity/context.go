package identity

import (
	"context"
	"log/slog"
)

// contextKey is a private type to prevent collisions with other context keys.
type contextKey struct{}

// WithIdentity adds an identity to the context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext retrieves the identity from the context.
// Returns a zero identity and false if none is present.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

// MustFromContext retrieves the identity from the context.
// Panics if no identity is found. Use this only in handlers mounted
// behind an authentication middleware.
func MustFromContext(ctx context.Context) Identity {
	id, ok := FromContext(ctx)
	if !ok {
		panic("identity: no identity in context")
	}
	return id
}

// LoggerExtractor returns a ContextExtractor for the logger that extracts
// the caller's username and role from the context.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		id, ok := FromContext(ctx)
		if !ok {
			return slog.Attr{}, false
		}
		return slog.Group("caller",
			slog.String("username", id.Username),
			slog.String("role", string(id.Role)),
		), true
	}
}
