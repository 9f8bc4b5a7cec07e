// ABOUTME: Session context plumbing for tracking identity through request handlers
// ABOUTME: Provides WithSession/FromContext for propagating the roster session

package auth

import (
	"context"

	"github.com/helmgate/helmgate/internal/roster"
)

// sessionContextKey is the key type for storing the session in context.Context.
type sessionContextKey struct{}

// WithSession returns a new context with the roster session attached.
func WithSession(ctx context.Context, sess *roster.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// FromContext retrieves the session from the context, returning nil if not present.
func FromContext(ctx context.Context) *roster.Session {
	sess, ok := ctx.Value(sessionContextKey{}).(*roster.Session)
	if !ok {
		return nil
	}
	return sess
}

// MustFromContext retrieves the session from the context, panicking if not present.
func MustFromContext(ctx context.Context) *roster.Session {
	sess := FromContext(ctx)
	if sess == nil {
		panic("auth: session not found in context")
	}
	return sess
}
