// Package auth provides request context helpers for the browser session.
//
// This package is designed to be imported by both middleware and handler
// packages without causing import cycles.
package auth

import (
	"context"
	"net/http"

	"github.com/DukeRupert/authflow/internal/domain"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	sessionContextKey  contextKey = "session"
	identityContextKey contextKey = "identity"
)

// SessionID returns the browser session id, or "" if the request did not
// pass through the session middleware.
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionContextKey).(string)
	return id
}

// SetSessionID stores the browser session id in the context.
func SetSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionContextKey, id)
}

// GetIdentity retrieves the signed-in identity from the context.
//
// Returns nil if nobody has signed in during this browser session.
func GetIdentity(ctx context.Context) *domain.Identity {
	identity, ok := ctx.Value(identityContextKey).(*domain.Identity)
	if !ok {
		return nil
	}
	return identity
}

// GetIdentityFromRequest is a convenience wrapper around GetIdentity.
func GetIdentityFromRequest(r *http.Request) *domain.Identity {
	return GetIdentity(r.Context())
}

// SetIdentity stores the current identity in the context.
func SetIdentity(ctx context.Context, identity *domain.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}
