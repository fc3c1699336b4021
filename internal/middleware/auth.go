// Package middleware contains HTTP middleware for the authflow server.
//
// Middleware functions follow the standard Go pattern of wrapping http.Handler.
// They are designed to be composed using a middleware stack approach.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/DukeRupert/authflow/internal/auth"
	"github.com/DukeRupert/authflow/internal/domain"
	"github.com/DukeRupert/authflow/internal/session"
)

// IdentityLoader returns the current identity of a browser session.
// service.AuthService implements it.
type IdentityLoader interface {
	CurrentIdentity(ctx context.Context, sessionID string) (*domain.Identity, error)
}

// =============================================================================
// Session Middleware Configuration
// =============================================================================

// SessionMiddleware ties requests to a browser session and the identities
// signed in during it.
//
// Create one instance and use its methods as middleware.
type SessionMiddleware struct {
	identities IdentityLoader
	logger     *slog.Logger
	isSecure   bool // Whether to set Secure flag on cookies (true in production)
}

// NewSessionMiddleware creates a new SessionMiddleware instance.
func NewSessionMiddleware(identities IdentityLoader, logger *slog.Logger, isSecure bool) *SessionMiddleware {
	return &SessionMiddleware{
		identities: identities,
		logger:     logger,
		isSecure:   isSecure,
	}
}

// =============================================================================
// WithSession Middleware
// =============================================================================

// WithSession makes sure every request carries a browser session id.
//
// The id is read from the session cookie. A missing or malformed cookie is
// replaced by a fresh random UUID. The id is stored in the request context:
//
//	sid := auth.SessionID(r.Context())
func (m *SessionMiddleware) WithSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sid string
		if cookie, err := r.Cookie(session.CookieName); err == nil {
			if id, err := uuid.Parse(cookie.Value); err == nil {
				sid = id.String()
			}
		}

		if sid == "" {
			sid = uuid.NewString()
			SetSessionCookie(w, sid, m.isSecure)
		}

		next.ServeHTTP(w, r.WithContext(auth.SetSessionID(r.Context(), sid)))
	})
}

// =============================================================================
// WithIdentity Middleware
// =============================================================================

// WithIdentity loads the most recent identity of the session into the
// context. Requests continue whether or not anybody has signed in.
//
// IMPORTANT: This middleware must be used AFTER WithSession.
func (m *SessionMiddleware) WithIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := auth.SessionID(r.Context())
		if sid == "" {
			next.ServeHTTP(w, r)
			return
		}

		identity, err := m.identities.CurrentIdentity(r.Context(), sid)
		if err != nil {
			// Render signed out rather than fail the page.
			m.logger.Error("failed to load identity", "error", err)
			next.ServeHTTP(w, r)
			return
		}
		if identity != nil {
			r = r.WithContext(auth.SetIdentity(r.Context(), identity))
		}

		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// Cookie Helpers
// =============================================================================

// SetSessionCookie sets the browser session cookie.
func SetSessionCookie(w http.ResponseWriter, sid string, isSecure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    sid,
		Path:     session.CookiePath,
		MaxAge:   session.CookieMaxAge,
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// =============================================================================
// Request Helpers
// =============================================================================

// isAPIRequest determines if the request expects a JSON response.
func isAPIRequest(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	return strings.Contains(r.Header.Get("Content-Type"), "application/json")
}

// =============================================================================
// Middleware Stack Helpers
// =============================================================================

// Stack composes multiple middleware functions into a single middleware.
//
// Middleware is applied in the order provided, meaning the first middleware
// in the slice is the outermost (runs first on request, last on response).
//
// Example:
//
//	stack := Stack(logging.Handler, sessions.WithSession, sessions.WithIdentity)
//	mux.Handle("GET /", stack(homeHandler))
func Stack(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// Ensure middleware functions have correct signature
var (
	_ func(http.Handler) http.Handler = (&SessionMiddleware{}).WithSession
	_ func(http.Handler) http.Handler = (&SessionMiddleware{}).WithIdentity
)
