package middleware

import (
	"log/slog"
	"net/http"

	"github.com/DukeRupert/authflow/internal/csrf"
	"github.com/DukeRupert/authflow/internal/domain"
	"github.com/DukeRupert/authflow/internal/handler"
)

// CSRFMiddleware issues the double-submit token on every request and checks
// it on state-changing methods.
type CSRFMiddleware struct {
	logger   *slog.Logger
	isSecure bool

	// exempt paths verify their own token (the Google sign-in callback).
	exempt map[string]bool
}

// NewCSRFMiddleware creates a new CSRF middleware. Requests to exemptPaths
// skip the csrf_token check.
func NewCSRFMiddleware(logger *slog.Logger, isSecure bool, exemptPaths ...string) *CSRFMiddleware {
	exempt := make(map[string]bool, len(exemptPaths))
	for _, p := range exemptPaths {
		exempt[p] = true
	}
	return &CSRFMiddleware{
		logger:   logger,
		isSecure: isSecure,
		exempt:   exempt,
	}
}

// Handler returns middleware that protects unsafe methods. The token is
// available to handlers via csrf.Token(r.Context()).
func (m *CSRFMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isUnsafeMethod(r.Method) && !m.exempt[r.URL.Path] && !csrf.ValidateRequest(r) {
			m.logger.Warn("csrf token mismatch",
				"path", r.URL.Path,
				"method", r.Method,
				"ip", getClientIP(r),
			)
			err := domain.Forbidden("", "Your form expired. Please reload the page and try again.")
			handler.ErrorResponse(w, r, m.logger, err)
			return
		}

		token, err := csrf.EnsureToken(w, r, m.isSecure)
		if err != nil {
			handler.InternalErrorResponse(w, r, m.logger, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(csrf.NewContext(r.Context(), token)))
	})
}

func isUnsafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return false
	default:
		return true
	}
}
