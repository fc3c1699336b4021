package middleware

import (
	"net/http"
	"strings"
)

// SecurityHeadersMiddleware adds HTTP security headers to all responses.
type SecurityHeadersMiddleware struct {
	isSecure bool // Whether to enable HTTPS-specific headers (true in production)
	csp      string
}

// NewSecurityHeadersMiddleware creates a new security headers middleware.
// Set isSecure to true in production to enable HSTS.
func NewSecurityHeadersMiddleware(isSecure bool) *SecurityHeadersMiddleware {
	return &SecurityHeadersMiddleware{
		isSecure: isSecure,
		csp:      buildCSP(),
	}
}

// Handler returns middleware that sets security headers on all responses.
func (m *SecurityHeadersMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		h.Set("Content-Security-Policy", m.csp)

		// Auth pages carry CSRF tokens and form errors; never cache them.
		if strings.HasPrefix(r.URL.Path, "/auth/") {
			h.Set("Cache-Control", "no-store")
		}

		if m.isSecure {
			// max-age=31536000 = 1 year
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

// googleIdentity is the origin of the Google Identity Services client.
const googleIdentity = "https://accounts.google.com"

// buildCSP constructs the Content-Security-Policy header value.
func buildCSP() string {
	directives := []string{
		"default-src 'self'",
		// Google Identity Services script and its button iframe
		"script-src 'self' " + googleIdentity + "/gsi/client",
		"frame-src " + googleIdentity + "/gsi/",
		"connect-src 'self' " + googleIdentity + "/gsi/",
		"style-src 'self' 'unsafe-inline' " + googleIdentity + "/gsi/style",
		"img-src 'self' data:",
		"font-src 'self'",
		"frame-ancestors 'none'",
		"base-uri 'self'",
		// The Google callback posts back to us, so 'self' covers it.
		"form-action 'self'",
	}
	return strings.Join(directives, "; ")
}
