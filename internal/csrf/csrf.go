// Package csrf provides CSRF protection using the double-submit cookie pattern.
//
// A random token is set in a cookie and repeated in every form as a hidden
// field. On POST the two values must match. A cross-site attacker can make
// the browser send the cookie but cannot read it, so cannot repeat it in the
// form body.
//
// Google Identity Services posts its sign-in callback with its own
// double-submit pair (g_csrf_token); ValidateGoogleRequest checks that pair.
package csrf

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
)

const (
	// CookieName is the name of the CSRF token cookie.
	CookieName = "authflow_csrf"

	// FormFieldName is the name of the CSRF token form field.
	FormFieldName = "csrf_token"

	// GoogleFieldName is the cookie and form field Google Identity Services
	// uses for its own double-submit token.
	GoogleFieldName = "g_csrf_token"

	// TokenLength is the number of random bytes for the token (32 bytes = 256 bits).
	TokenLength = 32

	// CookieMaxAge is the lifetime of the CSRF cookie (12 hours).
	CookieMaxAge = 12 * 60 * 60
)

// GenerateToken generates a cryptographically secure random token,
// base64 URL-encoded.
func GenerateToken() (string, error) {
	b := make([]byte, TokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// ValidateToken compares the cookie token with the form token in constant
// time. Empty tokens never match.
func ValidateToken(cookieToken, formToken string) bool {
	if cookieToken == "" || formToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookieToken), []byte(formToken)) == 1
}

// ValidateRequest checks the csrf_token form field against the cookie.
// The X-CSRF-Token header is accepted in place of the form field.
func ValidateRequest(r *http.Request) bool {
	formToken := r.Header.Get("X-CSRF-Token")
	if formToken == "" {
		formToken = r.PostFormValue(FormFieldName)
	}
	return ValidateToken(GetTokenFromRequest(r), formToken)
}

// ValidateGoogleRequest checks the g_csrf_token pair Google Identity Services
// sends with its sign-in callback.
func ValidateGoogleRequest(r *http.Request) bool {
	cookie, err := r.Cookie(GoogleFieldName)
	if err != nil {
		return false
	}
	return ValidateToken(cookie.Value, r.PostFormValue(GoogleFieldName))
}

// SetCookie sets the CSRF token cookie on the response.
func SetCookie(w http.ResponseWriter, token string, isSecure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   CookieMaxAge,
		HttpOnly: true, // forms read the token from the page, not the cookie
		Secure:   isSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

// GetTokenFromRequest retrieves the CSRF token from the request cookie.
// Returns empty string if cookie doesn't exist.
func GetTokenFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// EnsureToken returns the request's CSRF token, issuing a new cookie if the
// request has none.
func EnsureToken(w http.ResponseWriter, r *http.Request, isSecure bool) (string, error) {
	if token := GetTokenFromRequest(r); token != "" {
		return token, nil
	}

	token, err := GenerateToken()
	if err != nil {
		return "", err
	}
	SetCookie(w, token, isSecure)
	return token, nil
}

type contextKey struct{}

// NewContext stores the request's token for handlers rendering forms.
func NewContext(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, contextKey{}, token)
}

// Token returns the token stored by NewContext, or "".
func Token(ctx context.Context) string {
	token, _ := ctx.Value(contextKey{}).(string)
	return token
}
