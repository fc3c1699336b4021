// Package handler contains HTTP handlers for the authflow application.
//
// This file implements sign-in, registration and sign-out. Credentials are
// checked by the identity provider behind service.AuthService; the handlers
// validate forms, call the service and redirect.
package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/DukeRupert/authflow/internal/auth"
	"github.com/DukeRupert/authflow/internal/csrf"
	"github.com/DukeRupert/authflow/internal/domain"
	"github.com/DukeRupert/authflow/internal/schema"
	"github.com/DukeRupert/authflow/internal/service"
	"github.com/DukeRupert/authflow/internal/session"
	authpages "github.com/DukeRupert/authflow/internal/templ/pages/auth"
	"github.com/DukeRupert/authflow/internal/templ/shared"
)

// =============================================================================
// Handler Configuration
// =============================================================================

// TemplateRenderer is the interface for rendering HTML pages.
// This interface allows for mocking in tests.
type TemplateRenderer interface {
	RenderHTTP(w http.ResponseWriter, r *http.Request, name string, data any)
	RenderHTTPStatus(w http.ResponseWriter, r *http.Request, status int, name string, data any)
}

// AuthHandler handles authentication-related HTTP requests.
//
// Dependencies:
//   - authService: sign-in, registration and sign-out
//   - forms: one outstanding login or registration submit per browser session
//   - renderer: Template rendering for HTML responses
//   - logger: Structured logging for request handling
//   - isSecure: Whether to set Secure flag on cookies (true in production)
//   - googleClientID: Google Identity Services client id; empty hides the
//     Google buttons
//
// Routes handled:
//   - GET  /auth/login           -> ShowLogin
//   - POST /auth/login           -> Login
//   - POST /auth/login/google    -> LoginGoogle
//   - GET  /auth/register        -> ShowRegister
//   - POST /auth/register        -> Register
//   - POST /auth/register/google -> RegisterGoogle
//   - POST /auth/logout          -> Logout
type AuthHandler struct {
	authService    service.AuthService
	forms          service.FormGuard
	renderer       TemplateRenderer
	logger         *slog.Logger
	isSecure       bool
	googleClientID string
}

// NewAuthHandler creates a new AuthHandler with the required dependencies.
//
// Example usage in main.go:
//
//	authHandler := handler.NewAuthHandler(authService, formGuard, renderer, logger, cfg.IsSecure(), cfg.GoogleClientID)
func NewAuthHandler(
	authService service.AuthService,
	forms service.FormGuard,
	renderer TemplateRenderer,
	logger *slog.Logger,
	isSecure bool,
	googleClientID string,
) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		forms:          forms,
		renderer:       renderer,
		logger:         logger,
		isSecure:       isSecure,
		googleClientID: googleClientID,
	}
}

// =============================================================================
// GET /auth/login - Show Login Form
// =============================================================================

// ShowLogin renders the login form.
//
// Query Parameters:
// - return_to (optional): URL to redirect to after successful login
// - registered, reset, logout (optional): "1" shows the matching success banner
func (h *AuthHandler) ShowLogin(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var flash *shared.Flash
	switch {
	case query.Get("registered") == "1":
		flash = shared.SuccessFlash("Account created successfully! Please sign in.")
	case query.Get("reset") == "1":
		flash = shared.SuccessFlash("Password reset successfully! Please sign in with your new password.")
	case query.Get("logout") == "1":
		flash = shared.SuccessFlash("You have been signed out.")
	}

	h.renderLogin(w, r, http.StatusOK, authpages.FormData{}, nil, flash, query.Get("return_to"))
}

// =============================================================================
// POST /auth/login - Process Login
// =============================================================================

// Login processes the login form submission.
//
// Form Fields:
// - email, password (required)
// - return_to (optional): URL to redirect to after successful login
//
// Invalid input re-renders the form with inline errors and never reaches the
// identity provider. On success the identity is added to the browser session
// and the user is sent to return_to or the home page.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.logger.Warn("failed to parse form", "error", err)
		h.renderLogin(w, r, http.StatusBadRequest, authpages.FormData{}, nil,
			shared.ErrorFlash("Invalid form submission. Please try again."), "")
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	returnTo := r.FormValue("return_to")

	// Passwords are never re-populated.
	form := authpages.FormData{Email: email}

	if errs := schema.ValidateLogin(schema.LoginForm{Email: email, Password: password}); !errs.Valid() {
		h.renderLogin(w, r, http.StatusUnprocessableEntity, form, errs, nil, returnTo)
		return
	}

	sessionID := auth.SessionID(r.Context())
	release, err := h.forms.Acquire(r.Context(), sessionID, service.FormLogin)
	if err != nil {
		status, _, flash := h.formError(r, err, "Sign-in failed. Please try again later.")
		h.renderLogin(w, r, status, form, nil, flash, returnTo)
		return
	}
	defer release()

	identity, err := h.authService.Login(r.Context(), sessionID, email, password)
	if err != nil {
		status, errs, flash := h.formError(r, err, "Sign-in failed. Please try again later.")
		h.renderLogin(w, r, status, form, errs, flash, returnTo)
		return
	}

	h.logger.Info("user logged in", "uid", identity.ID)

	redirectURL := "/"
	if returnTo != "" && isSafeRedirectURL(returnTo) {
		redirectURL = returnTo
	}
	http.Redirect(w, r, redirectURL, http.StatusSeeOther)
}

// =============================================================================
// POST /auth/login/google - Google Sign-In Callback
// =============================================================================

// LoginGoogle receives the Google Identity Services redirect callback.
//
// Form Fields:
// - credential (required): Google id_token
// - g_csrf_token (required): must match the g_csrf_token cookie
//
// Google posts from its own origin, so this route is exempt from the app
// CSRF check and validates Google's double-submit pair instead.
func (h *AuthHandler) LoginGoogle(w http.ResponseWriter, r *http.Request) {
	credential, ok := h.googleCredential(w, r)
	if !ok {
		return
	}

	identity, err := h.authService.LoginWithGoogle(r.Context(), auth.SessionID(r.Context()), credential)
	if err != nil {
		status, _, flash := h.formError(r, err, "Google sign-in failed. Please try again later.")
		h.renderLogin(w, r, status, authpages.FormData{}, nil, flash, "")
		return
	}

	h.logger.Info("user logged in with google", "uid", identity.ID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// =============================================================================
// GET /auth/register - Show Registration Form
// =============================================================================

// ShowRegister renders the registration form.
func (h *AuthHandler) ShowRegister(w http.ResponseWriter, r *http.Request) {
	h.renderRegister(w, r, http.StatusOK, authpages.FormData{}, nil, nil)
}

// =============================================================================
// POST /auth/register - Process Registration
// =============================================================================

// Register processes the registration form submission.
//
// Form Fields:
// - firstName, lastName, email, password, confirmPassword (required)
//
// Success Flow:
//  1. Create the account with the identity provider
//  2. Create the backend record
//  3. Redirect to /auth/login?registered=1
//
// Implementation Notes:
//   - Never log passwords, even on error
//   - Clear password fields on error (don't re-populate)
//   - A second submit while the first is outstanding gets 409 and never
//     reaches the identity provider
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.logger.Warn("failed to parse form", "error", err)
		h.renderRegister(w, r, http.StatusBadRequest, authpages.FormData{}, nil,
			shared.ErrorFlash("Invalid form submission. Please try again."))
		return
	}

	params := domain.RegisterParams{
		FirstName: strings.TrimSpace(r.FormValue("firstName")),
		LastName:  strings.TrimSpace(r.FormValue("lastName")),
		Email:     strings.TrimSpace(r.FormValue("email")),
		Password:  r.FormValue("password"),
	}

	form := authpages.FormData{
		Email:     params.Email,
		FirstName: params.FirstName,
		LastName:  params.LastName,
	}

	errs := schema.ValidateRegister(schema.RegisterForm{
		FirstName:       params.FirstName,
		LastName:        params.LastName,
		Email:           params.Email,
		Password:        params.Password,
		ConfirmPassword: r.FormValue("confirmPassword"),
	})
	if !errs.Valid() {
		h.renderRegister(w, r, http.StatusUnprocessableEntity, form, errs, nil)
		return
	}

	release, err := h.forms.Acquire(r.Context(), auth.SessionID(r.Context()), service.FormRegister)
	if err != nil {
		status, _, flash := h.formError(r, err, "Registration failed. Please try again later.")
		h.renderRegister(w, r, status, form, nil, flash)
		return
	}
	defer release()

	identity, err := h.authService.Register(r.Context(), params)
	if err != nil {
		if errors.Is(err, service.ErrRegistrationIncomplete) {
			h.renderRegister(w, r, http.StatusBadGateway, form, nil, shared.ErrorFlash(domain.ErrorMessage(err)))
			return
		}
		if domain.ErrorCode(err) == domain.ECONFLICT {
			h.renderRegister(w, r, http.StatusConflict, form,
				map[string]string{"email": domain.ErrorMessage(err)}, nil)
			return
		}
		status, fieldErrs, flash := h.formError(r, err, "Registration failed. Please try again later.")
		h.renderRegister(w, r, status, form, fieldErrs, flash)
		return
	}

	h.logger.Info("user registered", "uid", identity.ID)
	http.Redirect(w, r, "/auth/login?registered=1", http.StatusSeeOther)
}

// =============================================================================
// POST /auth/register/google - Google Sign-Up Callback
// =============================================================================

// RegisterGoogle creates the backend record for a Google account and sends
// the user to the login page. Validated like LoginGoogle.
func (h *AuthHandler) RegisterGoogle(w http.ResponseWriter, r *http.Request) {
	credential, ok := h.googleCredential(w, r)
	if !ok {
		return
	}

	identity, err := h.authService.RegisterWithGoogle(r.Context(), credential)
	if err != nil {
		status, _, flash := h.formError(r, err, "Google sign-up failed. Please try again later.")
		h.renderRegister(w, r, status, authpages.FormData{}, nil, flash)
		return
	}

	h.logger.Info("user registered with google", "uid", identity.ID)
	http.Redirect(w, r, "/auth/login?registered=1", http.StatusSeeOther)
}

// =============================================================================
// POST /auth/logout - Process Logout
// =============================================================================

// Logout forgets every identity of the browser session and clears the
// session cookie.
//
// Notes:
// - This operation is idempotent - calling without a session is fine
// - Always clear the cookie even if the store fails
// - Always redirect to login (don't show error pages)
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.Logout(r.Context(), auth.SessionID(r.Context())); err != nil {
		h.logger.Warn("failed to clear session identities", "error", err)
	}

	clearSessionCookie(w, h.isSecure)

	h.logger.Debug("user logged out")
	http.Redirect(w, r, "/auth/login?logout=1", http.StatusSeeOther)
}

// =============================================================================
// Rendering Helpers
// =============================================================================

func (h *AuthHandler) renderLogin(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	form authpages.FormData,
	errs map[string]string,
	flash *shared.Flash,
	returnTo string,
) {
	if returnTo != "" && !isSafeRedirectURL(returnTo) {
		returnTo = ""
	}
	h.renderer.RenderHTTPStatus(w, r, status, authpages.PageLogin, authpages.LoginPageData{
		Base:           newAuthBase(r, errs, flash),
		Form:           form,
		ReturnTo:       returnTo,
		GoogleClientID: h.googleClientID,
	})
}

func (h *AuthHandler) renderRegister(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	form authpages.FormData,
	errs map[string]string,
	flash *shared.Flash,
) {
	h.renderer.RenderHTTPStatus(w, r, status, authpages.PageRegister, authpages.RegisterPageData{
		Base:           newAuthBase(r, errs, flash),
		Form:           form,
		GoogleClientID: h.googleClientID,
	})
}

// formError turns a service error into the status, inline field errors and
// banner for re-rendering a form. Domain errors show their own message;
// anything else is logged and replaced by fallback.
func (h *AuthHandler) formError(r *http.Request, err error, fallback string) (int, map[string]string, *shared.Flash) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return http.StatusUnprocessableEntity, ve.Fields, nil
	}
	if errors.Is(err, service.ErrInFlight) {
		return http.StatusConflict, nil, shared.InfoFlash(domain.ErrorMessage(err))
	}

	code := domain.ErrorCode(err)
	status := ErrorCodeToHTTPStatus(code)

	switch code {
	case domain.EUNAUTHORIZED, domain.EFORBIDDEN, domain.ECONFLICT, domain.EINVALID, domain.ERATELIMIT:
		h.logger.Info("auth request rejected", "path", r.URL.Path, "code", code)
		return status, nil, shared.ErrorFlash(domain.ErrorMessage(err))
	default:
		h.logger.Error("auth request failed", "path", r.URL.Path, "error", err)
		return status, nil, shared.ErrorFlash(fallback)
	}
}

// googleCredential validates a Google Identity Services callback and returns
// its id_token. On failure the response has been written.
func (h *AuthHandler) googleCredential(w http.ResponseWriter, r *http.Request) (string, bool) {
	if err := r.ParseForm(); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("google", "Invalid form submission."))
		return "", false
	}
	if !csrf.ValidateGoogleRequest(r) {
		ErrorResponse(w, r, h.logger, domain.Forbidden("google", "Google sign-in could not be verified. Please try again."))
		return "", false
	}
	credential := r.PostFormValue("credential")
	if credential == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid("google", "Google sign-in returned no credential."))
		return "", false
	}
	return credential, true
}

// =============================================================================
// Cookie Helpers
// =============================================================================

// clearSessionCookie expires the browser session cookie. The session
// middleware issues a fresh one on the next request.
func clearSessionCookie(w http.ResponseWriter, isSecure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     session.CookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// =============================================================================
// Validation Helpers
// =============================================================================

// isSafeRedirectURL checks if a URL is safe to redirect to.
//
// This prevents open redirect vulnerabilities by ensuring:
// - URL is relative (starts with /)
// - URL is not a protocol-relative URL (not //)
// - URL does not redirect to external domain
//
// Examples:
// - "/"                    -> true (relative URL)
// - "/?tab=history"        -> true (relative URL with query)
// - "//evil.com"           -> false (protocol-relative, could be external)
// - "/\evil.com"           -> false (browsers treat \ as /)
// - "https://evil.com"     -> false (absolute URL to external domain)
// - "javascript:alert(1)"  -> false (javascript URL)
func isSafeRedirectURL(rawURL string) bool {
	if !strings.HasPrefix(rawURL, "/") {
		return false
	}

	if strings.HasPrefix(rawURL, "//") || strings.HasPrefix(rawURL, "/\\") {
		return false
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	return parsed.Scheme == "" && parsed.Host == ""
}
