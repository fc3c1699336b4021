package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/DukeRupert/authflow/internal/auth"
	"github.com/DukeRupert/authflow/internal/authapi"
	"github.com/DukeRupert/authflow/internal/domain"
	"github.com/DukeRupert/authflow/internal/schema"
	"github.com/DukeRupert/authflow/internal/service"
	"github.com/DukeRupert/authflow/internal/session"
	authpages "github.com/DukeRupert/authflow/internal/templ/pages/auth"
	"github.com/DukeRupert/authflow/internal/templ/shared"
)

// Reset flow page paths.
const (
	verifyEmailPath   = "/auth/forgot-password/verify-email"
	verifyCodePath    = "/auth/forgot-password/verify-code"
	resetPasswordPath = "/auth/forgot-password/reset-password"
)

// stepPaths maps a reset step to the page that submits it.
var stepPaths = map[domain.ResetStep]string{
	domain.ResetStepVerifyCode:  verifyCodePath,
	domain.ResetStepSetPassword: resetPasswordPath,
}

// restartReasons maps the ?restart= value on step one to the banner shown
// after a reset session could not be used.
var restartReasons = map[string]error{
	"missing": service.ErrNoSession,
	"expired": service.ErrExpired,
	"order":   service.ErrOutOfOrder,
}

// ResetHandler serves the three forgot-password pages.
//
// The steps are threaded together by a continuation token in an HttpOnly
// cookie scoped to /auth/forgot-password. A page opened without a usable
// token redirects to step one; a page for the wrong step redirects to the
// step the session is at.
//
// Routes handled:
//   - GET/POST /auth/forgot-password/verify-email   -> step one, request a code
//   - GET/POST /auth/forgot-password/verify-code    -> step two, check the code
//   - GET/POST /auth/forgot-password/reset-password -> step three, set the password
type ResetHandler struct {
	resetService service.ResetService
	forms        service.FormGuard
	renderer     TemplateRenderer
	logger       *slog.Logger
	isSecure     bool
	codePolicy   schema.CodePolicy
}

// NewResetHandler creates a new ResetHandler.
func NewResetHandler(
	resetService service.ResetService,
	forms service.FormGuard,
	renderer TemplateRenderer,
	logger *slog.Logger,
	isSecure bool,
	codePolicy schema.CodePolicy,
) *ResetHandler {
	if !codePolicy.Valid() {
		codePolicy = schema.CodePolicyValue
	}
	return &ResetHandler{
		resetService: resetService,
		forms:        forms,
		renderer:     renderer,
		logger:       logger,
		isSecure:     isSecure,
		codePolicy:   codePolicy,
	}
}

// =============================================================================
// Step 1: /auth/forgot-password/verify-email
// =============================================================================

// ShowVerifyEmail renders step one.
//
// Query Parameters:
//   - restart (optional): "missing", "expired" or "order" explains why the
//     user was sent back here
func (h *ResetHandler) ShowVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var flash *shared.Flash
	if err, ok := restartReasons[r.URL.Query().Get("restart")]; ok {
		flash = shared.InfoFlash(domain.ErrorMessage(err))
	}
	h.renderVerifyEmail(w, r, http.StatusOK, authpages.FormData{}, nil, flash)
}

// VerifyEmail asks the backend to send a reset code to the submitted email
// and opens a reset session for it.
func (h *ResetHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.logger.Warn("failed to parse form", "error", err)
		h.renderVerifyEmail(w, r, http.StatusBadRequest, authpages.FormData{}, nil,
			shared.ErrorFlash("Invalid form submission. Please try again."))
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	form := authpages.FormData{Email: email}

	if errs := schema.ValidateVerifyEmail(schema.VerifyEmailForm{Email: email}); !errs.Valid() {
		h.renderVerifyEmail(w, r, http.StatusUnprocessableEntity, form, errs, nil)
		return
	}

	release, err := h.forms.Acquire(r.Context(), auth.SessionID(r.Context()), service.FormResetEmail)
	if err != nil {
		status, flash := h.stepError(r, err, "We could not send a verification code. Please try again.")
		h.renderVerifyEmail(w, r, status, form, nil, flash)
		return
	}
	defer release()

	// A new request replaces whatever reset the browser had open.
	if old := resetToken(r); old != "" {
		if err := h.resetService.Cancel(r.Context(), old); err != nil {
			h.logger.Warn("failed to cancel previous reset session", "error", err)
		}
	}

	start, err := h.resetService.Start(r.Context(), email)
	if err != nil {
		status, flash := h.stepError(r, err, "We could not send a verification code. Please try again.")
		h.renderVerifyEmail(w, r, status, form, nil, flash)
		return
	}

	setResetCookie(w, start.Token, start.ExpiresAt, h.isSecure)
	http.Redirect(w, r, verifyCodePath, http.StatusSeeOther)
}

// =============================================================================
// Step 2: /auth/forgot-password/verify-code
// =============================================================================

// ShowVerifyCode renders step two for the email entered in step one.
func (h *ResetHandler) ShowVerifyCode(w http.ResponseWriter, r *http.Request) {
	rs, ok := h.requireStep(w, r, domain.ResetStepVerifyCode)
	if !ok {
		return
	}
	h.renderVerifyCode(w, r, http.StatusOK, rs.Email, "", nil, nil)
}

// VerifyCode submits the code for the session's email and moves on to step
// three when the backend answers 200.
func (h *ResetHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	rs, ok := h.requireStep(w, r, domain.ResetStepVerifyCode)
	if !ok {
		return
	}

	raw := strings.TrimSpace(r.PostFormValue("code"))
	code, errs := schema.ValidateVerifyCode(raw, h.codePolicy)
	if !errs.Valid() {
		h.renderVerifyCode(w, r, http.StatusUnprocessableEntity, rs.Email, raw, errs, nil)
		return
	}

	if err := h.resetService.VerifyCode(r.Context(), resetToken(r), code); err != nil {
		if h.restartOn(w, r, err) {
			return
		}
		status, flash := h.stepError(r, err, "That code could not be verified. Please check it and try again.")
		h.renderVerifyCode(w, r, status, rs.Email, raw, nil, flash)
		return
	}

	http.Redirect(w, r, resetPasswordPath, http.StatusSeeOther)
}

// =============================================================================
// Step 3: /auth/forgot-password/reset-password
// =============================================================================

// ShowResetPassword renders step three.
func (h *ResetHandler) ShowResetPassword(w http.ResponseWriter, r *http.Request) {
	rs, ok := h.requireStep(w, r, domain.ResetStepSetPassword)
	if !ok {
		return
	}
	h.renderResetPassword(w, r, http.StatusOK, rs.Email, nil, nil)
}

// ResetPassword submits the new password. On success the reset session is
// over and the user is sent to the login page.
func (h *ResetHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	rs, ok := h.requireStep(w, r, domain.ResetStepSetPassword)
	if !ok {
		return
	}

	password := r.PostFormValue("password")
	errs := schema.ValidateResetPassword(schema.ResetPasswordForm{
		Password:        password,
		ConfirmPassword: r.PostFormValue("confirmPassword"),
	})
	if !errs.Valid() {
		h.renderResetPassword(w, r, http.StatusUnprocessableEntity, rs.Email, errs, nil)
		return
	}

	if err := h.resetService.SetPassword(r.Context(), resetToken(r), password); err != nil {
		if h.restartOn(w, r, err) {
			return
		}
		status, flash := h.stepError(r, err, "Your password could not be updated. Please try again.")
		h.renderResetPassword(w, r, status, rs.Email, nil, flash)
		return
	}

	clearResetCookie(w, h.isSecure)
	h.logger.Info("password reset completed")
	http.Redirect(w, r, "/auth/login?reset=1", http.StatusSeeOther)
}

// =============================================================================
// Session Gate
// =============================================================================

// requireStep loads the reset session and checks it is at step. Otherwise
// the user is sent to the page for the session's step, or back to step one
// when the session is unusable, and ok is false.
func (h *ResetHandler) requireStep(w http.ResponseWriter, r *http.Request, step domain.ResetStep) (*domain.ResetSession, bool) {
	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			ErrorResponse(w, r, h.logger, domain.Invalid("reset", "Invalid form submission. Please try again."))
			return nil, false
		}
	}

	rs, err := h.resetService.Session(r.Context(), resetToken(r))
	if err != nil {
		if !h.restartOn(w, r, err) {
			ErrorResponse(w, r, h.logger, err)
		}
		return nil, false
	}

	if !rs.Allows(step) {
		if !h.resumeAt(w, r, rs) {
			h.restartOn(w, r, service.ErrOutOfOrder)
		}
		return nil, false
	}
	return rs, true
}

// resumeAt redirects to the page for the step rs is at and reports whether
// there is one.
func (h *ResetHandler) resumeAt(w http.ResponseWriter, r *http.Request, rs *domain.ResetSession) bool {
	path, ok := stepPaths[rs.Step]
	if !ok {
		return false
	}
	h.logger.Info("reset step out of order", "path", r.URL.Path, "step", rs.Step)
	http.Redirect(w, r, path, http.StatusSeeOther)
	return true
}

// restartOn redirects to step one if err means the reset session is
// unusable and reports whether it did. An out-of-order submit for a live
// session is sent to that session's step instead.
func (h *ResetHandler) restartOn(w http.ResponseWriter, r *http.Request, err error) bool {
	var reason string
	switch {
	case errors.Is(err, service.ErrNoSession):
		reason = "missing"
	case errors.Is(err, service.ErrExpired):
		reason = "expired"
	case errors.Is(err, service.ErrOutOfOrder):
		// Another submit moved the session on after this one was checked.
		if rs, err := h.resetService.Session(r.Context(), resetToken(r)); err == nil && h.resumeAt(w, r, rs) {
			return true
		}
		reason = "order"
	default:
		return false
	}

	h.logger.Info("reset session unusable", "path", r.URL.Path, "reason", reason)
	if reason != "order" {
		clearResetCookie(w, h.isSecure)
	}
	http.Redirect(w, r, verifyEmailPath+"?"+url.Values{"restart": {reason}}.Encode(), http.StatusSeeOther)
	return true
}

// stepError turns a failed step into the status and banner for re-rendering
// the page. Backend failures are logged and replaced by fallback.
func (h *ResetHandler) stepError(r *http.Request, err error, fallback string) (int, *shared.Flash) {
	var apiErr *authapi.Error
	if errors.As(err, &apiErr) {
		h.logger.Warn("reset step failed upstream",
			"path", r.URL.Path,
			"op", apiErr.Op,
			"status", apiErr.StatusCode,
			"error", apiErr.Message,
		)
		return http.StatusBadGateway, shared.ErrorFlash(fallback)
	}

	code := domain.ErrorCode(err)
	if code == domain.ECONFLICT {
		return http.StatusConflict, shared.InfoFlash(domain.ErrorMessage(err))
	}

	h.logger.Error("reset step failed", "path", r.URL.Path, "error", err)
	return ErrorCodeToHTTPStatus(code), shared.ErrorFlash(fallback)
}

// =============================================================================
// Rendering Helpers
// =============================================================================

func (h *ResetHandler) renderVerifyEmail(w http.ResponseWriter, r *http.Request, status int, form authpages.FormData, errs map[string]string, flash *shared.Flash) {
	h.renderer.RenderHTTPStatus(w, r, status, authpages.PageVerifyEmail, authpages.VerifyEmailPageData{
		Base: newAuthBase(r, errs, flash),
		Form: form,
	})
}

func (h *ResetHandler) renderVerifyCode(w http.ResponseWriter, r *http.Request, status int, email, code string, errs map[string]string, flash *shared.Flash) {
	h.renderer.RenderHTTPStatus(w, r, status, authpages.PageVerifyCode, authpages.VerifyCodePageData{
		Base:  newAuthBase(r, errs, flash),
		Email: email,
		Code:  code,
	})
}

func (h *ResetHandler) renderResetPassword(w http.ResponseWriter, r *http.Request, status int, email string, errs map[string]string, flash *shared.Flash) {
	h.renderer.RenderHTTPStatus(w, r, status, authpages.PageResetPassword, authpages.ResetPasswordPageData{
		Base:  newAuthBase(r, errs, flash),
		Email: email,
	})
}

// =============================================================================
// Cookie Helpers
// =============================================================================

func resetToken(r *http.Request) string {
	cookie, err := r.Cookie(session.ResetCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func setResetCookie(w http.ResponseWriter, token string, expiresAt time.Time, isSecure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.ResetCookieName,
		Value:    token,
		Path:     session.ResetCookiePath,
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearResetCookie(w http.ResponseWriter, isSecure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.ResetCookieName,
		Value:    "",
		Path:     session.ResetCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteStrictMode,
	})
}
