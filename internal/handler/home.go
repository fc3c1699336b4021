package handler

import (
	"log/slog"
	"net/http"

	"github.com/DukeRupert/authflow/internal/auth"
	"github.com/DukeRupert/authflow/internal/csrf"
	"github.com/DukeRupert/authflow/internal/service"
	"github.com/DukeRupert/authflow/internal/templ/pages/public"
)

// HomeHandler serves the landing page.
type HomeHandler struct {
	authService service.AuthService
	renderer    TemplateRenderer
	logger      *slog.Logger
}

// NewHomeHandler creates a new HomeHandler.
func NewHomeHandler(authService service.AuthService, renderer TemplateRenderer, logger *slog.Logger) *HomeHandler {
	return &HomeHandler{
		authService: authService,
		renderer:    renderer,
		logger:      logger,
	}
}

// ShowHome renders the current identity of the browser session, the one it
// first signed in as and the other identities it signed in as.
func (h *HomeHandler) ShowHome(w http.ResponseWriter, r *http.Request) {
	sessionID := auth.SessionID(r.Context())

	// The page still works without history.
	history, err := h.authService.Identities(r.Context(), sessionID)
	if err != nil {
		h.logger.Warn("failed to load identity history", "error", err)
	}
	original, err := h.authService.FirstIdentity(r.Context(), sessionID)
	if err != nil {
		h.logger.Warn("failed to load original identity", "error", err)
	}

	theme, lang := preferencesFromRequest(r)
	h.renderer.RenderHTTP(w, r, public.PageHome, public.HomePageData{
		CurrentPath: r.URL.Path,
		CSRFToken:   csrf.Token(r.Context()),
		Theme:       theme,
		Language:    lang,
		Identity:    auth.GetIdentityFromRequest(r),
		Original:    original,
		History:     history,
		Themes:      Themes,
		Languages:   languageOptions(),
	})
}

// Health reports liveness.
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
