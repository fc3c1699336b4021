package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"slices"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/DukeRupert/authflow/internal/csrf"
	"github.com/DukeRupert/authflow/internal/domain"
	"github.com/DukeRupert/authflow/internal/session"
	authpages "github.com/DukeRupert/authflow/internal/templ/pages/auth"
	"github.com/DukeRupert/authflow/internal/templ/pages/public"
	"github.com/DukeRupert/authflow/internal/templ/shared"
)

// Themes are the accepted theme preferences. The first is the default.
var Themes = []string{"system", "light", "dark"}

// supportedLanguages are the interface languages. The first is the default.
var supportedLanguages = []language.Tag{
	language.English,
	language.French,
	language.Spanish,
}

var languageMatcher = language.NewMatcher(supportedLanguages)

// MatchLanguage returns the base tag ("en", "fr", "es") of the supported
// language closest to the given BCP 47 tags or Accept-Language values.
func MatchLanguage(preferred ...string) string {
	tag, _ := language.MatchStrings(languageMatcher, preferred...)
	base, _ := tag.Base()
	return base.String()
}

// languageOptions lists the supported languages named in their own language.
func languageOptions() []public.LanguageOption {
	options := make([]public.LanguageOption, 0, len(supportedLanguages))
	for _, tag := range supportedLanguages {
		options = append(options, public.LanguageOption{
			Tag:  tag.String(),
			Name: display.Self.Name(tag),
		})
	}
	return options
}

// preferencesFromRequest returns the theme and language for r. Missing or
// unknown cookies fall back to "system" and the Accept-Language header.
func preferencesFromRequest(r *http.Request) (theme, lang string) {
	theme = Themes[0]
	if c, err := r.Cookie(session.ThemeCookieName); err == nil && slices.Contains(Themes, c.Value) {
		theme = c.Value
	}

	if c, err := r.Cookie(session.LanguageCookieName); err == nil && c.Value != "" {
		lang = MatchLanguage(c.Value)
	} else {
		lang = MatchLanguage(r.Header.Get("Accept-Language"))
	}
	return theme, lang
}

// newAuthBase fills the fields every auth page renders.
func newAuthBase(r *http.Request, errs map[string]string, flash *shared.Flash) authpages.Base {
	theme, lang := preferencesFromRequest(r)
	return authpages.Base{
		CurrentPath: r.URL.Path,
		CSRFToken:   csrf.Token(r.Context()),
		Errors:      errs,
		Flash:       flash,
		Theme:       theme,
		Language:    lang,
	}
}

// =============================================================================
// Preferences Handler
// =============================================================================

// PreferencesHandler stores display preferences in cookies.
//
// Routes handled:
// - POST /preferences/theme    -> SetTheme
// - POST /preferences/language -> SetLanguage
type PreferencesHandler struct {
	logger   *slog.Logger
	isSecure bool
}

// NewPreferencesHandler creates a new PreferencesHandler.
func NewPreferencesHandler(logger *slog.Logger, isSecure bool) *PreferencesHandler {
	return &PreferencesHandler{logger: logger, isSecure: isSecure}
}

// SetTheme stores the "theme" form value and redirects back.
func (h *PreferencesHandler) SetTheme(w http.ResponseWriter, r *http.Request) {
	theme := r.PostFormValue("theme")
	if !slices.Contains(Themes, theme) {
		ErrorResponse(w, r, h.logger, domain.Invalid("preferences", "Unknown theme."))
		return
	}

	h.setCookie(w, session.ThemeCookieName, theme)
	http.Redirect(w, r, backURL(r), http.StatusSeeOther)
}

// SetLanguage stores the supported language closest to the "language" form
// value and redirects back.
func (h *PreferencesHandler) SetLanguage(w http.ResponseWriter, r *http.Request) {
	raw := r.PostFormValue("language")
	if raw == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid("preferences", "Language is required."))
		return
	}

	h.setCookie(w, session.LanguageCookieName, MatchLanguage(raw))
	http.Redirect(w, r, backURL(r), http.StatusSeeOther)
}

func (h *PreferencesHandler) setCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   session.PreferenceMaxAge,
		HttpOnly: true,
		Secure:   h.isSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// backURL returns the same-site page the request came from, or "/".
func backURL(r *http.Request) string {
	ref, err := url.Parse(r.Referer())
	if err != nil || ref.Host != r.Host {
		return "/"
	}
	back := ref.EscapedPath()
	if ref.RawQuery != "" {
		back += "?" + ref.RawQuery
	}
	if !isSafeRedirectURL(back) {
		return "/"
	}
	return back
}
