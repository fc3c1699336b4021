// Package session provides shared cookie constants used by both
// the handler and middleware packages.
package session

const (
	// CookieName is the name of the cookie that identifies the browser
	// session. Its value is a random UUID; identities are stored server side.
	CookieName = "authflow_session"

	// CookiePath ensures the cookie is sent with all requests.
	CookiePath = "/"

	// CookieMaxAge sets the cookie expiration (7 days = 604800 seconds).
	CookieMaxAge = 7 * 24 * 60 * 60

	// ResetCookieName carries the password reset continuation token between
	// the three reset steps.
	ResetCookieName = "authflow_reset"

	// ResetCookiePath limits the reset token to the reset pages.
	ResetCookiePath = "/auth/forgot-password"

	// ThemeCookieName and LanguageCookieName hold the display preferences.
	ThemeCookieName    = "authflow_theme"
	LanguageCookieName = "authflow_lang"

	// PreferenceMaxAge keeps preferences for a year.
	PreferenceMaxAge = 365 * 24 * 60 * 60
)
