package auth

import "github.com/DukeRupert/authflow/internal/templ/shared"

// Page template names, relative to the auth layout.
const (
	PageLogin         = "auth/login"
	PageRegister      = "auth/register"
	PageVerifyEmail   = "auth/verify_email"
	PageVerifyCode    = "auth/verify_code"
	PageResetPassword = "auth/reset_password"
)

// Base holds the fields every auth page renders.
type Base struct {
	CurrentPath string
	CSRFToken   string
	Errors      map[string]string
	Flash       *shared.Flash
	Theme       string
	Language    string
}

// LoginPageData contains data for the login page
type LoginPageData struct {
	Base
	Form           FormData
	ReturnTo       string
	GoogleClientID string
}

// RegisterPageData contains data for the registration page
type RegisterPageData struct {
	Base
	Form           FormData
	GoogleClientID string
}

// VerifyEmailPageData contains data for step one of the password reset
type VerifyEmailPageData struct {
	Base
	Form FormData
}

// VerifyCodePageData contains data for step two of the password reset.
// Email is the address entered in step one, shown so the user knows where
// the code went.
type VerifyCodePageData struct {
	Base
	Email string
	Code  string
}

// ResetPasswordPageData contains data for step three of the password reset
type ResetPasswordPageData struct {
	Base
	Email string
}

// FormData holds form field values for repopulation after validation errors.
// Passwords are never repopulated.
type FormData struct {
	Email     string
	FirstName string
	LastName  string
}
