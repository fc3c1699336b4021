package schema

import (
	"strconv"
	"strings"
)

// LoginForm is the sign-in form.
type LoginForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required,min=8"`
}

var loginMessages = messages{
	"email.required":    "Invalid email address",
	"email.email":       "Invalid email address",
	"password.required": "Password must be at least 8 characters",
	"password.min":      "Password must be at least 8 characters",
}

// ValidateLogin checks the sign-in form.
func ValidateLogin(f LoginForm) Errors {
	return check(f, loginMessages)
}

// RegisterForm is the account creation form.
type RegisterForm struct {
	FirstName       string `form:"firstName" validate:"required"`
	LastName        string `form:"lastName" validate:"required"`
	Email           string `form:"email" validate:"required,email"`
	Password        string `form:"password" validate:"required,min=8,pwupper,pwlower,pwdigit,pwspecial"`
	ConfirmPassword string `form:"confirmPassword" validate:"eqfield=Password"`
}

var registerMessages = merge(messages{
	"firstName.required": "First name is required",
	"lastName.required":  "Last name is required",
	"email.required":     "Invalid email address",
	"email.email":        "Invalid email address",
}, passwordPolicy)

// ValidateRegister checks the account creation form. The confirmation is
// only compared once every other field passes.
func ValidateRegister(f RegisterForm) Errors {
	return refineConfirmation(check(f, registerMessages), msgPasswordsMatch)
}

// VerifyEmailForm is step one of the password reset: the account email.
type VerifyEmailForm struct {
	Email string `form:"email" validate:"required,email"`
}

var verifyEmailMessages = messages{
	"email.required": "Invalid email address",
	"email.email":    "Invalid email address",
}

// ValidateVerifyEmail checks step one of the password reset.
func ValidateVerifyEmail(f VerifyEmailForm) Errors {
	return check(f, verifyEmailMessages)
}

// CodePolicy selects how the step-two verification code is bounded.
type CodePolicy string

const (
	// CodePolicyValue bounds the numeric value of the code to [4, 4].
	CodePolicyValue CodePolicy = "value"
	// CodePolicyDigits requires the code to be exactly four decimal digits.
	CodePolicyDigits CodePolicy = "digits"
)

// Valid reports whether p is a known policy.
func (p CodePolicy) Valid() bool {
	return p == CodePolicyValue || p == CodePolicyDigits
}

// codeValue is the code checked by value.
type codeValue struct {
	Code int `form:"code" validate:"min=4,max=4"`
}

// codeDigits is the code checked by length of its decimal form.
type codeDigits struct {
	Code string `form:"code" validate:"min=4,max=4"`
}

const msgCodeNumber = "Code must be a number"

var verifyCodeMessages = messages{
	"code.min": "Code must be at least 4 digits",
	"code.max": "Code must be at most 4 digits",
}

// ValidateVerifyCode parses and checks the step-two code. The raw form value
// must be a base-10 integer; the parsed value is returned for submission.
func ValidateVerifyCode(raw string, policy CodePolicy) (int, Errors) {
	raw = strings.TrimSpace(raw)

	code, err := strconv.Atoi(raw)
	if err != nil || strings.HasPrefix(raw, "+") {
		return 0, Errors{"code": msgCodeNumber}
	}

	var errs Errors
	switch policy {
	case CodePolicyDigits:
		if strings.HasPrefix(raw, "-") {
			return 0, Errors{"code": msgCodeNumber}
		}
		errs = check(codeDigits{Code: raw}, verifyCodeMessages)
	default:
		errs = check(codeValue{Code: code}, verifyCodeMessages)
	}
	if !errs.Valid() {
		return 0, errs
	}
	return code, errs
}

// ResetPasswordForm is step three of the password reset.
type ResetPasswordForm struct {
	Password        string `form:"password" validate:"required,min=8,pwupper,pwlower,pwdigit,pwspecial"`
	ConfirmPassword string `form:"confirmPassword" validate:"eqfield=Password"`
}

// ValidateResetPassword checks step three of the password reset.
func ValidateResetPassword(f ResetPasswordForm) Errors {
	return refineConfirmation(check(f, passwordPolicy), msgPasswordsMatch)
}
