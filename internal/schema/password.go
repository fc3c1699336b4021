package schema

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// specialChars is the set of characters that satisfy the special-character
// class of the password policy.
const specialChars = `!@#$%^&*()_-+={[}]|:;"'<,>.?`

// Password policy messages, shared by the Register and Reset-password forms.
const (
	msgPasswordLength  = "Password must be at least 8 characters long"
	msgPasswordUpper   = "Password must contain at least one uppercase letter"
	msgPasswordLower   = "Password must contain at least one lowercase letter"
	msgPasswordDigit   = "Password must contain at least one number"
	msgPasswordSpecial = "Password must contain at least one special character"
	msgPasswordsMatch  = "Passwords must match"
)

// passwordPolicy holds the messages for the complexity-checked password field
// and its confirmation.
var passwordPolicy = messages{
	"password.required":       msgPasswordLength,
	"password.min":            msgPasswordLength,
	"password.pwupper":        msgPasswordUpper,
	"password.pwlower":        msgPasswordLower,
	"password.pwdigit":        msgPasswordDigit,
	"password.pwspecial":      msgPasswordSpecial,
	"confirmPassword.eqfield": msgPasswordsMatch,
}

func registerPasswordRules(v *validator.Validate) {
	rules := map[string]func(rune) bool{
		"pwupper":   func(r rune) bool { return r >= 'A' && r <= 'Z' },
		"pwlower":   func(r rune) bool { return r >= 'a' && r <= 'z' },
		"pwdigit":   func(r rune) bool { return r >= '0' && r <= '9' },
		"pwspecial": func(r rune) bool { return strings.ContainsRune(specialChars, r) },
	}
	for tag, class := range rules {
		// Registration only fails on an empty tag or nil func.
		_ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return strings.IndexFunc(fl.Field().String(), class) >= 0
		})
	}
}

// merge combines message tables; later tables win.
func merge(tables ...messages) messages {
	out := make(messages)
	for _, t := range tables {
		for k, v := range t {
			out[k] = v
		}
	}
	return out
}
