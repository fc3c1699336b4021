// Package schema declares the validation rules for every auth form.
//
// Each form is a struct whose `validate` tags are evaluated by
// go-playground/validator. A schema never fails with an error: it yields a
// map from form field name to the first message that field failed, and an
// empty map means the input was accepted.
package schema

import (
	"errors"
	"reflect"
	"strings"

	"github.com/DukeRupert/authflow/internal/domain"
	"github.com/go-playground/validator/v10"
)

// Errors maps a form field name to a human-readable message.
type Errors map[string]string

// Valid reports whether no field failed.
func (e Errors) Valid() bool {
	return len(e) == 0
}

// Has reports whether field failed.
func (e Errors) Has(field string) bool {
	_, ok := e[field]
	return ok
}

// Err converts the field errors into a domain validation error, or nil if
// every field passed.
func (e Errors) Err(op string) error {
	if e.Valid() {
		return nil
	}
	fields := make(map[string]string, len(e))
	for k, v := range e {
		fields[k] = v
	}
	return &domain.ValidationError{Op: op, Fields: fields}
}

// messages maps "field.tag" to the message shown for that failure.
type messages map[string]string

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report errors under the HTML form field name, not the Go field name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("form"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	registerPasswordRules(v)
	return v
}

// check validates s and translates the failures through msgs. A field that
// fails more than one tag reports only its first failure.
func check(s any, msgs messages) Errors {
	errs := make(Errors)

	err := validate.Struct(s)
	if err == nil {
		return errs
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		// Only reachable with a programming error (non-struct input).
		errs["form"] = "Invalid form submission"
		return errs
	}

	for _, fe := range verrs {
		field := fe.Field()
		if errs.Has(field) {
			continue
		}
		msg, ok := msgs[field+"."+fe.Tag()]
		if !ok {
			msg = "Invalid value"
		}
		errs[field] = msg
	}
	return errs
}

// refineConfirmation drops a confirmation mismatch while any other field is
// still failing: the pair is only compared once each field is acceptable on
// its own.
func refineConfirmation(errs Errors, mismatch string) Errors {
	if msg, ok := errs["confirmPassword"]; ok && msg == mismatch && len(errs) > 1 {
		delete(errs, "confirmPassword")
	}
	return errs
}
