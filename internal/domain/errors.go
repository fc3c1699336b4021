package domain

import (
	"errors"
	"fmt"
)

// Application error codes
const (
	EINVALID      = "invalid"      // Invalid input or validation failure
	EUNAUTHORIZED = "unauthorized" // Credentials rejected
	EFORBIDDEN    = "forbidden"    // Account disabled or request refused
	ENOTFOUND     = "not_found"    // No such reset session
	ECONFLICT     = "conflict"     // Duplicate account or submission in flight
	EGONE         = "gone"         // Expired reset session
	ERATELIMIT    = "rate_limit"   // Too many attempts
	EUPSTREAM     = "upstream"     // Backend API or identity provider failed
	EINTERNAL     = "internal"     // Anything else
)

// genericMessage is shown in place of internal error details.
const genericMessage = "An internal error occurred. Please try again later."

// Error is an application error. Message is safe to show to users; Op and
// Err are for logs only.
type Error struct {
	Code    string // Machine-readable error code
	Op      string // Operation that failed (e.g., "AuthService.Login")
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf creates a new Error with the given code, operation, and formatted message.
func Errorf(code, op, format string, args ...any) *Error {
	return &Error{Code: code, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and user-facing message to err.
func Wrap(err error, code, op, message string) *Error {
	return &Error{Code: code, Op: op, Message: message, Err: err}
}

// Invalid creates a validation error without field detail.
func Invalid(op, message string) *Error { return Errorf(EINVALID, op, "%s", message) }

// Unauthorized creates an authentication error.
func Unauthorized(op, message string) *Error { return Errorf(EUNAUTHORIZED, op, "%s", message) }

// Forbidden creates a permission error.
func Forbidden(op, message string) *Error { return Errorf(EFORBIDDEN, op, "%s", message) }

// Conflict creates a conflict error.
func Conflict(op, message string) *Error { return Errorf(ECONFLICT, op, "%s", message) }

// Gone creates an error for a resource that existed but is no longer usable.
func Gone(op, message string) *Error { return Errorf(EGONE, op, "%s", message) }

// Internal wraps an unexpected failure. Its message never reaches users.
func Internal(err error, op, message string) *Error { return Wrap(err, EINTERNAL, op, message) }

// Upstream wraps a failed call to an external collaborator.
func Upstream(err error, op, message string) *Error { return Wrap(err, EUPSTREAM, op, message) }

// RateLimit creates a rate limit error.
func RateLimit(op string) *Error {
	return Errorf(ERATELIMIT, op, "Too many requests. Please try again later.")
}

// ValidationError carries one message per invalid form field.
type ValidationError struct {
	Op     string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: validation failed (%d fields)", e.Op, len(e.Fields))
}

// NewValidationError creates a validation error for a single field.
func NewValidationError(op, field, message string) *ValidationError {
	return &ValidationError{Op: op, Fields: map[string]string{field: message}}
}

// ErrorCode returns the code of err. Validation errors are EINVALID and
// anything unrecognised is EINTERNAL.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return EINVALID
	}
	return EINTERNAL
}

// ErrorMessage returns the user-facing message of err.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Code != EINTERNAL {
		return e.Message
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return "Please correct the highlighted fields."
	}
	return genericMessage
}

// ErrorOp returns the operation recorded on err, if any.
func ErrorOp(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Op
	}
	return ""
}
