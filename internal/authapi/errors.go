package authapi

import (
	"errors"
	"fmt"
)

// Error is the single failure kind returned by the client. It does not
// distinguish transport failures from rejections by the backend; StatusCode is
// zero when no response was received.
type Error struct {
	Op         Op
	Message    string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Op.label(), e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsError reports whether err is (or wraps) a client failure.
func IsError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}
