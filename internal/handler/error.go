package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/DukeRupert/authflow/internal/domain"
)

// statusByCode maps domain error codes to HTTP status codes. Unknown codes
// are treated as internal errors.
var statusByCode = map[string]int{
	domain.EINVALID:      http.StatusBadRequest,
	domain.EUNAUTHORIZED: http.StatusUnauthorized,
	domain.EFORBIDDEN:    http.StatusForbidden,
	domain.ENOTFOUND:     http.StatusNotFound,
	domain.ECONFLICT:     http.StatusConflict,
	domain.EGONE:         http.StatusGone,
	domain.ERATELIMIT:    http.StatusTooManyRequests,
	domain.EUPSTREAM:     http.StatusBadGateway,
	domain.EINTERNAL:     http.StatusInternalServerError,
}

// ErrorCodeToHTTPStatus maps a domain error code to an HTTP status code.
func ErrorCodeToHTTPStatus(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// JSONError is the body of every JSON error response.
type JSONError struct {
	Error JSONErrorBody `json:"error"`
}

// JSONErrorBody carries the code, the user-facing message and, for
// validation failures, the per-field messages.
type JSONErrorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// ErrorResponse writes err to the client as JSON when the request asks for
// it and as plain text otherwise. Only the domain message is exposed; the
// operation and any wrapped cause go to the log.
func ErrorResponse(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	code := domain.ErrorCode(err)
	status := ErrorCodeToHTTPStatus(code)

	logError(logger, r, err, code, status)

	message := domain.ErrorMessage(err)
	if acceptsJSON(r) {
		writeJSON(w, status, JSONError{Error: JSONErrorBody{Code: code, Message: message}})
		return
	}
	http.Error(w, message, status)
}

// ValidationErrorResponse writes field-level errors with 422 Unprocessable
// Entity. JSON clients get the field map; plain clients get a generic
// message. Any other error falls through to ErrorResponse.
func ValidationErrorResponse(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		ErrorResponse(w, r, logger, err)
		return
	}

	logger.Info("validation error", "op", ve.Op, "fields", len(ve.Fields), "path", r.URL.Path)

	if acceptsJSON(r) {
		writeJSON(w, http.StatusUnprocessableEntity, JSONError{Error: JSONErrorBody{
			Code:    domain.EINVALID,
			Message: "Validation failed",
			Fields:  ve.Fields,
		}})
		return
	}
	http.Error(w, "Validation failed. Please check your input and try again.", http.StatusUnprocessableEntity)
}

// InternalErrorResponse hides err behind a generic 500.
func InternalErrorResponse(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	ErrorResponse(w, r, logger, domain.Internal(err, "", "An unexpected error occurred"))
}

func logError(logger *slog.Logger, r *http.Request, err error, code string, status int) {
	attrs := []any{
		"error", err.Error(),
		"code", code,
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
	}
	if op := domain.ErrorOp(err); op != "" {
		attrs = append(attrs, "op", op)
	}

	// Client errors are expected traffic.
	if status >= http.StatusInternalServerError {
		logger.Error("server error", attrs...)
		return
	}
	logger.Info("client error", attrs...)
}

// acceptsJSON reports whether the client asked for, or sent, JSON.
func acceptsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.Contains(r.Header.Get("Content-Type"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
