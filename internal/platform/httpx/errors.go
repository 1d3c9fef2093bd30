// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/batchflow/batchflow/internal/shared"
)

// Detailer is implemented by errors that carry structured details for the client.
type Detailer interface {
	Details() any
}

// ValidationError reports per-field input problems.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return shared.ErrValidation.Error()
}

// Is lets errors.Is match shared.ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == shared.ErrValidation
}

// Details returns the failing fields.
func (e *ValidationError) Details() any {
	return e.Fields
}

// StatusFor maps a domain error onto an HTTP status code.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrValidation), errors.Is(err, shared.ErrRuleViolation):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, shared.ErrUnauthorized), errors.Is(err, shared.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// RespondError writes err as an error body and returns the status used. Server
// errors are reported with a generic message; callers log the original.
func RespondError(w http.ResponseWriter, err error) int {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		Error(w, status, http.StatusText(status), nil)
		return status
	}
	var details any
	var d Detailer
	if errors.As(err, &d) {
		details = d.Details()
	}
	Error(w, status, err.Error(), details)
	return status
}
