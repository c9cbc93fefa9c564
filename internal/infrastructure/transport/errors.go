package transport

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Error Taxonomy
// ---------------------------------------------------------------------------

var (
	// ErrUnavailable indicates a transport failure: no response was received.
	ErrUnavailable = errors.New("transport: backend unavailable")
	// ErrRequestFailed indicates an HTTP-level failure (status >= 400).
	ErrRequestFailed = errors.New("transport: request failed")
	// ErrPermissionDenied indicates a success status whose body carried the
	// application error code 403.
	ErrPermissionDenied = errors.New("transport: permission denied")
	// ErrBackendError indicates a success status whose body carried a generic
	// application error code >= 400.
	ErrBackendError = errors.New("transport: backend reported error")
)

// APIError carries the richest available diagnostic context for a failed
// call: the HTTP status, the application-level error code (0 when the
// failure was HTTP-level), the backend's message, and the raw response body.
// It unwraps to the matching taxonomy sentinel so callers classify with
// errors.Is.
type APIError struct {
	Status  int
	Code    int
	Message string
	Body    []byte
	kind    error
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%v: %s (status=%d code=%d)", e.kind, e.Message, e.Status, e.Code)
	}
	return fmt.Sprintf("%v (status=%d code=%d)", e.kind, e.Status, e.Code)
}

func (e *APIError) Unwrap() error { return e.kind }

// newAPIError builds an APIError for the given sentinel kind.
func newAPIError(kind error, status, code int, message string, body []byte) *APIError {
	return &APIError{Status: status, Code: code, Message: message, Body: body, kind: kind}
}

// IsPermissionDenied reports whether err classifies as an application-level
// permission failure.
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}
