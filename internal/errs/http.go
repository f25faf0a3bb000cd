package errs

import (
	"net/http"
)

// NewStatusError creates an HTTPError for an arbitrary status code.
//
// The code is derived from the status text; unknown statuses fall back to
// "ERROR".
func NewStatusError(status int, message string) *HTTPError {
	code := MakeUpperCaseWithUnderscores(http.StatusText(status))
	if code == "" {
		code = "ERROR"
	}

	return &HTTPError{
		Code:    code,
		Message: message,
		Status:  status,
	}
}

// NewBadRequestError creates a 400 Bad Request HTTPError.
//
// code optionally replaces the default "BAD_REQUEST" code; the caller is
// expected to pass it already formatted.
func NewBadRequestError(message string, code *string) *HTTPError {
	err := NewStatusError(http.StatusBadRequest, message)

	if code != nil {
		err.Code = *code
	}

	return err
}

// NewServiceUnavailableError creates a 503 Service Unavailable HTTPError.
func NewServiceUnavailableError(message string) *HTTPError {
	return NewStatusError(http.StatusServiceUnavailable, message)
}

// NewInternalServerError creates a 500 Internal Server Error HTTPError.
//
// An empty message falls back to the generic status text so internal
// details never reach the client by accident.
func NewInternalServerError(message string) *HTTPError {
	if message == "" {
		message = http.StatusText(http.StatusInternalServerError)
	}

	return NewStatusError(http.StatusInternalServerError, message)
}
