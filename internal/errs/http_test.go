package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewStatusError(t *testing.T) {
	err := NewStatusError(http.StatusServiceUnavailable, "Internal service returned an error.")

	assert.Equal(t, http.StatusServiceUnavailable, err.Status)
	assert.Equal(t, "SERVICE_UNAVAILABLE", err.Code)
	assert.Equal(t, "Internal service returned an error.", err.Error())
	assert.Equal(t, ErrorResponse{Detail: "Internal service returned an error."}, err.Response())
}

func TestNewStatusError_UnknownStatus(t *testing.T) {
	err := NewStatusError(599, "boom")

	assert.Equal(t, 599, err.Status)
	assert.Equal(t, "ERROR", err.Code)
}

func TestNewBadRequestError_CustomCode(t *testing.T) {
	code := "INVALID_FORMAT"
	err := NewBadRequestError("Invalid request format.", &code)

	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.Equal(t, "INVALID_FORMAT", err.Code)

	assert.Equal(t, "BAD_REQUEST", NewBadRequestError("x", nil).Code)
}

func TestNewInternalServerError_DefaultMessage(t *testing.T) {
	assert.Equal(t, "Internal Server Error", NewInternalServerError("").Message)
	assert.Equal(t, "Unexpected error occurred.", NewInternalServerError("Unexpected error occurred.").Message)
}

func TestHTTPError_IsAndAs(t *testing.T) {
	wrapped := fmt.Errorf("dispatch: %w", NewServiceUnavailableError("busy"))

	assert.True(t, errors.Is(wrapped, &HTTPError{}))

	var httpErr *HTTPError
	assert.True(t, errors.As(wrapped, &httpErr))
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.Status)
}

func TestMakeUpperCaseWithUnderscores(t *testing.T) {
	assert.Equal(t, "BAD_REQUEST", MakeUpperCaseWithUnderscores("Bad Request"))
}
