package shared

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func NewAPIError(code, message string) *APIError {
	return &APIError{Code: code, Message: message}
}

func (e *APIError) ToHTTP(status int) *echo.HTTPError {
	return echo.NewHTTPError(status, e)
}

func BadRequest(code, message string) *echo.HTTPError {
	return NewAPIError(code, message).ToHTTP(http.StatusBadRequest)
}

func NotFound(code, message string) *echo.HTTPError {
	return NewAPIError(code, message).ToHTTP(http.StatusNotFound)
}

func Conflict(code, message string) *echo.HTTPError {
	return NewAPIError(code, message).ToHTTP(http.StatusConflict)
}

func InternalError(code, message string) *echo.HTTPError {
	return NewAPIError(code, message).ToHTTP(http.StatusInternalServerError)
}

// ToHTTPError maps a pipeline error onto the HTTP surface, preserving the
// error kind and any request ID so the UI can gate its Retry action.
func ToHTTPError(err error) *echo.HTTPError {
	apiErr := &APIError{
		Code:      ErrorKind(err),
		Message:   err.Error(),
		RequestID: RequestIDOf(err),
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNotRecording), errors.Is(err, ErrAlreadyRecording):
		status = http.StatusConflict
	case errors.Is(err, ErrMissingSavedAudio), errors.Is(err, ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrNoProvider), errors.Is(err, ErrNoAPIKey):
		status = http.StatusBadRequest
	case errors.Is(err, ErrRecordingTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrTimeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, ErrNetwork):
		status = http.StatusBadGateway
	}

	return apiErr.ToHTTP(status)
}
