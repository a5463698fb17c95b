package shared

import (
	"errors"
	"fmt"
)

var (
	ErrNotRecording      = errors.New("not recording")
	ErrAlreadyRecording  = errors.New("already recording")
	ErrRecordingTooLarge = errors.New("recording too large")
	ErrNoProvider        = errors.New("no provider")
	ErrNoAPIKey          = errors.New("no api key")
	ErrTimeout           = errors.New("timeout")
	ErrNetwork           = errors.New("network error")
	ErrRateLimited       = errors.New("rate limited")
	ErrAudioCapture      = errors.New("audio capture failed")
	ErrMissingSavedAudio = errors.New("no saved audio for request")
	ErrNotFound          = errors.New("not found")
)

// APIStatusError reports a non-2xx provider response.
type APIStatusError struct {
	Status int
}

func (e *APIStatusError) Error() string {
	return fmt.Sprintf("api error: status %d", e.Status)
}

// PipelineError ties a provider failure to the cycle that produced it so the
// UI layer can offer a retry against the retained audio.
type PipelineError struct {
	RequestID string
	Err       error
}

func (e *PipelineError) Error() string {
	if e.RequestID == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s (request %s)", e.Err.Error(), e.RequestID)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// WrapRequest attaches a request ID to err. A nil err stays nil.
func WrapRequest(requestID string, err error) error {
	if err == nil {
		return nil
	}
	return &PipelineError{RequestID: requestID, Err: err}
}

// RequestIDOf extracts the request ID carried by err, if any.
func RequestIDOf(err error) string {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.RequestID
	}
	return ""
}

// ErrorKind is the stable identifier the UI layer maps to human messages.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotRecording):
		return "not_recording"
	case errors.Is(err, ErrAlreadyRecording):
		return "already_recording"
	case errors.Is(err, ErrRecordingTooLarge):
		return "recording_too_large"
	case errors.Is(err, ErrNoProvider):
		return "no_provider"
	case errors.Is(err, ErrNoAPIKey):
		return "no_api_key"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrNetwork):
		return "network_error"
	case errors.Is(err, ErrAudioCapture):
		return "audio_capture"
	case errors.Is(err, ErrMissingSavedAudio):
		return "missing_saved_audio"
	default:
		var apiErr *APIStatusError
		if errors.As(err, &apiErr) {
			return "api_error"
		}
		return "internal"
	}
}
