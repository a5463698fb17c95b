package shared

import (
	"fmt"
	"net/http"
	"testing"
)

func TestToHTTPError_StatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not recording", ErrNotRecording, http.StatusConflict},
		{"already recording", ErrAlreadyRecording, http.StatusConflict},
		{"missing audio", ErrMissingSavedAudio, http.StatusNotFound},
		{"not found", ErrNotFound, http.StatusNotFound},
		{"no provider", ErrNoProvider, http.StatusBadRequest},
		{"no api key", ErrNoAPIKey, http.StatusBadRequest},
		{"recording too large", ErrRecordingTooLarge, http.StatusRequestEntityTooLarge},
		{"wrapped too large", fmt.Errorf("capture: %w", ErrRecordingTooLarge), http.StatusRequestEntityTooLarge},
		{"timeout", ErrTimeout, http.StatusGatewayTimeout},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests},
		{"network", ErrNetwork, http.StatusBadGateway},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			he := ToHTTPError(tt.err)
			if he.Code != tt.want {
				t.Errorf("ToHTTPError(%v).Code = %d, want %d", tt.err, he.Code, tt.want)
			}
		})
	}
}

func TestToHTTPError_CarriesKindAndRequestID(t *testing.T) {
	err := WrapRequest("req_abc", fmt.Errorf("stt: %w", ErrTimeout))
	he := ToHTTPError(err)

	apiErr, ok := he.Message.(*APIError)
	if !ok {
		t.Fatalf("message = %T, want *APIError", he.Message)
	}
	if apiErr.Code != "timeout" {
		t.Errorf("code = %q", apiErr.Code)
	}
	if apiErr.RequestID != "req_abc" {
		t.Errorf("request id = %q", apiErr.RequestID)
	}
}
