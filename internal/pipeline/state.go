// Package pipeline owns the dictation cycle: the process-wide state
// machine, the single-cycle invariant, and the orchestration of capture,
// gating, transcription, rewrite and delivery.
package pipeline

type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseRecording    Phase = "recording"
	PhaseTranscribing Phase = "transcribing"
	PhaseRewriting    Phase = "rewriting"
	PhaseError        Phase = "error"
)

// State is the process-wide pipeline state. Exactly one exists; only the
// Machine mutates it.
type State struct {
	Phase Phase `json:"phase"`
	// ErrorMessage and RequestID are set only in PhaseError. The request ID
	// lets the UI offer a retry against the retained audio.
	ErrorMessage string `json:"error_message,omitempty"`
	RequestID    string `json:"request_id,omitempty"`
}
