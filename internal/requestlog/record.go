// Package requestlog keeps the bounded, append-only history of dictation
// cycles that makes failures diagnosable and retry possible.
package requestlog

import "time"

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
	StatusCancelled  Status = "cancelled"
)

type Entry struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
}

// Record is the bookkeeping for one cycle. Mutable while in progress, frozen
// once finalized.
type Record struct {
	ID         string     `json:"id"`
	RetryOf    string     `json:"retry_of,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Status     Status     `json:"status"`

	Profile     string `json:"profile,omitempty"`
	SttProvider string `json:"stt_provider,omitempty"`
	SttModel    string `json:"stt_model,omitempty"`
	LlmProvider string `json:"llm_provider,omitempty"`
	LlmModel    string `json:"llm_model,omitempty"`

	Skipped       bool   `json:"skipped,omitempty"`
	SkipReason    string `json:"skip_reason,omitempty"`
	RawTranscript string `json:"raw_transcript,omitempty"`
	FinalText     string `json:"final_text,omitempty"`
	ErrorMessage  string `json:"error_message,omitempty"`

	RecordingMs int64 `json:"recording_ms,omitempty"`
	SttMs       int64 `json:"stt_ms,omitempty"`
	LlmMs       int64 `json:"llm_ms,omitempty"`

	Entries []Entry `json:"entries,omitempty"`

	// Raw provider payloads, opaque, for debugging only.
	RawSttRequest  []byte `json:"raw_stt_request,omitempty"`
	RawSttResponse []byte `json:"raw_stt_response,omitempty"`
	RawLlmRequest  []byte `json:"raw_llm_request,omitempty"`
	RawLlmResponse []byte `json:"raw_llm_response,omitempty"`
}

func (r *Record) finalized() bool {
	return r.Status != StatusInProgress
}

// clone returns a deep-enough copy for safe hand-off to readers.
func (r *Record) clone() *Record {
	cp := *r
	if r.FinishedAt != nil {
		ts := *r.FinishedAt
		cp.FinishedAt = &ts
	}
	cp.Entries = append([]Entry(nil), r.Entries...)
	cp.RawSttRequest = append([]byte(nil), r.RawSttRequest...)
	cp.RawSttResponse = append([]byte(nil), r.RawSttResponse...)
	cp.RawLlmRequest = append([]byte(nil), r.RawLlmRequest...)
	cp.RawLlmResponse = append([]byte(nil), r.RawLlmResponse...)
	return &cp
}
