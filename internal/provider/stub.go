package provider

import (
	"context"
	"encoding/json"
	"fmt"
)

// StubID is the identifier of the built-in no-op providers registered at
// startup so the engine boots before any vendor client is wired.
const StubID = "stub"

// RegisterBuiltins installs the stub providers on r.
func RegisterBuiltins(r *Registry) {
	r.RegisterSTT(StubID, SttFactory{
		New: func(creds Credentials) (SttProvider, error) {
			return &stubStt{model: creds.Model}, nil
		},
	})
	r.RegisterLLM(StubID, LlmFactory{
		New: func(creds Credentials) (LlmProvider, error) {
			return &stubLlm{model: creds.Model}, nil
		},
	})
}

type stubStt struct {
	model string
}

func (s *stubStt) Name() string  { return StubID }
func (s *stubStt) Model() string { return s.model }

func (s *stubStt) Transcribe(ctx context.Context, req SttRequest) (*SttResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	secs := float64(len(req.Samples)) / float64(req.SampleRate)
	return &SttResult{
		Text:        fmt.Sprintf("[stub transcript of %.1fs of audio]", secs),
		RawResponse: []byte(`{"provider":"stub"}`),
	}, nil
}

type stubLlm struct {
	model string
}

func (s *stubLlm) Name() string                   { return StubID }
func (s *stubLlm) Model() string                  { return s.model }
func (s *stubLlm) SupportsStructuredOutput() bool { return true }

func (s *stubLlm) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, _ := json.Marshal(map[string]string{"rewritten_text": req.UserText})
	return &CompletionResult{
		Content:     string(body),
		RawResponse: body,
	}, nil
}
