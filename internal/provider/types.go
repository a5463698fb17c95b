// Package provider defines the capability contracts STT and LLM backends
// must satisfy and the registry that resolves them by identifier. The
// vendors' wire protocols live outside this repository; anything meeting
// these interfaces can be registered.
package provider

import "context"

// Credentials is the per-resolution configuration a factory constructs a
// provider instance from.
type Credentials struct {
	Model   string
	APIKey  string
	BaseURL string
}

// Info is the shared capability surface of every provider kind.
type Info interface {
	Name() string
	Model() string
}

type SttRequest struct {
	Samples    []float32
	SampleRate int
	Language   string
	Prompt     string
}

type SttResult struct {
	Text string
	// Raw request/response payloads, opaque, kept for the request log.
	RawRequest  []byte
	RawResponse []byte
}

// SttProvider transcribes one finished recording. Implementations must
// honor ctx cancellation and deadlines.
type SttProvider interface {
	Info
	Transcribe(ctx context.Context, req SttRequest) (*SttResult, error)
}

type CompletionRequest struct {
	SystemPrompt string
	UserText     string
	Temperature  float64
	MaxTokens    int
	// Thinking holds provider-specific reasoning budget parameters, passed
	// through opaquely and never interpreted by the pipeline.
	Thinking map[string]any
}

type CompletionResult struct {
	Content     string
	RawRequest  []byte
	RawResponse []byte
}

// LlmProvider rewrites a transcript. Providers that support structured
// output for their model return JSON which the rewrite coordinator parses;
// the rest return plain text.
type LlmProvider interface {
	Info
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error)
	SupportsStructuredOutput() bool
}

// SttFactory constructs STT provider instances. Factories with NeedsAPIKey
// set fail resolution fast with ErrNoAPIKey when no key is configured.
type SttFactory struct {
	New         func(creds Credentials) (SttProvider, error)
	NeedsAPIKey bool
}

type LlmFactory struct {
	New         func(creds Credentials) (LlmProvider, error)
	NeedsAPIKey bool
}
