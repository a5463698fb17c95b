package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/DovieW/tangerine-voice-sub000/internal/shared"
)

func TestRegistry_UnknownID(t *testing.T) {
	r := NewRegistry()

	if _, err := r.ResolveSTT("nope", Credentials{}); !errors.Is(err, shared.ErrNoProvider) {
		t.Errorf("ResolveSTT unknown = %v, want ErrNoProvider", err)
	}
	if _, err := r.ResolveLLM("nope", Credentials{}); !errors.Is(err, shared.ErrNoProvider) {
		t.Errorf("ResolveLLM unknown = %v, want ErrNoProvider", err)
	}
	if err := r.ValidateSTT("nope"); !errors.Is(err, shared.ErrNoProvider) {
		t.Errorf("ValidateSTT unknown = %v, want ErrNoProvider", err)
	}
}

func TestRegistry_NeedsAPIKey(t *testing.T) {
	r := NewRegistry()
	r.RegisterSTT("cloud", SttFactory{
		NeedsAPIKey: true,
		New: func(creds Credentials) (SttProvider, error) {
			return &stubStt{model: creds.Model}, nil
		},
	})

	if _, err := r.ResolveSTT("cloud", Credentials{}); !errors.Is(err, shared.ErrNoAPIKey) {
		t.Errorf("missing key = %v, want ErrNoAPIKey", err)
	}
	if _, err := r.ResolveSTT("cloud", Credentials{APIKey: "sk-1"}); err != nil {
		t.Errorf("with key: %v", err)
	}
	// validation does not require credentials
	if err := r.ValidateSTT("cloud"); err != nil {
		t.Errorf("ValidateSTT = %v", err)
	}
}

func TestRegistry_CachesPerCredentials(t *testing.T) {
	r := NewRegistry()
	built := 0
	r.RegisterSTT("x", SttFactory{
		New: func(creds Credentials) (SttProvider, error) {
			built++
			return &stubStt{model: creds.Model}, nil
		},
	})

	a1, _ := r.ResolveSTT("x", Credentials{Model: "a"})
	a2, _ := r.ResolveSTT("x", Credentials{Model: "a"})
	if a1 != a2 {
		t.Error("same credentials should return the cached instance")
	}
	if built != 1 {
		t.Errorf("factory ran %d times, want 1", built)
	}

	if _, err := r.ResolveSTT("x", Credentials{Model: "b"}); err != nil {
		t.Fatal(err)
	}
	if built != 2 {
		t.Errorf("different model should rebuild, factory ran %d times", built)
	}
}

func TestBuiltins(t *testing.T) {
	r := NewRegistry()
	RegisterBuiltins(r)

	stt, err := r.ResolveSTT(StubID, Credentials{Model: "dev"})
	if err != nil {
		t.Fatalf("ResolveSTT: %v", err)
	}
	res, err := stt.Transcribe(context.Background(), SttRequest{
		Samples:    make([]float32, 16000),
		SampleRate: 16000,
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text == "" {
		t.Error("stub transcript should not be empty")
	}

	llm, err := r.ResolveLLM(StubID, Credentials{})
	if err != nil {
		t.Fatalf("ResolveLLM: %v", err)
	}
	if !llm.SupportsStructuredOutput() {
		t.Error("stub llm should advertise structured output")
	}
	out, err := llm.Complete(context.Background(), CompletionRequest{UserText: "hi"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out.Content == "" {
		t.Error("stub completion should not be empty")
	}
}

func TestStub_HonorsCancelledContext(t *testing.T) {
	r := NewRegistry()
	RegisterBuiltins(r)
	stt, _ := r.ResolveSTT(StubID, Credentials{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := stt.Transcribe(ctx, SttRequest{SampleRate: 16000}); err == nil {
		t.Error("cancelled context should fail")
	}
}
