package provider

import (
	"fmt"
	"sync"

	"github.com/DovieW/tangerine-voice-sub000/internal/shared"
)

// Registry maps provider identifiers to factories and caches constructed
// instances per credentials, so repeated cycles against the same
// configuration reuse one client.
type Registry struct {
	mu       sync.RWMutex
	stt      map[string]SttFactory
	llm      map[string]LlmFactory
	sttCache map[string]SttProvider
	llmCache map[string]LlmProvider
}

func NewRegistry() *Registry {
	return &Registry{
		stt:      make(map[string]SttFactory),
		llm:      make(map[string]LlmFactory),
		sttCache: make(map[string]SttProvider),
		llmCache: make(map[string]LlmProvider),
	}
}

func (r *Registry) RegisterSTT(id string, f SttFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stt[id] = f
}

func (r *Registry) RegisterLLM(id string, f LlmFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llm[id] = f
}

// ValidateSTT reports whether id is resolvable, without constructing it.
// Called at config-sync time so unknown ids fail before a cycle starts.
func (r *Registry) ValidateSTT(id string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.stt[id]; !ok {
		return fmt.Errorf("stt provider %q: %w", id, shared.ErrNoProvider)
	}
	return nil
}

func (r *Registry) ValidateLLM(id string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.llm[id]; !ok {
		return fmt.Errorf("llm provider %q: %w", id, shared.ErrNoProvider)
	}
	return nil
}

// ResolveSTT returns a constructed provider for id, cached per credentials.
func (r *Registry) ResolveSTT(id string, creds Credentials) (SttProvider, error) {
	r.mu.RLock()
	f, ok := r.stt[id]
	if ok {
		if p, hit := r.sttCache[cacheKey(id, creds)]; hit {
			r.mu.RUnlock()
			return p, nil
		}
	}
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("stt provider %q: %w", id, shared.ErrNoProvider)
	}
	if f.NeedsAPIKey && creds.APIKey == "" {
		return nil, fmt.Errorf("stt provider %q: %w", id, shared.ErrNoAPIKey)
	}

	p, err := f.New(creds)
	if err != nil {
		return nil, fmt.Errorf("stt provider %q: %w", id, err)
	}

	r.mu.Lock()
	r.sttCache[cacheKey(id, creds)] = p
	r.mu.Unlock()
	return p, nil
}

func (r *Registry) ResolveLLM(id string, creds Credentials) (LlmProvider, error) {
	r.mu.RLock()
	f, ok := r.llm[id]
	if ok {
		if p, hit := r.llmCache[cacheKey(id, creds)]; hit {
			r.mu.RUnlock()
			return p, nil
		}
	}
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("llm provider %q: %w", id, shared.ErrNoProvider)
	}
	if f.NeedsAPIKey && creds.APIKey == "" {
		return nil, fmt.Errorf("llm provider %q: %w", id, shared.ErrNoAPIKey)
	}

	p, err := f.New(creds)
	if err != nil {
		return nil, fmt.Errorf("llm provider %q: %w", id, err)
	}

	r.mu.Lock()
	r.llmCache[cacheKey(id, creds)] = p
	r.mu.Unlock()
	return p, nil
}

func cacheKey(id string, creds Credentials) string {
	return id + "\x00" + creds.Model + "\x00" + creds.APIKey + "\x00" + creds.BaseURL
}
