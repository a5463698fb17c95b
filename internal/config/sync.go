package config

import (
	"log/slog"
	"sync"
)

// Validator checks provider identifiers at sync time so unknown ids fail
// fast instead of deep inside a cycle. The provider registry implements it.
type Validator interface {
	ValidateSTT(id string) error
	ValidateLLM(id string) error
}

// Sync snapshots the settings store into an immutable tree. A cycle in
// flight keeps the Effective it resolved at start; the next cycle picks up
// whatever Sync captured most recently.
type Sync struct {
	store     Store
	validator Validator
	log       *slog.Logger

	mu       sync.RWMutex
	snapshot Settings
}

func NewSync(store Store, validator Validator, log *slog.Logger) *Sync {
	if log == nil {
		log = slog.Default()
	}
	return &Sync{
		store:     store,
		validator: validator,
		log:       log.With("component", "config_sync"),
		snapshot:  DefaultSettings(),
	}
}

// Refresh re-reads the settings store and swaps the snapshot. Provider ids
// in the new tree are validated first; a tree naming an unknown provider is
// rejected wholesale and the previous snapshot stays in effect.
func (s *Sync) Refresh() error {
	settings, err := s.store.Load()
	if err != nil {
		return err
	}

	if s.validator != nil {
		if id := settings.Stt.Provider; id != "" {
			if err := s.validator.ValidateSTT(id); err != nil {
				return err
			}
		}
		if settings.Llm.Enabled && settings.Llm.Provider != "" {
			if err := s.validator.ValidateLLM(settings.Llm.Provider); err != nil {
				return err
			}
		}
		for _, p := range settings.Profiles {
			if p.SttProvider != nil && *p.SttProvider != "" {
				if err := s.validator.ValidateSTT(*p.SttProvider); err != nil {
					return err
				}
			}
			if p.LlmProvider != nil && *p.LlmProvider != "" {
				if err := s.validator.ValidateLLM(*p.LlmProvider); err != nil {
					return err
				}
			}
		}
	}

	s.mu.Lock()
	s.snapshot = settings
	s.mu.Unlock()

	s.log.Info("settings synced",
		"stt_provider", settings.Stt.Provider,
		"llm_provider", settings.Llm.Provider,
		"profiles", len(settings.Profiles))
	return nil
}

// Snapshot returns the current raw tree.
func (s *Sync) Snapshot() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Effective resolves the snapshot for one cycle against the given context.
func (s *Sync) Effective(appCtx AppContext) Effective {
	s.mu.RLock()
	snap := s.snapshot
	s.mu.RUnlock()
	return Resolve(snap, snap.Profiles, appCtx)
}
