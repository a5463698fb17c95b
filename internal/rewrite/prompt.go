// Package rewrite runs the optional LLM pass that cleans up a raw
// transcript before delivery.
package rewrite

import (
	"strings"

	"github.com/DovieW/tangerine-voice-sub000/internal/config"
)

// BuildSystemPrompt assembles the system prompt from the resolved sections.
// The main section is always present; advanced and dictionary join only when
// enabled and non-empty. Sections are separated by a blank line.
func BuildSystemPrompt(cfg config.PromptConfig) string {
	sections := []string{strings.TrimSpace(cfg.Main)}
	if cfg.AdvancedEnabled && strings.TrimSpace(cfg.Advanced) != "" {
		sections = append(sections, strings.TrimSpace(cfg.Advanced))
	}
	if cfg.DictionaryEnabled && strings.TrimSpace(cfg.Dictionary) != "" {
		sections = append(sections, strings.TrimSpace(cfg.Dictionary))
	}
	return strings.Join(sections, "\n\n")
}
