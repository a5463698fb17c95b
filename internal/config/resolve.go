package config

import (
	"path/filepath"
	"strings"
	"time"
)

// MatchProfile returns the first profile whose program-path list matches the
// context, or nil when none does. Matching is case-insensitive and accepts
// either a full path or a bare executable name.
func MatchProfile(profiles []Profile, appCtx AppContext) *Profile {
	if appCtx.ProgramPath == "" {
		return nil
	}
	program := strings.ToLower(appCtx.ProgramPath)
	base := filepath.Base(program)

	for i := range profiles {
		for _, pattern := range profiles[i].Match {
			p := strings.ToLower(pattern)
			if p == program || p == base || filepath.Base(p) == base {
				return &profiles[i]
			}
		}
	}
	return nil
}

// Resolve produces the effective configuration for one cycle by overlaying
// the matched profile's non-nil fields on the global settings, falling back
// to built-in defaults for anything still unset. Resolution is total: every
// Effective field is concrete on return.
func Resolve(global Settings, profiles []Profile, appCtx AppContext) Effective {
	p := MatchProfile(profiles, appCtx)

	eff := Effective{
		SttProvider: fallback(global.Stt.Provider, DefaultSttProvider),
		SttModel:    global.Stt.Model,
		SttAPIKey:   global.Stt.APIKey,
		SttTimeout:  fallbackDuration(global.Stt.Timeout, DefaultSttTimeout),
		SttLanguage: global.Stt.Language,

		RewriteEnabled: global.Llm.Enabled,
		LlmProvider:    fallback(global.Llm.Provider, DefaultLlmProvider),
		LlmModel:       global.Llm.Model,
		LlmAPIKey:      global.Llm.APIKey,
		LlmTimeout:     fallbackDuration(global.Llm.Timeout, DefaultLlmTimeout),
		Temperature:    global.Llm.Temperature,
		MaxTokens:      global.Llm.MaxTokens,
		Thinking:       global.Llm.Thinking,

		Gate: GateConfig{
			Enabled:         global.Gate.Enabled,
			MinDurationSecs: global.Gate.MinDurationSecs,
			RmsThresholdDb:  global.Gate.RmsThresholdDb,
			PeakThresholdDb: global.Gate.PeakThresholdDb,
			RequireSpeech:   global.Gate.RequireSpeech,
		},
		Audio: AudioConfig{
			DownmixMono:    global.Audio.DownmixMono,
			HighPass:       global.Audio.HighPass,
			NoiseGateDb:    global.Audio.NoiseGateDb,
			ResampleTo16k:  global.Audio.ResampleTo16k,
			Normalize:      global.Audio.Normalize,
			MaxDurationSec: fallbackFloat(global.Audio.MaxDurationSec, DefaultMaxDurationSec),
		},
		Prompt: PromptConfig{
			Main:              fallback(global.Prompt.Main, DefaultPromptMain),
			Advanced:          fallback(global.Prompt.Advanced, DefaultPromptAdvanced),
			AdvancedEnabled:   global.Prompt.AdvancedEnabled,
			Dictionary:        fallback(global.Prompt.Dictionary, DefaultPromptDictionary),
			DictionaryEnabled: global.Prompt.DictionaryEnabled,
		},
	}

	if eff.Gate.RmsThresholdDb == 0 {
		eff.Gate.RmsThresholdDb = DefaultRmsThresholdDb
	}
	if eff.Gate.PeakThresholdDb == 0 {
		eff.Gate.PeakThresholdDb = DefaultPeakThresholdDb
	}
	if eff.Gate.MinDurationSecs == 0 {
		eff.Gate.MinDurationSecs = DefaultMinDurationSecs
	}

	if p == nil {
		return eff
	}

	eff.ProfileName = p.Name
	overlayString(&eff.SttProvider, p.SttProvider)
	overlayString(&eff.SttModel, p.SttModel)
	overlayDuration(&eff.SttTimeout, p.SttTimeout)
	overlayString(&eff.SttLanguage, p.SttLanguage)

	overlayBool(&eff.RewriteEnabled, p.LlmEnabled)
	overlayString(&eff.LlmProvider, p.LlmProvider)
	overlayString(&eff.LlmModel, p.LlmModel)
	overlayDuration(&eff.LlmTimeout, p.LlmTimeout)

	overlayBool(&eff.Gate.Enabled, p.GateEnabled)
	overlayFloat(&eff.Gate.MinDurationSecs, p.MinDurationSecs)
	overlayFloat(&eff.Gate.RmsThresholdDb, p.RmsThresholdDb)
	overlayFloat(&eff.Gate.PeakThresholdDb, p.PeakThresholdDb)
	overlayBool(&eff.Gate.RequireSpeech, p.RequireSpeech)

	overlayString(&eff.Prompt.Main, p.PromptMain)
	overlayString(&eff.Prompt.Advanced, p.PromptAdvanced)
	overlayBool(&eff.Prompt.AdvancedEnabled, p.AdvancedEnabled)
	overlayString(&eff.Prompt.Dictionary, p.PromptDictionary)
	overlayBool(&eff.Prompt.DictionaryEnabled, p.DictionaryEnabled)

	return eff
}

func fallback(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func fallbackDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func fallbackFloat(v, def float64) float64 {
	if v <= 0 {
		return def
	}
	return v
}

func overlayString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func overlayBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func overlayFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func overlayDuration(dst *time.Duration, v *time.Duration) {
	if v != nil {
		*dst = *v
	}
}
