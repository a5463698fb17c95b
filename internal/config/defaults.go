package config

import "time"

// Built-in defaults, the last stop of the Profile -> Global -> built-in
// fallback chain.
const (
	DefaultSttProvider = "stub"
	DefaultLlmProvider = "stub"

	DefaultSttTimeout = 30 * time.Second
	DefaultLlmTimeout = 30 * time.Second

	DefaultMinDurationSecs = 0.3
	DefaultRmsThresholdDb  = -45.0
	DefaultPeakThresholdDb = -30.0

	DefaultMaxDurationSec = 300.0

	DefaultPromptMain = "You clean up dictated text. Fix punctuation, casing, and obvious " +
		"transcription mistakes without changing the meaning. Reply with the corrected text only."
	DefaultPromptAdvanced = "Preserve the speaker's tone. Expand spoken shorthand " +
		"(\"new line\", \"comma\") into the symbols they name."
	DefaultPromptDictionary = "Prefer the user's personal dictionary spellings when a word " +
		"is ambiguous."
)

// DefaultSettings is the global tree used when the settings store has no
// value for a field.
func DefaultSettings() Settings {
	return Settings{
		Stt: SttSettings{
			Provider: DefaultSttProvider,
			Timeout:  DefaultSttTimeout,
		},
		Llm: LlmSettings{
			Provider: DefaultLlmProvider,
			Timeout:  DefaultLlmTimeout,
		},
		Gate: GateSettings{
			Enabled:         true,
			MinDurationSecs: DefaultMinDurationSecs,
			RmsThresholdDb:  DefaultRmsThresholdDb,
			PeakThresholdDb: DefaultPeakThresholdDb,
		},
		Audio: AudioSettings{
			DownmixMono:    true,
			ResampleTo16k:  true,
			MaxDurationSec: DefaultMaxDurationSec,
		},
	}
}
