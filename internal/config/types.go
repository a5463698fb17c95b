package config

import "time"

// Settings is the raw configuration tree as read from the settings store.
// Profile fields are pointers: nil means "inherit from global".
type Settings struct {
	Stt      SttSettings      `mapstructure:"stt"`
	Llm      LlmSettings      `mapstructure:"llm"`
	Gate     GateSettings     `mapstructure:"gate"`
	Audio    AudioSettings    `mapstructure:"audio"`
	Prompt   PromptSettings   `mapstructure:"prompt"`
	Profiles []Profile        `mapstructure:"profiles"`
}

type SttSettings struct {
	Provider string        `mapstructure:"provider"`
	Model    string        `mapstructure:"model"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Language string        `mapstructure:"language"`
}

type LlmSettings struct {
	Enabled     bool           `mapstructure:"enabled"`
	Provider    string         `mapstructure:"provider"`
	Model       string         `mapstructure:"model"`
	APIKey      string         `mapstructure:"api_key"`
	Timeout     time.Duration  `mapstructure:"timeout"`
	Temperature float64        `mapstructure:"temperature"`
	MaxTokens   int            `mapstructure:"max_tokens"`
	Thinking    map[string]any `mapstructure:"thinking"`
}

type GateSettings struct {
	Enabled         bool    `mapstructure:"enabled"`
	MinDurationSecs float64 `mapstructure:"min_duration_secs"`
	RmsThresholdDb  float64 `mapstructure:"rms_threshold_db"`
	PeakThresholdDb float64 `mapstructure:"peak_threshold_db"`
	RequireSpeech   bool    `mapstructure:"require_speech"`
}

type AudioSettings struct {
	DownmixMono    bool    `mapstructure:"downmix_mono"`
	HighPass       bool    `mapstructure:"high_pass"`
	NoiseGateDb    float64 `mapstructure:"noise_gate_db"` // 0 disables
	ResampleTo16k  bool    `mapstructure:"resample_to_16k"`
	Normalize      bool    `mapstructure:"normalize"`
	MaxDurationSec float64 `mapstructure:"max_duration_sec"`
}

// PromptSettings holds the rewrite prompt sections. Empty content falls back
// to the built-in default for that section; main is always enabled.
type PromptSettings struct {
	Main              string `mapstructure:"main"`
	Advanced          string `mapstructure:"advanced"`
	AdvancedEnabled   bool   `mapstructure:"advanced_enabled"`
	Dictionary        string `mapstructure:"dictionary"`
	DictionaryEnabled bool   `mapstructure:"dictionary_enabled"`
}

// Profile is a named override bundle applied when the foreground application
// matches one of its program paths. Nil fields inherit.
type Profile struct {
	Name  string   `mapstructure:"name"`
	Match []string `mapstructure:"match"`

	SttProvider *string        `mapstructure:"stt_provider"`
	SttModel    *string        `mapstructure:"stt_model"`
	SttTimeout  *time.Duration `mapstructure:"stt_timeout"`
	SttLanguage *string        `mapstructure:"stt_language"`

	LlmEnabled  *bool          `mapstructure:"llm_enabled"`
	LlmProvider *string        `mapstructure:"llm_provider"`
	LlmModel    *string        `mapstructure:"llm_model"`
	LlmTimeout  *time.Duration `mapstructure:"llm_timeout"`

	GateEnabled     *bool    `mapstructure:"gate_enabled"`
	MinDurationSecs *float64 `mapstructure:"min_duration_secs"`
	RmsThresholdDb  *float64 `mapstructure:"rms_threshold_db"`
	PeakThresholdDb *float64 `mapstructure:"peak_threshold_db"`
	RequireSpeech   *bool    `mapstructure:"require_speech"`

	PromptMain        *string `mapstructure:"prompt_main"`
	PromptAdvanced    *string `mapstructure:"prompt_advanced"`
	AdvancedEnabled   *bool   `mapstructure:"advanced_enabled"`
	PromptDictionary  *string `mapstructure:"prompt_dictionary"`
	DictionaryEnabled *bool   `mapstructure:"dictionary_enabled"`
}

// AppContext identifies the foreground application a cycle targets.
type AppContext struct {
	ProgramPath string
}

// Effective is the fully resolved configuration one cycle runs with. Every
// field is concrete; no inherit ambiguity remains.
type Effective struct {
	ProfileName string

	SttProvider string
	SttModel    string
	SttAPIKey   string
	SttTimeout  time.Duration
	SttLanguage string

	RewriteEnabled bool
	LlmProvider    string
	LlmModel       string
	LlmAPIKey      string
	LlmTimeout     time.Duration
	Temperature    float64
	MaxTokens      int
	Thinking       map[string]any

	Gate  GateConfig
	Audio AudioConfig

	Prompt PromptConfig
}

type GateConfig struct {
	Enabled         bool
	MinDurationSecs float64
	RmsThresholdDb  float64
	PeakThresholdDb float64
	RequireSpeech   bool
}

type AudioConfig struct {
	DownmixMono    bool
	HighPass       bool
	NoiseGateDb    float64
	ResampleTo16k  bool
	Normalize      bool
	MaxDurationSec float64
}

// PromptConfig carries concrete section content after resolution.
type PromptConfig struct {
	Main              string
	Advanced          string
	AdvancedEnabled   bool
	Dictionary        string
	DictionaryEnabled bool
}
