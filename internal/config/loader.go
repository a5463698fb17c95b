package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Store is the settings-store collaborator polled by Sync. Implementations
// return the raw tree; inheritance is resolved later, per cycle.
type Store interface {
	Load() (Settings, error)
}

// FileStore reads the settings tree from a yaml/json/toml file via viper,
// with TANGERINE_-prefixed environment overrides. A missing file yields the
// built-in defaults rather than an error so a fresh install starts clean.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load() (Settings, error) {
	v := viper.New()
	v.SetEnvPrefix("TANGERINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	registerDefaults(v)

	settings := DefaultSettings()

	if s.path != "" {
		v.SetConfigFile(s.path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return Settings{}, fmt.Errorf("read settings %s: %w", s.path, err)
			}
		}
	}

	if err := v.Unmarshal(&settings); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	return settings, nil
}

// registerDefaults declares every scalar settings key to viper. AutomaticEnv
// only consults the environment for keys viper already knows about, so
// without this an env override for a key absent from the file is ignored.
// llm.thinking and profiles are structured values with no env form.
func registerDefaults(v *viper.Viper) {
	d := DefaultSettings()

	v.SetDefault("stt.provider", d.Stt.Provider)
	v.SetDefault("stt.model", d.Stt.Model)
	v.SetDefault("stt.api_key", d.Stt.APIKey)
	v.SetDefault("stt.timeout", d.Stt.Timeout)
	v.SetDefault("stt.language", d.Stt.Language)

	v.SetDefault("llm.enabled", d.Llm.Enabled)
	v.SetDefault("llm.provider", d.Llm.Provider)
	v.SetDefault("llm.model", d.Llm.Model)
	v.SetDefault("llm.api_key", d.Llm.APIKey)
	v.SetDefault("llm.timeout", d.Llm.Timeout)
	v.SetDefault("llm.temperature", d.Llm.Temperature)
	v.SetDefault("llm.max_tokens", d.Llm.MaxTokens)

	v.SetDefault("gate.enabled", d.Gate.Enabled)
	v.SetDefault("gate.min_duration_secs", d.Gate.MinDurationSecs)
	v.SetDefault("gate.rms_threshold_db", d.Gate.RmsThresholdDb)
	v.SetDefault("gate.peak_threshold_db", d.Gate.PeakThresholdDb)
	v.SetDefault("gate.require_speech", d.Gate.RequireSpeech)

	v.SetDefault("audio.downmix_mono", d.Audio.DownmixMono)
	v.SetDefault("audio.high_pass", d.Audio.HighPass)
	v.SetDefault("audio.noise_gate_db", d.Audio.NoiseGateDb)
	v.SetDefault("audio.resample_to_16k", d.Audio.ResampleTo16k)
	v.SetDefault("audio.normalize", d.Audio.Normalize)
	v.SetDefault("audio.max_duration_sec", d.Audio.MaxDurationSec)

	v.SetDefault("prompt.main", d.Prompt.Main)
	v.SetDefault("prompt.advanced", d.Prompt.Advanced)
	v.SetDefault("prompt.advanced_enabled", d.Prompt.AdvancedEnabled)
	v.SetDefault("prompt.dictionary", d.Prompt.Dictionary)
	v.SetDefault("prompt.dictionary_enabled", d.Prompt.DictionaryEnabled)
}

// StaticStore serves a fixed tree; used in tests and embedded setups.
type StaticStore struct {
	Settings Settings
}

func (s *StaticStore) Load() (Settings, error) {
	return s.Settings, nil
}
