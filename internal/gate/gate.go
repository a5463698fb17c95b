// Package gate decides whether a finished recording is worth transcribing.
package gate

import (
	"fmt"

	"github.com/DovieW/tangerine-voice-sub000/internal/audio"
	"github.com/DovieW/tangerine-voice-sub000/internal/config"
)

type Decision int

const (
	Transcribe Decision = iota
	Skip
)

func (d Decision) String() string {
	if d == Skip {
		return "skip"
	}
	return "transcribe"
}

// Result carries the decision and a human-readable reason for the request log.
type Result struct {
	Decision Decision
	Reason   string
}

// Decide is a pure function over recording statistics and gate thresholds.
//
// A recording is skipped when the gate is enabled and it is shorter than the
// minimum duration, or quieter than both the RMS and peak floors. When
// require_speech is set, a positive speech-presence signal overrides a quiet
// reading so real but soft speech is not discarded; absent that signal,
// quietness skips regardless.
func Decide(stats audio.Stats, cfg config.GateConfig) Result {
	if !cfg.Enabled {
		return Result{Decision: Transcribe, Reason: "gate disabled"}
	}

	if stats.DurationSecs < cfg.MinDurationSecs {
		return Result{
			Decision: Skip,
			Reason: fmt.Sprintf("too short: %.2fs < %.2fs",
				stats.DurationSecs, cfg.MinDurationSecs),
		}
	}

	rmsDb := stats.RmsDb()
	peakDb := stats.PeakDb()
	quiet := rmsDb < cfg.RmsThresholdDb || peakDb < cfg.PeakThresholdDb

	if !quiet {
		return Result{Decision: Transcribe, Reason: "levels above thresholds"}
	}

	if cfg.RequireSpeech && stats.SpeechDetected {
		return Result{Decision: Transcribe, Reason: "quiet but speech detected"}
	}

	return Result{
		Decision: Skip,
		Reason: fmt.Sprintf("quiet: rms %.1f dBFS (floor %.1f), peak %.1f dBFS (floor %.1f)",
			rmsDb, cfg.RmsThresholdDb, peakDb, cfg.PeakThresholdDb),
	}
}
