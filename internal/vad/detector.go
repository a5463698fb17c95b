// Package vad exposes the speech-presence collaborator consumed by the
// quiet-audio gate. The real detector (Silero, WebRTC VAD, a vendor model)
// lives outside this repository; Energy is a built-in fallback so
// require_speech stays exercisable without one.
package vad

import "github.com/DovieW/tangerine-voice-sub000/internal/audio"

// Detector reports whether a finished recording contains speech.
type Detector interface {
	SpeechDetected(samples []float32, sampleRate int) bool
}

// Energy is a frame-energy detector: a recording counts as speech when
// enough consecutive frames exceed the activation threshold.
type Energy struct {
	// ThresholdDb is the per-frame RMS activation level in dBFS.
	ThresholdDb float64
	// MinActiveFrames is how many 20 ms frames must fire before the
	// recording counts as speech.
	MinActiveFrames int
}

// NewEnergy returns a detector tuned for close-mic dictation.
func NewEnergy() *Energy {
	return &Energy{ThresholdDb: -40, MinActiveFrames: 5}
}

func (e *Energy) SpeechDetected(samples []float32, sampleRate int) bool {
	if len(samples) == 0 || sampleRate <= 0 {
		return false
	}

	frame := sampleRate / 50 // 20 ms
	if frame < 1 {
		frame = 1
	}
	threshold := audio.DbToLinear(e.ThresholdDb)

	active := 0
	for start := 0; start < len(samples); start += frame {
		end := start + frame
		if end > len(samples) {
			end = len(samples)
		}
		if audio.Rms(samples[start:end]) >= threshold {
			active++
			if active >= e.MinActiveFrames {
				return true
			}
		}
	}
	return false
}

// Static always reports the configured answer; used in tests.
type Static struct {
	Speech bool
}

func (s Static) SpeechDetected([]float32, int) bool { return s.Speech }
