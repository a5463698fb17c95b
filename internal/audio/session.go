package audio

import (
	"sync"
	"time"

	"github.com/DovieW/tangerine-voice-sub000/internal/config"
	"github.com/DovieW/tangerine-voice-sub000/internal/shared"
)

const (
	targetSampleRate = 16000
	normalizePeak    = 0.95
	highPassCutoffHz = 80.0

	// level telemetry cadence in fractions of a second
	telemetryHz = 10
	waveBuckets = 16
)

// LevelUpdate is the best-effort telemetry streamed to the UI during capture.
type LevelUpdate struct {
	Seq     uint64    `json:"seq"`
	RMS     float64   `json:"rms"`
	Peak    float64   `json:"peak"`
	WaveSeq uint64    `json:"wave_seq,omitempty"`
	Mins    []float64 `json:"mins,omitempty"`
	Maxes   []float64 `json:"maxes,omitempty"`
}

// LevelFunc receives telemetry. It must not block; dropped updates are fine.
type LevelFunc func(LevelUpdate)

// SpeechFunc reports whether conditioned audio contains speech. The detector
// itself is an external collaborator; the session only carries the flag.
type SpeechFunc func(samples []float32, sampleRate int) bool

// CaptureSession accumulates raw samples for the duration of one recording
// and, on Stop, applies the configured conditioning chain and computes the
// summary statistics the quiet-audio gate consumes.
type CaptureSession struct {
	cfg        config.AudioConfig
	device     string
	sampleRate int
	channels   int
	onLevel    LevelFunc

	mu        sync.Mutex
	samples   []float32
	startedAt time.Time
	closed    bool

	maxSamples int

	seq       uint64
	waveSeq   uint64
	pending   []float32
	batchSize int
}

func NewCaptureSession(cfg config.AudioConfig, device string, sampleRate, channels int, onLevel LevelFunc) *CaptureSession {
	if sampleRate <= 0 {
		sampleRate = targetSampleRate
	}
	if channels <= 0 {
		channels = 1
	}

	maxSamples := int(cfg.MaxDurationSec * float64(sampleRate) * float64(channels))
	if maxSamples <= 0 {
		maxSamples = int(config.DefaultMaxDurationSec * float64(sampleRate) * float64(channels))
	}

	return &CaptureSession{
		cfg:        cfg,
		device:     device,
		sampleRate: sampleRate,
		channels:   channels,
		onLevel:    onLevel,
		startedAt:  time.Now(),
		maxSamples: maxSamples,
		batchSize:  sampleRate * channels / telemetryHz,
	}
}

func (s *CaptureSession) Device() string { return s.device }

func (s *CaptureSession) StartedAt() time.Time { return s.startedAt }

// Append adds raw interleaved samples. Telemetry is emitted inline at a
// steady cadence; the callback must never block capture.
func (s *CaptureSession) Append(samples []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return shared.ErrNotRecording
	}
	if len(s.samples)+len(samples) > s.maxSamples {
		return shared.ErrRecordingTooLarge
	}

	s.samples = append(s.samples, samples...)

	if s.onLevel != nil {
		s.pending = append(s.pending, samples...)
		for len(s.pending) >= s.batchSize {
			chunk := s.pending[:s.batchSize]
			s.pending = s.pending[s.batchSize:]
			s.emitLevel(chunk)
		}
	}
	return nil
}

func (s *CaptureSession) emitLevel(chunk []float32) {
	s.seq++
	s.waveSeq++

	update := LevelUpdate{
		Seq:     s.seq,
		RMS:     Rms(chunk),
		Peak:    Peak(chunk),
		WaveSeq: s.waveSeq,
		Mins:    make([]float64, 0, waveBuckets),
		Maxes:   make([]float64, 0, waveBuckets),
	}

	step := len(chunk) / waveBuckets
	if step < 1 {
		step = 1
	}
	for start := 0; start < len(chunk) && len(update.Mins) < waveBuckets; start += step {
		end := start + step
		if end > len(chunk) {
			end = len(chunk)
		}
		lo, hi := float64(chunk[start]), float64(chunk[start])
		for _, v := range chunk[start:end] {
			f := float64(v)
			if f < lo {
				lo = f
			}
			if f > hi {
				hi = f
			}
		}
		update.Mins = append(update.Mins, lo)
		update.Maxes = append(update.Maxes, hi)
	}

	s.onLevel(update)
}

// Duration is the wall-clock length of the accumulated audio.
func (s *CaptureSession) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	frames := len(s.samples) / s.channels
	return time.Duration(float64(frames) / float64(s.sampleRate) * float64(time.Second))
}

// Stop closes the session, runs the conditioning chain in fixed order
// (downmix, high-pass, noise gate, resample, normalize) and returns the
// immutable captured audio with its summary statistics.
func (s *CaptureSession) Stop(detectSpeech SpeechFunc) (Captured, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Captured{}, shared.ErrNotRecording
	}
	s.closed = true

	samples := s.samples
	rate := s.sampleRate

	if s.cfg.DownmixMono {
		samples = DownmixMono(samples, s.channels)
	} else if s.channels > 1 {
		// stats and STT both want mono; downmix is unconditional past here
		samples = DownmixMono(samples, s.channels)
	}
	if s.cfg.HighPass {
		samples = HighPass(samples, rate, highPassCutoffHz)
	}
	if s.cfg.NoiseGateDb < 0 {
		samples = NoiseGate(samples, rate, s.cfg.NoiseGateDb)
	}
	if s.cfg.ResampleTo16k && rate != targetSampleRate {
		samples = Resample(samples, rate, targetSampleRate)
		rate = targetSampleRate
	}
	if s.cfg.Normalize {
		samples = Normalize(samples, normalizePeak)
	}

	stats := Stats{
		DurationSecs: float64(len(samples)) / float64(rate),
		RMS:          Rms(samples),
		Peak:         Peak(samples),
	}
	if detectSpeech != nil {
		stats.SpeechDetected = detectSpeech(samples, rate)
	}

	return Captured{
		Samples:    samples,
		SampleRate: rate,
		Device:     s.device,
		Stats:      stats,
	}, nil
}

// Cancel discards the session's accumulated audio.
func (s *CaptureSession) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.samples = nil
	s.pending = nil
}
