package audio

import "math"

// SilenceFloorDb is the dBFS value reported for digital silence, where the
// true logarithm would be negative infinity.
const SilenceFloorDb = -96.0

// Rms returns the root-mean-square amplitude (linear, 0..1).
func Rms(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Peak returns the largest absolute amplitude (linear, 0..1).
func Peak(samples []float32) float64 {
	var peak float64
	for _, s := range samples {
		a := math.Abs(float64(s))
		if a > peak {
			peak = a
		}
	}
	return peak
}

// LinearToDb converts a linear amplitude to dBFS.
func LinearToDb(amplitude float64) float64 {
	if amplitude <= 0 {
		return SilenceFloorDb
	}
	db := 20 * math.Log10(amplitude)
	if db < SilenceFloorDb {
		return SilenceFloorDb
	}
	return db
}

// DbToLinear converts a dBFS value back to linear amplitude.
func DbToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// Stats summarizes one finished recording for the quiet-audio gate.
type Stats struct {
	DurationSecs   float64 `json:"duration_secs"`
	RMS            float64 `json:"rms"`
	Peak           float64 `json:"peak"`
	SpeechDetected bool    `json:"speech_detected"`
}

func (s Stats) RmsDb() float64  { return LinearToDb(s.RMS) }
func (s Stats) PeakDb() float64 { return LinearToDb(s.Peak) }

// Captured is the immutable result of one recording session: conditioned
// samples plus summary statistics. Retained keyed by request ID for retry.
type Captured struct {
	Samples    []float32 `json:"samples"`
	SampleRate int       `json:"sample_rate"`
	Device     string    `json:"device"`
	Stats      Stats     `json:"stats"`
}
