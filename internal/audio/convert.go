package audio

import (
	"encoding/binary"
	"math"
)

// Resample converts input to toRate using linear interpolation. Quality is
// plenty for speech going into an STT model.
func Resample(input []float32, fromRate, toRate int) []float32 {
	if fromRate == toRate || len(input) == 0 {
		return input
	}

	ratio := float64(toRate) / float64(fromRate)
	output := make([]float32, int(math.Ceil(float64(len(input))*ratio)))

	for i := range output {
		srcPos := float64(i) / ratio
		srcIdx := int(srcPos)
		frac := float32(srcPos - float64(srcIdx))

		if srcIdx+1 < len(input) {
			output[i] = input[srcIdx]*(1-frac) + input[srcIdx+1]*frac
		} else if srcIdx < len(input) {
			output[i] = input[srcIdx]
		}
	}
	return output
}

// DownmixMono averages interleaved channels into a single channel.
func DownmixMono(interleaved []float32, channels int) []float32 {
	if channels <= 1 {
		return interleaved
	}

	frames := len(interleaved) / channels
	mono := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += interleaved[i*channels+c]
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}

// HighPass applies a one-pole high-pass filter, removing DC offset and
// low-frequency rumble below cutoffHz.
func HighPass(samples []float32, sampleRate int, cutoffHz float64) []float32 {
	if len(samples) == 0 || sampleRate <= 0 {
		return samples
	}

	rc := 1.0 / (2 * math.Pi * cutoffHz)
	dt := 1.0 / float64(sampleRate)
	alpha := float32(rc / (rc + dt))

	out := make([]float32, len(samples))
	out[0] = samples[0]
	for i := 1; i < len(samples); i++ {
		out[i] = alpha * (out[i-1] + samples[i] - samples[i-1])
	}
	return out
}

// NoiseGate zeroes windows whose RMS falls below thresholdDb. The window is
// short enough (10 ms at 16 kHz) not to clip speech onsets audibly.
func NoiseGate(samples []float32, sampleRate int, thresholdDb float64) []float32 {
	if len(samples) == 0 || thresholdDb >= 0 {
		return samples
	}

	window := sampleRate / 100
	if window < 1 {
		window = 1
	}
	threshold := DbToLinear(thresholdDb)

	out := make([]float32, len(samples))
	copy(out, samples)
	for start := 0; start < len(out); start += window {
		end := start + window
		if end > len(out) {
			end = len(out)
		}
		if Rms(out[start:end]) < threshold {
			for i := start; i < end; i++ {
				out[i] = 0
			}
		}
	}
	return out
}

// Normalize scales samples so the peak hits targetPeak (linear, 0..1).
// Silence is left untouched.
func Normalize(samples []float32, targetPeak float64) []float32 {
	peak := Peak(samples)
	if peak == 0 || targetPeak <= 0 {
		return samples
	}

	gain := float32(targetPeak / peak)
	out := make([]float32, len(samples))
	for i, s := range samples {
		v := s * gain
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		out[i] = v
	}
	return out
}

func PCMBytesToFloat32(pcm []byte) []float32 {
	ints := make([]int16, len(pcm)/2)
	for i := range ints {
		ints[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return Int16ToFloat32(ints)
}

func Float32ToPCMBytes(samples []float32) []byte {
	ints := Float32ToInt16(samples)
	pcm := make([]byte, len(ints)*2)
	for i, s := range ints {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}
	return pcm
}

func Int16ToFloat32(samples []int16) []float32 {
	result := make([]float32, len(samples))
	for i, s := range samples {
		result[i] = float32(s) / 32768.0
	}
	return result
}

func Float32ToInt16(samples []float32) []int16 {
	result := make([]int16, len(samples))
	for i, s := range samples {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		result[i] = int16(s * 32767.0)
	}
	return result
}
