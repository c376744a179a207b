package pcm

import (
	"math"
	"math/rand"
)

// Noise returns n uniformly distributed samples in [-amplitude, amplitude].
// The same seed always yields the same samples.
func Noise(n int, amplitude int16, seed int64) []int16 {
	rng := rand.New(rand.NewSource(seed))
	samples := make([]int16, n)
	span := int(amplitude)*2 + 1
	for i := range samples {
		samples[i] = int16(rng.Intn(span) - int(amplitude))
	}
	return samples
}

// Tone returns n samples of a sine at freqHz.
func Tone(n int, freqHz float64, sampleRate int, amplitude int16) []int16 {
	samples := make([]int16, n)
	for i := range samples {
		phase := 2 * math.Pi * freqHz * float64(i) / float64(sampleRate)
		samples[i] = int16(math.Round(float64(amplitude) * math.Sin(phase)))
	}
	return samples
}

// Delay shifts samples right by k, filling the head with silence. The result
// has the same length as the input; the last k samples are dropped.
func Delay(samples []int16, k int) []int16 {
	out := make([]int16, len(samples))
	if k < 0 {
		k = 0
	}
	if k >= len(samples) {
		return out
	}
	copy(out[k:], samples[:len(samples)-k])
	return out
}

// Attenuate scales samples by gain, saturating at the int16 range.
func Attenuate(samples []int16, gain float64) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		v := math.Round(float64(s) * gain)
		switch {
		case v > math.MaxInt16:
			v = math.MaxInt16
		case v < math.MinInt16:
			v = math.MinInt16
		}
		out[i] = int16(v)
	}
	return out
}

// Mix adds b onto a sample by sample, saturating. The result has len(a).
func Mix(a, b []int16) []int16 {
	out := make([]int16, len(a))
	for i := range a {
		v := int(a[i])
		if i < len(b) {
			v += int(b[i])
		}
		switch {
		case v > math.MaxInt16:
			v = math.MaxInt16
		case v < math.MinInt16:
			v = math.MinInt16
		}
		out[i] = int16(v)
	}
	return out
}
