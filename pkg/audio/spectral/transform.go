// Package spectral wraps the real-valued FFT used by the correlation engine.
//
// A Transform is a plan for one window length N. Forward maps N real samples
// to N/2+1 complex bins and Inverse maps them back. The inverse is not
// normalized: Inverse(Forward(x)) == N*x.
package spectral

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/dsp/fourier"
)

// hermitianDivisor gives the number of unique bins of a real FFT (N/2 + 1).
const hermitianDivisor = 2

var (
	ErrInvalidLength  = errors.New("transform length must be at least 2")
	ErrSampleLength   = errors.New("sample buffer length does not match transform length")
	ErrSpectrumLength = errors.New("spectrum length does not match transform bins")
	ErrNotPowerOfTwo  = errors.New("window length must be a power of two")
	ErrInvalidRate    = errors.New("sample rate must be positive")
	errNilTransform   = errors.New("nil transform")
)

// Transform holds the precomputed twiddle tables for one window length.
// The underlying gonum plan keeps a work buffer, so a Transform must not be
// used from more than one goroutine at a time.
type Transform struct {
	n   int
	fft *fourier.FFT
}

// NewTransform creates a real FFT plan for windows of n samples.
func NewTransform(n int) (*Transform, error) {
	if n < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLength, n)
	}
	return &Transform{
		n:   n,
		fft: fourier.NewFFT(n),
	}, nil
}

// Bins returns the number of complex bins produced by Forward (N/2 + 1).
func (t *Transform) Bins() int {
	return t.n/hermitianDivisor + 1
}

// Forward computes the spectrum of samples. dst is reused when it has the
// right length, otherwise a new slice is allocated. samples is not modified.
func (t *Transform) Forward(dst []complex128, samples []float64) ([]complex128, error) {
	if t == nil {
		return nil, errNilTransform
	}
	if len(samples) != t.n {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSampleLength, len(samples), t.n)
	}
	if len(dst) != t.Bins() {
		dst = make([]complex128, t.Bins())
	}
	return t.fft.Coefficients(dst, samples), nil
}

// Inverse computes the real sequence for spectrum, scaled by N.
func (t *Transform) Inverse(dst []float64, spectrum []complex128) ([]float64, error) {
	if t == nil {
		return nil, errNilTransform
	}
	if len(spectrum) != t.Bins() {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSpectrumLength, len(spectrum), t.Bins())
	}
	if len(dst) != t.n {
		dst = make([]float64, t.n)
	}
	return t.fft.Sequence(dst, spectrum), nil
}

// BinFrequency returns the centre frequency in Hz of bin i of an n-point transform.
func BinFrequency(i, n, sampleRate int) float64 {
	return float64(i) * float64(sampleRate) / float64(n)
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// ValidateWindow checks a correlation window length and sample rate.
func ValidateWindow(n, sampleRate int) error {
	if n < 2 {
		return fmt.Errorf("%w: got %d", ErrInvalidLength, n)
	}
	if !IsPowerOfTwo(n) {
		return fmt.Errorf("%w: got %d", ErrNotPowerOfTwo, n)
	}
	if sampleRate <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidRate, sampleRate)
	}
	return nil
}
