// Package xcorr computes circular cross-correlation of two equal-length
// sample windows in the frequency domain and locates its peak.
//
// For windows a and b of length N the correlation sequence is
//
//	r[x] = sum_n a[(n+x) mod N] * b[n]
//
// scaled by N (the inverse transform is not normalized). If b is a copy of a
// delayed by d samples, the peak sits at index (N - d) mod N. Lags of N or more
// wrap around and cannot be told apart from shorter ones; N has to be chosen
// comfortably larger than twice the largest expected lag.
package xcorr

import (
	"errors"
	"fmt"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/jchavanton/sign-xcorr/pkg/audio/pcm"
	"github.com/jchavanton/sign-xcorr/pkg/audio/spectral"
)

var (
	ErrEmptyWindow    = errors.New("empty sample window")
	ErrLengthMismatch = errors.New("sample windows differ in length")
)

// Result is the peak of one correlation sequence.
type Result struct {
	PeakValue    float64 `json:"peak_value"`
	LagSamples   int     `json:"lag_samples"`
	WindowLength int     `json:"window_length"`
	Unavailable  bool    `json:"unavailable,omitempty"`
}

// Correlator computes correlation sequences. It keeps one transform plan per
// window length and is not safe for concurrent use; give each worker its own.
type Correlator struct {
	logger     logging.Logger
	transforms map[int]*spectral.Transform
}

// Option configures a Correlator.
type Option func(*Correlator)

// WithLogger sets the logger used by the correlator.
func WithLogger(logger logging.Logger) Option {
	return func(c *Correlator) {
		c.logger = logger
	}
}

// NewCorrelator creates a correlator with an empty plan cache.
func NewCorrelator(opts ...Option) *Correlator {
	c := &Correlator{
		transforms: make(map[int]*spectral.Transform),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.NewDefaultLogger()
	}
	return c
}

// Correlate correlates two loaded windows. A nil window stands for an input
// that could not be loaded: the call returns a zero result flagged
// Unavailable without transforming anything.
func (c *Correlator) Correlate(a, b *pcm.Window) (*Result, error) {
	if a == nil || b == nil {
		c.logger.Debug("Skipping correlation of unavailable window", logging.Fields{
			"a_available": a != nil,
			"b_available": b != nil,
		})
		return &Result{Unavailable: true}, nil
	}
	return c.CorrelateSamples(a.Samples, b.Samples)
}

// CorrelateSamples returns the peak of the correlation sequence of a and b.
func (c *Correlator) CorrelateSamples(a, b []float64) (*Result, error) {
	seq, err := c.Sequence(a, b)
	if err != nil {
		return nil, err
	}

	peak, lag := FindPeak(seq)

	c.logger.Debug("Correlation computed", logging.Fields{
		"window_length": len(seq),
		"peak_value":    peak,
		"lag_samples":   lag,
	})

	return &Result{
		PeakValue:    peak,
		LagSamples:   lag,
		WindowLength: len(seq),
	}, nil
}

// Sequence returns the full correlation sequence of a and b. Neither input is
// modified; every buffer used is private to the call.
func (c *Correlator) Sequence(a, b []float64) ([]float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return nil, ErrEmptyWindow
	}
	if len(a) != len(b) {
		return nil, fmt.Errorf("%w: %d != %d", ErrLengthMismatch, len(a), len(b))
	}

	transform, err := c.transform(len(a))
	if err != nil {
		return nil, err
	}

	specA, err := transform.Forward(nil, a)
	if err != nil {
		return nil, fmt.Errorf("failed to transform first window: %w", err)
	}
	specB, err := transform.Forward(nil, b)
	if err != nil {
		return nil, fmt.Errorf("failed to transform second window: %w", err)
	}

	// specB is our own copy, so conjugating in place never touches the caller.
	for i := range specB {
		specB[i] = complex(real(specB[i]), -imag(specB[i]))
	}

	cross := make([]complex128, len(specA))
	for i := range specA {
		cross[i] = specA[i] * specB[i]
	}

	seq, err := transform.Inverse(nil, cross)
	if err != nil {
		return nil, fmt.Errorf("failed to invert cross spectrum: %w", err)
	}
	return seq, nil
}

// FindPeak scans seq in ascending order and returns the largest value and its
// index. Ties keep the first index reached. An empty sequence yields (0, 0).
func FindPeak(seq []float64) (float64, int) {
	if len(seq) == 0 {
		return 0, 0
	}
	peak, lag := seq[0], 0
	for i := 1; i < len(seq); i++ {
		if seq[i] > peak {
			peak = seq[i]
			lag = i
		}
	}
	return peak, lag
}

// ReflectLag maps the lag of Correlate(a, b) to the lag of Correlate(b, a).
func ReflectLag(lag, n int) int {
	if n <= 0 {
		return 0
	}
	return (n - lag%n) % n
}

func (c *Correlator) transform(n int) (*spectral.Transform, error) {
	if t, ok := c.transforms[n]; ok {
		return t, nil
	}
	t, err := spectral.NewTransform(n)
	if err != nil {
		return nil, fmt.Errorf("failed to create transform: %w", err)
	}
	c.transforms[n] = t
	return t, nil
}
