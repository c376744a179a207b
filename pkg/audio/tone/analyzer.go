// Package tone estimates the dominant frequency of a single-tone recording.
//
// Samples are normalized to [-1, 1] before the transform and bin levels are
// reported in dB relative to full scale. This is a separate contract from the
// correlation path, which works on raw amplitude.
package tone

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	sonar "github.com/RyanBlaney/sonido-sonar/algorithms/spectral"

	"github.com/jchavanton/sign-xcorr/pkg/audio/pcm"
	"github.com/jchavanton/sign-xcorr/pkg/audio/spectral"
)

// DefaultFFTSize matches the window used for tone checks on 8 kHz recordings.
const DefaultFFTSize = 1024

// silenceFloorDB is reported for bins with zero magnitude.
const silenceFloorDB = -300.0

var (
	ErrInvalidFFTSize    = errors.New("fft size must be at least 4")
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
	ErrSampleCount       = errors.New("sample count does not match fft size")
)

// Bin is one analysed frequency bin.
type Bin struct {
	Index       int     `json:"index"`
	FrequencyHz float64 `json:"frequency_hz"`
	Magnitude   float64 `json:"magnitude"`
	LevelDB     float64 `json:"level_db"`
}

// Result describes the strongest bin of a window.
type Result struct {
	Path            string  `json:"path,omitempty"`
	SampleRate      int     `json:"sample_rate"`
	FFTSize         int     `json:"fft_size"`
	BinResolutionHz float64 `json:"bin_resolution_hz"`
	DominantBin     int     `json:"dominant_bin"`
	DominantHz      float64 `json:"dominant_hz"`
	Magnitude       float64 `json:"magnitude"`
	LevelDB         float64 `json:"level_db"`
	Bins            []Bin   `json:"bins,omitempty"`
}

// Analyzer finds the dominant tone of fixed-size windows.
type Analyzer struct {
	sampleRate int
	fftSize    int
	keepBins   bool
	fft        *sonar.FFT
	logger     logging.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithBins keeps every analysed bin in the result.
func WithBins() Option {
	return func(a *Analyzer) {
		a.keepBins = true
	}
}

// WithLogger sets the analyzer logger.
func WithLogger(logger logging.Logger) Option {
	return func(a *Analyzer) {
		a.logger = logger
	}
}

// NewAnalyzer creates an analyzer for the given sample rate and FFT size.
func NewAnalyzer(sampleRate, fftSize int, opts ...Option) (*Analyzer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSampleRate, sampleRate)
	}
	if fftSize < 4 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidFFTSize, fftSize)
	}

	a := &Analyzer{
		sampleRate: sampleRate,
		fftSize:    fftSize,
		fft:        sonar.NewFFT(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = logging.WithFields(logging.Fields{
			"component": "tone_analyzer",
		})
	}
	return a, nil
}

// AnalyzeFile loads one full window from path and analyses it. Unlike the
// correlation path, a file shorter than the FFT size is an error.
func (a *Analyzer) AnalyzeFile(path string) (*Result, error) {
	window, err := pcm.Load(path, a.fftSize,
		pcm.WithNormalization(pcm.NormalizationUnit),
		pcm.WithStrict(),
		pcm.WithLogger(a.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load tone window: %w", err)
	}

	result, err := a.Analyze(window.Samples)
	if err != nil {
		return nil, err
	}
	result.Path = path
	return result, nil
}

// Analyze scans bins 1..N/2-1 of samples for the largest magnitude. The DC
// bin is skipped so an offset cannot mask the tone.
func (a *Analyzer) Analyze(samples []float64) (*Result, error) {
	if len(samples) != a.fftSize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSampleCount, len(samples), a.fftSize)
	}

	spectrum := a.fft.Compute(samples)
	resolution := spectral.BinFrequency(1, a.fftSize, a.sampleRate)

	result := &Result{
		SampleRate:      a.sampleRate,
		FFTSize:         a.fftSize,
		BinResolutionHz: resolution,
		LevelDB:         silenceFloorDB,
	}
	if a.keepBins {
		result.Bins = make([]Bin, 0, a.fftSize/2-1)
	}

	for i := 1; i < a.fftSize/2; i++ {
		magnitude := 2 * cmplx.Abs(spectrum[i]) / float64(a.fftSize)
		bin := Bin{
			Index:       i,
			FrequencyHz: spectral.BinFrequency(i, a.fftSize, a.sampleRate),
			Magnitude:   magnitude,
			LevelDB:     toDB(magnitude),
		}
		if a.keepBins {
			result.Bins = append(result.Bins, bin)
		}
		if magnitude > result.Magnitude {
			result.DominantBin = bin.Index
			result.DominantHz = bin.FrequencyHz
			result.Magnitude = bin.Magnitude
			result.LevelDB = bin.LevelDB
		}
	}

	a.logger.Debug("Tone analysis completed", logging.Fields{
		"fft_size":        a.fftSize,
		"bin_resolution":  resolution,
		"dominant_hz":     result.DominantHz,
		"dominant_level":  result.LevelDB,
		"bins_considered": a.fftSize/2 - 1,
	})

	return result, nil
}

func toDB(magnitude float64) float64 {
	if magnitude <= 0 {
		return silenceFloorDB
	}
	return 20 * math.Log10(magnitude)
}
