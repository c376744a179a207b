package latency

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/jchavanton/sign-xcorr/pkg/audio/spectral"
)

// Status is the outcome of a single comparison.
type Status string

const (
	// StatusOK means lag and coefficient are both defined.
	StatusOK Status = "ok"
	// StatusUndefined means one input carries no energy, so no coefficient exists.
	StatusUndefined Status = "undefined"
	// StatusUnavailable means an input could not be opened or decoded.
	StatusUnavailable Status = "unavailable"
	// StatusInvalid means the comparison parameters were rejected.
	StatusInvalid Status = "invalid"
	// StatusCancelled means the context ended before the comparison ran.
	StatusCancelled Status = "cancelled"
)

// Statuses lists every status in report order.
var Statuses = []Status{StatusOK, StatusUndefined, StatusUnavailable, StatusInvalid, StatusCancelled}

// Comparison is the result of comparing a degraded recording against its reference.
type Comparison struct {
	Name          string `json:"name,omitempty" yaml:"name,omitempty"`
	DegradedPath  string `json:"degraded" yaml:"degraded"`
	ReferencePath string `json:"reference" yaml:"reference"`
	WindowLength  int    `json:"window_length" yaml:"window_length"`
	SampleRate    int    `json:"sample_rate" yaml:"sample_rate"`

	// Raw peak values of the three correlations.
	CrossPeak         float64 `json:"cross_peak" yaml:"cross_peak"`
	AutoPeakDegraded  float64 `json:"auto_peak_degraded" yaml:"auto_peak_degraded"`
	AutoPeakReference float64 `json:"auto_peak_reference" yaml:"auto_peak_reference"`

	// LagSamples is the index of the cross-correlation peak. LagMs is
	// (N - LagSamples) * 1000 / rate in integer milliseconds, so a peak at
	// index 0 reports a full window.
	LagSamples int `json:"lag_samples" yaml:"lag_samples"`
	LagMs      int `json:"lag_ms" yaml:"lag_ms"`

	// DelaySamples is the same lag folded into [0, N).
	DelaySamples int     `json:"delay_samples" yaml:"delay_samples"`
	DelayMs      float64 `json:"delay_ms" yaml:"delay_ms"`

	Coefficient float64 `json:"coefficient" yaml:"coefficient"`
	Status      Status  `json:"status" yaml:"status"`

	Diagnostics  []string      `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
	Error        error         `json:"-" yaml:"-"`
	ErrorMessage string        `json:"error,omitempty" yaml:"error,omitempty"`
	Duration     time.Duration `json:"duration" yaml:"duration"`
	Timestamp    time.Time     `json:"timestamp" yaml:"timestamp"`
}

// OK reports whether both lag and coefficient are defined.
func (c *Comparison) OK() bool {
	return c != nil && c.Status == StatusOK
}

func (c *Comparison) addDiagnostic(format string, args ...any) {
	c.Diagnostics = append(c.Diagnostics, fmt.Sprintf(format, args...))
}

func (c *Comparison) fail(status Status, err error) *Comparison {
	c.Status = status
	c.Error = err
	if err != nil {
		c.ErrorMessage = err.Error()
	}
	return c
}

// Pair names one degraded/reference comparison in a batch file. Zero window
// length or sample rate fall back to the batch defaults.
type Pair struct {
	Name         string `json:"name" yaml:"name"`
	Degraded     string `json:"degraded" yaml:"degraded"`
	Reference    string `json:"reference" yaml:"reference"`
	WindowLength int    `json:"window_length,omitempty" yaml:"window_length,omitempty"`
	SampleRate   int    `json:"sample_rate,omitempty" yaml:"sample_rate,omitempty"`
}

// Label returns the pair name, or a name derived from the degraded file.
func (p *Pair) Label() string {
	if p.Name != "" {
		return p.Name
	}
	return strings.TrimSuffix(filepath.Base(p.Degraded), filepath.Ext(p.Degraded))
}

// PairSet is the content of a batch file.
type PairSet struct {
	Version     string    `json:"version" yaml:"version"`
	Description string    `json:"description" yaml:"description"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at"`

	// Defaults applied to pairs that leave the field unset.
	WindowLength int `json:"window_length,omitempty" yaml:"window_length,omitempty"`
	SampleRate   int `json:"sample_rate,omitempty" yaml:"sample_rate,omitempty"`

	Pairs []*Pair `json:"pairs" yaml:"pairs"`
}

// ApplyDefaults fills unset per-pair parameters from the set, then from the
// given fallbacks.
func (s *PairSet) ApplyDefaults(windowLength, sampleRate int) {
	if s.WindowLength == 0 {
		s.WindowLength = windowLength
	}
	if s.SampleRate == 0 {
		s.SampleRate = sampleRate
	}
	for _, pair := range s.Pairs {
		if pair == nil {
			continue
		}
		if pair.WindowLength == 0 {
			pair.WindowLength = s.WindowLength
		}
		if pair.SampleRate == 0 {
			pair.SampleRate = s.SampleRate
		}
	}
}

// Validate reports every invalid pair at once.
func (s *PairSet) Validate() error {
	if len(s.Pairs) == 0 {
		return fmt.Errorf("at least one pair is required")
	}

	var result *multierror.Error
	seen := make(map[string]int, len(s.Pairs))
	for i, pair := range s.Pairs {
		if pair == nil {
			result = multierror.Append(result, fmt.Errorf("pair %d: entry is empty", i))
			continue
		}
		if err := validatePair(pair); err != nil {
			result = multierror.Append(result, fmt.Errorf("pair %d (%s): %w", i, pair.Label(), err))
		}
		if pair.Name != "" {
			if prev, ok := seen[pair.Name]; ok {
				result = multierror.Append(result,
					fmt.Errorf("pair %d: name %q already used by pair %d", i, pair.Name, prev))
			}
			seen[pair.Name] = i
		}
	}
	return result.ErrorOrNil()
}

func validatePair(pair *Pair) error {
	if pair.Degraded == "" {
		return fmt.Errorf("degraded path is required")
	}
	if pair.Reference == "" {
		return fmt.Errorf("reference path is required")
	}
	// Unset parameters are filled in later from the batch defaults.
	if pair.WindowLength != 0 || pair.SampleRate != 0 {
		window, rate := pair.WindowLength, pair.SampleRate
		if window == 0 {
			window = 2
		}
		if rate == 0 {
			rate = 1
		}
		if err := spectral.ValidateWindow(window, rate); err != nil {
			return err
		}
	}
	return nil
}
