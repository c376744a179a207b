package latency

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/RyanBlaney/latency-benchmark-common/logging"

	"github.com/jchavanton/sign-xcorr/pkg/audio/pcm"
	"github.com/jchavanton/sign-xcorr/pkg/audio/spectral"
	"github.com/jchavanton/sign-xcorr/pkg/audio/xcorr"
)

// DefaultMinEnergy is the smallest normalization denominator treated as signal.
const DefaultMinEnergy = 1e-9

// MeasurementEngine compares degraded recordings against their references.
// It owns a correlator, so one engine must not be shared between goroutines.
type MeasurementEngine struct {
	logger     logging.Logger
	correlator *xcorr.Correlator
	minEnergy  float64
}

// EngineConfig contains configuration for the measurement engine
type EngineConfig struct {
	MinEnergy float64
	Logger    logging.Logger
}

// NewMeasurementEngine creates a new measurement engine
func NewMeasurementEngine(config *EngineConfig) *MeasurementEngine {
	if config == nil {
		config = &EngineConfig{}
	}

	logger := config.Logger
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	minEnergy := config.MinEnergy
	if minEnergy <= 0 {
		minEnergy = DefaultMinEnergy
	}

	return &MeasurementEngine{
		logger:     logger,
		correlator: xcorr.NewCorrelator(xcorr.WithLogger(logger)),
		minEnergy:  minEnergy,
	}
}

// Compare loads one window of each file and reports the lag of the degraded
// recording and the normalized correlation coefficient at that lag. Failures
// are reported through the returned Status, never as a panic.
func (e *MeasurementEngine) Compare(ctx context.Context, degradedPath, referencePath string, windowLength, sampleRate int) *Comparison {
	comparison := &Comparison{
		DegradedPath:  degradedPath,
		ReferencePath: referencePath,
		WindowLength:  windowLength,
		SampleRate:    sampleRate,
		Timestamp:     time.Now(),
	}

	start := time.Now()
	defer func() {
		comparison.Duration = time.Since(start)
	}()

	if err := ctx.Err(); err != nil {
		return comparison.fail(StatusCancelled, err)
	}

	if err := spectral.ValidateWindow(windowLength, sampleRate); err != nil {
		return comparison.fail(StatusInvalid, fmt.Errorf("invalid comparison parameters: %w", err))
	}

	logger := e.logger.WithFields(logging.Fields{
		"degraded":  degradedPath,
		"reference": referencePath,
		"window":    windowLength,
	})

	logger.Debug("Starting comparison")

	degraded, err := e.loadWindow(comparison, degradedPath, windowLength, sampleRate)
	if err != nil {
		logger.Warn("Degraded input unavailable", logging.Fields{"error": err.Error()})
		return comparison.fail(StatusUnavailable, fmt.Errorf("failed to load degraded input: %w", err))
	}

	reference, err := e.loadWindow(comparison, referencePath, windowLength, sampleRate)
	if err != nil {
		logger.Warn("Reference input unavailable", logging.Fields{"error": err.Error()})
		return comparison.fail(StatusUnavailable, fmt.Errorf("failed to load reference input: %w", err))
	}

	if err := ctx.Err(); err != nil {
		return comparison.fail(StatusCancelled, err)
	}

	autoDegraded, err := e.correlator.Correlate(degraded, degraded)
	if err != nil {
		return comparison.fail(StatusInvalid, fmt.Errorf("degraded autocorrelation failed: %w", err))
	}
	autoReference, err := e.correlator.Correlate(reference, reference)
	if err != nil {
		return comparison.fail(StatusInvalid, fmt.Errorf("reference autocorrelation failed: %w", err))
	}
	// Reference first: a degraded copy delayed by d samples peaks at N-d.
	cross, err := e.correlator.Correlate(reference, degraded)
	if err != nil {
		return comparison.fail(StatusInvalid, fmt.Errorf("cross-correlation failed: %w", err))
	}

	comparison.AutoPeakDegraded = autoDegraded.PeakValue
	comparison.AutoPeakReference = autoReference.PeakValue
	comparison.CrossPeak = cross.PeakValue
	comparison.LagSamples = cross.LagSamples
	comparison.LagMs = (windowLength - cross.LagSamples) * 1000 / sampleRate
	comparison.DelaySamples = xcorr.ReflectLag(cross.LagSamples, windowLength)
	comparison.DelayMs = float64(comparison.DelaySamples) * 1000 / float64(sampleRate)

	denominator := math.Sqrt(math.Max(autoDegraded.PeakValue*autoReference.PeakValue, 0))
	if denominator <= e.minEnergy {
		comparison.Status = StatusUndefined
		comparison.addDiagnostic("normalization denominator %g is below %g: an input is silent", denominator, e.minEnergy)
		logger.Warn("Coefficient undefined for silent input", logging.Fields{
			"auto_peak_degraded":  autoDegraded.PeakValue,
			"auto_peak_reference": autoReference.PeakValue,
		})
		return comparison
	}

	comparison.Coefficient = cross.PeakValue / denominator
	comparison.Status = StatusOK

	logger.Debug("Comparison completed", logging.Fields{
		"lag_samples":   comparison.LagSamples,
		"lag_ms":        comparison.LagMs,
		"delay_samples": comparison.DelaySamples,
		"coefficient":   comparison.Coefficient,
	})

	return comparison
}

// loadWindow reads one raw-amplitude window and records short reads, silent
// windows and header rate mismatches as diagnostics.
func (e *MeasurementEngine) loadWindow(comparison *Comparison, path string, windowLength, sampleRate int) (*pcm.Window, error) {
	window, err := pcm.Load(path, windowLength, pcm.WithLogger(e.logger))
	if err != nil {
		return nil, err
	}

	if window.ShortRead {
		comparison.addDiagnostic("%s: short read, %d of %d samples, zero-padded",
			path, window.ValidSamples, windowLength)
	}
	if window.Energy() == 0 {
		comparison.addDiagnostic("%s: window is silent", path)
	}
	if window.SampleRate != 0 && window.SampleRate != sampleRate {
		comparison.addDiagnostic("%s: header sample rate %d differs from %d, lag in ms uses %d",
			path, window.SampleRate, sampleRate, sampleRate)
	}
	return window, nil
}
