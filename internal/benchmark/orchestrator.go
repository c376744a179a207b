package benchmark

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/sourcegraph/conc/pool"

	"github.com/jchavanton/sign-xcorr/internal/latency"
)

// Settings controls a batch run
type Settings struct {
	MaxConcurrency int
	Timeout        time.Duration
	MinEnergy      float64

	// Defaults for pairs that do not set their own parameters.
	WindowLength int
	SampleRate   int
}

// BatchSummary is the outcome of a batch run, in pair order
type BatchSummary struct {
	Comparisons   []*latency.Comparison `json:"comparisons" yaml:"comparisons"`
	Metrics       *BatchMetrics         `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	StartTime     time.Time             `json:"start_time" yaml:"start_time"`
	EndTime       time.Time             `json:"end_time" yaml:"end_time"`
	TotalDuration time.Duration         `json:"total_duration" yaml:"total_duration"`
	Successful    int                   `json:"successful" yaml:"successful"`
	Failed        int                   `json:"failed" yaml:"failed"`
}

// Orchestrator runs pair comparisons on a bounded worker pool
type Orchestrator struct {
	settings *Settings
	logger   logging.Logger
	metrics  *MetricsCalculator
}

// NewOrchestrator creates a new batch orchestrator
func NewOrchestrator(settings *Settings, logger logging.Logger) (*Orchestrator, error) {
	if settings == nil {
		return nil, fmt.Errorf("batch settings are required")
	}
	if settings.MaxConcurrency <= 0 {
		return nil, fmt.Errorf("max concurrency must be positive, got %d", settings.MaxConcurrency)
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &Orchestrator{
		settings: settings,
		logger:   logger,
		metrics:  NewMetricsCalculator(logger),
	}, nil
}

// Run compares every pair of the set. A failing pair is recorded in its
// comparison and never stops the rest of the batch.
func (o *Orchestrator) Run(ctx context.Context, set *latency.PairSet) (*BatchSummary, error) {
	if set == nil || len(set.Pairs) == 0 {
		return nil, fmt.Errorf("no pairs to compare")
	}

	set.ApplyDefaults(o.settings.WindowLength, o.settings.SampleRate)

	startTime := time.Now()

	o.logger.Debug("Starting batch", logging.Fields{
		"pairs":           len(set.Pairs),
		"max_concurrency": o.settings.MaxConcurrency,
		"timeout_s":       o.settings.Timeout.Seconds(),
	})

	batchCtx := ctx
	if o.settings.Timeout > 0 {
		var cancel context.CancelFunc
		batchCtx, cancel = context.WithTimeout(ctx, o.settings.Timeout)
		defer cancel()
	}

	comparisons := make([]*latency.Comparison, len(set.Pairs))

	p := pool.New().WithMaxGoroutines(o.settings.MaxConcurrency)
	for i, pair := range set.Pairs {
		if pair == nil {
			continue
		}
		p.Go(func() {
			comparisons[i] = o.comparePair(batchCtx, pair)
		})
	}
	p.Wait()

	endTime := time.Now()
	summary := &BatchSummary{
		Comparisons:   comparisons,
		StartTime:     startTime,
		EndTime:       endTime,
		TotalDuration: endTime.Sub(startTime),
	}
	o.calculateSummaryMetrics(summary)

	o.logger.Debug("Batch completed", logging.Fields{
		"total_duration_s": summary.TotalDuration.Seconds(),
		"successful":       summary.Successful,
		"failed":           summary.Failed,
	})

	return summary, nil
}

// comparePair runs one pair on an engine owned by this task, so transform
// plans are never shared between workers.
func (o *Orchestrator) comparePair(ctx context.Context, pair *latency.Pair) *latency.Comparison {
	logger := o.logger.WithFields(logging.Fields{
		"pair": pair.Label(),
	})

	engine := latency.NewMeasurementEngine(&latency.EngineConfig{
		MinEnergy: o.settings.MinEnergy,
		Logger:    logger,
	})

	comparison := engine.Compare(ctx, pair.Degraded, pair.Reference, pair.WindowLength, pair.SampleRate)
	comparison.Name = pair.Label()

	if !comparison.OK() {
		logger.Warn("Pair comparison did not produce a coefficient", logging.Fields{
			"status": string(comparison.Status),
			"error":  comparison.ErrorMessage,
		})
	}
	return comparison
}

func (o *Orchestrator) calculateSummaryMetrics(summary *BatchSummary) {
	for _, c := range summary.Comparisons {
		if c.OK() {
			summary.Successful++
		} else {
			summary.Failed++
		}
	}
	summary.Metrics = o.metrics.Calculate(summary.Comparisons)
}

func roundToDecimalPlaces(f float64, decimals int) float64 {
	factor := math.Pow(10, float64(decimals))
	return math.Round(f*factor) / factor
}

// Round returns a copy of the summary comparisons with coefficients and
// millisecond values rounded for display.
func (s *BatchSummary) Round(decimals int) []*latency.Comparison {
	rounded := make([]*latency.Comparison, 0, len(s.Comparisons))
	for _, c := range s.Comparisons {
		if c == nil {
			continue
		}
		cp := *c
		cp.Coefficient = roundToDecimalPlaces(cp.Coefficient, decimals)
		cp.DelayMs = roundToDecimalPlaces(cp.DelayMs, decimals)
		rounded = append(rounded, &cp)
	}
	return rounded
}
