package benchmark

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"

	"github.com/RyanBlaney/latency-benchmark-common/logging"

	"github.com/jchavanton/sign-xcorr/internal/latency"
	"github.com/jchavanton/sign-xcorr/pkg/audio/pcm"
)

// MetricsCalculator aggregates comparison results of a batch
type MetricsCalculator struct {
	logger logging.Logger
}

// NewMetricsCalculator creates a new metrics calculator
func NewMetricsCalculator(logger logging.Logger) *MetricsCalculator {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &MetricsCalculator{
		logger: logger,
	}
}

// Stats represents statistical measures of one quantity
type Stats struct {
	Mean   float64 `json:"mean" yaml:"mean"`
	Median float64 `json:"median" yaml:"median"`
	P95    float64 `json:"p95" yaml:"p95"`
	P99    float64 `json:"p99" yaml:"p99"`
	Min    float64 `json:"min" yaml:"min"`
	Max    float64 `json:"max" yaml:"max"`
	StdDev float64 `json:"std_dev" yaml:"std_dev"`
	Count  int     `json:"count" yaml:"count"`
}

// BatchMetrics summarizes a batch of comparisons
type BatchMetrics struct {
	Coefficient    *Stats `json:"coefficient" yaml:"coefficient"`
	DelayMs        *Stats `json:"delay_ms" yaml:"delay_ms"`
	ProcessingTime *Stats `json:"processing_time_ms" yaml:"processing_time_ms"`

	SuccessRate             float64        `json:"success_rate" yaml:"success_rate"`
	StatusCounts            map[string]int `json:"status_counts" yaml:"status_counts"`
	CoefficientDistribution map[string]int `json:"coefficient_distribution" yaml:"coefficient_distribution"`
	ErrorDistribution       map[string]int `json:"error_distribution" yaml:"error_distribution"`
}

// Calculate computes batch metrics. Only comparisons with status ok feed the
// coefficient and delay statistics.
func (mc *MetricsCalculator) Calculate(comparisons []*latency.Comparison) *BatchMetrics {
	var coefficients, delays, processing []float64

	metrics := &BatchMetrics{
		StatusCounts: make(map[string]int, len(latency.Statuses)),
		CoefficientDistribution: map[string]int{
			"excellent": 0, // 0.9-1.0
			"good":      0, // 0.7-0.9
			"fair":      0, // 0.5-0.7
			"poor":      0, // below 0.5
		},
		ErrorDistribution: make(map[string]int),
	}
	for _, status := range latency.Statuses {
		metrics.StatusCounts[string(status)] = 0
	}

	total := 0
	for _, c := range comparisons {
		if c == nil {
			continue
		}
		total++
		metrics.StatusCounts[string(c.Status)]++
		processing = append(processing, float64(c.Duration.Milliseconds()))

		if c.Error != nil {
			metrics.ErrorDistribution[mc.categorizeError(c.Error)]++
		}
		if !c.OK() {
			continue
		}

		coefficients = append(coefficients, c.Coefficient)
		delays = append(delays, c.DelayMs)

		switch {
		case c.Coefficient >= 0.9:
			metrics.CoefficientDistribution["excellent"]++
		case c.Coefficient >= 0.7:
			metrics.CoefficientDistribution["good"]++
		case c.Coefficient >= 0.5:
			metrics.CoefficientDistribution["fair"]++
		default:
			metrics.CoefficientDistribution["poor"]++
		}
	}

	metrics.Coefficient = mc.calculateStats(coefficients)
	metrics.DelayMs = mc.calculateStats(delays)
	metrics.ProcessingTime = mc.calculateStats(processing)
	if total > 0 {
		metrics.SuccessRate = float64(metrics.StatusCounts[string(latency.StatusOK)]) / float64(total)
	}

	mc.logger.Debug("Batch metrics calculated", logging.Fields{
		"comparisons":  total,
		"success_rate": metrics.SuccessRate,
	})

	return metrics
}

// calculateStats calculates statistical measures for a dataset
func (mc *MetricsCalculator) calculateStats(data []float64) *Stats {
	if len(data) == 0 {
		return &Stats{Count: 0}
	}

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	stats := &Stats{
		Count:  len(data),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Median: mc.percentile(sorted, 50),
		P95:    mc.percentile(sorted, 95),
		P99:    mc.percentile(sorted, 99),
	}

	sum := 0.0
	for _, value := range data {
		sum += value
	}
	stats.Mean = sum / float64(len(data))

	sumSquaredDiffs := 0.0
	for _, value := range data {
		diff := value - stats.Mean
		sumSquaredDiffs += diff * diff
	}
	stats.StdDev = math.Sqrt(sumSquaredDiffs / float64(len(data)))

	return mc.sanitizeStats(stats)
}

// sanitizeStats replaces infinite and NaN values so reports always serialize
func (mc *MetricsCalculator) sanitizeStats(stats *Stats) *Stats {
	for _, v := range []*float64{&stats.Mean, &stats.Median, &stats.P95, &stats.P99, &stats.Min, &stats.Max, &stats.StdDev} {
		if math.IsInf(*v, 0) || math.IsNaN(*v) {
			*v = 0
		}
	}
	return stats
}

// percentile interpolates the p-th percentile of sorted data
func (mc *MetricsCalculator) percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	index := (p / 100.0) * float64(len(sorted)-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// categorizeError groups comparison errors for the report
func (mc *MetricsCalculator) categorizeError(err error) string {
	if err == nil {
		return "none"
	}

	switch pcm.ErrorCode(err) {
	case pcm.ErrCodeUnavailable:
		return "unavailable"
	case pcm.ErrCodeDecoding, pcm.ErrCodeUnsupportedFormat:
		return "format"
	case pcm.ErrCodeShortRead:
		return "short_read"
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "cancelled"
	}

	errStr := strings.ToLower(err.Error())
	if containsAny(errStr, "invalid", "power of two", "must be") {
		return "configuration"
	}
	if containsAny(errStr, "correlation", "transform", "spectrum") {
		return "processing"
	}

	return "other"
}

func containsAny(s string, substrings ...string) bool {
	for _, substr := range substrings {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}
