package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"syscall"
	"time"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/RyanBlaney/latency-benchmark-common/output"
	"github.com/tunein/go-logging/v7/pkg/logger"
	"github.com/tunein/go-logging/v7/pkg/logger/logtypes"
	"github.com/tunein/go-logging/v7/pkg/rootcollector"
	"github.com/tunein/go-logging/v7/pkg/rootlogger"

	"github.com/jchavanton/sign-xcorr/configs"
	"github.com/jchavanton/sign-xcorr/internal/benchmark"
	"github.com/jchavanton/sign-xcorr/internal/latency"
	"github.com/jchavanton/sign-xcorr/pkg/audio/tone"
)

const (
	metricLagMs               = "xcorr.comparison.lag.ms"
	metricCoefficientPermille = "xcorr.comparison.coefficient.permille"
)

// ErrAllComparisonsFailed is returned when no pair produced a coefficient.
var ErrAllComparisonsFailed = errors.New("all comparisons failed")

// Context holds the batch run arguments and resolved configuration
type Context struct {
	// CLI arguments
	PairFile      string
	OutputFile    string
	OutputFormat  string
	Timeout       time.Duration
	MaxConcurrent int
	WindowLength  int
	SampleRate    int
	Detailed      bool
	Verbose       bool

	// Runtime context
	Logger  logging.Logger
	Config  *configs.Config
	PairSet *PairSet

	// Stdout receives the report when OutputFile is empty.
	Stdout io.Writer
}

// BatchApp handles the batch application lifecycle
type BatchApp struct {
	ctx      *Context
	config   *configs.Config
	settings *benchmark.Settings
	pairSet  *PairSet
	logger   logging.Logger
}

// NewBatchApp loads the pair file and merges configuration
func NewBatchApp(ctx *Context) (*BatchApp, error) {
	if ctx.Logger == nil {
		ctx.Logger = logging.WithFields(logging.Fields{
			"component": "batch",
		})
	}
	logger := ctx.Logger

	config, err := loadBaseConfig(ctx)
	if err != nil {
		return nil, err
	}
	ctx.Config = config

	if ctx.PairFile == "" {
		return nil, fmt.Errorf("pair file is required")
	}

	set, err := loadPairSetFromFile(ctx.PairFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load pair file: %w", err)
	}
	if err := set.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pair file: %w", err)
	}
	ctx.PairSet = set

	settings := mergeBatchSettings(config, set, ctx)

	if ctx.OutputFormat == "" {
		ctx.OutputFormat = config.OutputFormat
	}
	if ctx.Stdout == nil {
		ctx.Stdout = os.Stdout
	}

	logger.Debug("Batch application initialized", logging.Fields{
		"pair_file":       ctx.PairFile,
		"pairs":           len(set.Pairs),
		"output_format":   ctx.OutputFormat,
		"max_concurrency": settings.MaxConcurrency,
		"window_length":   settings.WindowLength,
		"sample_rate":     settings.SampleRate,
	})

	return &BatchApp{
		ctx:      ctx,
		config:   config,
		settings: settings,
		pairSet:  set,
		logger:   logger,
	}, nil
}

func loadBaseConfig(ctx *Context) (*configs.Config, error) {
	if ctx.Config != nil {
		return ctx.Config, nil
	}

	config, err := configs.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load base configuration: %w", err)
	}
	if err := configs.ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid base configuration: %w", err)
	}
	return config, nil
}

// Run executes the batch and writes the report
func (app *BatchApp) Run(ctx context.Context) (*benchmark.BatchSummary, error) {
	orchestrator, err := benchmark.NewOrchestrator(app.settings, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch orchestrator: %w", err)
	}

	summary, err := orchestrator.Run(ctx, app.pairSet)
	if err != nil {
		return nil, fmt.Errorf("batch execution failed: %w", err)
	}

	if err := app.outputResults(summary); err != nil {
		return summary, fmt.Errorf("failed to output results: %w", err)
	}

	if app.config.Metrics.Enabled {
		app.collectComparisonMetrics(summary)
	}

	if summary.Successful == 0 {
		return summary, ErrAllComparisonsFailed
	}

	return summary, nil
}

// outputResults formats the summary and writes it to a file or stdout
func (app *BatchApp) outputResults(summary *benchmark.BatchSummary) error {
	outputData := map[string]any{
		"batch_summary": cleanBatchSummary(summary, app.config.Output.Precision, app.ctx.Detailed),
		"timestamp":     time.Now(),
		"configuration": map[string]any{
			"pair_file":       app.ctx.PairFile,
			"window_length":   app.settings.WindowLength,
			"sample_rate":     app.settings.SampleRate,
			"max_concurrency": app.settings.MaxConcurrency,
			"timeout":         app.settings.Timeout.Seconds(),
		},
	}

	if app.ctx.Detailed || app.ctx.Verbose {
		outputData["metrics"] = summary.Metrics
	}

	formattedData, err := formatOutput(outputData, app.ctx.OutputFormat)
	if err != nil {
		return err
	}

	if app.ctx.OutputFile != "" {
		return app.writeToFile(formattedData)
	}

	_, err = app.ctx.Stdout.Write(formattedData)
	return err
}

// formatOutput renders data with the formatter for format, JSON by default
func formatOutput(data any, format string) ([]byte, error) {
	var formatter output.Formatter
	switch format {
	case "json":
		formatter = &output.JSONFormatter{}
	case "yaml":
		formatter = &output.YAMLFormatter{}
	case "csv":
		formatter = &output.CSVFormatter{}
	case "table":
		formatter = &output.TableFormatter{}
	default:
		formatter = &output.JSONFormatter{}
	}

	formattedData, err := formatter.Format(data, true)
	if err != nil {
		// Retry once with NaN and Inf values replaced
		if strings.Contains(err.Error(), "unsupported value") {
			formattedData, err = formatter.Format(sanitizeForJSON(data), true)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to format output data: %w", err)
		}
	}
	return formattedData, nil
}

// FormatComparison renders one comparison in the given format
func FormatComparison(c *latency.Comparison, format string) ([]byte, error) {
	return formatOutput(cleanComparison(c), format)
}

// FormatTone renders a tone analysis result in the given format
func FormatTone(result *tone.Result, format string) ([]byte, error) {
	return formatOutput(sanitizeForJSON(result), format)
}

// collectComparisonMetrics sends per-pair metrics to rootcollector
func (app *BatchApp) collectComparisonMetrics(summary *benchmark.BatchSummary) {
	if summary == nil {
		return
	}

	logFile := app.config.Metrics.LogFile
	if logFile == "" {
		logFile = filepath.Join(os.TempDir(), "xcorr-metrics.log")
	}

	err := rootlogger.Configure(logger.LogOptions{
		Out:          logFile,
		ReopenSignal: syscall.SIGHUP,
		Level:        logtypes.InfoLevel,
	})
	if err != nil {
		logging.Error(err, "Failed configuring metrics log writer")
		return
	}

	for _, c := range summary.Comparisons {
		if !c.OK() {
			continue
		}

		tags := []string{
			"pair:" + c.Name,
			"status:" + string(c.Status),
			fmt.Sprintf("window:%d", c.WindowLength),
		}

		rootcollector.Metric(metricLagMs, int64(math.Round(c.DelayMs)), tags)
		rootcollector.Metric(metricCoefficientPermille, int64(math.Round(c.Coefficient*1000)), tags)
	}
}

// cleanBatchSummary flattens the summary for formatting
func cleanBatchSummary(summary *benchmark.BatchSummary, precision int, detailed bool) map[string]any {
	comparisons := make([]any, 0, len(summary.Comparisons))
	for _, c := range summary.Round(precision) {
		entry := cleanComparison(c)
		if !detailed {
			delete(entry, "auto_peak_degraded")
			delete(entry, "auto_peak_reference")
			delete(entry, "cross_peak")
		}
		comparisons = append(comparisons, entry)
	}

	return map[string]any{
		"start_time":     summary.StartTime,
		"end_time":       summary.EndTime,
		"total_duration": summary.TotalDuration.Seconds(),
		"successful":     summary.Successful,
		"failed":         summary.Failed,
		"comparisons":    comparisons,
	}
}

// cleanComparison keeps the reportable fields of a comparison
func cleanComparison(c *latency.Comparison) map[string]any {
	entry := map[string]any{
		"name":                c.Name,
		"degraded":            c.DegradedPath,
		"reference":           c.ReferencePath,
		"status":              string(c.Status),
		"window_length":       c.WindowLength,
		"sample_rate":         c.SampleRate,
		"lag_samples":         c.LagSamples,
		"lag_ms":              c.LagMs,
		"delay_samples":       c.DelaySamples,
		"delay_ms":            c.DelayMs,
		"coefficient":         c.Coefficient,
		"cross_peak":          c.CrossPeak,
		"auto_peak_degraded":  c.AutoPeakDegraded,
		"auto_peak_reference": c.AutoPeakReference,
		"duration_ms":         c.Duration.Milliseconds(),
	}
	if len(c.Diagnostics) > 0 {
		entry["diagnostics"] = c.Diagnostics
	}
	if c.Error != nil {
		entry["error"] = c.Error.Error()
	}
	return entry
}

// writeToFile writes data to the configured output file
func (app *BatchApp) writeToFile(data []byte) error {
	if err := writeFile(app.ctx.OutputFile, data); err != nil {
		return err
	}

	app.logger.Debug("Results written to file", logging.Fields{
		"output_file": app.ctx.OutputFile,
		"size_bytes":  len(data),
	})

	return nil
}

func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// sanitizeForJSON recursively cleans infinite and NaN values from any data structure
func sanitizeForJSON(data any) any {
	switch v := data.(type) {
	case float64:
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return 0.0
		}
		return v
	case map[string]any:
		result := make(map[string]any, len(v))
		for k, val := range v {
			result[k] = sanitizeForJSON(val)
		}
		return result
	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			result[i] = sanitizeForJSON(val)
		}
		return result
	case []float64:
		result := make([]float64, len(v))
		for i, val := range v {
			if !math.IsInf(val, 0) && !math.IsNaN(val) {
				result[i] = val
			}
		}
		return result
	case time.Time, time.Duration, string, bool, int, int64:
		return v
	default:
		return sanitizeWithReflection(data)
	}
}

// sanitizeWithReflection converts structs, slices and maps into sanitized
// generic values, honouring json tags
func sanitizeWithReflection(data any) any {
	if data == nil {
		return nil
	}

	val := reflect.ValueOf(data)
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}

	switch val.Kind() {
	case reflect.Struct:
		result := make(map[string]any)
		typ := val.Type()
		for i := 0; i < val.NumField(); i++ {
			field := val.Field(i)
			fieldType := typ.Field(i)

			if !field.CanInterface() {
				continue
			}

			jsonTag := fieldType.Tag.Get("json")
			if jsonTag == "-" {
				continue
			}
			fieldName := fieldType.Name
			if name, _, _ := strings.Cut(jsonTag, ","); name != "" {
				fieldName = name
			}

			result[fieldName] = sanitizeForJSON(field.Interface())
		}
		return result
	case reflect.Slice:
		if val.IsNil() {
			return nil
		}
		result := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			result[i] = sanitizeForJSON(val.Index(i).Interface())
		}
		return result
	case reflect.Map:
		result := make(map[string]any, val.Len())
		for _, key := range val.MapKeys() {
			result[fmt.Sprintf("%v", key.Interface())] = sanitizeForJSON(val.MapIndex(key).Interface())
		}
		return result
	case reflect.Float64, reflect.Float32:
		f := val.Float()
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return 0.0
		}
		return f
	default:
		return val.Interface()
	}
}
