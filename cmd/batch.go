package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jchavanton/sign-xcorr/configs"
	"github.com/jchavanton/sign-xcorr/internal/app"
	"github.com/jchavanton/sign-xcorr/internal/benchmark"
)

var (
	batchOutputFile      string
	batchMaxConcurrency  int
	batchTimeout         time.Duration
	batchWindow          int
	batchSampleRate      int
	batchDetailed        bool
	batchGenerateExample string
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <pairs-file>",
	Short: "Compare many degraded/reference pairs concurrently",
	Long: `Run the comparison for every pair listed in a YAML or JSON pair file.

Pairs are processed on a bounded worker pool. Each worker owns its own
transform plans. A pair that cannot be loaded is reported with status
"unavailable" and does not stop the batch.

Pair file format:
  window_length: 8192        # optional, per-file default
  sample_rate: 8000          # optional, per-file default
  pairs:
    - name: call-001
      degraded: recordings/call-001-degraded.raw
      reference: recordings/call-001-reference.raw

Relative paths are resolved against the pair file directory.

Examples:
  # Run a batch and print a table
  xcorr batch pairs.yaml

  # JSON report with statistics, eight workers
  xcorr batch -o json --detailed --max-concurrency 8 --output-file report.json pairs.yaml

  # Write an example pair file
  xcorr batch --generate-example pairs.yaml`,
	Args: func(cmd *cobra.Command, args []string) error {
		if batchGenerateExample != "" {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVarP(&batchOutputFile, "output-file", "f", "",
		"write the report to a file instead of stdout")
	batchCmd.Flags().IntVarP(&batchMaxConcurrency, "max-concurrency", "j", 0,
		"maximum concurrent comparisons (default batch.max_concurrency)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 0,
		"overall batch timeout (default batch.timeout)")
	batchCmd.Flags().IntVarP(&batchWindow, "window", "n", 0,
		"window length for pairs that do not set one")
	batchCmd.Flags().IntVarP(&batchSampleRate, "sample-rate", "r", 0,
		"sample rate for pairs that do not set one")
	batchCmd.Flags().BoolVar(&batchDetailed, "detailed", false,
		"include peak values and batch statistics in the report")
	batchCmd.Flags().StringVar(&batchGenerateExample, "generate-example", "",
		"write an example pair file to the given path and exit")
}

func runBatch(cmd *cobra.Command, args []string) error {
	if batchGenerateExample != "" {
		if err := app.GenerateExamplePairSet(batchGenerateExample); err != nil {
			return err
		}
		printSuccess("Example pair file written to: %s", batchGenerateExample)
		return nil
	}

	timer := NewPerformanceTimer()

	config, err := configs.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := configs.ValidateConfig(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	format := viper.GetString("output_format")

	appCtx := &app.Context{
		PairFile:      args[0],
		OutputFile:    batchOutputFile,
		OutputFormat:  format,
		Timeout:       batchTimeout,
		MaxConcurrent: batchMaxConcurrency,
		WindowLength:  batchWindow,
		SampleRate:    batchSampleRate,
		Detailed:      batchDetailed,
		Verbose:       viper.GetBool("verbose"),
		Config:        config,
		Logger: logging.WithFields(logging.Fields{
			"component": "batch",
		}),
	}

	timer.StartEvent("load")
	batchApp, err := app.NewBatchApp(appCtx)
	if err != nil {
		return err
	}
	timer.EndEvent("load")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Table output is rendered here; the app only writes machine formats.
	if format == "table" && batchOutputFile == "" {
		appCtx.Stdout = io.Discard
	}

	timer.StartEvent("compare")
	summary, err := batchApp.Run(ctx)
	timer.EndEvent("compare")

	if summary != nil && format == "table" && batchOutputFile == "" {
		printBatchTable(summary, config.Output.Precision, batchDetailed)
		fmt.Printf("\n%sLoad: %v  Compare: %v  Total: %v%s\n", ColorBold,
			timer.GetDuration("load"), timer.GetDuration("compare"), timer.GetTotalDuration(), ColorReset)
	} else if batchOutputFile != "" {
		printSuccess("Report written to: %s", batchOutputFile)
	}

	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("batch interrupted: %w", err)
	}
	return err
}

// printBatchTable prints one line per pair followed by batch totals
func printBatchTable(summary *benchmark.BatchSummary, precision int, detailed bool) {
	printHeader("BATCH CROSS-CORRELATION", fmt.Sprintf("%d pairs", len(summary.Comparisons)))

	fmt.Printf("%-24s %-12s %10s %10s %12s %12s\n", "PAIR", "STATUS", "LAG", "LAG MS", "DELAY MS", "COEFFICIENT")
	for _, c := range summary.Round(precision) {
		coefficient := "-"
		if c.OK() {
			coefficient = fmt.Sprintf("%.*f", precision, c.Coefficient)
		}
		fmt.Printf("%-24s %-12s %10d %10d %12.*f %12s\n",
			truncate(c.Name, 24), string(c.Status), c.LagSamples, c.LagMs, precision, c.DelayMs, coefficient)
	}

	printSection("SUMMARY")
	printKeyValue("Successful", fmt.Sprintf("%d", summary.Successful))
	printKeyValue("Failed", fmt.Sprintf("%d", summary.Failed))
	printKeyValue("Duration", summary.TotalDuration.String())

	for _, c := range summary.Comparisons {
		if c == nil || (len(c.Diagnostics) == 0 && c.Error == nil) {
			continue
		}
		printSubsection(c.Name)
		for _, d := range c.Diagnostics {
			printWarning("%s", d)
		}
		if c.Error != nil {
			printError("%v", c.Error)
		}
	}

	if !detailed || summary.Metrics == nil {
		return
	}

	m := summary.Metrics
	printSection("STATISTICS")
	printStatusCounts(m.StatusCounts)
	printKeyValue("Success Rate", fmt.Sprintf("%.1f%%", m.SuccessRate*100))
	if m.Coefficient.Count > 0 {
		printKeyValue("Coefficient Mean", fmt.Sprintf("%.*f", precision, m.Coefficient.Mean))
		printKeyValue("Coefficient Min/Max", fmt.Sprintf("%.*f / %.*f", precision, m.Coefficient.Min, precision, m.Coefficient.Max))
		printKeyValue("Delay Median", fmt.Sprintf("%.*f ms", precision, m.DelayMs.Median))
		printKeyValue("Delay P95", fmt.Sprintf("%.*f ms", precision, m.DelayMs.P95))
	}
	for _, band := range []string{"excellent", "good", "fair", "poor"} {
		printKeyValue("  "+titleCaser.String(band), fmt.Sprintf("%d", m.CoefficientDistribution[band]))
	}
	if len(m.ErrorDistribution) > 0 {
		printSubsection("Errors")
		printStatusCounts(m.ErrorDistribution)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
