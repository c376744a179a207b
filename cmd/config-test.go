package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jchavanton/sign-xcorr/configs"
)

// configTestCmd represents the config test command
var configTestCmd = &cobra.Command{
	Use:   "config-test",
	Short: "Test and display all configuration values",
	Long: `Test configuration loading and display all values to verify proper parsing.

Values are resolved from flags, XCORR_* environment variables, the config file
and built-in defaults, in that order.

Examples:
  # Test with default config file
  xcorr config-test

  # Test with specific config file
  xcorr --config /path/to/xcorr.yaml config-test

  # Environment override
  XCORR_AUDIO_SAMPLE_RATE=16000 xcorr config-test`,
	RunE: runConfigTest,
}

func init() {
	rootCmd.AddCommand(configTestCmd)
}

func runConfigTest(cmd *cobra.Command, args []string) error {
	fmt.Println(ColorBold + "XCORR CONFIGURATION TEST")
	fmt.Println(strings.Repeat("=", 80) + ColorReset)

	config, err := configs.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	printSection("APPLICATION SETTINGS")
	printKeyValue("Verbose", fmt.Sprintf("%t", config.Verbose))
	printKeyValue("Log Level", config.LogLevel)
	printKeyValue("Output Format", config.OutputFormat)

	printSection("AUDIO CONFIGURATION")
	printKeyValue("Sample Rate", fmt.Sprintf("%d Hz", config.Audio.SampleRate))
	printKeyValue("Window Size", fmt.Sprintf("%d samples", config.Audio.WindowSize))
	if config.Audio.SampleRate > 0 {
		printKeyValue("Window Duration", fmt.Sprintf("%.1f ms",
			float64(config.Audio.WindowSize)*1000/float64(config.Audio.SampleRate)))
	}

	printSection("CORRELATION CONFIGURATION")
	printKeyValue("Min Energy", fmt.Sprintf("%g", config.Correlation.MinEnergy))

	printSection("TONE CONFIGURATION")
	printKeyValue("FFT Size", fmt.Sprintf("%d", config.Tone.FFTSize))
	if config.Tone.FFTSize > 0 {
		printKeyValue("Bin Resolution", fmt.Sprintf("%.3f Hz",
			float64(config.Audio.SampleRate)/float64(config.Tone.FFTSize)))
	}

	printSection("BATCH CONFIGURATION")
	printKeyValue("Max Concurrency", fmt.Sprintf("%d", config.Batch.MaxConcurrency))
	printKeyValue("Timeout", config.Batch.Timeout.String())

	printSection("OUTPUT CONFIGURATION")
	printKeyValue("Precision", fmt.Sprintf("%d", config.Output.Precision))
	printKeyValue("Colors", fmt.Sprintf("%t", config.Output.Colors))

	printSection("METRICS CONFIGURATION")
	printKeyValue("Enabled", fmt.Sprintf("%t", config.Metrics.Enabled))
	printKeyValue("Log File", config.Metrics.LogFile)

	printSection("VALIDATION")
	if err := configs.ValidateConfig(config); err != nil {
		printError("%v", err)
	} else {
		printSuccess("Configuration is valid")
	}

	fmt.Println()
	fmt.Println(ColorBold + strings.Repeat("=", 80))
	fmt.Printf("Config file: %s\n", getConfigFilePath())
	fmt.Println(strings.Repeat("=", 80) + ColorReset)

	return nil
}

func getConfigFilePath() string {
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	return "(none, using defaults)"
}
