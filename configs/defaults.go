package configs

import (
	"time"

	"github.com/spf13/viper"
)

// SetDefaults registers default values for every configuration key. Values
// from flags, the environment and config files take precedence.
func SetDefaults(v *viper.Viper) {
	defaults := GetDefaultConfig()

	// Application defaults
	v.SetDefault("verbose", defaults.Verbose)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("output_format", defaults.OutputFormat)

	// Signal defaults
	v.SetDefault("audio.sample_rate", defaults.Audio.SampleRate)
	v.SetDefault("audio.window_size", defaults.Audio.WindowSize)

	v.SetDefault("correlation.min_energy", defaults.Correlation.MinEnergy)
	v.SetDefault("tone.fft_size", defaults.Tone.FFTSize)

	// Batch defaults
	v.SetDefault("batch.max_concurrency", defaults.Batch.MaxConcurrency)
	v.SetDefault("batch.timeout", defaults.Batch.Timeout)

	// Output defaults
	v.SetDefault("output.precision", defaults.Output.Precision)
	v.SetDefault("output.colors", defaults.Output.Colors)

	v.SetDefault("metrics.enabled", defaults.Metrics.Enabled)
	v.SetDefault("metrics.log_file", defaults.Metrics.LogFile)
}

// GetDefaultConfig returns a Config struct with all default values set
func GetDefaultConfig() *Config {
	return &Config{
		Verbose:      false,
		LogLevel:     "info",
		OutputFormat: "table",

		Audio:       GetDefaultAudioConfig(),
		Correlation: GetDefaultCorrelationConfig(),
		Tone:        GetDefaultToneConfig(),
		Batch:       GetDefaultBatchConfig(),
		Output:      GetDefaultOutputConfig(),
		Metrics:     GetDefaultMetricsConfig(),
	}
}

// GetDefaultAudioConfig returns narrowband telephony parameters
func GetDefaultAudioConfig() AudioConfig {
	return AudioConfig{
		SampleRate: 8000,
		WindowSize: 8192,
	}
}

// GetDefaultCorrelationConfig returns default coefficient settings
func GetDefaultCorrelationConfig() CorrelationConfig {
	return CorrelationConfig{
		MinEnergy: 1e-9,
	}
}

// GetDefaultToneConfig returns default tone analysis settings
func GetDefaultToneConfig() ToneConfig {
	return ToneConfig{
		FFTSize: 1024,
	}
}

// GetDefaultBatchConfig returns default batch execution settings
func GetDefaultBatchConfig() BatchConfig {
	return BatchConfig{
		MaxConcurrency: 4,
		Timeout:        5 * time.Minute,
	}
}

// GetDefaultOutputConfig returns default output formatting settings
func GetDefaultOutputConfig() OutputConfig {
	return OutputConfig{
		Precision: 4,
		Colors:    true,
	}
}

// GetDefaultMetricsConfig returns metrics disabled, writing to stdout when enabled
func GetDefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled: false,
		LogFile: "",
	}
}

// GetDefaultOutputConfigForFormat returns output config suited to a format.
// Machine-readable formats never carry color codes.
func GetDefaultOutputConfigForFormat(format string) OutputConfig {
	config := GetDefaultOutputConfig()

	switch format {
	case "json", "yaml":
		config.Colors = false
		config.Precision = 6
	case "csv":
		config.Colors = false
	}

	return config
}
