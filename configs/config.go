package configs

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	// Application settings
	Verbose      bool   `mapstructure:"verbose"`
	LogLevel     string `mapstructure:"log_level"`
	OutputFormat string `mapstructure:"output_format"`

	// Input signal parameters
	Audio AudioConfig `mapstructure:"audio"`

	// Correlation coefficient settings
	Correlation CorrelationConfig `mapstructure:"correlation"`

	// Single-tone analysis settings
	Tone ToneConfig `mapstructure:"tone"`

	// Batch execution settings
	Batch BatchConfig `mapstructure:"batch"`

	// Output configuration
	Output OutputConfig `mapstructure:"output"`

	// Metric emission
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// AudioConfig describes the PCM inputs. WindowSize is the correlation length N.
type AudioConfig struct {
	SampleRate int `mapstructure:"sample_rate"`
	WindowSize int `mapstructure:"window_size"`
}

// CorrelationConfig contains coefficient normalization settings
type CorrelationConfig struct {
	MinEnergy float64 `mapstructure:"min_energy"`
}

// ToneConfig contains dominant-tone analysis settings
type ToneConfig struct {
	FFTSize int `mapstructure:"fft_size"`
}

// BatchConfig contains batch execution settings
type BatchConfig struct {
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// OutputConfig contains output formatting settings
type OutputConfig struct {
	Precision int  `mapstructure:"precision"`
	Colors    bool `mapstructure:"colors"`
}

// MetricsConfig controls emission of per-comparison metrics
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	LogFile string `mapstructure:"log_file"`
}

var validOutputFormats = map[string]bool{
	"table": true,
	"json":  true,
	"yaml":  true,
	"csv":   true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// LoadConfig loads configuration from the global viper instance
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(viper.GetViper())
}

// LoadConfigFrom decodes configuration from v
func LoadConfigFrom(v *viper.Viper) (*Config, error) {
	config := &Config{}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode configuration: %w", err)
	}

	return config, nil
}

// ValidateConfig validates the configuration
func ValidateConfig(config *Config) error {
	if config.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio sample rate must be positive")
	}

	if config.Audio.WindowSize < 2 || config.Audio.WindowSize&(config.Audio.WindowSize-1) != 0 {
		return fmt.Errorf("audio window size must be a power of two of at least 2, got %d", config.Audio.WindowSize)
	}

	if config.Correlation.MinEnergy < 0 {
		return fmt.Errorf("correlation min energy cannot be negative")
	}

	if config.Tone.FFTSize < 4 {
		return fmt.Errorf("tone fft size must be at least 4, got %d", config.Tone.FFTSize)
	}

	if config.Batch.MaxConcurrency <= 0 {
		return fmt.Errorf("batch max concurrency must be positive")
	}

	if config.Batch.Timeout < 0 {
		return fmt.Errorf("batch timeout cannot be negative")
	}

	if config.Output.Precision < 0 || config.Output.Precision > 12 {
		return fmt.Errorf("output precision must be between 0 and 12")
	}

	if !validOutputFormats[strings.ToLower(config.OutputFormat)] {
		return fmt.Errorf("invalid output format: %s (must be table, json, yaml, or csv)", config.OutputFormat)
	}

	if !validLogLevels[strings.ToLower(config.LogLevel)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.LogLevel)
	}

	return nil
}
