package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jchavanton/sign-xcorr/configs"
)

const envPrefix = "XCORR"

var (
	configFile   string
	verbose      bool
	logLevel     string
	outputFormat string
	noColor      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "xcorr",
	Short: "Reference/degraded audio lag and correlation tool",
	Long: `Estimate how far a degraded recording lags its reference and how similar
the two are at that alignment.

Both inputs are read as 16-bit signed little-endian PCM (headerless, or 16-bit
mono WAV). One window of N samples is taken from each file and correlated in
the frequency domain.

Key features:
- Lag in samples and milliseconds from a circular cross-correlation
- Normalized correlation coefficient at the peak
- Batch comparison of many pairs on a bounded worker pool
- Dominant tone detection for calibration recordings
- Synthetic test signal generation`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeConfig(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default is $HOME/.config/xcorr/xcorr.yaml)")

	// Output and logging flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table",
		"output format (json, table, csv, yaml)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false,
		"disable colored output")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("output_format", rootCmd.PersistentFlags().Lookup("output"))
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}

		viper.AddConfigPath(filepath.Join(home, ".config", "xcorr"))
		viper.AddConfigPath("/etc/xcorr")
		viper.AddConfigPath("./configs")
		viper.SetConfigName("xcorr")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	configs.SetDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	} else if configFile != "" {
		fmt.Fprintf(os.Stderr, "Error reading config file %s: %v\n", configFile, err)
		os.Exit(1)
	}
}

// initializeConfig binds flags and applies logging and color settings after flags are parsed
func initializeConfig(cmd *cobra.Command) error {
	if err := bindFlags(cmd, viper.GetViper()); err != nil {
		return err
	}

	level := viper.GetString("log_level")
	if viper.GetBool("verbose") {
		level = "debug"
	}
	if err := applyLogLevel(level); err != nil {
		return err
	}

	if noColor || !viper.GetBool("output.colors") {
		disableColors()
	}
	return nil
}

// applyLogLevel maps a level name onto the shared logger
func applyLogLevel(level string) error {
	switch strings.ToLower(level) {
	case "debug":
		logging.SetLevel(logging.DebugLevel)
	case "info", "":
		logging.SetLevel(logging.InfoLevel)
	case "warn", "warning":
		logging.SetLevel(logging.WarnLevel)
	case "error":
		logging.SetLevel(logging.ErrorLevel)
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", level)
	}
	return nil
}

// bindFlags binds each cobra flag to its associated viper configuration
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var lastErr error

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		// Flags named like a config section ("output") are bound explicitly in init.
		if _, isSection := v.Get(f.Name).(map[string]any); isSection {
			return
		}

		envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))

		// Apply the viper config value to the flag when the flag is not set and viper has a value
		if !f.Changed && v.IsSet(f.Name) {
			val := v.Get(f.Name)
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val)); err != nil {
				lastErr = err
			}
		}

		if err := v.BindPFlag(f.Name, f); err != nil {
			lastErr = err
		}

		if err := v.BindEnv(f.Name, envPrefix+"_"+envVarSuffix); err != nil {
			lastErr = err
		}
	})

	return lastErr
}

// GetConfig returns the current viper instance
func GetConfig() *viper.Viper {
	return viper.GetViper()
}
