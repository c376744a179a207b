package cmd

import (
	"fmt"
	"os"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jchavanton/sign-xcorr/configs"
	"github.com/jchavanton/sign-xcorr/internal/app"
	"github.com/jchavanton/sign-xcorr/pkg/audio/tone"
)

var (
	toneFFTSize    int
	toneSampleRate int
	toneBins       bool
)

// toneCmd represents the tone command
var toneCmd = &cobra.Command{
	Use:   "tone <file>",
	Short: "Find the dominant frequency of a single-tone recording",
	Long: `Read one FFT window of a 16-bit PCM file, normalized to [-1, 1], and
report the strongest bin between DC and Nyquist with its level in dBFS.

The file must contain at least one full window.

Examples:
  # 1024-point analysis at 8 kHz
  xcorr tone calibration.raw

  # Finer resolution, list every bin
  xcorr tone --fft-size 4096 --bins calibration.raw`,
	Args: cobra.ExactArgs(1),
	RunE: runTone,
}

func init() {
	rootCmd.AddCommand(toneCmd)

	toneCmd.Flags().IntVar(&toneFFTSize, "fft-size", 0,
		"FFT size in samples (default tone.fft_size)")
	toneCmd.Flags().IntVarP(&toneSampleRate, "sample-rate", "r", 0,
		"sample rate in Hz (default audio.sample_rate)")
	toneCmd.Flags().BoolVar(&toneBins, "bins", false,
		"print every analysed bin")
}

func runTone(cmd *cobra.Command, args []string) error {
	config, err := configs.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	fftSize := config.Tone.FFTSize
	if toneFFTSize > 0 {
		fftSize = toneFFTSize
	}
	sampleRate := config.Audio.SampleRate
	if toneSampleRate > 0 {
		sampleRate = toneSampleRate
	}

	opts := []tone.Option{
		tone.WithLogger(logging.WithFields(logging.Fields{"component": "tone"})),
	}
	if toneBins {
		opts = append(opts, tone.WithBins())
	}

	analyzer, err := tone.NewAnalyzer(sampleRate, fftSize, opts...)
	if err != nil {
		return err
	}

	result, err := analyzer.AnalyzeFile(args[0])
	if err != nil {
		return err
	}

	format := viper.GetString("output_format")
	if format != "table" {
		data, err := app.FormatTone(result, format)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	}

	printHeader("DOMINANT TONE", args[0])
	if toneBins {
		for _, bin := range result.Bins {
			fmt.Printf("bin %4d  %10.2f Hz  %8.2f dB\n", bin.Index, bin.FrequencyHz, bin.LevelDB)
		}
		fmt.Println()
	}

	printKeyValue("FFT Size", fmt.Sprintf("%d", result.FFTSize))
	printKeyValue("Bin Resolution", fmt.Sprintf("%.3f Hz", result.BinResolutionHz))
	printKeyValue("Dominant Bin", fmt.Sprintf("%d", result.DominantBin))
	printKeyValue("Dominant Frequency", fmt.Sprintf("%.2f Hz", result.DominantHz))
	printKeyValue("Level", fmt.Sprintf("%.2f dBFS", result.LevelDB))

	return nil
}
