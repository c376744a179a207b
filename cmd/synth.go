package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jchavanton/sign-xcorr/configs"
	"github.com/jchavanton/sign-xcorr/pkg/audio/pcm"
)

var (
	synthDelayMs        float64
	synthSamples        int
	synthSampleRate     int
	synthGain           float64
	synthAmplitude      int
	synthSeed           int64
	synthToneHz         float64
	synthNoiseAmplitude int
	synthWAV            bool
)

// synthCmd represents the synth command
var synthCmd = &cobra.Command{
	Use:   "synth <dir>",
	Short: "Write a synthetic reference and delayed degraded copy",
	Long: `Generate a reference signal and a degraded copy that is delayed and
attenuated, for checking the comparison end to end.

The reference is seeded white noise, or a sine tone with --tone-hz. The
degraded copy is the reference shifted right by --delay-ms with zero fill and
scaled by --gain.

Examples:
  # 12.5 ms delay at 8 kHz (100 samples)
  xcorr synth --delay-ms 12.5 ./fixtures
  xcorr compare ./fixtures/degraded.raw ./fixtures/reference.raw

  # WAV files with a 1 kHz tone for the tone command
  xcorr synth --wav --tone-hz 1000 ./fixtures`,
	Args: cobra.ExactArgs(1),
	RunE: runSynth,
}

func init() {
	rootCmd.AddCommand(synthCmd)

	synthCmd.Flags().Float64Var(&synthDelayMs, "delay-ms", 12.5,
		"delay of the degraded copy in milliseconds")
	synthCmd.Flags().IntVar(&synthSamples, "samples", 0,
		"samples per file (default audio.window_size)")
	synthCmd.Flags().IntVarP(&synthSampleRate, "sample-rate", "r", 0,
		"sample rate in Hz (default audio.sample_rate)")
	synthCmd.Flags().Float64Var(&synthGain, "gain", 0.5,
		"gain applied to the degraded copy")
	synthCmd.Flags().IntVar(&synthAmplitude, "amplitude", 8000,
		"peak amplitude of the reference")
	synthCmd.Flags().Int64Var(&synthSeed, "seed", 1,
		"noise seed")
	synthCmd.Flags().Float64Var(&synthToneHz, "tone-hz", 0,
		"generate a sine tone at this frequency instead of noise")
	synthCmd.Flags().IntVar(&synthNoiseAmplitude, "noise-amplitude", 0,
		"add background noise of this amplitude to the degraded copy")
	synthCmd.Flags().BoolVar(&synthWAV, "wav", false,
		"write 16-bit mono WAV instead of raw PCM")
}

func runSynth(cmd *cobra.Command, args []string) error {
	config, err := configs.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	samples := config.Audio.WindowSize
	if synthSamples > 0 {
		samples = synthSamples
	}
	sampleRate := config.Audio.SampleRate
	if synthSampleRate > 0 {
		sampleRate = synthSampleRate
	}
	if synthAmplitude <= 0 || synthAmplitude > 32767 {
		return fmt.Errorf("amplitude must be between 1 and 32767, got %d", synthAmplitude)
	}
	if synthNoiseAmplitude < 0 || synthNoiseAmplitude > 32767 {
		return fmt.Errorf("noise amplitude must be between 0 and 32767, got %d", synthNoiseAmplitude)
	}
	if synthDelayMs < 0 {
		return fmt.Errorf("delay cannot be negative")
	}

	delay := int(synthDelayMs * float64(sampleRate) / 1000)
	if delay >= samples {
		return fmt.Errorf("delay of %d samples does not fit in %d samples", delay, samples)
	}

	var reference []int16
	if synthToneHz > 0 {
		reference = pcm.Tone(samples, synthToneHz, sampleRate, int16(synthAmplitude))
	} else {
		reference = pcm.Noise(samples, int16(synthAmplitude), synthSeed)
	}
	degraded := pcm.Attenuate(pcm.Delay(reference, delay), synthGain)
	if synthNoiseAmplitude > 0 {
		degraded = pcm.Mix(degraded, pcm.Noise(samples, int16(synthNoiseAmplitude), synthSeed+1))
	}

	ext := ".raw"
	if synthWAV {
		ext = ".wav"
	}
	referencePath := filepath.Join(args[0], "reference"+ext)
	degradedPath := filepath.Join(args[0], "degraded"+ext)

	if err := pcm.Write(referencePath, reference, sampleRate); err != nil {
		return err
	}
	if err := pcm.Write(degradedPath, degraded, sampleRate); err != nil {
		return err
	}

	printSuccess("Reference: %s (%d samples at %d Hz)", referencePath, samples, sampleRate)
	printSuccess("Degraded:  %s (delay %d samples, gain %.2f)", degradedPath, delay, synthGain)
	printInfo("Expected delay: %d samples, %.3f ms", delay, float64(delay)*1000/float64(sampleRate))
	return nil
}
