package app

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jchavanton/sign-xcorr/configs"
	"github.com/jchavanton/sign-xcorr/internal/benchmark"
	"github.com/jchavanton/sign-xcorr/internal/latency"
)

type PairSet = latency.PairSet

// loadPairSetFromFile loads a batch pair file, YAML or JSON by extension
func loadPairSetFromFile(filePath string) (*PairSet, error) {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("pair file does not exist: %s", filePath)
	}

	ext := filepath.Ext(filePath)
	switch ext {
	case ".yaml", ".yml":
		return loadPairSetFromYAML(filePath)
	case ".json":
		return loadPairSetFromJSON(filePath)
	default:
		// Try YAML first, then JSON
		if set, err := loadPairSetFromYAML(filePath); err == nil {
			return set, nil
		}
		return loadPairSetFromJSON(filePath)
	}
}

func readPairFile(filePath, kind string) ([]byte, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s pair file: %w", kind, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s pair file: %w", kind, err)
	}
	return data, nil
}

// loadPairSetFromYAML loads a pair set from a YAML file
func loadPairSetFromYAML(filePath string) (*PairSet, error) {
	data, err := readPairFile(filePath, "YAML")
	if err != nil {
		return nil, err
	}

	var set PairSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse YAML pair file: %w", err)
	}
	if len(set.Pairs) == 0 {
		return nil, fmt.Errorf("YAML pair file has no pairs")
	}

	resolvePaths(&set, filepath.Dir(filePath))
	return &set, nil
}

// loadPairSetFromJSON loads a pair set from a JSON file
func loadPairSetFromJSON(filePath string) (*PairSet, error) {
	data, err := readPairFile(filePath, "JSON")
	if err != nil {
		return nil, err
	}

	var set PairSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse JSON pair file: %w", err)
	}

	resolvePaths(&set, filepath.Dir(filePath))
	return &set, nil
}

// resolvePaths makes relative input paths relative to the pair file directory
func resolvePaths(set *PairSet, baseDir string) {
	for _, pair := range set.Pairs {
		if pair == nil {
			continue
		}
		if pair.Degraded != "" && !filepath.IsAbs(pair.Degraded) {
			pair.Degraded = filepath.Join(baseDir, pair.Degraded)
		}
		if pair.Reference != "" && !filepath.IsAbs(pair.Reference) {
			pair.Reference = filepath.Join(baseDir, pair.Reference)
		}
	}
}

// mergeBatchSettings merges base config, pair file defaults and CLI flags.
// CLI flags win over the pair file, which wins over the base config.
func mergeBatchSettings(baseConfig *configs.Config, set *PairSet, ctx *Context) *benchmark.Settings {
	settings := &benchmark.Settings{
		MaxConcurrency: baseConfig.Batch.MaxConcurrency,
		Timeout:        baseConfig.Batch.Timeout,
		MinEnergy:      baseConfig.Correlation.MinEnergy,
		WindowLength:   baseConfig.Audio.WindowSize,
		SampleRate:     baseConfig.Audio.SampleRate,
	}

	if set != nil {
		if set.WindowLength > 0 {
			settings.WindowLength = set.WindowLength
		}
		if set.SampleRate > 0 {
			settings.SampleRate = set.SampleRate
		}
	}

	if ctx.Timeout > 0 {
		settings.Timeout = ctx.Timeout
	}
	if ctx.MaxConcurrent > 0 {
		settings.MaxConcurrency = ctx.MaxConcurrent
	}
	if ctx.WindowLength > 0 {
		settings.WindowLength = ctx.WindowLength
	}
	if ctx.SampleRate > 0 {
		settings.SampleRate = ctx.SampleRate
	}

	applyBatchDefaults(settings)
	return settings
}

// applyBatchDefaults fills settings left unset by every source
func applyBatchDefaults(settings *benchmark.Settings) {
	defaults := configs.GetDefaultConfig()

	if settings.MaxConcurrency <= 0 {
		settings.MaxConcurrency = defaults.Batch.MaxConcurrency
	}
	if settings.WindowLength <= 0 {
		settings.WindowLength = defaults.Audio.WindowSize
	}
	if settings.SampleRate <= 0 {
		settings.SampleRate = defaults.Audio.SampleRate
	}
	if settings.MinEnergy <= 0 {
		settings.MinEnergy = defaults.Correlation.MinEnergy
	}
}

// GenerateExamplePairSet writes an example batch pair file
func GenerateExamplePairSet(outputFile string) error {
	example := &PairSet{
		Version:      "1.0",
		Description:  "Example degraded/reference pairs",
		UpdatedAt:    time.Now().UTC().Truncate(time.Second),
		WindowLength: configs.GetDefaultAudioConfig().WindowSize,
		SampleRate:   configs.GetDefaultAudioConfig().SampleRate,
		Pairs: []*latency.Pair{
			{
				Name:      "call-001",
				Degraded:  "recordings/call-001-degraded.raw",
				Reference: "recordings/call-001-reference.raw",
			},
			{
				Name:         "call-002-wideband",
				Degraded:     "recordings/call-002-degraded.wav",
				Reference:    "recordings/call-002-reference.wav",
				WindowLength: 16384,
				SampleRate:   16000,
			},
		},
	}

	data, err := yaml.Marshal(example)
	if err != nil {
		return fmt.Errorf("failed to marshal example pair file: %w", err)
	}

	dir := filepath.Dir(outputFile)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(outputFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write pair file: %w", err)
	}

	return nil
}
