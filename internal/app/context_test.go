package app

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jchavanton/sign-xcorr/configs"
	"github.com/jchavanton/sign-xcorr/internal/latency"
	"github.com/jchavanton/sign-xcorr/pkg/audio/pcm"
	"github.com/jchavanton/sign-xcorr/pkg/audio/tone"
)

func writeBatchFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	reference := pcm.Noise(2048, 5000, 21)
	require.NoError(t, pcm.WriteRaw(filepath.Join(dir, "ref.raw"), reference))
	require.NoError(t, pcm.WriteRaw(filepath.Join(dir, "late.raw"), pcm.Delay(reference, 24)))

	path := filepath.Join(dir, "pairs.yaml")
	writeTestFile(t, path, `
window_length: 2048
pairs:
  - name: late-by-24
    degraded: late.raw
    reference: ref.raw
  - name: gone
    degraded: missing.raw
    reference: ref.raw
`)
	return path
}

func TestBatchApp_Run(t *testing.T) {
	var stdout bytes.Buffer
	batchApp, err := NewBatchApp(&Context{
		PairFile:     writeBatchFixture(t),
		OutputFormat: "json",
		Config:       configs.GetDefaultConfig(),
		Stdout:       &stdout,
	})
	require.NoError(t, err)

	summary, err := batchApp.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, summary.Comparisons, 2)
	assert.Equal(t, latency.StatusOK, summary.Comparisons[0].Status)
	assert.Equal(t, 24, summary.Comparisons[0].DelaySamples)
	assert.Equal(t, 3, summary.Comparisons[0].LagMs)
	assert.Equal(t, latency.StatusUnavailable, summary.Comparisons[1].Status)

	report := stdout.String()
	assert.Contains(t, report, "late-by-24")
	assert.Contains(t, report, "unavailable")
}

func TestBatchApp_RunWritesOutputFile(t *testing.T) {
	outputFile := filepath.Join(t.TempDir(), "out", "report.json")
	batchApp, err := NewBatchApp(&Context{
		PairFile:     writeBatchFixture(t),
		OutputFile:   outputFile,
		OutputFormat: "json",
		Config:       configs.GetDefaultConfig(),
	})
	require.NoError(t, err)

	_, err = batchApp.Run(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(outputFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "late-by-24")
}

func TestBatchApp_AllFailed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pairs.yaml")
	writeTestFile(t, path, "pairs:\n  - degraded: a.raw\n    reference: b.raw\n")

	batchApp, err := NewBatchApp(&Context{
		PairFile: path,
		Config:   configs.GetDefaultConfig(),
		Stdout:   &bytes.Buffer{},
	})
	require.NoError(t, err)

	summary, err := batchApp.Run(context.Background())
	assert.ErrorIs(t, err, ErrAllComparisonsFailed)
	require.NotNil(t, summary)
	assert.Equal(t, 1, summary.Failed)
}

func TestNewBatchApp_InvalidPairs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pairs.yaml")
	writeTestFile(t, path, "pairs:\n  - degraded: a.raw\n  - reference: b.raw\n")

	_, err := NewBatchApp(&Context{PairFile: path, Config: configs.GetDefaultConfig()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reference path is required")
	assert.Contains(t, err.Error(), "degraded path is required")

	_, err = NewBatchApp(&Context{Config: configs.GetDefaultConfig()})
	assert.ErrorContains(t, err, "pair file is required")
}

type sanitizeSample struct {
	Value   float64   `json:"value"`
	Values  []float64 `json:"values"`
	Skipped error     `json:"-"`
	Plain   int
}

func TestSanitizeForJSON(t *testing.T) {
	in := map[string]any{
		"nan":  math.NaN(),
		"list": []any{math.Inf(1), 2.5},
		"struct": &sanitizeSample{
			Value:  math.Inf(-1),
			Values: []float64{1, math.NaN()},
			Plain:  3,
		},
	}

	out := sanitizeForJSON(in).(map[string]any)
	assert.Equal(t, 0.0, out["nan"])
	assert.Equal(t, []any{0.0, 2.5}, out["list"])

	st := out["struct"].(map[string]any)
	assert.Equal(t, 0.0, st["value"])
	assert.Equal(t, []float64{1, 0}, st["values"])
	assert.Equal(t, 3, st["Plain"])
	assert.NotContains(t, st, "Skipped")
}

func TestFormatComparison(t *testing.T) {
	data, err := FormatComparison(&latency.Comparison{
		DegradedPath: "d.raw",
		Status:       latency.StatusUndefined,
		Diagnostics:  []string{"silent"},
	}, "json")
	require.NoError(t, err)
	assert.Contains(t, string(data), "undefined")
	assert.Contains(t, string(data), "silent")
}

func TestFormatTone(t *testing.T) {
	data, err := FormatTone(&tone.Result{
		FFTSize:     1024,
		DominantBin: 64,
		DominantHz:  500,
		LevelDB:     math.Inf(-1),
	}, "json")
	require.NoError(t, err)
	assert.Contains(t, string(data), "dominant_hz")
	assert.Contains(t, string(data), "500")
}
