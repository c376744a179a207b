package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jchavanton/sign-xcorr/configs"
)

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoadPairSetFromFile_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pairs.yaml")
	writeTestFile(t, path, `
version: "1.0"
window_length: 4096
pairs:
  - name: first
    degraded: rec/a.raw
    reference: /abs/ref.raw
  - degraded: rec/b.wav
    reference: rec/ref.wav
    sample_rate: 16000
`)

	set, err := loadPairSetFromFile(path)
	require.NoError(t, err)

	require.Len(t, set.Pairs, 2)
	assert.Equal(t, 4096, set.WindowLength)
	assert.Equal(t, "first", set.Pairs[0].Name)
	assert.Equal(t, filepath.Join(dir, "rec", "a.raw"), set.Pairs[0].Degraded)
	assert.Equal(t, "/abs/ref.raw", set.Pairs[0].Reference)
	assert.Equal(t, 16000, set.Pairs[1].SampleRate)
}

func TestLoadPairSetFromFile_JSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pairs.json")
	writeTestFile(t, path, `{"pairs": [{"name": "j", "degraded": "d.raw", "reference": "r.raw", "window_length": 1024}]}`)

	set, err := loadPairSetFromFile(path)
	require.NoError(t, err)
	require.Len(t, set.Pairs, 1)
	assert.Equal(t, 1024, set.Pairs[0].WindowLength)
	assert.Equal(t, filepath.Join(dir, "d.raw"), set.Pairs[0].Degraded)
}

func TestLoadPairSetFromFile_UnknownExtensionFallsBack(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "pairs.list")
	writeTestFile(t, yamlPath, "pairs:\n  - degraded: d.raw\n    reference: r.raw\n")
	set, err := loadPairSetFromFile(yamlPath)
	require.NoError(t, err)
	assert.Len(t, set.Pairs, 1)

	jsonPath := filepath.Join(dir, "pairs.txt")
	writeTestFile(t, jsonPath, `{"pairs":[{"degraded":"d.raw","reference":"r.raw"},{"degraded":"e.raw","reference":"r.raw"}]}`)
	set, err = loadPairSetFromFile(jsonPath)
	require.NoError(t, err)
	assert.Len(t, set.Pairs, 2)
}

func TestLoadPairSetFromFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := loadPairSetFromFile(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "does not exist")

	bad := filepath.Join(dir, "bad.json")
	writeTestFile(t, bad, "{not json")
	_, err = loadPairSetFromFile(bad)
	assert.ErrorContains(t, err, "failed to parse JSON")
}

func TestMergeBatchSettings(t *testing.T) {
	base := configs.GetDefaultConfig()
	set := &PairSet{WindowLength: 4096}

	settings := mergeBatchSettings(base, set, &Context{})
	assert.Equal(t, 4096, settings.WindowLength)
	assert.Equal(t, 8000, settings.SampleRate)
	assert.Equal(t, 4, settings.MaxConcurrency)
	assert.Equal(t, 5*time.Minute, settings.Timeout)
	assert.Equal(t, 1e-9, settings.MinEnergy)

	settings = mergeBatchSettings(base, set, &Context{
		WindowLength:  2048,
		SampleRate:    16000,
		MaxConcurrent: 8,
		Timeout:       time.Second,
	})
	assert.Equal(t, 2048, settings.WindowLength)
	assert.Equal(t, 16000, settings.SampleRate)
	assert.Equal(t, 8, settings.MaxConcurrency)
	assert.Equal(t, time.Second, settings.Timeout)
}

func TestMergeBatchSettings_FillsZeroBase(t *testing.T) {
	settings := mergeBatchSettings(&configs.Config{}, nil, &Context{})
	assert.Equal(t, 4, settings.MaxConcurrency)
	assert.Equal(t, 8192, settings.WindowLength)
	assert.Equal(t, 8000, settings.SampleRate)
}

func TestGenerateExamplePairSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pairs.yaml")
	require.NoError(t, GenerateExamplePairSet(path))

	set, err := loadPairSetFromFile(path)
	require.NoError(t, err)
	require.NoError(t, set.Validate())
	assert.Len(t, set.Pairs, 2)
	assert.Equal(t, 8192, set.WindowLength)
}
