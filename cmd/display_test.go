package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jchavanton/sign-xcorr/internal/latency"
)

func TestPerformanceTimer(t *testing.T) {
	timer := NewPerformanceTimer()

	timer.StartEvent("load")
	time.Sleep(time.Millisecond)
	d := timer.EndEvent("load")

	assert.Positive(t, d)
	assert.Equal(t, d, timer.GetDuration("load"))
	assert.Zero(t, timer.EndEvent("never-started"))
	assert.Equal(t, []string{"load"}, timer.Events())
	assert.GreaterOrEqual(t, timer.GetTotalDuration(), d)
}

func TestStatusLabel(t *testing.T) {
	assert.Contains(t, statusLabel(latency.StatusOK), "OK")
	assert.Contains(t, statusLabel(latency.StatusUnavailable), "Unavailable")
	assert.Contains(t, statusLabel(latency.StatusUndefined), "Undefined")
}

func TestApplyLogLevel(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", ""} {
		assert.NoError(t, applyLogLevel(level), level)
	}
	assert.Error(t, applyLogLevel("trace"))
	assert.NoError(t, applyLogLevel("info"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
