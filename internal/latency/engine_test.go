package latency

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/jchavanton/sign-xcorr/pkg/audio/pcm"
	"github.com/jchavanton/sign-xcorr/pkg/audio/spectral"
)

const (
	testWindow = 8192
	testRate   = 8000
)

type EngineTestSuite struct {
	suite.Suite
	engine *MeasurementEngine
	dir    string

	reference []int16
	refPath   string
}

func (suite *EngineTestSuite) SetupSuite() {
	suite.engine = NewMeasurementEngine(&EngineConfig{
		Logger: logging.WithFields(logging.Fields{
			"component": "engine_test_suite",
		}),
	})
}

func (suite *EngineTestSuite) SetupTest() {
	suite.dir = suite.T().TempDir()
	suite.reference = pcm.Noise(testWindow, 8000, 7)
	suite.refPath = suite.write("reference.raw", suite.reference)
}

func (suite *EngineTestSuite) write(name string, samples []int16) string {
	path := filepath.Join(suite.dir, name)
	require.NoError(suite.T(), pcm.WriteRaw(path, samples))
	return path
}

func (suite *EngineTestSuite) TestSelfComparison() {
	c := suite.engine.Compare(context.Background(), suite.refPath, suite.refPath, testWindow, testRate)

	require.Equal(suite.T(), StatusOK, c.Status, c.ErrorMessage)
	assert.InDelta(suite.T(), 1.0, c.Coefficient, 1e-9)
	assert.Equal(suite.T(), 0, c.LagSamples)
	assert.Equal(suite.T(), testWindow*1000/testRate, c.LagMs)
	assert.Equal(suite.T(), 0, c.DelaySamples)
	assert.Zero(suite.T(), c.DelayMs)
	assert.Empty(suite.T(), c.Diagnostics)
	assert.InEpsilon(suite.T(), c.AutoPeakReference, c.AutoPeakDegraded, 1e-12)
}

func (suite *EngineTestSuite) TestSyntheticDelay() {
	degradedPath := suite.write("degraded.raw", pcm.Delay(suite.reference, 100))

	c := suite.engine.Compare(context.Background(), degradedPath, suite.refPath, testWindow, testRate)

	require.Equal(suite.T(), StatusOK, c.Status, c.ErrorMessage)
	assert.Equal(suite.T(), testWindow-100, c.LagSamples)
	assert.Equal(suite.T(), 12, c.LagMs)
	assert.Equal(suite.T(), 100, c.DelaySamples)
	assert.InDelta(suite.T(), 12.5, c.DelayMs, 1e-12)
	// 100 of 8192 samples fall off the end of the delayed copy.
	assert.Greater(suite.T(), c.Coefficient, 0.95)
	assert.LessOrEqual(suite.T(), c.Coefficient, 1.0+1e-9)
}

func (suite *EngineTestSuite) TestAttenuationKeepsCoefficient() {
	degraded := pcm.Attenuate(pcm.Delay(suite.reference, 40), 0.25)
	degradedPath := suite.write("quiet.raw", degraded)

	c := suite.engine.Compare(context.Background(), degradedPath, suite.refPath, testWindow, testRate)

	require.Equal(suite.T(), StatusOK, c.Status)
	assert.Equal(suite.T(), 40, c.DelaySamples)
	assert.Greater(suite.T(), c.Coefficient, 0.95)
}

func (suite *EngineTestSuite) TestMissingFile() {
	missing := filepath.Join(suite.dir, "missing.raw")

	c := suite.engine.Compare(context.Background(), missing, suite.refPath, testWindow, testRate)

	assert.Equal(suite.T(), StatusUnavailable, c.Status)
	require.Error(suite.T(), c.Error)
	assert.True(suite.T(), pcm.IsUnavailable(c.Error))
	assert.NotEmpty(suite.T(), c.ErrorMessage)
	assert.Zero(suite.T(), c.Coefficient)
	assert.Zero(suite.T(), c.CrossPeak)

	c = suite.engine.Compare(context.Background(), suite.refPath, missing, testWindow, testRate)
	assert.Equal(suite.T(), StatusUnavailable, c.Status)
}

func (suite *EngineTestSuite) TestSilentInputIsUndefined() {
	silentPath := suite.write("silent.raw", make([]int16, testWindow))

	c := suite.engine.Compare(context.Background(), silentPath, suite.refPath, testWindow, testRate)

	assert.Equal(suite.T(), StatusUndefined, c.Status)
	assert.Zero(suite.T(), c.Coefficient)
	assert.False(suite.T(), math.IsNaN(c.Coefficient))
	require.Len(suite.T(), c.Diagnostics, 2)
	assert.Contains(suite.T(), c.Diagnostics[0], "silent.raw: window is silent")
	assert.NoError(suite.T(), c.Error)
}

func (suite *EngineTestSuite) TestBothSilentIsUndefined() {
	silent := make([]int16, testWindow)
	degradedPath := suite.write("silent-degraded.raw", silent)
	referencePath := suite.write("silent-reference.raw", silent)

	c := suite.engine.Compare(context.Background(), degradedPath, referencePath, testWindow, testRate)

	assert.Equal(suite.T(), StatusUndefined, c.Status)
	assert.Zero(suite.T(), c.Coefficient)
	assert.False(suite.T(), math.IsNaN(c.Coefficient))
	assert.False(suite.T(), math.IsInf(c.Coefficient, 0))
	assert.Zero(suite.T(), c.AutoPeakDegraded)
	assert.Zero(suite.T(), c.AutoPeakReference)
	require.Len(suite.T(), c.Diagnostics, 3)
	assert.Contains(suite.T(), c.Diagnostics[0], "window is silent")
	assert.Contains(suite.T(), c.Diagnostics[1], "window is silent")
	assert.Contains(suite.T(), c.Diagnostics[2], "normalization denominator")
	assert.NoError(suite.T(), c.Error)
}

func (suite *EngineTestSuite) TestHalfFileAgainstItself() {
	halfPath := suite.write("half.raw", suite.reference[:testWindow/2])

	c := suite.engine.Compare(context.Background(), halfPath, halfPath, testWindow, testRate)

	require.Equal(suite.T(), StatusOK, c.Status, c.ErrorMessage)
	assert.InDelta(suite.T(), 1.0, c.Coefficient, 1e-9)
	assert.Equal(suite.T(), 0, c.LagSamples)
	assert.Equal(suite.T(), 0, c.DelaySamples)
	require.Len(suite.T(), c.Diagnostics, 2)
	for _, d := range c.Diagnostics {
		assert.Contains(suite.T(), d, "short read")
	}
}

func (suite *EngineTestSuite) TestShortFileIsZeroPadded() {
	shortPath := suite.write("short.raw", suite.reference[:testWindow/2])

	first := suite.engine.Compare(context.Background(), shortPath, suite.refPath, testWindow, testRate)
	second := suite.engine.Compare(context.Background(), shortPath, suite.refPath, testWindow, testRate)

	require.Equal(suite.T(), StatusOK, first.Status)
	assert.False(suite.T(), math.IsNaN(first.Coefficient))
	assert.False(suite.T(), math.IsInf(first.Coefficient, 0))
	require.Len(suite.T(), first.Diagnostics, 1)
	assert.Contains(suite.T(), first.Diagnostics[0], "short read")

	assert.Equal(suite.T(), first.Coefficient, second.Coefficient)
	assert.Equal(suite.T(), first.LagSamples, second.LagSamples)
	assert.Equal(suite.T(), 0, first.DelaySamples)
}

func (suite *EngineTestSuite) TestInvalidParameters() {
	c := suite.engine.Compare(context.Background(), suite.refPath, suite.refPath, 1000, testRate)
	assert.Equal(suite.T(), StatusInvalid, c.Status)
	assert.ErrorIs(suite.T(), c.Error, spectral.ErrNotPowerOfTwo)

	c = suite.engine.Compare(context.Background(), suite.refPath, suite.refPath, testWindow, 0)
	assert.Equal(suite.T(), StatusInvalid, c.Status)
	assert.ErrorIs(suite.T(), c.Error, spectral.ErrInvalidRate)
}

func (suite *EngineTestSuite) TestCancelledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := suite.engine.Compare(ctx, suite.refPath, suite.refPath, testWindow, testRate)

	assert.Equal(suite.T(), StatusCancelled, c.Status)
	assert.ErrorIs(suite.T(), c.Error, context.Canceled)
}

func TestEngineTestSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

func TestNewMeasurementEngine_Defaults(t *testing.T) {
	engine := NewMeasurementEngine(nil)
	assert.Equal(t, DefaultMinEnergy, engine.minEnergy)
	assert.NotNil(t, engine.logger)
	assert.NotNil(t, engine.correlator)

	engine = NewMeasurementEngine(&EngineConfig{MinEnergy: 5})
	assert.Equal(t, 5.0, engine.minEnergy)
}

func TestPairSet_Validate(t *testing.T) {
	set := &PairSet{
		Pairs: []*Pair{
			{Name: "a", Degraded: "a.raw", Reference: "ref.raw"},
			{Name: "a", Degraded: "b.raw", Reference: "ref.raw"},
			{Degraded: "c.raw"},
			{Degraded: "d.raw", Reference: "ref.raw", WindowLength: 1000},
			nil,
		},
	}

	err := set.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already used by pair 0")
	assert.Contains(t, err.Error(), "reference path is required")
	assert.Contains(t, err.Error(), "power of two")
	assert.Contains(t, err.Error(), "entry is empty")

	assert.Error(t, (&PairSet{}).Validate())
}

func TestPairSet_ApplyDefaults(t *testing.T) {
	set := &PairSet{
		SampleRate: 16000,
		Pairs: []*Pair{
			{Degraded: "a.raw", Reference: "r.raw"},
			{Degraded: "b.raw", Reference: "r.raw", WindowLength: 1024, SampleRate: 8000},
		},
	}
	set.ApplyDefaults(4096, 8000)

	assert.Equal(t, 4096, set.Pairs[0].WindowLength)
	assert.Equal(t, 16000, set.Pairs[0].SampleRate)
	assert.Equal(t, 1024, set.Pairs[1].WindowLength)
	assert.Equal(t, 8000, set.Pairs[1].SampleRate)
	require.NoError(t, set.Validate())
}

func TestPair_Label(t *testing.T) {
	assert.Equal(t, "named", (&Pair{Name: "named", Degraded: "x.raw"}).Label())
	assert.Equal(t, "call-17", (&Pair{Degraded: "/tmp/rec/call-17.wav"}).Label())
}
