package spectral

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransform_InvalidLength(t *testing.T) {
	_, err := NewTransform(1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidLength)
}

func TestTransform_Bins(t *testing.T) {
	tr, err := NewTransform(8192)
	require.NoError(t, err)
	assert.Equal(t, 8192, tr.n)
	assert.Equal(t, 4097, tr.Bins())
}

func TestTransform_ImpulseHasFlatSpectrum(t *testing.T) {
	tr, err := NewTransform(16)
	require.NoError(t, err)

	impulse := make([]float64, 16)
	impulse[0] = 1

	spectrum, err := tr.Forward(nil, impulse)
	require.NoError(t, err)
	require.Len(t, spectrum, 9)
	for i, bin := range spectrum {
		assert.InDelta(t, 1.0, real(bin), 1e-12, "bin %d", i)
		assert.InDelta(t, 0.0, imag(bin), 1e-12, "bin %d", i)
	}
}

func TestTransform_RoundTripIsScaledByLength(t *testing.T) {
	const n = 64
	tr, err := NewTransform(n)
	require.NoError(t, err)

	samples := make([]float64, n)
	for i := range samples {
		samples[i] = math.Sin(2*math.Pi*3*float64(i)/n) + 0.25*float64(i%5)
	}
	original := append([]float64(nil), samples...)

	spectrum, err := tr.Forward(nil, samples)
	require.NoError(t, err)
	restored, err := tr.Inverse(nil, spectrum)
	require.NoError(t, err)

	assert.Equal(t, original, samples, "forward transform must not modify its input")
	for i := range samples {
		assert.InDelta(t, n*samples[i], restored[i], 1e-9, "sample %d", i)
	}
}

func TestTransform_RealSignalEdgeBinsAreReal(t *testing.T) {
	const n = 32
	tr, err := NewTransform(n)
	require.NoError(t, err)

	samples := make([]float64, n)
	for i := range samples {
		samples[i] = float64((i*7)%11) - 5
	}
	spectrum, err := tr.Forward(nil, samples)
	require.NoError(t, err)

	assert.InDelta(t, 0.0, imag(spectrum[0]), 1e-9)
	assert.InDelta(t, 0.0, imag(spectrum[n/2]), 1e-9)
	assert.Greater(t, cmplx.Abs(spectrum[1]), 0.0)
}

func TestTransform_LengthMismatch(t *testing.T) {
	tr, err := NewTransform(8)
	require.NoError(t, err)

	_, err = tr.Forward(nil, make([]float64, 7))
	assert.ErrorIs(t, err, ErrSampleLength)

	_, err = tr.Inverse(nil, make([]complex128, 4))
	assert.ErrorIs(t, err, ErrSpectrumLength)
}

func TestTransform_ReusesDestination(t *testing.T) {
	tr, err := NewTransform(8)
	require.NoError(t, err)

	dst := make([]complex128, tr.Bins())
	out, err := tr.Forward(dst, make([]float64, 8))
	require.NoError(t, err)
	assert.Same(t, &dst[0], &out[0])
}

func TestBinFrequency(t *testing.T) {
	assert.InDelta(t, 7.8125, BinFrequency(1, 1024, 8000), 1e-12)
	assert.InDelta(t, 4000.0, BinFrequency(512, 1024, 8000), 1e-12)
	assert.Zero(t, BinFrequency(0, 1024, 8000))
}

func TestValidateWindow(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		rate    int
		wantErr error
	}{
		{name: "valid", n: 8192, rate: 8000},
		{name: "too short", n: 1, rate: 8000, wantErr: ErrInvalidLength},
		{name: "not power of two", n: 1000, rate: 8000, wantErr: ErrNotPowerOfTwo},
		{name: "zero rate", n: 4096, rate: 0, wantErr: ErrInvalidRate},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateWindow(tc.n, tc.rate)
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}
