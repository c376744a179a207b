// Package pcm loads fixed-length windows of 16-bit mono audio.
//
// Raw headerless files are read as signed little-endian 16-bit samples. Files
// with a .wav extension are decoded and must hold 16-bit mono PCM.
package pcm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// FullScale is the divisor used by NormalizationUnit.
const FullScale = 32767.0

const bytesPerSample = 2

// Normalization selects how int16 samples are widened to float64.
type Normalization int

const (
	// NormalizationRaw keeps raw int16 amplitude. Auto-correlation peaks are
	// then signal energy in raw units.
	NormalizationRaw Normalization = iota
	// NormalizationUnit scales samples to [-1, 1].
	NormalizationUnit
)

func (n Normalization) String() string {
	switch n {
	case NormalizationRaw:
		return "raw"
	case NormalizationUnit:
		return "unit"
	default:
		return fmt.Sprintf("normalization(%d)", int(n))
	}
}

// Window is a fixed-length slice of one channel of audio.
type Window struct {
	Path          string        `json:"path"`
	Samples       []float64     `json:"-"`
	ValidSamples  int           `json:"valid_samples"`
	ShortRead     bool          `json:"short_read"`
	SampleRate    int           `json:"sample_rate,omitempty"` // only known for WAV input
	Normalization Normalization `json:"normalization"`
}

// Len returns the window length N.
func (w *Window) Len() int {
	return len(w.Samples)
}

// Energy returns the sum of squared samples.
func (w *Window) Energy() float64 {
	energy := 0.0
	for _, s := range w.Samples {
		energy += s * s
	}
	return energy
}

type loadOptions struct {
	normalization Normalization
	strict        bool
	logger        logging.Logger
}

// LoadOption configures Load.
type LoadOption func(*loadOptions)

// WithNormalization selects the sample scaling. The default is NormalizationRaw.
func WithNormalization(n Normalization) LoadOption {
	return func(o *loadOptions) {
		o.normalization = n
	}
}

// WithStrict makes a short read an error instead of zero-padding the window.
func WithStrict() LoadOption {
	return func(o *loadOptions) {
		o.strict = true
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger logging.Logger) LoadOption {
	return func(o *loadOptions) {
		o.logger = logger
	}
}

// Load reads a window of exactly n samples from path. If the file holds fewer
// than n samples the tail is zero-filled and the window is flagged ShortRead.
func Load(path string, n int, opts ...LoadOption) (*Window, error) {
	options := &loadOptions{normalization: NormalizationRaw}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = logging.NewDefaultLogger()
	}

	if n <= 0 {
		return nil, NewLoadError(path, ErrCodeInvalidWindow,
			fmt.Sprintf("window length must be positive, got %d", n), nil)
	}

	logger := options.logger.WithFields(logging.Fields{
		"component": "pcm_loader",
		"path":      path,
	})

	file, err := os.Open(path)
	if err != nil {
		return nil, NewLoadError(path, ErrCodeUnavailable, "failed to open input file", err)
	}
	defer file.Close()

	var (
		raw        []int16
		read       int
		sampleRate int
	)
	if IsWAV(path) {
		raw, read, sampleRate, err = readWAV(file, n)
	} else {
		raw, read, err = ReadSamples(file, n)
	}
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			loadErr.Path = path
			return nil, loadErr
		}
		return nil, NewLoadError(path, ErrCodeUnavailable, "failed to read samples", err)
	}

	if read < n && options.strict {
		return nil, NewLoadError(path, ErrCodeShortRead,
			fmt.Sprintf("not enough samples: read %d of %d", read, n), nil)
	}

	window := &Window{
		Path:          path,
		Samples:       make([]float64, n),
		ValidSamples:  read,
		ShortRead:     read < n,
		SampleRate:    sampleRate,
		Normalization: options.normalization,
	}
	for i := 0; i < read; i++ {
		window.Samples[i] = widen(raw[i], options.normalization)
	}

	if window.ShortRead {
		logger.Warn("Short read, zero-padding window", logging.Fields{
			"read":   read,
			"wanted": n,
		})
	}

	logger.Debug("Window loaded", logging.Fields{
		"samples":       n,
		"valid_samples": read,
		"normalization": options.normalization.String(),
	})

	return window, nil
}

// ReadSamples reads up to n little-endian int16 samples from r. The returned
// slice always has length n; the count of samples actually read is returned
// alongside. Reaching EOF early is not an error.
func ReadSamples(r io.Reader, n int) ([]int16, int, error) {
	buf := make([]byte, n*bytesPerSample)
	got, err := io.ReadFull(r, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, 0, err
	}

	// A trailing odd byte is not a sample.
	read := got / bytesPerSample
	samples := make([]int16, n)
	for i := 0; i < read; i++ {
		samples[i] = int16(binary.LittleEndian.Uint16(buf[i*bytesPerSample:]))
	}
	return samples, read, nil
}

// IsWAV reports whether path is treated as a WAV container.
func IsWAV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".wav")
}

// readWAV decodes up to n samples of 16-bit mono PCM.
func readWAV(rs io.ReadSeeker, n int) ([]int16, int, int, error) {
	decoder := wav.NewDecoder(rs)
	if !decoder.IsValidFile() {
		return nil, 0, 0, NewLoadError("", ErrCodeDecoding, "invalid WAV file", decoder.Err())
	}

	format := decoder.Format()
	if format == nil {
		return nil, 0, 0, NewLoadError("", ErrCodeDecoding, "missing WAV format chunk", nil)
	}
	if decoder.BitDepth != 16 {
		return nil, 0, 0, NewLoadError("", ErrCodeUnsupportedFormat,
			fmt.Sprintf("unsupported bit depth %d, want 16", decoder.BitDepth), nil)
	}
	if format.NumChannels != 1 {
		return nil, 0, 0, NewLoadError("", ErrCodeUnsupportedFormat,
			fmt.Sprintf("unsupported channel count %d, want mono", format.NumChannels), nil)
	}

	data := make([]int, 0, n)
	chunk := &audio.IntBuffer{
		Format:         format,
		Data:           make([]int, n),
		SourceBitDepth: 16,
	}
	for len(data) < n {
		chunk.Data = chunk.Data[:n-len(data)]
		got, err := decoder.PCMBuffer(chunk)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, 0, 0, NewLoadError("", ErrCodeDecoding, "failed to read WAV samples", err)
		}
		if got == 0 {
			break
		}
		data = append(data, chunk.Data[:got]...)
	}

	samples := make([]int16, n)
	for i, v := range data {
		samples[i] = int16(v)
	}
	return samples, len(data), format.SampleRate, nil
}

func widen(sample int16, n Normalization) float64 {
	if n != NormalizationUnit {
		return float64(sample)
	}
	v := float64(sample) / FullScale
	if v < -1 {
		// -32768 is the only value outside [-1, 1].
		return -1
	}
	return v
}
