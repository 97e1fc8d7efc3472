package spectrogram

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/Brownie44l1/stethoscope-api/internal/audio"
)

// Defaults match the features the respiratory classifier was trained on.
const (
	DefaultFFTSize = 2048
	DefaultHopSize = 512
	DefaultNumMels = 128
	DefaultHeight  = 128
	DefaultWidth   = 128
)

// Source is either a WAV path or in-memory samples with their sample rate.
type Source struct {
	fromFile   bool
	path       string
	samples    []float64
	sampleRate int
}

// FromFile reads the signal and its sample rate from a WAV file.
func FromFile(path string) Source {
	return Source{fromFile: true, path: path}
}

// FromSamples uses samples already in memory. sampleRate is required.
func FromSamples(samples []float64, sampleRate int) Source {
	return Source{samples: samples, sampleRate: sampleRate}
}

func (s Source) String() string {
	if s.fromFile {
		return s.path
	}
	return fmt.Sprintf("<%d samples @ %d Hz>", len(s.samples), s.sampleRate)
}

// Builder turns audio into fixed-shape dB mel spectrograms.
type Builder struct {
	FFTSize int
	HopSize int
	NumMels int
	Height  int
	Width   int

	logger *slog.Logger

	mu    sync.Mutex
	banks map[bankKey][][]float64
}

// NewBuilder returns a Builder with the default parameters.
func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		FFTSize: DefaultFFTSize,
		HopSize: DefaultHopSize,
		NumMels: DefaultNumMels,
		Height:  DefaultHeight,
		Width:   DefaultWidth,
		logger:  logger,
		banks:   make(map[bankKey][][]float64),
	}
}

// Build computes the spectrogram for src with shape [Height, Width, 1].
//
// A source built with FromSamples and no sample rate yields
// ErrInvalidArgument. Every other failure is logged and returned as a
// *ProcessingError with a nil spectrogram.
func (b *Builder) Build(src Source) (*Spectrogram, error) {
	if !src.fromFile && src.sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate is required for raw samples", ErrInvalidArgument)
	}

	spec, err := b.build(src)
	if err != nil {
		b.logger.Error("Error creating spectrogram",
			slog.String("source", src.String()),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	return spec, nil
}

func (b *Builder) build(src Source) (*Spectrogram, error) {
	samples, rate := src.samples, src.sampleRate
	if src.fromFile {
		sig, err := audio.Load(src.path)
		if err != nil {
			return nil, processingError("load", err)
		}
		samples, rate = sig.Samples, sig.SampleRate
	}

	if b.FFTSize <= 0 || b.HopSize <= 0 || b.NumMels <= 0 {
		return nil, processingError("stft", fmt.Errorf("invalid parameters: n_fft=%d hop=%d n_mels=%d", b.FFTSize, b.HopSize, b.NumMels))
	}
	if b.Height <= 0 || b.Width <= 0 {
		return nil, processingError("resize", fmt.Errorf("invalid target size %dx%d", b.Height, b.Width))
	}

	mel, err := melPower(samples, b.FFTSize, b.HopSize, b.filterBank(rate))
	if err != nil {
		return nil, processingError("stft", err)
	}

	toDecibels(mel)

	grid, err := resizeGrid(mel, b.Height, b.Width)
	if err != nil {
		return nil, processingError("resize", err)
	}

	spec := New(b.Height, b.Width, 1)
	for m, row := range grid {
		for t, v := range row {
			spec.Set(m, t, v)
		}
	}
	return spec, nil
}

type bankKey struct {
	sampleRate, nfft, numMels int
}

func (b *Builder) filterBank(sampleRate int) [][]float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := bankKey{sampleRate: sampleRate, nfft: b.FFTSize, numMels: b.NumMels}
	if bank, ok := b.banks[key]; ok {
		return bank
	}
	bank := melFilterBank(b.NumMels, b.FFTSize, sampleRate, 0, float64(sampleRate)/2)
	b.banks[key] = bank
	return bank
}
