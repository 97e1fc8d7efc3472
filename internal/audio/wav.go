package audio

import (
	"errors"
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	formatPCM        = 1
	formatExtensible = 0xFFFE
)

// ErrEmptySignal is returned when a file decodes to zero samples.
var ErrEmptySignal = errors.New("audio: no samples")

// Signal is a mono recording. Samples are in [-1, 1].
type Signal struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the signal length in seconds.
func (s *Signal) Duration() float64 {
	if s == nil || s.SampleRate <= 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(s.SampleRate)
}

// Load reads a PCM WAV file at its native sample rate and mixes it down to mono.
func Load(path string) (*Signal, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		if err := dec.Err(); err != nil {
			return nil, fmt.Errorf("invalid WAV file %s: %w", path, err)
		}
		// A well-formed fmt chunk with nothing to play.
		if dec.NumChans > 0 && dec.BitDepth >= 8 && dec.SampleRate > 0 {
			return nil, fmt.Errorf("%s: %w", path, ErrEmptySignal)
		}
		return nil, fmt.Errorf("invalid WAV file %s", path)
	}

	if dec.WavAudioFormat != formatPCM && dec.WavAudioFormat != formatExtensible {
		return nil, fmt.Errorf("unsupported audio format: %d (only PCM is supported)", dec.WavAudioFormat)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil && dec.PCMSize == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptySignal)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode PCM data: %w", err)
	}

	return fromIntBuffer(buf, int(dec.BitDepth))
}

func fromIntBuffer(buf *goaudio.IntBuffer, bitDepth int) (*Signal, error) {
	if buf == nil || buf.Format == nil {
		return nil, fmt.Errorf("missing PCM format")
	}
	channels := buf.Format.NumChannels
	if channels < 1 {
		return nil, fmt.Errorf("invalid channel count: %d", channels)
	}
	if buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", buf.Format.SampleRate)
	}
	if bitDepth <= 0 {
		bitDepth = buf.SourceBitDepth
	}
	if bitDepth < 8 || bitDepth > 32 {
		return nil, fmt.Errorf("unsupported bit depth: %d", bitDepth)
	}

	frames := len(buf.Data) / channels
	if frames == 0 {
		return nil, ErrEmptySignal
	}

	// 8-bit WAV is unsigned; wider depths are two's complement.
	offset := 0.0
	if bitDepth == 8 {
		offset = 128
	}
	scale := float64(int64(1) << (bitDepth - 1))

	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		sum := 0.0
		for c := 0; c < channels; c++ {
			sum += (float64(buf.Data[i*channels+c]) - offset) / scale
		}
		samples[i] = sum / float64(channels)
	}

	return &Signal{Samples: samples, SampleRate: buf.Format.SampleRate}, nil
}
