// Package store persists spectrograms as NumPy .npy arrays.
package store

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/kshedden/gonpy"

	"github.com/Brownie44l1/stethoscope-api/internal/metrics"
	"github.com/Brownie44l1/stethoscope-api/internal/spectrogram"
)

// DefaultDir is where spectrograms are written when no directory is configured.
const DefaultDir = "Predicted_Spectrograms"

// Store writes spectrograms under a single output directory.
type Store struct {
	dir     string
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func New(dir string, logger *slog.Logger, m *metrics.Metrics) *Store {
	if dir == "" {
		dir = DefaultDir
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{dir: dir, logger: logger, metrics: m}
}

// Dir returns the output directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file a spectrogram for audioPath and label is written to:
// <dir>/<audio base name without extension>_<label>.npy
func (s *Store) Path(audioPath, label string) string {
	base := filepath.Base(audioPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s.npy", base, sanitize(label)))
}

// Save writes spec as float32 with its own shape and returns the file path.
// The output directory is created if needed.
func (s *Store) Save(audioPath, label string, spec *spectrogram.Spectrogram) (string, error) {
	if spec == nil || spec.Len() == 0 {
		return "", fmt.Errorf("no spectrogram to save")
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", s.dir, err)
	}

	path := s.Path(audioPath, label)
	w, err := gonpy.NewFileWriter(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	w.Shape = append([]int(nil), spec.Shape...)

	if err := w.WriteFloat32(spec.Float32()); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	s.metrics.RecordSave()
	s.logger.Info("Saved spectrogram", slog.String("path", path), slog.String("label", label))
	return path, nil
}

// Load reads a spectrogram previously written by Save.
func Load(path string) (*spectrogram.Spectrogram, error) {
	r, err := gonpy.NewFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	data, err := r.GetFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	spec := &spectrogram.Spectrogram{
		Shape: append([]int(nil), r.Shape...),
		Data:  make([]float64, len(data)),
	}
	for i, v := range data {
		spec.Data[i] = float64(v)
	}
	return spec, nil
}

func sanitize(label string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, label)
}
