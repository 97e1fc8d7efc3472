package store

import (
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"strings"
)

// ImagePath is Path with a .png extension.
func (s *Store) ImagePath(audioPath, label string) string {
	return strings.TrimSuffix(s.Path(audioPath, label), ".npy") + ".png"
}

// SaveImage writes img as <dir>/<base>_<label>.png and returns the file path.
func (s *Store) SaveImage(audioPath, label string, img image.Image) (string, error) {
	if img == nil {
		return "", fmt.Errorf("no image to save")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", s.dir, err)
	}

	path := s.ImagePath(audioPath, label)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}

	s.logger.Info("Saved spectrogram image", slog.String("path", path))
	return path, nil
}
