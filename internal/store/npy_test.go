package store

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Brownie44l1/stethoscope-api/internal/metrics"
	"github.com/Brownie44l1/stethoscope-api/internal/spectrogram"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPath(t *testing.T) {
	s := New("out", quietLogger(), nil)

	tests := []struct {
		audio, label, want string
	}{
		{"/data/101_1b1_Al_sc_Meditron.wav", "COPD", filepath.Join("out", "101_1b1_Al_sc_Meditron_COPD.npy")},
		{"rec.wav", "Unknown", filepath.Join("out", "rec_Unknown.npy")},
		{"dir/rec.v2.wav", "URTI", filepath.Join("out", "rec.v2_URTI.npy")},
		{"rec", "Healthy", filepath.Join("out", "rec_Healthy.npy")},
		{"rec.wav", "a/b", filepath.Join("out", "rec_a_b.npy")},
	}

	for _, tt := range tests {
		if got := s.Path(tt.audio, tt.label); got != tt.want {
			t.Errorf("Path(%q, %q) = %q, want %q", tt.audio, tt.label, got, tt.want)
		}
	}
}

func TestDefaultDir(t *testing.T) {
	if got := New("", nil, nil).Dir(); got != DefaultDir {
		t.Errorf("Dir() = %q, want %q", got, DefaultDir)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "Predicted_Spectrograms")
	m := metrics.New(prometheus.NewRegistry())
	s := New(dir, quietLogger(), m)

	spec := spectrogram.New(128, 128, 1)
	for i := range spec.Data {
		spec.Data[i] = -float64(i % 81)
	}

	path, err := s.Save("/recordings/patient_7.wav", "Pneumonia", spec)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if path != filepath.Join(dir, "patient_7_Pneumonia.npy") {
		t.Errorf("unexpected path %q", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("file not written: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got.Shape) != 3 || got.Shape[0] != 128 || got.Shape[1] != 128 || got.Shape[2] != 1 {
		t.Fatalf("expected shape [128 128 1], got %v", got.Shape)
	}
	for i := range spec.Data {
		if got.Data[i] != spec.Data[i] {
			t.Fatalf("Data[%d] = %f, want %f", i, got.Data[i], spec.Data[i])
		}
	}

	if n := testutil.ToFloat64(m.SpectrogramsSaved); n != 1 {
		t.Errorf("saved counter = %v, want 1", n)
	}
}

func TestSaveOverwrites(t *testing.T) {
	s := New(t.TempDir(), quietLogger(), nil)
	spec := spectrogram.New(2, 2, 1)

	first, err := s.Save("a.wav", "COPD", spec)
	if err != nil {
		t.Fatal(err)
	}
	spec.Data[0] = -7
	second, err := s.Save("a.wav", "COPD", spec)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Fatalf("expected same path, got %q and %q", first, second)
	}

	got, err := Load(second)
	if err != nil {
		t.Fatal(err)
	}
	if got.Data[0] != -7 {
		t.Errorf("expected overwritten value -7, got %f", got.Data[0])
	}
}

func TestSaveRejectsEmpty(t *testing.T) {
	s := New(t.TempDir(), quietLogger(), nil)

	if _, err := s.Save("a.wav", "COPD", nil); err == nil {
		t.Error("expected error for nil spectrogram")
	}
	if _, err := s.Save("a.wav", "COPD", &spectrogram.Spectrogram{}); err == nil {
		t.Error("expected error for empty spectrogram")
	}
}
