package model

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Brownie44l1/stethoscope-api/internal/audio/audiotest"
	"github.com/Brownie44l1/stethoscope-api/internal/metrics"
	"github.com/Brownie44l1/stethoscope-api/internal/spectrogram"
)

type fakeClassifier struct {
	mu     sync.Mutex
	probs  []float32
	err    error
	calls  int
	input  []float32
	closed bool
}

func (f *fakeClassifier) Classify(input []float32) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.input = append([]float32(nil), input...)
	if f.err != nil {
		return nil, f.err
	}
	return append([]float32(nil), f.probs...), nil
}

func (f *fakeClassifier) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

type countingLoader struct {
	attempts   int
	classifier Classifier
	err        error
}

func (l *countingLoader) Load() (Classifier, error) {
	l.attempts++
	if l.err != nil {
		return nil, l.err
	}
	return l.classifier, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(load Loader, opts ...Option) *Service {
	return NewService(load, append([]Option{WithLogger(quietLogger())}, opts...)...)
}

func writeRecording(t *testing.T) string {
	t.Helper()
	return audiotest.WriteSine(t, t.TempDir(), "patient_101.wav", 4000, 2, 180)
}

func TestPredictModelUnavailable(t *testing.T) {
	loader := &countingLoader{err: errors.New("open model/respiratory_cnn_model.onnx: no such file")}
	svc := newTestService(loader.Load)
	path := writeRecording(t)

	for i := 0; i < 3; i++ {
		res := svc.Predict(path)

		if res.Outcome != OutcomeModelUnavailable {
			t.Fatalf("call %d: expected model unavailable, got %v", i, res.Outcome)
		}
		if res.Label != LabelError {
			t.Errorf("call %d: expected label %q, got %q", i, LabelError, res.Label)
		}
		if res.Confidence != 0 {
			t.Errorf("call %d: expected confidence 0, got %f", i, res.Confidence)
		}
		if res.Spectrogram != nil || res.Probabilities != nil {
			t.Errorf("call %d: expected no spectrogram or probabilities", i)
		}
		if res.Signal == nil || res.Signal.SampleRate != 4000 {
			t.Errorf("call %d: expected the decoded signal to be returned", i)
		}
		if !errors.Is(res.Err, ErrModelUnavailable) {
			t.Errorf("call %d: expected ErrModelUnavailable, got %v", i, res.Err)
		}
	}

	if loader.attempts != 1 {
		t.Errorf("expected exactly 1 load attempt, got %d", loader.attempts)
	}
	if svc.State() != StateFailed {
		t.Errorf("expected state failed, got %v", svc.State())
	}
}

func TestPredictLowConfidence(t *testing.T) {
	probs := []float32{0.1, 0.1, 0.1, 0.1, 0.1, 0.5}
	fc := &fakeClassifier{probs: probs}
	svc := newTestService(func() (Classifier, error) { return fc, nil })

	res := svc.Predict(writeRecording(t))

	if res.Outcome != OutcomeLowConfidence {
		t.Fatalf("expected low confidence, got %v (%v)", res.Outcome, res.Err)
	}
	if res.Label != LabelUnknown {
		t.Errorf("expected label %q, got %q", LabelUnknown, res.Label)
	}
	if res.Confidence != 0.5 {
		t.Errorf("expected confidence 0.5, got %f", res.Confidence)
	}
	if len(res.Probabilities) != len(probs) {
		t.Fatalf("expected %d probabilities, got %d", len(probs), len(res.Probabilities))
	}
	for i := range probs {
		if res.Probabilities[i] != probs[i] {
			t.Errorf("probability %d = %f, want %f", i, res.Probabilities[i], probs[i])
		}
	}
	if res.Spectrogram == nil {
		t.Error("expected spectrogram for low confidence result")
	}
}

func TestPredictClassified(t *testing.T) {
	fc := &fakeClassifier{probs: []float32{0.02, 0.02, 0.02, 0.02, 0.02, 0.9}}
	svc := newTestService(func() (Classifier, error) { return fc, nil })

	res := svc.Predict(writeRecording(t))

	if res.Outcome != OutcomeClassified {
		t.Fatalf("expected classified, got %v (%v)", res.Outcome, res.Err)
	}
	if res.Label != "Bronchiolitis" {
		t.Errorf("expected Bronchiolitis, got %q", res.Label)
	}
	if res.Confidence != 0.9 {
		t.Errorf("expected confidence 0.9, got %f", res.Confidence)
	}
	if res.Spectrogram == nil || res.Spectrogram.Len() != 128*128 {
		t.Fatalf("expected 128x128x1 spectrogram, got %v", res.Spectrogram)
	}
	if !res.HasPrediction() {
		t.Error("HasPrediction() = false")
	}
}

func TestPredictThresholdBoundary(t *testing.T) {
	fc := &fakeClassifier{probs: []float32{0.7, 0.1, 0.1, 0.05, 0.03, 0.02}}
	svc := newTestService(func() (Classifier, error) { return fc, nil })

	res := svc.Predict(writeRecording(t))

	if res.Outcome != OutcomeClassified || res.Label != "URTI" {
		t.Errorf("confidence equal to threshold should classify, got %v %q", res.Outcome, res.Label)
	}
}

func TestPredictFeedsNormalizedInput(t *testing.T) {
	fc := &fakeClassifier{probs: []float32{0, 1, 0, 0, 0, 0}}
	svc := newTestService(func() (Classifier, error) { return fc, nil })

	res := svc.Predict(writeRecording(t))
	if res.Label != "Healthy" {
		t.Fatalf("expected Healthy, got %q (%v)", res.Label, res.Err)
	}

	if len(fc.input) != 128*128 {
		t.Fatalf("expected %d input values, got %d", 128*128, len(fc.input))
	}
	var min, max float32 = 1, 0
	for _, v := range fc.input {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if min != 0 || max != 1 {
		t.Errorf("expected input scaled to [0,1], got [%f,%f]", min, max)
	}

	// The returned spectrogram stays in dB.
	for _, v := range res.Spectrogram.Data {
		if v > 1e-6 {
			t.Fatalf("expected dB values <= 0, got %f", v)
		}
	}
}

func TestPredictUndecodableAudio(t *testing.T) {
	fc := &fakeClassifier{probs: []float32{0, 0, 1, 0, 0, 0}}
	loader := &countingLoader{classifier: fc}
	svc := newTestService(loader.Load)

	path := audiotest.WriteGarbage(t, t.TempDir(), "broken.wav")
	res := svc.Predict(path)

	if res.Outcome != OutcomeProcessingFailed {
		t.Fatalf("expected processing failed, got %v", res.Outcome)
	}
	if res.Spectrogram != nil || res.Probabilities != nil || res.Label != "" {
		t.Errorf("expected empty result, got label=%q", res.Label)
	}
	if res.Err == nil {
		t.Error("expected error detail")
	}
	if fc.calls != 0 {
		t.Errorf("classifier should not run, ran %d times", fc.calls)
	}
}

func TestPredictSpectrogramFailureIsDistinct(t *testing.T) {
	fc := &fakeClassifier{probs: []float32{0, 0, 1, 0, 0, 0}}
	builder := spectrogram.NewBuilder(quietLogger())
	builder.FFTSize = 0

	svc := newTestService(func() (Classifier, error) { return fc, nil }, WithBuilder(builder))
	res := svc.Predict(writeRecording(t))

	if res.Outcome != OutcomeProcessingFailed {
		t.Fatalf("expected processing failed, got %v", res.Outcome)
	}
	if res.Label == LabelError {
		t.Error("processing failure must not look like model unavailable")
	}
	if res.Signal == nil {
		t.Error("expected signal to be returned")
	}
	if !errors.Is(res.Err, spectrogram.ErrProcessing) {
		t.Errorf("expected spectrogram processing error, got %v", res.Err)
	}
	if fc.calls != 0 {
		t.Errorf("classifier should not run, ran %d times", fc.calls)
	}
}

func TestPredictClassifierErrors(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))

	tests := []struct {
		name string
		fc   *fakeClassifier
	}{
		{"inference error", &fakeClassifier{err: errors.New("inference failed")}},
		{"wrong output length", &fakeClassifier{probs: []float32{0.5, 0.5}}},
		{"nan output", &fakeClassifier{probs: []float32{nan, nan, nan, nan, nan, nan}}},
		{"nan beside a confident class", &fakeClassifier{probs: []float32{0.9, 0, 0, nan, 0, 0}}},
		{"infinite output", &fakeClassifier{probs: []float32{inf, 0, 0, 0, 0, 0}}},
	}

	path := writeRecording(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(func() (Classifier, error) { return tt.fc, nil })
			res := svc.Predict(path)
			if res.Outcome != OutcomeProcessingFailed {
				t.Fatalf("expected processing failed, got %v", res.Outcome)
			}
			if res.Err == nil {
				t.Error("expected error detail")
			}
			if res.Label != "" || res.Probabilities != nil || res.Spectrogram != nil {
				t.Errorf("expected no prediction, got label=%q", res.Label)
			}
			if _, err := json.Marshal(res.Response()); err != nil {
				t.Errorf("response must stay encodable: %v", err)
			}
		})
	}
}

func TestStateTransitions(t *testing.T) {
	fc := &fakeClassifier{probs: []float32{1, 0, 0, 0, 0, 0}}
	loader := &countingLoader{classifier: fc}
	svc := newTestService(loader.Load)

	if svc.State() != StateUnloaded {
		t.Fatalf("expected unloaded, got %v", svc.State())
	}

	path := writeRecording(t)
	svc.Predict(path)
	svc.Predict(path)

	if svc.State() != StateLoaded {
		t.Errorf("expected loaded, got %v", svc.State())
	}
	if loader.attempts != 1 {
		t.Errorf("expected 1 load attempt, got %d", loader.attempts)
	}
	if fc.calls != 2 {
		t.Errorf("expected 2 forward passes, got %d", fc.calls)
	}

	if err := svc.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !fc.closed {
		t.Error("classifier not closed")
	}
	if res := svc.Predict(path); res.Outcome != OutcomeModelUnavailable {
		t.Errorf("expected model unavailable after Close, got %v", res.Outcome)
	}
	if loader.attempts != 1 {
		t.Errorf("Close must not trigger a reload, got %d attempts", loader.attempts)
	}
}

func TestLoaderReturningNil(t *testing.T) {
	svc := newTestService(func() (Classifier, error) { return nil, nil })

	res := svc.Predict(writeRecording(t))
	if res.Outcome != OutcomeModelUnavailable {
		t.Errorf("expected model unavailable, got %v", res.Outcome)
	}
}

func TestPredictRecordsMetrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	fc := &fakeClassifier{probs: []float32{0.02, 0.02, 0.9, 0.02, 0.02, 0.02}}
	svc := newTestService(func() (Classifier, error) { return fc, nil }, WithMetrics(m))

	svc.Predict(writeRecording(t))
	svc.Predict(filepath.Join(t.TempDir(), "missing.wav"))

	if got := testutil.ToFloat64(m.Predictions.WithLabelValues("classified")); got != 1 {
		t.Errorf("classified = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Predictions.WithLabelValues("processing_failed")); got != 1 {
		t.Errorf("processing_failed = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.PredictedLabels.WithLabelValues("COPD")); got != 1 {
		t.Errorf("COPD = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ModelLoads.WithLabelValues("success")); got != 1 {
		t.Errorf("model loads = %v, want 1", got)
	}
}

func TestResultResponse(t *testing.T) {
	fc := &fakeClassifier{probs: []float32{0.02, 0.02, 0.02, 0.02, 0.9, 0.02}}
	svc := newTestService(func() (Classifier, error) { return fc, nil })

	resp := svc.Predict(writeRecording(t)).Response()

	if resp.Outcome != "classified" || resp.Class != "Pneumonia" {
		t.Errorf("unexpected response %+v", resp)
	}
	if len(resp.Predictions) != 6 || resp.Predictions["Pneumonia"] != 0.9 {
		t.Errorf("unexpected predictions %v", resp.Predictions)
	}
	if len(resp.SpectrogramShape) != 3 || resp.SpectrogramShape[0] != 128 {
		t.Errorf("unexpected shape %v", resp.SpectrogramShape)
	}
	if resp.SampleRate != 4000 || resp.DurationSeconds != 2 {
		t.Errorf("unexpected audio info: %d Hz, %f s", resp.SampleRate, resp.DurationSeconds)
	}
	if resp.Error != "" {
		t.Errorf("unexpected error %q", resp.Error)
	}
}

func TestOutcomeString(t *testing.T) {
	tests := map[Outcome]string{
		OutcomeClassified:       "classified",
		OutcomeLowConfidence:    "low_confidence",
		OutcomeModelUnavailable: "model_unavailable",
		OutcomeProcessingFailed: "processing_failed",
		Outcome(42):             "unknown",
	}
	for o, want := range tests {
		if o.String() != want {
			t.Errorf("%d.String() = %q, want %q", o, o.String(), want)
		}
	}
}
