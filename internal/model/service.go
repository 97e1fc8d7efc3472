package model

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/Brownie44l1/stethoscope-api/internal/audio"
	"github.com/Brownie44l1/stethoscope-api/internal/metrics"
	"github.com/Brownie44l1/stethoscope-api/internal/spectrogram"
)

// ErrModelUnavailable is wrapped into Result.Err when the classifier could not
// be loaded.
var ErrModelUnavailable = errors.New("model unavailable")

// State is the classifier lifecycle. Loaded and Failed are terminal.
type State int

const (
	StateUnloaded State = iota
	StateLoaded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return "invalid"
	}
}

// Service owns the classifier and turns recordings into Results.
type Service struct {
	load      Loader
	builder   *spectrogram.Builder
	loadAudio func(path string) (*audio.Signal, error)
	logger    *slog.Logger
	metrics   *metrics.Metrics

	mu         sync.Mutex
	state      State
	classifier Classifier
	loadErr    error

	// serializes forward passes; ONNXClassifier reuses its tensors
	inferMu sync.Mutex
	closed  bool
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithBuilder(b *spectrogram.Builder) Option {
	return func(s *Service) { s.builder = b }
}

// NewService creates a Service in StateUnloaded. load is not called until the
// first prediction needs the classifier.
func NewService(load Loader, opts ...Option) *Service {
	s := &Service{
		load:      load,
		loadAudio: audio.Load,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.builder == nil {
		s.builder = spectrogram.NewBuilder(s.logger)
	}
	return s
}

// State returns the current classifier state.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Builder returns the spectrogram builder used by Predict.
func (s *Service) Builder() *spectrogram.Builder {
	return s.builder
}

// ensureLoaded runs the loader on the first call only.
func (s *Service) ensureLoaded() (Classifier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateLoaded:
		return s.classifier, nil
	case StateFailed:
		return nil, s.loadErr
	}

	c, err := s.load()
	if err == nil && c == nil {
		err = errors.New("loader returned no classifier")
	}
	if err != nil {
		s.state = StateFailed
		s.loadErr = fmt.Errorf("%w: %v", ErrModelUnavailable, err)
		s.metrics.RecordModelLoad(false)
		s.logger.Error("Error loading model", slog.String("error", err.Error()))
		return nil, s.loadErr
	}

	s.state = StateLoaded
	s.classifier = c
	s.metrics.RecordModelLoad(true)
	s.logger.Info("Model loaded successfully")
	return c, nil
}

// Predict classifies the recording at audioPath. It never panics or returns
// an error directly; every failure is folded into the Result's Outcome.
func (s *Service) Predict(audioPath string) Result {
	res := s.predict(audioPath)
	s.metrics.RecordPrediction(res.Outcome.String(), res.Label)

	attrs := []any{
		slog.String("path", audioPath),
		slog.String("outcome", res.Outcome.String()),
	}
	if res.Label != "" {
		attrs = append(attrs, slog.String("label", res.Label), slog.Float64("confidence", float64(res.Confidence)))
	}
	if res.Err != nil {
		attrs = append(attrs, slog.String("error", res.Err.Error()))
	}
	s.logger.Info("Prediction finished", attrs...)
	return res
}

func (s *Service) predict(audioPath string) Result {
	sig, err := s.loadAudio(audioPath)
	if err != nil {
		return Result{Outcome: OutcomeProcessingFailed, Err: err}
	}

	classifier, err := s.ensureLoaded()
	if err != nil {
		return Result{
			Outcome:    OutcomeModelUnavailable,
			Label:      LabelError,
			Confidence: 0,
			Signal:     sig,
			Err:        err,
		}
	}

	// The builder decodes the file again on its own.
	start := time.Now()
	spec, err := s.builder.Build(spectrogram.FromFile(audioPath))
	s.metrics.ObserveSpectrogram(time.Since(start))
	if err != nil {
		return Result{Outcome: OutcomeProcessingFailed, Signal: sig, Err: err}
	}

	input := spectrogram.Normalize(spec).Float32()

	s.inferMu.Lock()
	if s.closed {
		s.inferMu.Unlock()
		return Result{
			Outcome: OutcomeModelUnavailable,
			Label:   LabelError,
			Signal:  sig,
			Err:     fmt.Errorf("%w: service closed", ErrModelUnavailable),
		}
	}
	start = time.Now()
	probs, err := classifier.Classify(input)
	s.metrics.ObserveInference(time.Since(start))
	s.inferMu.Unlock()
	if err != nil {
		return Result{Outcome: OutcomeProcessingFailed, Signal: sig, Err: err}
	}
	if len(probs) != Labels.Len() {
		return Result{
			Outcome: OutcomeProcessingFailed,
			Signal:  sig,
			Err:     fmt.Errorf("classifier returned %d probabilities, want %d", len(probs), Labels.Len()),
		}
	}
	for i, p := range probs {
		if math.IsNaN(float64(p)) || math.IsInf(float64(p), 0) {
			return Result{
				Outcome: OutcomeProcessingFailed,
				Signal:  sig,
				Err:     fmt.Errorf("classifier returned non-finite probability %v for %s", p, Labels.Names()[i]),
			}
		}
	}

	idx, confidence := argmax(probs)

	if confidence < ConfidenceThreshold {
		return Result{
			Outcome:       OutcomeLowConfidence,
			Label:         LabelUnknown,
			Confidence:    confidence,
			Spectrogram:   spec,
			Probabilities: probs,
			Signal:        sig,
		}
	}

	name, _ := Labels.Name(idx)
	return Result{
		Outcome:       OutcomeClassified,
		Label:         name,
		Confidence:    confidence,
		Spectrogram:   spec,
		Probabilities: probs,
		Signal:        sig,
	}
}

// Close releases the classifier if one was loaded. Later predictions report
// OutcomeModelUnavailable.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateFailed
	s.loadErr = fmt.Errorf("%w: service closed", ErrModelUnavailable)

	if s.classifier == nil {
		return nil
	}
	s.inferMu.Lock()
	defer s.inferMu.Unlock()

	s.closed = true
	err := s.classifier.Close()
	s.classifier = nil
	return err
}

func argmax(probs []float32) (int, float32) {
	wide := make([]float64, len(probs))
	for i, p := range probs {
		wide[i] = float64(p)
	}
	idx := floats.MaxIdx(wide)
	return idx, probs[idx]
}
