package model

import (
	"github.com/Brownie44l1/stethoscope-api/internal/audio"
	"github.com/Brownie44l1/stethoscope-api/internal/spectrogram"
)

// Outcome tags which branch of the pipeline produced a Result.
type Outcome int

const (
	// OutcomeClassified carries a class name at or above the threshold.
	OutcomeClassified Outcome = iota
	// OutcomeLowConfidence carries LabelUnknown with the real confidence.
	OutcomeLowConfidence
	// OutcomeModelUnavailable means the classifier failed to load.
	OutcomeModelUnavailable
	// OutcomeProcessingFailed means no spectrogram could be produced.
	OutcomeProcessingFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeClassified:
		return "classified"
	case OutcomeLowConfidence:
		return "low_confidence"
	case OutcomeModelUnavailable:
		return "model_unavailable"
	case OutcomeProcessingFailed:
		return "processing_failed"
	default:
		return "unknown"
	}
}

// Result is the pipeline's answer for one recording.
//
// Spectrogram and Probabilities are set only for OutcomeClassified and
// OutcomeLowConfidence. Signal is set whenever the recording itself could be
// decoded, so callers can always draw the waveform.
type Result struct {
	Outcome       Outcome
	Label         string
	Confidence    float32
	Spectrogram   *spectrogram.Spectrogram
	Probabilities []float32
	Signal        *audio.Signal
	Err           error
}

// HasPrediction reports whether the classifier produced a probability vector.
func (r Result) HasPrediction() bool {
	return r.Spectrogram != nil && r.Probabilities != nil
}

// PredictionResponse is the JSON form of a Result.
type PredictionResponse struct {
	Outcome          string             `json:"outcome"`
	Class            string             `json:"class,omitempty"`
	Confidence       float32            `json:"confidence"`
	Predictions      map[string]float32 `json:"predictions,omitempty"`
	SpectrogramShape []int              `json:"spectrogram_shape,omitempty"`
	SampleRate       int                `json:"sample_rate,omitempty"`
	DurationSeconds  float64            `json:"duration_seconds,omitempty"`
	SavedTo          string             `json:"saved_to,omitempty"`
	Error            string             `json:"error,omitempty"`
}

// Response converts r for JSON output.
func (r Result) Response() PredictionResponse {
	resp := PredictionResponse{
		Outcome:    r.Outcome.String(),
		Class:      r.Label,
		Confidence: r.Confidence,
	}

	if r.Probabilities != nil {
		resp.Predictions = make(map[string]float32, len(r.Probabilities))
		for i, p := range r.Probabilities {
			if name, ok := Labels.Name(i); ok {
				resp.Predictions[name] = p
			}
		}
	}
	if r.Spectrogram != nil {
		resp.SpectrogramShape = append([]int(nil), r.Spectrogram.Shape...)
	}
	if r.Signal != nil {
		resp.SampleRate = r.Signal.SampleRate
		resp.DurationSeconds = r.Signal.Duration()
	}
	if r.Err != nil {
		resp.Error = r.Err.Error()
	}
	return resp
}
