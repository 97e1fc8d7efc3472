package spectrogram

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument reports a caller contract violation, such as raw
	// samples passed without a sample rate.
	ErrInvalidArgument = errors.New("spectrogram: invalid argument")

	// ErrProcessing matches every *ProcessingError via errors.Is.
	ErrProcessing = errors.New("spectrogram: processing failed")
)

// ProcessingError is returned when audio could not be turned into a
// spectrogram. Callers treat it as "no spectrogram" rather than a crash.
type ProcessingError struct {
	Stage string
	Err   error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("spectrogram %s: %v", e.Stage, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

func (e *ProcessingError) Is(target error) bool {
	return target == ErrProcessing
}

func processingError(stage string, err error) error {
	return &ProcessingError{Stage: stage, Err: err}
}
