package model

import (
	"fmt"
	"os"

	ort "github.com/yalue/onnxruntime_go"
)

// Classifier runs one forward pass over a flattened input tensor and returns
// the class probabilities.
type Classifier interface {
	Classify(input []float32) ([]float32, error)
	Close() error
}

// Loader creates the classifier. Service calls it at most once.
type Loader func() (Classifier, error)

// ONNXConfig describes the exported respiratory CNN.
type ONNXConfig struct {
	ModelPath   string
	LibraryPath string
	InputName   string
	OutputName  string
	InputShape  []int64
	OutputShape []int64
}

// DefaultInputShape is one 128x128 single-channel spectrogram, NHWC.
var DefaultInputShape = []int64{1, 128, 128, 1}

// ONNXLoader returns a Loader that opens cfg with ONNX Runtime.
func ONNXLoader(cfg ONNXConfig) Loader {
	return func() (Classifier, error) {
		return NewONNXClassifier(cfg)
	}
}

// ONNXClassifier wraps an ONNX Runtime session with preallocated tensors.
// It is not safe for concurrent Classify calls.
type ONNXClassifier struct {
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

func NewONNXClassifier(cfg ONNXConfig) (*ONNXClassifier, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("model file unavailable: %w", err)
	}

	inShape := cfg.InputShape
	if len(inShape) == 0 {
		inShape = DefaultInputShape
	}
	outShape := cfg.OutputShape
	if len(outShape) == 0 {
		outShape = []int64{1, int64(Labels.Len())}
	}

	if cfg.LibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.LibraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(inShape...))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(outShape...))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(cfg.ModelPath,
		[]string{cfg.InputName}, []string{cfg.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &ONNXClassifier{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

func (c *ONNXClassifier) Classify(input []float32) ([]float32, error) {
	dst := c.inputTensor.GetData()
	if len(input) != len(dst) {
		return nil, fmt.Errorf("expected %d input values, got %d", len(dst), len(input))
	}
	copy(dst, input)

	if err := c.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	// The output tensor is reused by the next run.
	out := c.outputTensor.GetData()
	return append([]float32(nil), out...), nil
}

func (c *ONNXClassifier) Close() error {
	if c.inputTensor != nil {
		c.inputTensor.Destroy()
	}
	if c.outputTensor != nil {
		c.outputTensor.Destroy()
	}
	if c.session != nil {
		c.session.Destroy()
	}
	return ort.DestroyEnvironment()
}
