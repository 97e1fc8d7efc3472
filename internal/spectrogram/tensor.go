package spectrogram

import "fmt"

// Spectrogram is a dense row-major tensor. Builder output has Shape
// [Height, Width, 1], laid out [mel][frame][channel].
type Spectrogram struct {
	Shape []int
	Data  []float64
}

// New allocates a zeroed tensor with the given shape.
func New(shape ...int) *Spectrogram {
	return &Spectrogram{
		Shape: append([]int(nil), shape...),
		Data:  make([]float64, volume(shape)),
	}
}

// Len returns the number of elements.
func (s *Spectrogram) Len() int {
	return len(s.Data)
}

// At returns the value at mel bin m, frame t of the first channel.
func (s *Spectrogram) At(m, t int) float64 {
	return s.Data[s.offset(m, t)]
}

// Set writes the value at mel bin m, frame t of the first channel.
func (s *Spectrogram) Set(m, t int, v float64) {
	s.Data[s.offset(m, t)] = v
}

// Float32 returns the data converted for runtimes that take float32 input.
func (s *Spectrogram) Float32() []float32 {
	out := make([]float32, len(s.Data))
	for i, v := range s.Data {
		out[i] = float32(v)
	}
	return out
}

// Clone returns a deep copy.
func (s *Spectrogram) Clone() *Spectrogram {
	return &Spectrogram{
		Shape: append([]int(nil), s.Shape...),
		Data:  append([]float64(nil), s.Data...),
	}
}

func (s *Spectrogram) String() string {
	return fmt.Sprintf("spectrogram%v", s.Shape)
}

func (s *Spectrogram) offset(m, t int) int {
	channels := 1
	if len(s.Shape) > 2 {
		channels = s.Shape[2]
	}
	return (m*s.Shape[1] + t) * channels
}

func volume(shape []int) int {
	if len(shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}
