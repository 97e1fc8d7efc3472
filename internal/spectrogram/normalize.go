package spectrogram

import "gonum.org/v1/gonum/floats"

// Normalize min-max scales s into [0, 1] using only s's own extremes and
// returns a new tensor of the same shape. A constant tensor maps to zeros.
func Normalize(s *Spectrogram) *Spectrogram {
	out := s.Clone()
	if len(out.Data) == 0 {
		return out
	}

	lo := floats.Min(out.Data)
	span := floats.Max(out.Data) - lo

	floats.AddConst(-lo, out.Data)
	if span == 0 {
		return out
	}
	// Divide so the maximum is exactly 1.
	for i := range out.Data {
		out.Data[i] /= span
	}
	return out
}
