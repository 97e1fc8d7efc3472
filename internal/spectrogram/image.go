package spectrogram

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/nfnt/resize"
)

// Image renders s for viewing: the lowest mel band is the bottom row, the
// quietest cell is black and the loudest white. Each cell becomes a
// scale x scale block.
func Image(s *Spectrogram, scale int) (image.Image, error) {
	if s == nil || len(s.Shape) < 2 || s.Len() == 0 {
		return nil, fmt.Errorf("no spectrogram to render")
	}
	if scale < 1 {
		return nil, fmt.Errorf("invalid scale %d", scale)
	}
	mels, frames := s.Shape[0], s.Shape[1]

	lo, hi := math.Inf(1), math.Inf(-1)
	for m := 0; m < mels; m++ {
		for t := 0; t < frames; t++ {
			v := s.At(m, t)
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	span := hi - lo

	img := image.NewGray(image.Rect(0, 0, frames, mels))
	for m := 0; m < mels; m++ {
		for t := 0; t < frames; t++ {
			level := 0.0
			if span > 0 {
				level = (s.At(m, t) - lo) / span
			}
			img.SetGray(t, mels-1-m, color.Gray{Y: uint8(math.Round(level * 255))})
		}
	}

	if scale == 1 {
		return img, nil
	}
	return resize.Resize(uint(frames*scale), uint(mels*scale), img, resize.NearestNeighbor), nil
}
