package spectrogram

import (
	"fmt"
	"math"
)

// resizeGrid bilinearly resamples a [rows][cols] grid onto height x width
// with half-pixel centers and two taps per axis, the same mapping as
// OpenCV's INTER_LINEAR. Downscaling does not low-pass filter.
func resizeGrid(grid [][]float64, height, width int) ([][]float64, error) {
	rows := len(grid)
	if rows == 0 || len(grid[0]) == 0 {
		return nil, fmt.Errorf("cannot resize empty grid")
	}
	cols := len(grid[0])

	for _, row := range grid {
		if len(row) != cols {
			return nil, fmt.Errorf("ragged grid: row has %d columns, want %d", len(row), cols)
		}
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("non-finite value in grid")
			}
		}
	}

	ys := linearTaps(rows, height)
	xs := linearTaps(cols, width)

	out := make([][]float64, height)
	for y, ty := range ys {
		top, bottom := grid[ty.i0], grid[ty.i1]
		row := make([]float64, width)
		for x, tx := range xs {
			a := lerp(top[tx.i0], top[tx.i1], tx.frac)
			b := lerp(bottom[tx.i0], bottom[tx.i1], tx.frac)
			row[x] = lerp(a, b, ty.frac)
		}
		out[y] = row
	}
	return out, nil
}

// tap is a pair of neighboring source indices and the weight of the second.
type tap struct {
	i0, i1 int
	frac   float64
}

// linearTaps maps each of dst output positions onto the src input axis.
// Positions that fall outside the input clamp to the edge sample.
func linearTaps(src, dst int) []tap {
	scale := float64(src) / float64(dst)
	taps := make([]tap, dst)
	for d := range taps {
		f := (float64(d)+0.5)*scale - 0.5
		i := int(math.Floor(f))
		frac := f - float64(i)
		switch {
		case i < 0:
			i, frac = 0, 0
		case i >= src-1:
			i, frac = src-1, 0
		}
		i1 := i
		if frac > 0 {
			i1 = i + 1
		}
		taps[d] = tap{i0: i, i1: i1, frac: frac}
	}
	return taps
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
