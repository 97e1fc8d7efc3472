package spectrogram

import "math"

const (
	dbAmin = 1e-5
	dbTop  = 80.0
)

// toDecibels converts grid values in place to dB relative to the grid
// maximum, so the loudest cell is 0 dB. Values below -80 dB are clipped.
func toDecibels(grid [][]float64) {
	ref := 0.0
	for _, row := range grid {
		for _, v := range row {
			if v > ref {
				ref = v
			}
		}
	}
	refDB := 20 * math.Log10(math.Max(dbAmin, ref))

	peak := math.Inf(-1)
	for _, row := range grid {
		for i, v := range row {
			row[i] = 20*math.Log10(math.Max(dbAmin, v)) - refDB
			if row[i] > peak {
				peak = row[i]
			}
		}
	}

	floor := peak - dbTop
	for _, row := range grid {
		for i, v := range row {
			if v < floor {
				row[i] = floor
			}
		}
	}
}
