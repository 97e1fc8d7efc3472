package spectrogram

import "math"

// Slaney mel scale: linear below 1 kHz, logarithmic above.
const (
	melFSp       = 200.0 / 3
	melMinLogHz  = 1000.0
	melMinLogMel = melMinLogHz / melFSp
)

var melLogStep = math.Log(6.4) / 27.0

func hzToMel(hz float64) float64 {
	if hz >= melMinLogHz {
		return melMinLogMel + math.Log(hz/melMinLogHz)/melLogStep
	}
	return hz / melFSp
}

func melToHz(mel float64) float64 {
	if mel >= melMinLogMel {
		return melMinLogHz * math.Exp(melLogStep*(mel-melMinLogMel))
	}
	return melFSp * mel
}

// melFilterBank builds numMels triangular filters over the nfft/2+1 FFT bins
// between fmin and fmax, each scaled to unit area (Slaney normalization).
func melFilterBank(numMels, nfft, sampleRate int, fmin, fmax float64) [][]float64 {
	numBins := nfft/2 + 1

	fftFreqs := make([]float64, numBins)
	for k := range fftFreqs {
		fftFreqs[k] = float64(k) * float64(sampleRate) / float64(nfft)
	}

	// numMels+2 points evenly spaced on the mel scale.
	lo, hi := hzToMel(fmin), hzToMel(fmax)
	melHz := make([]float64, numMels+2)
	for i := range melHz {
		melHz[i] = melToHz(lo + (hi-lo)*float64(i)/float64(numMels+1))
	}

	bank := make([][]float64, numMels)
	for m := 0; m < numMels; m++ {
		left, center, right := melHz[m], melHz[m+1], melHz[m+2]
		enorm := 2.0 / (right - left)

		filter := make([]float64, numBins)
		for k, f := range fftFreqs {
			lower := (f - left) / (center - left)
			upper := (right - f) / (right - center)
			w := math.Min(lower, upper)
			if w > 0 {
				filter[k] = w * enorm
			}
		}
		bank[m] = filter
	}
	return bank
}
