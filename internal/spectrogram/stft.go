package spectrogram

import (
	"fmt"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// periodicHann returns the DFT-even Hann window used for spectral analysis.
func periodicHann(n int) []float64 {
	return window.Hann(n + 1)[:n]
}

// melPower computes a centered STFT of samples and projects each frame's
// power spectrum onto the filter bank. The result is indexed [mel][frame].
func melPower(samples []float64, nfft, hop int, bank [][]float64) ([][]float64, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("empty signal")
	}
	if nfft <= 0 || hop <= 0 {
		return nil, fmt.Errorf("invalid STFT parameters: n_fft=%d hop=%d", nfft, hop)
	}

	// Zero-pad n_fft/2 on both sides so frame t is centered on sample t*hop.
	pad := nfft / 2
	padded := make([]float64, len(samples)+2*pad)
	copy(padded[pad:], samples)

	numFrames := 1 + (len(padded)-nfft)/hop
	numBins := nfft/2 + 1
	win := periodicHann(nfft)

	mel := make([][]float64, len(bank))
	for m := range mel {
		mel[m] = make([]float64, numFrames)
	}

	frame := make([]float64, nfft)
	power := make([]float64, numBins)
	for t := 0; t < numFrames; t++ {
		start := t * hop
		for i := 0; i < nfft; i++ {
			frame[i] = padded[start+i] * win[i]
		}

		spectrum := fft.FFTReal(frame)
		for k := 0; k < numBins; k++ {
			re, im := real(spectrum[k]), imag(spectrum[k])
			power[k] = re*re + im*im
		}

		for m, filter := range bank {
			sum := 0.0
			for k, w := range filter {
				if w != 0 {
					sum += w * power[k]
				}
			}
			mel[m][t] = sum
		}
	}

	return mel, nil
}
