// Package spectrogram builds the classifier's input features: a dB-scaled mel
// spectrogram resampled onto a fixed 128x128 grid with one channel, plus the
// per-tensor min-max normalization applied before inference.
package spectrogram
