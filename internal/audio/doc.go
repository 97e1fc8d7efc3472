// Package audio decodes PCM WAV recordings into mono floating point signals
// at their native sample rate.
package audio
