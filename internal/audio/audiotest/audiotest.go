// Package audiotest writes WAV fixtures for tests.
package audiotest

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WritePCM encodes interleaved integer samples into a PCM WAV file under dir
// and returns its path.
func WritePCM(t testing.TB, dir, name string, sampleRate, bitDepth, channels int, data []int) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder %s: %v", path, err)
	}
	return path
}

// WriteSine writes a mono 16-bit sine tone and returns its path.
func WriteSine(t testing.TB, dir, name string, sampleRate int, seconds, freq float64) string {
	t.Helper()

	n := int(float64(sampleRate) * seconds)
	data := make([]int, n)
	for i := range data {
		// Half scale to avoid clipping.
		data[i] = int(16383 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	return WritePCM(t, dir, name, sampleRate, 16, 1, data)
}

// WriteGarbage writes a file that is not audio.
func WriteGarbage(t testing.TB, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("this is not a riff file at all"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// WriteEmpty writes a canonical 16-bit PCM header whose data chunk is empty.
func WriteEmpty(t testing.TB, dir, name string, sampleRate, channels int) string {
	t.Helper()

	const bitDepth = 16
	blockAlign := channels * bitDepth / 8

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36))
	buf.WriteString("WAVEfmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(bitDepth))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(0))

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
