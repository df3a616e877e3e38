// Package audiotest builds audio fixtures for tests.
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

// WriteWAV encodes interleaved samples in [-1,1] as 16-bit PCM and returns the path.
func WriteWAV(t testing.TB, dir, name string, sampleRate, channels int, samples []float64) string {
	t.Helper()

	if len(samples) == 0 {
		return WriteEmptyWAV(t, dir, name, sampleRate, channels)
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	data := make([]int, len(samples))
	for i, s := range samples {
		s = math.Max(-1, math.Min(1, s))
		data[i] = int(math.Round(s * 32767))
	}

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	buf := &goaudio.IntBuffer{
		Data:           data,
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder %s: %v", path, err)
	}
	return path
}

// WriteEmptyWAV writes a canonical 44-byte header with an empty data chunk.
func WriteEmptyWAV(t testing.TB, dir, name string, sampleRate, channels int) string {
	t.Helper()

	buf := new(bytes.Buffer)
	blockAlign := uint16(channels * 2)
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1))
	binary.Write(buf, binary.LittleEndian, uint16(channels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate)*uint32(blockAlign))
	binary.Write(buf, binary.LittleEndian, blockAlign)
	binary.Write(buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(0))

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// Silence returns n zero samples.
func Silence(n int) []float64 {
	return make([]float64, n)
}

// Sine returns n samples of a sine wave at freq Hz and amplitude amp.
func Sine(n, sampleRate int, freq, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

// Notes returns a melody of sine tones; each entry of freqs lasts noteLen samples.
func Notes(sampleRate, noteLen int, amp float64, freqs ...float64) []float64 {
	out := make([]float64, 0, noteLen*len(freqs))
	for _, f := range freqs {
		out = append(out, Sine(noteLen, sampleRate, f, amp)...)
	}
	return out
}
