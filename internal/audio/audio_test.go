package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ivlev/melody2video/internal/audiotest"
	"github.com/ivlev/melody2video/internal/errs"
)

func TestLoadMonoWAV(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	samples := audiotest.Sine(8000, 8000, 440, 0.5)
	path := audiotest.WriteWAV(t, dir, "sine.wav", 8000, 1, samples)

	sig, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if sig.SampleRate != 8000 {
		t.Errorf("SampleRate = %d, want 8000", sig.SampleRate)
	}
	if len(sig.Samples) != len(samples) {
		t.Fatalf("len(Samples) = %d, want %d", len(sig.Samples), len(samples))
	}
	if math.Abs(sig.Duration()-1.0) > 1e-9 {
		t.Errorf("Duration = %f, want 1.0", sig.Duration())
	}
	for i := 0; i < len(samples); i += 97 {
		if math.Abs(sig.Samples[i]-samples[i]) > 1e-3 {
			t.Fatalf("sample %d = %f, want ~%f", i, sig.Samples[i], samples[i])
		}
	}
}

func TestLoadStereoIsMixedDown(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	// left 0.5, right -0.1 -> mono 0.2
	frames := 1000
	interleaved := make([]float64, frames*2)
	for i := range frames {
		interleaved[2*i] = 0.5
		interleaved[2*i+1] = -0.1
	}
	path := audiotest.WriteWAV(t, dir, "stereo.wav", 16000, 2, interleaved)

	sig, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if sig.Channels != 2 {
		t.Errorf("Channels = %d, want 2", sig.Channels)
	}
	if len(sig.Samples) != frames {
		t.Fatalf("len(Samples) = %d, want %d", len(sig.Samples), frames)
	}
	for i, v := range sig.Samples {
		if math.Abs(v-0.2) > 1e-3 {
			t.Fatalf("sample %d = %f, want ~0.2", i, v)
		}
	}
}

func TestLoadEmptyWAV(t *testing.T) {
	t.Parallel()

	path := audiotest.WriteEmptyWAV(t, t.TempDir(), "empty.wav", 22050, 1)
	sig, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(sig.Samples) != 0 || sig.Duration() != 0 {
		t.Errorf("expected empty signal, got %d samples", len(sig.Samples))
	}
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.wav")
	os.WriteFile(garbage, []byte("RIFF\x00\x00\x00\x00WAVEjunkjunkjunk"), 0644)
	unknown := filepath.Join(dir, "notes.txt")
	os.WriteFile(unknown, []byte("hello world, not audio"), 0644)

	tests := []struct {
		name string
		path string
		want error
	}{
		{"missing", filepath.Join(dir, "absent.wav"), errs.ErrIO},
		{"corrupt wav", garbage, errs.ErrDecode},
		{"unknown format", unknown, errs.ErrDecode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path)
			if !errors.Is(err, tt.want) {
				t.Errorf("Load(%s) error = %v, want %v", tt.name, err, tt.want)
			}
		})
	}
}

func TestDetectFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		head []byte
		path string
		want string
	}{
		{"riff", []byte("RIFF\x10\x00\x00\x00WAVEfmt "), "x.bin", "wav"},
		{"aiff", []byte("FORM\x00\x00\x00\x00AIFFCOMM"), "x.bin", "aiff"},
		{"aifc", []byte("FORM\x00\x00\x00\x00AIFCCOMM"), "x.bin", "aiff"},
		{"ogg", []byte("OggS\x00\x02\x00\x00\x00\x00\x00\x00"), "x.bin", "ogg"},
		{"id3", []byte("ID3\x04\x00\x00\x00\x00\x00\x00\x00\x00"), "x.bin", "mp3"},
		{"mpeg sync", []byte{0xFF, 0xFB, 0x90, 0x64, 0, 0, 0, 0, 0, 0, 0, 0}, "x.bin", "mp3"},
		{"extension fallback", []byte("????????????"), "song.MP3", "mp3"},
		{"short file by extension", []byte("ab"), "a.wav", "wav"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := bytes.NewReader(tt.head)
			got, err := DetectFormat(r, tt.path)
			if err != nil {
				t.Fatalf("DetectFormat() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DetectFormat() = %q, want %q", got, tt.want)
			}
			if pos, _ := r.Seek(0, io.SeekCurrent); pos != 0 {
				t.Errorf("reader not rewound, pos = %d", pos)
			}
		})
	}

	if _, err := DetectFormat(bytes.NewReader([]byte("plain text")), "a.txt"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

// sliceSource serves interleaved samples in chunks of at most chunk values.
type sliceSource struct {
	data     []float32
	channels int
	chunk    int
}

func (s *sliceSource) SampleRate() int { return 1000 }
func (s *sliceSource) Channels() int   { return s.channels }
func (s *sliceSource) Close() error    { return nil }
func (s *sliceSource) ReadSamples(dst []float32) (int, error) {
	if len(s.data) == 0 {
		return 0, io.EOF
	}
	n := min(len(dst), len(s.data), s.chunk)
	n -= n % s.channels
	copy(dst, s.data[:n])
	s.data = s.data[n:]
	return n, nil
}

func TestMonoMixerThreeChannels(t *testing.T) {
	t.Parallel()

	src := &sliceSource{data: []float32{0.3, 0.6, 0.9, -0.3, 0, 0.3}, channels: 3, chunk: 3}
	sig, err := ReadAll(src)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	want := []float64{0.6, 0}
	if len(sig.Samples) != len(want) {
		t.Fatalf("got %d samples, want %d", len(sig.Samples), len(want))
	}
	for i := range want {
		if math.Abs(sig.Samples[i]-want[i]) > 1e-6 {
			t.Errorf("sample %d = %f, want %f", i, sig.Samples[i], want[i])
		}
	}
}

type byteReader struct {
	chunks [][]byte
}

func (r *byteReader) SampleRate() int { return 44100 }
func (r *byteReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks = r.chunks[1:]
	return n, nil
}

func TestMP3SourceKeepsOddByte(t *testing.T) {
	t.Parallel()

	// 0x4000 = 16384 -> 0.5 split across reads
	src := &mp3Source{
		dec:        &byteReader{chunks: [][]byte{{0x00, 0x40, 0x00}, {0x40, 0x00, 0xC0}}},
		sampleRate: 44100,
	}
	dst := make([]float32, 8)
	var got []float32
	for {
		n, err := src.ReadSamples(dst)
		got = append(got, dst[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
	}
	want := []float32{0.5, 0.5, -0.5}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %f, want %f", i, got[i], want[i])
		}
	}
}

type fakeOgg struct {
	channels  int
	requested []int
}

func (f *fakeOgg) SampleRate() int { return 48000 }
func (f *fakeOgg) Channels() int   { return f.channels }
func (f *fakeOgg) Read(p []float32) (int, error) {
	f.requested = append(f.requested, len(p))
	return 0, io.EOF
}

func TestVorbisSourceFrameAligned(t *testing.T) {
	t.Parallel()

	fake := &fakeOgg{channels: 2}
	src := &vorbisSource{dec: fake, sampleRate: 48000, channels: 2}
	src.ReadSamples(make([]float32, 7))
	if len(fake.requested) != 1 || fake.requested[0] != 6 {
		t.Errorf("requested = %v, want [6]", fake.requested)
	}
}

// wavFmtChunk builds a 16 byte fmt chunk body.
func wavFmtChunk(tag uint16, channels, sampleRate, bits int) []byte {
	b := make([]byte, 16)
	binary.LittleEndian.PutUint16(b[0:], tag)
	binary.LittleEndian.PutUint16(b[2:], uint16(channels))
	binary.LittleEndian.PutUint32(b[4:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(b[8:], uint32(sampleRate*channels*bits/8))
	binary.LittleEndian.PutUint16(b[12:], uint16(channels*bits/8))
	binary.LittleEndian.PutUint16(b[14:], uint16(bits))
	return b
}

// wavExtensibleChunk builds a 40 byte WAVE_FORMAT_EXTENSIBLE fmt chunk body.
func wavExtensibleChunk(sub uint16, channels, sampleRate, bits int) []byte {
	b := append(wavFmtChunk(wavFormatExtensible, channels, sampleRate, bits), make([]byte, 24)...)
	binary.LittleEndian.PutUint16(b[16:], 22)
	binary.LittleEndian.PutUint16(b[18:], uint16(bits))
	binary.LittleEndian.PutUint16(b[24:], sub)
	copy(b[26:], "\x00\x00\x00\x00\x10\x00\x80\x00\x00\xAA\x00\x38\x9B\x71")
	return b
}

func writeRawWAV(t *testing.T, dir, name string, fmtChunk, data []byte) string {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(4+8+len(fmtChunk)+8+len(data)))
	buf.WriteString("WAVEfmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(len(fmtChunk)))
	buf.Write(fmtChunk)
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(data)))
	buf.Write(data)

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func float32LE(samples []float64) []byte {
	b := make([]byte, 4*len(samples))
	for i, v := range samples {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(float32(v)))
	}
	return b
}

func TestLoadUnsigned8BitWAV(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	data := bytes.Repeat([]byte{0x80}, 100)
	data[10], data[20] = 0xFF, 0x00
	path := writeRawWAV(t, dir, "u8.wav", wavFmtChunk(wavFormatPCM, 1, 8000, 8), data)

	sig, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(sig.Samples) != 100 {
		t.Fatalf("len(Samples) = %d, want 100", len(sig.Samples))
	}
	if sig.Samples[0] != 0 || sig.Samples[99] != 0 {
		t.Errorf("silence decoded as %f, %f, want 0", sig.Samples[0], sig.Samples[99])
	}
	if math.Abs(sig.Samples[10]-1) > 1e-6 {
		t.Errorf("0xFF decoded as %f, want 1", sig.Samples[10])
	}
	if sig.Samples[20] > -1 {
		t.Errorf("0x00 decoded as %f, want <= -1", sig.Samples[20])
	}
}

func TestLoadFloatWAV(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	samples := audiotest.Sine(800, 8000, 440, 0.5)
	tests := []struct {
		name     string
		fmtChunk []byte
	}{
		{"ieee float", wavFmtChunk(wavFormatFloat, 1, 8000, 32)},
		{"extensible float", wavExtensibleChunk(wavFormatFloat, 1, 8000, 32)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeRawWAV(t, dir, tt.name+".wav", tt.fmtChunk, float32LE(samples))
			sig, err := Load(path)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if len(sig.Samples) != len(samples) {
				t.Fatalf("len(Samples) = %d, want %d", len(sig.Samples), len(samples))
			}
			for i := range samples {
				if math.Abs(sig.Samples[i]-samples[i]) > 1e-6 {
					t.Fatalf("sample %d = %f, want %f", i, sig.Samples[i], samples[i])
				}
			}
		})
	}
}

func TestLoadExtensiblePCMWAV(t *testing.T) {
	t.Parallel()

	data := make([]byte, 200)
	binary.LittleEndian.PutUint16(data[0:], uint16(16384))
	path := writeRawWAV(t, t.TempDir(), "ext.wav", wavExtensibleChunk(wavFormatPCM, 1, 8000, 16), data)

	sig, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(sig.Samples) != 100 || math.Abs(sig.Samples[0]-0.5) > 1e-3 || sig.Samples[1] != 0 {
		t.Errorf("unexpected samples: n=%d first=%f", len(sig.Samples), sig.Samples[0])
	}
}

func TestLoadRejectsUnsupportedWAVEncoding(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tests := []struct {
		name     string
		fmtChunk []byte
		want     error
	}{
		{"adpcm", wavFmtChunk(0x0002, 1, 8000, 16), ErrUnsupportedEncoding},
		{"mu-law", wavFmtChunk(0x0007, 1, 8000, 8), ErrUnsupportedEncoding},
		{"extensible adpcm", wavExtensibleChunk(0x0002, 1, 8000, 16), ErrUnsupportedEncoding},
		{"float64", wavFmtChunk(wavFormatFloat, 1, 8000, 64), ErrUnsupportedBits},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeRawWAV(t, dir, tt.name+".wav", tt.fmtChunk, make([]byte, 64))
			_, err := Load(path)
			if !errors.Is(err, errs.ErrDecode) {
				t.Fatalf("Load() error = %v, want decode error", err)
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Load() error = %v, want %v", err, tt.want)
			}
		})
	}
}

// ieeeExtended encodes v as an 80-bit IEEE extended float.
func ieeeExtended(v float64) []byte {
	frac, exp := math.Frexp(v)
	b := make([]byte, 10)
	binary.BigEndian.PutUint16(b, uint16(exp-1+16383))
	binary.BigEndian.PutUint64(b[2:], uint64(frac*(1<<64)))
	return b
}

func writeRawAIFC(t *testing.T, dir, name, compression string, bits int, data []byte) string {
	t.Helper()
	var comm bytes.Buffer
	binary.Write(&comm, binary.BigEndian, uint16(1))
	binary.Write(&comm, binary.BigEndian, uint32(len(data)*8/bits))
	binary.Write(&comm, binary.BigEndian, uint16(bits))
	comm.Write(ieeeExtended(8000))
	comm.WriteString(compression)
	comm.Write([]byte{0, 0}) // empty pascal name, padded

	var buf bytes.Buffer
	buf.WriteString("FORM")
	binary.Write(&buf, binary.BigEndian, uint32(4+8+comm.Len()+8+8+len(data)))
	buf.WriteString("AIFCCOMM")
	binary.Write(&buf, binary.BigEndian, uint32(comm.Len()))
	buf.Write(comm.Bytes())
	buf.WriteString("SSND")
	binary.Write(&buf, binary.BigEndian, uint32(8+len(data)))
	buf.Write(make([]byte, 8))
	buf.Write(data)

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadSigned8BitAIFF(t *testing.T) {
	t.Parallel()

	data := make([]byte, 64)
	data[1], data[2] = 0x7F, 0x80
	path := writeRawAIFC(t, t.TempDir(), "s8.aifc", "NONE", 8, data)

	sig, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(sig.Samples) != 64 {
		t.Fatalf("len(Samples) = %d, want 64", len(sig.Samples))
	}
	if sig.Samples[0] != 0 {
		t.Errorf("silence decoded as %f, want 0", sig.Samples[0])
	}
	if math.Abs(sig.Samples[1]-1) > 1e-6 {
		t.Errorf("0x7F decoded as %f, want 1", sig.Samples[1])
	}
	if sig.Samples[2] > -1 {
		t.Errorf("0x80 decoded as %f, want <= -1", sig.Samples[2])
	}
}

func TestLoadRejectsCompressedAIFC(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, compression := range []string{"fl32", "ulaw", "ima4"} {
		t.Run(compression, func(t *testing.T) {
			path := writeRawAIFC(t, dir, compression+".aifc", compression, 16, make([]byte, 64))
			_, err := Load(path)
			if !errors.Is(err, errs.ErrDecode) || !errors.Is(err, ErrUnsupportedEncoding) {
				t.Errorf("Load() error = %v, want unsupported encoding decode error", err)
			}
		})
	}
}
