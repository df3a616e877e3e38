package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// pcmReader is the part of the go-audio decoders used by intSource
type pcmReader interface {
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

// sampleCoding says how the ints returned by PCMBuffer map to samples
type sampleCoding int

const (
	codingSigned    sampleCoding = iota
	codingUnsigned8              // WAV 8-bit, silence at 128
	codingSigned8                // AIFF 8-bit, returned as the raw byte
	codingFloat32                // IEEE float, returned as the raw int32 bits
)

// intSource adapts go-audio integer PCM buffers to float samples.
type intSource struct {
	dec        pcmReader
	format     *goaudio.Format
	sampleRate int
	channels   int
	coding     sampleCoding
	scale      float32
	buf        *goaudio.IntBuffer
}

func newIntSource(dec pcmReader, format *goaudio.Format, bitDepth int, coding sampleCoding) (*intSource, error) {
	if format == nil || format.NumChannels == 0 {
		return nil, ErrNoChannels
	}
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBits, bitDepth)
	}
	switch {
	case coding == codingFloat32 && bitDepth != 32,
		(coding == codingUnsigned8 || coding == codingSigned8) && bitDepth != 8:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBits, bitDepth)
	}
	return &intSource{
		dec:        dec,
		format:     format,
		sampleRate: format.SampleRate,
		channels:   format.NumChannels,
		coding:     coding,
		scale:      1 / float32(goaudio.IntMaxSignedValue(bitDepth)),
	}, nil
}

func (s *intSource) sample(v int) float32 {
	switch s.coding {
	case codingUnsigned8:
		return float32(v-128) * s.scale
	case codingSigned8:
		return float32(int8(uint8(v))) * s.scale
	case codingFloat32:
		return math.Float32frombits(uint32(int32(v)))
	}
	return float32(v) * s.scale
}

func (s *intSource) SampleRate() int { return s.sampleRate }
func (s *intSource) Channels() int   { return s.channels }
func (s *intSource) Close() error    { return nil }

func (s *intSource) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	if s.buf == nil || cap(s.buf.Data) < len(dst) {
		s.buf = &goaudio.IntBuffer{Data: make([]int, len(dst)), Format: s.format}
	}
	s.buf.Data = s.buf.Data[:len(dst)]

	n, err := s.dec.PCMBuffer(s.buf)
	if n == 0 {
		if err != nil && err != io.EOF {
			return 0, err
		}
		return 0, io.EOF
	}
	for i := range n {
		dst[i] = s.sample(s.buf.Data[i])
	}
	if err == io.EOF {
		err = nil
	}
	return n, err
}

// WAVE format tags
const (
	wavFormatPCM        = 0x0001
	wavFormatFloat      = 0x0003
	wavFormatExtensible = 0xFFFE
)

type wavDecoder struct{}

func (wavDecoder) Decode(r io.ReadSeeker) (Source, error) {
	// go-audio/wav drops the extensible header, read the sub-format first
	sub, err := wavSubFormat(r)
	if err != nil {
		return nil, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrNotWavFile
	}
	tag := dec.WavAudioFormat
	if tag == wavFormatExtensible {
		tag = sub
	}

	var coding sampleCoding
	switch {
	case tag == wavFormatPCM && dec.BitDepth == 8:
		coding = codingUnsigned8
	case tag == wavFormatPCM:
		coding = codingSigned
	case tag == wavFormatFloat:
		coding = codingFloat32
	default:
		return nil, fmt.Errorf("%w: WAV format tag 0x%04x", ErrUnsupportedEncoding, tag)
	}

	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("locating WAV data chunk: %w", err)
	}
	return newIntSource(dec, dec.Format(), int(dec.BitDepth), coding)
}

// wavSubFormat returns the format tag from the SubFormat GUID of a
// WAVE_FORMAT_EXTENSIBLE fmt chunk, or 0 when the chunk is not extensible.
func wavSubFormat(r io.Reader) (uint16, error) {
	var hdr [12]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, ErrNotWavFile
	}
	if !bytes.Equal(hdr[:4], []byte("RIFF")) || !bytes.Equal(hdr[8:], []byte("WAVE")) {
		return 0, ErrNotWavFile
	}
	for {
		var ch [8]byte
		if _, err := io.ReadFull(r, ch[:]); err != nil {
			return 0, ErrNotWavFile
		}
		size := int64(binary.LittleEndian.Uint32(ch[4:]))
		if !bytes.Equal(ch[:4], []byte("fmt ")) {
			if _, err := io.CopyN(io.Discard, r, size+size%2); err != nil {
				return 0, ErrNotWavFile
			}
			continue
		}
		if size < 16 || size > 1<<16 {
			return 0, ErrNotWavFile
		}
		body := make([]byte, size)
		if _, err := io.ReadFull(r, body); err != nil {
			return 0, ErrNotWavFile
		}
		if binary.LittleEndian.Uint16(body) != wavFormatExtensible {
			return 0, nil
		}
		// cbSize(2) validBits(2) channelMask(4) then the GUID
		if size < 40 {
			return 0, fmt.Errorf("%w: truncated extensible fmt chunk", ErrUnsupportedEncoding)
		}
		return binary.LittleEndian.Uint16(body[24:26]), nil
	}
}
