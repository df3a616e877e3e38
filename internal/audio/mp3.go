package audio

import (
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"
)

// mp3Reader is the part of gomp3.Decoder used here, split out for tests
type mp3Reader interface {
	Read([]byte) (int, error)
	SampleRate() int
}

type mp3Source struct {
	dec        mp3Reader
	sampleRate int
	buf        []byte
	pending    []byte
}

func (s *mp3Source) SampleRate() int { return s.sampleRate }

// Channels is always 2: go-mp3 decodes to 16-bit stereo.
func (s *mp3Source) Channels() int { return 2 }
func (s *mp3Source) Close() error  { return nil }

func (s *mp3Source) ReadSamples(dst []float32) (int, error) {
	bytesNeeded := len(dst) * 2
	if cap(s.buf) < bytesNeeded {
		s.buf = make([]byte, bytesNeeded)
	}
	s.buf = s.buf[:bytesNeeded]

	// keep an odd trailing byte from the previous read
	off := copy(s.buf, s.pending)
	s.pending = s.pending[:0]

	n, err := s.dec.Read(s.buf[off:])
	n += off
	if n < 2 {
		if err == nil {
			return 0, nil
		}
		return 0, err
	}
	if n%2 == 1 {
		s.pending = append(s.pending, s.buf[n-1])
		n--
	}

	samples := n / 2
	for i := range samples {
		v := int16(uint16(s.buf[2*i]) | uint16(s.buf[2*i+1])<<8)
		dst[i] = float32(v) / 32768.0
	}
	return samples, err
}

type mp3Decoder struct{}

func (mp3Decoder) Decode(r io.ReadSeeker) (Source, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}
	return &mp3Source{dec: dec, sampleRate: dec.SampleRate(), buf: make([]byte, 8192)}, nil
}
