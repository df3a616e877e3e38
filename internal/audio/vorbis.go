package audio

import (
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"
)

// oggReader is the part of oggvorbis.Reader used here, split out for tests
type oggReader interface {
	SampleRate() int
	Channels() int
	Read([]float32) (int, error)
}

type vorbisSource struct {
	dec        oggReader
	sampleRate int
	channels   int
}

func (s *vorbisSource) SampleRate() int { return s.sampleRate }
func (s *vorbisSource) Channels() int   { return s.channels }
func (s *vorbisSource) Close() error    { return nil }

func (s *vorbisSource) ReadSamples(dst []float32) (int, error) {
	// oggvorbis returns interleaved values; keep requests frame-aligned
	n := len(dst) - len(dst)%s.channels
	if n == 0 {
		return 0, nil
	}
	return s.dec.Read(dst[:n])
}

type vorbisDecoder struct{}

func (vorbisDecoder) Decode(r io.ReadSeeker) (Source, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}
	if dec.Channels() == 0 {
		return nil, ErrNoChannels
	}
	return &vorbisSource{dec: dec, sampleRate: dec.SampleRate(), channels: dec.Channels()}, nil
}
