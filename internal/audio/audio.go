package audio

import (
	"io"
	"sync"
)

type Source interface {
	// SampleRate of the PCM stream in Hz.
	SampleRate() int
	// Channels count (1=mono, 2=stereo).
	Channels() int
	// ReadSamples fills dst with interleaved float32 samples in [-1,1] and
	// returns the number of values written. n == 0 with io.EOF ends the stream.
	ReadSamples(dst []float32) (n int, err error)
	Close() error
}

// Decoder constructs a Source from an input reader.
type Decoder interface {
	Decode(r io.ReadSeeker) (Source, error)
}

// Registry maps format keys ("wav", "mp3", "ogg", "aiff") to decoders.
type Registry struct {
	codecs map[string]Decoder
	mtx    sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{codecs: make(map[string]Decoder)}
}

// DefaultRegistry knows every format this package can decode.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("wav", wavDecoder{})
	r.Register("aiff", aiffDecoder{})
	r.Register("mp3", mp3Decoder{})
	r.Register("ogg", vorbisDecoder{})
	return r
}

func (r *Registry) Register(format string, d Decoder) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.codecs[format] = d
}

func (r *Registry) Get(format string) (Decoder, bool) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	d, ok := r.codecs[format]
	return d, ok
}
