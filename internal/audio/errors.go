package audio

import "errors"

var (
	ErrUnknownFormat       = errors.New("unknown audio format")
	ErrNotWavFile          = errors.New("not a WAV file")
	ErrNotAiffFile         = errors.New("not an AIFF file")
	ErrUnsupportedBits     = errors.New("unsupported bit depth")
	ErrUnsupportedEncoding = errors.New("unsupported sample encoding")
	ErrNoChannels          = errors.New("stream reports zero channels")
)
