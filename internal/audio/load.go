package audio

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ivlev/melody2video/internal/errs"
)

const stage = "audio-decode"

// Signal is a fully decoded mono track.
type Signal struct {
	Samples    []float64
	SampleRate int
	Channels   int // channel count before mixdown
}

// Duration in seconds.
func (s *Signal) Duration() float64 {
	if s.SampleRate == 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(s.SampleRate)
}

// Load decodes path with the default registry and mixes it down to mono.
func Load(path string) (*Signal, error) {
	return DefaultRegistry().Load(path)
}

func (r *Registry) Load(path string) (*Signal, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.IO(stage, "open audio file", err).With("path", path)
	}
	defer f.Close()

	format, err := DetectFormat(f, path)
	if err != nil {
		return nil, errs.Decode(stage, "detect audio format", err).With("path", path)
	}
	dec, ok := r.Get(format)
	if !ok {
		return nil, errs.Decode(stage, "no decoder for format "+format, ErrUnknownFormat).With("path", path)
	}

	src, err := dec.Decode(f)
	if err != nil {
		return nil, errs.Decode(stage, "decode "+format+" stream", err).With("path", path)
	}
	defer src.Close()

	sig, err := ReadAll(src)
	if err != nil {
		return nil, errs.Decode(stage, "read "+format+" samples", err).With("path", path)
	}
	return sig, nil
}

// ReadAll drains src through a MonoMixer.
func ReadAll(src Source) (*Signal, error) {
	if src.Channels() <= 0 {
		return nil, ErrNoChannels
	}
	mono := NewMonoMixer(src)
	sig := &Signal{SampleRate: src.SampleRate(), Channels: src.Channels()}

	buf := make([]float32, 4096)
	stalls := 0
	for {
		n, err := mono.ReadSamples(buf)
		for _, v := range buf[:n] {
			sig.Samples = append(sig.Samples, float64(v))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if n == 0 {
			// a decoder that neither advances nor reports EOF is broken
			stalls++
			if stalls > 16 {
				return nil, io.ErrNoProgress
			}
			continue
		}
		stalls = 0
	}
	return sig, nil
}

// DetectFormat sniffs the container magic and falls back to the file
// extension. The reader is rewound to the start.
func DetectFormat(rs io.ReadSeeker, path string) (string, error) {
	head := make([]byte, 12)
	n, err := io.ReadFull(rs, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	head = head[:n]
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	switch {
	case len(head) >= 12 && bytes.Equal(head[:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WAVE")):
		return "wav", nil
	case len(head) >= 12 && bytes.Equal(head[:4], []byte("FORM")) &&
		(bytes.Equal(head[8:12], []byte("AIFF")) || bytes.Equal(head[8:12], []byte("AIFC"))):
		return "aiff", nil
	case bytes.HasPrefix(head, []byte("OggS")):
		return "ogg", nil
	case bytes.HasPrefix(head, []byte("ID3")):
		return "mp3", nil
	case len(head) >= 2 && head[0] == 0xFF && head[1]&0xE0 == 0xE0:
		return "mp3", nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return "wav", nil
	case ".aif", ".aiff", ".aifc":
		return "aiff", nil
	case ".ogg", ".oga":
		return "ogg", nil
	case ".mp3":
		return "mp3", nil
	}
	return "", ErrUnknownFormat
}
