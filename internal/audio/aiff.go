package audio

import (
	"fmt"
	"io"

	"github.com/go-audio/aiff"
)

type aiffDecoder struct{}

func (aiffDecoder) Decode(r io.ReadSeeker) (Source, error) {
	dec := aiff.NewDecoder(r)
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAiffFile, err)
	}
	// AIFC: only uncompressed big or little endian PCM
	switch string(dec.Encoding[:]) {
	case "\x00\x00\x00\x00", "NONE", "sowt":
	default:
		return nil, fmt.Errorf("%w: AIFC compression %q", ErrUnsupportedEncoding, string(dec.Encoding[:]))
	}
	if !dec.IsValidFile() {
		return nil, ErrNotAiffFile
	}

	coding := codingSigned
	if dec.BitDepth == 8 {
		coding = codingSigned8
	}
	return newIntSource(dec, dec.Format(), int(dec.BitDepth), coding)
}
