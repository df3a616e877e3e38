package dsp

import (
	"context"
	"math"
	"math/cmplx"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Spectrogram is a frame-major magnitude or power matrix.
type Spectrogram [][]float64

// Frames returns the number of analysis frames.
func (s Spectrogram) Frames() int { return len(s) }

// Bins returns the number of frequency bins.
func (s Spectrogram) Bins() int {
	if len(s) == 0 {
		return 0
	}
	return len(s[0])
}

// Hann returns a periodic Hann window of length n.
func Hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

// FrameCount is the number of centred frames for a signal of length n.
func FrameCount(n, hop int) int {
	if n == 0 {
		return 0
	}
	return 1 + n/hop
}

// STFT computes the magnitude spectrogram of y with zero-padded centred frames.
// Frames are split across workers; each worker owns its FFT plan.
func STFT(ctx context.Context, y []float64, nFFT, hop, workers int) (Spectrogram, error) {
	frames := FrameCount(len(y), hop)
	if frames == 0 {
		return Spectrogram{}, nil
	}

	half := nFFT / 2
	padded := make([]float64, len(y)+nFFT)
	copy(padded[half:], y)
	window := Hann(nFFT)

	spec := make(Spectrogram, frames)
	g, ctx := errgroup.WithContext(ctx)
	for _, r := range split(frames, workers) {
		g.Go(func() error {
			fft := fourier.NewFFT(nFFT)
			seq := make([]float64, nFFT)
			coeffs := make([]complex128, half+1)
			for t := r.lo; t < r.hi; t++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				start := t * hop
				for i := range seq {
					seq[i] = padded[start+i] * window[i]
				}
				coeffs = fft.Coefficients(coeffs, seq)
				row := make([]float64, half+1)
				for f, c := range coeffs {
					row[f] = cmplx.Abs(c)
				}
				spec[t] = row
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return spec, nil
}

// Power squares every element into a new spectrogram.
func (s Spectrogram) Power() Spectrogram {
	out := make(Spectrogram, len(s))
	for t, row := range s {
		p := make([]float64, len(row))
		for f, v := range row {
			p[f] = v * v
		}
		out[t] = p
	}
	return out
}

type span struct{ lo, hi int }

// split divides [0,n) into at most parts contiguous ranges.
func split(n, parts int) []span {
	if parts < 1 {
		parts = 1
	}
	if parts > n {
		parts = n
	}
	out := make([]span, 0, parts)
	size := (n + parts - 1) / parts
	for lo := 0; lo < n; lo += size {
		out = append(out, span{lo: lo, hi: min(lo+size, n)})
	}
	return out
}
