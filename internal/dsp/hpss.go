package dsp

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"
)

// Harmonic separates the tonal part of a magnitude spectrogram. Harmonic
// energy is smooth along time, percussive energy along frequency, so the two
// are estimated by median filtering in each direction and the input is
// weighted by the soft mask H²/(H²+P²).
func Harmonic(ctx context.Context, s Spectrogram, kernel, workers int) (Spectrogram, error) {
	frames, bins := s.Frames(), s.Bins()
	if frames == 0 {
		return Spectrogram{}, nil
	}

	h := newMatrix(frames, bins)
	p := newMatrix(frames, bins)

	// harmonic estimate: filter each bin across time
	g, gctx := errgroup.WithContext(ctx)
	for _, r := range split(bins, workers) {
		g.Go(func() error {
			col := make([]float64, frames)
			out := make([]float64, frames)
			window := make([]float64, 0, kernel)
			for f := r.lo; f < r.hi; f++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				for t := range frames {
					col[t] = s[t][f]
				}
				medianFilter(out, col, kernel, window)
				for t := range frames {
					h[t][f] = out[t]
				}
			}
			return nil
		})
	}
	// percussive estimate: filter each frame across frequency
	for _, r := range split(frames, workers) {
		g.Go(func() error {
			window := make([]float64, 0, kernel)
			for t := r.lo; t < r.hi; t++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				medianFilter(p[t], s[t], kernel, window)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := newMatrix(frames, bins)
	for t := range frames {
		for f := range bins {
			out[t][f] = s[t][f] * softMask(h[t][f], p[t][f])
		}
	}
	return out, nil
}

// softMask returns x²/(x²+ref²), or 0 where both are (numerically) zero.
func softMask(x, ref float64) float64 {
	z := math.Max(x, ref)
	if z < tiny {
		return 0
	}
	a := (x / z) * (x / z)
	b := (ref / z) * (ref / z)
	return a / (a + b)
}

func newMatrix(rows, cols int) Spectrogram {
	backing := make([]float64, rows*cols)
	m := make(Spectrogram, rows)
	for i := range m {
		m[i] = backing[i*cols : (i+1)*cols : (i+1)*cols]
	}
	return m
}

// tiny is the smallest normal float64.
const tiny = 2.2250738585072014e-308
