package dsp

import "math"

// Slaney mel scale: linear below 1 kHz, logarithmic above.
const (
	melFSP       = 200.0 / 3
	melMinLogHz  = 1000.0
	melMinLogMel = melMinLogHz / melFSP
)

var melLogStep = math.Log(6.4) / 27.0

func HzToMel(hz float64) float64 {
	if hz >= melMinLogHz {
		return melMinLogMel + math.Log(hz/melMinLogHz)/melLogStep
	}
	return hz / melFSP
}

func MelToHz(mel float64) float64 {
	if mel >= melMinLogMel {
		return melMinLogHz * math.Exp(melLogStep*(mel-melMinLogMel))
	}
	return melFSP * mel
}

// MelBank is a bank of triangular, area-normalised filters over FFT bins.
type MelBank struct {
	weights [][]float64
	lo, hi  []int // non-zero bin range per band
}

// NewMelBank builds nMels filters spanning 0 Hz to Nyquist for an nFFT-point transform.
func NewMelBank(sampleRate, nFFT, nMels int) *MelBank {
	bins := nFFT/2 + 1
	fftFreqs := make([]float64, bins)
	for i := range fftFreqs {
		fftFreqs[i] = float64(i) * float64(sampleRate) / float64(nFFT)
	}

	maxMel := HzToMel(float64(sampleRate) / 2)
	melF := make([]float64, nMels+2)
	for i := range melF {
		melF[i] = MelToHz(maxMel * float64(i) / float64(nMels+1))
	}

	bank := &MelBank{
		weights: make([][]float64, nMels),
		lo:      make([]int, nMels),
		hi:      make([]int, nMels),
	}
	for m := range nMels {
		w := make([]float64, bins)
		lower, centre, upper := melF[m], melF[m+1], melF[m+2]
		enorm := 2.0 / (upper - lower)
		lo, hi := bins, 0
		for f, hz := range fftFreqs {
			down := (hz - lower) / (centre - lower)
			up := (upper - hz) / (upper - centre)
			v := math.Max(0, math.Min(down, up))
			if v > 0 {
				w[f] = v * enorm
				lo = min(lo, f)
				hi = max(hi, f+1)
			}
		}
		if lo > hi {
			lo = hi
		}
		bank.weights[m], bank.lo[m], bank.hi[m] = w, lo, hi
	}
	return bank
}

// Bands returns the number of filters.
func (b *MelBank) Bands() int { return len(b.weights) }

// Apply projects a power spectrogram onto the mel bands.
func (b *MelBank) Apply(power Spectrogram) Spectrogram {
	out := newMatrix(power.Frames(), b.Bands())
	for t, row := range power {
		for m, w := range b.weights {
			var sum float64
			for f := b.lo[m]; f < b.hi[m]; f++ {
				sum += w[f] * row[f]
			}
			out[t][m] = sum
		}
	}
	return out
}

// PowerToDB converts in place to decibels (ref 1.0) with amin floor and a
// dynamic range limited to topDB below the global maximum.
func PowerToDB(s Spectrogram, amin, topDB float64) Spectrogram {
	peak := math.Inf(-1)
	for _, row := range s {
		for f, v := range row {
			row[f] = 10 * math.Log10(math.Max(amin, v))
			peak = math.Max(peak, row[f])
		}
	}
	if topDB > 0 {
		floor := peak - topDB
		for _, row := range s {
			for f, v := range row {
				row[f] = math.Max(v, floor)
			}
		}
	}
	return s
}
