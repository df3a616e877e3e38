package dsp

import "math"

// RMS computes root-mean-square amplitude over centred, zero-padded frames
// of frameLength samples every hop samples.
func RMS(y []float64, frameLength, hop int) []float64 {
	frames := FrameCount(len(y), hop)
	out := make([]float64, frames)
	if frames == 0 {
		return out
	}

	half := frameLength / 2
	// squared prefix sums over the unpadded signal; padding contributes zero
	prefix := make([]float64, len(y)+1)
	for i, v := range y {
		prefix[i+1] = prefix[i] + v*v
	}
	for t := range frames {
		start := t*hop - half
		lo := max(0, start)
		hi := min(len(y), start+frameLength)
		var sum float64
		if hi > lo {
			sum = prefix[hi] - prefix[lo]
		}
		out[t] = math.Sqrt(math.Max(0, sum) / float64(frameLength))
	}
	return out
}

// MinMaxNormalize scales x into [0,1]; eps keeps constant input finite
// (it maps to all zeros).
func MinMaxNormalize(x []float64, eps float64) []float64 {
	out := make([]float64, len(x))
	if len(x) == 0 {
		return out
	}
	lo, hi := x[0], x[0]
	for _, v := range x {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	den := hi - lo + eps
	for i, v := range x {
		out[i] = (v - lo) / den
	}
	return out
}
