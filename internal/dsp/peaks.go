package dsp

// PeakParams configures PickPeaks. Windows are in envelope frames.
type PeakParams struct {
	PreMax, PostMax int
	PreAvg, PostAvg int
	Delta           float64
	Wait            int
}

// PickPeaks returns the indices n where
//
//	x[n] == max(x[n-PreMax : n+PostMax])
//	x[n] >= mean(x[n-PreAvg : n+PostAvg]) + Delta
//	n > previous peak + Wait
//
// Windows are clipped at the edges. Zero-valued samples are never peaks.
func PickPeaks(x []float64, p PeakParams) []int {
	n := len(x)
	if n == 0 {
		return nil
	}

	// prefix sums for the moving average
	prefix := make([]float64, n+1)
	for i, v := range x {
		prefix[i+1] = prefix[i] + v
	}

	var peaks []int
	last := -1 << 62
	for i, v := range x {
		if v == 0 {
			continue
		}
		lo, hi := max(0, i-p.PreMax), min(n, i+p.PostMax)
		isMax := true
		for j := lo; j < hi; j++ {
			if x[j] > v {
				isMax = false
				break
			}
		}
		if !isMax {
			continue
		}

		lo, hi = max(0, i-p.PreAvg), min(n, i+p.PostAvg)
		avg := (prefix[hi] - prefix[lo]) / float64(hi-lo)
		if v < avg+p.Delta {
			continue
		}

		if i > last+p.Wait {
			peaks = append(peaks, i)
			last = i
		}
	}
	return peaks
}

// FramesToTime converts frame indices to seconds.
func FramesToTime(frames []int, hop, sampleRate int) []float64 {
	out := make([]float64, len(frames))
	for i, f := range frames {
		out[i] = float64(f*hop) / float64(sampleRate)
	}
	return out
}
