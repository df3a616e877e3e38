package dsp

// OnsetStrength computes spectral flux on a log-mel spectrogram: the mean
// positive difference between frame t and frame t-lag. The result has one
// value per spectrogram frame and is delayed by lag+nFFT/(2*hop) frames so
// that each value lines up with the centre of the frame that rose.
func OnsetStrength(melDB Spectrogram, lag, nFFT, hop int) []float64 {
	frames := melDB.Frames()
	env := make([]float64, frames)
	if frames <= lag {
		return env
	}

	shift := lag + nFFT/(2*hop)
	bands := float64(melDB.Bins())
	for t := lag; t < frames; t++ {
		dst := t - lag + shift
		if dst >= frames {
			break
		}
		var sum float64
		cur, prev := melDB[t], melDB[t-lag]
		for m := range cur {
			if d := cur[m] - prev[m]; d > 0 {
				sum += d
			}
		}
		env[dst] = sum / bands
	}
	return env
}
