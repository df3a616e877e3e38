package analyzer

import (
	"context"
	"sort"

	"github.com/ivlev/melody2video/internal/audio"
)

// Analysis is the immutable result of analysing one audio track
type Analysis struct {
	SampleRate  int
	Duration    float64   // seconds
	Events      []float64 // melodic event times in seconds, non-decreasing
	Loudness    []float64 // normalized RMS in [0,1], one value per LoudnessHop samples
	LoudnessHop int
}

// LoudnessAt returns the loudness sample covering time t. Times past the end
// of the curve use the last sample; an empty curve is silent.
func (a *Analysis) LoudnessAt(t float64) float64 {
	if len(a.Loudness) == 0 || a.SampleRate == 0 || a.LoudnessHop == 0 {
		return 0
	}
	idx := int(t * float64(a.SampleRate) / float64(a.LoudnessHop))
	idx = max(0, min(idx, len(a.Loudness)-1))
	return a.Loudness[idx]
}

// EventAt returns the index of the latest event at or before t
func (a *Analysis) EventAt(t float64) (int, bool) {
	i := sort.Search(len(a.Events), func(i int) bool { return a.Events[i] > t }) - 1
	return i, i >= 0
}

// Detector finds melodic event times in a decoded signal
type Detector interface {
	Detect(ctx context.Context, sig *audio.Signal) ([]float64, error)
}
