// Package director saves and restores the analysed timeline of a run so a
// later run can reuse it without decoding the audio again.
package director

import (
	"fmt"

	"github.com/ivlev/melody2video/internal/analyzer"
	"github.com/ivlev/melody2video/internal/animator"
	"github.com/ivlev/melody2video/internal/errs"
)

const TimelineVersion = "1.0"

// Timeline is the serialized form of one analysis and its frame scales
type Timeline struct {
	Version     string           `yaml:"version"`
	Audio       string           `yaml:"audio"`
	SampleRate  int              `yaml:"sample_rate"`
	Duration    float64          `yaml:"duration"` // seconds
	LoudnessHop int              `yaml:"loudness_hop"`
	Events      []float64        `yaml:"events,flow"`
	Loudness    []float64        `yaml:"loudness,flow"`
	FPS         int              `yaml:"fps,omitempty"`
	Frames      []animator.Scale `yaml:"frames,omitempty"`
}

// NewTimeline captures a; scales may be nil
func NewTimeline(audio string, a *analyzer.Analysis, fps int, scales []animator.Scale) *Timeline {
	return &Timeline{
		Version:     TimelineVersion,
		Audio:       audio,
		SampleRate:  a.SampleRate,
		Duration:    a.Duration,
		LoudnessHop: a.LoudnessHop,
		Events:      a.Events,
		Loudness:    a.Loudness,
		FPS:         fps,
		Frames:      scales,
	}
}

// Analysis rebuilds the analysis, rejecting inconsistent timelines
func (t *Timeline) Analysis() (*analyzer.Analysis, error) {
	if t.Version != TimelineVersion {
		return nil, errs.Decode(stage, fmt.Sprintf("unsupported timeline version %q", t.Version), nil)
	}
	if t.Duration < 0 || t.SampleRate < 0 || t.LoudnessHop < 0 {
		return nil, errs.Decode(stage, "negative timeline header value", nil)
	}
	if len(t.Loudness) > 0 && (t.SampleRate == 0 || t.LoudnessHop == 0) {
		return nil, errs.Decode(stage, "loudness curve without sample rate or hop", nil)
	}
	for i, ev := range t.Events {
		if ev < 0 || ev > t.Duration {
			return nil, errs.Decode(stage, "event outside track", nil).With("index", i).With("time", ev)
		}
		if i > 0 && ev < t.Events[i-1] {
			return nil, errs.Decode(stage, "events out of order", nil).With("index", i)
		}
	}
	for i, v := range t.Loudness {
		if v < 0 || v > 1 {
			return nil, errs.Decode(stage, "loudness outside [0,1]", nil).With("index", i).With("value", v)
		}
	}

	return &analyzer.Analysis{
		SampleRate:  t.SampleRate,
		Duration:    t.Duration,
		Events:      t.Events,
		Loudness:    t.Loudness,
		LoudnessHop: t.LoudnessHop,
	}, nil
}
