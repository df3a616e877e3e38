// Package animator turns an audio analysis into a per-frame anisotropic
// scale. The state is a single (x, y) pair advanced once per frame in
// strictly increasing time order.
package animator

import (
	"math"

	"github.com/ivlev/melody2video/internal/analyzer"
	"github.com/ivlev/melody2video/internal/config"
	"github.com/ivlev/melody2video/internal/errs"
)

const stage = "animate"

// Scale is a horizontal and vertical scale factor pair
type Scale struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Animator holds the smoothing state for one run
type Animator struct {
	analysis *analyzer.Analysis
	cfg      config.AnimationConfig

	cur     Scale
	last    float64
	stepped bool
}

func New(a *analyzer.Analysis, cfg config.AnimationConfig) (*Animator, error) {
	if a == nil {
		return nil, errs.Compute(stage, "nil analysis", nil)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Animator{
		analysis: a,
		cfg:      cfg,
		cur:      Scale{X: cfg.BaseScale, Y: cfg.BaseScale},
	}, nil
}

// Current returns the scale produced by the last Step, or the base scale
// before the first one.
func (an *Animator) Current() Scale {
	return an.cur
}

// Target computes the unsmoothed scale for time t. It does not touch state.
func (an *Animator) Target(t float64) Scale {
	base := an.cfg.BaseScale
	target := Scale{X: base, Y: base}

	idx, ok := an.analysis.EventAt(t)
	if !ok {
		return target
	}
	elapsed := t - an.analysis.Events[idx]
	if elapsed >= an.cfg.EffectDuration {
		return target
	}

	stretch := (an.cfg.MaxScale - base) * an.analysis.LoudnessAt(t) * Decay(elapsed, an.cfg.EffectDuration)

	// event number idx+1 is odd for even idx
	if idx%2 == 0 {
		target.Y += stretch
		target.X -= stretch / 2
	} else {
		target.X += stretch
		target.Y -= stretch / 2
	}
	return target
}

// Step advances the state to time t and returns the new scale
func (an *Animator) Step(t float64) (Scale, error) {
	if an.stepped && t <= an.last {
		return an.cur, errs.Compute(stage, "frame time not increasing", nil).
			With("time", t).With("previous", an.last)
	}
	an.last, an.stepped = t, true

	target := an.Target(t)
	k := an.cfg.SmoothingFactor
	an.cur.X += (target.X - an.cur.X) * k
	an.cur.Y += (target.Y - an.cur.Y) * k

	an.cur.X = math.Max(an.cur.X, an.cfg.MinScale)
	an.cur.Y = math.Max(an.cur.Y, an.cfg.MinScale)
	return an.cur, nil
}

// Decay is a raised-cosine pulse: 1 at elapsed=0, 0 at elapsed=window.
func Decay(elapsed, window float64) float64 {
	if elapsed < 0 || elapsed >= window {
		return 0
	}
	return (math.Cos(elapsed*math.Pi/window) + 1) / 2
}

// FrameCount is the number of whole frames that fit in duration
func FrameCount(duration float64, fps int) int {
	if duration <= 0 || fps <= 0 {
		return 0
	}
	return int(math.Floor(duration * float64(fps)))
}

// FrameTime returns the presentation time of frame i
func FrameTime(i, fps int) float64 {
	return float64(i) / float64(fps)
}

// Sequence runs a fresh animator over frames consecutive frames
func Sequence(a *analyzer.Analysis, cfg config.AnimationConfig, frames, fps int) ([]Scale, error) {
	an, err := New(a, cfg)
	if err != nil {
		return nil, err
	}
	out := make([]Scale, frames)
	for i := range frames {
		s, err := an.Step(FrameTime(i, fps))
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}
