package analyzer

import (
	"context"

	"github.com/ivlev/melody2video/internal/audio"
	"github.com/ivlev/melody2video/internal/config"
	"github.com/ivlev/melody2video/internal/dsp"
)

const (
	onsetLag = 1
	dbFloor  = 1e-10
	dbRange  = 80.0
)

// OnsetDetector picks peaks from a mel spectral-flux envelope. With Separate
// set, the envelope is computed on the harmonic component only so that drum
// hits do not register as events.
type OnsetDetector struct {
	FFTSize    int
	HopLength  int
	HPSSKernel int
	MelBands   int
	Separate   bool
	Peaks      dsp.PeakParams
	Workers    int
}

// NewHarmonicDetector creates the default melodic detector
func NewHarmonicDetector(cfg config.AnalysisConfig, workers int) *OnsetDetector {
	d := newOnsetDetector(cfg, workers)
	d.Separate = true
	return d
}

// NewBroadbandDetector detects onsets on the full signal
func NewBroadbandDetector(cfg config.AnalysisConfig, workers int) *OnsetDetector {
	return newOnsetDetector(cfg, workers)
}

func newOnsetDetector(cfg config.AnalysisConfig, workers int) *OnsetDetector {
	pp := cfg.PeakPick
	return &OnsetDetector{
		FFTSize:    cfg.FFTSize,
		HopLength:  cfg.HopLength,
		HPSSKernel: cfg.HPSSKernel,
		MelBands:   cfg.MelBands,
		Peaks: dsp.PeakParams{
			PreMax: pp.PreMax, PostMax: pp.PostMax,
			PreAvg: pp.PreAvg, PostAvg: pp.PostAvg,
			Delta: pp.Delta, Wait: pp.Wait,
		},
		Workers: max(1, workers),
	}
}

// Envelope returns the onset strength envelope, one value per STFT frame
func (d *OnsetDetector) Envelope(ctx context.Context, sig *audio.Signal) ([]float64, error) {
	spec, err := dsp.STFT(ctx, sig.Samples, d.FFTSize, d.HopLength, d.Workers)
	if err != nil {
		return nil, err
	}
	if d.Separate {
		spec, err = dsp.Harmonic(ctx, spec, d.HPSSKernel, d.Workers)
		if err != nil {
			return nil, err
		}
	}

	mel := dsp.NewMelBank(sig.SampleRate, d.FFTSize, d.MelBands).Apply(spec.Power())
	dsp.PowerToDB(mel, dbFloor, dbRange)
	return dsp.OnsetStrength(mel, onsetLag, d.FFTSize, d.HopLength), nil
}

func (d *OnsetDetector) Detect(ctx context.Context, sig *audio.Signal) ([]float64, error) {
	if len(sig.Samples) == 0 {
		return nil, nil
	}
	env, err := d.Envelope(ctx, sig)
	if err != nil {
		return nil, err
	}
	frames := dsp.PickPeaks(env, d.Peaks)
	return dsp.FramesToTime(frames, d.HopLength, sig.SampleRate), nil
}
