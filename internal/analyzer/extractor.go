package analyzer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ivlev/melody2video/internal/audio"
	"github.com/ivlev/melody2video/internal/config"
	"github.com/ivlev/melody2video/internal/dsp"
	"github.com/ivlev/melody2video/internal/errs"
	"github.com/ivlev/melody2video/internal/logger"
)

const (
	stage       = "audio-analysis"
	loudnessEps = 1e-6
)

// Extractor turns a decoded signal into an Analysis
type Extractor struct {
	cfg      config.AnalysisConfig
	detector Detector
}

func NewExtractor(cfg config.AnalysisConfig, workers int) (*Extractor, error) {
	det, err := NewDetector(cfg.Detector, cfg, workers)
	if err != nil {
		return nil, errs.Validation("analysis.detector", cfg.Detector, err.Error())
	}
	return &Extractor{cfg: cfg, detector: det}, nil
}

// NewExtractorWith uses a caller-supplied detector
func NewExtractorWith(cfg config.AnalysisConfig, det Detector) *Extractor {
	return &Extractor{cfg: cfg, detector: det}
}

// AnalyzeFile decodes path and analyses it
func (e *Extractor) AnalyzeFile(ctx context.Context, path string) (*Analysis, error) {
	sig, err := audio.Load(path)
	if err != nil {
		return nil, err
	}
	return e.Analyze(ctx, sig)
}

func (e *Extractor) Analyze(ctx context.Context, sig *audio.Signal) (*Analysis, error) {
	log := logger.FromContext(ctx)
	start := time.Now()

	a := &Analysis{
		SampleRate:  sig.SampleRate,
		Duration:    sig.Duration(),
		LoudnessHop: e.cfg.RMSHopLength,
	}
	if len(sig.Samples) == 0 {
		log.Warn("empty audio track, animation disabled")
		return a, nil
	}

	events, err := e.detector.Detect(ctx, sig)
	if err != nil {
		return nil, errs.Compute(stage, "detect melodic events", err)
	}
	if err := checkEvents(events, a.Duration); err != nil {
		return nil, err
	}
	a.Events = events

	rms := dsp.RMS(sig.Samples, e.cfg.RMSFrameLength, e.cfg.RMSHopLength)
	a.Loudness = dsp.MinMaxNormalize(rms, loudnessEps)

	log.Info("audio analysed",
		zap.Int("sample_rate", a.SampleRate),
		zap.Float64("duration", a.Duration),
		zap.Int("events", len(a.Events)),
		zap.Int("loudness_frames", len(a.Loudness)),
		zap.Duration("took", time.Since(start)),
	)
	return a, nil
}

func checkEvents(events []float64, duration float64) error {
	for i, t := range events {
		if t < 0 || t > duration {
			return errs.Compute(stage, "event outside track", nil).With("time", t).With("duration", duration)
		}
		if i > 0 && t < events[i-1] {
			return errs.Compute(stage, "events out of order", nil).With("index", i)
		}
	}
	return nil
}
