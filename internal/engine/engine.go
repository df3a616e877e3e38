// Package engine wires the pipeline: analyse the audio, animate the scale,
// render frames and stream them into the muxer.
package engine

import (
	"context"
	"errors"
	"image"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ivlev/melody2video/internal/analyzer"
	"github.com/ivlev/melody2video/internal/animator"
	"github.com/ivlev/melody2video/internal/config"
	"github.com/ivlev/melody2video/internal/director"
	"github.com/ivlev/melody2video/internal/errs"
	"github.com/ivlev/melody2video/internal/logger"
	"github.com/ivlev/melody2video/internal/renderer"
	"github.com/ivlev/melody2video/internal/source"
	"github.com/ivlev/melody2video/internal/system"
	"github.com/ivlev/melody2video/internal/video"
)

// MuxerFactory starts a muxer writing to output
type MuxerFactory func(ctx context.Context, output string, p video.Params) (video.Muxer, error)

type Project struct {
	Config    *config.Config
	Extractor *analyzer.Extractor
	Resizer   renderer.Resizer
	OpenMuxer MuxerFactory
}

// Stats describes a finished run
type Stats struct {
	Frames       int
	Events       int
	Duration     float64 // audio seconds
	Width        int
	Height       int
	Encoder      string
	Window       int
	Analysis     time.Duration
	Render       time.Duration // rendering and encoding overlap
	Total        time.Duration
	PooledFrames int64
	OutputLength float64 // seconds reported by ffprobe, 0 if unknown
}

func NewProject(cfg *config.Config) (*Project, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rs, err := renderer.NewResizer(cfg.Resampler)
	if err != nil {
		return nil, errs.Validation("resampler", cfg.Resampler, err.Error())
	}
	ex, err := analyzer.NewExtractor(cfg.Analysis, cfg.Workers)
	if err != nil {
		return nil, err
	}

	p := &Project{Config: cfg, Extractor: ex, Resizer: rs}
	p.OpenMuxer = func(ctx context.Context, output string, vp video.Params) (video.Muxer, error) {
		return video.Open(ctx, p.ffmpeg(), output, vp)
	}
	return p, nil
}

func (p *Project) ffmpeg() string {
	if p.Config.FFmpegPath != "" {
		return p.Config.FFmpegPath
	}
	return "ffmpeg"
}

func (p *Project) ffprobe() string {
	if p.Config.FFprobePath != "" {
		return p.Config.FFprobePath
	}
	return "ffprobe"
}

// Run produces Config.OutputVideo from the image and audio track
func (p *Project) Run(ctx context.Context) (*Stats, error) {
	cfg := p.Config
	log := logger.FromContext(ctx)
	start := time.Now()
	stats := &Stats{}

	img, err := source.LoadStill(cfg.ImagePath, cfg.DPI)
	if err != nil {
		return nil, err
	}
	stats.Width, stats.Height = img.Bounds().Dx(), img.Bounds().Dy()
	log.Info("image loaded", zap.String("path", cfg.ImagePath), zap.Int("width", stats.Width), zap.Int("height", stats.Height))

	plan, err := p.Plan(ctx)
	if err != nil {
		return nil, err
	}
	stats.Analysis = time.Since(start)
	stats.Events = len(plan.Analysis.Events)
	stats.Duration = plan.Analysis.Duration
	stats.Frames = len(plan.Scales)
	if stats.Frames == 0 {
		return nil, errs.Compute("animate", "no frames to render", nil).With("duration", plan.Analysis.Duration)
	}

	renderStart := time.Now()
	if err := p.render(ctx, img, plan.Scales, plan.AudioPath, stats); err != nil {
		return nil, err
	}
	stats.Render = time.Since(renderStart)

	p.probeOutput(ctx, stats)
	stats.Total = time.Since(start)

	if cfg.ShowStats {
		logStats(log, stats)
	}
	return stats, nil
}

// Plan is everything decided before the first frame is rendered
type Plan struct {
	Analysis  *analyzer.Analysis
	Scales    []animator.Scale
	AudioPath string // track to mux
}

// Plan analyses the audio (or loads a saved timeline), computes the scale of
// every frame and writes the timeline when one is requested.
func (p *Project) Plan(ctx context.Context) (*Plan, error) {
	cfg := p.Config
	log := logger.FromContext(ctx)

	analysis, audioPath, err := p.analyse(ctx)
	if err != nil {
		return nil, err
	}

	frames := animator.FrameCount(analysis.Duration, cfg.FPS)
	scales, err := animator.Sequence(analysis, cfg.Animation, frames, cfg.FPS)
	if err != nil {
		return nil, err
	}

	if cfg.TimelineOutput != "" {
		tl := director.NewTimeline(audioPath, analysis, cfg.FPS, scales)
		if err := director.WriteTimeline(tl, cfg.TimelineOutput); err != nil {
			return nil, err
		}
		log.Info("timeline saved", zap.String("path", cfg.TimelineOutput), zap.Int("frames", frames))
	}
	return &Plan{Analysis: analysis, Scales: scales, AudioPath: audioPath}, nil
}

// analyse returns the analysis and the audio track to mux
func (p *Project) analyse(ctx context.Context) (*analyzer.Analysis, string, error) {
	cfg := p.Config
	log := logger.FromContext(ctx)

	if cfg.TimelineInput == "" {
		a, err := p.Extractor.AnalyzeFile(ctx, cfg.AudioPath)
		return a, cfg.AudioPath, err
	}

	tl, err := director.ReadTimeline(cfg.TimelineInput)
	if err != nil {
		return nil, "", err
	}
	a, err := tl.Analysis()
	if err != nil {
		return nil, "", err
	}
	audioPath := cfg.AudioPath
	if audioPath == "" {
		audioPath = tl.Audio
	}
	log.Info("timeline loaded", zap.String("path", cfg.TimelineInput), zap.Int("events", len(a.Events)), zap.String("audio", audioPath))
	return a, audioPath, nil
}

func (p *Project) render(ctx context.Context, img image.Image, scales []animator.Scale, audioPath string, stats *Stats) (err error) {
	cfg := p.Config
	log := logger.FromContext(ctx).With(zap.String("stage", "render"))

	if audioPath == "" {
		return errs.Validation("audio", audioPath, "no audio track to mux")
	}
	if dir := filepath.Dir(cfg.OutputVideo); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errs.IO("render", "create output directory", err).With("path", dir)
		}
	}

	comp := renderer.NewCompositor(img, p.Resizer)
	w, h := comp.Size()

	stats.Encoder = cfg.VideoEncoder
	if stats.Encoder == "" {
		stats.Encoder = system.BestH264Encoder(ctx, p.ffmpeg())
	}
	stats.Window = renderer.WindowSize(w*h*4, cfg.Workers, system.AvailableMemory())

	log.Info("rendering",
		zap.Int("frames", len(scales)),
		zap.Int("fps", cfg.FPS),
		zap.String("encoder", stats.Encoder),
		zap.Int("workers", cfg.Workers),
		zap.Int("window", stats.Window),
	)

	mux, err := p.OpenMuxer(ctx, cfg.OutputVideo, video.Params{
		Width:        w,
		Height:       h,
		FPS:          cfg.FPS,
		AudioPath:    audioPath,
		Encoder:      stats.Encoder,
		Quality:      cfg.Quality,
		AudioBitrate: cfg.AudioBitrate,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, mux.Abort())
		}
	}()

	seq := renderer.NewSequence(comp, scales, stats.Window, cfg.Workers)
	defer seq.Close()

	progressEvery := cfg.FPS * 5
	for {
		i, frame, err := seq.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if err := mux.WriteFrame(frame); err != nil {
			return err
		}
		if (i+1)%progressEvery == 0 {
			log.Info("progress", zap.Int("frame", i+1), zap.Int("total", len(scales)),
				zap.Float64("seconds", animator.FrameTime(i+1, cfg.FPS)))
		}
	}

	if err := mux.Finish(); err != nil {
		return err
	}
	stats.PooledFrames = system.DefaultImagePool().Allocated()
	return nil
}

// probeOutput compares the muxed length with the audio. Failure only warns.
func (p *Project) probeOutput(ctx context.Context, stats *Stats) {
	log := logger.FromContext(ctx)

	length, err := system.ProbeDuration(ctx, p.ffprobe(), p.Config.OutputVideo)
	if err != nil {
		log.Warn("could not probe output", zap.Error(err))
		return
	}
	stats.OutputLength = length

	if drift := math.Abs(length - stats.Duration); drift > 1/float64(p.Config.FPS) {
		log.Warn("output length differs from audio",
			zap.Float64("output", length), zap.Float64("audio", stats.Duration), zap.Float64("drift", drift))
	}
}

func logStats(log *logger.Logger, s *Stats) {
	fps := 0.0
	if s.Total > 0 {
		fps = float64(s.Frames) / s.Total.Seconds()
	}
	log.Info("performance report",
		zap.Int("frames", s.Frames),
		zap.Int("events", s.Events),
		zap.Float64("audio_seconds", s.Duration),
		zap.Float64("output_seconds", s.OutputLength),
		zap.Duration("analysis", s.Analysis),
		zap.Duration("render_encode", s.Render),
		zap.Duration("total", s.Total),
		zap.Float64("effective_fps", fps),
		zap.Int64("pooled_frames", s.PooledFrames),
	)
}
