package config

import "github.com/ivlev/melody2video/internal/errs"

// Validate rejects parameter combinations the pipeline cannot honour
func (c *Config) Validate() error {
	if c.FPS <= 0 {
		return errs.Validation("fps", c.FPS, "must be positive")
	}
	if c.Workers < 1 {
		return errs.Validation("workers", c.Workers, "must be at least 1")
	}
	if err := c.Animation.Validate(); err != nil {
		return err
	}
	return c.Analysis.Validate()
}

func (a AnimationConfig) Validate() error {
	switch {
	case a.BaseScale <= 0:
		return errs.Validation("animation.base_scale", a.BaseScale, "must be positive")
	case a.MaxScale <= a.BaseScale:
		return errs.Validation("animation.max_scale", a.MaxScale, "must be greater than base_scale")
	case a.MinScale <= 0 || a.MinScale > a.BaseScale:
		return errs.Validation("animation.min_scale", a.MinScale, "must be in (0, base_scale]")
	case a.SmoothingFactor <= 0 || a.SmoothingFactor >= 1:
		return errs.Validation("animation.smoothing_factor", a.SmoothingFactor, "must be in (0, 1)")
	case a.EffectDuration <= 0:
		return errs.Validation("animation.effect_duration", a.EffectDuration, "must be positive")
	}
	return nil
}

func (a AnalysisConfig) Validate() error {
	switch {
	case a.FFTSize <= 0 || a.FFTSize&(a.FFTSize-1) != 0:
		return errs.Validation("analysis.fft_size", a.FFTSize, "must be a power of two")
	case a.HopLength <= 0 || a.HopLength > a.FFTSize:
		return errs.Validation("analysis.hop_length", a.HopLength, "must be in (0, fft_size]")
	case a.HPSSKernel <= 0 || a.HPSSKernel%2 == 0:
		return errs.Validation("analysis.hpss_kernel", a.HPSSKernel, "must be a positive odd number")
	case a.MelBands <= 0:
		return errs.Validation("analysis.mel_bands", a.MelBands, "must be positive")
	case a.RMSFrameLength <= 0:
		return errs.Validation("analysis.rms_frame_length", a.RMSFrameLength, "must be positive")
	case a.RMSHopLength <= 0:
		return errs.Validation("analysis.rms_hop_length", a.RMSHopLength, "must be positive")
	}

	p := a.PeakPick
	switch {
	case p.PreMax < 0 || p.PostMax < 1:
		return errs.Validation("analysis.peak_pick.max", [2]int{p.PreMax, p.PostMax}, "pre_max >= 0 and post_max >= 1 required")
	case p.PreAvg < 0 || p.PostAvg < 1:
		return errs.Validation("analysis.peak_pick.avg", [2]int{p.PreAvg, p.PostAvg}, "pre_avg >= 0 and post_avg >= 1 required")
	case p.Wait < 0:
		return errs.Validation("analysis.peak_pick.wait", p.Wait, "must not be negative")
	case p.Delta < 0:
		return errs.Validation("analysis.peak_pick.delta", p.Delta, "must not be negative")
	}
	return nil
}
