package config

import (
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/melody2video/internal/errs"
)

type Config struct {
	ImagePath      string `yaml:"-"`
	AudioPath      string `yaml:"-"`
	OutputVideo    string `yaml:"-"`
	TimelineInput  string `yaml:"-"`
	TimelineOutput string `yaml:"-"`

	FPS          int    `yaml:"fps"`
	Workers      int    `yaml:"workers"`
	DPI          int    `yaml:"dpi"`
	VideoEncoder string `yaml:"video_encoder"` // пусто = автоопределение
	Quality      int    `yaml:"quality"`       // 0 = по умолчанию для энкодера
	AudioBitrate string `yaml:"audio_bitrate"`
	Resampler    string `yaml:"resampler"`
	ShowStats    bool   `yaml:"show_stats"`
	FFmpegPath   string `yaml:"ffmpeg_path"`
	FFprobePath  string `yaml:"ffprobe_path"`

	Animation AnimationConfig `yaml:"animation"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
}

// AnimationConfig drives the scale state machine
type AnimationConfig struct {
	BaseScale       float64 `yaml:"base_scale"`
	MaxScale        float64 `yaml:"max_scale"`
	MinScale        float64 `yaml:"min_scale"` // floor applied after smoothing
	SmoothingFactor float64 `yaml:"smoothing_factor"`
	EffectDuration  float64 `yaml:"effect_duration"` // seconds
}

// AnalysisConfig holds the audio analysis parameters. Sizes are in samples
// except the peak-picking windows, which are in envelope frames.
type AnalysisConfig struct {
	Detector       string         `yaml:"detector"`
	FFTSize        int            `yaml:"fft_size"`
	HopLength      int            `yaml:"hop_length"`
	HPSSKernel     int            `yaml:"hpss_kernel"`
	MelBands       int            `yaml:"mel_bands"`
	RMSFrameLength int            `yaml:"rms_frame_length"`
	RMSHopLength   int            `yaml:"rms_hop_length"`
	PeakPick       PeakPickConfig `yaml:"peak_pick"`
}

type PeakPickConfig struct {
	PreMax  int     `yaml:"pre_max"`
	PostMax int     `yaml:"post_max"`
	PreAvg  int     `yaml:"pre_avg"`
	PostAvg int     `yaml:"post_avg"`
	Delta   float64 `yaml:"delta"`
	Wait    int     `yaml:"wait"`
}

func Default() *Config {
	return &Config{
		FPS:          30,
		Workers:      runtime.NumCPU(),
		DPI:          150,
		AudioBitrate: "192k",
		Resampler:    "bilinear",
		Animation: AnimationConfig{
			BaseScale:       0.5,
			MaxScale:        2.0,
			MinScale:        0.05,
			SmoothingFactor: 0.15,
			EffectDuration:  0.3,
		},
		Analysis: AnalysisConfig{
			Detector:       "harmonic",
			FFTSize:        2048,
			HopLength:      512,
			HPSSKernel:     31,
			MelBands:       128,
			RMSFrameLength: 2048,
			RMSHopLength:   512,
			PeakPick: PeakPickConfig{
				PreMax:  3,
				PostMax: 3,
				PreAvg:  3,
				PostAvg: 5,
				Delta:   0.6,
				Wait:    4,
			},
		},
	}
}

// Load reads YAML over the defaults. An empty path or a missing file yields
// the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errs.IO("config", "read config file", err).With("path", path)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errs.Decode("config", "parse config file", err).With("path", path)
	}
	return cfg, nil
}

// Save writes the tunable part of the configuration to path
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errs.Compute("config", "marshal config", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errs.IO("config", "write config file", err).With("path", path)
	}
	return nil
}
