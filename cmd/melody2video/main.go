package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ivlev/melody2video/internal/config"
	"github.com/ivlev/melody2video/internal/director"
	"github.com/ivlev/melody2video/internal/engine"
	"github.com/ivlev/melody2video/internal/errs"
	"github.com/ivlev/melody2video/internal/logger"
	"github.com/ivlev/melody2video/internal/system"
)

const (
	imageDir  = "input/image"
	audioDir  = "input/audio"
	outputDir = "output"

	// latestTimeline as --timeline-in picks the newest file in timelineDir
	latestTimeline = "latest"
)

var timelineDir = filepath.Join(outputDir, "timelines")

var (
	cfgFile string
	verbose bool
	cfg     = config.Default()
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "[-] Ошибка: %v\n", err)
		if kind := errs.KindOf(err); kind != "" {
			fmt.Fprintf(os.Stderr, "[-] Категория: %s\n", kind)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "melody2video",
	Short:         "Оживляет картинку под мелодию аудио-трека",
	Long:          "Анализирует мелодию аудио-файла и рендерит видео, в котором изображение растягивается и «дышит» в такт нотам.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log, err := logger.New(verbose)
		if err != nil {
			return err
		}
		cmd.SetContext(logger.WithContext(cmd.Context(), log))
		return loadConfig(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.FromContext(cmd.Context()).Sync()
	},
	RunE: runRender,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Только анализ аудио: сохраняет таймлайн событий и масштабов без рендеринга видео",
	RunE:  runAnalyze,
}

var configCmd = &cobra.Command{
	Use:   "config [path]",
	Short: "Записывает конфигурацию по умолчанию в YAML",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "config.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if err := cfg.Save(path); err != nil {
			return err
		}
		fmt.Printf("[+] Конфигурация сохранена: %s\n", path)
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "YAML-файл конфигурации (по умолчанию: ./config.yaml, если есть)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Подробный вывод (debug)")
	pf.StringVar(&cfg.AudioPath, "audio", "", "Путь к аудио (по умолчанию: самый свежий файл в input/audio/)")
	pf.IntVar(&cfg.FPS, "fps", cfg.FPS, "FPS")
	pf.IntVar(&cfg.Workers, "workers", cfg.Workers, "Потоки")
	pf.StringVar(&cfg.Analysis.Detector, "detector", cfg.Analysis.Detector, "Детектор событий: harmonic (только мелодия), broadband (весь сигнал)")
	pf.StringVar(&cfg.TimelineOutput, "timeline-out", "", "Сохранить таймлайн (события, громкость, масштабы) в YAML")
	pf.StringVar(&cfg.TimelineInput, "timeline-in", "", "Использовать сохраненный таймлайн вместо анализа аудио (latest - самый свежий в output/timelines/)")

	f := rootCmd.Flags()
	f.StringVar(&cfg.ImagePath, "image", "", "Путь к изображению или PDF (по умолчанию: самый свежий файл в input/image/)")
	f.StringVar(&cfg.OutputVideo, "output", "", "Путь к видео (если пусто, генерируется автоматически в output/)")
	f.IntVar(&cfg.DPI, "dpi", cfg.DPI, "DPI для PDF")
	f.StringVar(&cfg.VideoEncoder, "encoder", "", "H.264 энкодер ffmpeg (пусто - автоопределение)")
	f.IntVar(&cfg.Quality, "quality", 0, "Качество видео (0 - авто, x264: CRF 1-51, VideoToolbox: битрейт = Q*100кбит/с)")
	f.StringVar(&cfg.Resampler, "resampler", cfg.Resampler, "Интерполяция: bilinear, approx-bilinear, nfnt")
	f.Float64Var(&cfg.Animation.BaseScale, "base-scale", cfg.Animation.BaseScale, "Базовый масштаб")
	f.Float64Var(&cfg.Animation.MaxScale, "max-scale", cfg.Animation.MaxScale, "Максимальный масштаб на пике события")
	f.Float64Var(&cfg.Animation.SmoothingFactor, "smoothing", cfg.Animation.SmoothingFactor, "Сглаживание (0..1, больше - резче)")
	f.Float64Var(&cfg.Animation.EffectDuration, "effect-duration", cfg.Animation.EffectDuration, "Длительность импульса после события (сек)")
	f.BoolVar(&cfg.ShowStats, "stats", false, "Показать отчет о производительности")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(configCmd)
}

// loadConfig applies the YAML file under the flags: only flags the user set
// override file values.
func loadConfig(cmd *cobra.Command) error {
	path := cfgFile
	if path == "" {
		path = "config.yaml"
	}
	fileCfg, err := config.Load(path)
	if err != nil {
		return err
	}

	// keep path-like fields and explicitly set flags from the command line
	merged := *fileCfg
	merged.ImagePath, merged.AudioPath, merged.OutputVideo = cfg.ImagePath, cfg.AudioPath, cfg.OutputVideo
	merged.TimelineInput, merged.TimelineOutput = cfg.TimelineInput, cfg.TimelineOutput

	flags := cmd.Flags()
	override := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}
	override("fps", func() { merged.FPS = cfg.FPS })
	override("workers", func() { merged.Workers = cfg.Workers })
	override("detector", func() { merged.Analysis.Detector = cfg.Analysis.Detector })
	override("dpi", func() { merged.DPI = cfg.DPI })
	override("encoder", func() { merged.VideoEncoder = cfg.VideoEncoder })
	override("quality", func() { merged.Quality = cfg.Quality })
	override("resampler", func() { merged.Resampler = cfg.Resampler })
	override("base-scale", func() { merged.Animation.BaseScale = cfg.Animation.BaseScale })
	override("max-scale", func() { merged.Animation.MaxScale = cfg.Animation.MaxScale })
	override("smoothing", func() { merged.Animation.SmoothingFactor = cfg.Animation.SmoothingFactor })
	override("effect-duration", func() { merged.Animation.EffectDuration = cfg.Animation.EffectDuration })
	override("stats", func() { merged.ShowStats = cfg.ShowStats })

	*cfg = merged
	return nil
}

// resolveTimeline maps "latest" to the newest timeline in dir
func resolveTimeline(input, dir string) (string, error) {
	if input != latestTimeline {
		return input, nil
	}
	path, err := director.FindLatestTimeline(dir)
	if err != nil {
		return "", errs.IO("cli", "find latest timeline", err).With("dir", dir)
	}
	return path, nil
}

func resolveInputs(log *logger.Logger) error {
	tl, err := resolveTimeline(cfg.TimelineInput, timelineDir)
	if err != nil {
		return err
	}
	if tl != cfg.TimelineInput {
		log.Info("выбран таймлайн", zap.String("path", tl))
	}
	cfg.TimelineInput = tl
	return resolveAudio(log)
}

func resolveAudio(log *logger.Logger) error {
	if cfg.AudioPath != "" || cfg.TimelineInput != "" {
		return nil
	}
	latest, err := system.FindLatestAudio(audioDir)
	if err != nil {
		return fmt.Errorf("%v. Положите аудио в %s/", err, audioDir)
	}
	cfg.AudioPath = latest
	log.Info("выбрано аудио", zap.String("path", latest))
	return nil
}

func runRender(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := logger.FromContext(ctx)

	// Создаем нужные директории, если их нет
	for _, d := range []string{imageDir, audioDir, outputDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return errs.IO("cli", "create directory", err).With("path", d)
		}
	}

	if cfg.ImagePath == "" {
		latest, err := system.FindLatestImage(imageDir)
		if err != nil {
			return fmt.Errorf("%v. Положите изображение в %s/", err, imageDir)
		}
		cfg.ImagePath = latest
		log.Info("выбрано изображение", zap.String("path", latest))
	}
	if err := resolveInputs(log); err != nil {
		return err
	}
	if cfg.OutputVideo == "" {
		nameSource := cfg.AudioPath
		if nameSource == "" {
			nameSource = cfg.ImagePath
		}
		cfg.OutputVideo = defaultOutput(nameSource, time.Now())
	}

	project, err := engine.NewProject(cfg)
	if err != nil {
		return err
	}
	if _, err := project.Run(ctx); err != nil {
		return err
	}

	fmt.Printf("[+++] Успех! Результат: %s\n", cfg.OutputVideo)
	return nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := logger.FromContext(ctx)

	if err := resolveInputs(log); err != nil {
		return err
	}
	if cfg.TimelineOutput == "" {
		cfg.TimelineOutput = director.GenerateTimelinePath(timelineDir)
	}

	project, err := engine.NewProject(cfg)
	if err != nil {
		return err
	}
	plan, err := project.Plan(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("[+++] Событий: %d, кадров: %d. Таймлайн: %s\n", len(plan.Analysis.Events), len(plan.Scales), cfg.TimelineOutput)
	return nil
}

// defaultOutput builds output/<name>_<timestamp>.mp4
func defaultOutput(nameSource string, now time.Time) string {
	baseName := filepath.Base(nameSource)
	nameOnly := strings.TrimSuffix(baseName, filepath.Ext(baseName))
	cleanName := strings.ReplaceAll(nameOnly, " ", "_")
	timestamp := now.Format("2006-01-02_15-04-05")
	return filepath.Join(outputDir, fmt.Sprintf("%s_%s.mp4", cleanName, timestamp))
}
