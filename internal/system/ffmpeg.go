package system

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strconv"
	"strings"

	"github.com/ivlev/melody2video/internal/errs"
)

// BestH264Encoder picks a hardware H.264 encoder when ffmpeg has one.
// Приоритеты: VideoToolbox (macOS), NVENC (NVIDIA), затем libx264.
func BestH264Encoder(ctx context.Context, ffmpeg string) string {
	out, err := exec.CommandContext(ctx, ffmpeg, "-hide_banner", "-encoders").CombinedOutput()
	if err != nil {
		return "libx264"
	}
	return pickEncoder(string(out))
}

func pickEncoder(listing string) string {
	for _, name := range []string{"h264_videotoolbox", "h264_nvenc"} {
		if strings.Contains(listing, name) {
			return name
		}
	}
	return "libx264"
}

// ProbeDuration returns the container duration of path in seconds
func ProbeDuration(ctx context.Context, ffprobe, path string) (float64, error) {
	args := []string{"-v", "error", "-show_entries", "format=duration", "-of", "default=noprint_wrappers=1:nokey=1", path}
	cmd := exec.CommandContext(ctx, ffprobe, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		fe := &errs.FFmpegError{Args: args, ExitCode: -1, Stderr: stderr.String()}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			fe.ExitCode = exitErr.ExitCode()
		}
		return 0, errors.Join(err, fe)
	}
	return parseDuration(stdout.String())
}

func parseDuration(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
