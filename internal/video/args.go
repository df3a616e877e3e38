package video

import (
	"fmt"
	"strconv"
)

// Params describes one encode
type Params struct {
	Width, Height int
	FPS           int
	AudioPath     string
	Encoder       string // ffmpeg -c:v value
	Quality       int    // 0 = default for the encoder
	AudioBitrate  string
}

// DefaultQuality returns the quality used when none is configured
func DefaultQuality(encoder string) int {
	switch encoder {
	case "h264_videotoolbox":
		return 75 // хорошее качество для VideoToolbox
	case "h264_nvenc":
		return 28 // эквивалент CRF для NVENC
	default:
		return 23 // стандартный CRF для x264
	}
}

// qualityArgs maps quality onto the encoder's own rate control flag
func qualityArgs(encoder string, quality int) []string {
	if quality <= 0 {
		quality = DefaultQuality(encoder)
	}
	switch encoder {
	case "h264_videotoolbox":
		// VideoToolbox не везде поддерживает -q:v, используем битрейт: 75 -> 7.5 Мбит/с
		return []string{"-b:v", fmt.Sprintf("%dk", quality*100)}
	case "h264_nvenc":
		return []string{"-cq", strconv.Itoa(quality)}
	default: // libx264
		return []string{"-crf", strconv.Itoa(quality), "-preset", "medium"}
	}
}

// buildArgs reads raw rgb24 frames on stdin and muxes them with the audio
// track into an MP4 at output.
func buildArgs(p Params, output string) []string {
	encoder := p.Encoder
	if encoder == "" {
		encoder = "libx264"
	}
	bitrate := p.AudioBitrate
	if bitrate == "" {
		bitrate = "192k"
	}

	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "rawvideo",
		"-pixel_format", "rgb24",
		"-video_size", fmt.Sprintf("%dx%d", p.Width, p.Height),
		"-framerate", strconv.Itoa(p.FPS),
		"-i", "-",
		"-i", p.AudioPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
		// yuv420p needs even dimensions
		"-vf", "pad=ceil(iw/2)*2:ceil(ih/2)*2",
		"-c:v", encoder,
		"-pix_fmt", "yuv420p",
	}
	args = append(args, qualityArgs(encoder, p.Quality)...)
	args = append(args,
		"-c:a", "aac",
		"-b:a", bitrate,
		"-shortest",
		"-movflags", "+faststart",
		"-f", "mp4",
		output,
	)
	return args
}
