// Package video streams rendered frames into ffmpeg and muxes them with the
// original audio track.
package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ivlev/melody2video/internal/errs"
	"github.com/ivlev/melody2video/internal/logger"
)

const stage = "encode"

// Muxer consumes frames in presentation order
type Muxer interface {
	WriteFrame(img *image.RGBA) error
	// Finish flushes the encoder and publishes the output file
	Finish() error
	// Abort stops the encoder and removes any partial output
	Abort() error
}

// FFmpegMuxer writes to a hidden partial file next to the output and
// renames it into place only when ffmpeg exits cleanly.
type FFmpegMuxer struct {
	params  Params
	output  string
	partial string
	args    []string

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer
	log    *logger.Logger

	row    []byte
	frames int
	done   bool
}

// PartialPath returns the temporary file name used while encoding output
func PartialPath(output string) string {
	dir, name := filepath.Split(output)
	return filepath.Join(dir, fmt.Sprintf(".%s.%s.partial.mp4", name, uuid.NewString()))
}

// Open starts ffmpeg. The caller must end with Finish or Abort.
func Open(ctx context.Context, ffmpeg, output string, p Params) (*FFmpegMuxer, error) {
	if p.Width <= 0 || p.Height <= 0 || p.FPS <= 0 {
		return nil, errs.Encode(stage, "invalid stream geometry", nil).
			With("width", p.Width).With("height", p.Height).With("fps", p.FPS)
	}

	m := &FFmpegMuxer{
		params:  p,
		output:  output,
		partial: PartialPath(output),
		log:     logger.FromContext(ctx).With(zap.String("stage", stage)),
		row:     make([]byte, p.Width*3),
	}
	m.args = buildArgs(p, m.partial)

	m.cmd = exec.CommandContext(ctx, ffmpeg, m.args...)
	m.cmd.Stderr = &m.stderr

	stdin, err := m.cmd.StdinPipe()
	if err != nil {
		return nil, errs.Encode(stage, "stdin pipe", err)
	}
	m.stdin = stdin

	m.log.Debug("starting ffmpeg", zap.String("bin", ffmpeg), zap.Strings("args", m.args))
	if err := m.cmd.Start(); err != nil {
		return nil, errs.Encode(stage, "start ffmpeg", err).With("bin", ffmpeg)
	}
	return m, nil
}

// Frames returns how many frames were written
func (m *FFmpegMuxer) Frames() int {
	return m.frames
}

// WriteFrame sends img as packed rgb24, dropping the alpha channel
func (m *FFmpegMuxer) WriteFrame(img *image.RGBA) error {
	if m.done {
		return errs.Encode(stage, "write after finish", nil)
	}
	b := img.Bounds()
	if b.Dx() != m.params.Width || b.Dy() != m.params.Height {
		return errs.Encode(stage, "frame size mismatch", nil).
			With("got", b.Size().String()).With("want", fmt.Sprintf("%dx%d", m.params.Width, m.params.Height))
	}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		packRGB(m.row, img.Pix[img.PixOffset(b.Min.X, y):])
		if _, err := m.stdin.Write(m.row); err != nil {
			return errs.Encode(stage, "write frame", err).With("frame", m.frames)
		}
	}
	m.frames++
	return nil
}

// packRGB copies len(dst)/3 RGBA pixels from src into dst as RGB
func packRGB(dst, src []byte) {
	for i, j := 0, 0; i+2 < len(dst); i, j = i+3, j+4 {
		dst[i] = src[j]
		dst[i+1] = src[j+1]
		dst[i+2] = src[j+2]
	}
}

func (m *FFmpegMuxer) Finish() error {
	if m.done {
		return nil
	}
	m.done = true

	err := m.stdin.Close()
	if werr := m.cmd.Wait(); werr != nil {
		err = multierr.Append(werr, m.ffmpegError(werr))
		return multierr.Append(
			errs.Encode(stage, "ffmpeg failed", err).With("frames", m.frames),
			m.removePartial(),
		)
	}
	if err != nil {
		return multierr.Append(errs.Encode(stage, "close ffmpeg stdin", err), m.removePartial())
	}

	if err := os.Rename(m.partial, m.output); err != nil {
		return multierr.Append(
			errs.IO(stage, "publish output", err).With("path", m.output),
			m.removePartial(),
		)
	}
	m.log.Info("video written", zap.String("path", m.output), zap.Int("frames", m.frames))
	return nil
}

func (m *FFmpegMuxer) Abort() error {
	if m.done {
		return nil
	}
	m.done = true

	err := m.stdin.Close()
	if m.cmd.Process != nil {
		if kerr := m.cmd.Process.Kill(); kerr != nil && !errors.Is(kerr, os.ErrProcessDone) {
			err = multierr.Append(err, kerr)
		}
	}
	// killed ffmpeg always exits non-zero
	_ = m.cmd.Wait()
	m.log.Warn("encode aborted", zap.Int("frames", m.frames))
	return multierr.Append(err, m.removePartial())
}

func (m *FFmpegMuxer) removePartial() error {
	if err := os.Remove(m.partial); err != nil && !os.IsNotExist(err) {
		return errs.IO(stage, "remove partial output", err).With("path", m.partial)
	}
	return nil
}

func (m *FFmpegMuxer) ffmpegError(err error) error {
	fe := &errs.FFmpegError{Args: m.args, ExitCode: -1, Stderr: m.stderr.String()}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		fe.ExitCode = exitErr.ExitCode()
	}
	return fe
}
