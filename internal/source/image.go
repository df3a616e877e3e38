package source

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/ivlev/melody2video/internal/errs"
)

// ImageSource decodes a single raster file
type ImageSource struct {
	path string
}

func NewImageSource(path string) *ImageSource {
	return &ImageSource{path: path}
}

func (s *ImageSource) PageCount() int {
	return 1
}

func (s *ImageSource) Dimensions(index int, dpi int) (int, int, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return 0, 0, errs.IO(stage, "open image", err).With("path", s.path)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, errs.Decode(stage, "read image header", err).With("path", s.path)
	}
	return cfg.Width, cfg.Height, nil
}

// Render decodes the file; dpi does not apply to raster images
func (s *ImageSource) Render(index int, dpi int) (image.Image, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, errs.IO(stage, "open image", err).With("path", s.path)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errs.Decode(stage, "decode image", err).With("path", s.path)
	}
	return img, nil
}

func (s *ImageSource) Close() error {
	return nil
}
