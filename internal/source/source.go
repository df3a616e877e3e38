// Package source loads the still image that gets animated
package source

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/ivlev/melody2video/internal/errs"
)

const stage = "image-decode"

// MaxPixels caps the still size; every rendered frame is a full RGBA canvas.
const MaxPixels = 1 << 26

// Source is a paged image provider. Raster files have one page.
type Source interface {
	PageCount() int
	// Dimensions is the pixel size Render would produce, read without
	// decoding the raster.
	Dimensions(index int, dpi int) (width, height int, err error)
	Render(index int, dpi int) (image.Image, error)
	Close() error
}

// Open picks a source by file extension
func Open(path string) (Source, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errs.IO(stage, "open image", err).With("path", path)
	}
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return NewFitzPDFSource(path)
	}
	return NewImageSource(path), nil
}

// LoadStill returns the first page of path. PDF pages are rasterized at dpi.
func LoadStill(path string, dpi int) (image.Image, error) {
	src, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	if src.PageCount() == 0 {
		return nil, errs.Decode(stage, "document has no pages", nil).With("path", path)
	}
	w, h, err := src.Dimensions(0, dpi)
	if err != nil {
		return nil, err
	}
	if int64(w)*int64(h) > MaxPixels {
		return nil, errs.Validation("image", path, fmt.Sprintf("%dx%d exceeds %d pixels", w, h, MaxPixels)).
			With("width", w).With("height", h)
	}
	img, err := src.Render(0, dpi)
	if err != nil {
		return nil, err
	}
	if b := img.Bounds(); b.Empty() {
		return nil, errs.Decode(stage, "empty image", nil).With("path", path)
	}
	return img, nil
}
