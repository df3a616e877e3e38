package renderer

import (
	"fmt"
	"image"

	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
)

// Resizer scales src to exactly w×h pixels
type Resizer interface {
	Resize(src image.Image, w, h int) *image.RGBA
}

// ScalerResizer uses one of the golang.org/x/image/draw interpolators
type ScalerResizer struct {
	Scaler draw.Scaler
}

func (r ScalerResizer) Resize(src image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	r.Scaler.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// NfntResizer uses github.com/nfnt/resize bilinear interpolation
type NfntResizer struct{}

func (NfntResizer) Resize(src image.Image, w, h int) *image.RGBA {
	out := resize.Resize(uint(w), uint(h), src, resize.Bilinear)
	if rgba, ok := out.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	return toRGBA(out)
}

// NewResizer creates a resizer based on the specified name
func NewResizer(name string) (Resizer, error) {
	switch name {
	case "bilinear", "":
		return ScalerResizer{Scaler: draw.BiLinear}, nil
	case "approx-bilinear":
		return ScalerResizer{Scaler: draw.ApproxBiLinear}, nil
	case "nfnt":
		return NfntResizer{}, nil
	default:
		return nil, fmt.Errorf("unknown resampler: %s", name)
	}
}

// toRGBA copies img into a new RGBA anchored at the origin
func toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
