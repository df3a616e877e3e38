// Package renderer turns per-frame scales into canvas frames
package renderer

import (
	"image"
	"math"

	"golang.org/x/image/draw"

	"github.com/ivlev/melody2video/internal/animator"
	"github.com/ivlev/melody2video/internal/errs"
	"github.com/ivlev/melody2video/internal/system"
)

const stage = "composite"

// Compositor draws the scaled image onto a fixed canvas the size of the
// original, anchored at the bottom-right corner.
type Compositor struct {
	src     *image.RGBA
	canvas  image.Rectangle
	resizer Resizer
	pool    *system.ImagePool
}

func NewCompositor(src image.Image, r Resizer) *Compositor {
	rgba := toRGBA(src)
	return &Compositor{
		src:     rgba,
		canvas:  rgba.Bounds(),
		resizer: r,
		pool:    system.DefaultImagePool(),
	}
}

// Size returns the canvas dimensions
func (c *Compositor) Size() (int, int) {
	return c.canvas.Dx(), c.canvas.Dy()
}

// ScaledSize rounds w×h scaled per axis
func ScaledSize(w, h int, s animator.Scale) (int, int) {
	return int(math.Round(float64(w) * s.X)), int(math.Round(float64(h) * s.Y))
}

// Render produces one canvas frame. The frame comes from the image pool;
// hand it back with Release once consumed.
func (c *Compositor) Render(s animator.Scale) (*image.RGBA, error) {
	w, h := c.Size()
	nw, nh := ScaledSize(w, h, s)
	if nw <= 0 || nh <= 0 {
		return nil, errs.Compute(stage, "non-positive scaled size", nil).
			With("width", nw).With("height", nh).With("scale_x", s.X).With("scale_y", s.Y)
	}

	scaled := c.resizer.Resize(c.src, nw, nh)

	frame := c.pool.Get(c.canvas)
	clear(frame.Pix)

	// negative offsets crop the scaled image at the top-left
	offset := image.Pt(w-nw, h-nh)
	dr := scaled.Bounds().Add(offset).Intersect(c.canvas)
	if !dr.Empty() {
		draw.Draw(frame, dr, scaled, dr.Min.Sub(offset), draw.Src)
	}
	return frame, nil
}

// Release returns a frame obtained from Render to the pool
func (c *Compositor) Release(frame *image.RGBA) {
	c.pool.Put(frame)
}
