package renderer

import (
	"context"
	"image"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/melody2video/internal/animator"
)

// Sequence is a lazy, finite, non-restartable stream of frames. Frames are
// rendered in parallel windows and handed out in index order. A frame
// returned by Next is valid until the following call to Next or Close.
type Sequence struct {
	comp    *Compositor
	scales  []animator.Scale
	window  int
	workers int

	buf   []*image.RGBA
	start int // frame index of buf[0]
	next  int
	prev  *image.RGBA
}

func NewSequence(c *Compositor, scales []animator.Scale, window, workers int) *Sequence {
	return &Sequence{
		comp:    c,
		scales:  scales,
		window:  max(1, window),
		workers: max(1, workers),
	}
}

// Len is the total number of frames
func (s *Sequence) Len() int {
	return len(s.scales)
}

// Next returns the next frame and its index, or io.EOF after the last one
func (s *Sequence) Next(ctx context.Context) (int, *image.RGBA, error) {
	s.recycle()
	if s.next >= len(s.scales) {
		return s.next, nil, io.EOF
	}

	if s.next >= s.start+len(s.buf) {
		if err := s.fill(ctx); err != nil {
			return s.next, nil, err
		}
	}

	i := s.next
	frame := s.buf[i-s.start]
	s.buf[i-s.start] = nil
	s.prev = frame
	s.next++
	return i, frame, nil
}

// fill renders the window starting at s.next
func (s *Sequence) fill(ctx context.Context) error {
	start := s.next
	end := min(start+s.window, len(s.scales))
	buf := make([]*image.RGBA, end-start)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := start; i < end; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			frame, err := s.comp.Render(s.scales[i])
			if err != nil {
				return err
			}
			buf[i-start] = frame
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, f := range buf {
			if f != nil {
				s.comp.Release(f)
			}
		}
		return err
	}

	s.buf, s.start = buf, start
	return nil
}

func (s *Sequence) recycle() {
	if s.prev != nil {
		s.comp.Release(s.prev)
		s.prev = nil
	}
}

// Close returns any buffered frames to the pool
func (s *Sequence) Close() {
	s.recycle()
	for i, f := range s.buf {
		if f != nil {
			s.comp.Release(f)
			s.buf[i] = nil
		}
	}
	s.next = len(s.scales)
}

// WindowSize picks how many frames to render ahead: twice the worker count,
// capped so the window uses at most a quarter of the available memory.
func WindowSize(frameBytes int, workers int, available uint64) int {
	n := max(1, 2*workers)
	if frameBytes <= 0 || available == 0 {
		return n
	}
	limit := int(available / 4 / uint64(frameBytes))
	return max(1, min(n, limit))
}
