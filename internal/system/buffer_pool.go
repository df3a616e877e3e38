package system

import (
	"image"
	"sync"
	"sync/atomic"
)

// ImagePool предоставляет механизмы повторного использования image.RGBA
// для снижения нагрузки на Garbage Collector (GC).
type ImagePool struct {
	pools     map[image.Rectangle]*sync.Pool
	mu        sync.RWMutex
	allocated atomic.Int64
}

var globalPool = NewImagePool()

func NewImagePool() *ImagePool {
	return &ImagePool{pools: make(map[image.Rectangle]*sync.Pool)}
}

// DefaultImagePool is the process-wide pool
func DefaultImagePool() *ImagePool {
	return globalPool
}

// Get возвращает экземпляр из пула или создает новый. Содержимое не очищается.
func (p *ImagePool) Get(rect image.Rectangle) *image.RGBA {
	p.mu.RLock()
	pool, exists := p.pools[rect]
	p.mu.RUnlock()

	if !exists {
		p.mu.Lock()
		// Double check
		pool, exists = p.pools[rect]
		if !exists {
			pool = &sync.Pool{
				New: func() interface{} {
					p.allocated.Add(1)
					return image.NewRGBA(rect)
				},
			}
			p.pools[rect] = pool
		}
		p.mu.Unlock()
	}

	return pool.Get().(*image.RGBA)
}

func (p *ImagePool) Put(img *image.RGBA) {
	if img == nil {
		return
	}
	p.mu.RLock()
	pool, exists := p.pools[img.Rect]
	p.mu.RUnlock()

	if exists {
		pool.Put(img)
	}
}

// Allocated reports how many images the pool has created so far
func (p *ImagePool) Allocated() int64 {
	return p.allocated.Load()
}
