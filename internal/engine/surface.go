package engine

import "image"

// SurfacePool recycles a single rendering surface between sequential
// raster operations. Execution is strictly sequential, so no locking is
// needed; the surface is fully cleared and resized before each reuse so no
// stale pixels leak between jobs.
type SurfacePool struct {
	buf []uint8
}

// NewSurfacePool returns an empty pool; the backing buffer grows on first
// acquire.
func NewSurfacePool() *SurfacePool { return &SurfacePool{} }

// Acquire returns a zeroed NRGBA surface of the requested size, reusing
// the backing buffer when it has capacity.
func (p *SurfacePool) Acquire(w, h int) *image.NRGBA {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	need := 4 * w * h
	if cap(p.buf) < need {
		p.buf = make([]uint8, need)
	}
	p.buf = p.buf[:need]
	for i := range p.buf {
		p.buf[i] = 0
	}
	return &image.NRGBA{
		Pix:    p.buf,
		Stride: 4 * w,
		Rect:   image.Rect(0, 0, w, h),
	}
}
