// Package geometry computes resize dimensions and crop rectangles from a
// source size plus user constraints. It is pure: no pixels are touched here.
package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/IRedDragonICY/openloveimage-engine/pkg/schema"
)

// ErrInvalidSettings indicates malformed resize or crop bounds. It is
// raised before any decode work happens.
var ErrInvalidSettings = errors.New("geometry: invalid settings")

// Rect is a crop rectangle in source pixel coordinates. For the fill and
// extend modes X/Y may be negative and W/H may exceed the source bounds;
// downstream rendering pads the out-of-source area with the configured
// background instead of clipping.
type Rect struct {
	X, Y float64
	W, H float64
}

// Percent returns the rectangle in source-relative percentage form, used
// by UI overlays. srcW/srcH must be the dimensions Rect was computed from.
func (r Rect) Percent(srcW, srcH int) Rect {
	return Rect{
		X: r.X / float64(srcW) * 100,
		Y: r.Y / float64(srcH) * 100,
		W: r.W / float64(srcW) * 100,
		H: r.H / float64(srcH) * 100,
	}
}

// Empty reports a degenerate rectangle.
func (r Rect) Empty() bool { return r.W < 1 || r.H < 1 }

// extendFactor is the headroom multiplier for the extend crop mode.
const extendFactor = 1.2

// ComputeResize resolves the output dimensions for a source image under
// optional max-width/max-height bounds. A bound of 0 means unset. With
// lockAspect the image is scaled down (never up) to fit inside the box,
// the larger-overflow axis picking the factor; without it each axis is
// clamped independently, which may distort the ratio.
func ComputeResize(srcW, srcH, maxW, maxH int, lockAspect bool) (int, int, error) {
	if srcW <= 0 || srcH <= 0 {
		return 0, 0, fmt.Errorf("%w: source %dx%d", ErrInvalidSettings, srcW, srcH)
	}
	if maxW < 0 || maxH < 0 {
		return 0, 0, fmt.Errorf("%w: bounds %dx%d", ErrInvalidSettings, maxW, maxH)
	}
	if maxW == 0 && maxH == 0 {
		return srcW, srcH, nil
	}

	if !lockAspect {
		w, h := srcW, srcH
		if maxW > 0 && w > maxW {
			w = maxW
		}
		if maxH > 0 && h > maxH {
			h = maxH
		}
		return w, h, nil
	}

	scale := 1.0
	if maxW > 0 {
		if s := float64(maxW) / float64(srcW); s < scale {
			scale = s
		}
	}
	if maxH > 0 {
		if s := float64(maxH) / float64(srcH); s < scale {
			scale = s
		}
	}
	if scale >= 1 {
		return srcW, srcH, nil
	}
	w := int(math.Round(float64(srcW) * scale))
	h := int(math.Round(float64(srcH) * scale))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h, nil
}

// ComputeCrop resolves a centered rectangle of the target aspect ratio
// against the source bounds.
//
//   - fit: the largest target-aspect rectangle fully inside the source.
//   - fill: basis = max(srcW, srcH); the rectangle may overhang the source
//     on the cross axis, maximizing captured resolution.
//   - extend: fill with the basis multiplied by 1.2, guaranteeing headroom
//     on both axes.
func ComputeCrop(srcW, srcH int, targetAspect float64, mode schema.CropMode) (Rect, error) {
	if srcW <= 0 || srcH <= 0 {
		return Rect{}, fmt.Errorf("%w: source %dx%d", ErrInvalidSettings, srcW, srcH)
	}
	if targetAspect <= 0 || math.IsNaN(targetAspect) || math.IsInf(targetAspect, 0) {
		return Rect{}, fmt.Errorf("%w: aspect %v", ErrInvalidSettings, targetAspect)
	}

	var w, h float64
	switch mode {
	case schema.CropFit:
		srcAspect := float64(srcW) / float64(srcH)
		if srcAspect > targetAspect {
			h = float64(srcH)
			w = h * targetAspect
		} else {
			w = float64(srcW)
			h = w / targetAspect
		}
	case schema.CropFill, schema.CropExtend:
		basis := float64(srcW)
		if srcH > srcW {
			basis = float64(srcH)
		}
		if mode == schema.CropExtend {
			basis *= extendFactor
		}
		if targetAspect >= 1 {
			w = basis
			h = w / targetAspect
		} else {
			h = basis
			w = h * targetAspect
		}
	default:
		return Rect{}, fmt.Errorf("%w: crop mode %q", ErrInvalidSettings, mode)
	}

	return Rect{
		X: (float64(srcW) - w) / 2,
		Y: (float64(srcH) - h) / 2,
		W: w,
		H: h,
	}, nil
}
