package raster

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/IRedDragonICY/openloveimage-engine/internal/geometry"
)

// TransformOp describes one pass over a decoded source: crop (possibly
// overhanging the source bounds), rotation, flips and a final scale to the
// output surface size.
type TransformOp struct {
	// Crop is the source-space rectangle to capture. The zero value means
	// the full source. Out-of-source area is padded with Background.
	Crop geometry.Rect
	// Rotation in degrees, clockwise.
	Rotation float64
	FlipH    bool
	FlipV    bool
	// OutW/OutH size the output surface. Zero means keep the captured size.
	OutW, OutH int
	// Background fills padding and rotation wedges. Nil means transparent.
	Background color.Color
}

// Transform captures the crop rectangle from src, applies rotation and
// flips, and scales the result onto a surface of the target size. The
// returned buffer is always a fresh NRGBA; src is never mutated.
func Transform(src image.Image, op TransformOp) (*image.NRGBA, error) {
	bounds := src.Bounds()
	rect := op.Crop
	identity := rect == (geometry.Rect{})
	if identity {
		rect = geometry.Rect{W: float64(bounds.Dx()), H: float64(bounds.Dy())}
	}
	if rect.Empty() {
		return nil, fmt.Errorf("%w: %gx%g", ErrInvalidCrop, rect.W, rect.H)
	}

	bg := op.Background
	transparent := bg == nil
	if transparent {
		bg = color.NRGBA{}
	}

	captured := capture(src, rect, bg)

	if rot := normalizeAngle(op.Rotation); rot != 0 {
		// imaging rotates counter-clockwise; the engine's convention is
		// clockwise.
		switch rot {
		case 90:
			captured = imaging.Rotate270(captured)
		case 180:
			captured = imaging.Rotate180(captured)
		case 270:
			captured = imaging.Rotate90(captured)
		default:
			captured = imaging.Rotate(captured, -rot, bg)
		}
	}

	if op.FlipH {
		captured = imaging.FlipH(captured)
	}
	if op.FlipV {
		captured = imaging.FlipV(captured)
	}

	outW, outH := op.OutW, op.OutH
	cb := captured.Bounds()
	if outW <= 0 {
		outW = cb.Dx()
	}
	if outH <= 0 {
		outH = cb.Dy()
	}
	if outW != cb.Dx() || outH != cb.Dy() {
		captured = imaging.Resize(captured, outW, outH, imaging.Lanczos)
	}
	return captured, nil
}

// capture copies the rect portion of src onto a background-filled canvas of
// the rect's size. Overhanging area stays background.
func capture(src image.Image, rect geometry.Rect, bg color.Color) *image.NRGBA {
	w := int(math.Round(rect.W))
	h := int(math.Round(rect.H))
	x := int(math.Round(rect.X))
	y := int(math.Round(rect.Y))

	canvas := imaging.New(w, h, bg)

	region := image.Rect(x, y, x+w, y+h).Intersect(src.Bounds())
	if region.Empty() {
		return canvas
	}
	piece := imaging.Crop(src, region)
	return imaging.Paste(canvas, piece, image.Pt(region.Min.X-x, region.Min.Y-y))
}

func normalizeAngle(deg float64) float64 {
	rot := math.Mod(deg, 360)
	if rot < 0 {
		rot += 360
	}
	return rot
}

// ParseHexColor resolves a "#rrggbb" (or "#rgb") string to an opaque color.
// Empty or malformed input yields white, the converter's historic default
// background for formats without an alpha channel.
func ParseHexColor(s string) color.NRGBA {
	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(s) {
	case 3:
		var r, g, b byte
		if _, err := fmt.Sscanf(s, "%1x%1x%1x", &r, &g, &b); err != nil {
			return white
		}
		return color.NRGBA{R: r * 17, G: g * 17, B: b * 17, A: 255}
	case 6:
		var r, g, b byte
		if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
			return white
		}
		return color.NRGBA{R: r, G: g, B: b, A: 255}
	default:
		return white
	}
}
