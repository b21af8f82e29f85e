// Package vector converts a rasterized pixel buffer into an SVG document
// using color quantization and contour-fitting heuristics. Tracing can
// legitimately fail on degenerate input; Convert guarantees a valid
// document by falling back to an embedded-raster SVG.
package vector

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/disintegration/imaging"

	"github.com/IRedDragonICY/openloveimage-engine/pkg/schema"
)

// maxTraceEdge caps the traced surface: tracing cost grows superlinearly
// with pixel count, so larger sources are downsampled proportionally first.
const maxTraceEdge = 1024

var errEmptyTrace = errors.New("vector: trace produced an empty document")

type point struct{ X, Y float64 }

// region is one traced color area.
type region struct {
	fill   color.NRGBA
	points []point
	area   int
	smooth bool
}

// Trace quantizes and contour-traces img into an SVG document. It returns
// an error on degenerate input (callers recover via Convert).
func Trace(img image.Image, opts *schema.VectorOptions) ([]byte, error) {
	if img == nil {
		return nil, errors.New("vector: nil image")
	}
	b := img.Bounds()
	origW, origH := b.Dx(), b.Dy()
	if origW < 1 || origH < 1 {
		return nil, fmt.Errorf("vector: degenerate source %dx%d", origW, origH)
	}

	style := schema.VectorBalanced
	if opts != nil && opts.Style != "" {
		style = opts.Style
	}
	preset := PresetFor(style).apply(opts)

	work := imaging.Clone(img)
	if origW > maxTraceEdge || origH > maxTraceEdge {
		if origW >= origH {
			work = imaging.Resize(work, maxTraceEdge, 0, imaging.Lanczos)
		} else {
			work = imaging.Resize(work, 0, maxTraceEdge, imaging.Lanczos)
		}
	}
	if preset.Blur > 0 {
		work = imaging.Blur(work, preset.Blur)
	}

	wb := work.Bounds()
	w, h := wb.Dx(), wb.Dy()
	palette, assign := quantize(work, preset.Colors)

	regions := traceRegions(palette, assign, w, h, preset)
	if len(regions) == 0 {
		return nil, errEmptyTrace
	}

	// Larger areas paint first so small detail stays on top.
	sort.SliceStable(regions, func(i, j int) bool { return regions[i].area > regions[j].area })

	return renderSVG(regions, w, h, origW, origH), nil
}

// traceRegions walks every connected component of every palette color and
// fits its boundary, honoring the preset's omission thresholds.
func traceRegions(palette []color.NRGBA, assign []int, w, h int, preset Preset) []region {
	minArea := int(preset.MinAreaRatio * float64(w*h))
	labels := make([]int, w*h)
	for i := range labels {
		labels[i] = -1
	}

	var regions []region
	next := 0
	queue := make([]int, 0, 256)
	for start := 0; start < w*h; start++ {
		if labels[start] != -1 {
			continue
		}
		colorIdx := assign[start]
		id := next
		next++

		// Flood fill the 4-connected component.
		labels[start] = id
		queue = append(queue[:0], start)
		size := 0
		topLeft := start
		for len(queue) > 0 {
			i := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			size++
			if i < topLeft {
				topLeft = i
			}
			x, y := i%w, i/w
			if x > 0 && labels[i-1] == -1 && assign[i-1] == colorIdx {
				labels[i-1] = id
				queue = append(queue, i-1)
			}
			if x < w-1 && labels[i+1] == -1 && assign[i+1] == colorIdx {
				labels[i+1] = id
				queue = append(queue, i+1)
			}
			if y > 0 && labels[i-w] == -1 && assign[i-w] == colorIdx {
				labels[i-w] = id
				queue = append(queue, i-w)
			}
			if y < h-1 && labels[i+w] == -1 && assign[i+w] == colorIdx {
				labels[i+w] = id
				queue = append(queue, i+w)
			}
		}

		if size < minArea {
			continue
		}

		inside := func(x, y int) bool {
			return x >= 0 && y >= 0 && x < w && y < h && labels[y*w+x] == id
		}
		contour := traceContour(inside, topLeft%w, topLeft/w, w, h)
		if len(contour) < preset.PathOmit || len(contour) < 3 {
			continue
		}

		simplified := simplify(contour, preset.LineTol)
		if len(simplified) < 3 {
			continue
		}
		regions = append(regions, region{
			fill:   palette[colorIdx],
			points: simplified,
			area:   size,
			smooth: preset.CurveTol < 1.5,
		})
	}
	return regions
}

// traceContour follows the outer boundary cracks of a component clockwise,
// keeping the filled region on the right of the walk. sx/sy is the
// component's topmost-leftmost pixel; the walk starts on its top edge.
func traceContour(inside func(x, y int) bool, sx, sy, w, h int) []point {
	const (
		right = iota
		down
		left
		up
	)

	x, y := sx, sy
	dir := right
	var pts []point
	maxSteps := 4 * (w + 2) * (h + 2)
	for step := 0; step < maxSteps; step++ {
		pts = append(pts, point{float64(x), float64(y)})
		switch dir {
		case right:
			x++
		case down:
			y++
		case left:
			x--
		case up:
			y--
		}
		if x == sx && y == sy {
			return pts
		}

		// Candidate order: right turn, straight, left turn. The consistent
		// tie-break keeps diagonal-touching regions from self-crossing.
		found := false
		for _, cand := range [3]int{(dir + 1) % 4, dir, (dir + 3) % 4} {
			var l, r bool
			switch cand {
			case right:
				l, r = inside(x, y-1), inside(x, y)
			case down:
				l, r = inside(x, y), inside(x-1, y)
			case left:
				l, r = inside(x-1, y), inside(x-1, y-1)
			case up:
				l, r = inside(x-1, y-1), inside(x, y-1)
			}
			if r && !l {
				dir = cand
				found = true
				break
			}
		}
		if !found {
			return nil
		}
	}
	return nil
}

// simplify runs Douglas-Peucker over a closed polygon with the given
// perpendicular-distance tolerance.
func simplify(pts []point, tol float64) []point {
	if len(pts) < 3 || tol <= 0 {
		return pts
	}
	closed := append(append([]point{}, pts...), pts[0])
	kept := douglasPeucker(closed, tol)
	// Drop the duplicated closing point.
	if len(kept) > 1 {
		kept = kept[:len(kept)-1]
	}
	return kept
}

func douglasPeucker(pts []point, tol float64) []point {
	if len(pts) < 3 {
		return pts
	}
	maxDist, maxIdx := 0.0, 0
	a, b := pts[0], pts[len(pts)-1]
	for i := 1; i < len(pts)-1; i++ {
		if d := perpDistance(pts[i], a, b); d > maxDist {
			maxDist, maxIdx = d, i
		}
	}
	if maxDist <= tol {
		return []point{a, b}
	}
	first := douglasPeucker(pts[:maxIdx+1], tol)
	rest := douglasPeucker(pts[maxIdx:], tol)
	return append(first[:len(first)-1], rest...)
}

func perpDistance(p, a, b point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	return math.Abs(dx*(a.Y-p.Y)-dy*(a.X-p.X)) / length
}
