package vector

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"strings"

	"github.com/IRedDragonICY/openloveimage-engine/pkg/schema"
)

// Convert traces img into an SVG document, falling back to a valid
// embedded-raster document when tracing fails or comes back empty. Callers
// never see a vectorization failure if a raster encode was possible.
func Convert(img image.Image, opts *schema.VectorOptions, quality int) ([]byte, error) {
	doc, err := Trace(img, opts)
	if err == nil && len(doc) > 0 {
		return doc, nil
	}
	return Fallback(img, quality)
}

// renderSVG emits the traced regions as path elements. The viewBox matches
// the traced pixel surface; width/height restore the original dimensions so
// downsampled traces scale back to the source aspect.
func renderSVG(regions []region, traceW, traceH, origW, origH int) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`,
		origW, origH, traceW, traceH)
	b.WriteByte('\n')
	for _, r := range regions {
		fmt.Fprintf(&b, `<path fill="#%02x%02x%02x" d="%s"/>`, r.fill.R, r.fill.G, r.fill.B, pathData(r))
		b.WriteByte('\n')
	}
	b.WriteString("</svg>\n")
	return []byte(b.String())
}

// pathData renders a closed region either as straight segments or with
// midpoint quadratic smoothing, per the preset's curve-fit tolerance.
func pathData(r region) string {
	pts := r.points
	var b strings.Builder
	if !r.smooth || len(pts) < 3 {
		fmt.Fprintf(&b, "M%s %s", coord(pts[0].X), coord(pts[0].Y))
		for _, p := range pts[1:] {
			fmt.Fprintf(&b, " L%s %s", coord(p.X), coord(p.Y))
		}
		b.WriteString(" Z")
		return b.String()
	}

	n := len(pts)
	mid := func(i int) point {
		a, c := pts[i%n], pts[(i+1)%n]
		return point{(a.X + c.X) / 2, (a.Y + c.Y) / 2}
	}
	m0 := mid(n - 1)
	fmt.Fprintf(&b, "M%s %s", coord(m0.X), coord(m0.Y))
	for i := 0; i < n; i++ {
		m := mid(i)
		fmt.Fprintf(&b, " Q%s %s %s %s", coord(pts[i].X), coord(pts[i].Y), coord(m.X), coord(m.Y))
	}
	b.WriteString(" Z")
	return b.String()
}

func coord(v float64) string {
	s := fmt.Sprintf("%.1f", v)
	return strings.TrimSuffix(s, ".0")
}

// fallbackQuality caps the JPEG quality of the embedded raster: the
// fallback optimizes for a document that always loads, not fidelity.
const fallbackQuality = 60

// Fallback builds a guaranteed-valid SVG that embeds the source raster as
// a single bitmap node at reduced quality.
func Fallback(img image.Image, quality int) ([]byte, error) {
	if img == nil {
		return nil, fmt.Errorf("vector: nil image in fallback")
	}
	if quality <= 0 || quality > fallbackQuality {
		quality = fallbackQuality
	}

	var jpg bytes.Buffer
	if err := jpeg.Encode(&jpg, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("fallback encode: %w", err)
	}

	b := img.Bounds()
	var doc strings.Builder
	fmt.Fprintf(&doc, `<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" width="%d" height="%d" viewBox="0 0 %d %d">`,
		b.Dx(), b.Dy(), b.Dx(), b.Dy())
	doc.WriteByte('\n')
	fmt.Fprintf(&doc, `<image width="%d" height="%d" xlink:href="data:image/jpeg;base64,%s"/>`,
		b.Dx(), b.Dy(), base64.StdEncoding.EncodeToString(jpg.Bytes()))
	doc.WriteString("\n</svg>\n")
	return []byte(doc.String()), nil
}
