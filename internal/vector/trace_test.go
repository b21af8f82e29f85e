package vector

import (
	"bytes"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/IRedDragonICY/openloveimage-engine/pkg/schema"
)

// twoColorImage draws a red square centered on a white field.
func twoColorImage(t *testing.T, size int) *image.NRGBA {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for x := 0; x < size; x++ {
		for y := 0; y < size; y++ {
			if x >= size/4 && x < 3*size/4 && y >= size/4 && y < 3*size/4 {
				img.Set(x, y, color.NRGBA{R: 255, A: 255})
			} else {
				img.Set(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
			}
		}
	}
	return img
}

func TestTraceProducesPaths(t *testing.T) {
	doc, err := Trace(twoColorImage(t, 64), &schema.VectorOptions{Style: schema.VectorSimple})
	if err != nil {
		t.Fatalf("Trace returned error: %v", err)
	}
	s := string(doc)
	if !strings.HasPrefix(s, "<svg ") {
		t.Fatalf("document does not start with an svg element: %.60s", s)
	}
	if !strings.Contains(s, `viewBox="0 0 64 64"`) {
		t.Fatalf("missing viewBox for the traced surface: %.120s", s)
	}
	if strings.Count(s, "<path ") < 2 {
		t.Fatalf("expected at least two traced color regions:\n%s", s)
	}
}

func TestTraceDownsamplesLargeSources(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2048, 1024))
	for x := 0; x < 2048; x++ {
		for y := 0; y < 1024; y++ {
			img.Set(x, y, color.NRGBA{B: 200, A: 255})
		}
	}

	doc, err := Trace(img, nil)
	if err != nil {
		t.Fatalf("Trace returned error: %v", err)
	}
	s := string(doc)
	if !strings.Contains(s, `viewBox="0 0 1024 512"`) {
		t.Fatalf("expected downsampled viewBox, got: %.120s", s)
	}
	if !strings.Contains(s, `width="2048" height="1024"`) {
		t.Fatalf("expected original dimensions on the root element: %.120s", s)
	}
}

func TestTraceDeterministic(t *testing.T) {
	img := twoColorImage(t, 48)
	a, err := Trace(img, nil)
	if err != nil {
		t.Fatalf("first trace: %v", err)
	}
	b, err := Trace(img, nil)
	if err != nil {
		t.Fatalf("second trace: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("tracing the same input twice produced different documents")
	}
}

func TestConvertFallsBackOnDegenerateInput(t *testing.T) {
	// A 1x1 source yields too few boundary points for any preset, so the
	// trace comes back empty and Convert must recover with the
	// embedded-raster document.
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.NRGBA{R: 9, A: 255})

	doc, err := Convert(img, &schema.VectorOptions{Style: schema.VectorSimple}, 80)
	if err != nil {
		t.Fatalf("Convert returned error: %v", err)
	}
	s := string(doc)
	if !strings.Contains(s, "data:image/jpeg;base64,") {
		t.Fatalf("expected embedded-raster fallback document, got:\n%.200s", s)
	}
}

func TestFallbackEmbedsRaster(t *testing.T) {
	doc, err := Fallback(twoColorImage(t, 16), 80)
	if err != nil {
		t.Fatalf("Fallback returned error: %v", err)
	}
	s := string(doc)
	if !strings.Contains(s, `width="16" height="16"`) {
		t.Fatalf("fallback lost dimensions: %.120s", s)
	}
	if !strings.Contains(s, "data:image/jpeg;base64,") {
		t.Fatalf("fallback missing embedded bitmap: %.120s", s)
	}
}

func TestPresetTuples(t *testing.T) {
	simple := PresetFor(schema.VectorSimple)
	detailed := PresetFor(schema.VectorDetailed)
	if simple.Colors >= detailed.Colors {
		t.Fatalf("simple should use fewer colors than detailed: %d vs %d", simple.Colors, detailed.Colors)
	}
	if simple.PathOmit <= detailed.PathOmit {
		t.Fatalf("simple should omit more aggressively: %d vs %d", simple.PathOmit, detailed.PathOmit)
	}
	if PresetFor(schema.VectorArtistic).Blur <= 0 {
		t.Fatalf("artistic preset should carry a pre-trace blur")
	}
	if PresetFor("unknown") != PresetFor(schema.VectorBalanced) {
		t.Fatalf("unknown style should fall back to balanced")
	}
}

func TestPresetOverrides(t *testing.T) {
	p := PresetFor(schema.VectorBalanced).apply(&schema.VectorOptions{Colors: 3, Precision: 2.5})
	if p.Colors != 3 {
		t.Fatalf("color override not applied: %d", p.Colors)
	}
	if p.LineTol != 2.5 || p.CurveTol != 2.5 {
		t.Fatalf("precision override not applied: %g/%g", p.LineTol, p.CurveTol)
	}
}
