package geometry

import (
	"errors"
	"math"
	"testing"

	"github.com/IRedDragonICY/openloveimage-engine/pkg/schema"
)

func TestComputeResizeLockedAspect(t *testing.T) {
	w, h, err := ComputeResize(4000, 3000, 1000, 0, true)
	if err != nil {
		t.Fatalf("ComputeResize returned error: %v", err)
	}
	if w != 1000 || h != 750 {
		t.Fatalf("unexpected size: got %dx%d, want 1000x750", w, h)
	}
}

func TestComputeResizeNeverUpscales(t *testing.T) {
	w, h, err := ComputeResize(640, 480, 2000, 2000, true)
	if err != nil {
		t.Fatalf("ComputeResize returned error: %v", err)
	}
	if w != 640 || h != 480 {
		t.Fatalf("expected source size back, got %dx%d", w, h)
	}
}

func TestComputeResizeUnlockedClampsIndependently(t *testing.T) {
	w, h, err := ComputeResize(4000, 3000, 1000, 2900, false)
	if err != nil {
		t.Fatalf("ComputeResize returned error: %v", err)
	}
	if w != 1000 || h != 2900 {
		t.Fatalf("unexpected size: got %dx%d, want 1000x2900", w, h)
	}
}

func TestComputeResizeNoBounds(t *testing.T) {
	w, h, err := ComputeResize(123, 456, 0, 0, true)
	if err != nil {
		t.Fatalf("ComputeResize returned error: %v", err)
	}
	if w != 123 || h != 456 {
		t.Fatalf("unexpected size: got %dx%d", w, h)
	}
}

func TestComputeResizeRejectsBadBounds(t *testing.T) {
	if _, _, err := ComputeResize(100, 100, -1, 0, true); !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("expected ErrInvalidSettings, got %v", err)
	}
	if _, _, err := ComputeResize(0, 100, 10, 10, true); !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("expected ErrInvalidSettings for zero source, got %v", err)
	}
}

func TestComputeCropFitCentered(t *testing.T) {
	r, err := ComputeCrop(800, 800, 16.0/9.0, schema.CropFit)
	if err != nil {
		t.Fatalf("ComputeCrop returned error: %v", err)
	}
	if r.W != 800 || r.H != 450 {
		t.Fatalf("unexpected rect size: got %gx%g, want 800x450", r.W, r.H)
	}
	if r.X != 0 || r.Y != 175 {
		t.Fatalf("unexpected origin: got (%g,%g), want (0,175)", r.X, r.Y)
	}
}

func TestComputeCropFillMayOverhang(t *testing.T) {
	r, err := ComputeCrop(1000, 400, 1.0, schema.CropFill)
	if err != nil {
		t.Fatalf("ComputeCrop returned error: %v", err)
	}
	if r.W != 1000 || r.H != 1000 {
		t.Fatalf("unexpected rect size: got %gx%g, want 1000x1000", r.W, r.H)
	}
	if r.Y >= 0 {
		t.Fatalf("expected negative y origin for overhanging fill, got %g", r.Y)
	}
}

func TestComputeCropExtendExceedsBothAxes(t *testing.T) {
	r, err := ComputeCrop(500, 500, 1.0, schema.CropExtend)
	if err != nil {
		t.Fatalf("ComputeCrop returned error: %v", err)
	}
	if r.W <= 500 || r.H <= 500 {
		t.Fatalf("extend should exceed source on both axes, got %gx%g", r.W, r.H)
	}
	if r.X >= 0 || r.Y >= 0 {
		t.Fatalf("extend should center with negative origins, got (%g,%g)", r.X, r.Y)
	}
}

func TestComputeCropAspectHeldAcrossModes(t *testing.T) {
	aspects := []float64{1, 4.0 / 3.0, 16.0 / 9.0, 9.0 / 16.0, 0.5}
	modes := []schema.CropMode{schema.CropFit, schema.CropFill, schema.CropExtend}
	for _, mode := range modes {
		for _, aspect := range aspects {
			r, err := ComputeCrop(1234, 777, aspect, mode)
			if err != nil {
				t.Fatalf("mode=%s aspect=%g: %v", mode, aspect, err)
			}
			if got := r.W / r.H; math.Abs(got-aspect) > 1e-9 {
				t.Fatalf("mode=%s aspect=%g: rect aspect %g", mode, aspect, got)
			}
		}
	}
}

func TestComputeCropRejectsBadInput(t *testing.T) {
	if _, err := ComputeCrop(100, 100, 0, schema.CropFit); !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("expected ErrInvalidSettings for zero aspect, got %v", err)
	}
	if _, err := ComputeCrop(100, 100, 1, schema.CropMode("stretch")); !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("expected ErrInvalidSettings for unknown mode, got %v", err)
	}
}

func TestRectPercent(t *testing.T) {
	r := Rect{X: 0, Y: 175, W: 800, H: 450}
	p := r.Percent(800, 800)
	if p.W != 100 || math.Abs(p.H-56.25) > 1e-9 {
		t.Fatalf("unexpected percent form: %+v", p)
	}
	if math.Abs(p.Y-21.875) > 1e-9 {
		t.Fatalf("unexpected percent y: %g", p.Y)
	}
}
