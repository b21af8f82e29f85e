package dispatch

import (
	"errors"
	"testing"

	"github.com/IRedDragonICY/openloveimage-engine/pkg/schema"
)

func TestPlanVectorPassthrough(t *testing.T) {
	inv, err := Plan(schema.FormatSVG, schema.FormatSVG, schema.ConversionSettings{})
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if len(inv.Stages) != 1 || inv.Stages[0] != StagePassthrough {
		t.Fatalf("expected pure passthrough, got %v", inv.Stages)
	}
}

func TestPlanVectorWithGeometryChangeRetraces(t *testing.T) {
	settings := schema.ConversionSettings{MaxWidth: 100, LockAspect: true}
	inv, err := Plan(schema.FormatSVG, schema.FormatSVG, settings)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if inv.Has(StagePassthrough) {
		t.Fatalf("geometry change must not pass through: %v", inv.Stages)
	}
	if !inv.Has(StageTrace) {
		t.Fatalf("expected trace stage, got %v", inv.Stages)
	}
}

func TestPlanRasterToVector(t *testing.T) {
	inv, err := Plan(schema.FormatJPEG, schema.FormatSVG, schema.ConversionSettings{})
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	want := []Stage{StageDecode, StageTransform, StageTrace}
	if len(inv.Stages) != len(want) {
		t.Fatalf("unexpected stages: %v", inv.Stages)
	}
	for i, s := range want {
		if inv.Stages[i] != s {
			t.Fatalf("stage %d: got %s want %s", i, inv.Stages[i], s)
		}
	}
}

func TestPlanIconAndDocumentTargets(t *testing.T) {
	inv, err := Plan(schema.FormatPNG, schema.FormatICO, schema.ConversionSettings{})
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if !inv.Has(StagePackIcon) {
		t.Fatalf("ico target should package icons: %v", inv.Stages)
	}

	inv, err = Plan(schema.FormatSVG, schema.FormatPDF, schema.ConversionSettings{})
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if !inv.Has(StagePackDocument) {
		t.Fatalf("pdf target should package a document: %v", inv.Stages)
	}
}

func TestPlanFailsFastOnHEICOutput(t *testing.T) {
	_, err := Plan(schema.FormatJPEG, schema.FormatHEIC, schema.ConversionSettings{})
	if !errors.Is(err, ErrUnsupportedConversion) {
		t.Fatalf("expected ErrUnsupportedConversion, got %v", err)
	}
}

func TestPlanRejectsContainerSources(t *testing.T) {
	if _, err := Plan(schema.FormatICO, schema.FormatPNG, schema.ConversionSettings{}); !errors.Is(err, ErrUnsupportedConversion) {
		t.Fatalf("ico source: expected ErrUnsupportedConversion, got %v", err)
	}
	if _, err := Plan(schema.FormatPDF, schema.FormatPNG, schema.ConversionSettings{}); !errors.Is(err, ErrUnsupportedConversion) {
		t.Fatalf("pdf source: expected ErrUnsupportedConversion, got %v", err)
	}
}

// TestPlanTotal walks the whole format matrix: every pair must yield
// exactly one invocation or an unsupported-conversion failure, never both
// and never neither.
func TestPlanTotal(t *testing.T) {
	sources := []schema.Format{
		schema.FormatJPEG, schema.FormatPNG, schema.FormatGIF, schema.FormatBMP,
		schema.FormatWebP, schema.FormatTIFF, schema.FormatSVG, schema.FormatHEIC,
		schema.FormatICO, schema.FormatPDF, schema.FormatUnknown,
	}
	targets := append([]schema.Format{}, sources...)

	for _, in := range sources {
		for _, out := range targets {
			inv, err := Plan(in, out, schema.ConversionSettings{})
			if err == nil && len(inv.Stages) == 0 {
				t.Fatalf("(%s -> %s): empty invocation without error", in, out)
			}
			if err != nil && !errors.Is(err, ErrUnsupportedConversion) {
				t.Fatalf("(%s -> %s): unexpected error kind: %v", in, out, err)
			}
		}
	}
}
