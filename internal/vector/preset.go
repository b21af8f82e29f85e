package vector

import "github.com/IRedDragonICY/openloveimage-engine/pkg/schema"

// Preset bundles the tracing parameters behind a vectorization style.
type Preset struct {
	// Colors is the color-cluster count for quantization.
	Colors int
	// PathOmit drops contours with fewer boundary points than this.
	PathOmit int
	// LineTol is the polyline simplification tolerance in pixels.
	LineTol float64
	// CurveTol is the curve-fit tolerance; values under 1.5 enable
	// quadratic smoothing of the simplified polylines.
	CurveTol float64
	// MinAreaRatio drops color regions smaller than this share of the
	// traced surface.
	MinAreaRatio float64
	// Blur is an optional pre-trace gaussian radius for stylized output.
	Blur float64
}

// PresetFor maps a style tag to its parameter tuple. Unknown styles get
// the balanced preset.
func PresetFor(style schema.VectorStyle) Preset {
	switch style {
	case schema.VectorSimple:
		return Preset{Colors: 4, PathOmit: 12, LineTol: 1.5, CurveTol: 1.5, MinAreaRatio: 0.02}
	case schema.VectorDetailed:
		return Preset{Colors: 16, PathOmit: 4, LineTol: 0.5, CurveTol: 0.5, MinAreaRatio: 0.001}
	case schema.VectorArtistic:
		return Preset{Colors: 6, PathOmit: 8, LineTol: 1.0, CurveTol: 1.0, MinAreaRatio: 0.01, Blur: 2.0}
	default:
		return Preset{Colors: 8, PathOmit: 8, LineTol: 1.0, CurveTol: 1.0, MinAreaRatio: 0.01}
	}
}

// apply folds user overrides into the preset.
func (p Preset) apply(opts *schema.VectorOptions) Preset {
	if opts == nil {
		return p
	}
	if opts.Colors > 1 {
		p.Colors = opts.Colors
	}
	if opts.Precision > 0 {
		p.LineTol = opts.Precision
		p.CurveTol = opts.Precision
	}
	return p
}
