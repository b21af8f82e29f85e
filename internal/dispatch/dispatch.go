// Package dispatch selects the pipeline stages for a conversion. The
// decision function is pure and total: every (input, output) pair maps to
// exactly one deterministic invocation or a fast failure.
package dispatch

import (
	"errors"
	"fmt"

	"github.com/IRedDragonICY/openloveimage-engine/pkg/schema"
)

// ErrUnsupportedConversion marks a target kind nothing in the stack can
// encode. It is raised before any decode work is attempted.
var ErrUnsupportedConversion = errors.New("dispatch: unsupported conversion")

// Stage is one coarse pipeline step. Stage boundaries double as the
// cancellation checkpoints of a running job.
type Stage string

const (
	// StagePassthrough copies source bytes untouched.
	StagePassthrough Stage = "passthrough"
	// StageDecode turns source bytes into a pixel buffer (rasterizing
	// vector sources).
	StageDecode Stage = "decode"
	// StageTransform applies crop, rotation, flips and scaling.
	StageTransform Stage = "transform"
	// StageTrace runs the vector tracing pipeline.
	StageTrace Stage = "trace"
	// StageEncode writes a single raster artifact.
	StageEncode Stage = "encode"
	// StagePackIcon renders per-size frames and packages the icon
	// container (or archive, in multiple mode).
	StagePackIcon Stage = "pack-icon"
	// StagePackDocument feeds the frame into a paged document.
	StagePackDocument Stage = "pack-document"
)

// Invocation is the ordered stage sequence selected for one job.
type Invocation struct {
	Stages []Stage
}

// Has reports whether the invocation contains the stage.
func (inv Invocation) Has(s Stage) bool {
	for _, st := range inv.Stages {
		if st == s {
			return true
		}
	}
	return false
}

// Plan resolves the invocation for a conversion. The decision table:
//
//	vector -> vector, no geometry change   passthrough
//	vector -> vector, geometry change      decode, transform, trace
//	vector -> raster                       decode, transform, encode
//	raster -> vector                       decode, transform, trace
//	raster -> raster                       decode, transform, encode
//	any    -> icon                         decode, transform, pack-icon
//	any    -> document                     decode, transform, pack-document
//	any    -> unencodable (e.g. heic)      fast failure
func Plan(input, output schema.Format, settings schema.ConversionSettings) (Invocation, error) {
	if !output.Encodable() {
		return Invocation{}, fmt.Errorf("%w: cannot encode %q", ErrUnsupportedConversion, output)
	}
	if input == schema.FormatUnknown {
		return Invocation{}, fmt.Errorf("%w: unrecognized source", ErrUnsupportedConversion)
	}
	if input.IsIcon() || input.IsDocument() {
		return Invocation{}, fmt.Errorf("%w: %q is not an accepted source kind", ErrUnsupportedConversion, input)
	}

	switch {
	case output.IsIcon():
		return Invocation{Stages: []Stage{StageDecode, StageTransform, StagePackIcon}}, nil
	case output.IsDocument():
		return Invocation{Stages: []Stage{StageDecode, StageTransform, StagePackDocument}}, nil
	case output.IsVector():
		if input.IsVector() && !settings.HasGeometryChange() {
			return Invocation{Stages: []Stage{StagePassthrough}}, nil
		}
		return Invocation{Stages: []Stage{StageDecode, StageTransform, StageTrace}}, nil
	default:
		return Invocation{Stages: []Stage{StageDecode, StageTransform, StageEncode}}, nil
	}
}
