package raster

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCrop indicates a degenerate crop rectangle. It is raised
	// before any surface allocation.
	ErrInvalidCrop = errors.New("raster: invalid crop rectangle")

	// ErrUnsupportedFormat is returned when no codec is available for the
	// requested format.
	ErrUnsupportedFormat = errors.New("raster: unsupported format")
)

// DecodeError wraps a codec failure on a corrupt or unreadable source.
// It is surfaced per job and never aborts a batch.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("raster: decode %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("raster: decode %s", e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }
