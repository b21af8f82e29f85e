package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"

	"github.com/IRedDragonICY/openloveimage-engine/internal/meta"
	"github.com/IRedDragonICY/openloveimage-engine/pkg/schema"
)

// HeicDecoder decodes HEIC/HEIF sources. The engine has no built-in HEIC
// codec; hosts plug one in (or leave it nil, in which case HEIC sources
// fail with a DecodeError).
type HeicDecoder interface {
	DecodeHEIC(data []byte) (image.Image, error)
}

// DecodeOptions tune source decoding.
type DecodeOptions struct {
	// Heic handles HEIC/HEIF sources when set.
	Heic HeicDecoder
	// DeclaredMIME is consulted when magic-byte detection is inconclusive.
	DeclaredMIME string
	// SVGSize caps the longer raster edge when rendering vector sources
	// with no intrinsic size. Zero means the default of 512.
	SVGSize int
}

const defaultSVGSize = 512

// Decode turns an encoded source into a pixel buffer, normalizing EXIF
// orientation for formats that carry it. The detected format is returned
// alongside so the dispatcher can key its decision table off actual bytes
// rather than the declared extension.
func Decode(data []byte, opts DecodeOptions) (image.Image, schema.Format, error) {
	if len(data) == 0 {
		return nil, schema.FormatUnknown, &DecodeError{Reason: "empty source"}
	}

	format := Detect(data)
	if format == schema.FormatUnknown {
		format = schema.ParseFormat(opts.DeclaredMIME)
	}

	var (
		img image.Image
		err error
	)
	switch format {
	case schema.FormatJPEG:
		img, err = jpeg.Decode(bytes.NewReader(data))
		if err == nil {
			img = meta.ApplyOrientation(img, meta.Orientation(data))
		}
	case schema.FormatPNG:
		img, err = png.Decode(bytes.NewReader(data))
	case schema.FormatGIF:
		img, err = gif.Decode(bytes.NewReader(data))
	case schema.FormatBMP:
		img, err = bmp.Decode(bytes.NewReader(data))
	case schema.FormatWebP:
		img, err = webp.Decode(bytes.NewReader(data))
	case schema.FormatTIFF:
		img, err = tiff.Decode(bytes.NewReader(data))
		if err == nil {
			img = meta.ApplyOrientation(img, meta.Orientation(data))
		}
	case schema.FormatSVG:
		img, err = rasterizeSVG(data, opts.SVGSize)
	case schema.FormatHEIC:
		if opts.Heic == nil {
			return nil, format, &DecodeError{Reason: "heic source without a configured decoder"}
		}
		img, err = opts.Heic.DecodeHEIC(data)
	default:
		return nil, format, &DecodeError{Reason: fmt.Sprintf("unrecognized source format %q", format)}
	}

	if err != nil {
		return nil, format, &DecodeError{Reason: string(format), Err: err}
	}
	return img, format, nil
}

// rasterizeSVG renders a vector document onto a pixel surface at its
// intrinsic viewbox size, clamped to maxEdge on the longer axis.
func rasterizeSVG(data []byte, maxEdge int) (image.Image, error) {
	if maxEdge <= 0 {
		maxEdge = defaultSVGSize
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	w := int(icon.ViewBox.W)
	h := int(icon.ViewBox.H)
	if w <= 0 || h <= 0 {
		w, h = maxEdge, maxEdge
	}
	if w > maxEdge || h > maxEdge {
		if w >= h {
			h = h * maxEdge / w
			w = maxEdge
		} else {
			w = w * maxEdge / h
			h = maxEdge
		}
		if w < 1 {
			w = 1
		}
		if h < 1 {
			h = 1
		}
	}

	icon.SetTarget(0, 0, float64(w), float64(h))
	surface := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, surface, surface.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1.0)
	return surface, nil
}
