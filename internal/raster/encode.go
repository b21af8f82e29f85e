package raster

import (
	"fmt"
	"image"
	"io"

	"github.com/HugoSmits86/nativewebp"
	"github.com/disintegration/imaging"

	"github.com/IRedDragonICY/openloveimage-engine/pkg/schema"
)

// Encode writes img to w in the requested format. Quality applies only to
// formats with a lossy axis; it is ignored elsewhere. Container formats
// (ico, pdf) and unencodable formats are rejected: packaging owns the
// former and nothing here can produce the latter.
func Encode(w io.Writer, img image.Image, format schema.Format, quality int) error {
	if quality <= 0 {
		quality = 90
	} else if quality > 100 {
		quality = 100
	}

	switch format {
	case schema.FormatJPEG:
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
	case schema.FormatPNG:
		return imaging.Encode(w, img, imaging.PNG)
	case schema.FormatGIF:
		return imaging.Encode(w, img, imaging.GIF)
	case schema.FormatBMP:
		return imaging.Encode(w, img, imaging.BMP)
	case schema.FormatTIFF:
		return imaging.Encode(w, img, imaging.TIFF)
	case schema.FormatWebP:
		return nativewebp.Encode(w, img, nil)
	default:
		return fmt.Errorf("%w: encode %q", ErrUnsupportedFormat, format)
	}
}
