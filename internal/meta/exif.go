// Package meta reads the EXIF fields the pipeline cares about (orientation)
// and strips metadata segments from JPEG streams on passthrough copies.
// Re-encoded outputs never carry source metadata: none of the encoders in
// this stack write EXIF.
package meta

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
)

// Orientation returns the EXIF orientation (1..8) of the encoded image, or
// 1 when no EXIF block or no orientation tag is present. It never fails:
// a source with broken metadata is still convertible.
func Orientation(data []byte) int {
	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil {
		return 1
	}

	im := exifcommon.NewIfdMapping()
	if err := exifcommon.LoadStandardIfds(im); err != nil {
		return 1
	}
	ti := exif.NewTagIndex()

	_, index, err := exif.Collect(im, ti, rawExif)
	if err != nil {
		return 1
	}

	tags, err := index.RootIfd.FindTagWithName("Orientation")
	if err != nil || len(tags) == 0 {
		return 1
	}
	val, err := tags[0].Value()
	if err != nil {
		return 1
	}
	if vs, ok := val.([]uint16); ok && len(vs) > 0 && vs[0] >= 1 && vs[0] <= 8 {
		return int(vs[0])
	}
	return 1
}

// ApplyOrientation normalizes an image decoded without orientation handling
// so that orientation 1 semantics hold afterwards.
func ApplyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

// StripJPEG removes APP1 (EXIF/XMP) and APP13 (IPTC) segments from a JPEG
// stream without re-encoding. Non-JPEG or malformed input is returned
// unchanged; the caller only uses this on passthrough copies.
func StripJPEG(data []byte) []byte {
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return data
	}

	out := make([]byte, 0, len(data))
	out = append(out, 0xFF, 0xD8)

	i := 2
	for i+4 <= len(data) {
		if data[i] != 0xFF {
			break
		}
		marker := data[i+1]

		// Start of scan: the rest is entropy-coded data, copy verbatim.
		if marker == 0xDA {
			out = append(out, data[i:]...)
			return out
		}

		segLen := int(data[i+2])<<8 | int(data[i+3])
		end := i + 2 + segLen
		if segLen < 2 || end > len(data) {
			break
		}
		if marker != 0xE1 && marker != 0xED {
			out = append(out, data[i:end]...)
		}
		i = end
	}
	return data
}
