package raster

import (
	"bytes"

	"github.com/IRedDragonICY/openloveimage-engine/pkg/schema"
)

var pngSig = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// Detect identifies the source format by examining magic bytes. It returns
// FormatUnknown when no signature matches; callers then fall back on the
// declared MIME type or extension.
func Detect(data []byte) schema.Format {
	if len(data) < 2 {
		return schema.FormatUnknown
	}

	// JPEG: FF D8 FF
	if len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return schema.FormatJPEG
	}

	if len(data) >= 8 && bytes.Equal(data[:8], pngSig) {
		return schema.FormatPNG
	}

	// GIF87a / GIF89a
	if len(data) >= 6 && bytes.HasPrefix(data, []byte("GIF8")) &&
		(data[4] == '7' || data[4] == '9') && data[5] == 'a' {
		return schema.FormatGIF
	}

	// WebP: RIFF....WEBP
	if len(data) >= 12 && bytes.HasPrefix(data, []byte("RIFF")) &&
		bytes.Equal(data[8:12], []byte("WEBP")) {
		return schema.FormatWebP
	}

	// TIFF: II*\0 (little endian) or MM\0* (big endian)
	if len(data) >= 4 {
		if data[0] == 'I' && data[1] == 'I' && data[2] == 0x2A && data[3] == 0 {
			return schema.FormatTIFF
		}
		if data[0] == 'M' && data[1] == 'M' && data[2] == 0 && data[3] == 0x2A {
			return schema.FormatTIFF
		}
	}

	// ICO: 00 00 01 00. Checked before BMP: both begin with low bytes but
	// ICO's reserved word is a stronger signal than BMP's "BM".
	if len(data) >= 4 && data[0] == 0 && data[1] == 0 && data[2] == 1 && data[3] == 0 {
		return schema.FormatICO
	}

	if data[0] == 'B' && data[1] == 'M' {
		return schema.FormatBMP
	}

	// HEIC/HEIF: ISO BMFF with an ftyp box carrying a heic/heif/mif1 brand.
	if len(data) >= 12 && bytes.Equal(data[4:8], []byte("ftyp")) {
		brand := string(data[8:12])
		switch brand {
		case "heic", "heix", "heif", "hevc", "mif1", "msf1":
			return schema.FormatHEIC
		}
	}

	// SVG: XML text whose first element is <svg or that starts with an XML
	// declaration / doctype leading to one.
	head := bytes.TrimLeft(data[:minLen(data, 512)], " \t\r\n\xef\xbb\xbf")
	if bytes.HasPrefix(head, []byte("<")) {
		if bytes.Contains(data[:minLen(data, 1024)], []byte("<svg")) {
			return schema.FormatSVG
		}
	}

	return schema.FormatUnknown
}

func minLen(data []byte, n int) int {
	if len(data) < n {
		return len(data)
	}
	return n
}
