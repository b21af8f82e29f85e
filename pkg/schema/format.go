package schema

import "strings"

// Format identifies an image format the engine can read or write.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatGIF  Format = "gif"
	FormatBMP  Format = "bmp"
	FormatWebP Format = "webp"
	FormatTIFF Format = "tiff"
	FormatSVG  Format = "svg"
	FormatICO  Format = "ico"
	FormatPDF  Format = "pdf"
	// HEIC is accepted as a source (via an external decoder) but is never
	// a valid output: no encoder exists in this stack.
	FormatHEIC    Format = "heic"
	FormatUnknown Format = ""
)

// ParseFormat resolves a file extension or MIME type to a Format.
func ParseFormat(s string) Format {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, ".")
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	s = strings.TrimPrefix(s, "image/")
	s = strings.TrimPrefix(s, "application/")

	switch s {
	case "jpeg", "jpg", "pjpeg":
		return FormatJPEG
	case "png", "x-png":
		return FormatPNG
	case "gif":
		return FormatGIF
	case "bmp", "x-ms-bmp", "x-bmp":
		return FormatBMP
	case "webp":
		return FormatWebP
	case "tiff", "tif":
		return FormatTIFF
	case "svg", "svg+xml":
		return FormatSVG
	case "ico", "x-icon", "vnd.microsoft.icon":
		return FormatICO
	case "pdf":
		return FormatPDF
	case "heic", "heif", "heic-sequence", "heif-sequence":
		return FormatHEIC
	}
	return FormatUnknown
}

// Ext returns the canonical file extension, including the dot.
func (f Format) Ext() string {
	switch f {
	case FormatJPEG:
		return ".jpg"
	case FormatTIFF:
		return ".tif"
	case FormatUnknown:
		return ""
	default:
		return "." + string(f)
	}
}

// MIME returns the canonical MIME type.
func (f Format) MIME() string {
	switch f {
	case FormatSVG:
		return "image/svg+xml"
	case FormatICO:
		return "image/x-icon"
	case FormatPDF:
		return "application/pdf"
	case FormatUnknown:
		return "application/octet-stream"
	default:
		return "image/" + string(f)
	}
}

// IsVector reports whether the format stores paths rather than pixels.
func (f Format) IsVector() bool { return f == FormatSVG }

// IsRaster reports whether the format is a plain single-frame pixel format.
func (f Format) IsRaster() bool {
	switch f {
	case FormatJPEG, FormatPNG, FormatGIF, FormatBMP, FormatWebP, FormatTIFF, FormatHEIC:
		return true
	}
	return false
}

// IsIcon reports whether the format is a multi-resolution icon container.
func (f Format) IsIcon() bool { return f == FormatICO }

// IsDocument reports whether the format is a paged document container.
func (f Format) IsDocument() bool { return f == FormatPDF }

// Lossy reports whether the format has a quality axis the encoder honors.
func (f Format) Lossy() bool {
	switch f {
	case FormatJPEG, FormatWebP:
		return true
	}
	return false
}

// Encodable reports whether the engine can produce this format as output.
func (f Format) Encodable() bool {
	switch f {
	case FormatJPEG, FormatPNG, FormatGIF, FormatBMP, FormatWebP, FormatTIFF,
		FormatSVG, FormatICO, FormatPDF:
		return true
	}
	return false
}
