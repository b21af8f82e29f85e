// Package pack bundles raster outputs into container artifacts: the ICO
// multi-resolution icon container, zip archives for per-size icon export,
// and multi-page PDF documents.
package pack

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"io"
)

// IconFrame is one raster frame destined for an icon container.
type IconFrame struct {
	Size  int
	Image image.Image
}

// icoDirEntry is the 16-byte ICONDIRENTRY record.
type icoDirEntry struct {
	Width      uint8
	Height     uint8
	ColorCount uint8
	Reserved   uint8
	Planes     uint16
	BitCount   uint16
	BytesInRes uint32
	Offset     uint32
}

// WriteICO writes frames into a single .ico container with PNG-compressed
// image data. Per-frame size metadata is exact; 256 is stored as 0 per the
// format's one-byte size fields.
func WriteICO(w io.Writer, frames []IconFrame) error {
	if len(frames) == 0 {
		return fmt.Errorf("pack: no icon frames")
	}

	encoded := make([][]byte, len(frames))
	for i, f := range frames {
		if f.Image == nil {
			return fmt.Errorf("pack: nil frame for size %d", f.Size)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, f.Image); err != nil {
			return fmt.Errorf("pack: encode %dpx frame: %w", f.Size, err)
		}
		encoded[i] = buf.Bytes()
	}

	// ICONDIR: reserved, type 1 (icon), count.
	header := [3]uint16{0, 1, uint16(len(frames))}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("pack: write icon header: %w", err)
	}

	offset := uint32(6 + 16*len(frames))
	for i, f := range frames {
		entry := icoDirEntry{
			Width:      sizeByte(f.Size),
			Height:     sizeByte(f.Size),
			Planes:     1,
			BitCount:   32,
			BytesInRes: uint32(len(encoded[i])),
			Offset:     offset,
		}
		if err := binary.Write(w, binary.LittleEndian, entry); err != nil {
			return fmt.Errorf("pack: write directory entry %d: %w", i, err)
		}
		offset += uint32(len(encoded[i]))
	}

	for i, data := range encoded {
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("pack: write frame %d: %w", i, err)
		}
	}
	return nil
}

// sizeByte maps a pixel size to the ICO one-byte field, where 0 means 256.
func sizeByte(size int) uint8 {
	if size >= 256 {
		return 0
	}
	return uint8(size)
}

// FrameCount reads the ICONDIR count from an encoded icon container.
func FrameCount(data []byte) (int, error) {
	if len(data) < 6 || data[0] != 0 || data[1] != 0 || data[2] != 1 || data[3] != 0 {
		return 0, fmt.Errorf("pack: not an icon container")
	}
	return int(binary.LittleEndian.Uint16(data[4:6])), nil
}
