package pack

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/IRedDragonICY/openloveimage-engine/pkg/schema"
)

func solidImage(t *testing.T, size int) *image.NRGBA {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for x := 0; x < size; x++ {
		for y := 0; y < size; y++ {
			img.Set(x, y, color.NRGBA{R: 40, G: 120, B: 200, A: 255})
		}
	}
	return img
}

func TestWriteICOFrameCountAndMetadata(t *testing.T) {
	sizes := []int{16, 32, 256}
	frames := make([]IconFrame, len(sizes))
	for i, s := range sizes {
		frames[i] = IconFrame{Size: s, Image: solidImage(t, s)}
	}

	var buf bytes.Buffer
	if err := WriteICO(&buf, frames); err != nil {
		t.Fatalf("WriteICO returned error: %v", err)
	}
	data := buf.Bytes()

	count, err := FrameCount(data)
	if err != nil {
		t.Fatalf("FrameCount returned error: %v", err)
	}
	if count != len(sizes) {
		t.Fatalf("frame count %d, want %d", count, len(sizes))
	}

	// Directory entries: size bytes exact (256 stored as 0), offsets and
	// lengths consistent with the payload.
	for i, s := range sizes {
		entry := data[6+16*i : 6+16*(i+1)]
		wantSize := uint8(s)
		if s >= 256 {
			wantSize = 0
		}
		if entry[0] != wantSize || entry[1] != wantSize {
			t.Fatalf("frame %d: size bytes %d/%d, want %d", i, entry[0], entry[1], wantSize)
		}
		length := binary.LittleEndian.Uint32(entry[8:12])
		offset := binary.LittleEndian.Uint32(entry[12:16])
		if int(offset)+int(length) > len(data) {
			t.Fatalf("frame %d: offset %d + length %d exceeds container %d", i, offset, length, len(data))
		}

		frame, err := png.Decode(bytes.NewReader(data[offset : offset+length]))
		if err != nil {
			t.Fatalf("frame %d does not decode as PNG: %v", i, err)
		}
		if b := frame.Bounds(); b.Dx() != s || b.Dy() != s {
			t.Fatalf("frame %d: decoded %dx%d, want %dx%d", i, b.Dx(), b.Dy(), s, s)
		}
	}
}

func TestWriteICORejectsEmptyInput(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteICO(&buf, nil); err == nil {
		t.Fatal("expected error for empty frame set")
	}
}

func TestWriteZipMembers(t *testing.T) {
	var buf bytes.Buffer
	err := WriteZip(&buf, []ArchiveFile{
		{Name: "icon-16.png", Data: []byte("a")},
		{Name: "icon-32.png", Data: []byte("bb")},
	})
	if err != nil {
		t.Fatalf("WriteZip returned error: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("archive does not open: %v", err)
	}
	if len(zr.File) != 2 {
		t.Fatalf("archive has %d members, want 2", len(zr.File))
	}
	if zr.File[0].Name != "icon-16.png" || zr.File[1].Name != "icon-32.png" {
		t.Fatalf("unexpected member names: %s, %s", zr.File[0].Name, zr.File[1].Name)
	}
}

func TestDocumentPagination(t *testing.T) {
	doc := NewDocument(&schema.DocumentOptions{ImagesPerPage: 2}, 85)
	for i := 0; i < 3; i++ {
		if err := doc.AddImage(solidImage(t, 24)); err != nil {
			t.Fatalf("AddImage %d: %v", i, err)
		}
	}
	if doc.Count() != 3 {
		t.Fatalf("document count %d, want 3", doc.Count())
	}

	data, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes returned error: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("output does not start with a PDF header")
	}
	// 3 images at 2 per page = 2 pages.
	if n := bytes.Count(data, []byte("/Type /Page")) - bytes.Count(data, []byte("/Type /Pages")); n != 2 {
		t.Fatalf("expected 2 pages, counted %d", n)
	}
}

func TestDocumentRejectsEmpty(t *testing.T) {
	doc := NewDocument(nil, 85)
	if _, err := doc.Bytes(); err == nil {
		t.Fatal("expected error for empty document")
	}
}
