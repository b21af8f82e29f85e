package pack

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"strings"

	"github.com/phpdave11/gofpdf"

	"github.com/IRedDragonICY/openloveimage-engine/pkg/schema"
)

const (
	defaultDocumentDPI = 150
	pageMarginMM       = 10.0
	mmPerInch          = 25.4
)

// Document accumulates raster frames into a multi-page PDF. Consecutive
// jobs coalesced into one document all feed the same builder; the first
// job in the group owns the produced artifact.
type Document struct {
	pdf     *gofpdf.Fpdf
	perPage int
	dpi     int
	quality int
	count   int
}

// NewDocument builds a PDF writer from the document options. Page size and
// orientation default to portrait A4; DPI scales the natural placement
// size of each frame.
func NewDocument(opts *schema.DocumentOptions, quality int) *Document {
	pageSize := "A4"
	orientation := "P"
	perPage := 1
	dpi := defaultDocumentDPI
	if opts != nil {
		switch strings.ToLower(opts.PageSize) {
		case "letter":
			pageSize = "Letter"
		case "legal":
			pageSize = "Legal"
		}
		if strings.HasPrefix(strings.ToLower(opts.Orientation), "l") {
			orientation = "L"
		}
		if opts.ImagesPerPage > 0 {
			perPage = opts.ImagesPerPage
		}
		if opts.DPI > 0 {
			dpi = opts.DPI
		}
	}

	pdf := gofpdf.New(orientation, "mm", pageSize, "")
	if opts != nil && strings.EqualFold(opts.Compression, "none") {
		pdf.SetCompression(false)
	}

	return &Document{
		pdf:     pdf,
		perPage: perPage,
		dpi:     dpi,
		quality: frameQuality(opts, quality),
	}
}

// frameQuality maps the compression level onto the embedded JPEG quality.
func frameQuality(opts *schema.DocumentOptions, quality int) int {
	if opts != nil {
		switch strings.ToLower(opts.Compression) {
		case "none":
			return 95
		case "fast":
			return 85
		case "best":
			return 70
		}
	}
	if quality <= 0 || quality > 100 {
		return 85
	}
	return quality
}

// AddImage appends one frame, starting a new page whenever the current
// grid is full. Frames are embedded as JPEG and placed aspect-preserving
// inside their grid cell.
func (d *Document) AddImage(img image.Image) error {
	if img == nil {
		return fmt.Errorf("pack: nil document frame")
	}

	slot := d.count % d.perPage
	if slot == 0 {
		d.pdf.AddPage()
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: d.quality}); err != nil {
		return fmt.Errorf("pack: encode document frame: %w", err)
	}

	name := fmt.Sprintf("frame_%d", d.count)
	opt := gofpdf.ImageOptions{ImageType: "JPG"}
	d.pdf.RegisterImageOptionsReader(name, opt, &buf)
	if err := d.pdf.Error(); err != nil {
		return fmt.Errorf("pack: register document frame: %w", err)
	}

	cellX, cellY, cellW, cellH := d.cell(slot)

	b := img.Bounds()
	// Natural size at the configured DPI, scaled down to fit the cell.
	w := float64(b.Dx()) / float64(d.dpi) * mmPerInch
	h := float64(b.Dy()) / float64(d.dpi) * mmPerInch
	if scale := minFloat(cellW/w, cellH/h); scale < 1 {
		w *= scale
		h *= scale
	}

	x := cellX + (cellW-w)/2
	y := cellY + (cellH-h)/2
	d.pdf.ImageOptions(name, x, y, w, h, false, opt, 0, "")
	if err := d.pdf.Error(); err != nil {
		return fmt.Errorf("pack: place document frame: %w", err)
	}

	d.count++
	return nil
}

// cell returns the margin-inset grid cell for a page slot. The grid is as
// square as the per-page count allows, filled row-major.
func (d *Document) cell(slot int) (x, y, w, h float64) {
	pageW, pageH := d.pdf.GetPageSize()
	innerW := pageW - 2*pageMarginMM
	innerH := pageH - 2*pageMarginMM

	cols := 1
	for cols*cols < d.perPage {
		cols++
	}
	rows := (d.perPage + cols - 1) / cols

	w = innerW / float64(cols)
	h = innerH / float64(rows)
	x = pageMarginMM + float64(slot%cols)*w
	y = pageMarginMM + float64(slot/cols)*h
	return x, y, w, h
}

// Count reports how many frames have been added.
func (d *Document) Count() int { return d.count }

// Bytes finalizes the document.
func (d *Document) Bytes() ([]byte, error) {
	if d.count == 0 {
		return nil, fmt.Errorf("pack: empty document")
	}
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pack: write document: %w", err)
	}
	return buf.Bytes(), nil
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
