package main

import (
	"testing"

	"github.com/IRedDragonICY/openloveimage-engine/pkg/schema"
)

func TestResolveSettingsFromFlags(t *testing.T) {
	s, err := resolveSettings("", "", "webp", 70, 800, 0, true, false)
	if err != nil {
		t.Fatalf("resolveSettings: %v", err)
	}
	if s.Format != schema.FormatWebP || s.Quality != 70 || s.MaxWidth != 800 || !s.LockAspect {
		t.Fatalf("unexpected settings: %+v", s)
	}
}

func TestResolveSettingsProfileWithOverride(t *testing.T) {
	s, err := resolveSettings("", "web-jpeg", "png", 0, 0, 0, true, false)
	if err != nil {
		t.Fatalf("resolveSettings: %v", err)
	}
	if s.Format != schema.FormatPNG {
		t.Fatalf("format flag did not override profile: %q", s.Format)
	}
	if s.MaxWidth != 1920 {
		t.Fatalf("profile bounds lost: %+v", s)
	}
}

func TestResolveSettingsRejectsBadInput(t *testing.T) {
	if _, err := resolveSettings("", "", "xyz", 0, 0, 0, true, false); err == nil {
		t.Fatal("accepted unknown format")
	}
	if _, err := resolveSettings("", "", "heic", 0, 0, 0, true, false); err == nil {
		t.Fatal("accepted unencodable format")
	}
	if _, err := resolveSettings("", "", "png", 0, 0, 0, true, true); err == nil {
		t.Fatal("accepted -merge for non-document output")
	}
}

func TestResolveSettingsMergeDocument(t *testing.T) {
	s, err := resolveSettings("", "", "pdf", 0, 0, 0, true, true)
	if err != nil {
		t.Fatalf("resolveSettings: %v", err)
	}
	if s.Document == nil || !s.Document.Merge {
		t.Fatalf("merge not applied: %+v", s.Document)
	}
}

func TestConvertibleSource(t *testing.T) {
	if !convertibleSource("/in/photo.jpg", "/out") {
		t.Fatal("rejected a raster source")
	}
	if convertibleSource("/in/readme.txt", "/out") {
		t.Fatal("accepted an unknown extension")
	}
	if convertibleSource("/in/doc.pdf", "/out") {
		t.Fatal("accepted a document container source")
	}
	if convertibleSource("/out/photo.jpg", "/out") {
		t.Fatal("accepted a file in the output directory")
	}
}

func TestFormatBytes(t *testing.T) {
	if got := formatBytes(512); got != "512 B" {
		t.Fatalf("formatBytes(512) = %q", got)
	}
	if got := formatBytes(2048); got != "2.0 KB" {
		t.Fatalf("formatBytes(2048) = %q", got)
	}
}
