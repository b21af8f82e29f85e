package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/IRedDragonICY/openloveimage-engine/pkg/schema"
)

func writeProfiles(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write profiles: %v", err)
	}
	return path
}

func TestLoadResolvesProfiles(t *testing.T) {
	path := writeProfiles(t, `
default: thumbs
profiles:
  thumbs:
    format: webp
    quality: 75
    max_width: 320
    max_height: 320
    lock_aspect: true
  icons:
    format: ico
    icon:
      sizes: [16, 32]
      mode: multiple
`)

	f, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	s, err := f.Resolve("")
	if err != nil {
		t.Fatalf("resolve default: %v", err)
	}
	if s.Format != schema.FormatWebP || s.Quality != 75 || s.MaxWidth != 320 {
		t.Fatalf("unexpected default profile: %+v", s)
	}

	s, err = f.Resolve("icons")
	if err != nil {
		t.Fatalf("resolve icons: %v", err)
	}
	if s.Format != schema.FormatICO || s.Icon == nil || s.Icon.Mode != schema.IconMultiple {
		t.Fatalf("unexpected icons profile: %+v", s)
	}
}

func TestResolveReturnsIsolatedCopy(t *testing.T) {
	f := Builtin()
	a, err := f.Resolve("favicon")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	a.Icon.Sizes[0] = 999

	b, err := f.Resolve("favicon")
	if err != nil {
		t.Fatalf("resolve again: %v", err)
	}
	if b.Icon.Sizes[0] != 16 {
		t.Fatalf("stored profile mutated through resolved copy: %v", b.Icon.Sizes)
	}
}

func TestLoadRejectsUnknownDefault(t *testing.T) {
	path := writeProfiles(t, `
default: missing
profiles:
  thumbs:
    format: png
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for undefined default profile")
	}
}

func TestLoadRejectsBadSettings(t *testing.T) {
	cases := map[string]string{
		"missing format": "profiles:\n  p:\n    quality: 50\n",
		"heic output":    "profiles:\n  p:\n    format: heic\n",
		"bad quality":    "profiles:\n  p:\n    format: png\n    quality: 150\n",
		"bad icon size":  "profiles:\n  p:\n    format: ico\n    icon:\n      sizes: [4096]\n",
	}
	for name, content := range cases {
		if _, err := Load(writeProfiles(t, content)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestResolveUnknownName(t *testing.T) {
	if _, err := Builtin().Resolve("nope"); err == nil {
		t.Fatal("expected error for unknown profile")
	}
}

func TestBuiltinValidates(t *testing.T) {
	if err := Builtin().Validate(); err != nil {
		t.Fatalf("builtin profiles invalid: %v", err)
	}
}
