// internal/profile/profile.go
package profile

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/IRedDragonICY/openloveimage-engine/pkg/schema"
)

// File is a named collection of conversion settings profiles loaded from
// YAML. A profile bundles every knob one conversion run needs, so callers
// select by name instead of threading a dozen flags around.
type File struct {
	Default  string                               `yaml:"default"`
	Profiles map[string]schema.ConversionSettings `yaml:"profiles"`
}

// Load reads and parses a profiles file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse profiles file: %w", err)
	}

	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profiles file: %w", err)
	}
	return &f, nil
}

// Builtin returns the profiles shipped with the engine, used when no
// profiles file is configured.
func Builtin() *File {
	return &File{
		Default: "web-jpeg",
		Profiles: map[string]schema.ConversionSettings{
			"web-jpeg": {
				Format:     schema.FormatJPEG,
				Quality:    85,
				MaxWidth:   1920,
				MaxHeight:  1920,
				LockAspect: true,
			},
			"web-webp": {
				Format:     schema.FormatWebP,
				Quality:    80,
				MaxWidth:   1920,
				MaxHeight:  1920,
				LockAspect: true,
			},
			"favicon": {
				Format: schema.FormatICO,
				Icon:   &schema.IconOptions{Sizes: []int{16, 32, 48}, Mode: schema.IconSingle},
			},
			"scan-pdf": {
				Format:   schema.FormatPDF,
				Document: &schema.DocumentOptions{Merge: true, PageSize: "a4"},
			},
			"trace-svg": {
				Format: schema.FormatSVG,
				Vector: &schema.VectorOptions{Style: schema.VectorBalanced},
			},
		},
	}
}

// Validate checks every profile for settings the pipeline would reject.
func (f *File) Validate() error {
	if len(f.Profiles) == 0 {
		return fmt.Errorf("no profiles defined")
	}
	if f.Default != "" {
		if _, ok := f.Profiles[f.Default]; !ok {
			return fmt.Errorf("default profile %q is not defined", f.Default)
		}
	}
	for name, s := range f.Profiles {
		if err := validateProfile(s); err != nil {
			return fmt.Errorf("profile %q: %w", name, err)
		}
	}
	return nil
}

func validateProfile(s schema.ConversionSettings) error {
	if s.Format == "" || s.Format == schema.FormatUnknown {
		return fmt.Errorf("format is required")
	}
	if !s.Format.Encodable() {
		return fmt.Errorf("format %q cannot be produced", s.Format)
	}
	if s.Quality < 0 || s.Quality > 100 {
		return fmt.Errorf("quality %d out of range", s.Quality)
	}
	if s.MaxWidth < 0 || s.MaxHeight < 0 {
		return fmt.Errorf("resize bounds %dx%d out of range", s.MaxWidth, s.MaxHeight)
	}
	if s.Icon != nil {
		for _, size := range s.Icon.Sizes {
			if size < 1 || size > 1024 {
				return fmt.Errorf("icon size %d out of range", size)
			}
		}
	}
	return nil
}

// Resolve returns the named profile, or the default when name is empty.
func (f *File) Resolve(name string) (schema.ConversionSettings, error) {
	if name == "" {
		name = f.Default
	}
	if name == "" {
		return schema.ConversionSettings{}, fmt.Errorf("no profile named and no default set")
	}
	s, ok := f.Profiles[name]
	if !ok {
		return schema.ConversionSettings{}, fmt.Errorf("unknown profile %q (have: %v)", name, f.Names())
	}
	return s.Clone(), nil
}

// Names lists the defined profile names in stable order.
func (f *File) Names() []string {
	names := make([]string, 0, len(f.Profiles))
	for name := range f.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
