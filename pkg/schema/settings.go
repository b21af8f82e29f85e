package schema

// CropMode selects how a target-aspect rectangle is sized against the source.
type CropMode string

const (
	CropFit    CropMode = "fit"
	CropFill   CropMode = "fill"
	CropExtend CropMode = "extend"
)

// VectorStyle names a tracing parameter preset.
type VectorStyle string

const (
	VectorSimple   VectorStyle = "simple"
	VectorBalanced VectorStyle = "balanced"
	VectorDetailed VectorStyle = "detailed"
	VectorArtistic VectorStyle = "artistic"
)

// IconExportMode selects between one container and one file per size.
type IconExportMode string

const (
	IconSingle   IconExportMode = "single"
	IconMultiple IconExportMode = "multiple"
)

// StandardIconSizes is the default size set for icon export.
var StandardIconSizes = []int{16, 24, 32, 48, 64, 96, 128, 256}

// CropSpec describes an optional crop applied before encoding.
type CropSpec struct {
	AspectW float64 `json:"aspect_w" yaml:"aspect_w"`
	AspectH float64 `json:"aspect_h" yaml:"aspect_h"`
	Mode    CropMode `json:"mode" yaml:"mode"`
	// Rotation in degrees, clockwise. Multiples of 90 take the fast path.
	Rotation    float64 `json:"rotation,omitempty" yaml:"rotation,omitempty"`
	FlipH       bool    `json:"flip_h,omitempty" yaml:"flip_h,omitempty"`
	FlipV       bool    `json:"flip_v,omitempty" yaml:"flip_v,omitempty"`
	Background  string  `json:"background,omitempty" yaml:"background,omitempty"`
	Transparent bool    `json:"transparent,omitempty" yaml:"transparent,omitempty"`
	// OutW/OutH override the output surface size (0 = derive from crop).
	OutW int `json:"out_w,omitempty" yaml:"out_w,omitempty"`
	OutH int `json:"out_h,omitempty" yaml:"out_h,omitempty"`
}

// VectorOptions tune the tracing pipeline for SVG output.
type VectorOptions struct {
	Style VectorStyle `json:"style" yaml:"style"`
	// Colors overrides the preset color-cluster count when > 0.
	Colors int `json:"colors,omitempty" yaml:"colors,omitempty"`
	// Precision overrides the preset curve-fit tolerance when > 0.
	Precision float64 `json:"precision,omitempty" yaml:"precision,omitempty"`
}

// IconOptions configure multi-resolution icon export.
type IconOptions struct {
	Sizes []int          `json:"sizes,omitempty" yaml:"sizes,omitempty"`
	Mode  IconExportMode `json:"mode" yaml:"mode"`
}

// DocumentOptions configure multi-page document export.
type DocumentOptions struct {
	PageSize      string `json:"page_size" yaml:"page_size"` // A4, Letter, Legal
	Orientation   string `json:"orientation" yaml:"orientation"`
	DPI           int    `json:"dpi,omitempty" yaml:"dpi,omitempty"`
	ImagesPerPage int    `json:"images_per_page,omitempty" yaml:"images_per_page,omitempty"`
	// Merge folds consecutive document jobs in a batch into one file.
	Merge       bool   `json:"merge,omitempty" yaml:"merge,omitempty"`
	Compression string `json:"compression,omitempty" yaml:"compression,omitempty"` // none, fast, best
}

// ConversionSettings is the sole configuration input to the engine. A job
// snapshots it at submission time; later edits never mutate in-flight jobs.
type ConversionSettings struct {
	Format  Format `json:"format" yaml:"format"`
	Quality int    `json:"quality" yaml:"quality"`

	MaxWidth   int  `json:"max_width,omitempty" yaml:"max_width,omitempty"`
	MaxHeight  int  `json:"max_height,omitempty" yaml:"max_height,omitempty"`
	LockAspect bool `json:"lock_aspect" yaml:"lock_aspect"`

	Crop     *CropSpec        `json:"crop,omitempty" yaml:"crop,omitempty"`
	Vector   *VectorOptions   `json:"vector,omitempty" yaml:"vector,omitempty"`
	Icon     *IconOptions     `json:"icon,omitempty" yaml:"icon,omitempty"`
	Document *DocumentOptions `json:"document,omitempty" yaml:"document,omitempty"`

	StripMetadata bool `json:"strip_metadata,omitempty" yaml:"strip_metadata,omitempty"`
}

// Clone deep-copies the settings so a job's snapshot is isolated from
// later edits to the caller's structure.
func (s ConversionSettings) Clone() ConversionSettings {
	out := s
	if s.Crop != nil {
		c := *s.Crop
		out.Crop = &c
	}
	if s.Vector != nil {
		v := *s.Vector
		out.Vector = &v
	}
	if s.Icon != nil {
		ic := *s.Icon
		ic.Sizes = append([]int(nil), s.Icon.Sizes...)
		out.Icon = &ic
	}
	if s.Document != nil {
		d := *s.Document
		out.Document = &d
	}
	return out
}

// IconSizes returns the requested icon size set, falling back to the
// standard set. The returned slice is always a copy.
func (s ConversionSettings) IconSizes() []int {
	if s.Icon != nil && len(s.Icon.Sizes) > 0 {
		out := make([]int, len(s.Icon.Sizes))
		copy(out, s.Icon.Sizes)
		return out
	}
	out := make([]int, len(StandardIconSizes))
	copy(out, StandardIconSizes)
	return out
}

// EffectiveQuality clamps the quality to 1..100, defaulting to 90.
func (s ConversionSettings) EffectiveQuality() int {
	q := s.Quality
	if q <= 0 {
		return 90
	}
	if q > 100 {
		return 100
	}
	return q
}

// HasGeometryChange reports whether the settings request any resize, crop
// or orientation work. Vector passthrough is only valid when this is false.
func (s ConversionSettings) HasGeometryChange() bool {
	if s.MaxWidth > 0 || s.MaxHeight > 0 {
		return true
	}
	if c := s.Crop; c != nil {
		if c.AspectW > 0 && c.AspectH > 0 {
			return true
		}
		if c.Rotation != 0 || c.FlipH || c.FlipV {
			return true
		}
		if c.OutW > 0 || c.OutH > 0 {
			return true
		}
	}
	return false
}
