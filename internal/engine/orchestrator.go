package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/IRedDragonICY/openloveimage-engine/internal/dispatch"
	"github.com/IRedDragonICY/openloveimage-engine/internal/geometry"
	"github.com/IRedDragonICY/openloveimage-engine/internal/meta"
	"github.com/IRedDragonICY/openloveimage-engine/internal/pack"
	"github.com/IRedDragonICY/openloveimage-engine/internal/raster"
	"github.com/IRedDragonICY/openloveimage-engine/internal/vector"
	"github.com/IRedDragonICY/openloveimage-engine/pkg/schema"
)

// ProgressFunc receives per-job progress as the pipeline crosses stage
// boundaries.
type ProgressFunc func(jobIndex, percent int)

// Orchestrator sequences conversion jobs strictly one at a time to bound
// peak memory: raster buffers scale with megapixels. SubmitOne and
// SubmitAll share the identical pipeline path, so single-file and bulk
// conversion produce identical output for identical inputs.
type Orchestrator struct {
	logger   *slog.Logger
	heic     raster.HeicDecoder
	surfaces *SurfacePool
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithLogger replaces the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithHeicDecoder plugs in the external HEIC decode collaborator.
func WithHeicDecoder(d raster.HeicDecoder) Option {
	return func(o *Orchestrator) { o.heic = d }
}

// New builds an orchestrator owning a fresh surface pool.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		logger:   slog.Default(),
		surfaces: NewSurfacePool(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SubmitOne runs a single job through the same path as batch processing.
func (o *Orchestrator) SubmitOne(ctx context.Context, job *Job, onProgress ProgressFunc) error {
	return o.SubmitAll(ctx, []*Job{job}, onProgress)
}

// SubmitAll processes jobs sequentially in submission order. A later job
// never starts before the previous one reaches a terminal state. Per-job
// failures are recorded on the job and never abort the batch; the returned
// error reports only batch-context cancellation.
func (o *Orchestrator) SubmitAll(ctx context.Context, jobs []*Job, onProgress ProgressFunc) error {
	i := 0
	for i < len(jobs) {
		if err := ctx.Err(); err != nil {
			for ; i < len(jobs); i++ {
				if jobs[i].Status() == StatusPending {
					jobs[i].Cancel()
				}
			}
			return err
		}

		if shouldCoalesce(jobs[i].Settings) {
			end := i + 1
			for end < len(jobs) && shouldCoalesce(jobs[end].Settings) {
				end++
			}
			o.runDocumentGroup(ctx, jobs, i, end, onProgress)
			i = end
			continue
		}

		o.runJob(ctx, i, jobs[i], onProgress)
		i++
	}
	return nil
}

// BatchProgress is the aggregate share of settled jobs, recomputed after
// each job reaches a terminal state.
func BatchProgress(jobs []*Job) float64 {
	if len(jobs) == 0 {
		return 0
	}
	settled := 0
	for _, j := range jobs {
		if j.Status().Terminal() {
			settled++
		}
	}
	return float64(settled) / float64(len(jobs))
}

// shouldCoalesce reports whether a job participates in multi-page document
// coalescing: consecutive batch members with a page layout fold into one
// document.
func shouldCoalesce(s schema.ConversionSettings) bool {
	return s.Format.IsDocument() && s.Document != nil &&
		(s.Document.Merge || s.Document.ImagesPerPage > 0)
}

// Stage progress milestones. Monotonic within a run; packaging targets
// pass through 75 before settling at 100.
const (
	progressDecoded     = 25
	progressTransformed = 50
	progressEncoded     = 75
	progressPackaged    = 90
)

func (o *Orchestrator) runJob(ctx context.Context, idx int, job *Job, onProgress ProgressFunc) {
	jobCtx, err := job.begin(ctx)
	if err != nil {
		// Cancelled while pending, or already terminal: no pipeline work.
		return
	}

	report := func(pct int) {
		pct = job.setProgress(pct)
		if onProgress != nil {
			onProgress(idx, pct)
		}
	}

	artifact, err := o.convert(jobCtx, job, report)
	switch {
	case err == nil:
		job.complete(artifact)
		o.logger.Debug("job completed", "job_id", job.ID, "bytes", artifact.Size())
	case errors.Is(err, context.Canceled):
		job.cancelled()
		o.logger.Debug("job cancelled", "job_id", job.ID)
	default:
		job.fail(err)
		o.logger.Warn("job failed", "job_id", job.ID, "err", err)
	}
	report(job.Progress())
}

// convert runs the dispatched stages for one job. Cancellation is
// cooperative: the token is polled at stage boundaries, and any partially
// produced buffers simply go out of scope when the context error returns.
func (o *Orchestrator) convert(ctx context.Context, job *Job, report func(int)) (*Artifact, error) {
	settings := job.Settings
	if err := validateSettings(settings); err != nil {
		return nil, err
	}

	input := sourceFormat(job.Source)
	inv, err := dispatch.Plan(input, settings.Format, settings)
	if err != nil {
		return nil, err
	}

	if inv.Has(dispatch.StagePassthrough) {
		data := append([]byte(nil), job.Source.Data...)
		if settings.StripMetadata {
			data = meta.StripJPEG(data)
		}
		return &Artifact{Name: outputName(job.Source.Name, settings, false), Data: data}, nil
	}

	var img image.Image
	for _, stage := range inv.Stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		switch stage {
		case dispatch.StageDecode:
			decoded, _, err := raster.Decode(job.Source.Data, raster.DecodeOptions{
				Heic:         o.heic,
				DeclaredMIME: job.Source.MIME,
			})
			if err != nil {
				return nil, err
			}
			img = decoded
			report(progressDecoded)

		case dispatch.StageTransform:
			transformed, err := o.transform(img, settings)
			if err != nil {
				return nil, err
			}
			img = transformed
			report(progressTransformed)

		case dispatch.StageTrace:
			doc, err := vector.Convert(img, settings.Vector, settings.EffectiveQuality())
			if err != nil {
				return nil, err
			}
			report(progressEncoded)
			return &Artifact{Name: outputName(job.Source.Name, settings, false), Data: doc}, nil

		case dispatch.StageEncode:
			var buf bytes.Buffer
			surface := o.composite(img)
			if err := raster.Encode(&buf, surface, settings.Format, settings.EffectiveQuality()); err != nil {
				return nil, err
			}
			report(progressEncoded)
			return &Artifact{Name: outputName(job.Source.Name, settings, false), Data: buf.Bytes()}, nil

		case dispatch.StagePackIcon:
			return o.packIcon(ctx, img, job, report)

		case dispatch.StagePackDocument:
			doc := pack.NewDocument(settings.Document, settings.EffectiveQuality())
			if err := doc.AddImage(o.composite(img)); err != nil {
				return nil, err
			}
			report(progressEncoded)
			data, err := doc.Bytes()
			if err != nil {
				return nil, err
			}
			report(progressPackaged)
			return &Artifact{Name: outputName(job.Source.Name, settings, false), Data: data}, nil
		}
	}
	return nil, fmt.Errorf("engine: invocation produced no artifact")
}

// packIcon renders one frame per requested size, then packages either a
// single icon container or a per-size archive.
func (o *Orchestrator) packIcon(ctx context.Context, img image.Image, job *Job, report func(int)) (*Artifact, error) {
	settings := job.Settings
	sizes := settings.IconSizes()
	mode := schema.IconSingle
	if settings.Icon != nil && settings.Icon.Mode != "" {
		mode = settings.Icon.Mode
	}

	frames := make([]pack.IconFrame, 0, len(sizes))
	for _, size := range sizes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		frames = append(frames, pack.IconFrame{Size: size, Image: o.iconFrame(img, size)})
	}
	report(progressEncoded)

	base := baseName(job.Source.Name)
	var buf bytes.Buffer
	if mode == schema.IconMultiple {
		files := make([]pack.ArchiveFile, 0, len(frames))
		for _, f := range frames {
			var png bytes.Buffer
			if err := raster.Encode(&png, f.Image, schema.FormatPNG, 100); err != nil {
				return nil, err
			}
			files = append(files, pack.ArchiveFile{
				Name: fmt.Sprintf("%s-%dx%d.png", base, f.Size, f.Size),
				Data: png.Bytes(),
			})
		}
		if err := pack.WriteZip(&buf, files); err != nil {
			return nil, err
		}
		report(progressPackaged)
		return &Artifact{Name: outputName(job.Source.Name, settings, true), Data: buf.Bytes()}, nil
	}

	if err := pack.WriteICO(&buf, frames); err != nil {
		return nil, err
	}
	report(progressPackaged)
	return &Artifact{Name: outputName(job.Source.Name, settings, false), Data: buf.Bytes()}, nil
}

// iconFrame fits the source into a size x size square, centered on a
// transparent canvas so non-square sources keep their aspect.
func (o *Orchestrator) iconFrame(img image.Image, size int) image.Image {
	fitted := imaging.Fit(img, size, size, imaging.Lanczos)
	fb := fitted.Bounds()
	if fb.Dx() == size && fb.Dy() == size {
		return fitted
	}
	canvas := imaging.New(size, size, color.NRGBA{})
	return imaging.PasteCenter(canvas, fitted)
}

// runDocumentGroup processes a run of consecutive document jobs through
// one shared builder. The first contributing job owns the artifact; every
// other contributor completes with MergedIntoSibling set and no artifact
// of its own.
func (o *Orchestrator) runDocumentGroup(ctx context.Context, jobs []*Job, start, end int, onProgress ProgressFunc) {
	first := jobs[start]
	doc := pack.NewDocument(first.Settings.Document, first.Settings.EffectiveQuality())

	contributors := make([]*Job, 0, end-start)
	for i := start; i < end; i++ {
		job := jobs[i]
		jobCtx, err := job.begin(ctx)
		if err != nil {
			continue
		}
		report := func(pct int) {
			pct = job.setProgress(pct)
			if onProgress != nil {
				onProgress(i, pct)
			}
		}

		frame, err := o.documentFrame(jobCtx, job, report)
		switch {
		case err == nil:
			if err := doc.AddImage(frame); err != nil {
				job.fail(err)
				continue
			}
			report(progressPackaged)
			contributors = append(contributors, job)
		case errors.Is(err, context.Canceled):
			job.cancelled()
		default:
			job.fail(err)
			o.logger.Warn("document job failed", "job_id", job.ID, "err", err)
		}
	}

	if len(contributors) == 0 {
		return
	}

	data, err := doc.Bytes()
	if err != nil {
		for _, job := range contributors {
			job.fail(err)
		}
		return
	}

	owner := contributors[0]
	owner.complete(&Artifact{Name: outputName(owner.Source.Name, owner.Settings, false), Data: data})
	for _, job := range contributors[1:] {
		job.completeMerged()
	}
	for i := start; i < end; i++ {
		if onProgress != nil && jobs[i].Status().Terminal() {
			onProgress(i, jobs[i].Progress())
		}
	}
}

// documentFrame runs decode and transform for one member of a coalesced
// document group.
func (o *Orchestrator) documentFrame(ctx context.Context, job *Job, report func(int)) (image.Image, error) {
	if err := validateSettings(job.Settings); err != nil {
		return nil, err
	}
	input := sourceFormat(job.Source)
	if _, err := dispatch.Plan(input, job.Settings.Format, job.Settings); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, _, err := raster.Decode(job.Source.Data, raster.DecodeOptions{
		Heic:         o.heic,
		DeclaredMIME: job.Source.MIME,
	})
	if err != nil {
		return nil, err
	}
	report(progressDecoded)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	transformed, err := o.transform(img, job.Settings)
	if err != nil {
		return nil, err
	}
	report(progressTransformed)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return o.composite(transformed), nil
}

// transform applies the settings' crop, rotation, flips and resize bounds.
func (o *Orchestrator) transform(img image.Image, s schema.ConversionSettings) (image.Image, error) {
	b := img.Bounds()
	op := raster.TransformOp{}

	if c := s.Crop; c != nil {
		if !c.Transparent {
			op.Background = raster.ParseHexColor(c.Background)
		}
		op.Rotation = c.Rotation
		op.FlipH = c.FlipH
		op.FlipV = c.FlipV
		op.OutW = c.OutW
		op.OutH = c.OutH
		if c.AspectW > 0 && c.AspectH > 0 {
			mode := c.Mode
			if mode == "" {
				mode = schema.CropFit
			}
			rect, err := geometry.ComputeCrop(b.Dx(), b.Dy(), c.AspectW/c.AspectH, mode)
			if err != nil {
				return nil, err
			}
			op.Crop = rect
		}
	}

	out, err := raster.Transform(img, op)
	if err != nil {
		return nil, err
	}

	ob := out.Bounds()
	w, h, err := geometry.ComputeResize(ob.Dx(), ob.Dy(), s.MaxWidth, s.MaxHeight, s.LockAspect)
	if err != nil {
		return nil, err
	}
	if w != ob.Dx() || h != ob.Dy() {
		return imaging.Resize(out, w, h, imaging.Lanczos), nil
	}
	return out, nil
}

// composite draws img onto the pooled surface, the single rendering
// surface recycled between sequential raster operations.
func (o *Orchestrator) composite(img image.Image) *image.NRGBA {
	b := img.Bounds()
	surface := o.surfaces.Acquire(b.Dx(), b.Dy())
	draw.Draw(surface, surface.Bounds(), img, b.Min, draw.Src)
	return surface
}

// validateSettings rejects malformed bounds before any decode work.
func validateSettings(s schema.ConversionSettings) error {
	if s.MaxWidth < 0 || s.MaxHeight < 0 {
		return fmt.Errorf("%w: resize bounds %dx%d", geometry.ErrInvalidSettings, s.MaxWidth, s.MaxHeight)
	}
	if c := s.Crop; c != nil {
		if c.AspectW < 0 || c.AspectH < 0 || (c.AspectW > 0) != (c.AspectH > 0) {
			return fmt.Errorf("%w: crop aspect %g:%g", geometry.ErrInvalidSettings, c.AspectW, c.AspectH)
		}
		if c.OutW < 0 || c.OutH < 0 {
			return fmt.Errorf("%w: output resolution %dx%d", geometry.ErrInvalidSettings, c.OutW, c.OutH)
		}
	}
	if s.Icon != nil {
		for _, size := range s.Icon.Sizes {
			if size < 1 || size > 1024 {
				return fmt.Errorf("%w: icon size %d", geometry.ErrInvalidSettings, size)
			}
		}
	}
	return nil
}

// sourceFormat resolves the input kind from magic bytes, falling back to
// the declared MIME type and then the file extension.
func sourceFormat(a Asset) schema.Format {
	if f := raster.Detect(a.Data); f != schema.FormatUnknown {
		return f
	}
	if f := schema.ParseFormat(a.MIME); f != schema.FormatUnknown {
		return f
	}
	return schema.ParseFormat(filepath.Ext(a.Name))
}

// outputName derives the artifact file name: original base name plus the
// canonical extension for the output kind. Icon export in multiple mode
// substitutes the archive extension since that path produces a zip.
func outputName(sourceName string, s schema.ConversionSettings, archive bool) string {
	ext := s.Format.Ext()
	if archive {
		ext = ".zip"
	}
	return baseName(sourceName) + ext
}

func baseName(name string) string {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." {
		base = "converted"
	}
	return base
}

// Classify maps a pipeline error onto the event schema's failure types.
func Classify(err error) schema.FailureType {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, geometry.ErrInvalidSettings),
		errors.Is(err, raster.ErrInvalidCrop),
		errors.Is(err, dispatch.ErrUnsupportedConversion),
		errors.Is(err, raster.ErrUnsupportedFormat):
		return schema.FailureTypeValidation
	}
	var de *raster.DecodeError
	if errors.As(err, &de) {
		return schema.FailureTypePermanent
	}
	return schema.FailureTypeRetryable
}
