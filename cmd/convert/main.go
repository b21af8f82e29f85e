// cmd/convert is a standalone CLI for running conversions without the
// NATS worker infrastructure. It converts files given on the command line,
// or watches a directory and converts files as they appear.
//
// Usage:
//   ./convert -format webp photo.jpg scan.png
//   ./convert -profile favicon -out ./icons logo.png
//   ./convert -format pdf -merge page1.png page2.png page3.png
//   ./convert -format jpeg -watch ./incoming -out ./converted
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/IRedDragonICY/openloveimage-engine/internal/engine"
	"github.com/IRedDragonICY/openloveimage-engine/internal/profile"
	"github.com/IRedDragonICY/openloveimage-engine/pkg/schema"
)

func main() {
	formatFlag := flag.String("format", "", "Output format (jpeg, png, gif, bmp, webp, tiff, svg, ico, pdf)")
	profileFlag := flag.String("profile", "", "Named settings profile to use instead of individual flags")
	profilesPath := flag.String("profiles", "", "Path to a YAML profiles file (default: built-in profiles)")
	quality := flag.Int("quality", 0, "Output quality 1-100 for lossy formats (default 90)")
	maxWidth := flag.Int("max-width", 0, "Maximum output width in pixels (0 = unbounded)")
	maxHeight := flag.Int("max-height", 0, "Maximum output height in pixels (0 = unbounded)")
	lockAspect := flag.Bool("lock-aspect", true, "Preserve aspect ratio when bounding dimensions")
	merge := flag.Bool("merge", false, "Merge all inputs into one document (pdf output only)")
	outDir := flag.String("out", "", "Output directory (default: alongside each input)")
	watchDir := flag.String("watch", "", "Watch a directory and convert files as they appear")
	verbose := flag.Bool("v", false, "Verbose output")

	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	settings, err := resolveSettings(*profilesPath, *profileFlag, *formatFlag, *quality, *maxWidth, *maxHeight, *lockAspect, *merge)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}

	if *outDir != "" {
		if err := os.MkdirAll(*outDir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Error: create output directory: %v\n", err)
			os.Exit(1)
		}
	}

	orch := engine.New(engine.WithLogger(logger))

	if *watchDir != "" {
		if *outDir == "" {
			fmt.Fprintln(os.Stderr, "Error: -watch requires -out so outputs don't feed back into the watched directory")
			os.Exit(1)
		}
		if err := watchLoop(*watchDir, *outDir, settings, orch, logger); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	inputs := flag.Args()
	if len(inputs) == 0 {
		fmt.Fprintln(os.Stderr, "Error: no input files")
		flag.Usage()
		os.Exit(1)
	}

	failed, err := convertFiles(inputs, *outDir, settings, orch, *verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if failed > 0 {
		os.Exit(1)
	}
}

// resolveSettings builds the conversion settings from a profile or from
// individual flags. Flags given alongside a profile override it.
func resolveSettings(profilesPath, profileName, format string, quality, maxWidth, maxHeight int, lockAspect, merge bool) (schema.ConversionSettings, error) {
	var settings schema.ConversionSettings

	if profileName != "" || format == "" {
		profiles := profile.Builtin()
		if profilesPath != "" {
			loaded, err := profile.Load(profilesPath)
			if err != nil {
				return schema.ConversionSettings{}, err
			}
			profiles = loaded
		}
		resolved, err := profiles.Resolve(profileName)
		if err != nil {
			return schema.ConversionSettings{}, err
		}
		settings = resolved
	}

	if format != "" {
		f := schema.ParseFormat(format)
		if f == schema.FormatUnknown {
			return schema.ConversionSettings{}, fmt.Errorf("unknown format %q", format)
		}
		if !f.Encodable() {
			return schema.ConversionSettings{}, fmt.Errorf("format %q cannot be produced", format)
		}
		settings.Format = f
	}
	if quality > 0 {
		settings.Quality = quality
	}
	if maxWidth > 0 {
		settings.MaxWidth = maxWidth
	}
	if maxHeight > 0 {
		settings.MaxHeight = maxHeight
	}
	settings.LockAspect = lockAspect
	if merge {
		if !settings.Format.IsDocument() {
			return schema.ConversionSettings{}, fmt.Errorf("-merge requires a document output format")
		}
		if settings.Document == nil {
			settings.Document = &schema.DocumentOptions{}
		}
		settings.Document.Merge = true
	}

	return settings, nil
}

// convertFiles runs one batch over the inputs and writes every produced
// artifact. Returns the number of failed jobs.
func convertFiles(inputs []string, outDir string, settings schema.ConversionSettings, orch *engine.Orchestrator, verbose bool) (int, error) {
	jobs := make([]*engine.Job, 0, len(inputs))
	for _, path := range inputs {
		data, err := os.ReadFile(path)
		if err != nil {
			return 0, fmt.Errorf("read %s: %w", path, err)
		}
		jobs = append(jobs, engine.NewJob(engine.Asset{Name: filepath.Base(path), Data: data}, settings))
	}

	start := time.Now()
	var onProgress engine.ProgressFunc
	if verbose {
		onProgress = func(idx, pct int) {
			fmt.Fprintf(os.Stderr, "  %s: %d%%\n", inputs[idx], pct)
		}
	}
	if err := orch.SubmitAll(context.Background(), jobs, onProgress); err != nil {
		return 0, err
	}

	failed := 0
	for i, job := range jobs {
		switch job.Status() {
		case engine.StatusCompleted:
			if job.MergedIntoSibling() {
				if verbose {
					fmt.Printf("✅ %s merged into shared document\n", inputs[i])
				}
				continue
			}
			outPath, err := writeArtifact(inputs[i], outDir, job.Result())
			if err != nil {
				fmt.Fprintf(os.Stderr, "❌ %s: %v\n", inputs[i], err)
				failed++
				continue
			}
			fmt.Printf("✅ %s → %s (%s)\n", inputs[i], outPath, formatBytes(job.Result().Size()))
		default:
			fmt.Fprintf(os.Stderr, "❌ %s: %s\n", inputs[i], job.ErrMessage())
			failed++
		}
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "done in %v\n", time.Since(start).Round(time.Millisecond))
	}
	return failed, nil
}

func writeArtifact(inputPath, outDir string, artifact *engine.Artifact) (string, error) {
	dir := outDir
	if dir == "" {
		dir = filepath.Dir(inputPath)
	}
	outPath := filepath.Join(dir, artifact.Name)
	if sameFile(inputPath, outPath) {
		ext := filepath.Ext(artifact.Name)
		outPath = filepath.Join(dir, strings.TrimSuffix(artifact.Name, ext)+"_converted"+ext)
	}
	if err := os.WriteFile(outPath, artifact.Data, 0o644); err != nil {
		return "", err
	}
	return outPath, nil
}

func sameFile(a, b string) bool {
	aa, err1 := filepath.Abs(a)
	bb, err2 := filepath.Abs(b)
	return err1 == nil && err2 == nil && aa == bb
}

// watchLoop converts files as they land in dir. Events are debounced with
// a short settle delay so half-written files are not picked up.
func watchLoop(dir, outDir string, settings schema.ConversionSettings, orch *engine.Orchestrator, logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	logger.Info("watching directory", "dir", dir, "format", settings.Format)
	fmt.Printf("👀 Watching %s for new files (Ctrl-C to stop)\n", dir)

	handled := make(map[string]time.Time)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !convertibleSource(event.Name, outDir) {
				continue
			}
			// One file save fires several events in a row.
			if last, seen := handled[event.Name]; seen && time.Since(last) < time.Second {
				continue
			}
			handled[event.Name] = time.Now()

			time.Sleep(200 * time.Millisecond)
			if info, err := os.Stat(event.Name); err != nil || info.IsDir() {
				continue
			}
			if _, err := convertFiles([]string{event.Name}, outDir, settings, orch, false); err != nil {
				logger.Warn("conversion failed", "file", event.Name, "err", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "err", err)
		}
	}
}

// convertibleSource filters watch events down to files the pipeline can
// accept, and skips our own outputs when they land in the watched dir.
func convertibleSource(path, outDir string) bool {
	format := schema.ParseFormat(filepath.Ext(path))
	if format == schema.FormatUnknown || format.IsDocument() || format.IsIcon() {
		return false
	}
	if outDir != "" && sameFile(filepath.Dir(path), outDir) {
		return false
	}
	return true
}

// formatBytes formats bytes into human-readable form.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
