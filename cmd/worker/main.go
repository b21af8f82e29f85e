// cmd/worker/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/IRedDragonICY/openloveimage-engine/internal/bus"
	"github.com/IRedDragonICY/openloveimage-engine/internal/engine"
	"github.com/IRedDragonICY/openloveimage-engine/internal/process"
	"github.com/IRedDragonICY/openloveimage-engine/internal/profile"
	"github.com/IRedDragonICY/openloveimage-engine/pkg/schema"
)

type config struct {
	NATSURL       string
	JobSubject    string
	WorkerQueue   string
	ResultSubject string
	OutDir        string
	ProfilesPath  string
	MaxSourceMB   int
}

func LoadConfig() (config, error) {
	cfg := config{
		NATSURL:       getenv("NATS_URL", "nats://127.0.0.1:4222"),
		JobSubject:    getenv("CONVERT_SUBJECT", "images.convert.requested"),
		WorkerQueue:   getenv("CONVERT_QUEUE", "convert-workers"),
		ResultSubject: getenv("SUBJECT_IMAGE_CONVERT_DONE", "images.convert.done"),
		OutDir:        getenv("CONVERT_OUT_DIR", "./data/converted"),
		ProfilesPath:  getenv("CONVERT_PROFILES", ""),
	}

	maxMB, err := parsePositiveInt(getenv("CONVERT_MAX_SOURCE_MB", "256"), "CONVERT_MAX_SOURCE_MB")
	if err != nil {
		return config{}, err
	}
	cfg.MaxSourceMB = maxMB

	return cfg, nil
}

func parsePositiveInt(value string, name string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be greater than zero (got %d)", name, v)
	}
	return v, nil
}

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := LoadConfig()
	if err != nil {
		fatal(logger, "load config", err)
	}
	logger.Info("worker starting", "nats_url", cfg.NATSURL, "job_subject", cfg.JobSubject, "queue", cfg.WorkerQueue, "result_subject", cfg.ResultSubject, "out_dir", cfg.OutDir)

	profiles := profile.Builtin()
	if cfg.ProfilesPath != "" {
		profiles, err = profile.Load(cfg.ProfilesPath)
		if err != nil {
			fatal(logger, "load profiles", err, "path", cfg.ProfilesPath)
		}
		logger.Info("loaded profiles", "path", cfg.ProfilesPath, "profiles", profiles.Names())
	}

	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		fatal(logger, "ensure output directory", err, "out_dir", cfg.OutDir)
	}

	nc, err := bus.Connect(cfg.NATSURL)
	if err != nil {
		fatal(logger, "connect to NATS", err, "nats_url", cfg.NATSURL)
	}
	logger.Info("connected to NATS", "nats_url", cfg.NATSURL)
	defer nc.Close()

	orch := engine.New(engine.WithLogger(logger))

	_, err = nc.QueueSubscribeJSON(cfg.JobSubject, cfg.WorkerQueue, func(ctx context.Context, data []byte) {
		handleRequest(ctx, data, cfg, profiles, orch, nc, logger)
	})
	if err != nil {
		fatal(logger, "subscribe worker", err, "job_subject", cfg.JobSubject, "queue", cfg.WorkerQueue)
	}
	logger.Info("listening for jobs", "subject", cfg.JobSubject, "queue", cfg.WorkerQueue)

	select {}
}

// ProcessingState accumulates the lifecycle trail published alongside the
// final result event.
type ProcessingState struct {
	JobID          string
	SourceFilename string
	StartTime      time.Time
	Lifecycle      []schema.ConversionLifecycleEvent
}

func (ps *ProcessingState) AddLifecycleEvent(stage schema.ProcessingStage, percent int, err error, failureType schema.FailureType) {
	event := schema.ConversionLifecycleEvent{
		JobID:          ps.JobID,
		SourceFilename: ps.SourceFilename,
		Stage:          stage,
		Percent:        percent,
		HappenedAt:     time.Now().Unix(),
	}

	switch stage {
	case schema.StageCompleted, schema.StageFailed, schema.StageCancelled:
		event.ProcessingStart = ps.StartTime.UnixMilli()
		event.ProcessingEnd = time.Now().UnixMilli()
	default:
		if !ps.StartTime.IsZero() {
			event.ProcessingStart = ps.StartTime.UnixMilli()
		}
	}

	if err != nil {
		event.Error = err.Error()
		event.FailureType = failureType
	}

	ps.Lifecycle = append(ps.Lifecycle, event)
}

func (ps *ProcessingState) GetProcessingDuration() int64 {
	if ps.StartTime.IsZero() {
		return 0
	}
	return time.Since(ps.StartTime).Milliseconds()
}

func handleRequest(ctx context.Context, data []byte, cfg config, profiles *profile.File, orch *engine.Orchestrator, nc *bus.Client, logger *slog.Logger) {
	var evt schema.ConversionRequested
	if err := json.Unmarshal(data, &evt); err != nil {
		logger.Warn("discarding malformed request", "err", err)
		return
	}

	jobLogger := logger.With("job_id", evt.ID)
	jobLogger.Info("received job", "filename", evt.Filename, "path", evt.Path, "format", evt.Settings.Format)

	audit := process.NewJob("conversion", evt.ID, evt)
	state := &ProcessingState{JobID: evt.ID, SourceFilename: evt.Filename, StartTime: time.Now()}

	settings := evt.Settings
	if settings.Format == "" {
		resolved, err := profiles.Resolve("")
		if err != nil {
			failJob(nc, cfg, state, audit, evt, err, schema.FailureTypeValidation, jobLogger)
			return
		}
		settings = resolved
	}

	state.AddLifecycleEvent(schema.StageValidation, 0, nil, "")
	publishLifecycleEvent(nc, cfg.ResultSubject, state.Lifecycle[len(state.Lifecycle)-1])

	source, err := readSource(evt, cfg.MaxSourceMB)
	if err != nil {
		failJob(nc, cfg, state, audit, evt, err, engine.Classify(err), jobLogger)
		return
	}

	process.MarkRunning(audit)
	job := engine.NewJob(source, settings)

	err = orch.SubmitOne(ctx, job, func(_, pct int) {
		if pct == 0 || pct >= 100 {
			return
		}
		state.AddLifecycleEvent(stageForPercent(pct), pct, nil, "")
		publishLifecycleEvent(nc, cfg.ResultSubject, state.Lifecycle[len(state.Lifecycle)-1])
	})
	if err != nil {
		failJob(nc, cfg, state, audit, evt, fmt.Errorf("submit job: %w", err), schema.FailureTypeRetryable, jobLogger)
		return
	}

	switch job.Status() {
	case engine.StatusCompleted:
		result, err := persistArtifact(cfg.OutDir, evt.ID, job)
		if err != nil {
			failJob(nc, cfg, state, audit, evt, err, schema.FailureTypeRetryable, jobLogger)
			return
		}
		process.MarkSucceeded(audit)
		state.AddLifecycleEvent(schema.StageCompleted, 100, nil, "")
		publishDone(nc, cfg.ResultSubject, state, evt, []schema.ConversionResult{result}, nil, "")
		jobLogger.Info("completed job", "output", result.Path, "bytes", result.Bytes, "processing_time_ms", state.GetProcessingDuration())

	case engine.StatusCancelled:
		state.AddLifecycleEvent(schema.StageCancelled, job.Progress(), nil, "")
		publishDone(nc, cfg.ResultSubject, state, evt, nil, nil, "")
		jobLogger.Warn("job cancelled before completion")

	default:
		cause := job.Err()
		if cause == nil {
			cause = fmt.Errorf("conversion failed: %s", job.ErrMessage())
		}
		failJob(nc, cfg, state, audit, evt, cause, engine.Classify(cause), jobLogger)
	}
}

// readSource loads the request's source file, refusing anything over the
// configured size ceiling before it lands in memory.
func readSource(evt schema.ConversionRequested, maxMB int) (engine.Asset, error) {
	info, err := os.Stat(evt.Path)
	if err != nil {
		return engine.Asset{}, fmt.Errorf("stat source: %w", err)
	}
	if info.Size() > int64(maxMB)<<20 {
		return engine.Asset{}, fmt.Errorf("source %s exceeds %d MB limit (%d bytes)", evt.Path, maxMB, info.Size())
	}

	data, err := os.ReadFile(evt.Path)
	if err != nil {
		return engine.Asset{}, fmt.Errorf("read source: %w", err)
	}

	name := evt.Filename
	if name == "" {
		name = filepath.Base(evt.Path)
	}
	return engine.Asset{Name: name, Data: data}, nil
}

// persistArtifact writes the produced bytes under the output directory,
// prefixed with the job ID so concurrent jobs for same-named sources never
// collide.
func persistArtifact(outDir, jobID string, job *engine.Job) (schema.ConversionResult, error) {
	artifact := job.Result()
	if job.MergedIntoSibling() || artifact == nil {
		return schema.ConversionResult{
			Filename:          job.Source.Name,
			Format:            string(job.Settings.Format),
			Status:            "processed",
			MergedIntoSibling: true,
		}, nil
	}

	outPath := BuildOutputPath(outDir, jobID, artifact.Name)
	if err := os.WriteFile(outPath, artifact.Data, 0o644); err != nil {
		return schema.ConversionResult{}, fmt.Errorf("write artifact: %w", err)
	}

	return schema.ConversionResult{
		Filename: artifact.Name,
		Path:     outPath,
		Format:   string(job.Settings.Format),
		Bytes:    artifact.Size(),
		Status:   "processed",
	}, nil
}

func BuildOutputPath(outDir, jobID, name string) string {
	base := filepath.Base(name)
	if base == "" || base == "." {
		base = "output"
	}
	return filepath.Join(outDir, jobID+"_"+base)
}

// stageForPercent maps pipeline progress onto the coarse lifecycle stages
// the result subject advertises.
func stageForPercent(pct int) schema.ProcessingStage {
	switch {
	case pct <= 25:
		return schema.StageDecode
	case pct <= 50:
		return schema.StageTransform
	case pct <= 75:
		return schema.StageEncode
	default:
		return schema.StagePackage
	}
}

func failJob(nc *bus.Client, cfg config, state *ProcessingState, audit *process.Job, evt schema.ConversionRequested, cause error, failureType schema.FailureType, logger *slog.Logger) {
	process.MarkFailed(audit, cause)
	state.AddLifecycleEvent(schema.StageFailed, 0, cause, failureType)
	publishDone(nc, cfg.ResultSubject, state, evt, nil, cause, failureType)
	logger.Error("job failed", "err", cause, "failure_type", failureType)
}

func publishLifecycleEvent(nc *bus.Client, subject string, event schema.ConversionLifecycleEvent) {
	if err := nc.PublishJSON(subject+".lifecycle", event); err != nil {
		slog.Error("publish lifecycle event failed", "subject", subject, "stage", event.Stage, "err", err)
	}
}

func publishDone(nc *bus.Client, subject string, state *ProcessingState, evt schema.ConversionRequested, results []schema.ConversionResult, cause error, failureType schema.FailureType) {
	totalProcessed := 0
	totalFailed := 0
	for _, result := range results {
		if result.Status == "processed" {
			totalProcessed++
		} else {
			totalFailed++
		}
	}

	done := schema.ConversionDone{
		ID:               state.JobID,
		SourcePath:       evt.Path,
		TargetFormat:     string(evt.Settings.Format),
		TotalProcessed:   totalProcessed,
		TotalFailed:      totalFailed,
		ProcessingTimeMs: state.GetProcessingDuration(),
		Results:          results,
		Lifecycle:        state.Lifecycle,
		HappenedAt:       time.Now().Unix(),
	}
	if cause != nil {
		done.Error = cause.Error()
		done.FailureType = failureType
	}

	if err := nc.PublishJSON(subject, done); err != nil {
		slog.Error("publish result failed", "subject", subject, "id", state.JobID, "err", err)
	}
}

func fatal(logger *slog.Logger, msg string, err error, attrs ...any) {
	attrs = append(attrs, "err", err)
	logger.Error(msg, attrs...)
	os.Exit(1)
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
