package main

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/IRedDragonICY/openloveimage-engine/pkg/schema"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("NATS_URL", "")
	t.Setenv("CONVERT_SUBJECT", "")
	t.Setenv("CONVERT_QUEUE", "")
	t.Setenv("CONVERT_OUT_DIR", "")
	t.Setenv("CONVERT_MAX_SOURCE_MB", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if cfg.NATSURL != "nats://127.0.0.1:4222" {
		t.Fatalf("unexpected NATS URL: %s", cfg.NATSURL)
	}
	if cfg.JobSubject != "images.convert.requested" || cfg.ResultSubject != "images.convert.done" {
		t.Fatalf("unexpected subjects: %s %s", cfg.JobSubject, cfg.ResultSubject)
	}
	if cfg.WorkerQueue != "convert-workers" {
		t.Fatalf("unexpected queue: %s", cfg.WorkerQueue)
	}
	if cfg.OutDir != "./data/converted" {
		t.Fatalf("unexpected out dir: %s", cfg.OutDir)
	}
	if cfg.MaxSourceMB != 256 {
		t.Fatalf("unexpected source limit: %d", cfg.MaxSourceMB)
	}
}

func TestLoadConfigInvalidSourceLimit(t *testing.T) {
	t.Setenv("CONVERT_MAX_SOURCE_MB", "not-a-number")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for invalid CONVERT_MAX_SOURCE_MB")
	}

	t.Setenv("CONVERT_MAX_SOURCE_MB", "0")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for zero CONVERT_MAX_SOURCE_MB")
	}
}

func TestBuildOutputPath(t *testing.T) {
	got := BuildOutputPath("/data/converted", "abc", "photo.webp")
	want := filepath.Join("/data/converted", "abc_photo.webp")
	if got != want {
		t.Fatalf("BuildOutputPath mismatch: got %s want %s", got, want)
	}

	got = BuildOutputPath("/data/converted", "abc", "")
	if filepath.Base(got) != "abc_output" {
		t.Fatalf("expected fallback filename, got %s", got)
	}
}

func TestStageForPercent(t *testing.T) {
	cases := map[int]schema.ProcessingStage{
		10: schema.StageDecode,
		25: schema.StageDecode,
		40: schema.StageTransform,
		75: schema.StageEncode,
		90: schema.StagePackage,
	}
	for pct, want := range cases {
		if got := stageForPercent(pct); got != want {
			t.Fatalf("stageForPercent(%d) = %q, want %q", pct, got, want)
		}
	}
}

func TestProcessingStateLifecycle(t *testing.T) {
	state := &ProcessingState{JobID: "j1", SourceFilename: "a.png"}
	state.AddLifecycleEvent(schema.StageValidation, 0, nil, "")
	state.AddLifecycleEvent(schema.StageFailed, 0, errors.New("boom"), schema.FailureTypePermanent)

	if len(state.Lifecycle) != 2 {
		t.Fatalf("lifecycle events = %d, want 2", len(state.Lifecycle))
	}
	last := state.Lifecycle[1]
	if last.Error != "boom" || last.FailureType != schema.FailureTypePermanent {
		t.Fatalf("failure event not recorded: %+v", last)
	}
	if state.Lifecycle[0].Error != "" {
		t.Fatalf("validation event carries an error: %+v", state.Lifecycle[0])
	}
}
