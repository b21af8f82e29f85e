package process

import (
	"errors"
	"testing"
)

func TestNewJobCapturesInput(t *testing.T) {
	payload := map[string]string{"id": "123"}
	job := NewJob("conversion", "job-1", payload)

	if job.Kind != "conversion" || job.ID != "job-1" {
		t.Fatalf("unexpected job identity: %+v", job)
	}

	got, ok := job.Input.(map[string]string)
	if !ok {
		t.Fatalf("job input type mismatch: %#v", job.Input)
	}
	if got["id"] != "123" {
		t.Fatalf("job input not preserved: %#v", got)
	}
}

func TestMarkFailedSetsStatusAndError(t *testing.T) {
	job := NewJob("conversion", "job-2", nil)
	MarkFailed(job, errors.New("boom"))

	if job.Status != JobStatusFailed {
		t.Fatalf("job status not failed: %v", job.Status)
	}
	if job.Error == "" {
		t.Fatal("job error not recorded")
	}
}

func TestMarkFailedDoesNotOverwriteErrorWhenNil(t *testing.T) {
	job := NewJob("conversion", "job-3", nil)
	MarkFailed(job, nil)

	if job.Status != JobStatusFailed {
		t.Fatalf("job status not failed: %v", job.Status)
	}
	if job.Error != "" {
		t.Fatalf("expected empty error string, got %q", job.Error)
	}
}

func TestDurationRequiresBothTimestamps(t *testing.T) {
	job := NewJob("conversion", "job-4", nil)
	if job.Duration() != 0 {
		t.Fatalf("unstarted job has duration %v", job.Duration())
	}

	MarkRunning(job)
	if job.Duration() != 0 {
		t.Fatalf("running job has duration %v", job.Duration())
	}

	MarkSucceeded(job)
	if job.Duration() < 0 {
		t.Fatalf("negative duration %v", job.Duration())
	}
	if job.Status != JobStatusSucceeded {
		t.Fatalf("job status not succeeded: %v", job.Status)
	}
}
