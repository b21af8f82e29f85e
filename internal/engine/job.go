// Package engine owns the conversion job state machine and the batch
// orchestrator driving the format-dispatch pipeline.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/IRedDragonICY/openloveimage-engine/pkg/schema"
)

// Status is the lifecycle state of a conversion job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether no further pipeline work can happen without a
// reset.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusError, StatusCancelled:
		return true
	}
	return false
}

// Asset is an immutable in-memory source binary with its declared identity.
type Asset struct {
	Name string
	MIME string
	Data []byte
}

// Artifact is the produced output binary.
type Artifact struct {
	Name string
	Data []byte
}

// Size returns the artifact byte size.
func (a *Artifact) Size() int64 {
	if a == nil {
		return 0
	}
	return int64(len(a.Data))
}

var errNotPending = errors.New("engine: job is not pending")

// Job wraps one file's conversion lifecycle. Exactly one job exists per
// source asset per batch submission; its settings are a snapshot taken at
// construction and never mutate afterwards. Jobs are mutated only by the
// orchestrator and the pipeline it drives; Cancel and the read accessors
// are safe from other goroutines.
type Job struct {
	ID       uuid.UUID
	Source   Asset
	Settings schema.ConversionSettings

	mu        sync.Mutex
	status    Status
	progress  int
	startedAt time.Time
	result    *Artifact
	errCause  error
	errMsg    string
	merged    bool
	cancel    context.CancelFunc
}

// NewJob snapshots the settings and creates a pending job for the asset.
func NewJob(source Asset, settings schema.ConversionSettings) *Job {
	return &Job{
		ID:       uuid.New(),
		Source:   source,
		Settings: settings.Clone(),
		status:   StatusPending,
	}
}

func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

func (j *Job) Progress() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.progress
}

func (j *Job) StartedAt() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.startedAt
}

// Result returns the artifact when the job completed with its own output.
func (j *Job) Result() *Artifact {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

// ErrMessage returns the human-readable failure detail for StatusError.
func (j *Job) ErrMessage() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.errMsg
}

// Err returns the failure cause for StatusError, nil otherwise.
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.errCause
}

// MergedIntoSibling reports that this job's output was folded into another
// job's document artifact; such a job has no standalone result.
func (j *Job) MergedIntoSibling() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.merged
}

// Cancel requests cancellation. A pending job moves straight to Cancelled
// with no pipeline work; a processing job's token is cancelled and the
// pipeline observes it at the next stage checkpoint. Terminal states are
// unaffected.
func (j *Job) Cancel() {
	j.mu.Lock()
	defer j.mu.Unlock()
	switch j.status {
	case StatusPending:
		j.status = StatusCancelled
	case StatusProcessing:
		if j.cancel != nil {
			j.cancel()
		}
	}
}

// Reset returns a terminal job to Pending, clearing artifact, error and
// progress so it can be resubmitted.
func (j *Job) Reset() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.status.Terminal() {
		return fmt.Errorf("engine: cannot reset job in status %q", j.status)
	}
	j.status = StatusPending
	j.progress = 0
	j.startedAt = time.Time{}
	j.result = nil
	j.errCause = nil
	j.errMsg = ""
	j.merged = false
	j.cancel = nil
	return nil
}

// begin moves Pending to Processing and hands the pipeline a cancellation
// token derived from the batch context. Non-pending jobs (including ones
// cancelled while still queued) are skipped.
func (j *Job) begin(parent context.Context) (context.Context, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != StatusPending {
		return nil, fmt.Errorf("%w: %s", errNotPending, j.status)
	}
	ctx, cancel := context.WithCancel(parent)
	j.status = StatusProcessing
	j.startedAt = time.Now()
	j.progress = 0
	j.cancel = cancel
	return ctx, nil
}

// setProgress keeps the percentage monotonic within a run.
func (j *Job) setProgress(pct int) int {
	j.mu.Lock()
	defer j.mu.Unlock()
	if pct > 100 {
		pct = 100
	}
	if pct > j.progress {
		j.progress = pct
	}
	return j.progress
}

func (j *Job) complete(artifact *Artifact) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.finishLocked()
	j.status = StatusCompleted
	j.progress = 100
	j.result = artifact
	j.errCause = nil
	j.errMsg = ""
}

// completeMerged settles a job whose frames went into a sibling's document.
func (j *Job) completeMerged() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.finishLocked()
	j.status = StatusCompleted
	j.progress = 100
	j.result = nil
	j.merged = true
	j.errCause = nil
	j.errMsg = ""
}

func (j *Job) fail(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.finishLocked()
	j.status = StatusError
	j.result = nil
	j.errCause = err
	if err != nil {
		j.errMsg = err.Error()
	}
}

// cancelled settles the job after the pipeline observed its token. Partial
// buffers were discarded by the caller; no artifact is ever surfaced.
func (j *Job) cancelled() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.finishLocked()
	j.status = StatusCancelled
	j.result = nil
	j.errCause = nil
	j.errMsg = ""
}

func (j *Job) finishLocked() {
	if j.cancel != nil {
		j.cancel()
		j.cancel = nil
	}
}
