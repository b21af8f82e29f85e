// internal/process/adapter.go

// Package process keeps a minimal audit record per conversion request the
// worker handles, independent of the engine's own job state.
package process

import "time"

// JobStatus represents the lifecycle state of a processing job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// Job captures the metadata the worker tracks for auditing purposes.
type Job struct {
	ID         string
	Kind       string
	Input      any
	Status     JobStatus
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

func NewJob(kind, id string, input any) *Job {
	return &Job{
		ID:     id,
		Kind:   kind,
		Input:  input,
		Status: JobStatusPending,
	}
}

func MarkRunning(j *Job) {
	j.Status = JobStatusRunning
	j.StartedAt = time.Now()
}

func MarkSucceeded(j *Job) {
	j.Status = JobStatusSucceeded
	j.FinishedAt = time.Now()
}

func MarkFailed(j *Job, err error) {
	j.Status = JobStatusFailed
	j.FinishedAt = time.Now()
	if err != nil {
		j.Error = err.Error()
	}
}

// Duration is the wall time between start and finish, zero while the job
// has not run to an end state.
func (j *Job) Duration() time.Duration {
	if j.StartedAt.IsZero() || j.FinishedAt.IsZero() {
		return 0
	}
	return j.FinishedAt.Sub(j.StartedAt)
}
