package jobs

import (
	"context"
	"errors"
	"time"
)

// JobType represents the kind of work a job performs.
type JobType string

const (
	// JobTypeSnapshot uploads a JSON snapshot of all collections to GCS.
	JobTypeSnapshot JobType = "snapshot"
	// JobTypeExport appends the transactions to BigQuery.
	JobTypeExport JobType = "export"
)

// Valid reports whether t is a known job type.
func (t JobType) Valid() bool {
	return t == JobTypeSnapshot || t == JobTypeExport
}

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

// Finished reports whether no further attempt will be made.
func (s JobStatus) Finished() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// ErrJobNotFound is returned by a JobStore for an unknown job ID.
var ErrJobNotFound = errors.New("job not found")

// Job is one backup or export run.
type Job struct {
	JobID       string     `json:"job_id"`
	Type        JobType    `json:"type"`
	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Result describes what the job produced, e.g. the snapshot URI.
	Result string `json:"result,omitempty"`
	// Error contains error details if the last attempt failed.
	Error string `json:"error,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`
}

// Publisher enqueues jobs.
type Publisher interface {
	Publish(ctx context.Context, job *Job) error
	Close() error
}

// Consumer runs queued jobs.
type Consumer interface {
	// Start begins consuming jobs, calling handler for each one.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes a job. It may set job.Result. A returned error makes
// the job eligible for a retry.
type JobHandler func(ctx context.Context, job *Job) error

// JobStore records job state so it can be queried while and after jobs run.
type JobStore interface {
	SaveJob(ctx context.Context, job *Job) error
	GetJob(ctx context.Context, jobID string) (*Job, error)
	// ListJobs returns matching jobs, newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*Job, error)
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	Type   JobType
	Status JobStatus

	// Limit limits the number of results.
	Limit int
	// Offset for pagination.
	Offset int
}
