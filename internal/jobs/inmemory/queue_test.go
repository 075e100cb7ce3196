package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/financas-voz/internal/jobs"
)

func waitForStatus(t *testing.T, store *Store, jobID string, want jobs.JobStatus) *jobs.Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetJob(context.Background(), jobID)
		if err == nil && job.Status == want {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	job, _ := store.GetJob(context.Background(), jobID)
	t.Fatalf("job %s never reached %s, last state %+v", jobID, want, job)
	return nil
}

func newTestQueue(t *testing.T, handler jobs.JobHandler) (*Queue, *Store) {
	t.Helper()
	store := NewStore()
	q := NewQueue(10, 2, store, zerolog.Nop())
	q.Backoff = func(int) time.Duration { return 0 }
	if err := q.Start(context.Background(), handler); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { q.Close() })
	return q, store
}

func TestQueue_Completes(t *testing.T) {
	q, store := newTestQueue(t, func(ctx context.Context, job *jobs.Job) error {
		job.Result = "gs://bucket/snapshots/x.json"
		return nil
	})

	job := &jobs.Job{Type: jobs.JobTypeSnapshot}
	if err := q.Publish(context.Background(), job); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if job.JobID == "" || job.MaxRetries != DefaultMaxRetries {
		t.Errorf("Publish did not fill defaults: %+v", job)
	}

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	if done.Result != "gs://bucket/snapshots/x.json" {
		t.Errorf("Result = %q", done.Result)
	}
	if done.StartedAt == nil || done.CompletedAt == nil {
		t.Error("timestamps not recorded")
	}
}

func TestQueue_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	q, store := newTestQueue(t, func(ctx context.Context, job *jobs.Job) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			return errors.New("transient")
		}
		return nil
	})

	job := &jobs.Job{Type: jobs.JobTypeExport}
	if err := q.Publish(context.Background(), job); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	if done.RetryCount != 1 || done.Error != "" {
		t.Errorf("RetryCount = %d, Error = %q", done.RetryCount, done.Error)
	}
}

func TestQueue_FailsAfterMaxRetries(t *testing.T) {
	var calls int32
	q, store := newTestQueue(t, func(ctx context.Context, job *jobs.Job) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("bucket missing")
	})

	job := &jobs.Job{Type: jobs.JobTypeSnapshot, MaxRetries: 2}
	if err := q.Publish(context.Background(), job); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	failed := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	if failed.Error != "bucket missing" {
		t.Errorf("Error = %q", failed.Error)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("handler called %d times, want 3", got)
	}
}

func TestQueue_PublishValidation(t *testing.T) {
	q := NewQueue(1, 1, nil, zerolog.Nop())

	if err := q.Publish(context.Background(), &jobs.Job{Type: "reindex"}); err == nil {
		t.Error("Publish() accepted an unknown job type")
	}

	q.Close()
	if err := q.Publish(context.Background(), &jobs.Job{Type: jobs.JobTypeSnapshot}); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Publish() after Close error = %v, want ErrQueueClosed", err)
	}
	if err := q.Start(context.Background(), nil); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Start() after Close error = %v, want ErrQueueClosed", err)
	}
}
