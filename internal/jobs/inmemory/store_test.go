package inmemory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dvloznov/financas-voz/internal/jobs"
)

func TestStore_SaveAndGet(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	if err := s.SaveJob(ctx, &jobs.Job{}); err == nil {
		t.Error("SaveJob() accepted a job without ID")
	}

	job := &jobs.Job{JobID: "j1", Type: jobs.JobTypeSnapshot, Status: jobs.JobStatusPending}
	if err := s.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob() error = %v", err)
	}
	job.Status = jobs.JobStatusRunning

	got, err := s.GetJob(ctx, "j1")
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if got.Status != jobs.JobStatusPending {
		t.Error("store shares memory with the caller's job")
	}

	if _, err := s.GetJob(ctx, "missing"); !errors.Is(err, jobs.ErrJobNotFound) {
		t.Errorf("GetJob() error = %v, want ErrJobNotFound", err)
	}
}

func TestStore_ListJobs(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, j := range []jobs.Job{
		{JobID: "a", Type: jobs.JobTypeSnapshot, Status: jobs.JobStatusCompleted},
		{JobID: "b", Type: jobs.JobTypeExport, Status: jobs.JobStatusFailed},
		{JobID: "c", Type: jobs.JobTypeSnapshot, Status: jobs.JobStatusPending},
	} {
		j.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		s.SaveJob(ctx, &j)
	}

	tests := []struct {
		name   string
		filter jobs.JobFilter
		want   []string
	}{
		{"all newest first", jobs.JobFilter{}, []string{"c", "b", "a"}},
		{"by type", jobs.JobFilter{Type: jobs.JobTypeSnapshot}, []string{"c", "a"}},
		{"by status", jobs.JobFilter{Status: jobs.JobStatusFailed}, []string{"b"}},
		{"limit", jobs.JobFilter{Limit: 1}, []string{"c"}},
		{"offset", jobs.JobFilter{Offset: 2}, []string{"a"}},
		{"offset past end", jobs.JobFilter{Offset: 5}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListJobs(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListJobs() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d jobs, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].JobID != id {
					t.Errorf("jobs[%d] = %s, want %s", i, got[i].JobID, id)
				}
			}
		})
	}
}

func TestStore_EvictsOldestFinished(t *testing.T) {
	s := NewStoreWithLimit(2)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	done := func(id string, minute int, status jobs.JobStatus) *jobs.Job {
		at := base.Add(time.Duration(minute) * time.Minute)
		return &jobs.Job{JobID: id, Type: jobs.JobTypeSnapshot, Status: status, CreatedAt: base, CompletedAt: &at}
	}

	s.SaveJob(ctx, &jobs.Job{JobID: "running", Status: jobs.JobStatusRunning, CreatedAt: base})
	s.SaveJob(ctx, done("old", 1, jobs.JobStatusCompleted))
	s.SaveJob(ctx, done("mid", 2, jobs.JobStatusFailed))
	if s.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", s.Len())
	}

	s.SaveJob(ctx, done("new", 3, jobs.JobStatusCompleted))
	if s.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", s.Len())
	}
	if _, err := s.GetJob(ctx, "old"); !errors.Is(err, jobs.ErrJobNotFound) {
		t.Errorf("oldest finished job was kept: %v", err)
	}
	for _, id := range []string{"running", "mid", "new"} {
		if _, err := s.GetJob(ctx, id); err != nil {
			t.Errorf("GetJob(%s) error = %v", id, err)
		}
	}
}

func TestStore_NoLimit(t *testing.T) {
	s := NewStoreWithLimit(0)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		s.SaveJob(ctx, &jobs.Job{JobID: string(rune('a' + i)), Status: jobs.JobStatusCompleted})
	}
	if s.Len() != 5 {
		t.Errorf("Len() = %d, want 5", s.Len())
	}
}

func TestJobStatus_Finished(t *testing.T) {
	tests := []struct {
		status jobs.JobStatus
		want   bool
	}{
		{jobs.JobStatusPending, false},
		{jobs.JobStatusRunning, false},
		{jobs.JobStatusRetrying, false},
		{jobs.JobStatusCompleted, true},
		{jobs.JobStatusFailed, true},
	}
	for _, tt := range tests {
		if got := tt.status.Finished(); got != tt.want {
			t.Errorf("%s.Finished() = %v, want %v", tt.status, got, tt.want)
		}
	}
}
