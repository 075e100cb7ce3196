package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dvloznov/financas-voz/internal/jobs"
)

// DefaultMaxFinished is how many completed or failed jobs NewStore keeps.
const DefaultMaxFinished = 200

// Store keeps job state in memory. Jobs are forgotten on restart, and only
// the most recent finished jobs are kept.
type Store struct {
	mu          sync.RWMutex
	jobs        map[string]*jobs.Job
	maxFinished int
}

// NewStore creates a store keeping DefaultMaxFinished finished jobs.
func NewStore() *Store {
	return NewStoreWithLimit(DefaultMaxFinished)
}

// NewStoreWithLimit creates a store keeping at most maxFinished finished
// jobs. Pending, running and retrying jobs are never evicted. A limit of
// zero or less keeps everything.
func NewStoreWithLimit(maxFinished int) *Store {
	return &Store{
		jobs:        make(map[string]*jobs.Job),
		maxFinished: maxFinished,
	}
}

// SaveJob stores a copy of job.
func (s *Store) SaveJob(ctx context.Context, job *jobs.Job) error {
	if job.JobID == "" {
		return fmt.Errorf("SaveJob: job ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	jobCopy := *job
	s.jobs[job.JobID] = &jobCopy
	if jobCopy.Status.Finished() {
		s.evictLocked()
	}
	return nil
}

// evictLocked drops the oldest finished jobs beyond the limit.
func (s *Store) evictLocked() {
	if s.maxFinished <= 0 {
		return
	}
	var finished []*jobs.Job
	for _, j := range s.jobs {
		if j.Status.Finished() {
			finished = append(finished, j)
		}
	}
	excess := len(finished) - s.maxFinished
	if excess <= 0 {
		return
	}

	sort.Slice(finished, func(i, j int) bool {
		return finishedAt(finished[i]).Before(finishedAt(finished[j]))
	})
	for _, j := range finished[:excess] {
		delete(s.jobs, j.JobID)
	}
}

func finishedAt(j *jobs.Job) time.Time {
	if j.CompletedAt != nil {
		return *j.CompletedAt
	}
	return j.CreatedAt
}

// GetJob returns a copy of the job with the given ID.
func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("GetJob: %s: %w", jobID, jobs.ErrJobNotFound)
	}
	jobCopy := *job
	return &jobCopy, nil
}

// ListJobs returns copies of the matching jobs, newest first.
func (s *Store) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.Job, error) {
	s.mu.RLock()
	result := []*jobs.Job{}
	for _, job := range s.jobs {
		if filter.Type != "" && job.Type != filter.Type {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		jobCopy := *job
		result = append(result, &jobCopy)
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].JobID < result[j].JobID
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []*jobs.Job{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

// Len returns the number of jobs held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

var _ jobs.JobStore = (*Store)(nil)
