package backup

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/financas-voz/internal/domain"
	"github.com/dvloznov/financas-voz/internal/jobs"
	"github.com/dvloznov/financas-voz/internal/state"
)

// StateSource provides the state to back up. A read error fails the job
// rather than backing up partial data.
type StateSource interface {
	ReadState() (state.State, error)
}

// Runner executes backup jobs against the configured targets. Either target
// may be nil.
type Runner struct {
	source      StateSource
	snapshotter *Snapshotter
	exporter    *Exporter
	log         zerolog.Logger

	Now func() time.Time
}

// NewRunner creates a Runner.
func NewRunner(source StateSource, snapshotter *Snapshotter, exporter *Exporter, log zerolog.Logger) *Runner {
	return &Runner{
		source:      source,
		snapshotter: snapshotter,
		exporter:    exporter,
		log:         log,
		Now:         time.Now,
	}
}

// Enabled reports whether jobs of type t can run.
func (r *Runner) Enabled(t jobs.JobType) bool {
	switch t {
	case jobs.JobTypeSnapshot:
		return r.snapshotter != nil
	case jobs.JobTypeExport:
		return r.exporter != nil
	default:
		return false
	}
}

// Handle implements jobs.JobHandler.
func (r *Runner) Handle(ctx context.Context, job *jobs.Job) error {
	if !r.Enabled(job.Type) {
		return fmt.Errorf("Handle: %s: %w", job.Type, ErrNotConfigured)
	}

	st, err := r.source.ReadState()
	if err != nil {
		return fmt.Errorf("Handle: reading state: %w", err)
	}
	now := r.Now()

	switch job.Type {
	case jobs.JobTypeSnapshot:
		uri, err := r.snapshotter.Upload(ctx, NewSnapshot(st, now))
		if err != nil {
			return fmt.Errorf("Handle: %w", err)
		}
		job.Result = uri

	case jobs.JobTypeExport:
		n, err := r.exporter.Export(ctx, st.Transactions, job.JobID, now)
		if err != nil {
			return fmt.Errorf("Handle: %w", err)
		}
		job.Result = strconv.Itoa(n) + " rows"
	}

	r.log.Info().Str("job_id", job.JobID).Str("result", job.Result).Uint64("revision", st.Revision).Msg("Backup finished")
	return nil
}

// Replacer accepts restored collections.
type Replacer interface {
	Replace(txs []domain.Transaction, cats []domain.Category, appts []domain.Appointment) (state.State, error)
}

// Restore loads the snapshot at uri into target.
func Restore(ctx context.Context, s *Snapshotter, target Replacer, uri string) (state.State, error) {
	snap, err := s.Fetch(ctx, uri)
	if err != nil {
		return state.State{}, fmt.Errorf("Restore: %w", err)
	}
	st, err := target.Replace(snap.Transactions, snap.Categories, snap.Appointments)
	if err != nil {
		return st, fmt.Errorf("Restore: %w", err)
	}
	return st, nil
}
