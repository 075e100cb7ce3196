package state

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dvloznov/financas-voz/internal/domain"
)

// ErrNotFound is returned when an operation names an unknown entity.
var ErrNotFound = errors.New("state: not found")

// Persistence writes the durable collections.
type Persistence interface {
	SaveTransactions(txs []domain.Transaction) error
	SaveCategories(cats []domain.Category) error
	SaveAppointments(appts []domain.Appointment) error
	SaveSetupComplete(done bool) error
}

// Store owns the State. Every mutation runs under one lock, bumps the
// revision and is persisted before the lock is released.
type Store struct {
	mu      sync.Mutex
	st      State
	persist Persistence
	log     zerolog.Logger
}

// New creates a Store seeded with initial. A nil persist keeps state in memory only.
func New(initial State, persist Persistence, log zerolog.Logger) *Store {
	if initial.View == "" {
		initial.View = domain.ViewDashboard
	}
	if initial.Transactions == nil {
		initial.Transactions = []domain.Transaction{}
	}
	if initial.Categories == nil {
		initial.Categories = []domain.Category{}
	}
	if initial.Appointments == nil {
		initial.Appointments = []domain.Appointment{}
	}
	return &Store{st: initial.Clone(), persist: persist, log: log}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.Clone()
}

// ReadState is Snapshot for callers that also accept a Reader. It never fails.
func (s *Store) ReadState() (State, error) {
	return s.Snapshot(), nil
}

// Revision returns the number of mutations applied so far.
func (s *Store) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.Revision
}

// Update replaces the state with fn's result in one step. fn receives a copy.
// The new state is kept even when persisting it fails; the error is returned.
func (s *Store) Update(fn func(State) State) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(fn(s.st.Clone()))
}

// mutate is Update for operations that may fail before anything changes.
func (s *Store) mutate(fn func(*State) error) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.st.Clone()
	if err := fn(&next); err != nil {
		return State{}, err
	}
	return s.commit(next)
}

// commit must be called with mu held.
func (s *Store) commit(next State) (State, error) {
	next.Revision = s.st.Revision + 1
	s.st = next

	err := s.save()
	if err != nil {
		s.log.Error().Err(err).Uint64("revision", next.Revision).Msg("Failed to persist state")
	}
	return s.st.Clone(), err
}

func (s *Store) save() error {
	if s.persist == nil {
		return nil
	}
	var errs []error
	if err := s.persist.SaveTransactions(s.st.Transactions); err != nil {
		errs = append(errs, fmt.Errorf("save: transactions: %w", err))
	}
	if err := s.persist.SaveCategories(s.st.Categories); err != nil {
		errs = append(errs, fmt.Errorf("save: categories: %w", err))
	}
	if err := s.persist.SaveAppointments(s.st.Appointments); err != nil {
		errs = append(errs, fmt.Errorf("save: appointments: %w", err))
	}
	return errors.Join(errs...)
}
