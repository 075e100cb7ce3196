package state

import (
	"fmt"

	"github.com/dvloznov/financas-voz/internal/domain"
)

func findTransaction(st *State, id string) (int, error) {
	for i, t := range st.Transactions {
		if t.ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
}

func findAppointment(st *State, id string) (int, error) {
	for i, a := range st.Appointments {
		if a.ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("appointment %s: %w", id, ErrNotFound)
}

// ToggleDeleted flips the soft-delete flag of a transaction.
func (s *Store) ToggleDeleted(id string) (domain.Transaction, error) {
	var out domain.Transaction
	_, err := s.mutate(func(st *State) error {
		i, err := findTransaction(st, id)
		if err != nil {
			return err
		}
		st.Transactions[i].IsDeleted = !st.Transactions[i].IsDeleted
		out = st.Transactions[i]
		return nil
	})
	return out, err
}

// ToggleChargeback flips the reversal flag of a transaction. IsDeleted is untouched.
func (s *Store) ToggleChargeback(id string) (domain.Transaction, error) {
	var out domain.Transaction
	_, err := s.mutate(func(st *State) error {
		i, err := findTransaction(st, id)
		if err != nil {
			return err
		}
		st.Transactions[i].IsChargeback = !st.Transactions[i].IsChargeback
		out = st.Transactions[i]
		return nil
	})
	return out, err
}

// ToggleCompleted flips the completion flag of an appointment.
func (s *Store) ToggleCompleted(id string) (domain.Appointment, error) {
	var out domain.Appointment
	_, err := s.mutate(func(st *State) error {
		i, err := findAppointment(st, id)
		if err != nil {
			return err
		}
		st.Appointments[i].IsCompleted = !st.Appointments[i].IsCompleted
		out = st.Appointments[i]
		return nil
	})
	return out, err
}

// RemoveAppointment deletes an appointment for good.
func (s *Store) RemoveAppointment(id string) error {
	_, err := s.mutate(func(st *State) error {
		i, err := findAppointment(st, id)
		if err != nil {
			return err
		}
		st.Appointments = append(st.Appointments[:i], st.Appointments[i+1:]...)
		return nil
	})
	return err
}

// RemoveCategory deletes a category by ID. Transactions keep the name.
func (s *Store) RemoveCategory(id string) error {
	_, err := s.mutate(func(st *State) error {
		for i, c := range st.Categories {
			if c.ID == id {
				st.Categories = append(st.Categories[:i], st.Categories[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("category %s: %w", id, ErrNotFound)
	})
	return err
}

// ClearFilter drops the active filter.
func (s *Store) ClearFilter() State {
	return s.touch(func(st *State) { st.Filter = nil })
}

// SetView switches the screen being shown.
func (s *Store) SetView(v domain.View) State {
	return s.touch(func(st *State) { st.View = v })
}

// Wake moves to the view that matches the mode the user woke the assistant in.
func (s *Store) Wake(mode domain.Mode) State {
	return s.touch(func(st *State) { st.View = domain.ViewForWake(mode, st.View) })
}

// touch changes fields that are not persisted.
func (s *Store) touch(fn func(*State)) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.st)
	s.st.Revision++
	return s.st.Clone()
}

// SetLastMessage records the latest assistant reply.
func (s *Store) SetLastMessage(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.LastMessage = msg
}

// SetSetupComplete records the first-run flag and persists it.
func (s *Store) SetSetupComplete(done bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.st.SetupComplete = done
	if s.persist == nil {
		return nil
	}
	if err := s.persist.SaveSetupComplete(done); err != nil {
		return fmt.Errorf("SetSetupComplete: %w", err)
	}
	return nil
}

// Replace swaps in the three persisted collections, e.g. from a backup.
// Nil slices become empty ones. The filter is cleared.
func (s *Store) Replace(txs []domain.Transaction, cats []domain.Category, appts []domain.Appointment) (State, error) {
	return s.Update(func(st State) State {
		st.Transactions = append([]domain.Transaction{}, txs...)
		st.Categories = append([]domain.Category{}, cats...)
		st.Appointments = append([]domain.Appointment{}, appts...)
		st.Filter = nil
		return st
	})
}
