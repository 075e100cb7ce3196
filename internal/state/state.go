// Package state holds the application state and serializes every change to it.
package state

import (
	"github.com/dvloznov/financas-voz/internal/domain"
)

// State is a consistent view of everything the assistant knows.
// Values returned by the Store are copies and may be modified freely.
type State struct {
	Transactions  []domain.Transaction   `json:"transactions"` // newest first
	Categories    []domain.Category      `json:"categories"`
	Appointments  []domain.Appointment   `json:"appointments"`
	Filter        *domain.FilterCriteria `json:"filter,omitempty"`
	View          domain.View            `json:"view"`
	LastMessage   string                 `json:"lastMessage,omitempty"`
	SetupComplete bool                   `json:"setupComplete"`
	Revision      uint64                 `json:"revision"`
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := s
	out.Transactions = append([]domain.Transaction(nil), s.Transactions...)
	out.Categories = append([]domain.Category(nil), s.Categories...)
	out.Appointments = append([]domain.Appointment(nil), s.Appointments...)
	if s.Filter != nil {
		f := *s.Filter
		f.Categories = append([]string(nil), s.Filter.Categories...)
		out.Filter = &f
	}
	return out
}

// Visible returns the transactions the active filter lets through, including
// deleted and reversed ones.
func (s State) Visible() []domain.Transaction {
	return s.Filter.Apply(s.Transactions)
}

// Active returns the transactions that count towards totals.
func (s State) Active() []domain.Transaction {
	out := make([]domain.Transaction, 0, len(s.Transactions))
	for _, t := range s.Transactions {
		if t.Active() {
			out = append(out, t)
		}
	}
	return out
}

// RecentActive returns up to n active transactions, newest first.
func (s State) RecentActive(n int) []domain.Transaction {
	active := s.Active()
	if n >= 0 && len(active) > n {
		active = active[:n]
	}
	return active
}
