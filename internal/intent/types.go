// Package intent defines the contract between a spoken command and the
// structured action the assistant applies for it.
package intent

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/financas-voz/internal/domain"
)

// Action selects what the dispatcher does with a response.
type Action string

const (
	ActionAdd            Action = "add"
	ActionQuery          Action = "query"
	ActionFilter         Action = "filter"
	ActionClearFilter    Action = "clear_filter"
	ActionAddCategory    Action = "add_category"
	ActionRemoveCategory Action = "remove_category"
	ActionListCategories Action = "list_categories"
	ActionAddAppointment Action = "add_appointment"
	ActionQueryAgenda    Action = "query_agenda"
	ActionReverseLast    Action = "reverse_last_transaction"
	ActionError          Action = "error"
)

// Actions lists every action in the order the model is told about them.
var Actions = []Action{
	ActionAdd, ActionQuery, ActionFilter, ActionClearFilter,
	ActionAddCategory, ActionRemoveCategory, ActionListCategories,
	ActionAddAppointment, ActionQueryAgenda, ActionReverseLast, ActionError,
}

// TransactionData is the payload of an add action.
type TransactionData struct {
	Description string                 `json:"description"`
	Category    string                 `json:"category"`
	Amount      decimal.Decimal        `json:"amount"`
	Type        domain.TransactionType `json:"type"`
	Date        string                 `json:"date,omitempty"`
}

// CategoryData is the payload of add_category and remove_category.
type CategoryData struct {
	Name string              `json:"name"`
	Type domain.CategoryType `json:"type,omitempty"`
}

// AppointmentData is the payload of add_appointment.
type AppointmentData struct {
	Title         string        `json:"title"`
	Description   string        `json:"description,omitempty"`
	Date          string        `json:"date"`
	Time          string        `json:"time"`
	Repeat        domain.Repeat `json:"repeat,omitempty"`
	RepeatEndDate string        `json:"repeatEndDate,omitempty"`
}

// Response is the structured intent returned by a Classifier.
// Only Action is required; the payload that goes with it may be missing.
type Response struct {
	Action          Action                 `json:"action"`
	TransactionData *TransactionData       `json:"transactionData,omitempty"`
	CategoryData    *CategoryData          `json:"categoryData,omitempty"`
	AppointmentData *AppointmentData       `json:"appointmentData,omitempty"`
	FilterCriteria  *domain.FilterCriteria `json:"filterCriteria,omitempty"`
	Message         string                 `json:"message,omitempty"`
}

// Request is everything the classifier gets to see for one utterance.
type Request struct {
	Text                 string
	RecentTransactions   []domain.Transaction // active only, newest first, at most 20
	Categories           []string
	UpcomingAppointments []domain.Appointment // at most 10, soonest first
	Now                  time.Time
}

// Classifier maps free text plus context to a Response.
type Classifier interface {
	Classify(ctx context.Context, req Request) (Response, error)
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(ctx context.Context, req Request) (Response, error)

// Classify calls f.
func (f ClassifierFunc) Classify(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}
