package dispatch

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/financas-voz/internal/domain"
	"github.com/dvloznov/financas-voz/internal/intent"
	"github.com/dvloznov/financas-voz/internal/state"
)

// MockClassifier is a mock implementation of intent.Classifier for testing.
type MockClassifier struct {
	ClassifyFunc func(ctx context.Context, req intent.Request) (intent.Response, error)
	Requests     []intent.Request
}

func (m *MockClassifier) Classify(ctx context.Context, req intent.Request) (intent.Response, error) {
	m.Requests = append(m.Requests, req)
	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, req)
	}
	return intent.Response{}, errors.New("not implemented")
}

func newTestDispatcher(c intent.Classifier, st state.State) (*Dispatcher, *state.Store) {
	store := state.New(st, nil, zerolog.Nop())
	d := New(c, store, time.UTC, zerolog.Nop())
	d.Now = func() time.Time { return testNow }
	d.NewID = func() string { return "fixed-id" }
	return d, store
}

func TestDispatcher_HandleCommand(t *testing.T) {
	mock := &MockClassifier{
		ClassifyFunc: func(ctx context.Context, req intent.Request) (intent.Response, error) {
			return intent.Response{
				Action: intent.ActionAdd,
				TransactionData: &intent.TransactionData{
					Description: "Mercado", Category: "Alimentação",
					Amount: decimal.NewFromInt(50), Type: domain.TransactionExpense, Date: "2024-03-10",
				},
			}, nil
		},
	}
	d, store := newTestDispatcher(mock, baseState())

	res, err := d.HandleCommand(context.Background(), "gastei 50 reais em mercado")
	if err != nil {
		t.Fatalf("HandleCommand() error = %v", err)
	}
	if res.Action != intent.ActionAdd || res.Message != MsgTransactionAdded || res.View != domain.ViewHistory {
		t.Errorf("result = %+v", res)
	}

	st := store.Snapshot()
	if len(st.Transactions) != 4 || st.Transactions[0].ID != "fixed-id" {
		t.Errorf("transactions = %+v", st.Transactions)
	}
	if st.LastMessage != MsgTransactionAdded {
		t.Errorf("LastMessage = %q", st.LastMessage)
	}
	if len(mock.Requests) != 1 || mock.Requests[0].Text != "gastei 50 reais em mercado" {
		t.Errorf("classifier requests = %+v", mock.Requests)
	}
}

func TestDispatcher_ClassifierFailure(t *testing.T) {
	mock := &MockClassifier{
		ClassifyFunc: func(ctx context.Context, req intent.Request) (intent.Response, error) {
			return intent.Response{}, errors.New("timeout")
		},
	}
	d, store := newTestDispatcher(mock, baseState())
	before := store.Snapshot()

	res, err := d.HandleCommand(context.Background(), "qualquer coisa")
	if err != nil {
		t.Fatalf("HandleCommand() error = %v, classifier errors must be absorbed", err)
	}
	if res.Action != intent.ActionError || res.Message != MsgClassifierFailure {
		t.Errorf("result = %+v", res)
	}

	after := store.Snapshot()
	if len(after.Transactions) != len(before.Transactions) || after.View != before.View {
		t.Error("state changed after classifier failure")
	}
	if after.LastMessage != MsgClassifierFailure {
		t.Errorf("LastMessage = %q", after.LastMessage)
	}
}

func TestBuildRequest(t *testing.T) {
	st := state.State{Categories: domain.DefaultCategories()}
	for i := 0; i < 25; i++ {
		st.Transactions = append(st.Transactions, domain.Transaction{ID: fmt.Sprintf("t%02d", i), IsDeleted: i == 0})
	}
	for i := 0; i < 15; i++ {
		st.Appointments = append(st.Appointments, domain.Appointment{
			ID:   fmt.Sprintf("a%02d", i),
			Date: testNow.AddDate(0, 0, i-2).Format(domain.DateLayout),
		})
	}

	req := BuildRequest("oi", st, testNow)
	if len(req.RecentTransactions) != RecentTransactionsLimit {
		t.Errorf("recent = %d, want %d", len(req.RecentTransactions), RecentTransactionsLimit)
	}
	if req.RecentTransactions[0].ID != "t01" {
		t.Errorf("first recent = %s, want t01 (t00 is deleted)", req.RecentTransactions[0].ID)
	}
	if len(req.Categories) != 12 || req.Categories[0] != "Habitação" {
		t.Errorf("categories = %v", req.Categories)
	}
	if len(req.UpcomingAppointments) != UpcomingAppointmentsLimit {
		t.Fatalf("upcoming = %d, want %d", len(req.UpcomingAppointments), UpcomingAppointmentsLimit)
	}
	if req.UpcomingAppointments[0].ID != "a02" {
		t.Errorf("first upcoming = %s, want a02 (today)", req.UpcomingAppointments[0].ID)
	}
	if !req.Now.Equal(testNow) {
		t.Errorf("Now = %v", req.Now)
	}
}
