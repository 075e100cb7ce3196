package report

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/financas-voz/internal/domain"
)

func tx(date, category string, amount string, typ domain.TransactionType) domain.Transaction {
	return domain.Transaction{
		Date:     date,
		Category: category,
		Amount:   decimal.RequireFromString(amount),
		Type:     typ,
	}
}

func TestSummarize(t *testing.T) {
	today := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)

	deleted := tx("2024-03-10", "Lazer", "1000", domain.TransactionExpense)
	deleted.IsDeleted = true
	chargeback := tx("2024-03-10", "Lazer", "500", domain.TransactionExpense)
	chargeback.IsChargeback = true

	txs := []domain.Transaction{
		tx("2024-03-10T12:00:00Z", "Alimentação", "50.5", domain.TransactionExpense),
		tx("2024-03-09", "alimentação", "20", domain.TransactionExpense),
		tx("2024-03-04", "Transporte", "15", domain.TransactionExpense),
		tx("2024-03-03", "Saúde", "100", domain.TransactionExpense),
		tx("2024-03-01", "Salário", "3000", domain.TransactionIncome),
		deleted,
		chargeback,
	}

	s := Summarize(txs, today)

	if !s.Income.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("Income = %s, want 3000", s.Income)
	}
	if !s.Expense.Equal(decimal.RequireFromString("185.5")) {
		t.Errorf("Expense = %s, want 185.5", s.Expense)
	}
	if !s.Balance.Equal(decimal.RequireFromString("2814.5")) {
		t.Errorf("Balance = %s, want 2814.5", s.Balance)
	}

	wantTop := []string{"saúde", "alimentação", "transporte"}
	if len(s.TopCategories) != len(wantTop) {
		t.Fatalf("TopCategories = %+v", s.TopCategories)
	}
	for i, name := range wantTop {
		if s.TopCategories[i].Name != name {
			t.Errorf("TopCategories[%d] = %q, want %q", i, s.TopCategories[i].Name, name)
		}
	}
	if !s.TopCategories[1].Total.Equal(decimal.RequireFromString("70.5")) {
		t.Errorf("alimentação total = %s, want 70.5 (case-insensitive merge)", s.TopCategories[1].Total)
	}

	if len(s.LastDays) != RecentDays {
		t.Fatalf("LastDays has %d entries", len(s.LastDays))
	}
	if s.LastDays[0].Date != "2024-03-04" || s.LastDays[6].Date != "2024-03-10" {
		t.Errorf("LastDays spans %s..%s", s.LastDays[0].Date, s.LastDays[6].Date)
	}
	wantDaily := map[string]string{"2024-03-04": "15", "2024-03-09": "20", "2024-03-10": "50.5", "2024-03-05": "0"}
	for _, d := range s.LastDays {
		if want, ok := wantDaily[d.Date]; ok && !d.Total.Equal(decimal.RequireFromString(want)) {
			t.Errorf("LastDays[%s] = %s, want %s", d.Date, d.Total, want)
		}
	}
}

func TestSummarize_TopFiveOnly(t *testing.T) {
	var txs []domain.Transaction
	for i, name := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		txs = append(txs, tx("2024-01-01", name, decimal.NewFromInt(int64(i+1)).String(), domain.TransactionExpense))
	}

	s := Summarize(txs, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if len(s.TopCategories) != TopCategories {
		t.Fatalf("got %d categories, want %d", len(s.TopCategories), TopCategories)
	}
	if s.TopCategories[0].Name != "g" || s.TopCategories[4].Name != "c" {
		t.Errorf("TopCategories = %+v", s.TopCategories)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, time.Now())
	if !s.Balance.IsZero() || len(s.TopCategories) != 0 || len(s.LastDays) != RecentDays {
		t.Errorf("unexpected empty summary %+v", s)
	}
}
