// Package report computes the dashboard figures over the transaction list.
package report

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/financas-voz/internal/domain"
)

const (
	// TopCategories is how many expense categories the summary ranks.
	TopCategories = 5
	// RecentDays is the length of the daily expense series.
	RecentDays = 7
)

// CategoryTotal is the expense total of one category, keyed by lower-cased name.
type CategoryTotal struct {
	Name  string          `json:"name"`
	Total decimal.Decimal `json:"total"`
}

// DailyTotal is the expense total of one calendar day.
type DailyTotal struct {
	Date  string          `json:"date"`
	Total decimal.Decimal `json:"total"`
}

// Summary holds the dashboard figures. Only active transactions count.
type Summary struct {
	Income        decimal.Decimal `json:"income"`
	Expense       decimal.Decimal `json:"expense"`
	Balance       decimal.Decimal `json:"balance"`
	TopCategories []CategoryTotal `json:"topCategories"`
	LastDays      []DailyTotal    `json:"lastDays"`
}

// Summarize builds the summary for the given day. LastDays runs oldest first
// and ends on today.
func Summarize(txs []domain.Transaction, today time.Time) Summary {
	s := Summary{
		Income:        decimal.Zero,
		Expense:       decimal.Zero,
		TopCategories: []CategoryTotal{},
	}

	byCategory := make(map[string]decimal.Decimal)
	byDay := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		if !tx.Active() {
			continue
		}
		switch tx.Type {
		case domain.TransactionIncome:
			s.Income = s.Income.Add(tx.Amount)
		case domain.TransactionExpense:
			s.Expense = s.Expense.Add(tx.Amount)
			name := strings.ToLower(tx.Category)
			byCategory[name] = byCategory[name].Add(tx.Amount)
			byDay[tx.Day()] = byDay[tx.Day()].Add(tx.Amount)
		}
	}
	s.Balance = s.Income.Sub(s.Expense)

	for name, total := range byCategory {
		s.TopCategories = append(s.TopCategories, CategoryTotal{Name: name, Total: total})
	}
	sort.Slice(s.TopCategories, func(i, j int) bool {
		a, b := s.TopCategories[i], s.TopCategories[j]
		if c := a.Total.Cmp(b.Total); c != 0 {
			return c > 0
		}
		return a.Name < b.Name
	})
	if len(s.TopCategories) > TopCategories {
		s.TopCategories = s.TopCategories[:TopCategories]
	}

	s.LastDays = make([]DailyTotal, RecentDays)
	for i := 0; i < RecentDays; i++ {
		day := today.AddDate(0, 0, i-(RecentDays-1)).Format(domain.DateLayout)
		total, ok := byDay[day]
		if !ok {
			total = decimal.Zero
		}
		s.LastDays[i] = DailyTotal{Date: day, Total: total}
	}
	return s
}
