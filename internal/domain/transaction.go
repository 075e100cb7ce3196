package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the direction of money for a transaction.
type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	return t == TransactionIncome || t == TransactionExpense
}

// Transaction is a single income or expense entry.
// Category is stored by name, not by ID, so removing a category leaves
// existing transactions pointing at a name that no longer exists.
type Transaction struct {
	ID          string          `json:"id"`
	Date        string          `json:"date"`                // ISO date, optionally with time
	Timestamp   int64           `json:"timestamp,omitempty"` // unix millis, sort key
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TransactionType `json:"type"`

	IsDeleted    bool `json:"isDeleted,omitempty"`    // soft delete
	IsChargeback bool `json:"isChargeback,omitempty"` // refunded / reversed
}

// Active reports whether the transaction counts towards totals.
func (t Transaction) Active() bool {
	return !t.IsDeleted && !t.IsChargeback
}

// Day returns the YYYY-MM-DD part of Date.
func (t Transaction) Day() string {
	if i := strings.IndexByte(t.Date, 'T'); i >= 0 {
		return t.Date[:i]
	}
	if len(t.Date) > len(DateLayout) {
		return t.Date[:len(DateLayout)]
	}
	return t.Date
}

const (
	// DateLayout is the calendar date format used for every persisted date.
	DateLayout = "2006-01-02"
	// TimeLayout is the HH:mm format used for appointment times.
	TimeLayout = "15:04"
)

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

// ParseDateTime parses an ISO date or date-time string.
// A bare date is read as UTC midnight; a date-time without an offset is read in loc.
func ParseDateTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("ParseDateTime: unrecognized date %q", s)
}

// TimestampFromDate derives the millisecond sort key from an ISO date string.
func TimestampFromDate(date string, loc *time.Location) (int64, error) {
	t, err := ParseDateTime(date, loc)
	if err != nil {
		return 0, err
	}
	return t.UnixMilli(), nil
}
