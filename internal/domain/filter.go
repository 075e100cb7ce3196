package domain

// FilterCriteria narrows the transaction history. Every field is optional
// and an absent field imposes no constraint.
type FilterCriteria struct {
	Categories []string        `json:"categories,omitempty"`
	Type       TransactionType `json:"type,omitempty"`
	StartDate  string          `json:"startDate,omitempty"` // inclusive
	EndDate    string          `json:"endDate,omitempty"`   // inclusive
}

// Matches reports whether t satisfies all provided criteria.
// Categories match case-insensitively and any one of them is enough.
// Date bounds compare the YYYY-MM-DD part of t.Date as strings.
func (f *FilterCriteria) Matches(t Transaction) bool {
	if f == nil {
		return true
	}
	if len(f.Categories) > 0 {
		found := false
		for _, c := range f.Categories {
			if SameName(c, t.Category) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	day := t.Day()
	if f.StartDate != "" && day < f.StartDate {
		return false
	}
	if f.EndDate != "" && day > f.EndDate {
		return false
	}
	return true
}

// Apply returns the transactions matching f, preserving order.
func (f *FilterCriteria) Apply(txs []Transaction) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if f.Matches(t) {
			out = append(out, t)
		}
	}
	return out
}
