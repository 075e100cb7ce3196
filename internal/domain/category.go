package domain

import "strings"

// CategoryType tells which transaction types a category applies to.
type CategoryType string

const (
	CategoryIncome  CategoryType = "income"
	CategoryExpense CategoryType = "expense"
	CategoryBoth    CategoryType = "both"
)

// Category is a named bucket for transactions. Names are unique ignoring case.
type Category struct {
	ID   string       `json:"id"`
	Name string       `json:"name"`
	Type CategoryType `json:"type"`
}

// SameName compares category names the way the ledger does: case-insensitively.
func SameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// FindCategory returns the index of the category named name, or -1.
func FindCategory(categories []Category, name string) int {
	for i, c := range categories {
		if SameName(c.Name, name) {
			return i
		}
	}
	return -1
}

// CategoryNames lists the names of categories in order.
func CategoryNames(categories []Category) []string {
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = c.Name
	}
	return names
}

// DefaultCategories is the set seeded on first run.
func DefaultCategories() []Category {
	return []Category{
		{ID: "cat_1", Name: "Habitação", Type: CategoryExpense},
		{ID: "cat_2", Name: "Alimentação", Type: CategoryExpense},
		{ID: "cat_3", Name: "Transporte", Type: CategoryExpense},
		{ID: "cat_4", Name: "Saúde", Type: CategoryExpense},
		{ID: "cat_5", Name: "Educação", Type: CategoryExpense},
		{ID: "cat_6", Name: "Vestuário e Cuidados", Type: CategoryExpense},
		{ID: "cat_7", Name: "Lazer e Entretenimento", Type: CategoryExpense},
		{ID: "cat_8", Name: "Despesas Pessoais", Type: CategoryExpense},
		{ID: "cat_9", Name: "Serviços Financeiros", Type: CategoryExpense},
		{ID: "cat_10", Name: "Investimentos", Type: CategoryExpense},
		{ID: "cat_11", Name: "Salário", Type: CategoryIncome},
		{ID: "cat_12", Name: "Outros", Type: CategoryBoth},
	}
}
