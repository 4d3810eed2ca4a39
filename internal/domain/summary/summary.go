// Package summary defines the derived figures computed from entries.
package summary

import (
	"github.com/shopspring/decimal"

	"github.com/Strob0t/Tally/internal/domain/category"
)

// CategoryTotal is the aggregated amount of one category.
type CategoryTotal struct {
	CategoryID string          `json:"category_id"`
	Name       string          `json:"name"`
	Kind       category.Kind   `json:"kind"`
	Entries    int             `json:"entries"`
	Total      decimal.Decimal `json:"total"`
}

// Month is the per-category breakdown of a group for one calendar month.
type Month struct {
	GroupID    string          `json:"group_id"`
	Month      string          `json:"month"`
	Currency   string          `json:"currency"`
	Income     decimal.Decimal `json:"income"`
	Expense    decimal.Decimal `json:"expense"`
	Net        decimal.Decimal `json:"net"`
	Categories []CategoryTotal `json:"categories"`
}

// Balance is the all-time net of a group: income minus expense.
type Balance struct {
	GroupID  string          `json:"group_id"`
	Currency string          `json:"currency"`
	Income   decimal.Decimal `json:"income"`
	Expense  decimal.Decimal `json:"expense"`
	Net      decimal.Decimal `json:"net"`
}

// Add books amount into the income or expense side depending on kind.
func (b *Balance) Add(kind category.Kind, amount decimal.Decimal) {
	switch kind {
	case category.KindIncome:
		b.Income = b.Income.Add(amount)
	default:
		b.Expense = b.Expense.Add(amount)
	}
	b.Net = b.Income.Sub(b.Expense)
}
