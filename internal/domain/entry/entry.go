// Package entry defines entries and their line items. An entry is one booking
// (a receipt, a paycheck) against a category. Its amount is the sum of its
// line items.
package entry

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Strob0t/Tally/internal/domain"
)

// Entry is a single booking against a category.
type Entry struct {
	ID         string     `json:"id"`
	CategoryID string     `json:"category_id"`
	Title      string     `json:"title"`
	Note       string     `json:"note,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
	Items      []LineItem `json:"items"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// LineItem is one position of an entry.
type LineItem struct {
	ID          string          `json:"id"`
	EntryID     string          `json:"entry_id"`
	Position    int             `json:"position"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Quantity    int             `json:"quantity"`
}

// Total returns Amount multiplied by Quantity.
func (li LineItem) Total() decimal.Decimal {
	return li.Amount.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Total returns the sum of all line item totals.
func (e *Entry) Total() decimal.Decimal {
	total := decimal.Zero
	for _, li := range e.Items {
		total = total.Add(li.Total())
	}
	return total
}

// Clone returns a copy of e that shares no line item storage with it.
func (e Entry) Clone() Entry {
	e.Items = slices.Clone(e.Items)
	return e
}

// Sum returns the combined total of entries.
func Sum(entries []Entry) decimal.Decimal {
	total := decimal.Zero
	for i := range entries {
		total = total.Add(entries[i].Total())
	}
	return total
}

// LineItemInput describes a line item in create and update requests.
type LineItemInput struct {
	Description string          `json:"description" validate:"nonblank,max=200,printable"`
	Amount      decimal.Decimal `json:"amount" validate:"gte=0"`
	Quantity    int             `json:"quantity" validate:"gte=0"`
}

// CreateRequest is the input for creating an entry with its line items.
type CreateRequest struct {
	CategoryID string          `json:"category_id" validate:"required"`
	Title      string          `json:"title" validate:"nonblank,max=120,printable"`
	Note       string          `json:"note,omitempty" validate:"max=2000"`
	OccurredAt time.Time       `json:"occurred_at"`
	Items      []LineItemInput `json:"items" validate:"min=1,dive"`
}

// Normalize trims text fields, defaults a zero quantity to 1 and rounds
// amounts to cents.
func (r *CreateRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Note = strings.TrimSpace(r.Note)
	normalizeItems(r.Items)
}

// Validate checks that the CreateRequest has all required fields.
func (r *CreateRequest) Validate() error {
	if err := domain.Validate(r); err != nil {
		return err
	}
	if r.OccurredAt.IsZero() {
		return domain.Invalid("occurred_at is required")
	}
	return nil
}

// UpdateRequest is the input for updating an entry. Nil fields are left
// unchanged; a non-nil Items replaces all line items.
type UpdateRequest struct {
	CategoryID *string          `json:"category_id,omitempty" validate:"omitnil,nonblank"`
	Title      *string          `json:"title,omitempty" validate:"omitnil,nonblank,max=120,printable"`
	Note       *string          `json:"note,omitempty" validate:"omitnil,max=2000"`
	OccurredAt *time.Time       `json:"occurred_at,omitempty"`
	Items      *[]LineItemInput `json:"items,omitempty" validate:"omitnil,min=1,dive"`
}

// Normalize applies the same canonical forms as CreateRequest.Normalize.
func (r *UpdateRequest) Normalize() {
	if r.Title != nil {
		t := strings.TrimSpace(*r.Title)
		r.Title = &t
	}
	if r.Note != nil {
		n := strings.TrimSpace(*r.Note)
		r.Note = &n
	}
	if r.Items != nil {
		normalizeItems(*r.Items)
	}
}

// Validate checks the fields that are set.
func (r *UpdateRequest) Validate() error {
	if err := domain.Validate(r); err != nil {
		return err
	}
	if r.OccurredAt != nil && r.OccurredAt.IsZero() {
		return domain.Invalid("occurred_at must not be zero")
	}
	return nil
}

// Apply copies the set fields onto e.
func (r *UpdateRequest) Apply(e *Entry) {
	if r.CategoryID != nil {
		e.CategoryID = *r.CategoryID
	}
	if r.Title != nil {
		e.Title = *r.Title
	}
	if r.Note != nil {
		e.Note = *r.Note
	}
	if r.OccurredAt != nil {
		e.OccurredAt = r.OccurredAt.UTC()
	}
	if r.Items != nil {
		e.Items = BuildItems(e.ID, *r.Items)
	}
}

// BuildItems turns inputs into line items numbered in input order.
func BuildItems(entryID string, inputs []LineItemInput) []LineItem {
	items := make([]LineItem, len(inputs))
	for i, in := range inputs {
		items[i] = LineItem{
			EntryID:     entryID,
			Position:    i,
			Description: in.Description,
			Amount:      in.Amount,
			Quantity:    in.Quantity,
		}
	}
	return items
}

func normalizeItems(items []LineItemInput) {
	for i := range items {
		items[i].Description = strings.TrimSpace(items[i].Description)
		items[i].Amount = items[i].Amount.Round(2)
		if items[i].Quantity == 0 {
			items[i].Quantity = 1
		}
	}
}

// Filter narrows ListEntries and CountEntries. Zero values match everything.
type Filter struct {
	CategoryID string
	// From is inclusive, To is exclusive.
	From time.Time
	To   time.Time
}

// Matches reports whether e satisfies the filter.
func (f Filter) Matches(e *Entry) bool {
	if f.CategoryID != "" && e.CategoryID != f.CategoryID {
		return false
	}
	if !f.From.IsZero() && e.OccurredAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !e.OccurredAt.Before(f.To) {
		return false
	}
	return true
}

// MonthRange returns the [start, end) interval of the month containing t, in UTC.
func MonthRange(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
