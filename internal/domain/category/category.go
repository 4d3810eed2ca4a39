// Package category defines the category domain model. Entries are booked
// against a category, and the category kind decides whether they count as
// income or expense.
package category

import (
	"strings"
	"time"

	"github.com/Strob0t/Tally/internal/domain"
)

// Kind tells whether the entries of a category add to or subtract from a balance.
type Kind string

const (
	KindExpense Kind = "expense"
	KindIncome  Kind = "income"
)

// Category groups entries within a group.
type Category struct {
	ID        string    `json:"id"`
	GroupID   string    `json:"group_id"`
	Name      string    `json:"name"`
	Kind      Kind      `json:"kind"`
	Color     string    `json:"color,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateRequest is the input for creating a category.
type CreateRequest struct {
	GroupID string `json:"group_id" validate:"required"`
	Name    string `json:"name" validate:"nonblank,max=60,printable"`
	Kind    Kind   `json:"kind" validate:"required,oneof=expense income"`
	Color   string `json:"color,omitempty" validate:"omitempty,hexcolor"`
}

// Normalize trims the name. An empty kind defaults to expense.
func (r *CreateRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	if r.Kind == "" {
		r.Kind = KindExpense
	}
}

// Validate checks that the CreateRequest has all required fields.
func (r *CreateRequest) Validate() error {
	return domain.Validate(r)
}

// UpdateRequest is the input for updating a category. Nil fields are left unchanged.
type UpdateRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitnil,nonblank,max=60,printable"`
	Kind  *Kind   `json:"kind,omitempty" validate:"omitnil,oneof=expense income"`
	// Color set to "" clears the colour.
	Color *string `json:"color,omitempty" validate:"omitzero,hexcolor"`
}

// Normalize trims the name and colour if set.
func (r *UpdateRequest) Normalize() {
	if r.Name != nil {
		n := strings.TrimSpace(*r.Name)
		r.Name = &n
	}
	if r.Color != nil {
		c := strings.TrimSpace(*r.Color)
		r.Color = &c
	}
}

// Validate checks the fields that are set.
func (r *UpdateRequest) Validate() error {
	return domain.Validate(r)
}

// Apply copies the set fields onto c.
func (r *UpdateRequest) Apply(c *Category) {
	if r.Name != nil {
		c.Name = *r.Name
	}
	if r.Kind != nil {
		c.Kind = *r.Kind
	}
	if r.Color != nil {
		c.Color = *r.Color
	}
}

// NameKey returns the canonical form used for the per-group uniqueness check.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
