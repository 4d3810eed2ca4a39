// Package group defines the group domain model. A group bundles the
// categories of one budget (e.g. "Household") under a single currency.
package group

import (
	"strings"
	"time"

	"github.com/Strob0t/Tally/internal/domain"
)

// Group is a named budget owned by a user.
type Group struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateRequest is the input for creating a group.
type CreateRequest struct {
	UserID   string `json:"user_id" validate:"required"`
	Name     string `json:"name" validate:"nonblank,max=100,printable"`
	Currency string `json:"currency" validate:"required,iso4217"`
}

// Normalize trims the name and upper-cases the currency code.
func (r *CreateRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
}

// Validate checks that the CreateRequest has all required fields.
func (r *CreateRequest) Validate() error {
	return domain.Validate(r)
}

// UpdateRequest is the input for updating a group. Nil fields are left unchanged.
type UpdateRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitnil,nonblank,max=100,printable"`
	Currency *string `json:"currency,omitempty" validate:"omitnil,iso4217"`
}

// Normalize applies the same canonical forms as CreateRequest.Normalize.
func (r *UpdateRequest) Normalize() {
	if r.Name != nil {
		n := strings.TrimSpace(*r.Name)
		r.Name = &n
	}
	if r.Currency != nil {
		c := strings.ToUpper(strings.TrimSpace(*r.Currency))
		r.Currency = &c
	}
}

// Validate checks the fields that are set.
func (r *UpdateRequest) Validate() error {
	return domain.Validate(r)
}

// Apply copies the set fields onto g.
func (r *UpdateRequest) Apply(g *Group) {
	if r.Name != nil {
		g.Name = *r.Name
	}
	if r.Currency != nil {
		g.Currency = *r.Currency
	}
}
