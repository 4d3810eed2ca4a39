// Package user defines the user domain model. A user owns any number of groups.
package user

import (
	"strings"
	"time"

	"github.com/Strob0t/Tally/internal/domain"
)

// User is a person tracking their finances.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateRequest is the input for registering a new user.
type CreateRequest struct {
	Name  string `json:"name" validate:"nonblank,max=100,printable"`
	Email string `json:"email" validate:"required,email,max=254"`
}

// Validate checks that the CreateRequest has all required fields.
func (r *CreateRequest) Validate() error {
	return domain.Validate(r)
}

// Normalize trims the name and lower-cases the email.
func (r *CreateRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = NormalizeEmail(r.Email)
}

// UpdateRequest is the input for updating an existing user. Nil fields are left unchanged.
type UpdateRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitnil,nonblank,max=100,printable"`
	Email *string `json:"email,omitempty" validate:"omitnil,email,max=254"`
}

// Normalize trims the name and lower-cases the email if set, matching
// CreateRequest.Normalize.
func (r *UpdateRequest) Normalize() {
	if r.Name != nil {
		n := strings.TrimSpace(*r.Name)
		r.Name = &n
	}
	if r.Email != nil {
		e := NormalizeEmail(*r.Email)
		r.Email = &e
	}
}

// Validate checks the fields that are set.
func (r *UpdateRequest) Validate() error {
	return domain.Validate(r)
}

// Apply copies the set fields onto u. Call Normalize first.
func (r *UpdateRequest) Apply(u *User) {
	if r.Name != nil {
		u.Name = *r.Name
	}
	if r.Email != nil {
		u.Email = *r.Email
	}
}

// NormalizeEmail returns the canonical form used for uniqueness checks.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
