// Package domain provides shared domain-level sentinel errors and request validation.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates the write collides with existing data, such as a
// duplicate name or email.
var ErrConflict = errors.New("conflict")

// ErrValidation indicates a request failed input validation.
var ErrValidation = errors.New("validation failed")
