// Package database defines the database store port (interface).
package database

import (
	"context"

	"github.com/Strob0t/Tally/internal/domain/category"
	"github.com/Strob0t/Tally/internal/domain/entry"
	"github.com/Strob0t/Tally/internal/domain/group"
	"github.com/Strob0t/Tally/internal/domain/user"
)

// Store is the port interface for persisting users, groups, categories and
// entries. Single-record writes are atomic; an entry is saved together with
// all of its line items. Missing records yield domain.ErrNotFound and
// uniqueness violations domain.ErrConflict.
//
// Deleting a record deletes everything it owns: users own groups, groups own
// categories, categories own entries.
type Store interface {
	// Users
	ListUsers(ctx context.Context) ([]user.User, error)
	GetUser(ctx context.Context, id string) (*user.User, error)
	CreateUser(ctx context.Context, req *user.CreateRequest) (*user.User, error)
	UpdateUser(ctx context.Context, u *user.User) error
	DeleteUser(ctx context.Context, id string) error
	// EmailTaken reports whether another user than excludeID uses email.
	EmailTaken(ctx context.Context, email, excludeID string) (bool, error)

	// Groups
	ListGroups(ctx context.Context, userID string) ([]group.Group, error)
	GetGroup(ctx context.Context, id string) (*group.Group, error)
	CreateGroup(ctx context.Context, req *group.CreateRequest) (*group.Group, error)
	UpdateGroup(ctx context.Context, g *group.Group) error
	DeleteGroup(ctx context.Context, id string) error

	// Categories
	ListCategories(ctx context.Context, groupID string) ([]category.Category, error)
	GetCategory(ctx context.Context, id string) (*category.Category, error)
	CreateCategory(ctx context.Context, req *category.CreateRequest) (*category.Category, error)
	UpdateCategory(ctx context.Context, c *category.Category) error
	DeleteCategory(ctx context.Context, id string) error
	// CategoryNameTaken reports whether another category than excludeID in
	// groupID has the same name, ignoring case.
	CategoryNameTaken(ctx context.Context, groupID, name, excludeID string) (bool, error)

	// Entries
	ListEntries(ctx context.Context, f entry.Filter) ([]entry.Entry, error)
	CountEntries(ctx context.Context, f entry.Filter) (int, error)
	GetEntry(ctx context.Context, id string) (*entry.Entry, error)
	CreateEntry(ctx context.Context, req *entry.CreateRequest) (*entry.Entry, error)
	UpdateEntry(ctx context.Context, e *entry.Entry) error
	DeleteEntry(ctx context.Context, id string) error

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
}
