// Package memory implements database.Store in process memory. It backs the
// "memory" store driver and the service and HTTP tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/Strob0t/Tally/internal/domain"
	"github.com/Strob0t/Tally/internal/domain/category"
	"github.com/Strob0t/Tally/internal/domain/entry"
	"github.com/Strob0t/Tally/internal/domain/group"
	"github.com/Strob0t/Tally/internal/domain/user"
	"github.com/Strob0t/Tally/internal/port/database"
)

var _ database.Store = (*Store)(nil)

// Store keeps all records in maps guarded by one mutex. Records are copied on
// the way in and out so callers never share memory with the store.
type Store struct {
	mu    sync.RWMutex
	clock clockwork.Clock

	users      map[string]user.User
	groups     map[string]group.Group
	categories map[string]category.Category
	entries    map[string]entry.Entry
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return NewStoreWithClock(clockwork.NewRealClock())
}

// NewStoreWithClock creates an empty Store stamping records with clock.
func NewStoreWithClock(clock clockwork.Clock) *Store {
	return &Store{
		clock:      clock,
		users:      make(map[string]user.User),
		groups:     make(map[string]group.Group),
		categories: make(map[string]category.Category),
		entries:    make(map[string]entry.Entry),
	}
}

func (s *Store) now() time.Time {
	return s.clock.Now().UTC()
}

func newID() string {
	return uuid.NewString()
}

func notFound(kind, id string) error {
	return fmt.Errorf("get %s %s: %w", kind, id, domain.ErrNotFound)
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error { return nil }

// --- Users ---

func (s *Store) ListUsers(_ context.Context) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]user.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	slices.SortFunc(out, func(a, b user.User) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (s *Store) GetUser(_ context.Context, id string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, notFound("user", id)
	}
	return &u, nil
}

func (s *Store) CreateUser(_ context.Context, req *user.CreateRequest) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.emailTaken(req.Email, "") {
		return nil, fmt.Errorf("create user: email %s: %w", req.Email, domain.ErrConflict)
	}

	now := s.now()
	u := user.User{ID: newID(), Name: req.Name, Email: req.Email, CreatedAt: now, UpdatedAt: now}
	s.users[u.ID] = u
	return &u, nil
}

func (s *Store) UpdateUser(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.users[u.ID]
	if !ok {
		return fmt.Errorf("update user %s: %w", u.ID, domain.ErrNotFound)
	}
	if s.emailTaken(u.Email, u.ID) {
		return fmt.Errorf("update user %s: email %s: %w", u.ID, u.Email, domain.ErrConflict)
	}
	u.CreatedAt = cur.CreatedAt
	u.UpdatedAt = s.now()
	s.users[u.ID] = *u
	return nil
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return fmt.Errorf("delete user %s: %w", id, domain.ErrNotFound)
	}
	delete(s.users, id)
	for gid, g := range s.groups {
		if g.UserID == id {
			s.deleteGroup(gid)
		}
	}
	return nil
}

func (s *Store) EmailTaken(_ context.Context, email, excludeID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.emailTaken(email, excludeID), nil
}

func (s *Store) emailTaken(email, excludeID string) bool {
	email = user.NormalizeEmail(email)
	for id, u := range s.users {
		if id != excludeID && user.NormalizeEmail(u.Email) == email {
			return true
		}
	}
	return false
}

// --- Groups ---

func (s *Store) ListGroups(_ context.Context, userID string) ([]group.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []group.Group
	for _, g := range s.groups {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	slices.SortFunc(out, func(a, b group.Group) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (s *Store) GetGroup(_ context.Context, id string) (*group.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[id]
	if !ok {
		return nil, notFound("group", id)
	}
	return &g, nil
}

func (s *Store) CreateGroup(_ context.Context, req *group.CreateRequest) (*group.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[req.UserID]; !ok {
		return nil, fmt.Errorf("create group: user %s: %w", req.UserID, domain.ErrNotFound)
	}

	now := s.now()
	g := group.Group{ID: newID(), UserID: req.UserID, Name: req.Name, Currency: req.Currency, CreatedAt: now, UpdatedAt: now}
	s.groups[g.ID] = g
	return &g, nil
}

func (s *Store) UpdateGroup(_ context.Context, g *group.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.groups[g.ID]
	if !ok {
		return fmt.Errorf("update group %s: %w", g.ID, domain.ErrNotFound)
	}
	g.UserID = cur.UserID
	g.CreatedAt = cur.CreatedAt
	g.UpdatedAt = s.now()
	s.groups[g.ID] = *g
	return nil
}

func (s *Store) DeleteGroup(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[id]; !ok {
		return fmt.Errorf("delete group %s: %w", id, domain.ErrNotFound)
	}
	s.deleteGroup(id)
	return nil
}

func (s *Store) deleteGroup(id string) {
	delete(s.groups, id)
	for cid, c := range s.categories {
		if c.GroupID == id {
			s.deleteCategory(cid)
		}
	}
}

// --- Categories ---

func (s *Store) ListCategories(_ context.Context, groupID string) ([]category.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []category.Category
	for _, c := range s.categories {
		if c.GroupID == groupID {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b category.Category) int {
		return strings.Compare(category.NameKey(a.Name), category.NameKey(b.Name))
	})
	return out, nil
}

func (s *Store) GetCategory(_ context.Context, id string) (*category.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.categories[id]
	if !ok {
		return nil, notFound("category", id)
	}
	return &c, nil
}

func (s *Store) CreateCategory(_ context.Context, req *category.CreateRequest) (*category.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[req.GroupID]; !ok {
		return nil, fmt.Errorf("create category: group %s: %w", req.GroupID, domain.ErrNotFound)
	}
	if s.categoryNameTaken(req.GroupID, req.Name, "") {
		return nil, fmt.Errorf("create category: name %q: %w", req.Name, domain.ErrConflict)
	}

	now := s.now()
	c := category.Category{
		ID: newID(), GroupID: req.GroupID, Name: req.Name, Kind: req.Kind, Color: req.Color,
		CreatedAt: now, UpdatedAt: now,
	}
	s.categories[c.ID] = c
	return &c, nil
}

func (s *Store) UpdateCategory(_ context.Context, c *category.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.categories[c.ID]
	if !ok {
		return fmt.Errorf("update category %s: %w", c.ID, domain.ErrNotFound)
	}
	if s.categoryNameTaken(cur.GroupID, c.Name, c.ID) {
		return fmt.Errorf("update category %s: name %q: %w", c.ID, c.Name, domain.ErrConflict)
	}
	c.GroupID = cur.GroupID
	c.CreatedAt = cur.CreatedAt
	c.UpdatedAt = s.now()
	s.categories[c.ID] = *c
	return nil
}

func (s *Store) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[id]; !ok {
		return fmt.Errorf("delete category %s: %w", id, domain.ErrNotFound)
	}
	s.deleteCategory(id)
	return nil
}

func (s *Store) deleteCategory(id string) {
	delete(s.categories, id)
	for eid, e := range s.entries {
		if e.CategoryID == id {
			delete(s.entries, eid)
		}
	}
}

func (s *Store) CategoryNameTaken(_ context.Context, groupID, name, excludeID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.categoryNameTaken(groupID, name, excludeID), nil
}

func (s *Store) categoryNameTaken(groupID, name, excludeID string) bool {
	key := category.NameKey(name)
	for id, c := range s.categories {
		if id != excludeID && c.GroupID == groupID && category.NameKey(c.Name) == key {
			return true
		}
	}
	return false
}

// --- Entries ---

func (s *Store) ListEntries(_ context.Context, f entry.Filter) ([]entry.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []entry.Entry
	for _, e := range s.entries {
		if f.Matches(&e) {
			out = append(out, e.Clone())
		}
	}
	slices.SortFunc(out, compareEntries)
	return out, nil
}

// compareEntries orders newest first, ties broken by creation then ID.
func compareEntries(a, b entry.Entry) int {
	if c := b.OccurredAt.Compare(a.OccurredAt); c != 0 {
		return c
	}
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

func (s *Store) CountEntries(_ context.Context, f entry.Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, e := range s.entries {
		if f.Matches(&e) {
			n++
		}
	}
	return n, nil
}

func (s *Store) GetEntry(_ context.Context, id string) (*entry.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, notFound("entry", id)
	}
	e = e.Clone()
	return &e, nil
}

func (s *Store) CreateEntry(_ context.Context, req *entry.CreateRequest) (*entry.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[req.CategoryID]; !ok {
		return nil, fmt.Errorf("create entry: category %s: %w", req.CategoryID, domain.ErrNotFound)
	}

	now := s.now()
	e := entry.Entry{
		ID:         newID(),
		CategoryID: req.CategoryID,
		Title:      req.Title,
		Note:       req.Note,
		OccurredAt: req.OccurredAt.UTC(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	e.Items = entry.BuildItems(e.ID, req.Items)
	assignItemIDs(e.Items)

	s.entries[e.ID] = e.Clone()
	return &e, nil
}

func (s *Store) UpdateEntry(_ context.Context, e *entry.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.entries[e.ID]
	if !ok {
		return fmt.Errorf("update entry %s: %w", e.ID, domain.ErrNotFound)
	}
	if _, ok := s.categories[e.CategoryID]; !ok {
		return fmt.Errorf("update entry %s: category %s: %w", e.ID, e.CategoryID, domain.ErrNotFound)
	}

	for i := range e.Items {
		e.Items[i].EntryID = e.ID
		e.Items[i].Position = i
	}
	assignItemIDs(e.Items)
	e.CreatedAt = cur.CreatedAt
	e.UpdatedAt = s.now()
	s.entries[e.ID] = e.Clone()
	return nil
}

func (s *Store) DeleteEntry(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return fmt.Errorf("delete entry %s: %w", id, domain.ErrNotFound)
	}
	delete(s.entries, id)
	return nil
}

func assignItemIDs(items []entry.LineItem) {
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = newID()
		}
	}
}
