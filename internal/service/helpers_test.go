package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"

	"github.com/Strob0t/Tally/internal/adapter/memory"
	"github.com/Strob0t/Tally/internal/cache"
	"github.com/Strob0t/Tally/internal/domain/category"
	"github.com/Strob0t/Tally/internal/domain/entry"
	"github.com/Strob0t/Tally/internal/domain/group"
	"github.com/Strob0t/Tally/internal/domain/user"
	"github.com/Strob0t/Tally/internal/port/database"
	"github.com/Strob0t/Tally/internal/port/eventbus"
)

// Ensure countingStore implements database.Store at compile time.
var _ database.Store = (*countingStore)(nil)

// countingStore wraps the memory store, counts reads and lets tests inject
// failures per operation.
type countingStore struct {
	*memory.Store

	mu    sync.Mutex
	calls map[string]int
	fail  map[string]error
}

func newCountingStore(clock clockwork.Clock) *countingStore {
	return &countingStore{
		Store: memory.NewStoreWithClock(clock),
		calls: make(map[string]int),
		fail:  make(map[string]error),
	}
}

func (s *countingStore) track(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[op]++
	return s.fail[op]
}

func (s *countingStore) count(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *countingStore) failOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[op] = err
}

func (s *countingStore) ListUsers(ctx context.Context) ([]user.User, error) {
	if err := s.track("ListUsers"); err != nil {
		return nil, err
	}
	return s.Store.ListUsers(ctx)
}

func (s *countingStore) GetUser(ctx context.Context, id string) (*user.User, error) {
	if err := s.track("GetUser"); err != nil {
		return nil, err
	}
	return s.Store.GetUser(ctx, id)
}

func (s *countingStore) UpdateUser(ctx context.Context, u *user.User) error {
	if err := s.track("UpdateUser"); err != nil {
		return err
	}
	return s.Store.UpdateUser(ctx, u)
}

func (s *countingStore) EmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	if err := s.track("EmailTaken"); err != nil {
		return false, err
	}
	return s.Store.EmailTaken(ctx, email, excludeID)
}

func (s *countingStore) GetGroup(ctx context.Context, id string) (*group.Group, error) {
	if err := s.track("GetGroup"); err != nil {
		return nil, err
	}
	return s.Store.GetGroup(ctx, id)
}

func (s *countingStore) ListCategories(ctx context.Context, groupID string) ([]category.Category, error) {
	if err := s.track("ListCategories"); err != nil {
		return nil, err
	}
	return s.Store.ListCategories(ctx, groupID)
}

func (s *countingStore) CategoryNameTaken(ctx context.Context, groupID, name, excludeID string) (bool, error) {
	if err := s.track("CategoryNameTaken"); err != nil {
		return false, err
	}
	return s.Store.CategoryNameTaken(ctx, groupID, name, excludeID)
}

func (s *countingStore) ListEntries(ctx context.Context, f entry.Filter) ([]entry.Entry, error) {
	if err := s.track("ListEntries"); err != nil {
		return nil, err
	}
	return s.Store.ListEntries(ctx, f)
}

func (s *countingStore) CountEntries(ctx context.Context, f entry.Filter) (int, error) {
	if err := s.track("CountEntries"); err != nil {
		return 0, err
	}
	return s.Store.CountEntries(ctx, f)
}

func (s *countingStore) GetEntry(ctx context.Context, id string) (*entry.Entry, error) {
	if err := s.track("GetEntry"); err != nil {
		return nil, err
	}
	return s.Store.GetEntry(ctx, id)
}

func (s *countingStore) UpdateEntry(ctx context.Context, e *entry.Entry) error {
	if err := s.track("UpdateEntry"); err != nil {
		return err
	}
	return s.Store.UpdateEntry(ctx, e)
}

func (s *countingStore) DeleteEntry(ctx context.Context, id string) error {
	if err := s.track("DeleteEntry"); err != nil {
		return err
	}
	return s.Store.DeleteEntry(ctx, id)
}

// recordingBus records published invalidations.
type recordingBus struct {
	mu        sync.Mutex
	published []eventbus.Invalidation
	err       error
}

func (b *recordingBus) Publish(_ context.Context, inv eventbus.Invalidation) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, inv)
	return b.err
}

func (b *recordingBus) Subscribe(context.Context, eventbus.Handler) (func(), error) {
	return func() {}, nil
}

func (b *recordingBus) Close() error { return nil }

func (b *recordingBus) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.published)
}

// env bundles a full service graph over a counting memory store.
type env struct {
	clock *clockwork.FakeClock
	store *countingStore
	bus   *recordingBus
	layer *CacheLayer

	users      *UserService
	groups     *GroupService
	categories *CategoryService
	entries    *EntryService
	summaries  *SummaryService
	admin      *CacheService
}

var testStart = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func newEnv(t *testing.T) *env {
	t.Helper()
	clock := clockwork.NewFakeClockAt(testStart)
	store := newCountingStore(clock)
	bus := &recordingBus{}
	layer := NewCacheLayer(cache.New(cache.WithClock(clock)), bus)

	e := &env{clock: clock, store: store, bus: bus, layer: layer}
	e.users = NewUserService(store, layer)
	e.groups = NewGroupService(store, layer, e.users)
	e.categories = NewCategoryService(store, layer, e.groups)
	e.entries = NewEntryService(store, layer, e.categories)
	e.summaries = NewSummaryService(layer, e.groups, e.categories, e.entries)
	e.admin = NewCacheService(layer)
	return e
}

func (e *env) mustUser(t *testing.T, name, email string) *user.User {
	t.Helper()
	u, err := e.users.Create(context.Background(), &user.CreateRequest{Name: name, Email: email})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (e *env) mustGroup(t *testing.T, userID, name string) *group.Group {
	t.Helper()
	g, err := e.groups.Create(context.Background(), &group.CreateRequest{UserID: userID, Name: name, Currency: "eur"})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	return g
}

func (e *env) mustCategory(t *testing.T, groupID, name string, kind category.Kind) *category.Category {
	t.Helper()
	c, err := e.categories.Create(context.Background(), &category.CreateRequest{GroupID: groupID, Name: name, Kind: kind})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	return c
}

func (e *env) mustEntry(t *testing.T, categoryID, title string, at time.Time, amounts ...string) *entry.Entry {
	t.Helper()
	items := make([]entry.LineItemInput, len(amounts))
	for i, a := range amounts {
		items[i] = entry.LineItemInput{Description: title, Amount: decimal.RequireFromString(a), Quantity: 1}
	}
	en, err := e.entries.Create(context.Background(), &entry.CreateRequest{
		CategoryID: categoryID,
		Title:      title,
		OccurredAt: at,
		Items:      items,
	})
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	return en
}

func decEq(t *testing.T, what string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Errorf("%s = %s, want %s", what, got, want)
	}
}
