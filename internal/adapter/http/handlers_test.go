package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"

	tallyhttp "github.com/Strob0t/Tally/internal/adapter/http"
	"github.com/Strob0t/Tally/internal/adapter/memory"
	"github.com/Strob0t/Tally/internal/cache"
	"github.com/Strob0t/Tally/internal/domain/category"
	"github.com/Strob0t/Tally/internal/domain/entry"
	"github.com/Strob0t/Tally/internal/domain/group"
	"github.com/Strob0t/Tally/internal/domain/summary"
	"github.com/Strob0t/Tally/internal/domain/user"
	"github.com/Strob0t/Tally/internal/service"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

func newTestRouter(t *testing.T) (chi.Router, *tallyhttp.Handlers) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(testNow)
	store := memory.NewStoreWithClock(clock)
	layer := service.NewCacheLayer(cache.New(cache.WithClock(clock)), nil)

	users := service.NewUserService(store, layer)
	groups := service.NewGroupService(store, layer, users)
	categories := service.NewCategoryService(store, layer, groups)
	entries := service.NewEntryService(store, layer, categories)

	h := &tallyhttp.Handlers{
		Users:      users,
		Groups:     groups,
		Categories: categories,
		Entries:    entries,
		Summaries:  service.NewSummaryService(layer, groups, categories, entries),
		Cache:      service.NewCacheService(layer),
		Store:      store,
		Clock:      clock,
	}
	r := chi.NewRouter()
	tallyhttp.MountRoutes(r, h)
	return r, h
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body: %s)", rec.Code, want, rec.Body.String())
	}
}

// seed creates a user, a group and one expense category through the API.
func seed(t *testing.T, r http.Handler) (user.User, group.Group, category.Category) {
	t.Helper()
	rec := do(t, r, http.MethodPost, "/api/v1/users", map[string]string{"name": "Ada", "email": "ada@example.com"})
	expectStatus(t, rec, http.StatusCreated)
	u := decode[user.User](t, rec)

	rec = do(t, r, http.MethodPost, "/api/v1/users/"+u.ID+"/groups", map[string]string{"name": "Household", "currency": "eur"})
	expectStatus(t, rec, http.StatusCreated)
	g := decode[group.Group](t, rec)

	rec = do(t, r, http.MethodPost, "/api/v1/groups/"+g.ID+"/categories", map[string]string{"name": "Food", "kind": "expense"})
	expectStatus(t, rec, http.StatusCreated)
	c := decode[category.Category](t, rec)
	return u, g, c
}

func TestUserLifecycle(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := do(t, r, http.MethodPost, "/api/v1/users", map[string]string{"name": "Ada", "email": "ADA@example.com"})
	expectStatus(t, rec, http.StatusCreated)
	u := decode[user.User](t, rec)
	if u.Email != "ada@example.com" {
		t.Fatalf("email = %q, want normalized", u.Email)
	}

	rec = do(t, r, http.MethodGet, "/api/v1/users/"+u.ID, nil)
	expectStatus(t, rec, http.StatusOK)

	rec = do(t, r, http.MethodPut, "/api/v1/users/"+u.ID, map[string]string{"name": "Ada Lovelace"})
	expectStatus(t, rec, http.StatusOK)
	if got := decode[user.User](t, rec); got.Name != "Ada Lovelace" {
		t.Fatalf("name = %q after update", got.Name)
	}

	rec = do(t, r, http.MethodGet, "/api/v1/users", nil)
	expectStatus(t, rec, http.StatusOK)
	if list := decode[[]user.User](t, rec); len(list) != 1 {
		t.Fatalf("expected 1 user, got %d", len(list))
	}

	rec = do(t, r, http.MethodDelete, "/api/v1/users/"+u.ID, nil)
	expectStatus(t, rec, http.StatusNoContent)
	rec = do(t, r, http.MethodGet, "/api/v1/users/"+u.ID, nil)
	expectStatus(t, rec, http.StatusNotFound)
}

func TestErrorMapping(t *testing.T) {
	r, _ := newTestRouter(t)
	seed(t, r)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"duplicate email", http.MethodPost, "/api/v1/users", map[string]string{"name": "Bob", "email": "ada@example.com"}, http.StatusConflict},
		{"invalid email", http.MethodPost, "/api/v1/users", map[string]string{"name": "Bob", "email": "nope"}, http.StatusBadRequest},
		{"unknown user", http.MethodGet, "/api/v1/users/missing", nil, http.StatusNotFound},
		{"groups of unknown user", http.MethodGet, "/api/v1/users/missing/groups", nil, http.StatusNotFound},
		{"category in unknown group", http.MethodPost, "/api/v1/groups/missing/categories", map[string]string{"name": "Food"}, http.StatusNotFound},
		{"bad month", http.MethodGet, "/api/v1/groups/missing/summary?month=March", nil, http.StatusBadRequest},
		{"availability without email", http.MethodGet, "/api/v1/users/email-available", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectStatus(t, do(t, r, tt.method, tt.path, tt.body), tt.want)
		})
	}
}

func TestMalformedBody(t *testing.T) {
	r, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestBodyLimit(t *testing.T) {
	r, h := newTestRouter(t)
	h.BodyLimit = 16
	// Routes capture the limit when mounted.
	r = chi.NewRouter()
	tallyhttp.MountRoutes(r, h)

	rec := do(t, r, http.MethodPost, "/api/v1/users", map[string]string{"name": strings.Repeat("a", 64), "email": "ada@example.com"})
	expectStatus(t, rec, http.StatusRequestEntityTooLarge)
}

func TestEntriesAndFigures(t *testing.T) {
	r, _ := newTestRouter(t)
	_, g, food := seed(t, r)

	rec := do(t, r, http.MethodPost, "/api/v1/groups/"+g.ID+"/categories", map[string]string{"name": "Salary", "kind": "income"})
	expectStatus(t, rec, http.StatusCreated)
	salary := decode[category.Category](t, rec)

	rec = do(t, r, http.MethodPost, "/api/v1/categories/"+food.ID+"/entries", map[string]any{
		"title":       "Groceries",
		"occurred_at": "2026-03-10T09:00:00Z",
		"items": []map[string]any{
			{"description": "Bread", "amount": "2.50", "quantity": 2},
			{"description": "Milk", "amount": "0.99"},
		},
	})
	expectStatus(t, rec, http.StatusCreated)
	groceries := decode[entry.Entry](t, rec)
	if groceries.CategoryID != food.ID || len(groceries.Items) != 2 {
		t.Fatalf("unexpected entry: %+v", groceries)
	}

	rec = do(t, r, http.MethodPost, "/api/v1/categories/"+salary.ID+"/entries", map[string]any{
		"title":       "March pay",
		"occurred_at": "2026-03-27T00:00:00Z",
		"items":       []map[string]any{{"description": "Salary", "amount": "2000"}},
	})
	expectStatus(t, rec, http.StatusCreated)

	rec = do(t, r, http.MethodGet, "/api/v1/entries/"+groceries.ID+"/total", nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[map[string]string](t, rec)["total"]; got != "5.99" {
		t.Fatalf("entry total = %q, want 5.99", got)
	}

	rec = do(t, r, http.MethodGet, "/api/v1/categories/"+food.ID+"/count", nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[map[string]any](t, rec)["count"]; got != float64(1) {
		t.Fatalf("count = %v, want 1", got)
	}

	rec = do(t, r, http.MethodGet, "/api/v1/groups/"+g.ID+"/balance", nil)
	expectStatus(t, rec, http.StatusOK)
	b := decode[summary.Balance](t, rec)
	if b.Net.String() != "1994.01" || b.Currency != "EUR" {
		t.Fatalf("unexpected balance: %+v", b)
	}

	rec = do(t, r, http.MethodGet, "/api/v1/groups/"+g.ID+"/summary?month=2026-03", nil)
	expectStatus(t, rec, http.StatusOK)
	m := decode[summary.Month](t, rec)
	if m.Month != "2026-03" || len(m.Categories) != 2 || m.Expense.String() != "5.99" {
		t.Fatalf("unexpected month: %+v", m)
	}

	// Without a month the current one is used.
	rec = do(t, r, http.MethodGet, "/api/v1/groups/"+g.ID+"/summary", nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[summary.Month](t, rec).Month; got != "2026-03" {
		t.Fatalf("default month = %q", got)
	}

	rec = do(t, r, http.MethodGet, "/api/v1/categories/"+food.ID+"/entries?month=2026-02", nil)
	expectStatus(t, rec, http.StatusOK)
	if list := decode[[]entry.Entry](t, rec); len(list) != 0 {
		t.Fatalf("expected no entries in February, got %d", len(list))
	}

	rec = do(t, r, http.MethodGet, "/api/v1/categories/"+food.ID+"/entries?from=2026-03-01T00:00:00Z&to=2026-04-01T00:00:00Z", nil)
	expectStatus(t, rec, http.StatusOK)
	if list := decode[[]entry.Entry](t, rec); len(list) != 1 {
		t.Fatalf("expected 1 entry in March, got %d", len(list))
	}

	rec = do(t, r, http.MethodGet, "/api/v1/categories/"+food.ID+"/entries?from=yesterday", nil)
	expectStatus(t, rec, http.StatusBadRequest)

	// Moving the entry shows up in both counts straight away.
	rec = do(t, r, http.MethodPut, "/api/v1/entries/"+groceries.ID, map[string]string{"category_id": salary.ID})
	expectStatus(t, rec, http.StatusOK)
	rec = do(t, r, http.MethodGet, "/api/v1/categories/"+food.ID+"/count", nil)
	if got := decode[map[string]any](t, rec)["count"]; got != float64(0) {
		t.Fatalf("count after move = %v, want 0", got)
	}

	rec = do(t, r, http.MethodDelete, "/api/v1/entries/"+groceries.ID, nil)
	expectStatus(t, rec, http.StatusNoContent)
}

func TestAvailabilityEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)
	_, g, _ := seed(t, r)

	rec := do(t, r, http.MethodGet, "/api/v1/users/email-available?email=ada@example.com", nil)
	expectStatus(t, rec, http.StatusOK)
	if decode[map[string]bool](t, rec)["available"] {
		t.Fatal("expected taken email")
	}

	rec = do(t, r, http.MethodGet, "/api/v1/groups/"+g.ID+"/category-names/available?name=Travel", nil)
	expectStatus(t, rec, http.StatusOK)
	if !decode[map[string]bool](t, rec)["available"] {
		t.Fatal("expected free category name")
	}

	rec = do(t, r, http.MethodGet, "/api/v1/groups/no-such-group/category-names/available?name=Travel", nil)
	expectStatus(t, rec, http.StatusNotFound)
	if msg := decode[map[string]string](t, rec)["error"]; msg != "group not found" {
		t.Fatalf("error = %q", msg)
	}
}

func TestCacheAdmin(t *testing.T) {
	r, _ := newTestRouter(t)
	u, _, _ := seed(t, r)
	expectStatus(t, do(t, r, http.MethodGet, "/api/v1/users/"+u.ID, nil), http.StatusOK)

	rec := do(t, r, http.MethodGet, "/api/v1/admin/cache", nil)
	expectStatus(t, rec, http.StatusOK)
	if st := decode[map[string]int](t, rec); st["total"] == 0 || st["data"] == 0 {
		t.Fatalf("expected warm cache, got %v", st)
	}

	rec = do(t, r, http.MethodPost, "/api/v1/admin/cache/sweep", nil)
	expectStatus(t, rec, http.StatusOK)

	expectStatus(t, do(t, r, http.MethodDelete, "/api/v1/admin/cache", nil), http.StatusNoContent)
	rec = do(t, r, http.MethodGet, "/api/v1/admin/cache", nil)
	if st := decode[map[string]int](t, rec); st["total"] != 0 {
		t.Fatalf("expected empty cache, got %v", st)
	}
}

func TestHealth(t *testing.T) {
	r, h := newTestRouter(t)

	rec := do(t, r, http.MethodGet, "/health", nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[map[string]any](t, rec)["status"]; got != "ok" {
		t.Fatalf("status = %v", got)
	}

	h.BusConnected = func() bool { return false }
	rec = do(t, r, http.MethodGet, "/health", nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[map[string]any](t, rec)["status"]; got != "degraded" {
		t.Fatalf("status = %v, want degraded", got)
	}

	h.Store = failingPinger{}
	expectStatus(t, do(t, r, http.MethodGet, "/health", nil), http.StatusServiceUnavailable)
}
