package service

import (
	"context"

	"github.com/Strob0t/Tally/internal/cache"
	"github.com/Strob0t/Tally/internal/domain"
	"github.com/Strob0t/Tally/internal/domain/entry"
	"github.com/Strob0t/Tally/internal/port/database"
)

// EntryService handles entry business logic.
type EntryService struct {
	store      database.Store
	cache      *CacheLayer
	categories *CategoryService
}

// NewEntryService creates a new EntryService.
func NewEntryService(store database.Store, layer *CacheLayer, categories *CategoryService) *EntryService {
	return &EntryService{store: store, cache: layer, categories: categories}
}

// List returns the entries of a category matching f, newest first.
func (s *EntryService) List(ctx context.Context, f entry.Filter) ([]entry.Entry, error) {
	if f.CategoryID == "" {
		return nil, domain.Invalid("category_id is required")
	}
	if !f.From.IsZero() && !f.To.IsZero() && !f.From.Before(f.To) {
		return nil, domain.Invalid("from must be before to")
	}
	if _, err := s.categories.Get(ctx, f.CategoryID); err != nil {
		return nil, err
	}

	entries, err := readThrough(ctx, s.cache, cache.Data, entriesKey(f), func(ctx context.Context) ([]entry.Entry, error) {
		return s.store.ListEntries(ctx, f)
	})
	if err != nil {
		return nil, err
	}

	out := make([]entry.Entry, len(entries))
	for i := range entries {
		out[i] = entries[i].Clone()
	}
	return out, nil
}

// Get returns an entry with its line items.
func (s *EntryService) Get(ctx context.Context, id string) (*entry.Entry, error) {
	e, err := readThrough(ctx, s.cache, cache.Data, entryKey(id), func(ctx context.Context) (entry.Entry, error) {
		e, err := s.store.GetEntry(ctx, id)
		if err != nil {
			return entry.Entry{}, err
		}
		return *e, nil
	})
	if err != nil {
		return nil, err
	}
	e = e.Clone()
	return &e, nil
}

// Create books a new entry with its line items.
func (s *EntryService) Create(ctx context.Context, req *entry.CreateRequest) (*entry.Entry, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	st := new(stale)
	if err := s.staleForCategory(ctx, st, req.CategoryID); err != nil {
		return nil, err
	}

	e, err := s.store.CreateEntry(ctx, req)
	if err != nil {
		return nil, err
	}

	s.cache.commit(ctx, st)
	return e, nil
}

// Update applies partial updates to an entry. Moving an entry to another
// category invalidates the figures of both categories.
func (s *EntryService) Update(ctx context.Context, id string, req *entry.UpdateRequest) (*entry.Entry, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	e, err := s.store.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	oldCategory := e.CategoryID
	req.Apply(e)

	st := new(stale).
		key(cache.Data, entryKey(id)).
		key(cache.Calculation, entryTotalKey(id))
	if err := s.staleForCategory(ctx, st, oldCategory); err != nil {
		return nil, err
	}
	if e.CategoryID != oldCategory {
		if err := s.staleForCategory(ctx, st, e.CategoryID); err != nil {
			return nil, err
		}
	}

	if err := s.store.UpdateEntry(ctx, e); err != nil {
		return nil, err
	}

	s.cache.commit(ctx, st)
	return e, nil
}

// Delete removes an entry and its line items.
func (s *EntryService) Delete(ctx context.Context, id string) error {
	e, err := s.store.GetEntry(ctx, id)
	if err != nil {
		return err
	}

	st := new(stale).
		key(cache.Data, entryKey(id)).
		key(cache.Calculation, entryTotalKey(id))
	if err := s.staleForCategory(ctx, st, e.CategoryID); err != nil {
		return err
	}

	if err := s.store.DeleteEntry(ctx, id); err != nil {
		return err
	}

	s.cache.commit(ctx, st)
	return nil
}

// staleForCategory adds everything derived from the entries of a category:
// its entry count, entry lists and total, and its group's balance and
// monthly summaries. It fails with ErrNotFound for an unknown category.
func (s *EntryService) staleForCategory(ctx context.Context, st *stale, categoryID string) error {
	c, err := s.categories.Get(ctx, categoryID)
	if err != nil {
		return err
	}
	st.key(cache.Data, categoryCountKey(categoryID)).
		prefix(cache.Data, entriesByCategoryPrefix(categoryID)).
		key(cache.Calculation, categoryTotalKey(categoryID)).
		key(cache.Calculation, groupBalanceKey(c.GroupID)).
		prefix(cache.Calculation, monthSummariesPrefix(c.GroupID))
	return nil
}
