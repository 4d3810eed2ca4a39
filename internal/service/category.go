package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/Strob0t/Tally/internal/cache"
	"github.com/Strob0t/Tally/internal/domain"
	"github.com/Strob0t/Tally/internal/domain/category"
	"github.com/Strob0t/Tally/internal/domain/entry"
	"github.com/Strob0t/Tally/internal/port/database"
)

// CategoryService handles category business logic.
type CategoryService struct {
	store  database.Store
	cache  *CacheLayer
	groups *GroupService
}

// NewCategoryService creates a new CategoryService.
func NewCategoryService(store database.Store, layer *CacheLayer, groups *GroupService) *CategoryService {
	return &CategoryService{store: store, cache: layer, groups: groups}
}

// List returns the categories of a group.
func (s *CategoryService) List(ctx context.Context, groupID string) ([]category.Category, error) {
	if _, err := s.groups.Get(ctx, groupID); err != nil {
		return nil, err
	}
	cats, err := readThrough(ctx, s.cache, cache.Data, categoriesByGroupKey(groupID), func(ctx context.Context) ([]category.Category, error) {
		return s.store.ListCategories(ctx, groupID)
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(cats), nil
}

// Get returns a category by ID.
func (s *CategoryService) Get(ctx context.Context, id string) (*category.Category, error) {
	c, err := readThrough(ctx, s.cache, cache.Data, categoryKey(id), func(ctx context.Context) (category.Category, error) {
		c, err := s.store.GetCategory(ctx, id)
		if err != nil {
			return category.Category{}, err
		}
		return *c, nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CountEntries returns the number of entries booked against a category.
func (s *CategoryService) CountEntries(ctx context.Context, id string) (int, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return 0, err
	}
	return readThrough(ctx, s.cache, cache.Data, categoryCountKey(id), func(ctx context.Context) (int, error) {
		return s.store.CountEntries(ctx, entry.Filter{CategoryID: id})
	})
}

// NameAvailable reports whether no category other than excludeID in the
// group uses name, ignoring case. The answer is cached in the Validation
// category. An unknown group is ErrNotFound.
func (s *CategoryService) NameAvailable(ctx context.Context, groupID, name, excludeID string) (bool, error) {
	if _, err := s.groups.Get(ctx, groupID); err != nil {
		return false, err
	}
	nk := category.NameKey(name)
	return readThrough(ctx, s.cache, cache.Validation, categoryNameAvailableKey(groupID, nk, excludeID), func(ctx context.Context) (bool, error) {
		taken, err := s.store.CategoryNameTaken(ctx, groupID, nk, excludeID)
		return !taken, err
	})
}

// Create creates a category in an existing group.
func (s *CategoryService) Create(ctx context.Context, req *category.CreateRequest) (*category.Category, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.groups.Get(ctx, req.GroupID); err != nil {
		return nil, err
	}

	ok, err := s.NameAvailable(ctx, req.GroupID, req.Name, "")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("category %q: %w", req.Name, domain.ErrConflict)
	}

	c, err := s.store.CreateCategory(ctx, req)
	if err != nil {
		return nil, err
	}

	// The monthly breakdown lists every category of the group.
	s.cache.commit(ctx, new(stale).
		key(cache.Data, categoriesByGroupKey(c.GroupID)).
		prefix(cache.Validation, categoryNamesPrefix(c.GroupID)).
		prefix(cache.Calculation, monthSummariesPrefix(c.GroupID)))
	return c, nil
}

// Update applies partial updates to a category. Changing the kind moves the
// category's entries between the income and expense side of every figure of
// the group.
func (s *CategoryService) Update(ctx context.Context, id string, req *category.UpdateRequest) (*category.Category, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	req.Apply(c)

	if req.Name != nil {
		ok, err := s.NameAvailable(ctx, c.GroupID, c.Name, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("category %q: %w", c.Name, domain.ErrConflict)
		}
	}

	if err := s.store.UpdateCategory(ctx, c); err != nil {
		return nil, err
	}

	st := new(stale).
		key(cache.Data, categoryKey(id)).
		key(cache.Data, categoriesByGroupKey(c.GroupID)).
		key(cache.Calculation, categoryTotalKey(id)).
		key(cache.Calculation, groupBalanceKey(c.GroupID)).
		prefix(cache.Calculation, monthSummariesPrefix(c.GroupID))
	if req.Name != nil {
		st.prefix(cache.Validation, categoryNamesPrefix(c.GroupID))
	}
	s.cache.commit(ctx, st)
	return c, nil
}

// Delete removes a category together with its entries.
func (s *CategoryService) Delete(ctx context.Context, id string) error {
	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return err
	}

	s.cache.commit(ctx, new(stale).
		key(cache.Data, categoryKey(id)).
		key(cache.Data, categoryCountKey(id)).
		key(cache.Data, categoriesByGroupKey(c.GroupID)).
		prefix(cache.Data, entriesByCategoryPrefix(id)).
		prefix(cache.Data, entryPrefix).
		prefix(cache.Validation, categoryNamesPrefix(c.GroupID)).
		key(cache.Calculation, categoryTotalKey(id)).
		key(cache.Calculation, groupBalanceKey(c.GroupID)).
		prefix(cache.Calculation, monthSummariesPrefix(c.GroupID)).
		prefix(cache.Calculation, entryTotalsPrefix))
	return nil
}
