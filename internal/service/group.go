package service

import (
	"context"
	"slices"

	"github.com/Strob0t/Tally/internal/cache"
	"github.com/Strob0t/Tally/internal/domain/group"
	"github.com/Strob0t/Tally/internal/port/database"
)

// GroupService handles group business logic.
type GroupService struct {
	store database.Store
	cache *CacheLayer
	users *UserService
}

// NewGroupService creates a new GroupService.
func NewGroupService(store database.Store, layer *CacheLayer, users *UserService) *GroupService {
	return &GroupService{store: store, cache: layer, users: users}
}

// List returns the groups of a user ordered by name.
func (s *GroupService) List(ctx context.Context, userID string) ([]group.Group, error) {
	if _, err := s.users.Get(ctx, userID); err != nil {
		return nil, err
	}
	groups, err := readThrough(ctx, s.cache, cache.Data, groupsByUserKey(userID), func(ctx context.Context) ([]group.Group, error) {
		return s.store.ListGroups(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(groups), nil
}

// Get returns a group by ID.
func (s *GroupService) Get(ctx context.Context, id string) (*group.Group, error) {
	g, err := readThrough(ctx, s.cache, cache.Data, groupKey(id), func(ctx context.Context) (group.Group, error) {
		g, err := s.store.GetGroup(ctx, id)
		if err != nil {
			return group.Group{}, err
		}
		return *g, nil
	})
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// Create creates a group for an existing user.
func (s *GroupService) Create(ctx context.Context, req *group.CreateRequest) (*group.Group, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.users.Get(ctx, req.UserID); err != nil {
		return nil, err
	}

	g, err := s.store.CreateGroup(ctx, req)
	if err != nil {
		return nil, err
	}

	s.cache.commit(ctx, new(stale).key(cache.Data, groupsByUserKey(g.UserID)))
	return g, nil
}

// Update applies partial updates to a group. A currency change invalidates
// the group's derived figures since they carry the currency.
func (s *GroupService) Update(ctx context.Context, id string, req *group.UpdateRequest) (*group.Group, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	g, err := s.store.GetGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	req.Apply(g)

	if err := s.store.UpdateGroup(ctx, g); err != nil {
		return nil, err
	}

	st := new(stale).
		key(cache.Data, groupKey(id)).
		key(cache.Data, groupsByUserKey(g.UserID))
	if req.Currency != nil {
		st.key(cache.Calculation, groupBalanceKey(id)).
			prefix(cache.Calculation, monthSummariesPrefix(id))
	}
	s.cache.commit(ctx, st)
	return g, nil
}

// Delete removes a group together with its categories and entries.
func (s *GroupService) Delete(ctx context.Context, id string) error {
	g, err := s.store.GetGroup(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteGroup(ctx, id); err != nil {
		return err
	}

	s.cache.commit(ctx, new(stale).
		key(cache.Data, groupKey(id)).
		key(cache.Data, groupsByUserKey(g.UserID)).
		key(cache.Data, categoriesByGroupKey(id)).
		prefix(cache.Data, categoryPrefix).
		prefix(cache.Data, entryPrefix).
		prefix(cache.Data, entriesPrefix).
		prefix(cache.Validation, categoryNamesPrefix(id)).
		category(cache.Calculation))
	return nil
}
