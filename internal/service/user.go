package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/Strob0t/Tally/internal/cache"
	"github.com/Strob0t/Tally/internal/domain"
	"github.com/Strob0t/Tally/internal/domain/user"
	"github.com/Strob0t/Tally/internal/port/database"
)

// UserService handles user business logic.
type UserService struct {
	store database.Store
	cache *CacheLayer
}

// NewUserService creates a new UserService.
func NewUserService(store database.Store, layer *CacheLayer) *UserService {
	return &UserService{store: store, cache: layer}
}

// List returns all users ordered by name.
func (s *UserService) List(ctx context.Context) ([]user.User, error) {
	users, err := readThrough(ctx, s.cache, cache.Data, usersAllKey, func(ctx context.Context) ([]user.User, error) {
		return s.store.ListUsers(ctx)
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(users), nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*user.User, error) {
	u, err := readThrough(ctx, s.cache, cache.Data, userKey(id), func(ctx context.Context) (user.User, error) {
		u, err := s.store.GetUser(ctx, id)
		if err != nil {
			return user.User{}, err
		}
		return *u, nil
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// EmailAvailable reports whether no user other than excludeID uses email.
// The answer is cached in the Validation category.
func (s *UserService) EmailAvailable(ctx context.Context, email, excludeID string) (bool, error) {
	email = user.NormalizeEmail(email)
	return readThrough(ctx, s.cache, cache.Validation, emailAvailableKey(email, excludeID), func(ctx context.Context) (bool, error) {
		taken, err := s.store.EmailTaken(ctx, email, excludeID)
		return !taken, err
	})
}

// Create registers a new user after validating the request.
func (s *UserService) Create(ctx context.Context, req *user.CreateRequest) (*user.User, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ok, err := s.EmailAvailable(ctx, req.Email, "")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("email %s: %w", req.Email, domain.ErrConflict)
	}

	u, err := s.store.CreateUser(ctx, req)
	if err != nil {
		return nil, err
	}

	s.cache.commit(ctx, new(stale).
		key(cache.Data, usersAllKey).
		prefix(cache.Validation, emailAvailPrefix))
	return u, nil
}

// Update applies partial updates to a user.
func (s *UserService) Update(ctx context.Context, id string, req *user.UpdateRequest) (*user.User, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	req.Apply(u)

	if req.Email != nil {
		ok, err := s.EmailAvailable(ctx, u.Email, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("email %s: %w", u.Email, domain.ErrConflict)
		}
	}

	if err := s.store.UpdateUser(ctx, u); err != nil {
		return nil, err
	}

	st := new(stale).
		key(cache.Data, userKey(id)).
		key(cache.Data, usersAllKey)
	if req.Email != nil {
		st.prefix(cache.Validation, emailAvailPrefix)
	}
	s.cache.commit(ctx, st)
	return u, nil
}

// Delete removes a user together with its groups, categories and entries.
// Everything below the user is invalidated by namespace since the IDs of the
// removed records are not known here.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return err
	}

	s.cache.commit(ctx, new(stale).
		key(cache.Data, userKey(id)).
		key(cache.Data, usersAllKey).
		prefix(cache.Data, groupPrefix).
		prefix(cache.Data, groupsPrefix).
		prefix(cache.Data, categoryPrefix).
		prefix(cache.Data, categoriesPrefix).
		prefix(cache.Data, entryPrefix).
		prefix(cache.Data, entriesPrefix).
		category(cache.Validation).
		category(cache.Calculation))
	return nil
}
