package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/Tally/internal/domain/group"
)

const groupColumns = `id, user_id, name, currency, created_at, updated_at`

func scanGroup(row scannable) (group.Group, error) {
	var g group.Group
	err := row.Scan(&g.ID, &g.UserID, &g.Name, &g.Currency, &g.CreatedAt, &g.UpdatedAt)
	return g, err
}

func (s *Store) ListGroups(ctx context.Context, userID string) ([]group.Group, error) {
	if !validID(userID) {
		return []group.Group{}, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+groupColumns+` FROM groups WHERE user_id = $1 ORDER BY name, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list groups for user %s: %w", userID, err)
	}
	defer rows.Close()

	var groups []group.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, g)
	}
	return orEmpty(groups), rows.Err()
}

func (s *Store) GetGroup(ctx context.Context, id string) (*group.Group, error) {
	if !validID(id) {
		return nil, missing("get group %s", id)
	}
	g, err := scanGroup(s.pool.QueryRow(ctx, `SELECT `+groupColumns+` FROM groups WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundWrap(err, "get group %s", id)
	}
	return &g, nil
}

func (s *Store) CreateGroup(ctx context.Context, req *group.CreateRequest) (*group.Group, error) {
	if !validID(req.UserID) {
		return nil, missing("create group: user %s", req.UserID)
	}
	now := time.Now().UTC()
	g := group.Group{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		Name:      req.Name,
		Currency:  req.Currency,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO groups (id, user_id, name, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		g.ID, g.UserID, g.Name, g.Currency, g.CreatedAt, g.UpdatedAt,
	)
	if err != nil {
		return nil, pgErrWrap(err, "create group: user %s", req.UserID)
	}
	return &g, nil
}

// UpdateGroup renames a group or changes its currency. The owner is fixed.
func (s *Store) UpdateGroup(ctx context.Context, g *group.Group) error {
	if !validID(g.ID) {
		return missing("update group %s", g.ID)
	}
	g.UpdatedAt = time.Now().UTC()
	err := s.pool.QueryRow(ctx, `
		UPDATE groups SET name = $2, currency = $3, updated_at = $4
		WHERE id = $1
		RETURNING user_id, created_at`,
		g.ID, g.Name, g.Currency, g.UpdatedAt,
	).Scan(&g.UserID, &g.CreatedAt)
	if err != nil {
		return notFoundWrap(err, "update group %s", g.ID)
	}
	return nil
}

func (s *Store) DeleteGroup(ctx context.Context, id string) error {
	if !validID(id) {
		return missing("delete group %s", id)
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM groups WHERE id = $1`, id)
	return execExpectOne(tag, err, "delete group %s", id)
}
