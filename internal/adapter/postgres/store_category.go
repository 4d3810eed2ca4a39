package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/Tally/internal/domain/category"
)

const categoryColumns = `id, group_id, name, kind, color, created_at, updated_at`

func scanCategory(row scannable) (category.Category, error) {
	var c category.Category
	err := row.Scan(&c.ID, &c.GroupID, &c.Name, &c.Kind, &c.Color, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (s *Store) ListCategories(ctx context.Context, groupID string) ([]category.Category, error) {
	if !validID(groupID) {
		return []category.Category{}, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE group_id = $1 ORDER BY lower(name), id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list categories for group %s: %w", groupID, err)
	}
	defer rows.Close()

	var cats []category.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, c)
	}
	return orEmpty(cats), rows.Err()
}

func (s *Store) GetCategory(ctx context.Context, id string) (*category.Category, error) {
	if !validID(id) {
		return nil, missing("get category %s", id)
	}
	c, err := scanCategory(s.pool.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundWrap(err, "get category %s", id)
	}
	return &c, nil
}

func (s *Store) CreateCategory(ctx context.Context, req *category.CreateRequest) (*category.Category, error) {
	if !validID(req.GroupID) {
		return nil, missing("create category: group %s", req.GroupID)
	}
	now := time.Now().UTC()
	c := category.Category{
		ID:        uuid.NewString(),
		GroupID:   req.GroupID,
		Name:      req.Name,
		Kind:      req.Kind,
		Color:     req.Color,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO categories (id, group_id, name, kind, color, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.GroupID, c.Name, c.Kind, c.Color, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return nil, pgErrWrap(err, "create category %q in group %s", req.Name, req.GroupID)
	}
	return &c, nil
}

// UpdateCategory changes name, kind or color. The owning group is fixed.
func (s *Store) UpdateCategory(ctx context.Context, c *category.Category) error {
	if !validID(c.ID) {
		return missing("update category %s", c.ID)
	}
	c.UpdatedAt = time.Now().UTC()
	err := s.pool.QueryRow(ctx, `
		UPDATE categories SET name = $2, kind = $3, color = $4, updated_at = $5
		WHERE id = $1
		RETURNING group_id, created_at`,
		c.ID, c.Name, c.Kind, c.Color, c.UpdatedAt,
	).Scan(&c.GroupID, &c.CreatedAt)
	if err != nil {
		return notFoundWrap(err, "update category %s", c.ID)
	}
	return nil
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	if !validID(id) {
		return missing("delete category %s", id)
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	return execExpectOne(tag, err, "delete category %s", id)
}

func (s *Store) CategoryNameTaken(ctx context.Context, groupID, name, excludeID string) (bool, error) {
	if !validID(groupID) {
		return false, nil
	}
	if excludeID != "" && !validID(excludeID) {
		excludeID = ""
	}
	var taken bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM categories
			WHERE group_id = $1 AND lower(name) = lower($2)
			  AND ($3::uuid IS NULL OR id <> $3::uuid)
		)`, groupID, category.NameKey(name), nullIfEmpty(excludeID),
	).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("category name taken %q: %w", name, err)
	}
	return taken, nil
}
