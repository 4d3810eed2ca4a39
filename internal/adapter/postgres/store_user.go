package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/Tally/internal/domain/user"
)

const userColumns = `id, name, email, created_at, updated_at`

func scanUser(row scannable) (user.User, error) {
	var u user.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (s *Store) ListUsers(ctx context.Context) ([]user.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return orEmpty(users), rows.Err()
}

func (s *Store) GetUser(ctx context.Context, id string) (*user.User, error) {
	if !validID(id) {
		return nil, missing("get user %s", id)
	}
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundWrap(err, "get user %s", id)
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, req *user.CreateRequest) (*user.User, error) {
	now := time.Now().UTC()
	u := user.User{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Email:     req.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, name, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Name, u.Email, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return nil, pgErrWrap(err, "create user: email %s", req.Email)
	}
	return &u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u *user.User) error {
	if !validID(u.ID) {
		return missing("update user %s", u.ID)
	}
	u.UpdatedAt = time.Now().UTC()
	err := s.pool.QueryRow(ctx, `
		UPDATE users SET name = $2, email = $3, updated_at = $4
		WHERE id = $1
		RETURNING created_at`,
		u.ID, u.Name, u.Email, u.UpdatedAt,
	).Scan(&u.CreatedAt)
	if err != nil {
		return notFoundWrap(err, "update user %s", u.ID)
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	if !validID(id) {
		return missing("delete user %s", id)
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	return execExpectOne(tag, err, "delete user %s", id)
}

func (s *Store) EmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	if excludeID != "" && !validID(excludeID) {
		excludeID = ""
	}
	var taken bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM users
			WHERE lower(email) = lower($1) AND ($2::uuid IS NULL OR id <> $2::uuid)
		)`, email, nullIfEmpty(excludeID),
	).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("email taken %s: %w", email, err)
	}
	return taken, nil
}
