package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Strob0t/Tally/internal/domain"
)

func TestPgErrWrap(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unique", &pgconn.PgError{Code: pgUniqueViolation}, domain.ErrConflict},
		{"foreign key", &pgconn.PgError{Code: pgForeignKeyViolation}, domain.ErrNotFound},
		{"no rows", pgx.ErrNoRows, domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := notFoundWrap(tt.err, "op %s", "x")
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}

	other := errors.New("connection refused")
	if err := pgErrWrap(other, "op"); !errors.Is(err, other) || errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unexpected wrap: %v", err)
	}
}

func TestExecExpectOne(t *testing.T) {
	if err := execExpectOne(pgconn.NewCommandTag("DELETE 1"), nil, "delete"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := execExpectOne(pgconn.NewCommandTag("DELETE 0"), nil, "delete"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestValidID(t *testing.T) {
	if !validID("6f1c1d7e-8a44-4c2f-9a0a-3f5b2e1d9c11") {
		t.Fatal("expected UUID to be valid")
	}
	if validID("missing") || validID("") {
		t.Fatal("expected malformed IDs to be rejected")
	}
}
