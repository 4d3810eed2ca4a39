package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Strob0t/Tally/internal/domain/entry"
)

const entryColumns = `id, category_id, title, note, occurred_at, created_at, updated_at`

func scanEntry(row scannable) (entry.Entry, error) {
	var e entry.Entry
	err := row.Scan(&e.ID, &e.CategoryID, &e.Title, &e.Note, &e.OccurredAt, &e.CreatedAt, &e.UpdatedAt)
	e.OccurredAt = e.OccurredAt.UTC()
	return e, err
}

// filterClause renders f as a WHERE clause with positional arguments.
// ok is false when the filter names a category that cannot exist.
func filterClause(f entry.Filter) (where string, args []any, ok bool) {
	var conds []string
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(args))))
	}

	if f.CategoryID != "" {
		if !validID(f.CategoryID) {
			return "", nil, false
		}
		add("category_id = ?", f.CategoryID)
	}
	if !f.From.IsZero() {
		add("occurred_at >= ?", f.From.UTC())
	}
	if !f.To.IsZero() {
		add("occurred_at < ?", f.To.UTC())
	}
	if len(conds) == 0 {
		return "", nil, true
	}
	return " WHERE " + strings.Join(conds, " AND "), args, true
}

func (s *Store) ListEntries(ctx context.Context, f entry.Filter) ([]entry.Entry, error) {
	where, args, ok := filterClause(f)
	if !ok {
		return []entry.Entry{}, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+entryColumns+` FROM entries`+where+` ORDER BY occurred_at DESC, created_at DESC, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []entry.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	if err := s.loadItems(ctx, entries); err != nil {
		return nil, err
	}
	return orEmpty(entries), nil
}

// loadItems fills the line items of entries with a single query.
func (s *Store) loadItems(ctx context.Context, entries []entry.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	ids := make([]string, len(entries))
	index := make(map[string]int, len(entries))
	for i := range entries {
		ids[i] = entries[i].ID
		index[entries[i].ID] = i
		entries[i].Items = []entry.LineItem{}
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, entry_id, position, description, amount, quantity
		FROM line_items WHERE entry_id = ANY($1::uuid[])
		ORDER BY entry_id, position`, ids)
	if err != nil {
		return fmt.Errorf("load line items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var li entry.LineItem
		if err := rows.Scan(&li.ID, &li.EntryID, &li.Position, &li.Description, &li.Amount, &li.Quantity); err != nil {
			return fmt.Errorf("scan line item: %w", err)
		}
		i := index[li.EntryID]
		entries[i].Items = append(entries[i].Items, li)
	}
	return rows.Err()
}

func (s *Store) CountEntries(ctx context.Context, f entry.Filter) (int, error) {
	where, args, ok := filterClause(f)
	if !ok {
		return 0, nil
	}
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM entries`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

func (s *Store) GetEntry(ctx context.Context, id string) (*entry.Entry, error) {
	if !validID(id) {
		return nil, missing("get entry %s", id)
	}
	e, err := scanEntry(s.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundWrap(err, "get entry %s", id)
	}
	list := []entry.Entry{e}
	if err := s.loadItems(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// CreateEntry inserts an entry and its line items in one transaction.
func (s *Store) CreateEntry(ctx context.Context, req *entry.CreateRequest) (*entry.Entry, error) {
	if !validID(req.CategoryID) {
		return nil, missing("create entry: category %s", req.CategoryID)
	}
	now := time.Now().UTC()
	e := entry.Entry{
		ID:         uuid.NewString(),
		CategoryID: req.CategoryID,
		Title:      req.Title,
		Note:       req.Note,
		OccurredAt: req.OccurredAt.UTC(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	e.Items = entry.BuildItems(e.ID, req.Items)
	assignItemIDs(e.Items)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("create entry: begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	_, err = tx.Exec(ctx, `
		INSERT INTO entries (id, category_id, title, note, occurred_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.CategoryID, e.Title, e.Note, e.OccurredAt, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return nil, pgErrWrap(err, "create entry: category %s", req.CategoryID)
	}
	if err := insertItems(ctx, tx, e.Items); err != nil {
		return nil, fmt.Errorf("create entry %s: %w", e.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("create entry: commit: %w", err)
	}
	return &e, nil
}

// UpdateEntry rewrites an entry and replaces all of its line items.
func (s *Store) UpdateEntry(ctx context.Context, e *entry.Entry) error {
	if !validID(e.ID) {
		return missing("update entry %s", e.ID)
	}
	if !validID(e.CategoryID) {
		return missing("update entry %s: category %s", e.ID, e.CategoryID)
	}
	for i := range e.Items {
		e.Items[i].EntryID = e.ID
		e.Items[i].Position = i
	}
	assignItemIDs(e.Items)
	e.OccurredAt = e.OccurredAt.UTC()
	e.UpdatedAt = time.Now().UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("update entry %s: begin tx: %w", e.ID, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	err = tx.QueryRow(ctx, `
		UPDATE entries SET category_id = $2, title = $3, note = $4, occurred_at = $5, updated_at = $6
		WHERE id = $1
		RETURNING created_at`,
		e.ID, e.CategoryID, e.Title, e.Note, e.OccurredAt, e.UpdatedAt,
	).Scan(&e.CreatedAt)
	if err != nil {
		return notFoundWrap(err, "update entry %s", e.ID)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM line_items WHERE entry_id = $1`, e.ID); err != nil {
		return fmt.Errorf("update entry %s: clear items: %w", e.ID, err)
	}
	if err := insertItems(ctx, tx, e.Items); err != nil {
		return fmt.Errorf("update entry %s: %w", e.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("update entry %s: commit: %w", e.ID, err)
	}
	return nil
}

func (s *Store) DeleteEntry(ctx context.Context, id string) error {
	if !validID(id) {
		return missing("delete entry %s", id)
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM entries WHERE id = $1`, id)
	return execExpectOne(tag, err, "delete entry %s", id)
}

func insertItems(ctx context.Context, tx pgx.Tx, items []entry.LineItem) error {
	for i := range items {
		li := &items[i]
		_, err := tx.Exec(ctx, `
			INSERT INTO line_items (id, entry_id, position, description, amount, quantity)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			li.ID, li.EntryID, li.Position, li.Description, li.Amount, li.Quantity,
		)
		if err != nil {
			return pgErrWrap(err, "insert line item %d", li.Position)
		}
	}
	return nil
}

// assignItemIDs gives new line items an ID. Malformed IDs are replaced
// since the column is a UUID.
func assignItemIDs(items []entry.LineItem) {
	for i := range items {
		if !validID(items[i].ID) {
			items[i].ID = uuid.NewString()
		}
	}
}
