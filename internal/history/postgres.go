package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of pgxpool.Pool the store uses
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

const entryColumns = "id, user_account_id, friend_account_id, friend_display_name, removed_at, restored_at"

// PostgresStore implements Store on the removal_history table
type PostgresStore struct {
	db DBTX
}

// NewPostgresStore creates a PostgreSQL-backed history store
func NewPostgresStore(db DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

// CheckHealth verifies database connectivity
func (s *PostgresStore) CheckHealth(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("postgres health check failed: %w", err)
	}
	return nil
}

// Append inserts all entries in a single statement
func (s *PostgresStore) Append(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO removal_history (id, user_account_id, friend_account_id, friend_display_name, removed_at) VALUES ")

	args := make([]any, 0, len(entries)*5)
	for i, e := range entries {
		if i > 0 {
			b.WriteString(", ")
		}
		n := i * 5
		fmt.Fprintf(&b, "($%d, $%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4, n+5)
		args = append(args, e.ID, e.UserAccountID, e.FriendAccountID, e.FriendDisplayName, e.RemovedAt)
	}

	if _, err := s.db.Exec(ctx, b.String(), args...); err != nil {
		return fmt.Errorf("append removal history: %w", err)
	}
	return nil
}

// ListByUser returns the user's entries, most recent removal first
func (s *PostgresStore) ListByUser(ctx context.Context, userAccountID string) ([]Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM removal_history
		WHERE user_account_id = $1
		ORDER BY removed_at DESC, id`

	rows, err := s.db.Query(ctx, query, userAccountID)
	if err != nil {
		return nil, fmt.Errorf("list removal history: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		if err := scanEntry(rows, &e); err != nil {
			return nil, fmt.Errorf("scan removal history: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate removal history: %w", err)
	}

	return entries, nil
}

// Get returns one entry
func (s *PostgresStore) Get(ctx context.Context, id string) (*Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM removal_history WHERE id = $1`

	var e Entry
	if err := scanEntry(s.db.QueryRow(ctx, query, id), &e); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get removal history: %w", err)
	}
	return &e, nil
}

// MarkRestored sets restored_at only while it is still NULL, so concurrent
// restores of one entry cannot both succeed
func (s *PostgresStore) MarkRestored(ctx context.Context, id string, at time.Time) (*Entry, error) {
	query := `
		UPDATE removal_history
		SET restored_at = $2
		WHERE id = $1 AND restored_at IS NULL
		RETURNING ` + entryColumns

	var e Entry
	err := scanEntry(s.db.QueryRow(ctx, query, id, at), &e)
	if err == nil {
		return &e, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("mark removal restored: %w", err)
	}

	// Nothing updated: either no such entry or it is already restored
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return nil, ErrAlreadyRestored
}

func scanEntry(row pgx.Row, e *Entry) error {
	return row.Scan(
		&e.ID,
		&e.UserAccountID,
		&e.FriendAccountID,
		&e.FriendDisplayName,
		&e.RemovedAt,
		&e.RestoredAt,
	)
}
