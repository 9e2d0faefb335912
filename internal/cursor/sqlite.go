// Package cursor stores the per-table high-water mark of the last-seen
// server revision. Cursors make pulls incremental; a cursor only ever moves
// forward, and only after a successful pull batch for its table.
package cursor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bujoapp/journalsync/internal/dbx"
)

// SQLiteRepository implements the cursor store using a DBTX.
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Get returns the last-seen revision for a table, 0 when no pull has
// completed yet.
func (r *SQLiteRepository) Get(ctx context.Context, table string) (int64, error) {
	var rev int64
	err := r.db.QueryRowContext(ctx,
		`SELECT last_revision FROM sync_cursors WHERE table_name = ?`, table).Scan(&rev)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get cursor[%s]: %w", table, err)
	}
	return rev, nil
}

// Advance moves the cursor forward to revision. A smaller or equal value is
// ignored: a cursor never retreats.
func (r *SQLiteRepository) Advance(ctx context.Context, table string, revision int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_cursors (table_name, last_revision) VALUES (?, ?)
		ON CONFLICT(table_name) DO UPDATE SET last_revision = excluded.last_revision
		WHERE excluded.last_revision > sync_cursors.last_revision
	`, table, revision)
	if err != nil {
		return fmt.Errorf("failed to advance cursor[%s]: %w", table, err)
	}
	return nil
}

// ResetAll clears every cursor, forcing the next pull to re-fetch everything.
func (r *SQLiteRepository) ResetAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sync_cursors`); err != nil {
		return fmt.Errorf("failed to reset cursors: %w", err)
	}
	return nil
}
