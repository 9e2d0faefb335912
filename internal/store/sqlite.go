// Package store keeps the local mirror of synced entities. It is not the
// app's domain storage; it exists so the pull pipeline can apply remote rows
// field by field and so tests can observe reconciliation results.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bujoapp/journalsync/internal/common"
	"github.com/bujoapp/journalsync/internal/dbx"
	"github.com/bujoapp/journalsync/internal/journal"
	"github.com/bujoapp/journalsync/internal/registry"
)

// SQLiteRepository persists entity mirrors as JSON blobs keyed by table+id.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Get loads one entity. Returns common.ErrNotFound when no row exists,
// tombstoned or not.
func (r *SQLiteRepository) Get(ctx context.Context, kind registry.Kind, id string) (journal.Entity, error) {
	info, ok := registry.Lookup(kind)
	if !ok {
		return nil, fmt.Errorf("unknown entity kind %q", kind)
	}

	var data []byte
	err := r.db.QueryRowContext(ctx,
		"SELECT data FROM entities WHERE table_name = ? AND id = ?",
		info.Table, id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying entity: %w", err)
	}

	e, err := journal.New(kind)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, e); err != nil {
		return nil, fmt.Errorf("decoding stored entity: %w", err)
	}
	return e, nil
}

// Put inserts or replaces the mirror row for the entity.
func (r *SQLiteRepository) Put(ctx context.Context, e journal.Entity) error {
	info, ok := registry.Lookup(e.Kind())
	if !ok {
		return fmt.Errorf("unknown entity kind %q", e.Kind())
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding entity: %w", err)
	}

	var deletedAt any
	if d := e.Deleted(); d != nil {
		deletedAt = d.UTC().Format(time.RFC3339Nano)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO entities (table_name, id, data, deleted_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(table_name, id) DO UPDATE SET data = excluded.data, deleted_at = excluded.deleted_at`,
		info.Table, e.EntityID(), data, deletedAt,
	)
	if err != nil {
		return fmt.Errorf("storing entity: %w", err)
	}
	return nil
}

// Delete removes the mirror row. Deleting an absent row is not an error.
func (r *SQLiteRepository) Delete(ctx context.Context, kind registry.Kind, id string) error {
	info, ok := registry.Lookup(kind)
	if !ok {
		return fmt.Errorf("unknown entity kind %q", kind)
	}
	if _, err := r.db.ExecContext(ctx,
		"DELETE FROM entities WHERE table_name = ? AND id = ?",
		info.Table, id,
	); err != nil {
		return fmt.Errorf("deleting entity: %w", err)
	}
	return nil
}

// List returns every live entity of the kind. Tombstoned rows are excluded.
func (r *SQLiteRepository) List(ctx context.Context, kind registry.Kind) ([]journal.Entity, error) {
	info, ok := registry.Lookup(kind)
	if !ok {
		return nil, fmt.Errorf("unknown entity kind %q", kind)
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT data FROM entities WHERE table_name = ? AND deleted_at IS NULL ORDER BY id",
		info.Table,
	)
	if err != nil {
		return nil, fmt.Errorf("listing entities: %w", err)
	}
	defer rows.Close()

	var out []journal.Entity
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning entity: %w", err)
		}
		e, err := journal.New(kind)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, e); err != nil {
			return nil, fmt.Errorf("decoding stored entity: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing entities: %w", err)
	}
	return out, nil
}
