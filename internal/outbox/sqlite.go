package outbox

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bujoapp/journalsync/internal/dbx"
	"github.com/bujoapp/journalsync/internal/registry"
)

// SQLiteRepository implements the outbox over a DBTX (either *sql.DB or
// *sql.Tx). Enqueue is called on the transaction the domain layer already
// holds, so the domain write and its mutation commit or roll back together.
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Enqueue appends a mutation to the log.
func (r *SQLiteRepository) Enqueue(ctx context.Context, m *Mutation) error {
	changed, err := encodeChangedFields(m.ChangedFields)
	if err != nil {
		return fmt.Errorf("failed to encode changed fields: %w", err)
	}
	query := `INSERT INTO outbox (entity_type, entity_id, operation, record_data, changed_fields, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query,
		string(m.EntityType), m.EntityID, string(m.Operation), m.RecordData, changed,
		m.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to enqueue mutation: %w", err)
	}
	m.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read mutation id: %w", err)
	}
	return nil
}

// drainOrder ranks entity_type by registry tier inside the query, so tier
// ordering holds across the whole backlog rather than only within the
// selected window.
var drainOrder = buildDrainOrder()

func buildDrainOrder() string {
	var b strings.Builder
	b.WriteString("CASE entity_type")
	for _, info := range registry.All() {
		fmt.Fprintf(&b, " WHEN '%s' THEN %d", info.Kind, info.Tier)
	}
	// unknown kinds drain last; the push pipeline drops them as malformed
	b.WriteString(" ELSE 1000 END")
	return b.String()
}

// DrainBatch returns up to limit pending mutations, ordered by entity-kind
// tier first and insertion order (FIFO) within a tier. Mutations stay in the
// log until acknowledged.
func (r *SQLiteRepository) DrainBatch(ctx context.Context, limit int) ([]*Mutation, error) {
	query := `SELECT id, entity_type, entity_id, operation, record_data, changed_fields, created_at
			FROM outbox ORDER BY ` + drainOrder + `, id ASC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select mutations: %w", err)
	}
	defer rows.Close()

	var result []*Mutation
	for rows.Next() {
		m := &Mutation{}
		var entityType, operation, createdAt string
		var changed []byte
		if err := rows.Scan(&m.ID, &entityType, &m.EntityID, &operation, &m.RecordData, &changed, &createdAt); err != nil {
			return nil, err
		}
		m.EntityType = registry.Kind(entityType)
		m.Operation = Operation(operation)
		if m.ChangedFields, err = decodeChangedFields(changed); err != nil {
			return nil, fmt.Errorf("failed to decode changed fields: %w", err)
		}
		if m.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Acknowledge permanently removes a mutation after a confirmed successful
// push. Acknowledging an already-acknowledged mutation is a safe no-op.
func (r *SQLiteRepository) Acknowledge(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM outbox WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to acknowledge mutation %d: %w", id, err)
	}
	return nil
}

// Count returns the number of pending mutations.
func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outbox`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count mutations: %w", err)
	}
	return n, nil
}
