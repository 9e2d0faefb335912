package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bujoapp/journalsync/internal/dbx"
	"github.com/bujoapp/journalsync/internal/journal"
	"github.com/bujoapp/journalsync/internal/wire"
)

// Recorder is the domain-write notifier boundary: the domain layer calls it
// synchronously after each local create/update/delete, passing the
// transaction the write ran in, so the mutation commits atomically with the
// domain write.
type Recorder struct {
	deviceID string
	now      func() time.Time
}

func NewRecorder(deviceID string) *Recorder {
	return &Recorder{deviceID: deviceID, now: time.Now}
}

// RecordCreate enqueues the outbox mutation for a freshly created entity.
func (r *Recorder) RecordCreate(ctx context.Context, tx dbx.DBTX, e journal.Entity) error {
	return r.record(ctx, tx, e, OperationCreate, nil, nil)
}

// RecordUpdate enqueues the mutation for an update; changedFields names the
// domain fields the write touched.
func (r *Recorder) RecordUpdate(ctx context.Context, tx dbx.DBTX, e journal.Entity, changedFields []string) error {
	return r.record(ctx, tx, e, OperationUpdate, changedFields, nil)
}

// RecordDelete enqueues a soft delete. The tombstone timestamp is taken now,
// overriding whatever the entity carries.
func (r *Recorder) RecordDelete(ctx context.Context, tx dbx.DBTX, e journal.Entity) error {
	deletedAt := r.now().UTC()
	return r.record(ctx, tx, e, OperationDelete, nil, &deletedAt)
}

func (r *Recorder) record(ctx context.Context, tx dbx.DBTX, e journal.Entity, op Operation, changedFields []string, deletedAt *time.Time) error {
	ts := r.now().UTC()
	rec, err := wire.Serialize(e, r.deviceID, ts, deletedAt)
	if err != nil {
		return fmt.Errorf("failed to serialize %s %s: %w", e.Kind(), e.EntityID(), err)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	m := &Mutation{
		EntityType:    e.Kind(),
		EntityID:      e.EntityID(),
		Operation:     op,
		RecordData:    data,
		ChangedFields: changedFields,
		CreatedAt:     ts,
	}
	return NewSQLiteRepository(tx).Enqueue(ctx, m)
}
