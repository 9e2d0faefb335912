// Package outbox implements the durable, append-only log of pending local
// mutations. Every local domain write is mirrored into exactly one outbox
// mutation inside the same transaction; a mutation leaves the log only when
// the Push Pipeline receives a success acknowledgment from the merge
// endpoint, or when it is classified malformed and dropped after logging.
package outbox

import (
	"encoding/json"
	"time"

	"github.com/bujoapp/journalsync/internal/registry"
)

// Operation is the kind of local mutation held in the outbox.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// Mutation is one pending local write. RecordData is the serialized wire
// snapshot of the entity captured at enqueue time; mutations are appended
// and never edited in place.
type Mutation struct {
	ID            int64
	EntityType    registry.Kind
	EntityID      string
	Operation     Operation
	RecordData    []byte
	ChangedFields []string
	CreatedAt     time.Time
}

func encodeChangedFields(fields []string) ([]byte, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	return json.Marshal(fields)
}

func decodeChangedFields(b []byte) ([]string, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var fields []string
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
