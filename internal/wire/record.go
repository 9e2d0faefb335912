// Package wire converts journal entities to and from their wire shape:
// flat key/value records for the merge endpoint and pulled server rows.
//
// Every optional wire field is always present as an explicit key holding an
// explicit null when absent. The merge endpoint is a fixed-arity call; an
// omitted key silently breaks its contract, so nothing here uses omitempty.
package wire

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bujoapp/journalsync/internal/common"
	"github.com/bujoapp/journalsync/internal/journal"
)

// Record is one entity flattened to wire keys, as captured in the outbox at
// enqueue time. Values are wire strings, or nil for an absent optional.
type Record map[string]any

// Row is one pulled server row, decoded from JSON.
type Row map[string]any

// DecodeRecord parses a stored outbox snapshot back into a Record.
func DecodeRecord(b []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedRecord, err)
	}
	return rec, nil
}

// fieldStamp resolves the effective LWW timestamp for one field: the
// entity's own stored value when present, the caller's fallback otherwise.
func fieldStamp(own *time.Time, fallback time.Time) string {
	if own != nil {
		return journal.FormatTimestamp(*own)
	}
	return journal.FormatTimestamp(fallback)
}

func optDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return journal.FormatDate(*t)
}

// deletedAtValue picks the wire tombstone: an explicit override (the delete
// is happening as part of this call) wins over the entity's stored value.
func deletedAtValue(own, override *time.Time) any {
	if override != nil {
		return journal.FormatTimestamp(*override)
	}
	if own != nil {
		return journal.FormatTimestamp(*own)
	}
	return nil
}
