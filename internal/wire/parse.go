package wire

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bujoapp/journalsync/internal/common"
	"github.com/bujoapp/journalsync/internal/journal"
	"github.com/bujoapp/journalsync/internal/registry"
)

// RowDeleted reports whether a pulled row is a tombstone.
func RowDeleted(row Row) bool {
	v, ok := row["deleted_at"]
	return ok && v != nil
}

// RowRevision extracts the server revision from a pulled row.
func RowRevision(row Row) (int64, error) {
	switch v := row["revision"].(type) {
	case float64:
		return int64(v), nil
	case json.Number:
		return v.Int64()
	case int64:
		return v, nil
	case nil:
		return 0, fmt.Errorf("%w: missing revision", common.ErrMalformedRecord)
	default:
		return 0, fmt.Errorf("%w: revision has type %T", common.ErrMalformedRecord, v)
	}
}

// ParseRow constructs a fully-populated entity from a pulled server row.
//
// A tombstoned row returns (nil, nil): the caller must remove its local
// mirror. A row with an unknown enum variant or a missing required field
// returns a non-nil error: the caller must skip it without touching local
// state. Tombstones win over every other defect — a deleted row is never
// inspected further.
func ParseRow(kind registry.Kind, row Row) (journal.Entity, error) {
	if RowDeleted(row) {
		return nil, nil
	}

	r := &rowReader{row: row}
	meta := journal.Meta{
		ID:        r.str("id"),
		DeviceID:  r.optStr("device_id"),
		CreatedAt: r.stamp("created_at"),
	}
	rev, err := RowRevision(row)
	if err != nil {
		return nil, err
	}
	meta.Revision = rev

	var e journal.Entity
	switch kind {
	case registry.KindSpread:
		e = &journal.Spread{
			Meta:               meta,
			Period:             r.period("period"),
			StartDate:          r.date("start_date"),
			EndDate:            r.optDate("end_date"),
			PeriodUpdatedAt:    r.optStamp("period_updated_at"),
			StartDateUpdatedAt: r.optStamp("start_date_updated_at"),
			EndDateUpdatedAt:   r.optStamp("end_date_updated_at"),
		}
	case registry.KindSettings:
		e = &journal.Settings{
			Meta:              meta,
			BujoMode:          r.bujoMode("bujo_mode"),
			BujoModeUpdatedAt: r.optStamp("bujo_mode_updated_at"),
		}
	case registry.KindTask:
		e = &journal.Task{
			Meta:            meta,
			Title:           r.text("title"),
			Date:            r.optDate("date"),
			Status:          r.taskStatus("status"),
			TitleUpdatedAt:  r.optStamp("title_updated_at"),
			DateUpdatedAt:   r.optStamp("date_updated_at"),
			StatusUpdatedAt: r.optStamp("status_updated_at"),
		}
	case registry.KindNote:
		e = &journal.Note{
			Meta:             meta,
			Content:          r.text("content"),
			Date:             r.optDate("date"),
			ContentUpdatedAt: r.optStamp("content_updated_at"),
			DateUpdatedAt:    r.optStamp("date_updated_at"),
		}
	case registry.KindCollection:
		e = &journal.Collection{
			Meta:           meta,
			Title:          r.text("title"),
			TitleUpdatedAt: r.optStamp("title_updated_at"),
		}
	case registry.KindTaskAssignment:
		e = &journal.TaskAssignment{
			Meta:            meta,
			TaskID:          r.str("task_id"),
			Period:          r.period("period"),
			Date:            r.date("date"),
			PeriodUpdatedAt: r.optStamp("period_updated_at"),
			DateUpdatedAt:   r.optStamp("date_updated_at"),
		}
	case registry.KindNoteAssignment:
		e = &journal.NoteAssignment{
			Meta:            meta,
			NoteID:          r.str("note_id"),
			Period:          r.period("period"),
			Date:            r.date("date"),
			PeriodUpdatedAt: r.optStamp("period_updated_at"),
			DateUpdatedAt:   r.optStamp("date_updated_at"),
		}
	default:
		return nil, fmt.Errorf("%w: unknown entity kind %q", common.ErrMalformedRecord, kind)
	}

	if err := r.err(); err != nil {
		return nil, err
	}
	return e, nil
}

// ApplyRow overwrites the fields of an existing local entity with a pulled
// row. It returns false for a tombstone: the caller must delete the local
// mirror instead. No field-level LWW comparison happens here — the remote
// merge endpoint already resolved conflicts, so the pulled row is
// authoritative and the apply is a plain overwrite.
func ApplyRow(row Row, existing journal.Entity) (bool, error) {
	if RowDeleted(row) {
		return false, nil
	}
	parsed, err := ParseRow(existing.Kind(), row)
	if err != nil {
		return false, err
	}

	switch dst := existing.(type) {
	case *journal.Spread:
		*dst = *parsed.(*journal.Spread)
	case *journal.Settings:
		*dst = *parsed.(*journal.Settings)
	case *journal.Task:
		*dst = *parsed.(*journal.Task)
	case *journal.Note:
		*dst = *parsed.(*journal.Note)
	case *journal.Collection:
		*dst = *parsed.(*journal.Collection)
	case *journal.TaskAssignment:
		*dst = *parsed.(*journal.TaskAssignment)
	case *journal.NoteAssignment:
		*dst = *parsed.(*journal.NoteAssignment)
	default:
		return false, fmt.Errorf("unsupported entity type %T", existing)
	}
	return true, nil
}

// rowReader pulls typed values out of a pulled row, accumulating defects.
// The *_updated_at keys are optional in rows: the server may elide stamps it
// never stored, and a missing stamp simply means "use the fallback next push".
type rowReader struct {
	row     Row
	missing []string
	invalid []string
}

func (r *rowReader) str(key string) string {
	v, ok := r.row[key]
	if !ok || v == nil {
		r.missing = append(r.missing, key)
		return ""
	}
	s, ok := v.(string)
	if !ok || s == "" {
		r.invalid = append(r.invalid, key)
		return ""
	}
	return s
}

func (r *rowReader) text(key string) string {
	v, ok := r.row[key]
	if !ok || v == nil {
		r.missing = append(r.missing, key)
		return ""
	}
	s, ok := v.(string)
	if !ok {
		r.invalid = append(r.invalid, key)
		return ""
	}
	return s
}

func (r *rowReader) optStr(key string) *string {
	v, ok := r.row[key]
	if !ok || v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		r.invalid = append(r.invalid, key)
		return nil
	}
	return &s
}

func (r *rowReader) stamp(key string) time.Time {
	s := r.str(key)
	if s == "" {
		return time.Time{}
	}
	t, err := journal.ParseTimestamp(s)
	if err != nil {
		r.invalid = append(r.invalid, key)
		return time.Time{}
	}
	return t
}

func (r *rowReader) optStamp(key string) *time.Time {
	v, ok := r.row[key]
	if !ok || v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		r.invalid = append(r.invalid, key)
		return nil
	}
	t, err := journal.ParseTimestamp(s)
	if err != nil {
		r.invalid = append(r.invalid, key)
		return nil
	}
	return &t
}

func (r *rowReader) date(key string) time.Time {
	s := r.str(key)
	if s == "" {
		return time.Time{}
	}
	t, err := journal.ParseDate(s)
	if err != nil {
		r.invalid = append(r.invalid, key)
		return time.Time{}
	}
	return t
}

func (r *rowReader) optDate(key string) *time.Time {
	v, ok := r.row[key]
	if !ok || v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		r.invalid = append(r.invalid, key)
		return nil
	}
	t, err := journal.ParseDate(s)
	if err != nil {
		r.invalid = append(r.invalid, key)
		return nil
	}
	return &t
}

func (r *rowReader) period(key string) journal.Period {
	s := r.str(key)
	if s == "" {
		return ""
	}
	p, err := journal.ParsePeriod(s)
	if err != nil {
		r.invalid = append(r.invalid, key)
		return ""
	}
	return p
}

func (r *rowReader) taskStatus(key string) journal.TaskStatus {
	s := r.str(key)
	if s == "" {
		return ""
	}
	st, err := journal.ParseTaskStatus(s)
	if err != nil {
		r.invalid = append(r.invalid, key)
		return ""
	}
	return st
}

func (r *rowReader) bujoMode(key string) journal.BujoMode {
	s := r.str(key)
	if s == "" {
		return ""
	}
	m, err := journal.ParseBujoMode(s)
	if err != nil {
		r.invalid = append(r.invalid, key)
		return ""
	}
	return m
}

func (r *rowReader) err() error {
	if len(r.missing) == 0 && len(r.invalid) == 0 {
		return nil
	}
	return fmt.Errorf("%w: missing keys %v, invalid keys %v",
		common.ErrMalformedRecord, r.missing, r.invalid)
}
