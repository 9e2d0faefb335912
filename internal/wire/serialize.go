package wire

import (
	"fmt"
	"time"

	"github.com/bujoapp/journalsync/internal/journal"
)

// Serialize flattens any entity for push. deviceID names this installation,
// fallback supplies the timestamp for LWW fields the entity has never
// stamped, and deletedAt (optional) marks a delete performed by this call.
func Serialize(e journal.Entity, deviceID string, fallback time.Time, deletedAt *time.Time) (Record, error) {
	switch v := e.(type) {
	case *journal.Spread:
		return SerializeSpread(v, deviceID, fallback, deletedAt), nil
	case *journal.Settings:
		return SerializeSettings(v, deviceID, fallback, deletedAt), nil
	case *journal.Task:
		return SerializeTask(v, deviceID, fallback, deletedAt), nil
	case *journal.Note:
		return SerializeNote(v, deviceID, fallback, deletedAt), nil
	case *journal.Collection:
		return SerializeCollection(v, deviceID, fallback, deletedAt), nil
	case *journal.TaskAssignment:
		return SerializeTaskAssignment(v, deviceID, fallback, deletedAt), nil
	case *journal.NoteAssignment:
		return SerializeNoteAssignment(v, deviceID, fallback, deletedAt), nil
	default:
		return nil, fmt.Errorf("unsupported entity type %T", e)
	}
}

func baseRecord(m journal.Meta, deviceID string, deletedAt *time.Time) Record {
	return Record{
		"id":         m.ID,
		"device_id":  deviceID,
		"created_at": journal.FormatTimestamp(m.CreatedAt),
		"deleted_at": deletedAtValue(m.DeletedAt, deletedAt),
	}
}

func SerializeSpread(s *journal.Spread, deviceID string, fallback time.Time, deletedAt *time.Time) Record {
	rec := baseRecord(s.Meta, deviceID, deletedAt)
	rec["period"] = string(s.Period)
	rec["start_date"] = journal.FormatDate(s.StartDate)
	rec["end_date"] = optDate(s.EndDate)
	rec["period_updated_at"] = fieldStamp(s.PeriodUpdatedAt, fallback)
	rec["start_date_updated_at"] = fieldStamp(s.StartDateUpdatedAt, fallback)
	rec["end_date_updated_at"] = fieldStamp(s.EndDateUpdatedAt, fallback)
	return rec
}

func SerializeSettings(s *journal.Settings, deviceID string, fallback time.Time, deletedAt *time.Time) Record {
	rec := baseRecord(s.Meta, deviceID, deletedAt)
	rec["bujo_mode"] = string(s.BujoMode)
	rec["bujo_mode_updated_at"] = fieldStamp(s.BujoModeUpdatedAt, fallback)
	return rec
}

func SerializeTask(task *journal.Task, deviceID string, fallback time.Time, deletedAt *time.Time) Record {
	rec := baseRecord(task.Meta, deviceID, deletedAt)
	rec["title"] = task.Title
	rec["date"] = optDate(task.Date)
	rec["status"] = string(task.Status)
	rec["title_updated_at"] = fieldStamp(task.TitleUpdatedAt, fallback)
	rec["date_updated_at"] = fieldStamp(task.DateUpdatedAt, fallback)
	rec["status_updated_at"] = fieldStamp(task.StatusUpdatedAt, fallback)
	return rec
}

func SerializeNote(n *journal.Note, deviceID string, fallback time.Time, deletedAt *time.Time) Record {
	rec := baseRecord(n.Meta, deviceID, deletedAt)
	rec["content"] = n.Content
	rec["date"] = optDate(n.Date)
	rec["content_updated_at"] = fieldStamp(n.ContentUpdatedAt, fallback)
	rec["date_updated_at"] = fieldStamp(n.DateUpdatedAt, fallback)
	return rec
}

func SerializeCollection(c *journal.Collection, deviceID string, fallback time.Time, deletedAt *time.Time) Record {
	rec := baseRecord(c.Meta, deviceID, deletedAt)
	rec["title"] = c.Title
	rec["title_updated_at"] = fieldStamp(c.TitleUpdatedAt, fallback)
	return rec
}

func SerializeTaskAssignment(a *journal.TaskAssignment, deviceID string, fallback time.Time, deletedAt *time.Time) Record {
	rec := baseRecord(a.Meta, deviceID, deletedAt)
	rec["task_id"] = a.TaskID
	rec["period"] = string(a.Period)
	rec["date"] = journal.FormatDate(a.Date)
	rec["period_updated_at"] = fieldStamp(a.PeriodUpdatedAt, fallback)
	rec["date_updated_at"] = fieldStamp(a.DateUpdatedAt, fallback)
	return rec
}

func SerializeNoteAssignment(a *journal.NoteAssignment, deviceID string, fallback time.Time, deletedAt *time.Time) Record {
	rec := baseRecord(a.Meta, deviceID, deletedAt)
	rec["note_id"] = a.NoteID
	rec["period"] = string(a.Period)
	rec["date"] = journal.FormatDate(a.Date)
	rec["period_updated_at"] = fieldStamp(a.PeriodUpdatedAt, fallback)
	rec["date_updated_at"] = fieldStamp(a.DateUpdatedAt, fallback)
	return rec
}
