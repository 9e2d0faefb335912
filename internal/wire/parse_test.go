package wire

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bujoapp/journalsync/internal/journal"
	"github.com/bujoapp/journalsync/internal/registry"
)

func taskRow() Row {
	return Row{
		"id":         "t1",
		"device_id":  "device-b",
		"title":      "Buy milk",
		"date":       nil,
		"status":     "open",
		"created_at": "2025-03-15T10:30:00.000Z",
		"deleted_at": nil,
		"revision":   float64(11),
	}
}

func TestParseRow_Task(t *testing.T) {
	e, err := ParseRow(registry.KindTask, taskRow())
	require.NoError(t, err)
	require.NotNil(t, e)

	task, ok := e.(*journal.Task)
	require.True(t, ok)
	assert.Equal(t, "t1", task.ID)
	assert.Equal(t, "Buy milk", task.Title)
	assert.Equal(t, journal.TaskStatusOpen, task.Status)
	assert.Equal(t, int64(11), task.Revision)
	require.NotNil(t, task.DeviceID)
	assert.Equal(t, "device-b", *task.DeviceID)
	assert.Nil(t, task.Date)
}

func TestParseRow_TombstoneReturnsNil(t *testing.T) {
	row := taskRow()
	row["deleted_at"] = "2025-03-16T00:00:00.000Z"
	// other field values are irrelevant for tombstones
	row["status"] = "garbage"

	e, err := ParseRow(registry.KindTask, row)
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestParseRow_InvalidEnumReturnsError(t *testing.T) {
	row := Row{
		"id":         "s1",
		"bujo_mode":  "invalid_mode",
		"created_at": "2025-03-15T10:30:00.000Z",
		"deleted_at": nil,
		"revision":   float64(3),
	}
	e, err := ParseRow(registry.KindSettings, row)
	require.Error(t, err)
	assert.Nil(t, e)
}

func TestParseRow_InvalidPeriodReturnsError(t *testing.T) {
	row := Row{
		"id":         "sp1",
		"period":     "weekly",
		"start_date": "2025-03-10",
		"end_date":   nil,
		"created_at": "2025-03-15T10:30:00.000Z",
		"deleted_at": nil,
		"revision":   float64(4),
	}
	e, err := ParseRow(registry.KindSpread, row)
	require.Error(t, err)
	assert.Nil(t, e)
}

func TestParseRow_MissingRevision(t *testing.T) {
	row := taskRow()
	delete(row, "revision")

	e, err := ParseRow(registry.KindTask, row)
	require.Error(t, err)
	assert.Nil(t, e)
}

func TestRowRevision(t *testing.T) {
	rev, err := RowRevision(Row{"revision": float64(42)})
	require.NoError(t, err)
	assert.Equal(t, int64(42), rev)

	_, err = RowRevision(Row{"revision": "42"})
	require.Error(t, err)

	_, err = RowRevision(Row{})
	require.Error(t, err)
}

func TestApplyRow_OverwritesExisting(t *testing.T) {
	old := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	existing := &journal.Task{
		Meta:           journal.Meta{ID: "t1", Revision: 5, CreatedAt: old},
		Title:          "Old title",
		Status:         journal.TaskStatusMigrated,
		TitleUpdatedAt: &old,
	}

	applied, err := ApplyRow(taskRow(), existing)
	require.NoError(t, err)
	require.True(t, applied)

	// plain overwrite: the pulled row is authoritative
	assert.Equal(t, "Buy milk", existing.Title)
	assert.Equal(t, journal.TaskStatusOpen, existing.Status)
	assert.Equal(t, int64(11), existing.Revision)
	assert.Nil(t, existing.TitleUpdatedAt)
}

func TestApplyRow_TombstoneReturnsFalse(t *testing.T) {
	row := taskRow()
	row["deleted_at"] = "2025-03-16T00:00:00.000Z"

	existing := &journal.Task{Meta: journal.Meta{ID: "t1"}, Title: "keep"}
	applied, err := ApplyRow(row, existing)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, "keep", existing.Title, "tombstone must not mutate the local entity")
}

func TestApplyRow_MalformedRowReturnsError(t *testing.T) {
	row := taskRow()
	row["status"] = "done"

	existing := &journal.Task{Meta: journal.Meta{ID: "t1"}, Title: "keep"}
	applied, err := ApplyRow(row, existing)
	require.Error(t, err)
	assert.False(t, applied)
	assert.Equal(t, "keep", existing.Title)
}
