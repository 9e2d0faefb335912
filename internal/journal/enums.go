// Package journal defines the syncable journal entity types, their closed
// string enums, and the wire time formats. Enums decode through explicit
// string tables; an unknown string is always a decode failure, never mapped
// to a fallback variant.
package journal

import "fmt"

// Period is the time granularity a spread covers.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

var periods = map[string]Period{
	"day":   PeriodDay,
	"week":  PeriodWeek,
	"month": PeriodMonth,
	"year":  PeriodYear,
}

// ParsePeriod maps a wire string to a Period.
func ParsePeriod(s string) (Period, error) {
	if p, ok := periods[s]; ok {
		return p, nil
	}
	return "", fmt.Errorf("unknown period %q", s)
}

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusOpen      TaskStatus = "open"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusMigrated  TaskStatus = "migrated"
	TaskStatusCancelled TaskStatus = "cancelled"
)

var taskStatuses = map[string]TaskStatus{
	"open":      TaskStatusOpen,
	"completed": TaskStatusCompleted,
	"migrated":  TaskStatusMigrated,
	"cancelled": TaskStatusCancelled,
}

// ParseTaskStatus maps a wire string to a TaskStatus.
func ParseTaskStatus(s string) (TaskStatus, error) {
	if st, ok := taskStatuses[s]; ok {
		return st, nil
	}
	return "", fmt.Errorf("unknown task status %q", s)
}

// BujoMode selects the journaling style configured in Settings.
type BujoMode string

const (
	BujoModeClassic BujoMode = "classic"
	BujoModeMinimal BujoMode = "minimal"
)

var bujoModes = map[string]BujoMode{
	"classic": BujoModeClassic,
	"minimal": BujoModeMinimal,
}

// ParseBujoMode maps a wire string to a BujoMode.
func ParseBujoMode(s string) (BujoMode, error) {
	if m, ok := bujoModes[s]; ok {
		return m, nil
	}
	return "", fmt.Errorf("unknown bujo mode %q", s)
}
