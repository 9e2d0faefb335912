package journal

import (
	"fmt"
	"time"
)

// Wire layouts. Timestamps are fixed-precision ISO-8601 with exactly
// millisecond precision and a literal Z; dates carry no time component.
// Anything else must fail to parse.
const (
	TimestampLayout = "2006-01-02T15:04:05.000Z"
	DateLayout      = "2006-01-02"
)

// FormatTimestamp renders t in the wire timestamp format (UTC, milliseconds).
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a wire timestamp. The shape must match exactly:
// millisecond fraction present, literal Z suffix.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders t as a wire date (yyyy-MM-dd).
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a wire date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}
