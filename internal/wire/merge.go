package wire

import (
	"fmt"
	"strings"

	"github.com/bujoapp/journalsync/internal/common"
	"github.com/bujoapp/journalsync/internal/journal"
	"github.com/bujoapp/journalsync/internal/registry"
)

// BuildMergeCall decodes a wire record into the fixed-arity parameter set of
// the kind's merge procedure. Any missing required key, wrong type or invalid
// enum makes the whole mutation malformed (common.ErrMalformedRecord); a
// malformed mutation can never succeed and must not be retried.
func BuildMergeCall(kind registry.Kind, rec Record, userID string) (string, map[string]any, error) {
	info, ok := registry.Lookup(kind)
	if !ok {
		return "", nil, fmt.Errorf("%w: unknown entity kind %q", common.ErrMalformedRecord, kind)
	}

	r := &recReader{rec: rec}
	params := map[string]any{
		"p_id":         r.str("id"),
		"p_user_id":    userID,
		"p_device_id":  r.str("device_id"),
		"p_created_at": r.stamp("created_at"),
		"p_deleted_at": r.optStamp("deleted_at"),
	}

	switch kind {
	case registry.KindSpread:
		params["p_period"] = r.period("period")
		params["p_start_date"] = r.date("start_date")
		params["p_end_date"] = r.optDate("end_date")
		params["period_updated_at"] = r.stamp("period_updated_at")
		params["start_date_updated_at"] = r.stamp("start_date_updated_at")
		params["end_date_updated_at"] = r.stamp("end_date_updated_at")
	case registry.KindSettings:
		params["p_bujo_mode"] = r.bujoMode("bujo_mode")
		params["bujo_mode_updated_at"] = r.stamp("bujo_mode_updated_at")
	case registry.KindTask:
		params["p_title"] = r.text("title")
		params["p_date"] = r.optDate("date")
		params["p_status"] = r.taskStatus("status")
		params["title_updated_at"] = r.stamp("title_updated_at")
		params["date_updated_at"] = r.stamp("date_updated_at")
		params["status_updated_at"] = r.stamp("status_updated_at")
	case registry.KindNote:
		params["p_content"] = r.text("content")
		params["p_date"] = r.optDate("date")
		params["content_updated_at"] = r.stamp("content_updated_at")
		params["date_updated_at"] = r.stamp("date_updated_at")
	case registry.KindCollection:
		params["p_title"] = r.text("title")
		params["title_updated_at"] = r.stamp("title_updated_at")
	case registry.KindTaskAssignment:
		params["p_task_id"] = r.str("task_id")
		params["p_period"] = r.period("period")
		params["p_date"] = r.date("date")
		params["period_updated_at"] = r.stamp("period_updated_at")
		params["date_updated_at"] = r.stamp("date_updated_at")
	case registry.KindNoteAssignment:
		params["p_note_id"] = r.str("note_id")
		params["p_period"] = r.period("period")
		params["p_date"] = r.date("date")
		params["period_updated_at"] = r.stamp("period_updated_at")
		params["date_updated_at"] = r.stamp("date_updated_at")
	}

	if err := r.err(); err != nil {
		return "", nil, err
	}
	return info.MergeProc, params, nil
}

// TieBreak resolves the documented rule the merge endpoint applies when two
// devices wrote the same field at the identical millisecond: the write from
// the lexically smaller device id wins. Exposed so tests can pin the rule the
// client assumes.
func TieBreak(deviceA, deviceB string) string {
	if strings.Compare(deviceA, deviceB) <= 0 {
		return deviceA
	}
	return deviceB
}

// recReader pulls typed values out of a Record, accumulating every missing or
// invalid key so the resulting error names all defects at once.
type recReader struct {
	rec     Record
	missing []string
	invalid []string
}

func (r *recReader) lookup(key string) (any, bool) {
	v, ok := r.rec[key]
	if !ok {
		r.missing = append(r.missing, key)
	}
	return v, ok
}

// str requires a present, non-empty string.
func (r *recReader) str(key string) string {
	v, ok := r.lookup(key)
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok || s == "" {
		r.invalid = append(r.invalid, key)
		return ""
	}
	return s
}

// text requires a present string; unlike identifiers it may be empty.
func (r *recReader) text(key string) string {
	v, ok := r.lookup(key)
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		r.invalid = append(r.invalid, key)
		return ""
	}
	return s
}

// stamp requires a present, valid wire timestamp.
func (r *recReader) stamp(key string) string {
	s := r.str(key)
	if s == "" {
		return ""
	}
	if _, err := journal.ParseTimestamp(s); err != nil {
		r.invalid = append(r.invalid, key)
		return ""
	}
	return s
}

// optStamp requires the key to be present; the value may be null.
func (r *recReader) optStamp(key string) any {
	v, ok := r.lookup(key)
	if !ok || v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		r.invalid = append(r.invalid, key)
		return nil
	}
	if _, err := journal.ParseTimestamp(s); err != nil {
		r.invalid = append(r.invalid, key)
		return nil
	}
	return s
}

func (r *recReader) date(key string) string {
	s := r.str(key)
	if s == "" {
		return ""
	}
	if _, err := journal.ParseDate(s); err != nil {
		r.invalid = append(r.invalid, key)
		return ""
	}
	return s
}

func (r *recReader) optDate(key string) any {
	v, ok := r.lookup(key)
	if !ok || v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		r.invalid = append(r.invalid, key)
		return nil
	}
	if _, err := journal.ParseDate(s); err != nil {
		r.invalid = append(r.invalid, key)
		return nil
	}
	return s
}

func (r *recReader) period(key string) string {
	s := r.str(key)
	if s == "" {
		return ""
	}
	if _, err := journal.ParsePeriod(s); err != nil {
		r.invalid = append(r.invalid, key)
		return ""
	}
	return s
}

func (r *recReader) taskStatus(key string) string {
	s := r.str(key)
	if s == "" {
		return ""
	}
	if _, err := journal.ParseTaskStatus(s); err != nil {
		r.invalid = append(r.invalid, key)
		return ""
	}
	return s
}

func (r *recReader) bujoMode(key string) string {
	s := r.str(key)
	if s == "" {
		return ""
	}
	if _, err := journal.ParseBujoMode(s); err != nil {
		r.invalid = append(r.invalid, key)
		return ""
	}
	return s
}

func (r *recReader) err() error {
	if len(r.missing) == 0 && len(r.invalid) == 0 {
		return nil
	}
	return fmt.Errorf("%w: missing keys %v, invalid keys %v",
		common.ErrMalformedRecord, r.missing, r.invalid)
}
