package journal

import (
	"fmt"
	"time"

	"github.com/bujoapp/journalsync/internal/registry"
)

// Meta carries the envelope every syncable entity shares.
//
// Revision is assigned by the server and only ever read by the client (it
// drives incremental pull). DeviceID names the device that produced the last
// local write and stays nil until the first synced write. DeletedAt marks a
// tombstone; tombstoned entities are hidden from domain views but kept until
// pull-side reconciliation removes the local mirror.
type Meta struct {
	ID        string     `json:"id"`
	DeviceID  *string    `json:"device_id"`
	Revision  int64      `json:"revision"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at"`
}

func (m Meta) EntityID() string { return m.ID }

// Deleted returns the tombstone timestamp, nil for live entities.
func (m Meta) Deleted() *time.Time { return m.DeletedAt }

// Entity is implemented by every syncable entity type.
type Entity interface {
	EntityID() string
	Kind() registry.Kind
	Deleted() *time.Time
}

// Spread is a journal page covering one period of time (tier 0).
type Spread struct {
	Meta
	Period    Period     `json:"period"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`

	PeriodUpdatedAt    *time.Time `json:"period_updated_at"`
	StartDateUpdatedAt *time.Time `json:"start_date_updated_at"`
	EndDateUpdatedAt   *time.Time `json:"end_date_updated_at"`
}

func (*Spread) Kind() registry.Kind { return registry.KindSpread }

// Settings holds the user's journaling preferences (tier 0).
type Settings struct {
	Meta
	BujoMode BujoMode `json:"bujo_mode"`

	BujoModeUpdatedAt *time.Time `json:"bujo_mode_updated_at"`
}

func (*Settings) Kind() registry.Kind { return registry.KindSettings }

// Task is a standalone actionable item (tier 1).
type Task struct {
	Meta
	Title  string     `json:"title"`
	Date   *time.Time `json:"date"`
	Status TaskStatus `json:"status"`

	TitleUpdatedAt  *time.Time `json:"title_updated_at"`
	DateUpdatedAt   *time.Time `json:"date_updated_at"`
	StatusUpdatedAt *time.Time `json:"status_updated_at"`
}

func (*Task) Kind() registry.Kind { return registry.KindTask }

// Note is a standalone free-form entry (tier 1).
type Note struct {
	Meta
	Content string     `json:"content"`
	Date    *time.Time `json:"date"`

	ContentUpdatedAt *time.Time `json:"content_updated_at"`
	DateUpdatedAt    *time.Time `json:"date_updated_at"`
}

func (*Note) Kind() registry.Kind { return registry.KindNote }

// Collection is a named custom list (tier 1).
type Collection struct {
	Meta
	Title string `json:"title"`

	TitleUpdatedAt *time.Time `json:"title_updated_at"`
}

func (*Collection) Kind() registry.Kind { return registry.KindCollection }

// TaskAssignment attaches a task to the spread matching period+date (tier 2).
// TaskID is fixed at creation; period and date move when an entry migrates.
type TaskAssignment struct {
	Meta
	TaskID string    `json:"task_id"`
	Period Period    `json:"period"`
	Date   time.Time `json:"date"`

	PeriodUpdatedAt *time.Time `json:"period_updated_at"`
	DateUpdatedAt   *time.Time `json:"date_updated_at"`
}

func (*TaskAssignment) Kind() registry.Kind { return registry.KindTaskAssignment }

// NoteAssignment attaches a note to the spread matching period+date (tier 2).
type NoteAssignment struct {
	Meta
	NoteID string    `json:"note_id"`
	Period Period    `json:"period"`
	Date   time.Time `json:"date"`

	PeriodUpdatedAt *time.Time `json:"period_updated_at"`
	DateUpdatedAt   *time.Time `json:"date_updated_at"`
}

func (*NoteAssignment) Kind() registry.Kind { return registry.KindNoteAssignment }

// New returns an empty entity of the given kind, for decoding stored mirrors.
func New(k registry.Kind) (Entity, error) {
	switch k {
	case registry.KindSpread:
		return &Spread{}, nil
	case registry.KindSettings:
		return &Settings{}, nil
	case registry.KindTask:
		return &Task{}, nil
	case registry.KindNote:
		return &Note{}, nil
	case registry.KindCollection:
		return &Collection{}, nil
	case registry.KindTaskAssignment:
		return &TaskAssignment{}, nil
	case registry.KindNoteAssignment:
		return &NoteAssignment{}, nil
	default:
		return nil, fmt.Errorf("unknown entity kind %q", k)
	}
}
