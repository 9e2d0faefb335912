// Package registry holds static metadata for every syncable entity kind:
// its wire table name, the name of its remote merge procedure, and its sync
// tier. Tiers define push-drain order — parents strictly precede the kinds
// that reference them.
package registry

import "sort"

// Kind identifies a syncable entity kind.
type Kind string

const (
	KindSpread         Kind = "spread"
	KindSettings       Kind = "settings"
	KindTask           Kind = "task"
	KindNote           Kind = "note"
	KindCollection     Kind = "collection"
	KindTaskAssignment Kind = "task_assignment"
	KindNoteAssignment Kind = "note_assignment"
)

// Info describes one entity kind.
type Info struct {
	Kind      Kind
	Table     string
	MergeProc string
	Tier      int
}

// kinds is the declaration order; ties within a tier resolve to this order.
var kinds = []Info{
	{KindSpread, "spreads", "merge_spread", 0},
	{KindSettings, "settings", "merge_settings", 0},
	{KindTask, "tasks", "merge_task", 1},
	{KindNote, "notes", "merge_note", 1},
	{KindCollection, "collections", "merge_collection", 1},
	{KindTaskAssignment, "task_assignments", "merge_task_assignment", 2},
	{KindNoteAssignment, "note_assignments", "merge_note_assignment", 2},
}

// All returns every registered kind in declaration order.
func All() []Info {
	out := make([]Info, len(kinds))
	copy(out, kinds)
	return out
}

// Ordered returns every kind sorted ascending by tier, declaration order
// within a tier. This is the single source of truth for push-drain order.
func Ordered() []Info {
	return orderedOf(All())
}

func orderedOf(in []Info) []Info {
	out := make([]Info, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Tier < out[j].Tier })
	return out
}

// Lookup returns the metadata for a kind.
func Lookup(k Kind) (Info, bool) {
	for _, info := range kinds {
		if info.Kind == k {
			return info, true
		}
	}
	return Info{}, false
}

// ByTable returns the metadata for a wire table name.
func ByTable(table string) (Info, bool) {
	for _, info := range kinds {
		if info.Table == table {
			return info, true
		}
	}
	return Info{}, false
}
