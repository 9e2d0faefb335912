package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrdered_TiersAscend(t *testing.T) {
	ordered := Ordered()
	require.Len(t, ordered, 7)

	// spreads/settings first, standalone kinds next, assignments last
	assert.Equal(t, 0, ordered[0].Tier)
	assert.Equal(t, 0, ordered[1].Tier)
	assert.Equal(t, 1, ordered[2].Tier)
	assert.Equal(t, 1, ordered[3].Tier)
	assert.Equal(t, 1, ordered[4].Tier)
	assert.Equal(t, 2, ordered[5].Tier)
	assert.Equal(t, 2, ordered[6].Tier)

	assert.Equal(t, KindSpread, ordered[0].Kind)
	assert.Equal(t, KindSettings, ordered[1].Kind)
	assert.Equal(t, KindTaskAssignment, ordered[5].Kind)
	assert.Equal(t, KindNoteAssignment, ordered[6].Kind)
}

// permutations generates all orderings of in and calls fn with each.
func permutations(in []Info, fn func([]Info)) {
	var permute func(k int)
	permute = func(k int) {
		if k == len(in) {
			cp := make([]Info, len(in))
			copy(cp, in)
			fn(cp)
			return
		}
		for i := k; i < len(in); i++ {
			in[k], in[i] = in[i], in[k]
			permute(k + 1)
			in[k], in[i] = in[i], in[k]
		}
	}
	permute(0)
}

func TestOrderedOf_TierLawHoldsForEveryPermutation(t *testing.T) {
	// Permuting all seven kinds is 5040 cases; cheap enough to run exhaustively.
	permutations(All(), func(in []Info) {
		out := orderedOf(in)
		for i := 1; i < len(out); i++ {
			if out[i-1].Tier > out[i].Tier {
				t.Fatalf("tier order violated: %v before %v", out[i-1], out[i])
			}
		}
	})
}

func TestOrderedOf_StableWithinTier(t *testing.T) {
	in := []Info{
		{KindNote, "notes", "merge_note", 1},
		{KindTaskAssignment, "task_assignments", "merge_task_assignment", 2},
		{KindTask, "tasks", "merge_task", 1},
	}
	out := orderedOf(in)
	require.Len(t, out, 3)
	assert.Equal(t, KindNote, out[0].Kind, "input order must be kept within a tier")
	assert.Equal(t, KindTask, out[1].Kind)
	assert.Equal(t, KindTaskAssignment, out[2].Kind)
}

func TestLookup(t *testing.T) {
	info, ok := Lookup(KindTask)
	require.True(t, ok)
	assert.Equal(t, "tasks", info.Table)
	assert.Equal(t, "merge_task", info.MergeProc)
	assert.Equal(t, 1, info.Tier)

	_, ok = Lookup(Kind("bogus"))
	assert.False(t, ok)
}

func TestByTable(t *testing.T) {
	info, ok := ByTable("task_assignments")
	require.True(t, ok)
	assert.Equal(t, KindTaskAssignment, info.Kind)

	_, ok = ByTable("nope")
	assert.False(t, ok)
}
