package symbol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relalg-io/triplealgebra/datalog"
)

func TestBindingsIndexOf(t *testing.T) {
	b := Bindings{"e", "v", "t"}
	assert.Equal(t, 0, b.IndexOf("e"))
	assert.Equal(t, 2, b.IndexOf("t"))
	assert.Equal(t, -1, b.IndexOf("missing"))
	assert.True(t, b.Contains("v"))
	assert.False(t, b.Contains("missing"))
}

func TestBindingsConcat(t *testing.T) {
	left := Bindings{"a", "b"}
	right := Bindings{"c"}
	got := left.Concat(right)
	assert.Equal(t, Bindings{"a", "b", "c"}, got)

	// Concat must not mutate either operand.
	assert.Equal(t, Bindings{"a", "b"}, left)
	assert.Equal(t, Bindings{"c"}, right)
}

func TestBindingsHasDuplicates(t *testing.T) {
	assert.False(t, Bindings{"a", "b", "c"}.HasDuplicates())
	assert.True(t, Bindings{"a", "b", "a"}.HasDuplicates())
}

func TestSetUnionIsNonDestructive(t *testing.T) {
	s1 := NewSet("a", "b")
	s2 := NewSet("b", "c")
	u := s1.Union(s2)

	assert.True(t, u.Contains("a"))
	assert.True(t, u.Contains("b"))
	assert.True(t, u.Contains("c"))

	// s1/s2 unaffected by Union (unlike Add/AddAll, which mutate in place).
	assert.False(t, s1.Contains("c"))
	assert.False(t, s2.Contains("a"))
}

func TestAfterEliminatePreservesOrder(t *testing.T) {
	before := Bindings{"a", "b", "c", "d"}
	eliminate := NewSet("b", "d")
	after := AfterEliminate(before, eliminate)
	require.Equal(t, Bindings{"a", "c"}, after)
}

func TestAfterEliminateSubsetOfBefore(t *testing.T) {
	before := Bindings{"a", "b", "c"}
	eliminate := NewSet("b")
	after := AfterEliminate(before, eliminate)
	for _, s := range after {
		assert.True(t, before.Contains(s), "after-eliminate symbol %q must appear in before-eliminate", s)
	}
	assert.Len(t, after, len(before)-len(eliminate))
}

func TestEliminateIndicesAndProjectTuple(t *testing.T) {
	before := Bindings{"a", "b", "c", "d"}
	eliminate := NewSet("b", "d")
	idx := EliminateIndices(before, eliminate)
	require.Equal(t, []int{1, 3}, idx)

	row := Tuple{datalog.Int(1), datalog.Int(2), datalog.Int(3), datalog.Int(4)}
	projected := ProjectTuple(row, idx)
	assert.Equal(t, Tuple{datalog.Int(1), datalog.Int(3)}, projected)
}

func TestProjectTupleNoDropIsIdentity(t *testing.T) {
	row := Tuple{datalog.Int(1), datalog.Int(2)}
	got := ProjectTuple(row, nil)
	assert.Equal(t, row, got)
}

func TestEliminateIndicesArityMatchesAfterEliminate(t *testing.T) {
	before := Bindings{"x", "y", "z"}
	eliminate := NewSet("y")
	idx := EliminateIndices(before, eliminate)
	row := Tuple{datalog.Int(10), datalog.Int(20), datalog.Int(30)}
	projected := ProjectTuple(row, idx)

	after := AfterEliminate(before, eliminate)
	assert.Len(t, projected, len(after), "projected tuple arity must match after-eliminate binding count")
}
