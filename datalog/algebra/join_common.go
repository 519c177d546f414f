package algebra

import "github.com/relalg-io/triplealgebra/datalog/symbol"

// rightDropIndices returns, relative to right's before-eliminate bindings,
// the positions that must be dropped from a raw scanned right tuple before
// it is appended to a left tuple: right's own to_eliminate plus the
// join-key columns (which duplicate a left column of the same name).
func rightDropIndices(right *Node, joiner Joiner) []int {
	before := BindingsBeforeEliminate(right)
	drop := EliminateSet(right).Union(symbol.NewSet().AddAll(joiner.RightKeys))
	return symbol.EliminateIndices(before, drop)
}

// leftKeyIndices resolves joiner.LeftKeys against leftBindings (the left
// child's after-eliminate bindings, i.e. what a left tuple actually looks
// like at join time).
func leftKeyIndices(joiner Joiner, leftBindings symbol.Bindings) []int {
	idx := make([]int, len(joiner.LeftKeys))
	for i, k := range joiner.LeftKeys {
		idx[i] = leftBindings.IndexOf(k)
	}
	return idx
}

// rightKeyIndices resolves joiner.RightKeys against a raw (before-eliminate)
// right tuple layout.
func rightKeyIndices(joiner Joiner, rightBefore symbol.Bindings) []int {
	idx := make([]int, len(joiner.RightKeys))
	for i, k := range joiner.RightKeys {
		idx[i] = rightBefore.IndexOf(k)
	}
	return idx
}

// leftKeyValues extracts the join-key values from a left tuple in
// right-key order (i.e. permuted to match rightKeyIndices' ordering),
// ready to drive an index scan or a prefix lookup.
func leftKeyValues(t symbol.Tuple, idx []int) symbol.Tuple {
	out := make(symbol.Tuple, len(idx))
	for i, pos := range idx {
		out[i] = t[pos]
	}
	return out
}

// appendRight builds the joined output tuple: left tuple followed by
// right's raw tuple with drop applied.
func appendRight(left, rawRight symbol.Tuple, drop []int) symbol.Tuple {
	kept := symbol.ProjectTuple(rawRight, drop)
	out := make(symbol.Tuple, 0, len(left)+len(kept))
	out = append(out, left...)
	out = append(out, kept...)
	return out
}
