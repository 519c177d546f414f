package algebra

import "github.com/relalg-io/triplealgebra/datalog/symbol"

// BindingsBeforeEliminate is the raw column list a node produces before its
// own to_eliminate set is applied.
func BindingsBeforeEliminate(n *Node) symbol.Bindings {
	switch n.Kind {
	case KindInlineFixed:
		return n.Fixed.Bindings
	case KindTriple:
		return symbol.Bindings{n.Triple.EVar, n.Triple.VVar}
	case KindStored:
		return n.Stored.Bindings
	case KindDerived:
		return n.Derived.Bindings
	case KindFilter:
		return BindingsAfterEliminate(n.Filter.Parent)
	case KindUnification:
		return BindingsAfterEliminate(n.Unify.Parent).Concat(symbol.Bindings{n.Unify.Binding})
	case KindReorder:
		return n.Reorder.Target
	case KindInnerJoin:
		// Right's join-key columns are redundant with left's (they name the
		// same logical variable) and never appear twice in the output.
		rightAfter := BindingsAfterEliminate(n.Join.Right)
		rightKeys := symbol.NewSet().AddAll(n.Join.Join.RightKeys)
		rightOut := symbol.AfterEliminate(rightAfter, rightKeys)
		return BindingsAfterEliminate(n.Join.Left).Concat(rightOut)
	case KindNegJoin:
		return BindingsAfterEliminate(n.NegJoin.Left)
	default:
		panic("algebra: unknown node kind in BindingsBeforeEliminate")
	}
}

// EliminateSet returns the node's own to_eliminate set.
func EliminateSet(n *Node) symbol.Set {
	switch n.Kind {
	case KindInlineFixed:
		return n.Fixed.Eliminate
	case KindTriple:
		return n.Triple.Eliminate
	case KindStored:
		return n.Stored.Eliminate
	case KindDerived:
		return n.Derived.Eliminate
	case KindFilter:
		return n.Filter.Eliminate
	case KindUnification:
		return n.Unify.Eliminate
	case KindReorder:
		return symbol.NewSet() // Reorder never eliminates, only permutes
	case KindInnerJoin:
		return n.Join.Eliminate
	case KindNegJoin:
		return n.NegJoin.Eliminate
	default:
		panic("algebra: unknown node kind in EliminateSet")
	}
}

// BindingsAfterEliminate is what downstream operators and expressions see:
// the before-eliminate columns with to_eliminate removed.
func BindingsAfterEliminate(n *Node) symbol.Bindings {
	return symbol.AfterEliminate(BindingsBeforeEliminate(n), EliminateSet(n))
}

// AssertNoDuplicateBindings panics if b names the same symbol twice; used
// by InnerJoin construction/elimination to enforce invariant 4 of §8.
func AssertNoDuplicateBindings(b symbol.Bindings) {
	if b.HasDuplicates() {
		panic("algebra: duplicate symbol in InnerJoin bindings")
	}
}
