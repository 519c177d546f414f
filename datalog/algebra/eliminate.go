package algebra

import (
	"github.com/relalg-io/triplealgebra/datalog/expr"
	"github.com/relalg-io/triplealgebra/datalog/symbol"
)

// GetFilters returns the filter list of the innermost filterable node
// reachable by descending through Filter wrappers and the right side of
// joins. InnerJoin's elimination pass uses this to find filters that may
// reference left-bound columns once resolved against the joined bindings.
func GetFilters(n *Node) []expr.Expr {
	switch n.Kind {
	case KindFilter:
		out := append([]expr.Expr{}, n.Filter.Preds...)
		return append(out, GetFilters(n.Filter.Parent)...)
	case KindTriple:
		return n.Triple.Filters
	case KindStored:
		return n.Stored.Filters
	case KindDerived:
		return n.Derived.Filters
	case KindInnerJoin:
		return GetFilters(n.Join.Right)
	case KindNegJoin:
		return GetFilters(n.NegJoin.Right)
	default:
		return nil
	}
}

func filterVars(filters []expr.Expr) symbol.Set {
	out := symbol.NewSet()
	for _, f := range filters {
		out = out.Union(f.Bindings())
	}
	return out
}

// EliminateTempVars runs the bottom-up elimination pass: seeded at the root
// with the query's requested output variables, it records in each node's
// to_eliminate set every output column not needed by used or by the node's
// own predicates/expressions, then recurses into children with the
// locally-needed set added.
func EliminateTempVars(n *Node, used symbol.Set) {
	switch n.Kind {
	case KindInlineFixed:
		n.Fixed.Eliminate = toEliminate(n.Fixed.Bindings, used)

	case KindTriple, KindStored, KindDerived:
		// Sources always produce their declared columns; pruning happens
		// downstream at Reorder or at the consuming join, not here.

	case KindFilter:
		localUsed := used.Union(predExprBindings(n.Filter.Preds))
		before := BindingsBeforeEliminate(n)
		n.Filter.Eliminate = toEliminate(before, used)
		EliminateTempVars(n.Filter.Parent, localUsed)

	case KindUnification:
		before := BindingsBeforeEliminate(n)
		n.Unify.Eliminate = toEliminate(before, used)
		localUsed := symbol.NewSet()
		for s := range used {
			if s != n.Unify.Binding {
				localUsed.Add(s)
			}
		}
		localUsed = localUsed.Union(n.Unify.Expr.Bindings())
		EliminateTempVars(n.Unify.Parent, localUsed)

	case KindReorder:
		localUsed := symbol.NewSet().AddAll(n.Reorder.Target).Union(used)
		EliminateTempVars(n.Reorder.Parent, localUsed)

	case KindInnerJoin:
		before := BindingsBeforeEliminate(n)
		AssertNoDuplicateBindings(before)
		n.Join.Eliminate = toEliminate(before, used)
		rightFilterVars := filterVars(GetFilters(n.Join.Right))
		leftUsed := used.Union(symbol.NewSet().AddAll(n.Join.Join.LeftKeys)).Union(rightFilterVars)
		rightUsed := used.Union(symbol.NewSet().AddAll(n.Join.Join.RightKeys))
		EliminateTempVars(n.Join.Left, leftUsed)
		EliminateTempVars(n.Join.Right, rightUsed)

	case KindNegJoin:
		before := BindingsBeforeEliminate(n) // == left.after_eliminate
		n.NegJoin.Eliminate = toEliminate(before, used)
		leftUsed := used.Union(symbol.NewSet().AddAll(n.NegJoin.Join.LeftKeys))
		rightUsed := symbol.NewSet().AddAll(n.NegJoin.Join.RightKeys) // right is a filter, introduces nothing
		EliminateTempVars(n.NegJoin.Left, leftUsed)
		EliminateTempVars(n.NegJoin.Right, rightUsed)

	default:
		panic("algebra: unknown node kind in EliminateTempVars")
	}
}

func toEliminate(before symbol.Bindings, used symbol.Set) symbol.Set {
	out := symbol.NewSet()
	for _, s := range before {
		if !used.Contains(s) {
			out.Add(s)
		}
	}
	return out
}

// predExprBindings collects the symbols referenced across a predicate list.
func predExprBindings(preds []expr.Expr) symbol.Set {
	return filterVars(preds)
}
