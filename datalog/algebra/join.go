package algebra

import (
	"fmt"

	"github.com/relalg-io/triplealgebra/datalog/symbol"
)

// iterInnerJoin drives an InnerJoin by dispatching its physical strategy off
// Right.Kind (§4.5-§4.9): InlineFixed gets an in-memory hash/equality join,
// Triple gets the index-aware strategy matrix, Stored/Derived get a prefix
// scan when their join keys are a sorted prefix of their own column order
// and a materialized join otherwise, Filter/Unification/a nested Join take
// the materialized path since they have no native scan-by-key of their own,
// and Reorder/NegJoin are rejected outright (§4.9, §7): neither can serve as
// a join's right-hand side.
func iterInnerJoin(n *Node, ctx *Ctx) TupleSeq {
	j := n.Join
	left := Iter(j.Left, ctx)
	leftBindings := BindingsAfterEliminate(j.Left)

	joined, err := joinAgainst(j.Right, ctx, left, leftBindings, j.Join, false)
	if err != nil {
		return ErrSeq(err)
	}
	return projectEliminate(n, joined)
}

// iterNegJoin drives a NegJoin: a left tuple survives iff the right side
// produces no match. Only Triple, Derived and Stored may appear on the
// right; anything else is a planner invariant violation.
func iterNegJoin(n *Node, ctx *Ctx) TupleSeq {
	nj := n.NegJoin
	switch nj.Right.Kind {
	case KindTriple, KindDerived, KindStored:
	default:
		panic(fmt.Sprintf("algebra: NegJoin right child must be Triple, Stored or Derived, got %v", nj.Right.Kind))
	}

	left := Iter(nj.Left, ctx)
	leftBindings := BindingsAfterEliminate(nj.Left)

	joined, err := joinAgainst(nj.Right, ctx, left, leftBindings, nj.Join, true)
	if err != nil {
		return ErrSeq(err)
	}
	return projectEliminate(n, joined)
}

func joinAgainst(right *Node, ctx *Ctx, left TupleSeq, leftBindings symbol.Bindings, joiner Joiner, negate bool) (TupleSeq, error) {
	switch right.Kind {
	case KindReorder, KindNegJoin:
		// §4.9/§7: Reorder and NegJoin can never be a join's right child;
		// this is a planner invariant violation, not a runtime condition.
		panic(fmt.Sprintf("algebra: %v cannot appear as a join's right child", right.Kind))

	case KindInlineFixed:
		if negate {
			gen := fixedNegGen(right, joiner, leftBindings)
			return FlattenMap(left, gen), nil
		}
		return joinFixed(right, left, joiner, leftBindings), nil

	case KindTriple:
		gen := tripleJoinGen(right, ctx, leftBindings, joiner, negate)
		return FlattenMap(left, gen), nil

	case KindStored:
		gen, err := storedJoinGen(right, ctx, leftBindings, joiner, negate)
		if err != nil {
			return nil, err
		}
		return FlattenMap(left, gen), nil

	case KindDerived:
		gen, err := derivedJoinGen(right, ctx, leftBindings, joiner, negate)
		if err != nil {
			return nil, err
		}
		return FlattenMap(left, gen), nil

	default:
		gen, err := materializedJoin(right, ctx, leftBindings, joiner, negate)
		if err != nil {
			return nil, err
		}
		return FlattenMap(left, gen), nil
	}
}

// fixedNegGen is InlineFixed's anti-join variant: not part of the §4.4
// positive-join strategy since NegJoin never actually reaches InlineFixed in
// practice (it is excluded by iterNegJoin's arity check), but kept so
// joinAgainst stays total over every Kind it can be asked to negate.
func fixedNegGen(right *Node, joiner Joiner, leftBindings symbol.Bindings) func(symbol.Tuple) (TupleSeq, error) {
	f := right.Fixed
	lIdx := leftKeyIndices(joiner, leftBindings)
	rIdx := rightKeyIndices(joiner, f.Bindings)
	return func(lt symbol.Tuple) (TupleSeq, error) {
		for _, row := range f.Data {
			if rowMatches(lt, lIdx, row, rIdx) {
				return Empty, nil
			}
		}
		return FromSlice([]symbol.Tuple{lt}), nil
	}
}

func projectEliminate(n *Node, joined TupleSeq) TupleSeq {
	before := BindingsBeforeEliminate(n)
	idx := symbol.EliminateIndices(before, EliminateSet(n))
	return mapTuples(joined, func(t symbol.Tuple) (symbol.Tuple, error) {
		return symbol.ProjectTuple(t, idx), nil
	})
}

// iterStoredFull is the standalone (non-join) Stored scan: the whole
// relation, filtered and projected.
func iterStoredFull(n *Node, ctx *Ctx) TupleSeq {
	s := n.Stored
	cursor := s.Relation.ScanAll()
	rows, err := collectFilteredRows(cursor, s.Filters)
	if err != nil {
		return ErrSeq(err)
	}
	idx := symbol.EliminateIndices(s.Bindings, s.Eliminate)
	out := make([]symbol.Tuple, len(rows))
	for i, row := range rows {
		out[i] = symbol.ProjectTuple(row, idx)
	}
	return FromSlice(out)
}

// iterDerivedFull is the standalone Derived scan, epoch-parameterized per
// §4.7, including the epoch-0-in-delta short-circuit to empty.
func iterDerivedFull(n *Node, ctx *Ctx) TupleSeq {
	d := n.Derived
	if ctx.isFirstEpochDelta(d.Relation.ID()) {
		return Empty
	}
	epoch := ctx.scanEpoch(d.Relation.ID())
	cursor := d.Relation.ScanAllForEpoch(epoch)
	rows, err := collectFilteredRows(cursor, d.Filters)
	if err != nil {
		return ErrSeq(err)
	}
	idx := symbol.EliminateIndices(d.Bindings, d.Eliminate)
	out := make([]symbol.Tuple, len(rows))
	for i, row := range rows {
		out[i] = symbol.ProjectTuple(row, idx)
	}
	return FromSlice(out)
}
