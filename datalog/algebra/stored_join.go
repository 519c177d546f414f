package algebra

import (
	"github.com/relalg-io/triplealgebra/datalog/expr"
	"github.com/relalg-io/triplealgebra/datalog/symbol"
	"github.com/relalg-io/triplealgebra/datalog/txn"
)

// joinIsPrefix reports whether the join's right-hand keys form a sorted,
// contiguous prefix (0..k-1, in that exact order) of the right relation's
// column order — the condition under which a prefix scan can serve the join
// directly instead of materializing the right side (§4.6/§4.7).
func joinIsPrefix(rightKeyIdx []int) bool {
	for i, pos := range rightKeyIdx {
		if pos != i {
			return false
		}
	}
	return true
}

// collectFilteredRows drains c, applying filters to each row, keeping only
// the rows that pass.
func collectFilteredRows(c txn.FragmentSeqTuple, filters []expr.Expr) ([]symbol.Tuple, error) {
	var out []symbol.Tuple
	for {
		t, err, ok := c.Next()
		if !ok {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		pass, err := applyFilters(filters, t)
		if err != nil {
			return nil, err
		}
		if pass {
			out = append(out, t)
		}
	}
}

// prefixBound computes a per-left-tuple range bound on the column directly
// after the join-key prefix, mirroring the Triple e-bound strategy's
// residual-filter substitution; the memoization flag is owned by the
// caller's generator closure, per §9.
//
// right's filters were resolved (FillJoinBindingIndices) against the joined
// leftBindings++rightBindings vector, so the probe tuple handed to
// EvalBound must have that same shape: lt's values occupy their existing
// positions verbatim (lt already has leftBindings' shape) and every
// right-side slot stays nil/unresolved.
func prefixBound(filters []expr.Expr, leftBindings, rightBindings symbol.Bindings, keyLen int, lt symbol.Tuple) (expr.Bound, bool) {
	if keyLen >= len(rightBindings) {
		return expr.Bound{}, false
	}
	col := rightBindings[keyLen]
	partial := make(symbol.Tuple, len(leftBindings)+len(rightBindings))
	copy(partial, lt)
	comps := toComparisons(filters)
	residual := evalBoundFilters(comps, partial)
	return expr.ComputeSingleBound(residual, col), true
}

// storedJoinGen builds the right-hand generator for a Stored child of an
// InnerJoin/NegJoin, using a prefix scan when the join keys are a sorted
// prefix and falling back to the generic materialized join otherwise.
func storedJoinGen(right *Node, ctx *Ctx, leftBindings symbol.Bindings, joiner Joiner, negate bool) (func(symbol.Tuple) (TupleSeq, error), error) {
	s := right.Stored
	rightKeyIdx := rightKeyIndices(joiner, s.Bindings)
	if !joinIsPrefix(rightKeyIdx) {
		return materializedJoin(right, ctx, leftBindings, joiner, negate)
	}

	leftKeyIdx := leftKeyIndices(joiner, leftBindings)
	drop := rightDropIndices(right, joiner)
	noBoundFound := false

	return func(lt symbol.Tuple) (TupleSeq, error) {
		prefix := leftKeyValues(lt, leftKeyIdx)
		var cursor txn.FragmentSeqTuple
		if !noBoundFound {
			bound, ok := prefixBound(s.Filters, leftBindings, s.Bindings, len(rightKeyIdx), lt)
			if ok && !bound.IsOpen() {
				cursor = s.Relation.ScanBoundedPrefix(prefix, bound.Lower, bound.Upper)
			} else {
				noBoundFound = true
			}
		}
		if cursor == nil {
			cursor = s.Relation.ScanPrefix(prefix)
		}
		rows, err := collectFilteredRows(cursor, s.Filters)
		if err != nil {
			return nil, err
		}
		if negate {
			if len(rows) > 0 {
				return Empty, nil
			}
			return FromSlice([]symbol.Tuple{lt}), nil
		}
		if len(rows) == 0 {
			return Empty, nil
		}
		out := make([]symbol.Tuple, len(rows))
		for i, row := range rows {
			out[i] = appendRight(lt, row, drop)
		}
		return FromSlice(out), nil
	}, nil
}

// derivedJoinGen mirrors storedJoinGen for Derived children, threading the
// evaluation epoch through every scan and honoring the §4.7 short-circuit:
// at epoch 0, a relation in use_delta has produced nothing yet.
func derivedJoinGen(right *Node, ctx *Ctx, leftBindings symbol.Bindings, joiner Joiner, negate bool) (func(symbol.Tuple) (TupleSeq, error), error) {
	d := right.Derived
	if ctx.isFirstEpochDelta(d.Relation.ID()) {
		return func(lt symbol.Tuple) (TupleSeq, error) {
			if negate {
				return FromSlice([]symbol.Tuple{lt}), nil
			}
			return Empty, nil
		}, nil
	}

	rightKeyIdx := rightKeyIndices(joiner, d.Bindings)
	if !joinIsPrefix(rightKeyIdx) {
		return materializedJoin(right, ctx, leftBindings, joiner, negate)
	}

	leftKeyIdx := leftKeyIndices(joiner, leftBindings)
	drop := rightDropIndices(right, joiner)
	epoch := ctx.scanEpoch(d.Relation.ID())
	noBoundFound := false

	return func(lt symbol.Tuple) (TupleSeq, error) {
		prefix := leftKeyValues(lt, leftKeyIdx)
		var cursor txn.FragmentSeqTuple
		if !noBoundFound {
			bound, ok := prefixBound(d.Filters, leftBindings, d.Bindings, len(rightKeyIdx), lt)
			if ok && !bound.IsOpen() {
				cursor = d.Relation.ScanBoundedPrefixForEpoch(prefix, bound.Lower, bound.Upper, epoch)
			} else {
				noBoundFound = true
			}
		}
		if cursor == nil {
			cursor = d.Relation.ScanPrefixForEpoch(prefix, epoch)
		}
		rows, err := collectFilteredRows(cursor, d.Filters)
		if err != nil {
			return nil, err
		}
		if negate {
			if len(rows) > 0 {
				return Empty, nil
			}
			return FromSlice([]symbol.Tuple{lt}), nil
		}
		if len(rows) == 0 {
			return Empty, nil
		}
		out := make([]symbol.Tuple, len(rows))
		for i, row := range rows {
			out[i] = appendRight(lt, row, drop)
		}
		return FromSlice(out), nil
	}, nil
}
