package algebra

import (
	"github.com/relalg-io/triplealgebra/datalog"
	"github.com/relalg-io/triplealgebra/datalog/symbol"
	"github.com/relalg-io/triplealgebra/datalog/txn"
)

// materializedJoin is the generic fallback join strategy (§4.9) for any
// right child whose join-key columns are not a sorted prefix of its own
// output order: the right stream is drained once into a scoped TempStore
// keyed on the join columns (reordered to the front, in left-key order),
// then the left stream probes it by prefix. If the right stream yields an
// error at any point while it is drained, that error is returned at once
// and becomes the whole join's output rather than being silently dropped.
func materializedJoin(right *Node, ctx *Ctx, leftBindings symbol.Bindings, joiner Joiner, negate bool) (func(symbol.Tuple) (TupleSeq, error), error) {
	rightAfter := BindingsAfterEliminate(right)
	rightKeyIdx := rightKeyIndices(joiner, rightAfter)
	remainingIdx := remainingIndices(len(rightAfter), rightKeyIdx)
	leftKeyIdx := leftKeyIndices(joiner, leftBindings)
	drop := symbol.EliminateIndices(rightAfter, symbol.NewSet().AddAll(joiner.RightKeys))

	store := ctx.Tx.NewTempStore(datalog.Span{})
	seq := Iter(right, ctx)
	for {
		t, err, ok := seq.Next()
		if !ok {
			break
		}
		if err != nil {
			return nil, err
		}
		reordered := make(symbol.Tuple, len(t))
		for i, pos := range rightKeyIdx {
			reordered[i] = t[pos]
		}
		for i, pos := range remainingIdx {
			reordered[len(rightKeyIdx)+i] = t[pos]
		}
		if err := store.Put(reordered); err != nil {
			return nil, err
		}
	}

	gen := func(lt symbol.Tuple) (TupleSeq, error) {
		prefix := leftKeyValues(lt, leftKeyIdx)
		cursor := store.ScanPrefix(prefix)
		rows, err := drainTupleCursor(cursor)
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
			full := make(symbol.Tuple, len(rightAfter))
			for j, pos := range rightKeyIdx {
				full[pos] = row[j]
			}
			for j, pos := range remainingIdx {
				full[pos] = row[len(rightKeyIdx)+j]
			}
			out[i] = appendRight(lt, full, drop)
		}
		return FromSlice(out), nil
	}
	return gen, nil
}

func remainingIndices(n int, taken []int) []int {
	skip := make(map[int]bool, len(taken))
	for _, i := range taken {
		skip[i] = true
	}
	out := make([]int, 0, n-len(taken))
	for i := 0; i < n; i++ {
		if !skip[i] {
			out = append(out, i)
		}
	}
	return out
}

func drainTupleCursor(c txn.FragmentSeqTuple) ([]symbol.Tuple, error) {
	var out []symbol.Tuple
	for {
		t, err, ok := c.Next()
		if !ok {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
}
