package algebra

import (
	"github.com/relalg-io/triplealgebra/datalog"
	"github.com/relalg-io/triplealgebra/datalog/expr"
	"github.com/relalg-io/triplealgebra/datalog/symbol"
	"github.com/relalg-io/triplealgebra/datalog/txn"
)

// fragSeqToTuples wraps a raw (e,v) fragment cursor as a TupleSeq of
// [e,v] rows, the Triple node's before-eliminate shape.
func fragSeqToTuples(frags txn.FragmentSeq) TupleSeq {
	return &fragAdaptor{frags: frags}
}

type fragAdaptor struct {
	frags txn.FragmentSeq
	done  bool
}

func (a *fragAdaptor) Next() (symbol.Tuple, error, bool) {
	if a.done {
		return nil, nil, false
	}
	f, ok := a.frags.Next()
	if !ok {
		a.done = true
		return nil, nil, false
	}
	if f.Err != nil {
		a.done = true
		return nil, f.Err, true
	}
	return symbol.Tuple{f.E, f.V}, nil, true
}

// iterTripleCartesian is the standalone (no enclosing join) scan path: the
// ∅-bound row of the §4.5 strategy table.
func iterTripleCartesian(n *Node, ctx *Ctx) TupleSeq {
	t := n.Triple
	comps := toComparisons(t.Filters)
	bound := expr.ComputeSingleBound(comps, t.VVar)

	var raw TupleSeq
	if !bound.IsOpen() {
		raw = fragSeqToTuples(ctx.Tx.TripleAVRangeScan(t.Attr, bound.Lower, bound.Upper, t.Vld))
	} else {
		raw = fragSeqToTuples(ctx.Tx.TripleAScan(t.Attr, t.Vld))
	}

	before := BindingsBeforeEliminate(n)
	idx := symbol.EliminateIndices(before, t.Eliminate)
	return mapTuples(raw, func(row symbol.Tuple) (symbol.Tuple, error) {
		ok, err := applyFilters(t.Filters, row)
		if err != nil || !ok {
			return nil, err
		}
		return symbol.ProjectTuple(row, idx), nil
	})
}

// findKeyLeftPos reports whether rightSym is one of the join's right keys
// and, if so, the position of its paired left key in leftBindings.
func findKeyLeftPos(joiner Joiner, leftBindings symbol.Bindings, rightSym symbol.Symbol) (int, bool) {
	for i, rk := range joiner.RightKeys {
		if rk == rightSym {
			pos := leftBindings.IndexOf(joiner.LeftKeys[i])
			if pos >= 0 {
				return pos, true
			}
		}
	}
	return 0, false
}

// tripleJoinGen builds the right-hand generator for a Triple participating
// in an InnerJoin or NegJoin, dispatching the full §4.5 strategy matrix off
// which of {e, v} the enclosing join already binds from the left side.
func tripleJoinGen(right *Node, ctx *Ctx, leftBindings symbol.Bindings, joiner Joiner, negate bool) func(symbol.Tuple) (TupleSeq, error) {
	t := right.Triple
	comps := toComparisons(t.Filters)
	drop := rightDropIndices(right, joiner)

	eLeftPos, eBound := findKeyLeftPos(joiner, leftBindings, t.EVar)
	vLeftPos, vBound := findKeyLeftPos(joiner, leftBindings, t.VVar)

	noBoundFound := false // per-generator memo: §9 range-bound memoization
	var cartesianCache []symbol.Tuple
	var unindexedIdx map[string][]datalog.Value

	emit := func(lt symbol.Tuple, matched bool, raw symbol.Tuple) (TupleSeq, error) {
		if negate {
			if matched {
				return Empty, nil
			}
			return FromSlice([]symbol.Tuple{lt}), nil
		}
		if !matched {
			return Empty, nil
		}
		return FromSlice([]symbol.Tuple{appendRight(lt, raw, drop)}), nil
	}

	// collectFirst drains frags, applying residual filters, and returns the
	// first (e,v) row that passes (or ok=false if none do).
	collectFirst := func(frags txn.FragmentSeq) (symbol.Tuple, bool, error) {
		for {
			f, ok := frags.Next()
			if !ok {
				return nil, false, nil
			}
			if f.Err != nil {
				return nil, false, f.Err
			}
			row := symbol.Tuple{f.E, f.V}
			ok2, err := applyFilters(t.Filters, row)
			if err != nil {
				return nil, false, err
			}
			if ok2 {
				return row, true, nil
			}
		}
	}

	// collectAll drains frags into every passing (e,v) row.
	collectAll := func(frags txn.FragmentSeq) ([]symbol.Tuple, error) {
		var out []symbol.Tuple
		for {
			f, ok := frags.Next()
			if !ok {
				return out, nil
			}
			if f.Err != nil {
				return nil, f.Err
			}
			row := symbol.Tuple{f.E, f.V}
			ok2, err := applyFilters(t.Filters, row)
			if err != nil {
				return nil, err
			}
			if ok2 {
				out = append(out, row)
			}
		}
	}

	switch {
	case eBound && vBound:
		return func(lt symbol.Tuple) (TupleSeq, error) {
			eID, err := datalog.AsEntityID(lt[eLeftPos], datalog.Span{})
			if err != nil {
				return nil, err
			}
			exists, err := ctx.Tx.AevExists(t.Attr, eID, lt[vLeftPos], t.Vld)
			if err != nil {
				return nil, err
			}
			raw := symbol.Tuple{lt[eLeftPos], lt[vLeftPos]}
			return emit(lt, exists, raw)
		}

	case eBound:
		return func(lt symbol.Tuple) (TupleSeq, error) {
			eID, err := datalog.AsEntityID(lt[eLeftPos], datalog.Span{})
			if err != nil {
				return nil, err
			}
			var frags txn.FragmentSeq
			if !noBoundFound {
				partial := append(append(symbol.Tuple{}, lt...), nil, nil)
				residual := evalBoundFilters(comps, partial)
				bound := expr.ComputeSingleBound(residual, t.VVar)
				if !bound.IsOpen() {
					frags = ctx.Tx.TripleAERangeScan(t.Attr, eID, bound.Lower, bound.Upper, t.Vld)
				} else {
					noBoundFound = true
				}
			}
			if frags == nil {
				frags = ctx.Tx.TripleAEScan(t.Attr, eID, t.Vld)
			}
			if negate {
				_, found, err := collectFirst(frags)
				if err != nil {
					return nil, err
				}
				return emit(lt, found, nil)
			}
			rows, err := collectAll(frags)
			if err != nil {
				return nil, err
			}
			out := make([]symbol.Tuple, len(rows))
			for i, r := range rows {
				out[i] = appendRight(lt, r, drop)
			}
			return FromSlice(out), nil
		}

	case vBound:
		return func(lt symbol.Tuple) (TupleSeq, error) {
			v := lt[vLeftPos]
			var frags txn.FragmentSeq
			switch {
			case t.Attr.IsRefType:
				eid, err := datalog.AsEntityID(v, datalog.Span{})
				if err != nil {
					return nil, err
				}
				frags = ctx.Tx.TripleVRefAScan(t.Attr, eid, t.Vld)
			case t.Attr.ShouldIndex:
				frags = ctx.Tx.TripleAVScan(t.Attr, v, t.Vld)
			default:
				if unindexedIdx == nil {
					var err error
					unindexedIdx, err = buildUnindexedValueIndex(ctx, t)
					if err != nil {
						return nil, err
					}
				}
				entities := unindexedIdx[keyString(symbol.Tuple{v})]
				if negate {
					return emit(lt, len(entities) > 0, nil)
				}
				out := make([]symbol.Tuple, len(entities))
				for i, e := range entities {
					out[i] = appendRight(lt, symbol.Tuple{e, v}, drop)
				}
				return FromSlice(out), nil
			}
			if negate {
				_, found, err := collectFirst(frags)
				if err != nil {
					return nil, err
				}
				return emit(lt, found, nil)
			}
			rows, err := collectAll(frags)
			if err != nil {
				return nil, err
			}
			out := make([]symbol.Tuple, len(rows))
			for i, r := range rows {
				out[i] = appendRight(lt, r, drop)
			}
			return FromSlice(out), nil
		}

	default: // ∅: true cartesian, neither column bound by the join
		return func(lt symbol.Tuple) (TupleSeq, error) {
			if cartesianCache == nil {
				bound := expr.ComputeSingleBound(comps, t.VVar)
				var frags txn.FragmentSeq
				if !bound.IsOpen() {
					frags = ctx.Tx.TripleAVRangeScan(t.Attr, bound.Lower, bound.Upper, t.Vld)
				} else {
					frags = ctx.Tx.TripleAScan(t.Attr, t.Vld)
				}
				rows, err := collectAll(frags)
				if err != nil {
					return nil, err
				}
				if rows == nil {
					rows = []symbol.Tuple{}
				}
				cartesianCache = rows
			}
			if negate {
				return emit(lt, len(cartesianCache) > 0, nil)
			}
			out := make([]symbol.Tuple, len(cartesianCache))
			for i, r := range cartesianCache {
				out[i] = appendRight(lt, r, drop)
			}
			return FromSlice(out), nil
		}
	}
}

// buildUnindexedValueIndex materializes the full attribute scan keyed by
// value, for the "{v}, not indexed" strategy row: there is no value index
// to scan directly, so every left tuple's lookup is served from one
// in-memory map built on first use.
func buildUnindexedValueIndex(ctx *Ctx, t *TripleNode) (map[string][]datalog.Value, error) {
	frags := ctx.Tx.TripleAScan(t.Attr, t.Vld)
	idx := make(map[string][]datalog.Value)
	for {
		f, ok := frags.Next()
		if !ok {
			return idx, nil
		}
		if f.Err != nil {
			return nil, f.Err
		}
		key := keyString(symbol.Tuple{f.V})
		idx[key] = append(idx[key], f.E)
	}
}
