package algebra

import (
	"fmt"

	"github.com/relalg-io/triplealgebra/datalog"
	"github.com/relalg-io/triplealgebra/datalog/symbol"
)

// Iter streams n's after-eliminate tuples. This is the standalone (not a
// join's right-hand side) entry point; InnerJoin/NegJoin dispatch their
// right child through joinAgainst in join.go, and of its strategies only
// the materialized join calls Iter on the right child.
func Iter(n *Node, ctx *Ctx) TupleSeq {
	switch n.Kind {
	case KindInlineFixed:
		return iterFixed(n, ctx)
	case KindTriple:
		return iterTripleCartesian(n, ctx)
	case KindStored:
		return iterStoredFull(n, ctx)
	case KindDerived:
		return iterDerivedFull(n, ctx)
	case KindFilter:
		return iterFilter(n, ctx)
	case KindUnification:
		return iterUnify(n, ctx)
	case KindReorder:
		return iterReorder(n, ctx)
	case KindInnerJoin:
		return iterInnerJoin(n, ctx)
	case KindNegJoin:
		return iterNegJoin(n, ctx)
	default:
		return ErrSeq(fmt.Errorf("algebra: unknown node kind %v", n.Kind))
	}
}

func iterFixed(n *Node, ctx *Ctx) TupleSeq {
	idx := symbol.EliminateIndices(n.Fixed.Bindings, n.Fixed.Eliminate)
	rows := make([]symbol.Tuple, 0, len(n.Fixed.Data))
	for _, row := range n.Fixed.Data {
		rows = append(rows, symbol.ProjectTuple(row, idx))
	}
	return FromSlice(rows)
}

func iterFilter(n *Node, ctx *Ctx) TupleSeq {
	before := BindingsBeforeEliminate(n)
	idx := symbol.EliminateIndices(before, n.Filter.Eliminate)
	parent := Iter(n.Filter.Parent, ctx)
	return mapTuples(parent, func(t symbol.Tuple) (symbol.Tuple, error) {
		for _, p := range n.Filter.Preds {
			ok, err := p.EvalPred(t)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, nil // drop
			}
		}
		return symbol.ProjectTuple(t, idx), nil
	})
}

func iterUnify(n *Node, ctx *Ctx) TupleSeq {
	before := BindingsBeforeEliminate(n) // parent.after_eliminate ++ [binding]
	idx := symbol.EliminateIndices(before, n.Unify.Eliminate)
	parent := Iter(n.Unify.Parent, ctx)

	if !n.Unify.IsMulti {
		return mapTuples(parent, func(t symbol.Tuple) (symbol.Tuple, error) {
			v, err := n.Unify.Expr.Eval(t)
			if err != nil {
				return nil, err
			}
			extended := append(append(symbol.Tuple{}, t...), v)
			return symbol.ProjectTuple(extended, idx), nil
		})
	}

	// Spread unification: one output tuple per element of a list value.
	return &spreadSeq{parent: parent, n: n, idx: idx}
}

type spreadSeq struct {
	parent  TupleSeq
	n       *Node
	idx     []int
	pending []symbol.Tuple
	pos     int
	done    bool
}

func (s *spreadSeq) Next() (symbol.Tuple, error, bool) {
	for {
		if s.pos < len(s.pending) {
			t := s.pending[s.pos]
			s.pos++
			return t, nil, true
		}
		if s.done {
			return nil, nil, false
		}
		t, err, ok := s.parent.Next()
		if !ok {
			s.done = true
			return nil, nil, false
		}
		if err != nil {
			s.done = true
			return nil, err, true
		}
		v, err := s.n.Unify.Expr.Eval(t)
		if err != nil {
			return nil, err, true
		}
		elems, ok := asList(v)
		if !ok {
			return nil, fmt.Errorf("algebra: invalid spread unification, expected list"), true
		}
		s.pending = s.pending[:0]
		for _, e := range elems {
			extended := append(append(symbol.Tuple{}, t...), e)
			s.pending = append(s.pending, symbol.ProjectTuple(extended, s.idx))
		}
		s.pos = 0
	}
}

func asList(v datalog.Value) ([]datalog.Value, bool) {
	switch l := v.(type) {
	case []datalog.Value:
		return l, true
	case []interface{}:
		out := make([]datalog.Value, len(l))
		for i, e := range l {
			out[i] = e
		}
		return out, true
	case []symbol.Tuple:
		out := make([]datalog.Value, len(l))
		for i, t := range l {
			out[i] = t
		}
		return out, true
	default:
		return nil, false
	}
}

func iterReorder(n *Node, ctx *Ctx) TupleSeq {
	parentAfter := BindingsAfterEliminate(n.Reorder.Parent)
	positions := make([]int, len(n.Reorder.Target))
	for i, sym := range n.Reorder.Target {
		pos := parentAfter.IndexOf(sym)
		if pos < 0 {
			panic(fmt.Sprintf("algebra: Reorder references absent symbol %q", sym))
		}
		positions[i] = pos
	}
	parent := Iter(n.Reorder.Parent, ctx)
	return mapTuples(parent, func(t symbol.Tuple) (symbol.Tuple, error) {
		out := make(symbol.Tuple, len(positions))
		for i, p := range positions {
			out[i] = t[p]
		}
		return out, nil
	})
}
