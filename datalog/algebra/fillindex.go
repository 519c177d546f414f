package algebra

import "github.com/relalg-io/triplealgebra/datalog/symbol"

// FillNormalBindingIndices walks the tree and resolves every expression's
// variable references to positional indices: for unary nodes against the
// child's after-eliminate bindings, for leaves against the node's own raw
// (before-eliminate) bindings. It must run once after the tree is built and
// before iter() is ever called.
func FillNormalBindingIndices(n *Node) error {
	switch n.Kind {
	case KindInlineFixed:
		return nil

	case KindTriple:
		own := BindingsBeforeEliminate(n)
		for _, f := range n.Triple.Filters {
			if err := f.FillBindingIndices(own); err != nil {
				return err
			}
		}
		return nil

	case KindStored:
		for _, f := range n.Stored.Filters {
			if err := f.FillBindingIndices(n.Stored.Bindings); err != nil {
				return err
			}
		}
		return nil

	case KindDerived:
		for _, f := range n.Derived.Filters {
			if err := f.FillBindingIndices(n.Derived.Bindings); err != nil {
				return err
			}
		}
		return nil

	case KindFilter:
		parentAfter := BindingsAfterEliminate(n.Filter.Parent)
		for _, p := range n.Filter.Preds {
			if err := p.FillBindingIndices(parentAfter); err != nil {
				return err
			}
		}
		return FillNormalBindingIndices(n.Filter.Parent)

	case KindUnification:
		parentAfter := BindingsAfterEliminate(n.Unify.Parent)
		if err := n.Unify.Expr.FillBindingIndices(parentAfter); err != nil {
			return err
		}
		return FillNormalBindingIndices(n.Unify.Parent)

	case KindReorder:
		return FillNormalBindingIndices(n.Reorder.Parent)

	case KindInnerJoin:
		if err := FillNormalBindingIndices(n.Join.Left); err != nil {
			return err
		}
		if err := FillNormalBindingIndices(n.Join.Right); err != nil {
			return err
		}
		joined := BindingsAfterEliminate(n.Join.Left).Concat(BindingsAfterEliminate(n.Join.Right))
		return FillJoinBindingIndices(n.Join.Right, joined)

	case KindNegJoin:
		if err := FillNormalBindingIndices(n.NegJoin.Left); err != nil {
			return err
		}
		if err := FillNormalBindingIndices(n.NegJoin.Right); err != nil {
			return err
		}
		joined := BindingsAfterEliminate(n.NegJoin.Left).Concat(BindingsAfterEliminate(n.NegJoin.Right))
		return FillJoinBindingIndices(n.NegJoin.Right, joined)

	default:
		panic("algebra: unknown node kind in FillNormalBindingIndices")
	}
}

// FillJoinBindingIndices re-resolves the filters of a join's right-hand
// side against the joined (left++right) binding vector instead of the
// node's own local bindings. This lets a Triple's value-range filter
// reference the left tuple's columns so eval_bound can substitute them and
// hand compute_bounds a real per-left-tuple range (see tripleJoinGen in
// triple.go and prefixBound in stored_join.go).
func FillJoinBindingIndices(n *Node, joined symbol.Bindings) error {
	switch n.Kind {
	case KindFilter:
		for _, p := range n.Filter.Preds {
			if err := p.FillBindingIndices(joined); err != nil {
				return err
			}
		}
		return FillJoinBindingIndices(n.Filter.Parent, joined)

	case KindTriple:
		for _, f := range n.Triple.Filters {
			if err := f.FillBindingIndices(joined); err != nil {
				return err
			}
		}
		return nil

	case KindStored:
		for _, f := range n.Stored.Filters {
			if err := f.FillBindingIndices(joined); err != nil {
				return err
			}
		}
		return nil

	case KindDerived:
		for _, f := range n.Derived.Filters {
			if err := f.FillBindingIndices(joined); err != nil {
				return err
			}
		}
		return nil

	case KindInnerJoin:
		return FillJoinBindingIndices(n.Join.Right, joined)

	case KindNegJoin:
		return FillJoinBindingIndices(n.NegJoin.Right, joined)

	default:
		return nil
	}
}
