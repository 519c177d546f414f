// Package algebra is the relational-algebra execution core: a tagged
// operator tree over triples, stored relations and derived (recursive)
// relations, with index-aware join planning, variable elimination and
// lazy streaming iteration.
package algebra

import (
	"github.com/relalg-io/triplealgebra/datalog"
	"github.com/relalg-io/triplealgebra/datalog/expr"
	"github.com/relalg-io/triplealgebra/datalog/symbol"
	"github.com/relalg-io/triplealgebra/datalog/txn"
)

// Kind tags which variant a Node holds. The tree is a closed sum type: every
// operation dispatches on Kind rather than through an interface, so the
// join driver can pattern-match the right child's variant directly (see
// joinAgainst in join.go) without virtual calls.
type Kind int

const (
	KindInlineFixed Kind = iota
	KindTriple
	KindStored
	KindDerived
	KindFilter
	KindUnification
	KindReorder
	KindInnerJoin
	KindNegJoin
)

func (k Kind) String() string {
	switch k {
	case KindInlineFixed:
		return "InlineFixed"
	case KindTriple:
		return "Triple"
	case KindStored:
		return "Stored"
	case KindDerived:
		return "Derived"
	case KindFilter:
		return "Filter"
	case KindUnification:
		return "Unification"
	case KindReorder:
		return "Reorder"
	case KindInnerJoin:
		return "InnerJoin"
	case KindNegJoin:
		return "NegJoin"
	default:
		return "Unknown"
	}
}

// Node is the tagged operator. Exactly one of the variant pointers matching
// Kind is non-nil; the others are always nil for that node.
type Node struct {
	Kind Kind

	Fixed   *InlineFixedNode
	Triple  *TripleNode
	Stored  *StoredNode
	Derived *DerivedNode
	Filter  *FilterNode
	Unify   *UnifyNode
	Reorder *ReorderNode
	Join    *InnerJoinNode
	NegJoin *NegJoinNode
}

// InlineFixedNode holds a small materialized relation: a fixed binding list
// and a literal set of rows. The unit relation (zero columns, one empty
// row) is the identity for cartesian_join.
type InlineFixedNode struct {
	Bindings  symbol.Bindings
	Data      []symbol.Tuple
	Eliminate symbol.Set
}

// TripleNode scans the EAV pattern (e, a, v) for a fixed attribute at a
// given validity point, producing columns [e, v] before elimination.
type TripleNode struct {
	Attr      txn.AttributeMeta
	EVar      symbol.Symbol
	VVar      symbol.Symbol
	Vld       datalog.Value
	Filters   []expr.Expr
	Eliminate symbol.Set
}

// StoredNode scans a persisted relation with a fixed column ordering.
type StoredNode struct {
	Relation  txn.StoredRelation
	Bindings  symbol.Bindings
	Filters   []expr.Expr
	Eliminate symbol.Set
}

// DerivedNode is a Stored-shaped scan over a recursive rule's output,
// additionally parameterized by the evaluation epoch and the set of
// relations currently participating in the delta of a semi-naive step.
type DerivedNode struct {
	Relation  txn.DerivedStore
	Bindings  symbol.Bindings
	Filters   []expr.Expr
	Eliminate symbol.Set
}

// FilterNode applies a conjunctive predicate list to its parent's tuples.
type FilterNode struct {
	Parent    *Node
	Preds     []expr.Expr
	Eliminate symbol.Set
}

// UnifyNode computes a new column from expr over each parent tuple. When
// IsMulti, Expr must evaluate to a list and one output row is emitted per
// element; otherwise the scalar result is appended directly.
type UnifyNode struct {
	Parent    *Node
	Binding   symbol.Symbol
	Expr      expr.Expr
	IsMulti   bool
	Eliminate symbol.Set
}

// ReorderNode permutes/projects its parent's columns into Target order.
type ReorderNode struct {
	Parent *Node
	Target symbol.Bindings
}

// Joiner names the columns an InnerJoin/NegJoin matches on, read positionally
// from each side's after-eliminate bindings.
type Joiner struct {
	LeftKeys  symbol.Bindings
	RightKeys symbol.Bindings
}

// InnerJoinNode joins Left and Right on Joiner, dispatching physical
// strategy off Right.Kind (see join.go).
type InnerJoinNode struct {
	Left, Right *Node
	Join        Joiner
	Eliminate   symbol.Set
}

// NegJoinNode keeps a left tuple iff no matching row exists on the right.
// Right must be Triple, Derived or Stored; anything else is a planner
// invariant violation.
type NegJoinNode struct {
	Left, Right *Node
	Join        Joiner
	Eliminate   symbol.Set
}

// Unit returns the zero-arity, one-row identity relation: cartesian_join
// with Unit leaves the other operand unchanged.
func Unit() *Node {
	return &Node{
		Kind: KindInlineFixed,
		Fixed: &InlineFixedNode{
			Bindings:  nil,
			Data:      []symbol.Tuple{{}},
			Eliminate: symbol.NewSet(),
		},
	}
}

// IsUnit reports whether n is exactly the unit relation.
func IsUnit(n *Node) bool {
	return n.Kind == KindInlineFixed && len(n.Fixed.Bindings) == 0 && len(n.Fixed.Data) == 1
}

// Fixed builds an InlineFixed node over a literal set of rows.
func Fixed(bindings symbol.Bindings, rows []symbol.Tuple) *Node {
	return &Node{
		Kind: KindInlineFixed,
		Fixed: &InlineFixedNode{
			Bindings:  bindings,
			Data:      rows,
			Eliminate: symbol.NewSet(),
		},
	}
}

// Triple builds a Triple leaf over attribute attr, binding the entity
// column to eVar and the value column to vVar.
func Triple(attr txn.AttributeMeta, eVar, vVar symbol.Symbol, vld datalog.Value) *Node {
	return &Node{
		Kind: KindTriple,
		Triple: &TripleNode{
			Attr:      attr,
			EVar:      eVar,
			VVar:      vVar,
			Vld:       vld,
			Eliminate: symbol.NewSet(),
		},
	}
}

// Stored builds a Stored leaf over an already-resolved persisted relation.
func Stored(rel txn.StoredRelation) *Node {
	return &Node{
		Kind: KindStored,
		Stored: &StoredNode{
			Relation:  rel,
			Bindings:  rel.Bindings(),
			Eliminate: symbol.NewSet(),
		},
	}
}

// Derived builds a Derived leaf over a recursive rule's output store.
func Derived(rel txn.DerivedStore) *Node {
	return &Node{
		Kind: KindDerived,
		Derived: &DerivedNode{
			Relation:  rel,
			Bindings:  rel.Bindings(),
			Eliminate: symbol.NewSet(),
		},
	}
}

// WrapFilter wraps parent with a conjunctive predicate list.
func WrapFilter(parent *Node, preds ...expr.Expr) *Node {
	return &Node{
		Kind: KindFilter,
		Filter: &FilterNode{
			Parent:    parent,
			Preds:     preds,
			Eliminate: symbol.NewSet(),
		},
	}
}

// WrapUnification computes binding := e(tuple) over parent's rows.
func WrapUnification(parent *Node, binding symbol.Symbol, e expr.Expr, isMulti bool) *Node {
	return &Node{
		Kind: KindUnification,
		Unify: &UnifyNode{
			Parent:    parent,
			Binding:   binding,
			Expr:      e,
			IsMulti:   isMulti,
			Eliminate: symbol.NewSet(),
		},
	}
}

// WrapReorder permutes parent's columns into target order.
func WrapReorder(parent *Node, target symbol.Bindings) *Node {
	return &Node{
		Kind:    KindReorder,
		Reorder: &ReorderNode{Parent: parent, Target: target},
	}
}

// Join builds an InnerJoin of left and right on joiner.
func Join(left, right *Node, joiner Joiner) *Node {
	return &Node{
		Kind: KindInnerJoin,
		Join: &InnerJoinNode{
			Left: left, Right: right, Join: joiner,
			Eliminate: symbol.NewSet(),
		},
	}
}

// CartesianJoin is Join with empty key lists.
func CartesianJoin(left, right *Node) *Node {
	return Join(left, right, Joiner{})
}

// NegJoin builds an anti-join: left rows survive iff right has no match.
func NegJoin(left, right *Node, joiner Joiner) *Node {
	return &Node{
		Kind: KindNegJoin,
		NegJoin: &NegJoinNode{
			Left: left, Right: right, Join: joiner,
			Eliminate: symbol.NewSet(),
		},
	}
}
