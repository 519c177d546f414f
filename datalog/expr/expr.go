// Package expr implements the predicate and projection expressions that
// Filter and Unification nodes evaluate against a tuple, plus the bound
// computation used to push value ranges down into Triple/Stored scans.
//
// The evaluator itself is an external collaborator in the broader system;
// this package only fixes the contract the operator tree relies on and
// ships a concrete set of comparison/arithmetic expressions sufficient to
// drive range pushdown and unification.
package expr

import (
	"fmt"

	"github.com/relalg-io/triplealgebra/datalog"
	"github.com/relalg-io/triplealgebra/datalog/symbol"
)

// Expr is anything that can be evaluated against a bound-resolved tuple.
// Variable references must have been resolved to positional indices by
// FillBindingIndices before Eval/EvalPred/EvalBound are called.
type Expr interface {
	// Eval computes the expression's value for one input tuple.
	Eval(t symbol.Tuple) (datalog.Value, error)

	// EvalPred evaluates the expression as a boolean predicate.
	EvalPred(t symbol.Tuple) (bool, error)

	// EvalBound partially evaluates the expression substituting whatever
	// columns of t are already bound (non-nil), returning a residual
	// expression over the remaining free variables. Used by Triple's
	// e-bound join strategy and the Stored/Derived prefix join
	// (prefixBound) to derive a per-left-tuple range.
	EvalBound(t symbol.Tuple) Expr

	// Bindings returns the set of symbols this expression reads.
	Bindings() symbol.Set

	// FillBindingIndices resolves every variable reference against the
	// given bindings vector, recording positional indices for Eval.
	FillBindingIndices(b symbol.Bindings) error
}

// CompareOp enumerates the comparison operators a range filter may use.
type CompareOp int

const (
	Eq CompareOp = iota
	Neq
	Lt
	Lte
	Gt
	Gte
)

func (op CompareOp) String() string {
	switch op {
	case Eq:
		return "="
	case Neq:
		return "!="
	case Lt:
		return "<"
	case Lte:
		return "<="
	case Gt:
		return ">"
	case Gte:
		return ">="
	default:
		return "?"
	}
}

// Term is one operand of a Comparison or Arithmetic expression.
type Term interface {
	eval(t symbol.Tuple) (datalog.Value, bool) // ok=false if the slot is unbound
	bindings() symbol.Set
	fillIndex(b symbol.Bindings) error
}

// VariableTerm reads a named column.
type VariableTerm struct {
	Sym   symbol.Symbol
	index int
	bound bool
}

func Var(sym symbol.Symbol) *VariableTerm { return &VariableTerm{Sym: sym} }

func (v *VariableTerm) eval(t symbol.Tuple) (datalog.Value, bool) {
	if !v.bound || v.index >= len(t) {
		return nil, false
	}
	val := t[v.index]
	if val == nil {
		return nil, false
	}
	return val, true
}

func (v *VariableTerm) bindings() symbol.Set { return symbol.NewSet(v.Sym) }

func (v *VariableTerm) fillIndex(b symbol.Bindings) error {
	idx := b.IndexOf(v.Sym)
	if idx < 0 {
		return fmt.Errorf("expr: unresolved symbol %q", v.Sym)
	}
	v.index = idx
	v.bound = true
	return nil
}

// ConstantTerm is a literal value.
type ConstantTerm struct {
	Value datalog.Value
}

func Const(v datalog.Value) *ConstantTerm { return &ConstantTerm{Value: v} }

func (c *ConstantTerm) eval(symbol.Tuple) (datalog.Value, bool) { return c.Value, true }
func (c *ConstantTerm) bindings() symbol.Set                   { return symbol.NewSet() }
func (c *ConstantTerm) fillIndex(symbol.Bindings) error         { return nil }

// Comparison is a binary predicate `left op right` over two Terms.
type Comparison struct {
	Left, Right Term
	Op          CompareOp
}

func Compare(left Term, op CompareOp, right Term) *Comparison {
	return &Comparison{Left: left, Op: op, Right: right}
}

func (c *Comparison) Eval(t symbol.Tuple) (datalog.Value, error) {
	ok, err := c.EvalPred(t)
	if err != nil {
		return nil, err
	}
	return ok, nil
}

func (c *Comparison) EvalPred(t symbol.Tuple) (bool, error) {
	lv, lok := c.Left.eval(t)
	rv, rok := c.Right.eval(t)
	if !lok || !rok {
		return false, nil
	}
	cmp := datalog.CompareValues(lv, rv)
	switch c.Op {
	case Eq:
		return cmp == 0, nil
	case Neq:
		return cmp != 0, nil
	case Lt:
		return cmp < 0, nil
	case Lte:
		return cmp <= 0, nil
	case Gt:
		return cmp > 0, nil
	case Gte:
		return cmp >= 0, nil
	default:
		return false, fmt.Errorf("expr: unknown comparison op %v", c.Op)
	}
}

// EvalBound substitutes whatever side of the comparison is already bound in
// t and returns a residual comparison; a side backed by a VariableTerm whose
// index lands outside t (or at a nil slot) stays a variable, so the result
// can still be fed to ComputeBounds.
func (c *Comparison) EvalBound(t symbol.Tuple) Expr {
	left := c.Left
	right := c.Right
	if v, ok := c.Left.eval(t); ok {
		left = Const(v)
	}
	if v, ok := c.Right.eval(t); ok {
		right = Const(v)
	}
	return &Comparison{Left: left, Op: c.Op, Right: right}
}

func (c *Comparison) Bindings() symbol.Set {
	return c.Left.bindings().Union(c.Right.bindings())
}

func (c *Comparison) FillBindingIndices(b symbol.Bindings) error {
	if err := c.Left.fillIndex(b); err != nil {
		return err
	}
	return c.Right.fillIndex(b)
}

// ArithmeticOp enumerates the arithmetic operators Unification expressions
// may compute over two terms.
type ArithmeticOp int

const (
	Add ArithmeticOp = iota
	Sub
	Mul
	Div
)

// ArithmeticFunction computes `left op right` as an Int64 or Float64 value
// depending on operand types, for use in Unification.
type ArithmeticFunction struct {
	Left, Right Term
	Op          ArithmeticOp
}

func Arithmetic(left Term, op ArithmeticOp, right Term) *ArithmeticFunction {
	return &ArithmeticFunction{Left: left, Op: op, Right: right}
}

func (f *ArithmeticFunction) Eval(t symbol.Tuple) (datalog.Value, error) {
	lv, lok := f.Left.eval(t)
	rv, rok := f.Right.eval(t)
	if !lok || !rok {
		return nil, fmt.Errorf("expr: arithmetic over unbound operand")
	}
	lf, lIsFloat, err := asNumber(lv)
	if err != nil {
		return nil, err
	}
	rf, rIsFloat, err := asNumber(rv)
	if err != nil {
		return nil, err
	}
	var result float64
	switch f.Op {
	case Add:
		result = lf + rf
	case Sub:
		result = lf - rf
	case Mul:
		result = lf * rf
	case Div:
		if rf == 0 {
			return nil, fmt.Errorf("expr: division by zero")
		}
		result = lf / rf
	default:
		return nil, fmt.Errorf("expr: unknown arithmetic op %v", f.Op)
	}
	if lIsFloat || rIsFloat {
		return result, nil
	}
	return int64(result), nil
}

func (f *ArithmeticFunction) EvalPred(t symbol.Tuple) (bool, error) {
	v, err := f.Eval(t)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	return ok && b, nil
}

func (f *ArithmeticFunction) EvalBound(t symbol.Tuple) Expr {
	left := f.Left
	right := f.Right
	if v, ok := f.Left.eval(t); ok {
		left = Const(v)
	}
	if v, ok := f.Right.eval(t); ok {
		right = Const(v)
	}
	return &ArithmeticFunction{Left: left, Op: f.Op, Right: right}
}

func (f *ArithmeticFunction) Bindings() symbol.Set {
	return f.Left.bindings().Union(f.Right.bindings())
}

func (f *ArithmeticFunction) FillBindingIndices(b symbol.Bindings) error {
	if err := f.Left.fillIndex(b); err != nil {
		return err
	}
	return f.Right.fillIndex(b)
}

func asNumber(v datalog.Value) (float64, bool, error) {
	switch n := v.(type) {
	case int64:
		return float64(n), false, nil
	case int:
		return float64(n), false, nil
	case float64:
		return n, true, nil
	default:
		return 0, false, fmt.Errorf("expr: %v is not numeric", v)
	}
}

// ListExpr wraps a pre-materialized list of values for spread Unification;
// EvalBound/Bindings are trivial since a literal list references nothing.
type ListExpr struct {
	Values []datalog.Value
}

func List(values ...datalog.Value) *ListExpr { return &ListExpr{Values: values} }

func (l *ListExpr) Eval(symbol.Tuple) (datalog.Value, error) { return l.Values, nil }
func (l *ListExpr) EvalPred(symbol.Tuple) (bool, error)      { return len(l.Values) > 0, nil }
func (l *ListExpr) EvalBound(symbol.Tuple) Expr              { return l }
func (l *ListExpr) Bindings() symbol.Set                     { return symbol.NewSet() }
func (l *ListExpr) FillBindingIndices(symbol.Bindings) error { return nil }
