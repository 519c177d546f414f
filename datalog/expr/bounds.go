package expr

import (
	"github.com/relalg-io/triplealgebra/datalog"
	"github.com/relalg-io/triplealgebra/datalog/symbol"
)

// Bound is a per-column lower/upper pair derived from a filter list.
// Lower == Null means unbounded below; Upper == Bot means unbounded above.
// Both sentinel means the filter list says nothing about that column.
type Bound struct {
	Lower datalog.Value
	Upper datalog.Value
}

// IsOpen reports whether the bound carries no usable range restriction,
// in which case Triple/Stored scan strategies fall back to the unbounded
// path rather than building a range scan.
func (b Bound) IsOpen() bool {
	return datalog.IsNull(b.Lower) && datalog.IsBot(b.Upper)
}

// ComputeSingleBound inspects filters for comparisons pinning col (already
// partially evaluated via EvalBound, so col is the sole remaining free
// variable in any filter that mentions it) and folds them into one bound.
// Filters that don't mention col, or that mention more than one free
// variable, are ignored here - they remain in the node's residual filter
// list and run after the scan.
func ComputeSingleBound(filters []*Comparison, col symbol.Symbol) Bound {
	bound := Bound{Lower: datalog.Null, Upper: datalog.Bot}
	for _, f := range filters {
		lv, lIsVar := f.Left.(*VariableTerm)
		rv, rIsVar := f.Right.(*VariableTerm)
		var constant Term
		var op CompareOp
		var constOnRight bool
		switch {
		case lIsVar && lv.Sym == col && !rIsVar:
			constant, op, constOnRight = f.Right, f.Op, true
		case rIsVar && rv.Sym == col && !lIsVar:
			constant, op, constOnRight = f.Left, f.Op, false
		default:
			continue
		}
		val, ok := constant.eval(nil)
		if !ok {
			continue
		}
		effOp := op
		if !constOnRight {
			effOp = flip(op)
		}
		tightenBound(&bound, effOp, val)
	}
	return bound
}

// ComputeBounds computes a Bound for each column named in cols, using the
// same filter list for all of them. This mirrors compute_bounds in the
// reference implementation: it is just ComputeSingleBound applied per
// column, kept as a separate entry point because callers usually want the
// whole tuple of bounds for a composite key at once.
func ComputeBounds(filters []*Comparison, cols []symbol.Symbol) []Bound {
	out := make([]Bound, len(cols))
	for i, c := range cols {
		out[i] = ComputeSingleBound(filters, c)
	}
	return out
}

func flip(op CompareOp) CompareOp {
	switch op {
	case Lt:
		return Gt
	case Lte:
		return Gte
	case Gt:
		return Lt
	case Gte:
		return Lte
	default:
		return op
	}
}

// tightenBound narrows bound in place given one `col op val` constraint,
// val already on the right-hand side in canonical form.
func tightenBound(bound *Bound, op CompareOp, val datalog.Value) {
	switch op {
	case Eq:
		bound.Lower = val
		bound.Upper = val
	case Gt, Gte:
		if datalog.IsNull(bound.Lower) || datalog.CompareValues(val, bound.Lower) > 0 {
			bound.Lower = val
		}
	case Lt, Lte:
		if datalog.IsBot(bound.Upper) || datalog.CompareValues(val, bound.Upper) < 0 {
			bound.Upper = val
		}
	}
}
