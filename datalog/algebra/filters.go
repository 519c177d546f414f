package algebra

import (
	"github.com/relalg-io/triplealgebra/datalog/expr"
	"github.com/relalg-io/triplealgebra/datalog/symbol"
)

// toComparisons extracts the range-comparison filters out of a generic
// filter list; only *expr.Comparison participates in bound computation,
// everything else is checked purely as a residual predicate.
func toComparisons(filters []expr.Expr) []*expr.Comparison {
	var out []*expr.Comparison
	for _, f := range filters {
		if c, ok := f.(*expr.Comparison); ok {
			out = append(out, c)
		}
	}
	return out
}

// applyFilters runs the whole filter list over t; the bound used to choose
// a scan strategy is a performance hint only, so the full list is always
// re-checked here for correctness regardless of what contributed a bound.
func applyFilters(filters []expr.Expr, t symbol.Tuple) (bool, error) {
	for _, f := range filters {
		ok, err := f.EvalPred(t)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// evalBoundFilters substitutes t's known columns into each comparison via
// EvalBound, returning the residual comparisons for ComputeSingleBound.
func evalBoundFilters(filters []*expr.Comparison, t symbol.Tuple) []*expr.Comparison {
	out := make([]*expr.Comparison, 0, len(filters))
	for _, f := range filters {
		residual := f.EvalBound(t)
		if c, ok := residual.(*expr.Comparison); ok {
			out = append(out, c)
		}
	}
	return out
}
