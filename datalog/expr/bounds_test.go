package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relalg-io/triplealgebra/datalog"
	"github.com/relalg-io/triplealgebra/datalog/symbol"
)

func mustFill(t *testing.T, e Expr, b symbol.Bindings) {
	t.Helper()
	require.NoError(t, e.FillBindingIndices(b))
}

func TestComputeSingleBoundEquality(t *testing.T) {
	cmp := Compare(Var("v"), Eq, Const(datalog.Int(42)))
	mustFill(t, cmp, symbol.Bindings{"v"})

	bound := ComputeSingleBound([]*Comparison{cmp}, "v")
	require.False(t, bound.IsOpen())
	assert.Equal(t, datalog.Int(42), bound.Lower)
	assert.Equal(t, datalog.Int(42), bound.Upper)
}

func TestComputeSingleBoundRangeTighten(t *testing.T) {
	gt := Compare(Var("v"), Gt, Const(datalog.Int(10)))
	lt := Compare(Var("v"), Lt, Const(datalog.Int(20)))
	mustFill(t, gt, symbol.Bindings{"v"})
	mustFill(t, lt, symbol.Bindings{"v"})

	bound := ComputeSingleBound([]*Comparison{gt, lt}, "v")
	assert.Equal(t, datalog.Int(10), bound.Lower)
	assert.Equal(t, datalog.Int(20), bound.Upper)
}

func TestComputeSingleBoundFlipsConstantOnLeft(t *testing.T) {
	// 10 < v  is equivalent to  v > 10
	cmp := Compare(Const(datalog.Int(10)), Lt, Var("v"))
	mustFill(t, cmp, symbol.Bindings{"v"})

	bound := ComputeSingleBound([]*Comparison{cmp}, "v")
	assert.Equal(t, datalog.Int(10), bound.Lower)
	assert.True(t, datalog.IsBot(bound.Upper))
}

func TestComputeSingleBoundIgnoresUnrelatedColumn(t *testing.T) {
	cmp := Compare(Var("other"), Eq, Const(datalog.Int(1)))
	mustFill(t, cmp, symbol.Bindings{"other"})

	bound := ComputeSingleBound([]*Comparison{cmp}, "v")
	assert.True(t, bound.IsOpen())
}

func TestComputeSingleBoundNoFiltersIsOpen(t *testing.T) {
	bound := ComputeSingleBound(nil, "v")
	assert.True(t, bound.IsOpen())
	assert.True(t, datalog.IsNull(bound.Lower))
	assert.True(t, datalog.IsBot(bound.Upper))
}

func TestComputeBoundsPerColumn(t *testing.T) {
	eqA := Compare(Var("a"), Eq, Const(datalog.Int(1)))
	eqB := Compare(Var("b"), Eq, Const(datalog.Int(2)))
	mustFill(t, eqA, symbol.Bindings{"a", "b"})
	mustFill(t, eqB, symbol.Bindings{"a", "b"})

	bounds := ComputeBounds([]*Comparison{eqA, eqB}, []symbol.Symbol{"a", "b"})
	require.Len(t, bounds, 2)
	assert.Equal(t, datalog.Int(1), bounds[0].Lower)
	assert.Equal(t, datalog.Int(2), bounds[1].Lower)
}

func TestComparisonEvalBoundSubstitutesBoundColumn(t *testing.T) {
	// a = 5, evaluated against a tuple where "a" is already bound, should
	// collapse to a residual comparison that no longer mentions "a".
	cmp := Compare(Var("a"), Eq, Const(datalog.Int(5)))
	mustFill(t, cmp, symbol.Bindings{"a"})

	residual, isCmp := cmp.EvalBound(symbol.Tuple{datalog.Int(5)}).(*Comparison)
	require.True(t, isCmp)
	assert.False(t, residual.Bindings().Contains("a"))

	ok, err := cmp.EvalPred(symbol.Tuple{datalog.Int(5)})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cmp.EvalPred(symbol.Tuple{datalog.Int(6)})
	require.NoError(t, err)
	assert.False(t, ok)
}
