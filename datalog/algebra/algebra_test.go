package algebra

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relalg-io/triplealgebra/datalog"
	"github.com/relalg-io/triplealgebra/datalog/expr"
	"github.com/relalg-io/triplealgebra/datalog/symbol"
	"github.com/relalg-io/triplealgebra/datalog/txn"
)

func drain(t *testing.T, n *Node, ctx *Ctx) []symbol.Tuple {
	t.Helper()
	require.NoError(t, FillNormalBindingIndices(n))
	rows, err := Drain(Iter(n, ctx))
	require.NoError(t, err)
	return rows
}

func fixedRows(bindings symbol.Bindings, rows ...symbol.Tuple) *Node {
	return Fixed(bindings, rows)
}

// --- Universal invariants (spec §8) -----------------------------------

func TestInvariantArityMatchesAfterEliminate(t *testing.T) {
	n := WrapFilter(fixedRows(symbol.Bindings{"a", "b"},
		symbol.Tuple{datalog.Int(1), datalog.Int(2)},
	))
	EliminateTempVars(n, symbol.NewSet("a"))
	ctx := &Ctx{}
	rows := drain(t, n, ctx)

	want := len(BindingsAfterEliminate(n))
	for _, row := range rows {
		assert.Len(t, row, want, "row arity must equal after-eliminate binding count")
	}
}

func TestInvariantAfterEliminateSubsetOfBefore(t *testing.T) {
	n := WrapFilter(fixedRows(symbol.Bindings{"a", "b", "c"},
		symbol.Tuple{datalog.Int(1), datalog.Int(2), datalog.Int(3)},
	))
	EliminateTempVars(n, symbol.NewSet("a"))

	before := BindingsBeforeEliminate(n)
	after := BindingsAfterEliminate(n)
	for _, s := range after {
		assert.True(t, before.Contains(s), "after-eliminate symbol %q not in before-eliminate", s)
	}
}

func TestInvariantBindingIndicesMustBeFilledBeforeEval(t *testing.T) {
	cmp := expr.Compare(expr.Var("a"), expr.Eq, expr.Const(datalog.Int(1)))
	// Never filled: FillBindingIndices was not called against any bindings.
	ok, err := cmp.EvalPred(symbol.Tuple{datalog.Int(1)})
	require.NoError(t, err)
	assert.False(t, ok, "an unresolved VariableTerm must evaluate as unbound, never match")

	require.NoError(t, cmp.FillBindingIndices(symbol.Bindings{"a"}))
	ok, err = cmp.EvalPred(symbol.Tuple{datalog.Int(1)})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestInvariantInnerJoinRejectsDuplicateSymbols(t *testing.T) {
	left := fixedRows(symbol.Bindings{"a"}, symbol.Tuple{datalog.Int(1)})
	right := fixedRows(symbol.Bindings{"a"}, symbol.Tuple{datalog.Int(1)})
	n := Join(left, right, Joiner{})

	defer func() {
		r := recover()
		assert.NotNil(t, r, "InnerJoin with colliding non-key output symbols must panic at elimination time")
	}()
	EliminateTempVars(n, symbol.NewSet("a"))
}

func TestInvariantEliminateSubsetOfBeforeMinusUsed(t *testing.T) {
	n := fixedRows(symbol.Bindings{"a", "b", "c"},
		symbol.Tuple{datalog.Int(1), datalog.Int(2), datalog.Int(3)},
	)
	used := symbol.NewSet("a", "c")
	EliminateTempVars(n, used)

	elim := EliminateSet(n)
	for s := range elim {
		assert.False(t, used.Contains(s), "eliminated symbol %q must not be in the used set", s)
	}
}

// --- Algebraic laws -----------------------------------------------------

func TestLawUnitJoinIsIdentity(t *testing.T) {
	x := fixedRows(symbol.Bindings{"a", "b"},
		symbol.Tuple{datalog.Int(1), datalog.Int(2)},
		symbol.Tuple{datalog.Int(3), datalog.Int(4)},
	)
	n := CartesianJoin(Unit(), x)
	EliminateTempVars(n, symbol.NewSet("a", "b"))
	ctx := &Ctx{}

	got := drain(t, n, ctx)
	want := drain(t, fixedRows(symbol.Bindings{"a", "b"},
		symbol.Tuple{datalog.Int(1), datalog.Int(2)},
		symbol.Tuple{datalog.Int(3), datalog.Int(4)},
	), ctx)

	assert.ElementsMatch(t, want, got)
	assert.Equal(t, symbol.Bindings{"a", "b"}, BindingsAfterEliminate(n))
}

func TestLawFilterOrderIsCommutative(t *testing.T) {
	base := func() *Node {
		return fixedRows(symbol.Bindings{"a", "b"},
			symbol.Tuple{datalog.Int(1), datalog.Int(10)},
			symbol.Tuple{datalog.Int(2), datalog.Int(20)},
			symbol.Tuple{datalog.Int(3), datalog.Int(30)},
		)
	}
	gtOne := expr.Compare(expr.Var("a"), expr.Gt, expr.Const(datalog.Int(1)))
	ltThirty := expr.Compare(expr.Var("b"), expr.Lt, expr.Const(datalog.Int(30)))

	ab := WrapFilter(WrapFilter(base(), gtOne), ltThirty)
	ba := WrapFilter(WrapFilter(base(), ltThirty), gtOne)
	EliminateTempVars(ab, symbol.NewSet("a", "b"))
	EliminateTempVars(ba, symbol.NewSet("a", "b"))

	ctx := &Ctx{}
	rowsAB := drain(t, ab, ctx)
	rowsBA := drain(t, ba, ctx)
	assert.ElementsMatch(t, rowsAB, rowsBA)
	assert.Equal(t, []symbol.Tuple{{datalog.Int(2), datalog.Int(20)}}, rowsAB)
}

func TestLawFilterReorderCommutation(t *testing.T) {
	base := func() *Node {
		return fixedRows(symbol.Bindings{"a", "b"},
			symbol.Tuple{datalog.Int(1), datalog.Int(10)},
			symbol.Tuple{datalog.Int(2), datalog.Int(20)},
		)
	}
	pred := expr.Compare(expr.Var("a"), expr.Eq, expr.Const(datalog.Int(2)))

	// Filter then Reorder.
	filterFirst := WrapReorder(WrapFilter(base(), pred), symbol.Bindings{"b", "a"})
	EliminateTempVars(filterFirst, symbol.NewSet("a", "b"))

	// Reorder then Filter (predicate still names "a", now in position 1).
	reorderFirst := WrapFilter(WrapReorder(base(), symbol.Bindings{"b", "a"}), pred)
	EliminateTempVars(reorderFirst, symbol.NewSet("a", "b"))

	ctx := &Ctx{}
	got1 := drain(t, filterFirst, ctx)
	got2 := drain(t, reorderFirst, ctx)
	assert.Equal(t, got1, got2)
	assert.Equal(t, []symbol.Tuple{{datalog.Int(20), datalog.Int(2)}}, got1)
}

func TestLawNegationIsIdempotent(t *testing.T) {
	tx := newFakeTxn()
	attr := tx.defineAttr("person/blocked", txn.AttributeMeta{ID: 1, ShouldIndex: true})
	tx.addTriple("person/blocked", idFor("alice"), datalog.Bool(true))

	left := fixedRows(symbol.Bindings{"p"},
		symbol.Tuple{idFor("alice")},
		symbol.Tuple{idFor("bob")},
	)
	right := func() *Node { return Triple(attr, "p", "flag", datalog.Bot) }
	joiner := Joiner{LeftKeys: symbol.Bindings{"p"}, RightKeys: symbol.Bindings{"p"}}

	once := NegJoin(left, right(), joiner)
	EliminateTempVars(once, symbol.NewSet("p"))

	twice := NegJoin(NegJoin(fixedRows(symbol.Bindings{"p"},
		symbol.Tuple{idFor("alice")},
		symbol.Tuple{idFor("bob")},
	), right(), joiner), right(), joiner)
	EliminateTempVars(twice, symbol.NewSet("p"))

	ctx := &Ctx{Tx: tx}
	gotOnce := drain(t, once, ctx)
	gotTwice := drain(t, twice, ctx)

	assert.ElementsMatch(t, gotOnce, gotTwice, "negating against the same relation twice must not remove further rows")
	assert.Equal(t, []symbol.Tuple{{idFor("bob")}}, gotOnce)
}

// --- Boundaries -----------------------------------------------------

func TestBoundaryEmptyAttributeTripleJoinYieldsNoRows(t *testing.T) {
	tx := newFakeTxn()
	attr := tx.defineAttr("person/nickname", txn.AttributeMeta{ID: 2, ShouldIndex: true})
	// No triples ever added for this attribute.

	left := fixedRows(symbol.Bindings{"p"}, symbol.Tuple{idFor("alice")})
	right := Triple(attr, "p", "nick", datalog.Bot)
	joiner := Joiner{LeftKeys: symbol.Bindings{"p"}, RightKeys: symbol.Bindings{"p"}}

	n := Join(left, right, joiner)
	EliminateTempVars(n, symbol.NewSet("p", "nick"))

	ctx := &Ctx{Tx: tx}
	rows := drain(t, n, ctx)
	assert.Empty(t, rows)
}

func TestBoundaryZeroRowVsUnitFixed(t *testing.T) {
	zeroRow := Fixed(nil, nil)
	unit := Unit()

	assert.True(t, IsUnit(unit))
	assert.False(t, IsUnit(zeroRow))

	x := fixedRows(symbol.Bindings{"a"}, symbol.Tuple{datalog.Int(1)})

	unitJoin := CartesianJoin(unit, x)
	EliminateTempVars(unitJoin, symbol.NewSet("a"))
	zeroJoin := CartesianJoin(zeroRow, x)
	EliminateTempVars(zeroJoin, symbol.NewSet("a"))

	ctx := &Ctx{}
	assert.NotEmpty(t, drain(t, unitJoin, ctx), "joining against Unit must be the identity")
	assert.Empty(t, drain(t, zeroJoin, ctx), "joining against a zero-row relation must yield nothing")
}

func TestBoundaryDerivedEpochZeroInDeltaIsEmpty(t *testing.T) {
	d := &fakeDerived{
		id:       1,
		bindings: symbol.Bindings{"x"},
		byEpoch: map[uint32][]symbol.Tuple{
			0: {{datalog.Int(1)}},
		},
	}
	n := Derived(d)
	EliminateTempVars(n, symbol.NewSet("x"))

	epoch := uint32(0)
	ctx := &Ctx{Epoch: &epoch, UseDelta: map[txn.DerivedRelStoreID]bool{1: true}}
	rows := drain(t, n, ctx)
	assert.Empty(t, rows, "a relation in use_delta has produced nothing yet at epoch 0")
}

func TestBoundaryOpenBoundIsFullScan(t *testing.T) {
	bound := expr.ComputeSingleBound(nil, "v")
	assert.True(t, bound.IsOpen())

	tx := newFakeTxn()
	attr := tx.defineAttr("event/ts", txn.AttributeMeta{ID: 3, ShouldIndex: true})
	tx.addTriple("event/ts", idFor("e1"), datalog.Int(10))
	tx.addTriple("event/ts", idFor("e2"), datalog.Int(20))

	n := Triple(attr, "e", "v", datalog.Bot)
	EliminateTempVars(n, symbol.NewSet("e", "v"))
	ctx := &Ctx{Tx: tx}
	rows := drain(t, n, ctx)
	assert.Len(t, rows, 2, "no filters means every row from the full attribute scan survives")
}

// --- End-to-end scenarios -----------------------------------------------

func TestScenarioEqualityJoinAgainstTriple(t *testing.T) {
	tx := newFakeTxn()
	attr := tx.defineAttr("person/age", txn.AttributeMeta{ID: 4, ShouldIndex: true})
	tx.addTriple("person/age", idFor("alice"), datalog.Int(30))
	tx.addTriple("person/age", idFor("bob"), datalog.Int(25))

	left := fixedRows(symbol.Bindings{"p"},
		symbol.Tuple{idFor("alice")},
		symbol.Tuple{idFor("bob")},
	)
	right := Triple(attr, "p", "age", datalog.Bot)
	joiner := Joiner{LeftKeys: symbol.Bindings{"p"}, RightKeys: symbol.Bindings{"p"}}

	n := Join(left, right, joiner)
	EliminateTempVars(n, symbol.NewSet("p", "age"))

	ctx := &Ctx{Tx: tx}
	rows := drain(t, n, ctx)
	require.Len(t, rows, 2)
	assert.Equal(t, symbol.Bindings{"p", "age"}, BindingsAfterEliminate(n))
}

func TestScenarioNegationExcludesMatches(t *testing.T) {
	tx := newFakeTxn()
	attr := tx.defineAttr("person/banned", txn.AttributeMeta{ID: 5, ShouldIndex: true})
	tx.addTriple("person/banned", idFor("bob"), datalog.Bool(true))

	left := fixedRows(symbol.Bindings{"p"},
		symbol.Tuple{idFor("alice")},
		symbol.Tuple{idFor("bob")},
	)
	right := Triple(attr, "p", "flag", datalog.Bot)
	joiner := Joiner{LeftKeys: symbol.Bindings{"p"}, RightKeys: symbol.Bindings{"p"}}

	n := NegJoin(left, right, joiner)
	EliminateTempVars(n, symbol.NewSet("p"))

	ctx := &Ctx{Tx: tx}
	rows := drain(t, n, ctx)
	assert.Equal(t, []symbol.Tuple{{idFor("alice")}}, rows)
}

func TestScenarioSpreadUnification(t *testing.T) {
	parent := fixedRows(symbol.Bindings{"tag"}, symbol.Tuple{datalog.String("row1")})
	listExpr := expr.List(datalog.Int(1), datalog.Int(2), datalog.Int(3))
	n := WrapUnification(parent, "n", listExpr, true)
	EliminateTempVars(n, symbol.NewSet("tag", "n"))

	ctx := &Ctx{}
	rows := drain(t, n, ctx)
	require.Len(t, rows, 3)
	var seen []datalog.Value
	for _, r := range rows {
		seen = append(seen, r[1])
	}
	assert.ElementsMatch(t, []datalog.Value{datalog.Int(1), datalog.Int(2), datalog.Int(3)}, seen)
}

func TestScenarioRangePushdownOnTripleFilter(t *testing.T) {
	tx := newFakeTxn()
	attr := tx.defineAttr("order/total", txn.AttributeMeta{ID: 6, ShouldIndex: true})
	tx.addTriple("order/total", idFor("o1"), datalog.Int(50))
	tx.addTriple("order/total", idFor("o2"), datalog.Int(150))

	pred := expr.Compare(expr.Var("total"), expr.Lt, expr.Const(datalog.Int(100)))

	n := Triple(attr, "o", "total", datalog.Bot)
	n.Triple.Filters = []expr.Expr{pred}
	EliminateTempVars(n, symbol.NewSet("o", "total"))

	ctx := &Ctx{Tx: tx}
	rows := drain(t, n, ctx)
	require.Len(t, rows, 1)
	assert.Equal(t, datalog.Int(50), rows[0][1])
}

func TestScenarioEliminationDropsUnusedColumns(t *testing.T) {
	n := fixedRows(symbol.Bindings{"a", "b", "c"},
		symbol.Tuple{datalog.Int(1), datalog.Int(2), datalog.Int(3)},
	)
	EliminateTempVars(n, symbol.NewSet("a", "c"))

	ctx := &Ctx{}
	rows := drain(t, n, ctx)
	require.Len(t, rows, 1)
	assert.Equal(t, symbol.Tuple{datalog.Int(1), datalog.Int(3)}, rows[0])
	assert.Equal(t, symbol.Bindings{"a", "c"}, BindingsAfterEliminate(n))
}

func TestScenarioRecursiveDeltaEpochs(t *testing.T) {
	d := &fakeDerived{
		id:       7,
		bindings: symbol.Bindings{"x", "y"},
		byEpoch: map[uint32][]symbol.Tuple{
			0: {{datalog.Int(1), datalog.Int(2)}},
			1: {{datalog.Int(2), datalog.Int(3)}},
		},
	}
	n := Derived(d)
	EliminateTempVars(n, symbol.NewSet("x", "y"))

	epoch2 := uint32(2)
	ctx := &Ctx{Epoch: &epoch2, UseDelta: map[txn.DerivedRelStoreID]bool{7: true}}
	rows := drain(t, n, ctx)
	require.Len(t, rows, 1, "epoch 2 scanning a use_delta relation reads the epoch-1 slice")
	assert.Equal(t, symbol.Tuple{datalog.Int(2), datalog.Int(3)}, rows[0])

	accCtx := &Ctx{}
	accRows := drain(t, n, accCtx)
	require.Len(t, accRows, 1, "outside recursion, Derived always reads the accumulated epoch-0 relation")
	assert.Equal(t, symbol.Tuple{datalog.Int(1), datalog.Int(2)}, accRows[0])
}

func TestInvariantInnerJoinRejectsReorderOrNegJoinRight(t *testing.T) {
	left := fixedRows(symbol.Bindings{"a"}, symbol.Tuple{datalog.Int(1)})

	reorderRight := WrapReorder(
		fixedRows(symbol.Bindings{"a"}, symbol.Tuple{datalog.Int(1)}),
		symbol.Bindings{"a"},
	)
	func() {
		defer func() {
			r := recover()
			assert.NotNil(t, r, "InnerJoin with a Reorder right child must panic, not materialize")
		}()
		n := Join(left, reorderRight, Joiner{LeftKeys: symbol.Bindings{"a"}, RightKeys: symbol.Bindings{"a"}})
		EliminateTempVars(n, symbol.NewSet("a"))
		Iter(n, &Ctx{})
	}()

	negRight := NegJoin(
		fixedRows(symbol.Bindings{"a"}, symbol.Tuple{datalog.Int(1)}),
		fixedRows(symbol.Bindings{"a"}, symbol.Tuple{datalog.Int(1)}),
		Joiner{LeftKeys: symbol.Bindings{"a"}, RightKeys: symbol.Bindings{"a"}},
	)
	func() {
		defer func() {
			r := recover()
			assert.NotNil(t, r, "InnerJoin with a NegJoin right child must panic, not materialize")
		}()
		n := Join(left, negRight, Joiner{LeftKeys: symbol.Bindings{"a"}, RightKeys: symbol.Bindings{"a"}})
		EliminateTempVars(n, symbol.NewSet("a"))
		Iter(n, &Ctx{})
	}()
}
