package algebra

import (
	"sort"
	"strings"

	"github.com/relalg-io/triplealgebra/datalog"
	"github.com/relalg-io/triplealgebra/datalog/symbol"
	"github.com/relalg-io/triplealgebra/datalog/txn"
)

// fakeDatom is one (entity, value) pair under a fixed attribute, the unit
// of data fakeTxn scans over. Real transaction IDs and bitemporal vld
// pushdown are out of scope for these tests; every fake scan ignores vld
// entirely (current-state semantics only), matching an attribute with
// WithHistory=false.
type fakeDatom struct {
	e datalog.Identity
	v datalog.Value
}

// fakeTxn is a minimal, wholly in-memory txn.Transaction, standing in for
// BadgerTransaction so the operator tree can be driven end to end without
// touching storage.
type fakeTxn struct {
	attrs   map[string]txn.AttributeMeta
	triples map[string][]fakeDatom
}

func newFakeTxn() *fakeTxn {
	return &fakeTxn{
		attrs:   make(map[string]txn.AttributeMeta),
		triples: make(map[string][]fakeDatom),
	}
}

func (f *fakeTxn) defineAttr(name string, meta txn.AttributeMeta) txn.AttributeMeta {
	meta.Name = datalog.NewKeyword(name)
	f.attrs[name] = meta
	return meta
}

func (f *fakeTxn) addTriple(attr string, e datalog.Identity, v datalog.Value) {
	f.triples[attr] = append(f.triples[attr], fakeDatom{e: e, v: v})
}

func (f *fakeTxn) Attribute(name datalog.Keyword) (txn.AttributeMeta, bool) {
	m, ok := f.attrs[name.String()]
	return m, ok
}

func (f *fakeTxn) rows(a txn.AttributeMeta) []fakeDatom {
	return f.triples[a.Name.String()]
}

type fakeFragSeq struct {
	frags []txn.Fragment
	pos   int
}

func (s *fakeFragSeq) Next() (txn.Fragment, bool) {
	if s.pos >= len(s.frags) {
		return txn.Fragment{}, false
	}
	fr := s.frags[s.pos]
	s.pos++
	return fr, true
}

func inRange(v, lb, ub datalog.Value) bool {
	if !datalog.IsNull(lb) && datalog.CompareValues(v, lb) < 0 {
		return false
	}
	if !datalog.IsBot(ub) && datalog.CompareValues(v, ub) > 0 {
		return false
	}
	return true
}

func (f *fakeTxn) TripleAScan(a txn.AttributeMeta, vld datalog.Value) txn.FragmentSeq {
	var out []txn.Fragment
	for _, d := range f.rows(a) {
		out = append(out, txn.Fragment{E: d.e, V: d.v})
	}
	return &fakeFragSeq{frags: out}
}

func (f *fakeTxn) TripleAVRangeScan(a txn.AttributeMeta, lb, ub, vld datalog.Value) txn.FragmentSeq {
	var out []txn.Fragment
	for _, d := range f.rows(a) {
		if inRange(d.v, lb, ub) {
			out = append(out, txn.Fragment{E: d.e, V: d.v})
		}
	}
	return &fakeFragSeq{frags: out}
}

func (f *fakeTxn) TripleAEScan(a txn.AttributeMeta, e datalog.Identity, vld datalog.Value) txn.FragmentSeq {
	var out []txn.Fragment
	for _, d := range f.rows(a) {
		if d.e.Compare(e) == 0 {
			out = append(out, txn.Fragment{E: d.e, V: d.v})
		}
	}
	return &fakeFragSeq{frags: out}
}

func (f *fakeTxn) TripleAERangeScan(a txn.AttributeMeta, e datalog.Identity, lb, ub, vld datalog.Value) txn.FragmentSeq {
	var out []txn.Fragment
	for _, d := range f.rows(a) {
		if d.e.Compare(e) == 0 && inRange(d.v, lb, ub) {
			out = append(out, txn.Fragment{E: d.e, V: d.v})
		}
	}
	return &fakeFragSeq{frags: out}
}

func (f *fakeTxn) TripleAVScan(a txn.AttributeMeta, v, vld datalog.Value) txn.FragmentSeq {
	var out []txn.Fragment
	for _, d := range f.rows(a) {
		if datalog.CompareValues(d.v, v) == 0 {
			out = append(out, txn.Fragment{E: d.e, V: d.v})
		}
	}
	return &fakeFragSeq{frags: out}
}

func (f *fakeTxn) TripleVRefAScan(a txn.AttributeMeta, v datalog.Identity, vld datalog.Value) txn.FragmentSeq {
	var out []txn.Fragment
	for _, d := range f.rows(a) {
		if ref, ok := d.v.(datalog.Identity); ok && ref.Compare(v) == 0 {
			out = append(out, txn.Fragment{E: d.e, V: d.v})
		}
	}
	return &fakeFragSeq{frags: out}
}

func (f *fakeTxn) AevExists(a txn.AttributeMeta, e datalog.Identity, v, vld datalog.Value) (bool, error) {
	for _, d := range f.rows(a) {
		if d.e.Compare(e) == 0 && datalog.CompareValues(d.v, v) == 0 {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeTxn) NewTempStore(span datalog.Span) txn.TempStore {
	return &memTempStore{}
}

// memTempStore is a trivial linear-scan stand-in for a keyed temp store;
// correctness over performance, since tests only ever hold a handful of
// rows.
type memTempStore struct {
	rows []symbol.Tuple
}

func (m *memTempStore) Put(t symbol.Tuple) error {
	m.rows = append(m.rows, t)
	return nil
}

func tuplePrefixMatches(row, prefix symbol.Tuple) bool {
	if len(prefix) > len(row) {
		return false
	}
	for i, v := range prefix {
		if datalog.CompareValues(row[i], v) != 0 {
			return false
		}
	}
	return true
}

func (m *memTempStore) ScanPrefix(prefix symbol.Tuple) txn.FragmentSeqTuple {
	var out []symbol.Tuple
	for _, r := range m.rows {
		if tuplePrefixMatches(r, prefix) {
			out = append(out, r)
		}
	}
	return &fakeTupleSeq{rows: out}
}

func (m *memTempStore) ScanBoundedPrefix(prefix symbol.Tuple, lb, ub datalog.Value) txn.FragmentSeqTuple {
	var out []symbol.Tuple
	for _, r := range m.rows {
		if !tuplePrefixMatches(r, prefix) {
			continue
		}
		if len(r) > len(prefix) && !inRange(r[len(prefix)], lb, ub) {
			continue
		}
		out = append(out, r)
	}
	return &fakeTupleSeq{rows: out}
}

func (m *memTempStore) ScanAll() txn.FragmentSeqTuple {
	return &fakeTupleSeq{rows: append([]symbol.Tuple{}, m.rows...)}
}

type fakeTupleSeq struct {
	rows []symbol.Tuple
	pos  int
}

func (s *fakeTupleSeq) Next() (symbol.Tuple, error, bool) {
	if s.pos >= len(s.rows) {
		return nil, nil, false
	}
	r := s.rows[s.pos]
	s.pos++
	return r, nil, true
}

// fakeStored is an in-memory txn.StoredRelation over a fixed column order.
type fakeStored struct {
	bindings symbol.Bindings
	rows     []symbol.Tuple
}

func (s *fakeStored) Bindings() symbol.Bindings { return s.bindings }

func (s *fakeStored) sorted() []symbol.Tuple {
	out := append([]symbol.Tuple{}, s.rows...)
	sort.Slice(out, func(i, j int) bool {
		return keyString(out[i]) < keyString(out[j])
	})
	return out
}

func (s *fakeStored) ScanAll() txn.FragmentSeqTuple {
	return &fakeTupleSeq{rows: s.sorted()}
}

func (s *fakeStored) ScanPrefix(prefix symbol.Tuple) txn.FragmentSeqTuple {
	var out []symbol.Tuple
	for _, r := range s.sorted() {
		if tuplePrefixMatches(r, prefix) {
			out = append(out, r)
		}
	}
	return &fakeTupleSeq{rows: out}
}

func (s *fakeStored) ScanBoundedPrefix(prefix symbol.Tuple, lb, ub datalog.Value) txn.FragmentSeqTuple {
	var out []symbol.Tuple
	for _, r := range s.sorted() {
		if !tuplePrefixMatches(r, prefix) {
			continue
		}
		if len(r) > len(prefix) && !inRange(r[len(prefix)], lb, ub) {
			continue
		}
		out = append(out, r)
	}
	return &fakeTupleSeq{rows: out}
}

// fakeDerived is an in-memory txn.DerivedStore with one slice of rows per
// epoch, modeling the accumulated relation at epoch 0 and successive delta
// slices at epoch>=1 the way semi-naive recursion produces them.
type fakeDerived struct {
	id       txn.DerivedRelStoreID
	bindings symbol.Bindings
	byEpoch  map[uint32][]symbol.Tuple
}

func (d *fakeDerived) ID() txn.DerivedRelStoreID  { return d.id }
func (d *fakeDerived) Bindings() symbol.Bindings  { return d.bindings }

func (d *fakeDerived) ScanAllForEpoch(epoch uint32) txn.FragmentSeqTuple {
	return &fakeTupleSeq{rows: append([]symbol.Tuple{}, d.byEpoch[epoch]...)}
}

func (d *fakeDerived) ScanPrefixForEpoch(prefix symbol.Tuple, epoch uint32) txn.FragmentSeqTuple {
	var out []symbol.Tuple
	for _, r := range d.byEpoch[epoch] {
		if tuplePrefixMatches(r, prefix) {
			out = append(out, r)
		}
	}
	return &fakeTupleSeq{rows: out}
}

func (d *fakeDerived) ScanBoundedPrefixForEpoch(prefix symbol.Tuple, lb, ub datalog.Value, epoch uint32) txn.FragmentSeqTuple {
	var out []symbol.Tuple
	for _, r := range d.byEpoch[epoch] {
		if !tuplePrefixMatches(r, prefix) {
			continue
		}
		if len(r) > len(prefix) && !inRange(r[len(prefix)], lb, ub) {
			continue
		}
		out = append(out, r)
	}
	return &fakeTupleSeq{rows: out}
}

// idFor derives a stable Identity from a label, for readable test fixtures.
func idFor(label string) datalog.Identity {
	return datalog.NewIdentity(strings.ToLower(label))
}
