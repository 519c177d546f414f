package storage

import (
	"sort"
	"sync"
	"time"

	"github.com/relalg-io/triplealgebra/datalog"
	"github.com/relalg-io/triplealgebra/datalog/constraints"
	"github.com/relalg-io/triplealgebra/datalog/symbol"
	"github.com/relalg-io/triplealgebra/datalog/txn"
)

// AttributeCatalog tracks the storage/join characteristics (with-history,
// ref-type, indexed) the Triple strategy matrix dispatches off, keyed by
// attribute keyword. The triple store itself has no schema, so this is
// populated explicitly by the caller (mirroring a Datomic-style :db/*
// schema installation) rather than inferred from the data.
type AttributeCatalog struct {
	mu   sync.RWMutex
	next uint64
	byID map[uint64]txn.AttributeMeta
	byKW map[string]txn.AttributeMeta
}

func NewAttributeCatalog() *AttributeCatalog {
	return &AttributeCatalog{
		byID: make(map[uint64]txn.AttributeMeta),
		byKW: make(map[string]txn.AttributeMeta),
	}
}

// Register installs or updates an attribute's metadata, assigning it a
// stable ID on first registration.
func (c *AttributeCatalog) Register(name datalog.Keyword, withHistory, isRefType, shouldIndex bool) txn.AttributeMeta {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.byKW[name.String()]; ok {
		existing.WithHistory = withHistory
		existing.IsRefType = isRefType
		existing.ShouldIndex = shouldIndex
		c.byKW[name.String()] = existing
		c.byID[existing.ID] = existing
		return existing
	}

	c.next++
	meta := txn.AttributeMeta{
		ID:          c.next,
		Name:        name,
		WithHistory: withHistory,
		IsRefType:   isRefType,
		ShouldIndex: shouldIndex,
	}
	c.byKW[name.String()] = meta
	c.byID[meta.ID] = meta
	return meta
}

func (c *AttributeCatalog) lookup(name datalog.Keyword) (txn.AttributeMeta, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	meta, ok := c.byKW[name.String()]
	return meta, ok
}

// BadgerTransaction adapts a BadgerStore + AttributeCatalog to the
// datalog/algebra execution core's txn.Transaction contract. Every scan
// method is grounded on the same index-selection logic QueryBuilder uses
// (prefix ranges per IndexType), narrowed here to the (e,v) fragment shape
// the Triple node consumes.
type BadgerTransaction struct {
	store   *BadgerStore
	catalog *AttributeCatalog
	asOfTx  uint64 // 0 means "no as-of filter", i.e. current state
}

// NewBadgerTransaction opens a read-only view over store as of the given
// transaction ID (0 for the latest state).
func NewBadgerTransaction(store *BadgerStore, catalog *AttributeCatalog, asOfTx uint64) *BadgerTransaction {
	return &BadgerTransaction{store: store, catalog: catalog, asOfTx: asOfTx}
}

func (t *BadgerTransaction) Attribute(name datalog.Keyword) (txn.AttributeMeta, bool) {
	return t.catalog.lookup(name)
}

// fragIterator adapts a BadgerIterator plus a projection function (the
// index determines which key component lands in E vs V) into the
// algebra-facing FragmentSeq.
type fragIterator struct {
	it     Iterator
	toFrag func(*datalog.Datom) (datalog.Identity, datalog.Value)
	asOf   uint64
	vld    *constraints.TimeRangeConstraint // nil means no bitemporal bound requested
	done   bool
}

func (f *fragIterator) Next() (txn.Fragment, bool) {
	if f.done {
		return txn.Fragment{}, false
	}
	for {
		ok := f.it.Next()
		if !ok {
			f.done = true
			f.it.Close()
			return txn.Fragment{}, false
		}
		d, err := f.it.Datom()
		if err != nil {
			f.done = true
			f.it.Close()
			return txn.Fragment{Err: err}, true
		}
		if f.asOf != 0 && d.Tx > f.asOf {
			continue // not yet visible as of this transaction
		}
		if f.vld != nil && !f.vld.Evaluate(d) {
			continue // not valid as of the requested vld instant
		}
		e, v := f.toFrag(d)
		return txn.Fragment{E: e, V: v}, true
	}
}

// vldConstraint translates a query-supplied vld bound into the pushdown
// check fragIterator applies per datom. An attribute with WithHistory=false
// is current-state only (§4.5(ii)): any vld the query supplies is ignored,
// since there is no retained history to filter by. Otherwise Null/Bot (the
// open-bound sentinels) and anything that isn't a wall-clock instant also
// mean "no bitemporal filter".
func vldConstraint(a txn.AttributeMeta, vld datalog.Value) *constraints.TimeRangeConstraint {
	if !a.WithHistory {
		return nil
	}
	if vld == nil || datalog.IsNull(vld) || datalog.IsBot(vld) {
		return nil
	}
	t, ok := vld.(time.Time)
	if !ok {
		return nil
	}
	return constraints.AsOfConstraint(t)
}

func identityProject(d *datalog.Datom) (datalog.Identity, datalog.Value) { return d.E, d.V }

func (t *BadgerTransaction) scanIndex(index IndexType, start, end []byte, a txn.AttributeMeta, vld datalog.Value) (txn.FragmentSeq, error) {
	it, err := t.store.Scan(index, start, end)
	if err != nil {
		return nil, err
	}
	return &fragIterator{it: it, toFrag: identityProject, asOf: t.asOfTx, vld: vldConstraint(a, vld)}, nil
}

func (t *BadgerTransaction) errSeq(err error) txn.FragmentSeq { return errFragSeq{err} }

type errFragSeq struct{ err error }

func (e errFragSeq) Next() (txn.Fragment, bool) { return txn.Fragment{Err: e.err}, true }

func (t *BadgerTransaction) TripleAScan(a txn.AttributeMeta, vld datalog.Value) txn.FragmentSeq {
	enc := t.store.encoder
	aBytes := attrBytes(a.Name)
	start, end := enc.EncodePrefixRange(AEVT, aBytes)
	seq, err := t.scanIndex(AEVT, start, end, a, vld)
	if err != nil {
		return t.errSeq(err)
	}
	return seq
}

// TripleAVRangeScan scans the AEVT prefix for a (full attribute) and filters
// by value in Go: the index's byte-ordered value component does not
// generally agree with datalog.CompareValues' typed ordering, so bound
// pushdown here is a cardinality reduction handled at the fragment layer
// rather than a true AVET range seek.
func (t *BadgerTransaction) TripleAVRangeScan(a txn.AttributeMeta, lb, ub datalog.Value, vld datalog.Value) txn.FragmentSeq {
	base := t.TripleAScan(a, vld)
	return &rangeFilterSeq{src: base, lb: lb, ub: ub, onValue: true}
}

func (t *BadgerTransaction) TripleAEScan(a txn.AttributeMeta, e datalog.Identity, vld datalog.Value) txn.FragmentSeq {
	enc := t.store.encoder
	eBytes := e.Hash()
	aBytes := attrBytes(a.Name)
	start, end := enc.EncodePrefixRange(EAVT, eBytes[:], aBytes)
	seq, err := t.scanIndex(EAVT, start, end, a, vld)
	if err != nil {
		return t.errSeq(err)
	}
	return seq
}

func (t *BadgerTransaction) TripleAERangeScan(a txn.AttributeMeta, e datalog.Identity, lb, ub datalog.Value, vld datalog.Value) txn.FragmentSeq {
	base := t.TripleAEScan(a, e, vld)
	return &rangeFilterSeq{src: base, lb: lb, ub: ub, onValue: true}
}

// TripleAVScan serves the exactly-indexed value lookup off AVET.
func (t *BadgerTransaction) TripleAVScan(a txn.AttributeMeta, v datalog.Value, vld datalog.Value) txn.FragmentSeq {
	enc := t.store.encoder
	aBytes := attrBytes(a.Name)
	start, end := enc.EncodePrefixRange(AVET, aBytes)
	seq, err := t.scanIndex(AVET, start, end, a, vld)
	if err != nil {
		return t.errSeq(err)
	}
	return &rangeFilterSeq{src: seq, lb: v, ub: v, onValue: true}
}

// TripleVRefAScan serves the VAET reverse-reference lookup.
func (t *BadgerTransaction) TripleVRefAScan(a txn.AttributeMeta, v datalog.Identity, vld datalog.Value) txn.FragmentSeq {
	enc := t.store.encoder
	aBytes := attrBytes(a.Name)
	vHash := v.Hash()
	// Keys hold a reference value as its type byte followed by the hash
	vBytes := append([]byte{byte(datalog.TypeReference)}, vHash[:]...)
	start, end := enc.EncodePrefixRange(VAET, vBytes, aBytes)
	seq, err := t.scanIndex(VAET, start, end, a, vld)
	if err != nil {
		return t.errSeq(err)
	}
	return seq
}

func (t *BadgerTransaction) AevExists(a txn.AttributeMeta, e datalog.Identity, v datalog.Value, vld datalog.Value) (bool, error) {
	seq := t.TripleAEScan(a, e, vld)
	for {
		f, ok := seq.Next()
		if !ok {
			return false, nil
		}
		if f.Err != nil {
			return false, f.Err
		}
		if datalog.CompareValues(f.V, v) == 0 {
			return true, nil
		}
	}
}

func (t *BadgerTransaction) NewTempStore(span datalog.Span) txn.TempStore {
	return newMemTempStore()
}

func attrBytes(kw datalog.Keyword) []byte {
	a := NewAttribute(kw.String())
	return a[:]
}

// rangeFilterSeq re-filters a FragmentSeq's values against [lb,ub] using
// datalog.CompareValues, since the index's raw byte ordering does not track
// typed value ordering closely enough to seek directly.
type rangeFilterSeq struct {
	src     txn.FragmentSeq
	lb, ub  datalog.Value
	onValue bool
}

func (s *rangeFilterSeq) Next() (txn.Fragment, bool) {
	for {
		f, ok := s.src.Next()
		if !ok {
			return txn.Fragment{}, false
		}
		if f.Err != nil {
			return f, true
		}
		if s.lb != nil && !datalog.IsNull(s.lb) && datalog.CompareValues(f.V, s.lb) < 0 {
			continue
		}
		if s.ub != nil && !datalog.IsBot(s.ub) && datalog.CompareValues(f.V, s.ub) > 0 {
			continue
		}
		return f, true
	}
}

// memTempStore is an in-memory, iterator-scoped sorted store for
// materialized joins: it is always fully rebuilt for one join evaluation
// and discarded afterward, so persisting it to BadgerDB would only add
// write amplification without benefit.
type memTempStore struct {
	mu   sync.Mutex
	rows []symbol.Tuple
}

func newMemTempStore() *memTempStore { return &memTempStore{} }

func (m *memTempStore) Put(t symbol.Tuple) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, t)
	return nil
}

func (m *memTempStore) sorted() []symbol.Tuple {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !sort.SliceIsSorted(m.rows, func(i, j int) bool { return tupleLess(m.rows[i], m.rows[j]) }) {
		sort.Slice(m.rows, func(i, j int) bool { return tupleLess(m.rows[i], m.rows[j]) })
	}
	out := make([]symbol.Tuple, len(m.rows))
	copy(out, m.rows)
	return out
}

func tupleLess(a, b symbol.Tuple) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		c := datalog.CompareValues(a[i], b[i])
		if c != 0 {
			return c < 0
		}
	}
	return len(a) < len(b)
}

func hasPrefix(row, prefix symbol.Tuple) bool {
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
	rows := m.sorted()
	var out []symbol.Tuple
	for _, r := range rows {
		if hasPrefix(r, prefix) {
			out = append(out, r)
		}
	}
	return &sliceTupleSeq{rows: out}
}

func (m *memTempStore) ScanBoundedPrefix(prefix symbol.Tuple, lb, ub datalog.Value) txn.FragmentSeqTuple {
	rows := m.sorted()
	col := len(prefix)
	var out []symbol.Tuple
	for _, r := range rows {
		if !hasPrefix(r, prefix) {
			continue
		}
		if col >= len(r) {
			continue
		}
		v := r[col]
		if lb != nil && !datalog.IsNull(lb) && datalog.CompareValues(v, lb) < 0 {
			continue
		}
		if ub != nil && !datalog.IsBot(ub) && datalog.CompareValues(v, ub) > 0 {
			continue
		}
		out = append(out, r)
	}
	return &sliceTupleSeq{rows: out}
}

func (m *memTempStore) ScanAll() txn.FragmentSeqTuple {
	return &sliceTupleSeq{rows: m.sorted()}
}

type sliceTupleSeq struct {
	rows []symbol.Tuple
	pos  int
}

func (s *sliceTupleSeq) Next() (symbol.Tuple, error, bool) {
	if s.pos >= len(s.rows) {
		return nil, nil, false
	}
	t := s.rows[s.pos]
	s.pos++
	return t, nil, true
}
