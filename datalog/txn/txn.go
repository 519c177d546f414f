// Package txn fixes the contracts the operator tree consumes from the
// surrounding transaction: ordered triple scans, the attribute catalog,
// temporary stores for materialized joins, and the epoch-aware derived
// relation store that backs semi-naive recursion.
//
// Everything here is a consumed interface, not an owned subsystem; the
// concrete BadgerDB-backed implementation lives in datalog/storage.
package txn

import (
	"github.com/relalg-io/triplealgebra/datalog"
	"github.com/relalg-io/triplealgebra/datalog/symbol"
)

// Fragment is one element of a triple scan: either a resolved (entity,
// value) pair, or an error that should abort the consuming iterator.
type Fragment struct {
	E   datalog.Identity
	V   datalog.Value
	Err error
}

// FragmentSeq is a lazy pull cursor over triple scan fragments.
type FragmentSeq interface {
	Next() (Fragment, bool)
}

// AttributeMeta describes one attribute's storage and join characteristics;
// the Triple join matrix in algebra dispatches entirely off these flags.
type AttributeMeta struct {
	ID          uint64
	Name        datalog.Keyword
	WithHistory bool
	IsRefType   bool
	ShouldIndex bool
}

// Transaction is the external collaborator supplying triple scans. vld is
// the bitemporal "as of" point; scans ignore it when the attribute's
// WithHistory is false (current-state semantics only).
type Transaction interface {
	Attribute(name datalog.Keyword) (AttributeMeta, bool)

	// TripleAScan yields every (e,v) pair for attribute a.
	TripleAScan(a AttributeMeta, vld datalog.Value) FragmentSeq
	// TripleAVRangeScan yields (e,v) pairs for a with v in [lb,ub].
	TripleAVRangeScan(a AttributeMeta, lb, ub datalog.Value, vld datalog.Value) FragmentSeq
	// TripleAEScan yields (v) values for the fixed entity e under a.
	TripleAEScan(a AttributeMeta, e datalog.Identity, vld datalog.Value) FragmentSeq
	// TripleAERangeScan yields (v) values for e under a with v in [lb,ub].
	TripleAERangeScan(a AttributeMeta, e datalog.Identity, lb, ub datalog.Value, vld datalog.Value) FragmentSeq
	// TripleAVScan yields (e) entities under a with value exactly v,
	// used when the value is indexed (AVET).
	TripleAVScan(a AttributeMeta, v datalog.Value, vld datalog.Value) FragmentSeq
	// TripleVRefAScan yields (e) entities referencing v under a, used
	// when v is itself an entity (VAET).
	TripleVRefAScan(a AttributeMeta, v datalog.Identity, vld datalog.Value) FragmentSeq

	// AevExists reports whether the exact triple (e,a,v) holds at vld.
	AevExists(a AttributeMeta, e datalog.Identity, v datalog.Value, vld datalog.Value) (bool, error)

	// NewTempStore creates a scoped, iterator-owned store for a
	// materialized join or an unindexed value-join index.
	NewTempStore(span datalog.Span) TempStore
}

// TempStore is a key-ordered container scoped to the iterator that
// created it; materialized joins write the right stream into one keyed by
// join-key prefix, then scan it while streaming the left side.
type TempStore interface {
	Put(t symbol.Tuple) error
	ScanPrefix(prefix symbol.Tuple) FragmentSeqTuple
	ScanBoundedPrefix(prefix symbol.Tuple, lb, ub datalog.Value) FragmentSeqTuple
	ScanAll() FragmentSeqTuple
}

// FragmentSeqTuple is a lazy cursor over whole tuples (as opposed to (e,v)
// triple fragments), used by Stored/Derived scans and temp stores.
type FragmentSeqTuple interface {
	Next() (symbol.Tuple, error, bool)
}

// DerivedRelStoreID identifies one recursive rule's output relation for
// use_delta membership tests during semi-naive evaluation.
type DerivedRelStoreID uint64

// DerivedStore is the epoch-parameterized scan surface for Derived nodes.
type DerivedStore interface {
	ID() DerivedRelStoreID
	Bindings() symbol.Bindings
	ScanAllForEpoch(epoch uint32) FragmentSeqTuple
	ScanPrefixForEpoch(prefix symbol.Tuple, epoch uint32) FragmentSeqTuple
	ScanBoundedPrefixForEpoch(prefix symbol.Tuple, lb, ub datalog.Value, epoch uint32) FragmentSeqTuple
}

// StoredRelation is the non-epoch-parameterized scan surface for Stored
// nodes: a persisted relation with a fixed column ordering.
type StoredRelation interface {
	Bindings() symbol.Bindings
	ScanAll() FragmentSeqTuple
	ScanPrefix(prefix symbol.Tuple) FragmentSeqTuple
	ScanBoundedPrefix(prefix symbol.Tuple, lb, ub datalog.Value) FragmentSeqTuple
}
