package algebra

import (
	"github.com/relalg-io/triplealgebra/datalog/symbol"
	"github.com/relalg-io/triplealgebra/datalog/txn"
)

// TupleSeq is the lazy pull cursor every node's Iter returns: each element
// is either a tuple or a terminal error. Next returns ok=false once the
// sequence is exhausted (which happens permanently after an error).
type TupleSeq = txn.FragmentSeqTuple

// emptySeq never yields anything.
type emptySeq struct{}

func (emptySeq) Next() (symbol.Tuple, error, bool) { return nil, nil, false }

// Empty is the shared empty sequence.
var Empty TupleSeq = emptySeq{}

// errSeq yields exactly one error, then ends.
type errSeq struct {
	err  error
	done bool
}

// ErrSeq wraps err as a single-element error sequence. Used whenever a
// setup step (computing bounds, opening a scan, building a temp index)
// fails before any tuple could be produced.
func ErrSeq(err error) TupleSeq { return &errSeq{err: err} }

func (s *errSeq) Next() (symbol.Tuple, error, bool) {
	if s.done {
		return nil, nil, false
	}
	s.done = true
	return nil, s.err, true
}

// sliceSeq yields each tuple in a materialized slice in order.
type sliceSeq struct {
	tuples []symbol.Tuple
	pos    int
}

// FromSlice wraps an already-materialized set of tuples as a TupleSeq.
func FromSlice(tuples []symbol.Tuple) TupleSeq { return &sliceSeq{tuples: tuples} }

func (s *sliceSeq) Next() (symbol.Tuple, error, bool) {
	if s.pos >= len(s.tuples) {
		return nil, nil, false
	}
	t := s.tuples[s.pos]
	s.pos++
	return t, nil, true
}

// mapSeq applies fn to each tuple of an underlying sequence; fn returning
// (nil, nil) drops the tuple (used for filter-like transforms composed
// inline), returning an error aborts the stream.
type mapSeq struct {
	src  TupleSeq
	fn   func(symbol.Tuple) (symbol.Tuple, error)
	done bool
}

func mapTuples(src TupleSeq, fn func(symbol.Tuple) (symbol.Tuple, error)) TupleSeq {
	return &mapSeq{src: src, fn: fn}
}

func (s *mapSeq) Next() (symbol.Tuple, error, bool) {
	if s.done {
		return nil, nil, false
	}
	for {
		t, err, ok := s.src.Next()
		if !ok {
			s.done = true
			return nil, nil, false
		}
		if err != nil {
			s.done = true
			return nil, err, true
		}
		out, err := s.fn(t)
		if err != nil {
			s.done = true
			return nil, err, true
		}
		if out == nil {
			continue // dropped by fn, keep pulling
		}
		return out, nil, true
	}
}

// flattenMapSeq implements the "flatten_err" composition the design notes
// call for: an outer sequence of left tuples, each mapped to an inner
// sequence that may itself fail to even begin (gen returns an error) or
// may yield failing elements. Either failure mode terminates the whole
// stream with that single error, matching the "upstream does not drain
// further" error propagation rule.
type flattenMapSeq struct {
	left    TupleSeq
	gen     func(symbol.Tuple) (TupleSeq, error)
	inner   TupleSeq
	done    bool
}

// FlattenMap is the shared adaptor for every join variant: pull a left
// tuple, generate its matching right-hand sub-sequence, drain it fully,
// then pull the next left tuple.
func FlattenMap(left TupleSeq, gen func(symbol.Tuple) (TupleSeq, error)) TupleSeq {
	return &flattenMapSeq{left: left, gen: gen}
}

func (s *flattenMapSeq) Next() (symbol.Tuple, error, bool) {
	if s.done {
		return nil, nil, false
	}
	for {
		if s.inner != nil {
			t, err, ok := s.inner.Next()
			if ok {
				if err != nil {
					s.done = true
					return nil, err, true
				}
				return t, nil, true
			}
			s.inner = nil
		}
		lt, lerr, lok := s.left.Next()
		if !lok {
			s.done = true
			return nil, nil, false
		}
		if lerr != nil {
			s.done = true
			return nil, lerr, true
		}
		inner, err := s.gen(lt)
		if err != nil {
			s.done = true
			return nil, err, true
		}
		s.inner = inner
	}
}

// concatSeq drains a over before touching b.
type concatSeq struct {
	first, second TupleSeq
	onFirst       bool
}

// Concat chains two sequences: every item of a, then every item of b. No
// join strategy calls it; materializedJoin returns a right-stream error
// directly instead.
func Concat(a, b TupleSeq) TupleSeq {
	return &concatSeq{first: a, second: b, onFirst: true}
}

func (s *concatSeq) Next() (symbol.Tuple, error, bool) {
	if s.onFirst {
		t, err, ok := s.first.Next()
		if ok {
			return t, err, true
		}
		s.onFirst = false
	}
	return s.second.Next()
}

// Drain exhausts a sequence into a slice, stopping and returning the first
// error encountered (if any) without the remaining tuples. Used by tests,
// never by the operators themselves, which must stay lazy.
func Drain(s TupleSeq) ([]symbol.Tuple, error) {
	var out []symbol.Tuple
	for {
		t, err, ok := s.Next()
		if !ok {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, t)
	}
}
