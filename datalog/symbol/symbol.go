// Package symbol defines the logical variable names that flow through the
// operator tree and the tuple/bindings vocabulary operators are built from.
package symbol

import "github.com/relalg-io/triplealgebra/datalog"

// Symbol names one column of an operator's output. Symbols are compared by
// value; two nodes sharing a Symbol are referring to the same logical
// variable and are expected to be joined on it, not coincidentally aliased.
type Symbol string

// Tuple is a fixed-arity row of dynamic values produced by a node.
type Tuple []datalog.Value

// Bindings is the ordered list of symbols naming each column of a tuple.
type Bindings []Symbol

// IndexOf returns the position of sym in b, or -1 if absent.
func (b Bindings) IndexOf(sym Symbol) int {
	for i, s := range b {
		if s == sym {
			return i
		}
	}
	return -1
}

// Contains reports whether sym appears in b.
func (b Bindings) Contains(sym Symbol) bool {
	return b.IndexOf(sym) >= 0
}

// Concat returns a fresh Bindings made of b followed by other.
func (b Bindings) Concat(other Bindings) Bindings {
	out := make(Bindings, 0, len(b)+len(other))
	out = append(out, b...)
	out = append(out, other...)
	return out
}

// HasDuplicates reports whether any symbol in b repeats; InnerJoin uses this
// to assert its combined bindings are all distinct.
func (b Bindings) HasDuplicates() bool {
	seen := make(map[Symbol]struct{}, len(b))
	for _, s := range b {
		if _, ok := seen[s]; ok {
			return true
		}
		seen[s] = struct{}{}
	}
	return false
}

// Set is an unordered collection of symbols, used for "used downstream" /
// "to eliminate" bookkeeping.
type Set map[Symbol]struct{}

// NewSet builds a Set from the given symbols.
func NewSet(syms ...Symbol) Set {
	s := make(Set, len(syms))
	for _, sym := range syms {
		s[sym] = struct{}{}
	}
	return s
}

// Union returns a new Set containing every symbol in s or other.
func (s Set) Union(other Set) Set {
	out := make(Set, len(s)+len(other))
	for k := range s {
		out[k] = struct{}{}
	}
	for k := range other {
		out[k] = struct{}{}
	}
	return out
}

// Add inserts sym into s, mutating it in place, and returns s for chaining.
func (s Set) Add(sym Symbol) Set {
	s[sym] = struct{}{}
	return s
}

// AddAll inserts every symbol in syms into s.
func (s Set) AddAll(syms Bindings) Set {
	for _, sym := range syms {
		s[sym] = struct{}{}
	}
	return s
}

// Contains reports whether sym is a member of s.
func (s Set) Contains(sym Symbol) bool {
	_, ok := s[sym]
	return ok
}

// AfterEliminate returns the subsequence of before that is not in eliminate,
// preserving order. This is the "after-eliminate" view every node computes
// from its "before-eliminate" bindings and its to_eliminate set.
func AfterEliminate(before Bindings, eliminate Set) Bindings {
	out := make(Bindings, 0, len(before))
	for _, s := range before {
		if !eliminate.Contains(s) {
			out = append(out, s)
		}
	}
	return out
}

// EliminateIndices returns the positions within before that belong to
// eliminate, sorted ascending. Operators use this to drop columns from a
// concrete tuple without re-walking symbol names per row.
func EliminateIndices(before Bindings, eliminate Set) []int {
	var idx []int
	for i, s := range before {
		if eliminate.Contains(s) {
			idx = append(idx, i)
		}
	}
	return idx
}

// ProjectTuple returns a copy of t with the columns named in drop removed,
// where drop holds indices into bindings (same length/order as t).
func ProjectTuple(t Tuple, drop []int) Tuple {
	if len(drop) == 0 {
		return t
	}
	dropSet := make(map[int]struct{}, len(drop))
	for _, i := range drop {
		dropSet[i] = struct{}{}
	}
	out := make(Tuple, 0, len(t)-len(drop))
	for i, v := range t {
		if _, ok := dropSet[i]; !ok {
			out = append(out, v)
		}
	}
	return out
}
