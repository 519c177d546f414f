package algebra

import (
	"fmt"

	"github.com/relalg-io/triplealgebra/datalog"
	"github.com/relalg-io/triplealgebra/datalog/symbol"
)

// joinFixed implements the InlineFixed right-hand strategy (§4.4): 0 rows
// emits nothing, 1 row degenerates to an equality filter, N rows builds an
// in-memory hash map keyed on the right-key projection.
func joinFixed(right *Node, left TupleSeq, joiner Joiner, leftBindings symbol.Bindings) TupleSeq {
	f := right.Fixed
	drop := rightDropIndices(right, joiner)
	lIdx := leftKeyIndices(joiner, leftBindings)
	rIdx := rightKeyIndices(joiner, f.Bindings)

	switch len(f.Data) {
	case 0:
		return Empty

	case 1:
		row := f.Data[0]
		return FlattenMap(left, func(lt symbol.Tuple) (TupleSeq, error) {
			if rowMatches(lt, lIdx, row, rIdx) {
				return FromSlice([]symbol.Tuple{appendRight(lt, row, drop)}), nil
			}
			return Empty, nil
		})

	default:
		index := make(map[string][]symbol.Tuple)
		for _, row := range f.Data {
			k := keyString(leftKeyValues(row, rIdx))
			index[k] = append(index[k], row)
		}
		return FlattenMap(left, func(lt symbol.Tuple) (TupleSeq, error) {
			key := keyString(leftKeyValues(lt, lIdx))
			matches := index[key]
			if len(matches) == 0 {
				return Empty, nil
			}
			out := make([]symbol.Tuple, len(matches))
			for i, m := range matches {
				out[i] = appendRight(lt, m, drop)
			}
			return FromSlice(out), nil
		})
	}
}

func rowMatches(left symbol.Tuple, lIdx []int, right symbol.Tuple, rIdx []int) bool {
	for i := range lIdx {
		if datalog.CompareValues(left[lIdx[i]], right[rIdx[i]]) != 0 {
			return false
		}
	}
	return true
}

// keyString builds a comparable map key from a tuple of join values. This
// mirrors the BTreeMap-keyed hash join of the reference InlineFixed::join;
// Go's map needs a comparable key, so values are rendered through their
// natural string form rather than compared structurally.
func keyString(t symbol.Tuple) string {
	var buf []byte
	for _, v := range t {
		buf = append(buf, []byte(stringOf(v))...)
		buf = append(buf, 0)
	}
	return string(buf)
}

func stringOf(v datalog.Value) string {
	switch val := v.(type) {
	case string:
		return val
	case datalog.Identity:
		return val.String()
	case *datalog.Identity:
		return val.String()
	case datalog.Keyword:
		return val.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
