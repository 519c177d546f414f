package algebra

import (
	"fmt"
	"strings"
)

// String renders the tree as an indented, parenthesized form: operator
// name, after-eliminate bindings, then operator-specific detail and
// children. Grounded on the same shape the original RelAlgebra debug
// printer used (bindings first, then the node's own fields, then
// children) rather than a generic struct dump.
func (n *Node) String() string {
	var sb strings.Builder
	writeNode(&sb, n, 0)
	return sb.String()
}

func writeNode(sb *strings.Builder, n *Node, depth int) {
	indent := strings.Repeat("  ", depth)
	bindings := BindingsAfterEliminate(n)

	switch n.Kind {
	case KindInlineFixed:
		if IsUnit(n) {
			fmt.Fprintf(sb, "%sUnit\n", indent)
			return
		}
		if len(n.Fixed.Data) == 1 {
			fmt.Fprintf(sb, "%sSinglet(%v, %v)\n", indent, bindings, n.Fixed.Data[0])
			return
		}
		fmt.Fprintf(sb, "%sFixed(%v, %d rows)\n", indent, bindings, len(n.Fixed.Data))

	case KindTriple:
		fmt.Fprintf(sb, "%sTriple(%v, %s, %d filters)\n", indent, bindings, n.Triple.Attr.Name.String(), len(n.Triple.Filters))

	case KindStored:
		fmt.Fprintf(sb, "%sStored(%v, %d filters)\n", indent, bindings, len(n.Stored.Filters))

	case KindDerived:
		fmt.Fprintf(sb, "%sDerived(%v, %d filters)\n", indent, bindings, len(n.Derived.Filters))

	case KindFilter:
		fmt.Fprintf(sb, "%sFilter(%v, %d preds)\n", indent, bindings, len(n.Filter.Preds))
		writeNode(sb, n.Filter.Parent, depth+1)

	case KindUnification:
		fmt.Fprintf(sb, "%sUnify(%v, %s, multi=%v)\n", indent, bindings, n.Unify.Binding, n.Unify.IsMulti)
		writeNode(sb, n.Unify.Parent, depth+1)

	case KindReorder:
		fmt.Fprintf(sb, "%sReorder(%v)\n", indent, n.Reorder.Target)
		writeNode(sb, n.Reorder.Parent, depth+1)

	case KindInnerJoin:
		if IsUnit(n.Join.Left) {
			writeNode(sb, n.Join.Right, depth)
			return
		}
		fmt.Fprintf(sb, "%sJoin(%v, %v)\n", indent, bindings, n.Join.Join)
		writeNode(sb, n.Join.Left, depth+1)
		writeNode(sb, n.Join.Right, depth+1)

	case KindNegJoin:
		fmt.Fprintf(sb, "%sNegJoin(%v, %v)\n", indent, bindings, n.NegJoin.Join)
		writeNode(sb, n.NegJoin.Left, depth+1)
		writeNode(sb, n.NegJoin.Right, depth+1)

	default:
		fmt.Fprintf(sb, "%s<unknown kind %d>\n", indent, n.Kind)
	}
}
