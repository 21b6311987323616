package expr

import (
	"strings"

	"github.com/roach88/odataq/internal/edm"
)

// Format renders a tree in OData $filter syntax with every binary operation
// parenthesized, e.g. ((Age gt 30) and startswith(Name,'A')). Literals use
// the URI literal grammar. Used for logs and CLI output.
func Format(n Node) string {
	var b strings.Builder
	format(&b, n)
	return b.String()
}

func format(b *strings.Builder, n Node) {
	switch node := n.(type) {
	case nil:
		b.WriteString("<nil>")
	case *Literal:
		b.WriteString(edm.URILiteral(node.Value))
	case *PropertyRef:
		b.WriteString(node.Property.Name)
	case *Member:
		b.WriteString(node.Path.Property.Name)
		b.WriteByte('/')
		format(b, node.Inner)
	case *Unary:
		if node.Op == OpNot {
			b.WriteString("not ")
		} else {
			b.WriteByte('-')
		}
		format(b, node.Operand)
	case *Binary:
		b.WriteByte('(')
		format(b, node.Left)
		b.WriteByte(' ')
		b.WriteString(node.Op.String())
		b.WriteByte(' ')
		format(b, node.Right)
		b.WriteByte(')')
	case *Method:
		b.WriteString(node.Name)
		b.WriteByte('(')
		for i, arg := range node.Args {
			if i > 0 {
				b.WriteByte(',')
			}
			format(b, arg)
		}
		b.WriteByte(')')
	}
}

// FormatOrder renders an OrderSpec in $orderby syntax. Ascending keys carry
// no direction suffix.
func FormatOrder(spec OrderSpec) string {
	parts := make([]string, len(spec))
	for i, item := range spec {
		parts[i] = Format(item.Expr)
		if item.Direction == Desc {
			parts[i] += " desc"
		}
	}
	return strings.Join(parts, ",")
}
