package expr

import "github.com/roach88/odataq/internal/edm"

// Lit wraps a value in a Literal.
func Lit(v edm.Value) *Literal { return &Literal{Value: v} }

// Prop references a primitive property.
func Prop(p *edm.Property) *PropertyRef { return &PropertyRef{Property: p} }

// Path builds the Member chain for a property path. The last property is
// the primitive leaf; every earlier one must be structural. A single
// property yields a plain PropertyRef.
func Path(props ...*edm.Property) Node {
	if len(props) == 0 {
		panic("expr.Path: empty property path")
	}
	var node Node = Prop(props[len(props)-1])
	for i := len(props) - 2; i >= 0; i-- {
		node = &Member{Path: Prop(props[i]), Inner: node}
	}
	return node
}

// Not negates a boolean node.
func Not(n Node) *Unary { return &Unary{Op: OpNot, Operand: n} }

// Neg negates a numeric node.
func Neg(n Node) *Unary { return &Unary{Op: OpNegate, Operand: n} }

// Bin applies an infix operator.
func Bin(op BinaryOp, l, r Node) *Binary { return &Binary{Op: op, Left: l, Right: r} }

// Eq is Bin(OpEq, l, r).
func Eq(l, r Node) *Binary { return Bin(OpEq, l, r) }

// And folds the nodes with OpAnd, left-associative.
func And(first Node, rest ...Node) Node {
	out := first
	for _, n := range rest {
		out = Bin(OpAnd, out, n)
	}
	return out
}

// Call builds a method call.
func Call(name string, args ...Node) *Method { return &Method{Name: name, Args: args} }
