package expr

import "github.com/roach88/odataq/internal/edm"

// Node is one node of a $filter or $orderby expression tree.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and enables
// exhaustive type switches in the evaluator and the compiler.
//
// Node types:
//   - *Literal: a typed constant
//   - *PropertyRef: a primitive property of the current entity
//   - *Member: a property reached through a complex or navigation property
//   - *Unary: not, negation
//   - *Binary: relational, logical and arithmetic operators
//   - *Method: one of the fixed OData method calls
//
// Trees are immutable after construction; nothing in this module mutates
// a node it was handed.
type Node interface {
	// Type returns the statically resolved simple type of the node, or
	// edm.TypeUnknown when it cannot be resolved (untyped null, unknown
	// method).
	Type() edm.SimpleType

	exprNode() // Marker method - seals interface to this package
}

// Literal is a typed constant.
type Literal struct {
	Value edm.Value
}

func (*Literal) exprNode() {}

func (l *Literal) Type() edm.SimpleType { return l.Value.Type() }

// PropertyRef references a primitive property of the current entity, or of
// the structure reached by an enclosing Member.
type PropertyRef struct {
	Property *edm.Property
}

func (*PropertyRef) exprNode() {}

func (p *PropertyRef) Type() edm.SimpleType { return p.Property.Type }

// Member navigates one structural property and continues with Inner
// against the nested structure. Address/City is
//
//	Member{Path: Address, Inner: PropertyRef{City}}
//
// and deeper paths nest Member in Inner.
type Member struct {
	Path  *PropertyRef
	Inner Node
}

func (*Member) exprNode() {}

func (m *Member) Type() edm.SimpleType { return m.Inner.Type() }

// UnaryOp is a prefix operator.
type UnaryOp int

const (
	OpNot UnaryOp = iota
	OpNegate
)

func (op UnaryOp) String() string {
	switch op {
	case OpNot:
		return "not"
	case OpNegate:
		return "-"
	}
	return "unary?"
}

// Unary applies a prefix operator.
type Unary struct {
	Op      UnaryOp
	Operand Node
}

func (*Unary) exprNode() {}

func (u *Unary) Type() edm.SimpleType {
	if u.Op == OpNot {
		return edm.TypeBoolean
	}
	t := u.Operand.Type()
	switch t {
	case edm.TypeByte, edm.TypeInt16:
		return edm.TypeInt32
	}
	return t
}

// BinaryOp is an infix operator. The String form is the OData keyword.
type BinaryOp int

const (
	OpEq BinaryOp = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
)

var binaryOpNames = [...]string{
	OpEq:  "eq",
	OpNe:  "ne",
	OpLt:  "lt",
	OpLe:  "le",
	OpGt:  "gt",
	OpGe:  "ge",
	OpAnd: "and",
	OpOr:  "or",
	OpAdd: "add",
	OpSub: "sub",
	OpMul: "mul",
	OpDiv: "div",
	OpMod: "mod",
}

func (op BinaryOp) String() string {
	if int(op) >= 0 && int(op) < len(binaryOpNames) {
		return binaryOpNames[op]
	}
	return "binary?"
}

// ParseBinaryOp resolves an OData operator keyword.
func ParseBinaryOp(keyword string) (BinaryOp, bool) {
	for op, name := range binaryOpNames {
		if name == keyword {
			return BinaryOp(op), true
		}
	}
	return 0, false
}

// IsRelational reports whether op is eq, ne, lt, le, gt or ge.
func (op BinaryOp) IsRelational() bool { return op <= OpGe }

// IsLogical reports whether op is and or or.
func (op BinaryOp) IsLogical() bool { return op == OpAnd || op == OpOr }

// IsArithmetic reports whether op is add, sub, mul, div or mod.
func (op BinaryOp) IsArithmetic() bool { return op >= OpAdd && op <= OpMod }

// Arith maps an arithmetic operator to its edm counterpart.
func (op BinaryOp) Arith() edm.ArithOp {
	switch op {
	case OpSub:
		return edm.OpSub
	case OpMul:
		return edm.OpMul
	case OpDiv:
		return edm.OpDiv
	case OpMod:
		return edm.OpMod
	default:
		return edm.OpAdd
	}
}

// Binary applies an infix operator.
type Binary struct {
	Op    BinaryOp
	Left  Node
	Right Node
}

func (*Binary) exprNode() {}

func (b *Binary) Type() edm.SimpleType {
	if b.Op.IsArithmetic() {
		l, r := b.Left.Type(), b.Right.Type()
		if !l.IsNumeric() || !r.IsNumeric() {
			return edm.TypeUnknown
		}
		return edm.ResultType(b.Op.Arith(), l, r)
	}
	return edm.TypeBoolean
}

// Method calls one of the OData methods listed in Methods.
type Method struct {
	Name string
	Args []Node
}

func (*Method) exprNode() {}

func (m *Method) Type() edm.SimpleType {
	sig, ok := Methods[m.Name]
	if !ok {
		return edm.TypeUnknown
	}
	return sig.result(m.Args)
}

// Direction is an $orderby direction.
type Direction int

const (
	Asc Direction = iota
	Desc
)

func (d Direction) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}

// OrderItem is one $orderby key.
type OrderItem struct {
	Expr      Node
	Direction Direction
}

// OrderSpec is an ordered list of $orderby keys; earlier keys dominate.
type OrderSpec []OrderItem
