package expr

import (
	"fmt"

	"github.com/roach88/odataq/internal/edm"
)

// ValidationResult contains the static analysis of an expression tree.
type ValidationResult struct {
	// IsValid indicates the tree is well-typed and only uses known methods.
	// Invalid trees fail in the evaluator and are rejected by the compiler.
	IsValid bool

	// IsPushable indicates the tree can be compiled for push-down
	// execution. Non-pushable trees still evaluate in memory.
	IsPushable bool

	// Errors lists the problems that make the tree invalid.
	Errors []string

	// Warnings lists constructs that evaluate but do not push down, or
	// that can never match.
	Warnings []string
}

// Validate checks a tree for type errors, unknown methods and constructs
// that cannot be pushed down. It is a pure function.
func Validate(n Node) ValidationResult {
	v := &validator{errors: []string{}, warnings: []string{}}
	v.validateNode(n)
	return v.result()
}

// ValidateFilter is Validate plus the requirement that the root of a
// $filter tree is Boolean.
func ValidateFilter(n Node) ValidationResult {
	v := &validator{errors: []string{}, warnings: []string{}}
	v.validateNode(n)
	if n != nil {
		if t := n.Type(); t != edm.TypeBoolean {
			v.addError("filter must be Edm.Boolean, got %s", t)
		}
	}
	return v.result()
}

// ValidateOrder validates every key of an $orderby specification. Keys
// must be primitive and ordered.
func ValidateOrder(spec OrderSpec) ValidationResult {
	v := &validator{errors: []string{}, warnings: []string{}}
	for i, item := range spec {
		v.validateNode(item.Expr)
		if item.Expr != nil && item.Expr.Type() == edm.TypeUnknown {
			v.addError("orderby key %d has no resolvable type", i)
		}
	}
	return v.result()
}

// validator accumulates findings during traversal.
type validator struct {
	errors     []string
	warnings   []string
	unpushable bool
}

func (v *validator) result() ValidationResult {
	return ValidationResult{
		IsValid:    len(v.errors) == 0,
		IsPushable: len(v.errors) == 0 && !v.unpushable,
		Errors:     v.errors,
		Warnings:   v.warnings,
	}
}

func (v *validator) addError(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validateNode(n Node) {
	switch node := n.(type) {
	case nil:
		v.addError("nil node")
	case *Literal:
	case *PropertyRef:
		v.validateProperty(node, false)
	case *Member:
		v.validateMember(node)
	case *Unary:
		v.validateUnary(node)
	case *Binary:
		v.validateBinary(node)
	case *Method:
		v.validateMethod(node)
	default:
		v.addError("unknown node type: %T", n)
	}
}

func (v *validator) validateProperty(p *PropertyRef, structural bool) {
	switch {
	case p == nil || p.Property == nil:
		v.addError("property reference without a property")
	case structural && !p.Property.IsStructural():
		v.addError("property %q is primitive and cannot be navigated", p.Property.Name)
	case !structural && p.Property.IsStructural():
		v.addError("property %q is structural and has no value", p.Property.Name)
	}
}

func (v *validator) validateMember(m *Member) {
	v.validateProperty(m.Path, true)
	if m.Inner == nil {
		v.addError("member access without an inner expression")
		return
	}
	switch inner := m.Inner.(type) {
	case *PropertyRef:
		v.validateProperty(inner, false)
		if m.Path != nil && m.Path.Property != nil && m.Path.Property.Structural != nil && inner.Property != nil &&
			m.Path.Property.Structural.Property(inner.Property.Name) == nil {
			v.addError("type %s has no property %q", m.Path.Property.Structural.Name, inner.Property.Name)
		}
	case *Member:
		v.validateMember(inner)
	default:
		v.addError("member access must end in a property, got %T", m.Inner)
	}
}

func (v *validator) validateUnary(u *Unary) {
	v.validateNode(u.Operand)
	if u.Operand == nil {
		return
	}
	t := u.Operand.Type()
	switch u.Op {
	case OpNot:
		if t != edm.TypeBoolean && t != edm.TypeUnknown {
			v.addError("not requires Edm.Boolean, got %s", t)
		}
	case OpNegate:
		if !t.IsNumeric() && t != edm.TypeUnknown {
			v.addError("negation requires a numeric operand, got %s", t)
		}
	}
}

func (v *validator) validateBinary(b *Binary) {
	v.validateNode(b.Left)
	v.validateNode(b.Right)
	if b.Left == nil || b.Right == nil {
		return
	}
	l, r := b.Left.Type(), b.Right.Type()

	switch {
	case b.Op.IsLogical():
		for _, t := range []edm.SimpleType{l, r} {
			if t != edm.TypeBoolean && t != edm.TypeUnknown {
				v.addError("%s requires Edm.Boolean operands, got %s", b.Op, t)
			}
		}
	case b.Op.IsRelational():
		if !edm.Comparable(l, r) {
			v.addError("cannot compare %s with %s", l, r)
		}
		if b.Op != OpEq && b.Op != OpNe && (isNullLiteral(b.Left) || isNullLiteral(b.Right)) {
			v.addWarning("%s against null never matches", b.Op)
		}
	case b.Op.IsArithmetic():
		for _, t := range []edm.SimpleType{l, r} {
			if !t.IsNumeric() {
				v.addError("%s requires numeric operands, got %s", b.Op, t)
			}
		}
	}
}

func (v *validator) validateMethod(m *Method) {
	sig, ok := Methods[m.Name]
	if !ok {
		v.addError("unknown method %q", m.Name)
		return
	}
	if len(m.Args) < sig.MinArgs || len(m.Args) > sig.MaxArgs {
		v.addError("%s expects %d..%d arguments, got %d", m.Name, sig.MinArgs, sig.MaxArgs, len(m.Args))
		return
	}
	for _, arg := range m.Args {
		v.validateNode(arg)
	}
	if IsPattern(m.Name) {
		_, pattern := PatternArgs(m)
		if lit, ok := pattern.(*Literal); !ok || lit.Value.Type() != edm.TypeString || lit.Value.IsNull() {
			v.unpushable = true
			v.addWarning("%s pattern is not a string literal and cannot be pushed down", m.Name)
		}
	}
}

func isNullLiteral(n Node) bool {
	lit, ok := n.(*Literal)
	return ok && lit.Value.IsNull()
}
