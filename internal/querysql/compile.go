package querysql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/odataq/internal/edm"
	"github.com/roach88/odataq/internal/expr"
	"github.com/roach88/odataq/internal/queryerr"
)

// CompilationContext carries the state of one compilation: the dialect,
// the range variable and the bindings collected so far.
//
// CRITICAL: literals are never interpolated. Every literal becomes a
// positional placeholder ?1, ?2, ... appended to Bindings in walk order.
//
// A context belongs to a single compilation and is not safe for concurrent
// use. Filter and order fragments compiled through the same context share
// one placeholder sequence.
type CompilationContext struct {
	dialect  *Dialect
	alias    string
	bindings []edm.Value
}

// NewContext creates a context for one statement. An empty alias means
// DefaultAlias.
func NewContext(d *Dialect, alias string) *CompilationContext {
	if alias == "" {
		alias = DefaultAlias
	}
	return &CompilationContext{dialect: d, alias: alias}
}

// Alias returns the range variable.
func (c *CompilationContext) Alias() string { return c.alias }

// Bindings returns the values bound so far, in placeholder order.
func (c *CompilationContext) Bindings() []edm.Value { return c.bindings }

// Bind appends a value and returns its placeholder.
func (c *CompilationContext) Bind(v edm.Value) string {
	c.bindings = append(c.bindings, v)
	return "?" + strconv.Itoa(len(c.bindings))
}

// Compile converts a $filter tree into a WHERE fragment with bindings.
// It is the one-shot form of NewContext + CompilationContext.Compile.
func (d *Dialect) Compile(n expr.Node, alias string) (string, []edm.Value, error) {
	c := NewContext(d, alias)
	frag, err := c.Compile(n)
	if err != nil {
		return "", nil, err
	}
	return frag, c.Bindings(), nil
}

// CompileOrderBy converts an $orderby specification into an ORDER BY list
// with bindings.
func (d *Dialect) CompileOrderBy(spec expr.OrderSpec, alias string) (string, []edm.Value, error) {
	c := NewContext(d, alias)
	frag, err := c.CompileOrderBy(spec)
	if err != nil {
		return "", nil, err
	}
	return frag, c.Bindings(), nil
}

// Compile renders n as a fragment. Constructs without a rule fail with
// queryerr.CodeUnsupportedExpression.
func (c *CompilationContext) Compile(n expr.Node) (string, error) {
	switch node := n.(type) {
	case *expr.Literal:
		return c.Bind(node.Value), nil
	case *expr.PropertyRef:
		segments, err := storagePath(node)
		if err != nil {
			return "", err
		}
		return c.dialect.Path(c.alias, segments), nil
	case *expr.Member:
		segments, err := storagePath(node)
		if err != nil {
			return "", err
		}
		return c.dialect.Path(c.alias, segments), nil
	case *expr.Unary:
		return c.compileUnary(node)
	case *expr.Binary:
		return c.compileBinary(node)
	case *expr.Method:
		return c.compileMethod(node)
	case nil:
		return "", queryerr.Unsupported("nil node", "no expression to compile")
	default:
		return "", queryerr.Unsupported(fmt.Sprintf("%T", n), "unknown node type")
	}
}

// CompileOrderBy renders every key as "expr ASC|DESC", comma separated.
func (c *CompilationContext) CompileOrderBy(spec expr.OrderSpec) (string, error) {
	parts := make([]string, 0, len(spec))
	for i, item := range spec {
		frag, err := c.Compile(item.Expr)
		if err != nil {
			return "", fmt.Errorf("orderby key %d: %w", i, err)
		}
		parts = append(parts, frag+" "+strings.ToUpper(item.Direction.String()))
	}
	return strings.Join(parts, ", "), nil
}

// storagePath resolves a property reference or member chain to storage
// names, outermost first.
func storagePath(n expr.Node) ([]string, error) {
	switch node := n.(type) {
	case *expr.PropertyRef:
		if node.Property == nil {
			return nil, queryerr.Unsupported("property", "reference without a property")
		}
		if node.Property.IsStructural() {
			return nil, queryerr.Unsupported("property "+node.Property.Name, "structural property has no column")
		}
		return []string{node.Property.Storage()}, nil
	case *expr.Member:
		if node.Path == nil || node.Path.Property == nil || !node.Path.Property.IsStructural() {
			return nil, queryerr.Unsupported("member", "path segment is not a structural property")
		}
		rest, err := storagePath(node.Inner)
		if err != nil {
			return nil, err
		}
		return append([]string{node.Path.Property.Storage()}, rest...), nil
	default:
		return nil, queryerr.Unsupported(fmt.Sprintf("%T", n), "member access must end in a property")
	}
}

func (c *CompilationContext) compileUnary(u *expr.Unary) (string, error) {
	operand, err := c.Compile(u.Operand)
	if err != nil {
		return "", err
	}
	switch u.Op {
	case expr.OpNot:
		return "(NOT " + operand + ")", nil
	case expr.OpNegate:
		return "(- " + operand + ")", nil
	default:
		return "", queryerr.Unsupported("unary "+u.Op.String(), "unknown operator")
	}
}

var relationalOps = map[expr.BinaryOp]string{
	expr.OpEq: "=",
	expr.OpNe: "<>",
	expr.OpLt: "<",
	expr.OpLe: "<=",
	expr.OpGt: ">",
	expr.OpGe: ">=",
}

var arithmeticOps = map[expr.BinaryOp]string{
	expr.OpAdd: "+",
	expr.OpSub: "-",
	expr.OpMul: "*",
	expr.OpDiv: "/",
}

func (c *CompilationContext) compileBinary(b *expr.Binary) (string, error) {
	if b.Op == expr.OpEq || b.Op == expr.OpNe {
		if frag, ok, err := c.compileNullComparison(b); ok || err != nil {
			return frag, err
		}
		if frag, ok, err := c.compilePatternComparison(b); ok || err != nil {
			return frag, err
		}
	}

	l, err := c.Compile(b.Left)
	if err != nil {
		return "", err
	}
	r, err := c.Compile(b.Right)
	if err != nil {
		return "", err
	}

	switch {
	case b.Op == expr.OpAnd:
		return "(" + l + " AND " + r + ")", nil
	case b.Op == expr.OpOr:
		return "(" + l + " OR " + r + ")", nil
	case b.Op.IsRelational():
		return "(" + l + " " + relationalOps[b.Op] + " " + r + ")", nil
	case b.Op == expr.OpMod:
		if c.dialect.IntegerMod && !edm.ResultType(edm.OpMod, b.Left.Type(), b.Right.Type()).IsIntegral() {
			return "", queryerr.Unsupported("binary mod", c.dialect.Name+" modulo truncates real operands")
		}
		return c.dialect.Mod(l, r), nil
	case b.Op == expr.OpDiv && c.dialect.RealDivision:
		return "(CAST(" + l + " AS REAL) / " + r + ")", nil
	case b.Op.IsArithmetic():
		return "(" + l + " " + arithmeticOps[b.Op] + " " + r + ")", nil
	default:
		return "", queryerr.Unsupported("binary "+b.Op.String(), "unknown operator")
	}
}

// compileNullComparison renders x eq null and x ne null as IS [NOT] NULL.
func (c *CompilationContext) compileNullComparison(b *expr.Binary) (string, bool, error) {
	var operand expr.Node
	switch {
	case isNullLiteral(b.Right):
		operand = b.Left
	case isNullLiteral(b.Left):
		operand = b.Right
	default:
		return "", false, nil
	}
	frag, err := c.Compile(operand)
	if err != nil {
		return "", true, err
	}
	if b.Op == expr.OpNe {
		return "(" + frag + " IS NOT NULL)", true, nil
	}
	return "(" + frag + " IS NULL)", true, nil
}

// compilePatternComparison renders startswith(x,'a') eq true and its
// variants as a single LIKE predicate, negated when the comparison asks for
// false.
func (c *CompilationContext) compilePatternComparison(b *expr.Binary) (string, bool, error) {
	m, lit := patternOperands(b.Left, b.Right)
	if m == nil {
		m, lit = patternOperands(b.Right, b.Left)
	}
	if m == nil {
		return "", false, nil
	}
	want, err := lit.Value.AsBoolean()
	if err != nil {
		return "", true, queryerr.Unsupported("binary "+b.Op.String(), err.Error())
	}
	if b.Op == expr.OpNe {
		want = !want
	}
	like, err := c.compileLike(m)
	if err != nil {
		return "", true, err
	}
	if !want {
		return "(NOT " + like + ")", true, nil
	}
	return like, true, nil
}

func patternOperands(a, b expr.Node) (*expr.Method, *expr.Literal) {
	m, ok := a.(*expr.Method)
	if !ok || !expr.IsPattern(m.Name) {
		return nil, nil
	}
	lit, ok := b.(*expr.Literal)
	if !ok || lit.Value.Type() != edm.TypeBoolean || lit.Value.IsNull() {
		return nil, nil
	}
	return m, lit
}

func (c *CompilationContext) compileMethod(m *expr.Method) (string, error) {
	node := "method " + m.Name
	sig, ok := expr.Methods[m.Name]
	if !ok {
		return "", queryerr.Unsupported(node, "unknown method")
	}
	if len(m.Args) < sig.MinArgs || len(m.Args) > sig.MaxArgs {
		return "", queryerr.Unsupported(node, fmt.Sprintf("expects %d..%d arguments, got %d", sig.MinArgs, sig.MaxArgs, len(m.Args)))
	}
	if expr.IsPattern(m.Name) {
		return c.compileLike(m)
	}

	render, ok := c.dialect.function(m.Name)
	if !ok {
		return "", queryerr.Unsupported(node, "no "+c.dialect.Name+" rule")
	}
	args := make([]string, len(m.Args))
	types := make([]edm.SimpleType, len(m.Args))
	for i, arg := range m.Args {
		frag, err := c.Compile(arg)
		if err != nil {
			return "", err
		}
		args[i] = frag
		types[i] = arg.Type()
	}
	frag, err := render(args, types)
	if err != nil {
		return "", queryerr.Unsupported(node, err.Error())
	}
	return frag, nil
}

// compileLike renders startswith, endswith and substringof as LIKE with the
// pattern bound as a parameter. The pattern must be a string literal.
func (c *CompilationContext) compileLike(m *expr.Method) (string, error) {
	subject, pattern := expr.PatternArgs(m)
	lit, ok := pattern.(*expr.Literal)
	if !ok || lit.Value.Type() != edm.TypeString || lit.Value.IsNull() {
		return "", queryerr.Unsupported("method "+m.Name, "pattern must be a string literal")
	}
	text, _ := lit.Value.AsString()

	escaped := EscapeLike(text)
	switch m.Name {
	case expr.MethodStartsWith:
		escaped += "%"
	case expr.MethodEndsWith:
		escaped = "%" + escaped
	default:
		escaped = "%" + escaped + "%"
	}

	// Bindings follow argument order; substringof takes the pattern first.
	var subj, mark string
	var err error
	if m.Name == expr.MethodSubstringOf {
		mark = c.Bind(edm.NewString(escaped))
		subj, err = c.Compile(subject)
	} else {
		subj, err = c.Compile(subject)
		mark = c.Bind(edm.NewString(escaped))
	}
	if err != nil {
		return "", err
	}
	return "(" + subj + " LIKE " + mark + ` ESCAPE '\')`, nil
}

// EscapeLike escapes the LIKE metacharacters \ % and _ with a backslash.
func EscapeLike(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\\', '%', '_':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isNullLiteral(n expr.Node) bool {
	lit, ok := n.(*expr.Literal)
	return ok && lit.Value.IsNull()
}
