package eval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/odataq/internal/edm"
	"github.com/roach88/odataq/internal/expr"
	"github.com/roach88/odataq/internal/queryerr"
)

// Evaluator walks expression trees against single entities.
//
// Thread-safety: an Evaluator holds no per-call state and is safe for
// concurrent use as long as its Accessor is.
type Evaluator struct {
	accessor edm.Accessor
	logger   *slog.Logger
}

// New creates an evaluator reading entities through acc. A nil logger
// means slog.Default().
func New(acc edm.Accessor, logger *slog.Logger) *Evaluator {
	return &Evaluator{accessor: acc, logger: logger}
}

func (e *Evaluator) log() *slog.Logger {
	if e.logger != nil {
		return e.logger
	}
	return slog.Default()
}

// Evaluate computes the typed value of n for one entity.
//
// Errors propagate: queryerr.CodeNotImplemented for unknown methods and
// node kinds, queryerr.CodeEvaluation for type mismatches, null arithmetic
// and division by zero.
func (e *Evaluator) Evaluate(n expr.Node, entity any) (edm.Value, error) {
	switch node := n.(type) {
	case *expr.Literal:
		return node.Value, nil
	case *expr.PropertyRef:
		return e.property(node, entity)
	case *expr.Member:
		return e.member(node, entity)
	case *expr.Unary:
		return e.unary(node, entity)
	case *expr.Binary:
		return e.binary(node, entity)
	case *expr.Method:
		return e.method(node, entity)
	case nil:
		return edm.Value{}, queryerr.NotImplemented("nil node")
	default:
		return edm.Value{}, queryerr.NotImplemented(fmt.Sprintf("%T", n))
	}
}

// EvaluateAsPredicate reduces n to a boolean for one entity. It never
// fails: errors of any kind and null results count as false. Absorbed
// errors are logged at debug level; a panicking accessor is logged at warn
// level and also counts as false.
func (e *Evaluator) EvaluateAsPredicate(n expr.Node, entity any) (matched bool) {
	defer func() {
		if r := recover(); r != nil {
			e.log().Warn("filter panic absorbed", "panic", r)
			matched = false
		}
	}()

	v, err := e.Evaluate(n, entity)
	if err != nil {
		if e.log().Enabled(context.Background(), slog.LevelDebug) {
			e.log().Debug("filter error absorbed",
				"filter", expr.Format(n),
				"code", queryerr.CodeOf(err),
				"error", err,
			)
		}
		return false
	}
	b, err := v.AsBoolean()
	return err == nil && b
}

// Predicate returns EvaluateAsPredicate bound to n, for in-memory scans.
func (e *Evaluator) Predicate(n expr.Node) func(entity any) bool {
	return func(entity any) bool { return e.EvaluateAsPredicate(n, entity) }
}

// Filter returns the entities for which n holds, in input order. The input
// slice is not modified.
func (e *Evaluator) Filter(n expr.Node, entities []any) []any {
	out := make([]any, 0, len(entities))
	for _, entity := range entities {
		if e.EvaluateAsPredicate(n, entity) {
			out = append(out, entity)
		}
	}
	return out
}

func (e *Evaluator) property(p *expr.PropertyRef, entity any) (edm.Value, error) {
	if entity == nil {
		return edm.Null(p.Type()), nil
	}
	if p.Property.IsStructural() {
		return edm.Value{}, queryerr.Evaluation("structural property %s has no primitive value", p.Property.Name)
	}
	return e.accessor.Get(entity, p.Property)
}

// member navigates one segment per Member node. A null intermediate
// short-circuits to a typed null without touching deeper segments.
func (e *Evaluator) member(m *expr.Member, entity any) (edm.Value, error) {
	if entity == nil {
		return edm.Null(m.Type()), nil
	}
	nested, err := e.accessor.Navigate(entity, m.Path.Property)
	if err != nil {
		return edm.Value{}, err
	}
	if nested == nil {
		return edm.Null(m.Type()), nil
	}
	return e.Evaluate(m.Inner, nested)
}

func (e *Evaluator) unary(u *expr.Unary, entity any) (edm.Value, error) {
	v, err := e.Evaluate(u.Operand, entity)
	if err != nil {
		return edm.Value{}, err
	}
	switch u.Op {
	case expr.OpNot:
		if v.IsNull() {
			return edm.Null(edm.TypeBoolean), nil
		}
		b, err := v.AsBoolean()
		if err != nil {
			return edm.Value{}, err
		}
		return edm.NewBoolean(!b), nil
	case expr.OpNegate:
		return edm.Negate(v)
	}
	return edm.Value{}, queryerr.NotImplemented(u.Op.String())
}

func (e *Evaluator) binary(b *expr.Binary, entity any) (edm.Value, error) {
	l, err := e.Evaluate(b.Left, entity)
	if err != nil {
		return edm.Value{}, err
	}
	r, err := e.Evaluate(b.Right, entity)
	if err != nil {
		return edm.Value{}, err
	}

	switch {
	case b.Op.IsLogical():
		return logical(b.Op, l, r)
	case b.Op.IsRelational():
		return relational(b.Op, l, r)
	case b.Op.IsArithmetic():
		return edm.Arithmetic(b.Op.Arith(), l, r)
	}
	return edm.Value{}, queryerr.NotImplemented(b.Op.String())
}

// logical applies three-valued and/or: false dominates and, true dominates
// or, otherwise a null operand makes the result null.
func logical(op expr.BinaryOp, l, r edm.Value) (edm.Value, error) {
	lt, err := truth(l)
	if err != nil {
		return edm.Value{}, err
	}
	rt, err := truth(r)
	if err != nil {
		return edm.Value{}, err
	}

	dominant := op == expr.OpOr
	switch {
	case lt != nil && *lt == dominant, rt != nil && *rt == dominant:
		return edm.NewBoolean(dominant), nil
	case lt == nil || rt == nil:
		return edm.Null(edm.TypeBoolean), nil
	default:
		return edm.NewBoolean(!dominant), nil
	}
}

func truth(v edm.Value) (*bool, error) {
	if v.IsNull() {
		return nil, nil
	}
	b, err := v.AsBoolean()
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// relational compares two values. eq and ne treat null as equal only to
// null; ordering comparisons involving null are false.
func relational(op expr.BinaryOp, l, r edm.Value) (edm.Value, error) {
	if l.IsNull() || r.IsNull() {
		both := l.IsNull() && r.IsNull()
		switch op {
		case expr.OpEq:
			return edm.NewBoolean(both), nil
		case expr.OpNe:
			return edm.NewBoolean(!both), nil
		default:
			return edm.NewBoolean(false), nil
		}
	}

	c, err := edm.Compare(l, r)
	if err != nil {
		return edm.Value{}, err
	}
	var result bool
	switch op {
	case expr.OpEq:
		result = c == 0
	case expr.OpNe:
		result = c != 0
	case expr.OpLt:
		result = c < 0
	case expr.OpLe:
		result = c <= 0
	case expr.OpGt:
		result = c > 0
	case expr.OpGe:
		result = c >= 0
	}
	return edm.NewBoolean(result), nil
}
