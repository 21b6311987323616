package edm

import (
	"math"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/odataq/internal/queryerr"
)

// ArithOp is a binary arithmetic operator.
type ArithOp int

const (
	OpAdd ArithOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
)

func (op ArithOp) String() string {
	switch op {
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	case OpMul:
		return "mul"
	case OpDiv:
		return "div"
	case OpMod:
		return "mod"
	}
	return "arith?"
}

// decimalContext is the precision used for decimal arithmetic.
var decimalContext = apd.BaseContext.WithPrecision(34)

// ResultType returns the static result type of op over operands of types
// a and b. Division is always real.
func ResultType(op ArithOp, a, b SimpleType) SimpleType {
	t := Promote(a, b)
	if op == OpDiv && t.IsIntegral() {
		return TypeDouble
	}
	return t
}

// Arithmetic applies op to two numeric values.
//
// The result is Double when either operand is Single or Double, Decimal
// when either operand is Decimal, and integral otherwise (Int64 when an
// operand is Int64 or the Int32 result overflows). Division always yields
// a real result. Null operands and zero divisors fail with a
// queryerr.CodeEvaluation error.
func Arithmetic(op ArithOp, a, b Value) (Value, error) {
	if a.IsNull() || b.IsNull() {
		return Value{}, queryerr.Evaluation("null operand in %s", op)
	}
	if !a.typ.IsNumeric() || !b.typ.IsNumeric() {
		return Value{}, queryerr.Evaluation("%s requires numeric operands, got %s and %s", op, a.typ, b.typ)
	}

	switch ResultType(op, a.typ, b.typ) {
	case TypeDecimal:
		return decimalArithmetic(op, a, b)
	case TypeDouble:
		return floatArithmetic(op, a, b)
	default:
		return integerArithmetic(op, a, b)
	}
}

func integerArithmetic(op ArithOp, a, b Value) (Value, error) {
	x, _ := a.AsInt64()
	y, _ := b.AsInt64()
	var r int64
	overflow := false
	switch op {
	case OpAdd:
		r = x + y
		overflow = (x^r)&(y^r) < 0
	case OpSub:
		r = x - y
		overflow = (x^y)&(x^r) < 0
	case OpMul:
		r = x * y
		overflow = x != 0 && (r/x != y || (x == -1 && y == math.MinInt64))
	case OpMod:
		if y == 0 {
			return Value{}, queryerr.Evaluation("modulo by zero")
		}
		r = x % y
	default:
		return Value{}, queryerr.Evaluation("unsupported integral operator %s", op)
	}
	if overflow {
		return Value{}, queryerr.Evaluation("Int64 overflow in %d %s %d", x, op, y)
	}
	if Promote(a.typ, b.typ) == TypeInt32 && r >= math.MinInt32 && r <= math.MaxInt32 {
		return NewInt32(int32(r)), nil
	}
	return NewInt64(r), nil
}

func floatArithmetic(op ArithOp, a, b Value) (Value, error) {
	x, err := a.AsFloat64()
	if err != nil {
		return Value{}, err
	}
	y, err := b.AsFloat64()
	if err != nil {
		return Value{}, err
	}
	var r float64
	switch op {
	case OpAdd:
		r = x + y
	case OpSub:
		r = x - y
	case OpMul:
		r = x * y
	case OpDiv:
		if y == 0 {
			return Value{}, queryerr.Evaluation("division by zero")
		}
		r = x / y
	case OpMod:
		if y == 0 {
			return Value{}, queryerr.Evaluation("modulo by zero")
		}
		r = math.Mod(x, y)
	}
	return NewDouble(r), nil
}

func decimalArithmetic(op ArithOp, a, b Value) (Value, error) {
	x, err := a.AsDecimal()
	if err != nil {
		return Value{}, err
	}
	y, err := b.AsDecimal()
	if err != nil {
		return Value{}, err
	}
	if (op == OpDiv || op == OpMod) && y.IsZero() {
		return Value{}, queryerr.Evaluation("division by zero")
	}
	r := new(apd.Decimal)
	switch op {
	case OpAdd:
		_, err = decimalContext.Add(r, x, y)
	case OpSub:
		_, err = decimalContext.Sub(r, x, y)
	case OpMul:
		_, err = decimalContext.Mul(r, x, y)
	case OpDiv:
		_, err = decimalContext.Quo(r, x, y)
		if err == nil {
			r.Reduce(r)
		}
	case OpMod:
		_, err = decimalContext.Rem(r, x, y)
	}
	if err != nil {
		return Value{}, queryerr.Evaluation("decimal %s: %v", op, err)
	}
	return NewDecimal(r), nil
}

// Negate returns the arithmetic negation of a numeric value. Negating the
// minimum value of an integral type widens the result.
func Negate(v Value) (Value, error) {
	if v.IsNull() {
		return Value{}, queryerr.Evaluation("null operand in negation")
	}
	switch raw := v.raw.(type) {
	case uint8:
		return NewInt32(-int32(raw)), nil
	case int16:
		return NewInt32(-int32(raw)), nil
	case int32:
		if raw == math.MinInt32 {
			return NewInt64(-int64(raw)), nil
		}
		return NewInt32(-raw), nil
	case int64:
		if raw == math.MinInt64 {
			return Value{}, queryerr.Evaluation("negation overflows Int64")
		}
		return NewInt64(-raw), nil
	case float32:
		return NewSingle(-raw), nil
	case float64:
		return NewDouble(-raw), nil
	case *apd.Decimal:
		return NewDecimal(new(apd.Decimal).Neg(raw)), nil
	}
	return Value{}, queryerr.Evaluation("cannot negate %s", v.typ)
}
