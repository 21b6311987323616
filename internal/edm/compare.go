package edm

import (
	"bytes"
	"cmp"
	"strings"

	"github.com/roach88/odataq/internal/queryerr"
)

// Compare orders two values and returns -1, 0 or 1.
//
// Nulls sort before every non-null value and two nulls are equal. Numeric
// kinds are promoted to the widest operand type before comparing. String,
// Guid and the temporal types compare by canonical text. Booleans order
// false before true, Binary compares bytewise. Any other pairing fails with
// a queryerr.CodeEvaluation error.
func Compare(a, b Value) (int, error) {
	switch {
	case a.IsNull() && b.IsNull():
		return 0, nil
	case a.IsNull():
		return -1, nil
	case b.IsNull():
		return 1, nil
	}

	if a.typ.IsNumeric() && b.typ.IsNumeric() {
		return compareNumeric(a, b)
	}
	if a.typ != b.typ {
		return 0, queryerr.Evaluation("cannot compare %s with %s", a.typ, b.typ)
	}

	switch {
	case a.typ.IsTextual():
		return strings.Compare(CanonicalString(a), CanonicalString(b)), nil
	case a.typ == TypeBoolean:
		x, y := a.raw.(bool), b.raw.(bool)
		switch {
		case x == y:
			return 0, nil
		case !x:
			return -1, nil
		default:
			return 1, nil
		}
	case a.typ == TypeBinary:
		return bytes.Compare(a.raw.([]byte), b.raw.([]byte)), nil
	}
	return 0, queryerr.Evaluation("values of %s are not ordered", a.typ)
}

func compareNumeric(a, b Value) (int, error) {
	switch Promote(a.typ, b.typ) {
	case TypeDouble:
		x, err := a.AsFloat64()
		if err != nil {
			return 0, err
		}
		y, err := b.AsFloat64()
		if err != nil {
			return 0, err
		}
		return cmp.Compare(x, y), nil
	case TypeDecimal:
		x, err := a.AsDecimal()
		if err != nil {
			return 0, err
		}
		y, err := b.AsDecimal()
		if err != nil {
			return 0, err
		}
		return x.Cmp(y), nil
	default:
		x, err := a.AsInt64()
		if err != nil {
			return 0, err
		}
		y, err := b.AsInt64()
		if err != nil {
			return 0, err
		}
		return cmp.Compare(x, y), nil
	}
}

// Equal reports whether a and b compare equal. Values that cannot be
// compared are unequal.
func Equal(a, b Value) bool {
	c, err := Compare(a, b)
	return err == nil && c == 0
}
