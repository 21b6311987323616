package edm

import (
	"fmt"
	"math"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"
)

// ToParam converts a value to a database/sql driver argument. Types the
// driver has no native form for (Decimal, Guid, temporal types) travel as
// their canonical text.
func ToParam(v Value) any {
	switch raw := v.raw.(type) {
	case nil:
		return nil
	case string, bool, float64, []byte:
		return raw
	case uint8:
		return int64(raw)
	case int16:
		return int64(raw)
	case int32:
		return int64(raw)
	case int64:
		return raw
	case float32:
		return float64(raw)
	default:
		return CanonicalString(v)
	}
}

// FromParam converts a value scanned from a database column back into a
// value of type t.
func FromParam(t SimpleType, raw any) (Value, error) {
	if b, ok := raw.([]byte); ok && t != TypeBinary {
		raw = string(b)
	}
	return FromNative(t, raw)
}

// FromNative converts a host value (Go native, decoded YAML/JSON, driver
// value or existing Value) into a value of type t. Strings are parsed with
// ParseLiteral.
func FromNative(t SimpleType, raw any) (Value, error) {
	switch r := raw.(type) {
	case nil:
		return Null(t), nil
	case Value:
		if r.IsNull() {
			return Null(t), nil
		}
		if r.typ == t || t == TypeUnknown {
			return r, nil
		}
		raw = r.raw
	}

	if s, ok := raw.(string); ok && t != TypeString {
		return ParseLiteral(s, t, Facets{})
	}

	switch t {
	case TypeString:
		if s, ok := raw.(string); ok {
			return NewString(s), nil
		}
	case TypeBoolean:
		switch r := raw.(type) {
		case bool:
			return NewBoolean(r), nil
		case int64:
			return NewBoolean(r != 0), nil
		case int:
			return NewBoolean(r != 0), nil
		}
	case TypeByte, TypeInt16, TypeInt32, TypeInt64:
		if n, ok := toInt64(raw); ok {
			return integralValue(t, n)
		}
	case TypeSingle:
		if f, ok := toFloat64(raw); ok {
			return NewSingle(float32(f)), nil
		}
	case TypeDouble:
		if f, ok := toFloat64(raw); ok {
			return NewDouble(f), nil
		}
	case TypeDecimal:
		switch r := raw.(type) {
		case *apd.Decimal:
			return NewDecimal(r), nil
		case apd.Decimal:
			return NewDecimal(new(apd.Decimal).Set(&r)), nil
		}
		if n, ok := toInt64(raw); ok {
			return NewDecimal(apd.New(n, 0)), nil
		}
		if f, ok := toFloat64(raw); ok {
			d := new(apd.Decimal)
			if _, err := d.SetFloat64(f); err != nil {
				return Value{}, fmt.Errorf("convert %v to %s: %w", f, t, err)
			}
			return NewDecimal(d), nil
		}
	case TypeGuid:
		switch r := raw.(type) {
		case uuid.UUID:
			return NewGuid(r), nil
		case []byte:
			u, err := uuid.FromBytes(r)
			if err != nil {
				return Value{}, fmt.Errorf("convert to %s: %w", t, err)
			}
			return NewGuid(u), nil
		}
	case TypeBinary:
		if b, ok := raw.([]byte); ok {
			return NewBinary(b), nil
		}
	case TypeDateTime:
		if ts, ok := raw.(time.Time); ok {
			return NewDateTime(ts), nil
		}
	case TypeDateTimeOffset:
		if ts, ok := raw.(time.Time); ok {
			return NewDateTimeOffset(ts), nil
		}
	case TypeTime:
		if d, ok := raw.(time.Duration); ok {
			return NewTime(d), nil
		}
	}
	return Value{}, fmt.Errorf("cannot convert %T to %s", raw, t)
}

func integralValue(t SimpleType, n int64) (Value, error) {
	switch t {
	case TypeByte:
		if n >= 0 && n <= math.MaxUint8 {
			return NewByte(uint8(n)), nil
		}
	case TypeInt16:
		if n >= math.MinInt16 && n <= math.MaxInt16 {
			return NewInt16(int16(n)), nil
		}
	case TypeInt32:
		if n >= math.MinInt32 && n <= math.MaxInt32 {
			return NewInt32(int32(n)), nil
		}
	case TypeInt64:
		return NewInt64(n), nil
	}
	return Value{}, fmt.Errorf("%d out of range for %s", n, t)
}

func toInt64(raw any) (int64, bool) {
	switch r := raw.(type) {
	case int:
		return int64(r), true
	case int8:
		return int64(r), true
	case int16:
		return int64(r), true
	case int32:
		return int64(r), true
	case int64:
		return r, true
	case uint8:
		return int64(r), true
	case uint16:
		return int64(r), true
	case uint32:
		return int64(r), true
	case uint64:
		if r <= math.MaxInt64 {
			return int64(r), true
		}
	case float64:
		if r == math.Trunc(r) && math.Abs(r) < 1<<53 {
			return int64(r), true
		}
	}
	return 0, false
}

func toFloat64(raw any) (float64, bool) {
	switch r := raw.(type) {
	case float32:
		return float64(r), true
	case float64:
		return r, true
	}
	if n, ok := toInt64(raw); ok {
		return float64(n), true
	}
	return 0, false
}
