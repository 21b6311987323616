package edm

import (
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"

	"github.com/roach88/odataq/internal/queryerr"
)

// Value is a typed EDM value. The zero Value is an untyped null.
//
// The raw field holds the default host type for the simple type (see
// NewXxx constructors) or nil for null. Values are immutable; Decimal and
// Binary payloads are never modified after construction.
type Value struct {
	typ SimpleType
	raw any
}

// Null returns a null value of type t.
func Null(t SimpleType) Value { return Value{typ: t} }

// NewString creates a String value.
func NewString(s string) Value { return Value{typ: TypeString, raw: s} }

// NewBoolean creates a Boolean value.
func NewBoolean(b bool) Value { return Value{typ: TypeBoolean, raw: b} }

// NewByte creates a Byte value.
func NewByte(n uint8) Value { return Value{typ: TypeByte, raw: n} }

// NewInt16 creates an Int16 value.
func NewInt16(n int16) Value { return Value{typ: TypeInt16, raw: n} }

// NewInt32 creates an Int32 value.
func NewInt32(n int32) Value { return Value{typ: TypeInt32, raw: n} }

// NewInt64 creates an Int64 value.
func NewInt64(n int64) Value { return Value{typ: TypeInt64, raw: n} }

// NewSingle creates a Single value.
func NewSingle(f float32) Value { return Value{typ: TypeSingle, raw: f} }

// NewDouble creates a Double value.
func NewDouble(f float64) Value { return Value{typ: TypeDouble, raw: f} }

// NewDecimal creates a Decimal value. d must not be modified afterwards.
func NewDecimal(d *apd.Decimal) Value {
	if d == nil {
		return Null(TypeDecimal)
	}
	return Value{typ: TypeDecimal, raw: d}
}

// NewGuid creates a Guid value.
func NewGuid(u uuid.UUID) Value { return Value{typ: TypeGuid, raw: u} }

// NewBinary creates a Binary value. b must not be modified afterwards.
func NewBinary(b []byte) Value {
	if b == nil {
		return Null(TypeBinary)
	}
	return Value{typ: TypeBinary, raw: b}
}

// NewDateTime creates a zone-less DateTime value; t is normalized to UTC
// wall-clock fields.
func NewDateTime(t time.Time) Value {
	wall := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	return Value{typ: TypeDateTime, raw: wall}
}

// NewDateTimeOffset creates a DateTimeOffset value keeping t's offset.
func NewDateTimeOffset(t time.Time) Value { return Value{typ: TypeDateTimeOffset, raw: t} }

// NewTime creates a Time value from a duration since midnight.
func NewTime(d time.Duration) Value { return Value{typ: TypeTime, raw: d} }

// Type returns the value's simple type.
func (v Value) Type() SimpleType { return v.typ }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.raw == nil }

// Raw returns the host representation, or nil for null.
func (v Value) Raw() any { return v.raw }

// String returns the canonical text, or "null".
func (v Value) String() string {
	if v.IsNull() {
		return "null"
	}
	return CanonicalString(v)
}

// AsString returns the host string for a String value.
func (v Value) AsString() (string, error) {
	s, ok := v.raw.(string)
	if !ok {
		return "", mismatch("Edm.String", v)
	}
	return s, nil
}

// AsBoolean returns the host bool for a Boolean value.
func (v Value) AsBoolean() (bool, error) {
	b, ok := v.raw.(bool)
	if !ok {
		return false, mismatch("Edm.Boolean", v)
	}
	return b, nil
}

// AsInt64 returns any integral value widened to int64.
func (v Value) AsInt64() (int64, error) {
	switch n := v.raw.(type) {
	case uint8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	}
	return 0, mismatch("integral", v)
}

// AsFloat64 returns any numeric value converted to float64.
func (v Value) AsFloat64() (float64, error) {
	switch n := v.raw.(type) {
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	case *apd.Decimal:
		f, err := n.Float64()
		if err != nil {
			return 0, queryerr.Evaluation("decimal %s not representable as double", n.Text('f'))
		}
		return f, nil
	}
	if i, err := v.AsInt64(); err == nil {
		return float64(i), nil
	}
	return 0, mismatch("numeric", v)
}

// AsDecimal returns any integral or Decimal value as a decimal. The result
// is a fresh Decimal for integral input and the stored pointer otherwise.
func (v Value) AsDecimal() (*apd.Decimal, error) {
	if d, ok := v.raw.(*apd.Decimal); ok {
		return d, nil
	}
	if i, err := v.AsInt64(); err == nil {
		return apd.New(i, 0), nil
	}
	if f, err := v.AsFloat64(); err == nil {
		d := new(apd.Decimal)
		if _, err := d.SetFloat64(f); err != nil {
			return nil, queryerr.Evaluation("double %v not representable as decimal", f)
		}
		return d, nil
	}
	return nil, mismatch("Edm.Decimal", v)
}

// AsTime returns the host time for DateTime and DateTimeOffset values.
func (v Value) AsTime() (time.Time, error) {
	t, ok := v.raw.(time.Time)
	if !ok {
		return time.Time{}, mismatch("Edm.DateTime", v)
	}
	return t, nil
}

func mismatch(want string, v Value) error {
	return queryerr.Evaluation("expected %s, got %s", want, v.typ)
}
