package edm

import (
	"fmt"
	"strings"
)

// SimpleType tags the primitive EDM type of a value or property.
type SimpleType int

const (
	// TypeUnknown is the type of an untyped null literal.
	TypeUnknown SimpleType = iota
	TypeString
	TypeBoolean
	TypeByte
	TypeInt16
	TypeInt32
	TypeInt64
	TypeSingle
	TypeDouble
	TypeDecimal
	TypeGuid
	TypeBinary
	TypeDateTime
	TypeDateTimeOffset
	TypeTime
)

var typeNames = map[SimpleType]string{
	TypeUnknown:        "Null",
	TypeString:         "String",
	TypeBoolean:        "Boolean",
	TypeByte:           "Byte",
	TypeInt16:          "Int16",
	TypeInt32:          "Int32",
	TypeInt64:          "Int64",
	TypeSingle:         "Single",
	TypeDouble:         "Double",
	TypeDecimal:        "Decimal",
	TypeGuid:           "Guid",
	TypeBinary:         "Binary",
	TypeDateTime:       "DateTime",
	TypeDateTimeOffset: "DateTimeOffset",
	TypeTime:           "Time",
}

// String returns the qualified EDM name, e.g. "Edm.Int32".
func (t SimpleType) String() string {
	if name, ok := typeNames[t]; ok {
		return "Edm." + name
	}
	return fmt.Sprintf("Edm.SimpleType(%d)", int(t))
}

// ParseType resolves a type name with or without the "Edm." prefix.
func ParseType(name string) (SimpleType, error) {
	short := strings.TrimPrefix(name, "Edm.")
	for t, n := range typeNames {
		if t != TypeUnknown && strings.EqualFold(n, short) {
			return t, nil
		}
	}
	return TypeUnknown, fmt.Errorf("unknown EDM simple type %q", name)
}

// IsNumeric reports whether t is an integral or real numeric type.
func (t SimpleType) IsNumeric() bool {
	return t.IsIntegral() || t.IsReal()
}

// IsIntegral reports whether t is Byte, Int16, Int32 or Int64.
func (t SimpleType) IsIntegral() bool {
	switch t {
	case TypeByte, TypeInt16, TypeInt32, TypeInt64:
		return true
	}
	return false
}

// IsReal reports whether t is Single, Double or Decimal.
func (t SimpleType) IsReal() bool {
	switch t {
	case TypeSingle, TypeDouble, TypeDecimal:
		return true
	}
	return false
}

// IsFloating reports whether t is an IEEE-754 type.
func (t SimpleType) IsFloating() bool {
	return t == TypeSingle || t == TypeDouble
}

// IsTemporal reports whether t is DateTime, DateTimeOffset or Time.
func (t SimpleType) IsTemporal() bool {
	switch t {
	case TypeDateTime, TypeDateTimeOffset, TypeTime:
		return true
	}
	return false
}

// IsTextual reports whether values of t compare by their canonical text.
func (t SimpleType) IsTextual() bool {
	return t == TypeString || t == TypeGuid || t.IsTemporal()
}

// Promote returns the widest of two numeric types: Double beats Decimal,
// Decimal beats integral types, and integral types widen to at least Int32.
func Promote(a, b SimpleType) SimpleType {
	switch {
	case a.IsFloating() || b.IsFloating():
		return TypeDouble
	case a == TypeDecimal || b == TypeDecimal:
		return TypeDecimal
	case a == TypeInt64 || b == TypeInt64:
		return TypeInt64
	default:
		return TypeInt32
	}
}

// Comparable reports whether values of a and b can be ordered against each
// other. TypeUnknown (untyped null) is comparable with everything.
func Comparable(a, b SimpleType) bool {
	if a == TypeUnknown || b == TypeUnknown {
		return true
	}
	if a.IsNumeric() && b.IsNumeric() {
		return true
	}
	return a == b
}

// ConcurrencyMode marks whether a property participates in the version tag.
type ConcurrencyMode int

const (
	ConcurrencyNone ConcurrencyMode = iota
	ConcurrencyFixed
)

// Facets are the EDM property facets relevant to literal validation and
// storage.
type Facets struct {
	Nullable    bool
	MaxLength   int // runes for String, bytes for Binary; 0 = unbounded
	Precision   int // total digits for Decimal; 0 = unbounded
	Scale       int // digits after the point for Decimal; 0 = unchecked
	Concurrency ConcurrencyMode
}
