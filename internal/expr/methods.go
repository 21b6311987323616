package expr

import "github.com/roach88/odataq/internal/edm"

// OData method names.
const (
	MethodEndsWith    = "endswith"
	MethodStartsWith  = "startswith"
	MethodSubstringOf = "substringof"
	MethodToLower     = "tolower"
	MethodToUpper     = "toupper"
	MethodTrim        = "trim"
	MethodSubstring   = "substring"
	MethodConcat      = "concat"
	MethodLength      = "length"
	MethodIndexOf     = "indexof"
	MethodReplace     = "replace"
	MethodYear        = "year"
	MethodMonth       = "month"
	MethodDay         = "day"
	MethodHour        = "hour"
	MethodMinute      = "minute"
	MethodSecond      = "second"
	MethodRound       = "round"
	MethodFloor       = "floor"
	MethodCeiling     = "ceiling"
)

// MethodSig describes the arity and result type of a method.
type MethodSig struct {
	MinArgs int
	MaxArgs int
	result  func(args []Node) edm.SimpleType
}

// IsPattern reports whether the method is one of the LIKE-style pattern
// tests. Their pattern argument must be a string literal to push down.
func IsPattern(name string) bool {
	switch name {
	case MethodStartsWith, MethodEndsWith, MethodSubstringOf:
		return true
	}
	return false
}

// PatternArgs returns the subject and pattern argument of a pattern method.
// substringof takes the pattern first.
func PatternArgs(m *Method) (subject, pattern Node) {
	if m.Name == MethodSubstringOf {
		return m.Args[1], m.Args[0]
	}
	return m.Args[0], m.Args[1]
}

func fixed(t edm.SimpleType) func([]Node) edm.SimpleType {
	return func([]Node) edm.SimpleType { return t }
}

// roundingType keeps Decimal exact and maps every other numeric to Double.
func roundingType(args []Node) edm.SimpleType {
	if len(args) > 0 && args[0].Type() == edm.TypeDecimal {
		return edm.TypeDecimal
	}
	return edm.TypeDouble
}

// Methods is the fixed OData method set.
var Methods = map[string]MethodSig{
	MethodEndsWith:    {2, 2, fixed(edm.TypeBoolean)},
	MethodStartsWith:  {2, 2, fixed(edm.TypeBoolean)},
	MethodSubstringOf: {2, 2, fixed(edm.TypeBoolean)},
	MethodToLower:     {1, 1, fixed(edm.TypeString)},
	MethodToUpper:     {1, 1, fixed(edm.TypeString)},
	MethodTrim:        {1, 1, fixed(edm.TypeString)},
	MethodSubstring:   {2, 3, fixed(edm.TypeString)},
	MethodConcat:      {2, 2, fixed(edm.TypeString)},
	MethodLength:      {1, 1, fixed(edm.TypeInt32)},
	MethodIndexOf:     {2, 2, fixed(edm.TypeInt32)},
	MethodReplace:     {3, 3, fixed(edm.TypeString)},
	MethodYear:        {1, 1, fixed(edm.TypeInt32)},
	MethodMonth:       {1, 1, fixed(edm.TypeInt32)},
	MethodDay:         {1, 1, fixed(edm.TypeInt32)},
	MethodHour:        {1, 1, fixed(edm.TypeInt32)},
	MethodMinute:      {1, 1, fixed(edm.TypeInt32)},
	MethodSecond:      {1, 1, fixed(edm.TypeInt32)},
	MethodRound:       {1, 1, roundingType},
	MethodFloor:       {1, 1, roundingType},
	MethodCeiling:     {1, 1, roundingType},
}
