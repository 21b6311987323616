package eval

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/apd/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/odataq/internal/edm"
	"github.com/roach88/odataq/internal/expr"
	"github.com/roach88/odataq/internal/queryerr"
)

// roundingContext rounds half away from zero, like math.Round.
var roundingContext = func() apd.Context {
	c := apd.BaseContext.WithPrecision(34)
	c.Rounding = apd.RoundHalfUp
	return *c
}()

// Date part offsets into the canonical text of DateTime and DateTimeOffset
// values ("2006-01-02T15:04:05...") and of Time values ("15:04:05...").
var (
	dateParts = map[string][2]int{
		expr.MethodYear:   {0, 4},
		expr.MethodMonth:  {5, 7},
		expr.MethodDay:    {8, 10},
		expr.MethodHour:   {11, 13},
		expr.MethodMinute: {14, 16},
		expr.MethodSecond: {17, 19},
	}
	clockParts = map[string][2]int{
		expr.MethodHour:   {0, 2},
		expr.MethodMinute: {3, 5},
		expr.MethodSecond: {6, 8},
	}
)

func (e *Evaluator) method(m *expr.Method, entity any) (edm.Value, error) {
	sig, ok := expr.Methods[m.Name]
	if !ok {
		return edm.Value{}, queryerr.NotImplemented("method " + m.Name)
	}
	if len(m.Args) < sig.MinArgs || len(m.Args) > sig.MaxArgs {
		return edm.Value{}, queryerr.Evaluation("%s expects %d..%d arguments, got %d", m.Name, sig.MinArgs, sig.MaxArgs, len(m.Args))
	}

	args := make([]edm.Value, len(m.Args))
	for i, arg := range m.Args {
		v, err := e.Evaluate(arg, entity)
		if err != nil {
			return edm.Value{}, err
		}
		if v.IsNull() {
			return edm.Null(m.Type()), nil
		}
		args[i] = v
	}

	switch m.Name {
	case expr.MethodEndsWith:
		return edm.NewBoolean(strings.HasSuffix(text(args[0]), text(args[1]))), nil
	case expr.MethodStartsWith:
		return edm.NewBoolean(strings.HasPrefix(text(args[0]), text(args[1]))), nil
	case expr.MethodSubstringOf:
		return edm.NewBoolean(strings.Contains(text(args[1]), text(args[0]))), nil
	case expr.MethodToLower:
		return edm.NewString(cases.Lower(language.Und).String(text(args[0]))), nil
	case expr.MethodToUpper:
		return edm.NewString(cases.Upper(language.Und).String(text(args[0]))), nil
	case expr.MethodTrim:
		return edm.NewString(strings.TrimSpace(text(args[0]))), nil
	case expr.MethodConcat:
		return edm.NewString(text(args[0]) + text(args[1])), nil
	case expr.MethodLength:
		return edm.NewInt32(int32(utf8.RuneCountInString(text(args[0])))), nil
	case expr.MethodIndexOf:
		return indexOf(text(args[0]), text(args[1])), nil
	case expr.MethodReplace:
		return edm.NewString(strings.ReplaceAll(text(args[0]), text(args[1]), text(args[2]))), nil
	case expr.MethodSubstring:
		return substring(args)
	case expr.MethodYear, expr.MethodMonth, expr.MethodDay,
		expr.MethodHour, expr.MethodMinute, expr.MethodSecond:
		return datePart(m.Name, args[0])
	case expr.MethodRound, expr.MethodFloor, expr.MethodCeiling:
		return rounding(m.Name, args[0])
	}
	return edm.Value{}, queryerr.NotImplemented("method " + m.Name)
}

// text is the textual form string functions operate on.
func text(v edm.Value) string {
	if s, err := v.AsString(); err == nil {
		return s
	}
	return edm.CanonicalString(v)
}

// indexOf returns the rune index of the first occurrence, or -1.
func indexOf(s, sub string) edm.Value {
	i := strings.Index(s, sub)
	if i < 0 {
		return edm.NewInt32(-1)
	}
	return edm.NewInt32(int32(utf8.RuneCountInString(s[:i])))
}

// substring is rune indexed and zero based. A start past the end yields
// the empty string; a length past the end is clamped.
func substring(args []edm.Value) (edm.Value, error) {
	runes := []rune(text(args[0]))
	start, err := args[1].AsInt64()
	if err != nil {
		return edm.Value{}, err
	}
	if start < 0 {
		return edm.Value{}, queryerr.Evaluation("substring start %d is negative", start)
	}
	if start > int64(len(runes)) {
		start = int64(len(runes))
	}
	end := int64(len(runes))
	if len(args) == 3 {
		n, err := args[2].AsInt64()
		if err != nil {
			return edm.Value{}, err
		}
		if n < 0 {
			return edm.Value{}, queryerr.Evaluation("substring length %d is negative", n)
		}
		if n < end-start {
			end = start + n
		}
	}
	return edm.NewString(string(runes[start:end])), nil
}

// datePart extracts a component from fixed offsets of the canonical text.
func datePart(name string, v edm.Value) (edm.Value, error) {
	offsets, ok := dateParts[name]
	switch v.Type() {
	case edm.TypeTime:
		offsets, ok = clockParts[name]
	case edm.TypeDateTime, edm.TypeDateTimeOffset, edm.TypeString:
	default:
		ok = false
	}
	if !ok {
		return edm.Value{}, queryerr.Evaluation("%s is not defined for %s", name, v.Type())
	}

	s := edm.CanonicalString(v)
	if len(s) < offsets[1] {
		return edm.Value{}, queryerr.Evaluation("%s: %q is too short", name, s)
	}
	n, err := strconv.Atoi(s[offsets[0]:offsets[1]])
	if err != nil {
		return edm.Value{}, queryerr.Evaluation("%s: %q has no numeric part at %d", name, s, offsets[0])
	}
	return edm.NewInt32(int32(n)), nil
}

// rounding applies round, floor or ceiling. Decimals stay exact; every
// other numeric is computed as Double.
func rounding(name string, v edm.Value) (edm.Value, error) {
	if v.Type() == edm.TypeDecimal {
		d, err := v.AsDecimal()
		if err != nil {
			return edm.Value{}, err
		}
		r := new(apd.Decimal)
		switch name {
		case expr.MethodRound:
			_, err = roundingContext.RoundToIntegralValue(r, d)
		case expr.MethodFloor:
			_, err = roundingContext.Floor(r, d)
		default:
			_, err = roundingContext.Ceil(r, d)
		}
		if err != nil {
			return edm.Value{}, queryerr.Evaluation("%s: %v", name, err)
		}
		return edm.NewDecimal(r), nil
	}

	f, err := v.AsFloat64()
	if err != nil {
		return edm.Value{}, err
	}
	switch name {
	case expr.MethodRound:
		f = math.Round(f)
	case expr.MethodFloor:
		f = math.Floor(f)
	default:
		f = math.Ceil(f)
	}
	return edm.NewDouble(f), nil
}
