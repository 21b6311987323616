package querysql

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/roach88/odataq/internal/edm"
	"github.com/roach88/odataq/internal/expr"
)

// DefaultAlias is the range variable used when a query names none.
const DefaultAlias = "E1"

// renderFunc renders a method call from its compiled arguments. args holds
// the argument fragments; types holds their static types.
type renderFunc func(args []string, types []edm.SimpleType) (string, error)

// Dialect describes how a backend spells paths, operators and functions.
// Dialects are read-only after construction and safe to share.
type Dialect struct {
	// Name identifies the dialect in configuration and logs.
	Name string

	// PathSeparator joins storage names below the alias. JPQL navigates
	// embedded objects with "."; SQLite stores complex properties as
	// flattened columns joined with "_".
	PathSeparator string

	// EntityFromType selects the entity type name (JPQL) instead of the
	// table name (SQL) in FROM clauses.
	EntityFromType bool

	// SelectAlias selects the range variable itself (JPQL "SELECT E1")
	// instead of an explicit column list.
	SelectAlias bool

	// Limit emits LIMIT/OFFSET for pushed-down $skip and $top.
	Limit bool

	// RealDivision casts the dividend to REAL so integer operands divide
	// exactly, matching the evaluator.
	RealDivision bool

	// Mod renders the modulo operator.
	Mod func(l, r string) string

	// IntegerMod restricts modulo to integral operands. Real operands are
	// reported unsupported instead of being truncated.
	IntegerMod bool

	functions map[string]renderFunc
}

// function returns the renderer for an OData method, if the dialect has one.
func (d *Dialect) function(name string) (renderFunc, bool) {
	f, ok := d.functions[name]
	return f, ok
}

// Supports reports whether the dialect can compile the named method.
func (d *Dialect) Supports(method string) bool {
	if expr.IsPattern(method) {
		return true
	}
	_, ok := d.functions[method]
	return ok
}

// Path joins storage names into a qualified path.
func (d *Dialect) Path(alias string, segments []string) string {
	return alias + "." + strings.Join(segments, d.PathSeparator)
}

// Column is the flattened column name of a storage path, as created by
// internal/store.
func Column(segments []string) string {
	return strings.Join(segments, "_")
}

// call renders NAME(a, b, ...).
func call(name string) renderFunc {
	return func(args []string, _ []edm.SimpleType) (string, error) {
		return name + "(" + strings.Join(args, ", ") + ")", nil
	}
}

// substringFunc shifts the zero-based OData start to the one-based SQL start.
func substringFunc(name string) renderFunc {
	return func(args []string, _ []edm.SimpleType) (string, error) {
		parts := []string{args[0], args[1] + " + 1"}
		parts = append(parts, args[2:]...)
		return name + "(" + strings.Join(parts, ", ") + ")", nil
	}
}

// JPQL is the fragment style of JPA query strings. Date parts and rounding
// use the JPA 3.1 EXTRACT, ROUND, FLOOR and CEILING functions.
var JPQL = &Dialect{
	Name:           "jpql",
	PathSeparator:  ".",
	EntityFromType: true,
	SelectAlias:    true,
	Mod:            func(l, r string) string { return "MOD(" + l + ", " + r + ")" },
	IntegerMod:     true,
	functions: map[string]renderFunc{
		expr.MethodToLower:   call("LOWER"),
		expr.MethodToUpper:   call("UPPER"),
		expr.MethodTrim:      call("TRIM"),
		expr.MethodSubstring: substringFunc("SUBSTRING"),
		expr.MethodConcat:    call("CONCAT"),
		expr.MethodLength:    call("LENGTH"),
		expr.MethodIndexOf: func(args []string, _ []edm.SimpleType) (string, error) {
			return "(LOCATE(" + args[1] + ", " + args[0] + ") - 1)", nil
		},
		expr.MethodYear:   extract("YEAR"),
		expr.MethodMonth:  extract("MONTH"),
		expr.MethodDay:    extract("DAY"),
		expr.MethodHour:   extract("HOUR"),
		expr.MethodMinute: extract("MINUTE"),
		expr.MethodSecond: extract("SECOND"),
		expr.MethodRound: func(args []string, _ []edm.SimpleType) (string, error) {
			return "ROUND(" + args[0] + ", 0)", nil
		},
		expr.MethodFloor:   call("FLOOR"),
		expr.MethodCeiling: call("CEILING"),
	},
}

func extract(field string) renderFunc {
	return func(args []string, _ []edm.SimpleType) (string, error) {
		return "EXTRACT(" + field + " FROM " + args[0] + ")", nil
	}
}

// SQLite compiles to statements executable against internal/store, where
// temporal values are stored as canonical text.
var SQLite = &Dialect{
	Name:          "sqlite",
	PathSeparator: "_",
	Limit:         true,
	RealDivision:  true,
	Mod:           func(l, r string) string { return "(" + l + " % " + r + ")" },
	IntegerMod:    true,
	// LOWER and UPPER fold ASCII only, so tolower and toupper are left to
	// the evaluator.
	functions: map[string]renderFunc{
		expr.MethodTrim: func(args []string, _ []edm.SimpleType) (string, error) {
			return "TRIM(" + args[0] + ", " + whiteSpace + ")", nil
		},
		expr.MethodSubstring: substringFunc("SUBSTR"),
		expr.MethodConcat: func(args []string, _ []edm.SimpleType) (string, error) {
			return "(" + args[0] + " || " + args[1] + ")", nil
		},
		expr.MethodLength: call("LENGTH"),
		expr.MethodIndexOf: func(args []string, _ []edm.SimpleType) (string, error) {
			return "(INSTR(" + args[0] + ", " + args[1] + ") - 1)", nil
		},
		expr.MethodReplace: call("REPLACE"),
		expr.MethodYear:    textPart(expr.MethodYear),
		expr.MethodMonth:   textPart(expr.MethodMonth),
		expr.MethodDay:     textPart(expr.MethodDay),
		expr.MethodHour:    textPart(expr.MethodHour),
		expr.MethodMinute:  textPart(expr.MethodMinute),
		expr.MethodSecond:  textPart(expr.MethodSecond),
		expr.MethodRound:   call("ROUND"),
		expr.MethodFloor: func(args []string, _ []edm.SimpleType) (string, error) {
			x := args[0]
			return "(CASE WHEN " + x + " < CAST(" + x + " AS INTEGER) THEN CAST(" + x + " AS INTEGER) - 1 ELSE CAST(" + x + " AS INTEGER) END)", nil
		},
		expr.MethodCeiling: func(args []string, _ []edm.SimpleType) (string, error) {
			x := args[0]
			return "(CASE WHEN " + x + " > CAST(" + x + " AS INTEGER) THEN CAST(" + x + " AS INTEGER) + 1 ELSE CAST(" + x + " AS INTEGER) END)", nil
		},
	},
}

// whiteSpace is a SQLite char() call producing every code point that
// unicode.IsSpace accepts, so TRIM strips what the evaluator strips.
var whiteSpace = func() string {
	var points []string
	for _, r := range unicode.White_Space.R16 {
		for c := uint32(r.Lo); c <= uint32(r.Hi); c += uint32(r.Stride) {
			points = append(points, strconv.Itoa(int(c)))
		}
	}
	for _, r := range unicode.White_Space.R32 {
		for c := r.Lo; c <= r.Hi; c += r.Stride {
			points = append(points, strconv.Itoa(int(c)))
		}
	}
	return "char(" + strings.Join(points, ", ") + ")"
}()

// Offsets of date parts in canonical text, one-based for SUBSTR.
var (
	dateTextParts = map[string][2]int{
		expr.MethodYear:   {1, 4},
		expr.MethodMonth:  {6, 2},
		expr.MethodDay:    {9, 2},
		expr.MethodHour:   {12, 2},
		expr.MethodMinute: {15, 2},
		expr.MethodSecond: {18, 2},
	}
	clockTextParts = map[string][2]int{
		expr.MethodHour:   {1, 2},
		expr.MethodMinute: {4, 2},
		expr.MethodSecond: {7, 2},
	}
)

// textPart reads a date part from canonical text, so offsets are kept
// rather than converted to UTC the way STRFTIME would.
func textPart(name string) renderFunc {
	return func(args []string, types []edm.SimpleType) (string, error) {
		parts := dateTextParts
		switch types[0] {
		case edm.TypeTime:
			parts = clockTextParts
		case edm.TypeDateTime, edm.TypeDateTimeOffset, edm.TypeString, edm.TypeUnknown:
		default:
			return "", fmt.Errorf("%s is not defined for %s", name, types[0])
		}
		p, ok := parts[name]
		if !ok {
			return "", fmt.Errorf("%s is not defined for %s", name, types[0])
		}
		return fmt.Sprintf("CAST(SUBSTR(%s, %d, %d) AS INTEGER)", args[0], p[0], p[1]), nil
	}
}

// Dialects lists the built-in dialects by name.
var Dialects = map[string]*Dialect{
	JPQL.Name:   JPQL,
	SQLite.Name: SQLite,
}

// DialectByName resolves a configured dialect name.
func DialectByName(name string) (*Dialect, error) {
	d, ok := Dialects[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown dialect %q (want jpql or sqlite)", name)
	}
	return d, nil
}
