package eval

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/odataq/internal/edm"
	"github.com/roach88/odataq/internal/expr"
	"github.com/roach88/odataq/internal/queryerr"
	"github.com/roach88/odataq/internal/testutil"
)

func TestMethods(t *testing.T) {
	ev := newEvaluator()

	tests := []struct {
		name      string
		call      *expr.Method
		typ       edm.SimpleType
		canonical string
	}{
		{"endswith", expr.Call("endswith", lit(t, "'Hello'"), lit(t, "'lo'")), edm.TypeBoolean, "true"},
		{"startswith", expr.Call("startswith", lit(t, "'Hello'"), lit(t, "'He'")), edm.TypeBoolean, "true"},
		{"startswith miss", expr.Call("startswith", lit(t, "'Hello'"), lit(t, "'he'")), edm.TypeBoolean, "false"},
		{"substringof", expr.Call("substringof", lit(t, "'ell'"), lit(t, "'Hello'")), edm.TypeBoolean, "true"},
		{"tolower", expr.Call("tolower", lit(t, "'ÀBC'")), edm.TypeString, "àbc"},
		{"toupper", expr.Call("toupper", lit(t, "'abc'")), edm.TypeString, "ABC"},
		{"trim", expr.Call("trim", lit(t, "'  x '")), edm.TypeString, "x"},
		{"concat", expr.Call("concat", lit(t, "'a'"), lit(t, "'b'")), edm.TypeString, "ab"},
		{"concat number", expr.Call("concat", lit(t, "'n'"), lit(t, "5")), edm.TypeString, "n5"},
		{"length runes", expr.Call("length", lit(t, "'héllo'")), edm.TypeInt32, "5"},
		{"indexof", expr.Call("indexof", lit(t, "'héllo'"), lit(t, "'l'")), edm.TypeInt32, "2"},
		{"indexof miss", expr.Call("indexof", lit(t, "'x'"), lit(t, "'z'")), edm.TypeInt32, "-1"},
		{"replace", expr.Call("replace", lit(t, "'a-b-c'"), lit(t, "'-'"), lit(t, "'+'")), edm.TypeString, "a+b+c"},
		{"substring from", expr.Call("substring", lit(t, "'Hello'"), lit(t, "1")), edm.TypeString, "ello"},
		{"substring len", expr.Call("substring", lit(t, "'Hello'"), lit(t, "1"), lit(t, "2")), edm.TypeString, "el"},
		{"substring runes", expr.Call("substring", lit(t, "'héllo'"), lit(t, "1"), lit(t, "1")), edm.TypeString, "é"},
		{"substring past end", expr.Call("substring", lit(t, "'Hello'"), lit(t, "10")), edm.TypeString, ""},
		{"substring clamps length", expr.Call("substring", lit(t, "'Hello'"), lit(t, "3"), lit(t, "10")), edm.TypeString, "lo"},
		{"substring max length", expr.Call("substring", lit(t, "'Hello'"), lit(t, "1"), expr.Lit(edm.NewInt64(math.MaxInt64))), edm.TypeString, "ello"},
		{"year", expr.Call("year", lit(t, "datetime'2024-03-01T10:20:30'")), edm.TypeInt32, "2024"},
		{"month", expr.Call("month", lit(t, "datetime'2024-03-01T10:20:30'")), edm.TypeInt32, "3"},
		{"day", expr.Call("day", lit(t, "datetime'2024-03-01T10:20:30'")), edm.TypeInt32, "1"},
		{"hour", expr.Call("hour", lit(t, "datetime'2024-03-01T10:20:30'")), edm.TypeInt32, "10"},
		{"minute", expr.Call("minute", lit(t, "datetime'2024-03-01T10:20:30'")), edm.TypeInt32, "20"},
		{"second", expr.Call("second", lit(t, "datetime'2024-03-01T10:20:30'")), edm.TypeInt32, "30"},
		{"hour keeps offset", expr.Call("hour", lit(t, "datetimeoffset'2024-03-01T10:00:00+02:00'")), edm.TypeInt32, "10"},
		{"hour of time", expr.Call("hour", lit(t, "time'13:20:05'")), edm.TypeInt32, "13"},
		{"second of time", expr.Call("second", lit(t, "time'13:20:05'")), edm.TypeInt32, "5"},
		{"round double", expr.Call("round", lit(t, "2.5d")), edm.TypeDouble, "3"},
		{"round decimal", expr.Call("round", lit(t, "2.5M")), edm.TypeDecimal, "3"},
		{"round integral", expr.Call("round", lit(t, "2")), edm.TypeDouble, "2"},
		{"floor decimal", expr.Call("floor", lit(t, "-1.5M")), edm.TypeDecimal, "-2"},
		{"floor double", expr.Call("floor", lit(t, "1.7d")), edm.TypeDouble, "1"},
		{"ceiling double", expr.Call("ceiling", lit(t, "1.2d")), edm.TypeDouble, "2"},
		{"ceiling decimal", expr.Call("ceiling", lit(t, "1.2M")), edm.TypeDecimal, "2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ev.Evaluate(tt.call, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.typ, got.Type())
			assert.Equal(t, tt.typ, tt.call.Type(), "static type matches the runtime type")
			assert.Equal(t, tt.canonical, edm.CanonicalString(got))
		})
	}
}

func TestMethodNullArgumentYieldsTypedNull(t *testing.T) {
	m := testutil.NewPersonModel()
	ev := newEvaluator()
	rec := testutil.Person(1, "Alice", 35)

	v, err := ev.Evaluate(expr.Call("length", expr.Prop(m.Email)), rec)
	require.NoError(t, err)
	assert.True(t, v.IsNull())
	assert.Equal(t, edm.TypeInt32, v.Type())

	v, err = ev.Evaluate(expr.Call("startswith", expr.Prop(m.Email), lit(t, "'p'")), rec)
	require.NoError(t, err)
	assert.True(t, v.IsNull())
	assert.False(t, ev.EvaluateAsPredicate(expr.Call("startswith", expr.Prop(m.Email), lit(t, "'p'")), rec))
}

func TestMethodErrors(t *testing.T) {
	ev := newEvaluator()

	tests := []struct {
		name string
		call *expr.Method
	}{
		{"negative start", expr.Call("substring", lit(t, "'Hello'"), lit(t, "-1"))},
		{"negative length", expr.Call("substring", lit(t, "'Hello'"), lit(t, "0"), lit(t, "-1"))},
		{"year of time", expr.Call("year", lit(t, "time'13:20:00'"))},
		{"year of number", expr.Call("year", lit(t, "5"))},
		{"round string", expr.Call("round", lit(t, "'x'"))},
		{"arity", expr.Call("length")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ev.Evaluate(tt.call, nil)
			require.Error(t, err)
			assert.True(t, queryerr.IsEvaluation(err), "got %v", err)
		})
	}
}
