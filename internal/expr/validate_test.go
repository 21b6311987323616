package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/odataq/internal/edm"
	"github.com/roach88/odataq/internal/testutil"
)

func str(s string) *Literal { return Lit(edm.NewString(s)) }

func i32(n int32) *Literal { return Lit(edm.NewInt32(n)) }

func TestValidate_PushableFilter(t *testing.T) {
	m := testutil.NewPersonModel()
	// (Age gt 30) and startswith(Name,'A')
	filter := And(
		Bin(OpGt, Prop(m.Age), i32(30)),
		Call(MethodStartsWith, Prop(m.Name), str("A")),
	)

	result := ValidateFilter(filter)

	assert.True(t, result.IsValid)
	assert.True(t, result.IsPushable)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
}

func TestValidate_MemberPath(t *testing.T) {
	m := testutil.NewPersonModel()

	result := ValidateFilter(Eq(Path(m.AddressProp, m.City), str("Oslo")))
	assert.True(t, result.IsValid, "errors: %v", result.Errors)

	result = ValidateFilter(Eq(Path(m.AddressProp, m.Name), str("Oslo")))
	assert.False(t, result.IsValid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `no property "Name"`)
}

func TestValidate_StructuralMisuse(t *testing.T) {
	m := testutil.NewPersonModel()

	result := Validate(Prop(m.AddressProp))
	assert.False(t, result.IsValid)
	assert.Contains(t, result.Errors[0], "structural")

	result = Validate(&Member{Path: Prop(m.Name), Inner: Prop(m.City)})
	assert.False(t, result.IsValid)
	assert.Contains(t, result.Errors[0], "primitive")
}

func TestValidate_FilterMustBeBoolean(t *testing.T) {
	m := testutil.NewPersonModel()

	result := ValidateFilter(Prop(m.Name))
	assert.False(t, result.IsValid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Edm.Boolean")

	assert.True(t, Validate(Prop(m.Name)).IsValid, "a bare property is a valid expression")
}

func TestValidate_TypeErrors(t *testing.T) {
	m := testutil.NewPersonModel()

	tests := []struct {
		name     string
		node     Node
		contains string
	}{
		{"compare string with int", Eq(Prop(m.Name), i32(5)), "cannot compare"},
		{"and with int", Bin(OpAnd, Prop(m.Active), i32(1)), "requires Edm.Boolean"},
		{"add string", Bin(OpGt, Bin(OpAdd, Prop(m.Name), i32(1)), i32(0)), "requires numeric"},
		{"not int", Not(Prop(m.Age)), "not requires"},
		{"negate string", Eq(Neg(Prop(m.Name)), str("x")), "negation requires"},
		{"unknown method", Call("soundex", Prop(m.Name)), `unknown method "soundex"`},
		{"arity", Call(MethodLength), "expects 1..1 arguments"},
		{"nil operand", Bin(OpAnd, nil, Lit(edm.NewBoolean(true))), "nil node"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.node)
			assert.False(t, result.IsValid)
			assert.False(t, result.IsPushable, "invalid trees are never pushable")
			require.NotEmpty(t, result.Errors)
			assert.Contains(t, result.Errors[0], tt.contains)
		})
	}
}

func TestValidate_NumericWidening(t *testing.T) {
	m := testutil.NewPersonModel()
	d, err := edm.ParseURILiteral("1000.5M")
	require.NoError(t, err)

	result := ValidateFilter(Bin(OpGe, Prop(m.Age), Lit(d)))
	assert.True(t, result.IsValid)

	result = ValidateFilter(Eq(Prop(m.Email), Lit(edm.Null(edm.TypeUnknown))))
	assert.True(t, result.IsValid, "untyped null compares with anything")
	assert.Empty(t, result.Warnings)
}

func TestValidate_OrderingAgainstNullWarns(t *testing.T) {
	m := testutil.NewPersonModel()

	result := ValidateFilter(Bin(OpLt, Prop(m.Age), Lit(edm.Null(edm.TypeUnknown))))

	assert.True(t, result.IsValid)
	assert.True(t, result.IsPushable)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "never matches")
}

func TestValidate_NonLiteralPatternIsNotPushable(t *testing.T) {
	m := testutil.NewPersonModel()

	tests := []struct {
		name string
		node Node
	}{
		{"property pattern", Call(MethodStartsWith, Prop(m.Name), Prop(m.Email))},
		{"computed pattern", Call(MethodEndsWith, Prop(m.Name), Call(MethodToLower, str("X")))},
		{"substringof pattern first", Call(MethodSubstringOf, Prop(m.Email), str("Alice"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateFilter(tt.node)
			assert.True(t, result.IsValid)
			assert.False(t, result.IsPushable)
			require.Len(t, result.Warnings, 1)
			assert.Contains(t, result.Warnings[0], "cannot be pushed down")
		})
	}

	result := ValidateFilter(Call(MethodSubstringOf, str("li"), Prop(m.Name)))
	assert.True(t, result.IsPushable, "substringof takes the pattern first")
}

func TestValidateOrder(t *testing.T) {
	m := testutil.NewPersonModel()

	result := ValidateOrder(OrderSpec{
		{Expr: Prop(m.Age), Direction: Desc},
		{Expr: Path(m.AddressProp, m.City)},
	})
	assert.True(t, result.IsValid)

	result = ValidateOrder(OrderSpec{{Expr: Lit(edm.Null(edm.TypeUnknown))}})
	assert.False(t, result.IsValid)
	assert.Contains(t, result.Errors[0], "orderby key 0")

	result = ValidateOrder(OrderSpec{{Expr: Call("soundex", Prop(m.Name))}})
	assert.False(t, result.IsValid)
}
