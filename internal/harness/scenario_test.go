package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/odataq/internal/expr"
	"github.com/roach88/odataq/internal/testutil"
)

func TestLoadScenario_ResolvesSchemaPath(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "composite_key.yaml"))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("testdata", "schemas", "orders.cue"), s.Schema)
	assert.Equal(t, "last-included", s.TokenMode)
	require.NotNil(t, s.Query.Filter)
}

func TestLoadScenario_MissingSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: s
description: d
schema: nowhere.cue
set: People
assertions: [{type: keys}]
`), 0o644))

	_, err := LoadScenario(path)
	assert.ErrorContains(t, err, "schema not found")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown field", "name: a\ndescription: b\nset: People\nasertions: []\n", "asertions"},
		{"missing name", "description: b\nset: People\nassertions: [{type: keys}]\n", "name is required"},
		{"missing description", "name: a\nset: People\nassertions: [{type: keys}]\n", "description is required"},
		{"missing set", "name: a\ndescription: b\nassertions: [{type: keys}]\n", "set is required"},
		{"no assertions", "name: a\ndescription: b\nset: People\n", "assertions list is required"},
		{"people and data", "name: a\ndescription: b\nset: People\npeople: 2\ndata: [{ID: 1}]\nassertions: [{type: keys}]\n", "mutually exclusive"},
		{"bad token mode", "name: a\ndescription: b\nset: People\ntoken_mode: sideways\nassertions: [{type: keys}]\n", "unknown token mode"},
		{"unknown assertion", "name: a\ndescription: b\nset: People\nassertions: [{type: trace_order}]\n", `unknown assertion type "trace_order"`},
		{"count without count", "name: a\ndescription: b\nset: People\nassertions: [{type: count}]\n", "count is required"},
		{"sql without dialect", "name: a\ndescription: b\nset: People\nassertions: [{type: sql, value: x}]\n", "unknown dialect"},
		{"nextlink without value", "name: a\ndescription: b\nset: People\nassertions: [{type: nextlink}]\n", "value is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func strPtr(s string) *string { return &s }

func TestNodeBuild(t *testing.T) {
	m := testutil.NewPersonModel()

	tests := []struct {
		name string
		node Node
		want string
	}{
		{"property", Node{Prop: "Age"}, "Age"},
		{"member path", Node{Prop: "Address/City"}, "Address/City"},
		{"literal", Node{Lit: strPtr("'O''Neil'")}, "'O''Neil'"},
		{"typed literal", Node{Lit: strPtr("2L")}, "2L"},
		{"binary", Node{Op: "ge", Args: []Node{{Prop: "Age"}, {Lit: strPtr("3")}}}, "(Age ge 3)"},
		{"not", Node{Op: "not", Args: []Node{{Prop: "Active"}}}, "not Active"},
		{"negate", Node{Op: "neg", Args: []Node{{Prop: "Age"}}}, "-Age"},
		{"call", Node{Call: "tolower", Args: []Node{{Prop: "Name"}}}, "tolower(Name)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := tt.node.Build(m.Type)
			require.NoError(t, err)
			assert.Equal(t, tt.want, expr.Format(n))
		})
	}
}

func TestNodeBuild_Errors(t *testing.T) {
	m := testutil.NewPersonModel()

	tests := []struct {
		name string
		node Node
		want string
	}{
		{"empty", Node{}, "exactly one of"},
		{"two kinds", Node{Prop: "Age", Call: "length"}, "exactly one of"},
		{"unknown property", Node{Prop: "Shoe"}, `no property "Shoe"`},
		{"through primitive", Node{Prop: "Name/First"}, "Name is not structural"},
		{"ends structural", Node{Prop: "Address"}, "must end in a primitive"},
		{"bad literal", Node{Lit: strPtr("'open")}, "LITERAL_FORMAT"},
		{"unknown op", Node{Op: "xor", Args: []Node{{Prop: "Active"}, {Prop: "Active"}}}, `unknown operator "xor"`},
		{"binary arity", Node{Op: "eq", Args: []Node{{Prop: "Age"}}}, "takes 2 arguments"},
		{"unary arity", Node{Op: "not"}, "takes 1 argument"},
		{"nested error", Node{Call: "length", Args: []Node{{Prop: "Nope"}}}, "length arg 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.node.Build(m.Type)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestQueryOptions(t *testing.T) {
	m := testutil.NewPersonModel()
	top := 5
	q := Query{
		Filter:  &Node{Op: "eq", Args: []Node{{Prop: "ID"}, {Lit: strPtr("1")}}},
		OrderBy: []OrderKey{{Expr: Node{Prop: "Age"}, Desc: true}, {Expr: Node{Prop: "Name"}}},
		Top:     &top,
	}

	opts, err := q.Options(m.Type)
	require.NoError(t, err)
	assert.Equal(t, "(ID eq 1)", expr.Format(opts.Filter))
	assert.Equal(t, "Age desc,Name", expr.FormatOrder(opts.OrderBy))
	assert.Equal(t, 5, *opts.Top)

	q.OrderBy = []OrderKey{{Expr: Node{Prop: "Nope"}}}
	_, err = q.Options(m.Type)
	assert.ErrorContains(t, err, "orderby[0]")
}
