package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productColumns = "E1.id, E1.name, E1.price, E1.category, E1.stock"

func TestCompileCommand_SQLite(t *testing.T) {
	out, err := execute(t, "--format", "json", "compile", request("cheap"))
	require.NoError(t, err)

	_, results := decode[[]CompiledQuery](t, out)
	require.Len(t, results, 1)
	r := results[0]

	assert.Equal(t, "sqlite", r.Dialect)
	assert.Equal(t, "(E1.price < ?1)", r.Where)
	assert.Equal(t, "SELECT "+productColumns+" FROM products E1 WHERE (E1.price < ?1) ORDER BY E1.price DESC, E1.id ASC", r.Select)
	assert.Equal(t, "SELECT COUNT(*) FROM products E1 WHERE (E1.price < ?1)", r.Count)
	assert.Equal(t, []string{"30M"}, r.Bindings)
	assert.Nil(t, r.Error)
}

func TestCompileCommand_DialectAndAlias(t *testing.T) {
	out, err := execute(t, "--dialect", "jpql", "--alias", "p", "--format", "json", "compile", request("cheap"))
	require.NoError(t, err)

	_, results := decode[[]CompiledQuery](t, out)
	require.Len(t, results, 1)
	assert.Equal(t, "jpql", results[0].Dialect)
	assert.Equal(t, "SELECT p FROM Product p WHERE (p.price < ?1) ORDER BY p.price DESC, p.id ASC", results[0].Select)
	assert.Equal(t, "SELECT COUNT(p) FROM Product p WHERE (p.price < ?1)", results[0].Count)
}

func TestCompileCommand_Text(t *testing.T) {
	out, err := execute(t, "compile", request("cheap"))
	require.NoError(t, err)

	assert.Contains(t, out, "✓ sqlite")
	assert.Contains(t, out, "where:    (E1.price < ?1)")
	assert.Contains(t, out, "?1 = 30M")
}

func TestCompileCommand_UnsupportedInDialect(t *testing.T) {
	out, err := execute(t, "--dialect", "jpql", "--format", "json", "compile", request("replace"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp, _ := decode[any](t, out)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeUnsupported, resp.Error.Code)
}

func TestCompileCommand_All(t *testing.T) {
	out, err := execute(t, "--format", "json", "compile", "--all", request("replace"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err), "one dialect cannot express the request")

	_, results := decode[[]CompiledQuery](t, out)
	require.Len(t, results, 2)

	assert.Equal(t, "jpql", results[0].Dialect)
	require.NotNil(t, results[0].Error)
	assert.Equal(t, ErrCodeUnsupported, results[0].Error.Code)

	assert.Equal(t, "sqlite", results[1].Dialect)
	assert.Nil(t, results[1].Error)
	assert.Equal(t, "(REPLACE(E1.name, ?1, ?2) = ?3)", results[1].Where)
	assert.Equal(t, []string{"'a'", "'o'", "'Lomp'"}, results[1].Bindings)

	out, err = execute(t, "--format", "json", "compile", "--all", request("cheap"))
	require.NoError(t, err)
	_, results = decode[[]CompiledQuery](t, out)
	assert.Len(t, results, 2)
}

func TestCompileCommand_NoFilter(t *testing.T) {
	out, err := execute(t, "--format", "json", "compile", request("products"))
	require.NoError(t, err)

	_, results := decode[[]CompiledQuery](t, out)
	require.Len(t, results, 1)
	assert.Empty(t, results[0].Where)
	assert.Equal(t, "SELECT "+productColumns+" FROM products E1 ORDER BY E1.id ASC", results[0].Select)
	assert.Empty(t, results[0].Bindings)
}

func TestCompileCommand_LoadErrors(t *testing.T) {
	out, err := execute(t, "--format", "json", "compile", request("bad_literal"))
	require.Error(t, err)

	resp, _ := decode[any](t, out)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeLiteralFormat, resp.Error.Code)
}
