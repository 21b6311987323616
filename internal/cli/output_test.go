package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/odataq/internal/queryerr"
)

func emit(t *testing.T, format string, r report) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: format, Writer: buf}
	err := f.Emit(r)
	return buf.String(), err
}

func TestEmit_QueryResult(t *testing.T) {
	count := 3
	page := &QueryResult{
		Source:    "memory",
		Keys:      []string{"1", "3"},
		Entities:  []json.RawMessage{json.RawMessage(`{"ID":1}`), json.RawMessage(`{"ID":3}`)},
		Count:     &count,
		SkipToken: "5",
		NextLink:  "/Products?$skiptoken=5",
	}

	out, err := emit(t, "json", page)
	require.NoError(t, err)
	resp, got := decode[QueryResult](t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)
	assert.Equal(t, page.Keys, got.Keys)
	assert.Equal(t, 3, *got.Count)
	assert.Equal(t, "5", got.SkipToken)

	out, err = emit(t, "text", page)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ 2 entities (memory)")
	assert.Contains(t, out, `  3  {"ID":3}`)
	assert.Contains(t, out, "Count: 3")
	assert.Contains(t, out, "Next link: /Products?$skiptoken=5")
}

func TestEmit_CompileReport(t *testing.T) {
	sqlite := CompiledQuery{Dialect: "sqlite", Where: "(E1.id = ?1)", Select: "SELECT E1.id FROM t E1", Bindings: []string{"1"}}
	jpql := CompiledQuery{Dialect: "jpql", Error: &CLIError{Code: ErrCodeUnsupported, Message: "jpql has no REPLACE"}}

	tests := []struct {
		name     string
		report   CompileReport
		wantCode int
		status   string
	}{
		{"all compile", CompileReport{sqlite}, ExitSuccess, "ok"},
		{"one dialect fails", CompileReport{jpql, sqlite}, ExitFailure, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := emit(t, "json", tt.report)
			if tt.wantCode == ExitSuccess {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, GetExitCode(err))
			}

			resp, got := decode[[]CompiledQuery](t, out)
			assert.Equal(t, tt.status, resp.Status)
			assert.Len(t, got, len(tt.report))
			if resp.Error != nil {
				assert.Equal(t, ErrCodeUnsupported, resp.Error.Code)
				assert.Equal(t, "1 dialect(s) cannot express the request", resp.Error.Message)
			}
		})
	}

	out, _ := emit(t, "text", CompileReport{jpql, sqlite})
	assert.Contains(t, out, "✗ jpql\n  E103: jpql has no REPLACE")
	assert.Contains(t, out, "✓ sqlite")
	assert.Contains(t, out, "  where:    (E1.id = ?1)")
	assert.Contains(t, out, "  ?1 = 1")
}

func TestEmit_ValidationResult(t *testing.T) {
	out, err := emit(t, "text", &ValidationResult{Valid: true, Checked: 2})
	require.NoError(t, err)
	assert.Equal(t, "✓ All 2 input(s) valid\n", out)

	invalid := &ValidationResult{
		Checked: 2,
		Errors: []ValidationError{
			{Path: "catalog.cue", Kind: "schema", Code: ErrCodeSchemaInvalid, Message: "unknown type", Line: 4},
			{Path: "cheap.yaml", Kind: "request", Code: ErrCodeLiteralFormat, Message: "bad guid"},
		},
	}
	out, err = emit(t, "text", invalid)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "catalog.cue:4 (schema)\n  E006: unknown type")
	assert.Contains(t, out, "cheap.yaml (request)\n  E101: bad guid")

	out, _ = emit(t, "json", invalid)
	resp, _ := decode[ValidationResult](t, out)
	assert.Equal(t, ErrCodeSchemaInvalid, resp.Error.Code, "the first error names the envelope code")
	assert.Equal(t, "validation failed with 2 error(s)", resp.Error.Message)
}

func TestEmit_TestResult(t *testing.T) {
	result := &TestResult{
		Scenarios: []ScenarioResult{
			{Name: "server_paging", Pass: true},
			{Name: "null_ordering", Pass: true, GoldenUpdated: true},
			{Name: "wrong_keys", Errors: []string{"keys: got [1], want [2]"}},
		},
		Passed: 2,
		Failed: 1,
		Total:  3,
	}

	out, err := emit(t, "text", result)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✓ server_paging\n")
	assert.Contains(t, out, "✓ null_ordering (golden updated)")
	assert.Contains(t, out, "✗ wrong_keys\n  keys: got [1], want [2]")
	assert.Contains(t, out, "Test Summary: 2 passed, 1 failed, 3 total")
	assert.NotContains(t, out, "All scenarios passed")

	out, err = emit(t, "text", &TestResult{Scenarios: []ScenarioResult{}})
	require.NoError(t, err)
	assert.Equal(t, "No scenarios found.\n", out)
}

func TestOutputFormatter_Fail(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	err := formatter.Fail(queryerr.Unsupported("replace", "no jpql equivalent"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.True(t, queryerr.IsUnsupported(err), "the cause stays in the chain")

	resp, _ := decode[any](t, buf.String())
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeUnsupported, resp.Error.Code)

	buf.Reset()
	formatter.Format = "text"
	_ = formatter.Fail(queryerr.LiteralFormat("guid'nope'", "Guid", nil))
	assert.Contains(t, buf.String(), "Error [E101]:")
}

func TestOutputFormatter_FailWithSchemaPosition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.cue")
	require.NoError(t, os.WriteFile(path, []byte("entitySets: S: type: \"Missing\"\n"), 0644))
	_, loadErr := LoadSchema(path)
	require.Error(t, loadErr)

	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}
	_ = formatter.Fail(loadErr)

	resp, _ := decode[any](t, buf.String())
	assert.Equal(t, ErrCodeSchemaInvalid, resp.Error.Code)
	details, ok := resp.Error.Details.(map[string]any)
	require.True(t, ok, "details carry the CUE position")
	assert.EqualValues(t, 1, details["line"])

	buf.Reset()
	_, missing := LoadSchema(filepath.Join(t.TempDir(), "missing.cue"))
	_ = formatter.Fail(missing)
	resp, _ = decode[any](t, buf.String())
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Nil(t, resp.Error.Details)
}

func TestOutputFormatter_Progress(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut}

	formatter.Progress("Loaded %d entities", 5)
	assert.Empty(t, errOut.String())

	formatter.Verbose = true
	formatter.Progress("Loaded %d entities", 5)
	assert.Equal(t, "Loaded 5 entities\n", errOut.String())
	assert.Empty(t, out.String(), "JSON output stays clean")
}

func TestExitError(t *testing.T) {
	cause := errors.New("disk full")
	err := &ExitError{Code: ExitCommandError, Message: "writing golden file", Err: cause}

	assert.Equal(t, "writing golden file: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, ExitFailure, GetExitCode(cause))
	assert.Equal(t, "disk full", (&ExitError{Err: cause}).Error())
	assert.Equal(t, "no scenarios", NewExitError(ExitFailure, "no scenarios").Error())
}
