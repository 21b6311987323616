package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // request ran, compiled or validated
	ExitFailure      = 1 // a scenario, dialect or input did not pass
	ExitCommandError = 2 // the command itself could not run
)

// ExitError carries the process exit code of a failed command. Commands
// that return one have already written their output.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	switch {
	case e.Err == nil:
		return e.Message
	case e.Message == "":
		return e.Err.Error()
	default:
		return e.Message + ": " + e.Err.Error()
	}
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// GetExitCode returns the exit code carried by err, or ExitFailure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// CLIResponse is the JSON envelope of every command.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError is a coded error in a CLIResponse.
type CLIError struct {
	Code    string `json:"code"` // E0xx input errors, E1xx query errors
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// report is a command result. failure returns nil when the command passed.
type report interface {
	writeText(w io.Writer)
	failure() *CLIError
}

// OutputFormatter writes reports and errors as JSON envelopes or text.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // progress notes; keeps JSON on Writer clean
	Verbose   bool
}

// Emit writes r and turns a failed report into an ExitFailure error.
func (f *OutputFormatter) Emit(r report) error {
	failed := r.failure()
	if f.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: r}
		if failed != nil {
			resp.Status = "error"
			resp.Error = failed
		}
		if err := f.encode(resp); err != nil {
			return err
		}
	} else {
		r.writeText(f.Writer)
	}

	if failed != nil {
		return NewExitError(ExitFailure, failed.Message)
	}
	return nil
}

// Fail writes err as a coded error and returns it as a command error.
// Schema errors carry their CUE position as details.
func (f *OutputFormatter) Fail(err error) error {
	code, message := errorCode(err)
	cliErr := &CLIError{Code: code, Message: message}
	var loadErr *LoadError
	if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
		cliErr.Details = map[string]any{
			"file":   loadErr.Pos.Filename(),
			"line":   loadErr.Pos.Line(),
			"column": loadErr.Pos.Column(),
		}
	}

	if f.Format == "json" {
		_ = f.encode(CLIResponse{Status: "error", Error: cliErr})
	} else {
		fmt.Fprintf(f.Writer, "Error [%s]: %s\n", cliErr.Code, cliErr.Message)
		if f.Verbose && cliErr.Details != nil {
			fmt.Fprintf(f.Writer, "Details: %v\n", cliErr.Details)
		}
	}
	return &ExitError{Code: ExitCommandError, Err: err}
}

// Progress writes a note to ErrWriter in verbose mode.
func (f *OutputFormatter) Progress(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func (r *QueryResult) failure() *CLIError { return nil }

func (r *QueryResult) writeText(w io.Writer) {
	fmt.Fprintf(w, "✓ %d entities (%s)\n\n", len(r.Entities), r.Source)
	for i, data := range r.Entities {
		fmt.Fprintf(w, "  %s  %s\n", r.Keys[i], data)
	}
	if len(r.Entities) > 0 {
		fmt.Fprintln(w)
	}
	if r.Count != nil {
		fmt.Fprintf(w, "Count: %d\n", *r.Count)
	}
	if r.SkipToken != "" {
		fmt.Fprintf(w, "Skip token: %s\n", r.SkipToken)
	}
	if r.NextLink != "" {
		fmt.Fprintf(w, "Next link: %s\n", r.NextLink)
	}
}

func (r CompileReport) failure() *CLIError {
	var first *CLIError
	failed := 0
	for _, c := range r {
		if c.Error != nil {
			if first == nil {
				first = c.Error
			}
			failed++
		}
	}
	if first == nil {
		return nil
	}
	return &CLIError{
		Code:    first.Code,
		Message: fmt.Sprintf("%d dialect(s) cannot express the request", failed),
	}
}

func (r CompileReport) writeText(w io.Writer) {
	for _, c := range r {
		if c.Error != nil {
			fmt.Fprintf(w, "✗ %s\n", c.Dialect)
			fmt.Fprintf(w, "  %s: %s\n\n", c.Error.Code, c.Error.Message)
			continue
		}
		fmt.Fprintf(w, "✓ %s\n", c.Dialect)
		if c.Where != "" {
			fmt.Fprintf(w, "  where:    %s\n", c.Where)
		}
		fmt.Fprintf(w, "  select:   %s\n", c.Select)
		if c.Count != "" {
			fmt.Fprintf(w, "  count:    %s\n", c.Count)
		}
		for i, b := range c.Bindings {
			fmt.Fprintf(w, "  ?%d = %s\n", i+1, b)
		}
		fmt.Fprintln(w)
	}
}

func (r *ValidationResult) failure() *CLIError {
	if len(r.Errors) == 0 {
		return nil
	}
	return &CLIError{
		Code:    r.Errors[0].Code,
		Message: fmt.Sprintf("validation failed with %d error(s)", len(r.Errors)),
	}
}

func (r *ValidationResult) writeText(w io.Writer) {
	if len(r.Errors) == 0 {
		fmt.Fprintf(w, "✓ All %d input(s) valid\n", r.Checked)
		return
	}
	fmt.Fprintln(w, "✗ Validation failed")
	fmt.Fprintln(w)
	for _, e := range r.Errors {
		if e.Line > 0 {
			fmt.Fprintf(w, "%s:%d (%s)\n", e.Path, e.Line, e.Kind)
		} else {
			fmt.Fprintf(w, "%s (%s)\n", e.Path, e.Kind)
		}
		fmt.Fprintf(w, "  %s: %s\n\n", e.Code, e.Message)
	}
}

func (r *TestResult) failure() *CLIError {
	if r.Failed == 0 {
		return nil
	}
	return &CLIError{
		Code:    "E_TEST_FAILED",
		Message: fmt.Sprintf("%d scenario(s) failed", r.Failed),
	}
}

func (r *TestResult) writeText(w io.Writer) {
	if r.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return
	}
	for _, s := range r.Scenarios {
		switch {
		case !s.Pass:
			fmt.Fprintf(w, "✗ %s\n", s.Name)
			for _, e := range s.Errors {
				fmt.Fprintf(w, "  %s\n", e)
			}
		case s.GoldenUpdated:
			fmt.Fprintf(w, "✓ %s (golden updated)\n", s.Name)
		default:
			fmt.Fprintf(w, "✓ %s\n", s.Name)
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", r.Passed, r.Failed, r.Total)
	if r.Failed == 0 {
		fmt.Fprintln(w, "✓ All scenarios passed")
	}
}
