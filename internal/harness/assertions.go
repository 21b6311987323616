package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/odataq/internal/queryerr"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Keys     []string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Keys) > 0 {
		fmt.Fprintf(&buf, "\nPage keys: %s\n", strings.Join(e.Keys, " "))
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against the in-memory page and
// the compiled fragments. Returns one message per failed assertion.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			failures = append(failures, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return failures
}

func evaluate(result *Result, a Assertion) error {
	page := result.Memory
	switch a.Type {
	case AssertKeys:
		want := a.Keys
		if want == nil {
			want = []string{}
		}
		if !slices.Equal(want, page.Keys) {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%q", want),
				Actual:   fmt.Sprintf("%q", page.Keys),
			}
		}
	case AssertCount:
		if page.Count == nil {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprint(*a.Count), Actual: "no inline count", Keys: page.Keys}
		}
		if *page.Count != *a.Count {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprint(*a.Count), Actual: fmt.Sprint(*page.Count), Keys: page.Keys}
		}
	case AssertSkipToken:
		if page.SkipToken != *a.Value {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%q", *a.Value), Actual: fmt.Sprintf("%q", page.SkipToken), Keys: page.Keys}
		}
	case AssertNextLink:
		if page.NextLink != *a.Value {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%q", *a.Value), Actual: fmt.Sprintf("%q", page.NextLink), Keys: page.Keys}
		}
	case AssertSQL:
		return assertSQL(result, a)
	case AssertUnsupported:
		f, ok := result.Compiled[strings.ToLower(a.Dialect)]
		if !ok {
			return &AssertionError{Type: a.Type, Expected: "a filter", Actual: "no filter compiled"}
		}
		if f.Code != string(queryerr.CodeUnsupportedExpression) {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%s fails with %s", a.Dialect, queryerr.CodeUnsupportedExpression),
				Actual:   fmt.Sprintf("compiled to %s", f.SQL),
			}
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

func assertSQL(result *Result, a Assertion) error {
	f, ok := result.Compiled[strings.ToLower(a.Dialect)]
	if !ok {
		return &AssertionError{Type: a.Type, Expected: *a.Value, Actual: "no filter compiled"}
	}
	if f.Code != "" {
		return &AssertionError{Type: a.Type, Expected: *a.Value, Actual: "compilation failed with " + f.Code}
	}
	if f.SQL != *a.Value {
		return &AssertionError{Type: a.Type, Expected: *a.Value, Actual: f.SQL}
	}
	if a.Bindings != nil && !slices.Equal(a.Bindings, f.Bindings) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("bindings %q", a.Bindings),
			Actual:   fmt.Sprintf("bindings %q", f.Bindings),
		}
	}
	return nil
}
