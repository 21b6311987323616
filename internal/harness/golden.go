package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/odataq/internal/edm"
)

// Snapshot is the golden form of a result: the scenario name, the page and
// the compiled filter. The push-down page is left out because a passing
// result guarantees it equals the in-memory page.
func Snapshot(name string, result *Result) ([]byte, error) {
	page := map[string]any{
		"keys":  result.Memory.Keys,
		"etags": result.Memory.ETags,
	}
	if result.Memory.Count != nil {
		page["count"] = *result.Memory.Count
	}
	if result.Memory.SkipToken != "" {
		page["skiptoken"] = result.Memory.SkipToken
	}
	if result.Memory.NextLink != "" {
		page["nextlink"] = result.Memory.NextLink
	}

	compiled := map[string]any{}
	for dialect, f := range result.Compiled {
		entry := map[string]any{}
		if f.Code != "" {
			entry["code"] = f.Code
		} else {
			entry["sql"] = f.SQL
			entry["bindings"] = f.Bindings
		}
		compiled[dialect] = entry
	}

	return edm.MarshalCanonicalJSON(map[string]any{
		"scenario": name,
		"page":     page,
		"compiled": compiled,
	})
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file. The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can also check Pass and Errors.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already computed result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
