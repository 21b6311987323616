package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/odataq/internal/harness"
)

// ValidationError is one invalid input file.
type ValidationError struct {
	Path    string `json:"path"`
	Kind    string `json:"kind"` // "schema", "request" or "scenario"
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool              `json:"valid"`
	Checked int               `json:"checked"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <path>...",
		Short: "Validate schemas, request files and scenarios",
		Long: `Validate inputs without running them.

A .cue file or a directory is loaded as a CUE schema. A YAML file with
assertions is checked as a harness scenario, any other YAML file as a
request file. Schemas, entity sets, data rows and queries are all
resolved, so a valid file is one the other commands can run.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	result := ValidationResult{Valid: true}
	for _, path := range paths {
		kind, err := validatePath(path)
		formatter.Progress("Validated %s %s", kind, path)
		result.Checked++
		if err == nil {
			continue
		}
		result.Valid = false
		verr := ValidationError{Path: path, Kind: kind}
		verr.Code, verr.Message = errorCode(err)
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			verr.Line = loadErr.Pos.Line()
		}
		result.Errors = append(result.Errors, verr)
	}

	return formatter.Emit(&result)
}

// validatePath validates one input and reports what kind of input it was.
func validatePath(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "unknown", &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("path not found: %s", path)}
	}

	if info.IsDir() || filepath.Ext(path) == ".cue" {
		if info.IsDir() {
			files, err := FindFiles(path, ".cue")
			if err != nil {
				return "schema", &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
			}
			if len(files) == 0 {
				return "schema", &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}
			}
		}
		_, err := LoadSchema(path)
		return "schema", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "unknown", &LoadError{Code: ErrCodeNotFound, Message: err.Error()}
	}
	if isScenario(data) {
		scenario, err := harness.LoadScenario(path)
		if err != nil {
			return "scenario", &LoadError{Code: ErrCodeRequestInvalid, Message: err.Error()}
		}
		if err := harness.Check(scenario); err != nil {
			return "scenario", scenarioError(err)
		}
		return "scenario", nil
	}
	_, err = LoadRequest(path)
	return "request", err
}

// isScenario reports whether a YAML document has scenario assertions.
func isScenario(data []byte) bool {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return false
	}
	_, ok := doc["assertions"]
	return ok
}

func scenarioError(err error) error {
	code := MapQueryErrorCode(err)
	if code == ErrCodeGeneric {
		code = ErrCodeRequestInvalid
	}
	return &LoadError{Code: code, Message: err.Error()}
}
