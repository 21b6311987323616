package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/odataq/internal/edm"
	"github.com/roach88/odataq/internal/engine"
	"github.com/roach88/odataq/internal/harness"
	"github.com/roach88/odataq/internal/queryerr"
	"github.com/roach88/odataq/internal/schema"
)

// Request is a request file: the schema and entity set to query, the
// entities to serve in memory and the query options. It uses the same
// query and data notation as harness scenarios.
type Request struct {
	// Schema is a CUE schema file or directory, relative to the request file.
	Schema string `yaml:"schema"`

	// Set is the entity set to query.
	Set string `yaml:"set"`

	// Data lists the entities served by the in-memory path and loaded into
	// the database by the push-down path.
	Data []map[string]any `yaml:"data,omitempty"`

	Query harness.Query `yaml:"query"`
}

// LoadedRequest is a request resolved against its schema.
type LoadedRequest struct {
	Set      *edm.EntitySet
	Entities []any
	Options  engine.Options
}

// LoadError represents an error that occurred while loading a schema or
// request file.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadSchema loads a CUE schema file or directory.
func LoadSchema(path string) (*edm.Schema, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema not found: %s", path)}
	}
	s, err := schema.Load(path)
	if err != nil {
		var schemaErr *schema.Error
		if errors.As(err, &schemaErr) {
			return nil, &LoadError{Code: ErrCodeSchemaInvalid, Message: schemaErr.Message, Pos: schemaErr.Pos}
		}
		return nil, &LoadError{Code: ErrCodeSchemaInvalid, Message: err.Error()}
	}
	return s, nil
}

// LoadRequest reads a request file and resolves it: the schema loads, the
// entity set exists, every data row converts and the query builds.
func LoadRequest(path string) (*LoadedRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("request file not found: %s", path)}
	}
	req, err := ParseRequest(data)
	if err != nil {
		return nil, err
	}
	if !filepath.IsAbs(req.Schema) {
		req.Schema = filepath.Join(filepath.Dir(path), req.Schema)
	}
	return req.Resolve()
}

// ParseRequest parses request YAML with strict field checking.
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&req); err != nil {
		return nil, &LoadError{Code: ErrCodeRequestInvalid, Message: fmt.Sprintf("failed to parse YAML: %v", err)}
	}
	if req.Schema == "" {
		return nil, &LoadError{Code: ErrCodeRequestInvalid, Message: "schema is required"}
	}
	if req.Set == "" {
		return nil, &LoadError{Code: ErrCodeRequestInvalid, Message: "set is required"}
	}
	return &req, nil
}

// Resolve loads the request's schema and builds its entities and options.
func (r *Request) Resolve() (*LoadedRequest, error) {
	s, err := LoadSchema(r.Schema)
	if err != nil {
		return nil, err
	}
	set := s.EntitySet(r.Set)
	if set == nil {
		return nil, &LoadError{Code: ErrCodeRequestInvalid, Message: fmt.Sprintf("schema has no entity set %q", r.Set)}
	}

	entities := make([]any, len(r.Data))
	for i, row := range r.Data {
		rec, err := harness.ToRecord(set.Type, row)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeRequestInvalid, Message: fmt.Sprintf("data[%d]: %v", i, err)}
		}
		entities[i] = rec
	}

	opts, err := r.Query.Options(set.Type)
	if err != nil {
		code := MapQueryErrorCode(err)
		if code == ErrCodeGeneric {
			code = ErrCodeRequestInvalid
		}
		return nil, &LoadError{Code: code, Message: err.Error()}
	}
	return &LoadedRequest{Set: set, Entities: entities, Options: opts}, nil
}

// FindFiles walks dir and returns the paths with one of the extensions.
func FindFiles(dir string, exts ...string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		for _, ext := range exts {
			if filepath.Ext(path) == ext {
				files = append(files, path)
				break
			}
		}
		return nil
	})
	return files, err
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric        = "E001" // Generic/unknown error
	ErrCodeScanError      = "E002" // Directory scan error
	ErrCodeNoFiles        = "E003" // No input files found
	ErrCodeRequestInvalid = "E004" // Malformed request or scenario
	ErrCodeNotFound       = "E005" // Path not found
	ErrCodeSchemaInvalid  = "E006" // CUE schema failed to load
	ErrCodeWriteFailed    = "E007" // File write error
	ErrCodeConfigInvalid  = "E008" // Configuration failed to load

	// Query errors
	ErrCodeLiteralFormat  = "E101" // Malformed literal
	ErrCodeNotImplemented = "E102" // Expression the evaluator does not implement
	ErrCodeUnsupported    = "E103" // Expression the dialect cannot express
	ErrCodeEvaluation     = "E104" // Runtime evaluation failure
	ErrCodePagination     = "E105" // Malformed or stale skip token
)

// MapQueryErrorCode maps a query error to an error code.
func MapQueryErrorCode(err error) string {
	switch queryerr.CodeOf(err) {
	case queryerr.CodeLiteralFormat:
		return ErrCodeLiteralFormat
	case queryerr.CodeNotImplemented:
		return ErrCodeNotImplemented
	case queryerr.CodeUnsupportedExpression:
		return ErrCodeUnsupported
	case queryerr.CodeEvaluation:
		return ErrCodeEvaluation
	case queryerr.CodePaginationState:
		return ErrCodePagination
	default:
		return ErrCodeGeneric
	}
}

// errorCode returns the code carried by a LoadError, or the mapped query
// error code.
func errorCode(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	return MapQueryErrorCode(err), err.Error()
}
