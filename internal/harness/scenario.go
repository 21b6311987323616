package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/odataq/internal/edm"
	"github.com/roach88/odataq/internal/engine"
	"github.com/roach88/odataq/internal/expr"
	"github.com/roach88/odataq/internal/paging"
	"github.com/roach88/odataq/internal/querysql"
)

// Scenario defines a query conformance scenario: an entity set, its data,
// one request and the assertions its page must satisfy.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is a CUE schema file or directory, relative to the scenario
	// file. Empty means the built-in People model.
	Schema string `yaml:"schema,omitempty"`

	// Set is the entity set to query.
	Set string `yaml:"set"`

	// People generates that many rows of the People fixture. Mutually
	// exclusive with Data.
	People int `yaml:"people,omitempty"`

	// Data lists the entities, property name to value. Values are converted
	// by property type: strings use the canonical literal form, nested maps
	// fill complex properties.
	Data []map[string]any `yaml:"data,omitempty"`

	// PageSize enables server paging.
	PageSize int `yaml:"page_size,omitempty"`

	// TokenMode is first-excluded (default) or last-included.
	TokenMode string `yaml:"token_mode,omitempty"`

	// Query is the request.
	Query Query `yaml:"query"`

	// MemoryOnly skips the push-down path, for requests that do not compile
	// for SQLite.
	MemoryOnly bool `yaml:"memory_only,omitempty"`

	// Assertions validate the page and the compiled filter.
	Assertions []Assertion `yaml:"assertions"`
}

// Query holds the system query options of a scenario request.
type Query struct {
	Filter      *Node      `yaml:"filter,omitempty"`
	OrderBy     []OrderKey `yaml:"orderby,omitempty"`
	Skip        *int       `yaml:"skip,omitempty"`
	Top         *int       `yaml:"top,omitempty"`
	SkipToken   string     `yaml:"skiptoken,omitempty"`
	InlineCount bool       `yaml:"inlinecount,omitempty"`
	URI         string     `yaml:"uri,omitempty"`
}

// OrderKey is one $orderby key.
type OrderKey struct {
	Expr Node `yaml:"expr"`
	Desc bool `yaml:"desc,omitempty"`
}

// Node is the YAML form of an expression tree. Exactly one of Prop, Lit,
// Op and Call is set:
//
//	{prop: Address/City}
//	{lit: "datetime'2000-01-01T00:00'"}
//	{op: gt, args: [{prop: Age}, {lit: "30"}]}
//	{op: not, args: [...]}
//	{call: startswith, args: [{prop: Name}, {lit: "'A'"}]}
//
// Literals use the OData URI literal grammar.
type Node struct {
	Prop string  `yaml:"prop,omitempty"`
	Lit  *string `yaml:"lit,omitempty"`
	Op   string  `yaml:"op,omitempty"`
	Call string  `yaml:"call,omitempty"`
	Args []Node  `yaml:"args,omitempty"`
}

// Build resolves n against t.
func (n *Node) Build(t *edm.StructuralType) (expr.Node, error) {
	set := 0
	for _, present := range []bool{n.Prop != "", n.Lit != nil, n.Op != "", n.Call != ""} {
		if present {
			set++
		}
	}
	if set != 1 {
		return nil, fmt.Errorf("node must set exactly one of prop, lit, op, call")
	}

	switch {
	case n.Prop != "":
		return buildPath(t, n.Prop)
	case n.Lit != nil:
		v, err := edm.ParseURILiteral(*n.Lit)
		if err != nil {
			return nil, err
		}
		return expr.Lit(v), nil
	}

	args := make([]expr.Node, len(n.Args))
	for i := range n.Args {
		a, err := n.Args[i].Build(t)
		if err != nil {
			return nil, fmt.Errorf("%s%s arg %d: %w", n.Op, n.Call, i, err)
		}
		args[i] = a
	}

	if n.Call != "" {
		return expr.Call(n.Call, args...), nil
	}
	switch n.Op {
	case "not", "neg":
		if len(args) != 1 {
			return nil, fmt.Errorf("%s takes 1 argument, got %d", n.Op, len(args))
		}
		if n.Op == "not" {
			return expr.Not(args[0]), nil
		}
		return expr.Neg(args[0]), nil
	}
	op, ok := expr.ParseBinaryOp(n.Op)
	if !ok {
		return nil, fmt.Errorf("unknown operator %q", n.Op)
	}
	if len(args) != 2 {
		return nil, fmt.Errorf("%s takes 2 arguments, got %d", n.Op, len(args))
	}
	return expr.Bin(op, args[0], args[1]), nil
}

// buildPath resolves "A/B/C" through complex properties.
func buildPath(t *edm.StructuralType, path string) (expr.Node, error) {
	var props []*edm.Property
	current := t
	for i, name := range strings.Split(path, "/") {
		if current == nil {
			return nil, fmt.Errorf("path %s: %s is not structural", path, props[i-1].Name)
		}
		p := current.Property(name)
		if p == nil {
			return nil, fmt.Errorf("path %s: type %s has no property %q", path, current.Name, name)
		}
		props = append(props, p)
		current = p.Structural
	}
	if props[len(props)-1].IsStructural() {
		return nil, fmt.Errorf("path %s: must end in a primitive property", path)
	}
	return expr.Path(props...), nil
}

// Options converts q into engine options for entity type t.
func (q *Query) Options(t *edm.StructuralType) (engine.Options, error) {
	opts := engine.Options{
		Skip:        q.Skip,
		Top:         q.Top,
		SkipToken:   q.SkipToken,
		InlineCount: q.InlineCount,
		URI:         q.URI,
	}
	if q.Filter != nil {
		f, err := q.Filter.Build(t)
		if err != nil {
			return engine.Options{}, fmt.Errorf("filter: %w", err)
		}
		opts.Filter = f
	}
	for i, key := range q.OrderBy {
		n, err := key.Expr.Build(t)
		if err != nil {
			return engine.Options{}, fmt.Errorf("orderby[%d]: %w", i, err)
		}
		item := expr.OrderItem{Expr: n}
		if key.Desc {
			item.Direction = expr.Desc
		}
		opts.OrderBy = append(opts.OrderBy, item)
	}
	return opts, nil
}

// Assertion type constants.
const (
	AssertKeys        = "keys"
	AssertCount       = "count"
	AssertSkipToken   = "skiptoken"
	AssertNextLink    = "nextlink"
	AssertSQL         = "sql"
	AssertUnsupported = "unsupported"
)

// Assertion validates the page or the compiled filter.
type Assertion struct {
	// Type selects the check:
	// - "keys": the page holds exactly Keys (entity cursors) in order
	// - "count": the inline count equals Count
	// - "skiptoken": the continuation token equals Value ("" for none)
	// - "nextlink": the next link equals Value ("" for none)
	// - "sql": the filter compiles for Dialect to Value with Bindings
	// - "unsupported": the filter does not compile for Dialect
	Type string `yaml:"type"`

	Keys     []string `yaml:"keys,omitempty"`
	Count    *int     `yaml:"count,omitempty"`
	Value    *string  `yaml:"value,omitempty"`
	Dialect  string   `yaml:"dialect,omitempty"`
	Bindings []string `yaml:"bindings,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. A relative schema
// path is resolved against the scenario file's directory.
//
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	if s.Schema != "" && !filepath.IsAbs(s.Schema) {
		s.Schema = filepath.Join(filepath.Dir(path), s.Schema)
	}
	if s.Schema != "" {
		if _, err := os.Stat(s.Schema); err != nil {
			return nil, fmt.Errorf("invalid scenario: schema not found: %s", s.Schema)
		}
	}
	return s, nil
}

// ParseScenario parses scenario YAML with strict field checking.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Set == "" {
		return fmt.Errorf("set is required")
	}
	if s.People > 0 && len(s.Data) > 0 {
		return fmt.Errorf("people and data are mutually exclusive")
	}
	if s.People < 0 {
		return fmt.Errorf("people must be non-negative")
	}
	if s.PageSize < 0 {
		return fmt.Errorf("page_size must be non-negative")
	}
	if _, err := paging.ParseTokenMode(s.TokenMode); err != nil {
		return err
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertKeys:
	case AssertCount:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for count", index)
		}
	case AssertSkipToken, AssertNextLink:
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for %s", index, a.Type)
		}
	case AssertSQL, AssertUnsupported:
		if _, err := querysql.DialectByName(a.Dialect); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		if a.Type == AssertSQL && a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for sql", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
