package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"reflect"
	"slices"

	"github.com/roach88/odataq/internal/edm"
	"github.com/roach88/odataq/internal/engine"
	"github.com/roach88/odataq/internal/entity"
	"github.com/roach88/odataq/internal/paging"
	"github.com/roach88/odataq/internal/queryerr"
	"github.com/roach88/odataq/internal/querysql"
	"github.com/roach88/odataq/internal/schema"
	"github.com/roach88/odataq/internal/store"
	"github.com/roach88/odataq/internal/testutil"
)

// Harness runs scenarios. The zero value discards logs.
type Harness struct {
	logger *slog.Logger
}

// New creates a harness logging to logger; nil discards logs.
func New(logger *slog.Logger) *Harness {
	return &Harness{logger: logger}
}

func (h *Harness) log() *slog.Logger {
	if h.logger != nil {
		return h.logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Run executes a scenario with a log-discarding harness.
func Run(scenario *Scenario) (*Result, error) {
	return New(nil).Run(context.Background(), scenario)
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Resolve the schema and entity set, convert the data
// 2. Compile the filter for every dialect
// 3. Serve the request in memory
// 4. Unless memory-only, load the data into SQLite and serve it by push-down
// 5. Require both pages to agree, then evaluate assertions
//
// An error return means the scenario could not be executed; failed
// expectations are reported in the result.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	p, err := prepare(scenario)
	if err != nil {
		return nil, err
	}
	set, entities, opts, mode := p.set, p.entities, p.opts, p.mode

	logger := h.log()
	eng := engine.New(entity.RecordAccessor{},
		engine.WithPageSize(scenario.PageSize),
		engine.WithTokenMode(mode),
		engine.WithLogger(logger),
	)

	result := NewResult()
	if opts.Filter != nil {
		for _, name := range slices.Sorted(maps.Keys(querysql.Dialects)) {
			result.Compiled[name] = compileFragment(querysql.Dialects[name], opts)
		}
	}

	memory, err := eng.Query(ctx, set, engine.MemorySource{set.Name: entities}, opts)
	if err != nil {
		return nil, fmt.Errorf("in-memory query: %w", err)
	}
	if result.Memory, err = snapshot(set, memory); err != nil {
		return nil, err
	}

	if !scenario.MemoryOnly {
		pushed, err := h.pushDown(ctx, set, entities, scenario, mode, logger, opts)
		if err != nil {
			return nil, err
		}
		result.PushDown = pushed
		if !reflect.DeepEqual(result.Memory, result.PushDown) {
			result.AddError(fmt.Sprintf("paths disagree:\n  memory:   %+v\n  pushdown: %+v", *result.Memory, *result.PushDown))
		}
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	logger.Info("scenario executed", "name", scenario.Name, "pass", result.Pass)
	return result, nil
}

// prepared is a scenario resolved against its schema.
type prepared struct {
	set      *edm.EntitySet
	entities []any
	opts     engine.Options
	mode     paging.TokenMode
}

func prepare(scenario *Scenario) (*prepared, error) {
	set, err := loadSet(scenario)
	if err != nil {
		return nil, err
	}
	entities, err := loadEntities(scenario, set.Type)
	if err != nil {
		return nil, err
	}
	opts, err := scenario.Query.Options(set.Type)
	if err != nil {
		return nil, err
	}
	mode, err := paging.ParseTokenMode(scenario.TokenMode)
	if err != nil {
		return nil, err
	}
	return &prepared{set: set, entities: entities, opts: opts, mode: mode}, nil
}

// Check resolves a scenario without running it: the schema and entity set
// exist, every data row converts and the query builds against the type.
func Check(scenario *Scenario) error {
	_, err := prepare(scenario)
	return err
}

func (h *Harness) pushDown(ctx context.Context, set *edm.EntitySet, entities []any, scenario *Scenario, mode paging.TokenMode, logger *slog.Logger, opts engine.Options) (*Page, error) {
	st, err := store.Open(":memory:", logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	if err := st.CreateTable(ctx, set); err != nil {
		return nil, err
	}
	if err := st.Insert(ctx, set, entity.RecordAccessor{}, entities); err != nil {
		return nil, err
	}

	eng := engine.New(entity.RecordAccessor{},
		engine.WithStore(st),
		engine.WithPageSize(scenario.PageSize),
		engine.WithTokenMode(mode),
		engine.WithLogger(logger),
	)
	page, err := eng.QueryPushDown(ctx, set, opts)
	if err != nil {
		return nil, fmt.Errorf("push-down query: %w", err)
	}
	return snapshot(set, page)
}

func compileFragment(d *querysql.Dialect, opts engine.Options) Fragment {
	sql, bindings, err := d.Compile(opts.Filter, "")
	if err != nil {
		return Fragment{Code: string(queryerr.CodeOf(err))}
	}
	f := Fragment{SQL: sql, Bindings: make([]string, len(bindings))}
	for i, b := range bindings {
		f.Bindings[i] = edm.URILiteral(b)
	}
	return f
}

func snapshot(set *edm.EntitySet, page *paging.PageResult) (*Page, error) {
	p := &Page{
		Keys:      make([]string, len(page.Entities)),
		Count:     page.Count,
		SkipToken: page.SkipToken,
		NextLink:  page.NextLink,
		ETags:     len(page.ETags),
	}
	for i, e := range page.Entities {
		key, err := entity.KeyString(entity.RecordAccessor{}, e, set.Type.Keys)
		if err != nil {
			return nil, err
		}
		p.Keys[i] = key
	}
	return p, nil
}

func loadSet(scenario *Scenario) (*edm.EntitySet, error) {
	var s *edm.Schema
	if scenario.Schema == "" {
		s = testutil.NewPersonModel().Schema()
	} else {
		loaded, err := schema.Load(scenario.Schema)
		if err != nil {
			return nil, err
		}
		s = loaded
	}
	set := s.EntitySet(scenario.Set)
	if set == nil {
		return nil, fmt.Errorf("schema has no entity set %q", scenario.Set)
	}
	return set, nil
}

func loadEntities(scenario *Scenario, t *edm.StructuralType) ([]any, error) {
	if scenario.People > 0 {
		return testutil.People(scenario.People), nil
	}
	out := make([]any, len(scenario.Data))
	for i, row := range scenario.Data {
		rec, err := ToRecord(t, row)
		if err != nil {
			return nil, fmt.Errorf("data[%d]: %w", i, err)
		}
		out[i] = rec
	}
	return out, nil
}

// ToRecord converts decoded YAML or JSON into a record of edm.Values typed
// by t. Unknown properties are an error; null values are dropped.
func ToRecord(t *edm.StructuralType, row map[string]any) (entity.Record, error) {
	rec := entity.Record{}
	for name, raw := range row {
		p := t.Property(name)
		if p == nil {
			return nil, fmt.Errorf("type %s has no property %q", t.Name, name)
		}
		if raw == nil {
			continue
		}
		if p.IsStructural() {
			nested, ok := raw.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("property %s: expected a mapping, got %T", name, raw)
			}
			r, err := ToRecord(p.Structural, nested)
			if err != nil {
				return nil, fmt.Errorf("property %s: %w", name, err)
			}
			rec[name] = r
			continue
		}
		v, err := edm.FromNative(p.Type, raw)
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", name, err)
		}
		rec[name] = v
	}
	return rec, nil
}
