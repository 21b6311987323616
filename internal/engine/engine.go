package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/odataq/internal/edm"
	"github.com/roach88/odataq/internal/entity"
	"github.com/roach88/odataq/internal/eval"
	"github.com/roach88/odataq/internal/expr"
	"github.com/roach88/odataq/internal/paging"
	"github.com/roach88/odataq/internal/querysql"
	"github.com/roach88/odataq/internal/sorting"
	"github.com/roach88/odataq/internal/store"
)

// Options are the system query options of one request, already parsed.
type Options struct {
	Filter      expr.Node
	OrderBy     expr.OrderSpec
	Skip        *int
	Top         *int
	SkipToken   string
	InlineCount bool

	// URI is the request URI, used to build next links.
	URI string
}

// Source supplies the entities of an entity set for in-memory execution.
type Source interface {
	All(ctx context.Context, set *edm.EntitySet) ([]any, error)
}

// MemorySource serves entities held in memory, keyed by entity set name.
type MemorySource map[string][]any

// All returns the entities of set. Unknown sets are empty.
func (m MemorySource) All(_ context.Context, set *edm.EntitySet) ([]any, error) {
	return m[set.Name], nil
}

// Engine executes requests either in memory (filter, sort and page
// materialized entities) or by push-down (compile to SQL and let the
// store filter, order and page).
//
// Thread-safety: an Engine holds no per-request state and is safe for
// concurrent use as long as its accessor and store are.
type Engine struct {
	accessor edm.Accessor
	store    *store.Store
	pageSize int
	mode     paging.TokenMode
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithPageSize enables server paging with the given page size.
func WithPageSize(n int) Option {
	return func(e *Engine) {
		e.pageSize = n
	}
}

// WithTokenMode selects the continuation token mode.
func WithTokenMode(m paging.TokenMode) Option {
	return func(e *Engine) {
		e.mode = m
	}
}

// WithStore enables push-down execution against s.
func WithStore(s *store.Store) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an engine that reads in-memory entities through acc.
func New(acc edm.Accessor, opts ...Option) *Engine {
	e := &Engine{accessor: acc}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) log() *slog.Logger {
	if e.logger != nil {
		return e.logger
	}
	return slog.Default()
}

func (e *Engine) paginator(t *edm.StructuralType, acc edm.Accessor) *paging.Paginator {
	return &paging.Paginator{
		Type:     t,
		Accessor: acc,
		PageSize: e.pageSize,
		Mode:     e.mode,
		Logger:   e.logger,
	}
}

// Query executes opts in memory: entities from src are filtered with the
// evaluator, put in key order, sorted by $orderby and paged.
func (e *Engine) Query(ctx context.Context, set *edm.EntitySet, src Source, opts Options) (*paging.PageResult, error) {
	all, err := src.All(ctx, set)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", set.Name, err)
	}
	return e.page(set, all, e.accessor, opts, "memory")
}

func (e *Engine) page(set *edm.EntitySet, all []any, acc edm.Accessor, opts Options, path string) (*paging.PageResult, error) {
	matched := all
	if opts.Filter != nil {
		matched = eval.New(acc, e.logger).Filter(opts.Filter, all)
	}

	sorter := sorting.New(acc, e.logger)
	ordered := sorter.SortInDefaultOrder(matched, set.Type.Keys)
	if len(opts.OrderBy) > 0 {
		ordered = sorter.Sort(ordered, opts.OrderBy)
	}

	result, err := e.paginator(set.Type, acc).Paginate(ordered, paging.Request{
		Skip:        opts.Skip,
		Top:         opts.Top,
		SkipToken:   opts.SkipToken,
		OrderBy:     len(opts.OrderBy) > 0,
		InlineCount: opts.InlineCount,
		URI:         opts.URI,
	})
	if err != nil {
		return nil, err
	}

	e.log().Info("query served",
		"set", set.Name,
		"path", path,
		"scanned", len(all),
		"matched", len(matched),
		"returned", len(result.Entities),
	)
	return result, nil
}

// QueryPushDown compiles opts for SQLite and runs them against the store.
// $skip and $top are pushed down unless a skip token must be resolved
// first; $inlinecount then runs as a separate COUNT statement. Entities
// come back as entity.Record values.
func (e *Engine) QueryPushDown(ctx context.Context, set *edm.EntitySet, opts Options) (*paging.PageResult, error) {
	if e.store == nil {
		return nil, fmt.Errorf("push-down requires a store")
	}
	compiler := querysql.NewCompiler(querysql.SQLite, e.logger)

	q := querysql.SelectQuery{Set: set, Filter: opts.Filter, OrderBy: opts.OrderBy}
	pushed := opts.SkipToken == "" && (opts.Skip != nil || opts.Top != nil)
	if pushed {
		q.Skip, q.Top = opts.Skip, opts.Top
	}

	stmt, err := compiler.CompileSelect(q)
	if err != nil {
		return nil, err
	}
	rows, err := e.store.Select(ctx, set, stmt)
	if err != nil {
		return nil, err
	}

	req := paging.Request{
		Skip:           opts.Skip,
		Top:            opts.Top,
		SkipToken:      opts.SkipToken,
		OrderBy:        len(opts.OrderBy) > 0,
		InlineCount:    opts.InlineCount,
		URI:            opts.URI,
		BackendApplied: pushed,
	}
	if opts.InlineCount && pushed {
		countStmt, err := compiler.CompileCount(q)
		if err != nil {
			return nil, err
		}
		n, err := e.store.Count(ctx, countStmt)
		if err != nil {
			return nil, err
		}
		req.Count = &n
	}

	result, err := e.paginator(set.Type, entity.RecordAccessor{}).Paginate(rows, req)
	if err != nil {
		return nil, err
	}

	e.log().Info("query served",
		"set", set.Name,
		"path", "pushdown",
		"fetched", len(rows),
		"returned", len(result.Entities),
	)
	return result, nil
}

// Execute runs opts by push-down when a store is configured and every
// part of the request compiles, and in memory otherwise. Requests that
// cannot be pushed down read the whole set from the store.
func (e *Engine) Execute(ctx context.Context, set *edm.EntitySet, src Source, opts Options) (*paging.PageResult, error) {
	if e.store == nil {
		return e.Query(ctx, set, src, opts)
	}
	if reason := e.unpushable(opts); reason != "" {
		e.log().Debug("falling back to in-memory execution", "set", set.Name, "reason", reason)
		all, err := e.store.All(ctx, set)
		if err != nil {
			return nil, err
		}
		return e.page(set, all, entity.RecordAccessor{}, opts, "memory")
	}
	return e.QueryPushDown(ctx, set, opts)
}

func (e *Engine) unpushable(opts Options) string {
	if opts.Filter != nil {
		v := expr.ValidateFilter(opts.Filter)
		if !v.IsPushable {
			return fmt.Sprintf("filter: %v %v", v.Errors, v.Warnings)
		}
		if _, _, err := querysql.SQLite.Compile(opts.Filter, ""); err != nil {
			return err.Error()
		}
	}
	if len(opts.OrderBy) > 0 {
		if _, _, err := querysql.SQLite.CompileOrderBy(opts.OrderBy, ""); err != nil {
			return err.Error()
		}
	}
	return ""
}
