package querysql

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/odataq/internal/edm"
	"github.com/roach88/odataq/internal/expr"
)

// SelectQuery describes one entity-set read to push down.
type SelectQuery struct {
	Set     *edm.EntitySet
	Alias   string // empty means DefaultAlias
	Filter  expr.Node
	OrderBy expr.OrderSpec

	// Skip and Top are pushed down as OFFSET and LIMIT in dialects that
	// support them. nil means absent.
	Skip *int
	Top  *int
}

// Statement is a complete parameterized statement.
type Statement struct {
	SQL      string
	Bindings []edm.Value
}

// Args converts the bindings to driver arguments, in placeholder order.
func (s Statement) Args() []any {
	args := make([]any, len(s.Bindings))
	for i, v := range s.Bindings {
		args[i] = edm.ToParam(v)
	}
	return args
}

// Compiler builds full statements for one dialect.
//
// CRITICAL: every SELECT ends its ORDER BY with the entity keys ascending,
// so results are deterministic whatever the user ordering.
type Compiler struct {
	dialect *Dialect
	logger  *slog.Logger
}

// NewCompiler creates a compiler. A nil logger means slog.Default().
func NewCompiler(d *Dialect, logger *slog.Logger) *Compiler {
	return &Compiler{dialect: d, logger: logger}
}

// Dialect returns the compiler's dialect.
func (c *Compiler) Dialect() *Dialect { return c.dialect }

func (c *Compiler) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.Default()
}

// CompileSelect builds
//
//	SELECT <columns> FROM <table> E1 [WHERE <filter>] ORDER BY <keys> [LIMIT ?n OFFSET ?m]
func (c *Compiler) CompileSelect(q SelectQuery) (Statement, error) {
	if q.Set == nil || q.Set.Type == nil {
		return Statement{}, fmt.Errorf("select without an entity set")
	}
	ctx := NewContext(c.dialect, q.Alias)

	where, err := c.where(ctx, q.Filter)
	if err != nil {
		return Statement{}, err
	}
	order, err := c.orderBy(ctx, q)
	if err != nil {
		return Statement{}, err
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(c.columns(ctx.Alias(), q.Set.Type))
	b.WriteString(" FROM ")
	b.WriteString(c.from(q.Set))
	b.WriteString(" ")
	b.WriteString(ctx.Alias())
	b.WriteString(where)
	b.WriteString(" ORDER BY ")
	b.WriteString(order)

	if c.dialect.Limit && (q.Skip != nil || q.Top != nil) {
		limit := int64(-1)
		if q.Top != nil {
			limit = int64(*q.Top)
		}
		var offset int64
		if q.Skip != nil {
			offset = int64(*q.Skip)
		}
		b.WriteString(" LIMIT ")
		b.WriteString(ctx.Bind(edm.NewInt64(limit)))
		b.WriteString(" OFFSET ")
		b.WriteString(ctx.Bind(edm.NewInt64(offset)))
	}

	stmt := Statement{SQL: b.String(), Bindings: ctx.Bindings()}
	c.trace("compiled select", stmt)
	return stmt, nil
}

// CompileCount builds SELECT COUNT(*) over the filtered set, ignoring
// ordering and paging.
func (c *Compiler) CompileCount(q SelectQuery) (Statement, error) {
	if q.Set == nil || q.Set.Type == nil {
		return Statement{}, fmt.Errorf("count without an entity set")
	}
	ctx := NewContext(c.dialect, q.Alias)

	where, err := c.where(ctx, q.Filter)
	if err != nil {
		return Statement{}, err
	}

	count := "COUNT(*)"
	if c.dialect.SelectAlias {
		count = "COUNT(" + ctx.Alias() + ")"
	}
	stmt := Statement{
		SQL:      "SELECT " + count + " FROM " + c.from(q.Set) + " " + ctx.Alias() + where,
		Bindings: ctx.Bindings(),
	}
	c.trace("compiled count", stmt)
	return stmt, nil
}

func (c *Compiler) trace(msg string, stmt Statement) {
	if c.log().Enabled(context.Background(), slog.LevelDebug) {
		c.log().Debug(msg, "dialect", c.dialect.Name, "sql", stmt.SQL, "bindings", len(stmt.Bindings))
	}
}

func (c *Compiler) where(ctx *CompilationContext, filter expr.Node) (string, error) {
	if filter == nil {
		return "", nil
	}
	frag, err := ctx.Compile(filter)
	if err != nil {
		return "", fmt.Errorf("compile filter: %w", err)
	}
	return " WHERE " + frag, nil
}

// orderBy renders the user keys followed by every entity key not already
// ordered on directly.
func (c *Compiler) orderBy(ctx *CompilationContext, q SelectQuery) (string, error) {
	var parts []string
	if len(q.OrderBy) > 0 {
		frag, err := ctx.CompileOrderBy(q.OrderBy)
		if err != nil {
			return "", fmt.Errorf("compile orderby: %w", err)
		}
		parts = append(parts, frag)
	}

	ordered := make(map[*edm.Property]bool)
	for _, item := range q.OrderBy {
		if ref, ok := item.Expr.(*expr.PropertyRef); ok {
			ordered[ref.Property] = true
		}
	}
	for _, k := range q.Set.Type.Keys {
		if ordered[k] {
			continue
		}
		parts = append(parts, c.dialect.Path(ctx.Alias(), []string{k.Storage()})+" ASC")
	}
	return strings.Join(parts, ", "), nil
}

func (c *Compiler) from(set *edm.EntitySet) string {
	if c.dialect.EntityFromType {
		return set.Type.Name
	}
	return set.TableName()
}

// columns lists every primitive column, structural properties flattened, in
// declaration order.
func (c *Compiler) columns(alias string, t *edm.StructuralType) string {
	if c.dialect.SelectAlias {
		return alias
	}
	var cols []string
	for _, path := range ColumnPaths(t) {
		cols = append(cols, c.dialect.Path(alias, path.Segments))
	}
	return strings.Join(cols, ", ")
}

// ColumnPath is one primitive leaf of a structural type: the property chain
// from the root and the storage names along it.
type ColumnPath struct {
	Properties []*edm.Property
	Segments   []string
}

// Leaf returns the primitive property at the end of the path.
func (p ColumnPath) Leaf() *edm.Property { return p.Properties[len(p.Properties)-1] }

// Column returns the flattened column name.
func (p ColumnPath) Column() string { return Column(p.Segments) }

// ColumnPaths flattens t into its primitive leaves in declaration order.
func ColumnPaths(t *edm.StructuralType) []ColumnPath {
	var out []ColumnPath
	var walk func(t *edm.StructuralType, props []*edm.Property, segs []string)
	walk = func(t *edm.StructuralType, props []*edm.Property, segs []string) {
		for _, p := range t.Properties {
			chain := append(append([]*edm.Property{}, props...), p)
			path := append(append([]string{}, segs...), p.Storage())
			if p.IsStructural() {
				walk(p.Structural, chain, path)
				continue
			}
			out = append(out, ColumnPath{Properties: chain, Segments: path})
		}
	}
	walk(t, nil, nil)
	return out
}
