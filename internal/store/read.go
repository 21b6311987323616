package store

import (
	"context"
	"fmt"

	"github.com/roach88/odataq/internal/edm"
	"github.com/roach88/odataq/internal/entity"
	"github.com/roach88/odataq/internal/querysql"
)

// Select runs a statement built by querysql.Compiler.CompileSelect for the
// SQLite dialect and maps each row back to an entity.Record of edm.Values.
// Complex properties whose columns are all NULL are left out of the record.
//
// Returns an empty slice (not nil) if no rows match.
func (s *Store) Select(ctx context.Context, set *edm.EntitySet, stmt querysql.Statement) ([]any, error) {
	s.log().Debug("select", "sql", stmt.SQL, "bindings", len(stmt.Bindings))

	rows, err := s.db.QueryContext(ctx, stmt.SQL, stmt.Args()...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", set.TableName(), err)
	}
	defer rows.Close()

	paths := querysql.ColumnPaths(set.Type)
	out := []any{}
	for rows.Next() {
		raw := make([]any, len(paths))
		dest := make([]any, len(paths))
		for i := range raw {
			dest[i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", set.TableName(), err)
		}
		rec, err := toRecord(paths, raw)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", set.TableName(), err)
		}
		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", set.TableName(), err)
	}
	return out, nil
}

// Count runs a statement built by CompileCount.
func (s *Store) Count(ctx context.Context, stmt querysql.Statement) (int, error) {
	s.log().Debug("count", "sql", stmt.SQL, "bindings", len(stmt.Bindings))

	var n int
	if err := s.db.QueryRowContext(ctx, stmt.SQL, stmt.Args()...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// All returns every row of set in key order.
func (s *Store) All(ctx context.Context, set *edm.EntitySet) ([]any, error) {
	stmt, err := querysql.NewCompiler(querysql.SQLite, s.logger).CompileSelect(querysql.SelectQuery{Set: set})
	if err != nil {
		return nil, err
	}
	return s.Select(ctx, set, stmt)
}

func toRecord(paths []querysql.ColumnPath, raw []any) (entity.Record, error) {
	rec := entity.Record{}
	for i, p := range paths {
		if raw[i] == nil {
			continue
		}
		v, err := edm.FromParam(p.Leaf().Type, raw[i])
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", p.Column(), err)
		}

		target := rec
		for _, prop := range p.Properties[:len(p.Properties)-1] {
			nested, ok := target[prop.Name].(entity.Record)
			if !ok {
				nested = entity.Record{}
				target[prop.Name] = nested
			}
			target = nested
		}
		target[p.Leaf().Name] = v
	}
	return rec, nil
}
