package store

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/odataq/internal/edm"
	"github.com/roach88/odataq/internal/querysql"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// maxDecimalPrecision is the number of significant digits SQLite keeps
// when NUMERIC affinity turns decimal text into a REAL.
const maxDecimalPrecision = 15

// affinity returns the SQLite column type of a simple type.
func affinity(t edm.SimpleType) string {
	switch {
	case t == edm.TypeBoolean || t.IsIntegral():
		return "INTEGER"
	case t.IsFloating():
		return "REAL"
	case t == edm.TypeDecimal:
		return "NUMERIC"
	case t == edm.TypeBinary:
		return "BLOB"
	default:
		return "TEXT"
	}
}

// CreateTable creates the table of an entity set if it does not exist.
// Table and column names must be plain identifiers.
func (s *Store) CreateTable(ctx context.Context, set *edm.EntitySet) error {
	ddl, err := createTableSQL(set)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", set.TableName(), err)
	}
	return nil
}

func createTableSQL(set *edm.EntitySet) (string, error) {
	table := set.TableName()
	if !identifier.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}

	var cols []string
	for _, path := range querysql.ColumnPaths(set.Type) {
		name := path.Column()
		if !identifier.MatchString(name) {
			return "", fmt.Errorf("invalid column name %q", name)
		}
		leaf := path.Leaf()
		if leaf.Type == edm.TypeDecimal && (leaf.Facets.Precision == 0 || leaf.Facets.Precision > maxDecimalPrecision) {
			return "", fmt.Errorf("column %s: Decimal needs a precision between 1 and %d, got %d", name, maxDecimalPrecision, leaf.Facets.Precision)
		}
		col := name + " " + affinity(leaf.Type)
		if len(path.Properties) == 1 && !leaf.Facets.Nullable {
			col += " NOT NULL"
		}
		cols = append(cols, col)
	}

	keys := make([]string, len(set.Type.Keys))
	for i, k := range set.Type.Keys {
		keys[i] = k.Storage()
	}
	cols = append(cols, "PRIMARY KEY ("+strings.Join(keys, ", ")+")")

	return "CREATE TABLE IF NOT EXISTS " + table + " (\n\t" + strings.Join(cols, ",\n\t") + "\n)", nil
}

// Insert writes entities into the table of set in one transaction, reading
// them through acc. A null complex property stores NULL in all its
// columns. Decimal values must fit their column's facets, so nothing is
// rounded on the way in. Uses ON CONFLICT DO NOTHING for idempotency - rows with an
// existing key are silently ignored.
func (s *Store) Insert(ctx context.Context, set *edm.EntitySet, acc edm.Accessor, entities []any) error {
	paths := querysql.ColumnPaths(set.Type)
	cols := make([]string, len(paths))
	marks := make([]string, len(paths))
	for i, p := range paths {
		cols[i] = p.Column()
		marks[i] = "?"
	}
	insert := "INSERT INTO " + set.TableName() +
		" (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(marks, ", ") + ") ON CONFLICT DO NOTHING"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert into %s: %w", set.TableName(), err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("insert into %s: %w", set.TableName(), err)
	}
	defer stmt.Close()

	for n, e := range entities {
		args := make([]any, len(paths))
		for i, p := range paths {
			v, err := read(acc, e, p)
			if err != nil {
				return fmt.Errorf("insert into %s: entity %d: %w", set.TableName(), n, err)
			}
			if v.Type() == edm.TypeDecimal && !v.IsNull() {
				if err := edm.CheckFacets(v, p.Leaf().Facets); err != nil {
					return fmt.Errorf("insert into %s: entity %d: %s: %w", set.TableName(), n, p.Column(), err)
				}
			}
			args[i] = edm.ToParam(v)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert into %s: entity %d: %w", set.TableName(), n, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert into %s: %w", set.TableName(), err)
	}
	s.log().Debug("rows inserted", "table", set.TableName(), "rows", len(entities))
	return nil
}

// read follows a column path through acc. A nil structural value yields a
// typed null for the leaf.
func read(acc edm.Accessor, e any, p querysql.ColumnPath) (edm.Value, error) {
	cur := e
	for _, prop := range p.Properties[:len(p.Properties)-1] {
		next, err := acc.Navigate(cur, prop)
		if err != nil {
			return edm.Value{}, err
		}
		if next == nil {
			return edm.Null(p.Leaf().Type), nil
		}
		cur = next
	}
	return acc.Get(cur, p.Leaf())
}
