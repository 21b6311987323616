// Package sorting orders entity collections by $orderby specifications and
// by entity key.
package sorting

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/odataq/internal/edm"
	"github.com/roach88/odataq/internal/entity"
	"github.com/roach88/odataq/internal/eval"
	"github.com/roach88/odataq/internal/expr"
	"github.com/roach88/odataq/internal/queryerr"
)

// Sorter sorts materialized entity collections in memory.
type Sorter struct {
	accessor  edm.Accessor
	evaluator *eval.Evaluator
	logger    *slog.Logger
}

// New creates a sorter reading entities through acc. A nil logger means
// slog.Default().
func New(acc edm.Accessor, logger *slog.Logger) *Sorter {
	return &Sorter{accessor: acc, evaluator: eval.New(acc, logger), logger: logger}
}

func (s *Sorter) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

// decorated pairs an entity with its order values. ok[i] is false when key
// i failed to evaluate; such keys compare equal to anything.
type decorated struct {
	entity any
	values []edm.Value
	ok     []bool
}

// Sort returns a stably sorted copy of entities. Each entity's order
// values are evaluated once. The first differing key decides; desc
// reverses it, so nulls come first ascending and last descending.
// Evaluation and comparison errors count as equal for that key.
func (s *Sorter) Sort(entities []any, spec expr.OrderSpec) []any {
	out := slices.Clone(entities)
	if len(spec) == 0 || len(out) < 2 {
		return out
	}

	entries := make([]decorated, len(out))
	for i, e := range out {
		entries[i] = s.decorate(e, spec)
	}

	slices.SortStableFunc(entries, func(a, b decorated) int {
		for k, item := range spec {
			if !a.ok[k] || !b.ok[k] {
				continue
			}
			c, err := edm.Compare(a.values[k], b.values[k])
			if err != nil || c == 0 {
				continue
			}
			if item.Direction == expr.Desc {
				return -c
			}
			return c
		}
		return 0
	})

	for i, entry := range entries {
		out[i] = entry.entity
	}
	return out
}

func (s *Sorter) decorate(e any, spec expr.OrderSpec) decorated {
	d := decorated{entity: e, values: make([]edm.Value, len(spec)), ok: make([]bool, len(spec))}
	for k, item := range spec {
		v, err := s.key(item.Expr, e)
		if err != nil {
			if s.log().Enabled(context.Background(), slog.LevelDebug) {
				s.log().Debug("order key error absorbed",
					"key", expr.Format(item.Expr),
					"code", queryerr.CodeOf(err),
					"error", err,
				)
			}
			continue
		}
		d.values[k] = v
		d.ok[k] = true
	}
	return d
}

// key evaluates one order expression. A panicking accessor or method is
// reported as an evaluation error so it ties like any other failure.
func (s *Sorter) key(n expr.Node, e any) (v edm.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log().Warn("order key panic absorbed", "key", expr.Format(n), "panic", r)
			v, err = edm.Value{}, queryerr.Evaluation("order key panicked: %v", r)
		}
	}()
	return s.evaluator.Evaluate(n, e)
}

// SortInDefaultOrder returns a copy of entities ordered by their key tuple,
// each key compared by type. Keys that cannot be compared fall back to the
// key cursor text, so the order is total and matches the ORDER BY <keys>
// tiebreak of compiled statements.
func (s *Sorter) SortInDefaultOrder(entities []any, keys []*edm.Property) []any {
	out := slices.Clone(entities)
	if len(keys) == 0 || len(out) < 2 {
		return out
	}

	type keyed struct {
		entity any
		values []edm.Value
		cursor string
	}
	entries := make([]keyed, len(out))
	for i, e := range out {
		entries[i].entity = e
		values, err := entity.KeyValues(s.accessor, e, keys)
		if err != nil {
			s.log().Debug("key read error absorbed", "error", err)
			continue
		}
		entries[i].values = values
		parts := make([]string, len(values))
		for j, v := range values {
			parts[j] = edm.URILiteral(v)
		}
		entries[i].cursor = strings.Join(parts, ",")
	}

	slices.SortStableFunc(entries, func(a, b keyed) int {
		if a.values == nil || b.values == nil {
			return strings.Compare(a.cursor, b.cursor)
		}
		for k := range keys {
			c, err := edm.Compare(a.values[k], b.values[k])
			if err != nil {
				return strings.Compare(a.cursor, b.cursor)
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})

	for i, entry := range entries {
		out[i] = entry.entity
	}
	return out
}
