package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/odataq/internal/edm"
	"github.com/roach88/odataq/internal/entity"
	"github.com/roach88/odataq/internal/eval"
	"github.com/roach88/odataq/internal/expr"
	"github.com/roach88/odataq/internal/querysql"
	"github.com/roach88/odataq/internal/testutil"
)

// createTestStore creates a store in a temporary directory holding the
// People table filled with n generated people.
func createTestStore(t *testing.T, n int) (*Store, *testutil.PersonModel) {
	t.Helper()
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	m := testutil.NewPersonModel()
	require.NoError(t, s.CreateTable(ctx, m.Set))
	require.NoError(t, s.Insert(ctx, m.Set, entity.RecordAccessor{}, testutil.People(n)))
	return s, m
}

func recordIDs(t *testing.T, entities []any) []int32 {
	t.Helper()
	out := make([]int32, len(entities))
	for i, e := range entities {
		v, err := entity.RecordAccessor{}.Get(e, edm.NewProperty("ID", edm.TypeInt32))
		require.NoError(t, err)
		out[i] = v.Raw().(int32)
	}
	return out
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path, nil)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file was created")

	ctx := context.Background()
	assert.NoError(t, s.verifyPragma(ctx, "journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma(ctx, "busy_timeout", "5000"))
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	m := testutil.NewPersonModel()

	for i := 0; i < 3; i++ {
		s, err := Open(path, nil)
		require.NoError(t, err, "iteration %d", i)
		require.NoError(t, s.CreateTable(context.Background(), m.Set))
		require.NoError(t, s.Close())
	}
}

func TestCreateTableSQL(t *testing.T) {
	m := testutil.NewPersonModel()

	ddl, err := createTableSQL(m.Set)
	require.NoError(t, err)

	assert.Contains(t, ddl, "CREATE TABLE IF NOT EXISTS people (")
	assert.Contains(t, ddl, "id INTEGER NOT NULL,")
	assert.Contains(t, ddl, "salary NUMERIC,")
	assert.Contains(t, ddl, "rating REAL,")
	assert.Contains(t, ddl, "born TEXT,")
	assert.Contains(t, ddl, "addr_city TEXT,")
	assert.Contains(t, ddl, "PRIMARY KEY (id)")

	bad := &edm.EntitySet{Name: "x", Table: "drop table;", Type: m.Type}
	_, err = createTableSQL(bad)
	assert.Error(t, err)
}

func TestInsertAndAll(t *testing.T) {
	s, m := createTestStore(t, 10)
	ctx := context.Background()

	all, err := s.All(ctx, m.Set)
	require.NoError(t, err)
	require.Len(t, all, 10)
	assert.Equal(t, []int32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, recordIDs(t, all))

	first := all[0].(entity.Record)
	assert.Equal(t, edm.NewString("Bob 001"), first["Name"])
	city, err := entity.RecordAccessor{}.Get(first["Address"], m.City)
	require.NoError(t, err)
	assert.Equal(t, "Lima", city.String())

	fifth := all[4].(entity.Record)
	assert.NotContains(t, fifth, "Address", "all-null complex columns read back as a null complex value")
	fourth := all[3].(entity.Record)
	assert.NotContains(t, fourth, "Email")

	born, err := entity.RecordAccessor{}.Get(first, m.Born)
	require.NoError(t, err)
	assert.Equal(t, "1981-02-02T00:00:00", edm.CanonicalString(born))

	// Re-inserting the same keys is a no-op.
	require.NoError(t, s.Insert(ctx, m.Set, entity.RecordAccessor{}, testutil.People(10)))
	all, err = s.All(ctx, m.Set)
	require.NoError(t, err)
	assert.Len(t, all, 10)
}

func TestSelect_AgreesWithEvaluator(t *testing.T) {
	s, m := createTestStore(t, 60)
	ctx := context.Background()
	compiler := querysql.NewCompiler(querysql.SQLite, nil)
	ev := eval.New(entity.RecordAccessor{}, nil)
	people := testutil.People(60)

	filters := map[string]expr.Node{
		"age":        expr.Bin(expr.OpGt, expr.Prop(m.Age), expr.Lit(edm.NewInt32(35))),
		"startswith": expr.Call(expr.MethodStartsWith, expr.Prop(m.Name), expr.Lit(edm.NewString("Al"))),
		"lowercase":  expr.Call(expr.MethodStartsWith, expr.Prop(m.Name), expr.Lit(edm.NewString("al"))),
		"city":       expr.Eq(expr.Path(m.AddressProp, m.City), expr.Lit(edm.NewString("Rome"))),
		"null email": expr.Eq(expr.Prop(m.Email), expr.Lit(edm.Null(edm.TypeUnknown))),
		"active":     expr.And(expr.Prop(m.Active), expr.Bin(expr.OpLt, expr.Prop(m.ID), expr.Lit(edm.NewInt32(20)))),
		"div":        expr.Bin(expr.OpGe, expr.Bin(expr.OpDiv, expr.Prop(m.Age), expr.Lit(edm.NewInt32(2))), expr.Lit(edm.NewDouble(20.5))),
		"year":       expr.Eq(expr.Call(expr.MethodYear, expr.Prop(m.Born)), expr.Lit(edm.NewInt32(1990))),
		"hour":       expr.Bin(expr.OpGe, expr.Call(expr.MethodHour, expr.Prop(m.WakeUp)), expr.Lit(edm.NewInt32(8))),
		"substring":  expr.Eq(expr.Call(expr.MethodSubstring, expr.Prop(m.Name), expr.Lit(edm.NewInt32(0)), expr.Lit(edm.NewInt32(3))), expr.Lit(edm.NewString("Eve"))),
		"mod":        expr.Eq(expr.Bin(expr.OpMod, expr.Prop(m.ID), expr.Lit(edm.NewInt32(7))), expr.Lit(edm.NewInt32(3))),
	}

	for name, filter := range filters {
		t.Run(name, func(t *testing.T) {
			stmt, err := compiler.CompileSelect(querysql.SelectQuery{Set: m.Set, Filter: filter})
			require.NoError(t, err)

			got, err := s.Select(ctx, m.Set, stmt)
			require.NoError(t, err)

			want := ev.Filter(filter, people)
			assert.Equal(t, recordIDs(t, want), recordIDs(t, got), stmt.SQL)
		})
	}
}

func TestSelect_OrderingAndPaging(t *testing.T) {
	s, m := createTestStore(t, 30)
	ctx := context.Background()
	compiler := querysql.NewCompiler(querysql.SQLite, nil)
	skip, top := 2, 4

	stmt, err := compiler.CompileSelect(querysql.SelectQuery{
		Set:     m.Set,
		OrderBy: expr.OrderSpec{{Expr: expr.Prop(m.Age), Direction: expr.Desc}},
		Skip:    &skip,
		Top:     &top,
	})
	require.NoError(t, err)

	got, err := s.Select(ctx, m.Set, stmt)
	require.NoError(t, err)
	require.Len(t, got, 4)

	var ages []int32
	for _, e := range got {
		v, err := entity.RecordAccessor{}.Get(e, m.Age)
		require.NoError(t, err)
		ages = append(ages, v.Raw().(int32))
	}
	for i := 1; i < len(ages); i++ {
		assert.GreaterOrEqual(t, ages[i-1], ages[i])
	}
}

func TestCount(t *testing.T) {
	s, m := createTestStore(t, 25)
	compiler := querysql.NewCompiler(querysql.SQLite, nil)

	stmt, err := compiler.CompileCount(querysql.SelectQuery{
		Set:    m.Set,
		Filter: expr.Bin(expr.OpLe, expr.Prop(m.ID), expr.Lit(edm.NewInt32(10))),
	})
	require.NoError(t, err)

	n, err := s.Count(context.Background(), stmt)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
}

func ledgerSet(precision int) *edm.EntitySet {
	id := edm.NewProperty("ID", edm.TypeInt32)
	id.StorageName = "id"
	id.Facets.Nullable = false
	amount := edm.NewProperty("Amount", edm.TypeDecimal)
	amount.StorageName = "amount"
	amount.Facets.Precision = precision
	amount.Facets.Scale = 2
	typ := &edm.StructuralType{Name: "Entry", Properties: []*edm.Property{id, amount}, Keys: []*edm.Property{id}}
	return &edm.EntitySet{Name: "Entries", Table: "entries", Type: typ}
}

func TestCreateTable_DecimalPrecisionLimit(t *testing.T) {
	tests := []struct {
		name      string
		precision int
		wantErr   bool
	}{
		{"unbounded", 0, true},
		{"beyond REAL", 20, true},
		{"at limit", 15, false},
		{"money", 10, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := createTableSQL(ledgerSet(tt.precision))
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "column amount")
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestInsert_DecimalRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "ledger.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	set := ledgerSet(15)
	require.NoError(t, s.CreateTable(ctx, set))

	// Twenty-two digits would be rounded to fifteen by SQLite.
	err = s.Insert(ctx, set, entity.RecordAccessor{}, []any{
		entity.Record{"ID": int32(1), "Amount": "12345678901234567890.12"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "precision exceeds 15")

	require.NoError(t, s.Insert(ctx, set, entity.RecordAccessor{}, []any{
		entity.Record{"ID": int32(2), "Amount": "1234567890123.45"},
		entity.Record{"ID": int32(3), "Amount": "-0.01"},
	}))

	all, err := s.All(ctx, set)
	require.NoError(t, err)
	require.Len(t, all, 2)
	for i, want := range []string{"1234567890123.45", "-0.01"} {
		got, err := entity.RecordAccessor{}.Get(all[i], set.Type.Properties[1])
		require.NoError(t, err)
		wantValue, err := edm.ParseLiteral(want, edm.TypeDecimal, edm.Facets{})
		require.NoError(t, err)
		assert.True(t, edm.Equal(wantValue, got), "got %s, want %s", edm.CanonicalString(got), want)
	}
}
