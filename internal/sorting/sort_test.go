package sorting

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/odataq/internal/edm"
	"github.com/roach88/odataq/internal/entity"
	"github.com/roach88/odataq/internal/expr"
	"github.com/roach88/odataq/internal/testutil"
)

func ids(t *testing.T, entities []any) []int32 {
	t.Helper()
	out := make([]int32, len(entities))
	for i, e := range entities {
		id, ok := e.(entity.Record)["ID"].(int32)
		require.True(t, ok)
		out[i] = id
	}
	return out
}

func TestSort_AgeDescNameTiebreak(t *testing.T) {
	m := testutil.NewPersonModel()
	s := New(entity.RecordAccessor{}, nil)
	people := []any{
		testutil.Person(1, "Zed", 30),
		testutil.Person(2, "Amy", 40),
		testutil.Person(3, "Bob", 30),
	}

	sorted := s.Sort(people, expr.OrderSpec{
		{Expr: expr.Prop(m.Age), Direction: expr.Desc},
		{Expr: expr.Prop(m.Name)},
	})

	assert.Equal(t, []int32{2, 3, 1}, ids(t, sorted))
	assert.Equal(t, []int32{1, 2, 3}, ids(t, people), "input is untouched")
}

func TestSort_IsStable(t *testing.T) {
	m := testutil.NewPersonModel()
	s := New(entity.RecordAccessor{}, nil)
	people := testutil.People(40)
	spec := expr.OrderSpec{{Expr: expr.Prop(m.Active)}}

	once := s.Sort(people, spec)
	twice := s.Sort(once, spec)

	assert.Equal(t, once, twice)
	// Equal keys keep their input order.
	var actives []int32
	for _, id := range ids(t, once) {
		if id%2 == 0 {
			actives = append(actives, id)
		}
	}
	for i := 1; i < len(actives); i++ {
		assert.Less(t, actives[i-1], actives[i])
	}
}

func TestSort_NullsFirstAscendingLastDescending(t *testing.T) {
	m := testutil.NewPersonModel()
	s := New(entity.RecordAccessor{}, nil)
	people := []any{
		entity.Record{"ID": int32(1), "Email": "b@x"},
		entity.Record{"ID": int32(2)},
		entity.Record{"ID": int32(3), "Email": "a@x"},
	}

	asc := s.Sort(people, expr.OrderSpec{{Expr: expr.Prop(m.Email)}})
	assert.Equal(t, []int32{2, 3, 1}, ids(t, asc))

	desc := s.Sort(people, expr.OrderSpec{{Expr: expr.Prop(m.Email), Direction: expr.Desc}})
	assert.Equal(t, []int32{1, 3, 2}, ids(t, desc))
}

func TestSort_ErrorsCountAsEqual(t *testing.T) {
	m := testutil.NewPersonModel()
	s := New(entity.RecordAccessor{}, nil)
	people := []any{
		entity.Record{"ID": int32(1), "Age": int32(50), "Name": "b"},
		entity.Record{"ID": int32(2), "Age": "broken", "Name": "a"},
		entity.Record{"ID": int32(3), "Age": int32(20), "Name": "c"},
	}

	assert.NotPanics(t, func() {
		sorted := s.Sort(people, expr.OrderSpec{
			{Expr: expr.Bin(expr.OpDiv, expr.Prop(m.Age), expr.Lit(edm.NewInt32(0)))},
			{Expr: expr.Prop(m.Name)},
		})
		assert.Equal(t, []int32{2, 1, 3}, ids(t, sorted), "every first key fails, so Name decides")
	})
}

func TestSortInDefaultOrder(t *testing.T) {
	m := testutil.NewPersonModel()
	s := New(entity.RecordAccessor{}, nil)
	people := []any{
		testutil.Person(10, "a", 1),
		testutil.Person(2, "b", 1),
		testutil.Person(-1, "c", 1),
		testutil.Person(9, "d", 1),
	}

	sorted := s.SortInDefaultOrder(people, m.Type.Keys)

	assert.Equal(t, []int32{-1, 2, 9, 10}, ids(t, sorted), "keys compare by value, not text")
}

func TestSortInDefaultOrder_CompositeKey(t *testing.T) {
	region := edm.NewProperty("Region", edm.TypeString)
	num := edm.NewProperty("Num", edm.TypeInt32)
	s := New(entity.RecordAccessor{}, nil)
	rows := []any{
		entity.Record{"Region": "eu", "Num": int32(2)},
		entity.Record{"Region": "ap", "Num": int32(9)},
		entity.Record{"Region": "eu", "Num": int32(1)},
	}

	sorted := s.SortInDefaultOrder(rows, []*edm.Property{region, num})

	var got []string
	for _, r := range sorted {
		k, err := entity.KeyString(entity.RecordAccessor{}, r, []*edm.Property{region, num})
		require.NoError(t, err)
		got = append(got, k)
	}
	assert.Equal(t, []string{"'ap',9", "'eu',1", "'eu',2"}, got)
}

func TestSort_SubstringWithHugeLength(t *testing.T) {
	m := testutil.NewPersonModel()
	s := New(entity.RecordAccessor{}, nil)
	people := []any{
		testutil.Person(1, "Bob", 30),
		testutil.Person(2, "Amy", 40),
		testutil.Person(3, "Zed", 30),
	}
	key := expr.Call("substring", expr.Prop(m.Name), expr.Lit(edm.NewInt32(1)), expr.Lit(edm.NewInt64(math.MaxInt64)))

	var sorted []any
	require.NotPanics(t, func() { sorted = s.Sort(people, expr.OrderSpec{{Expr: key}}) })
	// "ed" < "my" < "ob"
	assert.Equal(t, []int32{3, 2, 1}, ids(t, sorted))
}

// panicAccessor panics on every read of one property.
type panicAccessor struct {
	entity.RecordAccessor
	prop *edm.Property
}

func (a panicAccessor) Get(e any, p *edm.Property) (edm.Value, error) {
	if p == a.prop {
		panic("accessor failure")
	}
	return a.RecordAccessor.Get(e, p)
}

func TestSort_PanickingKeyTies(t *testing.T) {
	m := testutil.NewPersonModel()
	s := New(panicAccessor{prop: m.Age}, nil)
	people := []any{
		testutil.Person(1, "Zed", 30),
		testutil.Person(2, "Amy", 40),
	}

	var sorted []any
	require.NotPanics(t, func() {
		sorted = s.Sort(people, expr.OrderSpec{{Expr: expr.Prop(m.Age)}, {Expr: expr.Prop(m.Name)}})
	})
	assert.Equal(t, []int32{2, 1}, ids(t, sorted))
}
