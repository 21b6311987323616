package testutil

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/odataq/internal/edm"
	"github.com/roach88/odataq/internal/entity"
)

// PersonModel is the People entity set shared by package tests. Every
// property has a lower-case storage name distinct from its EDM name, and
// Address is a complex property, so tests see both name mapping and path
// flattening.
type PersonModel struct {
	Set     *edm.EntitySet
	Type    *edm.StructuralType
	Address *edm.StructuralType

	ID      *edm.Property
	Name    *edm.Property
	Age     *edm.Property
	Email   *edm.Property
	Salary  *edm.Property
	Rating  *edm.Property
	Active  *edm.Property
	Born    *edm.Property
	WakeUp  *edm.Property
	Token   *edm.Property
	Version *edm.Property

	AddressProp *edm.Property
	Street      *edm.Property
	City        *edm.Property
}

func storageProp(name, storage string, t edm.SimpleType) *edm.Property {
	p := edm.NewProperty(name, t)
	p.StorageName = storage
	return p
}

// NewPersonModel builds a fresh People model; tests may modify it.
func NewPersonModel() *PersonModel {
	m := &PersonModel{
		ID:      storageProp("ID", "id", edm.TypeInt32),
		Name:    storageProp("Name", "name", edm.TypeString),
		Age:     storageProp("Age", "age", edm.TypeInt32),
		Email:   storageProp("Email", "email", edm.TypeString),
		Salary:  storageProp("Salary", "salary", edm.TypeDecimal),
		Rating:  storageProp("Rating", "rating", edm.TypeDouble),
		Active:  storageProp("Active", "active", edm.TypeBoolean),
		Born:    storageProp("Born", "born", edm.TypeDateTime),
		WakeUp:  storageProp("WakeUp", "wake_up", edm.TypeTime),
		Token:   storageProp("Token", "token", edm.TypeGuid),
		Version: storageProp("Version", "version", edm.TypeInt64),
		Street:  storageProp("Street", "street", edm.TypeString),
		City:    storageProp("City", "city", edm.TypeString),
	}
	m.ID.Facets.Nullable = false
	m.Name.Facets.MaxLength = 50
	m.Salary.Facets.Precision = 12
	m.Salary.Facets.Scale = 2
	m.Version.Facets.Concurrency = edm.ConcurrencyFixed

	m.Address = &edm.StructuralType{Name: "Address", Properties: []*edm.Property{m.Street, m.City}}
	m.AddressProp = edm.NewStructuralProperty("Address", m.Address)
	m.AddressProp.StorageName = "addr"

	m.Type = &edm.StructuralType{
		Name: "Person",
		Properties: []*edm.Property{
			m.ID, m.Name, m.Age, m.Email, m.Salary, m.Rating, m.Active,
			m.Born, m.WakeUp, m.Token, m.Version, m.AddressProp,
		},
		Keys: []*edm.Property{m.ID},
	}
	m.Set = &edm.EntitySet{Name: "People", Table: "people", Type: m.Type}
	return m
}

// Schema wraps the model in an edm.Schema.
func (m *PersonModel) Schema() *edm.Schema {
	return &edm.Schema{
		Types:      []*edm.StructuralType{m.Type, m.Address},
		EntitySets: []*edm.EntitySet{m.Set},
	}
}

var (
	firstNames = []string{"Alice", "Bob", "Carol", "Dave", "Eve", "Frank", "Grace"}
	cities     = []string{"Oslo", "Lima", "Rome"}
)

// PeopleBuilder produces deterministic Person records with increasing IDs.
type PeopleBuilder struct {
	seq Sequence
}

// Next returns the next record. Every fourth person has no Email and every
// fifth has no Address.
func (b *PeopleBuilder) Next() entity.Record {
	i := int(b.seq.Next())
	rec := entity.Record{
		"ID":      int32(i),
		"Name":    fmt.Sprintf("%s %03d", firstNames[i%len(firstNames)], i),
		"Age":     int32(20 + (i*7)%30),
		"Salary":  fmt.Sprintf("%d.50", 1000+i*10),
		"Rating":  float64(i%5) + 0.5,
		"Active":  i%2 == 0,
		"Born":    time.Date(1980+i%30, time.Month(1+i%12), 1+i%28, 0, 0, 0, 0, time.UTC),
		"WakeUp":  time.Duration(6+i%4) * time.Hour,
		"Token":   uuid.NewSHA1(uuid.NameSpaceOID, []byte("person/"+strconv.Itoa(i))),
		"Version": int64(1),
	}
	if i%4 != 0 {
		rec["Email"] = fmt.Sprintf("p%d@example.com", i)
	}
	if i%5 != 0 {
		rec["Address"] = entity.Record{
			"Street": fmt.Sprintf("%d Main St", i),
			"City":   cities[i%len(cities)],
		}
	}
	return rec
}

// Reset restarts IDs at 1.
func (b *PeopleBuilder) Reset() { b.seq.Reset() }

// People returns n deterministic records with IDs 1..n.
func People(n int) []any {
	var b PeopleBuilder
	out := make([]any, n)
	for i := range out {
		out[i] = b.Next()
	}
	return out
}

// Person returns a minimal record.
func Person(id int32, name string, age int32) entity.Record {
	return entity.Record{"ID": id, "Name": name, "Age": age, "Version": int64(1)}
}
