package edm

import "fmt"

// Property describes one property of a structural type.
//
// Exactly one of Type and Structural is set: Type for primitive properties,
// Structural for complex and navigation properties. StorageName is the
// backend column or attribute name used by the query compiler; it falls back
// to Name when empty.
type Property struct {
	Name        string
	StorageName string
	Type        SimpleType
	Structural  *StructuralType
	Facets      Facets
}

// NewProperty creates a nullable primitive property.
func NewProperty(name string, t SimpleType) *Property {
	return &Property{Name: name, Type: t, Facets: Facets{Nullable: true}}
}

// NewStructuralProperty creates a nullable complex or navigation property.
func NewStructuralProperty(name string, target *StructuralType) *Property {
	return &Property{Name: name, Structural: target, Facets: Facets{Nullable: true}}
}

// Storage returns the backend name of the property.
func (p *Property) Storage() string {
	if p.StorageName != "" {
		return p.StorageName
	}
	return p.Name
}

// IsStructural reports whether the property holds a nested structure.
func (p *Property) IsStructural() bool { return p.Structural != nil }

// IsConcurrencyToken reports whether the property is part of the version tag.
func (p *Property) IsConcurrencyToken() bool {
	return p.Facets.Concurrency == ConcurrencyFixed
}

// StructuralType is an entity or complex type: an ordered property list and,
// for entity types, an ordered key.
type StructuralType struct {
	Name       string
	Properties []*Property
	Keys       []*Property
}

// NewStructuralType creates a structural type whose key is the named
// properties, in the given order.
func NewStructuralType(name string, keys []string, props ...*Property) (*StructuralType, error) {
	t := &StructuralType{Name: name, Properties: props}
	for _, k := range keys {
		p := t.Property(k)
		if p == nil {
			return nil, fmt.Errorf("type %s: key property %q not declared", name, k)
		}
		if p.IsStructural() {
			return nil, fmt.Errorf("type %s: key property %q must be primitive", name, k)
		}
		t.Keys = append(t.Keys, p)
	}
	return t, nil
}

// Property returns the property with the given name, or nil.
func (t *StructuralType) Property(name string) *Property {
	for _, p := range t.Properties {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// ConcurrencyProperties returns the fixed-concurrency properties in
// declaration order.
func (t *StructuralType) ConcurrencyProperties() []*Property {
	var out []*Property
	for _, p := range t.Properties {
		if p.IsConcurrencyToken() {
			out = append(out, p)
		}
	}
	return out
}

// EntitySet binds an entity type to a backend table.
type EntitySet struct {
	Name  string
	Table string
	Type  *StructuralType
}

// TableName returns the backend table, defaulting to the set name.
func (s *EntitySet) TableName() string {
	if s.Table != "" {
		return s.Table
	}
	return s.Name
}

// Schema is a set of structural types and the entity sets exposing them.
type Schema struct {
	Types      []*StructuralType
	EntitySets []*EntitySet
}

// EntitySet returns the named entity set, or nil.
func (s *Schema) EntitySet(name string) *EntitySet {
	for _, es := range s.EntitySets {
		if es.Name == name {
			return es
		}
	}
	return nil
}

// Type returns the named structural type, or nil.
func (s *Schema) Type(name string) *StructuralType {
	for _, t := range s.Types {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// Accessor reads property values from host entities. Implementations decide
// the entity representation (maps, structs, rows).
type Accessor interface {
	// Get returns the value of a primitive property. A missing value is a
	// typed null, not an error.
	Get(entity any, p *Property) (Value, error)

	// Navigate returns the nested structure held by a complex or navigation
	// property, or nil when it is null.
	Navigate(entity any, p *Property) (any, error)
}

// Setter writes primitive property values into host entities.
type Setter interface {
	Set(entity any, p *Property, v Value) error
}
