package entity

import (
	"fmt"

	"github.com/roach88/odataq/internal/edm"
)

// Record is a dynamic entity: property name to value. Values may be
// edm.Value, Go natives accepted by edm.FromNative, or nested Records (or
// map[string]any) for structural properties. A missing key reads as null.
type Record map[string]any

// RecordAccessor reads and writes Records.
//
// Thread-safety: RecordAccessor is stateless; concurrent reads are safe,
// concurrent writes to the same Record are not.
type RecordAccessor struct{}

var (
	_ edm.Accessor = RecordAccessor{}
	_ edm.Setter   = RecordAccessor{}
)

// Get implements edm.Accessor.
func (RecordAccessor) Get(e any, p *edm.Property) (edm.Value, error) {
	rec, err := asRecord(e)
	if err != nil {
		return edm.Value{}, err
	}
	raw, ok := rec[p.Name]
	if !ok || raw == nil {
		return edm.Null(p.Type), nil
	}
	v, err := edm.FromNative(p.Type, raw)
	if err != nil {
		return edm.Value{}, fmt.Errorf("property %s: %w", p.Name, err)
	}
	return v, nil
}

// Navigate implements edm.Accessor.
func (RecordAccessor) Navigate(e any, p *edm.Property) (any, error) {
	rec, err := asRecord(e)
	if err != nil {
		return nil, err
	}
	raw, ok := rec[p.Name]
	if !ok || raw == nil {
		return nil, nil
	}
	nested, err := asRecord(raw)
	if err != nil {
		return nil, fmt.Errorf("property %s: %w", p.Name, err)
	}
	return nested, nil
}

// Set implements edm.Setter.
func (RecordAccessor) Set(e any, p *edm.Property, v edm.Value) error {
	rec, err := asRecord(e)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("property %s: cannot set on a nil record", p.Name)
	}
	rec[p.Name] = v
	return nil
}

func asRecord(e any) (Record, error) {
	switch r := e.(type) {
	case Record:
		return r, nil
	case map[string]any:
		return Record(r), nil
	case *Record:
		if r == nil {
			return nil, nil
		}
		return *r, nil
	}
	return nil, fmt.Errorf("expected a record, got %T", e)
}

// Project reads every property of t from e through acc and returns a
// Record holding edm.Value leaves and nested Records. A null structural
// property projects to nil.
func Project(acc edm.Accessor, e any, t *edm.StructuralType) (Record, error) {
	out := make(Record, len(t.Properties))
	for _, p := range t.Properties {
		if p.IsStructural() {
			nested, err := acc.Navigate(e, p)
			if err != nil {
				return nil, err
			}
			if nested == nil {
				out[p.Name] = nil
				continue
			}
			rec, err := Project(acc, nested, p.Structural)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", p.Name, err)
			}
			out[p.Name] = rec
			continue
		}
		v, err := acc.Get(e, p)
		if err != nil {
			return nil, err
		}
		out[p.Name] = v
	}
	return out, nil
}
