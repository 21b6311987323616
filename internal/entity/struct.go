package entity

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/roach88/odataq/internal/edm"
)

// TagName is the struct tag that maps a field to an EDM property name.
// Untagged exported fields map by field name; `odata:"-"` skips a field.
const TagName = "odata"

// StructAccessor reads and writes tagged Go structs (or pointers to them).
// Structural properties map to struct or pointer-to-struct fields; a nil
// pointer is a null structure.
//
// Thread-safety: safe for concurrent use. Field lookups are cached per
// struct type.
type StructAccessor struct {
	mu     sync.RWMutex
	fields map[reflect.Type]map[string][]int
}

var (
	_ edm.Accessor = (*StructAccessor)(nil)
	_ edm.Setter   = (*StructAccessor)(nil)
)

// NewStructAccessor creates an accessor with an empty field cache.
func NewStructAccessor() *StructAccessor {
	return &StructAccessor{fields: make(map[reflect.Type]map[string][]int)}
}

// Get implements edm.Accessor.
func (a *StructAccessor) Get(e any, p *edm.Property) (edm.Value, error) {
	fv, ok, err := a.field(e, p)
	if err != nil || !ok {
		return edm.Null(p.Type), err
	}
	for fv.Kind() == reflect.Pointer {
		if fv.IsNil() {
			return edm.Null(p.Type), nil
		}
		fv = fv.Elem()
	}
	v, err := edm.FromNative(p.Type, fv.Interface())
	if err != nil {
		return edm.Value{}, fmt.Errorf("property %s: %w", p.Name, err)
	}
	return v, nil
}

// Navigate implements edm.Accessor.
func (a *StructAccessor) Navigate(e any, p *edm.Property) (any, error) {
	fv, ok, err := a.field(e, p)
	if err != nil || !ok {
		return nil, err
	}
	switch fv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map:
		if fv.IsNil() {
			return nil, nil
		}
	}
	if fv.CanAddr() {
		return fv.Addr().Interface(), nil
	}
	return fv.Interface(), nil
}

// Set implements edm.Setter. The entity must be a non-nil pointer to a
// struct. Nested pointer structs on the way are not allocated; only the
// leaf field is written.
func (a *StructAccessor) Set(e any, p *edm.Property, v edm.Value) error {
	rv := reflect.ValueOf(e)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("property %s: set requires a non-nil struct pointer, got %T", p.Name, e)
	}
	fv, ok, err := a.field(e, p)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("property %s: no field in %T", p.Name, e)
	}
	if !fv.CanSet() {
		return fmt.Errorf("property %s: field not settable", p.Name)
	}
	return assign(fv, v)
}

// field resolves the struct field mapped to p. ok is false when the struct
// has no such field.
func (a *StructAccessor) field(e any, p *edm.Property) (reflect.Value, bool, error) {
	rv := reflect.ValueOf(e)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return reflect.Value{}, false, nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return reflect.Value{}, false, fmt.Errorf("expected a struct, got %T", e)
	}
	idx, ok := a.index(rv.Type())[p.Name]
	if !ok {
		return reflect.Value{}, false, nil
	}
	return rv.FieldByIndex(idx), true, nil
}

func (a *StructAccessor) index(t reflect.Type) map[string][]int {
	a.mu.RLock()
	m, ok := a.fields[t]
	a.mu.RUnlock()
	if ok {
		return m
	}

	m = make(map[string][]int)
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() || f.Anonymous {
			continue
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup(TagName); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		m[name] = f.Index
	}

	a.mu.Lock()
	if a.fields == nil {
		a.fields = make(map[reflect.Type]map[string][]int)
	}
	a.fields[t] = m
	a.mu.Unlock()
	return m
}

// assign writes v into fv, converting between the value's host type and
// the field type. Null zeroes the field.
func assign(fv reflect.Value, v edm.Value) error {
	if v.IsNull() {
		fv.Set(reflect.Zero(fv.Type()))
		return nil
	}
	raw := reflect.ValueOf(v.Raw())
	if raw.Type().AssignableTo(fv.Type()) {
		fv.Set(raw)
		return nil
	}

	target := fv
	indirect := fv.Kind() == reflect.Pointer
	if indirect {
		target = reflect.New(fv.Type().Elem()).Elem()
	}

	switch {
	case raw.Type().AssignableTo(target.Type()):
		target.Set(raw)
	case raw.Kind() == reflect.Pointer && raw.Elem().Type().AssignableTo(target.Type()):
		target.Set(raw.Elem())
	case target.Kind() == reflect.String:
		target.SetString(edm.CanonicalString(v))
	case raw.Kind() != reflect.String && raw.Type().ConvertibleTo(target.Type()):
		target.Set(raw.Convert(target.Type()))
	default:
		return fmt.Errorf("cannot store %s in field of type %s", v.Type(), fv.Type())
	}

	if indirect {
		fv.Set(target.Addr())
	}
	return nil
}
