package schema

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/odataq/internal/edm"
)

// definition constrains every schema document. Definitions are closed, so
// unknown fields are rejected.
const definition = `
#Identifier: =~"^[A-Za-z_][A-Za-z0-9_]*$"

#Property: {
	name:        #Identifier
	type?:       string
	complex?:    #Identifier
	storage?:    #Identifier
	nullable:    *true | bool
	maxLength:   *0 | int & >=0
	precision:   *0 | int & >=0
	scale:       *0 | int & >=0
	concurrency: *"none" | "fixed"
}

#Type: {
	key: *[] | [...#Identifier]
	properties: [...#Property]
}

#EntitySet: {
	type:   #Identifier
	table?: #Identifier
}

#Schema: {
	types: [#Identifier]: #Type
	entitySets: [#Identifier]: #EntitySet
}
`

type propertyDoc struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Complex     string `json:"complex"`
	Storage     string `json:"storage"`
	Nullable    bool   `json:"nullable"`
	MaxLength   int    `json:"maxLength"`
	Precision   int    `json:"precision"`
	Scale       int    `json:"scale"`
	Concurrency string `json:"concurrency"`
}

type typeDoc struct {
	Key        []string      `json:"key"`
	Properties []propertyDoc `json:"properties"`
}

type setDoc struct {
	Type  string `json:"type"`
	Table string `json:"table"`
}

// Error is a schema error with the CUE position it was found at, when known.
type Error struct {
	Path    string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Path, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Load reads a schema from a .cue file or from the CUE package in a
// directory.
func Load(path string) (*edm.Schema, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	if !info.IsDir() {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("schema: %w", err)
		}
		return Compile(path, src)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: path})
	if len(instances) == 0 {
		return nil, fmt.Errorf("schema: no CUE instances in %s", path)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err)
	}
	v := cuecontext.New().BuildInstance(inst)
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return FromValue(v)
}

// Compile builds a schema from CUE source. filename is used in error
// positions only.
func Compile(filename string, src []byte) (*edm.Schema, error) {
	v := cuecontext.New().CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return FromValue(v)
}

// FromValue decodes a schema from an already built CUE value.
func FromValue(v cue.Value) (*edm.Schema, error) {
	def := v.Context().CompileString(definition, cue.Filename("schema-definition.cue"))
	if err := def.Err(); err != nil {
		return nil, fmt.Errorf("schema definition: %w", err)
	}
	u := def.LookupPath(cue.ParsePath("#Schema")).Unify(v)
	if err := u.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	b := &builder{types: map[string]*edm.StructuralType{}}
	if err := b.declareTypes(u.LookupPath(cue.ParsePath("types"))); err != nil {
		return nil, err
	}
	if err := b.defineTypes(); err != nil {
		return nil, err
	}
	if err := b.checkAcyclic(); err != nil {
		return nil, err
	}
	if err := b.entitySets(u.LookupPath(cue.ParsePath("entitySets"))); err != nil {
		return nil, err
	}
	return &b.schema, nil
}

type pendingType struct {
	doc typeDoc
	pos token.Pos
}

type builder struct {
	schema  edm.Schema
	types   map[string]*edm.StructuralType
	pending []pendingType
}

// declareTypes allocates every type first so complex properties may refer to
// types declared later in the document.
func (b *builder) declareTypes(v cue.Value) error {
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		var doc typeDoc
		if err := iter.Value().Decode(&doc); err != nil {
			return formatCUEError(err)
		}
		t := &edm.StructuralType{Name: iter.Label()}
		b.types[t.Name] = t
		b.schema.Types = append(b.schema.Types, t)
		b.pending = append(b.pending, pendingType{doc: doc, pos: iter.Value().Pos()})
	}
	return nil
}

func (b *builder) defineTypes() error {
	for i, t := range b.schema.Types {
		pt := b.pending[i]
		seen := map[string]bool{}
		columns := map[string]bool{}

		props := make([]*edm.Property, 0, len(pt.doc.Properties))
		for _, pd := range pt.doc.Properties {
			path := "types." + t.Name + "." + pd.Name
			if seen[pd.Name] {
				return &Error{Path: path, Message: "duplicate property", Pos: pt.pos}
			}
			seen[pd.Name] = true

			p, err := b.property(pd)
			if err != nil {
				return &Error{Path: path, Message: err.Error(), Pos: pt.pos}
			}
			if columns[p.Storage()] {
				return &Error{Path: path, Message: fmt.Sprintf("storage name %q already used", p.Storage()), Pos: pt.pos}
			}
			columns[p.Storage()] = true
			props = append(props, p)
		}

		built, err := edm.NewStructuralType(t.Name, pt.doc.Key, props...)
		if err != nil {
			return &Error{Path: "types." + t.Name, Message: err.Error(), Pos: pt.pos}
		}
		*t = *built
	}
	return nil
}

func (b *builder) property(pd propertyDoc) (*edm.Property, error) {
	var p *edm.Property
	switch {
	case pd.Type != "" && pd.Complex != "":
		return nil, fmt.Errorf("type and complex are mutually exclusive")
	case pd.Complex != "":
		target, ok := b.types[pd.Complex]
		if !ok {
			return nil, fmt.Errorf("unknown complex type %q", pd.Complex)
		}
		p = edm.NewStructuralProperty(pd.Name, target)
	case pd.Type != "":
		st, err := edm.ParseType(pd.Type)
		if err != nil {
			return nil, err
		}
		p = edm.NewProperty(pd.Name, st)
	default:
		return nil, fmt.Errorf("one of type or complex is required")
	}

	p.StorageName = pd.Storage
	p.Facets.Nullable = pd.Nullable
	if pd.MaxLength > 0 {
		if p.Type != edm.TypeString && p.Type != edm.TypeBinary {
			return nil, fmt.Errorf("maxLength applies to String and Binary only")
		}
		p.Facets.MaxLength = pd.MaxLength
	}
	if pd.Precision > 0 || pd.Scale > 0 {
		if p.Type != edm.TypeDecimal {
			return nil, fmt.Errorf("precision and scale apply to Decimal only")
		}
		if pd.Precision > 0 && pd.Scale > pd.Precision {
			return nil, fmt.Errorf("scale %d exceeds precision %d", pd.Scale, pd.Precision)
		}
		p.Facets.Precision = pd.Precision
		p.Facets.Scale = pd.Scale
	}
	if pd.Concurrency == "fixed" {
		if p.IsStructural() {
			return nil, fmt.Errorf("concurrency applies to primitive properties only")
		}
		p.Facets.Concurrency = edm.ConcurrencyFixed
	}
	return p, nil
}

// checkAcyclic rejects types that contain themselves, which could not be
// flattened into columns.
func (b *builder) checkAcyclic() error {
	const (
		visiting = 1
		done     = 2
	)
	state := map[*edm.StructuralType]int{}

	var visit func(t *edm.StructuralType, path string) error
	visit = func(t *edm.StructuralType, path string) error {
		switch state[t] {
		case visiting:
			return &Error{Path: path, Message: "complex property cycle"}
		case done:
			return nil
		}
		state[t] = visiting
		for _, p := range t.Properties {
			if p.IsStructural() {
				if err := visit(p.Structural, path+"."+p.Name); err != nil {
					return err
				}
			}
		}
		state[t] = done
		return nil
	}

	for _, t := range b.schema.Types {
		if err := visit(t, "types."+t.Name); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) entitySets(v cue.Value) error {
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Label()
		var doc setDoc
		if err := iter.Value().Decode(&doc); err != nil {
			return formatCUEError(err)
		}
		t, ok := b.types[doc.Type]
		if !ok {
			return &Error{Path: "entitySets." + name, Message: fmt.Sprintf("unknown type %q", doc.Type), Pos: iter.Value().Pos()}
		}
		if len(t.Keys) == 0 {
			return &Error{Path: "entitySets." + name, Message: fmt.Sprintf("type %s has no key", t.Name), Pos: iter.Value().Pos()}
		}
		b.schema.EntitySets = append(b.schema.EntitySets, &edm.EntitySet{Name: name, Table: doc.Table, Type: t})
	}
	return nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &Error{
			Path:    "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
