package plan

import (
	"fmt"

	"partial-generator/internal/analyze"
	"partial-generator/internal/diagnostic"
)

// Entry describes a type that has a generated partial counterpart.
type Entry struct {
	Source    analyze.TypeID
	Generated analyze.TypeID
	// Converter is the converter constructor, declared next to Generated.
	Converter string
	// Params is the number of type parameters of Source.
	Params int
	// Family is set for variant families; their partial is a struct with
	// one field per variant.
	Family bool
	// Schema is the annotated type, nil for variants.
	Schema *analyze.TypeSchema
}

// MappingError is returned by PartialOf for a type without a partial form.
type MappingError struct {
	Code    string
	Type    string
	Message string
}

func (e *MappingError) Error() string {
	return e.Message
}

// Registry is the PartialOf relation over named types: annotated types map
// to their generated types, generated types and leaves map to themselves.
// It is built once and only read afterwards.
type Registry struct {
	entries   map[analyze.TypeID]*Entry
	generated map[analyze.TypeID]bool
	leaves    map[analyze.TypeID]bool
}

// NewRegistry registers every struct and family of the graph. suffix is the
// default name suffix; a type directive overrides it.
func NewRegistry(graph *analyze.TypeGraph, suffix string) *Registry {
	r := &Registry{
		entries:   make(map[analyze.TypeID]*Entry),
		generated: make(map[analyze.TypeID]bool),
		leaves:    make(map[analyze.TypeID]bool),
	}

	for _, s := range graph.Ordered() {
		sfx := s.Directives.SuffixOr(suffix)

		switch s.Shape {
		case analyze.ShapeStruct:
			r.add(&Entry{
				Source:    s.ID,
				Generated: generatedID(s.ID, sfx),
				Converter: converterName(s.ID.Name, sfx),
				Params:    len(s.Generics),
				Schema:    s,
			})
		case analyze.ShapeFamily:
			r.add(&Entry{
				Source:    s.ID,
				Generated: generatedID(s.ID, sfx),
				Converter: converterName(s.ID.Name, sfx),
				Family:    true,
				Schema:    s,
			})

			for _, v := range s.Variants {
				if v.IsEmpty() {
					r.leaves[v.ID] = true
					continue
				}

				r.add(&Entry{
					Source:    v.ID,
					Generated: generatedID(v.ID, sfx),
					Converter: converterName(v.ID.Name, sfx),
				})
			}
		}
	}

	return r
}

func (r *Registry) add(e *Entry) {
	r.entries[e.Source] = e
	r.generated[e.Generated] = true
}

// Lookup returns the entry of a source type.
func (r *Registry) Lookup(id analyze.TypeID) (*Entry, bool) {
	e, ok := r.entries[id]
	return e, ok
}

// IsGenerated reports whether id is a generated type.
func (r *Registry) IsGenerated(id analyze.TypeID) bool {
	return r.generated[id]
}

// IsIdentity reports whether the partial of a named type is the type itself.
func (r *Registry) IsIdentity(e *analyze.TypeExpr) bool {
	if e.Kind != analyze.ExprNamed {
		return e.Kind == analyze.ExprLeaf
	}

	return e.External || r.generated[e.ID] || r.leaves[e.ID]
}

// PartialOf returns the partial form of a type. params maps the type
// parameters in scope to their companion parameters.
//
// Rules, in order: leaf, pointer, slice/array/set, map, nullable, result,
// then named types and type parameters. Keys of maps and sets are never
// transformed.
func (r *Registry) PartialOf(e *analyze.TypeExpr, params map[string]string) (*analyze.TypeExpr, error) {
	switch e.Kind {
	case analyze.ExprLeaf:
		return e, nil
	case analyze.ExprPointer:
		elem, err := r.PartialOf(e.Elem, params)
		if err != nil {
			return nil, err
		}

		return analyze.PointerTo(elem), nil
	case analyze.ExprSlice:
		elem, err := r.PartialOf(e.Elem, params)
		if err != nil {
			return nil, err
		}

		return analyze.SliceOf(elem), nil
	case analyze.ExprArray:
		elem, err := r.PartialOf(e.Elem, params)
		if err != nil {
			return nil, err
		}

		if !elem.Equal(e.Elem) {
			return nil, &MappingError{
				Code:    diagnostic.CodeUnsupportedFieldType,
				Type:    e.String(),
				Message: fmt.Sprintf("array %s: only arrays of types that are their own partial can be converted, use a slice", e),
			}
		}

		return e, nil
	case analyze.ExprSet:
		return e, nil
	case analyze.ExprMap:
		elem, err := r.PartialOf(e.Elem, params)
		if err != nil {
			return nil, err
		}

		return analyze.MapOf(e.Key, elem), nil
	case analyze.ExprNullable:
		return r.PartialOf(e.Elem, params)
	case analyze.ExprResult:
		elem, err := r.PartialOf(e.Elem, params)
		if err != nil {
			return nil, err
		}

		return analyze.ResultOf(elem), nil
	case analyze.ExprParam:
		companion, ok := params[e.Param]
		if !ok {
			return nil, &MappingError{
				Code:    diagnostic.CodeNoPartialMapping,
				Type:    e.Param,
				Message: fmt.Sprintf("type parameter %s is not in scope", e.Param),
			}
		}

		return analyze.Param(companion), nil
	case analyze.ExprNamed:
		return r.named(e, params)
	default:
		return nil, &MappingError{
			Code:    diagnostic.CodeUnsupportedFieldType,
			Type:    e.String(),
			Message: fmt.Sprintf("type %s cannot be converted", e),
		}
	}
}

func (r *Registry) named(e *analyze.TypeExpr, params map[string]string) (*analyze.TypeExpr, error) {
	if r.IsIdentity(e) {
		return e, nil
	}

	entry, ok := r.entries[e.ID]
	if !ok {
		return nil, &MappingError{
			Code: diagnostic.CodeNoPartialMapping,
			Type: e.ID.String(),
			Message: fmt.Sprintf("type %s has no partial form: annotate it with //partial:generate or list it under leaves",
				e.ID),
		}
	}

	if len(e.Args) != entry.Params {
		return nil, &MappingError{
			Code:    diagnostic.CodeNoPartialMapping,
			Type:    e.ID.String(),
			Message: fmt.Sprintf("type %s takes %d type arguments, got %d", e.ID, entry.Params, len(e.Args)),
		}
	}

	args := make([]*analyze.TypeExpr, 0, 2*len(e.Args))
	args = append(args, e.Args...)

	for _, a := range e.Args {
		pa, err := r.PartialOf(a, params)
		if err != nil {
			return nil, err
		}

		args = append(args, pa)
	}

	return analyze.Named(entry.Generated, args...), nil
}

func generatedID(id analyze.TypeID, suffix string) analyze.TypeID {
	return analyze.TypeID{PkgPath: id.PkgPath, Name: id.Name + suffix}
}

// converterName returns the converter constructor name for a type. It is
// the type name followed by "Partial", unless that is already the generated
// type name.
func converterName(name, suffix string) string {
	if suffix == "Partial" {
		return name + suffix + "Converter"
	}

	return name + "Partial"
}
