package plan

import (
	"partial-generator/internal/analyze"
	"partial-generator/internal/common"
	"partial-generator/internal/diagnostic"
	"partial-generator/internal/directive"
)

// ResolvedPlan is the final output of the resolution pipeline.
// It contains everything needed for code generation.
type ResolvedPlan struct {
	// Schemas are the generated schemas, grouped by package and in
	// declaration order.
	Schemas []*GeneratedSchema
	// Graph holds all analyzed types and packages.
	Graph *analyze.TypeGraph
	// Registry is the PartialOf mapping the schemas were computed with.
	Registry *Registry
	// Diagnostics contains all warnings and errors from resolution.
	Diagnostics diagnostic.Diagnostics
}

// ByPackage returns the schemas of one package.
func (p *ResolvedPlan) ByPackage(pkgPath string) []*GeneratedSchema {
	var out []*GeneratedSchema

	for _, s := range p.Schemas {
		if s.Source.ID.PkgPath == pkgPath {
			out = append(out, s)
		}
	}

	return out
}

// GeneratedSchema is the partial counterpart of one annotated type.
type GeneratedSchema struct {
	// Source is the annotated type.
	Source *analyze.TypeSchema
	// ID is the generated type.
	ID analyze.TypeID
	// Converter is the name of the generated converter constructor.
	Converter string
	Shape     analyze.Shape
	// Generics are the type parameters of the source with the partial bound
	// appended to each.
	Generics []GenericParam
	// Fields of a struct.
	Fields []GeneratedField
	// Variants of a family, in declaration order.
	Variants []GeneratedVariant
	// Capabilities are forwarded capabilities that are not serialization
	// tags; they become interface assertions.
	Capabilities []directive.Capability
	// TagKeys are the serialization capabilities rendered as struct tags.
	TagKeys []string
	// Links are the two PartialOf facts: original to generated, and
	// generated to itself.
	Links []Link
}

// IsGeneric returns true if the generated type has type parameters.
func (s *GeneratedSchema) IsGeneric() bool {
	return len(s.Generics) > 0
}

// GenericParam is a type parameter of a generated type.
type GenericParam struct {
	Name string
	// Bounds are the source bounds followed by the partial bound, which is
	// always last.
	Bounds []analyze.Bound
	// Companion is the type parameter standing for Partial(Name).
	Companion string
}

// SourceBounds returns the bounds declared on the source type.
func (g GenericParam) SourceBounds() []analyze.Bound {
	if len(g.Bounds) == 0 {
		return nil
	}

	return g.Bounds[:len(g.Bounds)-1]
}

// ConverterArg returns the name of the converter argument that carries the
// partial bound of this parameter.
func (g GenericParam) ConverterArg() string {
	return "conv" + g.Name
}

// GeneratedVariant is one variant of a generated family.
type GeneratedVariant struct {
	Source analyze.Variant
	// ID is the generated variant type, or the source type for an empty
	// variant.
	ID analyze.TypeID
	// Converter is the converter constructor of a non-empty variant.
	Converter string
	Fields    []GeneratedField
	// Tag is the struct tag of the variant's field in the generated
	// family struct.
	Tag string
}

// IsEmpty returns true if the variant is reused unchanged.
func (v *GeneratedVariant) IsEmpty() bool {
	return v.Source.IsEmpty()
}

// GeneratedField is one field of a generated struct or variant.
type GeneratedField struct {
	// Source is the field being wrapped.
	Source analyze.FieldInfo
	// Name is the Go field name in the generated type. For an embedded
	// field it is the name of the embedded type.
	Name     string
	Embedded bool
	Exported bool
	Strategy Strategy
	// Type is the declared type of the generated field.
	Type *analyze.TypeExpr
	// Inner is the partial type being wrapped: Partial(T) for a wrapped T,
	// Partial(U) for a nullable *U, the field type itself otherwise.
	Inner *analyze.TypeExpr
	// Tag is the rendered struct tag, without backquotes.
	Tag string
}

// Strategy describes how a field is carried into the generated type.
type Strategy int

const (
	// StrategyRequired - field copied unchanged.
	StrategyRequired Strategy = iota
	// StrategyWrap - T becomes *Partial(T); nil means absent.
	StrategyWrap
	// StrategyNullable - *U becomes *Partial(U); nil stays nil.
	StrategyNullable
)

// String returns a human-readable strategy name.
func (s Strategy) String() string {
	switch s {
	case StrategyRequired:
		return "required"
	case StrategyWrap:
		return "wrap"
	case StrategyNullable:
		return "nullable"
	default:
		return common.UnknownStr
	}
}

// Link is the fact PartialOf(From) = To.
type Link struct {
	From analyze.TypeID
	To   analyze.TypeID
}

// String returns the link as it reads.
func (l Link) String() string {
	return "PartialOf(" + l.From.String() + ") = " + l.To.String()
}
