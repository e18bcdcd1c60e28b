package plan

import (
	"errors"
	"fmt"
	"go/token"
	"go/types"
	"slices"
	"strconv"

	"partial-generator/internal/analyze"
	"partial-generator/internal/common"
	"partial-generator/internal/diagnostic"
	"partial-generator/internal/directive"
)

// Config holds the settings shared by every transformation.
type Config struct {
	// Suffix is the default name suffix.
	Suffix string
	// Capabilities are added to every type after its own.
	Capabilities []directive.Capability
	// Serialization lists capability names rendered as struct tags.
	Serialization []string
}

// DefaultConfig returns the configuration used without a config file.
func DefaultConfig() Config {
	return Config{
		Suffix:        directive.DefaultSuffix,
		Serialization: []string{"json", "yaml"},
	}
}

// PartialBoundText is the text of the bound appended to every type
// parameter: a converter between the parameter and its companion.
const PartialBoundText = common.RuntimePkgName + ".Converter"

// Transform computes the generated schema of one annotated type. It only
// reads its arguments, so unrelated types can be transformed concurrently.
// A type with any error diagnostic yields a nil schema.
func Transform(s *analyze.TypeSchema, reg *Registry, cfg Config) (*GeneratedSchema, diagnostic.Diagnostics) {
	t := &transformer{schema: s, reg: reg, cfg: cfg}

	out := t.run()
	if t.diags.HasErrors() {
		return nil, t.diags
	}

	return out, t.diags
}

type transformer struct {
	schema *analyze.TypeSchema
	reg    *Registry
	cfg    Config
	params map[string]string
	keys   []string
	diags  diagnostic.Diagnostics
}

func (t *transformer) run() *GeneratedSchema {
	s := t.schema

	for _, p := range s.Problems {
		t.diags.Add(diagnostic.Diagnostic{
			Severity:    diagnostic.DiagnosticError,
			Code:        p.Code,
			Message:     p.Message,
			Type:        s.ID.String(),
			FieldPath:   p.FieldPath,
			Pos:         p.Pos,
			Suggestions: p.Suggestions,
		})
	}

	if s.Shape == analyze.ShapeUnsupported {
		t.diags.AddError(diagnostic.CodeUnsupportedShape,
			fmt.Sprintf("unsupported for this shape: %s is a %s, not a struct or an interface with struct variants",
				s.ID.Name, s.Underlying),
			s.ID.String(), "", s.Pos)

		return nil
	}

	if s.Shape == analyze.ShapeFamily && len(s.Variants) == 0 {
		t.diags.AddError(diagnostic.CodeUnsupportedShape,
			fmt.Sprintf("unsupported for this shape: no struct type in the package implements %s", s.ID.Name),
			s.ID.String(), "", s.Pos)

		return nil
	}

	entry, ok := t.reg.Lookup(s.ID)
	if !ok {
		t.diags.AddError(diagnostic.CodeNoPartialMapping, "type is not registered", s.ID.String(), "", s.Pos)
		return nil
	}

	out := &GeneratedSchema{
		Source:    s,
		ID:        entry.Generated,
		Converter: entry.Converter,
		Shape:     s.Shape,
		Generics:  t.generics(),
		Links: []Link{
			{From: s.ID, To: entry.Generated},
			{From: entry.Generated, To: entry.Generated},
		},
	}

	t.capabilities(out)

	switch s.Shape {
	case analyze.ShapeStruct:
		out.Fields = t.fields(s.Fields, "")
	case analyze.ShapeFamily:
		out.Variants = t.variants()
	}

	if out.IsGeneric() && len(out.Capabilities) > 0 {
		t.diags.AddInfo(diagnostic.CodeSkippedAssertion,
			fmt.Sprintf("capability assertions are not emitted for generic type %s", out.ID.Name),
			s.ID.String(), "", s.Pos)
	}

	return out
}

// generics copies the type parameters and appends the partial bound to each
// one. Companion names never collide with declared parameters.
func (t *transformer) generics() []GenericParam {
	s := t.schema
	if !s.IsGeneric() {
		return nil
	}

	taken := make(map[string]bool, 2*len(s.Generics))
	for _, g := range s.Generics {
		taken[g.Name] = true
	}

	t.params = make(map[string]string, len(s.Generics))
	out := make([]GenericParam, 0, len(s.Generics))

	for _, g := range s.Generics {
		companion := g.Name + "Partial"
		for n := 2; taken[companion]; n++ {
			companion = g.Name + "Partial" + strconv.Itoa(n)
		}

		taken[companion] = true
		t.params[g.Name] = companion

		bounds := make([]analyze.Bound, 0, len(g.Bounds)+1)
		bounds = append(bounds, g.Bounds...)
		bounds = append(bounds, analyze.Bound{
			Text: PartialBoundText + "[" + g.Name + ", " + companion + "]",
		})

		out = append(out, GenericParam{Name: g.Name, Bounds: bounds, Companion: companion})
	}

	return out
}

// capabilities splits the forwarded capabilities into struct tag keys and
// interface assertions.
func (t *transformer) capabilities(out *GeneratedSchema) {
	dirs := t.schema.Directives.WithDefaults(t.cfg.Capabilities)

	for _, c := range dirs.Capabilities {
		if !c.Qualified() && slices.Contains(t.cfg.Serialization, c.Name) {
			out.TagKeys = append(out.TagKeys, c.Name)
			continue
		}

		out.Capabilities = append(out.Capabilities, c)
	}

	t.keys = out.TagKeys
}

func (t *transformer) variants() []GeneratedVariant {
	sfx := t.schema.Directives.SuffixOr(t.cfg.Suffix)
	out := make([]GeneratedVariant, 0, len(t.schema.Variants))

	for _, v := range t.schema.Variants {
		gv := GeneratedVariant{
			Source: v,
			ID:     v.ID,
			Tag:    wrappedTag("", v.ID.Name, true, t.keys),
		}

		if !v.IsEmpty() {
			ve, ok := t.reg.Lookup(v.ID)
			if !ok {
				ve = &Entry{Generated: generatedID(v.ID, sfx), Converter: converterName(v.ID.Name, sfx)}
			}

			gv.ID = ve.Generated
			gv.Converter = ve.Converter
			gv.Fields = t.fields(v.Fields, v.ID.Name+".")
		}

		out = append(out, gv)
	}

	return out
}

// fields applies the field-wrapping rule to every field.
func (t *transformer) fields(in []analyze.FieldInfo, pathPrefix string) []GeneratedField {
	out := make([]GeneratedField, 0, len(in))

	for _, f := range in {
		if f.Name == "_" {
			continue
		}

		gf, err := t.field(f)
		if err != nil {
			code := diagnostic.CodeUnsupportedFieldType

			var me *MappingError
			if errors.As(err, &me) {
				code = me.Code
			}

			t.diags.AddError(code, err.Error(), t.schema.ID.String(), pathPrefix+f.Name, f.Pos)

			continue
		}

		t.external(f, pathPrefix)
		out = append(out, gf)
	}

	return out
}

func (t *transformer) field(f analyze.FieldInfo) (GeneratedField, error) {
	gf := GeneratedField{
		Source:   f,
		Name:     f.Name,
		Embedded: f.Embedded,
		Exported: f.Exported,
	}

	switch {
	case f.Directives.Required:
		gf.Strategy = StrategyRequired
		gf.Type = f.Type
		gf.Inner = f.Type
		gf.Tag = requiredTag(f.Tag)

		return gf, nil
	case f.Type.Kind == analyze.ExprNullable:
		inner, err := t.reg.PartialOf(f.Type.Elem, t.params)
		if err != nil {
			return gf, err
		}

		gf.Strategy = StrategyNullable
		gf.Inner = inner
		gf.Type = analyze.NullableOf(inner)
	default:
		inner, err := t.reg.PartialOf(f.Type, t.params)
		if err != nil {
			return gf, err
		}

		gf.Strategy = StrategyWrap
		gf.Inner = inner
		gf.Type = analyze.NullableOf(inner)
	}

	named := !f.Embedded && f.Exported
	gf.Tag = wrappedTag(f.Tag, f.Name, named, t.keys)

	if f.Embedded {
		gf.Name, gf.Embedded = t.embeddedName(f, gf.Type)
	}

	return gf, nil
}

// embeddedName returns the field name of an embedded field in the generated
// type. The field stays embedded when its new type is still a (pointer to
// a) named non-interface type; it is named otherwise.
func (t *transformer) embeddedName(f analyze.FieldInfo, typ *analyze.TypeExpr) (string, bool) {
	base := typ
	pointer := false

	if base.Kind == analyze.ExprNullable || base.Kind == analyze.ExprPointer {
		base = base.Elem
		pointer = true
	}

	switch base.Kind {
	case analyze.ExprNamed, analyze.ExprLeaf:
		if base.ID.Name == "" {
			return f.Name, false
		}

		// A pointer to an interface cannot be embedded.
		if pointer && base.GoType != nil && types.IsInterface(base.GoType) {
			return f.Name, false
		}

		return base.ID.Name, true
	default:
		return f.Name, false
	}
}

// external warns about structs from packages that were not loaded: they are
// carried as leaves.
func (t *transformer) external(f analyze.FieldInfo, pathPrefix string) {
	f.Type.Walk(func(e *analyze.TypeExpr) {
		if e.Kind != analyze.ExprNamed || !e.External {
			return
		}

		t.diags.AddWarning(diagnostic.CodeExternalLeaf,
			fmt.Sprintf("%s is declared in a package that was not loaded and is treated as a leaf", e.ID),
			t.schema.ID.String(), pathPrefix+f.Name, posOr(f.Pos, t.schema.Pos))
	})
}

func posOr(p, fallback token.Position) token.Position {
	if p.IsValid() {
		return p
	}

	return fallback
}
