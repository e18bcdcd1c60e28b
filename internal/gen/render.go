package gen

import (
	"go/types"
	"slices"
	"strconv"
	"strings"

	"partial-generator/internal/analyze"
	"partial-generator/internal/common"
	"partial-generator/internal/plan"
)

// importSpec represents an import statement.
type importSpec struct {
	Alias string
	Path  string
	// Break starts a new import group.
	Break bool
}

// Explicit reports whether the import needs its alias written out.
func (s importSpec) Explicit() bool {
	return s.Alias != common.PkgAlias(s.Path)
}

// importSet tracks the packages referenced by one generated file.
type importSet struct {
	current string
	names   func(pkgPath string) string
	byPath  map[string]string
	byAlias map[string]string
}

func newImportSet(current string, names func(string) string) *importSet {
	return &importSet{
		current: current,
		names:   names,
		byPath:  make(map[string]string),
		byAlias: make(map[string]string),
	}
}

// add records an import and returns the qualifier to use for it. name is
// the preferred alias; an empty name uses the package name.
func (s *importSet) add(pkgPath, name string) string {
	if pkgPath == "" || pkgPath == s.current {
		return ""
	}

	if alias, ok := s.byPath[pkgPath]; ok {
		return alias
	}

	if name == "" {
		name = s.names(pkgPath)
	}

	alias := name
	for n := 2; s.byAlias[alias] != ""; n++ {
		alias = name + strconv.Itoa(n)
	}

	s.byPath[pkgPath] = alias
	s.byAlias[alias] = pkgPath

	return alias
}

// qualify returns name qualified for use in the current file.
func (s *importSet) qualify(pkgPath, name string) string {
	if alias := s.add(pkgPath, ""); alias != "" {
		return alias + "." + name
	}

	return name
}

func (s *importSet) qualifier(p *types.Package) string {
	return s.add(p.Path(), p.Name())
}

// specs returns the imports sorted by path, paths without a domain first.
func (s *importSet) specs() []importSpec {
	out := make([]importSpec, 0, len(s.byPath))
	for path, alias := range s.byPath {
		out = append(out, importSpec{Alias: alias, Path: path})
	}

	slices.SortFunc(out, func(a, b importSpec) int {
		if ga, gb := importGroup(a.Path), importGroup(b.Path); ga != gb {
			return ga - gb
		}

		return strings.Compare(a.Path, b.Path)
	})

	for i := 1; i < len(out); i++ {
		out[i].Break = importGroup(out[i].Path) != importGroup(out[i-1].Path)
	}

	return out
}

func importGroup(path string) int {
	first, _, _ := strings.Cut(path, "/")
	if strings.Contains(first, ".") {
		return 1
	}

	return 0
}

// renderer turns type expressions into Go source for one file.
type renderer struct {
	imports  *importSet
	registry *plan.Registry
}

// rt returns the qualifier of the runtime package.
func (r *renderer) rt() string {
	return r.imports.add(common.RuntimePkgPath, common.RuntimePkgName)
}

// typeString renders a type expression. Expressions read from source are
// printed from their go/types type; synthesized ones by shape.
func (r *renderer) typeString(e *analyze.TypeExpr) string {
	if e.GoType != nil {
		return types.TypeString(e.GoType, r.imports.qualifier)
	}

	switch e.Kind {
	case analyze.ExprLeaf:
		return r.imports.qualify(e.ID.PkgPath, e.ID.Name)
	case analyze.ExprParam:
		return e.Param
	case analyze.ExprNamed:
		return r.imports.qualify(e.ID.PkgPath, e.ID.Name) + r.typeArgs(e.Args)
	case analyze.ExprResult:
		return r.rt() + ".Result[" + r.typeString(e.Elem) + "]"
	case analyze.ExprPointer, analyze.ExprNullable:
		return "*" + r.typeString(e.Elem)
	case analyze.ExprSlice:
		return "[]" + r.typeString(e.Elem)
	case analyze.ExprArray:
		return "[" + strconv.FormatInt(e.Len, 10) + "]" + r.typeString(e.Elem)
	case analyze.ExprSet:
		return "map[" + r.typeString(e.Key) + "]struct{}"
	case analyze.ExprMap:
		return "map[" + r.typeString(e.Key) + "]" + r.typeString(e.Elem)
	default:
		return common.UnknownStr
	}
}

func (r *renderer) typeArgs(args []*analyze.TypeExpr) string {
	if len(args) == 0 {
		return ""
	}

	parts := make([]string, 0, len(args))
	for _, a := range args {
		parts = append(parts, r.typeString(a))
	}

	return "[" + strings.Join(parts, ", ") + "]"
}

// converter renders an expression of type partial.Converter[T, Partial(T)]
// for a source type expression.
func (r *renderer) converter(e *analyze.TypeExpr) string {
	rt := r.rt()

	switch e.Kind {
	case analyze.ExprParam:
		return "c." + plan.GenericParam{Name: e.Param}.ConverterArg()
	case analyze.ExprPointer, analyze.ExprNullable:
		return rt + ".Pointer(" + r.converter(e.Elem) + ")"
	case analyze.ExprSlice:
		return rt + ".Slice(" + r.converter(e.Elem) + ")"
	case analyze.ExprSet:
		return rt + ".Set[" + r.typeString(e.Key) + "]()"
	case analyze.ExprMap:
		return rt + ".Map[" + r.typeString(e.Key) + "](" + r.converter(e.Elem) + ")"
	case analyze.ExprResult:
		return rt + ".ResultOf(" + r.converter(e.Elem) + ")"
	case analyze.ExprNamed:
		if entry, ok := r.registry.Lookup(e.ID); ok && !r.registry.IsIdentity(e) {
			args := make([]string, 0, len(e.Args))
			for _, a := range e.Args {
				args = append(args, r.converter(a))
			}

			return r.imports.qualify(e.ID.PkgPath, entry.Converter) + "(" + strings.Join(args, ", ") + ")"
		}
	}

	return rt + ".Leaf[" + r.typeString(e) + "]()"
}

// constraint renders the source bounds of a type parameter.
func (r *renderer) constraint(g plan.GenericParam) string {
	bounds := g.SourceBounds()

	parts := make([]string, 0, len(bounds))
	for _, b := range bounds {
		if b.GoType != nil {
			parts = append(parts, types.TypeString(b.GoType, r.imports.qualifier))
		} else {
			parts = append(parts, b.Text)
		}
	}

	switch len(parts) {
	case 0:
		return "any"
	case 1:
		return parts[0]
	default:
		return "interface{ " + strings.Join(parts, "; ") + " }"
	}
}
