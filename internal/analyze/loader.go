package analyze

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"path/filepath"
	"reflect"
	"strconv"

	"github.com/rs/zerolog"
	"golang.org/x/tools/go/packages"

	"partial-generator/internal/directive"
)

// LoadMode specifies what information to load from packages.
const LoadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedSyntax |
	packages.NeedTypes |
	packages.NeedTypesInfo |
	packages.NeedImports

// ErrPackages is returned when the requested packages do not type-check.
var ErrPackages = errors.New("package errors")

// Options configures an Analyzer.
type Options struct {
	// Dir is the directory patterns are resolved from; empty means the
	// current directory.
	Dir string
	// Leaves are named types treated as leaves even if they are structs.
	Leaves []TypeID
	// GeneratedFile is the base name of previously generated output. When
	// loading fails, the packages are loaded again with that file's
	// declarations ignored, since stale output must not block regeneration.
	GeneratedFile string
	Logger        zerolog.Logger
}

// Analyzer loads Go packages and reads every annotated type into a TypeGraph.
type Analyzer struct {
	opts      Options
	graph     *TypeGraph
	leaves    map[TypeID]bool
	annotated map[TypeID]bool
	loaded    map[string]bool
}

// NewAnalyzer creates a new Analyzer.
func NewAnalyzer(opts Options) *Analyzer {
	leaves := make(map[TypeID]bool, len(opts.Leaves))
	for _, id := range opts.Leaves {
		leaves[id] = true
	}

	return &Analyzer{
		opts:      opts,
		graph:     NewTypeGraph(),
		leaves:    leaves,
		annotated: make(map[TypeID]bool),
		loaded:    make(map[string]bool),
	}
}

// typeDecl is one type declaration together with its directive comments.
type typeDecl struct {
	obj       *types.TypeName
	spec      *ast.TypeSpec
	doc       *ast.CommentGroup
	lines     []string
	resolve   directive.ImportResolver
	annotated bool
}

// pkgDecls holds the type declarations of a package in declaration order.
type pkgDecls struct {
	pkg   *packages.Package
	decls []*typeDecl
}

// LoadPackages loads the specified packages and builds the type graph.
// Patterns are standard Go package patterns (e.g., "./...", "partial-generator/examples/settings").
func (a *Analyzer) LoadPackages(ctx context.Context, patterns ...string) (*TypeGraph, error) {
	pkgs, err := a.load(ctx, patterns, false)
	if errors.Is(err, ErrPackages) && a.opts.GeneratedFile != "" {
		a.opts.Logger.Debug().Err(err).Str("file", a.opts.GeneratedFile).
			Msg("retrying without previously generated output")

		pkgs, err = a.load(ctx, patterns, true)
	}

	if err != nil {
		return nil, err
	}

	all := make([]*pkgDecls, 0, len(pkgs))
	for _, pkg := range pkgs {
		a.loaded[pkg.PkgPath] = true
		all = append(all, a.collect(pkg))
	}

	for _, d := range all {
		a.processPackage(d)
	}

	return a.graph, nil
}

// Graph returns the current type graph.
func (a *Analyzer) Graph() *TypeGraph {
	return a.graph
}

func (a *Analyzer) load(ctx context.Context, patterns []string, skipGenerated bool) ([]*packages.Package, error) {
	cfg := &packages.Config{
		Mode:    LoadMode,
		Context: ctx,
		Dir:     a.opts.Dir,
	}

	if skipGenerated {
		skip := a.opts.GeneratedFile
		cfg.ParseFile = func(fset *token.FileSet, filename string, src []byte) (*ast.File, error) {
			mode := parser.AllErrors | parser.ParseComments
			if filepath.Base(filename) == skip {
				mode = parser.PackageClauseOnly
			}

			return parser.ParseFile(fset, filename, src, mode)
		}
	}

	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("failed to load packages: %w", err)
	}

	var errs []error

	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			errs = append(errs, e)
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrPackages, errs)
	}

	return pkgs, nil
}

// collect records every type declaration of a package and marks the
// annotated ones.
func (a *Analyzer) collect(pkg *packages.Package) *pkgDecls {
	d := &pkgDecls{pkg: pkg}

	for _, file := range pkg.Syntax {
		resolve := fileImports(pkg, file)

		for _, decl := range file.Decls {
			gen, ok := decl.(*ast.GenDecl)
			if !ok || gen.Tok != token.TYPE {
				continue
			}

			for _, spec := range gen.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}

				obj, ok := pkg.TypesInfo.Defs[ts.Name].(*types.TypeName)
				if !ok {
					continue
				}

				doc := ts.Doc
				if doc == nil && len(gen.Specs) == 1 {
					doc = gen.Doc
				}

				td := &typeDecl{obj: obj, spec: ts, doc: doc, lines: commentLines(doc), resolve: resolve}
				for _, line := range td.lines {
					if directive.IsDirective(line) {
						td.annotated = true
						break
					}
				}

				if td.annotated {
					a.annotated[TypeID{PkgPath: pkg.PkgPath, Name: obj.Name()}] = true
				}

				d.decls = append(d.decls, td)
			}
		}
	}

	return d
}

// processPackage builds the schemas of the annotated types of a package.
// Families go first so that their variants are known before structs are
// visited: a variant is described by its family, never on its own.
func (a *Analyzer) processPackage(d *pkgDecls) {
	pkg := d.pkg
	pkgInfo := &PackageInfo{
		Path: pkg.PkgPath,
		Name: pkg.Name,
	}

	if len(pkg.GoFiles) > 0 {
		pkgInfo.Dir = filepath.Dir(pkg.GoFiles[0])
	}

	schemas := make(map[TypeID]*TypeSchema)
	variants := make(map[TypeID]bool)

	for _, td := range d.decls {
		if !td.annotated || td.obj.IsAlias() || !types.IsInterface(td.obj.Type()) {
			continue
		}

		s := a.buildSchema(d, td)
		for _, v := range s.Variants {
			variants[v.ID] = true
		}

		schemas[s.ID] = s
	}

	for _, td := range d.decls {
		id := TypeID{PkgPath: pkg.PkgPath, Name: td.obj.Name()}
		if !td.annotated || variants[id] {
			continue
		}

		if _, done := schemas[id]; !done {
			schemas[id] = a.buildSchema(d, td)
		}

		a.graph.Schemas[id] = schemas[id]
		pkgInfo.Types = append(pkgInfo.Types, id)

		a.opts.Logger.Debug().
			Str("type", id.String()).
			Str("shape", schemas[id].Shape.String()).
			Msg("read annotated type")
	}

	a.graph.Packages[pkg.PkgPath] = pkgInfo

	a.opts.Logger.Debug().
		Str("package", pkg.PkgPath).
		Int("types", len(pkgInfo.Types)).
		Msg("analyzed package")
}

// buildSchema reads one annotated declaration.
func (a *Analyzer) buildSchema(d *pkgDecls, td *typeDecl) *TypeSchema {
	fset := d.pkg.Fset
	s := &TypeSchema{
		ID:       TypeID{PkgPath: d.pkg.PkgPath, Name: td.obj.Name()},
		Pos:      fset.Position(td.spec.Name.Pos()),
		Exported: td.obj.Exported(),
	}

	dirs, errs := directive.ParseType(td.lines, td.resolve)
	s.Directives = dirs

	for _, e := range errs {
		s.Problems = append(s.Problems, problem(e, "", commentPos(fset, td.doc, e.Line, td.spec.Name.Pos())))
	}

	if td.obj.IsAlias() {
		s.Underlying = "type alias"
		return s
	}

	named, ok := td.obj.Type().(*types.Named)
	if !ok {
		s.Underlying = td.obj.Type().String()
		return s
	}

	s.Generics = genericParams(named, d.pkg.Types)

	switch u := named.Underlying().(type) {
	case *types.Struct:
		s.Shape = ShapeStruct

		fields, problems := a.fields(d, u, td.spec, "")
		s.Fields = fields
		s.Problems = append(s.Problems, problems...)
	case *types.Interface:
		switch {
		case u.NumMethods() == 0:
			s.Underlying = "interface without methods"
		case named.TypeParams().Len() > 0:
			s.Underlying = "generic interface"
		default:
			s.Shape = ShapeFamily
			s.Variants, s.Problems = a.variants(d, named, u, s.Problems)
		}
	default:
		s.Underlying = describe(u)
	}

	return s
}

// variants returns the variants of a family: the non-generic named structs
// of the same package whose value type implements the family interface.
func (a *Analyzer) variants(d *pkgDecls, family *types.Named, iface *types.Interface, problems []Problem) ([]Variant, []Problem) {
	fset := d.pkg.Fset

	var out []Variant

	for _, td := range d.decls {
		if td.obj == family.Obj() || td.obj.IsAlias() {
			continue
		}

		vn, ok := td.obj.Type().(*types.Named)
		if !ok || vn.TypeParams().Len() > 0 {
			continue
		}

		st, ok := vn.Underlying().(*types.Struct)
		if !ok || !types.Implements(vn, iface) {
			continue
		}

		v := Variant{
			ID:  TypeID{PkgPath: d.pkg.PkgPath, Name: td.obj.Name()},
			Pos: fset.Position(td.spec.Name.Pos()),
		}

		for _, e := range directive.ParseVariant(td.lines) {
			problems = append(problems, problem(e, v.ID.Name, commentPos(fset, td.doc, e.Line, td.spec.Name.Pos())))
		}

		fields, fieldProblems := a.fields(d, st, td.spec, v.ID.Name+".")
		v.Fields = fields
		problems = append(problems, fieldProblems...)

		out = append(out, v)
	}

	return out, problems
}

// fields extracts the fields of a struct type, with their directives.
func (a *Analyzer) fields(d *pkgDecls, st *types.Struct, spec *ast.TypeSpec, pathPrefix string) ([]FieldInfo, []Problem) {
	fset := d.pkg.Fset
	docs := fieldDocs(spec)

	var (
		out      []FieldInfo
		problems []Problem
	)

	for i := range st.NumFields() {
		v := st.Field(i)
		tag := reflect.StructTag(st.Tag(i))

		var doc *ast.CommentGroup
		if i < len(docs) {
			doc = docs[i]
		}

		field := FieldInfo{
			Name:     v.Name(),
			Exported: v.Exported(),
			Embedded: v.Embedded(),
			Type:     a.expr(v.Type(), true),
			Tag:      tag,
			Pos:      fset.Position(v.Pos()),
			Index:    i,
		}

		dirs, errs := directive.ParseField(tag, commentLines(doc))
		field.Directives = dirs

		for _, e := range errs {
			problems = append(problems, problem(e, pathPrefix+field.Name, commentPos(fset, doc, e.Line, v.Pos())))
		}

		out = append(out, field)
	}

	return out, problems
}

// expr converts a go/types type into a TypeExpr. top is true for the
// declared type of a field, where a pointer means "nullable".
func (a *Analyzer) expr(t types.Type, top bool) *TypeExpr {
	var e *TypeExpr

	switch tt := t.(type) {
	case *types.Alias:
		return a.expr(types.Unalias(tt), top)
	case *types.TypeParam:
		e = Param(tt.Obj().Name())
	case *types.Pointer:
		if top {
			e = NullableOf(a.expr(tt.Elem(), false))
		} else {
			e = PointerTo(a.expr(tt.Elem(), false))
		}
	case *types.Slice:
		e = SliceOf(a.expr(tt.Elem(), false))
	case *types.Array:
		e = ArrayOf(tt.Len(), a.expr(tt.Elem(), false))
	case *types.Map:
		if isEmptyStruct(tt.Elem()) {
			e = SetOf(a.expr(tt.Key(), false))
		} else {
			e = MapOf(a.expr(tt.Key(), false), a.expr(tt.Elem(), false))
		}
	case *types.Named:
		e = a.namedExpr(tt)
	default:
		e = &TypeExpr{Kind: ExprLeaf}
	}

	e.GoType = t

	return e
}

func (a *Analyzer) namedExpr(n *types.Named) *TypeExpr {
	obj := n.Obj()
	if obj.Pkg() == nil {
		// Predeclared named types such as error.
		return Leaf(obj.Name())
	}

	id := TypeID{PkgPath: obj.Pkg().Path(), Name: obj.Name()}

	targs := n.TypeArgs()
	if id == ResultID && targs.Len() == 1 {
		return ResultOf(a.expr(targs.At(0), false))
	}

	if a.leaves[id] {
		return LeafOf(id)
	}

	args := make([]*TypeExpr, 0, targs.Len())
	for i := range targs.Len() {
		args = append(args, a.expr(targs.At(i), false))
	}

	if a.annotated[id] {
		return Named(id, args...)
	}

	if _, ok := n.Underlying().(*types.Struct); ok {
		e := Named(id, args...)
		e.External = !a.loaded[id.PkgPath]

		return e
	}

	return LeafOf(id)
}

func genericParams(named *types.Named, pkg *types.Package) []GenericParam {
	tps := named.TypeParams()
	if tps.Len() == 0 {
		return nil
	}

	out := make([]GenericParam, 0, tps.Len())

	for i := range tps.Len() {
		tp := tps.At(i)
		gp := GenericParam{Name: tp.Obj().Name()}

		c := tp.Constraint()
		if iface, ok := c.Underlying().(*types.Interface); !ok || !iface.Empty() {
			gp.Bounds = []Bound{{Text: types.TypeString(c, types.RelativeTo(pkg)), GoType: c}}
		}

		out = append(out, gp)
	}

	return out
}

func isEmptyStruct(t types.Type) bool {
	st, ok := t.(*types.Struct)
	return ok && st.NumFields() == 0
}

func describe(t types.Type) string {
	switch t.(type) {
	case *types.Basic:
		return "basic type " + t.String()
	case *types.Map:
		return "map type"
	case *types.Slice:
		return "slice type"
	case *types.Array:
		return "array type"
	case *types.Pointer:
		return "pointer type"
	case *types.Signature:
		return "func type"
	case *types.Chan:
		return "channel type"
	default:
		return t.String()
	}
}

// fileImports returns a resolver for the package qualifiers of one file.
func fileImports(pkg *packages.Package, file *ast.File) directive.ImportResolver {
	byAlias := make(map[string]string, len(file.Imports))

	for _, spec := range file.Imports {
		path, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			continue
		}

		alias := ""
		if spec.Name != nil {
			alias = spec.Name.Name
		} else if imp, ok := pkg.Imports[path]; ok {
			alias = imp.Name
		}

		if alias == "" || alias == "_" || alias == "." {
			continue
		}

		byAlias[alias] = path
	}

	return func(alias string) (string, bool) {
		p, ok := byAlias[alias]
		return p, ok
	}
}

// fieldDocs returns the doc comment of each field of a struct declaration,
// one entry per declared name, aligned with the types.Struct field order.
func fieldDocs(spec *ast.TypeSpec) []*ast.CommentGroup {
	st, ok := spec.Type.(*ast.StructType)
	if !ok || st.Fields == nil {
		return nil
	}

	var out []*ast.CommentGroup

	for _, f := range st.Fields.List {
		n := max(len(f.Names), 1)
		for range n {
			out = append(out, f.Doc)
		}
	}

	return out
}

func commentLines(doc *ast.CommentGroup) []string {
	if doc == nil {
		return nil
	}

	out := make([]string, 0, len(doc.List))
	for _, c := range doc.List {
		out = append(out, c.Text)
	}

	return out
}

func commentPos(fset *token.FileSet, doc *ast.CommentGroup, line int, fallback token.Pos) token.Position {
	if doc != nil && line >= 0 && line < len(doc.List) {
		return fset.Position(doc.List[line].Pos())
	}

	return fset.Position(fallback)
}

func problem(e *directive.Error, fieldPath string, pos token.Position) Problem {
	return Problem{
		Code:        e.Code,
		Message:     e.Message,
		FieldPath:   fieldPath,
		Suggestions: e.Suggestions,
		Pos:         pos,
	}
}
