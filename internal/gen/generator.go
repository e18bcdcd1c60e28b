package gen

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/tools/imports"

	"partial-generator/internal/analyze"
	"partial-generator/internal/common"
	"partial-generator/internal/directive"
	"partial-generator/internal/plan"
)

// DefaultFilename is the name of the file generated in each package.
const DefaultFilename = "zz_generated.partial.go"

// GeneratorConfig holds configuration for code generation.
type GeneratorConfig struct {
	// Filename is the name of the file generated in each package.
	Filename string
	// DebugUnformatted writes the unformatted source next to the target
	// file when formatting fails.
	DebugUnformatted bool
}

// DefaultGeneratorConfig returns the default generator configuration.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Filename:         DefaultFilename,
		DebugUnformatted: true,
	}
}

// Generator generates Go code from a resolved plan.
type Generator struct {
	config GeneratorConfig
	logger zerolog.Logger
	graph  *analyze.TypeGraph
}

// NewGenerator creates a new Generator with the given configuration.
func NewGenerator(config GeneratorConfig, logger zerolog.Logger) *Generator {
	if config.Filename == "" {
		config.Filename = DefaultFilename
	}

	return &Generator{config: config, logger: logger}
}

// GeneratedFile represents a generated Go source file.
type GeneratedFile struct {
	// PkgPath is the import path of the package the file belongs to.
	PkgPath string
	// Dir is the package directory.
	Dir string
	// Filename is the name of the file within Dir.
	Filename string
	// Content is the formatted Go source code.
	Content []byte
	// Remove marks an output of an earlier run that is no longer generated.
	Remove bool
}

// Path returns the full path of the file.
func (f GeneratedFile) Path() string {
	return filepath.Join(f.Dir, f.Filename)
}

// Generate generates one file per package that has generated types, in
// package path order.
func (g *Generator) Generate(p *plan.ResolvedPlan) ([]GeneratedFile, error) {
	g.graph = p.Graph

	paths := make([]string, 0, len(p.Graph.Packages))
	for path := range p.Graph.Packages {
		paths = append(paths, path)
	}

	slices.Sort(paths)

	var files []GeneratedFile

	for _, path := range paths {
		schemas := p.ByPackage(path)
		if len(schemas) == 0 {
			if stale, ok := g.stale(g.graph.Packages[path]); ok {
				files = append(files, stale)
			}

			continue
		}

		file, err := g.generatePackage(g.graph.Packages[path], schemas, p.Registry)
		if err != nil {
			return nil, fmt.Errorf("generating %s: %w", path, err)
		}

		g.logger.Debug().
			Str("package", path).
			Int("types", len(schemas)).
			Str("file", file.Path()).
			Msg("generated package")

		files = append(files, *file)
	}

	return files, nil
}

func (g *Generator) generatePackage(info *analyze.PackageInfo, schemas []*plan.GeneratedSchema, reg *plan.Registry) (*GeneratedFile, error) {
	r := &renderer{
		imports:  newImportSet(info.Path, g.pkgName),
		registry: reg,
	}

	data := &fileData{
		Header:  Header,
		Package: info.Name,
	}

	for _, s := range orderSchemas(schemas) {
		if s.Shape == analyze.ShapeFamily {
			data.Decls = append(data.Decls, declData{Family: g.familyDecl(r, s)})

			for _, v := range s.Variants {
				if v.IsEmpty() {
					continue
				}

				data.Decls = append(data.Decls, declData{
					Struct: g.structDecl(r, v.Source.ID, v.ID, v.Converter, nil, v.Fields, nil),
				})
			}

			continue
		}

		data.Decls = append(data.Decls, declData{
			Struct: g.structDecl(r, s.Source.ID, s.ID, s.Converter, s.Generics, s.Fields, s.Capabilities),
		})
	}

	data.Imports = r.imports.specs()

	var buf bytes.Buffer
	if err := fileTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("executing template: %w", err)
	}

	file := &GeneratedFile{
		PkgPath:  info.Path,
		Dir:      info.Dir,
		Filename: g.config.Filename,
	}

	formatted, err := imports.Process(file.Path(), buf.Bytes(), &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: true,
	})
	if err != nil {
		if g.config.DebugUnformatted {
			if werr := writeDebugUnformatted(info.Dir, g.config.Filename, buf.Bytes()); werr != nil {
				g.logger.Warn().Err(werr).Msg("failed to write unformatted output")
			}
		}

		return nil, fmt.Errorf("formatting code: %w", err)
	}

	file.Content = formatted

	return file, nil
}

// stale returns the removal of a file left by an earlier run in a package
// that no longer declares annotated types. A package whose annotated types
// all failed keeps its file, so code using the old output still builds.
func (g *Generator) stale(info *analyze.PackageInfo) (GeneratedFile, bool) {
	file := GeneratedFile{
		PkgPath:  info.Path,
		Dir:      info.Dir,
		Filename: g.config.Filename,
		Remove:   true,
	}

	if info.Dir == "" || !isGenerated(file.Path()) {
		return GeneratedFile{}, false
	}

	if len(info.Types) > 0 {
		g.logger.Warn().
			Str("package", info.Path).
			Str("file", file.Path()).
			Msg("no type of the package could be generated, keeping the previous output")

		return GeneratedFile{}, false
	}

	return file, true
}

// isGenerated reports whether path starts with the generated file header.
func isGenerated(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	line, _ := bufio.NewReader(f).ReadString('\n')

	return strings.TrimSpace(line) == Header
}

// pkgName returns the package name for a given package path.
// It tries to look up the name from the type graph, falling back to the path base alias.
func (g *Generator) pkgName(pkgPath string) string {
	if pkgPath == common.RuntimePkgPath {
		return common.RuntimePkgName
	}

	if g.graph != nil {
		if info, ok := g.graph.Packages[pkgPath]; ok {
			return info.Name
		}
	}

	return common.PkgAlias(pkgPath)
}

func (g *Generator) structDecl(
	r *renderer,
	src, id analyze.TypeID,
	converter string,
	generics []plan.GenericParam,
	fields []plan.GeneratedField,
	caps []directive.Capability,
) *structData {
	d := &structData{
		RT:            r.rt(),
		Name:          id.Name,
		Source:        src.Name,
		Converter:     converter,
		ConverterType: lowerFirst(id.Name) + "Converter",
		FromFunc:      src.Name + "FromPartial",
		Generic:       len(generics) > 0,
	}

	if d.Generic {
		var params, names, companions, companionNames, convParams, convInit []string

		for _, gp := range generics {
			params = append(params, gp.Name+" "+r.constraint(gp))
			names = append(names, gp.Name)
			companions = append(companions, gp.Companion+" any")
			companionNames = append(companionNames, gp.Companion)

			convType := d.RT + ".Converter[" + gp.Name + ", " + gp.Companion + "]"
			convParams = append(convParams, gp.ConverterArg()+" "+convType)
			convInit = append(convInit, gp.ConverterArg()+": "+gp.ConverterArg())
			d.ConvFields = append(d.ConvFields, convField{Name: gp.ConverterArg(), Type: convType})
		}

		d.TypeParams = "[" + strings.Join(append(params, companions...), ", ") + "]"
		d.TypeArgs = "[" + strings.Join(append(names, companionNames...), ", ") + "]"
		d.SourceRef = src.Name + "[" + strings.Join(names, ", ") + "]"
		d.ConvParams = strings.Join(convParams, ", ")
		d.ConvInit = strings.Join(convInit, ", ")
	} else {
		d.SourceRef = src.Name
	}

	d.Ref = d.Name + d.TypeArgs

	for _, f := range fields {
		d.Fields = append(d.Fields, fieldDecl(r, f))
	}

	d.Assertions = assertions(r, caps)

	return d
}

// assertions renders the interface types a generated type must implement.
func assertions(r *renderer, caps []directive.Capability) []string {
	out := make([]string, 0, len(caps))

	for _, c := range caps {
		if c.Qualified() {
			out = append(out, r.imports.add(c.PkgPath, c.Alias)+"."+c.Name)
		} else {
			out = append(out, c.Name)
		}
	}

	return out
}

func fieldDecl(r *renderer, f plan.GeneratedField) fieldData {
	rt := r.rt()
	src := f.Source.Name
	name := strconv.Quote(src)

	d := fieldData{
		Name:       f.Name,
		SourceName: src,
	}

	typ := r.typeString(f.Type)
	if f.Embedded {
		d.Decl = typ
	} else {
		d.Decl = f.Name + " " + typ
	}

	if f.Tag != "" {
		d.Decl += " `" + f.Tag + "`"
	}

	switch f.Strategy {
	case plan.StrategyRequired:
		d.Into = "v." + src
		d.From = "p." + f.Name
		d.Merge = "dst." + src + " = p." + f.Name
	case plan.StrategyNullable:
		conv := r.converter(f.Source.Type.Elem)
		d.Into = fmt.Sprintf("%s.WrapNullable(%s, v.%s)", rt, conv, src)
		d.From = fmt.Sprintf("%s.UnwrapNullable(&errs, %s, %s, p.%s)", rt, name, conv, f.Name)
		d.Merge = fmt.Sprintf("%s.MergeNullable(&errs, %s, %s, &dst.%s, p.%s)", rt, name, conv, src, f.Name)
	default:
		conv := r.converter(f.Source.Type)
		d.Into = fmt.Sprintf("%s.Wrap(%s, v.%s)", rt, conv, src)
		d.From = fmt.Sprintf("%s.Unwrap(&errs, %s, %s, p.%s)", rt, name, conv, f.Name)
		d.Merge = fmt.Sprintf("%s.MergeField(&errs, %s, %s, &dst.%s, p.%s)", rt, name, conv, src, f.Name)
	}

	return d
}

func (g *Generator) familyDecl(r *renderer, s *plan.GeneratedSchema) *familyData {
	d := &familyData{
		RT:            r.rt(),
		Name:          s.ID.Name,
		Source:        s.Source.ID.Name,
		Converter:     s.Converter,
		ConverterType: lowerFirst(s.ID.Name) + "Converter",
		FromFunc:      s.Source.ID.Name + "FromPartial",
		Assertions:    assertions(r, s.Capabilities),
	}

	present := make([]string, 0, len(s.Variants))

	for i, v := range s.Variants {
		vd := variantData{
			Index:     i,
			Field:     v.Source.ID.Name,
			Source:    v.Source.ID.Name,
			Generated: v.ID.Name,
			Converter: v.Converter,
			Empty:     v.IsEmpty(),
		}

		vd.Decl = vd.Field + " *" + vd.Generated
		if v.Tag != "" {
			vd.Decl += " `" + v.Tag + "`"
		}

		present = append(present, "p."+vd.Field+" != nil")
		d.Variants = append(d.Variants, vd)
	}

	d.Present = strings.Join(present, ", ")

	return d
}

// orderSchemas puts the types a schema refers to before it. Cycles keep
// declaration order.
func orderSchemas(schemas []*plan.GeneratedSchema) []*plan.GeneratedSchema {
	index := make(map[analyze.TypeID]int, len(schemas))

	for i, s := range schemas {
		index[s.Source.ID] = i
		for _, v := range s.Variants {
			index[v.Source.ID] = i
		}
	}

	order, err := topoSort(len(schemas), func(i int) []int {
		var deps []int

		visit := func(fields []plan.GeneratedField) {
			for _, f := range fields {
				f.Source.Type.Walk(func(e *analyze.TypeExpr) {
					if e.Kind != analyze.ExprNamed {
						return
					}

					if j, ok := index[e.ID]; ok && j != i && !slices.Contains(deps, j) {
						deps = append(deps, j)
					}
				})
			}
		}

		visit(schemas[i].Fields)

		for _, v := range schemas[i].Variants {
			visit(v.Fields)
		}

		return deps
	})
	if err != nil {
		return schemas
	}

	out := make([]*plan.GeneratedSchema, 0, len(schemas))
	for _, i := range order {
		out = append(out, schemas[i])
	}

	return out
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToLower(r)) + s[size:]
}

type fileData struct {
	Header  string
	Package string
	Imports []importSpec
	Decls   []declData
}

type declData struct {
	Struct *structData
	Family *familyData
}

type structData struct {
	RT            string
	Name          string
	Source        string
	SourceRef     string
	Ref           string
	TypeParams    string
	TypeArgs      string
	Converter     string
	ConverterType string
	ConvParams    string
	ConvInit      string
	ConvFields    []convField
	FromFunc      string
	Generic       bool
	Fields        []fieldData
	Assertions    []string
}

type convField struct {
	Name string
	Type string
}

type fieldData struct {
	Name       string
	SourceName string
	Decl       string
	Into       string
	From       string
	Merge      string
}

type familyData struct {
	RT            string
	Name          string
	Source        string
	Converter     string
	ConverterType string
	FromFunc      string
	// Present lists one "is set" check per variant, in variant order.
	Present    string
	Variants   []variantData
	Assertions []string
}

type variantData struct {
	Index     int
	Field     string
	Decl      string
	Source    string
	Generated string
	Converter string
	Empty     bool
}
