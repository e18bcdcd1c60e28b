package gen

import (
	"context"
	"go/token"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partial-generator/internal/analyze"
	"partial-generator/internal/directive"
	"partial-generator/internal/plan"
)

const testPkg = "example.com/app"

func id(name string) analyze.TypeID {
	return analyze.TypeID{PkgPath: testPkg, Name: name}
}

func field(name string, typ *analyze.TypeExpr, tag string) analyze.FieldInfo {
	return analyze.FieldInfo{
		Name:     name,
		Exported: token.IsExported(name),
		Type:     typ,
		Tag:      reflect.StructTag(tag),
	}
}

func structSchema(name string, fields ...analyze.FieldInfo) *analyze.TypeSchema {
	return &analyze.TypeSchema{
		ID:       id(name),
		Exported: token.IsExported(name),
		Shape:    analyze.ShapeStruct,
		Fields:   fields,
	}
}

func newGraph(dir string, schemas ...*analyze.TypeSchema) *analyze.TypeGraph {
	g := analyze.NewTypeGraph()
	info := &analyze.PackageInfo{Path: testPkg, Name: "app", Dir: dir}

	for _, s := range schemas {
		g.Schemas[s.ID] = s
		info.Types = append(info.Types, s.ID)
	}

	g.Packages[testPkg] = info

	return g
}

func generate(t *testing.T, cfg plan.Config, schemas ...*analyze.TypeSchema) GeneratedFile {
	t.Helper()

	dir := t.TempDir()

	p, err := plan.NewResolver(newGraph(dir, schemas...), cfg).Resolve(context.Background())
	require.NoError(t, err)
	require.False(t, p.Diagnostics.HasErrors(), p.Diagnostics.Error())

	files, err := NewGenerator(DefaultGeneratorConfig(), zerolog.Nop()).Generate(p)
	require.NoError(t, err)
	require.Len(t, files, 1)

	assert.Equal(t, dir, files[0].Dir)
	assert.Equal(t, DefaultFilename, files[0].Filename)
	assert.Equal(t, testPkg, files[0].PkgPath)

	files[0].Content = []byte(squash(string(files[0].Content)))

	return files[0]
}

var spaces = regexp.MustCompile(`[ \t]+`)

// squash collapses runs of blanks so assertions do not depend on gofmt
// column alignment.
func squash(src string) string {
	return spaces.ReplaceAllString(src, " ")
}

func serverSchemas() []*analyze.TypeSchema {
	server := structSchema("Server",
		func() analyze.FieldInfo {
			f := field("ID", analyze.Leaf("string"), `json:"id" partial:"required"`)
			f.Directives.Required = true

			return f
		}(),
		field("Port", analyze.Leaf("int"), `json:"port"`),
		field("Timeout", analyze.LeafOf(analyze.TypeID{PkgPath: "time", Name: "Duration"}), ""),
		field("Backup", analyze.NullableOf(analyze.Named(id("Address"))), ""),
		field("Peers", analyze.SliceOf(analyze.Named(id("Address"))), ""),
		field("Labels", analyze.SetOf(analyze.Leaf("string")), ""),
	)

	address := structSchema("Address",
		field("Host", analyze.Leaf("string"), `json:"host"`),
	)

	return []*analyze.TypeSchema{server, address}
}

func TestGenerator_Struct(t *testing.T) {
	file := generate(t, plan.DefaultConfig(), serverSchemas()...)
	src := string(file.Content)

	assert.Contains(t, src, Header)
	assert.Contains(t, src, "package app")
	assert.Contains(t, src, `"partial-generator/partial"`)
	assert.Contains(t, src, `"time"`)

	// declaration
	assert.Contains(t, src, "type ServerOpt struct {")
	assert.Contains(t, src, "ID string `json:\"id\"`")
	assert.Contains(t, src, "Port *int")
	assert.Contains(t, src, "Timeout *time.Duration")
	assert.Contains(t, src, "Backup *AddressOpt")
	assert.Contains(t, src, "Peers *[]AddressOpt")
	assert.Contains(t, src, "Labels *map[string]struct{}")

	// converter
	assert.Contains(t, src, "func ServerPartial() partial.Converter[Server, ServerOpt] {")
	assert.Contains(t, src, "ID: v.ID,")
	assert.Contains(t, src, "Port: partial.Wrap(partial.Leaf[int](), v.Port),")
	assert.Contains(t, src, "Backup: partial.WrapNullable(AddressPartial(), v.Backup),")
	assert.Contains(t, src, "Peers: partial.Wrap(partial.Slice(AddressPartial()), v.Peers),")
	assert.Contains(t, src, "Labels: partial.Wrap(partial.Set[string](), v.Labels),")
	assert.Contains(t, src, `Port: partial.Unwrap(&errs, "Port", partial.Leaf[int](), p.Port),`)
	assert.Contains(t, src, `partial.MergeNullable(&errs, "Backup", AddressPartial(), &dst.Backup, p.Backup)`)
	assert.Contains(t, src, "dst.ID = p.ID")

	// helpers
	assert.Contains(t, src, "func (v Server) IntoPartial() ServerOpt {")
	assert.Contains(t, src, "func (v *Server) Merge(p ServerOpt) error {")
	assert.Contains(t, src, "func ServerFromPartial(p ServerOpt) (Server, error) {")
	assert.Contains(t, src, "_ partial.Of[ServerOpt] = Server{}")
	assert.Contains(t, src, "_ partial.Of[ServerOpt] = ServerOpt{}")
}

func TestGenerator_DependenciesFirst(t *testing.T) {
	file := generate(t, plan.DefaultConfig(), serverSchemas()...)
	src := string(file.Content)

	address := strings.Index(src, "type AddressOpt struct")
	server := strings.Index(src, "type ServerOpt struct")

	require.NotEqual(t, -1, address)
	require.NotEqual(t, -1, server)
	assert.Less(t, address, server)
}

func TestGenerator_Family(t *testing.T) {
	shape := &analyze.TypeSchema{
		ID:       id("Shape"),
		Exported: true,
		Shape:    analyze.ShapeFamily,
		Directives: directive.TypeDirectives{
			Capabilities: []directive.Capability{{Name: "Stringer", Alias: "fmt", PkgPath: "fmt"}},
		},
		Variants: []analyze.Variant{
			{ID: id("Unit")},
			{ID: id("Circle"), Fields: []analyze.FieldInfo{field("Radius", analyze.Leaf("float64"), "")}},
		},
	}
	drawing := structSchema("Drawing", field("Shape", analyze.Named(id("Shape")), ""))

	file := generate(t, plan.DefaultConfig(), shape, drawing)
	src := string(file.Content)

	assert.Contains(t, src, "type ShapeOpt struct {\n Unit *Unit\n Circle *CircleOpt\n}")
	assert.Contains(t, src, "type CircleOpt struct {")
	assert.Contains(t, src, "func ShapePartial() partial.Converter[Shape, ShapeOpt] {")
	assert.Contains(t, src, "case Circle:\n return ShapeOpt{Circle: partial.Wrap(CirclePartial(), v)}")
	assert.Contains(t, src, "case Unit:\n return ShapeOpt{Unit: &v}")
	assert.Contains(t, src, "i, err := partial.Variant(p.Unit != nil, p.Circle != nil)")
	assert.Contains(t, src, "case 1:\n v, err := CirclePartial().FromPartial(*p.Circle)")
	assert.Contains(t, src, "case 0:\n *dst = *p.Unit")
	assert.Contains(t, src, "func ShapeFromPartial(p ShapeOpt) (Shape, error) {")
	assert.Contains(t, src, "_ partial.Of[ShapeOpt] = ShapeOpt{}")
	assert.Contains(t, src, "_ fmt.Stringer = ShapeOpt{}")
	assert.NotContains(t, src, "_ fmt.Stringer = CircleOpt{}")

	assert.Contains(t, src, "Shape *ShapeOpt")
	assert.Contains(t, src, "Shape: partial.Wrap(ShapePartial(), v.Shape),")
	assert.Contains(t, src, `partial.Unwrap(&errs, "Shape", ShapePartial(), p.Shape)`)
	assert.Contains(t, src, `partial.MergeField(&errs, "Shape", ShapePartial(), &dst.Shape, p.Shape)`)
}

func TestGenerator_FamilyTags(t *testing.T) {
	shape := &analyze.TypeSchema{
		ID:         id("Shape"),
		Exported:   true,
		Shape:      analyze.ShapeFamily,
		Directives: directive.TypeDirectives{Capabilities: []directive.Capability{{Name: "json"}}},
		Variants: []analyze.Variant{
			{ID: id("Circle"), Fields: []analyze.FieldInfo{field("Radius", analyze.Leaf("float64"), `json:"r"`)}},
		},
	}

	src := string(generate(t, plan.DefaultConfig(), shape).Content)

	assert.Contains(t, src, "Circle *CircleOpt `json:\"Circle,omitempty\"`")
	assert.Contains(t, src, "Radius *float64 `json:\"r,omitempty\"`")
	assert.NotContains(t, src, "_ json = ", "serialization capabilities are tags, not assertions")
}

func TestGenerator_Generic(t *testing.T) {
	box := structSchema("Box",
		field("Value", analyze.Param("T"), ""),
		field("Items", analyze.SliceOf(analyze.Param("T")), ""),
	)
	box.Generics = []analyze.GenericParam{{Name: "T"}}

	file := generate(t, plan.DefaultConfig(), box)
	src := string(file.Content)

	assert.Contains(t, src, "type BoxOpt[T any, TPartial any] struct {")
	assert.Contains(t, src, "Value *TPartial")
	assert.Contains(t, src, "Items *[]TPartial")
	assert.Contains(t, src,
		"func BoxPartial[T any, TPartial any](convT partial.Converter[T, TPartial]) partial.Converter[Box[T], BoxOpt[T, TPartial]] {")
	assert.Contains(t, src, "return boxOptConverter[T, TPartial]{convT: convT}")
	assert.Contains(t, src, "Value: partial.Wrap(c.convT, v.Value),")
	assert.Contains(t, src, "Items: partial.Wrap(partial.Slice(c.convT), v.Items),")
	assert.Contains(t, src, "func (p BoxOpt[T, TPartial]) IntoPartial() BoxOpt[T, TPartial] {")

	assert.NotContains(t, src, "BoxFromPartial")
	assert.NotContains(t, src, "partial.Of[")
}

func TestGenerator_SkipsFailedTypes(t *testing.T) {
	dir := t.TempDir()

	broken := structSchema("Broken")
	broken.Shape = analyze.ShapeUnsupported
	broken.Underlying = "int"

	p, err := plan.NewResolver(newGraph(dir, broken), plan.DefaultConfig()).Resolve(context.Background())
	require.NoError(t, err)
	require.True(t, p.Diagnostics.HasErrors())

	files, err := NewGenerator(DefaultGeneratorConfig(), zerolog.Nop()).Generate(p)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestGenerator_StaleOutput(t *testing.T) {
	old := []byte(Header + "\n\npackage app\n")

	resolve := func(t *testing.T, dir string, schemas ...*analyze.TypeSchema) []GeneratedFile {
		t.Helper()

		p, err := plan.NewResolver(newGraph(dir, schemas...), plan.DefaultConfig()).Resolve(context.Background())
		require.NoError(t, err)

		files, err := NewGenerator(DefaultGeneratorConfig(), zerolog.Nop()).Generate(p)
		require.NoError(t, err)

		return files
	}

	t.Run("removed when the package has no annotated types", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, DefaultFilename)
		require.NoError(t, os.WriteFile(path, old, 0o644))

		files := resolve(t, dir)
		require.Len(t, files, 1)
		assert.True(t, files[0].Remove)
		assert.Equal(t, path, files[0].Path())

		written, err := WriteFiles(files)
		require.NoError(t, err)
		assert.Equal(t, []string{path}, written)
		assert.NoFileExists(t, path)

		written, err = WriteFiles(files)
		require.NoError(t, err)
		assert.Empty(t, written, "removing twice is a no-op")
	})

	t.Run("kept when every annotated type failed", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, DefaultFilename)
		require.NoError(t, os.WriteFile(path, old, 0o644))

		broken := structSchema("Broken")
		broken.Shape = analyze.ShapeUnsupported
		broken.Underlying = "int"

		assert.Empty(t, resolve(t, dir, broken))
		assert.FileExists(t, path)
	})

	t.Run("hand-written file with the same name is left alone", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFilename), []byte("package app\n"), 0o644))

		assert.Empty(t, resolve(t, dir))
	})
}

func TestWriteFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "pkg")
	file := GeneratedFile{Dir: dir, Filename: DefaultFilename, Content: []byte("package pkg\n")}

	written, err := WriteFiles([]GeneratedFile{file})
	require.NoError(t, err)
	assert.Equal(t, []string{file.Path()}, written)

	got, err := os.ReadFile(file.Path())
	require.NoError(t, err)
	assert.Equal(t, file.Content, got)

	written, err = WriteFiles([]GeneratedFile{file})
	require.NoError(t, err)
	assert.Empty(t, written, "unchanged file is not rewritten")
}

func TestWriteDebugUnformatted(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, writeDebugUnformatted(dir, DefaultFilename, []byte("package x {")))

	got, err := os.ReadFile(filepath.Join(dir, "zz_generated.partial.unformatted.go"))
	require.NoError(t, err)
	assert.Equal(t, "package x {", string(got))

	assert.NoError(t, writeDebugUnformatted("", DefaultFilename, nil))
}

func TestImportSet(t *testing.T) {
	s := newImportSet(testPkg, func(p string) string { return filepath.Base(p) })

	assert.Empty(t, s.add(testPkg, ""))
	assert.Equal(t, "json", s.add("encoding/json", ""))
	assert.Equal(t, "json2", s.add("example.com/other/json", ""))
	assert.Equal(t, "json", s.add("encoding/json", "ignored"))
	assert.Equal(t, "json2.Value", s.qualify("example.com/other/json", "Value"))

	specs := s.specs()
	require.Len(t, specs, 2)
	assert.Equal(t, importSpec{Alias: "json", Path: "encoding/json"}, specs[0])
	assert.False(t, specs[0].Explicit())
	assert.True(t, specs[1].Explicit())
	assert.True(t, specs[1].Break, "domain paths start a new group")
}
