package analyze

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partial-generator/internal/diagnostic"
)

const settingsPkg = "partial-generator/examples/settings"

var timeLeaf = TypeID{PkgPath: "time", Name: "Time"}

func settingsID(name string) TypeID {
	return TypeID{PkgPath: settingsPkg, Name: name}
}

func loadSettings(t *testing.T, leaves ...TypeID) *TypeGraph {
	t.Helper()

	graph, err := NewAnalyzer(Options{Leaves: leaves, Logger: zerolog.Nop()}).
		LoadPackages(context.Background(), settingsPkg)
	require.NoError(t, err)

	return graph
}

func fieldByName(t *testing.T, fields []FieldInfo, name string) FieldInfo {
	t.Helper()

	for _, f := range fields {
		if f.Name == name {
			return f
		}
	}

	require.Failf(t, "field not found", "%s in %s", name, spew.Sdump(fields))

	return FieldInfo{}
}

func TestAnalyzer_LoadPackages(t *testing.T) {
	graph := loadSettings(t, timeLeaf)

	require.Contains(t, graph.Packages, settingsPkg)

	info := graph.Packages[settingsPkg]
	assert.Equal(t, "settings", info.Name)
	assert.Equal(t, "settings", filepath.Base(info.Dir))

	// Variants are described by their family and are not listed on their own.
	assert.Equal(t, []TypeID{
		settingsID("Address"),
		settingsID("Server"),
		settingsID("Backend"),
		settingsID("Route"),
		settingsID("Pair"),
		settingsID("Settings"),
	}, info.Types)

	for _, s := range graph.Ordered() {
		assert.Empty(t, s.Problems, s.ID.String())
	}
}

func TestAnalyzer_StructFields(t *testing.T) {
	graph := loadSettings(t, timeLeaf)

	server := graph.GetSchema(settingsID("Server"))
	require.NotNil(t, server)
	assert.Equal(t, ShapeStruct, server.Shape)
	require.Len(t, server.Directives.Capabilities, 1)
	assert.Equal(t, "json", server.Directives.Capabilities[0].Name)

	id := fieldByName(t, server.Fields, "ID")
	assert.True(t, id.Directives.Required)
	assert.Equal(t, ExprLeaf, id.Type.Kind, "uuid.UUID is an array type")
	assert.Equal(t, "id", id.TagName("json"))

	backup := fieldByName(t, server.Fields, "Backup")
	assert.Equal(t, ExprNullable, backup.Type.Kind)
	assert.Equal(t, ExprNamed, backup.Type.Elem.Kind)
	assert.Equal(t, settingsID("Address"), backup.Type.Elem.ID)

	assert.Equal(t, ExprSet, fieldByName(t, server.Fields, "Tags").Type.Kind)
	assert.Equal(t, ExprLeaf, fieldByName(t, server.Fields, "Timeout").Type.Kind)
}

func TestAnalyzer_Family(t *testing.T) {
	graph := loadSettings(t, timeLeaf)

	backend := graph.GetSchema(settingsID("Backend"))
	require.NotNil(t, backend)
	assert.Equal(t, ShapeFamily, backend.Shape)

	require.Len(t, backend.Variants, 3)
	assert.Equal(t, settingsID("Static"), backend.Variants[0].ID)
	assert.Equal(t, settingsID("Proxy"), backend.Variants[1].ID)
	assert.Equal(t, settingsID("Disabled"), backend.Variants[2].ID)
	assert.True(t, backend.Variants[2].IsEmpty())
	assert.Len(t, backend.Variants[0].Fields, 2)

	route := graph.GetSchema(settingsID("Route"))
	require.NotNil(t, route)
	assert.Equal(t, settingsID("Backend"), fieldByName(t, route.Fields, "Backend").Type.ID)
}

func TestAnalyzer_Generics(t *testing.T) {
	graph := loadSettings(t, timeLeaf)

	pair := graph.GetSchema(settingsID("Pair"))
	require.NotNil(t, pair)
	require.True(t, pair.IsGeneric())
	assert.Equal(t, "T", pair.Generics[0].Name)
	assert.Empty(t, pair.Generics[0].Bounds)

	fallback := fieldByName(t, pair.Fields, "Fallback")
	assert.Equal(t, ExprNullable, fallback.Type.Kind)
	assert.Equal(t, ExprParam, fallback.Type.Elem.Kind)

	settings := graph.GetSchema(settingsID("Settings"))
	require.NotNil(t, settings)

	listeners := fieldByName(t, settings.Fields, "Listeners").Type
	assert.Equal(t, ExprNamed, listeners.Kind)
	assert.Equal(t, settingsID("Pair"), listeners.ID)
	require.Len(t, listeners.Args, 1)
	assert.Equal(t, settingsID("Address"), listeners.Args[0].ID)

	probe := fieldByName(t, settings.Fields, "Probe").Type
	assert.Equal(t, ExprResult, probe.Kind)
	assert.Equal(t, settingsID("Address"), probe.Elem.ID)
}

func TestAnalyzer_Leaves(t *testing.T) {
	withLeaf := loadSettings(t, timeLeaf).GetSchema(settingsID("Settings"))
	deadline := fieldByName(t, withLeaf.Fields, "Deadline").Type
	assert.Equal(t, ExprLeaf, deadline.Elem.Kind)
	assert.Equal(t, timeLeaf, deadline.Elem.ID)

	without := loadSettings(t).GetSchema(settingsID("Settings"))
	deadline = fieldByName(t, without.Fields, "Deadline").Type
	assert.Equal(t, ExprNamed, deadline.Elem.Kind)
	assert.True(t, deadline.Elem.External, "structs of packages that were not loaded are external")
}

// writeModule writes a throwaway module and returns its directory.
func writeModule(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	files["go.mod"] = "module example.com/tmp\n\ngo 1.24\n"

	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	return dir
}

func TestAnalyzer_DirectiveProblems(t *testing.T) {
	dir := writeModule(t, map[string]string{
		"types.go": `package tmp

// Celsius is a temperature.
//
//partial:generate
type Celsius float64

// Server is a server.
//
//partial:generate sufix=Patch
type Server struct {
	Port int ` + "`partial:\"requred\"`" + `
}
`,
	})

	graph, err := NewAnalyzer(Options{Dir: dir, Logger: zerolog.Nop()}).LoadPackages(context.Background(), ".")
	require.NoError(t, err)

	celsius := graph.GetSchema(TypeID{PkgPath: "example.com/tmp", Name: "Celsius"})
	require.NotNil(t, celsius)
	assert.Equal(t, ShapeUnsupported, celsius.Shape)
	assert.NotEmpty(t, celsius.Underlying)

	server := graph.GetSchema(TypeID{PkgPath: "example.com/tmp", Name: "Server"})
	require.NotNil(t, server)
	require.Len(t, server.Problems, 2)

	assert.Equal(t, diagnostic.CodeInvalidDirective, server.Problems[0].Code)
	assert.Equal(t, []string{"suffix"}, server.Problems[0].Suggestions)
	assert.Equal(t, 10, server.Problems[0].Pos.Line)

	assert.Equal(t, "Port", server.Problems[1].FieldPath)
	assert.Equal(t, []string{"required"}, server.Problems[1].Suggestions)
}

func TestAnalyzer_IgnoresStaleOutput(t *testing.T) {
	files := map[string]string{
		"types.go": `package tmp

//partial:generate
type Server struct {
	Port int
}
`,
		"zz_generated.partial.go": `package tmp

func (v Server) IntoPartial() Removed { return Removed{} }
`,
	}
	dir := writeModule(t, files)

	_, err := NewAnalyzer(Options{Dir: dir, Logger: zerolog.Nop()}).LoadPackages(context.Background(), ".")
	require.ErrorIs(t, err, ErrPackages)

	graph, err := NewAnalyzer(Options{
		Dir:           dir,
		GeneratedFile: "zz_generated.partial.go",
		Logger:        zerolog.Nop(),
	}).LoadPackages(context.Background(), ".")
	require.NoError(t, err)
	assert.NotNil(t, graph.GetSchema(TypeID{PkgPath: "example.com/tmp", Name: "Server"}))
}
