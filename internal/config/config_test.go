package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partial-generator/internal/analyze"
	"partial-generator/internal/directive"
)

func TestParse_Empty(t *testing.T) {
	c, err := Parse(nil)
	require.NoError(t, err)

	assert.Equal(t, Default(), c)
	assert.Equal(t, "1", c.Version)
	assert.Equal(t, directive.DefaultSuffix, c.Suffix)
	assert.Equal(t, DefaultOutput, c.Output)
	assert.Equal(t, []string{"json", "yaml"}, c.Serialization)
}

func TestParse_Full(t *testing.T) {
	data := []byte(`
version: "1"
suffix: Patch
output: partial_gen.go
derive:
  - json
  - fmt.Stringer
  - encoding/json.Marshaler
serialization: [json]
leaves:
  - example.com/geo.Point
no_default_leaves: true
`)

	c, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "Patch", c.Suffix)
	assert.Equal(t, "partial_gen.go", c.Output)
	assert.True(t, c.IsSerialization("json"))
	assert.False(t, c.IsSerialization("yaml"))

	caps, err := c.Capabilities()
	require.NoError(t, err)
	assert.Equal(t, []directive.Capability{
		{Name: "json"},
		{Name: "Stringer", Alias: "fmt", PkgPath: "fmt"},
		{Name: "Marshaler", Alias: "json", PkgPath: "encoding/json"},
	}, caps)

	leaves, err := c.LeafIDs()
	require.NoError(t, err)
	assert.Equal(t, []analyze.TypeID{{PkgPath: "example.com/geo", Name: "Point"}}, leaves)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		msg  string
	}{
		{"unknown field", "sufix: Patch\n", "failed to parse config YAML"},
		{"version", "version: \"2\"\n", `unsupported config version "2"`},
		{"output extension", "output: out.txt\n", `output "out.txt" must be a .go file name`},
		{"output directory", "output: gen/out.go\n", "must be a .go file name"},
		{"suffix", "suffix: \"-x\"\n", "suffix: "},
		{"capability", "derive: [\"not a name\"]\n", `derive "not a name"`},
		{"leaf", "leaves: [Point]\n", `leaf "Point" must be written as import/path.Name`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.ErrorContains(t, err, tt.msg)
		})
	}
}

func TestLeafIDs_Defaults(t *testing.T) {
	c := Default()
	c.Leaves = []string{"example.com/geo.Point"}

	leaves, err := c.LeafIDs()
	require.NoError(t, err)

	assert.Len(t, leaves, len(DefaultLeaves)+1)
	assert.Contains(t, leaves, analyze.TypeID{PkgPath: "time", Name: "Time"})
	assert.Contains(t, leaves, analyze.TypeID{PkgPath: "math/big", Name: "Int"})
	assert.Equal(t, analyze.TypeID{PkgPath: "example.com/geo", Name: "Point"}, leaves[len(leaves)-1])
}

func TestLoadOptional(t *testing.T) {
	dir := t.TempDir()

	c, err := LoadOptional(filepath.Join(dir, DefaultFile))
	require.NoError(t, err)
	assert.Equal(t, Default(), c)

	_, err = LoadFile(filepath.Join(dir, DefaultFile))
	require.ErrorIs(t, err, os.ErrNotExist)
	assert.ErrorContains(t, err, "failed to read config file")

	path := filepath.Join(dir, DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte("suffix: Patch\n"), 0o644))

	c, err = LoadOptional(path)
	require.NoError(t, err)
	assert.Equal(t, "Patch", c.Suffix)
}

func TestMarshal(t *testing.T) {
	c := Default()
	c.Derive = []string{"json"}

	data, err := Marshal(c)
	require.NoError(t, err)

	back, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, c, back)
}
