package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"partial-generator/internal/analyze"
	"partial-generator/internal/common"
	"partial-generator/internal/directive"
)

// DefaultFile is the config file picked up from the working directory.
const DefaultFile = "partial.yaml"

// DefaultOutput is the name of the file generated in each package.
const DefaultOutput = "zz_generated.partial.go"

// DefaultLeaves are struct types from common libraries that are treated as
// opaque values. Named non-struct types (time.Duration, uuid.UUID,
// json.RawMessage) are leaves without being listed.
var DefaultLeaves = []string{
	"time.Time",
	"time.Location",
	"math/big.Int",
	"math/big.Float",
	"math/big.Rat",
	"net/url.URL",
	"net/netip.Addr",
	"net/netip.AddrPort",
	"net/netip.Prefix",
	"regexp.Regexp",
	"sync.Mutex",
	"sync.RWMutex",
	"sync.Once",
}

// DefaultSerialization lists the capabilities rendered as struct tags.
var DefaultSerialization = []string{"json", "yaml"}

// Config is the generator configuration, usually read from partial.yaml.
type Config struct {
	Version string `yaml:"version"`
	// Suffix is the default generated name suffix.
	Suffix string `yaml:"suffix,omitempty"`
	// Output is the file name generated in every package.
	Output string `yaml:"output,omitempty"`
	// Derive lists capabilities added to every generated type, as "json" or
	// "import/path.Interface".
	Derive []string `yaml:"derive,omitempty"`
	// Serialization lists capability names rendered as struct tags.
	Serialization []string `yaml:"serialization,omitempty"`
	// Leaves lists extra leaf types as "import/path.Name".
	Leaves []string `yaml:"leaves,omitempty"`
	// NoDefaultLeaves drops DefaultLeaves.
	NoDefaultLeaves bool `yaml:"no_default_leaves,omitempty"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	c := &Config{}
	applyDefaults(c)

	return c
}

// LoadFile loads and parses a YAML config file from the given path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return Parse(data)
}

// LoadOptional loads path if it exists and returns Default otherwise.
func LoadOptional(path string) (*Config, error) {
	c, err := LoadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}

	return c, err
}

// Parse parses YAML data into a Config.
func Parse(data []byte) (*Config, error) {
	var c Config

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	// An empty file decodes to io.EOF and means "all defaults".
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	applyDefaults(&c)

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

// applyDefaults fills in default values for optional fields.
func applyDefaults(c *Config) {
	if c.Version == "" {
		c.Version = "1"
	}

	if c.Suffix == "" {
		c.Suffix = directive.DefaultSuffix
	}

	if c.Output == "" {
		c.Output = DefaultOutput
	}

	if c.Serialization == nil {
		c.Serialization = append([]string(nil), DefaultSerialization...)
	}
}

// Validate checks the values that cannot be defaulted.
func (c *Config) Validate() error {
	var errs []error

	if c.Version != "1" {
		errs = append(errs, fmt.Errorf("unsupported config version %q", c.Version))
	}

	if !strings.HasSuffix(c.Output, ".go") || strings.ContainsAny(c.Output, `/\`) {
		errs = append(errs, fmt.Errorf("output %q must be a .go file name", c.Output))
	}

	if _, err := directive.ParseType([]string{directive.CommentPrefix + directive.GenerateName + " suffix=" + c.Suffix}, nil); len(err) > 0 {
		errs = append(errs, fmt.Errorf("suffix: %w", err[0]))
	}

	if _, err := c.Capabilities(); err != nil {
		errs = append(errs, err)
	}

	if _, err := c.LeafIDs(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Capabilities parses Derive.
func (c *Config) Capabilities() ([]directive.Capability, error) {
	out := make([]directive.Capability, 0, len(c.Derive))

	for _, raw := range c.Derive {
		pkgPath, name := common.SplitQualified(raw)
		if pkgPath == "" {
			capability, err := directive.ParseCapability(name, nil)
			if err != nil {
				return nil, fmt.Errorf("derive %q: %w", raw, err)
			}

			out = append(out, capability)

			continue
		}

		alias := common.PkgAlias(pkgPath)

		capability, err := directive.ParseCapability(alias+"."+name, func(string) (string, bool) {
			return pkgPath, true
		})
		if err != nil {
			return nil, fmt.Errorf("derive %q: %w", raw, err)
		}

		out = append(out, capability)
	}

	return out, nil
}

// LeafIDs returns the configured leaves plus DefaultLeaves.
func (c *Config) LeafIDs() ([]analyze.TypeID, error) {
	all := c.Leaves
	if !c.NoDefaultLeaves {
		all = append(append([]string(nil), DefaultLeaves...), c.Leaves...)
	}

	out := make([]analyze.TypeID, 0, len(all))

	for _, raw := range all {
		pkgPath, name := common.SplitQualified(raw)
		if pkgPath == "" || name == "" {
			return nil, fmt.Errorf("leaf %q must be written as import/path.Name", raw)
		}

		out = append(out, analyze.TypeID{PkgPath: pkgPath, Name: name})
	}

	return out, nil
}

// IsSerialization reports whether a capability is rendered as a struct tag.
func (c *Config) IsSerialization(name string) bool {
	return slices.Contains(c.Serialization, name)
}

// Marshal serializes a Config to YAML.
func Marshal(c *Config) ([]byte, error) {
	return yaml.Marshal(c)
}
