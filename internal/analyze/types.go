package analyze

import (
	"go/token"
	"go/types"
	"reflect"
	"slices"
	"strings"

	"partial-generator/internal/common"
	"partial-generator/internal/directive"
)

// TypeID uniquely identifies a type by its package path and name.
type TypeID struct {
	PkgPath string // e.g., "partial-generator/examples/settings"
	Name    string // e.g., "Server"
}

// String returns a human-readable representation of the TypeID.
func (t TypeID) String() string {
	if t.PkgPath == "" {
		return t.Name
	}

	return t.PkgPath + "." + t.Name
}

// ResultID identifies the runtime Result type, which is mapped as a tagged
// result rather than as a plain struct.
var ResultID = TypeID{PkgPath: common.RuntimePkgPath, Name: "Result"}

// ExprKind is the syntactic shape of a type expression.
type ExprKind int

const (
	ExprUnknown  ExprKind = iota
	ExprLeaf              // basic, opaque or registered leaf type
	ExprParam             // type parameter of the enclosing declaration
	ExprNamed             // named struct or variant family, possibly instantiated
	ExprPointer           // *T in a nested position
	ExprNullable          // *T as the declared type of a field
	ExprSlice             // []T
	ExprArray             // [N]T
	ExprSet               // map[K]struct{}
	ExprMap               // map[K]V
	ExprResult            // partial.Result[T]
)

// String returns a human-readable representation of the ExprKind.
func (k ExprKind) String() string {
	switch k {
	case ExprLeaf:
		return "leaf"
	case ExprParam:
		return "param"
	case ExprNamed:
		return "named"
	case ExprPointer:
		return "pointer"
	case ExprNullable:
		return "nullable"
	case ExprSlice:
		return "slice"
	case ExprArray:
		return "array"
	case ExprSet:
		return "set"
	case ExprMap:
		return "map"
	case ExprResult:
		return "result"
	default:
		return common.UnknownStr
	}
}

// TypeExpr describes a type by shape. Named types are not expanded; their
// structure lives in their own TypeSchema.
type TypeExpr struct {
	Kind  ExprKind
	ID    TypeID      // Named, Result and named leaves
	Args  []*TypeExpr // type arguments of an instantiated Named
	Param string      // Param name
	Elem  *TypeExpr   // Pointer, Nullable, Slice, Array, Map value, Result value
	Key   *TypeExpr   // Map and Set key
	Len   int64       // Array length
	// External marks a Named declared in a package that was not loaded.
	External bool
	// GoType is the type the expression was built from; nil for expressions
	// synthesized by the engine.
	GoType types.Type
}

// Leaf returns a leaf expression for a predeclared or local type name.
func Leaf(name string) *TypeExpr {
	return &TypeExpr{Kind: ExprLeaf, ID: TypeID{Name: name}}
}

// LeafOf returns a leaf expression for a named type.
func LeafOf(id TypeID) *TypeExpr {
	return &TypeExpr{Kind: ExprLeaf, ID: id}
}

// Named returns a named expression with optional type arguments.
func Named(id TypeID, args ...*TypeExpr) *TypeExpr {
	return &TypeExpr{Kind: ExprNamed, ID: id, Args: args}
}

// Param returns a type parameter expression.
func Param(name string) *TypeExpr {
	return &TypeExpr{Kind: ExprParam, Param: name}
}

// PointerTo returns a nested pointer expression.
func PointerTo(elem *TypeExpr) *TypeExpr {
	return &TypeExpr{Kind: ExprPointer, Elem: elem}
}

// NullableOf returns a field-level pointer expression.
func NullableOf(elem *TypeExpr) *TypeExpr {
	return &TypeExpr{Kind: ExprNullable, Elem: elem}
}

// SliceOf returns a slice expression.
func SliceOf(elem *TypeExpr) *TypeExpr {
	return &TypeExpr{Kind: ExprSlice, Elem: elem}
}

// ArrayOf returns an array expression.
func ArrayOf(n int64, elem *TypeExpr) *TypeExpr {
	return &TypeExpr{Kind: ExprArray, Len: n, Elem: elem}
}

// SetOf returns a set expression.
func SetOf(key *TypeExpr) *TypeExpr {
	return &TypeExpr{Kind: ExprSet, Key: key}
}

// MapOf returns a map expression.
func MapOf(key, value *TypeExpr) *TypeExpr {
	return &TypeExpr{Kind: ExprMap, Key: key, Elem: value}
}

// ResultOf returns a tagged result expression.
func ResultOf(value *TypeExpr) *TypeExpr {
	return &TypeExpr{Kind: ExprResult, ID: ResultID, Elem: value}
}

// Shape is the structural category of an annotated type.
type Shape int

const (
	ShapeUnsupported Shape = iota
	ShapeStruct            // record with named or embedded fields
	ShapeFamily            // interface whose variants are structs of the same package
)

// String returns a human-readable representation of the Shape.
func (s Shape) String() string {
	switch s {
	case ShapeUnsupported:
		return "unsupported"
	case ShapeStruct:
		return "struct"
	case ShapeFamily:
		return "family"
	default:
		return common.UnknownStr
	}
}

// TypeSchema is an annotated type as read from source.
type TypeSchema struct {
	ID       TypeID
	Pos      token.Position
	Exported bool
	Shape    Shape
	// Underlying names what the type is when Shape is ShapeUnsupported.
	Underlying string
	Generics   []GenericParam
	Fields     []FieldInfo // ShapeStruct
	Variants   []Variant   // ShapeFamily, in declaration order
	Directives directive.TypeDirectives
	// Problems found while reading the declaration and its directives.
	Problems []Problem
}

// IsGeneric returns true if the type declares type parameters.
func (s *TypeSchema) IsGeneric() bool {
	return len(s.Generics) > 0
}

// GenericParam is a type parameter with its declared bounds. A parameter
// constrained by any has no bounds.
type GenericParam struct {
	Name   string
	Bounds []Bound
}

// Bound is one constraint on a type parameter.
type Bound struct {
	// Text is the constraint as it reads in the declaring package.
	Text string
	// GoType is the constraint type, nil for synthesized bounds.
	GoType types.Type
}

// Variant is one struct type of a variant family.
type Variant struct {
	ID     TypeID
	Pos    token.Position
	Fields []FieldInfo
}

// IsEmpty returns true if the variant has no fields.
func (v *Variant) IsEmpty() bool {
	return len(v.Fields) == 0
}

// FieldInfo describes a struct field.
type FieldInfo struct {
	Name       string            // Go field name (type name for embedded fields)
	Exported   bool              // Whether the field is exported
	Embedded   bool              // Whether the field is embedded (positional)
	Type       *TypeExpr         // Field type
	Tag        reflect.StructTag // Raw struct tag
	Directives directive.FieldDirectives
	Pos        token.Position
	Index      int // Field index in the struct
}

// TagName returns the name part of the given tag key, the field name when
// the tag carries no name, and "-" when the field is skipped.
func (f *FieldInfo) TagName(key string) string {
	tag, ok := f.Tag.Lookup(key)
	if !ok {
		return f.Name
	}

	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return f.Name
	}

	return name
}

// HasTag returns true if the field has the specified tag.
func (f *FieldInfo) HasTag(key string) bool {
	_, ok := f.Tag.Lookup(key)
	return ok
}

// Problem is an issue found while reading a declaration. The engine turns
// problems into diagnostics.
type Problem struct {
	Code        string
	Message     string
	FieldPath   string
	Suggestions []string
	Pos         token.Position
}

// TypeGraph holds every annotated type from the loaded packages.
type TypeGraph struct {
	// Schemas maps TypeID to TypeSchema for all annotated types.
	Schemas map[TypeID]*TypeSchema
	// Packages maps package paths to their package info.
	Packages map[string]*PackageInfo
}

// NewTypeGraph creates a new empty TypeGraph.
func NewTypeGraph() *TypeGraph {
	return &TypeGraph{
		Schemas:  make(map[TypeID]*TypeSchema),
		Packages: make(map[string]*PackageInfo),
	}
}

// GetSchema returns the TypeSchema for a given TypeID, or nil if not found.
func (g *TypeGraph) GetSchema(id TypeID) *TypeSchema {
	return g.Schemas[id]
}

// Ordered returns every schema grouped by package (in path order) and in
// declaration order within a package.
func (g *TypeGraph) Ordered() []*TypeSchema {
	paths := make([]string, 0, len(g.Packages))
	for p := range g.Packages {
		paths = append(paths, p)
	}

	slices.Sort(paths)

	var out []*TypeSchema

	for _, p := range paths {
		for _, id := range g.Packages[p].Types {
			if s, ok := g.Schemas[id]; ok {
				out = append(out, s)
			}
		}
	}

	return out
}

// PackageInfo holds information about a loaded package.
type PackageInfo struct {
	Path  string   // Import path
	Name  string   // Package name
	Dir   string   // Directory holding the package sources
	Types []TypeID // Annotated types in declaration order
}
