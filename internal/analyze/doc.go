// Package analyze loads Go packages and reads the types annotated with
// //partial:generate into a TypeGraph.
//
// It uses golang.org/x/tools/go/packages with AST and go/types. Field types
// are described by shape (TypeExpr) rather than expanded, so a named type is
// a reference to its own TypeSchema.
//
// Key types:
//   - TypeID: package import path + type name
//   - TypeSchema: an annotated struct or variant family with its directives
//   - FieldInfo: field name, visibility, embedding, tag and TypeExpr
//   - TypeExpr: leaf, param, named, pointer, nullable, slice, array, set,
//     map or result
//
// A pointer is "nullable" when it is the declared type of a field and a
// plain pointer anywhere else. Type aliases are expanded.
package analyze
