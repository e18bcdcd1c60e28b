// Package gen renders a resolved plan into Go source, one file per package.
//
// Each generated struct comes with:
//   - the partial struct, every non-required field wrapped in a pointer
//   - a converter constructor returning partial.Converter[T, TOpt]
//   - IntoPartial and Merge methods on the source type and a FromPartial
//     function (non-generic types only)
//   - compile-time assertions for the partial.Of relations and the
//     declared capabilities
//
// A variant family becomes a struct with one pointer field per variant, at
// most one of them set, so it encodes as a tagged object. Generic types take
// one converter argument per type parameter.
//
// Output is assembled with text/template and formatted with
// golang.org/x/tools/imports.
package gen
