// Package plan computes the generated partial schema of every annotated
// type and the PartialOf relation between types.
//
// Resolution pipeline:
//  1. Analyze packages → type graph
//  2. Register every annotated struct, family and variant → Registry
//  3. Transform each type (concurrently, each call reads only its inputs):
//     - apply the field-wrapping rule to every field or variant field
//     - append the partial bound to every type parameter
//     - split forwarded capabilities into struct tags and assertions
//  4. Drop types whose fields depend on a type that failed
//  5. Emit diagnostics (schema errors, external leaves, skipped assertions)
package plan
