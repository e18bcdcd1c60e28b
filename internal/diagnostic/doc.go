// Package diagnostic provides structured errors, warnings and notes for the
// partial generator.
//
// Every diagnostic carries a stable code, the annotated type it belongs to,
// the field path (if any) and the source position of the offending
// declaration or directive. Errors are fatal for the type they name; a type
// with errors is never emitted.
package diagnostic
