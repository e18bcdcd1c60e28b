// Package directive parses the directives that drive partial generation.
//
// Type directives are comment lines on the type declaration:
//
//	//partial:generate derive=json,fmt.Stringer suffix=Patch
//
// Field directives live in the struct tag:
//
//	Name string `partial:"required"`
//
// Recognized keys:
//   - derive: capabilities forwarded to the generated type (type level)
//   - suffix: generated name suffix, "Opt" by default (type level)
//   - required: copy the field unchanged (field level)
package directive
