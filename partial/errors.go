package partial

import (
	"errors"
	"fmt"
	"strings"
)

// MissingFields reports the field paths that prevented rebuilding a full
// value from a partial one. Paths are kept in discovery order and are not
// deduplicated.
type MissingFields struct {
	Fields []string
}

// Missing returns a MissingFields naming the given paths.
func Missing(fields ...string) *MissingFields {
	return &MissingFields{Fields: fields}
}

// Error implements error.
func (e *MissingFields) Error() string {
	return "missing fields: " + strings.Join(e.Fields, ", ")
}

// Concat returns a new MissingFields listing the fields of e followed by the
// fields of other. Either side may be nil.
func (e *MissingFields) Concat(other *MissingFields) *MissingFields {
	var out MissingFields
	if e != nil {
		out.Fields = append(out.Fields, e.Fields...)
	}

	if other != nil {
		out.Fields = append(out.Fields, other.Fields...)
	}

	return &out
}

// Errors accumulates conversion failures across the fields of a value so a
// caller sees every missing field at once instead of the first one.
// The zero value is ready to use.
type Errors struct {
	missing []string
	other   []error
}

// Missing records a missing field.
func (e *Errors) Missing(path string) {
	e.missing = append(e.missing, path)
}

// Add records err under the given path segment. Missing fields found below
// the segment are re-rooted at it (Street becomes Address.Street); any other
// error is wrapped with the segment. A nil err is ignored.
func (e *Errors) Add(segment string, err error) {
	if err == nil {
		return
	}

	var rest []error

	for _, leaf := range flatten(err) {
		var mf *MissingFields
		if errors.As(leaf, &mf) {
			for _, f := range mf.Fields {
				e.missing = append(e.missing, joinPath(segment, f))
			}

			continue
		}

		rest = append(rest, leaf)
	}

	for _, r := range rest {
		if segment == "" {
			e.other = append(e.other, r)
		} else {
			e.other = append(e.other, fmt.Errorf("%s: %w", segment, r))
		}
	}
}

// Err returns nil when nothing was recorded, a *MissingFields when only
// missing fields were recorded, and a joined error otherwise.
func (e *Errors) Err() error {
	if len(e.missing) == 0 && len(e.other) == 0 {
		return nil
	}

	if len(e.other) == 0 {
		return &MissingFields{Fields: append([]string(nil), e.missing...)}
	}

	errs := make([]error, 0, len(e.other)+1)
	if len(e.missing) > 0 {
		errs = append(errs, &MissingFields{Fields: append([]string(nil), e.missing...)})
	}

	errs = append(errs, e.other...)

	return errors.Join(errs...)
}

// flatten unpacks errors produced by errors.Join so each part can be
// re-rooted on its own.
func flatten(err error) []error {
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return []error{err}
	}

	var out []error
	for _, e := range joined.Unwrap() {
		out = append(out, flatten(e)...)
	}

	return out
}

func joinPath(segment, path string) string {
	switch {
	case segment == "":
		return path
	case path == "":
		return segment
	case strings.HasPrefix(path, "["):
		return segment + path
	default:
		return segment + "." + path
	}
}

func index(i int) string {
	return fmt.Sprintf("[%d]", i)
}

func key[K comparable](k K) string {
	return fmt.Sprintf("[%v]", k)
}
