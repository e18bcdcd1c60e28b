package directive

import (
	"fmt"
	"go/token"
	"reflect"
	"slices"
	"strings"

	"partial-generator/internal/diagnostic"
	"partial-generator/internal/match"
)

const (
	// CommentPrefix starts every comment directive.
	CommentPrefix = "//partial:"
	// GenerateName is the only comment directive: it marks a type for generation.
	GenerateName = "generate"
	// TagKey is the struct tag key holding field directives.
	TagKey = "partial"
	// DefaultSuffix is appended to a type name when nothing overrides it.
	DefaultSuffix = "Opt"
)

// Directive keys.
const (
	KeyDerive   = "derive"
	KeySuffix   = "suffix"
	KeyRequired = "required"
)

var (
	typeKeys  = []string{KeyDerive, KeySuffix}
	fieldKeys = []string{KeyRequired}
	allKeys   = []string{KeyDerive, KeySuffix, KeyRequired}
)

// Capability is a capability name forwarded to a generated type. A
// qualified capability (fmt.Stringer) carries the import path its qualifier
// resolved to.
type Capability struct {
	Name    string
	Alias   string
	PkgPath string
}

// Qualified reports whether the capability names a type in another package.
func (c Capability) Qualified() bool {
	return c.Alias != ""
}

// String returns the capability as written.
func (c Capability) String() string {
	if c.Alias == "" {
		return c.Name
	}

	return c.Alias + "." + c.Name
}

// TypeDirectives are the directives attached to an annotated type.
type TypeDirectives struct {
	// Capabilities in first-seen order, without duplicates.
	Capabilities []Capability
	// Suffix overrides the generated name suffix; empty when not set.
	Suffix string
}

// SuffixOr returns the directive suffix, or def when none was given.
func (d TypeDirectives) SuffixOr(def string) string {
	if d.Suffix != "" {
		return d.Suffix
	}

	if def != "" {
		return def
	}

	return DefaultSuffix
}

// WithDefaults returns a copy with the given capabilities added after the
// ones already present.
func (d TypeDirectives) WithDefaults(caps []Capability) TypeDirectives {
	out := TypeDirectives{Suffix: d.Suffix}
	out.Capabilities = append(out.Capabilities, d.Capabilities...)

	for _, c := range caps {
		out.addCapability(c)
	}

	return out
}

func (d *TypeDirectives) addCapability(c Capability) {
	for _, have := range d.Capabilities {
		if have.PkgPath == c.PkgPath && have.Name == c.Name {
			return
		}
	}

	d.Capabilities = append(d.Capabilities, c)
}

// FieldDirectives are the directives attached to a struct field.
type FieldDirectives struct {
	// Required fields are copied unchanged instead of being wrapped.
	Required bool
}

// Error is a directive problem. Code is one of the diagnostic codes
// CodeInvalidDirective or CodeDirectivePosition.
type Error struct {
	Code        string
	Key         string
	Message     string
	Suggestions []string
	// Line is the index of the offending comment line, -1 for struct tags.
	Line int
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func invalid(key, format string, args ...any) *Error {
	return &Error{
		Code:    diagnostic.CodeInvalidDirective,
		Key:     key,
		Message: "invalid directive: " + fmt.Sprintf(format, args...),
		Line:    -1,
	}
}

func misplaced(key, where string) *Error {
	return &Error{
		Code:    diagnostic.CodeDirectivePosition,
		Key:     key,
		Message: fmt.Sprintf("directive not supported at this position: %q is not allowed on %s", key, where),
		Line:    -1,
	}
}

func unknownKey(key string, known []string) *Error {
	e := invalid(key, "unknown key %q", key)
	e.Suggestions = match.Suggest(key, known)

	return e
}

// ImportResolver maps a package qualifier used in a source file to its
// import path.
type ImportResolver func(alias string) (pkgPath string, ok bool)

// IsDirective reports whether a comment line is a partial directive.
func IsDirective(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), CommentPrefix)
}

// ParseType parses the directive comment lines of a type declaration.
// Lines that are not partial directives are ignored. All problems are
// returned, not only the first.
func ParseType(lines []string, resolve ImportResolver) (TypeDirectives, []*Error) {
	var (
		out  TypeDirectives
		errs []*Error
	)

	for i, line := range lines {
		start := len(errs)

		args, err := splitDirective(line)
		if err != nil {
			err.Line = i
			errs = append(errs, err)

			continue
		}

		if args == nil {
			continue
		}

		for _, arg := range args {
			key, value, hasValue := strings.Cut(arg, "=")

			switch key {
			case KeyDerive:
				if !hasValue || value == "" {
					errs = append(errs, invalid(key, "derive needs a comma separated list of capabilities"))
					continue
				}

				for _, raw := range strings.Split(value, ",") {
					c, err := ParseCapability(raw, resolve)
					if err != nil {
						errs = append(errs, err)
						continue
					}

					out.addCapability(c)
				}
			case KeySuffix:
				if err := validateSuffix(value); err != nil {
					errs = append(errs, err)
					continue
				}

				out.Suffix = value
			case KeyRequired:
				errs = append(errs, misplaced(key, "a type"))
			default:
				errs = append(errs, unknownKey(key, typeKeys))
			}
		}

		atLine(errs[start:], i)
	}

	return out, errs
}

func atLine(errs []*Error, line int) {
	for _, e := range errs {
		e.Line = line
	}
}

// splitDirective returns the arguments of a generate directive, nil for a
// line that is not a directive, or an error for an unknown directive name.
func splitDirective(line string) ([]string, *Error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, CommentPrefix) {
		return nil, nil
	}

	fields := strings.Fields(strings.TrimPrefix(line, CommentPrefix))
	if len(fields) == 0 || fields[0] != GenerateName {
		name := ""
		if len(fields) > 0 {
			name = fields[0]
		}

		e := invalid(name, "unknown directive %q", CommentPrefix+name)
		e.Suggestions = prefixed(match.Suggest(name, []string{GenerateName}))

		return nil, e
	}

	return append([]string{}, fields[1:]...), nil
}

func prefixed(names []string) []string {
	for i := range names {
		names[i] = CommentPrefix + names[i]
	}

	return names
}

// ParseCapability parses a capability name: an identifier, or qualifier.Ident
// where the qualifier is an import of the declaring file.
func ParseCapability(raw string, resolve ImportResolver) (Capability, *Error) {
	raw = strings.TrimSpace(raw)

	alias, name, qualified := strings.Cut(raw, ".")
	if !qualified {
		if !token.IsIdentifier(raw) {
			return Capability{}, invalid(KeyDerive, "malformed capability name %q", raw)
		}

		return Capability{Name: raw}, nil
	}

	if !token.IsIdentifier(alias) || !token.IsIdentifier(name) {
		return Capability{}, invalid(KeyDerive, "malformed capability name %q", raw)
	}

	if !token.IsExported(name) {
		return Capability{}, invalid(KeyDerive, "capability %q is not exported", raw)
	}

	if resolve == nil {
		return Capability{}, invalid(KeyDerive, "capability %q: package %q is not imported", raw, alias)
	}

	pkgPath, ok := resolve(alias)
	if !ok {
		return Capability{}, invalid(KeyDerive, "capability %q: package %q is not imported", raw, alias)
	}

	return Capability{Name: name, Alias: alias, PkgPath: pkgPath}, nil
}

func validateSuffix(s string) *Error {
	if s == "" {
		return invalid(KeySuffix, "suffix needs a value")
	}

	// The suffix is appended to an identifier, so "X"+s must still be one.
	if !token.IsIdentifier("X" + s) {
		return invalid(KeySuffix, "suffix %q is not a valid identifier part", s)
	}

	return nil
}

// ParseField parses the directives of a struct field: its partial struct tag
// and any comment directives written on it.
func ParseField(tag reflect.StructTag, comments []string) (FieldDirectives, []*Error) {
	var (
		out  FieldDirectives
		errs []*Error
	)

	if value, ok := tag.Lookup(TagKey); ok {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			key, _, hasValue := strings.Cut(part, "=")

			switch key {
			case "":
			case KeyRequired:
				if hasValue {
					errs = append(errs, invalid(key, "%q is a flag and takes no value, got %q", key, part))
					continue
				}

				out.Required = true
			case KeyDerive, KeySuffix:
				errs = append(errs, misplaced(key, "a field"))
			default:
				errs = append(errs, unknownKey(key, fieldKeys))
			}
		}
	}

	errs = append(errs, rejectComments(comments, "a field")...)

	return out, errs
}

// ParseVariant rejects comment directives on a variant of a family; variants
// take their directives from the family.
func ParseVariant(comments []string) []*Error {
	return rejectComments(comments, "a variant")
}

func rejectComments(comments []string, where string) []*Error {
	var errs []*Error

	for i, line := range comments {
		args, err := splitDirective(line)
		if err != nil {
			err.Line = i
			errs = append(errs, err)
			continue
		}

		if args == nil {
			continue
		}

		start := len(errs)

		if len(args) == 0 {
			errs = append(errs, misplaced(GenerateName, where))
		}

		for _, arg := range args {
			key, _, _ := strings.Cut(arg, "=")
			if !slices.Contains(allKeys, key) {
				errs = append(errs, unknownKey(key, allKeys))
				continue
			}

			errs = append(errs, misplaced(key, where))
		}

		atLine(errs[start:], i)
	}

	return errs
}
