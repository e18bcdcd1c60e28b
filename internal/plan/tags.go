package plan

import (
	"reflect"
	"slices"
	"strconv"
	"strings"

	"partial-generator/internal/directive"
)

type tagPair struct {
	key   string
	value string
}

// parseTag splits a struct tag into its key:"value" pairs, in order. It
// follows the conventional format read by reflect.StructTag.Get and stops at
// the first malformed pair.
func parseTag(tag reflect.StructTag) []tagPair {
	var out []tagPair

	s := string(tag)
	for s != "" {
		s = strings.TrimLeft(s, " ")
		if s == "" {
			break
		}

		i := 0
		for i < len(s) && s[i] > ' ' && s[i] != ':' && s[i] != '"' && s[i] != 0x7f {
			i++
		}

		if i == 0 || i+1 >= len(s) || s[i] != ':' || s[i+1] != '"' {
			break
		}

		key := s[:i]
		s = s[i+1:]

		i = 1
		for i < len(s) && s[i] != '"' {
			if s[i] == '\\' {
				i++
			}
			i++
		}

		if i >= len(s) {
			break
		}

		value, err := strconv.Unquote(s[:i+1])
		if err != nil {
			break
		}

		out = append(out, tagPair{key: key, value: value})
		s = s[i+1:]
	}

	return out
}

func renderTag(pairs []tagPair) string {
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, p.key+":"+strconv.Quote(p.value))
	}

	return strings.Join(parts, " ")
}

// requiredTag returns the tag of a field copied unchanged: the original tag
// without the partial key.
func requiredTag(tag reflect.StructTag) string {
	var out []tagPair

	for _, p := range parseTag(tag) {
		if p.key != directive.TagKey {
			out = append(out, p)
		}
	}

	return renderTag(out)
}

// wrappedTag returns the tag of a wrapped field. Every serialization key gets
// omitempty so an absent field is left out rather than written as null; a
// key missing from the original tag is added with the field name. Fields
// excluded with "-" stay excluded.
func wrappedTag(tag reflect.StructTag, name string, named bool, keys []string) string {
	pairs := parseTag(tag)

	var out []tagPair

	for _, p := range pairs {
		if p.key == directive.TagKey {
			continue
		}

		if slices.Contains(keys, p.key) {
			p.value = withOmitEmpty(p.value, name)
		}

		out = append(out, p)
	}

	if !named {
		return renderTag(out)
	}

	for _, k := range keys {
		if _, ok := tag.Lookup(k); !ok {
			out = append(out, tagPair{key: k, value: name + ",omitempty"})
		}
	}

	return renderTag(out)
}

func withOmitEmpty(value, name string) string {
	if value == "-" {
		return value
	}

	tagName, opts, _ := strings.Cut(value, ",")
	if tagName == "" {
		tagName = name
	}

	if slices.Contains(strings.Split(opts, ","), "omitempty") {
		return value
	}

	if opts == "" {
		return tagName + ",omitempty"
	}

	return tagName + "," + opts + ",omitempty"
}
