package gen

import "text/template"

// Header is the first line of every generated file.
const Header = "// Code generated by partial-generator. DO NOT EDIT."

var fileTemplate = template.Must(template.New("file").Parse(`
{{- define "struct" -}}
// {{.Name}} is the partial form of {{.Source}}. A nil field is absent.
type {{.Name}}{{.TypeParams}} struct {
{{- range .Fields}}
	{{.Decl}}
{{- end}}
}

// {{.Converter}} returns the converter between {{.SourceRef}} and {{.Ref}}.
func {{.Converter}}{{.TypeParams}}({{.ConvParams}}) {{.RT}}.Converter[{{.SourceRef}}, {{.Ref}}] {
	return {{.ConverterType}}{{.TypeArgs}}{ {{- .ConvInit -}} }
}

type {{.ConverterType}}{{.TypeParams}} struct {
{{- range .ConvFields}}
	{{.Name}} {{.Type}}
{{- end}}
}

func (c {{.ConverterType}}{{.TypeArgs}}) IntoPartial(v {{.SourceRef}}) {{.Ref}} {
	return {{.Ref}}{
{{- range .Fields}}
		{{.Name}}: {{.Into}},
{{- end}}
	}
}

func (c {{.ConverterType}}{{.TypeArgs}}) FromPartial(p {{.Ref}}) ({{.SourceRef}}, error) {
	var errs {{.RT}}.Errors

	v := {{.SourceRef}}{
{{- range .Fields}}
		{{.SourceName}}: {{.From}},
{{- end}}
	}

	if err := errs.Err(); err != nil {
		return {{.SourceRef}}{}, err
	}

	return v, nil
}

func (c {{.ConverterType}}{{.TypeArgs}}) Merge(dst *{{.SourceRef}}, p {{.Ref}}) error {
	var errs {{.RT}}.Errors
{{range .Fields}}
	{{.Merge}}
{{- end}}

	return errs.Err()
}

// IntoPartial returns p itself: the partial form of a partial type is the
// type itself.
func (p {{.Ref}}) IntoPartial() {{.Ref}} {
	return p
}
{{- if not .Generic}}

// IntoPartial returns the partial form of v.
func (v {{.Source}}) IntoPartial() {{.Name}} {
	return {{.Converter}}().IntoPartial(v)
}

// Merge applies the fields present in p to v. Fields applied before a
// failing field stay applied.
func (v *{{.Source}}) Merge(p {{.Name}}) error {
	return {{.Converter}}().Merge(v, p)
}

// {{.FromFunc}} rebuilds a {{.Source}} from p, reporting every missing field.
func {{.FromFunc}}(p {{.Name}}) ({{.Source}}, error) {
	return {{.Converter}}().FromPartial(p)
}

var (
	_ {{.RT}}.Of[{{.Name}}] = {{.Source}}{}
	_ {{.RT}}.Of[{{.Name}}] = {{.Name}}{}
{{- range .Assertions}}
	_ {{.}} = {{$.Name}}{}
{{- end}}
)
{{- end}}
{{end -}}

{{- define "family" -}}
// {{.Name}} is the partial form of {{.Source}}. It holds the partial form of
// at most one variant; the zero value holds none.
type {{.Name}} struct {
{{- range .Variants}}
	{{.Decl}}
{{- end}}
}

// {{.Converter}} returns the converter between {{.Source}} and {{.Name}}.
// Values that are not a known variant map to the zero {{.Name}}.
func {{.Converter}}() {{.RT}}.Converter[{{.Source}}, {{.Name}}] {
	return {{.ConverterType}}{}
}

type {{.ConverterType}} struct{}

func ({{.ConverterType}}) IntoPartial(v {{.Source}}) {{.Name}} {
	switch v := v.(type) {
{{- range .Variants}}
	case {{.Source}}:
{{- if .Empty}}
		return {{$.Name}}{ {{- .Field}}: &v}
{{- else}}
		return {{$.Name}}{ {{- .Field}}: {{$.RT}}.Wrap({{.Converter}}(), v)}
{{- end}}
{{- end}}
	default:
		return {{.Name}}{}
	}
}

func ({{.ConverterType}}) FromPartial(p {{.Name}}) ({{.Source}}, error) {
	i, err := {{.RT}}.Variant({{.Present}})
	if err != nil {
		return nil, err
	}

	switch i {
{{- range .Variants}}
	case {{.Index}}:
{{- if .Empty}}
		return *p.{{.Field}}, nil
{{- else}}
		v, err := {{.Converter}}().FromPartial(*p.{{.Field}})
		if err != nil {
			return nil, err
		}

		return v, nil
{{- end}}
{{- end}}
	default:
		return nil, nil
	}
}

// Merge merges p into the current variant when both are the same variant
// and replaces the value otherwise. The zero {{.Name}} leaves dst untouched.
func ({{.ConverterType}}) Merge(dst *{{.Source}}, p {{.Name}}) error {
	i, err := {{.RT}}.Variant({{.Present}})
	if err != nil {
		return err
	}

	switch i {
{{- range .Variants}}
	case {{.Index}}:
{{- if .Empty}}
		*dst = *p.{{.Field}}
{{- else}}
		if cur, ok := (*dst).({{.Source}}); ok {
			err := {{.Converter}}().Merge(&cur, *p.{{.Field}})
			*dst = cur

			return err
		}

		v, err := {{.Converter}}().FromPartial(*p.{{.Field}})
		if err != nil {
			return err
		}

		*dst = v
{{- end}}
{{- end}}
	}

	return nil
}

// IntoPartial returns p itself: the partial form of a partial type is the
// type itself.
func (p {{.Name}}) IntoPartial() {{.Name}} {
	return p
}

// {{.FromFunc}} rebuilds a {{.Source}} from p. The zero {{.Name}} yields nil.
func {{.FromFunc}}(p {{.Name}}) ({{.Source}}, error) {
	return {{.Converter}}().FromPartial(p)
}

var (
	_ {{.RT}}.Of[{{.Name}}] = {{.Name}}{}
{{- range .Assertions}}
	_ {{.}} = {{$.Name}}{}
{{- end}}
)
{{end -}}

{{.Header}}

package {{.Package}}

import (
{{- range .Imports}}
{{- if .Break}}
{{end}}
	{{if .Explicit}}{{.Alias}} {{end}}"{{.Path}}"
{{- end}}
)
{{range .Decls}}
{{if .Family}}{{template "family" .Family}}{{else}}{{template "struct" .Struct}}{{end}}
{{- end}}
`))
