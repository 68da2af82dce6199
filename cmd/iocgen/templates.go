package main

import "text/template"

// -------------------------
// Templates
// -------------------------

var factoryTpl = template.Must(template.New("factory").Parse(`{{ .Header }}

package {{ .Package }}

import (
{{- range .Imports }}
	{{- if .Break }}
{{ end }}
	{{- if .Alias }}
	{{ .Alias }} "{{ .Path }}"
	{{- else }}
	"{{ .Path }}"
	{{- end }}
{{- end }}
)

// {{ .Type }} builds {{ .Decl }} for {{ .Contract }}.
type {{ .Type }} struct{}

// NewInstance implements ioc.Constructor.
func ({{ .Type }}) NewInstance() {{ .Contract }} {
	return {{ .New }}
}

// Implementation implements ioc.Implementation.
func ({{ .Type }}) Implementation() reflect.Type {
	return reflect.TypeFor[{{ .Impl }}]()
}
`))

var registrarTpl = template.Must(template.New("registrar").Parse(`{{ .Header }}
// iocgen:sha256 {{ .Hash }}

package {{ .Package }}

import (
{{- range .Imports }}
	{{- if .Break }}
{{ end }}
	{{- if .Alias }}
	{{ .Alias }} "{{ .Path }}"
	{{- else }}
	"{{ .Path }}"
	{{- end }}
{{- end }}
)

// Registrar registers every implementation annotated with //ioc:inject.
type Registrar struct{}

// Name implements ioc.Registrar.
func (Registrar) Name() string { return "{{ .Name }}" }

// Register implements ioc.Registrar.
func (Registrar) Register(r *ioc.Registry) {
{{- range .StandIns }}
	ioc.RegisterStandIn[{{ .Contract }}](r, func() {{ .Contract }} { return {{ .Name }}{} })
{{- end }}
{{- if and .StandIns .Registrations }}
{{ end }}
{{- range .Registrations }}
	ioc.Register[{{ .Contract }}](r, {{ .Factory }}{}, {{ .Priority }}) // {{ .Impl }}
{{- end }}
}

func init() {
	ioc.AddRegistrar(Registrar{})
}
`))

var standInsTpl = template.Must(template.New("standins").Parse(`{{ .Header }}

package {{ .Package }}

{{- if .Imports }}

import (
{{- range .Imports }}
	{{- if .Break }}
{{ end }}
	{{- if .Alias }}
	{{ .Alias }} "{{ .Path }}"
	{{- else }}
	"{{ .Path }}"
	{{- end }}
{{- end }}
)
{{- end }}
{{ range .StandIns }}
{{- $s := . }}
// {{ .Name }} stands in for {{ .Contract }} when its constructor returns nil.
type {{ .Name }} struct{}

var _ {{ .Contract }} = {{ .Name }}{}
{{ range .Methods }}
func ({{ $s.Name }}) {{ .Name }}({{ .Params }}) {{ .Results }} {
{{- if .Return }}
	return {{ .Return }}
{{- end }}
}
{{ end }}
{{- end }}
`))
