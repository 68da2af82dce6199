package main

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"go/format"
	"go/types"
	"regexp"
	"strings"
	"text/template"

	"go.uber.org/zap"
)

const (
	iocImportPath   = "github.com/sghaida/odisvc/ioc"
	generatedHeader = "// Code generated by iocgen. DO NOT EDIT."

	registrarFile = "registrar.gen.go"
	standInsFile  = "standins.gen.go"
)

// Artifact is one generated file, named relative to the output directory.
type Artifact struct {
	Name    string
	Content []byte
}

// Generator renders the output package for a set of declarations.
type Generator struct {
	cfg       *Config
	log       *zap.Logger
	contracts contractMatcher
}

// NewGenerator creates a generator.
func NewGenerator(cfg *Config, log *zap.Logger) *Generator {
	return &Generator{
		cfg:       cfg,
		log:       log,
		contracts: contractMatcher{prefixes: cfg.Contracts},
	}
}

// factory pairs a declaration with its generated type and file names.
type factory struct {
	Decl     *Decl
	TypeName string
	File     string
}

// Generate renders every artifact for decls, which must be sorted. A file
// that fails to render is logged and left out; a failed factory is also
// left out of the registrar. No declarations produce no files.
func (g *Generator) Generate(decls []*Decl) []Artifact {
	if len(decls) == 0 {
		g.log.Info("no annotated declarations found, nothing to generate")
		return nil
	}

	var out []Artifact
	var rendered []*factory
	for _, f := range nameFactories(decls) {
		src, err := g.renderFactory(f)
		if err != nil {
			g.log.Error("render failed, declaration left out", zap.String("file", f.File), zap.Error(err))
			continue
		}
		out = append(out, Artifact{Name: f.File, Content: src})
		rendered = append(rendered, f)
	}
	if len(rendered) == 0 {
		return out
	}

	standIns := collectStandIns(declsOf(rendered), g.contracts, g.cfg.OutImport, g.log)
	if len(standIns) > 0 {
		src, err := g.renderStandIns(standIns)
		if err != nil {
			g.log.Error("render failed, stand-ins left out", zap.String("file", standInsFile), zap.Error(err))
			standIns = nil
		} else {
			out = append(out, Artifact{Name: standInsFile, Content: src})
		}
	}

	src, err := g.renderRegistrar(rendered, standIns)
	if err != nil {
		g.log.Error("render failed", zap.String("file", registrarFile), zap.Error(err))
		return out
	}
	return append(out, Artifact{Name: registrarFile, Content: src})
}

func declsOf(fs []*factory) []*Decl {
	out := make([]*Decl, 0, len(fs))
	for _, f := range fs {
		out = append(out, f.Decl)
	}
	return out
}

// nameFactories assigns factory type and file names. Types sharing a name
// across packages get their package name as prefix.
func nameFactories(decls []*Decl) []*factory {
	count := make(map[string]int)
	for _, d := range decls {
		count[d.Name()]++
	}

	taken := make(map[string]bool)
	out := make([]*factory, 0, len(decls))
	for _, d := range decls {
		base := d.Name()
		if count[base] > 1 {
			base = upperFirst(d.Obj.Pkg().Name()) + base
		}
		name := uniqueName(base+"Factory", taken)
		out = append(out, &factory{
			Decl:     d,
			TypeName: name,
			File:     snakeCase(strings.TrimSuffix(name, "Factory")) + "_factory.gen.go",
		})
	}
	return out
}

var (
	snakeLowerUpper = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	snakeAcronym    = regexp.MustCompile(`([A-Z]+)([A-Z][a-z])`)
)

// snakeCase converts FileLog to file_log and HTTPLog to http_log.
func snakeCase(s string) string {
	s = snakeAcronym.ReplaceAllString(s, "${1}_${2}")
	s = snakeLowerUpper.ReplaceAllString(s, "${1}_${2}")
	return strings.ToLower(s)
}

// newExpr builds the expression that creates a fresh implementation.
func newExpr(d *Decl, imports *importSet) string {
	if d.Ctor != nil {
		return imports.objString(d.Ctor) + "()"
	}

	typ := imports.objString(d.Obj)
	_, isStruct := d.Obj.Type().Underlying().(*types.Struct)
	_, isPtr := d.Impl.(*types.Pointer)
	switch {
	case isStruct && isPtr:
		return "&" + typ + "{}"
	case isStruct:
		return typ + "{}"
	case isPtr:
		return "new(" + typ + ")"
	default:
		return "*new(" + typ + ")"
	}
}

func (g *Generator) renderFactory(f *factory) ([]byte, error) {
	imports := newImportSet(g.cfg.OutImport)
	imports.add("reflect", "reflect")

	d := f.Decl
	data := map[string]any{
		"Header":   generatedHeader,
		"Package":  g.cfg.Package,
		"Type":     f.TypeName,
		"Decl":     imports.objString(d.Obj),
		"Contract": imports.typeString(d.Contract),
		"New":      newExpr(d, imports),
		"Impl":     imports.typeString(d.Impl),
	}
	data["Imports"] = imports.specs()
	return render(factoryTpl, data)
}

type registration struct {
	Contract string
	Factory  string
	Priority int
	Impl     string
}

type standInRegistration struct {
	Contract string
	Name     string
}

func (g *Generator) renderRegistrar(fs []*factory, standIns []*standIn) ([]byte, error) {
	imports := newImportSet(g.cfg.OutImport)
	imports.add(iocImportPath, "ioc")

	regs := make([]registration, 0, len(fs))
	for _, f := range fs {
		regs = append(regs, registration{
			Contract: imports.typeString(f.Decl.Contract),
			Factory:  f.TypeName,
			Priority: f.Decl.Priority,
			Impl:     shortTypeString(f.Decl.Impl),
		})
	}

	sis := make([]standInRegistration, 0, len(standIns))
	for _, s := range standIns {
		sis = append(sis, standInRegistration{
			Contract: imports.typeString(s.Contract),
			Name:     s.Name,
		})
	}

	data := map[string]any{
		"Header":        generatedHeader,
		"Hash":          registrationHash(declsOf(fs)),
		"Package":       g.cfg.Package,
		"Name":          g.cfg.OutImport,
		"Imports":       imports.specs(),
		"Registrations": regs,
		"StandIns":      sis,
	}
	return render(registrarTpl, data)
}

type standInData struct {
	Name     string
	Contract string
	Methods  []standInMethod
}

func (g *Generator) renderStandIns(standIns []*standIn) ([]byte, error) {
	imports := newImportSet(g.cfg.OutImport)

	byContract := make(map[string]string, len(standIns))
	for _, s := range standIns {
		byContract[qualifiedName(s.Contract)] = s.Name
	}
	lookup := func(n *types.Named) (string, bool) {
		name, ok := byContract[qualifiedName(n)]
		return name, ok
	}

	items := make([]standInData, 0, len(standIns))
	for _, s := range standIns {
		items = append(items, standInData{
			Name:     s.Name,
			Contract: imports.typeString(s.Contract),
			Methods:  standInMethods(s, imports, lookup),
		})
	}

	data := map[string]any{
		"Header":   generatedHeader,
		"Package":  g.cfg.Package,
		"Imports":  imports.specs(),
		"StandIns": items,
	}
	return render(standInsTpl, data)
}

// registrationHash fingerprints the sorted (contract, implementation,
// priority) triples.
func registrationHash(decls []*Decl) string {
	var b strings.Builder
	for _, d := range decls {
		fmt.Fprintf(&b, "%s\t%s\t%d\n", qualifiedName(d.Contract), qualifiedName(d.Obj.Type()), d.Priority)
	}
	return sha256Hex([]byte(b.String()))
}

// shortTypeString renders t for comments without recording imports.
func shortTypeString(t types.Type) string {
	return types.TypeString(t, func(p *types.Package) string { return p.Name() })
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func render(tpl *template.Template, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute %s template: %w", tpl.Name(), err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("format %s output: %w", tpl.Name(), err)
	}
	return src, nil
}
