package main

import (
	"go/token"
	"go/types"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixtureDecls returns the services fixture declarations in generator order.
func fixtureDecls(t *testing.T) []*Decl {
	t.Helper()
	byName, _ := scanFixture(t)
	decls := make([]*Decl, 0, len(byName))
	for _, d := range byName {
		decls = append(decls, d)
	}
	sortDecls(decls)
	return decls
}

func artifactMap(files []Artifact) map[string]string {
	out := make(map[string]string, len(files))
	for _, f := range files {
		out[f.Name] = string(f.Content)
	}
	return out
}

func TestGenerate_Files(t *testing.T) {
	t.Parallel()

	log, _ := observed()
	files := NewGenerator(testConfig(), log).Generate(fixtureDecls(t))

	var names []string
	for _, f := range files {
		names = append(names, f.Name)
		assert.True(t, strings.HasPrefix(string(f.Content), generatedHeader+"\n"), f.Name)
	}
	assert.Equal(t, []string{
		"counter_factory.gen.go",
		"standalone_factory.gen.go",
		"both_factory.gen.go",
		"console_log_factory.gen.go",
		"file_log_factory.gen.go",
		"metrics_factory.gen.go",
		"toaster_factory.gen.go",
		standInsFile,
		registrarFile,
	}, names)
}

func TestGenerate_Factories(t *testing.T) {
	t.Parallel()

	log, _ := observed()
	got := artifactMap(NewGenerator(testConfig(), log).Generate(fixtureDecls(t)))

	fileLog := got["file_log_factory.gen.go"]
	assertContainsInOrder(t, fileLog,
		"package iocgen",
		`"reflect"`,
		`"example.com/app/contracts"`,
		`"example.com/app/services"`,
		"// FileLogFactory builds services.FileLog for contracts.LogService.",
		"type FileLogFactory struct{}",
		"func (FileLogFactory) NewInstance() contracts.LogService {",
		"return services.NewFileLog()",
		"func (FileLogFactory) Implementation() reflect.Type {",
		"return reflect.TypeFor[*services.FileLog]()",
	)

	console := got["console_log_factory.gen.go"]
	assert.Contains(t, console, "return services.ConsoleLog{}")
	assert.Contains(t, console, "reflect.TypeFor[services.ConsoleLog]()")

	assert.Contains(t, got["toaster_factory.gen.go"], "return &services.Toaster{}")

	counter := got["counter_factory.gen.go"]
	assert.Contains(t, counter, "func (CounterFactory) NewInstance() *services.Counter {")
	assert.Contains(t, counter, "return new(services.Counter)")
	assert.NotContains(t, counter, "example.com/app/contracts")
}

func TestGenerate_Registrar(t *testing.T) {
	t.Parallel()

	decls := fixtureDecls(t)
	log, _ := observed()
	reg := artifactMap(NewGenerator(testConfig(), log).Generate(decls))[registrarFile]

	assertContainsInOrder(t, reg,
		generatedHeader,
		"// iocgen:sha256 "+registrationHash(decls),
		"package iocgen",
		`"example.com/app/contracts"`,
		`"example.com/app/services"`,
		`"github.com/sghaida/odisvc/ioc"`,
		`func (Registrar) Name() string { return "example.com/app/internal/iocgen" }`,
		"func (Registrar) Register(r *ioc.Registry) {",
		"ioc.RegisterStandIn[contracts.LogService](r, func() contracts.LogService { return logServiceStandIn{} })",
		"ioc.RegisterStandIn[contracts.MetricsService](r, func() contracts.MetricsService { return metricsServiceStandIn{} })",
		"ioc.RegisterStandIn[contracts.ToastService](r, func() contracts.ToastService { return toastServiceStandIn{} })",
		"ioc.Register[*services.Counter](r, CounterFactory{}, 0)",
		"ioc.Register[*services.Standalone](r, StandaloneFactory{}, 1)",
		"ioc.Register[contracts.LogService](r, BothFactory{}, -3)",
		"ioc.Register[contracts.LogService](r, ConsoleLogFactory{}, 0)",
		"ioc.Register[contracts.LogService](r, FileLogFactory{}, 10)",
		"ioc.Register[contracts.MetricsService](r, MetricsFactory{}, 2)",
		"ioc.Register[contracts.ToastService](r, ToasterFactory{}, 4)",
		"func init() {",
		"ioc.AddRegistrar(Registrar{})",
	)
}

func TestGenerate_StandIns(t *testing.T) {
	t.Parallel()

	log, _ := observed()
	src := artifactMap(NewGenerator(testConfig(), log).Generate(fixtureDecls(t)))[standInsFile]

	assertContainsInOrder(t, src,
		"package iocgen",
		`"example.com/app/contracts"`,
		"type logServiceStandIn struct{}",
		"var _ contracts.LogService = logServiceStandIn{}",
		"func (logServiceStandIn) IsAvailable() bool {\n\treturn false\n}",
		"func (logServiceStandIn) Level() int {\n\treturn 0\n}",
		"func (logServiceStandIn) Log(_ string) {",
		"func (logServiceStandIn) Logger(_ string) contracts.LogService {\n\treturn logServiceStandIn{}\n}",
		"type metricsServiceStandIn struct{}",
		"type toastServiceStandIn struct{}",
		"return false, nil",
	)
}

func TestGenerate_Deterministic(t *testing.T) {
	t.Parallel()

	log, _ := observed()
	g := NewGenerator(testConfig(), log)
	first := g.Generate(fixtureDecls(t))
	second := g.Generate(fixtureDecls(t))
	assert.Equal(t, first, second)
}

func TestGenerate_Empty(t *testing.T) {
	t.Parallel()

	log, logs := observed()
	assert.Empty(t, NewGenerator(testConfig(), log).Generate(nil))
	assert.Equal(t, 1, logs.FilterMessage("no annotated declarations found, nothing to generate").Len())
}

func TestRegistrationHash(t *testing.T) {
	t.Parallel()

	decls := fixtureDecls(t)
	h := registrationHash(decls)
	assert.Len(t, h, 64)
	assert.Equal(t, h, registrationHash(fixtureDecls(t)))

	changed := *decls[0]
	changed.Priority++
	other := append([]*Decl{&changed}, decls[1:]...)
	assert.NotEqual(t, h, registrationHash(other))
}

func fakeDecl(pkgPath, pkgName, name string) *Decl {
	pkg := types.NewPackage(pkgPath, pkgName)
	obj := types.NewTypeName(token.NoPos, pkg, name, nil)
	named := types.NewNamed(obj, types.NewStruct(nil, nil), nil)
	return &Decl{Obj: obj, Contract: types.NewPointer(named), Impl: types.NewPointer(named)}
}

func TestNameFactories(t *testing.T) {
	t.Parallel()

	got := nameFactories([]*Decl{
		fakeDecl("example.com/app/legacy", "legacy", "FileLog"),
		fakeDecl("example.com/app/services", "services", "FileLog"),
		fakeDecl("example.com/app/services", "services", "HTTPToast"),
	})
	require.Len(t, got, 3)

	assert.Equal(t, "LegacyFileLogFactory", got[0].TypeName)
	assert.Equal(t, "legacy_file_log_factory.gen.go", got[0].File)
	assert.Equal(t, "ServicesFileLogFactory", got[1].TypeName)
	assert.Equal(t, "services_file_log_factory.gen.go", got[1].File)
	assert.Equal(t, "HTTPToastFactory", got[2].TypeName)
	assert.Equal(t, "http_toast_factory.gen.go", got[2].File)
}

func TestSnakeCase(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]string{
		"FileLog":         "file_log",
		"Toaster":         "toaster",
		"HTTPLog":         "http_log",
		"ServicesFileLog": "services_file_log",
		"V2Log":           "v2_log",
		"URL":             "url",
	} {
		assert.Equal(t, want, snakeCase(in), in)
	}
}

func TestNewExpr(t *testing.T) {
	t.Parallel()

	pkg := types.NewPackage("example.com/app/services", "services")
	mk := func(name string, underlying types.Type) (*types.TypeName, *types.Named) {
		obj := types.NewTypeName(token.NoPos, pkg, name, nil)
		return obj, types.NewNamed(obj, underlying, nil)
	}
	sObj, sNamed := mk("Svc", types.NewStruct(nil, nil))
	iObj, iNamed := mk("Count", types.Typ[types.Int])
	ctor := types.NewFunc(token.NoPos, pkg, "NewSvc", types.NewSignatureType(nil, nil, nil, nil, nil, false))

	tests := []struct {
		name string
		decl *Decl
		want string
	}{
		{name: "ctor", decl: &Decl{Obj: sObj, Impl: types.NewPointer(sNamed), Ctor: ctor}, want: "services.NewSvc()"},
		{name: "struct_pointer", decl: &Decl{Obj: sObj, Impl: types.NewPointer(sNamed)}, want: "&services.Svc{}"},
		{name: "struct_value", decl: &Decl{Obj: sObj, Impl: sNamed}, want: "services.Svc{}"},
		{name: "basic_pointer", decl: &Decl{Obj: iObj, Impl: types.NewPointer(iNamed)}, want: "new(services.Count)"},
		{name: "basic_value", decl: &Decl{Obj: iObj, Impl: iNamed}, want: "*new(services.Count)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, newExpr(tt.decl, newImportSet(testModule+"/internal/iocgen")))
		})
	}
}

func TestImportSet(t *testing.T) {
	t.Parallel()

	s := newImportSet(testModule + "/internal/iocgen")
	assert.Equal(t, "ioc", s.add(iocImportPath, "ioc"))
	assert.Equal(t, "contracts", s.add("example.com/a/contracts", "contracts"))
	assert.Equal(t, "contracts2", s.add("example.com/b/contracts", "contracts"))
	assert.Equal(t, "contracts", s.add("example.com/a/contracts", "contracts"), "stable per path")
	assert.Equal(t, "yaml", s.add("gopkg.in/yaml.v3", "yaml"))
	assert.Equal(t, "", s.add(testModule+"/internal/iocgen", "iocgen"), "own package is unqualified")

	assert.Equal(t, []importSpec{
		{Path: "example.com/a/contracts"},
		{Alias: "contracts2", Path: "example.com/b/contracts"},
		{Path: iocImportPath},
		{Alias: "yaml", Path: "gopkg.in/yaml.v3"},
	}, s.specs())

	local := types.NewPackage(testModule+"/internal/iocgen", "iocgen")
	obj := types.NewTypeName(token.NoPos, local, "Registrar", nil)
	assert.Equal(t, "Registrar", s.objString(obj))
}

func TestShortTypeString(t *testing.T) {
	t.Parallel()

	d := fakeDecl("example.com/app/services", "services", "FileLog")
	assert.Equal(t, "*services.FileLog", shortTypeString(d.Impl))
}
