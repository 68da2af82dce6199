package main

import (
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/tools/go/packages"
)

const testModule = "example.com/app"

// pkgHarness is a throwaway module on disk.
type pkgHarness struct {
	t   *testing.T
	dir string
}

func newPkg(t *testing.T) *pkgHarness {
	t.Helper()
	return &pkgHarness{t: t, dir: t.TempDir()}
}

func (p *pkgHarness) write(rel, content string) string {
	p.t.Helper()
	path := filepath.Join(p.dir, filepath.FromSlash(rel))
	mustWriteFile(p.t, path, content)
	return path
}

func (p *pkgHarness) path(rel string) string {
	return filepath.Join(p.dir, filepath.FromSlash(rel))
}

func (p *pkgHarness) read(rel string) string {
	p.t.Helper()
	return mustReadString(p.t, p.path(rel))
}

func writeGoMod(p *pkgHarness) {
	p.write("go.mod", "module "+testModule+"\n\ngo 1.22\n")
}

func mustWriteFile(t testing.TB, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func mustReadString(t testing.TB, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func assertContainsInOrder(t testing.TB, s string, parts ...string) {
	t.Helper()
	pos := 0
	for _, p := range parts {
		i := strings.Index(s[pos:], p)
		if i < 0 {
			t.Fatalf("expected to find %q after pos=%d in:\n%s", p, pos, s)
		}
		pos += i + len(p)
	}
}

func observed() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

// srcPkg is one in-memory package for checkPackages.
type srcPkg struct {
	path string
	src  string
}

type importerFunc func(path string) (*types.Package, error)

func (f importerFunc) Import(path string) (*types.Package, error) { return f(path) }

// checkPackages parses and type-checks pkgs in order, each able to import
// the ones before it and the standard library, and wraps them the way
// go/packages would.
func checkPackages(t *testing.T, pkgs ...srcPkg) map[string]*packages.Package {
	t.Helper()

	fset := token.NewFileSet()
	std := importer.ForCompiler(fset, "source", nil)
	out := make(map[string]*packages.Package, len(pkgs))
	imp := importerFunc(func(path string) (*types.Package, error) {
		if p, ok := out[path]; ok {
			return p.Types, nil
		}
		return std.Import(path)
	})

	for _, sp := range pkgs {
		f, err := parser.ParseFile(fset, sp.path+"/src.go", sp.src, parser.ParseComments)
		require.NoError(t, err, sp.path)

		info := &types.Info{
			Types: make(map[ast.Expr]types.TypeAndValue),
			Defs:  make(map[*ast.Ident]types.Object),
			Uses:  make(map[*ast.Ident]types.Object),
		}
		conf := types.Config{Importer: imp}
		tp, err := conf.Check(sp.path, fset, []*ast.File{f}, info)
		require.NoError(t, err, sp.path)

		out[sp.path] = &packages.Package{
			ID:        sp.path,
			Name:      f.Name.Name,
			PkgPath:   sp.path,
			Fset:      fset,
			Syntax:    []*ast.File{f},
			Types:     tp,
			TypesInfo: info,
		}
	}
	return out
}

// testConfig is a normalized config for testModule without touching disk.
func testConfig() *Config {
	return &Config{
		Out:        "internal/iocgen",
		Package:    "iocgen",
		Contracts:  []string{testModule + "/contracts"},
		Patterns:   []string{"./..."},
		ModuleRoot: "/src/app",
		Module:     testModule,
		OutDir:     "/src/app/internal/iocgen",
		OutImport:  testModule + "/internal/iocgen",
	}
}

const iocSrc = `package ioc

type Service interface{ IsAvailable() bool }
`

const contractsSrc = `package contracts

import "example.com/app/ioc"

type Service = ioc.Service

type LogService interface {
	Service
	Log(msg string)
	Level() int
	Logger(name string) LogService
}

type ToastService interface {
	Service
	Toast(msg string, args ...any) (bool, error)
}

type MetricsService interface {
	Service
	Inc(name string)
}

// Sealed cannot be implemented outside this package.
type Sealed interface {
	Service
	seal()
}

// NotAContract lacks IsAvailable.
type NotAContract interface{ Do() }
`

const servicesSrc = `package services

import "example.com/app/contracts"

type base struct{}

func (base) IsAvailable() bool { return true }

//ioc:inject priority=10
type FileLog struct{ base }

func NewFileLog() *FileLog { return &FileLog{} }

func (*FileLog) Log(string)                                  {}
func (*FileLog) Level() int                                  { return 1 }
func (l *FileLog) Logger(string) contracts.LogService       { return l }

// ConsoleLog has value receivers and no constructor.
//
//ioc:inject
type ConsoleLog struct{ base }

func (ConsoleLog) Log(string)                            {}
func (ConsoleLog) Level() int                            { return 0 }
func (c ConsoleLog) Logger(string) contracts.LogService { return c }

// Both implements LogService and MetricsService.
//
//ioc:inject priority=-3
type Both struct{ FileLog }

func (*Both) Inc(string) {}

//ioc:inject contract=contracts.MetricsService priority=2
type Metrics struct{ Both }

//ioc:inject priority=1
type Standalone struct{ base }

//ioc:inject
type hidden struct{ base }

//ioc:inject
type Iface interface{ contracts.LogService }

//ioc:inject priority=high
type Broken struct{ base }

//ioc:inject contract=Missing
type Lost struct{ base }

//ioc:inject contract=ToastService
type NotToast struct{ base }

//ioc:inject
type Bare struct{}

//ioc:inject
type Counter int

func (Counter) IsAvailable() bool { return true }

// Toaster has a constructor that takes arguments, so it is built with a literal.
//
//ioc:inject priority=4
type Toaster struct{ base }

func NewToaster(prefix string) *Toaster { return &Toaster{} }

func (*Toaster) Toast(string, ...any) (bool, error) { return true, nil }
`

// fixturePackages type-checks the ioc, contracts and services fixtures.
func fixturePackages(t *testing.T) map[string]*packages.Package {
	t.Helper()
	return checkPackages(t,
		srcPkg{path: testModule + "/ioc", src: iocSrc},
		srcPkg{path: testModule + "/contracts", src: contractsSrc},
		srcPkg{path: testModule + "/services", src: servicesSrc},
	)
}

// scanFixture runs scanPackage over the services fixture.
func scanFixture(t *testing.T) (map[string]*Decl, *observer.ObservedLogs) {
	t.Helper()
	pkgs := fixturePackages(t)
	log, logs := observed()
	s := NewScanner(testConfig(), log)

	out := make(map[string]*Decl)
	for _, d := range s.scanPackage(pkgs[testModule+"/services"]) {
		out[d.Name()] = d
	}
	return out, logs
}
