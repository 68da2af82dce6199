package main

import (
	"context"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/tools/go/packages"
)

// Decl is one annotated implementation type.
type Decl struct {
	Obj      *types.TypeName
	Priority int

	// Contract is the interface the type is bound to, or *T when the type
	// implements no contract and registers itself.
	Contract types.Type

	// Impl is the type the factory builds: T when T implements the contract,
	// otherwise *T, or the result type of Ctor.
	Impl types.Type

	// Ctor is the zero-argument New<Name> constructor, if any.
	Ctor *types.Func

	Pos token.Position
}

// Name is the implementation type name.
func (d *Decl) Name() string { return d.Obj.Name() }

// SelfRegistered reports whether the declaration is its own contract.
func (d *Decl) SelfRegistered() bool {
	_, ok := d.Contract.Underlying().(*types.Interface)
	return !ok
}

func sortDecls(decls []*Decl) {
	sort.SliceStable(decls, func(i, j int) bool {
		ci, cj := qualifiedName(decls[i].Contract), qualifiedName(decls[j].Contract)
		if ci != cj {
			return ci < cj
		}
		return qualifiedName(decls[i].Obj.Type()) < qualifiedName(decls[j].Obj.Type())
	})
}

// Scanner discovers annotated declarations by loading and type-checking packages.
type Scanner struct {
	cfg       *Config
	log       *zap.Logger
	contracts contractMatcher
}

// NewScanner creates a scanner.
func NewScanner(cfg *Config, log *zap.Logger) *Scanner {
	return &Scanner{
		cfg:       cfg,
		log:       log,
		contracts: contractMatcher{prefixes: cfg.Contracts},
	}
}

// Scan loads the configured patterns and returns the declarations ordered
// by (contract, implementation).
//
// Load and type errors abort the scan, except in packages that are never
// scanned (main packages, the output package and excluded paths), so a
// stale generated package cannot block its own regeneration.
func (s *Scanner) Scan(ctx context.Context) ([]*Decl, error) {
	cfg := &packages.Config{
		Context: ctx,
		Mode: packages.NeedName | packages.NeedFiles | packages.NeedImports |
			packages.NeedTypes | packages.NeedTypesInfo | packages.NeedSyntax,
		Dir: s.cfg.ModuleRoot,
	}

	pkgs, err := packages.Load(cfg, s.cfg.Patterns...)
	if err != nil {
		return nil, fmt.Errorf("load packages: %w", err)
	}
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].PkgPath < pkgs[j].PkgPath })

	var scanned []*packages.Package
	var loadErrs []string
	for _, pkg := range pkgs {
		if reason := s.skipReason(pkg); reason != "" {
			s.log.Debug("package skipped", zap.String("package", pkg.PkgPath), zap.String("reason", reason))
			continue
		}
		for _, e := range pkg.Errors {
			loadErrs = append(loadErrs, e.Error())
		}
		scanned = append(scanned, pkg)
	}
	if len(loadErrs) > 0 {
		return nil, fmt.Errorf("package errors:\n  %s", strings.Join(loadErrs, "\n  "))
	}

	var decls []*Decl
	for _, pkg := range scanned {
		decls = append(decls, s.scanPackage(pkg)...)
	}
	sortDecls(decls)

	s.log.Debug("scan complete", zap.Int("packages", len(scanned)), zap.Int("declarations", len(decls)))
	return decls, nil
}

func (s *Scanner) skipReason(pkg *packages.Package) string {
	switch {
	case pkg.Name == "main":
		return "main package"
	case pkg.PkgPath == s.cfg.OutImport:
		return "output package"
	case underPrefix(pkg.PkgPath, s.cfg.Exclude):
		return "excluded"
	}
	return ""
}

// scanPackage extracts the declarations of one type-checked package.
func (s *Scanner) scanPackage(pkg *packages.Package) []*Decl {
	if pkg.Types == nil || pkg.TypesInfo == nil {
		return nil
	}
	visible := s.contracts.visible(pkg.Types)

	var decls []*Decl
	for _, f := range pkg.Syntax {
		for _, decl := range f.Decls {
			gd, ok := decl.(*ast.GenDecl)
			if !ok || gd.Tok != token.TYPE {
				continue
			}
			for _, spec := range gd.Specs {
				ts := spec.(*ast.TypeSpec)

				dir, found, err := ParseDirective(typeSpecDoc(gd, ts))
				if !found {
					continue
				}
				pos := pkg.Fset.Position(ts.Pos())
				log := s.log.With(
					zap.String("type", pkg.PkgPath+"."+ts.Name.Name),
					zap.String("pos", pos.String()),
				)
				if err != nil {
					log.Error("invalid directive, declaration skipped", zap.Error(err))
					continue
				}

				d := s.buildDecl(pkg, ts, dir, visible, log)
				if d == nil {
					continue
				}
				d.Pos = pos
				decls = append(decls, d)
			}
		}
	}
	return decls
}

// buildDecl validates one annotated type and resolves its contract. It
// returns nil when the declaration must be skipped.
func (s *Scanner) buildDecl(pkg *packages.Package, ts *ast.TypeSpec, dir Directive, visible []*types.Named, log *zap.Logger) *Decl {
	switch {
	case !ts.Name.IsExported():
		log.Warn("unexported type cannot be referenced by generated code, skipped")
		return nil
	case ts.Assign.IsValid():
		log.Warn("type alias skipped, annotate the aliased type")
		return nil
	case ts.TypeParams != nil:
		log.Warn("generic type skipped")
		return nil
	}

	obj, ok := pkg.TypesInfo.Defs[ts.Name].(*types.TypeName)
	if !ok {
		return nil
	}
	named, ok := obj.Type().(*types.Named)
	if !ok {
		return nil
	}
	if _, isIface := named.Underlying().(*types.Interface); isIface {
		log.Warn("interface declaration cannot be instantiated, skipped")
		return nil
	}
	ptr := types.NewPointer(named)

	implements := func(c *types.Named) bool {
		iface := c.Underlying().(*types.Interface)
		return types.Implements(named, iface) || types.Implements(ptr, iface)
	}

	var contract types.Type
	switch {
	case dir.Contract != "":
		var match *types.Named
		for _, c := range visible {
			if matchesName(c, dir.Contract) {
				match = c
				break
			}
		}
		if match == nil {
			log.Error("contract not found, declaration skipped",
				zap.String("contract", dir.Contract),
				zap.Strings("namespace", s.cfg.Contracts),
			)
			return nil
		}
		if !implements(match) {
			log.Error("type does not implement contract, declaration skipped",
				zap.String("contract", qualifiedName(match)),
			)
			return nil
		}
		contract = match

	default:
		var matches []*types.Named
		for _, c := range visible {
			if implements(c) {
				matches = append(matches, c)
			}
		}
		switch {
		case len(matches) == 0:
			if !types.Implements(ptr, serviceMarker) {
				log.Error("type implements no contract and no IsAvailable method, declaration skipped")
				return nil
			}
			log.Warn("type implements no contract, registering it as its own contract; the registry will reject it")
			contract = ptr
		case len(matches) > 1:
			ignored := make([]string, 0, len(matches)-1)
			for _, c := range matches[1:] {
				ignored = append(ignored, qualifiedName(c))
			}
			log.Warn("type implements several contracts, using the first",
				zap.String("contract", qualifiedName(matches[0])),
				zap.Strings("ignored", ignored),
			)
			contract = matches[0]
		default:
			contract = matches[0]
		}
	}

	d := &Decl{
		Obj:      obj,
		Priority: dir.Priority,
		Contract: contract,
		Impl:     ptr,
	}
	if iface, ok := contract.Underlying().(*types.Interface); ok && types.Implements(named, iface) {
		d.Impl = named
	}

	if ctor := lookupConstructor(pkg.Types, obj.Name(), contract); ctor != nil {
		d.Ctor = ctor
		res := ctor.Type().(*types.Signature).Results().At(0).Type()
		if _, isIface := res.Underlying().(*types.Interface); !isIface {
			d.Impl = res
		}
	} else if fn, ok := pkg.Types.Scope().Lookup("New" + obj.Name()).(*types.Func); ok {
		log.Debug("constructor not usable, using a composite literal", zap.String("constructor", fn.Name()))
	}

	log.Debug("declaration found",
		zap.String("contract", qualifiedName(contract)),
		zap.Int("priority", d.Priority),
	)
	return d
}

// lookupConstructor finds New<name>() whose single result can be returned
// as the contract.
func lookupConstructor(pkg *types.Package, name string, contract types.Type) *types.Func {
	fn, ok := pkg.Scope().Lookup("New" + name).(*types.Func)
	if !ok {
		return nil
	}
	sig := fn.Type().(*types.Signature)
	if sig.Params().Len() != 0 || sig.Results().Len() != 1 || sig.TypeParams().Len() > 0 {
		return nil
	}
	if !types.AssignableTo(sig.Results().At(0).Type(), contract) {
		return nil
	}
	return fn
}
