package main

import (
	"go/token"
	"go/types"
	"sort"
)

// serviceMarker mirrors ioc.Service. Contracts and self-registered types must
// satisfy it or the generated ioc.Register call would not compile.
var serviceMarker = func() *types.Interface {
	result := types.NewTuple(types.NewParam(token.NoPos, nil, "", types.Typ[types.Bool]))
	sig := types.NewSignatureType(nil, nil, nil, nil, result, false)
	fn := types.NewFunc(token.NoPos, nil, "IsAvailable", sig)
	return types.NewInterfaceType([]*types.Func{fn}, nil).Complete()
}()

// contractMatcher recognizes contract interfaces by package prefix.
type contractMatcher struct {
	prefixes []string
}

// contract returns t as a contract when it is an exported, non-generic
// interface declared under one of the prefixes that includes IsAvailable.
func (m contractMatcher) contract(t types.Type) (*types.Named, bool) {
	named, ok := types.Unalias(t).(*types.Named)
	if !ok {
		return nil, false
	}
	obj := named.Obj()
	if obj.Pkg() == nil || !obj.Exported() || named.TypeParams().Len() > 0 {
		return nil, false
	}
	if !underPrefix(obj.Pkg().Path(), m.prefixes) {
		return nil, false
	}
	iface, ok := named.Underlying().(*types.Interface)
	if !ok || !iface.IsMethodSet() {
		return nil, false
	}
	return named, types.Implements(named, serviceMarker)
}

// visible returns the contracts declared in root or in any package it
// imports, transitively, ordered by qualified name.
func (m contractMatcher) visible(root *types.Package) []*types.Named {
	seen := make(map[*types.Package]bool)
	var out []*types.Named

	var walk func(p *types.Package)
	walk = func(p *types.Package) {
		if p == nil || seen[p] {
			return
		}
		seen[p] = true

		if underPrefix(p.Path(), m.prefixes) {
			scope := p.Scope()
			for _, name := range scope.Names() {
				tn, ok := scope.Lookup(name).(*types.TypeName)
				if !ok || tn.IsAlias() {
					continue
				}
				if named, ok := m.contract(tn.Type()); ok {
					out = append(out, named)
				}
			}
		}
		for _, imp := range p.Imports() {
			walk(imp)
		}
	}
	walk(root)

	sort.Slice(out, func(i, j int) bool { return qualifiedName(out[i]) < qualifiedName(out[j]) })
	return out
}

// matchesName reports whether want names n as Name, pkg.Name or path.Name.
func matchesName(n *types.Named, want string) bool {
	obj := n.Obj()
	switch want {
	case obj.Name(), obj.Pkg().Name() + "." + obj.Name(), qualifiedName(n):
		return true
	}
	return false
}

func qualifiedName(t types.Type) string {
	return types.TypeString(t, nil)
}

// implementableOutside reports whether a type outside the contract's package
// can implement it; unexported methods rule that out.
func implementableOutside(n *types.Named) bool {
	iface := n.Underlying().(*types.Interface)
	for i := 0; i < iface.NumMethods(); i++ {
		if !iface.Method(i).Exported() {
			return false
		}
	}
	return true
}

// hiddenReference returns the first type in the method signatures of n that
// code in package self cannot name: an unexported type, field or method
// declared in another package.
func hiddenReference(n *types.Named, self string) (string, bool) {
	iface := n.Underlying().(*types.Interface)
	for i := 0; i < iface.NumMethods(); i++ {
		if name, ok := hiddenIn(iface.Method(i).Type(), self); ok {
			return name, true
		}
	}
	return "", false
}

func hiddenIn(t types.Type, self string) (string, bool) {
	hidden := func(obj types.Object) bool {
		return obj.Pkg() != nil && obj.Pkg().Path() != self && !obj.Exported()
	}

	switch t := t.(type) {
	case *types.Alias:
		if hidden(t.Obj()) {
			return qualifiedName(t), true
		}
		return hiddenInList(t.TypeArgs(), self)
	case *types.Named:
		if hidden(t.Obj()) {
			return qualifiedName(t), true
		}
		return hiddenInList(t.TypeArgs(), self)
	case *types.Pointer:
		return hiddenIn(t.Elem(), self)
	case *types.Slice:
		return hiddenIn(t.Elem(), self)
	case *types.Array:
		return hiddenIn(t.Elem(), self)
	case *types.Chan:
		return hiddenIn(t.Elem(), self)
	case *types.Map:
		if name, ok := hiddenIn(t.Key(), self); ok {
			return name, true
		}
		return hiddenIn(t.Elem(), self)
	case *types.Signature:
		for _, tup := range []*types.Tuple{t.Params(), t.Results()} {
			for i := 0; i < tup.Len(); i++ {
				if name, ok := hiddenIn(tup.At(i).Type(), self); ok {
					return name, true
				}
			}
		}
	case *types.Struct:
		for i := 0; i < t.NumFields(); i++ {
			f := t.Field(i)
			if hidden(f) {
				return "field " + f.Name(), true
			}
			if name, ok := hiddenIn(f.Type(), self); ok {
				return name, true
			}
		}
	case *types.Interface:
		for i := 0; i < t.NumExplicitMethods(); i++ {
			m := t.ExplicitMethod(i)
			if hidden(m) {
				return "method " + m.Name(), true
			}
			if name, ok := hiddenIn(m.Type(), self); ok {
				return name, true
			}
		}
		for i := 0; i < t.NumEmbeddeds(); i++ {
			if name, ok := hiddenIn(t.EmbeddedType(i), self); ok {
				return name, true
			}
		}
	}
	return "", false
}

func hiddenInList(list *types.TypeList, self string) (string, bool) {
	for i := 0; i < list.Len(); i++ {
		if name, ok := hiddenIn(list.At(i), self); ok {
			return name, true
		}
	}
	return "", false
}
