package main

import (
	"go/types"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
)

// standIn is an inert implementation of one contract.
type standIn struct {
	Contract *types.Named
	Name     string
}

// collectStandIns returns the stand-ins for the contracts of decls plus
// every contract reachable through their method results, ordered by
// contract name. Contracts that cannot be implemented outside their own
// package, or whose signatures use types the output package self cannot
// name, are skipped.
func collectStandIns(decls []*Decl, m contractMatcher, self string, log *zap.Logger) []*standIn {
	seen := make(map[string]bool)
	var queue, kept []*types.Named

	push := func(n *types.Named) {
		key := qualifiedName(n)
		if seen[key] {
			return
		}
		seen[key] = true
		queue = append(queue, n)
	}
	for _, d := range decls {
		if n, ok := m.contract(d.Contract); ok {
			push(n)
		}
	}

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]

		if !implementableOutside(n) {
			log.Warn("contract has unexported methods, no stand-in generated", zap.String("contract", qualifiedName(n)))
			continue
		}
		if name, ok := hiddenReference(n, self); ok {
			log.Warn("contract uses an unexported type, no stand-in generated",
				zap.String("contract", qualifiedName(n)),
				zap.String("type", name),
			)
			continue
		}
		kept = append(kept, n)

		iface := n.Underlying().(*types.Interface)
		for i := 0; i < iface.NumMethods(); i++ {
			res := iface.Method(i).Type().(*types.Signature).Results()
			for j := 0; j < res.Len(); j++ {
				if nested, ok := m.contract(res.At(j).Type()); ok {
					push(nested)
				}
			}
		}
	}

	sort.Slice(kept, func(i, j int) bool { return qualifiedName(kept[i]) < qualifiedName(kept[j]) })
	return nameStandIns(kept)
}

// nameStandIns assigns unexported type names; contracts sharing a name get
// their package name as prefix.
func nameStandIns(contracts []*types.Named) []*standIn {
	count := make(map[string]int)
	for _, c := range contracts {
		count[c.Obj().Name()]++
	}

	taken := make(map[string]bool)
	out := make([]*standIn, 0, len(contracts))
	for _, c := range contracts {
		base := lowerFirst(c.Obj().Name())
		if count[c.Obj().Name()] > 1 {
			base = lowerFirst(c.Obj().Pkg().Name()) + c.Obj().Name()
		}
		name := uniqueName(base+"StandIn", taken)
		out = append(out, &standIn{Contract: c, Name: name})
	}
	return out
}

// standInMethod is one rendered method of a stand-in.
type standInMethod struct {
	Name    string
	Params  string
	Results string
	Return  string // expression list, empty for no results
}

// standInMethods renders the method set of s. Results default per kind; a
// result that is itself a stand-in contract returns that stand-in.
func standInMethods(s *standIn, imports *importSet, lookup func(*types.Named) (string, bool)) []standInMethod {
	iface := s.Contract.Underlying().(*types.Interface)
	methods := make([]standInMethod, 0, iface.NumMethods())

	for i := 0; i < iface.NumMethods(); i++ {
		fn := iface.Method(i)
		sig := fn.Type().(*types.Signature)

		params := make([]string, 0, sig.Params().Len())
		for j := 0; j < sig.Params().Len(); j++ {
			t := sig.Params().At(j).Type()
			if sig.Variadic() && j == sig.Params().Len()-1 {
				params = append(params, "_ ..."+imports.typeString(t.(*types.Slice).Elem()))
				continue
			}
			params = append(params, "_ "+imports.typeString(t))
		}

		results := make([]string, 0, sig.Results().Len())
		values := make([]string, 0, sig.Results().Len())
		for j := 0; j < sig.Results().Len(); j++ {
			t := sig.Results().At(j).Type()
			results = append(results, imports.typeString(t))
			values = append(values, defaultExpr(t, imports.qualifier, lookup))
		}

		m := standInMethod{
			Name:   fn.Name(),
			Params: strings.Join(params, ", "),
			Return: strings.Join(values, ", "),
		}
		switch len(results) {
		case 0:
		case 1:
			m.Results = results[0]
		default:
			m.Results = "(" + strings.Join(results, ", ") + ")"
		}
		methods = append(methods, m)
	}
	return methods
}

// defaultExpr is the expression a stand-in returns for a result of type t:
// 0 for numbers, false for booleans, "" for strings, a stand-in for a
// contract that has one and the zero value for everything else.
func defaultExpr(t types.Type, qf types.Qualifier, standIn func(*types.Named) (string, bool)) string {
	if n, ok := types.Unalias(t).(*types.Named); ok && standIn != nil {
		if name, ok := standIn(n); ok {
			return name + "{}"
		}
	}

	switch u := t.Underlying().(type) {
	case *types.Basic:
		switch {
		case u.Info()&types.IsBoolean != 0:
			return "false"
		case u.Info()&types.IsString != 0:
			return `""`
		case u.Info()&types.IsNumeric != 0:
			return "0"
		case u.Kind() == types.UnsafePointer:
			return "nil"
		}
	case *types.Pointer, *types.Slice, *types.Map, *types.Chan, *types.Signature, *types.Interface:
		return "nil"
	case *types.Struct, *types.Array:
		return types.TypeString(t, qf) + "{}"
	}
	return "*new(" + types.TypeString(t, qf) + ")"
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// uniqueName returns base, or base with a numeric suffix, and marks it taken.
func uniqueName(base string, taken map[string]bool) string {
	name := base
	for i := 2; taken[name]; i++ {
		name = base + strconv.Itoa(i)
	}
	taken[name] = true
	return name
}
