package main

import (
	"go/types"
	"path"
	"sort"
	"strconv"
	"strings"
)

// importSpec models one Go import: optional alias and full import path.
type importSpec struct {
	Alias string
	Path  string
	Break bool // first non-standard import after standard ones
}

// importSet assigns a unique local name to every package a generated file
// references. Packages are named after their package clause; a clash gets a
// numeric suffix.
type importSet struct {
	self   string
	byPath map[string]string
	taken  map[string]bool
}

// newImportSet creates an empty set for a file in package self.
func newImportSet(self string) *importSet {
	return &importSet{
		self:   self,
		byPath: make(map[string]string),
		taken:  make(map[string]bool),
	}
}

// add records an import and returns the name to use in code.
func (s *importSet) add(importPath, name string) string {
	if importPath == s.self {
		return ""
	}
	if local, ok := s.byPath[importPath]; ok {
		return local
	}
	local := name
	for i := 2; s.taken[local]; i++ {
		local = name + strconv.Itoa(i)
	}
	s.byPath[importPath] = local
	s.taken[local] = true
	return local
}

// qualifier is a types.Qualifier that records every package it sees.
func (s *importSet) qualifier(p *types.Package) string {
	return s.add(p.Path(), p.Name())
}

// typeString renders t with package names from the set.
func (s *importSet) typeString(t types.Type) string {
	return types.TypeString(t, s.qualifier)
}

// objString renders a package-level object reference.
func (s *importSet) objString(obj types.Object) string {
	if q := s.qualifier(obj.Pkg()); q != "" {
		return q + "." + obj.Name()
	}
	return obj.Name()
}

// specs returns the standard library imports, then the rest, each group
// ordered by path. The alias is left empty when it matches the last path
// element.
func (s *importSet) specs() []importSpec {
	out := make([]importSpec, 0, len(s.byPath))
	for p, local := range s.byPath {
		spec := importSpec{Path: p}
		if local != path.Base(p) {
			spec.Alias = local
		}
		out = append(out, spec)
	}
	sort.Slice(out, func(i, j int) bool {
		si, sj := isStdlib(out[i].Path), isStdlib(out[j].Path)
		if si != sj {
			return si
		}
		return out[i].Path < out[j].Path
	})
	for i := 1; i < len(out); i++ {
		if isStdlib(out[i-1].Path) && !isStdlib(out[i].Path) {
			out[i].Break = true
		}
	}
	return out
}

// isStdlib reports whether the first path element has no dot.
func isStdlib(importPath string) bool {
	first, _, _ := strings.Cut(importPath, "/")
	return !strings.Contains(first, ".")
}
