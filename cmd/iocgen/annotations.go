package main

import (
	"fmt"
	"go/ast"
	"strconv"
	"strings"
)

const directivePrefix = "ioc:inject"

// Directive is a parsed //ioc:inject comment.
type Directive struct {
	Priority int
	Contract string // empty: infer from the contracts namespace
}

// ParseDirective extracts the inject directive from a doc comment.
// found is false when the comment carries none.
func ParseDirective(doc *ast.CommentGroup) (d Directive, found bool, err error) {
	if doc == nil {
		return d, false, nil
	}

	for _, c := range doc.List {
		text := strings.TrimPrefix(c.Text, "//")
		if !strings.HasPrefix(text, directivePrefix) {
			continue
		}
		rest := strings.TrimPrefix(text, directivePrefix)
		if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
			// ioc:injector and friends
			continue
		}
		if found {
			return Directive{}, true, fmt.Errorf("duplicate %s directive", directivePrefix)
		}
		found = true

		d, err = parseDirectiveArgs(rest)
		if err != nil {
			return Directive{}, true, err
		}
	}
	return d, found, nil
}

func parseDirectiveArgs(s string) (Directive, error) {
	var d Directive
	seen := make(map[string]bool)

	for _, field := range strings.Fields(s) {
		key, value, ok := strings.Cut(field, "=")
		if !ok || value == "" {
			return Directive{}, fmt.Errorf("malformed argument %q, want key=value", field)
		}
		if seen[key] {
			return Directive{}, fmt.Errorf("argument %q given twice", key)
		}
		seen[key] = true

		switch key {
		case "priority":
			p, err := strconv.Atoi(value)
			if err != nil {
				return Directive{}, fmt.Errorf("invalid priority %q: %w", value, err)
			}
			d.Priority = p
		case "contract":
			d.Contract = value
		default:
			return Directive{}, fmt.Errorf("unknown argument %q", key)
		}
	}
	return d, nil
}

// typeSpecDoc returns the doc comment that applies to ts. A lone spec in an
// unparenthesized declaration gets its doc from the GenDecl.
func typeSpecDoc(gd *ast.GenDecl, ts *ast.TypeSpec) *ast.CommentGroup {
	if ts.Doc != nil {
		return ts.Doc
	}
	if !gd.Lparen.IsValid() {
		return gd.Doc
	}
	return nil
}
