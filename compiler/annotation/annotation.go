// Package annotation extracts and parses //stateshift: directives.
//
// Directives live in the doc comment group of a declaration, one per line,
// written like other Go directives (no space after the slashes):
//
//	//stateshift:require Initial, _, _
//	//stateshift:switch_to RaceSet, _, _
//	func (b PlayerBuilder) SetRace(race Race) PlayerBuilder
//
// Extract removes a directive from its comment group so later passes and the
// printed output never see it again.
package annotation

import (
	"go/ast"
	"go/token"
	"slices"
	"strings"
	"unicode"
)

// Namespace is the directive prefix (the part before the colon).
const Namespace = "stateshift"

const prefix = "//" + Namespace + ":"

// Directive names.
const (
	// Type configures a tracked struct: slots, default vector, optional alphabet.
	Type = "type"
	// States declares the full marker alphabet of a tracked struct.
	States = "states"
	// Require is the precondition vector of an operation.
	Require = "require"
	// SwitchTo is the postcondition vector of an operation.
	SwitchTo = "switch_to"
	// Func overrides the name of the generated function.
	Func = "func"
	// For binds a receiverless function to a tracked type.
	For = "for"
)

// Known lists every directive name the generator understands.
var Known = []string{Type, States, Require, SwitchTo, Func, For}

// Directive is one //stateshift:<name> <args> comment.
type Directive struct {
	Name string
	Args string
	Pos  token.Pos
}

// String returns the directive as written.
func (d Directive) String() string {
	if d.Args == "" {
		return prefix + d.Name
	}
	return prefix + d.Name + " " + d.Args
}

// Symbols parses the directive arguments as a state vector.
func (d Directive) Symbols() ([]Symbol, error) {
	return ParseSymbols(d.Args)
}

// Options parses the directive arguments as key=value pairs.
func (d Directive) Options() (Options, error) {
	return ParseOptions(d.Args)
}

// parse reports whether c is a stateshift directive and splits it.
func parse(c *ast.Comment) (Directive, bool) {
	text, ok := strings.CutPrefix(c.Text, prefix)
	if !ok {
		return Directive{}, false
	}
	name, args := text, ""
	if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
		name, args = text[:i], text[i:]
	}
	return Directive{
		Name: strings.TrimSpace(name),
		Args: strings.TrimSpace(args),
		Pos:  c.Slash,
	}, true
}

// Find returns the first directive named name without modifying doc.
func Find(doc *ast.CommentGroup, name string) (Directive, bool) {
	if doc == nil {
		return Directive{}, false
	}
	for _, c := range doc.List {
		if d, ok := parse(c); ok && d.Name == name {
			return d, true
		}
	}
	return Directive{}, false
}

// Extract returns the first directive named name and removes it from doc.
// It returns false, leaving doc untouched, when there is no such directive.
func Extract(doc *ast.CommentGroup, name string) (Directive, bool) {
	if doc == nil {
		return Directive{}, false
	}
	for i, c := range doc.List {
		d, ok := parse(c)
		if !ok || d.Name != name {
			continue
		}
		doc.List = slices.Delete(doc.List, i, i+1)
		return d, true
	}
	return Directive{}, false
}

// ExtractSymbols extracts the directive named name and parses its arguments
// as a state vector. The returned directive is valid whenever ok is true.
func ExtractSymbols(doc *ast.CommentGroup, name string) (d Directive, syms []Symbol, ok bool, err error) {
	d, ok = Extract(doc, name)
	if !ok {
		return d, nil, false, nil
	}
	syms, err = d.Symbols()
	return d, syms, true, err
}

// Remaining returns the stateshift directives still present in doc.
func Remaining(doc *ast.CommentGroup) []Directive {
	if doc == nil {
		return nil
	}
	var ds []Directive
	for _, c := range doc.List {
		if d, ok := parse(c); ok {
			ds = append(ds, d)
		}
	}
	return ds
}

// Has reports whether doc carries any stateshift directive.
func Has(doc *ast.CommentGroup) bool {
	return len(Remaining(doc)) > 0
}

// IsKnown reports whether name is a directive the generator understands.
func IsKnown(name string) bool {
	return slices.Contains(Known, name)
}
