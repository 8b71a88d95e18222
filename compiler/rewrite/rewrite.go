// Package rewrite finds references to a named type inside a syntax tree and
// transforms them. It is the one traversal behind both the result-type
// rewriting and the body patching of the generator: references are found at
// any nesting depth (pointers, slices, maps, generic wrappers, call
// arguments, multi-value returns, closures).
package rewrite

import (
	"go/ast"

	"golang.org/x/tools/go/ast/astutil"
)

// Ref is one reference to the target type.
type Ref struct {
	// Args are the type arguments written at the reference: [T] for Box[T],
	// nil for a bare Box.
	Args []ast.Expr
	// Lit is the composite literal constructed with this reference as its
	// type, or nil when the reference is not a literal type.
	Lit *ast.CompositeLit
}

// Func returns the replacement of a reference, or nil to keep it.
type Func func(ref Ref) ast.Expr

// Walk calls fn for every reference to the type called name in root, in
// post-order, and replaces the reference with fn's result. It returns the
// possibly replaced root and the number of replacements.
//
// A reference is the bare identifier or its instantiation name[...].
// Qualified identifiers (pkg.Name), selector members, struct-literal keys,
// labels and declared names are not references.
func Walk(root ast.Node, name string, fn Func) (ast.Node, int) {
	n := 0
	post := func(c *astutil.Cursor) bool {
		ref, ok := match(c, name)
		if !ok {
			return true
		}
		if repl := fn(ref); repl != nil {
			c.Replace(repl)
			n++
		}
		return true
	}
	return astutil.Apply(root, nil, post), n
}

// Find returns every reference to the type called name in root.
func Find(root ast.Node, name string) []Ref {
	var refs []Ref
	Walk(root, name, func(ref Ref) ast.Expr {
		refs = append(refs, ref)
		return nil
	})
	return refs
}

// Contains reports whether root references the type called name.
func Contains(root ast.Node, name string) bool {
	return len(Find(root, name)) > 0
}

// Instantiate returns name[args...], or the bare name when args is empty.
func Instantiate(name string, args []ast.Expr) ast.Expr {
	x := ast.NewIdent(name)
	switch len(args) {
	case 0:
		return x
	case 1:
		return &ast.IndexExpr{X: x, Index: args[0]}
	default:
		return &ast.IndexListExpr{X: x, Indices: args}
	}
}

// Rename replaces identifiers in root according to names, skipping the
// positions Walk does not treat as references.
func Rename(root ast.Node, names map[string]string) ast.Node {
	if len(names) == 0 {
		return root
	}
	return astutil.Apply(root, func(c *astutil.Cursor) bool {
		id, ok := c.Node().(*ast.Ident)
		if !ok || excluded(c) {
			return true
		}
		if to, ok := names[id.Name]; ok {
			c.Replace(ast.NewIdent(to))
		}
		return true
	}, nil)
}

// Idents returns the set of identifier names used anywhere in root.
func Idents(root ast.Node) map[string]bool {
	names := make(map[string]bool)
	ast.Inspect(root, func(n ast.Node) bool {
		if id, ok := n.(*ast.Ident); ok {
			names[id.Name] = true
		}
		return true
	})
	return names
}

func match(c *astutil.Cursor, name string) (Ref, bool) {
	var ref Ref
	switch n := c.Node().(type) {
	case *ast.Ident:
		if n.Name != name || excluded(c) || isIndexed(c) {
			return ref, false
		}
	case *ast.IndexExpr:
		if !isIdent(n.X, name) {
			return ref, false
		}
		ref.Args = []ast.Expr{n.Index}
	case *ast.IndexListExpr:
		if !isIdent(n.X, name) {
			return ref, false
		}
		ref.Args = n.Indices
	default:
		return ref, false
	}
	if lit, ok := c.Parent().(*ast.CompositeLit); ok && c.Name() == "Type" {
		ref.Lit = lit
	}
	return ref, true
}

// excluded reports whether the identifier under c names something other than a type.
func excluded(c *astutil.Cursor) bool {
	switch c.Parent().(type) {
	case *ast.SelectorExpr:
		return true
	case *ast.KeyValueExpr:
		if c.Name() == "Key" {
			return true
		}
	}
	switch c.Name() {
	case "Names", "Name", "Label":
		return true
	}
	return false
}

// isIndexed reports whether the identifier under c is the X of an
// instantiation; the instantiation itself is the reference.
func isIndexed(c *astutil.Cursor) bool {
	if c.Name() != "X" {
		return false
	}
	switch c.Parent().(type) {
	case *ast.IndexExpr, *ast.IndexListExpr:
		return true
	}
	return false
}

func isIdent(x ast.Expr, name string) bool {
	id, ok := x.(*ast.Ident)
	return ok && id.Name == name
}
