package gen

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/build/constraint"
	"go/printer"
	"go/token"
	"slices"

	"golang.org/x/tools/imports"
)

// print assembles the output file: header, build constraint, package
// clause, imports, the comments leading up to the first declaration, the
// registries, then every other declaration in source order. Comments
// between declarations keep their place.
func (u *unit) print(regs []*Registry) ([]byte, error) {
	u.dropEmptyComments()
	var buf bytes.Buffer
	if u.cfg.Header != "" {
		buf.WriteString(u.cfg.Header)
		buf.WriteString("\n\n")
	}
	fmt.Fprintf(&buf, "//go:build %s\n\n", u.constraint())
	for _, g := range u.file.Comments {
		if g.End() >= u.file.Package || isConstraint(g) {
			continue
		}
		writeGroup(&buf, g)
		if g != u.file.Doc {
			buf.WriteByte('\n')
		}
	}
	fmt.Fprintf(&buf, "package %s\n\n", u.file.Name.Name)

	e := &emitter{fset: u.fset, buf: &buf}
	for _, g := range u.file.Comments {
		if g.Pos() > u.file.Name.End() {
			e.comments = append(e.comments, g)
		}
	}
	var rest []ast.Decl
	for _, d := range u.file.Decls {
		if gd, ok := d.(*ast.GenDecl); ok && gd.Tok == token.IMPORT {
			if err := e.decl(d); err != nil {
				return nil, err
			}
			continue
		}
		rest = append(rest, d)
	}
	// Comments above the first declaration stay with the package clause.
	if len(rest) > 0 {
		start, _ := span(rest[0])
		e.floating(start)
	}

	var live []*Registry
	for _, r := range regs {
		if !u.failed[r.Type.Name] {
			live = append(live, r)
		}
	}
	code, err := renderRegistries(u.file.Name.Name, live)
	if err != nil {
		return nil, err
	}
	if len(code) > 0 {
		buf.Write(code)
		buf.WriteString("\n\n")
	}

	for _, d := range rest {
		// An unparenthesised declaration has no range once its specs are gone.
		start, end := span(d)
		if u.omit(d) {
			e.skip(start, end)
			continue
		}
		if err := e.decl(d); err != nil {
			return nil, err
		}
	}
	e.flush()
	return buf.Bytes(), nil
}

// omit drops the left-out specs of d and reports whether nothing of d is left.
func (u *unit) omit(d ast.Decl) bool {
	if u.drop[d] {
		return true
	}
	gd, ok := d.(*ast.GenDecl)
	if !ok {
		return false
	}
	gd.Specs = slices.DeleteFunc(gd.Specs, func(s ast.Spec) bool { return u.drop[s] })
	return len(gd.Specs) == 0
}

// dropEmptyComments removes the comment groups emptied by directive
// extraction; the printer cannot place a group without comments.
func (u *unit) dropEmptyComments() {
	u.file.Comments = slices.DeleteFunc(u.file.Comments, func(g *ast.CommentGroup) bool {
		return len(g.List) == 0
	})
	empty := func(g *ast.CommentGroup) *ast.CommentGroup {
		if g != nil && len(g.List) == 0 {
			return nil
		}
		return g
	}
	u.file.Doc = empty(u.file.Doc)
	for _, d := range u.file.Decls {
		switch d := d.(type) {
		case *ast.FuncDecl:
			d.Doc = empty(d.Doc)
		case *ast.GenDecl:
			d.Doc = empty(d.Doc)
			for _, s := range d.Specs {
				switch s := s.(type) {
				case *ast.TypeSpec:
					s.Doc = empty(s.Doc)
				case *ast.ValueSpec:
					s.Doc = empty(s.Doc)
				}
			}
		}
	}
}

// constraint returns the build constraint of the output: the source
// constraint with the generator tag negated.
func (u *unit) constraint() constraint.Expr {
	var src constraint.Expr
	for _, g := range u.file.Comments {
		if g.Pos() >= u.file.Package {
			break
		}
		for _, c := range g.List {
			if constraint.IsGoBuild(c.Text) {
				if x, err := constraint.Parse(c.Text); err == nil {
					src = x
				}
			}
		}
	}
	return outputConstraint(src, u.cfg.tag())
}

// outputConstraint returns !tag, and-ed with what remains of src once the
// tag is removed from its top-level conjunction.
func outputConstraint(src constraint.Expr, tag string) constraint.Expr {
	var not constraint.Expr = &constraint.NotExpr{X: &constraint.TagExpr{Tag: tag}}
	if rest := withoutTag(src, tag); rest != nil {
		return &constraint.AndExpr{X: not, Y: rest}
	}
	return not
}

func withoutTag(x constraint.Expr, tag string) constraint.Expr {
	switch x := x.(type) {
	case *constraint.TagExpr:
		if x.Tag == tag {
			return nil
		}
	case *constraint.AndExpr:
		l, r := withoutTag(x.X, tag), withoutTag(x.Y, tag)
		switch {
		case l == nil:
			return r
		case r == nil:
			return l
		}
		return &constraint.AndExpr{X: l, Y: r}
	}
	return x
}

func isConstraint(g *ast.CommentGroup) bool {
	for _, c := range g.List {
		if constraint.IsGoBuild(c.Text) || constraint.IsPlusBuild(c.Text) {
			return true
		}
	}
	return false
}

func writeGroup(buf *bytes.Buffer, g *ast.CommentGroup) {
	for _, c := range g.List {
		buf.WriteString(c.Text)
		buf.WriteByte('\n')
	}
}

// emitter prints declarations one at a time, interleaving the comment
// groups found between them.
type emitter struct {
	fset     *token.FileSet
	buf      *bytes.Buffer
	comments []*ast.CommentGroup
	next     int
}

var printConfig = printer.Config{Mode: printer.UseSpaces | printer.TabIndent, Tabwidth: 8}

func (e *emitter) decl(d ast.Decl) error {
	start, end := span(d)
	e.floating(start)
	var cs []*ast.CommentGroup
	for e.next < len(e.comments) && e.comments[e.next].Pos() < end {
		cs = append(cs, e.comments[e.next])
		e.next++
	}
	if err := printConfig.Fprint(e.buf, e.fset, &printer.CommentedNode{Node: d, Comments: cs}); err != nil {
		return err
	}
	e.buf.WriteString("\n\n")
	return nil
}

// skip passes over a left-out declaration spanning start to end and the
// comments inside it.
func (e *emitter) skip(start, end token.Pos) {
	e.floating(start)
	for e.next < len(e.comments) && e.comments[e.next].Pos() < end {
		e.next++
	}
}

// floating prints the comment groups that start before pos.
func (e *emitter) floating(pos token.Pos) {
	for e.next < len(e.comments) && e.comments[e.next].Pos() < pos {
		writeGroup(e.buf, e.comments[e.next])
		e.buf.WriteByte('\n')
		e.next++
	}
}

// flush prints the comments after the last declaration.
func (e *emitter) flush() {
	e.floating(token.Pos(1 << 62))
}

// span returns the source range of d including its doc comment and the
// line comment of its last spec, the range go/printer prints comments for.
func span(d ast.Decl) (start, end token.Pos) {
	start, end = d.Pos(), d.End()
	var doc, last *ast.CommentGroup
	switch d := d.(type) {
	case *ast.FuncDecl:
		doc = d.Doc
	case *ast.GenDecl:
		doc = d.Doc
		if n := len(d.Specs); n > 0 {
			switch s := d.Specs[n-1].(type) {
			case *ast.ImportSpec:
				last = s.Comment
			case *ast.ValueSpec:
				last = s.Comment
			case *ast.TypeSpec:
				last = s.Comment
			}
		}
	}
	if doc != nil && doc.Pos() < start {
		start = doc.Pos()
	}
	if last != nil && last.End() > end {
		end = last.End()
	}
	return start, end
}

// formatSource gofmt-formats the output without touching its imports.
func formatSource(filename string, src []byte) ([]byte, error) {
	return imports.Process(filename, src, &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: true,
	})
}
