package gen

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"path/filepath"
	"slices"

	"github.com/syssam/stateshift"
	"github.com/syssam/stateshift/compiler/rewrite"
)

// errSkipped marks declarations left out because their tracked type failed.
// It is never reported.
var errSkipped = errors.New("stateshift: declaration skipped")

// Result is the outcome of expanding one source file.
type Result struct {
	// Source and Output are the input and generated file names.
	Source string
	Output string
	// Code is the formatted output. It is nil when the file has diagnostics
	// (unless KeepGoing is set) or when formatting failed.
	Code []byte
	// Raw is the unformatted output, kept when formatting failed.
	Raw []byte
	// Types lists the tracked types in declaration order.
	Types []string
	// Operations counts the operations rewritten.
	Operations int
	// Diagnostics holds every problem found.
	Diagnostics []error
}

// Expand rewrites one annotated source file into its state-overlay form.
//
// Each tracked type and each operation is expanded on its own: a failing
// declaration is reported and left out while its siblings still expand. The
// returned error joins every diagnostic. The output is produced when there
// are none, or regardless when cfg.KeepGoing is set.
func Expand(filename string, src []byte, cfg *Config) (*Result, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, src, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		return nil, stateshift.NewGenerationError("parse", filename, "", err)
	}
	u := &unit{
		cfg:    cfg,
		fset:   fset,
		file:   file,
		types:  make(map[string]*TrackedType),
		failed: make(map[string]bool),
		drop:   make(map[ast.Node]bool),
	}
	u.collectTypes()
	u.collectOperations()
	regs := u.registries()
	u.checkNames(regs)
	u.rewriteTypes(regs)
	u.rewriteOperations(regs)
	u.checkRest()

	res := &Result{
		Source:      filename,
		Output:      cfg.OutputName(filename),
		Diagnostics: u.diags,
	}
	for _, n := range u.order {
		if !u.failed[n] {
			res.Types = append(res.Types, n)
		}
	}
	for _, op := range u.ops {
		if !u.drop[op.Decl] {
			res.Operations++
		}
	}
	diags := errors.Join(u.diags...)
	if diags != nil && !cfg.KeepGoing {
		return res, diags
	}
	raw, err := u.print(regs)
	if err != nil {
		return res, errors.Join(diags, stateshift.NewGenerationError("print", filename, "", err))
	}
	code, err := formatSource(filepath.Base(res.Output), raw)
	if err != nil {
		res.Raw = raw
		return res, errors.Join(diags, stateshift.NewGenerationError("format", res.Output, "", err))
	}
	res.Code = code
	return res, diags
}

// unit is the expansion state of one source file.
type unit struct {
	cfg  *Config
	fset *token.FileSet
	file *ast.File

	types  map[string]*TrackedType
	order  []string // tracked type names in declaration order
	failed map[string]bool
	ops    []*Operation

	// reserved holds the package-level names generated code refers to.
	reserved map[string]bool
	// drop holds the declarations and specs left out of the output.
	drop  map[ast.Node]bool
	diags []error
}

func (u *unit) position(p token.Pos) token.Position {
	return u.fset.Position(p)
}

func (u *unit) report(err error) {
	u.diags = append(u.diags, err)
}

// compact moves the comments left in doc onto the lines right above the
// declaration at pos, so extracted directives leave no gap between a doc
// comment and its declaration.
func (u *unit) compact(doc *ast.CommentGroup, pos token.Pos) {
	if doc == nil || len(doc.List) == 0 {
		return
	}
	for _, c := range doc.List {
		if c.Text[1] == '*' {
			return
		}
	}
	tf := u.fset.File(pos)
	line := tf.Line(pos)
	n := len(doc.List)
	if line <= n {
		return
	}
	for i, c := range doc.List {
		c.Slash = tf.LineStart(line - n + i)
	}
}

func (u *unit) collectTypes() {
	for _, d := range u.file.Decls {
		gd, ok := d.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, s := range gd.Specs {
			spec := s.(*ast.TypeSpec)
			t, err := u.parseType(gd, spec)
			switch {
			case err != nil:
				u.report(err)
				u.fail(spec)
			case t != nil:
				u.types[t.Name] = t
				u.order = append(u.order, t.Name)
			}
		}
	}
}

// fail leaves the tracked type declared by spec, and its operations, out.
func (u *unit) fail(spec *ast.TypeSpec) {
	name := spec.Name.Name
	u.failed[name] = true
	u.drop[spec] = true
	if _, ok := u.types[name]; ok {
		delete(u.types, name)
		u.order = slices.DeleteFunc(u.order, func(n string) bool { return n == name })
	}
	for _, op := range u.ops {
		if op.Type.Name == name {
			u.drop[op.Decl] = true
		}
	}
}

func (u *unit) collectOperations() {
	for _, d := range u.file.Decls {
		fd, ok := d.(*ast.FuncDecl)
		if !ok {
			continue
		}
		op, err := u.parseOperation(fd)
		switch {
		case errors.Is(err, errSkipped):
			u.drop[fd] = true
		case err != nil:
			u.report(err)
			u.drop[fd] = true
		case op != nil:
			u.ops = append(u.ops, op)
		}
	}
}

func (u *unit) registries() []*Registry {
	regs := make([]*Registry, 0, len(u.order))
	for _, n := range u.order {
		t := u.types[n]
		regs = append(regs, BuildRegistry(t, markers(t, u.ops)))
	}
	return regs
}

func (u *unit) registry(regs []*Registry, t *TrackedType) *Registry {
	for _, r := range regs {
		if r.Type == t {
			return r
		}
	}
	return nil
}

// checkNames rejects generated package-level names that collide with each
// other or with the declarations of the file.
func (u *unit) checkNames(regs []*Registry) {
	taken := make(map[string]string)
	isOp := make(map[*ast.FuncDecl]bool, len(u.ops))
	for _, op := range u.ops {
		isOp[op.Decl] = true
	}
	for _, d := range u.file.Decls {
		switch d := d.(type) {
		case *ast.FuncDecl:
			if d.Recv == nil && !isOp[d] {
				taken[d.Name.Name] = "function " + d.Name.Name
			}
		case *ast.GenDecl:
			for _, s := range d.Specs {
				switch s := s.(type) {
				case *ast.TypeSpec:
					taken[s.Name.Name] = "type " + s.Name.Name
				case *ast.ValueSpec:
					for _, n := range s.Names {
						taken[n.Name] = d.Tok.String() + " " + n.Name
					}
				}
			}
		}
	}
	u.reserved = make(map[string]bool)
	for _, r := range regs {
		t := r.Type
		var clash error
		for _, n := range r.Names() {
			if owner, ok := taken[n]; ok {
				clash = stateshift.NewShapeError(t.Pos, t.Name, fmt.Sprintf("generated name %s collides with %s", n, owner))
				break
			}
		}
		if clash != nil {
			u.report(clash)
			u.fail(t.Spec)
			continue
		}
		for _, n := range r.Names() {
			taken[n] = "state registry of " + t.Name
			u.reserved[n] = true
		}
		u.reserved[t.Name] = true
	}
	for _, op := range u.ops {
		if u.drop[op.Decl] || op.StateIndependent() {
			continue
		}
		n := op.FuncName()
		if owner, ok := taken[n]; ok {
			u.report(stateshift.NewShapeError(op.Pos, op.String(), fmt.Sprintf("generated name %s collides with %s", n, owner)))
			u.drop[op.Decl] = true
			continue
		}
		taken[n] = "operation " + op.String()
	}
}

// rewriteTypes gives every tracked struct its slot type parameters and the
// hidden state field.
func (u *unit) rewriteTypes(regs []*Registry) {
	field := u.cfg.stateField()
	for _, r := range regs {
		t := r.Type
		if u.failed[t.Name] {
			continue
		}
		spec := t.Spec
		st := spec.Type.(*ast.StructType)
		used := rewrite.Idents(spec)
		for n := range u.reserved {
			used[n] = true
		}
		slots := make([]Binding, t.Slots)
		names := make([]*ast.Ident, t.Slots)
		for i := range slots {
			slots[i] = Binding{Param: fresh(SlotParam(i), used)}
			names[i] = ast.NewIdent(slots[i].Param)
		}
		rewrite.Walk(st.Fields, t.Name, instantiate(t.Name, slots))
		st.Fields.List = slices.Insert(st.Fields.List, 0, &ast.Field{
			Names: []*ast.Ident{ast.NewIdent(field)},
			Type:  stateType(exprs(slots)),
		})
		if spec.TypeParams == nil {
			spec.TypeParams = &ast.FieldList{}
		}
		spec.TypeParams.List = append(spec.TypeParams.List, &ast.Field{
			Names: names,
			Type:  ast.NewIdent(r.Constraint()),
		})
	}
}

func (u *unit) rewriteOperations(regs []*Registry) {
	field := u.cfg.stateField()
	calls := u.siblings()
	for _, op := range u.ops {
		if u.drop[op.Decl] {
			continue
		}
		reg := u.registry(regs, op.Type)
		res, err := Resolve(op, reg, usedNames(op.Decl, u.reserved))
		if err != nil {
			u.report(stateshift.NewGenerationError("expand", op.Pos.Filename, op.String(), err))
			u.drop[op.Decl] = true
			continue
		}
		out := Transition(op, reg, res)
		if _, err := RewriteResults(op, out); err != nil {
			u.report(err)
			u.drop[op.Decl] = true
			continue
		}
		RewriteCalls(op, calls)
		PatchBody(op.Decl.Body, op.Type, field, out)
		signature(op, reg, res)
	}
}

// signature rewrites the declaration of op into its generic form: a method
// on the generic receiver when the operation is state independent, a
// generic function taking the receiver as first parameter otherwise.
func signature(op *Operation, reg *Registry, res *Resolution) {
	fd, t := op.Decl, op.Type
	self := append(res.OwnExprs(), exprs(res.Self)...)
	name := op.FuncName()
	if op.StateIndependent() {
		recv := op.receiver()
		_, _, ptr := receiverBase(recv.Type)
		recv.Type = selfType(t.Name, self, ptr)
		return
	}
	var tparams []*ast.Field
	if op.HasReceiver() {
		recv := op.receiver()
		_, _, ptr := receiverBase(recv.Type)
		param := &ast.Field{Names: recv.Names, Type: selfType(t.Name, self, ptr)}
		nameParams(param, fd.Type.Params)
		fd.Type.Params.List = slices.Insert(fd.Type.Params.List, 0, param)
		fd.Recv = nil
		tparams = append(tparams, res.OwnParams...)
	} else if fd.Type.TypeParams != nil {
		tparams = append(tparams, fd.Type.TypeParams.List...)
	}
	if len(res.Free) > 0 {
		f := &ast.Field{Type: ast.NewIdent(reg.Constraint())}
		for _, p := range res.Free {
			f.Names = append(f.Names, ast.NewIdent(p))
		}
		tparams = append(tparams, f)
	}
	if len(tparams) > 0 {
		fd.Type.TypeParams = &ast.FieldList{List: tparams}
	}
	fd.Name.Name = name
}

// selfType returns name[args...], behind a pointer when ptr is set.
func selfType(name string, args []ast.Expr, ptr bool) ast.Expr {
	x := rewrite.Instantiate(name, args)
	if ptr {
		return &ast.StarExpr{X: x}
	}
	return x
}

// nameParams makes the former receiver and the parameters agree on whether
// parameters are named, as Go requires of one parameter list.
func nameParams(recv *ast.Field, params *ast.FieldList) {
	var named, unnamed bool
	for _, f := range params.List {
		if len(f.Names) > 0 {
			named = true
		} else {
			unnamed = true
		}
	}
	switch {
	case len(recv.Names) == 0 && named:
		recv.Names = []*ast.Ident{ast.NewIdent("_")}
	case len(recv.Names) > 0 && unnamed:
		for _, f := range params.List {
			if len(f.Names) == 0 {
				f.Names = []*ast.Ident{ast.NewIdent("_")}
			}
		}
	}
}

// checkRest reports directives outside tracked declarations and ordinary
// declarations that refer to a tracked type, which the rewrite would leave
// without type arguments.
func (u *unit) checkRest() {
	isOp := make(map[*ast.FuncDecl]bool, len(u.ops))
	for _, op := range u.ops {
		isOp[op.Decl] = true
	}
	for _, d := range u.file.Decls {
		if u.drop[d] {
			continue
		}
		switch d := d.(type) {
		case *ast.FuncDecl:
			if isOp[d] {
				continue
			}
			name := declName(d)
			if err := u.rest(d.Doc, name); err != nil {
				u.report(err)
			}
			if n, ok := u.mentions(d); ok {
				u.report(stateshift.NewShapeError(u.position(d.Pos()), name, fmt.Sprintf("refers to tracked type %s outside its operations", n)))
				u.drop[d] = true
			}
		case *ast.GenDecl:
			if d.Tok == token.IMPORT {
				continue
			}
			// A lone type spec reads its directives from the declaration doc.
			if d.Tok != token.TYPE || d.Lparen.IsValid() {
				if err := u.rest(d.Doc, d.Tok.String()+" declaration"); err != nil {
					u.report(err)
				}
			}
			for _, s := range d.Specs {
				u.checkSpec(d, s)
			}
		}
	}
}

func (u *unit) checkSpec(gd *ast.GenDecl, s ast.Spec) {
	var (
		name string
		doc  *ast.CommentGroup
	)
	switch s := s.(type) {
	case *ast.TypeSpec:
		if _, ok := u.types[s.Name.Name]; ok || u.failed[s.Name.Name] {
			return
		}
		name, doc = s.Name.Name, typeDoc(gd, s)
	case *ast.ValueSpec:
		name, doc = s.Names[0].Name, s.Doc
	}
	if err := u.rest(doc, name); err != nil {
		u.report(err)
	}
	if n, ok := u.mentions(s); ok {
		u.report(stateshift.NewShapeError(u.position(s.Pos()), name, fmt.Sprintf("refers to tracked type %s outside its operations", n)))
		u.drop[s] = true
	}
}

// mentions returns the first tracked type node refers to.
func (u *unit) mentions(node ast.Node) (string, bool) {
	for _, n := range u.order {
		if rewrite.Contains(node, n) {
			return n, true
		}
	}
	return "", false
}
