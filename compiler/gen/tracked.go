package gen

import (
	"fmt"
	"go/ast"
	"go/token"
	"slices"

	"github.com/syssam/stateshift"
	"github.com/syssam/stateshift/compiler/annotation"
	"github.com/syssam/stateshift/compiler/rewrite"
)

// TrackedType is a struct type whose values carry a vector of state markers
// in their type.
type TrackedType struct {
	Name string
	Decl *ast.GenDecl
	Spec *ast.TypeSpec

	// Own holds the names of the type parameters the struct declares itself.
	// They stay first in the rewritten declaration.
	Own []string
	// OwnParams declares Own as written in the source, before the slot
	// parameters are appended to the declaration.
	OwnParams []*ast.Field

	// Slots is the number of state slots (k >= 1).
	Slots int
	// Default is the initial marker vector, one state name per slot.
	Default []string
	// States is the declared alphabet, nil when the alphabet is implicit.
	States []string

	Pos token.Position

	fields int // struct field count, for positional literals
}

// Exported reports whether the tracked type, and so its markers, are exported.
func (t *TrackedType) Exported() bool {
	return isExported(t.Name)
}

// Declares reports whether state belongs to the alphabet.
// Every name does when the alphabet is implicit.
func (t *TrackedType) Declares(state string) bool {
	return t.States == nil || slices.Contains(t.States, state)
}

// DefaultSymbols returns the default vector with every slot pinned.
func (t *TrackedType) DefaultSymbols() []annotation.Symbol {
	return annotation.Pins(t.Default...)
}

// Operation is a function or method whose callers must hold a tracked value
// in a given state.
type Operation struct {
	Decl *ast.FuncDecl
	Type *TrackedType

	// Require is the precondition vector. Methods default to all free,
	// functions without receiver to the default vector.
	Require []annotation.Symbol
	// SwitchTo is the postcondition vector, nil when every slot passes through.
	SwitchTo []annotation.Symbol
	// Name overrides the generated function name.
	Name string
	// Implicit marks a constructor recognised from its results alone.
	Implicit bool

	Pos token.Position
}

// HasReceiver reports whether the operation is declared as a method.
func (op *Operation) HasReceiver() bool {
	return op.Decl.Recv != nil && len(op.Decl.Recv.List) == 1
}

// StateIndependent reports whether the operation stays a method: it has a
// receiver, pins no slot and keeps its name.
func (op *Operation) StateIndependent() bool {
	if !op.HasReceiver() || op.Name != "" {
		return false
	}
	for _, s := range op.Require {
		if !s.IsFree() {
			return false
		}
	}
	return true
}

// FuncName returns the name of the generated declaration.
func (op *Operation) FuncName() string {
	switch {
	case op.Name != "":
		return op.Name
	case !op.HasReceiver(), op.StateIndependent():
		return op.Decl.Name.Name
	default:
		return OperationName(op.Type.Name, op.Decl.Name.Name)
	}
}

// String names the operation in diagnostics.
func (op *Operation) String() string {
	return declName(op.Decl)
}

// receiver returns the receiver field of a method.
func (op *Operation) receiver() *ast.Field {
	return op.Decl.Recv.List[0]
}

// declName names a function declaration in diagnostics: T.M or F.
func declName(fd *ast.FuncDecl) string {
	if fd.Recv != nil && len(fd.Recv.List) == 1 {
		if base, _, _ := receiverBase(fd.Recv.List[0].Type); base != "" {
			return base + "." + fd.Name.Name
		}
	}
	return fd.Name.Name
}

// receiverBase splits a receiver type into its base type name, its type
// arguments and whether it is a pointer.
func receiverBase(x ast.Expr) (name string, args []ast.Expr, ptr bool) {
	if p, ok := x.(*ast.ParenExpr); ok {
		return receiverBase(p.X)
	}
	if s, ok := x.(*ast.StarExpr); ok {
		x, ptr = s.X, true
	}
	switch e := x.(type) {
	case *ast.IndexExpr:
		x, args = e.X, []ast.Expr{e.Index}
	case *ast.IndexListExpr:
		x, args = e.X, e.Indices
	}
	if id, ok := x.(*ast.Ident); ok {
		name = id.Name
	}
	return name, args, ptr
}

// countFields returns the number of fields a positional literal of st lists.
func countFields(st *ast.StructType) int {
	n := 0
	for _, f := range st.Fields.List {
		if len(f.Names) == 0 {
			n++
		}
		n += len(f.Names)
	}
	return n
}

// typeDoc returns the comment group carrying the directives of spec.
func typeDoc(gd *ast.GenDecl, spec *ast.TypeSpec) *ast.CommentGroup {
	if spec.Doc != nil || gd.Lparen.IsValid() {
		return spec.Doc
	}
	return gd.Doc
}

// parseType reads the tracked type declared by spec. It returns nil, nil when
// spec carries no type directive.
func (u *unit) parseType(gd *ast.GenDecl, spec *ast.TypeSpec) (*TrackedType, error) {
	doc := typeDoc(gd, spec)
	name := spec.Name.Name
	pos := u.position(spec.Pos())
	d, ok := annotation.Extract(doc, annotation.Type)
	if !ok {
		if sd, ok := annotation.Find(doc, annotation.States); ok {
			return nil, stateshift.NewAnnotationError(u.position(sd.Pos), name, annotation.States, "requires //stateshift:type", nil)
		}
		return nil, nil
	}
	defer u.compact(doc, spec.Name.Pos())
	dpos := u.position(d.Pos)
	if _, dup := annotation.Find(doc, annotation.Type); dup {
		return nil, stateshift.NewAnnotationError(dpos, name, annotation.Type, "directive given twice", nil)
	}
	st, ok := spec.Type.(*ast.StructType)
	if !ok || spec.Assign.IsValid() {
		return nil, stateshift.NewShapeError(pos, name, "only struct type definitions can be tracked")
	}

	opts, err := d.Options()
	if err != nil {
		return nil, stateshift.NewAnnotationError(dpos, name, annotation.Type, "", err)
	}
	if unknown := opts.Unknown("slots", "default", "states"); len(unknown) > 0 {
		return nil, stateshift.NewAnnotationError(dpos, name, annotation.Type, fmt.Sprintf("unknown option %q", unknown[0]), nil)
	}
	t := &TrackedType{
		Name:   name,
		Decl:   gd,
		Spec:   spec,
		Pos:    pos,
		fields: countFields(st),
	}
	def := opts["default"]
	if len(def) == 0 {
		return nil, stateshift.NewAnnotationError(dpos, name, annotation.Type, "missing default=<state>", nil)
	}
	k, hasK, err := opts.Int("slots")
	switch {
	case err != nil:
		return nil, stateshift.NewAnnotationError(dpos, name, annotation.Type, "", err)
	case !hasK:
		k = len(def)
	case k < 1:
		return nil, stateshift.NewAnnotationError(dpos, name, annotation.Type, "slots must be at least 1", nil)
	}
	if len(def) == 1 && k > 1 {
		def = slices.Repeat(def, k)
	}
	if len(def) != k {
		return nil, stateshift.NewArityError(dpos, name, annotation.Type, k, len(def))
	}
	for _, s := range def {
		if !token.IsIdentifier(s) || s == annotation.FreeToken {
			return nil, stateshift.NewAnnotationError(dpos, name, annotation.Type, fmt.Sprintf("default %q is not a state name", s), nil)
		}
	}
	t.Slots, t.Default = k, def

	if t.States, err = u.alphabet(doc, name, opts); err != nil {
		return nil, err
	}
	for _, s := range t.Default {
		if !t.Declares(s) {
			return nil, stateshift.NewMarkerError(dpos, name, name, s)
		}
	}
	if err := u.rest(doc, name); err != nil {
		return nil, err
	}

	field := u.cfg.stateField()
	for _, f := range st.Fields.List {
		for _, n := range f.Names {
			if n.Name == field {
				return nil, stateshift.NewShapeError(u.position(n.Pos()), name, fmt.Sprintf("field %s is reserved for the state vector", field))
			}
		}
	}
	if spec.TypeParams != nil {
		t.OwnParams = slices.Clone(spec.TypeParams.List)
		for _, f := range spec.TypeParams.List {
			for _, n := range f.Names {
				t.Own = append(t.Own, n.Name)
			}
		}
	}
	return t, nil
}

// alphabet returns the declared states, given either as the states option
// or as a //stateshift:states directive.
func (u *unit) alphabet(doc *ast.CommentGroup, name string, opts annotation.Options) ([]string, error) {
	states, inline := opts["states"]
	d, ok := annotation.Extract(doc, annotation.States)
	if ok {
		dpos := u.position(d.Pos)
		if inline {
			return nil, stateshift.NewAnnotationError(dpos, name, annotation.States, "alphabet already given by the states option", nil)
		}
		if _, dup := annotation.Find(doc, annotation.States); dup {
			return nil, stateshift.NewAnnotationError(dpos, name, annotation.States, "directive given twice", nil)
		}
		syms, err := d.Symbols()
		if err != nil {
			return nil, stateshift.NewAnnotationError(dpos, name, annotation.States, "", err)
		}
		states = make([]string, len(syms))
		for i, s := range syms {
			states[i] = s.String()
		}
	} else if !inline {
		return nil, nil
	}
	seen := make(map[string]bool, len(states))
	for _, s := range states {
		switch {
		case s == annotation.FreeToken:
			return nil, stateshift.NewAnnotationError(u.position(d.Pos), name, annotation.States, `"_" is not a state name`, nil)
		case seen[s]:
			return nil, stateshift.NewAnnotationError(u.position(d.Pos), name, annotation.States, fmt.Sprintf("state %q declared twice", s), nil)
		}
		seen[s] = true
	}
	return states, nil
}

// rest reports the first directive left in doc after the known ones were consumed.
func (u *unit) rest(doc *ast.CommentGroup, decl string) error {
	for _, d := range annotation.Remaining(doc) {
		msg := "directive not valid here"
		if !annotation.IsKnown(d.Name) {
			msg = "unknown directive"
		}
		return stateshift.NewAnnotationError(u.position(d.Pos), decl, d.Name, msg, nil)
	}
	return nil
}

// bind finds the tracked type fd operates on. It returns nil when fd is not
// an operation.
func (u *unit) bind(fd *ast.FuncDecl) (*TrackedType, bool, error) {
	name := declName(fd)
	if fd.Recv != nil && len(fd.Recv.List) == 1 {
		if d, ok := annotation.Find(fd.Doc, annotation.For); ok {
			return nil, false, stateshift.NewAnnotationError(u.position(d.Pos), name, annotation.For, "only valid on functions without receiver", nil)
		}
		base, _, _ := receiverBase(fd.Recv.List[0].Type)
		return u.types[base], false, nil
	}
	if d, ok := annotation.Extract(fd.Doc, annotation.For); ok {
		if _, dup := annotation.Find(fd.Doc, annotation.For); dup {
			return nil, false, stateshift.NewAnnotationError(u.position(d.Pos), name, annotation.For, "directive given twice", nil)
		}
		t, ok := u.types[d.Args]
		if !ok {
			if u.failed[d.Args] {
				return nil, false, errSkipped
			}
			return nil, false, stateshift.NewShapeError(u.position(d.Pos), name, fmt.Sprintf("//stateshift:for names %q, which is not a tracked type", d.Args))
		}
		return t, false, nil
	}
	var found []*TrackedType
	if fd.Type.Results != nil {
		for _, n := range u.order {
			if rewrite.Contains(fd.Type.Results, n) {
				found = append(found, u.types[n])
			}
		}
		for n := range u.failed {
			if rewrite.Contains(fd.Type.Results, n) {
				return nil, false, errSkipped
			}
		}
	}
	_, req := annotation.Find(fd.Doc, annotation.Require)
	_, sw := annotation.Find(fd.Doc, annotation.SwitchTo)
	_, fn := annotation.Find(fd.Doc, annotation.Func)
	directed := req || sw || fn
	switch {
	case len(found) == 1:
		return found[0], !directed, nil
	case directed:
		return nil, false, stateshift.NewShapeError(u.position(fd.Pos()), name, "cannot tell which tracked type the function operates on; add //stateshift:for")
	}
	return nil, false, nil
}

// parseOperation reads the operation declared by fd, or returns nil when fd
// is not an operation.
func (u *unit) parseOperation(fd *ast.FuncDecl) (*Operation, error) {
	if fd.Recv != nil && len(fd.Recv.List) == 1 {
		base, _, _ := receiverBase(fd.Recv.List[0].Type)
		if u.failed[base] {
			return nil, errSkipped
		}
	}
	t, implicit, err := u.bind(fd)
	if err != nil || t == nil {
		return nil, err
	}
	defer u.compact(fd.Doc, fd.Pos())
	op := &Operation{
		Decl:     fd,
		Type:     t,
		Implicit: implicit,
		Pos:      u.position(fd.Pos()),
	}
	name := op.String()

	if op.Require, err = u.vector(op, annotation.Require); err != nil {
		return nil, err
	}
	if op.Require == nil {
		if op.HasReceiver() {
			op.Require = slices.Repeat([]annotation.Symbol{annotation.Placeholder}, t.Slots)
		} else {
			op.Require = t.DefaultSymbols()
		}
	}
	if op.SwitchTo, err = u.vector(op, annotation.SwitchTo); err != nil {
		return nil, err
	}
	if d, ok := annotation.Extract(fd.Doc, annotation.Func); ok {
		if _, dup := annotation.Find(fd.Doc, annotation.Func); dup {
			return nil, stateshift.NewAnnotationError(u.position(d.Pos), name, annotation.Func, "directive given twice", nil)
		}
		if !token.IsIdentifier(d.Args) {
			return nil, stateshift.NewAnnotationError(u.position(d.Pos), name, annotation.Func, fmt.Sprintf("%q is not an identifier", d.Args), nil)
		}
		op.Name = d.Args
	}
	if err := u.rest(fd.Doc, name); err != nil {
		return nil, err
	}
	if err := u.checkShape(op); err != nil {
		return nil, err
	}
	return op, nil
}

// vector extracts and validates the state vector directive dir of op.
// It returns nil when the directive is absent.
func (u *unit) vector(op *Operation, dir string) ([]annotation.Symbol, error) {
	name := op.String()
	d, syms, ok, err := annotation.ExtractSymbols(op.Decl.Doc, dir)
	if !ok {
		return nil, nil
	}
	pos := u.position(d.Pos)
	if err != nil {
		return nil, stateshift.NewAnnotationError(pos, name, dir, "", err)
	}
	if _, dup := annotation.Find(op.Decl.Doc, dir); dup {
		return nil, stateshift.NewAnnotationError(pos, name, dir, "directive given twice", nil)
	}
	if len(syms) != op.Type.Slots {
		return nil, stateshift.NewArityError(pos, name, dir, op.Type.Slots, len(syms))
	}
	for _, s := range syms {
		if !s.IsFree() && !op.Type.Declares(s.Name) {
			return nil, stateshift.NewMarkerError(pos, op.Type.Name, name, s.Name)
		}
	}
	return syms, nil
}

// checkShape rejects signatures the rewrite cannot express.
func (u *unit) checkShape(op *Operation) error {
	fd, t, name := op.Decl, op.Type, op.String()
	if op.HasReceiver() {
		_, args, _ := receiverBase(op.receiver().Type)
		if len(args) != len(t.Own) {
			return stateshift.NewShapeError(op.Pos, name, fmt.Sprintf("receiver must list the %d type parameters of %s", len(t.Own), t.Name))
		}
		for _, a := range args {
			if _, ok := a.(*ast.Ident); !ok {
				return stateshift.NewShapeError(op.Pos, name, "receiver type arguments must be identifiers")
			}
		}
	}
	for _, n := range u.order {
		if rewrite.Contains(fd.Type.Params, n) {
			return stateshift.NewShapeError(op.Pos, name, fmt.Sprintf("tracked type %s cannot appear among the parameters", n))
		}
		if n != t.Name && fd.Type.Results != nil && rewrite.Contains(fd.Type.Results, n) {
			return stateshift.NewShapeError(op.Pos, name, fmt.Sprintf("results mix tracked types %s and %s", t.Name, n))
		}
	}
	if op.SwitchTo != nil && (fd.Type.Results == nil || !rewrite.Contains(fd.Type.Results, t.Name)) {
		return stateshift.NewShapeError(op.Pos, name, fmt.Sprintf("//stateshift:switch_to needs a result of type %s", t.Name))
	}
	return nil
}
