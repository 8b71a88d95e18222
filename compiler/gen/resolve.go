package gen

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/types"

	"github.com/syssam/stateshift/compiler/rewrite"
)

// Binding is the type argument of one state slot: a namespaced marker type
// or a type parameter left free by the operation.
type Binding struct {
	Marker string
	Param  string
}

// IsFree reports whether the slot is bound to a type parameter.
func (b Binding) IsFree() bool {
	return b.Param != ""
}

// Name returns the identifier of the bound type.
func (b Binding) Name() string {
	if b.IsFree() {
		return b.Param
	}
	return b.Marker
}

// Expr returns the bound type as an expression.
func (b Binding) Expr() ast.Expr {
	return ast.NewIdent(b.Name())
}

func exprs(bs []Binding) []ast.Expr {
	xs := make([]ast.Expr, len(bs))
	for i, b := range bs {
		xs[i] = b.Expr()
	}
	return xs
}

// Resolution is the generic signature of one operation.
type Resolution struct {
	// Self binds every slot of the operation's input value.
	Self []Binding
	// Free lists the placeholder type parameters, in slot order.
	Free []string
	// Own lists the tracked type's own type parameters as the operation
	// spells them.
	Own []string
	// OwnParams declares Own, with constraints, for the function form.
	OwnParams []*ast.Field
}

// OwnExprs returns the own type parameters as type arguments.
func (r *Resolution) OwnExprs() []ast.Expr {
	xs := make([]ast.Expr, len(r.Own))
	for i, n := range r.Own {
		xs[i] = ast.NewIdent(n)
	}
	return xs
}

// Resolve binds the precondition of op: pinned slots to the registry's
// markers, free slots to fresh placeholder type parameters named after the
// slot position. used holds the identifiers placeholders must not shadow and
// receives the names chosen.
func Resolve(op *Operation, reg *Registry, used map[string]bool) (*Resolution, error) {
	res := &Resolution{Self: make([]Binding, len(op.Require))}
	if op.HasReceiver() {
		if err := res.own(op, used); err != nil {
			return nil, err
		}
	}
	for i, s := range op.Require {
		if !s.IsFree() {
			res.Self[i] = Binding{Marker: reg.Marker(s.Name)}
			continue
		}
		p := fresh(placeholder(i), used)
		res.Self[i] = Binding{Param: p}
		res.Free = append(res.Free, p)
	}
	return res, nil
}

// own renames the tracked type's parameters to the receiver's spelling and
// copies their constraints.
func (r *Resolution) own(op *Operation, used map[string]bool) error {
	t := op.Type
	if len(t.Own) == 0 {
		return nil
	}
	_, args, _ := receiverBase(op.receiver().Type)
	rename := make(map[string]string, len(args))
	for i, a := range args {
		n := a.(*ast.Ident).Name
		if n == "_" {
			n = fresh(t.Own[i], used)
		}
		rename[t.Own[i]] = n
		r.Own = append(r.Own, n)
	}
	for _, f := range t.OwnParams {
		c, err := cloneExpr(f.Type)
		if err != nil {
			return fmt.Errorf("copy constraint of %s: %w", t.Name, err)
		}
		field := &ast.Field{Type: rewrite.Rename(c, rename).(ast.Expr)}
		for _, n := range f.Names {
			field.Names = append(field.Names, ast.NewIdent(rename[n.Name]))
		}
		r.OwnParams = append(r.OwnParams, field)
	}
	return nil
}

// cloneExpr returns a position-free deep copy of a type expression.
func cloneExpr(x ast.Expr) (ast.Expr, error) {
	return parser.ParseExpr(types.ExprString(x))
}

// usedNames returns the identifiers a generated signature for fd must not
// shadow: those fd refers to and the package-level names in reserved.
func usedNames(fd *ast.FuncDecl, reserved map[string]bool) map[string]bool {
	used := rewrite.Idents(fd)
	for n := range reserved {
		used[n] = true
	}
	return used
}
