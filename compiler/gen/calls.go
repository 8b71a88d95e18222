package gen

import (
	"go/ast"
	"go/token"

	"golang.org/x/tools/go/ast/astutil"
)

// tracked describes a value of a tracked type inside an operation body.
type tracked struct {
	typ string
	ptr bool
}

// sibling is an operation reachable as a method that becomes a function.
type sibling struct {
	fn     string
	ptr    bool     // pointer receiver
	result *tracked // the single tracked result, if any
}

// siblings indexes the operations in function form by type and method
// name. It reads the declarations as written, so it runs before any
// signature is rewritten.
func (u *unit) siblings() map[string]map[string]sibling {
	idx := make(map[string]map[string]sibling)
	for _, op := range u.ops {
		if u.drop[op.Decl] || !op.HasReceiver() || op.StateIndependent() {
			continue
		}
		_, _, ptr := receiverBase(op.receiver().Type)
		s := sibling{fn: op.FuncName(), ptr: ptr}
		if rs := op.Decl.Type.Results; rs != nil && rs.NumFields() == 1 {
			if base, _, rptr := receiverBase(rs.List[0].Type); base == op.Type.Name {
				s.result = &tracked{typ: base, ptr: rptr}
			}
		}
		byName := idx[op.Type.Name]
		if byName == nil {
			byName = make(map[string]sibling)
			idx[op.Type.Name] = byName
		}
		byName[op.Decl.Name.Name] = s
	}
	return idx
}

// RewriteCalls turns method calls of operations in function form into calls
// of the generated functions: x.Prepare(n) becomes TaskPrepare(x, n). Only
// calls on values known to be tracked are rewritten: the receiver of op, a
// literal of a tracked type, a variable set from a tracked value and the
// result of a rewritten call. It returns the number of calls rewritten.
func RewriteCalls(op *Operation, ops map[string]map[string]sibling) int {
	body := op.Decl.Body
	if body == nil || len(ops) == 0 {
		return 0
	}
	vars := make(map[string]tracked)
	if op.HasReceiver() {
		recv := op.receiver()
		if len(recv.Names) == 1 && recv.Names[0].Name != "_" {
			_, _, ptr := receiverBase(recv.Type)
			vars[recv.Names[0].Name] = tracked{typ: op.Type.Name, ptr: ptr}
		}
	}
	results := make(map[ast.Expr]tracked)

	var kind func(x ast.Expr) (tracked, bool)
	kind = func(x ast.Expr) (tracked, bool) {
		switch x := x.(type) {
		case *ast.ParenExpr:
			return kind(x.X)
		case *ast.Ident:
			v, ok := vars[x.Name]
			return v, ok
		case *ast.CompositeLit:
			base, _, ptr := receiverBase(x.Type)
			if _, ok := ops[base]; ok && !ptr {
				return tracked{typ: base}, true
			}
		case *ast.UnaryExpr:
			if v, ok := kind(x.X); ok && x.Op == token.AND && !v.ptr {
				return tracked{typ: v.typ, ptr: true}, true
			}
		case *ast.StarExpr:
			if v, ok := kind(x.X); ok && v.ptr {
				return tracked{typ: v.typ}, true
			}
		case *ast.CallExpr:
			v, ok := results[x]
			return v, ok
		}
		return tracked{}, false
	}
	define := func(names []*ast.Ident, values []ast.Expr) {
		if len(names) != len(values) {
			return
		}
		for i, n := range names {
			if v, ok := kind(values[i]); ok {
				vars[n.Name] = v
			} else {
				delete(vars, n.Name)
			}
		}
	}

	n := 0
	astutil.Apply(body, nil, func(c *astutil.Cursor) bool {
		switch x := c.Node().(type) {
		case *ast.CallExpr:
			sel, ok := x.Fun.(*ast.SelectorExpr)
			if !ok {
				return true
			}
			v, ok := kind(sel.X)
			if !ok {
				return true
			}
			s, ok := ops[v.typ][sel.Sel.Name]
			if !ok {
				return true
			}
			recv := sel.X
			switch {
			case s.ptr && !v.ptr:
				recv = &ast.UnaryExpr{Op: token.AND, X: recv}
			case !s.ptr && v.ptr:
				recv = &ast.StarExpr{X: recv}
			}
			call := &ast.CallExpr{
				Fun:      &ast.Ident{NamePos: x.Pos(), Name: s.fn},
				Lparen:   x.Lparen,
				Args:     append([]ast.Expr{recv}, x.Args...),
				Ellipsis: x.Ellipsis,
				Rparen:   x.Rparen,
			}
			if s.result != nil {
				results[call] = *s.result
			}
			c.Replace(call)
			n++
		case *ast.AssignStmt:
			names := make([]*ast.Ident, 0, len(x.Lhs))
			for _, l := range x.Lhs {
				id, ok := l.(*ast.Ident)
				if !ok {
					return true
				}
				names = append(names, id)
			}
			define(names, x.Rhs)
		case *ast.ValueSpec:
			if x.Type != nil {
				if base, _, ptr := receiverBase(x.Type); base != "" {
					if _, ok := ops[base]; ok {
						for _, name := range x.Names {
							vars[name.Name] = tracked{typ: base, ptr: ptr}
						}
						return true
					}
				}
			}
			define(x.Names, x.Values)
		}
		return true
	})
	return n
}
