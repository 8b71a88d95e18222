package gen

import (
	"go/ast"
	"go/token"

	"github.com/syssam/stateshift/compiler/rewrite"
)

// PatchBody instantiates every composite literal of t in body with out and
// gives it the hidden state field. Literals may sit anywhere: behind &, as
// arguments of wrapping calls, in multi-value returns or in closures.
// Literals already carrying the field are left alone. Other references to t
// in the body, such as Maybe[T] in a conversion or a local variable type,
// are instantiated with out as well. It returns the number of references
// rewritten.
func PatchBody(body *ast.BlockStmt, t *TrackedType, field string, out []Binding) int {
	if body == nil {
		return 0
	}
	inst := instantiate(t.Name, out)
	_, n := rewrite.Walk(body, t.Name, func(ref rewrite.Ref) ast.Expr {
		lit := ref.Lit
		if lit == nil {
			return inst(ref)
		}
		if hasStateField(lit, t, field) {
			return nil
		}
		value := &ast.CompositeLit{Type: stateType(exprs(out))}
		if isPositional(lit) {
			lit.Elts = append([]ast.Expr{value}, lit.Elts...)
		} else {
			lit.Elts = append(lit.Elts, &ast.KeyValueExpr{Key: ast.NewIdent(field), Value: value})
		}
		return inst(ref)
	})
	return n
}

// stateType returns [0]func() (args...), the zero-size type of the hidden field.
func stateType(args []ast.Expr) ast.Expr {
	results := &ast.FieldList{}
	for _, a := range args {
		results.List = append(results.List, &ast.Field{Type: a})
	}
	return &ast.ArrayType{
		Len: &ast.BasicLit{Kind: token.INT, Value: "0"},
		Elt: &ast.FuncType{Params: &ast.FieldList{}, Results: results},
	}
}

func isPositional(lit *ast.CompositeLit) bool {
	if len(lit.Elts) == 0 {
		return false
	}
	_, keyed := lit.Elts[0].(*ast.KeyValueExpr)
	return !keyed
}

func hasStateField(lit *ast.CompositeLit, t *TrackedType, field string) bool {
	if isPositional(lit) {
		return len(lit.Elts) > t.fields
	}
	for _, e := range lit.Elts {
		if kv, ok := e.(*ast.KeyValueExpr); ok {
			if id, ok := kv.Key.(*ast.Ident); ok && id.Name == field {
				return true
			}
		}
	}
	return false
}
