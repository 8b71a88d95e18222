package gen

import (
	"fmt"
	"go/ast"

	"github.com/syssam/stateshift"
	"github.com/syssam/stateshift/compiler/rewrite"
)

// Transition returns the output bindings of op. A slot pinned by switch_to
// takes that marker; every other slot passes its self binding through, so
// a free slot keeps the identity of its placeholder.
func Transition(op *Operation, reg *Registry, res *Resolution) []Binding {
	out := make([]Binding, len(res.Self))
	copy(out, res.Self)
	for i, s := range op.SwitchTo {
		if !s.IsFree() {
			out[i] = Binding{Marker: reg.Marker(s.Name)}
		}
	}
	return out
}

// RewriteResults instantiates every occurrence of the tracked type in the
// result list of op with out, after any type arguments already written. The
// occurrence may be nested in pointers, slices, maps, channels, function
// types or generic wrappers. It returns the number of occurrences.
func RewriteResults(op *Operation, out []Binding) (int, error) {
	results := op.Decl.Type.Results
	name := op.Type.Name
	if results == nil || !rewrite.Contains(results, name) {
		if op.SwitchTo != nil {
			return 0, stateshift.NewShapeError(op.Pos, op.String(), fmt.Sprintf("//stateshift:switch_to needs a result of type %s", name))
		}
		return 0, nil
	}
	_, n := rewrite.Walk(results, name, instantiate(name, out))
	return n, nil
}

// instantiate returns the rewrite appending out to a reference's type arguments.
func instantiate(name string, out []Binding) rewrite.Func {
	return func(ref rewrite.Ref) ast.Expr {
		args := make([]ast.Expr, 0, len(ref.Args)+len(out))
		args = append(args, ref.Args...)
		args = append(args, exprs(out)...)
		return rewrite.Instantiate(name, args)
	}
}
