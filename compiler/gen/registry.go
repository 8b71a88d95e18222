package gen

import (
	"bytes"
	"fmt"
	"go/parser"
	"go/token"

	"github.com/dave/jennifer/jen"

	"github.com/syssam/stateshift/compiler/annotation"
)

// Registry is the generated type-level vocabulary of one tracked type: a
// marker struct per state, the sealing interface the markers implement and
// the capability constraint listing them.
//
// The constraint is a union of the markers, so its type set is closed: no
// other type satisfies it, inside or outside the package. Embedding the
// unexported sealing interface also makes the constraint unusable as an
// ordinary interface type.
type Registry struct {
	Type    *TrackedType
	Markers []string // state names, in declaration order
}

// BuildRegistry returns the registry of t with the given states.
// The declared alphabet, when present, takes precedence over states.
func BuildRegistry(t *TrackedType, states []string) *Registry {
	if t.States != nil {
		states = t.States
	}
	return &Registry{Type: t, Markers: states}
}

// markers returns the registry states of t: the declared alphabet, or every
// state named by the default vector and the operation vectors in order of
// first appearance.
func markers(t *TrackedType, ops []*Operation) []string {
	if t.States != nil {
		return t.States
	}
	vectors := [][]annotation.Symbol{t.DefaultSymbols()}
	for _, op := range ops {
		if op.Type == t {
			vectors = append(vectors, op.Require, op.SwitchTo)
		}
	}
	return annotation.Names(vectors...)
}

// Marker returns the marker type name of state.
func (r *Registry) Marker(state string) string {
	return MarkerName(r.Type.Name, state)
}

// Constraint returns the name of the capability constraint.
func (r *Registry) Constraint() string {
	return ConstraintName(r.Type.Name)
}

// Names returns every identifier the registry declares at package level.
func (r *Registry) Names() []string {
	names := []string{SealName(r.Type.Name), r.Constraint()}
	for _, m := range r.Markers {
		names = append(names, r.Marker(m))
	}
	return names
}

// Code returns the registry declarations.
func (r *Registry) Code() []jen.Code {
	var (
		typ    = r.Type.Name
		seal   = SealName(typ)
		method = SealMethod(typ)
		union  = make([]jen.Code, len(r.Markers))
	)
	for i, m := range r.Markers {
		union[i] = jen.Id(r.Marker(m))
	}
	code := []jen.Code{
		jen.Commentf("%s is implemented by the state markers of %s only.", seal, typ).Line().
			Type().Id(seal).Interface(jen.Id(method).Params()),
		jen.Commentf("%s is the closed set of states of %s.", r.Constraint(), typ).Line().
			Type().Id(r.Constraint()).Interface(jen.Id(seal), jen.Union(union...)),
	}
	for _, m := range r.Markers {
		marker := r.Marker(m)
		code = append(code,
			jen.Commentf("%s marks the state %s of %s.", marker, m, typ).Line().
				Type().Id(marker).Struct(),
			jen.Func().Params(jen.Id(marker)).Id(method).Params().Block(),
		)
	}
	return code
}

// renderRegistries renders the registries as package-level Go declarations,
// without the package clause.
func renderRegistries(pkg string, regs []*Registry) ([]byte, error) {
	if len(regs) == 0 {
		return nil, nil
	}
	f := jen.NewFile(pkg)
	for _, r := range regs {
		for _, c := range r.Code() {
			f.Add(c)
			f.Line()
		}
	}
	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, fmt.Errorf("render registry: %w", err)
	}
	fset := token.NewFileSet()
	af, err := parser.ParseFile(fset, "", buf.Bytes(), parser.PackageClauseOnly)
	if err != nil {
		return nil, fmt.Errorf("render registry: %w", err)
	}
	return bytes.TrimSpace(buf.Bytes()[fset.Position(af.Name.End()).Offset:]), nil
}
