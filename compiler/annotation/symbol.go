package annotation

import (
	"errors"
	"fmt"
	"go/scanner"
	"go/token"
	"strconv"
)

// Kind tags a Symbol as a pinned marker or a free slot.
type Kind uint8

const (
	// Pinned requires (or produces) one exact marker in the slot.
	Pinned Kind = iota + 1
	// Free leaves the slot unconstrained. In a postcondition it means pass-through.
	Free
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case Pinned:
		return "pinned"
	case Free:
		return "free"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// FreeToken is the spelling of a free slot in a state vector.
const FreeToken = "_"

// Symbol is one entry of a state vector: Pinned(name) or Free.
type Symbol struct {
	Kind Kind
	Name string // marker name; empty when Free
}

// Placeholder is the Free symbol.
var Placeholder = Symbol{Kind: Free}

// Pin returns the symbol pinning the slot to the named marker.
func Pin(name string) Symbol {
	return Symbol{Kind: Pinned, Name: name}
}

// IsFree reports whether the symbol leaves its slot unconstrained.
func (s Symbol) IsFree() bool {
	return s.Kind == Free
}

// String returns the symbol as written in a directive.
func (s Symbol) String() string {
	if s.IsFree() {
		return FreeToken
	}
	return s.Name
}

// Pins returns a vector pinning every slot to the given markers.
func Pins(names ...string) []Symbol {
	syms := make([]Symbol, len(names))
	for i, n := range names {
		syms[i] = Pin(n)
	}
	return syms
}

// Names returns the distinct pinned marker names of vectors in first-appearance order.
func Names(vectors ...[]Symbol) []string {
	var (
		names []string
		seen  = make(map[string]bool)
	)
	for _, v := range vectors {
		for _, s := range v {
			if s.IsFree() || seen[s.Name] {
				continue
			}
			seen[s.Name] = true
			names = append(names, s.Name)
		}
	}
	return names
}

// item is one scanned token of a directive argument list.
type item struct {
	off int
	tok token.Token
	lit string
}

func (it item) String() string {
	if it.lit != "" {
		return strconv.Quote(it.lit)
	}
	return strconv.Quote(it.tok.String())
}

// scan tokenizes directive arguments with the Go scanner.
func scan(src string) ([]item, error) {
	fset := token.NewFileSet()
	file := fset.AddFile("", -1, len(src))
	var (
		s     scanner.Scanner
		errs  scanner.ErrorList
		items []item
	)
	s.Init(file, []byte(src), func(pos token.Position, msg string) {
		errs.Add(pos, msg)
	}, 0)
	for {
		pos, tok, lit := s.Scan()
		if tok == token.EOF {
			break
		}
		// Automatic semicolon at end of input.
		if tok == token.SEMICOLON && lit == "\n" {
			continue
		}
		items = append(items, item{off: file.Offset(pos), tok: tok, lit: lit})
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// unparen strips one pair of parentheses enclosing the whole list.
func unparen(items []item) []item {
	if len(items) >= 2 && items[0].tok == token.LPAREN && items[len(items)-1].tok == token.RPAREN {
		return items[1 : len(items)-1]
	}
	return items
}

// ParseSymbols parses a comma separated state vector such as "Initial, _, _".
// The list may be wrapped in parentheses and may end with a comma.
func ParseSymbols(args string) ([]Symbol, error) {
	items, err := scan(args)
	if err != nil {
		return nil, err
	}
	return symbols(unparen(items))
}

func symbols(items []item) ([]Symbol, error) {
	var (
		syms []Symbol
		want = true // expecting a symbol rather than a comma
	)
	for _, it := range items {
		switch {
		case want && it.tok == token.IDENT:
			if it.lit == FreeToken {
				syms = append(syms, Placeholder)
			} else {
				syms = append(syms, Pin(it.lit))
			}
			want = false
		case !want && it.tok == token.COMMA:
			want = true
		case want:
			return nil, fmt.Errorf("offset %d: expected state name or %q, found %s", it.off, FreeToken, it)
		default:
			return nil, fmt.Errorf("offset %d: expected comma, found %s", it.off, it)
		}
	}
	if len(syms) == 0 {
		return nil, errors.New("empty state list")
	}
	return syms, nil
}
