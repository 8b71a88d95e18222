package annotation

import (
	"fmt"
	"go/token"
	"slices"
	"strconv"
)

// Options holds the key=value arguments of a directive.
// A parenthesized value yields one entry per list element.
type Options map[string][]string

// ParseOptions parses arguments such as "slots=3 default=Initial" or
// "states=(Initial, Done), default=(Initial, Initial)".
func ParseOptions(args string) (Options, error) {
	items, err := scan(args)
	if err != nil {
		return nil, err
	}
	opts := make(Options)
	for i := 0; i < len(items); {
		if items[i].tok == token.COMMA {
			i++
			continue
		}
		key := items[i]
		// Keys may be Go keywords, as in default=Initial.
		if key.tok != token.IDENT && !key.tok.IsKeyword() {
			return nil, fmt.Errorf("offset %d: expected option name, found %s", key.off, key)
		}
		if i+1 >= len(items) || items[i+1].tok != token.ASSIGN {
			return nil, fmt.Errorf("offset %d: expected = after %q", key.off, key.lit)
		}
		if _, dup := opts[key.lit]; dup {
			return nil, fmt.Errorf("offset %d: option %q given twice", key.off, key.lit)
		}
		i += 2
		if i >= len(items) {
			return nil, fmt.Errorf("offset %d: missing value for %q", key.off, key.lit)
		}
		switch v := items[i]; v.tok {
		case token.IDENT, token.INT:
			opts[key.lit] = []string{v.lit}
			i++
		case token.LPAREN:
			end := i + 1
			for end < len(items) && items[end].tok != token.RPAREN {
				end++
			}
			if end == len(items) {
				return nil, fmt.Errorf("offset %d: unclosed list for %q", v.off, key.lit)
			}
			syms, err := symbols(items[i+1 : end])
			if err != nil {
				return nil, fmt.Errorf("option %q: %w", key.lit, err)
			}
			vals := make([]string, len(syms))
			for j, s := range syms {
				vals[j] = s.String()
			}
			opts[key.lit] = vals
			i = end + 1
		default:
			return nil, fmt.Errorf("offset %d: invalid value %s for %q", v.off, v, key.lit)
		}
	}
	return opts, nil
}

// Has reports whether the option was given.
func (o Options) Has(key string) bool {
	_, ok := o[key]
	return ok
}

// Int returns the option as a single integer.
func (o Options) Int(key string) (int, bool, error) {
	vs, ok := o[key]
	if !ok {
		return 0, false, nil
	}
	if len(vs) != 1 {
		return 0, true, fmt.Errorf("option %q: expected a single integer", key)
	}
	n, err := strconv.Atoi(vs[0])
	if err != nil {
		return 0, true, fmt.Errorf("option %q: %w", key, err)
	}
	return n, true, nil
}

// Unknown returns the sorted keys not listed in allowed.
func (o Options) Unknown(allowed ...string) []string {
	var unknown []string
	for k := range o {
		if !slices.Contains(allowed, k) {
			unknown = append(unknown, k)
		}
	}
	slices.Sort(unknown)
	return unknown
}
