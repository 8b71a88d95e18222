package gen

import (
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/go-openapi/inflect"
)

// MarkerName returns the marker type of state for the tracked type typ:
// PlayerBuilder + Initial = PlayerBuilderInitial. Markers are exported
// exactly when the tracked type is.
func MarkerName(typ, state string) string {
	return typ + inflect.Capitalize(state)
}

// ConstraintName returns the capability constraint of typ.
func ConstraintName(typ string) string {
	return typ + "State"
}

// SealName returns the unexported sealing interface of typ.
func SealName(typ string) string {
	return "sealed" + inflect.Capitalize(typ)
}

// SealMethod returns the method every marker of typ implements.
func SealMethod(typ string) string {
	return "is" + inflect.Capitalize(typ) + "State"
}

// OperationName returns the generated function name for method of typ.
// The name is exported exactly when the method is.
func OperationName(typ, method string) string {
	name := inflect.Capitalize(typ) + inflect.Capitalize(method)
	if isExported(method) {
		return name
	}
	return lowerFirst(name)
}

// SlotParam returns the type parameter name of slot i (0-based) in the
// tracked type declaration.
func SlotParam(i int) string {
	return "State" + strconv.Itoa(i+1)
}

// placeholder returns the base name of the free type parameter of slot i
// (0-based): A..Z, then S27, S28 and so on.
func placeholder(i int) string {
	if i < 26 {
		return string(rune('A' + i))
	}
	return "S" + strconv.Itoa(i+1)
}

// fresh returns base, or base with the smallest numeric suffix, that is not
// in used, and marks the result used.
func fresh(base string, used map[string]bool) string {
	name := base
	sep := ""
	if r, _ := utf8.DecodeLastRuneInString(base); unicode.IsDigit(r) {
		sep = "_"
	}
	for n := 1; used[name]; n++ {
		name = base + sep + strconv.Itoa(n)
	}
	used[name] = true
	return name
}

func isExported(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}

func lowerFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	return string(unicode.ToLower(r)) + s[n:]
}
