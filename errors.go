package stateshift

import (
	"errors"
	"fmt"
	"go/token"
	"strings"
)

// Sentinel errors for the diagnostic categories of an expansion.
var (
	// ErrMalformedAnnotation indicates a directive whose arguments do not parse.
	ErrMalformedAnnotation = errors.New("stateshift: malformed annotation")
	// ErrUnsupportedShape indicates a declaration the generator cannot rewrite.
	ErrUnsupportedShape = errors.New("stateshift: unsupported declaration shape")
	// ErrArityMismatch indicates a state vector whose length differs from the slot arity.
	ErrArityMismatch = errors.New("stateshift: arity mismatch")
	// ErrUnknownMarker indicates a pinned marker missing from the declared alphabet.
	ErrUnknownMarker = errors.New("stateshift: unknown state marker")
	// ErrInvalidConfig indicates a configuration error.
	ErrInvalidConfig = errors.New("stateshift: invalid configuration")
	// ErrGenerationFailed indicates a code generation failure.
	ErrGenerationFailed = errors.New("stateshift: code generation failed")
)

// writePrefix writes "file:line:col: " when the position is known.
func writePrefix(b *strings.Builder, pos token.Position) {
	if pos.IsValid() {
		b.WriteString(pos.String())
		b.WriteString(": ")
	}
}

// AnnotationError reports a directive that does not follow the directive grammar.
type AnnotationError struct {
	Pos       token.Position
	Decl      string // Declaration carrying the directive
	Directive string // Directive name, e.g. "require"
	Message   string
	Cause     error
}

// Error implements the error interface.
func (e *AnnotationError) Error() string {
	var b strings.Builder
	writePrefix(&b, e.Pos)
	b.WriteString("stateshift: malformed annotation")
	if e.Directive != "" {
		b.WriteString(" //stateshift:")
		b.WriteString(e.Directive)
	}
	if e.Decl != "" {
		b.WriteString(" on ")
		b.WriteString(e.Decl)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *AnnotationError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches the sentinel error for AnnotationError.
func (e *AnnotationError) Is(target error) bool {
	return target == ErrMalformedAnnotation
}

// NewAnnotationError creates a new AnnotationError.
func NewAnnotationError(pos token.Position, decl, directive, message string, cause error) *AnnotationError {
	return &AnnotationError{
		Pos:       pos,
		Decl:      decl,
		Directive: directive,
		Message:   message,
		Cause:     cause,
	}
}

// ShapeError reports a declaration whose shape cannot be rewritten.
type ShapeError struct {
	Pos     token.Position
	Decl    string
	Message string
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	var b strings.Builder
	writePrefix(&b, e.Pos)
	b.WriteString("stateshift: unsupported declaration")
	if e.Decl != "" {
		b.WriteString(" ")
		b.WriteString(e.Decl)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// Is reports whether the target matches the sentinel error for ShapeError.
func (e *ShapeError) Is(target error) bool {
	return target == ErrUnsupportedShape
}

// NewShapeError creates a new ShapeError.
func NewShapeError(pos token.Position, decl, message string) *ShapeError {
	return &ShapeError{
		Pos:     pos,
		Decl:    decl,
		Message: message,
	}
}

// ArityError reports a state vector whose length disagrees with the slot arity.
type ArityError struct {
	Pos       token.Position
	Decl      string
	Directive string
	Want      int
	Got       int
}

// Error implements the error interface.
func (e *ArityError) Error() string {
	var b strings.Builder
	writePrefix(&b, e.Pos)
	b.WriteString("stateshift: arity mismatch")
	if e.Directive != "" {
		b.WriteString(" in //stateshift:")
		b.WriteString(e.Directive)
	}
	if e.Decl != "" {
		b.WriteString(" on ")
		b.WriteString(e.Decl)
	}
	fmt.Fprintf(&b, ": want %d slots, got %d", e.Want, e.Got)
	return b.String()
}

// Is reports whether the target matches the sentinel error for ArityError.
func (e *ArityError) Is(target error) bool {
	return target == ErrArityMismatch
}

// NewArityError creates a new ArityError.
func NewArityError(pos token.Position, decl, directive string, want, got int) *ArityError {
	return &ArityError{
		Pos:       pos,
		Decl:      decl,
		Directive: directive,
		Want:      want,
		Got:       got,
	}
}

// MarkerError reports a pinned marker that the tracked type never declared.
type MarkerError struct {
	Pos    token.Position
	Type   string // Tracked type name
	Decl   string // Operation referencing the marker
	Marker string
}

// Error implements the error interface.
func (e *MarkerError) Error() string {
	var b strings.Builder
	writePrefix(&b, e.Pos)
	fmt.Fprintf(&b, "stateshift: unknown state %q", e.Marker)
	if e.Type != "" {
		b.WriteString(" for type ")
		b.WriteString(e.Type)
	}
	if e.Decl != "" {
		b.WriteString(" in ")
		b.WriteString(e.Decl)
	}
	return b.String()
}

// Is reports whether the target matches the sentinel error for MarkerError.
func (e *MarkerError) Is(target error) bool {
	return target == ErrUnknownMarker
}

// NewMarkerError creates a new MarkerError.
func NewMarkerError(pos token.Position, typeName, decl, marker string) *MarkerError {
	return &MarkerError{
		Pos:    pos,
		Type:   typeName,
		Decl:   decl,
		Marker: marker,
	}
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Option  string
	Value   any
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("stateshift: config error for %q (value: %v): %s", e.Option, e.Value, e.Message)
	}
	return fmt.Sprintf("stateshift: config error for %q: %s", e.Option, e.Message)
}

// Is reports whether the target matches the sentinel error for ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// NewConfigError creates a new ConfigError.
func NewConfigError(option string, value any, message string) *ConfigError {
	return &ConfigError{
		Option:  option,
		Value:   value,
		Message: message,
	}
}

// GenerationError represents a failure while producing an output file.
type GenerationError struct {
	Phase   string // "load", "expand", "format", "write", "check"
	File    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	var b strings.Builder
	b.WriteString("stateshift: generation error")
	if e.Phase != "" {
		b.WriteString(" in phase ")
		b.WriteString(e.Phase)
	}
	if e.File != "" {
		b.WriteString(" (file: ")
		b.WriteString(e.File)
		b.WriteString(")")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches the sentinel error for GenerationError.
func (e *GenerationError) Is(target error) bool {
	return target == ErrGenerationFailed
}

// NewGenerationError creates a new GenerationError.
func NewGenerationError(phase, file, message string, cause error) *GenerationError {
	return &GenerationError{
		Phase:   phase,
		File:    file,
		Message: message,
		Cause:   cause,
	}
}

// IsAnnotationError reports whether the error is an AnnotationError.
func IsAnnotationError(err error) bool {
	var e *AnnotationError
	return errors.As(err, &e)
}

// IsShapeError reports whether the error is a ShapeError.
func IsShapeError(err error) bool {
	var e *ShapeError
	return errors.As(err, &e)
}

// IsArityError reports whether the error is an ArityError.
func IsArityError(err error) bool {
	var e *ArityError
	return errors.As(err, &e)
}

// IsMarkerError reports whether the error is a MarkerError.
func IsMarkerError(err error) bool {
	var e *MarkerError
	return errors.As(err, &e)
}

// IsConfigError reports whether the error is a ConfigError.
func IsConfigError(err error) bool {
	var e *ConfigError
	return errors.As(err, &e)
}

// IsGenerationError reports whether the error is a GenerationError.
func IsGenerationError(err error) bool {
	var e *GenerationError
	return errors.As(err, &e)
}
