// Package errors defines the error kinds raised by the Wyrm compiler
// front-end. Language-level mistakes surface as SyntaxError; compiler
// bugs surface as InternalFailure; unresolved names travel as
// ResolveError until a dispatch boundary rewraps them.
package errors

import (
	"fmt"

	"github.com/wyrm-lang/wyrm/internal/position"
)

// SyntaxError reports a language-level mistake in the user's program,
// such as an unknown variable, incomparable operands or a break outside
// a loop. It carries the source range of the offending construct.
type SyntaxError struct {
	Msg      string
	Filename string
	Span     position.Span
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d-%d: %s", e.Filename, e.Span.Start, e.Span.End, e.Msg)
}

// NewSyntaxError creates a syntax error at the given source location.
func NewSyntaxError(msg, filename string, span position.Span) *SyntaxError {
	return &SyntaxError{Msg: msg, Filename: filename, Span: span}
}

// InternalFailure indicates a bug in the compiler itself, such as an
// unknown AST node kind reaching a dispatch table. It is deliberately a
// distinct type from SyntaxError so that callers can tell a broken
// program from a broken compiler.
type InternalFailure struct {
	Msg      string
	Filename string
	Span     position.Span
}

// Error implements the error interface.
func (e *InternalFailure) Error() string {
	return fmt.Sprintf("internal failure: %s:%d-%d: %s", e.Filename, e.Span.Start, e.Span.End, e.Msg)
}

// NewInternalFailure creates an internal failure at the given location.
func NewInternalFailure(msg, filename string, span position.Span) *InternalFailure {
	return &InternalFailure{Msg: msg, Filename: filename, Span: span}
}

// ResolveError indicates that a name could not be resolved against the
// enclosing project. The Resolver and CodeGenerator catch this and
// rewrap it as a SyntaxError with proper location information.
type ResolveError struct {
	Name string
}

// Error implements the error interface.
func (e *ResolveError) Error() string {
	return fmt.Sprintf("unable to resolve name %q", e.Name)
}

// NewResolveError creates a resolve error for the given name.
func NewResolveError(name string) *ResolveError {
	return &ResolveError{Name: name}
}

// Standard error messages shared between the resolver and the code
// generator, mirroring the failure modes of the language.
const (
	MsgUnknownVariable      = "unknown variable"
	MsgUnknownName          = "unable to resolve name"
	MsgIncomparableOperands = "incomparable operands"
	MsgRecordMissingField   = "record has no such field"
	MsgRecordTypeRequired   = "record type required"
	MsgArityMismatch        = "incorrect number of arguments"
	MsgBreakOutsideLoop     = "break outside switch or loop"
	MsgDuplicateCaseLabel   = "duplicate case label"
	MsgDuplicateDefault     = "duplicate default label"
	MsgUnreachableCode      = "unreachable code"
	MsgInvalidLVal          = "invalid assignment expression"
	MsgInvalidBooleanExpr   = "invalid boolean expression"
	MsgInvalidListExpr      = "invalid list expression"
	MsgInvalidSetOrListExpr = "invalid set or list expression"
	MsgInvalidMapExpr       = "invalid map expression"
	MsgSubtypeError         = "expected subtype"
)
