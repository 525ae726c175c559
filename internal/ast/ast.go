// Package ast defines the abstract syntax tree consumed by the
// resolver and the code generator. Expression nodes carry a mutable
// resolved-type attribute filled in during resolution, and abstract
// nodes (index access, length, invocation, bare names) are replaced by
// concrete variants once their operand types are known. Every node
// records its source span.
package ast

import (
	"github.com/wyrm-lang/wyrm/internal/position"
	"github.com/wyrm-lang/wyrm/internal/types"
	"github.com/wyrm-lang/wyrm/internal/value"
)

// Node is implemented by every AST node.
type Node interface {
	Span() position.Span
}

// Expr is implemented by every expression node. Result returns the
// resolved type of the expression; before resolution it is void.
type Expr interface {
	Node
	Result() types.Type
	exprNode()
}

// Stmt is implemented by every statement node.
type Stmt interface {
	Node
	stmtNode()
}

// ExprAttr carries the source attributes shared by all expression
// nodes.
type ExprAttr struct {
	Pos position.Span
}

// Span returns the source span of this node.
func (a ExprAttr) Span() position.Span { return a.Pos }

func (ExprAttr) exprNode() {}

// StmtAttr carries the source attributes shared by all statement
// nodes.
type StmtAttr struct {
	Pos position.Span
}

// Span returns the source span of this node.
func (a StmtAttr) Span() position.Span { return a.Pos }

func (StmtAttr) stmtNode() {}

// Param is a declared parameter of a function, method or lambda.
type Param struct {
	Name string
	Type types.Type
	Pos  position.Span
}

// Module is a single compilation unit of declarations.
type Module struct {
	Name         string
	Filename     string
	Declarations []Decl
}

// Decl is implemented by every top-level declaration.
type Decl interface {
	Node
	DeclName() string
}

// ConstantDecl declares a named constant with a pre-evaluated value.
type ConstantDecl struct {
	Name  string
	Value value.Value
	Pos   position.Span
}

// Span returns the source span of this declaration.
func (d *ConstantDecl) Span() position.Span { return d.Pos }

// DeclName returns the declared name.
func (d *ConstantDecl) DeclName() string { return d.Name }

// TypeDecl declares a named type, optionally constrained by an
// invariant expression over the variables bound by its pattern.
type TypeDecl struct {
	Name      string
	Pattern   Pattern
	Type      types.Type
	Invariant Expr // may be nil
	Pos       position.Span
}

// Span returns the source span of this declaration.
func (d *TypeDecl) Span() position.Span { return d.Pos }

// DeclName returns the declared name.
func (d *TypeDecl) DeclName() string { return d.Name }

// FunctionDecl declares a function or method with an optional
// precondition and postcondition.
type FunctionDecl struct {
	Name       string
	Parameters []Param
	Ret        types.Type
	Throws     types.Type
	Requires   Expr // may be nil
	Ensures    Expr // may be nil
	Body       []Stmt
	IsMethod   bool
	Pos        position.Span
}

// Span returns the source span of this declaration.
func (d *FunctionDecl) Span() position.Span { return d.Pos }

// DeclName returns the declared name.
func (d *FunctionDecl) DeclName() string { return d.Name }

// FnType returns the declared function or method type.
func (d *FunctionDecl) FnType() types.Type {
	params := make([]types.Type, len(d.Parameters))
	for i, p := range d.Parameters {
		params[i] = p.Type
	}
	if d.IsMethod {
		return types.Method(d.Ret, d.Throws, params...)
	}
	return types.Function(d.Ret, d.Throws, params...)
}
