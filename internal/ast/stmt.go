package ast

import (
	"github.com/wyrm-lang/wyrm/internal/position"
	"github.com/wyrm-lang/wyrm/internal/types"
	"github.com/wyrm-lang/wyrm/internal/value"
)

// VarDecl declares one or more variables through a pattern, with an
// optional initializer.
type VarDecl struct {
	StmtAttr
	Pattern Pattern
	Type    types.Type
	Init    Expr // may be nil
}

// Assign assigns the right-hand side to an lval: a variable, a tuple
// of variables, a rational destructuring, or a field/index path.
type Assign struct {
	StmtAttr
	Lhs Expr
	Rhs Expr
}

// Assert checks a condition at runtime.
type Assert struct {
	StmtAttr
	Cond Expr
}

// Assume introduces a verification assumption; at runtime it is a
// no-op.
type Assume struct {
	StmtAttr
	Cond Expr
}

// Return exits the enclosing function, optionally with a value.
type Return struct {
	StmtAttr
	Operand Expr // may be nil
}

// Debug prints a string operand on the debug channel.
type Debug struct {
	StmtAttr
	Operand Expr
}

// Skip does nothing.
type Skip struct {
	StmtAttr
}

// IfElse branches on a condition.
type IfElse struct {
	StmtAttr
	Cond        Expr
	TrueBranch  []Stmt
	FalseBranch []Stmt
}

// SwitchCase is one case of a switch statement. An empty value list
// denotes the default case.
type SwitchCase struct {
	Values []value.Value
	Body   []Stmt
	Pos    position.Span
}

// Switch dispatches on the value of an expression.
type Switch struct {
	StmtAttr
	Operand Expr
	Cases   []SwitchCase
}

// Catch is one handler of a try-catch statement.
type Catch struct {
	Type     types.Type
	Variable string
	Body     []Stmt
	Pos      position.Span
}

// TryCatch runs its body, routing thrown exceptions to the first
// matching catch handler.
type TryCatch struct {
	StmtAttr
	Body    []Stmt
	Catches []Catch
}

// Break exits the nearest enclosing loop.
type Break struct {
	StmtAttr
}

// Throw raises an exception value.
type Throw struct {
	StmtAttr
	Operand Expr
}

// While loops while the condition holds.
type While struct {
	StmtAttr
	Cond Expr
	Body []Stmt
}

// DoWhile runs its body then loops while the condition holds.
type DoWhile struct {
	StmtAttr
	Body []Stmt
	Cond Expr
}

// ForAll iterates the variables over a collection. Destructuring into
// two variables is supported for map sources only.
type ForAll struct {
	StmtAttr
	Variables []string
	Source    Expr
	SrcType   types.Type // resolved collection type of the source
	Body      []Stmt
}

// ExprStmt is a bare expression in statement position; only
// invocations and allocations are permitted here.
type ExprStmt struct {
	StmtAttr
	E Expr
}
