// Package lir defines the register-based intermediate representation
// produced by the code generator. A code block owns a flat sequence of
// instructions over monotonically allocated registers; structured
// control flow is expressed with labels, loop envelopes and dispatch
// instructions. Each entry carries the source span it was lowered
// from.
package lir

import (
	"github.com/wyrm-lang/wyrm/internal/types"
	"github.com/wyrm-lang/wyrm/internal/value"
)

// NullReg marks an absent target register, e.g. for an invocation in
// statement position whose result is discarded.
const NullReg = -1

// Instr is implemented by all IR instructions.
type Instr interface{ isInstr() }

// Comparator enumerates the comparison relations of conditional
// branches and assertions.
type Comparator int

const (
	CmpEq Comparator = iota
	CmpNeq
	CmpLt
	CmpLtEq
	CmpGt
	CmpGtEq
	CmpElemOf
	CmpSubset
	CmpSubsetEq
)

// BinArithKind enumerates binary arithmetic operations.
type BinArithKind int

const (
	ArithAdd BinArithKind = iota
	ArithSub
	ArithMul
	ArithDiv
	ArithRem
	ArithRange
	ArithBitAnd
	ArithBitOr
	ArithBitXor
	ArithLeftShift
	ArithRightShift
)

// UnArithKind enumerates unary arithmetic operations.
type UnArithKind int

const (
	ArithNeg UnArithKind = iota
	ArithNumerator
	ArithDenominator
)

// BinListKind enumerates binary list operations.
type BinListKind int

const (
	ListAppend BinListKind = iota
	ListLeftAppend
	ListRightAppend
)

// BinSetKind enumerates binary set operations.
type BinSetKind int

const (
	SetUnion BinSetKind = iota
	SetLeftUnion
	SetRightUnion
	SetIntersection
	SetLeftIntersection
	SetRightIntersection
	SetDifference
	SetLeftDifference
)

// BinStringKind enumerates binary string operations; the left variant
// takes a string on the left and a single character on the right, and
// the right variant takes them the other way round.
type BinStringKind int

const (
	StrAppend BinStringKind = iota
	StrLeftAppend
	StrRightAppend
)

// Const loads a constant value into a register.
type Const struct {
	Target int
	Value  value.Value
}

// Assign copies one register into another.
type Assign struct {
	Type    types.Type
	Target  int
	Operand int
}

// Convert coerces a value between representations.
type Convert struct {
	From    types.Type
	Target  int
	Operand int
	To      types.Type
}

// BinArithOp applies a binary arithmetic operation.
type BinArithOp struct {
	BinType
	Kind BinArithKind
}

// BinListOp applies a binary list operation.
type BinListOp struct {
	BinType
	Kind BinListKind
}

// BinSetOp applies a binary set operation.
type BinSetOp struct {
	BinType
	Kind BinSetKind
}

// BinStringOp applies a binary string operation.
type BinStringOp struct {
	Target int
	Lhs    int
	Rhs    int
	Kind   BinStringKind
}

// BinType is the common shape of typed binary operations.
type BinType struct {
	Type   types.Type
	Target int
	Lhs    int
	Rhs    int
}

// UnArithOp applies a unary arithmetic operation: negation, or the
// numerator/denominator projections of a rational.
type UnArithOp struct {
	Type    types.Type
	Target  int
	Operand int
	Kind    UnArithKind
}

// Invert flips every bit of a byte.
type Invert struct {
	Type    types.Type
	Target  int
	Operand int
}

// LengthOf computes the length of a string, list, set or map.
type LengthOf struct {
	Type    types.Type
	Target  int
	Operand int
}

// IndexOf reads an element of a list, string or map.
type IndexOf struct {
	Type   types.Type
	Target int
	Src    int
	Index  int
}

// SubList extracts a slice of a list.
type SubList struct {
	Type   types.Type
	Target int
	Src    int
	Start  int
	End    int
}

// SubString extracts a slice of a string.
type SubString struct {
	Target int
	Src    int
	Start  int
	End    int
}

// FieldLoad reads a named field of a record.
type FieldLoad struct {
	Type    types.Type
	Target  int
	Operand int
	Field   string
}

// TupleLoad reads the i'th element of a tuple.
type TupleLoad struct {
	Type    types.Type
	Target  int
	Operand int
	Index   int
}

// NewRecord builds a record from operands in sorted field order.
type NewRecord struct {
	Type     types.Type
	Target   int
	Operands []int
}

// NewTuple builds a tuple from its operands.
type NewTuple struct {
	Type     types.Type
	Target   int
	Operands []int
}

// NewList builds a list from its operands.
type NewList struct {
	Type     types.Type
	Target   int
	Operands []int
}

// NewSet builds a set from its operands.
type NewSet struct {
	Type     types.Type
	Target   int
	Operands []int
}

// NewMap builds a map from operands laid out as alternating key/value
// pairs.
type NewMap struct {
	Type     types.Type
	Target   int
	Operands []int
}

// NewObject allocates a fresh reference holding the operand.
type NewObject struct {
	Type    types.Type
	Target  int
	Operand int
}

// Dereference reads through a reference.
type Dereference struct {
	Type    types.Type
	Target  int
	Operand int
}

// If branches to Target when the comparison holds, otherwise falls
// through.
type If struct {
	Type   types.Type
	Lhs    int
	Rhs    int
	Op     Comparator
	Target string
}

// IfIs branches to Target when the operand's runtime type inhabits the
// test type.
type IfIs struct {
	Type    types.Type
	Operand int
	Test    types.Type
	Target  string
}

// SwitchBranch routes one constant to a case label.
type SwitchBranch struct {
	Value  value.Value
	Target string
}

// Switch dispatches on the operand's value, branching to the matching
// case label or to the default target.
type Switch struct {
	Type          types.Type
	Operand       int
	DefaultTarget string
	Branches      []SwitchBranch
}

// Goto branches unconditionally.
type Goto struct {
	Target string
}

// Label marks a branch target.
type Label struct {
	Label string
}

// Loop opens a loop envelope closed by the LoopEnd carrying the same
// label. Modified lists the registers assigned within the loop.
type Loop struct {
	Label    string
	Modified []int
}

// LoopEnd closes a loop envelope; control implicitly returns to the
// matching Loop.
type LoopEnd struct {
	Label string
}

// ForAll opens a loop iterating Index over the elements of Source,
// closed by the LoopEnd carrying the same label.
type ForAll struct {
	Type     types.Type
	Source   int
	Index    int
	Modified []int
	Label    string
}

// CatchBranch routes one exception type to a handler label.
type CatchBranch struct {
	Type   types.Type
	Target string
}

// TryCatch opens an exception region ending at the TryEnd carrying
// Target. A thrown value matching a catch type is stored in Operand
// and control transfers to the handler label.
type TryCatch struct {
	Operand int
	Target  string
	Catches []CatchBranch
}

// TryEnd marks the end of a try region. It doubles as the label of the
// first catch handler.
type TryEnd struct {
	Label string
}

// Invoke calls a named function or method directly.
type Invoke struct {
	Type     types.Type
	Target   int
	Operands []int
	Module   string
	Name     string
}

// IndirectInvoke calls through a register of function type.
type IndirectInvoke struct {
	Type     types.Type
	Target   int
	Operand  int
	Operands []int
}

// Lambda constructs a closure over the named function. Operand slots
// holding NullReg are supplied at call time; the rest capture the
// listed registers now.
type Lambda struct {
	Type     types.Type
	Target   int
	Operands []int
	Module   string
	Name     string
}

// Assert halts the program with a message unless the comparison holds.
type Assert struct {
	Type types.Type
	Lhs  int
	Rhs  int
	Op   Comparator
	Msg  string
}

// Throw raises the operand as an exception.
type Throw struct {
	Type    types.Type
	Operand int
}

// Debug prints the string operand on the debug channel.
type Debug struct {
	Operand int
}

// Return exits the enclosing function. A bare return carries the void
// type and NullReg.
type Return struct {
	Type    types.Type
	Operand int
}

// NewReturn creates a return of the given operand at the given type.
func NewReturn(t types.Type, operand int) Return {
	return Return{Type: t, Operand: operand}
}

// BareReturn creates a return without a value.
func BareReturn() Return {
	return Return{Type: types.Void(), Operand: NullReg}
}

// Nop does nothing.
type Nop struct{}

// Update performs a deep path assignment on the collection or record
// held in Target: Fields names the field steps, Operands holds the
// pre-computed index registers, and Operand holds the new value.
type Update struct {
	Type      types.Type
	Target    int
	Operand   int
	Operands  []int
	AfterType types.Type
	Fields    []string
}

func (Const) isInstr()          {}
func (Assign) isInstr()         {}
func (Convert) isInstr()        {}
func (BinArithOp) isInstr()     {}
func (BinListOp) isInstr()      {}
func (BinSetOp) isInstr()       {}
func (BinStringOp) isInstr()    {}
func (UnArithOp) isInstr()      {}
func (Invert) isInstr()         {}
func (LengthOf) isInstr()       {}
func (IndexOf) isInstr()        {}
func (SubList) isInstr()        {}
func (SubString) isInstr()      {}
func (FieldLoad) isInstr()      {}
func (TupleLoad) isInstr()      {}
func (NewRecord) isInstr()      {}
func (NewTuple) isInstr()       {}
func (NewList) isInstr()        {}
func (NewSet) isInstr()         {}
func (NewMap) isInstr()         {}
func (NewObject) isInstr()      {}
func (Dereference) isInstr()    {}
func (If) isInstr()             {}
func (IfIs) isInstr()           {}
func (Switch) isInstr()         {}
func (Goto) isInstr()           {}
func (Label) isInstr()          {}
func (Loop) isInstr()           {}
func (LoopEnd) isInstr()        {}
func (ForAll) isInstr()         {}
func (TryCatch) isInstr()       {}
func (TryEnd) isInstr()         {}
func (Invoke) isInstr()         {}
func (IndirectInvoke) isInstr() {}
func (Lambda) isInstr()         {}
func (Assert) isInstr()         {}
func (Throw) isInstr()          {}
func (Debug) isInstr()          {}
func (Return) isInstr()         {}
func (Nop) isInstr()            {}
func (Update) isInstr()         {}
