package lir

import (
	"fmt"
	"strings"
)

// String renders a block for debugging, one instruction per line with
// label markers outdented.
func (b *CodeBlock) String() string {
	var sb strings.Builder
	for _, e := range b.entries {
		switch e.Code.(type) {
		case Label, TryEnd:
			fmt.Fprintf(&sb, "%s\n", InstrString(e.Code))
		default:
			fmt.Fprintf(&sb, "    %s\n", InstrString(e.Code))
		}
	}
	return sb.String()
}

func reg(r int) string {
	if r == NullReg {
		return "%_"
	}
	return fmt.Sprintf("%%%d", r)
}

func regs(rs []int) string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = reg(r)
	}
	return strings.Join(parts, ", ")
}

// String renders a comparator in source notation.
func (op Comparator) String() string {
	switch op {
	case CmpEq:
		return "=="
	case CmpNeq:
		return "!="
	case CmpLt:
		return "<"
	case CmpLtEq:
		return "<="
	case CmpGt:
		return ">"
	case CmpGtEq:
		return ">="
	case CmpElemOf:
		return "in"
	case CmpSubset:
		return "⊂"
	case CmpSubsetEq:
		return "⊆"
	}
	return "?"
}

func (k BinArithKind) String() string {
	switch k {
	case ArithAdd:
		return "add"
	case ArithSub:
		return "sub"
	case ArithMul:
		return "mul"
	case ArithDiv:
		return "div"
	case ArithRem:
		return "rem"
	case ArithRange:
		return "range"
	case ArithBitAnd:
		return "and"
	case ArithBitOr:
		return "or"
	case ArithBitXor:
		return "xor"
	case ArithLeftShift:
		return "shl"
	case ArithRightShift:
		return "shr"
	}
	return "?"
}

// InstrString renders a single instruction.
func InstrString(c Instr) string {
	switch c := c.(type) {
	case Const:
		return fmt.Sprintf("const %s = %s", reg(c.Target), c.Value)
	case Assign:
		return fmt.Sprintf("assign %s = %s : %s", reg(c.Target), reg(c.Operand), c.Type)
	case Convert:
		return fmt.Sprintf("convert %s = %s %s => %s", reg(c.Target), reg(c.Operand), c.From, c.To)
	case BinArithOp:
		return fmt.Sprintf("%s %s = %s, %s : %s", c.Kind, reg(c.Target), reg(c.Lhs), reg(c.Rhs), c.Type)
	case BinListOp:
		return fmt.Sprintf("append %s = %s, %s : %s", reg(c.Target), reg(c.Lhs), reg(c.Rhs), c.Type)
	case BinSetOp:
		return fmt.Sprintf("setop %s = %s, %s : %s", reg(c.Target), reg(c.Lhs), reg(c.Rhs), c.Type)
	case BinStringOp:
		return fmt.Sprintf("strappend %s = %s, %s", reg(c.Target), reg(c.Lhs), reg(c.Rhs))
	case UnArithOp:
		op := "neg"
		switch c.Kind {
		case ArithNumerator:
			op = "num"
		case ArithDenominator:
			op = "den"
		}
		return fmt.Sprintf("%s %s = %s : %s", op, reg(c.Target), reg(c.Operand), c.Type)
	case Invert:
		return fmt.Sprintf("invert %s = %s : %s", reg(c.Target), reg(c.Operand), c.Type)
	case LengthOf:
		return fmt.Sprintf("lengthof %s = %s : %s", reg(c.Target), reg(c.Operand), c.Type)
	case IndexOf:
		return fmt.Sprintf("indexof %s = %s[%s] : %s", reg(c.Target), reg(c.Src), reg(c.Index), c.Type)
	case SubList:
		return fmt.Sprintf("sublist %s = %s[%s..%s] : %s", reg(c.Target), reg(c.Src), reg(c.Start), reg(c.End), c.Type)
	case SubString:
		return fmt.Sprintf("substring %s = %s[%s..%s]", reg(c.Target), reg(c.Src), reg(c.Start), reg(c.End))
	case FieldLoad:
		return fmt.Sprintf("fieldload %s = %s.%s : %s", reg(c.Target), reg(c.Operand), c.Field, c.Type)
	case TupleLoad:
		return fmt.Sprintf("tupleload %s = %s.%d : %s", reg(c.Target), reg(c.Operand), c.Index, c.Type)
	case NewRecord:
		return fmt.Sprintf("newrecord %s = (%s) : %s", reg(c.Target), regs(c.Operands), c.Type)
	case NewTuple:
		return fmt.Sprintf("newtuple %s = (%s) : %s", reg(c.Target), regs(c.Operands), c.Type)
	case NewList:
		return fmt.Sprintf("newlist %s = [%s] : %s", reg(c.Target), regs(c.Operands), c.Type)
	case NewSet:
		return fmt.Sprintf("newset %s = {%s} : %s", reg(c.Target), regs(c.Operands), c.Type)
	case NewMap:
		return fmt.Sprintf("newmap %s = {%s} : %s", reg(c.Target), regs(c.Operands), c.Type)
	case NewObject:
		return fmt.Sprintf("newobject %s = %s : %s", reg(c.Target), reg(c.Operand), c.Type)
	case Dereference:
		return fmt.Sprintf("deref %s = %s : %s", reg(c.Target), reg(c.Operand), c.Type)
	case If:
		return fmt.Sprintf("if %s %s %s goto %s : %s", reg(c.Lhs), c.Op, reg(c.Rhs), c.Target, c.Type)
	case IfIs:
		return fmt.Sprintf("ifis %s is %s goto %s : %s", reg(c.Operand), c.Test, c.Target, c.Type)
	case Switch:
		var parts []string
		for _, br := range c.Branches {
			parts = append(parts, fmt.Sprintf("%s->%s", br.Value, br.Target))
		}
		parts = append(parts, "*->"+c.DefaultTarget)
		return fmt.Sprintf("switch %s %s", reg(c.Operand), strings.Join(parts, ", "))
	case Goto:
		return "goto " + c.Target
	case Label:
		return "." + c.Label
	case Loop:
		return fmt.Sprintf("loop %s (%s)", c.Label, regs(c.Modified))
	case LoopEnd:
		return "loopend " + c.Label
	case ForAll:
		return fmt.Sprintf("forall %s in %s %s : %s", reg(c.Index), reg(c.Source), c.Label, c.Type)
	case TryCatch:
		var parts []string
		for _, cb := range c.Catches {
			parts = append(parts, fmt.Sprintf("%s->%s", cb.Type, cb.Target))
		}
		return fmt.Sprintf("trycatch %s %s end %s", reg(c.Operand), strings.Join(parts, ", "), c.Target)
	case TryEnd:
		return ".tryend " + c.Label
	case Invoke:
		return fmt.Sprintf("invoke %s = (%s) %s:%s : %s", reg(c.Target), regs(c.Operands), c.Module, c.Name, c.Type)
	case IndirectInvoke:
		return fmt.Sprintf("indirectinvoke %s = %s(%s) : %s", reg(c.Target), reg(c.Operand), regs(c.Operands), c.Type)
	case Lambda:
		return fmt.Sprintf("lambda %s = (%s) %s:%s : %s", reg(c.Target), regs(c.Operands), c.Module, c.Name, c.Type)
	case Assert:
		return fmt.Sprintf("assert %s %s %s %q : %s", reg(c.Lhs), c.Op, reg(c.Rhs), c.Msg, c.Type)
	case Throw:
		return fmt.Sprintf("throw %s : %s", reg(c.Operand), c.Type)
	case Debug:
		return "debug " + reg(c.Operand)
	case Return:
		if c.Operand == NullReg {
			return "return"
		}
		return fmt.Sprintf("return %s : %s", reg(c.Operand), c.Type)
	case Nop:
		return "nop"
	case Update:
		return fmt.Sprintf("update %s[%s]%v = %s : %s", reg(c.Target), regs(c.Operands), c.Fields, reg(c.Operand), c.Type)
	}
	return "<instr>"
}
