package lir

// This file centralizes the structural traversals over instructions:
// register renaming, label renaming, and read/write classification.
// Runtime assertion splicing relies on register renaming; block
// validation relies on the read/write sets.

func mapReg(r int, f func(int) int) int {
	if r == NullReg {
		return r
	}
	return f(r)
}

func mapRegs(rs []int, f func(int) int) []int {
	out := make([]int, len(rs))
	for i, r := range rs {
		out[i] = mapReg(r, f)
	}
	return out
}

// remapRegisters returns a copy of the instruction with every register
// renamed through f. NullReg operands are left untouched. Passing an
// identity function that records its arguments enumerates the
// registers of an instruction.
func remapRegisters(c Instr, f func(int) int) Instr {
	switch c := c.(type) {
	case Const:
		c.Target = mapReg(c.Target, f)
		return c
	case Assign:
		c.Target = mapReg(c.Target, f)
		c.Operand = mapReg(c.Operand, f)
		return c
	case Convert:
		c.Target = mapReg(c.Target, f)
		c.Operand = mapReg(c.Operand, f)
		return c
	case BinArithOp:
		c.BinType = c.BinType.remap(f)
		return c
	case BinListOp:
		c.BinType = c.BinType.remap(f)
		return c
	case BinSetOp:
		c.BinType = c.BinType.remap(f)
		return c
	case BinStringOp:
		c.Target = mapReg(c.Target, f)
		c.Lhs = mapReg(c.Lhs, f)
		c.Rhs = mapReg(c.Rhs, f)
		return c
	case UnArithOp:
		c.Target = mapReg(c.Target, f)
		c.Operand = mapReg(c.Operand, f)
		return c
	case Invert:
		c.Target = mapReg(c.Target, f)
		c.Operand = mapReg(c.Operand, f)
		return c
	case LengthOf:
		c.Target = mapReg(c.Target, f)
		c.Operand = mapReg(c.Operand, f)
		return c
	case IndexOf:
		c.Target = mapReg(c.Target, f)
		c.Src = mapReg(c.Src, f)
		c.Index = mapReg(c.Index, f)
		return c
	case SubList:
		c.Target = mapReg(c.Target, f)
		c.Src = mapReg(c.Src, f)
		c.Start = mapReg(c.Start, f)
		c.End = mapReg(c.End, f)
		return c
	case SubString:
		c.Target = mapReg(c.Target, f)
		c.Src = mapReg(c.Src, f)
		c.Start = mapReg(c.Start, f)
		c.End = mapReg(c.End, f)
		return c
	case FieldLoad:
		c.Target = mapReg(c.Target, f)
		c.Operand = mapReg(c.Operand, f)
		return c
	case TupleLoad:
		c.Target = mapReg(c.Target, f)
		c.Operand = mapReg(c.Operand, f)
		return c
	case NewRecord:
		c.Target = mapReg(c.Target, f)
		c.Operands = mapRegs(c.Operands, f)
		return c
	case NewTuple:
		c.Target = mapReg(c.Target, f)
		c.Operands = mapRegs(c.Operands, f)
		return c
	case NewList:
		c.Target = mapReg(c.Target, f)
		c.Operands = mapRegs(c.Operands, f)
		return c
	case NewSet:
		c.Target = mapReg(c.Target, f)
		c.Operands = mapRegs(c.Operands, f)
		return c
	case NewMap:
		c.Target = mapReg(c.Target, f)
		c.Operands = mapRegs(c.Operands, f)
		return c
	case NewObject:
		c.Target = mapReg(c.Target, f)
		c.Operand = mapReg(c.Operand, f)
		return c
	case Dereference:
		c.Target = mapReg(c.Target, f)
		c.Operand = mapReg(c.Operand, f)
		return c
	case If:
		c.Lhs = mapReg(c.Lhs, f)
		c.Rhs = mapReg(c.Rhs, f)
		return c
	case IfIs:
		c.Operand = mapReg(c.Operand, f)
		return c
	case Switch:
		c.Operand = mapReg(c.Operand, f)
		return c
	case Loop:
		c.Modified = mapRegs(c.Modified, f)
		return c
	case ForAll:
		c.Source = mapReg(c.Source, f)
		c.Index = mapReg(c.Index, f)
		c.Modified = mapRegs(c.Modified, f)
		return c
	case TryCatch:
		c.Operand = mapReg(c.Operand, f)
		return c
	case Invoke:
		c.Target = mapReg(c.Target, f)
		c.Operands = mapRegs(c.Operands, f)
		return c
	case IndirectInvoke:
		c.Target = mapReg(c.Target, f)
		c.Operand = mapReg(c.Operand, f)
		c.Operands = mapRegs(c.Operands, f)
		return c
	case Lambda:
		c.Target = mapReg(c.Target, f)
		c.Operands = mapRegs(c.Operands, f)
		return c
	case Assert:
		c.Lhs = mapReg(c.Lhs, f)
		c.Rhs = mapReg(c.Rhs, f)
		return c
	case Throw:
		c.Operand = mapReg(c.Operand, f)
		return c
	case Debug:
		c.Operand = mapReg(c.Operand, f)
		return c
	case Return:
		c.Operand = mapReg(c.Operand, f)
		return c
	case Update:
		c.Target = mapReg(c.Target, f)
		c.Operand = mapReg(c.Operand, f)
		c.Operands = mapRegs(c.Operands, f)
		return c
	default:
		// Goto, Label, LoopEnd, TryEnd, Nop mention no registers
		return c
	}
}

func (b BinType) remap(f func(int) int) BinType {
	b.Target = mapReg(b.Target, f)
	b.Lhs = mapReg(b.Lhs, f)
	b.Rhs = mapReg(b.Rhs, f)
	return b
}

// remapLabels returns a copy of the instruction with every label
// renamed through f.
func remapLabels(c Instr, f func(string) string) Instr {
	switch c := c.(type) {
	case If:
		c.Target = f(c.Target)
		return c
	case IfIs:
		c.Target = f(c.Target)
		return c
	case Switch:
		c.DefaultTarget = f(c.DefaultTarget)
		branches := make([]SwitchBranch, len(c.Branches))
		for i, br := range c.Branches {
			branches[i] = SwitchBranch{Value: br.Value, Target: f(br.Target)}
		}
		c.Branches = branches
		return c
	case Goto:
		c.Target = f(c.Target)
		return c
	case Label:
		c.Label = f(c.Label)
		return c
	case Loop:
		c.Label = f(c.Label)
		return c
	case LoopEnd:
		c.Label = f(c.Label)
		return c
	case ForAll:
		c.Label = f(c.Label)
		return c
	case TryCatch:
		c.Target = f(c.Target)
		catches := make([]CatchBranch, len(c.Catches))
		for i, cb := range c.Catches {
			catches[i] = CatchBranch{Type: cb.Type, Target: f(cb.Target)}
		}
		c.Catches = catches
		return c
	case TryEnd:
		c.Label = f(c.Label)
		return c
	default:
		return c
	}
}

// BranchTargets returns the labels an instruction may transfer control
// to.
func BranchTargets(c Instr) []string {
	var out []string
	remapLabels(c, func(l string) string {
		out = append(out, l)
		return l
	})
	switch c.(type) {
	case Label, TryEnd, Loop, LoopEnd, ForAll:
		// these carry a label they define, not one they branch to
		return nil
	}
	return out
}

// DefinedLabel returns the label defined by a marker instruction, if
// any.
func DefinedLabel(c Instr) (string, bool) {
	switch c := c.(type) {
	case Label:
		return c.Label, true
	case TryEnd:
		return c.Label, true
	case Loop:
		return c.Label, true
	case LoopEnd:
		return c.Label, true
	case ForAll:
		return c.Label, true
	}
	return "", false
}

// ReadRegisters returns the registers an instruction reads.
func ReadRegisters(c Instr) []int {
	reads, _ := readsWrites(c)
	return reads
}

// WrittenRegisters returns the registers an instruction writes.
func WrittenRegisters(c Instr) []int {
	_, writes := readsWrites(c)
	return writes
}

func readsWrites(c Instr) (reads, writes []int) {
	add := func(set *[]int, rs ...int) {
		for _, r := range rs {
			if r != NullReg {
				*set = append(*set, r)
			}
		}
	}
	switch c := c.(type) {
	case Const:
		add(&writes, c.Target)
	case Assign:
		add(&writes, c.Target)
		add(&reads, c.Operand)
	case Convert:
		add(&writes, c.Target)
		add(&reads, c.Operand)
	case BinArithOp:
		add(&writes, c.Target)
		add(&reads, c.Lhs, c.Rhs)
	case BinListOp:
		add(&writes, c.Target)
		add(&reads, c.Lhs, c.Rhs)
	case BinSetOp:
		add(&writes, c.Target)
		add(&reads, c.Lhs, c.Rhs)
	case BinStringOp:
		add(&writes, c.Target)
		add(&reads, c.Lhs, c.Rhs)
	case UnArithOp:
		add(&writes, c.Target)
		add(&reads, c.Operand)
	case Invert:
		add(&writes, c.Target)
		add(&reads, c.Operand)
	case LengthOf:
		add(&writes, c.Target)
		add(&reads, c.Operand)
	case IndexOf:
		add(&writes, c.Target)
		add(&reads, c.Src, c.Index)
	case SubList:
		add(&writes, c.Target)
		add(&reads, c.Src, c.Start, c.End)
	case SubString:
		add(&writes, c.Target)
		add(&reads, c.Src, c.Start, c.End)
	case FieldLoad:
		add(&writes, c.Target)
		add(&reads, c.Operand)
	case TupleLoad:
		add(&writes, c.Target)
		add(&reads, c.Operand)
	case NewRecord:
		add(&writes, c.Target)
		add(&reads, c.Operands...)
	case NewTuple:
		add(&writes, c.Target)
		add(&reads, c.Operands...)
	case NewList:
		add(&writes, c.Target)
		add(&reads, c.Operands...)
	case NewSet:
		add(&writes, c.Target)
		add(&reads, c.Operands...)
	case NewMap:
		add(&writes, c.Target)
		add(&reads, c.Operands...)
	case NewObject:
		add(&writes, c.Target)
		add(&reads, c.Operand)
	case Dereference:
		add(&writes, c.Target)
		add(&reads, c.Operand)
	case If:
		add(&reads, c.Lhs, c.Rhs)
	case IfIs:
		add(&reads, c.Operand)
	case Switch:
		add(&reads, c.Operand)
	case ForAll:
		add(&reads, c.Source)
		add(&writes, c.Index)
	case TryCatch:
		add(&writes, c.Operand)
	case Invoke:
		add(&writes, c.Target)
		add(&reads, c.Operands...)
	case IndirectInvoke:
		add(&writes, c.Target)
		add(&reads, c.Operand)
		add(&reads, c.Operands...)
	case Lambda:
		add(&writes, c.Target)
		add(&reads, c.Operands...)
	case Assert:
		add(&reads, c.Lhs, c.Rhs)
	case Throw:
		add(&reads, c.Operand)
	case Debug:
		add(&reads, c.Operand)
	case Return:
		add(&reads, c.Operand)
	case Update:
		add(&reads, c.Target, c.Operand)
		add(&reads, c.Operands...)
		add(&writes, c.Target)
	}
	return reads, writes
}
