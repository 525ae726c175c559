package lir

import (
	"strconv"

	"github.com/wyrm-lang/wyrm/internal/position"
)

// Entry is one instruction of a code block together with its source
// location.
type Entry struct {
	Code Instr
	Span position.Span
}

// CodeBlock is a flat sequence of IR entries. The first numInputs
// registers are written by the caller (parameters, or the root value
// of a type invariant); all further registers are allocated
// monotonically by the code generator and never reused.
type CodeBlock struct {
	numInputs int
	entries   []Entry
	labels    int
}

// NewCodeBlock creates an empty block expecting the given number of
// input registers.
func NewCodeBlock(numInputs int) *CodeBlock {
	return &CodeBlock{numInputs: numInputs}
}

// NumInputs returns the number of input registers of this block.
func (b *CodeBlock) NumInputs() int { return b.numInputs }

// Size returns the number of entries in this block.
func (b *CodeBlock) Size() int { return len(b.entries) }

// Get returns the i'th entry.
func (b *CodeBlock) Get(i int) Entry { return b.entries[i] }

// Entries returns the underlying entry slice. It must not be mutated.
func (b *CodeBlock) Entries() []Entry { return b.entries }

// Append adds an instruction at the end of the block.
func (b *CodeBlock) Append(c Instr, span position.Span) {
	b.entries = append(b.entries, Entry{Code: c, Span: span})
}

// Insert places an instruction at position i, shifting later entries.
// Switch and try-catch lowering reserve their dispatch position this
// way, inserting the instruction once all case labels are known.
func (b *CodeBlock) Insert(i int, c Instr, span position.Span) {
	b.entries = append(b.entries, Entry{})
	copy(b.entries[i+1:], b.entries[i:])
	b.entries[i] = Entry{Code: c, Span: span}
}

// FreshLabel returns a label name unused in this block.
func (b *CodeBlock) FreshLabel() string {
	for {
		l := "label" + strconv.Itoa(b.labels)
		b.labels++
		used := false
		for _, e := range b.entries {
			remapLabels(e.Code, func(x string) string {
				used = used || x == l
				return x
			})
		}
		if !used {
			return l
		}
	}
}

// NumSlots returns one past the highest register mentioned in the
// block, or the number of inputs if higher.
func (b *CodeBlock) NumSlots() int {
	max := b.numInputs - 1
	for _, e := range b.entries {
		remapRegisters(e.Code, func(r int) int {
			if r > max {
				max = r
			}
			return r
		})
	}
	return max + 1
}

// ImportExternal splices another block into this one. Registers
// present in the binding map are renamed accordingly; all other
// registers are shifted past freeSlot so they cannot collide with the
// surrounding code. Labels are renamed to fresh labels of this block.
func (b *CodeBlock) ImportExternal(src *CodeBlock, binding map[int]int, freeSlot int) {
	labels := make(map[string]string)
	relabel := func(l string) string {
		if n, ok := labels[l]; ok {
			return n
		}
		n := b.FreshLabel()
		labels[l] = n
		return n
	}
	for _, e := range src.entries {
		code := remapRegisters(e.Code, func(r int) int {
			if m, ok := binding[r]; ok {
				return m
			}
			return freeSlot + r
		})
		code = remapLabels(code, relabel)
		b.entries = append(b.entries, Entry{Code: code, Span: e.Span})
	}
}
