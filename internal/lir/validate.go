package lir

import "fmt"

// Validate checks the structural well-formedness of a block: every
// branch target must be defined in the block, and every register read
// must be preceded by a write in instruction order (block inputs count
// as written). Loop envelopes revisit earlier instructions only, so
// the linear check is sufficient for generated code.
func (b *CodeBlock) Validate() error {
	defined := make(map[string]bool)
	for _, e := range b.entries {
		if l, ok := DefinedLabel(e.Code); ok {
			defined[l] = true
		}
	}
	written := make(map[int]bool)
	for r := 0; r < b.numInputs; r++ {
		written[r] = true
	}
	for i, e := range b.entries {
		for _, t := range BranchTargets(e.Code) {
			if !defined[t] {
				return fmt.Errorf("entry %d: branch to undefined label %q", i, t)
			}
		}
		reads, writes := readsWrites(e.Code)
		for _, r := range reads {
			if !written[r] {
				return fmt.Errorf("entry %d: read of unwritten register %%%d", i, r)
			}
		}
		for _, r := range writes {
			written[r] = true
		}
	}
	return nil
}
