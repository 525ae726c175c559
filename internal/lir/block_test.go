package lir

import (
	"testing"

	"github.com/wyrm-lang/wyrm/internal/position"
	"github.com/wyrm-lang/wyrm/internal/types"
	"github.com/wyrm-lang/wyrm/internal/value"
)

func span() position.Span {
	return position.Span{Filename: "test.wy"}
}

func TestAppendAndInsert(t *testing.T) {
	b := NewCodeBlock(1)
	b.Append(Const{Target: 1, Value: value.NewInt(1)}, span())
	b.Append(Label{Label: "label0"}, span())
	b.Append(Goto{Target: "label0"}, span())

	// dispatch instructions are inserted at a reserved position after
	// their bodies exist
	b.Insert(1, Switch{Type: types.Int(), Operand: 1, DefaultTarget: "label0"}, span())
	if b.Size() != 4 {
		t.Fatalf("expected 4 entries, got %d", b.Size())
	}
	if _, ok := b.Get(1).Code.(Switch); !ok {
		t.Errorf("entry 1 should be the inserted switch, got %T", b.Get(1).Code)
	}
	if _, ok := b.Get(2).Code.(Label); !ok {
		t.Errorf("entry 2 should be the shifted label, got %T", b.Get(2).Code)
	}
}

func TestFreshLabels(t *testing.T) {
	b := NewCodeBlock(0)
	l0, l1 := b.FreshLabel(), b.FreshLabel()
	if l0 == l1 {
		t.Error("fresh labels must be distinct")
	}
}

func TestNumSlots(t *testing.T) {
	b := NewCodeBlock(2)
	if b.NumSlots() != 2 {
		t.Errorf("an empty block has only its inputs, got %d", b.NumSlots())
	}
	b.Append(BinArithOp{
		BinType: BinType{Type: types.Int(), Target: 7, Lhs: 0, Rhs: 1},
		Kind:    ArithAdd,
	}, span())
	if b.NumSlots() != 8 {
		t.Errorf("NumSlots should be one past the highest register, got %d", b.NumSlots())
	}
}

func TestImportExternal(t *testing.T) {
	// a precondition block over one parameter: const %1 = 0; assert
	// %0 >= %1
	pre := NewCodeBlock(1)
	pre.Append(Const{Target: 1, Value: value.NewInt(0)}, span())
	pre.Append(Assert{Type: types.Int(), Lhs: 0, Rhs: 1, Op: CmpGtEq, Msg: "precondition not satisfied"}, span())
	pre.Append(Label{Label: "label0"}, span())
	pre.Append(Goto{Target: "label0"}, span())

	dst := NewCodeBlock(0)
	dst.Append(Label{Label: "label0"}, span())
	// parameter 0 of the precondition maps onto caller register 9;
	// temporaries shift past register 20
	dst.ImportExternal(pre, map[int]int{0: 9}, 20)

	if dst.Size() != 5 {
		t.Fatalf("expected 5 entries after import, got %d", dst.Size())
	}
	c := dst.Get(1).Code.(Const)
	if c.Target != 21 {
		t.Errorf("unbound register 1 should shift to 21, got %d", c.Target)
	}
	a := dst.Get(2).Code.(Assert)
	if a.Lhs != 9 || a.Rhs != 21 {
		t.Errorf("assert should read the bound and shifted registers, got %%%d, %%%d", a.Lhs, a.Rhs)
	}
	l := dst.Get(3).Code.(Label)
	if l.Label == "label0" {
		t.Error("imported labels must be renamed away from the destination's")
	}
	g := dst.Get(4).Code.(Goto)
	if g.Target != l.Label {
		t.Error("renamed labels must stay consistent within the import")
	}
}

func TestValidateCatchesUndefinedLabel(t *testing.T) {
	b := NewCodeBlock(0)
	b.Append(Goto{Target: "nowhere"}, span())
	if err := b.Validate(); err == nil {
		t.Error("a branch to an undefined label should fail validation")
	}
}

func TestValidateCatchesUnwrittenRead(t *testing.T) {
	b := NewCodeBlock(1)
	b.Append(Assign{Type: types.Int(), Target: 2, Operand: 5}, span())
	if err := b.Validate(); err == nil {
		t.Error("reading an unwritten register should fail validation")
	}
	ok := NewCodeBlock(1)
	ok.Append(Assign{Type: types.Int(), Target: 2, Operand: 0}, span())
	if err := ok.Validate(); err != nil {
		t.Errorf("reading an input register should validate, got %v", err)
	}
}
