// Package transforms rewrites generated IR. Its sole pass inlines
// runtime checks: callee preconditions ahead of invocations, bounds
// checks ahead of list and string indexing, division-by-zero guards,
// and the enclosing function's postcondition at every return site.
package transforms

import (
	"github.com/wyrm-lang/wyrm/internal/errors"
	"github.com/wyrm-lang/wyrm/internal/lir"
	"github.com/wyrm-lang/wyrm/internal/modules"
	"github.com/wyrm-lang/wyrm/internal/position"
	"github.com/wyrm-lang/wyrm/internal/types"
	"github.com/wyrm-lang/wyrm/internal/value"
)

// RuntimeAssertions splices check sequences into generated code. The
// pass is pure over its input: it builds new blocks and leaves the
// originals untouched.
type RuntimeAssertions struct {
	project  *modules.Project
	engine   *types.Engine
	filename string
	enabled  bool
}

// NewRuntimeAssertions creates the pass over the given project, which
// supplies callee preconditions.
func NewRuntimeAssertions(project *modules.Project, filename string) *RuntimeAssertions {
	return &RuntimeAssertions{
		project:  project,
		engine:   types.NewEngine(project),
		filename: filename,
		enabled:  true,
	}
}

// SetEnable turns the pass on or off; when disabled, Transform returns
// its input unchanged.
func (t *RuntimeAssertions) SetEnable(flag bool) {
	t.enabled = flag
}

// Transform rewrites every declaration of a module.
func (t *RuntimeAssertions) Transform(m *lir.Module) (*lir.Module, error) {
	if !t.enabled {
		return m, nil
	}
	out := &lir.Module{Name: m.Name, Filename: m.Filename}
	for _, d := range m.Declarations {
		switch d := d.(type) {
		case *lir.TypeDecl:
			nd, err := t.transformTypeDecl(d)
			if err != nil {
				return nil, err
			}
			out.Declarations = append(out.Declarations, nd)
		case *lir.FunctionDecl:
			nd, err := t.transformFunctionDecl(d)
			if err != nil {
				return nil, err
			}
			out.Declarations = append(out.Declarations, nd)
		default:
			out.Declarations = append(out.Declarations, d)
		}
	}
	return out, nil
}

func (t *RuntimeAssertions) transformTypeDecl(d *lir.TypeDecl) (*lir.TypeDecl, error) {
	if d.Invariant == nil {
		return d, nil
	}
	freeSlot := d.Invariant.NumSlots()
	nblock := lir.NewCodeBlock(d.Invariant.NumInputs())
	for _, e := range d.Invariant.Entries() {
		if err := t.transformEntry(nblock, e, freeSlot, nil, 0); err != nil {
			return nil, err
		}
		nblock.Append(e.Code, e.Span)
	}
	return &lir.TypeDecl{Name: d.Name, Type: d.Type, Invariant: nblock}, nil
}

func (t *RuntimeAssertions) transformFunctionDecl(d *lir.FunctionDecl) (*lir.FunctionDecl, error) {
	body := d.Body
	nblock := lir.NewCodeBlock(body.NumInputs())
	freeSlot := body.NumSlots()
	shadowIndex := freeSlot

	// Shadow the parameters on entry when a postcondition exists: the
	// postcondition speaks about parameter values as they were on
	// entry, and the body may overwrite them.
	params := d.Type.Params()
	if d.Postcondition != nil {
		for i, pt := range params {
			nblock.Append(lir.Assign{Type: pt, Target: freeSlot + i, Operand: i}, position.Span{})
		}
		freeSlot += len(params)
	}

	for _, e := range body.Entries() {
		if err := t.transformEntry(nblock, e, freeSlot, d, shadowIndex); err != nil {
			return nil, err
		}
		nblock.Append(e.Code, e.Span)
	}

	return &lir.FunctionDecl{
		Name: d.Name, Type: d.Type, Body: nblock,
		Precondition: d.Precondition, Postcondition: d.Postcondition,
	}, nil
}

// transformEntry appends the check sequence for one instruction, if
// any, ahead of where the instruction itself will be appended.
func (t *RuntimeAssertions) transformEntry(nblock *lir.CodeBlock, e lir.Entry, freeSlot int, fn *lir.FunctionDecl, shadowIndex int) error {
	switch c := e.Code.(type) {
	case lir.Invoke:
		return t.transformInvoke(nblock, c, e.Span, freeSlot)
	case lir.IndexOf:
		t.transformIndexOf(nblock, c, e.Span, freeSlot)
	case lir.BinArithOp:
		t.transformBinArithOp(nblock, c, e.Span, freeSlot)
	case lir.Return:
		t.transformReturn(nblock, c, freeSlot, fn, shadowIndex)
	}
	return nil
}

// transformInvoke inlines the callee's precondition, renaming its
// parameter registers onto the caller's operand registers.
func (t *RuntimeAssertions) transformInvoke(nblock *lir.CodeBlock, c lir.Invoke, span position.Span, freeSlot int) error {
	pre, err := t.findPrecondition(c)
	if err != nil {
		return errors.NewSyntaxError(err.Error(), t.filename, span)
	}
	if pre == nil {
		return nil
	}
	binding := make(map[int]int, len(c.Operands))
	for i, op := range c.Operands {
		binding[i] = op
	}
	nblock.ImportExternal(pre, binding, freeSlot)
	return nil
}

// transformIndexOf guards list and string indexing with a lower and an
// upper bounds check.
func (t *RuntimeAssertions) transformIndexOf(nblock *lir.CodeBlock, c lir.IndexOf, span position.Span, freeSlot int) {
	_, isList := t.engine.AsEffectiveList(c.Type)
	if !isList && c.Type != types.String() {
		return
	}
	nblock.Append(lir.Const{Target: freeSlot, Value: value.NewInt(0)}, span)
	nblock.Append(lir.Assert{
		Type: types.Int(), Lhs: c.Index, Rhs: freeSlot, Op: lir.CmpGtEq,
		Msg: "index out of bounds (negative)",
	}, span)
	nblock.Append(lir.LengthOf{Type: c.Type, Target: freeSlot + 1, Operand: c.Src}, span)
	nblock.Append(lir.Assert{
		Type: types.Int(), Lhs: c.Index, Rhs: freeSlot + 1, Op: lir.CmpLt,
		Msg: "index out of bounds (not less than length)",
	}, span)
}

// transformBinArithOp guards divisions against a zero divisor.
func (t *RuntimeAssertions) transformBinArithOp(nblock *lir.CodeBlock, c lir.BinArithOp, span position.Span, freeSlot int) {
	if c.Kind != lir.ArithDiv {
		return
	}
	if c.Type == types.Int() {
		nblock.Append(lir.Const{Target: freeSlot, Value: value.NewInt(0)}, span)
	} else {
		nblock.Append(lir.Const{Target: freeSlot, Value: value.NewReal(0)}, span)
	}
	nblock.Append(lir.Assert{
		Type: c.Type, Lhs: c.Rhs, Rhs: freeSlot, Op: lir.CmpNeq,
		Msg: "division by zero",
	}, span)
}

// transformReturn splices the enclosing function's postcondition ahead
// of a value-carrying return, binding its return slot to the returned
// register and each parameter slot to the shadow saved on entry.
func (t *RuntimeAssertions) transformReturn(nblock *lir.CodeBlock, c lir.Return, freeSlot int, fn *lir.FunctionDecl, shadowIndex int) {
	if fn == nil || fn.Postcondition == nil || c.Operand == lir.NullReg {
		return
	}
	binding := make(map[int]int)
	binding[0] = c.Operand
	for i := range fn.Type.Params() {
		binding[1+i] = shadowIndex + i
	}
	nblock.ImportExternal(fn.Postcondition, binding, freeSlot)
}

// findPrecondition locates the precondition block of the callee, if
// it declares one.
func (t *RuntimeAssertions) findPrecondition(c lir.Invoke) (*lir.CodeBlock, error) {
	m, err := t.project.Require(c.Module, "")
	if err != nil {
		return nil, err
	}
	for _, f := range m.Functions[c.Name] {
		if f.Type == c.Type {
			return f.Precondition, nil
		}
	}
	// fall back on the name alone; the generator may have widened the
	// recorded type through coercions
	for _, f := range m.Functions[c.Name] {
		if f.Precondition != nil {
			return f.Precondition, nil
		}
	}
	return nil, nil
}
