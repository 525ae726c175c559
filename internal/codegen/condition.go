package codegen

import (
	"fmt"

	"github.com/wyrm-lang/wyrm/internal/ast"
	"github.com/wyrm-lang/wyrm/internal/errors"
	"github.com/wyrm-lang/wyrm/internal/lir"
	"github.com/wyrm-lang/wyrm/internal/types"
	"github.com/wyrm-lang/wyrm/internal/value"
)

// generateCondition emits instructions that transfer control to
// target iff the condition is true, falling through otherwise. The
// comparison bytecodes exist only as conditional branches, so all
// boolean structure — including short-circuiting of && and || — is
// compiled into branch sequences here.
func (g *Generator) generateCondition(target string, cond ast.Expr, env *Environment, block *lir.CodeBlock, fn *ast.FunctionDecl) error {
	switch cond := cond.(type) {
	case *ast.Constant:
		b, ok := cond.Value.(value.Bool)
		if !ok {
			return g.syntaxError(errors.MsgInvalidBooleanExpr, cond.Span())
		}
		if b.Value {
			block.Append(lir.Goto{Target: target}, cond.Span())
		}
		return nil
	case *ast.UnOp:
		return g.generateUnOpCondition(target, cond, env, block, fn)
	case *ast.BinOp:
		return g.generateBinOpCondition(target, cond, env, block, fn)
	case *ast.Comprehension:
		return g.generateQuantifierCondition(target, cond, env, block, fn)
	case *ast.ConstantAccess, *ast.LocalVariable, *ast.FunctionCall, *ast.MethodCall,
		*ast.IndirectFunctionCall, *ast.IndirectMethodCall, *ast.FieldAccess,
		*ast.ListAccess, *ast.StringAccess, *ast.MapAccess:
		// no special handler applies; evaluate and compare against
		// true
		r1, err := g.generateExpr(cond, env, block)
		if err != nil {
			return err
		}
		r2 := env.Allocate(types.Bool())
		block.Append(lir.Const{Target: r2, Value: value.Bool{Value: true}}, cond.Span())
		block.Append(lir.If{Type: types.Bool(), Lhs: r1, Rhs: r2, Op: lir.CmpEq, Target: target}, cond.Span())
		return nil
	default:
		return g.syntaxError(errors.MsgInvalidBooleanExpr, cond.Span())
	}
}

// generateUnOpCondition handles logical not: the operand is lowered
// towards a skip label, and the fall-through case branches to the
// target.
func (g *Generator) generateUnOpCondition(target string, cond *ast.UnOp, env *Environment, block *lir.CodeBlock, fn *ast.FunctionDecl) error {
	if cond.Op != ast.NOT {
		return g.syntaxError(errors.MsgInvalidBooleanExpr, cond.Span())
	}
	label := block.FreshLabel()
	if err := g.generateCondition(label, cond.Operand, env, block, fn); err != nil {
		return err
	}
	block.Append(lir.Goto{Target: target}, cond.Span())
	block.Append(lir.Label{Label: label}, cond.Span())
	return nil
}

func (g *Generator) generateBinOpCondition(target string, v *ast.BinOp, env *Environment, block *lir.CodeBlock, fn *ast.FunctionDecl) error {
	switch v.Op {
	case ast.OR:
		if err := g.generateCondition(target, v.Lhs, env, block, fn); err != nil {
			return err
		}
		return g.generateCondition(target, v.Rhs, env, block, fn)

	case ast.AND:
		exitLabel := block.FreshLabel()
		if err := g.generateCondition(exitLabel, invert(v.Lhs), env, block, fn); err != nil {
			return err
		}
		if err := g.generateCondition(target, v.Rhs, env, block, fn); err != nil {
			return err
		}
		block.Append(lir.Label{Label: exitLabel}, v.Span())
		return nil

	case ast.IS:
		return g.generateTypeCondition(target, v, env, block, fn)
	}

	cop, err := comparatorOf(v.Op)
	if err != nil {
		return g.syntaxError(errors.MsgInvalidBooleanExpr, v.Span())
	}

	if lv, isNull := nullComparison(v); lv != nil && cop == lir.CmpEq && isNull {
		// x == null lowers onto the variable's own register so the
		// branch carries the refinement
		slot, ok := env.Lookup(lv.Name)
		if !ok {
			return g.syntaxError(errors.MsgUnknownVariable, lv.Span())
		}
		block.Append(lir.IfIs{Type: v.SrcType, Operand: slot, Test: types.Null(), Target: target}, v.Span())
		return nil
	} else if lv != nil && cop == lir.CmpNeq && isNull {
		exitLabel := block.FreshLabel()
		slot, ok := env.Lookup(lv.Name)
		if !ok {
			return g.syntaxError(errors.MsgUnknownVariable, lv.Span())
		}
		block.Append(lir.IfIs{Type: v.SrcType, Operand: slot, Test: types.Null(), Target: exitLabel}, v.Span())
		block.Append(lir.Goto{Target: target}, v.Span())
		block.Append(lir.Label{Label: exitLabel}, v.Span())
		return nil
	}

	lhs, err := g.generateExpr(v.Lhs, env, block)
	if err != nil {
		return err
	}
	rhs, err := g.generateExpr(v.Rhs, env, block)
	if err != nil {
		return err
	}
	block.Append(lir.If{Type: v.SrcType, Lhs: lhs, Rhs: rhs, Op: cop, Target: target}, v.Span())
	return nil
}

// generateTypeCondition lowers a runtime type test. When the subject
// is a local variable the test is performed on the variable's own
// register, so that the emitted IfIs preserves the refinement the
// resolver computed; any other subject is evaluated into a temporary.
func (g *Generator) generateTypeCondition(target string, v *ast.BinOp, env *Environment, block *lir.CodeBlock, fn *ast.FunctionDecl) error {
	var leftOperand int
	if lv, ok := v.Lhs.(*ast.LocalVariable); ok {
		slot, ok := env.Lookup(lv.Name)
		if !ok {
			return g.syntaxError(errors.MsgUnknownVariable, lv.Span())
		}
		leftOperand = slot
	} else {
		reg, err := g.generateExpr(v.Lhs, env, block)
		if err != nil {
			return err
		}
		leftOperand = reg
	}
	tv, ok := v.Rhs.(*ast.TypeVal)
	if !ok {
		return g.syntaxError(errors.MsgInvalidBooleanExpr, v.Rhs.Span())
	}
	block.Append(lir.IfIs{Type: v.SrcType, Operand: leftOperand, Test: tv.Type, Target: target}, v.Span())
	return nil
}

// generateQuantifierCondition lowers the boolean quantifiers by
// opening a nested for-all loop per source and testing the inner
// condition with the appropriate sense.
func (g *Generator) generateQuantifierCondition(target string, e *ast.Comprehension, env *Environment, block *lir.CodeBlock, fn *ast.FunctionDecl) error {
	if e.Op != ast.NONE && e.Op != ast.SOME && e.Op != ast.ALL {
		return g.syntaxError(errors.MsgInvalidBooleanExpr, e.Span())
	}

	labels, err := g.openComprehensionLoops(e, env, block)
	if err != nil {
		return err
	}

	closeLoops := func() {
		for i := len(labels) - 1; i >= 0; i-- {
			block.Append(lir.Nop{}, e.Span())
			block.Append(lir.LoopEnd{Label: labels[i]}, e.Span())
		}
	}

	switch e.Op {
	case ast.NONE:
		exitLabel := block.FreshLabel()
		if err := g.generateCondition(exitLabel, e.Condition, env, block, fn); err != nil {
			return err
		}
		closeLoops()
		block.Append(lir.Goto{Target: target}, e.Span())
		block.Append(lir.Label{Label: exitLabel}, e.Span())
	case ast.SOME:
		if err := g.generateCondition(target, e.Condition, env, block, fn); err != nil {
			return err
		}
		closeLoops()
	case ast.ALL:
		exitLabel := block.FreshLabel()
		if err := g.generateCondition(exitLabel, invert(e.Condition), env, block, fn); err != nil {
			return err
		}
		closeLoops()
		block.Append(lir.Goto{Target: target}, e.Span())
		block.Append(lir.Label{Label: exitLabel}, e.Span())
	}
	return nil
}

// openComprehensionLoops evaluates the sources of a comprehension and
// opens one for-all loop per source, returning the loop labels in
// opening order.
func (g *Generator) openComprehensionLoops(e *ast.Comprehension, env *Environment, block *lir.CodeBlock) ([]string, error) {
	type slot struct {
		varReg  int
		srcReg  int
		srcType types.Type
	}
	var slots []slot
	for _, src := range e.Sources {
		collType, element, ok := g.engine.AsEffectiveCollection(src.Src.Result())
		if !ok {
			return nil, g.syntaxError(errors.MsgInvalidSetOrListExpr, src.Src.Span())
		}
		varReg := env.AllocateVar(element, src.Name)
		var srcReg int
		if lv, ok := src.Src.(*ast.LocalVariable); ok {
			// reuse the variable's register rather than copying the
			// collection
			if reg, ok := env.Lookup(lv.Name); ok {
				srcReg = reg
			} else {
				reg, err := g.generateExpr(src.Src, env, block)
				if err != nil {
					return nil, err
				}
				srcReg = reg
			}
		} else {
			reg, err := g.generateExpr(src.Src, env, block)
			if err != nil {
				return nil, err
			}
			srcReg = reg
		}
		slots = append(slots, slot{varReg: varReg, srcReg: srcReg, srcType: collType})
	}

	var labels []string
	for _, s := range slots {
		label := fmt.Sprintf("%s$%d", block.FreshLabel(), s.varReg)
		block.Append(lir.ForAll{Type: s.srcType, Source: s.srcReg, Index: s.varReg, Label: label}, e.Span())
		labels = append(labels, label)
	}
	return labels, nil
}

// nullComparison recognizes `x == null` / `x != null` with a variable
// subject.
func nullComparison(v *ast.BinOp) (*ast.LocalVariable, bool) {
	lv, ok := v.Lhs.(*ast.LocalVariable)
	if !ok {
		return nil, false
	}
	c, ok := v.Rhs.(*ast.Constant)
	if !ok {
		return nil, false
	}
	_, isNull := c.Value.(value.Null)
	return lv, isNull
}

func comparatorOf(op ast.BinOpKind) (lir.Comparator, error) {
	switch op {
	case ast.EQ:
		return lir.CmpEq, nil
	case ast.NEQ:
		return lir.CmpNeq, nil
	case ast.LT:
		return lir.CmpLt, nil
	case ast.LTEQ:
		return lir.CmpLtEq, nil
	case ast.GT:
		return lir.CmpGt, nil
	case ast.GTEQ:
		return lir.CmpGtEq, nil
	case ast.SUBSET:
		return lir.CmpSubset, nil
	case ast.SUBSETEQ:
		return lir.CmpSubsetEq, nil
	case ast.ELEMENTOF:
		return lir.CmpElemOf, nil
	}
	return lir.CmpEq, fmt.Errorf("operator has no comparator")
}

// invert applies a syntactic negation: De Morgan over the logical
// connectives, flipped comparisons, and peeled double negations.
// Anything else is wrapped in a logical not. Source attributes are
// preserved.
func invert(e ast.Expr) ast.Expr {
	if bop, ok := e.(*ast.BinOp); ok {
		var nop ast.BinOpKind = -1
		lhs, rhs := bop.Lhs, bop.Rhs
		switch bop.Op {
		case ast.AND:
			nop, lhs, rhs = ast.OR, invert(bop.Lhs), invert(bop.Rhs)
		case ast.OR:
			nop, lhs, rhs = ast.AND, invert(bop.Lhs), invert(bop.Rhs)
		case ast.EQ:
			nop = ast.NEQ
		case ast.NEQ:
			nop = ast.EQ
		case ast.LT:
			nop = ast.GTEQ
		case ast.LTEQ:
			nop = ast.GT
		case ast.GT:
			nop = ast.LTEQ
		case ast.GTEQ:
			nop = ast.LT
		}
		if nop != -1 {
			return &ast.BinOp{ExprAttr: ast.ExprAttr{Pos: bop.Span()}, Op: nop, Lhs: lhs, Rhs: rhs, SrcType: bop.SrcType}
		}
	} else if uop, ok := e.(*ast.UnOp); ok && uop.Op == ast.NOT {
		return uop.Operand
	}
	return &ast.UnOp{ExprAttr: ast.ExprAttr{Pos: e.Span()}, Op: ast.NOT, Operand: e, Type: types.Bool()}
}
