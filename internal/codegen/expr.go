package codegen

import (
	"github.com/wyrm-lang/wyrm/internal/ast"
	"github.com/wyrm-lang/wyrm/internal/lir"
	"github.com/wyrm-lang/wyrm/internal/position"
	"github.com/wyrm-lang/wyrm/internal/types"
	"github.com/wyrm-lang/wyrm/internal/value"
)

// generateExpr lowers an expression into the block and returns the
// register holding its result.
func (g *Generator) generateExpr(e ast.Expr, env *Environment, block *lir.CodeBlock) (int, error) {
	reg, err := g.generateExprInner(e, env, block)
	if err != nil {
		return 0, g.rewrap(err, e.Span())
	}
	return reg, nil
}

func (g *Generator) generateExprInner(e ast.Expr, env *Environment, block *lir.CodeBlock) (int, error) {
	switch e := e.(type) {
	case *ast.Constant:
		target := env.Allocate(e.Value.Type())
		block.Append(lir.Const{Target: target, Value: e.Value}, e.Span())
		return target, nil
	case *ast.ConstantAccess:
		target := env.Allocate(e.Value.Type())
		block.Append(lir.Const{Target: target, Value: e.Value}, e.Span())
		return target, nil
	case *ast.TypeVal:
		target := env.Allocate(types.Meta())
		block.Append(lir.Const{Target: target, Value: value.TypeVal{Value: e.Type}}, e.Span())
		return target, nil
	case *ast.LocalVariable:
		return g.generateLocalVariable(e, env, block)
	case *ast.UnOp:
		return g.generateUnOp(e, env, block)
	case *ast.BinOp:
		return g.generateBinOp(e, env, block)
	case *ast.Comprehension:
		return g.generateComprehension(e, env, block)
	case *ast.Cast:
		operand, err := g.generateExpr(e.Operand, env, block)
		if err != nil {
			return 0, err
		}
		target := env.Allocate(e.Type)
		block.Append(lir.Convert{From: e.Operand.Result(), Target: target, Operand: operand, To: e.Type}, e.Span())
		return target, nil
	case *ast.ListAccess:
		return g.generateIndexAccess(e.SrcType, e.Src, e.Index, e.Result(), env, block, e.Span())
	case *ast.StringAccess:
		return g.generateIndexAccess(types.String(), e.Src, e.Index, types.Char(), env, block, e.Span())
	case *ast.MapAccess:
		return g.generateIndexAccess(e.SrcType, e.Src, e.Index, e.Result(), env, block, e.Span())
	case *ast.StringLength:
		return g.generateLength(types.String(), e.Src, env, block, e.Span())
	case *ast.ListLength:
		return g.generateLength(e.SrcType, e.Src, env, block, e.Span())
	case *ast.SetLength:
		return g.generateLength(e.SrcType, e.Src, env, block, e.Span())
	case *ast.MapLength:
		return g.generateLength(e.SrcType, e.Src, env, block, e.Span())
	case *ast.SubList:
		return g.generateSubList(e, env, block)
	case *ast.SubString:
		return g.generateSubString(e, env, block)
	case *ast.FieldAccess:
		operand, err := g.generateExpr(e.Src, env, block)
		if err != nil {
			return 0, err
		}
		target := env.Allocate(e.Result())
		block.Append(lir.FieldLoad{Type: e.SrcType, Target: target, Operand: operand, Field: e.Name}, e.Span())
		return target, nil
	case *ast.RecordLit:
		return g.generateRecordLit(e, env, block)
	case *ast.TupleLit:
		operands, err := g.generateOperands(e.Elements, env, block)
		if err != nil {
			return 0, err
		}
		target := env.Allocate(e.Result())
		block.Append(lir.NewTuple{Type: e.Result(), Target: target, Operands: operands}, e.Span())
		return target, nil
	case *ast.ListLit:
		operands, err := g.generateOperands(e.Elements, env, block)
		if err != nil {
			return 0, err
		}
		target := env.Allocate(e.Result())
		block.Append(lir.NewList{Type: e.Result(), Target: target, Operands: operands}, e.Span())
		return target, nil
	case *ast.SetLit:
		operands, err := g.generateOperands(e.Elements, env, block)
		if err != nil {
			return 0, err
		}
		target := env.Allocate(e.Result())
		block.Append(lir.NewSet{Type: e.Result(), Target: target, Operands: operands}, e.Span())
		return target, nil
	case *ast.MapLit:
		return g.generateMapLit(e, env, block)
	case *ast.New:
		operand, err := g.generateExpr(e.Operand, env, block)
		if err != nil {
			return 0, err
		}
		target := env.Allocate(e.Type)
		block.Append(lir.NewObject{Type: e.Type, Target: target, Operand: operand}, e.Span())
		return target, nil
	case *ast.Dereference:
		operand, err := g.generateExpr(e.Src, env, block)
		if err != nil {
			return 0, err
		}
		target := env.Allocate(e.Result())
		block.Append(lir.Dereference{Type: e.Src.Result(), Target: target, Operand: operand}, e.Span())
		return target, nil
	case *ast.FunctionCall:
		target := env.Allocate(e.Result())
		return target, g.generateCallTo(e.FnType, target, e.Module, e.Name, e.Args, env, block, e.Span())
	case *ast.MethodCall:
		target := env.Allocate(e.Result())
		return target, g.generateCallTo(e.FnType, target, e.Module, e.Name, e.Args, env, block, e.Span())
	case *ast.IndirectFunctionCall:
		target := env.Allocate(e.Result())
		return target, g.generateIndirectCallTo(e.FnType, target, e.Src, e.Args, env, block, e.Span())
	case *ast.IndirectMethodCall:
		target := env.Allocate(e.Result())
		return target, g.generateIndirectCallTo(e.FnType, target, e.Src, e.Args, env, block, e.Span())
	case *ast.FuncRef:
		target := env.Allocate(e.Type)
		block.Append(lir.Lambda{Type: e.Type, Target: target, Module: e.Module, Name: e.Name}, e.Span())
		return target, nil
	case *ast.Lambda:
		return g.generateLambda(e, env, block)
	default:
		return 0, g.internalFailure("unknown expression", e.Span())
	}
}

// generateLocalVariable copies the variable's register into a fresh
// one. Returning the variable's own register would let later rewrites
// of the variable alias the expression result.
func (g *Generator) generateLocalVariable(e *ast.LocalVariable, env *Environment, block *lir.CodeBlock) (int, error) {
	operand, ok := env.Lookup(e.Name)
	if !ok {
		return 0, g.syntaxError("variable might be uninitialised", e.Span())
	}
	target := env.Allocate(e.Result())
	block.Append(lir.Assign{Type: e.Result(), Target: target, Operand: operand}, e.Span())
	return target, nil
}

func (g *Generator) generateUnOp(e *ast.UnOp, env *Environment, block *lir.CodeBlock) (int, error) {
	switch e.Op {
	case ast.NEG:
		operand, err := g.generateExpr(e.Operand, env, block)
		if err != nil {
			return 0, err
		}
		target := env.Allocate(e.Result())
		block.Append(lir.UnArithOp{Type: e.Result(), Target: target, Operand: operand, Kind: lir.ArithNeg}, e.Span())
		return target, nil
	case ast.INVERT:
		operand, err := g.generateExpr(e.Operand, env, block)
		if err != nil {
			return 0, err
		}
		target := env.Allocate(e.Result())
		block.Append(lir.Invert{Type: e.Result(), Target: target, Operand: operand}, e.Span())
		return target, nil
	case ast.NOT:
		target := env.Allocate(types.Bool())
		return target, g.materializeBool(target, e, env, block, e.Span())
	default:
		return 0, g.internalFailure("unexpected unary operator", e.Span())
	}
}

// materializeBool evaluates a condition into a boolean register by the
// two-label scheme: branch to the true label, fall through to load
// false.
func (g *Generator) materializeBool(target int, cond ast.Expr, env *Environment, block *lir.CodeBlock, span position.Span) error {
	trueLabel := block.FreshLabel()
	exitLabel := block.FreshLabel()
	if err := g.generateCondition(trueLabel, cond, env, block, nil); err != nil {
		return err
	}
	block.Append(lir.Const{Target: target, Value: value.Bool{Value: false}}, span)
	block.Append(lir.Goto{Target: exitLabel}, span)
	block.Append(lir.Label{Label: trueLabel}, span)
	block.Append(lir.Const{Target: target, Value: value.Bool{Value: true}}, span)
	block.Append(lir.Label{Label: exitLabel}, span)
	return nil
}

func (g *Generator) generateBinOp(e *ast.BinOp, env *Environment, block *lir.CodeBlock) (int, error) {
	if e.Op.IsComparison() || e.Op == ast.AND || e.Op == ast.OR {
		target := env.Allocate(types.Bool())
		return target, g.materializeBool(target, e, env, block, e.Span())
	}

	lhs, err := g.generateExpr(e.Lhs, env, block)
	if err != nil {
		return 0, err
	}
	rhs, err := g.generateExpr(e.Rhs, env, block)
	if err != nil {
		return 0, err
	}
	result := e.Result()
	target := env.Allocate(result)
	bin := lir.BinType{Type: result, Target: target, Lhs: lhs, Rhs: rhs}

	switch e.Op {
	case ast.UNION:
		block.Append(lir.BinSetOp{BinType: bin, Kind: lir.SetUnion}, e.Span())
	case ast.INTERSECTION:
		block.Append(lir.BinSetOp{BinType: bin, Kind: lir.SetIntersection}, e.Span())
	case ast.DIFFERENCE:
		block.Append(lir.BinSetOp{BinType: bin, Kind: lir.SetDifference}, e.Span())
	case ast.LISTAPPEND:
		block.Append(lir.BinListOp{BinType: bin, Kind: lir.ListAppend}, e.Span())
	case ast.STRINGAPPEND:
		lhsType := e.Lhs.Result()
		rhsType := e.Rhs.Result()
		var kind lir.BinStringKind
		switch {
		case lhsType == types.String() && rhsType == types.String():
			kind = lir.StrAppend
		case lhsType == types.String() && g.engine.IsSubtype(rhsType, types.Char()):
			kind = lir.StrLeftAppend
		case rhsType == types.String() && g.engine.IsSubtype(lhsType, types.Char()):
			kind = lir.StrRightAppend
		default:
			// one operand requires an explicit conversion to string
			kind = lir.StrAppend
		}
		block.Append(lir.BinStringOp{Target: target, Lhs: lhs, Rhs: rhs, Kind: kind}, e.Span())
	default:
		kind, ok := arithKindOf(e.Op)
		if !ok {
			return 0, g.syntaxError("invalid binary expression", e.Span())
		}
		block.Append(lir.BinArithOp{BinType: bin, Kind: kind}, e.Span())
	}
	return target, nil
}

func arithKindOf(op ast.BinOpKind) (lir.BinArithKind, bool) {
	switch op {
	case ast.ADD:
		return lir.ArithAdd, true
	case ast.SUB:
		return lir.ArithSub, true
	case ast.MUL:
		return lir.ArithMul, true
	case ast.DIV:
		return lir.ArithDiv, true
	case ast.REM:
		return lir.ArithRem, true
	case ast.RANGE:
		return lir.ArithRange, true
	case ast.BITWISEAND:
		return lir.ArithBitAnd, true
	case ast.BITWISEOR:
		return lir.ArithBitOr, true
	case ast.BITWISEXOR:
		return lir.ArithBitXor, true
	case ast.LEFTSHIFT:
		return lir.ArithLeftShift, true
	case ast.RIGHTSHIFT:
		return lir.ArithRightShift, true
	}
	return lir.ArithAdd, false
}

func (g *Generator) generateIndexAccess(srcType types.Type, src, index ast.Expr, result types.Type, env *Environment, block *lir.CodeBlock, span position.Span) (int, error) {
	srcReg, err := g.generateExpr(src, env, block)
	if err != nil {
		return 0, err
	}
	idxReg, err := g.generateExpr(index, env, block)
	if err != nil {
		return 0, err
	}
	target := env.Allocate(result)
	block.Append(lir.IndexOf{Type: srcType, Target: target, Src: srcReg, Index: idxReg}, span)
	return target, nil
}

func (g *Generator) generateLength(srcType types.Type, src ast.Expr, env *Environment, block *lir.CodeBlock, span position.Span) (int, error) {
	operand, err := g.generateExpr(src, env, block)
	if err != nil {
		return 0, err
	}
	target := env.Allocate(types.Int())
	block.Append(lir.LengthOf{Type: srcType, Target: target, Operand: operand}, span)
	return target, nil
}

func (g *Generator) generateSubList(e *ast.SubList, env *Environment, block *lir.CodeBlock) (int, error) {
	srcReg, err := g.generateExpr(e.Src, env, block)
	if err != nil {
		return 0, err
	}
	startReg, err := g.generateExpr(e.Start, env, block)
	if err != nil {
		return 0, err
	}
	endReg, err := g.generateExpr(e.End, env, block)
	if err != nil {
		return 0, err
	}
	target := env.Allocate(e.Result())
	block.Append(lir.SubList{Type: e.Type, Target: target, Src: srcReg, Start: startReg, End: endReg}, e.Span())
	return target, nil
}

func (g *Generator) generateSubString(e *ast.SubString, env *Environment, block *lir.CodeBlock) (int, error) {
	srcReg, err := g.generateExpr(e.Src, env, block)
	if err != nil {
		return 0, err
	}
	startReg, err := g.generateExpr(e.Start, env, block)
	if err != nil {
		return 0, err
	}
	endReg, err := g.generateExpr(e.End, env, block)
	if err != nil {
		return 0, err
	}
	target := env.Allocate(types.String())
	block.Append(lir.SubString{Target: target, Src: srcReg, Start: startReg, End: endReg}, e.Span())
	return target, nil
}

// generateRecordLit evaluates the fields in sorted name order,
// matching the field layout of the record type.
func (g *Generator) generateRecordLit(e *ast.RecordLit, env *Environment, block *lir.CodeBlock) (int, error) {
	operands := make([]int, 0, len(e.Fields))
	for _, name := range e.Type.Fields() {
		reg, err := g.generateExpr(e.Fields[name], env, block)
		if err != nil {
			return 0, err
		}
		operands = append(operands, reg)
	}
	target := env.Allocate(e.Result())
	block.Append(lir.NewRecord{Type: e.Result(), Target: target, Operands: operands}, e.Span())
	return target, nil
}

// generateMapLit lays the operands out as alternating key/value
// registers.
func (g *Generator) generateMapLit(e *ast.MapLit, env *Environment, block *lir.CodeBlock) (int, error) {
	operands := make([]int, 2*len(e.Pairs))
	for i, p := range e.Pairs {
		k, err := g.generateExpr(p.Key, env, block)
		if err != nil {
			return 0, err
		}
		v, err := g.generateExpr(p.Value, env, block)
		if err != nil {
			return 0, err
		}
		operands[i<<1] = k
		operands[i<<1|1] = v
	}
	target := env.Allocate(e.Result())
	block.Append(lir.NewMap{Type: e.Result(), Target: target, Operands: operands}, e.Span())
	return target, nil
}

func (g *Generator) generateOperands(args []ast.Expr, env *Environment, block *lir.CodeBlock) ([]int, error) {
	operands := make([]int, len(args))
	for i, a := range args {
		reg, err := g.generateExpr(a, env, block)
		if err != nil {
			return nil, err
		}
		operands[i] = reg
	}
	return operands, nil
}

func (g *Generator) generateCallTo(fnType types.Type, target int, module, name string, args []ast.Expr, env *Environment, block *lir.CodeBlock, span position.Span) error {
	operands, err := g.generateOperands(args, env, block)
	if err != nil {
		return err
	}
	block.Append(lir.Invoke{Type: fnType, Target: target, Operands: operands, Module: module, Name: name}, span)
	return nil
}

func (g *Generator) generateIndirectCallTo(fnType types.Type, target int, src ast.Expr, args []ast.Expr, env *Environment, block *lir.CodeBlock, span position.Span) error {
	operand, err := g.generateExpr(src, env, block)
	if err != nil {
		return err
	}
	operands, err := g.generateOperands(args, env, block)
	if err != nil {
		return err
	}
	block.Append(lir.IndirectInvoke{Type: fnType, Target: target, Operand: operand, Operands: operands}, span)
	return nil
}

// generateComprehension lowers value comprehensions by accumulating
// into an empty list or set; boolean quantifiers reuse the condition
// machinery via materialization.
func (g *Generator) generateComprehension(e *ast.Comprehension, env *Environment, block *lir.CodeBlock) (int, error) {
	if e.Op == ast.SOME || e.Op == ast.NONE || e.Op == ast.ALL {
		target := env.Allocate(types.Bool())
		return target, g.materializeBool(target, e, env, block, e.Span())
	}

	resultType := e.Result()
	target := env.Allocate(resultType)
	if e.Op == ast.LISTCOMP {
		block.Append(lir.NewList{Type: resultType, Target: target}, e.Span())
	} else {
		block.Append(lir.NewSet{Type: resultType, Target: target}, e.Span())
	}

	labels, err := g.openComprehensionLoops(e, env, block)
	if err != nil {
		return 0, err
	}

	continueLabel := block.FreshLabel()
	if e.Condition != nil {
		if err := g.generateCondition(continueLabel, invert(e.Condition), env, block, nil); err != nil {
			return 0, err
		}
	}

	operand, err := g.generateExpr(e.Value, env, block)
	if err != nil {
		return 0, err
	}
	if e.Op == ast.LISTCOMP {
		block.Append(lir.BinListOp{
			BinType: lir.BinType{Type: resultType, Target: target, Lhs: target, Rhs: operand},
			Kind:    lir.ListLeftAppend,
		}, e.Span())
	} else {
		block.Append(lir.BinSetOp{
			BinType: lir.BinType{Type: resultType, Target: target, Lhs: target, Rhs: operand},
			Kind:    lir.SetLeftUnion,
		}, e.Span())
	}

	if e.Condition != nil {
		block.Append(lir.Label{Label: continueLabel}, e.Span())
	}
	for i := len(labels) - 1; i >= 0; i-- {
		block.Append(lir.Nop{}, e.Span())
		block.Append(lir.LoopEnd{Label: labels[i]}, e.Span())
	}
	return target, nil
}

// generateLambda lifts a lambda into an anonymous top-level function.
// The synthesized function's parameters are the lambda's own followed
// by its captured free variables; the lambda instruction records the
// call-time slots as NullReg and the captured registers from the
// enclosing environment.
func (g *Generator) generateLambda(e *ast.Lambda, env *Environment, block *lir.CodeBlock) (int, error) {
	fnType := e.Type
	benv := NewEnvironment()
	var operands []int
	var paramTypes []types.Type
	for i, t := range fnType.Params() {
		benv.AllocateVar(t, e.Parameters[i].Name)
		paramTypes = append(paramTypes, t)
		operands = append(operands, lir.NullReg)
	}
	for _, name := range ast.FreeVariables(e.Body) {
		if _, bound := benv.Lookup(name); bound {
			continue
		}
		outer, ok := env.Lookup(name)
		if !ok {
			continue
		}
		t := env.TypeOf(outer)
		benv.AllocateVar(t, name)
		paramTypes = append(paramTypes, t)
		operands = append(operands, outer)
	}

	bodyBlock := lir.NewCodeBlock(len(paramTypes))
	ret := fnType.Ret()
	if ret != types.Void() {
		reg, err := g.generateExpr(e.Body, benv, bodyBlock)
		if err != nil {
			return 0, err
		}
		bodyBlock.Append(lir.NewReturn(ret, reg), e.Span())
	} else {
		if _, err := g.generateExpr(e.Body, benv, bodyBlock); err != nil {
			return 0, err
		}
		bodyBlock.Append(lir.BareReturn(), e.Span())
	}

	var concrete types.Type
	if fnType.Kind() == types.KMethod {
		concrete = types.Method(ret, fnType.ThrowsType(), paramTypes...)
	} else {
		concrete = types.Function(ret, fnType.ThrowsType(), paramTypes...)
	}

	name := g.lambdaName(e.Span())
	g.lambdas = append(g.lambdas, &lir.FunctionDecl{
		Name: name,
		Type: concrete,
		Body: bodyBlock,
	})

	target := env.Allocate(fnType)
	block.Append(lir.Lambda{
		Type: concrete, Target: target, Operands: operands,
		Module: g.module, Name: name,
	}, e.Span())
	return target, nil
}
