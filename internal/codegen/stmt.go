package codegen

import (
	"github.com/wyrm-lang/wyrm/internal/ast"
	"github.com/wyrm-lang/wyrm/internal/errors"
	"github.com/wyrm-lang/wyrm/internal/lir"
	"github.com/wyrm-lang/wyrm/internal/types"
	"github.com/wyrm-lang/wyrm/internal/value"
)

// generateStmt lowers one statement into the given block.
func (g *Generator) generateStmt(s ast.Stmt, env *Environment, block *lir.CodeBlock, fn *ast.FunctionDecl) error {
	err := g.generateStmtInner(s, env, block, fn)
	if err != nil {
		return g.rewrap(err, s.Span())
	}
	return nil
}

func (g *Generator) generateStmtInner(s ast.Stmt, env *Environment, block *lir.CodeBlock, fn *ast.FunctionDecl) error {
	switch s := s.(type) {
	case *ast.VarDecl:
		return g.generateVarDecl(s, env, block)
	case *ast.Assign:
		return g.generateAssign(s, env, block)
	case *ast.Assert:
		return g.generateAssert(s, env, block, "assertion failed")
	case *ast.Assume:
		// assumptions are verification-only; at runtime they vanish
		block.Append(lir.Nop{}, s.Span())
		return nil
	case *ast.Return:
		return g.generateReturn(s, env, block, fn)
	case *ast.Debug:
		operand, err := g.generateExpr(s.Operand, env, block)
		if err != nil {
			return err
		}
		block.Append(lir.Debug{Operand: operand}, s.Span())
		return nil
	case *ast.IfElse:
		return g.generateIfElse(s, env, block, fn)
	case *ast.Switch:
		return g.generateSwitch(s, env, block, fn)
	case *ast.TryCatch:
		return g.generateTryCatch(s, env, block, fn)
	case *ast.Break:
		scope, ok := g.findEnclosingBreak()
		if !ok {
			return g.syntaxError(errors.MsgBreakOutsideLoop, s.Span())
		}
		block.Append(lir.Goto{Target: scope.label}, s.Span())
		return nil
	case *ast.Throw:
		operand, err := g.generateExpr(s.Operand, env, block)
		if err != nil {
			return err
		}
		block.Append(lir.Throw{Type: s.Operand.Result(), Operand: operand}, s.Span())
		return nil
	case *ast.While:
		return g.generateWhile(s, env, block, fn)
	case *ast.DoWhile:
		return g.generateDoWhile(s, env, block, fn)
	case *ast.ForAll:
		return g.generateForAll(s, env, block, fn)
	case *ast.Skip:
		block.Append(lir.Nop{}, s.Span())
		return nil
	case *ast.ExprStmt:
		return g.generateExprStmt(s, env, block)
	default:
		return g.internalFailure("unknown statement", s.Span())
	}
}

// generateVarDecl lowers a variable declaration. With an initializer
// the right-hand side is evaluated into a temporary, assigned into the
// freshly allocated root register, and the declared pattern is
// destructured from the root. Without one, registers are allocated and
// names recorded but no code is emitted.
func (g *Generator) generateVarDecl(s *ast.VarDecl, env *Environment, block *lir.CodeBlock) error {
	root := env.Allocate(s.Type)
	if s.Init != nil {
		operand, err := g.generateExpr(s.Init, env, block)
		if err != nil {
			return err
		}
		block.Append(lir.Assign{Type: s.Init.Result(), Target: root, Operand: operand}, s.Span())
		return g.addDeclaredVariables(root, s.Pattern, s.Type, env, block)
	}
	// No initializer, so there is nothing to destructure at runtime;
	// the pattern's registers are still allocated and named, with the
	// generated loads routed to a discarded block.
	return g.addDeclaredVariables(root, s.Pattern, s.Type, env, lir.NewCodeBlock(block.NumInputs()))
}

func (g *Generator) generateAssign(s *ast.Assign, env *Environment, block *lir.CodeBlock) error {
	operand, err := g.generateExpr(s.Rhs, env, block)
	if err != nil {
		return err
	}

	switch lhs := s.Lhs.(type) {
	case *ast.LocalVariable:
		target, ok := env.Lookup(lhs.Name)
		if !ok {
			return g.syntaxError(errors.MsgUnknownVariable, lhs.Span())
		}
		block.Append(lir.Assign{Type: s.Rhs.Result(), Target: target, Operand: operand}, s.Span())
		return nil

	case *ast.RationalLVal:
		// destructure via the numerator and denominator projections
		num, err := g.assignedRegister(lhs.Numerator, env)
		if err != nil {
			return err
		}
		den, err := g.assignedRegister(lhs.Denominator, env)
		if err != nil {
			return err
		}
		block.Append(lir.UnArithOp{Type: s.Rhs.Result(), Target: num, Operand: operand, Kind: lir.ArithNumerator}, s.Span())
		block.Append(lir.UnArithOp{Type: s.Rhs.Result(), Target: den, Operand: operand, Kind: lir.ArithDenominator}, s.Span())
		return nil

	case *ast.TupleLit:
		tupleType, ok := g.effectiveTupleType(s.Rhs.Result())
		if !ok {
			return g.syntaxError(errors.MsgIncomparableOperands, s.Span())
		}
		for i, elem := range lhs.Elements {
			target, err := g.assignedRegister(elem, env)
			if err != nil {
				return err
			}
			block.Append(lir.TupleLoad{Type: tupleType, Target: target, Operand: operand, Index: i}, s.Span())
		}
		return nil

	case *ast.ListAccess, *ast.StringAccess, *ast.MapAccess, *ast.FieldAccess, *ast.Dereference:
		// a recursive lval boils down to a single update on the
		// left-most variable
		var fields []string
		var operands []int
		base, err := g.extractLVal(s.Lhs, &fields, &operands, env, block)
		if err != nil {
			return err
		}
		target, ok := env.Lookup(base.Name)
		if !ok {
			return g.syntaxError(errors.MsgUnknownVariable, base.Span())
		}
		beforeType := env.TypeOf(target)
		block.Append(lir.Update{
			Type: beforeType, Target: target, Operand: operand,
			Operands: operands, AfterType: beforeType, Fields: fields,
		}, s.Span())
		return nil

	default:
		return g.syntaxError(errors.MsgInvalidLVal, s.Span())
	}
}

func (g *Generator) assignedRegister(e ast.Expr, env *Environment) (int, error) {
	lv, ok := e.(*ast.LocalVariable)
	if !ok {
		return 0, g.syntaxError(errors.MsgInvalidLVal, e.Span())
	}
	reg, ok := env.Lookup(lv.Name)
	if !ok {
		return 0, g.syntaxError(errors.MsgUnknownVariable, e.Span())
	}
	return reg, nil
}

func (g *Generator) effectiveTupleType(t types.Type) (types.Type, bool) {
	elems, ok := g.engine.AsEffectiveTuple(t)
	if !ok {
		return types.Void(), false
	}
	return types.Tuple(elems...), true
}

// extractLVal recurses down a compound lval, collecting the field
// names and evaluated index registers along the path and returning the
// left-most variable actually being updated.
func (g *Generator) extractLVal(e ast.Expr, fields *[]string, operands *[]int, env *Environment, block *lir.CodeBlock) (*ast.LocalVariable, error) {
	switch e := e.(type) {
	case *ast.LocalVariable:
		return e, nil
	case *ast.Dereference:
		return g.extractLVal(e.Src, fields, operands, env, block)
	case *ast.ListAccess:
		return g.extractIndexLVal(e.Src, e.Index, fields, operands, env, block)
	case *ast.StringAccess:
		return g.extractIndexLVal(e.Src, e.Index, fields, operands, env, block)
	case *ast.MapAccess:
		return g.extractIndexLVal(e.Src, e.Index, fields, operands, env, block)
	case *ast.FieldAccess:
		base, err := g.extractLVal(e.Src, fields, operands, env, block)
		if err != nil {
			return nil, err
		}
		*fields = append(*fields, e.Name)
		return base, nil
	default:
		return nil, g.syntaxError(errors.MsgInvalidLVal, e.Span())
	}
}

func (g *Generator) extractIndexLVal(src, index ast.Expr, fields *[]string, operands *[]int, env *Environment, block *lir.CodeBlock) (*ast.LocalVariable, error) {
	operand, err := g.generateExpr(index, env, block)
	if err != nil {
		return nil, err
	}
	base, err := g.extractLVal(src, fields, operands, env, block)
	if err != nil {
		return nil, err
	}
	*operands = append(*operands, operand)
	return base, nil
}

// generateAssert lowers an assert statement. A bare comparison lowers
// directly onto the assert instruction; any other boolean expression
// is materialized and compared against true.
func (g *Generator) generateAssert(s *ast.Assert, env *Environment, block *lir.CodeBlock, msg string) error {
	if bop, ok := s.Cond.(*ast.BinOp); ok && bop.Op.IsComparison() && bop.Op != ast.IS {
		lhs, err := g.generateExpr(bop.Lhs, env, block)
		if err != nil {
			return err
		}
		rhs, err := g.generateExpr(bop.Rhs, env, block)
		if err != nil {
			return err
		}
		cop, err := comparatorOf(bop.Op)
		if err != nil {
			return g.internalFailure(err.Error(), s.Span())
		}
		block.Append(lir.Assert{Type: bop.SrcType, Lhs: lhs, Rhs: rhs, Op: cop, Msg: msg}, s.Span())
		return nil
	}
	reg, err := g.generateExpr(s.Cond, env, block)
	if err != nil {
		return err
	}
	trueReg := env.Allocate(types.Bool())
	block.Append(lir.Const{Target: trueReg, Value: value.Bool{Value: true}}, s.Span())
	block.Append(lir.Assert{Type: types.Bool(), Lhs: reg, Rhs: trueReg, Op: lir.CmpEq, Msg: msg}, s.Span())
	return nil
}

// generateReturn lowers a return statement. The declared return type
// is used rather than the inferred operand type, forcing an implicit
// coercion point between the value produced and the type required.
func (g *Generator) generateReturn(s *ast.Return, env *Environment, block *lir.CodeBlock, fn *ast.FunctionDecl) error {
	if s.Operand == nil {
		block.Append(lir.BareReturn(), s.Span())
		return nil
	}
	operand, err := g.generateExpr(s.Operand, env, block)
	if err != nil {
		return err
	}
	block.Append(lir.NewReturn(fn.Ret, operand), s.Span())
	return nil
}

// generateIfElse lowers an if statement: the inverted condition
// branches over the true block; an explicit false block is bracketed
// by a goto over it and its entry label.
func (g *Generator) generateIfElse(s *ast.IfElse, env *Environment, block *lir.CodeBlock, fn *ast.FunctionDecl) error {
	falseLab := block.FreshLabel()
	exitLab := falseLab
	if len(s.FalseBranch) > 0 {
		exitLab = block.FreshLabel()
	}

	if err := g.generateCondition(falseLab, invert(s.Cond), env, block, fn); err != nil {
		return err
	}
	for _, st := range s.TrueBranch {
		if err := g.generateStmt(st, env, block, fn); err != nil {
			return err
		}
	}
	if len(s.FalseBranch) > 0 {
		block.Append(lir.Goto{Target: exitLab}, s.Span())
		block.Append(lir.Label{Label: falseLab}, s.Span())
		for _, st := range s.FalseBranch {
			if err := g.generateStmt(st, env, block, fn); err != nil {
				return err
			}
		}
	}
	block.Append(lir.Label{Label: exitLab}, s.Span())
	return nil
}

// generateSwitch lowers a switch statement. Bodies are emitted in
// order of appearance, each ending in a goto to the common exit; the
// dispatch instruction is inserted afterwards at the position reserved
// before the first body.
func (g *Generator) generateSwitch(s *ast.Switch, env *Environment, block *lir.CodeBlock, fn *ast.FunctionDecl) error {
	exitLab := block.FreshLabel()
	operand, err := g.generateExpr(s.Operand, env, block)
	if err != nil {
		return err
	}
	defaultTarget := exitLab
	seen := make(map[string]bool)
	var branches []lir.SwitchBranch
	start := block.Size()

	for _, c := range s.Cases {
		if len(c.Values) == 0 {
			// the default case; at most one is allowed
			if defaultTarget != exitLab {
				return g.syntaxError(errors.MsgDuplicateDefault, c.Pos)
			}
			defaultTarget = block.FreshLabel()
			block.Append(lir.Label{Label: defaultTarget}, c.Pos)
			for _, st := range c.Body {
				if err := g.generateStmt(st, env, block, fn); err != nil {
					return err
				}
			}
			block.Append(lir.Goto{Target: exitLab}, c.Pos)
		} else if defaultTarget == exitLab {
			target := block.FreshLabel()
			block.Append(lir.Label{Label: target}, c.Pos)
			for _, v := range c.Values {
				if seen[v.Key()] {
					return g.syntaxError(errors.MsgDuplicateCaseLabel, c.Pos)
				}
				seen[v.Key()] = true
				branches = append(branches, lir.SwitchBranch{Value: v, Target: target})
			}
			for _, st := range c.Body {
				if err := g.generateStmt(st, env, block, fn); err != nil {
					return err
				}
			}
			block.Append(lir.Goto{Target: exitLab}, c.Pos)
		} else {
			// a non-default case after the default can never run
			return g.syntaxError(errors.MsgUnreachableCode, c.Pos)
		}
	}

	block.Insert(start, lir.Switch{
		Type: s.Operand.Result(), Operand: operand,
		DefaultTarget: defaultTarget, Branches: branches,
	}, s.Span())
	block.Append(lir.Label{Label: exitLab}, s.Span())
	return nil
}

// generateTryCatch lowers a try-catch. The body is emitted first, the
// dispatch instruction inserted at the reserved position; the first
// catch handler's label marker is the TryEnd delimiting the try
// region.
func (g *Generator) generateTryCatch(s *ast.TryCatch, env *Environment, block *lir.CodeBlock, fn *ast.FunctionDecl) error {
	start := block.Size()
	excReg := env.Allocate(types.Any())
	exitLab := block.FreshLabel()

	for _, st := range s.Body {
		if err := g.generateStmt(st, env, block, fn); err != nil {
			return err
		}
	}
	block.Append(lir.Goto{Target: exitLab}, s.Span())

	endLab := ""
	var catches []lir.CatchBranch
	for _, c := range s.Catches {
		var lab string
		if endLab == "" {
			endLab = block.FreshLabel()
			lab = endLab
			block.Append(lir.TryEnd{Label: lab}, c.Pos)
		} else {
			lab = block.FreshLabel()
			block.Append(lir.Label{Label: lab}, c.Pos)
		}
		catches = append(catches, lir.CatchBranch{Type: c.Type, Target: lab})
		env.Bind(excReg, c.Variable)
		for _, st := range c.Body {
			if err := g.generateStmt(st, env, block, fn); err != nil {
				return err
			}
		}
		block.Append(lir.Goto{Target: exitLab}, c.Pos)
	}

	block.Insert(start, lir.TryCatch{Operand: excReg, Target: endLab, Catches: catches}, s.Span())
	block.Append(lir.Label{Label: exitLab}, s.Span())
	return nil
}

// generateWhile lowers a while loop: a loop envelope whose head tests
// the inverted condition and branches to the exit label.
func (g *Generator) generateWhile(s *ast.While, env *Environment, block *lir.CodeBlock, fn *ast.FunctionDecl) error {
	label := block.FreshLabel()
	exit := block.FreshLabel()

	block.Append(lir.Loop{Label: label}, s.Span())
	if err := g.generateCondition(exit, invert(s.Cond), env, block, fn); err != nil {
		return err
	}

	g.pushScope(breakScope{label: exit})
	for _, st := range s.Body {
		if err := g.generateStmt(st, env, block, fn); err != nil {
			return err
		}
	}
	g.popScope()

	// the nop keeps labels at the loop boundary well-delimited
	block.Append(lir.Nop{}, s.Span())
	block.Append(lir.LoopEnd{Label: label}, s.Span())
	block.Append(lir.Label{Label: exit}, s.Span())
	return nil
}

// generateDoWhile lowers a do-while loop: the same envelope as while,
// with the condition tested after the body.
func (g *Generator) generateDoWhile(s *ast.DoWhile, env *Environment, block *lir.CodeBlock, fn *ast.FunctionDecl) error {
	label := block.FreshLabel()
	exit := block.FreshLabel()

	block.Append(lir.Loop{Label: label}, s.Span())

	g.pushScope(breakScope{label: exit})
	for _, st := range s.Body {
		if err := g.generateStmt(st, env, block, fn); err != nil {
			return err
		}
	}
	g.popScope()

	if err := g.generateCondition(exit, invert(s.Cond), env, block, fn); err != nil {
		return err
	}

	block.Append(lir.Nop{}, s.Span())
	block.Append(lir.LoopEnd{Label: label}, s.Span())
	block.Append(lir.Label{Label: exit}, s.Span())
	return nil
}

// generateForAll lowers a for-all loop. The single-variable form
// allocates one index register at the element type; the map
// destructuring form iterates (key, value) tuples and loads the two
// named variables from the tuple.
func (g *Generator) generateForAll(s *ast.ForAll, env *Environment, block *lir.CodeBlock, fn *ast.FunctionDecl) error {
	label := block.FreshLabel()
	exit := block.FreshLabel()

	sourceReg, err := g.generateExpr(s.Source, env, block)
	if err != nil {
		return err
	}

	collType, element, ok := g.engine.AsEffectiveCollection(s.SrcType)
	if !ok {
		return g.syntaxError(errors.MsgInvalidSetOrListExpr, s.Source.Span())
	}

	if len(s.Variables) > 1 {
		// destructuring is supported for map sources only
		k, v, ok := g.engine.AsEffectiveMap(s.SrcType)
		if !ok {
			return g.syntaxError(errors.MsgInvalidMapExpr, s.Source.Span())
		}
		element := types.Tuple(k, v)
		indexReg := env.Allocate(element)
		block.Append(lir.ForAll{Type: collType, Source: sourceReg, Index: indexReg, Label: label}, s.Span())
		for i, name := range s.Variables {
			varReg := env.AllocateVar(element.Child(i), name)
			block.Append(lir.TupleLoad{Type: element, Target: varReg, Operand: indexReg, Index: i}, s.Span())
		}
	} else {
		indexReg := env.AllocateVar(element, s.Variables[0])
		block.Append(lir.ForAll{Type: collType, Source: sourceReg, Index: indexReg, Label: label}, s.Span())
	}

	g.pushScope(breakScope{label: exit})
	for _, st := range s.Body {
		if err := g.generateStmt(st, env, block, fn); err != nil {
			return err
		}
	}
	g.popScope()

	block.Append(lir.Nop{}, s.Span())
	block.Append(lir.LoopEnd{Label: label}, s.Span())
	block.Append(lir.Label{Label: exit}, s.Span())
	return nil
}

// generateExprStmt lowers a bare invocation or allocation, discarding
// the result.
func (g *Generator) generateExprStmt(s *ast.ExprStmt, env *Environment, block *lir.CodeBlock) error {
	switch e := s.E.(type) {
	case *ast.FunctionCall:
		return g.generateCallTo(e.FnType, lir.NullReg, e.Module, e.Name, e.Args, env, block, e.Span())
	case *ast.MethodCall:
		return g.generateCallTo(e.FnType, lir.NullReg, e.Module, e.Name, e.Args, env, block, e.Span())
	case *ast.IndirectFunctionCall:
		return g.generateIndirectCallTo(e.FnType, lir.NullReg, e.Src, e.Args, env, block, e.Span())
	case *ast.IndirectMethodCall:
		return g.generateIndirectCallTo(e.FnType, lir.NullReg, e.Src, e.Args, env, block, e.Span())
	case *ast.New:
		_, err := g.generateExpr(e, env, block)
		return err
	default:
		return g.syntaxError("expression statement must be an invocation or allocation", s.Span())
	}
}
