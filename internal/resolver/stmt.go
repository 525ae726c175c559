package resolver

import (
	"github.com/wyrm-lang/wyrm/internal/ast"
	"github.com/wyrm-lang/wyrm/internal/errors"
	"github.com/wyrm-lang/wyrm/internal/types"
)

// ResolveModule types every declaration of a module in place.
func (r *Resolver) ResolveModule(m *ast.Module) error {
	for _, d := range m.Declarations {
		if err := r.ResolveDecl(d); err != nil {
			return err
		}
	}
	return nil
}

// ResolveDecl types a single declaration in place.
func (r *Resolver) ResolveDecl(d ast.Decl) error {
	r.declared = make(map[string]types.Type)
	switch d := d.(type) {
	case *ast.ConstantDecl:
		// the value is already evaluated by the front end
		return nil
	case *ast.TypeDecl:
		return r.resolveTypeDecl(d)
	case *ast.FunctionDecl:
		return r.resolveFunctionDecl(d)
	default:
		return r.internalFailure("unknown declaration", d.Span())
	}
}

func (r *Resolver) resolveTypeDecl(d *ast.TypeDecl) error {
	if d.Invariant == nil {
		return nil
	}
	env, err := r.bindPattern(NewEnvironment(), d.Pattern, d.Type)
	if err != nil {
		return err
	}
	inv, _, err := r.ResolveCondition(d.Invariant, true, env)
	if err != nil {
		return err
	}
	d.Invariant = inv
	return nil
}

func (r *Resolver) resolveFunctionDecl(d *ast.FunctionDecl) error {
	r.fn = d
	defer func() { r.fn = nil }()

	env := NewEnvironment()
	for _, p := range d.Parameters {
		env = env.Put(p.Name, p.Type)
		r.declared[p.Name] = p.Type
	}

	if d.Requires != nil {
		pre, _, err := r.ResolveCondition(d.Requires, true, env)
		if err != nil {
			return err
		}
		d.Requires = pre
	}
	if d.Ensures != nil {
		// the postcondition sees the parameters plus the return value
		// bound to "$"
		postEnv := env.Put("$", d.Ret)
		post, _, err := r.ResolveCondition(d.Ensures, true, postEnv)
		if err != nil {
			return err
		}
		d.Ensures = post
	}

	_, err := r.propagateStmts(d.Body, env)
	return err
}

// propagateStmts types a statement sequence, threading the refined
// environment from each statement into the next. Statements following
// an unreachable point are reported rather than silently typed.
func (r *Resolver) propagateStmts(stmts []ast.Stmt, env *Environment) (*Environment, error) {
	for _, s := range stmts {
		if env.IsBottom() {
			return nil, r.syntaxError(errors.MsgUnreachableCode, s.Span())
		}
		var err error
		env, err = r.propagateStmt(s, env)
		if err != nil {
			return nil, err
		}
	}
	return env, nil
}

func (r *Resolver) propagateStmt(s ast.Stmt, env *Environment) (*Environment, error) {
	out, err := r.propagateStmtInner(s, env)
	if err != nil {
		return nil, r.rewrap(err, s.Span())
	}
	return out, nil
}

func (r *Resolver) propagateStmtInner(s ast.Stmt, env *Environment) (*Environment, error) {
	switch s := s.(type) {
	case *ast.VarDecl:
		return r.propagateVarDecl(s, env)
	case *ast.Assign:
		return r.propagateAssign(s, env)
	case *ast.Assert:
		cond, out, err := r.ResolveCondition(s.Cond, true, env)
		if err != nil {
			return nil, err
		}
		s.Cond = cond
		return out, nil
	case *ast.Assume:
		cond, out, err := r.ResolveCondition(s.Cond, true, env)
		if err != nil {
			return nil, err
		}
		s.Cond = cond
		return out, nil
	case *ast.Return:
		return r.propagateReturn(s, env)
	case *ast.Debug:
		operand, err := r.ResolveExpr(s.Operand, env)
		if err != nil {
			return nil, err
		}
		s.Operand = operand
		if err := r.checkIsSubtype(types.String(), operand); err != nil {
			return nil, err
		}
		return env, nil
	case *ast.Skip:
		return env, nil
	case *ast.IfElse:
		return r.propagateIfElse(s, env)
	case *ast.Switch:
		return r.propagateSwitch(s, env)
	case *ast.TryCatch:
		return r.propagateTryCatch(s, env)
	case *ast.Break:
		return Bottom(), nil
	case *ast.Throw:
		operand, err := r.ResolveExpr(s.Operand, env)
		if err != nil {
			return nil, err
		}
		s.Operand = operand
		if r.fn != nil && r.fn.Throws != types.Void() {
			if err := r.checkIsSubtype(r.fn.Throws, operand); err != nil {
				return nil, err
			}
		}
		return Bottom(), nil
	case *ast.While:
		return r.propagateWhile(s, env)
	case *ast.DoWhile:
		return r.propagateDoWhile(s, env)
	case *ast.ForAll:
		return r.propagateForAll(s, env)
	case *ast.ExprStmt:
		return r.propagateExprStmt(s, env)
	default:
		return nil, r.internalFailure("unknown statement", s.Span())
	}
}

func (r *Resolver) propagateVarDecl(s *ast.VarDecl, env *Environment) (*Environment, error) {
	if s.Init != nil {
		init, err := r.ResolveExpr(s.Init, env)
		if err != nil {
			return nil, err
		}
		s.Init = init
		if !r.engine.IsImplicitCoerciveSubtype(s.Type, init.Result()) {
			return nil, r.syntaxError(errors.MsgSubtypeError, init.Span())
		}
	}
	return r.bindPattern(env, s.Pattern, s.Type)
}

// bindPattern introduces the variables declared by a pattern into the
// environment, typed by the corresponding components of the declared
// type.
func (r *Resolver) bindPattern(env *Environment, p ast.Pattern, t types.Type) (*Environment, error) {
	switch p := p.(type) {
	case *ast.LeafPattern:
		if p.Var != "" {
			env = env.Put(p.Var, t)
			r.declared[p.Var] = t
		}
		return env, nil
	case *ast.RecordPattern:
		rec, ok := r.engine.AsEffectiveRecord(t)
		if !ok {
			return nil, r.syntaxError(errors.MsgRecordTypeRequired, p.Span())
		}
		for _, f := range p.Fields {
			ft, ok := rec.Field(f.Name)
			if !ok {
				return nil, r.syntaxError(errors.MsgRecordMissingField, p.Span())
			}
			var err error
			env, err = r.bindPattern(env, f.Pat, ft)
			if err != nil {
				return nil, err
			}
		}
		return env, nil
	case *ast.TuplePattern:
		elems, ok := r.engine.AsEffectiveTuple(t)
		if !ok || len(elems) != len(p.Elements) {
			return nil, r.syntaxError(errors.MsgIncomparableOperands, p.Span())
		}
		for i, sub := range p.Elements {
			var err error
			env, err = r.bindPattern(env, sub, elems[i])
			if err != nil {
				return nil, err
			}
		}
		return env, nil
	case *ast.RationalPattern:
		var err error
		env, err = r.bindPattern(env, p.Numerator, types.Int())
		if err != nil {
			return nil, err
		}
		return r.bindPattern(env, p.Denominator, types.Int())
	default:
		return nil, r.internalFailure("unknown pattern", p.Span())
	}
}

func (r *Resolver) propagateAssign(s *ast.Assign, env *Environment) (*Environment, error) {
	rhs, err := r.ResolveExpr(s.Rhs, env)
	if err != nil {
		return nil, err
	}
	s.Rhs = rhs

	switch lhs := s.Lhs.(type) {
	case *ast.AbstractVariable, *ast.LocalVariable:
		name := lhsName(lhs)
		declared, ok := r.declared[name]
		if !ok {
			return nil, r.syntaxError(errors.MsgUnknownVariable, lhs.Span())
		}
		if !r.engine.IsImplicitCoerciveSubtype(declared, rhs.Result()) {
			return nil, r.syntaxError(errors.MsgSubtypeError, rhs.Span())
		}
		s.Lhs = &ast.LocalVariable{ExprAttr: exprAttrOf(lhs), Name: name, Type: rhs.Result()}
		// a direct assignment re-types the variable to what it now
		// holds
		return env.Put(name, rhs.Result()), nil

	case *ast.RationalLVal:
		if err := r.checkIsSubtype(types.Real(), rhs); err != nil {
			return nil, err
		}
		num, err := r.resolveAssignedVariable(lhs.Numerator, types.Int(), env)
		if err != nil {
			return nil, err
		}
		den, err := r.resolveAssignedVariable(lhs.Denominator, types.Int(), env)
		if err != nil {
			return nil, err
		}
		lhs.Numerator, lhs.Denominator = num, den
		env = env.Put(num.Name, types.Int())
		return env.Put(den.Name, types.Int()), nil

	case *ast.TupleLit:
		elems, ok := r.engine.AsEffectiveTuple(rhs.Result())
		if !ok || len(elems) != len(lhs.Elements) {
			return nil, r.syntaxError(errors.MsgIncomparableOperands, s.Span())
		}
		lhsTypes := make([]types.Type, len(lhs.Elements))
		for i := range lhs.Elements {
			v, err := r.resolveAssignedVariable(lhs.Elements[i], elems[i], env)
			if err != nil {
				return nil, err
			}
			lhs.Elements[i] = v
			env = env.Put(v.Name, elems[i])
			lhsTypes[i] = elems[i]
		}
		lhs.Type = types.Tuple(lhsTypes...)
		return env, nil

	case *ast.IndexOf, *ast.ListAccess, *ast.StringAccess, *ast.MapAccess,
		*ast.FieldAccess, *ast.Dereference:
		resolved, err := r.ResolveExpr(lhs, env)
		if err != nil {
			return nil, err
		}
		s.Lhs = resolved
		if !r.engine.IsImplicitCoerciveSubtype(resolved.Result(), rhs.Result()) {
			return nil, r.syntaxError(errors.MsgSubtypeError, rhs.Span())
		}
		return env, nil

	default:
		return nil, r.syntaxError(errors.MsgInvalidLVal, s.Span())
	}
}

// resolveAssignedVariable types one assigned variable of a compound
// lval, checking it was declared at a type accepting the component.
func (r *Resolver) resolveAssignedVariable(e ast.Expr, component types.Type, env *Environment) (*ast.LocalVariable, error) {
	name := lhsName(e)
	if name == "" {
		return nil, r.syntaxError(errors.MsgInvalidLVal, e.Span())
	}
	declared, ok := r.declared[name]
	if !ok {
		return nil, r.syntaxError(errors.MsgUnknownVariable, e.Span())
	}
	if !r.engine.IsImplicitCoerciveSubtype(declared, component) {
		return nil, r.syntaxError(errors.MsgSubtypeError, e.Span())
	}
	return &ast.LocalVariable{ExprAttr: exprAttrOf(e), Name: name, Type: component}, nil
}

func lhsName(e ast.Expr) string {
	switch e := e.(type) {
	case *ast.AbstractVariable:
		return e.Name
	case *ast.LocalVariable:
		return e.Name
	}
	return ""
}

func exprAttrOf(e ast.Expr) ast.ExprAttr {
	return ast.ExprAttr{Pos: e.Span()}
}

func (r *Resolver) propagateReturn(s *ast.Return, env *Environment) (*Environment, error) {
	if s.Operand != nil {
		operand, err := r.ResolveExpr(s.Operand, env)
		if err != nil {
			return nil, err
		}
		s.Operand = operand
		if r.fn == nil || r.fn.Ret == types.Void() {
			return nil, r.syntaxError("return value in void function", s.Span())
		}
		if !r.engine.IsImplicitCoerciveSubtype(r.fn.Ret, operand.Result()) {
			return nil, r.syntaxError(errors.MsgSubtypeError, operand.Span())
		}
	} else if r.fn != nil && r.fn.Ret != types.Void() {
		return nil, r.syntaxError("missing return value", s.Span())
	}
	return Bottom(), nil
}

func (r *Resolver) propagateIfElse(s *ast.IfElse, env *Environment) (*Environment, error) {
	cond, trueEnv, err := r.ResolveCondition(s.Cond, true, env.Clone())
	if err != nil {
		return nil, err
	}
	_, falseEnv, err := r.ResolveCondition(cond, false, env.Clone())
	if err != nil {
		return nil, err
	}
	s.Cond = cond

	trueOut, err := r.propagateStmts(s.TrueBranch, trueEnv)
	if err != nil {
		return nil, err
	}
	falseOut, err := r.propagateStmts(s.FalseBranch, falseEnv)
	if err != nil {
		return nil, err
	}
	return Join(trueOut, falseOut), nil
}

func (r *Resolver) propagateSwitch(s *ast.Switch, env *Environment) (*Environment, error) {
	operand, err := r.ResolveExpr(s.Operand, env)
	if err != nil {
		return nil, err
	}
	s.Operand = operand

	out := Bottom()
	hasDefault := false
	for i := range s.Cases {
		c := &s.Cases[i]
		if len(c.Values) == 0 {
			hasDefault = true
		}
		caseOut, err := r.propagateStmts(c.Body, env.Clone())
		if err != nil {
			return nil, err
		}
		out = Join(out, caseOut)
	}
	if !hasDefault {
		// without a default the operand may fall through unmatched
		out = Join(out, env)
	}
	return out, nil
}

func (r *Resolver) propagateTryCatch(s *ast.TryCatch, env *Environment) (*Environment, error) {
	bodyOut, err := r.propagateStmts(s.Body, env.Clone())
	if err != nil {
		return nil, err
	}
	out := bodyOut
	for i := range s.Catches {
		c := &s.Catches[i]
		catchEnv := env.Put(c.Variable, c.Type)
		r.declared[c.Variable] = c.Type
		catchOut, err := r.propagateStmts(c.Body, catchEnv)
		if err != nil {
			return nil, err
		}
		out = Join(out, catchOut)
	}
	return out, nil
}

// propagateWhile types a loop body once under the refined entry
// environment, then re-applies the false-signed condition to the join
// of entry and body-exit environments. The single extra pass stands in
// for a full fixpoint, which the declared types bound anyway.
func (r *Resolver) propagateWhile(s *ast.While, env *Environment) (*Environment, error) {
	cond, trueEnv, err := r.ResolveCondition(s.Cond, true, env.Clone())
	if err != nil {
		return nil, err
	}
	s.Cond = cond

	bodyOut, err := r.propagateStmts(s.Body, trueEnv)
	if err != nil {
		return nil, err
	}

	merged := Join(env, bodyOut)
	_, falseEnv, err := r.ResolveCondition(cond, false, merged)
	if err != nil {
		return nil, err
	}
	return falseEnv, nil
}

func (r *Resolver) propagateDoWhile(s *ast.DoWhile, env *Environment) (*Environment, error) {
	bodyOut, err := r.propagateStmts(s.Body, env.Clone())
	if err != nil {
		return nil, err
	}
	cond, _, err := r.ResolveCondition(s.Cond, true, bodyOut.Clone())
	if err != nil {
		return nil, err
	}
	s.Cond = cond
	_, falseEnv, err := r.ResolveCondition(cond, false, Join(env, bodyOut))
	if err != nil {
		return nil, err
	}
	return falseEnv, nil
}

func (r *Resolver) propagateForAll(s *ast.ForAll, env *Environment) (*Environment, error) {
	source, err := r.ResolveExpr(s.Source, env)
	if err != nil {
		return nil, err
	}
	s.Source = source

	collType, element, ok := r.engine.AsEffectiveCollection(source.Result())
	if !ok {
		return nil, r.syntaxError(errors.MsgInvalidSetOrListExpr, source.Span())
	}
	s.SrcType = collType

	bodyEnv := env.Clone()
	if len(s.Variables) > 1 {
		// destructuring iteration is defined for map sources only
		k, v, ok := r.engine.AsEffectiveMap(source.Result())
		if !ok {
			return nil, r.syntaxError(errors.MsgInvalidMapExpr, source.Span())
		}
		if len(s.Variables) != 2 {
			return nil, r.syntaxError(errors.MsgIncomparableOperands, s.Span())
		}
		bodyEnv = bodyEnv.Put(s.Variables[0], k)
		bodyEnv = bodyEnv.Put(s.Variables[1], v)
		r.declared[s.Variables[0]] = k
		r.declared[s.Variables[1]] = v
	} else {
		bodyEnv = bodyEnv.Put(s.Variables[0], element)
		r.declared[s.Variables[0]] = element
	}

	bodyOut, err := r.propagateStmts(s.Body, bodyEnv)
	if err != nil {
		return nil, err
	}
	return Join(env, bodyOut), nil
}

func (r *Resolver) propagateExprStmt(s *ast.ExprStmt, env *Environment) (*Environment, error) {
	e, err := r.ResolveExpr(s.E, env)
	if err != nil {
		return nil, err
	}
	s.E = e
	switch e.(type) {
	case *ast.FunctionCall, *ast.MethodCall, *ast.IndirectFunctionCall,
		*ast.IndirectMethodCall, *ast.New:
		return env, nil
	}
	return nil, r.syntaxError("expression statement must be an invocation or allocation", s.Span())
}
