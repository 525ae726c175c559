package resolver

import (
	"github.com/wyrm-lang/wyrm/internal/ast"
	"github.com/wyrm-lang/wyrm/internal/errors"
	"github.com/wyrm-lang/wyrm/internal/types"
	"github.com/wyrm-lang/wyrm/internal/value"
)

// ResolveCondition types a condition under the given sign, returning
// the rewritten expression together with the environment refined by
// assuming the condition has that sign. Sign true means "assume the
// condition holds"; sign false means "assume it fails".
func (r *Resolver) ResolveCondition(e ast.Expr, sign bool, env *Environment) (ast.Expr, *Environment, error) {
	out, outEnv, err := r.resolveCondition(e, sign, env)
	if err != nil {
		return nil, nil, r.rewrap(err, e.Span())
	}
	return out, outEnv, nil
}

func (r *Resolver) resolveCondition(e ast.Expr, sign bool, env *Environment) (ast.Expr, *Environment, error) {
	switch e := e.(type) {
	case *ast.UnOp:
		if e.Op == ast.NOT {
			operand, outEnv, err := r.resolveCondition(e.Operand, !sign, env)
			if err != nil {
				return nil, nil, err
			}
			e.Operand = operand
			if err := r.checkIsSubtype(types.Bool(), operand); err != nil {
				return nil, nil, err
			}
			e.Type = types.Bool()
			return e, outEnv, nil
		}
	case *ast.BinOp:
		switch e.Op {
		case ast.AND, ast.OR:
			return r.resolveNonLeafCondition(e, sign, env)
		case ast.EQ, ast.NEQ, ast.LT, ast.LTEQ, ast.GT, ast.GTEQ,
			ast.ELEMENTOF, ast.SUBSET, ast.SUBSETEQ, ast.IS:
			return r.resolveLeafCondition(e, sign, env)
		}
	}
	// every other expression carries no refinement; it just has to be
	// boolean
	out, err := r.resolveExpr(e, env)
	if err != nil {
		return nil, nil, err
	}
	if err := r.checkIsSubtype(types.Bool(), out); err != nil {
		return nil, nil, err
	}
	return out, env, nil
}

// resolveNonLeafCondition handles the short-circuit connectives. For
// `a && b` under the true sign the refinement of a flows into b. Under
// the false sign — i.e. assuming !(a && b) = !a || !b — b is only
// evaluated when a held, so its environment is the one refined by a
// being true, and the result joins the two failure paths. `a || b` is
// the dual.
func (r *Resolver) resolveNonLeafCondition(e *ast.BinOp, sign bool, env *Environment) (ast.Expr, *Environment, error) {
	followOn := (sign && e.Op == ast.AND) || (!sign && e.Op == ast.OR)

	if followOn {
		lhs, lhsEnv, err := r.resolveCondition(e.Lhs, sign, env.Clone())
		if err != nil {
			return nil, nil, err
		}
		e.Lhs = lhs
		rhs, rhsEnv, err := r.resolveCondition(e.Rhs, sign, lhsEnv)
		if err != nil {
			return nil, nil, err
		}
		e.Rhs = rhs
		env = rhsEnv
	} else {
		lhs, localEnv, err := r.resolveCondition(e.Lhs, sign, env.Clone())
		if err != nil {
			return nil, nil, err
		}
		e.Lhs = lhs
		// Retype the lhs under the opposite sign: the rhs is only
		// reached when the lhs did not already decide the outcome.
		_, crossEnv, err := r.resolveCondition(e.Lhs, !sign, env.Clone())
		if err != nil {
			return nil, nil, err
		}
		rhs, rhsEnv, err := r.resolveCondition(e.Rhs, sign, crossEnv)
		if err != nil {
			return nil, nil, err
		}
		e.Rhs = rhs
		env = Join(localEnv, rhsEnv)
	}

	if err := r.checkIsSubtype(types.Bool(), e.Lhs); err != nil {
		return nil, nil, err
	}
	if err := r.checkIsSubtype(types.Bool(), e.Rhs); err != nil {
		return nil, nil, err
	}
	e.SrcType = types.Bool()
	return e, env, nil
}

func (r *Resolver) resolveLeafCondition(e *ast.BinOp, sign bool, env *Environment) (ast.Expr, *Environment, error) {
	lhs, err := r.resolveExpr(e.Lhs, env)
	if err != nil {
		return nil, nil, err
	}
	rhs, err := r.resolveExpr(e.Rhs, env)
	if err != nil {
		return nil, nil, err
	}
	e.Lhs, e.Rhs = lhs, rhs

	lhsRaw := lhs.Result()
	rhsRaw := rhs.Result()

	switch e.Op {
	case ast.IS:
		if tv, ok := rhs.(*ast.TypeVal); ok {
			glb := types.Intersect(lhsRaw, tv.Type)
			if r.engine.IsEmpty(glb) {
				return nil, nil, r.syntaxError(errors.MsgIncomparableOperands, e.Span())
			}
			// a type test against a local variable refines its type in
			// the resulting environment
			if lv, ok := lhs.(*ast.LocalVariable); ok {
				var newType types.Type
				if sign {
					newType = glb
				} else {
					newType = types.Intersect(lhsRaw, types.Negation(tv.Type))
				}
				env = env.Put(lv.Name, newType)
			}
		} else {
			if err := r.checkIsSubtype(types.Meta(), rhs); err != nil {
				return nil, nil, err
			}
		}
		e.SrcType = lhsRaw

	case ast.ELEMENTOF:
		listElem, isList := r.engine.AsEffectiveList(rhsRaw)
		setElem, isSet := r.engine.AsEffectiveSet(rhsRaw)
		if isList && !r.engine.IsImplicitCoerciveSubtype(listElem, lhsRaw) {
			return nil, nil, r.syntaxError(errors.MsgIncomparableOperands, e.Span())
		} else if isSet && !r.engine.IsImplicitCoerciveSubtype(setElem, lhsRaw) {
			return nil, nil, r.syntaxError(errors.MsgIncomparableOperands, e.Span())
		} else if !isList && !isSet {
			return nil, nil, r.syntaxError(errors.MsgInvalidSetOrListExpr, rhs.Span())
		}
		e.SrcType = rhsRaw

	case ast.SUBSET, ast.SUBSETEQ, ast.LT, ast.LTEQ, ast.GT, ast.GTEQ:
		if e.Op == ast.SUBSET || e.Op == ast.SUBSETEQ {
			if err := r.checkIsSubtype(types.Set(types.Any()), lhs); err != nil {
				return nil, nil, err
			}
			if err := r.checkIsSubtype(types.Set(types.Any()), rhs); err != nil {
				return nil, nil, err
			}
		} else {
			if err := r.checkIsSubtype(types.Real(), lhs); err != nil {
				return nil, nil, err
			}
			if err := r.checkIsSubtype(types.Real(), rhs); err != nil {
				return nil, nil, err
			}
		}
		if r.engine.IsImplicitCoerciveSubtype(lhsRaw, rhsRaw) {
			e.SrcType = lhsRaw
		} else if r.engine.IsImplicitCoerciveSubtype(rhsRaw, lhsRaw) {
			e.SrcType = rhsRaw
		} else {
			return nil, nil, r.syntaxError(errors.MsgIncomparableOperands, e.Span())
		}

	case ast.NEQ, ast.EQ:
		eqSign := sign
		if e.Op == ast.NEQ {
			// x != null refines exactly as !(x is null)
			eqSign = !sign
		}
		if lv, c := asNullTest(lhs, rhs); lv != nil && c {
			glb := types.Intersect(lhsRaw, types.Null())
			if r.engine.IsEmpty(glb) {
				return nil, nil, r.syntaxError(errors.MsgIncomparableOperands, e.Span())
			}
			var newType types.Type
			if eqSign {
				newType = glb
			} else {
				newType = types.Intersect(lhsRaw, types.Negation(types.Null()))
			}
			e.SrcType = lhsRaw
			env = env.Put(lv.Name, newType)
		} else {
			if r.engine.IsImplicitCoerciveSubtype(lhsRaw, rhsRaw) {
				e.SrcType = lhsRaw
			} else if r.engine.IsImplicitCoerciveSubtype(rhsRaw, lhsRaw) {
				e.SrcType = rhsRaw
			} else {
				return nil, nil, r.syntaxError(errors.MsgIncomparableOperands, e.Span())
			}
		}
	}

	return e, env, nil
}

// asNullTest recognizes the `x == null` shape: a local variable on the
// left and the null constant on the right.
func asNullTest(lhs, rhs ast.Expr) (*ast.LocalVariable, bool) {
	lv, ok := lhs.(*ast.LocalVariable)
	if !ok {
		return nil, false
	}
	c, ok := rhs.(*ast.Constant)
	if !ok {
		return nil, false
	}
	if _, isNull := c.Value.(value.Null); !isNull {
		return nil, false
	}
	return lv, true
}
