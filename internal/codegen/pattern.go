package codegen

import (
	"github.com/wyrm-lang/wyrm/internal/ast"
	"github.com/wyrm-lang/wyrm/internal/errors"
	"github.com/wyrm-lang/wyrm/internal/lir"
	"github.com/wyrm-lang/wyrm/internal/types"
)

// addDeclaredVariables destructures a declaration pattern from the
// root register: record fields and tuple elements load into freshly
// allocated registers, rationals split into numerator and denominator,
// and leaves bind their name to the register holding the matched
// component.
func (g *Generator) addDeclaredVariables(root int, p ast.Pattern, t types.Type, env *Environment, block *lir.CodeBlock) error {
	switch p := p.(type) {
	case *ast.RecordPattern:
		rec, ok := g.engine.AsEffectiveRecord(t)
		if !ok {
			return g.syntaxError(errors.MsgRecordTypeRequired, p.Span())
		}
		for _, f := range p.Fields {
			fieldType, ok := rec.Field(f.Name)
			if !ok {
				return g.syntaxError(errors.MsgRecordMissingField, p.Span())
			}
			target := env.Allocate(fieldType)
			block.Append(lir.FieldLoad{Type: rec, Target: target, Operand: root, Field: f.Name}, p.Span())
			if err := g.addDeclaredVariables(target, f.Pat, fieldType, env, block); err != nil {
				return err
			}
		}
		return nil

	case *ast.TuplePattern:
		elems, ok := g.engine.AsEffectiveTuple(t)
		if !ok || len(elems) != len(p.Elements) {
			return g.syntaxError(errors.MsgIncomparableOperands, p.Span())
		}
		tupleType := types.Tuple(elems...)
		for i, sub := range p.Elements {
			target := env.Allocate(elems[i])
			block.Append(lir.TupleLoad{Type: tupleType, Target: target, Operand: root, Index: i}, p.Span())
			if err := g.addDeclaredVariables(target, sub, elems[i], env, block); err != nil {
				return err
			}
		}
		return nil

	case *ast.RationalPattern:
		num := env.Allocate(types.Int())
		den := env.Allocate(types.Int())
		block.Append(lir.UnArithOp{Type: types.Real(), Target: num, Operand: root, Kind: lir.ArithNumerator}, p.Span())
		block.Append(lir.UnArithOp{Type: types.Real(), Target: den, Operand: root, Kind: lir.ArithDenominator}, p.Span())
		if err := g.addDeclaredVariables(num, p.Numerator, types.Int(), env, block); err != nil {
			return err
		}
		return g.addDeclaredVariables(den, p.Denominator, types.Int(), env, block)

	case *ast.LeafPattern:
		if p.Var != "" {
			env.Bind(root, p.Var)
		}
		return nil

	default:
		return g.internalFailure("unknown pattern", p.Span())
	}
}
