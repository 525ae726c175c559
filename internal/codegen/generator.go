// Package codegen lowers resolved AST declarations into register-based
// IR blocks. Statements become labelled goto graphs, conditions are
// lowered with short-circuit branches, lambdas are lifted to anonymous
// top-level functions, and declaration patterns are destructured into
// freshly allocated registers.
package codegen

import (
	goerrors "errors"
	"fmt"

	"github.com/wyrm-lang/wyrm/internal/ast"
	"github.com/wyrm-lang/wyrm/internal/errors"
	"github.com/wyrm-lang/wyrm/internal/lir"
	"github.com/wyrm-lang/wyrm/internal/modules"
	"github.com/wyrm-lang/wyrm/internal/position"
	"github.com/wyrm-lang/wyrm/internal/types"
	"github.com/wyrm-lang/wyrm/internal/value"
)

// Generator lowers one module's declarations into IR.
type Generator struct {
	project  *modules.Project
	engine   *types.Engine
	module   string
	filename string

	// lambdas lifted out of expressions; appended to the module's
	// declarations once generation completes
	lambdas []*lir.FunctionDecl

	// scopes tracks the exit labels of enclosing loops for break
	scopes []breakScope
}

type breakScope struct {
	label string
}

// NewGenerator creates a generator for the named module of a project.
func NewGenerator(project *modules.Project, module, filename string) *Generator {
	return &Generator{
		project:  project,
		engine:   types.NewEngine(project),
		module:   module,
		filename: filename,
	}
}

func (g *Generator) syntaxError(msg string, span position.Span) error {
	return errors.NewSyntaxError(msg, g.filename, span)
}

func (g *Generator) internalFailure(msg string, span position.Span) error {
	return errors.NewInternalFailure(msg, g.filename, span)
}

func (g *Generator) rewrap(err error, span position.Span) error {
	var re *errors.ResolveError
	if goerrors.As(err, &re) {
		return g.syntaxError(re.Error(), span)
	}
	return err
}

// Generate lowers a resolved module, including any lambda functions
// synthesized along the way.
func (g *Generator) Generate(m *ast.Module) (*lir.Module, error) {
	out := &lir.Module{Name: m.Name, Filename: m.Filename}
	for _, d := range m.Declarations {
		decl, err := g.GenerateDecl(d)
		if err != nil {
			return nil, g.rewrap(err, d.Span())
		}
		out.Declarations = append(out.Declarations, decl)
	}
	out.Declarations = append(out.Declarations, declsOf(g.lambdas)...)
	g.lambdas = nil
	return out, nil
}

func declsOf(fns []*lir.FunctionDecl) []lir.Decl {
	out := make([]lir.Decl, len(fns))
	for i, f := range fns {
		out[i] = f
	}
	return out
}

// GenerateDecl lowers a single declaration.
func (g *Generator) GenerateDecl(d ast.Decl) (lir.Decl, error) {
	switch d := d.(type) {
	case *ast.ConstantDecl:
		return &lir.ConstantDecl{Name: d.Name, Value: d.Value}, nil
	case *ast.TypeDecl:
		return g.generateTypeDecl(d)
	case *ast.FunctionDecl:
		return g.generateFunctionDecl(d)
	default:
		return nil, g.internalFailure("unknown declaration", d.Span())
	}
}

// generateTypeDecl lowers a type declaration. The invariant block
// receives the value under test in register 0, destructures the
// declared pattern from it and evaluates the invariant expression.
func (g *Generator) generateTypeDecl(d *ast.TypeDecl) (lir.Decl, error) {
	out := &lir.TypeDecl{Name: d.Name, Type: d.Type}
	if d.Invariant != nil {
		block := lir.NewCodeBlock(1)
		env := NewEnvironment()
		root := env.Allocate(d.Type)
		if err := g.addDeclaredVariables(root, d.Pattern, d.Type, env, block); err != nil {
			return nil, err
		}
		reg, err := g.generateExpr(d.Invariant, env, block)
		if err != nil {
			return nil, err
		}
		trueReg := env.Allocate(types.Bool())
		block.Append(lir.Const{Target: trueReg, Value: value.Bool{Value: true}}, d.Invariant.Span())
		block.Append(lir.Assert{
			Type: types.Bool(), Lhs: reg, Rhs: trueReg, Op: lir.CmpEq,
			Msg: "type constraint not satisfied",
		}, d.Invariant.Span())
		out.Invariant = block
	}
	return out, nil
}

func (g *Generator) generateFunctionDecl(d *ast.FunctionDecl) (*lir.FunctionDecl, error) {
	ftype := d.FnType()
	env := NewEnvironment()
	for i, p := range d.Parameters {
		env.AllocateVar(ftype.Params()[i], p.Name)
	}

	out := &lir.FunctionDecl{Name: d.Name, Type: ftype}

	if d.Requires != nil {
		pre, err := g.generateConstraint(d, d.Requires, false, "precondition not satisfied")
		if err != nil {
			return nil, err
		}
		out.Precondition = pre
	}
	if d.Ensures != nil {
		post, err := g.generateConstraint(d, d.Ensures, true, "postcondition not satisfied")
		if err != nil {
			return nil, err
		}
		out.Postcondition = post
	}

	block := lir.NewCodeBlock(len(d.Parameters))
	for _, s := range d.Body {
		if err := g.generateStmt(s, env, block, d); err != nil {
			return nil, err
		}
	}
	// Guarantee every function ends in a return. For functions that
	// must produce a value this either disappears as dead code or
	// remains to flag a missing return.
	block.Append(lir.BareReturn(), d.Pos)
	out.Body = block
	return out, nil
}

// generateConstraint lowers a pre- or postcondition into a standalone
// check block. Precondition blocks take the parameters in registers
// 0..n-1; postcondition blocks take the return value in register 0
// followed by the parameters.
func (g *Generator) generateConstraint(d *ast.FunctionDecl, cond ast.Expr, withReturn bool, msg string) (*lir.CodeBlock, error) {
	env := NewEnvironment()
	numInputs := len(d.Parameters)
	if withReturn {
		numInputs++
		env.AllocateVar(d.Ret, "$")
	}
	for _, p := range d.Parameters {
		env.AllocateVar(p.Type, p.Name)
	}
	block := lir.NewCodeBlock(numInputs)
	reg, err := g.generateExpr(cond, env, block)
	if err != nil {
		return nil, err
	}
	trueReg := env.Allocate(types.Bool())
	block.Append(lir.Const{Target: trueReg, Value: value.Bool{Value: true}}, cond.Span())
	block.Append(lir.Assert{
		Type: types.Bool(), Lhs: reg, Rhs: trueReg, Op: lir.CmpEq, Msg: msg,
	}, cond.Span())
	return block, nil
}

func (g *Generator) findEnclosingBreak() (breakScope, bool) {
	if len(g.scopes) == 0 {
		return breakScope{}, false
	}
	return g.scopes[len(g.scopes)-1], true
}

func (g *Generator) pushScope(s breakScope) {
	g.scopes = append(g.scopes, s)
}

func (g *Generator) popScope() {
	g.scopes = g.scopes[:len(g.scopes)-1]
}

// lambdaName forms the name of a lifted lambda from its source offset,
// which is unique within the file.
func (g *Generator) lambdaName(span position.Span) string {
	return fmt.Sprintf("$lambda%d", span.Start)
}
