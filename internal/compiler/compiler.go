// Package compiler wires the front-end stages together: flow-sensitive
// resolution, IR generation, and runtime assertion inlining. Each
// stage is usable on its own; this package exists for callers that
// want the whole pipeline.
package compiler

import (
	"github.com/wyrm-lang/wyrm/internal/ast"
	"github.com/wyrm-lang/wyrm/internal/codegen"
	"github.com/wyrm-lang/wyrm/internal/lir"
	"github.com/wyrm-lang/wyrm/internal/modules"
	"github.com/wyrm-lang/wyrm/internal/resolver"
	"github.com/wyrm-lang/wyrm/internal/transforms"
)

// Compiler runs the front-end pipeline for modules of one project.
type Compiler struct {
	project *modules.Project
	// RuntimeChecks controls whether the assertion inlining pass runs.
	RuntimeChecks bool
}

// New creates a compiler over the given project.
func New(project *modules.Project) *Compiler {
	return &Compiler{project: project, RuntimeChecks: true}
}

// Compile resolves a parsed module, lowers it to IR, and splices in
// runtime checks. The input AST is mutated by resolution. The module's
// declarations become visible to the project before resolution starts,
// so that calls and constant accesses within the module resolve.
func (c *Compiler) Compile(m *ast.Module) (*lir.Module, error) {
	mod, err := c.declare(m)
	if err != nil {
		return nil, err
	}

	r := resolver.NewResolver(c.project, m.Name, m.Filename)
	if err := r.ResolveModule(m); err != nil {
		return nil, err
	}

	g := codegen.NewGenerator(c.project, m.Name, m.Filename)
	out, err := g.Generate(m)
	if err != nil {
		return nil, err
	}

	// attach the generated contract blocks and lifted lambdas so the
	// assertion pass and later compilations see them
	c.attach(mod, out)

	ra := transforms.NewRuntimeAssertions(c.project, m.Filename)
	ra.SetEnable(c.RuntimeChecks)
	return ra.Transform(out)
}

// declare registers the module's declared signatures, constants and
// named types with the project ahead of resolution.
func (c *Compiler) declare(m *ast.Module) (*modules.Module, error) {
	mod, err := modules.NewModule(m.Name, "0.0.0")
	if err != nil {
		return nil, err
	}
	for _, d := range m.Declarations {
		switch d := d.(type) {
		case *ast.ConstantDecl:
			mod.DeclareConstant(d.Name, d.Value)
		case *ast.TypeDecl:
			mod.DeclareType(&modules.NamedType{Name: d.Name, Type: d.Type})
		case *ast.FunctionDecl:
			mod.DeclareFunction(&modules.Function{Name: d.Name, Type: d.FnType()})
		}
	}
	if err := c.project.Register(mod); err != nil {
		return nil, err
	}
	return mod, nil
}

// attach copies the compiled artifacts back onto the registered
// module: invariant blocks for named types, pre- and postcondition
// blocks for functions, and declarations for the lambdas the generator
// synthesized.
func (c *Compiler) attach(mod *modules.Module, out *lir.Module) {
	for _, d := range out.Declarations {
		switch d := d.(type) {
		case *lir.TypeDecl:
			if nt, ok := mod.Types[d.Name]; ok {
				nt.Invariant = d.Invariant
			}
		case *lir.FunctionDecl:
			attached := false
			for _, f := range mod.Functions[d.Name] {
				if f.Type == d.Type {
					f.Precondition = d.Precondition
					f.Postcondition = d.Postcondition
					attached = true
					break
				}
			}
			if !attached {
				mod.DeclareFunction(&modules.Function{
					Name: d.Name, Type: d.Type,
					Precondition:  d.Precondition,
					Postcondition: d.Postcondition,
				})
			}
		}
	}
}
