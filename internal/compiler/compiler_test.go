package compiler

import (
	"testing"

	"github.com/wyrm-lang/wyrm/internal/ast"
	"github.com/wyrm-lang/wyrm/internal/lir"
	"github.com/wyrm-lang/wyrm/internal/modules"
	"github.com/wyrm-lang/wyrm/internal/position"
	"github.com/wyrm-lang/wyrm/internal/types"
	"github.com/wyrm-lang/wyrm/internal/value"
)

func sp() position.Span {
	return position.Span{Filename: "main.wy"}
}

func TestCompileEndToEnd(t *testing.T) {
	project := modules.NewProject()
	c := New(project)

	// function clamp(int|null x) => int:
	//     if x is null:
	//         return 0
	//     return x / 2
	m := &ast.Module{
		Name:     "main",
		Filename: "main.wy",
		Declarations: []ast.Decl{
			&ast.FunctionDecl{
				Name: "clamp",
				Parameters: []ast.Param{
					{Name: "x", Type: types.Union(types.Int(), types.Null()), Pos: sp()},
				},
				Ret:    types.Int(),
				Throws: types.Void(),
				Body: []ast.Stmt{
					&ast.IfElse{
						StmtAttr: ast.StmtAttr{Pos: sp()},
						Cond: &ast.BinOp{
							ExprAttr: ast.ExprAttr{Pos: sp()},
							Op:       ast.IS,
							Lhs:      &ast.AbstractVariable{ExprAttr: ast.ExprAttr{Pos: sp()}, Name: "x"},
							Rhs:      &ast.TypeVal{ExprAttr: ast.ExprAttr{Pos: sp()}, Type: types.Null()},
						},
						TrueBranch: []ast.Stmt{
							&ast.Return{
								StmtAttr: ast.StmtAttr{Pos: sp()},
								Operand:  &ast.Constant{ExprAttr: ast.ExprAttr{Pos: sp()}, Value: value.NewInt(0)},
							},
						},
					},
					&ast.Return{
						StmtAttr: ast.StmtAttr{Pos: sp()},
						Operand: &ast.BinOp{
							ExprAttr: ast.ExprAttr{Pos: sp()},
							Op:       ast.DIV,
							Lhs:      &ast.AbstractVariable{ExprAttr: ast.ExprAttr{Pos: sp()}, Name: "x"},
							Rhs:      &ast.Constant{ExprAttr: ast.ExprAttr{Pos: sp()}, Value: value.NewInt(2)},
						},
					},
				},
				Pos: sp(),
			},
		},
	}

	out, err := c.Compile(m)
	if err != nil {
		t.Fatalf("compilation failed: %v", err)
	}

	fn := out.Function("clamp")
	if fn == nil {
		t.Fatal("compiled module should contain clamp")
	}
	if err := fn.Body.Validate(); err != nil {
		t.Fatalf("compiled body is not well-formed: %v\n%s", err, fn.Body)
	}

	// the type test must lower onto the variable's own register
	var foundIfIs, foundDivCheck bool
	for _, e := range fn.Body.Entries() {
		switch c := e.Code.(type) {
		case lir.IfIs:
			if c.Operand == 0 && c.Test == types.Null() {
				foundIfIs = true
			}
		case lir.Assert:
			if c.Msg == "division by zero" {
				foundDivCheck = true
			}
		}
	}
	if !foundIfIs {
		t.Error("the null test should lower to an ifis on the parameter register")
	}
	if !foundDivCheck {
		t.Error("the division should be guarded by the assertion pass")
	}

	// compilation publishes the module for later lookups
	if !project.IsModule("main") {
		t.Error("compiled modules should be registered with the project")
	}
}

func TestPreconditionFlowsToCallSites(t *testing.T) {
	c := New(modules.NewProject())

	gteq := func(lhs, rhs ast.Expr) ast.Expr {
		return &ast.BinOp{ExprAttr: ast.ExprAttr{Pos: sp()}, Op: ast.GTEQ, Lhs: lhs, Rhs: rhs}
	}
	xVar := func() ast.Expr {
		return &ast.AbstractVariable{ExprAttr: ast.ExprAttr{Pos: sp()}, Name: "x"}
	}

	// function half(int x) requires x >= 0 => int:
	//     return x
	// function use(int x) => int:
	//     return half(x)
	m := &ast.Module{
		Name:     "main",
		Filename: "main.wy",
		Declarations: []ast.Decl{
			&ast.FunctionDecl{
				Name:       "half",
				Parameters: []ast.Param{{Name: "x", Type: types.Int(), Pos: sp()}},
				Ret:        types.Int(),
				Throws:     types.Void(),
				Requires:   gteq(xVar(), &ast.Constant{ExprAttr: ast.ExprAttr{Pos: sp()}, Value: value.NewInt(0)}),
				Body: []ast.Stmt{
					&ast.Return{StmtAttr: ast.StmtAttr{Pos: sp()}, Operand: xVar()},
				},
				Pos: sp(),
			},
			&ast.FunctionDecl{
				Name:       "use",
				Parameters: []ast.Param{{Name: "x", Type: types.Int(), Pos: sp()}},
				Ret:        types.Int(),
				Throws:     types.Void(),
				Body: []ast.Stmt{
					&ast.Return{
						StmtAttr: ast.StmtAttr{Pos: sp()},
						Operand: &ast.AbstractInvoke{
							ExprAttr: ast.ExprAttr{Pos: sp()},
							Name:     "half",
							Args:     []ast.Expr{xVar()},
						},
					},
				},
				Pos: sp(),
			},
		},
	}

	out, err := c.Compile(m)
	if err != nil {
		t.Fatalf("compilation failed: %v", err)
	}

	use := out.Function("use")
	if use == nil {
		t.Fatal("compiled module should contain use")
	}
	var sawCheck bool
	for i, e := range use.Body.Entries() {
		if _, ok := e.Code.(lir.Invoke); ok {
			// the callee's precondition must have been spliced in
			// ahead of the call
			if i == 0 {
				t.Fatal("the invoke should be preceded by its precondition")
			}
			for j := 0; j < i; j++ {
				if _, ok := use.Body.Get(j).Code.(lir.Assert); ok {
					sawCheck = true
				}
			}
		}
	}
	if !sawCheck {
		t.Error("calling a function with a precondition should inline its check")
	}
	if err := use.Body.Validate(); err != nil {
		t.Errorf("transformed body is not well-formed: %v", err)
	}
}
