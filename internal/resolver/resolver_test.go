package resolver

import (
	"testing"

	"github.com/wyrm-lang/wyrm/internal/ast"
	"github.com/wyrm-lang/wyrm/internal/errors"
	"github.com/wyrm-lang/wyrm/internal/modules"
	"github.com/wyrm-lang/wyrm/internal/position"
	"github.com/wyrm-lang/wyrm/internal/types"
	"github.com/wyrm-lang/wyrm/internal/value"
)

func sp() position.Span {
	return position.Span{Filename: "test.wy"}
}

func attr() ast.ExprAttr {
	return ast.ExprAttr{Pos: sp()}
}

func intLit(n int64) ast.Expr {
	return &ast.Constant{ExprAttr: attr(), Value: value.NewInt(n)}
}

func strLit(s string) ast.Expr {
	return &ast.Constant{ExprAttr: attr(), Value: value.Str{Value: s}}
}

func variable(name string) ast.Expr {
	return &ast.AbstractVariable{ExprAttr: attr(), Name: name}
}

func binop(op ast.BinOpKind, lhs, rhs ast.Expr) *ast.BinOp {
	return &ast.BinOp{ExprAttr: attr(), Op: op, Lhs: lhs, Rhs: rhs}
}

func testResolver(t *testing.T) *Resolver {
	t.Helper()
	p := modules.NewProject()
	m, err := modules.NewModule("test", "0.1.0")
	if err != nil {
		t.Fatalf("failed to create module: %v", err)
	}
	m.DeclareFunction(&modules.Function{
		Name: "f",
		Type: types.Function(types.Int(), types.Void(), types.Int()),
	})
	m.DeclareConstant("limit", value.NewInt(10))
	if err := p.Register(m); err != nil {
		t.Fatalf("failed to register: %v", err)
	}
	return NewResolver(p, "test", "test.wy")
}

func TestNumericTyping(t *testing.T) {
	r := testResolver(t)
	env := NewEnvironment().Put("x", types.Int())

	e, err := r.ResolveExpr(binop(ast.ADD, variable("x"), intLit(1)), env)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if e.Result() != types.Int() {
		t.Errorf("int + int should be int, got %s", e.Result())
	}

	env = env.Put("y", types.Real())
	e, err = r.ResolveExpr(binop(ast.ADD, variable("x"), variable("y")), env)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if e.Result() != types.Real() {
		t.Errorf("int + real should be real, got %s", e.Result())
	}

	env = env.Put("c", types.Char())
	e, err = r.ResolveExpr(binop(ast.MUL, variable("c"), variable("x")), env)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if e.Result() != types.Int() {
		t.Errorf("char * int should promote to int, got %s", e.Result())
	}
}

func TestAddOverloading(t *testing.T) {
	r := testResolver(t)
	env := NewEnvironment().
		Put("s", types.String()).
		Put("xs", types.List(types.Int())).
		Put("ys", types.List(types.Int())).
		Put("a", types.Set(types.Int())).
		Put("b", types.Set(types.Null()))

	e, err := r.ResolveExpr(binop(ast.ADD, variable("s"), strLit("!")), env)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if bop := e.(*ast.BinOp); bop.Op != ast.STRINGAPPEND || bop.Result() != types.String() {
		t.Errorf("string + string should rewrite to STRINGAPPEND of string, got op %v type %s", bop.Op, bop.Result())
	}

	e, err = r.ResolveExpr(binop(ast.ADD, variable("xs"), variable("ys")), env)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if bop := e.(*ast.BinOp); bop.Op != ast.LISTAPPEND || bop.Result() != types.List(types.Int()) {
		t.Errorf("list + list should rewrite to LISTAPPEND, got op %v type %s", bop.Op, bop.Result())
	}

	e, err = r.ResolveExpr(binop(ast.ADD, variable("a"), variable("b")), env)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if bop := e.(*ast.BinOp); bop.Op != ast.UNION || bop.Result() != types.Set(types.Union(types.Int(), types.Null())) {
		t.Errorf("set + set should rewrite to UNION, got op %v type %s", bop.Op, bop.Result())
	}
}

func TestIndexDisambiguation(t *testing.T) {
	r := testResolver(t)
	env := NewEnvironment().
		Put("xs", types.List(types.Int())).
		Put("s", types.String()).
		Put("m", types.Map(types.String(), types.Int()))

	e, err := r.ResolveExpr(&ast.IndexOf{ExprAttr: attr(), Src: variable("xs"), Index: intLit(0)}, env)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if la, ok := e.(*ast.ListAccess); !ok || la.Result() != types.Int() {
		t.Errorf("indexing a list should become a ListAccess of int, got %T", e)
	}

	e, err = r.ResolveExpr(&ast.IndexOf{ExprAttr: attr(), Src: variable("s"), Index: intLit(0)}, env)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if sa, ok := e.(*ast.StringAccess); !ok || sa.Result() != types.Char() {
		t.Errorf("indexing a string should become a StringAccess of char, got %T", e)
	}

	e, err = r.ResolveExpr(&ast.IndexOf{ExprAttr: attr(), Src: variable("m"), Index: strLit("k")}, env)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if ma, ok := e.(*ast.MapAccess); !ok || ma.Result() != types.Int() {
		t.Errorf("indexing a map should become a MapAccess of the value type, got %T", e)
	}

	if _, err := r.ResolveExpr(&ast.IndexOf{ExprAttr: attr(), Src: intLit(1), Index: intLit(0)}, env); err == nil {
		t.Error("indexing an int should fail")
	}
}

func TestLengthDisambiguation(t *testing.T) {
	r := testResolver(t)
	env := NewEnvironment().
		Put("xs", types.List(types.Int())).
		Put("s", types.String()).
		Put("a", types.Set(types.Int())).
		Put("m", types.Map(types.String(), types.Int()))

	cases := []struct {
		src  string
		want string
	}{
		{"s", "*ast.StringLength"},
		{"xs", "*ast.ListLength"},
		{"a", "*ast.SetLength"},
		{"m", "*ast.MapLength"},
	}
	for _, c := range cases {
		e, err := r.ResolveExpr(&ast.LengthOf{ExprAttr: attr(), Src: variable(c.src)}, env)
		if err != nil {
			t.Fatalf("resolve of |%s| failed: %v", c.src, err)
		}
		var got string
		switch e.(type) {
		case *ast.StringLength:
			got = "*ast.StringLength"
		case *ast.ListLength:
			got = "*ast.ListLength"
		case *ast.SetLength:
			got = "*ast.SetLength"
		case *ast.MapLength:
			got = "*ast.MapLength"
		}
		if got != c.want {
			t.Errorf("|%s| resolved to %T, want %s", c.src, e, c.want)
		}
		if e.Result() != types.Int() {
			t.Errorf("|%s| should have type int", c.src)
		}
	}
}

func TestTypeTestRefinement(t *testing.T) {
	r := testResolver(t)
	env := NewEnvironment().Put("x", types.Union(types.Int(), types.Null()))
	cond := binop(ast.IS, variable("x"), &ast.TypeVal{ExprAttr: attr(), Type: types.Int()})

	_, trueEnv, err := r.ResolveCondition(cond, true, env)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got, _ := trueEnv.Get("x"); got != types.Int() {
		t.Errorf("under `x is int` x should refine to int, got %s", got)
	}

	_, falseEnv, err := r.ResolveCondition(cond, false, env)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got, _ := falseEnv.Get("x"); got != types.Null() {
		t.Errorf("under `!(x is int)` x should refine to null, got %s", got)
	}
}

func TestNullTestRefinement(t *testing.T) {
	r := testResolver(t)
	env := NewEnvironment().Put("x", types.Union(types.Int(), types.Null()))
	neq := binop(ast.NEQ, variable("x"), &ast.Constant{ExprAttr: attr(), Value: value.Null{}})

	_, trueEnv, err := r.ResolveCondition(neq, true, env)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got, _ := trueEnv.Get("x"); got != types.Int() {
		t.Errorf("under `x != null` x should refine to int, got %s", got)
	}

	eq := binop(ast.EQ, variable("x"), &ast.Constant{ExprAttr: attr(), Value: value.Null{}})
	_, trueEnv, err = r.ResolveCondition(eq, true, env)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got, _ := trueEnv.Get("x"); got != types.Null() {
		t.Errorf("under `x == null` x should refine to null, got %s", got)
	}
}

func TestShortCircuitRefinement(t *testing.T) {
	r := testResolver(t)
	env := NewEnvironment().Put("x", types.Union(types.Int(), types.Null()))

	// the refinement of the lhs must flow into the rhs, or `x > 0`
	// cannot type-check
	cond := binop(ast.AND,
		binop(ast.IS, variable("x"), &ast.TypeVal{ExprAttr: attr(), Type: types.Int()}),
		binop(ast.GT, variable("x"), intLit(0)))
	_, trueEnv, err := r.ResolveCondition(cond, true, env)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got, _ := trueEnv.Get("x"); got != types.Int() {
		t.Errorf("under the conjunction x should be int, got %s", got)
	}
}

func TestDisjunctionJoinsRefinements(t *testing.T) {
	r := testResolver(t)
	env := NewEnvironment().Put("x", types.Union(types.Int(), types.Null(), types.String()))

	cond := binop(ast.OR,
		binop(ast.IS, variable("x"), &ast.TypeVal{ExprAttr: attr(), Type: types.Int()}),
		binop(ast.IS, variable("x"), &ast.TypeVal{ExprAttr: attr(), Type: types.Null()}))
	_, trueEnv, err := r.ResolveCondition(cond, true, env)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got, _ := trueEnv.Get("x"); got != types.Union(types.Int(), types.Null()) {
		t.Errorf("under the disjunction x should be int|null, got %s", got)
	}
}

func TestIncomparableTypeTest(t *testing.T) {
	r := testResolver(t)
	env := NewEnvironment().Put("x", types.Int())
	cond := binop(ast.IS, variable("x"), &ast.TypeVal{ExprAttr: attr(), Type: types.String()})
	if _, _, err := r.ResolveCondition(cond, true, env); err == nil {
		t.Error("`x is string` with x:int should be rejected")
	}
}

func TestUnknownVariable(t *testing.T) {
	r := testResolver(t)
	if _, err := r.ResolveExpr(variable("nope"), NewEnvironment()); err == nil {
		t.Error("an unknown name should fail resolution")
	}
	var se *errors.SyntaxError
	_, err := r.ResolveExpr(variable("nope"), NewEnvironment())
	if !asSyntaxError(err, &se) {
		t.Errorf("unknown names should surface as SyntaxError, got %T", err)
	}
}

func asSyntaxError(err error, out **errors.SyntaxError) bool {
	se, ok := err.(*errors.SyntaxError)
	if ok {
		*out = se
	}
	return ok
}

func TestConstantAndModuleAccess(t *testing.T) {
	r := testResolver(t)
	e, err := r.ResolveExpr(variable("limit"), NewEnvironment())
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if ca, ok := e.(*ast.ConstantAccess); !ok || ca.Result() != types.Int() {
		t.Errorf("a module constant should resolve to a ConstantAccess, got %T", e)
	}
	e, err = r.ResolveExpr(variable("test"), NewEnvironment())
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if _, ok := e.(*ast.ModuleAccess); !ok {
		t.Errorf("a module name should resolve to a ModuleAccess, got %T", e)
	}
}

func TestInvokeDisambiguation(t *testing.T) {
	r := testResolver(t)

	// a bare name resolves to a direct call against the project
	e, err := r.ResolveExpr(&ast.AbstractInvoke{
		ExprAttr: attr(), Name: "f", Args: []ast.Expr{intLit(1)},
	}, NewEnvironment())
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if fc, ok := e.(*ast.FunctionCall); !ok || fc.Result() != types.Int() {
		t.Errorf("a declared function should resolve to a direct call, got %T", e)
	}

	// a local variable of function type shadows the declaration
	env := NewEnvironment().Put("f", types.Function(types.Bool(), types.Void(), types.Int()))
	e, err = r.ResolveExpr(&ast.AbstractInvoke{
		ExprAttr: attr(), Name: "f", Args: []ast.Expr{intLit(1)},
	}, env)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if ic, ok := e.(*ast.IndirectFunctionCall); !ok || ic.Result() != types.Bool() {
		t.Errorf("a function-typed variable should resolve to an indirect call, got %T", e)
	}

	// a record receiver resolves through a field access
	rec := types.Record(false, map[string]types.Type{
		"handler": types.Function(types.Int(), types.Void(), types.Int()),
	})
	env = NewEnvironment().Put("r", rec)
	e, err = r.ResolveExpr(&ast.AbstractInvoke{
		ExprAttr: attr(), Receiver: variable("r"), Name: "handler", Args: []ast.Expr{intLit(1)},
	}, env)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	ic, ok := e.(*ast.IndirectFunctionCall)
	if !ok {
		t.Fatalf("a record-qualified call should become an indirect call, got %T", e)
	}
	if _, ok := ic.Src.(*ast.FieldAccess); !ok {
		t.Errorf("the indirect call should go through a field access, got %T", ic.Src)
	}

	// arity mismatches are rejected
	if _, err := r.ResolveExpr(&ast.AbstractInvoke{
		ExprAttr: attr(), Name: "f", Args: []ast.Expr{intLit(1), intLit(2)},
	}, NewEnvironment()); err == nil {
		t.Error("wrong arity should fail resolution")
	}
}

func TestFlowThroughDeclaration(t *testing.T) {
	r := testResolver(t)
	// function g(int|null x) => int:
	//     if x is null:
	//         return 0
	//     return x
	decl := &ast.FunctionDecl{
		Name: "g",
		Parameters: []ast.Param{
			{Name: "x", Type: types.Union(types.Int(), types.Null()), Pos: sp()},
		},
		Ret:    types.Int(),
		Throws: types.Void(),
		Body: []ast.Stmt{
			&ast.IfElse{
				StmtAttr: ast.StmtAttr{Pos: sp()},
				Cond:     binop(ast.IS, variable("x"), &ast.TypeVal{ExprAttr: attr(), Type: types.Null()}),
				TrueBranch: []ast.Stmt{
					&ast.Return{StmtAttr: ast.StmtAttr{Pos: sp()}, Operand: intLit(0)},
				},
			},
			&ast.Return{StmtAttr: ast.StmtAttr{Pos: sp()}, Operand: variable("x")},
		},
		Pos: sp(),
	}
	if err := r.ResolveDecl(decl); err != nil {
		t.Fatalf("flow typing should accept the declaration: %v", err)
	}
	// the trailing return must see x at int, not int|null
	ret := decl.Body[1].(*ast.Return)
	if lv, ok := ret.Operand.(*ast.LocalVariable); !ok || lv.Type != types.Int() {
		t.Errorf("after the null check x should be int, got %v", ret.Operand)
	}
}

func TestUnreachableCodeReported(t *testing.T) {
	r := testResolver(t)
	decl := &ast.FunctionDecl{
		Name:   "g",
		Ret:    types.Int(),
		Throws: types.Void(),
		Body: []ast.Stmt{
			&ast.Return{StmtAttr: ast.StmtAttr{Pos: sp()}, Operand: intLit(0)},
			&ast.Skip{StmtAttr: ast.StmtAttr{Pos: sp()}},
		},
		Pos: sp(),
	}
	if err := r.ResolveDecl(decl); err == nil {
		t.Error("statements after a return should be reported as unreachable")
	}
}

func TestVarDeclSubtypeCheck(t *testing.T) {
	r := testResolver(t)
	decl := &ast.FunctionDecl{
		Name:   "g",
		Ret:    types.Void(),
		Throws: types.Void(),
		Body: []ast.Stmt{
			&ast.VarDecl{
				StmtAttr: ast.StmtAttr{Pos: sp()},
				Pattern:  &ast.LeafPattern{PatternAttr: ast.PatternAttr{Pos: sp()}, Var: "v"},
				Type:     types.Int(),
				Init:     strLit("nope"),
			},
		},
		Pos: sp(),
	}
	if err := r.ResolveDecl(decl); err == nil {
		t.Error("initialising an int variable with a string should fail")
	}
}
