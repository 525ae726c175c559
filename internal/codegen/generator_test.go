package codegen

import (
	"reflect"
	"testing"

	"github.com/wyrm-lang/wyrm/internal/ast"
	"github.com/wyrm-lang/wyrm/internal/lir"
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

func stmtAttr() ast.StmtAttr {
	return ast.StmtAttr{Pos: sp()}
}

func intLit(n int64) ast.Expr {
	return &ast.Constant{ExprAttr: attr(), Value: value.NewInt(n)}
}

func local(name string, t types.Type) *ast.LocalVariable {
	return &ast.LocalVariable{ExprAttr: attr(), Name: name, Type: t}
}

func typedBinOp(op ast.BinOpKind, lhs, rhs ast.Expr, src types.Type) *ast.BinOp {
	return &ast.BinOp{ExprAttr: attr(), Op: op, Lhs: lhs, Rhs: rhs, SrcType: src}
}

func testGenerator(t *testing.T) *Generator {
	t.Helper()
	p := modules.NewProject()
	m, err := modules.NewModule("test", "0.1.0")
	if err != nil {
		t.Fatalf("failed to create module: %v", err)
	}
	if err := p.Register(m); err != nil {
		t.Fatalf("failed to register: %v", err)
	}
	return NewGenerator(p, "test", "test.wy")
}

func fnDecl(name string, params []ast.Param, ret types.Type, body ...ast.Stmt) *ast.FunctionDecl {
	return &ast.FunctionDecl{
		Name: name, Parameters: params, Ret: ret, Throws: types.Void(),
		Body: body, Pos: sp(),
	}
}

func generateBody(t *testing.T, d *ast.FunctionDecl) *lir.CodeBlock {
	t.Helper()
	g := testGenerator(t)
	out, err := g.generateFunctionDecl(d)
	if err != nil {
		t.Fatalf("generation failed: %v", err)
	}
	if err := out.Body.Validate(); err != nil {
		t.Fatalf("generated body is not well-formed: %v\n%s", err, out.Body)
	}
	return out.Body
}

func codes(b *lir.CodeBlock) []lir.Instr {
	out := make([]lir.Instr, b.Size())
	for i := 0; i < b.Size(); i++ {
		out[i] = b.Get(i).Code
	}
	return out
}

// int v = x + 1
func TestVariableDeclarationLowering(t *testing.T) {
	d := fnDecl("f",
		[]ast.Param{{Name: "x", Type: types.Int(), Pos: sp()}},
		types.Void(),
		&ast.VarDecl{
			StmtAttr: stmtAttr(),
			Pattern:  &ast.LeafPattern{PatternAttr: ast.PatternAttr{Pos: sp()}, Var: "v"},
			Type:     types.Int(),
			Init:     typedBinOp(ast.ADD, local("x", types.Int()), intLit(1), types.Int()),
		},
	)
	got := codes(generateBody(t, d))
	want := []lir.Instr{
		lir.Assign{Type: types.Int(), Target: 2, Operand: 0},
		lir.Const{Target: 3, Value: value.NewInt(1)},
		lir.BinArithOp{BinType: lir.BinType{Type: types.Int(), Target: 4, Lhs: 2, Rhs: 3}, Kind: lir.ArithAdd},
		lir.Assign{Type: types.Int(), Target: 1, Operand: 4},
		lir.BareReturn(),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("unexpected lowering:\ngot  %v\nwant %v", got, want)
	}
}

// xs[i+1] = 1
func TestIndexAssignmentLowering(t *testing.T) {
	listInt := types.List(types.Int())
	d := fnDecl("f",
		[]ast.Param{
			{Name: "i", Type: types.Int(), Pos: sp()},
			{Name: "xs", Type: listInt, Pos: sp()},
		},
		types.Void(),
		&ast.Assign{
			StmtAttr: stmtAttr(),
			Lhs: &ast.ListAccess{
				ExprAttr: attr(),
				Src:      local("xs", listInt),
				Index:    typedBinOp(ast.ADD, local("i", types.Int()), intLit(1), types.Int()),
				SrcType:  listInt,
			},
			Rhs: intLit(1),
		},
	)
	got := codes(generateBody(t, d))
	want := []lir.Instr{
		lir.Const{Target: 2, Value: value.NewInt(1)},
		lir.Assign{Type: types.Int(), Target: 3, Operand: 0},
		lir.Const{Target: 4, Value: value.NewInt(1)},
		lir.BinArithOp{BinType: lir.BinType{Type: types.Int(), Target: 5, Lhs: 3, Rhs: 4}, Kind: lir.ArithAdd},
		lir.Update{Type: listInt, Target: 1, Operand: 2, Operands: []int{5}, AfterType: listInt},
		lir.BareReturn(),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("unexpected lowering:\ngot  %v\nwant %v", got, want)
	}
}

// if x < y || x == y: x = y else: x = -y
func TestIfElseShortCircuitLowering(t *testing.T) {
	x, y := local("x", types.Int()), local("y", types.Int())
	d := fnDecl("f",
		[]ast.Param{
			{Name: "x", Type: types.Int(), Pos: sp()},
			{Name: "y", Type: types.Int(), Pos: sp()},
		},
		types.Void(),
		&ast.IfElse{
			StmtAttr: stmtAttr(),
			Cond: typedBinOp(ast.OR,
				typedBinOp(ast.LT, x, y, types.Int()),
				typedBinOp(ast.EQ, x, y, types.Int()),
				types.Bool()),
			TrueBranch: []ast.Stmt{
				&ast.Assign{StmtAttr: stmtAttr(), Lhs: local("x", types.Int()), Rhs: local("y", types.Int())},
			},
			FalseBranch: []ast.Stmt{
				&ast.Assign{
					StmtAttr: stmtAttr(),
					Lhs:      local("x", types.Int()),
					Rhs:      &ast.UnOp{ExprAttr: attr(), Op: ast.NEG, Operand: local("y", types.Int()), Type: types.Int()},
				},
			},
		},
	)
	got := codes(generateBody(t, d))

	var ifs []lir.If
	var negs, labels, gotos int
	for _, c := range got {
		switch c := c.(type) {
		case lir.If:
			ifs = append(ifs, c)
		case lir.UnArithOp:
			if c.Kind == lir.ArithNeg {
				negs++
			}
		case lir.Label:
			labels++
		case lir.Goto:
			gotos++
		}
	}
	if len(ifs) != 2 {
		t.Fatalf("short-circuit should produce exactly 2 conditional branches, got %d", len(ifs))
	}
	// !(a || b) = !a && !b; the && lowering inverts its left operand
	// once more, so the first branch tests x < y and the second x != y
	if ifs[0].Op != lir.CmpLt || ifs[1].Op != lir.CmpNeq {
		t.Errorf("unexpected comparators %v, %v", ifs[0].Op, ifs[1].Op)
	}
	if negs != 1 {
		t.Errorf("the else branch should negate once, got %d", negs)
	}
	if labels < 3 || gotos < 1 {
		t.Errorf("expected the two-branch label structure, got %d labels, %d gotos", labels, gotos)
	}
}

// while x < 10: x = x + 1
func TestWhileLowering(t *testing.T) {
	d := fnDecl("f",
		[]ast.Param{{Name: "x", Type: types.Int(), Pos: sp()}},
		types.Void(),
		&ast.While{
			StmtAttr: stmtAttr(),
			Cond:     typedBinOp(ast.LT, local("x", types.Int()), intLit(10), types.Int()),
			Body: []ast.Stmt{
				&ast.Assign{
					StmtAttr: stmtAttr(),
					Lhs:      local("x", types.Int()),
					Rhs:      typedBinOp(ast.ADD, local("x", types.Int()), intLit(1), types.Int()),
				},
			},
		},
	)
	got := codes(generateBody(t, d))
	want := []lir.Instr{
		lir.Loop{Label: "label0"},
		lir.Assign{Type: types.Int(), Target: 1, Operand: 0},
		lir.Const{Target: 2, Value: value.NewInt(10)},
		lir.If{Type: types.Int(), Lhs: 1, Rhs: 2, Op: lir.CmpGtEq, Target: "label1"},
		lir.Assign{Type: types.Int(), Target: 3, Operand: 0},
		lir.Const{Target: 4, Value: value.NewInt(1)},
		lir.BinArithOp{BinType: lir.BinType{Type: types.Int(), Target: 5, Lhs: 3, Rhs: 4}, Kind: lir.ArithAdd},
		lir.Assign{Type: types.Int(), Target: 0, Operand: 5},
		lir.Nop{},
		lir.LoopEnd{Label: "label0"},
		lir.Label{Label: "label1"},
		lir.BareReturn(),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("unexpected lowering:\ngot  %v\nwant %v", got, want)
	}
}

// switch x+1: case 0,1: skip; case 2: skip; default: skip
func TestSwitchLowering(t *testing.T) {
	d := fnDecl("f",
		[]ast.Param{{Name: "x", Type: types.Int(), Pos: sp()}},
		types.Void(),
		&ast.Switch{
			StmtAttr: stmtAttr(),
			Operand:  typedBinOp(ast.ADD, local("x", types.Int()), intLit(1), types.Int()),
			Cases: []ast.SwitchCase{
				{Values: []value.Value{value.NewInt(0), value.NewInt(1)}, Body: []ast.Stmt{&ast.Skip{StmtAttr: stmtAttr()}}, Pos: sp()},
				{Values: []value.Value{value.NewInt(2)}, Body: []ast.Stmt{&ast.Skip{StmtAttr: stmtAttr()}}, Pos: sp()},
				{Body: []ast.Stmt{&ast.Skip{StmtAttr: stmtAttr()}}, Pos: sp()},
			},
		},
	)
	body := generateBody(t, d)
	got := codes(body)

	// the dispatch sits immediately before the first case body
	sw, ok := got[3].(lir.Switch)
	if !ok {
		t.Fatalf("entry 3 should be the inserted switch, got %T", got[3])
	}
	if len(sw.Branches) != 3 {
		t.Fatalf("expected 3 case branches, got %d", len(sw.Branches))
	}
	if sw.Branches[0].Target != sw.Branches[1].Target {
		t.Error("values 0 and 1 should share a case label")
	}
	if sw.Branches[2].Target == sw.Branches[0].Target {
		t.Error("value 2 should have its own case label")
	}
	if sw.DefaultTarget == "" || sw.DefaultTarget == sw.Branches[0].Target {
		t.Error("the default case should have its own label")
	}
	if lab, ok := got[4].(lir.Label); !ok || lab.Label != sw.Branches[0].Target {
		t.Error("the first case body should directly follow the dispatch")
	}
}

func TestDuplicateCaseRejected(t *testing.T) {
	g := testGenerator(t)
	d := fnDecl("f",
		[]ast.Param{{Name: "x", Type: types.Int(), Pos: sp()}},
		types.Void(),
		&ast.Switch{
			StmtAttr: stmtAttr(),
			Operand:  local("x", types.Int()),
			Cases: []ast.SwitchCase{
				{Values: []value.Value{value.NewInt(0)}, Body: []ast.Stmt{&ast.Skip{StmtAttr: stmtAttr()}}, Pos: sp()},
				{Values: []value.Value{value.NewInt(0)}, Body: []ast.Stmt{&ast.Skip{StmtAttr: stmtAttr()}}, Pos: sp()},
			},
		},
	)
	if _, err := g.generateFunctionDecl(d); err == nil {
		t.Error("duplicate case constants should be rejected")
	}
}

// return i * 2 with declared return type int
func TestReturnUsesDeclaredType(t *testing.T) {
	d := fnDecl("f",
		[]ast.Param{{Name: "i", Type: types.Int(), Pos: sp()}},
		types.Int(),
		&ast.Return{
			StmtAttr: stmtAttr(),
			Operand:  typedBinOp(ast.MUL, local("i", types.Int()), intLit(2), types.Int()),
		},
	)
	got := codes(generateBody(t, d))
	want := []lir.Instr{
		lir.Assign{Type: types.Int(), Target: 1, Operand: 0},
		lir.Const{Target: 2, Value: value.NewInt(2)},
		lir.BinArithOp{BinType: lir.BinType{Type: types.Int(), Target: 3, Lhs: 1, Rhs: 2}, Kind: lir.ArithMul},
		lir.NewReturn(types.Int(), 3),
		lir.BareReturn(),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("unexpected lowering:\ngot  %v\nwant %v", got, want)
	}
}

func TestBreakOutsideLoopRejected(t *testing.T) {
	g := testGenerator(t)
	d := fnDecl("f", nil, types.Void(), &ast.Break{StmtAttr: stmtAttr()})
	if _, err := g.generateFunctionDecl(d); err == nil {
		t.Error("break outside a loop should be rejected")
	}
}

func TestBreakTargetsLoopExit(t *testing.T) {
	d := fnDecl("f",
		[]ast.Param{{Name: "x", Type: types.Bool(), Pos: sp()}},
		types.Void(),
		&ast.While{
			StmtAttr: stmtAttr(),
			Cond:     local("x", types.Bool()),
			Body:     []ast.Stmt{&ast.Break{StmtAttr: stmtAttr()}},
		},
	)
	body := generateBody(t, d)
	var exitLabel string
	// the label following LoopEnd is the loop exit; the break's goto
	// must target it
	cs := codes(body)
	for i, c := range cs {
		if _, ok := c.(lir.LoopEnd); ok && i+1 < len(cs) {
			if l, ok := cs[i+1].(lir.Label); ok {
				exitLabel = l.Label
			}
		}
	}
	found := false
	for _, c := range cs {
		if g, ok := c.(lir.Goto); ok && g.Target == exitLabel {
			found = true
		}
	}
	if !found {
		t.Error("break should branch to the loop exit label")
	}
}

func TestTryCatchLowering(t *testing.T) {
	d := fnDecl("f", nil, types.Void(),
		&ast.TryCatch{
			StmtAttr: stmtAttr(),
			Body:     []ast.Stmt{&ast.Skip{StmtAttr: stmtAttr()}},
			Catches: []ast.Catch{
				{Type: types.String(), Variable: "e", Body: []ast.Stmt{&ast.Skip{StmtAttr: stmtAttr()}}, Pos: sp()},
				{Type: types.Int(), Variable: "e", Body: []ast.Stmt{&ast.Skip{StmtAttr: stmtAttr()}}, Pos: sp()},
			},
		},
	)
	got := codes(generateBody(t, d))
	tc, ok := got[0].(lir.TryCatch)
	if !ok {
		t.Fatalf("the try-catch dispatch should be inserted first, got %T", got[0])
	}
	if len(tc.Catches) != 2 {
		t.Fatalf("expected 2 catch branches, got %d", len(tc.Catches))
	}
	// the first handler is introduced by the TryEnd marker carrying
	// the end label
	foundTryEnd := false
	for _, c := range got {
		if te, ok := c.(lir.TryEnd); ok {
			foundTryEnd = true
			if te.Label != tc.Target || te.Label != tc.Catches[0].Target {
				t.Error("the TryEnd label should delimit the try region and start the first handler")
			}
		}
	}
	if !foundTryEnd {
		t.Error("expected a TryEnd marker for the first catch")
	}
}

func TestForAllMapDestructuring(t *testing.T) {
	mapType := types.Map(types.String(), types.Int())
	d := fnDecl("f",
		[]ast.Param{{Name: "m", Type: mapType, Pos: sp()}},
		types.Void(),
		&ast.ForAll{
			StmtAttr:  stmtAttr(),
			Variables: []string{"k", "v"},
			Source:    local("m", mapType),
			SrcType:   mapType,
			Body:      []ast.Stmt{&ast.Skip{StmtAttr: stmtAttr()}},
		},
	)
	got := codes(generateBody(t, d))
	var forall *lir.ForAll
	var loads []lir.TupleLoad
	for _, c := range got {
		switch c := c.(type) {
		case lir.ForAll:
			forall = &c
		case lir.TupleLoad:
			loads = append(loads, c)
		}
	}
	if forall == nil {
		t.Fatal("expected a forall instruction")
	}
	if len(loads) != 2 {
		t.Fatalf("map destructuring should load both tuple elements, got %d", len(loads))
	}
	if loads[0].Operand != forall.Index || loads[1].Operand != forall.Index {
		t.Error("tuple loads should read the iteration register")
	}
}

func TestLambdaLifting(t *testing.T) {
	g := testGenerator(t)
	fnType := types.Function(types.Int(), types.Void(), types.Int())
	m := &ast.Module{
		Name: "test", Filename: "test.wy",
		Declarations: []ast.Decl{
			fnDecl("f",
				[]ast.Param{{Name: "n", Type: types.Int(), Pos: sp()}},
				fnType,
				&ast.Return{
					StmtAttr: stmtAttr(),
					Operand: &ast.Lambda{
						ExprAttr:   attr(),
						Parameters: []ast.Param{{Name: "x", Type: types.Int(), Pos: sp()}},
						Body: typedBinOp(ast.ADD,
							local("x", types.Int()),
							local("n", types.Int()),
							types.Int()),
						Type: fnType,
					},
				},
			),
		},
	}
	out, err := g.Generate(m)
	if err != nil {
		t.Fatalf("generation failed: %v", err)
	}
	if len(out.Declarations) != 2 {
		t.Fatalf("the lambda should be lifted to a module declaration, got %d declarations", len(out.Declarations))
	}
	lifted, ok := out.Declarations[1].(*lir.FunctionDecl)
	if !ok {
		t.Fatalf("the lifted lambda should be a function, got %T", out.Declarations[1])
	}
	// the capture of n widens the parameter list
	if got := len(lifted.Type.Params()); got != 2 {
		t.Fatalf("lambda should gain its captured variable as a parameter, got %d params", got)
	}
	if err := lifted.Body.Validate(); err != nil {
		t.Errorf("lifted body is not well-formed: %v", err)
	}

	// the lambda instruction marks call-time slots with the null
	// register and captures n's register
	main := out.Declarations[0].(*lir.FunctionDecl)
	var lam *lir.Lambda
	for _, e := range main.Body.Entries() {
		if l, ok := e.Code.(lir.Lambda); ok {
			lam = &l
		}
	}
	if lam == nil {
		t.Fatal("expected a lambda instruction in the enclosing body")
	}
	if len(lam.Operands) != 2 || lam.Operands[0] != lir.NullReg || lam.Operands[1] != 0 {
		t.Errorf("lambda operands should be [null, %%0], got %v", lam.Operands)
	}
	if lam.Name != lifted.Name {
		t.Error("the lambda instruction should reference the lifted function")
	}
}

func TestPatternDestructuring(t *testing.T) {
	recType := types.Record(false, map[string]types.Type{"x": types.Int(), "y": types.Int()})
	d := fnDecl("f",
		[]ast.Param{{Name: "p", Type: recType, Pos: sp()}},
		types.Void(),
		&ast.VarDecl{
			StmtAttr: stmtAttr(),
			Pattern: &ast.RecordPattern{
				PatternAttr: ast.PatternAttr{Pos: sp()},
				Fields: []ast.PatternField{
					{Name: "x", Pat: &ast.LeafPattern{PatternAttr: ast.PatternAttr{Pos: sp()}, Var: "a"}},
					{Name: "y", Pat: &ast.LeafPattern{PatternAttr: ast.PatternAttr{Pos: sp()}, Var: "b"}},
				},
			},
			Type: recType,
			Init: local("p", recType),
		},
	)
	got := codes(generateBody(t, d))
	var loads []lir.FieldLoad
	for _, c := range got {
		if fl, ok := c.(lir.FieldLoad); ok {
			loads = append(loads, fl)
		}
	}
	if len(loads) != 2 {
		t.Fatalf("expected 2 field loads, got %d", len(loads))
	}
	if loads[0].Field != "x" || loads[1].Field != "y" {
		t.Errorf("field loads should follow the pattern, got %s, %s", loads[0].Field, loads[1].Field)
	}
}

func TestUninitializedDeclarationEmitsNothing(t *testing.T) {
	recType := types.Record(false, map[string]types.Type{"x": types.Int()})
	d := fnDecl("f", nil, types.Void(),
		&ast.VarDecl{
			StmtAttr: stmtAttr(),
			Pattern: &ast.RecordPattern{
				PatternAttr: ast.PatternAttr{Pos: sp()},
				Fields: []ast.PatternField{
					{Name: "x", Pat: &ast.LeafPattern{PatternAttr: ast.PatternAttr{Pos: sp()}, Var: "a"}},
				},
			},
			Type: recType,
		},
	)
	got := codes(generateBody(t, d))
	if len(got) != 1 {
		t.Errorf("an uninitialized declaration should emit no code, got %v", got)
	}
	if _, ok := got[0].(lir.Return); !ok {
		t.Errorf("only the implicit return should remain, got %T", got[0])
	}
}

// {x | x in xs, x > 0}
func TestSetComprehensionLowering(t *testing.T) {
	listInt := types.List(types.Int())
	comp := &ast.Comprehension{
		ExprAttr: attr(),
		Op:       ast.SETCOMP,
		Sources:  []ast.CompSource{{Name: "x", Src: local("xs", listInt)}},
		Condition: typedBinOp(ast.GT,
			local("x", types.Int()), intLit(0), types.Int()),
		Value: local("x", types.Int()),
		Type:  types.Set(types.Int()),
	}
	d := fnDecl("f",
		[]ast.Param{{Name: "xs", Type: listInt, Pos: sp()}},
		types.Set(types.Int()),
		&ast.Return{StmtAttr: stmtAttr(), Operand: comp},
	)
	got := codes(generateBody(t, d))

	var newSets int
	var forAlls []lir.ForAll
	var accum *lir.BinSetOp
	for _, c := range got {
		switch c := c.(type) {
		case lir.NewSet:
			newSets++
		case lir.ForAll:
			forAlls = append(forAlls, c)
		case lir.BinSetOp:
			accum = &c
		}
	}
	if newSets != 1 {
		t.Fatalf("the comprehension should start from one empty set, got %d", newSets)
	}
	if len(forAlls) != 1 {
		t.Fatalf("one source should open one loop, got %d", len(forAlls))
	}
	if accum == nil || accum.Kind != lir.SetLeftUnion {
		t.Error("the yielded value should accumulate via a left union")
	}
	if accum != nil && accum.Target != accum.Lhs {
		t.Error("the accumulator must fold into the comprehension target")
	}
}

// if some {x in xs | x > 0}: skip
func TestQuantifierConditionLowering(t *testing.T) {
	listInt := types.List(types.Int())
	some := &ast.Comprehension{
		ExprAttr: attr(),
		Op:       ast.SOME,
		Sources:  []ast.CompSource{{Name: "x", Src: local("xs", listInt)}},
		Condition: typedBinOp(ast.GT,
			local("x", types.Int()), intLit(0), types.Int()),
		Type: types.Bool(),
	}
	d := fnDecl("f",
		[]ast.Param{{Name: "xs", Type: listInt, Pos: sp()}},
		types.Void(),
		&ast.IfElse{
			StmtAttr:   stmtAttr(),
			Cond:       some,
			TrueBranch: []ast.Stmt{&ast.Skip{StmtAttr: stmtAttr()}},
		},
	)
	got := codes(generateBody(t, d))
	var forAlls, loopEnds int
	for _, c := range got {
		switch c.(type) {
		case lir.ForAll:
			forAlls++
		case lir.LoopEnd:
			loopEnds++
		}
	}
	if forAlls != 1 || loopEnds != 1 {
		t.Errorf("the quantifier should open and close one loop, got %d/%d", forAlls, loopEnds)
	}
}

func TestInvertIsInvolutive(t *testing.T) {
	cond := typedBinOp(ast.OR,
		typedBinOp(ast.LT, local("x", types.Int()), local("y", types.Int()), types.Int()),
		typedBinOp(ast.AND,
			typedBinOp(ast.EQ, local("x", types.Int()), local("y", types.Int()), types.Int()),
			typedBinOp(ast.GT, local("x", types.Int()), local("y", types.Int()), types.Int()),
			types.Bool()),
		types.Bool())

	gen := func(c ast.Expr) []lir.Instr {
		g := testGenerator(t)
		env := NewEnvironment()
		env.AllocateVar(types.Int(), "x")
		env.AllocateVar(types.Int(), "y")
		block := lir.NewCodeBlock(2)
		target := block.FreshLabel()
		if err := g.generateCondition(target, c, env, block, nil); err != nil {
			t.Fatalf("condition lowering failed: %v", err)
		}
		return codes(block)
	}

	direct := gen(cond)
	doubled := gen(invert(invert(cond)))
	if !reflect.DeepEqual(direct, doubled) {
		t.Errorf("inverting twice should emit identical branch code:\nonce:  %v\ntwice: %v", direct, doubled)
	}
}
