package modules

import (
	"testing"

	"github.com/wyrm-lang/wyrm/internal/types"
	"github.com/wyrm-lang/wyrm/internal/value"
)

func testProject(t *testing.T) *Project {
	t.Helper()
	p := NewProject()
	m, err := NewModule("math", "1.2.3")
	if err != nil {
		t.Fatalf("failed to create module: %v", err)
	}
	m.DeclareFunction(&Function{
		Name: "abs",
		Type: types.Function(types.Int(), types.Void(), types.Int()),
	})
	m.DeclareFunction(&Function{
		Name: "abs",
		Type: types.Function(types.Real(), types.Void(), types.Real()),
	})
	m.DeclareConstant("pi", value.NewReal(3.14159))
	m.DeclareType(&NamedType{Name: "nat", Type: types.Int()})
	if err := p.Register(m); err != nil {
		t.Fatalf("failed to register module: %v", err)
	}
	return p
}

func TestRequireChecksVersions(t *testing.T) {
	p := testProject(t)
	if _, err := p.Require("math", ">=1.0.0"); err != nil {
		t.Errorf("math@1.2.3 should satisfy >=1.0.0: %v", err)
	}
	if _, err := p.Require("math", ">=2.0.0"); err == nil {
		t.Error("math@1.2.3 should not satisfy >=2.0.0")
	}
	if _, err := p.Require("math", ""); err != nil {
		t.Errorf("an empty constraint matches any version: %v", err)
	}
	if _, err := p.Require("missing", ""); err == nil {
		t.Error("an unknown module should fail resolution")
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	p := testProject(t)
	m, _ := NewModule("math", "2.0.0")
	if err := p.Register(m); err == nil {
		t.Error("re-registering a module path should fail")
	}
}

func TestNewModuleRejectsBadVersion(t *testing.T) {
	if _, err := NewModule("m", "not-a-version"); err == nil {
		t.Error("an invalid semver string should be rejected")
	}
}

func TestLookupFunctionSelectsByParameters(t *testing.T) {
	p := testProject(t)
	engine := types.NewEngine(p)

	f, err := p.LookupFunction(engine, "math", "abs", []types.Type{types.Int()})
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if f.Type.Ret() != types.Int() {
		t.Errorf("int argument should select the int overload, got %s", f.Type)
	}

	f, err = p.LookupFunction(engine, "math", "abs", []types.Type{types.Real()})
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if f.Type.Ret() != types.Real() {
		t.Errorf("real argument should select the real overload, got %s", f.Type)
	}

	if _, err := p.LookupFunction(engine, "math", "abs", []types.Type{types.String()}); err == nil {
		t.Error("no overload accepts a string")
	}
	if _, err := p.LookupFunction(engine, "math", "missing", nil); err == nil {
		t.Error("an unknown function should fail resolution")
	}
}

func TestNominalExpansion(t *testing.T) {
	p := testProject(t)
	got, err := p.Expand("math:nat")
	if err != nil {
		t.Fatalf("expansion failed: %v", err)
	}
	if got != types.Int() {
		t.Errorf("math:nat should expand to int, got %s", got)
	}
	if _, err := p.Expand("math:missing"); err == nil {
		t.Error("an unknown nominal should fail expansion")
	}
}

func TestConstantsAndPackages(t *testing.T) {
	p := testProject(t)
	if _, err := p.LookupConstant("math", "pi"); err != nil {
		t.Errorf("pi should resolve: %v", err)
	}
	if !p.IsModule("math") {
		t.Error("math is a module")
	}
	if p.IsPackage("math") {
		t.Error("math has no nested modules")
	}
	sub, _ := NewModule("std/collections", "0.1.0")
	if err := p.Register(sub); err != nil {
		t.Fatalf("failed to register: %v", err)
	}
	if !p.IsPackage("std") {
		t.Error("std should be a package prefix")
	}
}
