package types

import (
	"fmt"
	"testing"
)

type testResolver struct {
	defs map[string]Type
}

func (r *testResolver) Expand(name string) (Type, error) {
	if t, ok := r.defs[name]; ok {
		return t, nil
	}
	return Void(), fmt.Errorf("unknown type %q", name)
}

func (r *testResolver) IsOpen(name string) bool {
	t, ok := r.defs[name]
	return ok && t.Kind() == KRecord && t.IsOpen()
}

func samplePool() []Type {
	return []Type{
		Void(),
		Any(),
		Null(),
		Bool(),
		Int(),
		Real(),
		Char(),
		String(),
		Union(Int(), Null()),
		Record(false, map[string]Type{"x": Int()}),
		Record(false, map[string]Type{"x": Int(), "y": Int()}),
		Record(true, map[string]Type{"x": Int()}),
		List(Int()),
		List(Union(Int(), Null())),
		Set(Int()),
		Tuple(Int(), Int()),
		Reference(Int()),
		Function(Int(), Void(), Int()),
		Negation(Int()),
	}
}

func TestPrimitiveSubtyping(t *testing.T) {
	e := NewEngine(nil)
	if !e.IsSubtype(Int(), Int()) {
		t.Error("int should be a subtype of itself")
	}
	if e.IsSubtype(Int(), String()) {
		t.Error("int should not be a subtype of string")
	}
	if e.IsSubtype(Int(), Real()) {
		t.Error("int and real are distinct at the raw level")
	}
	if !e.IsSupertype(Any(), String()) {
		t.Error("any should be a supertype of string")
	}
}

func TestTopAndBottom(t *testing.T) {
	e := NewEngine(nil)
	for _, a := range samplePool() {
		if !e.IsSubtype(a, Any()) {
			t.Errorf("%s should be a subtype of any", a)
		}
		if !e.IsSubtype(Void(), a) {
			t.Errorf("void should be a subtype of %s", a)
		}
	}
}

func TestAntisymmetry(t *testing.T) {
	e := NewEngine(nil)
	pool := samplePool()
	for _, a := range pool {
		for _, b := range pool {
			if a != b && e.IsSubtype(a, b) && e.IsSubtype(b, a) {
				t.Errorf("distinct canonical types %s and %s are mutual subtypes", a, b)
			}
		}
	}
}

func TestTransitivity(t *testing.T) {
	e := NewEngine(nil)
	pool := samplePool()
	for _, a := range pool {
		for _, b := range pool {
			if !e.IsSubtype(a, b) {
				continue
			}
			for _, c := range pool {
				if e.IsSubtype(b, c) && !e.IsSubtype(a, c) {
					t.Errorf("transitivity violated: %s <: %s <: %s", a, b, c)
				}
			}
		}
	}
}

func TestUnionSubtyping(t *testing.T) {
	e := NewEngine(nil)
	intOrNull := Union(Int(), Null())
	if !e.IsSubtype(Int(), intOrNull) {
		t.Error("int should be a subtype of int|null")
	}
	if !e.IsSubtype(Null(), intOrNull) {
		t.Error("null should be a subtype of int|null")
	}
	if e.IsSubtype(intOrNull, Int()) {
		t.Error("int|null should not be a subtype of int")
	}
	if !e.IsSubtype(intOrNull, Union(Int(), Null(), String())) {
		t.Error("int|null should be a subtype of int|null|string")
	}
	if !e.IsSubtype(intOrNull, intOrNull) {
		t.Error("a union should be a subtype of itself")
	}
}

func TestNegationSubtyping(t *testing.T) {
	e := NewEngine(nil)
	if !e.IsSubtype(Int(), Negation(Null())) {
		t.Error("int should be a subtype of !null")
	}
	if e.IsSubtype(Null(), Negation(Null())) {
		t.Error("null should not be a subtype of !null")
	}
	if !e.IsSubtype(Intersect(Union(Int(), Null()), Negation(Null())), Int()) {
		t.Error("(int|null) & !null should reduce below int")
	}
}

func TestFunctionVariance(t *testing.T) {
	e := NewEngine(nil)
	// a function accepting more and returning less substitutes
	a := Function(Int(), Void(), Union(Int(), Null()))
	b := Function(Union(Int(), Bool()), Void(), Int())
	if !e.IsSubtype(a, b) {
		t.Errorf("%s should be a subtype of %s", a, b)
	}
	if e.IsSubtype(b, a) {
		t.Errorf("%s should not be a subtype of %s", b, a)
	}
	// arity mismatch never relates
	c := Function(Int(), Void(), Int(), Int())
	if e.IsSubtype(a, c) || e.IsSubtype(c, a) {
		t.Error("functions of different arity should not relate")
	}
}

func TestRecordSubtyping(t *testing.T) {
	e := NewEngine(nil)
	point := Record(false, map[string]Type{"x": Int(), "y": Int()})
	openX := Record(true, map[string]Type{"x": Int()})
	closedX := Record(false, map[string]Type{"x": Int()})

	if !e.IsSubtype(point, openX) {
		t.Error("{int x,int y} should be a subtype of the open {int x,...}")
	}
	if e.IsSubtype(point, closedX) {
		t.Error("{int x,int y} should not be a subtype of the closed {int x}")
	}
	if e.IsSubtype(openX, closedX) {
		t.Error("the open {int x,...} should not be a subtype of the closed {int x}")
	}
	if !e.IsSubtype(closedX, openX) {
		t.Error("the closed {int x} should be a subtype of the open {int x,...}")
	}
	wider := Record(false, map[string]Type{"x": Union(Int(), Null()), "y": Int()})
	if !e.IsSubtype(point, wider) {
		t.Error("record subtyping should be covariant in field types")
	}
	if e.IsSubtype(wider, point) {
		t.Error("record field covariance is one-directional")
	}
}

func TestListSetTieBreak(t *testing.T) {
	e := NewEngine(nil)
	if e.IsSubtype(List(Int()), Set(Int())) {
		t.Error("a list type is not a raw subtype of a set type")
	}
	if e.IsSubtype(Set(Int()), List(Int())) {
		t.Error("a set type is not a raw subtype of a list type")
	}
	// the empty collection inhabits both, so the intersection is not
	// empty
	if e.IsEmpty(Intersect(List(Int()), Set(Int()))) {
		t.Error("list & set should intersect on the empty collection")
	}
	// the coercive relation does allow list where a set is wanted
	if !e.IsImplicitCoerciveSubtype(Set(Int()), List(Int())) {
		t.Error("list(int) should coerce to set(int)")
	}
}

func TestListCovariance(t *testing.T) {
	e := NewEngine(nil)
	if !e.IsSubtype(List(Int()), List(Union(Int(), Null()))) {
		t.Error("[int] should be a subtype of [int|null]")
	}
	if e.IsSubtype(List(Union(Int(), Null())), List(Int())) {
		t.Error("[int|null] should not be a subtype of [int]")
	}
}

func TestNominalSubtyping(t *testing.T) {
	defs := map[string]Type{
		"m:nat": Int(),
	}
	e := NewEngine(&testResolver{defs: defs})
	nat := Nominal("m:nat")
	if !e.IsSubtype(nat, Int()) {
		t.Error("nat should be a subtype of its definition")
	}
	if !e.IsSubtype(nat, nat) {
		t.Error("a nominal should be a subtype of itself")
	}
	// distinct names are disjoint under nominal-only reasoning
	other := Nominal("m:temp")
	e2 := NewEngine(nil)
	if e2.IsSubtype(nat, other) {
		t.Error("distinct nominal names should not relate without expansion")
	}
}

func TestRecursiveNominalTermination(t *testing.T) {
	list := Nominal("m:LinkedList")
	defs := map[string]Type{
		"m:LinkedList": Union(Null(), Record(false, map[string]Type{"data": Int(), "next": list})),
	}
	e := NewEngine(&testResolver{defs: defs})

	expansion := defs["m:LinkedList"]
	if !e.IsSubtype(list, expansion) {
		t.Error("a recursive nominal should be a subtype of its expansion")
	}
	if !e.IsSubtype(expansion, list) {
		t.Error("an expansion should be a subtype of its recursive nominal")
	}
	if !e.IsSubtype(Null(), list) {
		t.Error("null inhabits the recursive list type")
	}
	node := Record(false, map[string]Type{"data": Int(), "next": list})
	if !e.IsSubtype(node, list) {
		t.Error("a cons cell should inhabit the recursive list type")
	}
	if e.IsSubtype(list, Null()) {
		t.Error("the recursive list type is wider than null")
	}
}

func TestMutuallyRecursiveNominals(t *testing.T) {
	defs := map[string]Type{
		"m:Even": Union(Null(), Record(false, map[string]Type{"next": Nominal("m:Odd")})),
		"m:Odd":  Record(false, map[string]Type{"next": Nominal("m:Even")}),
	}
	e := NewEngine(&testResolver{defs: defs})
	// the queries must terminate; their answers follow nominal
	// reasoning for the inner names
	e.IsSubtype(Nominal("m:Even"), Nominal("m:Odd"))
	e.IsSubtype(defs["m:Even"], defs["m:Odd"])
	if !e.IsSubtype(Nominal("m:Even"), defs["m:Even"]) {
		t.Error("a mutually recursive nominal should be a subtype of its expansion")
	}
}

func TestImplicitCoercions(t *testing.T) {
	e := NewEngine(nil)
	cases := []struct {
		sup, sub Type
		want     bool
	}{
		{Real(), Int(), true},
		{Int(), Char(), true},
		{Real(), Char(), true},
		{Int(), Real(), false},
		{Char(), Int(), false},
		{Real(), String(), false},
		{Set(Int()), List(Int()), true},
		{List(Int()), Set(Int()), false},
		{Real(), Union(Int(), Real()), true},
		{Set(Real()), List(Int()), true},
	}
	for _, c := range cases {
		if got := e.IsImplicitCoerciveSubtype(c.sup, c.sub); got != c.want {
			t.Errorf("IsImplicitCoerciveSubtype(%s, %s) = %v, want %v", c.sup, c.sub, got, c.want)
		}
	}
	if !e.IsExplicitCoerciveSubtype(Int(), Real()) {
		t.Error("a cast from real to int should be permitted")
	}
	if e.IsExplicitCoerciveSubtype(Int(), String()) {
		t.Error("a cast from string to int should not be permitted")
	}
}

func TestEffectiveViews(t *testing.T) {
	defs := map[string]Type{
		"m:ints": List(Int()),
	}
	e := NewEngine(&testResolver{defs: defs})

	if elem, ok := e.AsEffectiveList(Nominal("m:ints")); !ok || elem != Int() {
		t.Errorf("nominal list should expand to an effective list of int, got %v %v", elem, ok)
	}
	union := Union(List(Int()), List(Null()))
	if elem, ok := e.AsEffectiveList(union); !ok || elem != Union(Int(), Null()) {
		t.Errorf("a union of lists should be an effective list of the union, got %v %v", elem, ok)
	}
	if _, ok := e.AsEffectiveList(Int()); ok {
		t.Error("int is not an effective list")
	}
	k, v, ok := e.AsEffectiveMap(Map(String(), Int()))
	if !ok || k != String() || v != Int() {
		t.Error("map should be its own effective map")
	}
	rec, ok := e.AsEffectiveRecord(Union(
		Record(false, map[string]Type{"x": Int(), "y": Int()}),
		Record(false, map[string]Type{"x": Null()}),
	))
	if !ok {
		t.Fatal("a union of records with a common field should be an effective record")
	}
	if ft, ok := rec.Field("x"); !ok || ft != Union(Int(), Null()) {
		t.Errorf("effective record field x should be int|null, got %v", ft)
	}
	if _, ok := rec.Field("y"); ok {
		t.Error("field y is not common to all records in the union")
	}
}

func TestAssumptionCacheIsPerQuery(t *testing.T) {
	list := Nominal("m:L")
	defs := map[string]Type{
		"m:L": Union(Null(), Record(false, map[string]Type{"next": list})),
	}
	e := NewEngine(&testResolver{defs: defs})
	// repeated queries on one engine must agree; stale assumptions
	// would flip answers between runs
	first := e.IsSubtype(list, defs["m:L"])
	for i := 0; i < 4; i++ {
		if e.IsSubtype(list, defs["m:L"]) != first {
			t.Fatal("subtype answers changed across queries")
		}
	}
}
