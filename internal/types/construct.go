package types

import "sort"

// Void returns the uninhabited bottom type.
func Void() Type { return tVoid }

// Any returns the top type, inhabited by every value.
func Any() Type { return tAny }

// Null returns the null type.
func Null() Type { return tNull }

// Bool returns the boolean type.
func Bool() Type { return tBool }

// Byte returns the byte type.
func Byte() Type { return tByte }

// Int returns the unbounded integer type.
func Int() Type { return tInt }

// Real returns the rational number type.
func Real() Type { return tReal }

// Char returns the character type.
func Char() Type { return tChar }

// String returns the string type.
func String() Type { return tString }

// Meta returns the type of type values, as used by runtime type tests.
func Meta() Type { return tMeta }

// Nominal returns the nominal type with the given qualified name. Its
// structural definition is obtained on demand through a
// NominalResolver.
func Nominal(name string) Type {
	return intern(state{kind: KNominal, name: name})
}

// Record constructs a record type from a field map. Field names are
// stored in strictly sorted order so that structurally equal records
// intern to the same index.
func Record(open bool, fields map[string]Type) Type {
	names := make([]string, 0, len(fields))
	for n := range fields {
		names = append(names, n)
	}
	sort.Strings(names)
	children := make([]Type, len(names))
	for i, n := range names {
		children[i] = fields[n]
	}
	return intern(state{kind: KRecord, children: children, fields: names, open: open})
}

// Tuple constructs a tuple type from its ordered element types.
func Tuple(elements ...Type) Type {
	children := make([]Type, len(elements))
	copy(children, elements)
	return intern(state{kind: KTuple, children: children})
}

// List constructs the type of lists with the given element type.
func List(element Type) Type {
	return intern(state{kind: KList, children: []Type{element}})
}

// Set constructs the type of sets with the given element type.
func Set(element Type) Type {
	return intern(state{kind: KSet, children: []Type{element}})
}

// Map constructs the type of maps from key to value.
func Map(key, value Type) Type {
	return intern(state{kind: KMap, children: []Type{key, value}})
}

// Reference constructs the type of references to the given type.
func Reference(element Type) Type {
	return intern(state{kind: KReference, children: []Type{element}})
}

// Function constructs a function type. The return and throws types are
// covariant; parameters are contravariant.
func Function(ret, throws Type, params ...Type) Type {
	return intern(state{kind: KFunction, children: signature(ret, throws, params)})
}

// Method constructs a method type with the same variance structure as
// Function.
func Method(ret, throws Type, params ...Type) Type {
	return intern(state{kind: KMethod, children: signature(ret, throws, params)})
}

func signature(ret, throws Type, params []Type) []Type {
	children := make([]Type, 0, 2+len(params))
	children = append(children, ret, throws)
	children = append(children, params...)
	return children
}

// Union constructs the least upper bound of the given types. Nested
// unions are flattened, duplicates removed, void dropped and children
// sorted, so the result is canonical: a union node always has at least
// two distinct children.
func Union(ts ...Type) Type {
	flat := make([]Type, 0, len(ts))
	for _, t := range ts {
		if t.Kind() == KUnion {
			flat = append(flat, t.Children()...)
		} else {
			flat = append(flat, t)
		}
	}
	flat = normalize(flat, tVoid)
	for _, t := range flat {
		if t == tAny {
			return tAny
		}
	}
	switch len(flat) {
	case 0:
		return tVoid
	case 1:
		return flat[0]
	}
	return intern(state{kind: KUnion, children: flat})
}

// Intersect constructs the greatest lower bound of the given types.
// Construction canonicalizes aggressively: unions distribute, disjoint
// kinds annihilate to void, records and collections intersect
// structurally. Only combinations the algebra cannot decide locally —
// nominals, negations, function variance, and a list against a set —
// survive as intersection nodes for the subtype engine to reason about.
func Intersect(ts ...Type) Type {
	acc := tAny
	for _, t := range ts {
		acc = intersect2(acc, t)
	}
	return acc
}

func intersect2(a, b Type) Type {
	if a == b {
		return a
	}
	if a == tVoid || b == tVoid {
		return tVoid
	}
	if a == tAny {
		return b
	}
	if b == tAny {
		return a
	}

	// distribute over unions
	if a.Kind() == KUnion {
		parts := make([]Type, a.NumChildren())
		for i, c := range a.Children() {
			parts[i] = intersect2(c, b)
		}
		return Union(parts...)
	}
	if b.Kind() == KUnion {
		parts := make([]Type, b.NumChildren())
		for i, c := range b.Children() {
			parts[i] = intersect2(a, c)
		}
		return Union(parts...)
	}

	ak, bk := a.Kind(), b.Kind()

	// a type and its complement annihilate
	if ak == KNegation && a.Child(0) == b {
		return tVoid
	}
	if bk == KNegation && b.Child(0) == a {
		return tVoid
	}
	// a leaf against the complement of a different leaf is unaffected
	if bk == KNegation && isLeaf(ak) && isLeaf(b.Child(0).Kind()) && ak != b.Child(0).Kind() {
		return a
	}
	if ak == KNegation && isLeaf(bk) && isLeaf(a.Child(0).Kind()) && bk != a.Child(0).Kind() {
		return b
	}

	// nominals, negations and existing intersections are opaque here;
	// the subtype engine reasons about them with its assumption cache
	if ak == KNominal || bk == KNominal || ak == KNegation || bk == KNegation ||
		ak == KIntersection || bk == KIntersection {
		return rawIntersect(a, b)
	}

	if ak != bk {
		// a list and a set still share the empty collection
		if (ak == KList && bk == KSet) || (ak == KSet && bk == KList) {
			return rawIntersect(a, b)
		}
		// otherwise distinct kinds denote disjoint value spaces
		return tVoid
	}

	switch ak {
	case KRecord:
		return intersectRecords2(a, b)
	case KTuple:
		if a.NumChildren() != b.NumChildren() {
			return tVoid
		}
		elems := make([]Type, a.NumChildren())
		for i := range a.Children() {
			elems[i] = intersect2(a.Child(i), b.Child(i))
			if elems[i] == tVoid {
				return tVoid
			}
		}
		return Tuple(elems...)
	case KList:
		return List(intersect2(a.Element(), b.Element()))
	case KSet:
		return Set(intersect2(a.Element(), b.Element()))
	case KMap:
		return Map(intersect2(a.MapKey(), b.MapKey()), intersect2(a.MapValue(), b.MapValue()))
	case KReference:
		return Reference(intersect2(a.Element(), b.Element()))
	default:
		// functions and methods carry variance the engine must decide
		return rawIntersect(a, b)
	}
}

func intersectRecords2(a, b Type) Type {
	aOpen, bOpen := a.IsOpen(), b.IsOpen()
	fields := make(map[string]Type)
	bFields := make(map[string]Type, len(b.Fields()))
	for i, f := range b.Fields() {
		bFields[f] = b.Child(i)
	}
	for i, f := range a.Fields() {
		if bt, ok := bFields[f]; ok {
			ft := intersect2(a.Child(i), bt)
			if ft == tVoid {
				return tVoid
			}
			fields[f] = ft
			delete(bFields, f)
		} else if bOpen {
			fields[f] = a.Child(i)
		} else {
			return tVoid
		}
	}
	for f, bt := range bFields {
		if !aOpen {
			return tVoid
		}
		fields[f] = bt
	}
	return Record(aOpen && bOpen, fields)
}

// rawIntersect builds an intersection node without further local
// reasoning, keeping the canonical child ordering invariants.
func rawIntersect(ts ...Type) Type {
	flat := make([]Type, 0, len(ts))
	for _, t := range ts {
		if t.Kind() == KIntersection {
			flat = append(flat, t.Children()...)
		} else {
			flat = append(flat, t)
		}
	}
	flat = normalize(flat, tAny)
	for _, t := range flat {
		if t == tVoid {
			return tVoid
		}
	}
	switch len(flat) {
	case 0:
		return tAny
	case 1:
		return flat[0]
	}
	return intern(state{kind: KIntersection, children: flat})
}

func isLeaf(k Kind) bool {
	switch k {
	case KVoid, KAny, KNull, KBool, KByte, KInt, KReal, KChar, KString, KMeta:
		return true
	}
	return false
}

// Negation constructs the complement of a type. Double negations are
// collapsed and negation is lifted through unions and intersections by
// De Morgan's laws, so a negation node never wraps another negation,
// union or intersection.
func Negation(t Type) Type {
	switch t.Kind() {
	case KNegation:
		return t.Child(0)
	case KVoid:
		return tAny
	case KAny:
		return tVoid
	case KUnion:
		negated := make([]Type, t.NumChildren())
		for i, c := range t.Children() {
			negated[i] = Negation(c)
		}
		return Intersect(negated...)
	case KIntersection:
		negated := make([]Type, t.NumChildren())
		for i, c := range t.Children() {
			negated[i] = Negation(c)
		}
		return Union(negated...)
	}
	return intern(state{kind: KNegation, children: []Type{t}})
}

// normalize sorts the children, removes duplicates and drops the given
// identity element.
func normalize(ts []Type, identity Type) []Type {
	sort.Slice(ts, func(i, j int) bool { return ts[i] < ts[j] })
	out := ts[:0]
	var last Type = -1
	for _, t := range ts {
		if t == identity || t == last {
			continue
		}
		out = append(out, t)
		last = t
	}
	return out
}
