package types

// This file implements the coercive subtype relations and the
// "effective" views of types used by the resolver. An effective X is a
// type that is structurally usable as an X once all nominal names have
// been expanded; unions of Xs are folded into a single X view.

// IsImplicitCoerciveSubtype reports whether sup :> sub under the
// implicit promotions of the language: char to int, int to real, and
// list(T) to set(T).
func (e *Engine) IsImplicitCoerciveSubtype(sup, sub Type) bool {
	return e.coercive(sup, sub, make(map[assumption]struct{}))
}

// IsExplicitCoerciveSubtype reports whether a cast from sub to sup is
// permitted. Casts additionally allow narrowing between the numeric
// types.
func (e *Engine) IsExplicitCoerciveSubtype(sup, sub Type) bool {
	if e.IsImplicitCoerciveSubtype(sup, sub) {
		return true
	}
	return isNumeric(sup.Kind()) && isNumeric(sub.Kind())
}

func isNumeric(k Kind) bool {
	return k == KByte || k == KChar || k == KInt || k == KReal
}

func (e *Engine) coercive(sup, sub Type, seen map[assumption]struct{}) bool {
	key := assumption{sup, true, sub, true}
	if _, ok := seen[key]; ok {
		return true
	}
	seen[key] = struct{}{}

	if e.IsSubtype(sub, sup) {
		return true
	}

	switch sup.Kind() {
	case KReal:
		if e.coercive(tInt, sub, seen) {
			return true
		}
	case KInt:
		if e.IsSubtype(sub, tChar) {
			return true
		}
	case KSet:
		if elem, ok := e.AsEffectiveList(sub); ok {
			return e.coercive(sup.Element(), elem, seen)
		}
	case KList:
		if sub.Kind() == KList {
			return e.coercive(sup.Element(), sub.Element(), seen)
		}
	case KMap:
		if sub.Kind() == KMap {
			return e.coercive(sup.MapKey(), sub.MapKey(), seen) &&
				e.coercive(sup.MapValue(), sub.MapValue(), seen)
		}
	case KTuple:
		if sub.Kind() == KTuple && sup.NumChildren() == sub.NumChildren() {
			for i := range sup.Children() {
				if !e.coercive(sup.Child(i), sub.Child(i), seen) {
					return false
				}
			}
			return true
		}
	case KRecord:
		if sub.Kind() == KRecord {
			return e.coerciveRecord(sup, sub, seen)
		}
	case KUnion:
		for _, c := range sup.Children() {
			if e.coercive(c, sub, seen) {
				return true
			}
		}
	case KNominal:
		if x, ok := e.expandType(sup); ok {
			return e.coercive(x, sub, seen)
		}
	}

	switch sub.Kind() {
	case KUnion:
		for _, c := range sub.Children() {
			if !e.coercive(sup, c, seen) {
				return false
			}
		}
		return true
	case KNominal:
		if x, ok := e.expandType(sub); ok {
			return e.coercive(sup, x, seen)
		}
	}

	return false
}

func (e *Engine) coerciveRecord(sup, sub Type, seen map[assumption]struct{}) bool {
	// every field required by sup must be present in sub at a coercive
	// subtype; sub may carry extra fields only if sup is open
	subFields := make(map[string]Type, len(sub.Fields()))
	for i, f := range sub.Fields() {
		subFields[f] = sub.Child(i)
	}
	for i, f := range sup.Fields() {
		ft, ok := subFields[f]
		if !ok {
			return false
		}
		if !e.coercive(sup.Child(i), ft, seen) {
			return false
		}
		delete(subFields, f)
	}
	if len(subFields) > 0 && !sup.IsOpen() {
		return false
	}
	return true
}

// AsEffectiveList returns the element type of an effective list.
func (e *Engine) AsEffectiveList(t Type) (Type, bool) {
	return e.effectiveElement(t, KList)
}

// AsEffectiveSet returns the element type of an effective set.
func (e *Engine) AsEffectiveSet(t Type) (Type, bool) {
	return e.effectiveElement(t, KSet)
}

// AsEffectiveCollection returns the expanded collection type and its
// element type for any effective list, set or map. For maps the
// element is the (key, value) tuple, matching the iteration order of
// the for-all loop.
func (e *Engine) AsEffectiveCollection(t Type) (Type, Type, bool) {
	x := e.expandFully(t)
	switch x.Kind() {
	case KList, KSet:
		return x, x.Element(), true
	case KMap:
		return x, Tuple(x.MapKey(), x.MapValue()), true
	case KUnion:
		elems := make([]Type, 0, x.NumChildren())
		for _, c := range x.Children() {
			_, elem, ok := e.AsEffectiveCollection(c)
			if !ok {
				return tVoid, tVoid, false
			}
			elems = append(elems, elem)
		}
		return x, Union(elems...), true
	}
	return tVoid, tVoid, false
}

// AsEffectiveMap returns the key and value types of an effective map.
func (e *Engine) AsEffectiveMap(t Type) (Type, Type, bool) {
	x := e.expandFully(t)
	switch x.Kind() {
	case KMap:
		return x.MapKey(), x.MapValue(), true
	case KUnion:
		keys := make([]Type, 0, x.NumChildren())
		vals := make([]Type, 0, x.NumChildren())
		for _, c := range x.Children() {
			k, v, ok := e.AsEffectiveMap(c)
			if !ok {
				return tVoid, tVoid, false
			}
			keys = append(keys, k)
			vals = append(vals, v)
		}
		return Union(keys...), Union(vals...), true
	}
	return tVoid, tVoid, false
}

// AsEffectiveRecord returns the expanded record view of a type: the
// common fields of every record in the expansion, each at the union of
// its types.
func (e *Engine) AsEffectiveRecord(t Type) (Type, bool) {
	x := e.expandFully(t)
	switch x.Kind() {
	case KRecord:
		return x, true
	case KUnion:
		var fields map[string]Type
		open := false
		for _, c := range x.Children() {
			r, ok := e.AsEffectiveRecord(c)
			if !ok {
				return tVoid, false
			}
			open = open || r.IsOpen()
			these := make(map[string]Type, len(r.Fields()))
			for i, f := range r.Fields() {
				these[f] = r.Child(i)
			}
			if fields == nil {
				fields = these
				continue
			}
			for f, ft := range fields {
				if ct, ok := these[f]; ok {
					fields[f] = Union(ft, ct)
				} else {
					delete(fields, f)
				}
			}
		}
		if len(fields) == 0 {
			return tVoid, false
		}
		return Record(open, fields), true
	}
	return tVoid, false
}

// AsEffectiveTuple returns the element types of an effective tuple.
func (e *Engine) AsEffectiveTuple(t Type) ([]Type, bool) {
	x := e.expandFully(t)
	switch x.Kind() {
	case KTuple:
		return x.Children(), true
	case KUnion:
		var elems []Type
		for _, c := range x.Children() {
			ce, ok := e.AsEffectiveTuple(c)
			if !ok {
				return nil, false
			}
			if elems == nil {
				elems = append([]Type(nil), ce...)
				continue
			}
			if len(ce) != len(elems) {
				return nil, false
			}
			for i := range elems {
				elems[i] = Union(elems[i], ce[i])
			}
		}
		return elems, elems != nil
	}
	return nil, false
}

// AsEffectiveReference returns the referent type of an effective
// reference.
func (e *Engine) AsEffectiveReference(t Type) (Type, bool) {
	x := e.expandFully(t)
	if x.Kind() == KReference {
		return x.Element(), true
	}
	return tVoid, false
}

// AsEffectiveFunctionOrMethod returns the expanded function or method
// type of an effective callable.
func (e *Engine) AsEffectiveFunctionOrMethod(t Type) (Type, bool) {
	x := e.expandFully(t)
	if x.Kind() == KFunction || x.Kind() == KMethod {
		return x, true
	}
	return tVoid, false
}

func (e *Engine) effectiveElement(t Type, kind Kind) (Type, bool) {
	x := e.expandFully(t)
	switch x.Kind() {
	case kind:
		return x.Element(), true
	case KUnion:
		elems := make([]Type, 0, x.NumChildren())
		for _, c := range x.Children() {
			elem, ok := e.effectiveElement(c, kind)
			if !ok {
				return tVoid, false
			}
			elems = append(elems, elem)
		}
		return Union(elems...), true
	}
	return tVoid, false
}

// expandFully chases nominal names until a structural type is reached.
func (e *Engine) expandFully(t Type) Type {
	for i := 0; t.Kind() == KNominal && i < 64; i++ {
		x, ok := e.expandType(t)
		if !ok {
			return t
		}
		t = x
	}
	return t
}
