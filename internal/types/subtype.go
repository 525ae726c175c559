package types

import "strings"

// Engine decides subtyping over canonical types. For the most part one
// can take subtype to mean subset: T1 <: T2 holds iff the set of
// values represented by T1 is a subset of those represented by T2
// (function types bend this analogy through contravariance).
//
// The engine actually computes the intersection relation: whether a
// non-empty intersection exists between two (possibly negated) types.
// Subtyping reduces to it, since A <: B iff A & !B is uninhabited.
// Computing intersections was chosen over computing subtypes directly
// because the sign bookkeeping composes more simply.
//
// Recursive types reach the engine through nominal expansion. An
// in-progress query set keyed by (type, sign, type, sign) breaks the
// resulting cycles: re-entering an in-progress query answers
// "no intersection", which is the coinductive reading of recursive
// types. The set is per-query and reset on every public call.
type Engine struct {
	resolver    NominalResolver
	expansions  map[string]Type
	assumptions map[assumption]struct{}
}

// assumption identifies an in-progress intersection query. Signs are
// true for a type taken as itself and false for its complement.
type assumption struct {
	a     Type
	aSign bool
	b     Type
	bSign bool
}

// NewEngine creates a subtype engine. The resolver may be nil, in
// which case nominal types are compared by name only.
func NewEngine(resolver NominalResolver) *Engine {
	return &Engine{
		resolver:   resolver,
		expansions: make(map[string]Type),
	}
}

// IsSubtype reports whether a <: b.
func (e *Engine) IsSubtype(a, b Type) bool {
	e.assumptions = make(map[assumption]struct{})
	return !e.isIntersection(a, true, b, false)
}

// IsSupertype reports whether a :> b.
func (e *Engine) IsSupertype(a, b Type) bool {
	e.assumptions = make(map[assumption]struct{})
	return !e.isIntersection(a, false, b, true)
}

// IsEmpty reports whether the given type is uninhabited.
func (e *Engine) IsEmpty(t Type) bool {
	return e.IsSubtype(t, tVoid)
}

// isIntersection determines whether there is a non-empty intersection
// between a (under aSign) and b (under bSign). A false sign means the
// type is taken as its complement.
func (e *Engine) isIntersection(a Type, aSign bool, b Type, bSign bool) bool {
	key := assumption{a, aSign, b, bSign}
	if _, ok := e.assumptions[key]; ok {
		return false
	}
	e.assumptions[key] = struct{}{}
	r := e.isIntersectionInner(a, aSign, b, bSign)
	delete(e.assumptions, key)
	return r
}

func (e *Engine) isIntersectionInner(a Type, aSign bool, b Type, bSign bool) bool {
	aKind := a.Kind()
	bKind := b.Kind()

	if aKind == bKind {
		switch aKind {
		case KVoid:
			return !aSign && !bSign
		case KAny:
			return aSign && bSign
		case KNominal:
			if aSign || bSign {
				if a.Name() == b.Name() {
					return aSign && bSign
				}
				// distinct names are disjoint under nominal reasoning
				return !aSign || !bSign
			}
			return true
		case KList, KSet:
			// != rather than || below: two positive collection types
			// always intersect on the empty collection.
			if aSign != bSign {
				if !e.isIntersection(a.Element(), aSign, b.Element(), bSign) {
					return false
				}
			}
			return true
		case KReference, KMap, KTuple:
			if aSign || bSign {
				ac, bc := a.Children(), b.Children()
				if len(ac) != len(bc) {
					return !aSign || !bSign
				}
				andChildren, orChildren := true, false
				for i := range ac {
					v := e.isIntersection(ac[i], aSign, bc[i], bSign)
					andChildren = andChildren && v
					orChildren = orChildren || v
				}
				if !aSign || !bSign {
					return orChildren
				}
				return andChildren
			}
			return true
		case KRecord:
			return e.intersectRecords(a, aSign, b, bSign)
		case KNegation, KUnion, KIntersection:
			// handled by the general cases below the switch
		case KFunction, KMethod:
			if aSign || bSign {
				ac, bc := a.Children(), b.Children()
				if len(ac) != len(bc) {
					return !aSign || !bSign
				}
				andChildren, orChildren := true, false
				for i := range ac {
					var v bool
					if i <= 1 {
						// return and throws types are covariant
						v = e.isIntersection(ac[i], aSign, bc[i], bSign)
					} else {
						// parameter types are contravariant
						v = e.isIntersection(ac[i], !aSign, bc[i], !bSign)
					}
					andChildren = andChildren && v
					orChildren = orChildren || v
				}
				if !aSign || !bSign {
					return orChildren
				}
				return andChildren
			}
			return true
		default:
			// remaining primitive kinds intersect iff signs agree
			return aSign == bSign
		}
	}

	if aKind == KNegation {
		return e.isIntersection(a.Child(0), !aSign, b, bSign)
	} else if bKind == KNegation {
		return e.isIntersection(a, aSign, b.Child(0), !bSign)
	}

	// A list type and a set type always share the empty collection, so
	// their positive intersection is inhabited; every signed variant
	// is witnessed by a non-empty collection or a non-collection.
	if (aKind == KList && bKind == KSet) || (aKind == KSet && bKind == KList) {
		return true
	}

	// A nominal against any structural type is decided by expanding
	// the nominal to its definition. Expansion happens before the
	// union and intersection decompositions: decomposing against a
	// still-folded nominal loses the correlation between conjuncts.
	if aKind == KNominal {
		if x, ok := e.expandType(a); ok {
			return e.isIntersection(x, aSign, b, bSign)
		}
	}
	if bKind == KNominal {
		if x, ok := e.expandType(b); ok {
			return e.isIntersection(a, aSign, x, bSign)
		}
	}

	// Inverting kinds under their signs reduces the number of cases.
	aK := invertKind(aKind, aSign)
	bK := invertKind(bKind, bSign)

	if aK == KVoid || bK == KVoid {
		return false
	} else if aK == KUnion {
		for _, c := range a.Children() {
			if e.isIntersection(c, aSign, b, bSign) {
				return true
			}
		}
		return false
	} else if bK == KUnion {
		for _, c := range b.Children() {
			if e.isIntersection(a, aSign, c, bSign) {
				return true
			}
		}
		return false
	} else if aK == KIntersection {
		for _, c := range a.Children() {
			if !e.isIntersection(c, aSign, b, bSign) {
				return false
			}
		}
		return true
	} else if bK == KIntersection {
		for _, c := range b.Children() {
			if !e.isIntersection(a, aSign, c, bSign) {
				return false
			}
		}
		return true
	} else if aK == KAny || bK == KAny {
		return true
	}

	return !aSign || !bSign
}

// intersectRecords checks for an intersection between two record
// types. Open records act as "any" for their unspecified fields; the
// two sorted field lists are walked in lockstep, pairing common fields
// and testing lone fields against the other side's openness.
func (e *Engine) intersectRecords(a Type, aSign bool, b Type, bSign bool) bool {
	if !aSign && !bSign {
		return true
	}

	af, bf := a.Fields(), b.Fields()
	ac, bc := a.Children(), b.Children()
	aOpen, bOpen := a.IsOpen(), b.IsOpen()

	if len(ac) < len(bc) && !aOpen {
		return !aSign || !bSign
	} else if len(ac) > len(bc) && !bOpen {
		return !aSign || !bSign
	} else if !aSign && !aOpen && bOpen {
		return true
	} else if !bSign && !bOpen && aOpen {
		return true
	}

	andChildren, orChildren := true, false

	ai, bi := 0, 0
	for ai != len(af) && bi != len(bf) {
		var v bool
		c := strings.Compare(af[ai], bf[bi])
		if c == 0 {
			v = e.isIntersection(ac[ai], aSign, bc[bi], bSign)
			ai++
			bi++
		} else if c < 0 && bOpen {
			ai++
			v = bSign
		} else if c > 0 && aOpen {
			bi++
			v = aSign
		} else {
			return !aSign || !bSign
		}
		andChildren = andChildren && v
		orChildren = orChildren || v
	}

	if ai < len(af) {
		if bOpen {
			orChildren = orChildren || bSign
			andChildren = andChildren && bSign
		} else {
			return !aSign || !bSign
		}
	} else if bi < len(bf) {
		if aOpen {
			orChildren = orChildren || aSign
			andChildren = andChildren && aSign
		} else {
			return !aSign || !bSign
		}
	}

	if !aSign || !bSign {
		return orChildren
	}
	return andChildren
}

// invertKind folds a negative sign into the kind where possible,
// reducing the case analysis: !any behaves as void, !union as an
// intersection of complements, and vice versa.
func invertKind(k Kind, sign bool) Kind {
	if sign {
		return k
	}
	switch k {
	case KAny:
		return KVoid
	case KVoid:
		return KAny
	case KUnion:
		return KIntersection
	case KIntersection:
		return KUnion
	default:
		return k
	}
}

// expandType resolves a nominal type to its structural definition,
// memoizing the result for the lifetime of the engine.
func (e *Engine) expandType(t Type) (Type, bool) {
	if e.resolver == nil {
		return tVoid, false
	}
	name := t.Name()
	if x, ok := e.expansions[name]; ok {
		return x, true
	}
	x, err := e.resolver.Expand(name)
	if err != nil {
		return tVoid, false
	}
	e.expansions[name] = x
	return x, true
}
