// Package types implements the structural type algebra of the Wyrm
// language. Types are nodes in a canonical, interned DAG: every
// distinct type is constructed exactly once, so structural equality is
// index equality and subtype queries can cache in-progress work by
// index. Cycles arise only through nominal types, which are leaf nodes
// expanded on demand via a NominalResolver.
package types

import (
	"strconv"
	"strings"
	"sync"
)

// Kind identifies the node kind of a type.
type Kind int

const (
	KVoid Kind = iota
	KAny
	KNull
	KBool
	KByte
	KInt
	KReal
	KChar
	KString
	KMeta
	KNominal
	KRecord
	KTuple
	KList
	KSet
	KMap
	KReference
	KFunction
	KMethod
	KUnion
	KIntersection
	KNegation
)

// Type is an index into the global interning table. The zero value is
// the void type.
type Type int

// state is one node of the type automaton. States are immutable once
// interned.
type state struct {
	kind     Kind
	children []Type
	fields   []string // record field names, strictly sorted
	open     bool     // record openness
	name     string   // nominal name
}

var (
	tableMu  sync.RWMutex
	table    []state
	interned map[string]Type
)

var (
	tVoid   Type
	tAny    Type
	tNull   Type
	tBool   Type
	tByte   Type
	tInt    Type
	tReal   Type
	tChar   Type
	tString Type
	tMeta   Type
)

func init() {
	interned = make(map[string]Type)
	tVoid = intern(state{kind: KVoid})
	tAny = intern(state{kind: KAny})
	tNull = intern(state{kind: KNull})
	tBool = intern(state{kind: KBool})
	tByte = intern(state{kind: KByte})
	tInt = intern(state{kind: KInt})
	tReal = intern(state{kind: KReal})
	tChar = intern(state{kind: KChar})
	tString = intern(state{kind: KString})
	tMeta = intern(state{kind: KMeta})
}

// key produces the canonical interning key for a state. Children are
// identified by index, which is already canonical.
func key(s state) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(int(s.kind)))
	b.WriteByte('(')
	for i, c := range s.children {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(int(c)))
	}
	b.WriteByte(')')
	for _, f := range s.fields {
		b.WriteString(f)
		b.WriteByte(';')
	}
	if s.open {
		b.WriteByte('+')
	}
	b.WriteString(s.name)
	return b.String()
}

func intern(s state) Type {
	k := key(s)
	tableMu.Lock()
	defer tableMu.Unlock()
	if idx, ok := interned[k]; ok {
		return idx
	}
	idx := Type(len(table))
	table = append(table, s)
	interned[k] = idx
	return idx
}

func lookup(t Type) state {
	tableMu.RLock()
	defer tableMu.RUnlock()
	return table[t]
}

// Size returns the number of interned types. Useful for sizing
// per-query caches.
func Size() int {
	tableMu.RLock()
	defer tableMu.RUnlock()
	return len(table)
}

// Kind returns the node kind of this type.
func (t Type) Kind() Kind {
	return lookup(t).kind
}

// NumChildren returns the number of child types.
func (t Type) NumChildren() int {
	return len(lookup(t).children)
}

// Children returns the ordered child types. The returned slice must
// not be mutated.
func (t Type) Children() []Type {
	return lookup(t).children
}

// Child returns the i'th child type.
func (t Type) Child(i int) Type {
	return lookup(t).children[i]
}

// Fields returns the sorted field names of a record type.
func (t Type) Fields() []string {
	return lookup(t).fields
}

// IsOpen returns the openness flag of a record type.
func (t Type) IsOpen() bool {
	return lookup(t).open
}

// Name returns the qualified name of a nominal type.
func (t Type) Name() string {
	return lookup(t).name
}

// Element returns the element type of a list or set.
func (t Type) Element() Type {
	return t.Child(0)
}

// MapKey returns the key type of a map.
func (t Type) MapKey() Type {
	return t.Child(0)
}

// MapValue returns the value type of a map.
func (t Type) MapValue() Type {
	return t.Child(1)
}

// Ret returns the return type of a function or method.
func (t Type) Ret() Type {
	return t.Child(0)
}

// ThrowsType returns the throws type of a function or method.
func (t Type) ThrowsType() Type {
	return t.Child(1)
}

// Params returns the parameter types of a function or method.
func (t Type) Params() []Type {
	return t.Children()[2:]
}

// Field returns the type of the named record field, if present.
func (t Type) Field(name string) (Type, bool) {
	s := lookup(t)
	for i, f := range s.fields {
		if f == name {
			return s.children[i], true
		}
	}
	return tVoid, false
}
