package types

import (
	"strings"
)

// String renders a type in source-like notation. Interning guarantees
// the automaton is a DAG, so a plain recursive walk terminates.
func (t Type) String() string {
	var b strings.Builder
	t.write(&b)
	return b.String()
}

func (t Type) write(b *strings.Builder) {
	switch t.Kind() {
	case KVoid:
		b.WriteString("void")
	case KAny:
		b.WriteString("any")
	case KNull:
		b.WriteString("null")
	case KBool:
		b.WriteString("bool")
	case KByte:
		b.WriteString("byte")
	case KInt:
		b.WriteString("int")
	case KReal:
		b.WriteString("real")
	case KChar:
		b.WriteString("char")
	case KString:
		b.WriteString("string")
	case KMeta:
		b.WriteString("meta")
	case KNominal:
		b.WriteString(t.Name())
	case KRecord:
		b.WriteByte('{')
		for i, f := range t.Fields() {
			if i > 0 {
				b.WriteByte(',')
			}
			t.Child(i).write(b)
			b.WriteByte(' ')
			b.WriteString(f)
		}
		if t.IsOpen() {
			b.WriteString(",...")
		}
		b.WriteByte('}')
	case KTuple:
		b.WriteByte('(')
		for i, c := range t.Children() {
			if i > 0 {
				b.WriteByte(',')
			}
			c.write(b)
		}
		b.WriteByte(')')
	case KList:
		b.WriteByte('[')
		t.Element().write(b)
		b.WriteByte(']')
	case KSet:
		b.WriteByte('{')
		t.Element().write(b)
		b.WriteByte('}')
	case KMap:
		b.WriteByte('{')
		t.MapKey().write(b)
		b.WriteString("=>")
		t.MapValue().write(b)
		b.WriteByte('}')
	case KReference:
		b.WriteByte('&')
		t.Element().write(b)
	case KFunction, KMethod:
		if t.Kind() == KFunction {
			b.WriteString("function(")
		} else {
			b.WriteString("method(")
		}
		for i, p := range t.Params() {
			if i > 0 {
				b.WriteByte(',')
			}
			p.write(b)
		}
		b.WriteString(")=>")
		t.Ret().write(b)
		if t.ThrowsType() != tVoid {
			b.WriteString(" throws ")
			t.ThrowsType().write(b)
		}
	case KUnion:
		for i, c := range t.Children() {
			if i > 0 {
				b.WriteByte('|')
			}
			c.write(b)
		}
	case KIntersection:
		for i, c := range t.Children() {
			if i > 0 {
				b.WriteByte('&')
			}
			c.write(b)
		}
	case KNegation:
		b.WriteByte('!')
		child := t.Child(0)
		switch child.Kind() {
		case KUnion, KIntersection, KFunction, KMethod:
			b.WriteByte('(')
			child.write(b)
			b.WriteByte(')')
		default:
			child.write(b)
		}
	default:
		b.WriteString("?")
	}
}
