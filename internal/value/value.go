// Package value models the compile-time constant values of the Wyrm
// language: literals in source programs, switch case labels, and the
// payloads of Const instructions in the IR.
package value

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/wyrm-lang/wyrm/internal/types"
)

// Value is a compile-time constant.
type Value interface {
	// Type returns the type of this constant.
	Type() types.Type
	// Key returns a canonical representation usable for duplicate
	// detection, e.g. of switch case labels.
	Key() string
	// String renders the constant in source notation.
	String() string
}

// Null is the null constant.
type Null struct{}

// Type implements Value.
func (Null) Type() types.Type { return types.Null() }

// Key implements Value.
func (Null) Key() string { return "null" }

func (Null) String() string { return "null" }

// Bool is a boolean constant.
type Bool struct {
	Value bool
}

// Type implements Value.
func (Bool) Type() types.Type { return types.Bool() }

// Key implements Value.
func (v Bool) Key() string { return fmt.Sprintf("b:%v", v.Value) }

func (v Bool) String() string { return fmt.Sprintf("%v", v.Value) }

// Byte is a byte constant.
type Byte struct {
	Value uint8
}

// Type implements Value.
func (Byte) Type() types.Type { return types.Byte() }

// Key implements Value.
func (v Byte) Key() string { return fmt.Sprintf("y:%d", v.Value) }

func (v Byte) String() string { return fmt.Sprintf("%08bb", v.Value) }

// Int is an unbounded integer constant.
type Int struct {
	Value *big.Int
}

// NewInt creates an integer constant from an int64.
func NewInt(v int64) Int {
	return Int{Value: big.NewInt(v)}
}

// Type implements Value.
func (Int) Type() types.Type { return types.Int() }

// Key implements Value.
func (v Int) Key() string { return "i:" + v.Value.String() }

func (v Int) String() string { return v.Value.String() }

// Real is a rational constant.
type Real struct {
	Value *big.Rat
}

// NewReal creates a rational constant from a float64.
func NewReal(v float64) Real {
	return Real{Value: new(big.Rat).SetFloat64(v)}
}

// Type implements Value.
func (Real) Type() types.Type { return types.Real() }

// Key implements Value.
func (v Real) Key() string { return "r:" + v.Value.RatString() }

func (v Real) String() string { return v.Value.RatString() }

// Char is a character constant.
type Char struct {
	Value rune
}

// Type implements Value.
func (Char) Type() types.Type { return types.Char() }

// Key implements Value.
func (v Char) Key() string { return fmt.Sprintf("c:%d", v.Value) }

func (v Char) String() string { return fmt.Sprintf("%q", v.Value) }

// Str is a string constant.
type Str struct {
	Value string
}

// Type implements Value.
func (Str) Type() types.Type { return types.String() }

// Key implements Value.
func (v Str) Key() string { return "s:" + v.Value }

func (v Str) String() string { return fmt.Sprintf("%q", v.Value) }

// List is a list constant.
type List struct {
	Values []Value
}

// Type implements Value.
func (v List) Type() types.Type {
	element := types.Void()
	for _, e := range v.Values {
		element = types.Union(element, e.Type())
	}
	return types.List(element)
}

// Key implements Value.
func (v List) Key() string {
	keys := make([]string, len(v.Values))
	for i, e := range v.Values {
		keys[i] = e.Key()
	}
	return "l:[" + strings.Join(keys, ",") + "]"
}

func (v List) String() string {
	parts := make([]string, len(v.Values))
	for i, e := range v.Values {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Set is a set constant.
type Set struct {
	Values []Value
}

// Type implements Value.
func (v Set) Type() types.Type {
	element := types.Void()
	for _, e := range v.Values {
		element = types.Union(element, e.Type())
	}
	return types.Set(element)
}

// Key implements Value.
func (v Set) Key() string {
	keys := make([]string, len(v.Values))
	for i, e := range v.Values {
		keys[i] = e.Key()
	}
	sort.Strings(keys)
	return "e:{" + strings.Join(keys, ",") + "}"
}

func (v Set) String() string {
	parts := make([]string, len(v.Values))
	for i, e := range v.Values {
		parts[i] = e.String()
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// Tuple is a tuple constant.
type Tuple struct {
	Values []Value
}

// Type implements Value.
func (v Tuple) Type() types.Type {
	elems := make([]types.Type, len(v.Values))
	for i, e := range v.Values {
		elems[i] = e.Type()
	}
	return types.Tuple(elems...)
}

// Key implements Value.
func (v Tuple) Key() string {
	keys := make([]string, len(v.Values))
	for i, e := range v.Values {
		keys[i] = e.Key()
	}
	return "t:(" + strings.Join(keys, ",") + ")"
}

func (v Tuple) String() string {
	parts := make([]string, len(v.Values))
	for i, e := range v.Values {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ",") + ")"
}

// Record is a record constant.
type Record struct {
	Fields map[string]Value
}

func (v Record) sortedFields() []string {
	names := make([]string, 0, len(v.Fields))
	for n := range v.Fields {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Type implements Value.
func (v Record) Type() types.Type {
	fields := make(map[string]types.Type, len(v.Fields))
	for n, e := range v.Fields {
		fields[n] = e.Type()
	}
	return types.Record(false, fields)
}

// Key implements Value.
func (v Record) Key() string {
	var b strings.Builder
	b.WriteString("rec:{")
	for i, n := range v.sortedFields() {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(n)
		b.WriteByte('=')
		b.WriteString(v.Fields[n].Key())
	}
	b.WriteByte('}')
	return b.String()
}

func (v Record) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, n := range v.sortedFields() {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(n)
		b.WriteString(": ")
		b.WriteString(v.Fields[n].String())
	}
	b.WriteByte('}')
	return b.String()
}

// TypeVal is a type used as a value, as produced by a type expression
// in term position.
type TypeVal struct {
	Value types.Type
}

// Type implements Value.
func (TypeVal) Type() types.Type { return types.Meta() }

// Key implements Value.
func (v TypeVal) Key() string { return fmt.Sprintf("m:%d", v.Value) }

func (v TypeVal) String() string { return v.Value.String() }
