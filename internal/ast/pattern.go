package ast

import "github.com/wyrm-lang/wyrm/internal/position"

// Pattern is a destructuring tree for variable and type declarations.
type Pattern interface {
	Span() position.Span
	patternNode()
}

// PatternAttr carries the source attributes shared by all pattern
// nodes.
type PatternAttr struct {
	Pos position.Span
}

// Span returns the source span of this pattern.
func (a PatternAttr) Span() position.Span { return a.Pos }

func (PatternAttr) patternNode() {}

// LeafPattern binds the matched value to a variable, or discards it
// when Var is empty.
type LeafPattern struct {
	PatternAttr
	Var string
}

// PatternField is one named field of a record pattern.
type PatternField struct {
	Name string
	Pat  Pattern
}

// RecordPattern destructures a record by field name.
type RecordPattern struct {
	PatternAttr
	Fields []PatternField
}

// TuplePattern destructures a tuple by position.
type TuplePattern struct {
	PatternAttr
	Elements []Pattern
}

// RationalPattern destructures a rational into numerator and
// denominator.
type RationalPattern struct {
	PatternAttr
	Numerator   Pattern
	Denominator Pattern
}
