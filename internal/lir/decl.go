package lir

import (
	"github.com/wyrm-lang/wyrm/internal/types"
	"github.com/wyrm-lang/wyrm/internal/value"
)

// Module is a compilation unit of lowered declarations, including any
// lambda functions synthesized during generation.
type Module struct {
	Name         string
	Filename     string
	Declarations []Decl
}

// Decl is implemented by all lowered declarations.
type Decl interface {
	isDecl()
	DeclName() string
}

// ConstantDecl is a lowered constant declaration.
type ConstantDecl struct {
	Name  string
	Value value.Value
}

// DeclName returns the declared name.
func (d *ConstantDecl) DeclName() string { return d.Name }

// TypeDecl is a lowered type declaration. The invariant block, if
// present, takes the value under test in register 0.
type TypeDecl struct {
	Name      string
	Type      types.Type
	Invariant *CodeBlock // may be nil
}

// DeclName returns the declared name.
func (d *TypeDecl) DeclName() string { return d.Name }

// FunctionDecl is a lowered function or method. Parameters occupy
// registers 0..n-1 of the body in declaration order.
type FunctionDecl struct {
	Name          string
	Type          types.Type
	Body          *CodeBlock
	Precondition  *CodeBlock // may be nil
	Postcondition *CodeBlock // may be nil
}

// DeclName returns the declared name.
func (d *FunctionDecl) DeclName() string { return d.Name }

func (*ConstantDecl) isDecl() {}
func (*TypeDecl) isDecl()     {}
func (*FunctionDecl) isDecl() {}

// Function returns the named function declaration of this module, or
// nil.
func (m *Module) Function(name string) *FunctionDecl {
	for _, d := range m.Declarations {
		if fd, ok := d.(*FunctionDecl); ok && fd.Name == name {
			return fd
		}
	}
	return nil
}
