package codegen

import "github.com/wyrm-lang/wyrm/internal/types"

// Environment maintains the mapping from source-level variable names
// to block registers, together with the declared type of every
// allocated register. Registers are handed out monotonically and never
// reused.
type Environment struct {
	vars map[string]int
	regs []types.Type
}

// NewEnvironment creates an empty register environment.
func NewEnvironment() *Environment {
	return &Environment{vars: make(map[string]int)}
}

// Allocate reserves a fresh register of the given type.
func (e *Environment) Allocate(t types.Type) int {
	idx := len(e.regs)
	e.regs = append(e.regs, t)
	return idx
}

// AllocateVar reserves a fresh register and binds a variable name to
// it.
func (e *Environment) AllocateVar(t types.Type, name string) int {
	r := e.Allocate(t)
	e.vars[name] = r
	return r
}

// Lookup returns the register holding the named variable.
func (e *Environment) Lookup(name string) (int, bool) {
	r, ok := e.vars[name]
	return r, ok
}

// Bind associates a variable name with an existing register, as when
// a catch handler rebinds its variable to the exception register.
func (e *Environment) Bind(reg int, name string) {
	e.vars[name] = reg
}

// TypeOf returns the declared type of a register.
func (e *Environment) TypeOf(reg int) types.Type {
	return e.regs[reg]
}

// Size returns the number of allocated registers.
func (e *Environment) Size() int {
	return len(e.regs)
}
