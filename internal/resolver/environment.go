package resolver

import "github.com/wyrm-lang/wyrm/internal/types"

// Environment is a flow-sensitive mapping from variable names to their
// current type. Environments have value semantics: Put returns an
// updated copy, and the refinement logic freely forks them at control
// flow splits. A distinguished bottom environment represents an
// unreachable branch and is absorbed by Join.
type Environment struct {
	vars   map[string]types.Type
	bottom bool
}

// NewEnvironment creates an empty environment.
func NewEnvironment() *Environment {
	return &Environment{vars: make(map[string]types.Type)}
}

// Bottom returns the environment of an unreachable program point.
func Bottom() *Environment {
	return &Environment{bottom: true}
}

// IsBottom reports whether this is the unreachable environment.
func (e *Environment) IsBottom() bool {
	return e.bottom
}

// Clone produces an independent copy of this environment.
func (e *Environment) Clone() *Environment {
	if e.bottom {
		return Bottom()
	}
	vars := make(map[string]types.Type, len(e.vars))
	for k, v := range e.vars {
		vars[k] = v
	}
	return &Environment{vars: vars}
}

// Put returns a copy of this environment with the variable bound to
// the given type.
func (e *Environment) Put(name string, t types.Type) *Environment {
	out := e.Clone()
	if out.bottom {
		out = NewEnvironment()
	}
	out.vars[name] = t
	return out
}

// Get returns the current type of a variable.
func (e *Environment) Get(name string) (types.Type, bool) {
	if e.bottom {
		return types.Void(), false
	}
	t, ok := e.vars[name]
	return t, ok
}

// Names returns the number of bound variables.
func (e *Environment) Names() int {
	return len(e.vars)
}

// Join computes the merge of two environments at a control flow join:
// for every variable present in both, the union of its two types.
// Variables present on only one side are dropped. The bottom
// environment is the identity of Join.
func Join(a, b *Environment) *Environment {
	if a.bottom {
		return b
	}
	if b.bottom {
		return a
	}
	out := NewEnvironment()
	for name, at := range a.vars {
		if bt, ok := b.vars[name]; ok {
			out.vars[name] = types.Union(at, bt)
		}
	}
	return out
}
