// Package modules implements the in-memory project registry consulted
// by the resolver, the code generator and the runtime assertion pass.
// It records, per module, the declared functions and methods (with
// their precondition and postcondition blocks), named constants, and
// named types. Modules carry semantic versions; Require checks a
// module's version against a semver constraint. Registration rejects
// only a duplicate path, and the Lookup methods do not check versions.
package modules

import (
	"fmt"
	"strings"

	semver "github.com/Masterminds/semver/v3"

	"github.com/wyrm-lang/wyrm/internal/errors"
	"github.com/wyrm-lang/wyrm/internal/lir"
	"github.com/wyrm-lang/wyrm/internal/types"
	"github.com/wyrm-lang/wyrm/internal/value"
)

// Function describes one declared function or method of a module.
type Function struct {
	Name          string
	Type          types.Type // function or method type
	Precondition  *lir.CodeBlock
	Postcondition *lir.CodeBlock
}

// NamedType describes one declared type of a module.
type NamedType struct {
	Name      string
	Type      types.Type // structural definition
	Invariant *lir.CodeBlock
}

// Module is the externally visible surface of one compiled module.
type Module struct {
	Path      string
	Version   *semver.Version
	Functions map[string][]*Function
	Constants map[string]value.Value
	Types     map[string]*NamedType
}

// NewModule creates an empty module at the given path and version.
// The version string must be valid semver.
func NewModule(path, version string) (*Module, error) {
	v, err := semver.NewVersion(version)
	if err != nil {
		return nil, fmt.Errorf("module %s: invalid version %q: %w", path, version, err)
	}
	return &Module{
		Path:      path,
		Version:   v,
		Functions: make(map[string][]*Function),
		Constants: make(map[string]value.Value),
		Types:     make(map[string]*NamedType),
	}, nil
}

// DeclareFunction records a function or method declaration.
func (m *Module) DeclareFunction(f *Function) {
	m.Functions[f.Name] = append(m.Functions[f.Name], f)
}

// DeclareConstant records a constant declaration.
func (m *Module) DeclareConstant(name string, v value.Value) {
	m.Constants[name] = v
}

// DeclareType records a named type declaration.
func (m *Module) DeclareType(t *NamedType) {
	m.Types[t.Name] = t
}

// Project is the set of modules visible to one compilation.
type Project struct {
	modules map[string]*Module
}

// NewProject creates an empty project.
func NewProject() *Project {
	return &Project{modules: make(map[string]*Module)}
}

// Register adds a module to the project. A module path may be
// registered only once.
func (p *Project) Register(m *Module) error {
	if _, ok := p.modules[m.Path]; ok {
		return fmt.Errorf("module %s already registered", m.Path)
	}
	p.modules[m.Path] = m
	return nil
}

// Require returns the module at the given path, checking that its
// version satisfies the given semver constraint (e.g. ">=1.2.0").
// An empty constraint matches any version.
func (p *Project) Require(path, constraint string) (*Module, error) {
	m, ok := p.modules[path]
	if !ok {
		return nil, errors.NewResolveError(path)
	}
	if constraint == "" {
		return m, nil
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return nil, fmt.Errorf("invalid constraint %q for %s: %w", constraint, path, err)
	}
	if !c.Check(m.Version) {
		return nil, fmt.Errorf("module %s at %s does not satisfy %q", path, m.Version, constraint)
	}
	return m, nil
}

// IsModule reports whether the given path names a registered module.
func (p *Project) IsModule(path string) bool {
	_, ok := p.modules[path]
	return ok
}

// IsPackage reports whether the given prefix starts the path of any
// registered module.
func (p *Project) IsPackage(prefix string) bool {
	for path := range p.modules {
		if strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// LookupFunction finds a declared function or method by module and
// name whose parameter types can accept the given argument types under
// the subtype engine. With nil paramTypes the first declaration wins.
func (p *Project) LookupFunction(engine *types.Engine, module, name string, paramTypes []types.Type) (*Function, error) {
	m, ok := p.modules[module]
	if !ok {
		return nil, errors.NewResolveError(module)
	}
	candidates := m.Functions[name]
	if len(candidates) == 0 {
		return nil, errors.NewResolveError(module + ":" + name)
	}
	if paramTypes == nil {
		return candidates[0], nil
	}
	for _, f := range candidates {
		params := f.Type.Params()
		if len(params) != len(paramTypes) {
			continue
		}
		ok := true
		for i, pt := range params {
			if !engine.IsImplicitCoerciveSubtype(pt, paramTypes[i]) {
				ok = false
				break
			}
		}
		if ok {
			return f, nil
		}
	}
	return nil, errors.NewResolveError(module + ":" + name)
}

// LookupConstant finds a declared constant by module and name.
func (p *Project) LookupConstant(module, name string) (value.Value, error) {
	m, ok := p.modules[module]
	if !ok {
		return nil, errors.NewResolveError(module)
	}
	v, ok := m.Constants[name]
	if !ok {
		return nil, errors.NewResolveError(module + ":" + name)
	}
	return v, nil
}

// LookupType finds a declared type by its qualified "module:name"
// form.
func (p *Project) LookupType(qualified string) (*NamedType, error) {
	module, name, ok := strings.Cut(qualified, ":")
	if !ok {
		return nil, errors.NewResolveError(qualified)
	}
	m, found := p.modules[module]
	if !found {
		return nil, errors.NewResolveError(module)
	}
	t, found := m.Types[name]
	if !found {
		return nil, errors.NewResolveError(qualified)
	}
	return t, nil
}

// QualifiedName forms the qualified name of a declaration.
func QualifiedName(module, name string) string {
	return module + ":" + name
}

// Expand implements types.NominalResolver over the registered
// modules.
func (p *Project) Expand(name string) (types.Type, error) {
	t, err := p.LookupType(name)
	if err != nil {
		return types.Void(), err
	}
	return t.Type, nil
}

// IsOpen implements types.NominalResolver; it reports whether the
// named type expands to an open record.
func (p *Project) IsOpen(name string) bool {
	t, err := p.LookupType(name)
	if err != nil {
		return false
	}
	return t.Type.Kind() == types.KRecord && t.Type.IsOpen()
}
