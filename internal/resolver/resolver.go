// Package resolver implements the flow-sensitive type resolver. It
// types every expression bottom-up, replaces abstract AST nodes with
// their concrete variants once operand types are known, and refines
// variable types across conditional control flow.
package resolver

import (
	goerrors "errors"
	"sort"

	"github.com/wyrm-lang/wyrm/internal/ast"
	"github.com/wyrm-lang/wyrm/internal/errors"
	"github.com/wyrm-lang/wyrm/internal/modules"
	"github.com/wyrm-lang/wyrm/internal/position"
	"github.com/wyrm-lang/wyrm/internal/types"
)

// Resolver types and disambiguates the expressions and statements of
// one module against a project of visible modules.
type Resolver struct {
	project  *modules.Project
	engine   *types.Engine
	module   string
	filename string

	// per-declaration state
	fn       *ast.FunctionDecl
	declared map[string]types.Type
}

// NewResolver creates a resolver for the named module of the project.
func NewResolver(project *modules.Project, module, filename string) *Resolver {
	return &Resolver{
		project:  project,
		engine:   types.NewEngine(project),
		module:   module,
		filename: filename,
	}
}

// Engine returns the subtype engine used by this resolver.
func (r *Resolver) Engine() *types.Engine {
	return r.engine
}

func (r *Resolver) syntaxError(msg string, span position.Span) error {
	return errors.NewSyntaxError(msg, r.filename, span)
}

func (r *Resolver) internalFailure(msg string, span position.Span) error {
	return errors.NewInternalFailure(msg, r.filename, span)
}

// rewrap converts a low-level resolve error into a syntax error at the
// given location; anything else propagates unchanged.
func (r *Resolver) rewrap(err error, span position.Span) error {
	var re *errors.ResolveError
	if goerrors.As(err, &re) {
		return r.syntaxError(re.Error(), span)
	}
	return err
}

// ResolveExpr types an expression in the given environment, returning
// the (possibly rewritten) node.
func (r *Resolver) ResolveExpr(e ast.Expr, env *Environment) (ast.Expr, error) {
	out, err := r.resolveExpr(e, env)
	if err != nil {
		return nil, r.rewrap(err, e.Span())
	}
	return out, nil
}

func (r *Resolver) resolveExpr(e ast.Expr, env *Environment) (ast.Expr, error) {
	switch e := e.(type) {
	case *ast.Constant:
		return e, nil
	case *ast.ConstantAccess:
		return e, nil
	case *ast.ModuleAccess:
		return e, nil
	case *ast.PackageAccess:
		return e, nil
	case *ast.TypeVal:
		return e, nil
	case *ast.BinOp:
		return r.resolveBinOp(e, env)
	case *ast.UnOp:
		return r.resolveUnOp(e, env)
	case *ast.Comprehension:
		return r.resolveComprehension(e, env)
	case *ast.Cast:
		return r.resolveCast(e, env)
	case *ast.AbstractVariable:
		return r.resolveVariable(e, env)
	case *ast.LocalVariable:
		if t, ok := env.Get(e.Name); ok {
			e.Type = t
		}
		return e, nil
	case *ast.AbstractInvoke:
		return r.resolveInvoke(e, env)
	case *ast.IndexOf, *ast.ListAccess, *ast.StringAccess, *ast.MapAccess:
		return r.resolveIndexAccess(e, env)
	case *ast.LengthOf, *ast.StringLength, *ast.ListLength, *ast.SetLength, *ast.MapLength:
		return r.resolveLength(e, env)
	case *ast.SubList:
		return r.resolveSubList(e, env)
	case *ast.SubString:
		return r.resolveSubString(e, env)
	case *ast.FieldAccess:
		return r.resolveFieldAccess(e, env)
	case *ast.RecordLit:
		return r.resolveRecordLit(e, env)
	case *ast.TupleLit:
		return r.resolveTupleLit(e, env)
	case *ast.ListLit:
		return r.resolveListLit(e, env)
	case *ast.SetLit:
		return r.resolveSetLit(e, env)
	case *ast.MapLit:
		return r.resolveMapLit(e, env)
	case *ast.New:
		return r.resolveNew(e, env)
	case *ast.Dereference:
		return r.resolveDereference(e, env)
	case *ast.Lambda:
		return r.resolveLambda(e, env)
	case *ast.FuncRef:
		return r.resolveFuncRef(e)
	case *ast.FunctionCall, *ast.MethodCall, *ast.IndirectFunctionCall, *ast.IndirectMethodCall:
		return e, nil
	default:
		return nil, r.internalFailure("unknown expression", e.Span())
	}
}

func (r *Resolver) resolveBinOp(e *ast.BinOp, env *Environment) (ast.Expr, error) {
	switch e.Op {
	case ast.AND, ast.OR, ast.EQ, ast.NEQ, ast.LT, ast.LTEQ, ast.GT, ast.GTEQ,
		ast.ELEMENTOF, ast.SUBSET, ast.SUBSETEQ, ast.IS:
		out, _, err := r.resolveCondition(e, true, env)
		return out, err
	}

	lhs, err := r.resolveExpr(e.Lhs, env)
	if err != nil {
		return nil, err
	}
	rhs, err := r.resolveExpr(e.Rhs, env)
	if err != nil {
		return nil, err
	}
	e.Lhs, e.Rhs = lhs, rhs

	lhsRaw := lhs.Result()
	rhsRaw := rhs.Result()

	anySet := types.Set(types.Any())
	anyList := types.List(types.Any())
	lhsSet := r.engine.IsImplicitCoerciveSubtype(anySet, lhsRaw)
	rhsSet := r.engine.IsImplicitCoerciveSubtype(anySet, rhsRaw)
	lhsList := r.engine.IsImplicitCoerciveSubtype(anyList, lhsRaw)
	rhsList := r.engine.IsImplicitCoerciveSubtype(anyList, rhsRaw)
	lhsStr := r.engine.IsSubtype(lhsRaw, types.String())
	rhsStr := r.engine.IsSubtype(rhsRaw, types.String())

	var srcType types.Type

	switch {
	case lhsStr || rhsStr:
		switch e.Op {
		case ast.ADD:
			e.Op = ast.STRINGAPPEND
		case ast.STRINGAPPEND:
		default:
			return nil, r.syntaxError("invalid string operation", e.Span())
		}
		srcType = types.String()

	case lhsList && rhsList:
		switch e.Op {
		case ast.ADD:
			e.Op = ast.LISTAPPEND
			fallthrough
		case ast.LISTAPPEND:
			srcType = types.Union(lhsRaw, rhsRaw)
		default:
			return nil, r.syntaxError("invalid list operation", e.Span())
		}

	case lhsSet && rhsSet:
		lhsEff, rhsEff := lhsRaw, rhsRaw
		if elem, ok := r.engine.AsEffectiveList(lhsEff); ok {
			lhsEff = types.Set(elem)
		}
		if elem, ok := r.engine.AsEffectiveList(rhsEff); ok {
			rhsEff = types.Set(elem)
		}
		lhsElem, _ := r.engine.AsEffectiveSet(lhsEff)
		rhsElem, _ := r.engine.AsEffectiveSet(rhsEff)
		switch e.Op {
		case ast.ADD:
			e.Op = ast.UNION
			fallthrough
		case ast.UNION:
			srcType = types.Set(types.Union(lhsElem, rhsElem))
		case ast.BITWISEAND:
			e.Op = ast.INTERSECTION
			fallthrough
		case ast.INTERSECTION:
			if r.engine.IsSupertype(lhsEff, rhsEff) {
				srcType = rhsEff
			} else {
				srcType = lhsEff
			}
		case ast.SUB:
			e.Op = ast.DIFFERENCE
			fallthrough
		case ast.DIFFERENCE:
			srcType = lhsEff
		default:
			return nil, r.syntaxError("invalid set operation", e.Span())
		}

	default:
		switch e.Op {
		case ast.BITWISEAND, ast.BITWISEOR, ast.BITWISEXOR:
			if err := r.checkIsSubtype(types.Byte(), lhs); err != nil {
				return nil, err
			}
			if err := r.checkIsSubtype(types.Byte(), rhs); err != nil {
				return nil, err
			}
			srcType = types.Byte()
		case ast.LEFTSHIFT, ast.RIGHTSHIFT:
			if err := r.checkIsSubtype(types.Byte(), lhs); err != nil {
				return nil, err
			}
			if err := r.checkIsSubtype(types.Int(), rhs); err != nil {
				return nil, err
			}
			srcType = types.Byte()
		case ast.RANGE:
			if err := r.checkIsSubtype(types.Int(), lhs); err != nil {
				return nil, err
			}
			if err := r.checkIsSubtype(types.Int(), rhs); err != nil {
				return nil, err
			}
			srcType = types.List(types.Int())
		case ast.REM:
			if err := r.checkIsSubtype(types.Int(), lhs); err != nil {
				return nil, err
			}
			if err := r.checkIsSubtype(types.Int(), rhs); err != nil {
				return nil, err
			}
			srcType = types.Int()
		default:
			// remaining arithmetic: both operands numeric, result is
			// int unless a real operand forces promotion
			if err := r.checkIsSubtype(types.Real(), lhs); err != nil {
				return nil, err
			}
			if err := r.checkIsSubtype(types.Real(), rhs); err != nil {
				return nil, err
			}
			wider := lhsRaw
			if !r.engine.IsImplicitCoerciveSubtype(lhsRaw, rhsRaw) {
				wider = rhsRaw
			}
			if r.engine.IsSubtype(wider, types.Char()) || r.engine.IsSubtype(wider, types.Int()) {
				srcType = types.Int()
			} else {
				srcType = types.Real()
			}
		}
	}

	e.SrcType = srcType
	return e, nil
}

func (r *Resolver) resolveUnOp(e *ast.UnOp, env *Environment) (ast.Expr, error) {
	if e.Op == ast.NOT {
		out, _, err := r.resolveCondition(e, true, env)
		return out, err
	}
	operand, err := r.resolveExpr(e.Operand, env)
	if err != nil {
		return nil, err
	}
	e.Operand = operand
	switch e.Op {
	case ast.NEG:
		if err := r.checkIsSubtype(types.Real(), operand); err != nil {
			return nil, err
		}
	case ast.INVERT:
		if err := r.checkIsSubtype(types.Byte(), operand); err != nil {
			return nil, err
		}
	default:
		return nil, r.internalFailure("unknown unary operator", e.Span())
	}
	e.Type = operand.Result()
	return e, nil
}

func (r *Resolver) resolveComprehension(e *ast.Comprehension, env *Environment) (ast.Expr, error) {
	local := env.Clone()
	for i := range e.Sources {
		src, err := r.resolveExpr(e.Sources[i].Src, local)
		if err != nil {
			return nil, err
		}
		e.Sources[i].Src = src
		_, element, ok := r.engine.AsEffectiveCollection(src.Result())
		if !ok {
			return nil, r.syntaxError(errors.MsgInvalidSetOrListExpr, src.Span())
		}
		// later sources, the condition and the value all see this
		// binding
		local = local.Put(e.Sources[i].Name, element)
	}

	if e.Condition != nil {
		cond, err := r.resolveExpr(e.Condition, local)
		if err != nil {
			return nil, err
		}
		if err := r.checkIsSubtype(types.Bool(), cond); err != nil {
			return nil, err
		}
		e.Condition = cond
	}

	switch e.Op {
	case ast.SETCOMP, ast.LISTCOMP:
		val, err := r.resolveExpr(e.Value, local)
		if err != nil {
			return nil, err
		}
		e.Value = val
		if e.Op == ast.SETCOMP {
			e.Type = types.Set(val.Result())
		} else {
			e.Type = types.List(val.Result())
		}
	default:
		e.Type = types.Bool()
	}
	return e, nil
}

func (r *Resolver) resolveCast(e *ast.Cast, env *Environment) (ast.Expr, error) {
	operand, err := r.resolveExpr(e.Operand, env)
	if err != nil {
		return nil, err
	}
	e.Operand = operand
	if !r.engine.IsExplicitCoerciveSubtype(e.Type, operand.Result()) {
		return nil, r.syntaxError(errors.MsgSubtypeError, e.Span())
	}
	return e, nil
}

func (r *Resolver) resolveVariable(e *ast.AbstractVariable, env *Environment) (ast.Expr, error) {
	if t, ok := env.Get(e.Name); ok {
		lv := &ast.LocalVariable{ExprAttr: e.ExprAttr, Name: e.Name, Type: t}
		return lv, nil
	}
	// not a local; try a constant of the enclosing module, then a
	// module or package reference
	if v, err := r.project.LookupConstant(r.module, e.Name); err == nil {
		return &ast.ConstantAccess{ExprAttr: e.ExprAttr, Module: r.module, Name: e.Name, Value: v}, nil
	}
	if r.project.IsModule(e.Name) {
		return &ast.ModuleAccess{ExprAttr: e.ExprAttr, Path: e.Name}, nil
	}
	if r.project.IsPackage(e.Name) {
		return &ast.PackageAccess{ExprAttr: e.ExprAttr, Pkg: e.Name}, nil
	}
	return nil, r.syntaxError(errors.MsgUnknownVariable, e.Span())
}

func (r *Resolver) resolveIndexAccess(e ast.Expr, env *Environment) (ast.Expr, error) {
	var src, index ast.Expr
	var attr ast.ExprAttr
	switch e := e.(type) {
	case *ast.IndexOf:
		src, index, attr = e.Src, e.Index, e.ExprAttr
	case *ast.ListAccess:
		src, index, attr = e.Src, e.Index, e.ExprAttr
	case *ast.StringAccess:
		src, index, attr = e.Src, e.Index, e.ExprAttr
	case *ast.MapAccess:
		src, index, attr = e.Src, e.Index, e.ExprAttr
	}
	src, err := r.resolveExpr(src, env)
	if err != nil {
		return nil, err
	}
	index, err = r.resolveExpr(index, env)
	if err != nil {
		return nil, err
	}
	srcType := src.Result()

	// upgrade an abstract access to the concrete variant
	if _, abstract := e.(*ast.IndexOf); abstract {
		if r.engine.IsImplicitCoerciveSubtype(types.String(), srcType) {
			e = &ast.StringAccess{ExprAttr: attr}
		} else if r.engine.IsImplicitCoerciveSubtype(types.List(types.Any()), srcType) {
			e = &ast.ListAccess{ExprAttr: attr}
		} else if r.engine.IsImplicitCoerciveSubtype(types.Map(types.Any(), types.Any()), srcType) {
			e = &ast.MapAccess{ExprAttr: attr}
		} else {
			return nil, r.syntaxError(errors.MsgInvalidSetOrListExpr, src.Span())
		}
	}

	switch e := e.(type) {
	case *ast.StringAccess:
		e.Src, e.Index = src, index
		if err := r.checkIsSubtype(types.String(), src); err != nil {
			return nil, err
		}
		if err := r.checkIsSubtype(types.Int(), index); err != nil {
			return nil, err
		}
		return e, nil
	case *ast.ListAccess:
		e.Src, e.Index = src, index
		elem, ok := r.engine.AsEffectiveList(srcType)
		if !ok {
			return nil, r.syntaxError(errors.MsgInvalidListExpr, e.Span())
		}
		if err := r.checkIsSubtype(types.Int(), index); err != nil {
			return nil, err
		}
		e.SrcType = types.List(elem)
		return e, nil
	default:
		ma := e.(*ast.MapAccess)
		ma.Src, ma.Index = src, index
		k, v, ok := r.engine.AsEffectiveMap(srcType)
		if !ok {
			return nil, r.syntaxError(errors.MsgInvalidMapExpr, ma.Span())
		}
		if err := r.checkIsSubtype(k, index); err != nil {
			return nil, err
		}
		ma.SrcType = types.Map(k, v)
		return ma, nil
	}
}

func (r *Resolver) resolveLength(e ast.Expr, env *Environment) (ast.Expr, error) {
	var src ast.Expr
	var attr ast.ExprAttr
	switch e := e.(type) {
	case *ast.LengthOf:
		src, attr = e.Src, e.ExprAttr
	case *ast.StringLength:
		src, attr = e.Src, e.ExprAttr
	case *ast.ListLength:
		src, attr = e.Src, e.ExprAttr
	case *ast.SetLength:
		src, attr = e.Src, e.ExprAttr
	case *ast.MapLength:
		src, attr = e.Src, e.ExprAttr
	}
	src, err := r.resolveExpr(src, env)
	if err != nil {
		return nil, err
	}
	srcType := src.Result()

	switch {
	case r.engine.IsImplicitCoerciveSubtype(types.String(), srcType):
		return &ast.StringLength{ExprAttr: attr, Src: src}, nil
	case r.engine.IsImplicitCoerciveSubtype(types.List(types.Any()), srcType):
		elem, ok := r.engine.AsEffectiveList(srcType)
		if !ok {
			return nil, r.syntaxError(errors.MsgInvalidListExpr, src.Span())
		}
		return &ast.ListLength{ExprAttr: attr, Src: src, SrcType: types.List(elem)}, nil
	case r.engine.IsImplicitCoerciveSubtype(types.Set(types.Any()), srcType):
		elem, ok := r.engine.AsEffectiveSet(srcType)
		if !ok {
			return nil, r.syntaxError(errors.MsgInvalidSetOrListExpr, src.Span())
		}
		return &ast.SetLength{ExprAttr: attr, Src: src, SrcType: types.Set(elem)}, nil
	case r.engine.IsImplicitCoerciveSubtype(types.Map(types.Any(), types.Any()), srcType):
		k, v, ok := r.engine.AsEffectiveMap(srcType)
		if !ok {
			return nil, r.syntaxError(errors.MsgInvalidMapExpr, src.Span())
		}
		return &ast.MapLength{ExprAttr: attr, Src: src, SrcType: types.Map(k, v)}, nil
	default:
		return nil, r.syntaxError("expected string, set, list or map", src.Span())
	}
}

func (r *Resolver) resolveSubList(e *ast.SubList, env *Environment) (ast.Expr, error) {
	src, err := r.resolveExpr(e.Src, env)
	if err != nil {
		return nil, err
	}
	start, err := r.resolveExpr(e.Start, env)
	if err != nil {
		return nil, err
	}
	end, err := r.resolveExpr(e.End, env)
	if err != nil {
		return nil, err
	}
	e.Src, e.Start, e.End = src, start, end

	if err := r.checkIsSubtype(types.Int(), start); err != nil {
		return nil, err
	}
	if err := r.checkIsSubtype(types.Int(), end); err != nil {
		return nil, err
	}
	elem, ok := r.engine.AsEffectiveList(src.Result())
	if !ok {
		// must be a substring
		if r.engine.IsImplicitCoerciveSubtype(types.String(), src.Result()) {
			return &ast.SubString{ExprAttr: e.ExprAttr, Src: src, Start: start, End: end}, nil
		}
		return nil, r.syntaxError(errors.MsgInvalidListExpr, e.Span())
	}
	e.Type = types.List(elem)
	return e, nil
}

func (r *Resolver) resolveSubString(e *ast.SubString, env *Environment) (ast.Expr, error) {
	src, err := r.resolveExpr(e.Src, env)
	if err != nil {
		return nil, err
	}
	start, err := r.resolveExpr(e.Start, env)
	if err != nil {
		return nil, err
	}
	end, err := r.resolveExpr(e.End, env)
	if err != nil {
		return nil, err
	}
	e.Src, e.Start, e.End = src, start, end
	if err := r.checkIsSubtype(types.String(), src); err != nil {
		return nil, err
	}
	if err := r.checkIsSubtype(types.Int(), start); err != nil {
		return nil, err
	}
	if err := r.checkIsSubtype(types.Int(), end); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *Resolver) resolveFieldAccess(e *ast.FieldAccess, env *Environment) (ast.Expr, error) {
	src, err := r.resolveExpr(e.Src, env)
	if err != nil {
		return nil, err
	}
	e.Src = src

	// dotted module and package paths resolve to constant accesses
	// rather than record reads
	switch src := src.(type) {
	case *ast.PackageAccess:
		pkg := src.Pkg + "/" + e.Name
		if r.project.IsPackage(pkg) {
			return &ast.PackageAccess{ExprAttr: e.ExprAttr, Pkg: pkg}, nil
		}
		if r.project.IsModule(pkg) {
			return &ast.ModuleAccess{ExprAttr: e.ExprAttr, Path: pkg}, nil
		}
		return nil, r.syntaxError("invalid package access", e.Span())
	case *ast.ModuleAccess:
		v, err := r.project.LookupConstant(src.Path, e.Name)
		if err != nil {
			return nil, r.syntaxError("invalid module access", e.Span())
		}
		return &ast.ConstantAccess{ExprAttr: e.ExprAttr, Module: src.Path, Name: e.Name, Value: v}, nil
	}

	rec, ok := r.engine.AsEffectiveRecord(src.Result())
	if !ok {
		return nil, r.syntaxError(errors.MsgRecordTypeRequired, e.Span())
	}
	ft, ok := rec.Field(e.Name)
	if !ok {
		return nil, r.syntaxError(errors.MsgRecordMissingField, e.Span())
	}
	e.SrcType = rec
	e.Type = ft
	return e, nil
}

func (r *Resolver) resolveRecordLit(e *ast.RecordLit, env *Environment) (ast.Expr, error) {
	fieldTypes := make(map[string]types.Type, len(e.Fields))
	names := make([]string, 0, len(e.Fields))
	for n := range e.Fields {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		f, err := r.resolveExpr(e.Fields[n], env)
		if err != nil {
			return nil, err
		}
		e.Fields[n] = f
		fieldTypes[n] = f.Result()
	}
	e.Type = types.Record(false, fieldTypes)
	return e, nil
}

func (r *Resolver) resolveTupleLit(e *ast.TupleLit, env *Environment) (ast.Expr, error) {
	elems := make([]types.Type, len(e.Elements))
	for i, c := range e.Elements {
		f, err := r.resolveExpr(c, env)
		if err != nil {
			return nil, err
		}
		e.Elements[i] = f
		elems[i] = f.Result()
	}
	e.Type = types.Tuple(elems...)
	return e, nil
}

func (r *Resolver) resolveListLit(e *ast.ListLit, env *Environment) (ast.Expr, error) {
	element := types.Void()
	for i, c := range e.Elements {
		f, err := r.resolveExpr(c, env)
		if err != nil {
			return nil, err
		}
		e.Elements[i] = f
		element = types.Union(element, f.Result())
	}
	e.Type = types.List(element)
	return e, nil
}

func (r *Resolver) resolveSetLit(e *ast.SetLit, env *Environment) (ast.Expr, error) {
	element := types.Void()
	for i, c := range e.Elements {
		f, err := r.resolveExpr(c, env)
		if err != nil {
			return nil, err
		}
		e.Elements[i] = f
		element = types.Union(element, f.Result())
	}
	e.Type = types.Set(element)
	return e, nil
}

func (r *Resolver) resolveMapLit(e *ast.MapLit, env *Environment) (ast.Expr, error) {
	keyType := types.Void()
	valueType := types.Void()
	for i, p := range e.Pairs {
		k, err := r.resolveExpr(p.Key, env)
		if err != nil {
			return nil, err
		}
		v, err := r.resolveExpr(p.Value, env)
		if err != nil {
			return nil, err
		}
		e.Pairs[i] = ast.MapPair{Key: k, Value: v}
		keyType = types.Union(keyType, k.Result())
		valueType = types.Union(valueType, v.Result())
	}
	e.Type = types.Map(keyType, valueType)
	return e, nil
}

func (r *Resolver) resolveNew(e *ast.New, env *Environment) (ast.Expr, error) {
	operand, err := r.resolveExpr(e.Operand, env)
	if err != nil {
		return nil, err
	}
	e.Operand = operand
	e.Type = types.Reference(operand.Result())
	return e, nil
}

func (r *Resolver) resolveDereference(e *ast.Dereference, env *Environment) (ast.Expr, error) {
	src, err := r.resolveExpr(e.Src, env)
	if err != nil {
		return nil, err
	}
	e.Src = src
	elem, ok := r.engine.AsEffectiveReference(src.Result())
	if !ok {
		return nil, r.syntaxError("invalid reference expression", src.Span())
	}
	e.Elem = elem
	return e, nil
}

func (r *Resolver) resolveLambda(e *ast.Lambda, env *Environment) (ast.Expr, error) {
	inner := env.Clone()
	params := make([]types.Type, len(e.Parameters))
	for i, p := range e.Parameters {
		inner = inner.Put(p.Name, p.Type)
		params[i] = p.Type
	}
	body, err := r.resolveExpr(e.Body, inner)
	if err != nil {
		return nil, err
	}
	e.Body = body
	e.Type = types.Function(body.Result(), types.Void(), params...)
	return e, nil
}

func (r *Resolver) resolveFuncRef(e *ast.FuncRef) (ast.Expr, error) {
	module := e.Module
	if module == "" {
		module = r.module
	}
	f, err := r.project.LookupFunction(r.engine, module, e.Name, nil)
	if err != nil {
		return nil, err
	}
	e.Module = module
	e.Type = f.Type
	return e, nil
}

// resolveInvoke disambiguates an abstract invocation into a direct
// call, a field-indirect call, or an indirect call through a local
// variable of function type.
func (r *Resolver) resolveInvoke(e *ast.AbstractInvoke, env *Environment) (ast.Expr, error) {
	args := e.Args
	paramTypes := make([]types.Type, len(args))
	for i := range args {
		a, err := r.resolveExpr(args[i], env)
		if err != nil {
			return nil, err
		}
		args[i] = a
		paramTypes[i] = a.Result()
	}

	if e.Receiver != nil {
		receiver, err := r.resolveExpr(e.Receiver, env)
		if err != nil {
			return nil, err
		}
		if ma, ok := receiver.(*ast.ModuleAccess); ok {
			// module-qualified: a direct call into that module
			return r.directCall(ma.Path, e, args, paramTypes)
		}
		// record-qualified: a field read followed by an indirect call
		rec, ok := r.engine.AsEffectiveRecord(receiver.Result())
		if !ok {
			return nil, r.syntaxError(errors.MsgRecordTypeRequired, receiver.Span())
		}
		ft, ok := rec.Field(e.Name)
		if !ok {
			return nil, r.syntaxError(errors.MsgRecordMissingField, e.Span())
		}
		fnType, ok := r.engine.AsEffectiveFunctionOrMethod(ft)
		if !ok {
			return nil, r.syntaxError("function or method type expected", e.Span())
		}
		fa := &ast.FieldAccess{ExprAttr: e.ExprAttr, Src: receiver, Name: e.Name, SrcType: rec, Type: ft}
		if err := r.checkArgs(fnType, args, paramTypes, e.Span()); err != nil {
			return nil, err
		}
		if fnType.Kind() == types.KMethod {
			return &ast.IndirectMethodCall{ExprAttr: e.ExprAttr, Src: fa, Args: args, FnType: fnType}, nil
		}
		return &ast.IndirectFunctionCall{ExprAttr: e.ExprAttr, Src: fa, Args: args, FnType: fnType}, nil
	}

	if e.Module != "" {
		return r.directCall(e.Module, e, args, paramTypes)
	}

	// unqualified: a local variable of function type shadows any
	// declared function of the same name
	if t, ok := env.Get(e.Name); ok {
		fnType, ok := r.engine.AsEffectiveFunctionOrMethod(t)
		if !ok {
			return nil, r.syntaxError("function or method type expected", e.Span())
		}
		if err := r.checkArgs(fnType, args, paramTypes, e.Span()); err != nil {
			return nil, err
		}
		lv := &ast.LocalVariable{ExprAttr: e.ExprAttr, Name: e.Name, Type: t}
		if fnType.Kind() == types.KMethod {
			return &ast.IndirectMethodCall{ExprAttr: e.ExprAttr, Src: lv, Args: args, FnType: fnType}, nil
		}
		return &ast.IndirectFunctionCall{ExprAttr: e.ExprAttr, Src: lv, Args: args, FnType: fnType}, nil
	}

	return r.directCall(r.module, e, args, paramTypes)
}

func (r *Resolver) directCall(module string, e *ast.AbstractInvoke, args []ast.Expr, paramTypes []types.Type) (ast.Expr, error) {
	f, err := r.project.LookupFunction(r.engine, module, e.Name, paramTypes)
	if err != nil {
		return nil, err
	}
	if f.Type.Kind() == types.KMethod {
		return &ast.MethodCall{ExprAttr: e.ExprAttr, Module: module, Name: e.Name, Args: args, FnType: f.Type}, nil
	}
	return &ast.FunctionCall{ExprAttr: e.ExprAttr, Module: module, Name: e.Name, Args: args, FnType: f.Type}, nil
}

func (r *Resolver) checkArgs(fnType types.Type, args []ast.Expr, paramTypes []types.Type, span position.Span) error {
	params := fnType.Params()
	if len(params) != len(paramTypes) {
		return r.syntaxError(errors.MsgArityMismatch, span)
	}
	for i, pt := range params {
		if !r.engine.IsImplicitCoerciveSubtype(pt, paramTypes[i]) {
			return r.syntaxError(errors.MsgSubtypeError, args[i].Span())
		}
	}
	return nil
}

// checkIsSubtype verifies that sup :> the expression's type, modulo
// implicit coercions.
func (r *Resolver) checkIsSubtype(sup types.Type, e ast.Expr) error {
	if !r.engine.IsImplicitCoerciveSubtype(sup, e.Result()) {
		return r.syntaxError(errors.MsgSubtypeError+" "+sup.String()+", found "+e.Result().String(), e.Span())
	}
	return nil
}
