package checker

import (
	"github.com/blanketsucks/language-sub000/internal/ast"
	"github.com/blanketsucks/language-sub000/internal/diagnostics"
	"github.com/blanketsucks/language-sub000/internal/symbols"
	"github.com/blanketsucks/language-sub000/internal/types"
)

// attrResult carries enough information back from attribute resolution for
// ECall to special-case method dispatch (self-injection) vs. a plain
// function-pointer field (§4.6).
type attrResult struct {
	IsMethod  bool
	MethodSym *symbols.Symbol
}

// resolveAttribute resolves `base.field` to either a struct field (yielding
// its type) or a method reachable through an impl on base's type (yielding
// a function-pointer type whose first parameter is `self`).
func (c *Checker) resolveAttribute(scope *symbols.Scope, expr ast.Expression) (types.TypeId, *attrResult, error) {
	baseType, err := c.checkExpr(scope, *expr.Base, types.Invalid)
	if err != nil {
		return types.Invalid, nil, err
	}
	structSym, resolvedType, _, err := c.structOf(scope, baseType, expr)
	if err != nil {
		return types.Invalid, nil, err
	}
	if field, ok := structSym.FieldsByName[expr.Field]; ok {
		if field.Has(symbols.FieldPrivate) && !c.inSameStruct(structSym) {
			return types.Invalid, nil, diagnostics.New(diagnostics.PrivateAccess, expr.Span, "field %q is private", expr.Field)
		}
		return field.Type, &attrResult{}, nil
	}
	method, ok := c.lookupMethod(resolvedType, expr.Field)
	if !ok {
		return types.Invalid, nil, diagnostics.New(diagnostics.NotAMethod, expr.Span, "%s has no method %q", structSym.Name, expr.Field)
	}
	return method.FuncType, &attrResult{IsMethod: true, MethodSym: method}, nil
}

// lookupMethod finds a method by name on target: first a concrete impl,
// then (lazily, §4.6) a generic impl whose ImplCondition structurally
// matches target's shape, instantiating a specialised scope on first
// match via State.InstantiateGeneric (§8: no duplicate instantiation for
// repeat accesses against the same concrete type).
func (c *Checker) lookupMethod(target types.TypeId, name string) (*symbols.Symbol, bool) {
	if sc, ok := c.State.LookupConcreteImpl(target); ok {
		if sym, ok := sc.LookupLocal(name); ok {
			return sym, true
		}
	}
	for _, decl := range c.genericImplDecls {
		if !conditionMatches(c.State.Types, decl.Condition, target) {
			continue
		}
		sc := c.State.InstantiateGeneric(decl.Sym, target, func() *symbols.Scope {
			return c.instantiateGenericImpl(decl, target)
		})
		if sym, ok := sc.LookupLocal(name); ok {
			return sym, true
		}
	}
	return nil, false
}

func conditionMatches(reg *types.Registry, cond symbols.ImplConditionKind, target types.TypeId) bool {
	t := reg.At(target)
	switch cond {
	case symbols.CondPointer:
		return t.Kind == types.KindPointer
	case symbols.CondReference:
		return t.Kind == types.KindReference
	case symbols.CondArray:
		return t.Kind == types.KindArray
	case symbols.CondTuple:
		return t.Kind == types.KindTuple
	case symbols.CondAny:
		return true
	}
	return false
}

// instantiateGenericImpl binds decl's generic parameter name to the
// concrete substructure of target (e.g. the pointee of a `*T` match) and
// re-resolves the impl's method signatures/bodies against that binding,
// producing one specialised methods scope.
func (c *Checker) instantiateGenericImpl(decl genericImplDecl, target types.TypeId) *symbols.Scope {
	reg := c.State.Types
	t := reg.At(target)
	var bound types.TypeId
	switch decl.Condition {
	case symbols.CondPointer, symbols.CondReference:
		bound = t.Pointee
	case symbols.CondArray:
		bound = t.Element
	case symbols.CondTuple:
		if len(t.Elements) > 0 {
			bound = t.Elements[0]
		}
	default:
		bound = target
	}

	bindingScope := symbols.NewScope("<generic-binding>", symbols.ScopeBlock, decl.DeclScope)
	bindingScope.Insert(&symbols.Symbol{Kind: symbols.SymTypeAlias, Name: decl.GenericName, AliasTarget: bound})

	// Name the instantiation's scope after its concrete target so each
	// specialisation of the same generic impl gets distinct qualified
	// method names (scopedName derives from scope.Name).
	implScope := symbols.NewScope("<impl:"+reg.String(target)+">", symbols.ScopeImpl, bindingScope)
	savedSelf := c.State.SelfType
	c.State.SelfType = target
	for i := range decl.Methods {
		// Errors instantiating a generic method are surfaced as compiler
		// bugs here rather than threaded through this builder callback's
		// fixed signature; CheckProgram's own top-level declarations still
		// catch ordinary mistakes in non-generic code the same way.
		if err := c.declareFunctionSignature(implScope, &decl.Methods[i], implScope); err != nil {
			c.State.Diags.Report(asDiag(err))
			continue
		}
		if err := c.checkFunctionBody(implScope, &decl.Methods[i]); err != nil {
			c.State.Diags.Report(asDiag(err))
		}
	}
	c.State.SelfType = savedSelf
	return implScope
}

// checkCall implements §4.6's call rule: arity (exact, or at-least for
// c_variadic), per-argument safe-cast, and automatic `self` injection when
// the callee resolves to a method.
func (c *Checker) checkCall(scope *symbols.Scope, expr ast.Expression) (types.TypeId, error) {
	reg := c.State.Types
	callee := expr.Callee

	var fnType types.TypeId
	var selfArg *ast.Expression
	var paramsToCheck []types.TypeId
	var cVariadic bool

	if callee.Kind == ast.EAttribute {
		t, info, err := c.resolveAttribute(scope, callee)
		if err != nil {
			return types.Invalid, err
		}
		fnType = t
		ft := reg.At(fnType)
		cVariadic = ft.CVariadic
		if info != nil && info.IsMethod {
			selfArg = callee.Base
			paramsToCheck = ft.Params // self already excluded: MakeFunction for methods is built with only non-self params (see declareFunctionSignature)
		} else {
			paramsToCheck = ft.Params
		}
	} else {
		t, err := c.checkExpr(scope, callee, types.Invalid)
		if err != nil {
			return types.Invalid, err
		}
		fnType = t
		ft := reg.At(fnType)
		if ft.Kind == types.KindPointer {
			ft = reg.At(ft.Pointee)
		}
		if ft.Kind != types.KindFunction {
			return types.Invalid, diagnostics.New(diagnostics.NotCallable, expr.Span, "%s is not callable", reg.String(fnType))
		}
		paramsToCheck = ft.Params
		cVariadic = ft.CVariadic
		fnType = reg.MakeFunction(ft.Ret, ft.Params, ft.CVariadic)
	}

	if selfArg != nil {
		if _, err := c.checkExpr(scope, *selfArg, types.Invalid); err != nil {
			return types.Invalid, err
		}
	}

	if cVariadic {
		if len(expr.Args) < len(paramsToCheck) {
			return types.Invalid, diagnostics.New(diagnostics.ArityMismatch, expr.Span,
				"expected at least %d arguments, got %d", len(paramsToCheck), len(expr.Args))
		}
	} else if len(expr.Args) != len(paramsToCheck) {
		return types.Invalid, diagnostics.New(diagnostics.ArityMismatch, expr.Span,
			"expected %d arguments, got %d", len(paramsToCheck), len(expr.Args))
	}

	for i, arg := range expr.Args {
		var want types.TypeId = types.Invalid
		if i < len(paramsToCheck) {
			want = paramsToCheck[i]
		}
		got, err := c.checkExpr(scope, arg.Value, want)
		if err != nil {
			return types.Invalid, err
		}
		if i < len(paramsToCheck) && !CanSafelyCast(reg, got, want) {
			return types.Invalid, diagnostics.New(diagnostics.TypeMismatch, expr.Span,
				"argument %d: %s is not compatible with %s", i, reg.String(got), reg.String(want))
		}
	}
	return reg.At(fnType).Ret, nil
}
