package checker

import (
	"github.com/blanketsucks/language-sub000/internal/ast"
	"github.com/blanketsucks/language-sub000/internal/diagnostics"
	"github.com/blanketsucks/language-sub000/internal/symbols"
	"github.com/blanketsucks/language-sub000/internal/types"
)

// genericImplDecl keeps the unresolved ast payload of a generic `impl`
// aside until a concrete target type is seen at a call/method-access site
// (§4.6's lazy generic-impl matching); symbols.Symbol has no room for raw
// AST, so the checker tracks this sidecar keyed by the Impl symbol's
// identity, mirroring State.GenericInstantiations' own keying.
type genericImplDecl struct {
	Sym         *symbols.Symbol
	GenericName string
	Condition   symbols.ImplConditionKind
	TargetExpr  ast.TypeExpr
	DeclScope   *symbols.Scope
	Methods     []ast.Statement
}

// collectTopLevel runs the up-front symbol-collection pass (§5): struct
// and trait names (with reserved, field-less TypeIds) and module stubs are
// created first, so they may be named in any order; then, in source order,
// struct fields, type aliases, function signatures, impl targets, and global
// let/const bindings are resolved. A type alias, function or global is
// therefore visible to later signatures and global initializers only; every
// top-level name is visible to function bodies, which are checked afterward.
func (c *Checker) collectTopLevel(scope *symbols.Scope, stmts []ast.Statement) error {
	for i := range stmts {
		if err := c.declareStub(scope, &stmts[i]); err != nil {
			return err
		}
	}
	for i := range stmts {
		if err := c.resolveSignature(scope, &stmts[i]); err != nil {
			return err
		}
	}
	return nil
}

func (c *Checker) declareStub(scope *symbols.Scope, stmt *ast.Statement) error {
	switch stmt.Kind {
	case ast.SStruct:
		qualified := scopedName(scope, stmt.StructName)
		id := c.State.Types.MakeStruct(qualified, symbols.StructId(len(c.State.GlobalStructs)+1))
		structScope := symbols.NewScope(stmt.StructName, symbols.ScopeStruct, scope)
		sym := &symbols.Symbol{
			Kind: symbols.SymStruct, Name: stmt.StructName, QualifiedName: qualified,
			StructType: id, StructScope: structScope, Public: stmt.Public,
			FieldsByName: make(map[string]*symbols.StructField),
		}
		if _, ok := scope.Insert(sym); !ok {
			return diagnostics.New(diagnostics.DuplicateSymbol, stmt.Span, "duplicate symbol %q", stmt.StructName)
		}
		c.State.GlobalStructs[qualified] = sym
	case ast.STrait:
		qualified := scopedName(scope, stmt.TraitName)
		id := c.State.Types.MakeTrait(qualified, symbols.TraitId(0))
		traitScope := symbols.NewScope(stmt.TraitName, symbols.ScopeTrait, scope)
		sym := &symbols.Symbol{Kind: symbols.SymTrait, Name: stmt.TraitName, TraitType: id, TraitScope: traitScope}
		if _, ok := scope.Insert(sym); !ok {
			return diagnostics.New(diagnostics.DuplicateSymbol, stmt.Span, "duplicate symbol %q", stmt.TraitName)
		}
	case ast.SModule:
		modScope := symbols.NewScope(stmt.ModuleName, symbols.ScopeModule, scope)
		sym := &symbols.Symbol{Kind: symbols.SymModule, Name: stmt.ModuleName, Path: scopedName(scope, stmt.ModuleName), ModScope: modScope}
		if _, ok := scope.Insert(sym); !ok {
			return diagnostics.New(diagnostics.DuplicateSymbol, stmt.Span, "duplicate symbol %q", stmt.ModuleName)
		}
		c.State.GlobalModules[sym.Path] = sym
		return c.collectTopLevel(modScope, stmt.ModuleBody)
	}
	return nil
}

func (c *Checker) resolveSignature(scope *symbols.Scope, stmt *ast.Statement) error {
	switch stmt.Kind {
	case ast.SStruct:
		sym, _ := scope.LookupLocal(stmt.StructName)
		return c.resolveStructFields(scope, sym, stmt)
	case ast.STrait:
		sym, _ := scope.LookupLocal(stmt.TraitName)
		for i := range stmt.TraitMethods {
			m := &stmt.TraitMethods[i]
			if err := c.declareFunctionSignature(sym.TraitScope, m, sym.TraitScope); err != nil {
				return err
			}
		}
	case ast.SFunc:
		return c.declareFunctionSignature(scope, stmt, scope)
	case ast.STypeAlias:
		target, err := c.ResolveType(scope, stmt.AliasTarget)
		if err != nil {
			return err
		}
		sym := &symbols.Symbol{Kind: symbols.SymTypeAlias, Name: stmt.AliasName, AliasTarget: target}
		if len(stmt.AliasGenerics) > 0 {
			names := make([]string, len(stmt.AliasGenerics))
			for i, g := range stmt.AliasGenerics {
				names[i] = g.Name
			}
			sym.GenericAlias = &symbols.GenericAlias{Params: names, Body: target}
		}
		if _, ok := scope.Insert(sym); !ok {
			return diagnostics.New(diagnostics.DuplicateSymbol, stmt.Span, "duplicate symbol %q", stmt.AliasName)
		}
	case ast.SImpl:
		return c.declareImpl(scope, stmt)
	case ast.SLet, ast.SConst:
		return c.declareGlobalBinding(scope, stmt)
	case ast.SModule:
		sym, _ := scope.LookupLocal(stmt.ModuleName)
		for i := range stmt.ModuleBody {
			if err := c.resolveSignature(sym.ModScope, &stmt.ModuleBody[i]); err != nil {
				return err
			}
		}
	case ast.SUsing:
		errs := symbols.Import(scope, scope, stmt.Import.Using)
		if len(errs) > 0 {
			return convertPathError(errs[0])
		}
	}
	return nil
}

func (c *Checker) resolveStructFields(scope *symbols.Scope, sym *symbols.Symbol, stmt *ast.Statement) error {
	fieldTypes := make([]types.TypeId, len(stmt.Fields))
	for i, f := range stmt.Fields {
		ft, err := c.ResolveType(sym.StructScope, f.Type)
		if err != nil {
			return err
		}
		if c.State.Types.At(ft).Kind == types.KindStruct && ft == sym.StructType {
			return diagnostics.New(diagnostics.RecursiveStructByValue, f.Span,
				"struct %q cannot contain itself by value", stmt.StructName)
		}
		fieldTypes[i] = ft
		var flags symbols.FieldFlag
		if f.Private {
			flags |= symbols.FieldPrivate
		}
		if f.Readonly {
			flags |= symbols.FieldReadonly
		} else {
			flags |= symbols.FieldMutable
		}
		sf := &symbols.StructField{Name: f.Name, Type: ft, Index: i, Flags: flags}
		sym.FieldsByName[f.Name] = sf
		sym.FieldOrder = append(sym.FieldOrder, f.Name)
	}
	c.State.Types.SetFields(sym.StructType, fieldTypes)
	return nil
}

// declareFunctionSignature resolves params/return type and registers the
// Function symbol into declScope, sharing declScope's child as the
// function's own FuncScope (for parameter names and the body's lexical
// nesting).
func (c *Checker) declareFunctionSignature(lookupScope *symbols.Scope, stmt *ast.Statement, declScope *symbols.Scope) error {
	funcScope := symbols.NewScope(stmt.FuncName, symbols.ScopeFunction, lookupScope)

	params := make([]symbols.Parameter, 0, len(stmt.Params))
	paramTypes := make([]types.TypeId, 0, len(stmt.Params))
	for i, p := range stmt.Params {
		var flags symbols.ParameterFlag
		var pt types.TypeId
		if p.SelfParam {
			flags |= symbols.ParamSelf
			pt = c.State.SelfType
		} else {
			var err error
			pt, err = c.ResolveType(funcScope, *p.Type)
			if err != nil {
				return err
			}
			paramTypes = append(paramTypes, pt)
		}
		if p.Mutable {
			flags |= symbols.ParamMutable
		}
		if p.Variadic {
			flags |= symbols.ParamVariadic
		}
		if p.Keyword {
			flags |= symbols.ParamKeyword
		}
		if p.Reference {
			flags |= symbols.ParamReference
		}
		param := symbols.Parameter{Name: p.Name, Type: pt, Flags: flags, Index: i, Span: p.Span}
		params = append(params, param)
		funcScope.Insert(&symbols.Symbol{Kind: symbols.SymVariable, Name: p.Name, VarIndex: uint32(i), VarType: pt, VarFlags: paramVarFlags(p)})
	}

	retType := c.State.Types.Void()
	if stmt.ReturnType != nil {
		rt, err := c.ResolveType(funcScope, *stmt.ReturnType)
		if err != nil {
			return err
		}
		retType = rt
	}
	fty := c.State.Types.MakeFunction(retType, paramTypes, hasCVariadic(stmt.Params))

	linkage := symbols.LinkInternal
	if stmt.ExternC {
		linkage = symbols.LinkExternC
	}
	qualified := scopedName(declScope, stmt.FuncName)
	sym := &symbols.Symbol{
		Kind: symbols.SymFunction, Name: stmt.FuncName, QualifiedName: qualified,
		Params: params, FuncType: fty, ReturnType: retType, Linkage: linkage,
		Span: stmt.Span, FuncScope: funcScope, Defined: stmt.Body != nil, Body: stmt.Body,
	}
	if _, ok := declScope.Insert(sym); !ok {
		return diagnostics.New(diagnostics.DuplicateSymbol, stmt.Span, "duplicate symbol %q", stmt.FuncName)
	}
	if declScope == c.State.Global {
		c.State.GlobalFunctions[qualified] = sym
	}
	return nil
}

func paramVarFlags(p ast.FuncParam) symbols.VariableFlag {
	var f symbols.VariableFlag
	if p.Mutable {
		f |= symbols.VarMutable
	}
	if p.Reference {
		f |= symbols.VarReference
	}
	return f
}

func hasCVariadic(params []ast.FuncParam) bool {
	for _, p := range params {
		if p.Variadic {
			return true
		}
	}
	return false
}

func (c *Checker) declareImpl(scope *symbols.Scope, stmt *ast.Statement) error {
	if len(stmt.ImplGenerics) == 0 {
		target, err := c.ResolveType(scope, stmt.ImplTarget)
		if err != nil {
			return err
		}
		implScope := symbols.NewScope("<impl>", symbols.ScopeImpl, scope)
		saved := c.State.SelfType
		c.State.SelfType = target
		for i := range stmt.ImplMethods {
			if err := c.declareFunctionSignature(implScope, &stmt.ImplMethods[i], implScope); err != nil {
				c.State.SelfType = saved
				return err
			}
		}
		c.State.SelfType = saved
		c.State.ConcreteImpls[target] = implScope
		return nil
	}

	// Generic impl: defer method resolution until InstantiateGeneric binds
	// the generic parameter to a concrete substructure (§4.6).
	genericName := stmt.ImplGenerics[0].Name
	cond, ok := deriveImplCondition(genericName, stmt.ImplTarget)
	if !ok {
		return diagnostics.New(diagnostics.TypeMismatch, stmt.Span,
			"generic impl target does not structurally use parameter %q", genericName)
	}
	sym := &symbols.Symbol{Kind: symbols.SymImpl, ImplConditions: []symbols.ImplCondition{{ParameterName: genericName, Kind: cond}}}
	c.State.GenericImpls = append(c.State.GenericImpls, sym)
	c.genericImplDecls = append(c.genericImplDecls, genericImplDecl{
		Sym: sym, GenericName: genericName, Condition: cond,
		TargetExpr: stmt.ImplTarget, DeclScope: scope, Methods: stmt.ImplMethods,
	})
	return nil
}

// deriveImplCondition inspects how genericName appears in target's shape
// (§4.6: "matches a generic impl's conditions against T") — e.g. `impl<T>
// for *T` yields CondPointer.
func deriveImplCondition(genericName string, target ast.TypeExpr) (symbols.ImplConditionKind, bool) {
	switch target.Kind {
	case ast.TEPointer:
		if isNamedAs(*target.Pointee, genericName) {
			return symbols.CondPointer, true
		}
	case ast.TEReference:
		if isNamedAs(*target.Pointee, genericName) {
			return symbols.CondReference, true
		}
	case ast.TEArray:
		if isNamedAs(*target.Element, genericName) {
			return symbols.CondArray, true
		}
	case ast.TETuple:
		for _, e := range target.Elements {
			if isNamedAs(e, genericName) {
				return symbols.CondTuple, true
			}
		}
	case ast.TENamed:
		if isNamedAs(target, genericName) {
			return symbols.CondAny, true
		}
	}
	return symbols.CondAny, false
}

func isNamedAs(te ast.TypeExpr, name string) bool {
	return te.Kind == ast.TENamed && len(te.Segments) == 1 && te.Segments[0].Name == name
}

func (c *Checker) declareGlobalBinding(scope *symbols.Scope, stmt *ast.Statement) error {
	var declaredType types.TypeId
	hasType := stmt.TypeAnnotation != nil
	if hasType {
		t, err := c.ResolveType(scope, *stmt.TypeAnnotation)
		if err != nil {
			return err
		}
		declaredType = t
	}

	var valType types.TypeId
	if stmt.Value != nil {
		t, err := c.checkExpr(scope, *stmt.Value, declaredType)
		if err != nil {
			return err
		}
		valType = t
		if hasType && !CanSafelyCast(c.State.Types, valType, declaredType) {
			return diagnostics.New(diagnostics.TypeMismatch, stmt.Span,
				"cannot initialize %q: %s is not compatible with %s",
				stmt.Name, c.State.Types.String(valType), c.State.Types.String(declaredType))
		}
	} else if !hasType {
		return diagnostics.New(diagnostics.TypeMismatch, stmt.Span, "uninitialized binding %q requires an explicit type", stmt.Name)
	}

	finalType := declaredType
	if !hasType {
		finalType = valType
	}

	var flags symbols.VariableFlag
	if stmt.Mut {
		flags |= symbols.VarMutable
	}
	if stmt.Kind == ast.SConst {
		flags |= symbols.VarConstant
	}
	flags |= symbols.VarGlobal
	sym := &symbols.Symbol{Kind: symbols.SymVariable, Name: stmt.Name, VarType: finalType, VarFlags: flags, VarIndex: c.State.NextGlobalSlot()}
	if _, ok := scope.Insert(sym); !ok {
		return diagnostics.New(diagnostics.DuplicateSymbol, stmt.Span, "duplicate symbol %q", stmt.Name)
	}

	if stmt.Kind == ast.SConst && stmt.Value != nil {
		val, err := c.Const.Eval(scope, *stmt.Value)
		if err != nil {
			return err
		}
		c.constValues[sym] = val
	}
	return nil
}

func scopedName(scope *symbols.Scope, name string) string {
	if scope == nil || scope.Name == "<global>" {
		return name
	}
	return scope.Name + "::" + name
}
