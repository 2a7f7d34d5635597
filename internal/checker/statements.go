package checker

import (
	"github.com/blanketsucks/language-sub000/internal/ast"
	"github.com/blanketsucks/language-sub000/internal/diagnostics"
	"github.com/blanketsucks/language-sub000/internal/symbols"
	"github.com/blanketsucks/language-sub000/internal/types"
)

// checkTopLevelBody is pass 2 of CheckProgram: it checks function and impl
// method bodies, nested module bodies and static asserts, now that every
// top-level signature has been resolved (§5). Trait methods are bodiless
// declarations, so traits have nothing to check here.
func (c *Checker) checkTopLevelBody(scope *symbols.Scope, stmt *ast.Statement) error {
	switch stmt.Kind {
	case ast.SFunc:
		return c.checkFunctionBody(scope, stmt)
	case ast.SImpl:
		return c.checkImplBodies(scope, stmt)
	case ast.SModule:
		sym, _ := scope.LookupLocal(stmt.ModuleName)
		for i := range stmt.ModuleBody {
			if err := c.checkTopLevelBody(sym.ModScope, &stmt.ModuleBody[i]); err != nil {
				return err
			}
		}
	case ast.SStaticAssert:
		return c.checkStaticAssert(scope, stmt)
	}
	return nil
}

func (c *Checker) checkFunctionBody(scope *symbols.Scope, stmt *ast.Statement) error {
	if stmt.Body == nil {
		return nil // `extern` declaration
	}
	sym, ok := scope.LookupLocal(stmt.FuncName)
	if !ok {
		return diagnostics.Internal("checker", "function %q missing its collected symbol", stmt.FuncName)
	}
	savedFunc, savedLoop, savedLocal := c.State.CurrentFunc, c.loopDepth, c.localCounter
	c.State.CurrentFunc = sym
	c.loopDepth = 0
	// Parameters occupy local slots 0..len(Params)-1 (declareFunctionSignature
	// gave each param Symbol VarIndex == its parameter Index); `let` bindings
	// inside the body continue allocating from there.
	c.localCounter = uint32(len(sym.Params))
	defer func() { c.State.CurrentFunc, c.loopDepth, c.localCounter = savedFunc, savedLoop, savedLocal }()

	_, err := c.checkStatement(sym.FuncScope, *stmt.Body)
	return err
}

func (c *Checker) checkImplBodies(scope *symbols.Scope, stmt *ast.Statement) error {
	if len(stmt.ImplGenerics) > 0 {
		return nil // generic impls check lazily at first instantiation.
	}
	target, err := c.ResolveType(scope, stmt.ImplTarget)
	if err != nil {
		return err
	}
	implScope := c.State.ConcreteImpls[target]
	saved, savedStruct := c.State.SelfType, c.State.CurrentStruct
	c.State.SelfType = target
	if ty := c.State.Types.At(target); ty.Kind == types.KindStruct {
		c.State.CurrentStruct = c.State.GlobalStructs[ty.QualifiedName]
	}
	defer func() { c.State.SelfType, c.State.CurrentStruct = saved, savedStruct }()
	for i := range stmt.ImplMethods {
		if err := c.checkFunctionBody(implScope, &stmt.ImplMethods[i]); err != nil {
			return err
		}
	}
	return nil
}

func (c *Checker) checkStaticAssert(scope *symbols.Scope, stmt *ast.Statement) error {
	val, err := c.Const.Eval(scope, *stmt.AssertCond)
	if err != nil {
		return err
	}
	if val.Int == nil || val.Int.Sign() == 0 {
		msg := stmt.AssertMessage
		if msg == "" {
			msg = "static assertion failed"
		}
		return diagnostics.New(diagnostics.TypeMismatch, stmt.Span, "%s", msg)
	}
	return nil
}

// checkStatement checks one statement (including nested blocks). An SExpr
// statement returns its expression's type; a block, binding or
// control-flow statement returns void, so a block never takes the type of
// its last expression statement.
func (c *Checker) checkStatement(scope *symbols.Scope, stmt ast.Statement) (types.TypeId, error) {
	void := c.State.Types.Void()
	switch stmt.Kind {
	case ast.SBlock:
		blockScope := symbols.NewScope("<block>", symbols.ScopeBlock, scope)
		c.blockScopes[stmt.Span] = blockScope
		for i := range stmt.Statements {
			if _, err := c.checkStatement(blockScope, stmt.Statements[i]); err != nil {
				return types.Invalid, err
			}
		}
		return void, nil
	case ast.SLet, ast.SConst:
		return void, c.checkLocalBinding(scope, stmt)
	case ast.SIf:
		condType, err := c.checkExpr(scope, *stmt.Cond, c.State.Types.GetBool())
		if err != nil {
			return types.Invalid, err
		}
		if !CanSafelyCast(c.State.Types, condType, c.State.Types.GetBool()) {
			return types.Invalid, diagnostics.New(diagnostics.TypeMismatch, stmt.Span, "if condition must be boolean")
		}
		if _, err := c.checkStatement(scope, *stmt.Then); err != nil {
			return types.Invalid, err
		}
		if stmt.Else != nil {
			if _, err := c.checkStatement(scope, *stmt.Else); err != nil {
				return types.Invalid, err
			}
		}
		return void, nil
	case ast.SWhile:
		condType, err := c.checkExpr(scope, *stmt.WhileCond, c.State.Types.GetBool())
		if err != nil {
			return types.Invalid, err
		}
		if !CanSafelyCast(c.State.Types, condType, c.State.Types.GetBool()) {
			return types.Invalid, diagnostics.New(diagnostics.TypeMismatch, stmt.Span, "while condition must be boolean")
		}
		c.loopDepth++
		_, err = c.checkStatement(scope, *stmt.WhileBody)
		c.loopDepth--
		return void, err
	case ast.SFor:
		iterType, err := c.checkExpr(scope, *stmt.ForIterable, types.Invalid)
		if err != nil {
			return types.Invalid, err
		}
		loopScope := symbols.NewScope("<for>", symbols.ScopeBlock, scope)
		c.blockScopes[stmt.Span] = loopScope
		elemType := iterType
		if it := c.State.Types.At(iterType); it.Kind == types.KindArray {
			elemType = it.Element
		}
		loopScope.Insert(&symbols.Symbol{Kind: symbols.SymVariable, Name: stmt.ForVar, VarType: elemType, VarIndex: c.nextLocalSlot(), VarFlags: symbols.VarMutable})
		c.loopDepth++
		_, err = c.checkStatement(loopScope, *stmt.ForBody)
		c.loopDepth--
		return void, err
	case ast.SForRange:
		startType, err := c.checkExpr(scope, *stmt.RangeStart, types.Invalid)
		if err != nil {
			return types.Invalid, err
		}
		if _, err := c.checkExpr(scope, *stmt.RangeEnd, startType); err != nil {
			return types.Invalid, err
		}
		loopScope := symbols.NewScope("<for>", symbols.ScopeBlock, scope)
		c.blockScopes[stmt.Span] = loopScope
		loopScope.Insert(&symbols.Symbol{Kind: symbols.SymVariable, Name: stmt.RangeVar, VarType: startType, VarIndex: c.nextLocalSlot(), VarFlags: symbols.VarMutable})
		c.loopDepth++
		_, err = c.checkStatement(loopScope, *stmt.RangeBody)
		c.loopDepth--
		return void, err
	case ast.SBreak, ast.SContinue:
		if c.loopDepth == 0 {
			return types.Invalid, diagnostics.New(diagnostics.InvalidContext, stmt.Span, "%s outside of a loop", stmtKindName(stmt.Kind))
		}
		return void, nil
	case ast.SReturn:
		fn := c.State.CurrentFunc
		if fn == nil {
			return types.Invalid, diagnostics.New(diagnostics.InvalidContext, stmt.Span, "return outside of a function")
		}
		if stmt.ReturnValue == nil {
			if fn.ReturnType != void {
				return types.Invalid, diagnostics.New(diagnostics.TypeMismatch, stmt.Span, "bare return in a function returning %s", c.State.Types.String(fn.ReturnType))
			}
			return void, nil
		}
		valType, err := c.checkExpr(scope, *stmt.ReturnValue, fn.ReturnType)
		if err != nil {
			return types.Invalid, err
		}
		if !CanSafelyCast(c.State.Types, valType, fn.ReturnType) {
			return types.Invalid, diagnostics.New(diagnostics.TypeMismatch, stmt.Span,
				"return type %s is not compatible with %s", c.State.Types.String(valType), c.State.Types.String(fn.ReturnType))
		}
		return void, nil
	case ast.SDefer:
		if c.State.CurrentFunc == nil {
			return types.Invalid, diagnostics.New(diagnostics.InvalidContext, stmt.Span, "defer outside of a function")
		}
		_, err := c.checkExpr(scope, *stmt.DeferExpr, types.Invalid)
		return void, err
	case ast.SStaticAssert:
		return void, c.checkStaticAssert(scope, stmt)
	case ast.SExpr:
		return c.checkExpr(scope, *stmt.Expr, types.Invalid)
	case ast.SStruct, ast.STrait, ast.SImpl, ast.STypeAlias, ast.SEnum, ast.SModule, ast.SFunc:
		// Local declarations of these kinds reuse the same collection
		// machinery as top level, scoped to the current block.
		if err := c.declareStub(scope, &stmt); err != nil {
			return types.Invalid, err
		}
		if err := c.resolveSignature(scope, &stmt); err != nil {
			return types.Invalid, err
		}
		return void, c.checkTopLevelBody(scope, &stmt)
	}
	return void, nil
}

func stmtKindName(k ast.StmtKind) string {
	if k == ast.SBreak {
		return "break"
	}
	return "continue"
}

func (c *Checker) checkLocalBinding(scope *symbols.Scope, stmt ast.Statement) error {
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
				"cannot initialize %q: %s is not compatible with %s", nameOrPattern(stmt),
				c.State.Types.String(valType), c.State.Types.String(declaredType))
		}
	} else if !hasType {
		return diagnostics.New(diagnostics.TypeMismatch, stmt.Span, "uninitialized binding requires an explicit type")
	}
	finalType := declaredType
	if !hasType {
		finalType = valType
	}

	if stmt.Pattern != nil {
		return c.bindPattern(scope, *stmt.Pattern, finalType, stmt.Mut, stmt.Kind == ast.SConst)
	}

	var flags symbols.VariableFlag
	if stmt.Mut {
		flags |= symbols.VarMutable
	}
	if stmt.Kind == ast.SConst {
		flags |= symbols.VarConstant
	}
	idx := c.nextLocalSlot()
	sym := &symbols.Symbol{Kind: symbols.SymVariable, Name: stmt.Name, VarType: finalType, VarFlags: flags, VarIndex: idx}
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

func nameOrPattern(stmt ast.Statement) string {
	if stmt.Name != "" {
		return stmt.Name
	}
	return "<pattern>"
}

// bindPattern destructures finalType (a tuple) across a `let (a, b) = ...`
// pattern, binding one Variable symbol per name.
func (c *Checker) bindPattern(scope *symbols.Scope, pat ast.Pattern, t types.TypeId, mut, isConst bool) error {
	switch pat.Kind {
	case ast.PBinding:
		var flags symbols.VariableFlag
		if mut {
			flags |= symbols.VarMutable
		}
		if isConst {
			flags |= symbols.VarConstant
		}
		sym := &symbols.Symbol{Kind: symbols.SymVariable, Name: pat.Name, VarType: t, VarFlags: flags, VarIndex: c.nextLocalSlot()}
		if _, ok := scope.Insert(sym); !ok {
			return diagnostics.New(diagnostics.DuplicateSymbol, pat.Span, "duplicate symbol %q", pat.Name)
		}
		return nil
	case ast.PTuple:
		ty := c.State.Types.At(t)
		if ty.Kind != types.KindTuple || len(ty.Elements) != len(pat.Elements) {
			return diagnostics.New(diagnostics.TypeMismatch, pat.Span, "pattern arity does not match tuple type %s", c.State.Types.String(t))
		}
		for i, sub := range pat.Elements {
			if err := c.bindPattern(scope, sub, ty.Elements[i], mut, isConst); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}
