package checker

import (
	"github.com/blanketsucks/language-sub000/internal/ast"
	"github.com/blanketsucks/language-sub000/internal/diagnostics"
	"github.com/blanketsucks/language-sub000/internal/source"
	"github.com/blanketsucks/language-sub000/internal/symbols"
	"github.com/blanketsucks/language-sub000/internal/types"
)

// checkExpr assigns a Type to expr, given an optional contextType ("the
// inferred context type" of §4.6's literal rules; types.Invalid means no
// context is available).
func (c *Checker) checkExpr(scope *symbols.Scope, expr ast.Expression, contextType types.TypeId) (types.TypeId, error) {
	reg := c.State.Types
	switch expr.Kind {
	case ast.EInt:
		if contextType != types.Invalid && reg.IsInteger(contextType) {
			return contextType, nil
		}
		if expr.IntSuffix != "" {
			if spec, ok := primitiveInts[expr.IntSuffix]; ok {
				return reg.GetInt(spec.bits, spec.signed), nil
			}
		}
		return reg.GetInt(32, true), nil
	case ast.EFloat:
		if expr.FloatIsF64 {
			return reg.GetFloat(64), nil
		}
		if contextType != types.Invalid && reg.IsFloat(contextType) {
			return contextType, nil
		}
		return reg.GetFloat(32), nil
	case ast.EChar:
		return reg.GetInt(32, false), nil
	case ast.EString:
		return reg.MakePointer(reg.GetInt(8, true), false), nil
	case ast.EBool:
		return reg.GetBool(), nil
	case ast.ENull:
		if contextType != types.Invalid && reg.At(contextType).Kind == types.KindPointer {
			return contextType, nil
		}
		return reg.MakePointer(reg.Void(), false), nil
	case ast.EIdent:
		sym, ok := symbols.Resolve(scope, expr.Name)
		if !ok {
			return types.Invalid, diagnostics.New(diagnostics.UnknownIdentifier, expr.Span, "undefined identifier %q", expr.Name)
		}
		return c.typeOfValueSymbol(sym, expr)
	case ast.EPath:
		sym, err := c.resolveValuePath(scope, expr)
		if err != nil {
			return types.Invalid, err
		}
		return c.typeOfValueSymbol(sym, expr)
	case ast.ETuple:
		ids := make([]types.TypeId, len(expr.Elements))
		for i, el := range expr.Elements {
			t, err := c.checkExpr(scope, el, types.Invalid)
			if err != nil {
				return types.Invalid, err
			}
			ids[i] = t
		}
		return reg.MakeTuple(ids), nil
	case ast.EArray:
		return c.checkArrayLiteral(scope, expr)
	case ast.EArrayFill:
		elemType, err := c.checkExpr(scope, *expr.FillValue, types.Invalid)
		if err != nil {
			return types.Invalid, err
		}
		n, err := c.Const.Eval(scope, expr.FillCount)
		if err != nil {
			return types.Invalid, err
		}
		return reg.MakeArray(elemType, uint32(n.Int.Int64())), nil
	case ast.EStruct:
		return c.checkStructLiteral(scope, expr)
	case ast.ECall:
		return c.checkCall(scope, expr)
	case ast.EAttribute:
		t, _, err := c.resolveAttribute(scope, expr)
		return t, err
	case ast.EIndex:
		p, err := c.resolvePlace(scope, expr)
		if err != nil {
			return types.Invalid, err
		}
		return p.Type, nil
	case ast.ECast:
		target, err := c.ResolveType(scope, expr.TargetType)
		if err != nil {
			return types.Invalid, err
		}
		baseType, err := c.checkExpr(scope, *expr.Base, types.Invalid)
		if err != nil {
			return types.Invalid, err
		}
		if !CanExplicitlyCast(reg, baseType, target) {
			return types.Invalid, diagnostics.New(diagnostics.TypeMismatch, expr.Span,
				"cannot cast %s to %s", reg.String(baseType), reg.String(target))
		}
		return target, nil
	case ast.ETernary:
		condType, err := c.checkExpr(scope, *expr.Cond, reg.GetBool())
		if err != nil {
			return types.Invalid, err
		}
		if !CanSafelyCast(reg, condType, reg.GetBool()) {
			return types.Invalid, diagnostics.New(diagnostics.TypeMismatch, expr.Span, "ternary condition must be boolean")
		}
		thenType, err := c.checkExpr(scope, *expr.Then, contextType)
		if err != nil {
			return types.Invalid, err
		}
		elseType, err := c.checkExpr(scope, *expr.Else, thenType)
		if err != nil {
			return types.Invalid, err
		}
		if elseType != thenType && !CanSafelyCast(reg, elseType, thenType) {
			return types.Invalid, diagnostics.New(diagnostics.TypeMismatch, expr.Span,
				"ternary branches have incompatible types %s / %s", reg.String(thenType), reg.String(elseType))
		}
		return thenType, nil
	case ast.ERef:
		p, err := c.resolvePlace(scope, *expr.Base)
		if err != nil {
			return types.Invalid, err
		}
		if expr.RefMutable && !p.Mutable {
			return types.Invalid, diagnostics.New(diagnostics.MutabilityMismatch, expr.Span, "cannot take &mut of an immutable place")
		}
		return reg.MakeReference(p.Type, expr.RefMutable), nil
	case ast.EDeref:
		baseType, err := c.checkExpr(scope, *expr.Base, types.Invalid)
		if err != nil {
			return types.Invalid, err
		}
		if !reg.IsPointerLike(baseType) {
			return types.Invalid, diagnostics.New(diagnostics.NotDereferenceable, expr.Span, "%s is not a pointer or reference", reg.String(baseType))
		}
		return reg.At(baseType).Pointee, nil
	case ast.EUnary:
		return c.checkUnary(scope, expr)
	case ast.EBinary:
		return c.checkBinary(scope, expr)
	case ast.EAssign:
		return c.checkAssign(scope, expr)
	case ast.ECompoundAssign:
		return c.checkCompoundAssign(scope, expr)
	case ast.ESizeof:
		if expr.SizeofExpr != nil {
			if _, err := c.checkExpr(scope, *expr.SizeofExpr, types.Invalid); err != nil {
				return types.Invalid, err
			}
		} else {
			if _, err := c.ResolveType(scope, expr.SizeofTarget); err != nil {
				return types.Invalid, err
			}
		}
		return reg.GetInt(64, false), nil
	case ast.EOffsetof:
		if _, err := c.ResolveType(scope, expr.OffsetofBase); err != nil {
			return types.Invalid, err
		}
		return reg.GetInt(64, false), nil
	case ast.EMatch:
		return c.checkMatch(scope, expr)
	case ast.EClosure:
		return c.checkClosure(scope, expr, contextType)
	}
	return types.Invalid, diagnostics.Internal("checker", "unhandled expression kind %d", expr.Kind)
}

func (c *Checker) typeOfValueSymbol(sym *symbols.Symbol, expr ast.Expression) (types.TypeId, error) {
	switch sym.Kind {
	case symbols.SymVariable:
		sym.VarFlags |= symbols.VarUsed
		return sym.VarType, nil
	case symbols.SymFunction:
		return sym.FuncType, nil
	default:
		return types.Invalid, diagnostics.New(diagnostics.TypeMismatch, expr.Span, "%q does not name a value", sym.Name)
	}
}

func (c *Checker) resolveValuePath(scope *symbols.Scope, expr ast.Expression) (*symbols.Symbol, error) {
	names := make([]string, len(expr.Segments))
	spans := make([]source.Span, len(expr.Segments))
	for i, s := range expr.Segments {
		names[i] = s.Name
		spans[i] = s.Span
	}
	sym, err := symbols.ResolvePath(scope, names, spans, true)
	if err != nil {
		return nil, convertPathError(err)
	}
	return sym, nil
}

func (c *Checker) checkArrayLiteral(scope *symbols.Scope, expr ast.Expression) (types.TypeId, error) {
	reg := c.State.Types
	if len(expr.Elements) == 0 {
		return reg.MakeArray(reg.Void(), 0), nil
	}
	elemType, err := c.checkExpr(scope, expr.Elements[0], types.Invalid)
	if err != nil {
		return types.Invalid, err
	}
	for i := 1; i < len(expr.Elements); i++ {
		t, err := c.checkExpr(scope, expr.Elements[i], elemType)
		if err != nil {
			return types.Invalid, err
		}
		if !CanSafelyCast(reg, t, elemType) {
			return types.Invalid, diagnostics.New(diagnostics.TypeMismatch, expr.Elements[i].Span,
				"array element %s is not compatible with %s", reg.String(t), reg.String(elemType))
		}
	}
	return reg.MakeArray(elemType, uint32(len(expr.Elements))), nil
}

func (c *Checker) checkStructLiteral(scope *symbols.Scope, expr ast.Expression) (types.TypeId, error) {
	names := make([]string, len(expr.StructPath))
	spans := make([]source.Span, len(expr.StructPath))
	for i, s := range expr.StructPath {
		names[i] = s.Name
		spans[i] = s.Span
	}
	sym, err := symbols.ResolvePath(scope, names, spans, false)
	if err != nil {
		return types.Invalid, convertPathError(err)
	}
	if sym.Kind != symbols.SymStruct {
		return types.Invalid, diagnostics.New(diagnostics.TypeMismatch, expr.Span, "%q is not a struct", sym.Name)
	}
	for _, init := range expr.StructInits {
		field, ok := sym.FieldsByName[init.Name]
		if !ok {
			return types.Invalid, diagnostics.New(diagnostics.NotAField, init.Span, "%s has no field %q", sym.Name, init.Name)
		}
		valType, err := c.checkExpr(scope, init.Value, field.Type)
		if err != nil {
			return types.Invalid, err
		}
		if !CanSafelyCast(c.State.Types, valType, field.Type) {
			return types.Invalid, diagnostics.New(diagnostics.TypeMismatch, init.Span,
				"field %q expects %s, got %s", init.Name, c.State.Types.String(field.Type), c.State.Types.String(valType))
		}
	}
	return sym.StructType, nil
}

func (c *Checker) checkUnary(scope *symbols.Scope, expr ast.Expression) (types.TypeId, error) {
	reg := c.State.Types
	baseType, err := c.checkExpr(scope, *expr.Base, types.Invalid)
	if err != nil {
		return types.Invalid, err
	}
	switch expr.UnOp {
	case ast.UNeg:
		if !reg.IsNumeric(baseType) {
			return types.Invalid, diagnostics.New(diagnostics.TypeMismatch, expr.Span, "unary - requires a numeric operand")
		}
		return baseType, nil
	case ast.UNot:
		if !CanSafelyCast(reg, baseType, reg.GetBool()) {
			return types.Invalid, diagnostics.New(diagnostics.TypeMismatch, expr.Span, "unary ! requires a boolean operand")
		}
		return reg.GetBool(), nil
	case ast.UBitNot:
		if !reg.IsInteger(baseType) {
			return types.Invalid, diagnostics.New(diagnostics.TypeMismatch, expr.Span, "unary ~ requires an integer operand")
		}
		return baseType, nil
	}
	return types.Invalid, diagnostics.Internal("checker", "unknown unary operator")
}

func isComparison(op ast.BinaryOp) bool {
	switch op {
	case ast.BEq, ast.BNe, ast.BLt, ast.BGt, ast.BLe, ast.BGe, ast.BLogicalAnd, ast.BLogicalOr:
		return true
	}
	return false
}

func (c *Checker) checkBinary(scope *symbols.Scope, expr ast.Expression) (types.TypeId, error) {
	reg := c.State.Types
	lhsType, err := c.checkExpr(scope, *expr.Lhs, types.Invalid)
	if err != nil {
		return types.Invalid, err
	}
	rhsType, err := c.checkExpr(scope, *expr.Rhs, lhsType)
	if err != nil {
		return types.Invalid, err
	}
	if !CanSafelyCast(reg, rhsType, lhsType) && !CanSafelyCast(reg, lhsType, rhsType) {
		return types.Invalid, diagnostics.New(diagnostics.TypeMismatch, expr.Span,
			"incompatible operand types %s and %s", reg.String(lhsType), reg.String(rhsType))
	}
	if isComparison(expr.BinOp) {
		return reg.GetBool(), nil
	}
	return lhsType, nil
}

func (c *Checker) checkAssign(scope *symbols.Scope, expr ast.Expression) (types.TypeId, error) {
	p, err := c.resolvePlace(scope, *expr.Lhs)
	if err != nil {
		return types.Invalid, err
	}
	if !p.Mutable {
		return types.Invalid, diagnostics.New(diagnostics.MutabilityMismatch, expr.Span, "assignment to an immutable place")
	}
	rhsType, err := c.checkExpr(scope, *expr.Rhs, p.Type)
	if err != nil {
		return types.Invalid, err
	}
	if !CanSafelyCast(c.State.Types, rhsType, p.Type) {
		return types.Invalid, diagnostics.New(diagnostics.TypeMismatch, expr.Span,
			"cannot assign %s to place of type %s", c.State.Types.String(rhsType), c.State.Types.String(p.Type))
	}
	return p.Type, nil
}

func (c *Checker) checkCompoundAssign(scope *symbols.Scope, expr ast.Expression) (types.TypeId, error) {
	p, err := c.resolvePlace(scope, *expr.Lhs)
	if err != nil {
		return types.Invalid, err
	}
	if !p.Mutable {
		return types.Invalid, diagnostics.New(diagnostics.MutabilityMismatch, expr.Span, "compound assignment to an immutable place")
	}
	rhsType, err := c.checkExpr(scope, *expr.Rhs, p.Type)
	if err != nil {
		return types.Invalid, err
	}
	if !CanSafelyCast(c.State.Types, rhsType, p.Type) {
		return types.Invalid, diagnostics.New(diagnostics.TypeMismatch, expr.Span,
			"cannot combine %s into place of type %s", c.State.Types.String(rhsType), c.State.Types.String(p.Type))
	}
	return p.Type, nil
}

func (c *Checker) checkMatch(scope *symbols.Scope, expr ast.Expression) (types.TypeId, error) {
	subjType, err := c.checkExpr(scope, *expr.Cond, types.Invalid)
	if err != nil {
		return types.Invalid, err
	}
	var resultType types.TypeId = types.Invalid
	coversTrue, coversFalse := false, false
	exhaustive := false
	for _, arm := range expr.MatchArms {
		armScope := symbols.NewScope("<arm>", symbols.ScopeBlock, scope)
		c.blockScopes[arm.Span] = armScope
		if len(arm.Patterns) == 0 {
			// bare `else` arm: always matches.
			exhaustive = true
		}
		for _, pat := range arm.Patterns {
			if err := c.checkPattern(armScope, pat, subjType); err != nil {
				return types.Invalid, err
			}
			if pat.Kind == ast.PWildcard || pat.Kind == ast.PBinding {
				exhaustive = true
			}
			if pat.Kind == ast.PLiteral && pat.Literal.Kind == ast.EBool {
				if pat.Literal.Bool {
					coversTrue = true
				} else {
					coversFalse = true
				}
			}
		}
		bodyType, err := c.checkExpr(armScope, arm.Body, resultType)
		if err != nil {
			return types.Invalid, err
		}
		if resultType == types.Invalid {
			resultType = bodyType
		} else if bodyType != resultType && !CanSafelyCast(c.State.Types, bodyType, resultType) {
			return types.Invalid, diagnostics.New(diagnostics.TypeMismatch, arm.Span,
				"match arm type %s is incompatible with %s", c.State.Types.String(bodyType), c.State.Types.String(resultType))
		}
	}
	if !exhaustive && c.State.Types.IsBool(subjType) && coversTrue && coversFalse {
		exhaustive = true
	}
	if !exhaustive {
		return types.Invalid, diagnostics.New(diagnostics.NonExhaustiveMatch, expr.Span,
			"match does not cover every value of %s: add a wildcard (`_`) or binding arm", c.State.Types.String(subjType))
	}
	return resultType, nil
}

func (c *Checker) checkPattern(scope *symbols.Scope, pat ast.Pattern, subjType types.TypeId) error {
	switch pat.Kind {
	case ast.PWildcard:
		return nil
	case ast.PBinding:
		scope.Insert(&symbols.Symbol{Kind: symbols.SymVariable, Name: pat.Name, VarType: subjType, VarIndex: c.nextLocalSlot()})
		return nil
	case ast.PLiteral:
		_, err := c.checkExpr(scope, pat.Literal, subjType)
		return err
	case ast.PTuple:
		ty := c.State.Types.At(subjType)
		if ty.Kind != types.KindTuple || len(ty.Elements) != len(pat.Elements) {
			return diagnostics.New(diagnostics.TypeMismatch, pat.Span, "tuple pattern arity mismatch")
		}
		for i, sub := range pat.Elements {
			if err := c.checkPattern(scope, sub, ty.Elements[i]); err != nil {
				return err
			}
		}
		return nil
	case ast.PStruct:
		ty := c.State.Types.At(subjType)
		if ty.Kind != types.KindStruct {
			return diagnostics.New(diagnostics.TypeMismatch, pat.Span, "struct pattern on a non-struct type")
		}
		sym := c.State.GlobalStructs[ty.QualifiedName]
		for i, name := range pat.FieldNames {
			field, ok := sym.FieldsByName[name]
			if !ok {
				return diagnostics.New(diagnostics.NotAField, pat.Span, "%s has no field %q", sym.Name, name)
			}
			if err := c.checkPattern(scope, pat.Fields[i], field.Type); err != nil {
				return err
			}
		}
		return nil
	}
	return nil
}

func (c *Checker) checkClosure(scope *symbols.Scope, expr ast.Expression, contextType types.TypeId) (types.TypeId, error) {
	reg := c.State.Types
	var ctxParams []types.TypeId
	if contextType != types.Invalid && reg.At(contextType).Kind == types.KindFunction {
		ctxParams = reg.At(contextType).Params
	}
	closureScope := symbols.NewScope("<closure>", symbols.ScopeFunction, scope)
	paramTypes := make([]types.TypeId, len(expr.ClosureParams))
	for i, p := range expr.ClosureParams {
		var pt types.TypeId
		var err error
		if p.Type != nil {
			pt, err = c.ResolveType(closureScope, *p.Type)
			if err != nil {
				return types.Invalid, err
			}
		} else if i < len(ctxParams) {
			pt = ctxParams[i]
		} else {
			return types.Invalid, diagnostics.New(diagnostics.TypeMismatch, expr.Span, "closure parameter %q has no inferrable type", p.Name)
		}
		paramTypes[i] = pt
		closureScope.Insert(&symbols.Symbol{Kind: symbols.SymVariable, Name: p.Name, VarType: pt})
	}
	bodyType, err := c.checkExpr(closureScope, expr.ClosureBody, types.Invalid)
	if err != nil {
		return types.Invalid, err
	}
	return reg.MakeFunction(bodyType, paramTypes, false), nil
}
