package checker

import (
	"github.com/blanketsucks/language-sub000/internal/ast"
	"github.com/blanketsucks/language-sub000/internal/diagnostics"
	"github.com/blanketsucks/language-sub000/internal/symbols"
	"github.com/blanketsucks/language-sub000/internal/types"
)

// resolvePlace resolves expr as a place (§4.6/glossary: a variable,
// dereference, index, or field designating a memory location), required as
// the LHS of assignment and the operand of `&`/`&mut`.
func (c *Checker) resolvePlace(scope *symbols.Scope, expr ast.Expression) (place, error) {
	switch expr.Kind {
	case ast.EIdent:
		sym, ok := symbols.Resolve(scope, expr.Name)
		if !ok || sym.Kind != symbols.SymVariable {
			return place{}, diagnostics.New(diagnostics.UnknownIdentifier, expr.Span, "%q is not a place", expr.Name)
		}
		sym.VarFlags |= symbols.VarUsed
		return place{Type: sym.VarType, Mutable: sym.HasVarFlag(symbols.VarMutable), Span: expr.Span}, nil
	case ast.EPath:
		if len(expr.Segments) == 1 {
			return c.resolvePlace(scope, ast.Expression{Kind: ast.EIdent, Name: expr.Segments[0].Name, Span: expr.Span})
		}
		return place{}, diagnostics.New(diagnostics.NotAField, expr.Span, "qualified path is not a mutable place")
	case ast.EDeref:
		baseType, err := c.checkExpr(scope, *expr.Base, types.Invalid)
		if err != nil {
			return place{}, err
		}
		bt := c.State.Types.At(baseType)
		if !c.State.Types.IsPointerLike(baseType) {
			return place{}, diagnostics.New(diagnostics.NotDereferenceable, expr.Span, "%s is not a pointer or reference", c.State.Types.String(baseType))
		}
		return place{Type: bt.Pointee, Mutable: bt.Mutable, Span: expr.Span}, nil
	case ast.EIndex:
		baseType, err := c.checkExpr(scope, *expr.Base, types.Invalid)
		if err != nil {
			return place{}, err
		}
		idxType, err := c.checkExpr(scope, *expr.Index, types.Invalid)
		if err != nil {
			return place{}, err
		}
		if !c.State.Types.IsInteger(idxType) {
			return place{}, diagnostics.New(diagnostics.TypeMismatch, expr.Span, "index must be an integer")
		}
		bt := c.State.Types.At(baseType)
		switch bt.Kind {
		case types.KindArray:
			basePlace, err := c.resolvePlace(scope, *expr.Base)
			mutable := err == nil && basePlace.Mutable
			return place{Type: bt.Element, Mutable: mutable, Span: expr.Span}, nil
		case types.KindPointer, types.KindReference:
			return place{Type: bt.Pointee, Mutable: bt.Mutable, Span: expr.Span}, nil
		default:
			return place{}, diagnostics.New(diagnostics.NotIndexable, expr.Span, "%s is not indexable", c.State.Types.String(baseType))
		}
	case ast.EAttribute:
		return c.resolveFieldPlace(scope, expr)
	default:
		return place{}, diagnostics.New(diagnostics.TypeMismatch, expr.Span, "expression is not a place")
	}
}

func (c *Checker) resolveFieldPlace(scope *symbols.Scope, expr ast.Expression) (place, error) {
	baseType, err := c.checkExpr(scope, *expr.Base, types.Invalid)
	if err != nil {
		return place{}, err
	}
	structSym, structType, baseMutable, err := c.structOf(scope, baseType, expr)
	if err != nil {
		return place{}, err
	}
	field, ok := structSym.FieldsByName[expr.Field]
	if !ok {
		return place{}, diagnostics.New(diagnostics.NotAField, expr.Span, "%s has no field %q", structSym.Name, expr.Field)
	}
	if field.Has(symbols.FieldPrivate) && !c.inSameStruct(structSym) {
		return place{}, diagnostics.New(diagnostics.PrivateAccess, expr.Span, "field %q is private", expr.Field)
	}
	mutable := baseMutable && !field.Has(symbols.FieldReadonly)
	_ = structType
	return place{Type: field.Type, Mutable: mutable, Span: expr.Span}, nil
}

// structOf resolves baseType down to its underlying struct symbol, looking
// through one level of pointer/reference indirection (`p.field` on a `*P`
// auto-derefs, matching the language's attribute-access ergonomics).
func (c *Checker) structOf(scope *symbols.Scope, baseType types.TypeId, baseExpr ast.Expression) (*symbols.Symbol, types.TypeId, bool, error) {
	ty := c.State.Types.At(baseType)
	mutable := true
	if ty.Kind == types.KindPointer || ty.Kind == types.KindReference {
		mutable = ty.Mutable
		baseType = ty.Pointee
		ty = c.State.Types.At(baseType)
	} else if p, err := c.resolvePlace(scope, *baseExpr.Base); err == nil {
		mutable = p.Mutable
	}
	if ty.Kind != types.KindStruct {
		return nil, types.Invalid, false, diagnostics.New(diagnostics.NotAField, baseExpr.Span, "%s is not a struct", c.State.Types.String(baseType))
	}
	sym, ok := c.State.GlobalStructs[ty.QualifiedName]
	if !ok {
		return nil, types.Invalid, false, diagnostics.Internal("checker", "struct type %q has no collected symbol", ty.QualifiedName)
	}
	return sym, baseType, mutable, nil
}

func (c *Checker) inSameStruct(sym *symbols.Symbol) bool {
	return c.State.CurrentStruct == sym
}
