package codegen

import (
	"github.com/blanketsucks/language-sub000/internal/ast"
	"github.com/blanketsucks/language-sub000/internal/diagnostics"
	"github.com/blanketsucks/language-sub000/internal/ir"
	"github.com/blanketsucks/language-sub000/internal/symbols"
	"github.com/blanketsucks/language-sub000/internal/types"
)

// placeRef is the generator's address-of-place result: a reference operand
// plus the referent's type, consumed by Write (assignment), Read (compound
// assignment's load-back), and ERef.
type placeRef struct {
	Ref  ir.Operand
	Type types.TypeId
}

// lowerPlace resolves expr's address (§4.7 assignment rule: "resolves LHS
// as a reference register"). The checker already proved expr is a place;
// this only needs to emit the IR that materialises its address.
func (fg *funcGen) lowerPlace(scope *symbols.Scope, expr ast.Expression) (placeRef, error) {
	switch expr.Kind {
	case ast.EIdent:
		sym, ok := fg.lookupVar(scope, expr.Name)
		if !ok {
			return placeRef{}, diagnostics.Internal("codegen", "unresolved place identifier %q", expr.Name)
		}
		v := fg.refVar(sym)
		return placeRef{Ref: v.Op, Type: sym.VarType}, nil
	case ast.EPath:
		if len(expr.Segments) == 1 {
			return fg.lowerPlace(scope, ast.Expression{Kind: ast.EIdent, Name: expr.Segments[0].Name, Span: expr.Span})
		}
		return placeRef{}, diagnostics.Internal("codegen", "qualified path is not a place")
	case ast.EDeref:
		base, err := fg.lowerExpr(scope, *expr.Base, types.Invalid)
		if err != nil {
			return placeRef{}, err
		}
		bt := fg.gen.State.Types.At(base.Type)
		return placeRef{Ref: base.Op, Type: bt.Pointee}, nil
	case ast.EIndex:
		basePlace, err := fg.lowerPlace(scope, *expr.Base)
		if err != nil {
			return placeRef{}, err
		}
		idxVal, err := fg.lowerExpr(scope, *expr.Index, types.Invalid)
		if err != nil {
			return placeRef{}, err
		}
		elemTy, err := fg.indexElemType(basePlace.Type)
		if err != nil {
			return placeRef{}, err
		}
		refTy := fg.gen.State.Types.MakeReference(elemTy, true)
		dst := fg.newRegister(refTy)
		fg.emit(ir.Instruction{Op: ir.GetMemberRef, Dst: dst, Src: basePlace.Ref, Src2: idxVal.Op, Type: refTy})
		return placeRef{Ref: ir.RegOperand(dst), Type: elemTy}, nil
	case ast.EAttribute:
		return fg.lowerFieldPlace(scope, expr)
	default:
		return placeRef{}, diagnostics.Internal("codegen", "expression is not a place")
	}
}

// indexElemType resolves the element type produced by indexing a value of
// baseType, auto-deref'ing one level of pointer/reference the way the
// checker's index rule does. Shared by the place path (EIndex above) and
// the read path (lowerIndexRead).
func (fg *funcGen) indexElemType(baseType types.TypeId) (types.TypeId, error) {
	bt := fg.gen.State.Types.At(baseType)
	switch bt.Kind {
	case types.KindArray:
		return bt.Element, nil
	case types.KindPointer, types.KindReference:
		return bt.Pointee, nil
	default:
		return types.Invalid, diagnostics.Internal("codegen", "not indexable")
	}
}

func (fg *funcGen) lowerFieldPlace(scope *symbols.Scope, expr ast.Expression) (placeRef, error) {
	base, err := fg.lowerExpr(scope, *expr.Base, types.Invalid)
	if err != nil {
		return placeRef{}, err
	}
	structSym, baseRef, fieldTy, idx, err := fg.resolveFieldAccess(scope, base, *expr.Base, expr.Field)
	if err != nil {
		return placeRef{}, err
	}
	_ = structSym
	refTy := fg.gen.State.Types.MakeReference(fieldTy, true)
	dst := fg.newRegister(refTy)
	fg.emit(ir.Instruction{Op: ir.GetMemberRef, Dst: dst, Src: baseRef, Src2: ir.IntImmediate(int64(idx), fg.gen.State.Types.GetInt(32, false)), Type: refTy})
	return placeRef{Ref: ir.RegOperand(dst), Type: fieldTy}, nil
}

// resolveFieldAccess locates field on base's struct type (auto-deref'ing one
// level of pointer/reference, matching the checker's structOf), and
// materialises the base's address for a subsequent GetMember/GetMemberRef.
func (fg *funcGen) resolveFieldAccess(scope *symbols.Scope, base value, baseExpr ast.Expression, field string) (*symbols.Symbol, ir.Operand, types.TypeId, int, error) {
	reg := fg.gen.State.Types
	ty := reg.At(base.Type)
	var baseRef ir.Operand
	structTy := base.Type
	if ty.Kind == types.KindPointer || ty.Kind == types.KindReference {
		baseRef = base.Op
		structTy = ty.Pointee
	} else {
		p, err := fg.lowerPlace(scope, baseExpr)
		if err != nil {
			return nil, ir.Operand{}, types.Invalid, 0, err
		}
		baseRef = p.Ref
	}
	st := reg.At(structTy)
	sym, ok := fg.gen.State.GlobalStructs[st.QualifiedName]
	if !ok {
		return nil, ir.Operand{}, types.Invalid, 0, diagnostics.Internal("codegen", "struct %q has no collected symbol", st.QualifiedName)
	}
	f, ok := sym.FieldsByName[field]
	if !ok {
		return nil, ir.Operand{}, types.Invalid, 0, diagnostics.Internal("codegen", "%s has no field %q", sym.Name, field)
	}
	return sym, baseRef, f.Type, f.Index, nil
}
