package checker

import (
	"github.com/blanketsucks/language-sub000/internal/ast"
	"github.com/blanketsucks/language-sub000/internal/diagnostics"
	"github.com/blanketsucks/language-sub000/internal/source"
	"github.com/blanketsucks/language-sub000/internal/symbols"
	"github.com/blanketsucks/language-sub000/internal/types"
)

type primSpec struct {
	bits   uint16
	signed bool
}

var primitiveInts = map[string]primSpec{
	"i8": {8, true}, "u8": {8, false},
	"i16": {16, true}, "u16": {16, false},
	"i32": {32, true}, "u32": {32, false},
	"i64": {64, true}, "u64": {64, false},
	"i128": {128, true}, "u128": {128, false},
	"isize": {64, true}, "usize": {64, false},
	"bool": {1, false},
}

// LiteralIntType mirrors checkExpr's EInt literal-type selection (§4.6): a
// contextual integer type wins, then an explicit suffix, then the i32
// default. Exposed so the generator can re-derive the same literal's type
// independently, without the checker stashing it on the AST node.
func (c *Checker) LiteralIntType(contextType types.TypeId, suffix string) types.TypeId {
	reg := c.State.Types
	if contextType != types.Invalid && reg.IsInteger(contextType) {
		return contextType
	}
	if suffix != "" {
		if spec, ok := primitiveInts[suffix]; ok {
			return reg.GetInt(spec.bits, spec.signed)
		}
	}
	return reg.GetInt(32, true)
}

// LiteralFloatType mirrors checkExpr's EFloat literal-type selection.
func (c *Checker) LiteralFloatType(contextType types.TypeId, isF64 bool) types.TypeId {
	reg := c.State.Types
	if isF64 {
		return reg.GetFloat(64)
	}
	if contextType != types.Invalid && reg.IsFloat(contextType) {
		return contextType
	}
	return reg.GetFloat(32)
}

// ResolveType interns te into the TypeRegistry, resolving named paths
// against scope (§4.2/§4.6). Primitive names (`i32`, `bool`, `f64`, `void`,
// ...) are recognized structurally rather than as keywords (§6: the lexer
// contract treats them as plain identifiers).
func (c *Checker) ResolveType(scope *symbols.Scope, te ast.TypeExpr) (types.TypeId, error) {
	reg := c.State.Types
	switch te.Kind {
	case ast.TENamed:
		if len(te.Segments) == 1 {
			name := te.Segments[0].Name
			switch name {
			case "void":
				return reg.Void(), nil
			case "f32":
				return reg.GetFloat(32), nil
			case "f64":
				return reg.GetFloat(64), nil
			}
			if spec, ok := primitiveInts[name]; ok {
				return reg.GetInt(spec.bits, spec.signed), nil
			}
		}
		sym, err := c.resolveTypePath(scope, te.Segments)
		if err != nil {
			return types.Invalid, err
		}
		switch sym.Kind {
		case symbols.SymStruct:
			return sym.StructType, nil
		case symbols.SymTrait:
			return sym.TraitType, nil
		case symbols.SymTypeAlias:
			if sym.GenericAlias != nil {
				return types.Invalid, diagnostics.New(diagnostics.TypeMismatch, te.NodeSpan,
					"generic type alias %q used without arguments", sym.Name)
			}
			return sym.AliasTarget, nil
		default:
			return types.Invalid, diagnostics.New(diagnostics.NotANamespace, te.NodeSpan,
				"%q does not name a type", sym.Name)
		}
	case ast.TEPointer:
		inner, err := c.ResolveType(scope, *te.Pointee)
		if err != nil {
			return types.Invalid, err
		}
		return reg.MakePointer(inner, te.Mutable), nil
	case ast.TEReference:
		inner, err := c.ResolveType(scope, *te.Pointee)
		if err != nil {
			return types.Invalid, err
		}
		return reg.MakeReference(inner, te.Mutable), nil
	case ast.TEArray:
		elem, err := c.ResolveType(scope, *te.Element)
		if err != nil {
			return types.Invalid, err
		}
		n, err := c.Const.Eval(scope, te.Len)
		if err != nil {
			return types.Invalid, err
		}
		return reg.MakeArray(elem, uint32(n.Int.Int64())), nil
	case ast.TETuple:
		ids := make([]types.TypeId, len(te.Elements))
		for i, el := range te.Elements {
			id, err := c.ResolveType(scope, el)
			if err != nil {
				return types.Invalid, err
			}
			ids[i] = id
		}
		return reg.MakeTuple(ids), nil
	case ast.TEFunction:
		params := make([]types.TypeId, len(te.Params))
		for i, p := range te.Params {
			id, err := c.ResolveType(scope, p)
			if err != nil {
				return types.Invalid, err
			}
			params[i] = id
		}
		ret := reg.Void()
		if te.Ret != nil {
			id, err := c.ResolveType(scope, *te.Ret)
			if err != nil {
				return types.Invalid, err
			}
			ret = id
		}
		return reg.MakeFunction(ret, params, te.CVariadic), nil
	}
	return types.Invalid, diagnostics.Internal("checker", "unknown TypeExprKind %d", te.Kind)
}

// resolveTypePath resolves a multi-segment named type path through
// symbols.ResolvePath (§4.3), generics permitted on the final segment.
func (c *Checker) resolveTypePath(scope *symbols.Scope, segs []ast.PathSegment) (*symbols.Symbol, error) {
	names := make([]string, len(segs))
	spans := make([]source.Span, len(segs))
	for i, s := range segs {
		names[i] = s.Name
		spans[i] = s.Span
	}
	sym, err := symbols.ResolvePath(scope, names, spans, true)
	if err != nil {
		return nil, convertPathError(err)
	}
	return sym, nil
}

func convertPathError(err error) *diagnostics.Error {
	pe, ok := err.(*symbols.PathError)
	if !ok {
		return diagnostics.Internal("checker", "%s", err.Error())
	}
	var kind diagnostics.Kind
	switch pe.Kind {
	case "NotANamespace":
		kind = diagnostics.NotANamespace
	case "PrivateAccess":
		kind = diagnostics.PrivateAccess
	default:
		kind = diagnostics.UnknownIdentifier
	}
	return diagnostics.New(kind, pe.Span, "%s: %q", pe.Kind, pe.Name)
}
