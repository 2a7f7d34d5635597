// Package consteval implements the ConstantEvaluator (spec §4.5): a pure
// interpreter over a whitelisted subset of expressions, used to fold array
// sizes, `static_assert` conditions, and `const` initializers.
package consteval

import (
	"math/big"

	"github.com/blanketsucks/language-sub000/internal/ast"
	"github.com/blanketsucks/language-sub000/internal/config"
	"github.com/blanketsucks/language-sub000/internal/diagnostics"
	"github.com/blanketsucks/language-sub000/internal/symbols"
	"github.com/blanketsucks/language-sub000/internal/types"
)

// ConstantKind tags the variant of a folded Constant value.
type ConstantKind int

const (
	CInt ConstantKind = iota
	CFloat
	CString
	CArray
	CTuple
	CStruct
)

// Constant is a fully-folded compile-time value, carrying the TypeId it was
// folded at (§4.5).
type Constant struct {
	Kind   ConstantKind
	Type   types.TypeId
	Int    *big.Int
	Float  float64
	Str    string
	Fields []Constant // CArray, CTuple, and CStruct (the literal's initializer order)
}

// Evaluator is the pure, re-entrant constant interpreter. It holds no
// mutable state of its own beyond one evaluation's `break` flag, which
// never escapes a single Eval call (§4.5: "never recurses into
// externally-visible state").
type Evaluator struct {
	Types *types.Registry

	// Resolve looks up a const-qualified identifier's already-folded value.
	// Supplied by the checker, which owns the scope tree and the table of
	// previously-evaluated const symbols.
	Resolve func(scope *symbols.Scope, name string) (Constant, bool)

	// EvalTypeSize computes sizeof/offsetof payloads without depending on
	// a backend ABI: the checker supplies a packed byte size (no alignment
	// padding), the same value codegen emits for sizeof.
	EvalTypeSize func(t types.TypeId) uint32
}

type evalState struct {
	broke bool
}

// Eval folds expr under scope, failing with NotConstant if expr (or a
// sub-expression it depends on) is outside the whitelisted subset (§4.5).
func (e *Evaluator) Eval(scope *symbols.Scope, expr ast.Expression) (Constant, error) {
	st := &evalState{}
	return e.eval(scope, expr, st)
}

func (e *Evaluator) eval(scope *symbols.Scope, expr ast.Expression, st *evalState) (Constant, error) {
	switch expr.Kind {
	case ast.EInt:
		ty := e.intLiteralType(expr.IntSuffix)
		return Constant{Kind: CInt, Type: ty, Int: new(big.Int).Set(expr.Int)}, nil
	case ast.EFloat:
		bits := uint16(32)
		if expr.FloatIsF64 {
			bits = 64
		}
		return Constant{Kind: CFloat, Type: e.Types.GetFloat(bits), Float: expr.Float}, nil
	case ast.EBool:
		v := int64(0)
		if expr.Bool {
			v = 1
		}
		return Constant{Kind: CInt, Type: e.Types.GetBool(), Int: big.NewInt(v)}, nil
	case ast.EString:
		return Constant{Kind: CString, Type: e.Types.MakePointer(e.Types.GetInt(8, true), false), Str: expr.Str}, nil
	case ast.EIdent:
		c, ok := e.Resolve(scope, expr.Name)
		if !ok {
			return Constant{}, e.notConstant(expr, "identifier %q is not a constant", expr.Name)
		}
		return c, nil
	case ast.EPath:
		if len(expr.Segments) == 1 {
			c, ok := e.Resolve(scope, expr.Segments[0].Name)
			if ok {
				return c, nil
			}
		}
		return Constant{}, e.notConstant(expr, "path expression is not constant")
	case ast.ETuple:
		fields := make([]Constant, len(expr.Elements))
		for i, el := range expr.Elements {
			c, err := e.eval(scope, el, st)
			if err != nil {
				return Constant{}, err
			}
			fields[i] = c
		}
		ids := make([]types.TypeId, len(fields))
		for i, f := range fields {
			ids[i] = f.Type
		}
		return Constant{Kind: CTuple, Type: e.Types.MakeTuple(ids), Fields: fields}, nil
	case ast.EArray:
		fields := make([]Constant, len(expr.Elements))
		for i, el := range expr.Elements {
			c, err := e.eval(scope, el, st)
			if err != nil {
				return Constant{}, err
			}
			fields[i] = c
		}
		elemType := e.Types.Void()
		if len(fields) > 0 {
			elemType = fields[0].Type
		}
		return Constant{Kind: CArray, Type: e.Types.MakeArray(elemType, uint32(len(fields))), Fields: fields}, nil
	case ast.EStruct:
		fields := make([]Constant, len(expr.StructInits))
		for i, init := range expr.StructInits {
			c, err := e.eval(scope, init.Value, st)
			if err != nil {
				return Constant{}, err
			}
			fields[i] = c
		}
		return Constant{Kind: CStruct, Fields: fields}, nil
	case ast.EAttribute:
		base, err := e.eval(scope, *expr.Base, st)
		if err != nil {
			return Constant{}, err
		}
		if base.Kind != CStruct {
			return Constant{}, e.notConstant(expr, "attribute access on a non-struct constant")
		}
		// Field access is not folded: a CStruct Constant keeps its values
		// but no field names, so every `.field` read on a struct constant
		// (a `const` binding or an inline literal) fails with NotConstant.
		return Constant{}, e.notConstant(expr, "struct field access requires checker-resolved field index")
	case ast.EIndex:
		base, err := e.eval(scope, *expr.Base, st)
		if err != nil {
			return Constant{}, err
		}
		idx, err := e.eval(scope, *expr.Index, st)
		if err != nil {
			return Constant{}, err
		}
		if base.Kind != CArray && base.Kind != CTuple {
			return Constant{}, e.notConstant(expr, "index of a non-array/tuple constant")
		}
		i := idx.Int.Int64()
		if i < 0 || i >= int64(len(base.Fields)) {
			return Constant{}, diagnostics.New(diagnostics.IndexOutOfRange, expr.Span, "index %d out of range (len %d)", i, len(base.Fields))
		}
		return base.Fields[i], nil
	case ast.ESizeof:
		if e.EvalTypeSize == nil {
			return Constant{}, e.notConstant(expr, "sizeof requires a resolved type")
		}
		var t types.TypeId
		if expr.SizeofExpr != nil {
			v, err := e.eval(scope, *expr.SizeofExpr, st)
			if err != nil {
				return Constant{}, err
			}
			t = v.Type
		} else {
			return Constant{}, e.notConstant(expr, "sizeof(Type) requires checker-resolved type")
		}
		return Constant{Kind: CInt, Type: e.Types.GetInt(64, false), Int: big.NewInt(int64(e.EvalTypeSize(t)))}, nil
	case ast.EUnary:
		v, err := e.eval(scope, *expr.Base, st)
		if err != nil {
			return Constant{}, err
		}
		return e.evalUnary(expr, v)
	case ast.EBinary:
		return e.evalBinary(scope, expr, st)
	case ast.ETernary:
		cond, err := e.eval(scope, *expr.Cond, st)
		if err != nil {
			return Constant{}, err
		}
		if truthy(cond) {
			return e.eval(scope, *expr.Then, st)
		}
		return e.eval(scope, *expr.Else, st)
	default:
		return Constant{}, e.notConstant(expr, "expression kind not in the constant-evaluable whitelist")
	}
}

func (e *Evaluator) intLiteralType(suffix string) types.TypeId {
	switch suffix {
	case "i8":
		return e.Types.GetInt(8, true)
	case "u8":
		return e.Types.GetInt(8, false)
	case "i16":
		return e.Types.GetInt(16, true)
	case "u16":
		return e.Types.GetInt(16, false)
	case "i32", "":
		return e.Types.GetInt(32, true)
	case "u32":
		return e.Types.GetInt(32, false)
	case "i64", "isize":
		return e.Types.GetInt(64, true)
	case "u64", "usize":
		return e.Types.GetInt(64, false)
	case "i128":
		return e.Types.GetInt(128, true)
	case "u128":
		return e.Types.GetInt(128, false)
	default:
		return e.Types.GetInt(32, true)
	}
}

func truthy(c Constant) bool {
	return c.Kind == CInt && c.Int.Sign() != 0
}

func (e *Evaluator) notConstant(expr ast.Expression, format string, args ...any) *diagnostics.Error {
	return diagnostics.New(diagnostics.NotConstant, expr.Span, format, args...)
}

func (e *Evaluator) evalUnary(expr ast.Expression, v Constant) (Constant, error) {
	switch expr.UnOp {
	case ast.UNeg:
		if v.Kind == CFloat {
			return Constant{Kind: CFloat, Type: v.Type, Float: -v.Float}, nil
		}
		return Constant{Kind: CInt, Type: v.Type, Int: new(big.Int).Neg(v.Int)}, nil
	case ast.UNot:
		if truthy(v) {
			return Constant{Kind: CInt, Type: e.Types.GetBool(), Int: big.NewInt(0)}, nil
		}
		return Constant{Kind: CInt, Type: e.Types.GetBool(), Int: big.NewInt(1)}, nil
	case ast.UBitNot:
		return Constant{Kind: CInt, Type: v.Type, Int: new(big.Int).Not(v.Int)}, nil
	}
	return Constant{}, e.notConstant(expr, "unsupported unary operator")
}

func (e *Evaluator) evalBinary(scope *symbols.Scope, expr ast.Expression, st *evalState) (Constant, error) {
	lhs, err := e.eval(scope, *expr.Lhs, st)
	if err != nil {
		return Constant{}, err
	}
	// Short-circuit logical operators.
	if expr.BinOp == ast.BLogicalAnd && !truthy(lhs) {
		return Constant{Kind: CInt, Type: e.Types.GetBool(), Int: big.NewInt(0)}, nil
	}
	if expr.BinOp == ast.BLogicalOr && truthy(lhs) {
		return Constant{Kind: CInt, Type: e.Types.GetBool(), Int: big.NewInt(1)}, nil
	}
	rhs, err := e.eval(scope, *expr.Rhs, st)
	if err != nil {
		return Constant{}, err
	}

	if lhs.Kind == CFloat || rhs.Kind == CFloat {
		return e.evalFloatBinary(expr, lhs, rhs)
	}

	a, b := lhs.Int, rhs.Int
	resultType := lhs.Type
	boolResult := func(v bool) (Constant, error) {
		n := int64(0)
		if v {
			n = 1
		}
		return Constant{Kind: CInt, Type: e.Types.GetBool(), Int: big.NewInt(n)}, nil
	}
	switch expr.BinOp {
	case ast.BAdd:
		return Constant{Kind: CInt, Type: resultType, Int: new(big.Int).Add(a, b)}, nil
	case ast.BSub:
		return Constant{Kind: CInt, Type: resultType, Int: new(big.Int).Sub(a, b)}, nil
	case ast.BMul:
		return Constant{Kind: CInt, Type: resultType, Int: new(big.Int).Mul(a, b)}, nil
	case ast.BDiv:
		if b.Sign() == 0 {
			return Constant{}, diagnostics.New(diagnostics.DivisionByZero, expr.Span, "division by zero in constant expression")
		}
		return Constant{Kind: CInt, Type: resultType, Int: new(big.Int).Quo(a, b)}, nil
	case ast.BMod:
		if b.Sign() == 0 {
			return Constant{}, diagnostics.New(diagnostics.DivisionByZero, expr.Span, "division by zero in constant expression")
		}
		return Constant{Kind: CInt, Type: resultType, Int: new(big.Int).Rem(a, b)}, nil
	case ast.BBitAnd:
		return Constant{Kind: CInt, Type: resultType, Int: new(big.Int).And(a, b)}, nil
	case ast.BBitOr:
		return Constant{Kind: CInt, Type: resultType, Int: new(big.Int).Or(a, b)}, nil
	case ast.BBitXor:
		return Constant{Kind: CInt, Type: resultType, Int: new(big.Int).Xor(a, b)}, nil
	case ast.BShl:
		return Constant{Kind: CInt, Type: resultType, Int: new(big.Int).Lsh(a, uint(b.Int64()))}, nil
	case ast.BShr:
		return Constant{Kind: CInt, Type: resultType, Int: new(big.Int).Rsh(a, uint(b.Int64()))}, nil
	case ast.BEq:
		return boolResult(a.Cmp(b) == 0)
	case ast.BNe:
		return boolResult(a.Cmp(b) != 0)
	case ast.BLt:
		return boolResult(a.Cmp(b) < 0)
	case ast.BGt:
		return boolResult(a.Cmp(b) > 0)
	case ast.BLe:
		return boolResult(a.Cmp(b) <= 0)
	case ast.BGe:
		return boolResult(a.Cmp(b) >= 0)
	case ast.BLogicalAnd:
		return boolResult(truthy(lhs) && truthy(rhs))
	case ast.BLogicalOr:
		return boolResult(truthy(lhs) || truthy(rhs))
	}
	return Constant{}, e.notConstant(expr, "unsupported binary operator")
}

func (e *Evaluator) evalFloatBinary(expr ast.Expression, lhs, rhs Constant) (Constant, error) {
	a, b := asFloat(lhs), asFloat(rhs)
	resultType := lhs.Type
	if lhs.Kind != CFloat {
		resultType = rhs.Type
	}
	boolResult := func(v bool) (Constant, error) {
		n := int64(0)
		if v {
			n = 1
		}
		return Constant{Kind: CInt, Type: e.Types.GetBool(), Int: big.NewInt(n)}, nil
	}
	switch expr.BinOp {
	case ast.BAdd:
		return Constant{Kind: CFloat, Type: resultType, Float: a + b}, nil
	case ast.BSub:
		return Constant{Kind: CFloat, Type: resultType, Float: a - b}, nil
	case ast.BMul:
		return Constant{Kind: CFloat, Type: resultType, Float: a * b}, nil
	case ast.BDiv:
		if b == 0 {
			return Constant{}, diagnostics.New(diagnostics.DivisionByZero, expr.Span, "division by zero in constant expression")
		}
		return Constant{Kind: CFloat, Type: resultType, Float: a / b}, nil
	case ast.BEq:
		return boolResult(a == b)
	case ast.BNe:
		return boolResult(a != b)
	case ast.BLt:
		return boolResult(a < b)
	case ast.BGt:
		return boolResult(a > b)
	case ast.BLe:
		return boolResult(a <= b)
	case ast.BGe:
		return boolResult(a >= b)
	}
	return Constant{}, e.notConstant(expr, "unsupported float binary operator")
}

func asFloat(c Constant) float64 {
	if c.Kind == CFloat {
		return c.Float
	}
	f := new(big.Float).SetInt(c.Int)
	v, _ := f.Float64()
	return v
}

// EvalStatement handles the statement-shaped members of the whitelist:
// `if/else` and bounded `while` (§4.5). Returns (result, hasValue, error);
// an `if` with no matching branch and no value yields hasValue=false.
func (e *Evaluator) EvalStatement(scope *symbols.Scope, stmt ast.Statement) (Constant, bool, error) {
	st := &evalState{}
	return e.evalStmt(scope, stmt, st)
}

func (e *Evaluator) evalStmt(scope *symbols.Scope, stmt ast.Statement, st *evalState) (Constant, bool, error) {
	switch stmt.Kind {
	case ast.SIf:
		cond, err := e.eval(scope, *stmt.Cond, st)
		if err != nil {
			return Constant{}, false, err
		}
		if truthy(cond) {
			return e.evalStmt(scope, *stmt.Then, st)
		}
		if stmt.Else != nil {
			return e.evalStmt(scope, *stmt.Else, st)
		}
		return Constant{}, false, nil
	case ast.SWhile:
		iterations := 0
		for {
			cond, err := e.eval(scope, *stmt.WhileCond, st)
			if err != nil {
				return Constant{}, false, err
			}
			if !truthy(cond) || st.broke {
				st.broke = false
				break
			}
			if _, _, err := e.evalStmt(scope, *stmt.WhileBody, st); err != nil {
				return Constant{}, false, err
			}
			iterations++
			if iterations > config.ConstEvalIterationCap {
				return Constant{}, false, diagnostics.New(diagnostics.ConstLoopOverflow, stmt.Span,
					"constant `while` exceeded the %d-iteration cap", config.ConstEvalIterationCap)
			}
		}
		return Constant{}, false, nil
	case ast.SBreak:
		st.broke = true
		return Constant{}, false, nil
	case ast.SBlock:
		for _, s := range stmt.Statements {
			if _, _, err := e.evalStmt(scope, s, st); err != nil {
				return Constant{}, false, err
			}
			if st.broke {
				break
			}
		}
		return Constant{}, false, nil
	case ast.SExpr:
		c, err := e.eval(scope, *stmt.Expr, st)
		if err != nil {
			return Constant{}, false, err
		}
		return c, true, nil
	default:
		return Constant{}, false, diagnostics.New(diagnostics.NotConstant, stmt.Span, "statement kind not in the constant-evaluable whitelist")
	}
}
