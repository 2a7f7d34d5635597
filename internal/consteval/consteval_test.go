package consteval_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blanketsucks/language-sub000/internal/ast"
	"github.com/blanketsucks/language-sub000/internal/consteval"
	"github.com/blanketsucks/language-sub000/internal/symbols"
	"github.com/blanketsucks/language-sub000/internal/types"
)

func newEvaluator() (*consteval.Evaluator, *symbols.Scope) {
	reg := types.NewRegistry()
	scope := symbols.NewScope("<test>", symbols.ScopeGlobal, nil)
	ev := &consteval.Evaluator{
		Types: reg,
		Resolve: func(*symbols.Scope, string) (consteval.Constant, bool) {
			return consteval.Constant{}, false
		},
	}
	return ev, scope
}

func intLit(v int64) ast.Expression {
	return ast.Expression{Kind: ast.EInt, Int: big.NewInt(v)}
}

func TestEvalArithmetic(t *testing.T) {
	ev, scope := newEvaluator()
	expr := ast.Expression{
		Kind:  ast.EBinary,
		BinOp: ast.BAdd,
		Lhs:   ptr(intLit(2)),
		Rhs: ptr(ast.Expression{
			Kind: ast.EBinary, BinOp: ast.BMul,
			Lhs: ptr(intLit(3)), Rhs: ptr(intLit(4)),
		}),
	}
	c, err := ev.Eval(scope, expr)
	require.NoError(t, err)
	assert.Equal(t, int64(14), c.Int.Int64())
}

func TestEvalDivisionByZero(t *testing.T) {
	ev, scope := newEvaluator()
	expr := ast.Expression{Kind: ast.EBinary, BinOp: ast.BDiv, Lhs: ptr(intLit(1)), Rhs: ptr(intLit(0))}
	_, err := ev.Eval(scope, expr)
	require.Error(t, err)
}

func TestEvalTernary(t *testing.T) {
	ev, scope := newEvaluator()
	cond := ast.Expression{Kind: ast.EBool, Bool: true}
	expr := ast.Expression{Kind: ast.ETernary, Cond: ptr(cond), Then: ptr(intLit(1)), Else: ptr(intLit(2))}
	c, err := ev.Eval(scope, expr)
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.Int.Int64())
}

func TestEvalArrayIndex(t *testing.T) {
	ev, scope := newEvaluator()
	arr := ast.Expression{Kind: ast.EArray, Elements: []ast.Expression{intLit(10), intLit(20), intLit(30)}}
	expr := ast.Expression{Kind: ast.EIndex, Base: ptr(arr), Index: ptr(intLit(1))}
	c, err := ev.Eval(scope, expr)
	require.NoError(t, err)
	assert.Equal(t, int64(20), c.Int.Int64())
}

func TestEvalIndexOutOfRange(t *testing.T) {
	ev, scope := newEvaluator()
	arr := ast.Expression{Kind: ast.EArray, Elements: []ast.Expression{intLit(10)}}
	expr := ast.Expression{Kind: ast.EIndex, Base: ptr(arr), Index: ptr(intLit(5))}
	_, err := ev.Eval(scope, expr)
	require.Error(t, err)
}

func TestEvalWhileLoopCap(t *testing.T) {
	ev, scope := newEvaluator()
	// `while true { }` must hit the iteration cap rather than loop forever.
	stmt := ast.Statement{
		Kind:      ast.SWhile,
		WhileCond: ptr(ast.Expression{Kind: ast.EBool, Bool: true}),
		WhileBody: ptr(ast.Statement{Kind: ast.SBlock}),
	}
	_, _, err := ev.EvalStatement(scope, stmt)
	require.Error(t, err)
}

func TestEvalIdentifierNotConstant(t *testing.T) {
	ev, scope := newEvaluator()
	expr := ast.Expression{Kind: ast.EIdent, Name: "unknown"}
	_, err := ev.Eval(scope, expr)
	require.Error(t, err)
}

func ptr[T any](v T) *T { return &v }
