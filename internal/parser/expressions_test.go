package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blanketsucks/language-sub000/internal/ast"
	"github.com/blanketsucks/language-sub000/internal/lexer"
)

// parseReturnExpr wraps src as a function body's `return` value and parses
// it, returning the expression the checker/codegen would see.
func parseReturnExpr(t *testing.T, src string) *ast.Expression {
	t.Helper()
	full := "func f() -> i32 { return " + src + "; }"
	lx := lexer.New(full, 0)
	p := New(lx, "test.qt")
	prog, err := p.ParseProgram()
	require.NoError(t, err)
	require.Len(t, prog.Statements, 1)

	fn := prog.Statements[0]
	require.Equal(t, ast.SFunc, fn.Kind)
	require.NotNil(t, fn.Body)
	require.Len(t, fn.Body.Statements, 1)

	ret := fn.Body.Statements[0]
	require.Equal(t, ast.SReturn, ret.Kind)
	require.NotNil(t, ret.ReturnValue)
	return ret.ReturnValue
}

func TestShiftRightParsesAsBinaryOp(t *testing.T) {
	expr := parseReturnExpr(t, "8 >> 1")
	require.Equal(t, ast.EBinary, expr.Kind)
	assert.Equal(t, ast.BShr, expr.BinOp)
	assert.Equal(t, ast.EInt, expr.Lhs.Kind)
	assert.Equal(t, int64(8), expr.Lhs.Int.Int64())
	assert.Equal(t, int64(1), expr.Rhs.Int.Int64())
}

func TestShiftRightBindsLooserThanAdditive(t *testing.T) {
	// `1 + 2 >> 3` must parse as `(1 + 2) >> 3`: shift binds looser than
	// `+` (§4.1's precedence table), so the top-level op is the shift.
	expr := parseReturnExpr(t, "1 + 2 >> 3")
	require.Equal(t, ast.EBinary, expr.Kind)
	assert.Equal(t, ast.BShr, expr.BinOp)
	require.Equal(t, ast.EBinary, expr.Lhs.Kind)
	assert.Equal(t, ast.BAdd, expr.Lhs.BinOp)
}

func TestShiftRightAssignParsesAsCompoundAssign(t *testing.T) {
	full := "func f() { let mut x: i32 = 8; x >>= 1; }"
	lx := lexer.New(full, 0)
	p := New(lx, "test.qt")
	prog, err := p.ParseProgram()
	require.NoError(t, err)

	fn := prog.Statements[0]
	require.Len(t, fn.Body.Statements, 2)
	stmt := fn.Body.Statements[1]
	require.Equal(t, ast.SExpr, stmt.Kind)
	require.NotNil(t, stmt.Expr)
	assert.Equal(t, ast.ECompoundAssign, stmt.Expr.Kind)
	assert.Equal(t, ast.BShr, stmt.Expr.CompoundOp)
}

func TestNestedGenericsStillCloseOneAngleAtATime(t *testing.T) {
	// `A<B<C>>` must still parse: the trailing `>>` here is two generic
	// closes, not a shift, because parsing a type never reaches shrOp's
	// infix-operator lookahead.
	full := "func f(x: A<B<C>>) -> i32 { return 0; }"
	lx := lexer.New(full, 0)
	p := New(lx, "test.qt")
	prog, err := p.ParseProgram()
	require.NoError(t, err)

	fn := prog.Statements[0]
	require.Len(t, fn.Params, 1)
	param := fn.Params[0]
	require.NotNil(t, param.Type)
	require.Equal(t, ast.TENamed, param.Type.Kind)
	require.Len(t, param.Type.Segments, 1)
	require.Len(t, param.Type.Segments[0].Generics, 1)
	inner := param.Type.Segments[0].Generics[0]
	require.Len(t, inner.Segments[0].Generics, 1)
}

func TestGreaterThanStillParsesAsComparison(t *testing.T) {
	expr := parseReturnExpr(t, "a > b")
	require.Equal(t, ast.EBinary, expr.Kind)
	assert.Equal(t, ast.BGt, expr.BinOp)
}
