package checker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blanketsucks/language-sub000/internal/diagnostics"
	"github.com/blanketsucks/language-sub000/internal/lexer"
	"github.com/blanketsucks/language-sub000/internal/parser"
	"github.com/blanketsucks/language-sub000/internal/source"
	"github.com/blanketsucks/language-sub000/internal/state"
	"github.com/blanketsucks/language-sub000/internal/types"
)

func checkSource(t *testing.T, src string) (*Checker, error) {
	t.Helper()
	sm := source.NewMap()
	id := sm.AddFile("test.qt", src)
	lx := lexer.New(src, id)
	p := parser.New(lx, "test.qt")
	prog, err := p.ParseProgram()
	require.NoError(t, err, "parse error")

	st := state.New()
	c := New(st)
	return c, c.CheckProgram(prog)
}

func TestLetArithmeticInitializer(t *testing.T) {
	c, err := checkSource(t, `let x: i32 = 1 + 2;`)
	require.NoError(t, err)
	sym, ok := c.State.Global.LookupLocal("x")
	require.True(t, ok)
	assert.Equal(t, c.State.Types.GetInt(32, true), sym.VarType)
}

func TestMutableArrayIndexAssignment(t *testing.T) {
	_, err := checkSource(t, `let mut a: [i32;3] = [1, 2, 3]; a[1] = 9;`)
	require.NoError(t, err)
}

func TestImmutableArrayIndexAssignmentFails(t *testing.T) {
	_, err := checkSource(t, `let a: [i32;3] = [1, 2, 3]; a[1] = 9;`)
	require.Error(t, err)
}

func TestStructConstructionAndFieldAccess(t *testing.T) {
	c, err := checkSource(t, `
		struct P { x: i32; y: i32 }
		let p = P { x: 1, y: 2 };
	`)
	require.NoError(t, err)
	sym, ok := c.State.Global.LookupLocal("p")
	require.True(t, ok)
	pty := c.State.Types.At(sym.VarType)
	assert.Equal(t, types.KindStruct, pty.Kind)
}

func TestConstEvaluationAndStaticAssert(t *testing.T) {
	_, err := checkSource(t, `const N: i32 = 2 * 3 + 1; static_assert(N == 7);`)
	require.NoError(t, err)
}

func TestStaticAssertFailure(t *testing.T) {
	_, err := checkSource(t, `const N: i32 = 2 * 3; static_assert(N == 7);`)
	require.Error(t, err)
}

func TestFunctionCallReturnType(t *testing.T) {
	c, err := checkSource(t, `
		func f(x: i32) -> i32 { return x + 1; }
		let r = f(41);
	`)
	require.NoError(t, err)
	sym, ok := c.State.Global.LookupLocal("r")
	require.True(t, ok)
	assert.Equal(t, c.State.Types.GetInt(32, true), sym.VarType)
}

func TestMutableReferenceToImmutableFails(t *testing.T) {
	_, err := checkSource(t, `
		let y: i32 = 1;
		let x = &mut y;
	`)
	require.Error(t, err)
}

func TestMutableReferenceToMutableSucceeds(t *testing.T) {
	_, err := checkSource(t, `
		let mut y: i32 = 1;
		let x = &mut y;
	`)
	require.NoError(t, err)
}

func TestArityMismatch(t *testing.T) {
	_, err := checkSource(t, `
		func f(x: i32) -> i32 { return x; }
		let r = f();
	`)
	require.Error(t, err)
}

func TestStructMethodCall(t *testing.T) {
	_, err := checkSource(t, `
		struct Counter { value: i32 }
		impl Counter {
			func get(self) -> i32 { return self.value; }
		}
		let c = Counter { value: 5 };
		let v = c.get();
	`)
	require.NoError(t, err)
}

func TestReturnTypeMismatch(t *testing.T) {
	_, err := checkSource(t, `func f() -> i32 { return; }`)
	require.Error(t, err)
}

func TestNonExhaustiveMatchWithoutWildcardFails(t *testing.T) {
	_, err := checkSource(t, `
		func f(n: i32) -> i32 {
			return match n {
				0 => 10,
				1 => 20,
			};
		}
	`)
	require.Error(t, err)
	diag, ok := err.(*diagnostics.Error)
	require.True(t, ok)
	assert.Equal(t, diagnostics.NonExhaustiveMatch, diag.Kind)
}

func TestMatchWithWildcardArmIsExhaustive(t *testing.T) {
	_, err := checkSource(t, `
		func f(n: i32) -> i32 {
			return match n {
				0 => 10,
				_ => 20,
			};
		}
	`)
	require.NoError(t, err)
}

func TestMatchWithElseArmIsExhaustive(t *testing.T) {
	_, err := checkSource(t, `
		func f(n: i32) -> i32 {
			return match n {
				0 => 10,
				else => 20,
			};
		}
	`)
	require.NoError(t, err)
}

func TestMatchOverBoolCoveringBothValuesIsExhaustive(t *testing.T) {
	_, err := checkSource(t, `
		func f(b: bool) -> i32 {
			return match b {
				true => 1,
				false => 0,
			};
		}
	`)
	require.NoError(t, err)
}
