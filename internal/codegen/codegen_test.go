package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blanketsucks/language-sub000/internal/checker"
	"github.com/blanketsucks/language-sub000/internal/ir"
	"github.com/blanketsucks/language-sub000/internal/lexer"
	"github.com/blanketsucks/language-sub000/internal/parser"
	"github.com/blanketsucks/language-sub000/internal/source"
	"github.com/blanketsucks/language-sub000/internal/state"
)

func generateSource(t *testing.T, src string) (*ir.CompiledUnit, *state.State) {
	t.Helper()
	sm := source.NewMap()
	id := sm.AddFile("test.qt", src)
	lx := lexer.New(src, id)
	p := parser.New(lx, "test.qt")
	prog, err := p.ParseProgram()
	require.NoError(t, err, "parse error")

	st := state.New()
	ck := checker.New(st)
	require.NoError(t, ck.CheckProgram(prog), "check error")

	gen := New(st, ck)
	unit, err := gen.Generate(prog)
	require.NoError(t, err, "generate error")
	return unit, st
}

func findFunction(unit *ir.CompiledUnit, name string) *ir.Function {
	for _, fn := range unit.Functions {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}

func TestGenerateArithmeticFunction(t *testing.T) {
	unit, _ := generateSource(t, `
		func add(x: i32, y: i32) -> i32 { return x + y; }
	`)
	fn := findFunction(unit, "add")
	require.NotNil(t, fn)
	assert.True(t, fn.Defined)
	assert.NotEmpty(t, fn.Blocks)

	var sawAdd, sawReturn bool
	for _, blk := range fn.Blocks {
		for _, inst := range blk.Instructions {
			if inst.Op == ir.Add {
				sawAdd = true
			}
			if inst.Op == ir.Return {
				sawReturn = true
			}
		}
	}
	assert.True(t, sawAdd, "expected an Add instruction")
	assert.True(t, sawReturn, "expected a Return instruction")
}

func TestGenerateGlobalInitializer(t *testing.T) {
	unit, _ := generateSource(t, `let x: i32 = 1 + 2;`)
	require.Len(t, unit.Globals, 1)
	assert.Equal(t, "x", unit.Globals[0].Name)

	var sawSetGlobal bool
	for _, inst := range unit.GlobalInstructions {
		if inst.Op == ir.SetGlobal && inst.Index == unit.Globals[0].Index {
			sawSetGlobal = true
		}
	}
	assert.True(t, sawSetGlobal)
}

func TestGenerateStructLiteralAndFieldAccess(t *testing.T) {
	unit, _ := generateSource(t, `
		struct Point { x: i32; y: i32 }
		func originX() -> i32 {
			let p = Point { x: 1, y: 2 };
			return p.x;
		}
	`)
	require.Len(t, unit.Structs, 1)
	assert.Equal(t, "Point", unit.Structs[0].Name)

	fn := findFunction(unit, "originX")
	require.NotNil(t, fn)

	var sawNewStruct, sawGetMember bool
	for _, blk := range fn.Blocks {
		for _, inst := range blk.Instructions {
			if inst.Op == ir.NewStruct {
				sawNewStruct = true
			}
			if inst.Op == ir.GetMember {
				sawGetMember = true
			}
		}
	}
	assert.True(t, sawNewStruct)
	assert.True(t, sawGetMember)
}

func TestGenerateIfBranchesTerminate(t *testing.T) {
	unit, _ := generateSource(t, `
		func pick(flag: bool) -> i32 {
			if flag { return 1; } else { return 2; }
		}
	`)
	fn := findFunction(unit, "pick")
	require.NotNil(t, fn)
	require.GreaterOrEqual(t, len(fn.Blocks), 3)

	var sawJumpIf bool
	for _, blk := range fn.Blocks {
		for _, inst := range blk.Instructions {
			if inst.Op == ir.JumpIf {
				sawJumpIf = true
			}
		}
		assert.True(t, blk.Terminated, "block %s should end in a terminator", blk.Name)
	}
	assert.True(t, sawJumpIf)
}

func TestGenerateWhileLoop(t *testing.T) {
	unit, _ := generateSource(t, `
		func countdown(n: i32) -> i32 {
			let mut i: i32 = n;
			while i > 0 {
				i = i - 1;
			}
			return i;
		}
	`)
	fn := findFunction(unit, "countdown")
	require.NotNil(t, fn)

	var sawJump bool
	for _, blk := range fn.Blocks {
		for _, inst := range blk.Instructions {
			if inst.Op == ir.Jump {
				sawJump = true
			}
		}
	}
	assert.True(t, sawJump, "expected a backward Jump closing the loop body")
}

func TestGenerateMethodCall(t *testing.T) {
	unit, _ := generateSource(t, `
		struct Counter { value: i32 }
		impl Counter {
			func get(self) -> i32 { return self.value; }
		}
		func readIt() -> i32 {
			let c = Counter { value: 5 };
			return c.get();
		}
	`)
	fn := findFunction(unit, "readIt")
	require.NotNil(t, fn)

	var sawCall bool
	for _, blk := range fn.Blocks {
		for _, inst := range blk.Instructions {
			if inst.Op == ir.Call {
				sawCall = true
			}
		}
	}
	assert.True(t, sawCall)
}

func TestGenerateMatchExpression(t *testing.T) {
	unit, _ := generateSource(t, `
		func classify(n: i32) -> i32 {
			return match n {
				0 => 10,
				_ => 20,
			};
		}
	`)
	fn := findFunction(unit, "classify")
	require.NotNil(t, fn)
	require.GreaterOrEqual(t, len(fn.Blocks), 2)
}
