package ir_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blanketsucks/language-sub000/internal/ir"
	"github.com/blanketsucks/language-sub000/internal/types"
)

func TestBasicBlockRejectsInsertAfterTerminator(t *testing.T) {
	b := ir.NewBasicBlock("entry")
	require.NoError(t, b.Append(ir.Instruction{Op: ir.Return, HasValue: false}))
	assert.True(t, b.Terminated)

	err := b.Append(ir.Instruction{Op: ir.Move, Dst: 0})
	require.Error(t, err)
	var target *ir.ErrBlockTerminated
	assert.ErrorAs(t, err, &target)
}

func TestBasicBlockTerminatesOnJumpAndJumpIf(t *testing.T) {
	j := ir.NewBasicBlock("b1")
	require.NoError(t, j.Append(ir.Instruction{Op: ir.Jump, Target: "b2"}))
	assert.True(t, j.Terminated)

	ji := ir.NewBasicBlock("b3")
	require.NoError(t, ji.Append(ir.Instruction{Op: ir.JumpIf, TrueTarget: "b4", FalseTarget: "b5"}))
	assert.True(t, ji.Terminated)
}

func TestFunctionCurrentBlock(t *testing.T) {
	f := &ir.Function{Name: "f"}
	assert.Nil(t, f.CurrentBlock())

	entry := ir.NewBasicBlock("entry")
	f.Blocks = append(f.Blocks, entry)
	assert.Same(t, entry, f.CurrentBlock())

	next := ir.NewBasicBlock("next")
	f.Blocks = append(f.Blocks, next)
	assert.Same(t, next, f.CurrentBlock())
}

func TestOperandConstructors(t *testing.T) {
	reg := ir.RegOperand(ir.Register(3))
	assert.Equal(t, ir.OpRegister, reg.Kind)
	assert.Equal(t, ir.Register(3), reg.Reg)

	reg2 := types.NewRegistry()
	i32 := reg2.GetInt(32, true)
	imm := ir.IntImmediate(7, i32)
	assert.Equal(t, ir.OpImmediate, imm.Kind)
	assert.EqualValues(t, 7, imm.Imm)
	assert.False(t, imm.IsF)

	f64 := reg2.GetFloat(64)
	fimm := ir.FloatImmediate(1.5, f64)
	assert.True(t, fimm.IsF)
	assert.Equal(t, 1.5, fimm.ImmF)
}

func TestOpIsBinaryAndTerminator(t *testing.T) {
	assert.True(t, ir.Add.IsBinary())
	assert.True(t, ir.Lte.IsBinary())
	assert.False(t, ir.Move.IsBinary())

	assert.True(t, ir.Jump.IsTerminator())
	assert.True(t, ir.JumpIf.IsTerminator())
	assert.True(t, ir.Return.IsTerminator())
	assert.False(t, ir.Call.IsTerminator())
}

func TestBlockByName(t *testing.T) {
	f := &ir.Function{}
	f.Blocks = append(f.Blocks, ir.NewBasicBlock("entry"), ir.NewBasicBlock("loop"))
	b, ok := f.BlockByName("loop")
	require.True(t, ok)
	assert.Equal(t, ir.BlockRef("loop"), b.Name)

	_, ok = f.BlockByName("missing")
	assert.False(t, ok)
}
