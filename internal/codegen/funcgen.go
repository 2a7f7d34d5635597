package codegen

import (
	"fmt"

	"github.com/blanketsucks/language-sub000/internal/ast"
	"github.com/blanketsucks/language-sub000/internal/ir"
	"github.com/blanketsucks/language-sub000/internal/symbols"
	"github.com/blanketsucks/language-sub000/internal/types"
)

// value is the generator's Option<Operand>: HasValue false models the
// `None` case for statements that produce nothing (§4.7).
type value struct {
	Op       ir.Operand
	Type     types.TypeId
	HasValue bool
}

func voidValue(t types.TypeId) value { return value{Type: t} }

func opValue(op ir.Operand, t types.TypeId) value {
	return value{Op: op, Type: t, HasValue: true}
}

// funcGen is one function body's lowering state (§4.9: entry_block,
// current_block materialized via Function.CurrentBlock, current_loop,
// locals/local_types).
type funcGen struct {
	gen *Generator
	fn  *ir.Function

	blockCounter int
	currentLoop  *loopCtx
	deferred     []deferredCall
}

type loopCtx struct {
	start, end ir.BlockRef
	saved      *loopCtx
}

// deferredCall is one pending `defer expr;`, lowered just before the
// function's return (§4.7: "for now: at function return only").
type deferredCall struct {
	scope *symbols.Scope
	expr  ast.Expression
}

func (fg *funcGen) newBlockName() ir.BlockRef {
	name := ir.BlockRef(fmt.Sprintf("bb%d", fg.blockCounter))
	fg.blockCounter++
	return name
}

// newBlock appends a fresh block to fn and makes it current (by virtue of
// being last in fn.Blocks; Function.CurrentBlock always returns the tail).
func (fg *funcGen) newBlock() ir.BlockRef {
	name := fg.newBlockName()
	fg.fn.Blocks = append(fg.fn.Blocks, ir.NewBasicBlock(name))
	return name
}

// startBlock appends a block with a pre-allocated name (from newBlockName)
// and makes it current, for control-flow constructs that must reference a
// later block's name before reaching it (if/while/for/match).
func (fg *funcGen) startBlock(name ir.BlockRef) {
	fg.fn.Blocks = append(fg.fn.Blocks, ir.NewBasicBlock(name))
}

// runDefers lowers every pending deferred call in LIFO order, immediately
// before the return instruction that is about to be emitted.
func (fg *funcGen) runDefers() error {
	for i := len(fg.deferred) - 1; i >= 0; i-- {
		d := fg.deferred[i]
		if _, err := fg.lowerExpr(d.scope, d.expr, types.Invalid); err != nil {
			return err
		}
	}
	return nil
}

// emit appends inst to the current block. Lowering never double-terminates
// a block by construction (every branch that creates a new block consumes
// the terminator it needed first), so the BasicBlock.Append error is an
// internal invariant, not surfaced to callers.
func (fg *funcGen) emit(inst ir.Instruction) {
	_ = fg.fn.CurrentBlock().Append(inst)
}

func (fg *funcGen) newRegister(t types.TypeId) ir.Register {
	idx := fg.gen.State.NextRegister(t)
	return ir.Register(idx)
}

// recordLocal grows fn.LocalTypes so slot idx has a valid entry, for the
// backend's per-function local-type table (§6).
func (fg *funcGen) recordLocal(idx uint32, t types.TypeId) {
	for uint32(len(fg.fn.LocalTypes)) <= idx {
		fg.fn.LocalTypes = append(fg.fn.LocalTypes, types.Invalid)
	}
	fg.fn.LocalTypes[idx] = t
}

// materializeAddress spills an rvalue into a fresh stack slot (Alloca) and
// writes val into it, for callers that need an address to index or take a
// field/element reference from (tuple-pattern destructuring, array `for`
// iteration over a freshly computed array value).
func (fg *funcGen) materializeAddress(val value) ir.Operand {
	refTy := fg.gen.State.Types.MakeReference(val.Type, true)
	addr := fg.newRegister(refTy)
	fg.emit(ir.Instruction{Op: ir.Alloca, Dst: addr, Type: val.Type})
	fg.emit(ir.Instruction{Op: ir.Write, Src: ir.RegOperand(addr), Src2: val.Op})
	return ir.RegOperand(addr)
}

// lookupVar resolves name against scope using the checker's already-built
// scope chain (function scope + retained block scopes), never re-deriving
// types.
func (fg *funcGen) lookupVar(scope *symbols.Scope, name string) (*symbols.Symbol, bool) {
	sym, ok := symbols.Resolve(scope, name)
	if !ok || sym.Kind != symbols.SymVariable {
		return nil, false
	}
	return sym, true
}

// readVar loads a variable's current value into a fresh register.
func (fg *funcGen) readVar(sym *symbols.Symbol) value {
	dst := fg.newRegister(sym.VarType)
	if sym.HasVarFlag(symbols.VarGlobal) {
		fg.emit(ir.Instruction{Op: ir.GetGlobal, Dst: dst, Index: sym.VarIndex, Type: sym.VarType})
	} else {
		fg.recordLocal(sym.VarIndex, sym.VarType)
		fg.emit(ir.Instruction{Op: ir.GetLocal, Dst: dst, Index: sym.VarIndex, Type: sym.VarType})
	}
	return opValue(ir.RegOperand(dst), sym.VarType)
}

// writeVar stores src into a variable's slot.
func (fg *funcGen) writeVar(sym *symbols.Symbol, src ir.Operand) {
	if sym.HasVarFlag(symbols.VarGlobal) {
		fg.emit(ir.Instruction{Op: ir.SetGlobal, Index: sym.VarIndex, Src: src})
	} else {
		fg.recordLocal(sym.VarIndex, sym.VarType)
		fg.emit(ir.Instruction{Op: ir.SetLocal, Index: sym.VarIndex, Src: src})
	}
}

// refVar materialises a reference register for &x / &mut x and for
// compound-assignment's address-of-place step.
func (fg *funcGen) refVar(sym *symbols.Symbol) value {
	refTy := fg.gen.State.Types.MakeReference(sym.VarType, sym.HasVarFlag(symbols.VarMutable))
	dst := fg.newRegister(refTy)
	if sym.HasVarFlag(symbols.VarGlobal) {
		fg.emit(ir.Instruction{Op: ir.GetGlobalRef, Dst: dst, Index: sym.VarIndex, Type: refTy})
	} else {
		fg.recordLocal(sym.VarIndex, sym.VarType)
		fg.emit(ir.Instruction{Op: ir.GetLocalRef, Dst: dst, Index: sym.VarIndex, Type: refTy})
	}
	return opValue(ir.RegOperand(dst), refTy)
}
