package codegen

import (
	"github.com/blanketsucks/language-sub000/internal/ast"
	"github.com/blanketsucks/language-sub000/internal/diagnostics"
	"github.com/blanketsucks/language-sub000/internal/ir"
	"github.com/blanketsucks/language-sub000/internal/symbols"
	"github.com/blanketsucks/language-sub000/internal/types"
)

// lowerFunction lowers one already-checked function/method body into a
// standalone ir.Function (§4.7). sym.Body is the checker's retained SBlock
// AST node; sym.FuncScope is its parameter scope.
func (g *Generator) lowerFunction(sym *symbols.Symbol) (*ir.Function, error) {
	if sym.Body == nil {
		return nil, diagnostics.Internal("codegen", "function %q has no body to lower", sym.Name)
	}
	fn := &ir.Function{
		Name: sym.Name, QualifiedName: sym.QualifiedName, Linkage: sym.Linkage,
		Params: sym.Params, ReturnType: sym.ReturnType, Defined: true,
	}
	fg := &funcGen{gen: g, fn: fn}
	entry := fg.newBlock()
	fn.EntryBlock = entry

	for _, p := range sym.Params {
		fg.recordLocal(uint32(p.Index), p.Type)
	}

	if err := fg.lowerStmt(sym.FuncScope, *sym.Body); err != nil {
		return nil, err
	}
	if cur := fn.CurrentBlock(); cur != nil && !cur.Terminated {
		if err := fg.runDefers(); err != nil {
			return nil, err
		}
		fg.emit(ir.Instruction{Op: ir.Return})
	}
	return fn, nil
}

// lowerStmt lowers one statement, emitting into fg's current block (§4.7:
// the bulk of the statement-level lowering rules).
func (fg *funcGen) lowerStmt(scope *symbols.Scope, stmt ast.Statement) error {
	switch stmt.Kind {
	case ast.SBlock:
		blockScope, ok := fg.gen.Checker.ScopeFor(stmt.Span)
		if !ok {
			blockScope = scope
		}
		for i := range stmt.Statements {
			if err := fg.lowerStmt(blockScope, stmt.Statements[i]); err != nil {
				return err
			}
			if fg.fn.CurrentBlock().Terminated {
				break
			}
		}
		return nil
	case ast.SLet, ast.SConst:
		return fg.lowerLocalBinding(scope, stmt)
	case ast.SIf:
		return fg.lowerIf(scope, stmt)
	case ast.SWhile:
		return fg.lowerWhile(scope, stmt)
	case ast.SFor:
		return fg.lowerFor(scope, stmt)
	case ast.SForRange:
		return fg.lowerForRange(scope, stmt)
	case ast.SBreak:
		if fg.currentLoop == nil {
			return diagnostics.Internal("codegen", "break outside of a loop")
		}
		fg.emit(ir.Instruction{Op: ir.Jump, Target: fg.currentLoop.end})
		return nil
	case ast.SContinue:
		if fg.currentLoop == nil {
			return diagnostics.Internal("codegen", "continue outside of a loop")
		}
		fg.emit(ir.Instruction{Op: ir.Jump, Target: fg.currentLoop.start})
		return nil
	case ast.SReturn:
		return fg.lowerReturn(scope, stmt)
	case ast.SDefer:
		fg.deferred = append(fg.deferred, deferredCall{scope: scope, expr: *stmt.DeferExpr})
		return nil
	case ast.SStaticAssert:
		// Already enforced at check time by checkStaticAssert's const
		// evaluation; nothing survives to runtime.
		return nil
	case ast.SExpr:
		_, err := fg.lowerExpr(scope, *stmt.Expr, types.Invalid)
		return err
	case ast.SFunc:
		return fg.lowerLocalFunc(scope, stmt)
	case ast.SStruct, ast.STrait, ast.SImpl, ast.STypeAlias, ast.SEnum, ast.SModule:
		// These declarations register into State's global tables
		// (GlobalStructs/ConcreteImpls/...) regardless of lexical nesting,
		// and Generate already walks those tables directly; a locally
		// scoped declaration contributes nothing further here.
		return nil
	}
	return nil
}

// lowerLocalFunc lowers a function declared inside another function's body.
// It is not reachable through State.GlobalFunctions (only declarations at
// global scope are recorded there), so its ir.Function is appended to
// Generator.extraFunctions instead of CompiledUnit.Functions directly.
func (fg *funcGen) lowerLocalFunc(scope *symbols.Scope, stmt ast.Statement) error {
	if stmt.Body == nil {
		return nil
	}
	sym, ok := scope.LookupLocal(stmt.FuncName)
	if !ok {
		return diagnostics.Internal("codegen", "local function %q missing its collected symbol", stmt.FuncName)
	}
	fn, err := fg.gen.lowerFunction(sym)
	if err != nil {
		return err
	}
	fg.gen.extraFunctions = append(fg.gen.extraFunctions, fn)
	return nil
}

func (fg *funcGen) lowerLocalBinding(scope *symbols.Scope, stmt ast.Statement) error {
	var declaredType types.TypeId = types.Invalid
	if stmt.TypeAnnotation != nil {
		t, err := fg.gen.Checker.ResolveType(scope, *stmt.TypeAnnotation)
		if err != nil {
			return err
		}
		declaredType = t
	}

	var val value
	if stmt.Value != nil {
		v, err := fg.lowerExpr(scope, *stmt.Value, declaredType)
		if err != nil {
			return err
		}
		val = v
	}

	if stmt.Pattern != nil {
		return fg.lowerPatternBinding(scope, *stmt.Pattern, val)
	}

	sym, ok := scope.LookupLocal(stmt.Name)
	if !ok {
		return diagnostics.Internal("codegen", "binding %q missing its collected symbol", stmt.Name)
	}
	fg.recordLocal(sym.VarIndex, sym.VarType)
	if stmt.Value != nil {
		fg.writeVar(sym, val.Op)
	}
	return nil
}

// lowerPatternBinding destructures val across a `let (a, b) = ...` pattern,
// spilling val to a stack slot (materializeAddress) only when a tuple
// sub-pattern needs to index into it.
func (fg *funcGen) lowerPatternBinding(scope *symbols.Scope, pat ast.Pattern, val value) error {
	switch pat.Kind {
	case ast.PBinding:
		sym, ok := scope.LookupLocal(pat.Name)
		if !ok {
			return diagnostics.Internal("codegen", "pattern binding %q missing its collected symbol", pat.Name)
		}
		fg.recordLocal(sym.VarIndex, sym.VarType)
		fg.writeVar(sym, val.Op)
		return nil
	case ast.PTuple:
		addr := fg.materializeAddress(val)
		ty := fg.gen.State.Types.At(val.Type)
		for i, sub := range pat.Elements {
			elemTy := ty.Elements[i]
			elemVal := fg.readTupleElement(addr, uint32(i), elemTy)
			if err := fg.lowerPatternBinding(scope, sub, elemVal); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}

// readTupleElement reads the index'th tuple element through addr (a
// reference to the tuple), matching the struct-field GetMemberRef
// convention: Src2 carries the field/element *index*, not a byte offset.
func (fg *funcGen) readTupleElement(addr ir.Operand, index uint32, elemTy types.TypeId) value {
	refTy := fg.gen.State.Types.MakeReference(elemTy, true)
	ref := fg.newRegister(refTy)
	fg.emit(ir.Instruction{Op: ir.GetMemberRef, Dst: ref, Src: addr, Src2: ir.IntImmediate(int64(index), fg.gen.State.Types.GetInt(32, false)), Type: refTy})
	dst := fg.newRegister(elemTy)
	fg.emit(ir.Instruction{Op: ir.Read, Dst: dst, Src: ir.RegOperand(ref), Type: elemTy})
	return opValue(ir.RegOperand(dst), elemTy)
}

func (fg *funcGen) lowerIf(scope *symbols.Scope, stmt ast.Statement) error {
	condVal, err := fg.lowerExpr(scope, *stmt.Cond, fg.gen.State.Types.GetBool())
	if err != nil {
		return err
	}

	thenName := fg.newBlockName()
	endName := fg.newBlockName()
	elseName := endName
	if stmt.Else != nil {
		elseName = fg.newBlockName()
	}
	fg.emit(ir.Instruction{Op: ir.JumpIf, Src: condVal.Op, TrueTarget: thenName, FalseTarget: elseName})

	fg.startBlock(thenName)
	if err := fg.lowerStmt(scope, *stmt.Then); err != nil {
		return err
	}
	if !fg.fn.CurrentBlock().Terminated {
		fg.emit(ir.Instruction{Op: ir.Jump, Target: endName})
	}

	if stmt.Else != nil {
		fg.startBlock(elseName)
		if err := fg.lowerStmt(scope, *stmt.Else); err != nil {
			return err
		}
		if !fg.fn.CurrentBlock().Terminated {
			fg.emit(ir.Instruction{Op: ir.Jump, Target: endName})
		}
	}

	fg.startBlock(endName)
	return nil
}

// lowerWhile follows §4.7's loop lowering literally: current_loop is set to
// {start: bodyBlock, end: endBlock}, so `continue` re-enters the body
// directly rather than re-checking the condition first.
func (fg *funcGen) lowerWhile(scope *symbols.Scope, stmt ast.Statement) error {
	condName := fg.newBlockName()
	bodyName := fg.newBlockName()
	endName := fg.newBlockName()

	fg.emit(ir.Instruction{Op: ir.Jump, Target: condName})
	fg.startBlock(condName)
	condVal, err := fg.lowerExpr(scope, *stmt.WhileCond, fg.gen.State.Types.GetBool())
	if err != nil {
		return err
	}
	fg.emit(ir.Instruction{Op: ir.JumpIf, Src: condVal.Op, TrueTarget: bodyName, FalseTarget: endName})

	fg.startBlock(bodyName)
	saved := fg.currentLoop
	fg.currentLoop = &loopCtx{start: bodyName, end: endName, saved: saved}
	err = fg.lowerStmt(scope, *stmt.WhileBody)
	fg.currentLoop = saved
	if err != nil {
		return err
	}
	if !fg.fn.CurrentBlock().Terminated {
		fg.emit(ir.Instruction{Op: ir.Jump, Target: condName})
	}

	fg.startBlock(endName)
	return nil
}

// lowerFor lowers `for x in array` by walking a hidden index register from
// 0 to the array's length, mutating it in place across blocks (the IR has
// no Phi instruction: a loop-carried scalar is a conventional mutable
// register here, not an SSA value).
func (fg *funcGen) lowerFor(scope *symbols.Scope, stmt ast.Statement) error {
	iterVal, err := fg.lowerExpr(scope, *stmt.ForIterable, types.Invalid)
	if err != nil {
		return err
	}
	iterTy := fg.gen.State.Types.At(iterVal.Type)
	if iterTy.Kind != types.KindArray {
		return diagnostics.Internal("codegen", "for-in iterates a non-array type")
	}
	elemTy := iterTy.Element
	usize := fg.gen.State.Types.GetInt(64, false)

	iterAddr := fg.materializeAddress(iterVal)

	idxReg := fg.newRegister(usize)
	fg.emit(ir.Instruction{Op: ir.Move, Dst: idxReg, Src: ir.IntImmediate(0, usize)})

	condName := fg.newBlockName()
	bodyName := fg.newBlockName()
	endName := fg.newBlockName()

	fg.emit(ir.Instruction{Op: ir.Jump, Target: condName})
	fg.startBlock(condName)
	cmpReg := fg.newRegister(fg.gen.State.Types.GetBool())
	fg.emit(ir.Instruction{Op: ir.Lt, Dst: cmpReg, Src: ir.RegOperand(idxReg), Src2: ir.IntImmediate(int64(iterTy.Len), usize)})
	fg.emit(ir.Instruction{Op: ir.JumpIf, Src: ir.RegOperand(cmpReg), TrueTarget: bodyName, FalseTarget: endName})

	fg.startBlock(bodyName)
	loopScope, ok := fg.gen.Checker.ScopeFor(stmt.Span)
	if !ok {
		loopScope = scope
	}
	elemSym, ok := loopScope.LookupLocal(stmt.ForVar)
	if !ok {
		return diagnostics.Internal("codegen", "for-loop variable %q missing its collected symbol", stmt.ForVar)
	}
	fg.recordLocal(elemSym.VarIndex, elemTy)
	refTy := fg.gen.State.Types.MakeReference(elemTy, true)
	elemRef := fg.newRegister(refTy)
	fg.emit(ir.Instruction{Op: ir.GetMemberRef, Dst: elemRef, Src: iterAddr, Src2: ir.RegOperand(idxReg), Type: refTy})
	elemReg := fg.newRegister(elemTy)
	fg.emit(ir.Instruction{Op: ir.Read, Dst: elemReg, Src: ir.RegOperand(elemRef), Type: elemTy})
	fg.writeVar(elemSym, ir.RegOperand(elemReg))

	saved := fg.currentLoop
	fg.currentLoop = &loopCtx{start: bodyName, end: endName, saved: saved}
	err = fg.lowerStmt(loopScope, *stmt.ForBody)
	fg.currentLoop = saved
	if err != nil {
		return err
	}

	if !fg.fn.CurrentBlock().Terminated {
		nextReg := fg.newRegister(usize)
		fg.emit(ir.Instruction{Op: ir.Add, Dst: nextReg, Src: ir.RegOperand(idxReg), Src2: ir.IntImmediate(1, usize)})
		fg.emit(ir.Instruction{Op: ir.Move, Dst: idxReg, Src: ir.RegOperand(nextReg)})
		fg.emit(ir.Instruction{Op: ir.Jump, Target: condName})
	}

	fg.startBlock(endName)
	return nil
}

func (fg *funcGen) lowerForRange(scope *symbols.Scope, stmt ast.Statement) error {
	loopScope, ok := fg.gen.Checker.ScopeFor(stmt.Span)
	if !ok {
		loopScope = scope
	}
	sym, ok := loopScope.LookupLocal(stmt.RangeVar)
	if !ok {
		return diagnostics.Internal("codegen", "for-range variable %q missing its collected symbol", stmt.RangeVar)
	}
	startVal, err := fg.lowerExpr(scope, *stmt.RangeStart, sym.VarType)
	if err != nil {
		return err
	}
	endVal, err := fg.lowerExpr(scope, *stmt.RangeEnd, sym.VarType)
	if err != nil {
		return err
	}
	fg.recordLocal(sym.VarIndex, sym.VarType)
	fg.writeVar(sym, startVal.Op)

	condName := fg.newBlockName()
	bodyName := fg.newBlockName()
	endName := fg.newBlockName()

	fg.emit(ir.Instruction{Op: ir.Jump, Target: condName})
	fg.startBlock(condName)
	cur := fg.readVar(sym)
	cmpOp := ir.Lt
	if stmt.RangeInclusive {
		cmpOp = ir.Lte
	}
	cmpReg := fg.newRegister(fg.gen.State.Types.GetBool())
	fg.emit(ir.Instruction{Op: cmpOp, Dst: cmpReg, Src: cur.Op, Src2: endVal.Op})
	fg.emit(ir.Instruction{Op: ir.JumpIf, Src: ir.RegOperand(cmpReg), TrueTarget: bodyName, FalseTarget: endName})

	fg.startBlock(bodyName)
	saved := fg.currentLoop
	fg.currentLoop = &loopCtx{start: bodyName, end: endName, saved: saved}
	err = fg.lowerStmt(loopScope, *stmt.RangeBody)
	fg.currentLoop = saved
	if err != nil {
		return err
	}

	if !fg.fn.CurrentBlock().Terminated {
		cur2 := fg.readVar(sym)
		nextReg := fg.newRegister(sym.VarType)
		fg.emit(ir.Instruction{Op: ir.Add, Dst: nextReg, Src: cur2.Op, Src2: ir.IntImmediate(1, sym.VarType)})
		fg.writeVar(sym, ir.RegOperand(nextReg))
		fg.emit(ir.Instruction{Op: ir.Jump, Target: condName})
	}

	fg.startBlock(endName)
	return nil
}

func (fg *funcGen) lowerReturn(scope *symbols.Scope, stmt ast.Statement) error {
	if stmt.ReturnValue == nil {
		if err := fg.runDefers(); err != nil {
			return err
		}
		fg.emit(ir.Instruction{Op: ir.Return})
		return nil
	}
	val, err := fg.lowerExpr(scope, *stmt.ReturnValue, fg.fn.ReturnType)
	if err != nil {
		return err
	}
	if err := fg.runDefers(); err != nil {
		return err
	}
	fg.emit(ir.Instruction{Op: ir.Return, Src: val.Op, HasValue: true})
	return nil
}
