// Package codegen implements the BytecodeGenerator (spec §4.7): the AST to
// IR lowering pass that runs after type checking and reuses its decisions
// (resolved types, symbol tables, generic-impl instantiations) rather than
// re-deriving them.
package codegen

import (
	"github.com/blanketsucks/language-sub000/internal/ast"
	"github.com/blanketsucks/language-sub000/internal/checker"
	"github.com/blanketsucks/language-sub000/internal/ir"
	"github.com/blanketsucks/language-sub000/internal/state"
	"github.com/blanketsucks/language-sub000/internal/symbols"
	"github.com/blanketsucks/language-sub000/internal/types"
)

// Generator lowers one already-checked compilation unit to IR.
type Generator struct {
	State   *state.State
	Checker *checker.Checker

	// extraFunctions collects functions discovered while lowering another
	// function's body: locally-declared `func`s (not reachable through
	// State.GlobalFunctions, which only the global scope populates) and
	// synthesised closure bodies.
	extraFunctions []*ir.Function
	closureCounter int
}

// New constructs a Generator sharing st and ck — ck must already have run
// CheckProgram successfully over the program being lowered.
func New(st *state.State, ck *checker.Checker) *Generator {
	return &Generator{State: st, Checker: ck}
}

// Generate lowers prog into the §6 IR consumer contract envelope.
func (g *Generator) Generate(prog *ast.Program) (*ir.CompiledUnit, error) {
	unit := &ir.CompiledUnit{}

	if err := g.lowerGlobals(g.State.Global, prog.Statements, unit); err != nil {
		return nil, err
	}

	for _, sym := range g.State.GlobalStructs {
		unit.Structs = append(unit.Structs, g.lowerStruct(sym))
	}

	for _, sym := range g.State.GlobalFunctions {
		if sym.Body == nil {
			unit.Functions = append(unit.Functions, g.declOnlyFunction(sym))
			continue
		}
		fn, err := g.lowerFunction(sym)
		if err != nil {
			return nil, err
		}
		unit.Functions = append(unit.Functions, fn)
	}

	for _, scope := range g.State.ConcreteImpls {
		fns, err := g.lowerMethodScope(scope)
		if err != nil {
			return nil, err
		}
		unit.Functions = append(unit.Functions, fns...)
	}

	var genErr error
	g.State.EachGenericInstantiation(func(target types.TypeId, scope *symbols.Scope) {
		if genErr != nil {
			return
		}
		fns, err := g.lowerMethodScope(scope)
		if err != nil {
			genErr = err
			return
		}
		unit.Functions = append(unit.Functions, fns...)
	})
	if genErr != nil {
		return nil, genErr
	}

	unit.Functions = append(unit.Functions, g.extraFunctions...)

	// Registers are numbered across the whole State, so every defined
	// function shares the State's register-type side-table.
	for _, fn := range unit.Functions {
		if fn.Defined {
			fn.RegisterTypes = g.State.RegisterTypes
		}
	}

	return unit, nil
}

func (g *Generator) lowerMethodScope(scope *symbols.Scope) ([]*ir.Function, error) {
	var out []*ir.Function
	for _, sym := range scope.All() {
		if sym.Kind != symbols.SymFunction || sym.Body == nil {
			continue
		}
		fn, err := g.lowerFunction(sym)
		if err != nil {
			return nil, err
		}
		out = append(out, fn)
	}
	return out, nil
}

func (g *Generator) declOnlyFunction(sym *symbols.Symbol) *ir.Function {
	return &ir.Function{
		Name: sym.Name, QualifiedName: sym.QualifiedName, Linkage: sym.Linkage,
		Params: sym.Params, ReturnType: sym.ReturnType, Defined: false,
	}
}

func (g *Generator) lowerStruct(sym *symbols.Symbol) *ir.Struct {
	fields := make([]symbols.StructField, len(sym.FieldOrder))
	for i, name := range sym.FieldOrder {
		fields[i] = *sym.FieldsByName[name]
	}
	return &ir.Struct{Name: sym.Name, Type: sym.StructType, Fields: fields}
}

// lowerGlobals emits one SetGlobal per top-level let/const into the unit's
// global-instructions sequence (§4.8: module-scope initialization that the
// backend runs once before `main`), and records each binding's slot.
func (g *Generator) lowerGlobals(scope *symbols.Scope, stmts []ast.Statement, unit *ir.CompiledUnit) error {
	fg := &funcGen{gen: g, fn: &ir.Function{Name: "<init>", EntryBlock: "entry"}}
	fg.fn.Blocks = append(fg.fn.Blocks, ir.NewBasicBlock("entry"))

	for i := range stmts {
		stmt := &stmts[i]
		switch stmt.Kind {
		case ast.SLet, ast.SConst:
			sym, ok := scope.LookupLocal(stmt.Name)
			if !ok || !sym.HasVarFlag(symbols.VarGlobal) {
				continue
			}
			unit.Globals = append(unit.Globals, &ir.Global{
				Name: sym.Name, Index: sym.VarIndex, Type: sym.VarType,
				Mutable: sym.HasVarFlag(symbols.VarMutable),
			})
			if stmt.Value == nil {
				continue
			}
			val, err := fg.lowerExpr(scope, *stmt.Value, sym.VarType)
			if err != nil {
				return err
			}
			fg.emit(ir.Instruction{Op: ir.SetGlobal, Index: sym.VarIndex, Src: val.Op})
		case ast.SModule:
			sym, ok := scope.LookupLocal(stmt.ModuleName)
			if !ok {
				continue
			}
			if err := g.lowerGlobals(sym.ModScope, stmt.ModuleBody, unit); err != nil {
				return err
			}
		}
	}
	unit.GlobalInstructions = append(unit.GlobalInstructions, fg.fn.Blocks[0].Instructions...)
	return nil
}
