// Package checker implements the TypeChecker (spec §4.6): a full-AST walk
// assigning a Type to every expression, validating implicit casts and
// places, and populating the scope tree with new symbols and usage flags.
package checker

import (
	"github.com/blanketsucks/language-sub000/internal/ast"
	"github.com/blanketsucks/language-sub000/internal/consteval"
	"github.com/blanketsucks/language-sub000/internal/diagnostics"
	"github.com/blanketsucks/language-sub000/internal/source"
	"github.com/blanketsucks/language-sub000/internal/state"
	"github.com/blanketsucks/language-sub000/internal/symbols"
	"github.com/blanketsucks/language-sub000/internal/types"
)

// Checker walks one compilation's AST against its shared State, the single
// mutable context threaded through every pass (§2.9).
type Checker struct {
	State *state.State
	Const *consteval.Evaluator

	// visiting guards against a declaration re-entering its own type
	// resolution (§5: "the checker never recurses into itself for the
	// same node").
	visiting map[*symbols.Symbol]bool

	// constValues stashes folded `const` initializers keyed by their
	// Symbol so later identifier lookups in the constant evaluator don't
	// need to re-walk the initializer expression.
	constValues constMap

	// genericImplDecls is the sidecar ast payload for each entry of
	// State.GenericImpls (see genericImplDecl).
	genericImplDecls []genericImplDecl

	// loopDepth tracks `in_loop` (§4.9) for break/continue validation.
	loopDepth int

	// localCounter allocates function-local slot indices (GetLocal/SetLocal,
	// §4.8), reset to the parameter count on entry to each function body
	// (parameters hold slots 0..n-1) so locals never collide with
	// module-level globals (NextGlobalSlot, a separate monotonic counter on
	// State).
	localCounter uint32

	// blockScopes retains the transient scope created for each block/loop
	// statement, keyed by span (checkStatement takes its ast.Statement by
	// value, so a span is the stable identity a second pass can key on).
	// The generator re-walks the same AST after checking and needs these to
	// resolve local variable symbols/slots without redoing name resolution.
	blockScopes map[source.Span]*symbols.Scope
}

// New constructs a Checker sharing st, wiring a ConstantEvaluator whose
// Resolve hook looks up already-folded `const` symbols from st's scopes.
func New(st *state.State) *Checker {
	c := &Checker{
		State: st, visiting: make(map[*symbols.Symbol]bool), constValues: make(constMap),
		blockScopes: make(map[source.Span]*symbols.Scope),
	}
	c.Const = &consteval.Evaluator{
		Types:        st.Types,
		Resolve:      c.resolveConstByName,
		EvalTypeSize: c.sizeOfType,
	}
	return c
}

// nextLocalSlot allocates the next function-local variable slot; the
// counter is reset to the parameter count by checkFunctionBody on entry to
// each function body.
func (c *Checker) nextLocalSlot() uint32 {
	idx := c.localCounter
	c.localCounter++
	return idx
}

func (c *Checker) resolveConstByName(scope *symbols.Scope, name string) (consteval.Constant, bool) {
	sym, ok := symbols.Resolve(scope, name)
	if !ok || sym.Kind != symbols.SymVariable || !sym.HasVarFlag(symbols.VarConstant) {
		return consteval.Constant{}, false
	}
	val, ok := c.constValues[sym]
	return val, ok
}

// sizeOfType computes a packed byte size: (bits+7)/8 for scalars, 8 for
// pointers/references, and the plain sum of element/field sizes for
// aggregates. No alignment padding is added (§4.7's sizeof lowering only
// needs a constant-foldable integer here, not a target ABI).
func (c *Checker) sizeOfType(t types.TypeId) uint32 {
	ty := c.State.Types.At(t)
	switch ty.Kind {
	case types.KindVoid:
		return 0
	case types.KindInt, types.KindFloat:
		return uint32(ty.Bits+7) / 8
	case types.KindPointer, types.KindReference:
		return 8
	case types.KindArray:
		return ty.Len * c.sizeOfType(ty.Element)
	case types.KindTuple:
		var total uint32
		for _, e := range ty.Elements {
			total += c.sizeOfType(e)
		}
		return total
	case types.KindStruct:
		var total uint32
		for _, f := range ty.Fields {
			total += c.sizeOfType(f)
		}
		return total
	default:
		return 0
	}
}

// SizeOfType exposes sizeOfType for the generator's ESizeof lowering, so
// both passes agree on the same structural size without re-deriving it.
func (c *Checker) SizeOfType(t types.TypeId) uint32 { return c.sizeOfType(t) }

// FieldOffset returns field's byte offset within t (a struct type) by
// summing sizeOfType over every preceding field in declaration order, for
// the generator's EOffsetof lowering.
func (c *Checker) FieldOffset(t types.TypeId, field string) (uint32, bool) {
	ty := c.State.Types.At(t)
	if ty.Kind != types.KindStruct {
		return 0, false
	}
	sym, ok := c.State.GlobalStructs[ty.QualifiedName]
	if !ok {
		return 0, false
	}
	var offset uint32
	for _, name := range sym.FieldOrder {
		f := sym.FieldsByName[name]
		if name == field {
			return offset, true
		}
		offset += c.sizeOfType(f.Type)
	}
	return 0, false
}

// CheckProgram runs the two-phase check (§5: forward references inside a
// module resolve via an up-front symbol-collection pass; bodies check
// afterward) and returns the first fatal error, if any. An error from the
// collection pass is returned at once without being recorded; every error
// from checking a top-level body is recorded into State.Diags and checking
// continues with the next declaration (best-effort).
func (c *Checker) CheckProgram(prog *ast.Program) error {
	scope := c.State.Global
	c.State.CurrentScope = scope

	if err := c.collectTopLevel(scope, prog.Statements); err != nil {
		return err
	}
	var firstErr error
	for i := range prog.Statements {
		if err := c.checkTopLevelBody(scope, &prog.Statements[i]); err != nil {
			c.State.Diags.Report(asDiag(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// constMap stashes folded `const` initializers keyed by their Symbol, so
// later const-evaluation of identifiers referencing them (§4.5) can find a
// value without re-walking the initializer expression.
type constMap = map[*symbols.Symbol]consteval.Constant

// ScopeFor returns the scope the checker created for a block/loop statement
// at span, if any — the generator's hook for re-resolving local variable
// symbols after checking has discarded its own call-stack-local scopes.
func (c *Checker) ScopeFor(span source.Span) (*symbols.Scope, bool) {
	sc, ok := c.blockScopes[span]
	return sc, ok
}

func asDiag(err error) *diagnostics.Error {
	if d, ok := err.(*diagnostics.Error); ok {
		return d
	}
	return diagnostics.Internal("checker", "%s", err.Error())
}

// place describes an lvalue resolved by resolvePlace: its type and whether
// it is presently mutable (§4.6's assignment/reference rules all key off
// this).
type place struct {
	Type    types.TypeId
	Mutable bool
	Span    source.Span
}
