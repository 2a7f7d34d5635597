// Package state implements the compilation-wide mutable context shared by
// every pass (spec §2.9): current scope/function/struct/module/self-type,
// register/global counters, global function/struct/module tables, impl
// tables (concrete and generic), and the early (pre-main) function-call
// list.
package state

import (
	"github.com/google/uuid"

	"github.com/blanketsucks/language-sub000/internal/diagnostics"
	"github.com/blanketsucks/language-sub000/internal/source"
	"github.com/blanketsucks/language-sub000/internal/symbols"
	"github.com/blanketsucks/language-sub000/internal/types"
)

// ImplKey identifies a concrete (non-generic) impl by its target TypeId.
type ImplKey = types.TypeId

// State is the single mutable context threaded through parsing, checking,
// and generation for one compilation. TypeRegistry and SourceMap are
// constructed once here and passed by reference everywhere else, per §9's
// "no implicit thread-local or process-wide state" design note.
type State struct {
	// BuildID stamps this compilation for diagnostics/backend-RPC
	// correlation; unrelated to incremental compilation (an explicit
	// Non-goal), comparable to an LLVM build-id.
	BuildID string

	Types   *types.Registry
	Sources *source.Map
	Global  *symbols.Scope

	Diags *diagnostics.Collector

	// Current* track the walk's position for passes that need ambient
	// context without threading it through every call (mirrors the
	// teacher's environment-stack idiom, generalized to the spec's
	// explicit "current scope/function/struct/module/self-type").
	CurrentScope  *symbols.Scope
	CurrentFunc   *symbols.Symbol
	CurrentStruct *symbols.Symbol
	CurrentModule *symbols.Symbol
	SelfType      types.TypeId

	registerCounter uint32
	globalCounter   uint32

	GlobalFunctions map[string]*symbols.Symbol
	GlobalStructs   map[string]*symbols.Symbol
	GlobalModules   map[string]*symbols.Symbol

	// ConcreteImpls maps a concrete target type to the methods scope
	// installed for it by a non-generic `impl`.
	ConcreteImpls map[ImplKey]*symbols.Scope

	// GenericImpls is matched lazily against a concrete type the first
	// time a method is looked up on it (§4.6).
	GenericImpls []*symbols.Symbol

	// GenericInstantiations remembers, per (impl symbol, concrete type),
	// the specialised scope already built — so two accesses against the
	// same concrete type reuse one instantiation (§8 testable property).
	GenericInstantiations map[genericInstKey]*symbols.Scope

	// RegisterTypes is State.register_types: the register-index -> TypeId
	// side table (§3).
	RegisterTypes []types.TypeId

	// EarlyCalls are calls that must run before `main` (e.g. static
	// initializers for globals with non-constant initializers).
	EarlyCalls []EarlyCall
}

type genericInstKey struct {
	impl   *symbols.Symbol
	target types.TypeId
}

// EarlyCall is one entry of the pre-main call list.
type EarlyCall struct {
	FunctionName string
	Span         source.Span
}

// New constructs a fresh State with an empty global scope.
func New() *State {
	global := symbols.NewScope("<global>", symbols.ScopeGlobal, nil)
	return &State{
		BuildID:               uuid.NewString(),
		Types:                 types.NewRegistry(),
		Sources:               source.NewMap(),
		Global:                global,
		CurrentScope:          global,
		Diags:                 &diagnostics.Collector{},
		GlobalFunctions:       make(map[string]*symbols.Symbol),
		GlobalStructs:         make(map[string]*symbols.Symbol),
		GlobalModules:         make(map[string]*symbols.Symbol),
		ConcreteImpls:         make(map[ImplKey]*symbols.Scope),
		GenericInstantiations: make(map[genericInstKey]*symbols.Scope),
	}
}

// NextRegister allocates a new virtual register, monotonically, recording
// its type in the side table (§3: registers are never reused once
// allocated).
func (s *State) NextRegister(t types.TypeId) uint32 {
	id := s.registerCounter
	s.registerCounter++
	s.RegisterTypes = append(s.RegisterTypes, t)
	return id
}

// NextGlobalSlot allocates the next module-scope global variable index.
func (s *State) NextGlobalSlot() uint32 {
	id := s.globalCounter
	s.globalCounter++
	return id
}

// LookupConcreteImpl returns the methods scope of a non-generic impl for
// target, if one was installed.
func (s *State) LookupConcreteImpl(target types.TypeId) (*symbols.Scope, bool) {
	sc, ok := s.ConcreteImpls[target]
	return sc, ok
}

// EachGenericInstantiation calls fn once per specialised generic-impl scope
// built during checking, with the concrete type it was instantiated
// against — the generator's enumeration hook, since genericInstKey's
// fields are private to this package.
func (s *State) EachGenericInstantiation(fn func(target types.TypeId, scope *symbols.Scope)) {
	for key, sc := range s.GenericInstantiations {
		fn(key.target, sc)
	}
}

// InstantiateGeneric returns the cached specialised scope for (impl,
// target), building and caching one via build on first access. This is the
// single chokepoint enforcing the "no duplicate instantiation" invariant
// (§8).
func (s *State) InstantiateGeneric(impl *symbols.Symbol, target types.TypeId, build func() *symbols.Scope) *symbols.Scope {
	key := genericInstKey{impl: impl, target: target}
	if sc, ok := s.GenericInstantiations[key]; ok {
		return sc
	}
	sc := build()
	s.GenericInstantiations[key] = sc
	return sc
}
