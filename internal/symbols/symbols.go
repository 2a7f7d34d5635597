// Package symbols implements the Symbol/Scope data model and ScopeTree
// name resolution from spec §3 and §4.3.
package symbols

import (
	"github.com/blanketsucks/language-sub000/internal/ast"
	"github.com/blanketsucks/language-sub000/internal/source"
	"github.com/blanketsucks/language-sub000/internal/types"
)

// SymbolKind tags the variant of a Symbol (§3).
type SymbolKind int

const (
	SymVariable SymbolKind = iota
	SymFunction
	SymStruct
	SymTrait
	SymTypeAlias
	SymModule
	SymImpl
)

// VariableFlag / ParameterFlag / FieldFlag are small bitsets, matching the
// §3 `flags: {...}` sets on Variable/Parameter/StructField.
type VariableFlag uint8

const (
	VarMutable VariableFlag = 1 << iota
	VarConstant
	VarPublic
	VarReference
	VarUsed
	VarMutated
	// VarGlobal marks a binding whose VarIndex is a module-level global
	// slot (GetGlobal/SetGlobal), as opposed to a function-local slot
	// (GetLocal/SetLocal) reset to zero at the start of each function body.
	VarGlobal
)

type ParameterFlag uint8

const (
	ParamSelf ParameterFlag = 1 << iota
	ParamMutable
	ParamVariadic
	ParamKeyword
	ParamReference
)

type FieldFlag uint8

const (
	FieldPrivate FieldFlag = 1 << iota
	FieldReadonly
	FieldMutable
)

// Parameter is a function parameter (§3).
type Parameter struct {
	Name  string
	Type  types.TypeId
	Flags ParameterFlag
	Index int
	Span  source.Span
}

func (p Parameter) Has(f ParameterFlag) bool { return p.Flags&f != 0 }

// StructField is one field of a Struct symbol (§3).
type StructField struct {
	Name  string
	Type  types.TypeId
	Index int
	Flags FieldFlag
}

func (f StructField) Has(flag FieldFlag) bool { return f.Flags&flag != 0 }

// ImplConditionKind tags what shape of concrete type a generic impl
// condition matches against (§3 ImplCondition).
type ImplConditionKind int

const (
	CondPointer ImplConditionKind = iota
	CondReference
	CondArray
	CondTuple
	CondAny
)

type ImplCondition struct {
	ParameterName string
	Kind          ImplConditionKind
}

// ScopeKind tags the kind of lexical environment a Scope represents (§3).
type ScopeKind int

const (
	ScopeGlobal ScopeKind = iota
	ScopeFunction
	ScopeBlock
	ScopeStruct
	ScopeTrait
	ScopeImpl
	ScopeModule
)

// BlockRef names a basic block inside a Function symbol's eventual IR body.
// Declared here (rather than in ir) because Symbol.CurrentLoop needs it and
// ir already depends on symbols for Function metadata; ir defines the
// concrete block type and implements this as a string alias.
type BlockRef string

// LoopContext is `current_loop = { start, end }` (§3).
type LoopContext struct {
	Start BlockRef
	End   BlockRef
}

// Symbol is a named entity known to the compiler: variable, function,
// struct, trait, module, alias, or impl (§3). Represented as one struct
// with a Kind tag and variant-specific fields, mirroring the Type encoding
// in internal/types, rather than an interface hierarchy with per-kind
// concrete types — every pass over symbols is a single exhaustive switch.
type Symbol struct {
	Kind SymbolKind
	Name string

	// --- Variable ---
	VarIndex uint32
	VarType  types.TypeId
	VarFlags VariableFlag

	// --- Function ---
	QualifiedName  string
	Params         []Parameter
	FuncType       types.TypeId // KindFunction
	ReturnType     types.TypeId
	Linkage        Linkage
	Span           source.Span
	FuncScope      *Scope
	EntryBlock     BlockRef
	BasicBlocks    []BlockRef
	Locals         []types.TypeId
	CurrentLoop    *LoopContext
	Module         *Symbol
	Defined        bool // false for `extern` declarations with no body
	Body           *ast.Statement // SBlock body, shared by the generator (nil for `extern`)

	// --- Struct ---
	StructType   types.TypeId
	FieldsByName map[string]*StructField
	FieldOrder   []string
	StructScope  *Scope
	Public       bool

	// --- Trait ---
	TraitType  types.TypeId
	TraitScope *Scope

	// --- TypeAlias ---
	AliasTarget  types.TypeId
	GenericAlias *GenericAlias

	// --- Module ---
	Path      string
	ModScope  *Scope
	Importing bool

	// --- Impl ---
	ImplTarget     types.TypeId
	ImplScope      *Scope
	ImplConditions []ImplCondition
}

func (s *Symbol) HasVarFlag(f VariableFlag) bool { return s.VarFlags&f != 0 }

// Linkage distinguishes normal definitions from `extern "C"` declarations.
type Linkage int

const (
	LinkInternal Linkage = iota
	LinkExternC
)

// GenericAlias is a `type Name<T, U> = ...` alias awaiting instantiation.
type GenericAlias struct {
	Params []string
	Body   types.TypeId // body is re-resolved per instantiation by the checker
}

// Scope is a lexical environment holding named symbols and a parent link
// (§3). A scope's children/symbols are owned by it; a child's Parent link
// is a back-reference, not an ownership edge.
type Scope struct {
	Name     string
	Kind     ScopeKind
	Parent   *Scope
	Children []*Scope
	symbols  map[string]*Symbol
}

// NewScope creates a child scope of parent (nil for the root/global scope).
func NewScope(name string, kind ScopeKind, parent *Scope) *Scope {
	s := &Scope{Name: name, Kind: kind, Parent: parent, symbols: make(map[string]*Symbol)}
	if parent != nil {
		parent.Children = append(parent.Children, s)
	}
	return s
}

// Insert adds sym to this scope. Returns a DuplicateSymbol-shaped error
// (as a plain bool + existing symbol) on a same-scope name collision; the
// caller (checker/resolver) is responsible for turning that into a
// diagnostics.Error with the correct span.
func (s *Scope) Insert(sym *Symbol) (existing *Symbol, ok bool) {
	if prev, found := s.symbols[sym.Name]; found {
		return prev, false
	}
	s.symbols[sym.Name] = sym
	return nil, true
}

// Replace forcibly overwrites a binding, used only for the symbol-collection
// pass upgrading a forward-declared stub into its full definition.
func (s *Scope) Replace(sym *Symbol) {
	s.symbols[sym.Name] = sym
}

// LookupLocal finds a symbol bound directly in this scope.
func (s *Scope) LookupLocal(name string) (*Symbol, bool) {
	sym, ok := s.symbols[name]
	return sym, ok
}

// Resolve walks the scope chain upward from `from` looking for name (§4.3).
func Resolve(from *Scope, name string) (*Symbol, bool) {
	for sc := from; sc != nil; sc = sc.Parent {
		if sym, ok := sc.symbols[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// All returns every symbol directly bound in this scope, for wildcard
// imports (`import … *`) and public-symbol enumeration.
func (s *Scope) All() map[string]*Symbol {
	return s.symbols
}
