package ast

import "github.com/blanketsucks/language-sub000/internal/source"

// StmtKind tags the variant of a Statement (§4.1).
type StmtKind int

const (
	SLet StmtKind = iota
	SConst
	SFunc
	SStruct
	SEnum
	STrait
	SImpl
	STypeAlias
	SModule
	SImport
	SExternBlock
	SUsing
	SIf
	SWhile
	SFor       // `for x in iterable`
	SForRange  // `for x in n..m` / `n..=m`
	SBreak
	SContinue
	SReturn
	SDefer
	SStaticAssert
	SBlock
	SExpr
)

// Field is a struct-declaration field (`name: Type`).
type Field struct {
	Name    string
	Type    TypeExpr
	Private bool
	Readonly bool
	Span    source.Span
}

// EnumVariant is one `Name` or `Name(Type, ...)` enum case.
type EnumVariant struct {
	Name    string
	Payload []TypeExpr
	Span    source.Span
}

// GenericParam is one `<T>` / `<T: Trait>` generic parameter.
type GenericParam struct {
	Name  string
	Bound string // trait name bound, or "" for unconstrained
}

// ImportSpec is `import a::b::c [as alias]` or `from a::b using {x, y}` /
// `from a::b using *`.
type ImportSpec struct {
	Path     []string
	Alias    string
	Using    []string // nil means wildcard when Wildcard is true
	Wildcard bool
}

// Statement is every statement/declaration-kind AST node, a single struct
// with a Kind discriminator (§9: closed tagged variant, no visitor).
type Statement struct {
	Kind  StmtKind
	Span  source.Span
	Attrs Attributes

	// SLet / SConst
	Name           string
	Pattern        *Pattern
	TypeAnnotation *TypeExpr
	Value          *Expression
	Mut            bool

	// SFunc
	FuncName   string
	Generics   []GenericParam
	Params     []FuncParam
	ReturnType *TypeExpr
	Body       *Statement // SBlock, nil for `extern` declarations
	ExternC    bool

	// SStruct
	StructName string
	Fields     []Field
	Opaque     bool
	Public     bool

	// SEnum
	EnumName string
	Variants []EnumVariant

	// STrait
	TraitName    string
	TraitMethods []Statement // SFunc signatures (Body is always nil: the parser reads no default method bodies)

	// SImpl
	ImplTarget   TypeExpr
	ImplGenerics []GenericParam
	ImplMethods  []Statement // SFunc

	// STypeAlias
	AliasName     string
	AliasGenerics []GenericParam
	AliasTarget   TypeExpr

	// SModule
	ModuleName string
	ModuleBody []Statement

	// SImport / SUsing
	Import ImportSpec

	// SExternBlock
	ExternDecls []Statement // SFunc with no Body

	// SIf
	Cond       *Expression
	Then       *Statement // SBlock
	Else       *Statement // SBlock or SIf (else if)

	// SWhile
	WhileCond *Expression
	WhileBody *Statement // SBlock

	// SFor (iterator form)
	ForVar      string
	ForIterable *Expression
	ForBody     *Statement // SBlock

	// SForRange
	RangeVar       string
	RangeStart     *Expression
	RangeEnd       *Expression
	RangeInclusive bool
	RangeBody      *Statement // SBlock

	// SReturn
	ReturnValue *Expression // nil for bare `return;`

	// SDefer
	DeferExpr *Expression

	// SStaticAssert
	AssertCond    *Expression
	AssertMessage string

	// SBlock
	Statements []Statement

	// SExpr
	Expr *Expression
}

// FuncParam is a function/method parameter in its syntactic form.
type FuncParam struct {
	Name      string
	Type      *TypeExpr // nil for `self`
	SelfParam bool
	Mutable   bool
	Variadic  bool
	Keyword   bool
	Reference bool
	Span      source.Span
}

// Program is the root node of every AST the parser produces (§2.3).
type Program struct {
	File       string
	ModulePath []string // from `module a::b::c;`, if present
	Imports    []ImportSpec
	Statements []Statement
}
