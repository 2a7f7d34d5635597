// Package ast implements the attributed abstract syntax tree produced by
// the parser (spec §4.1). Per §9's design notes, expressions, statements,
// and syntactic type annotations are each a single closed tagged variant
// (one struct, a Kind field, and a type switch in every pass) rather than
// a virtual-dispatch class hierarchy: adding a new kind is then a
// compile-time-visible change in every pass that matches on it.
package ast

import (
	"math/big"

	"github.com/blanketsucks/language-sub000/internal/source"
)

// ExprKind tags the variant of an Expr (§4.1).
type ExprKind int

const (
	EInt ExprKind = iota
	EFloat
	EChar
	EString
	EBool
	ENull
	EIdent
	EPath
	ETuple
	EArray
	EArrayFill
	EStruct // Path { field: expr, ... } or empty Path {}
	ECall
	EAttribute // x.field
	EIndex     // x[i]
	ECast      // x as T
	ETernary   // x if c else y
	ERef       // &x / &mut x
	EDeref     // *x
	EUnary     // ! - ~
	EBinary
	EAssign
	ECompoundAssign
	ESizeof
	EOffsetof
	EMatch
	EClosure
)

// UnaryOp / BinaryOp / AssignOp enumerate the concrete operator for
// EUnary/EBinary/ECompoundAssign nodes.
type UnaryOp int

const (
	UNeg UnaryOp = iota
	UNot
	UBitNot
)

type BinaryOp int

const (
	BAdd BinaryOp = iota
	BSub
	BMul
	BDiv
	BMod
	BShl
	BShr
	BBitAnd
	BBitXor
	BBitOr
	BEq
	BNe
	BLt
	BGt
	BLe
	BGe
	BLogicalAnd
	BLogicalOr
)

// PathSegment is one `Name<Generics>` component of a qualified path.
type PathSegment struct {
	Name     string
	Generics []TypeExpr
	Span     source.Span
}

// StructFieldInit is `field: expr` inside a struct constructor.
type StructFieldInit struct {
	Name  string
	Value Expression
	Span  source.Span
}

// CallArg is a call argument, optionally keyword-named (`f(x, kw: y)`).
type CallArg struct {
	Keyword string // empty for positional
	Value   Expression
}

// ClosureParam is one `(params) => expr` parameter.
type ClosureParam struct {
	Name string
	Type TypeExpr // may be nil: inferred
}

// MatchArm is `pat | pat | ... => body`; nil Patterns means the `else`
// wildcard arm.
type MatchArm struct {
	Patterns []Pattern
	Body     Expression
	Span     source.Span
}

// Expression is every expression-kind AST node (§4.1), a single struct
// with a Kind discriminator.
type Expression struct {
	Kind ExprKind
	Span source.Span

	Int    *big.Int
	IntSuffix string // "", "i8".."i128","u8".."u128","usize","isize" literal suffix
	Float  float64
	FloatIsF64 bool
	Char   rune
	Str    string
	Bool   bool

	Name     string        // EIdent
	Segments []PathSegment // EPath (len 1 for a bare identifier used as a path)

	Elements []Expression // ETuple, EArray
	FillValue *Expression // EArrayFill value
	FillCount Expression  // EArrayFill count (must const-eval to an integer)

	StructPath  []PathSegment
	StructInits []StructFieldInit // EStruct

	Callee Expression
	Args   []CallArg // ECall

	Base  *Expression // EAttribute, EIndex, ECast, ERef, EDeref, EUnary
	Field string       // EAttribute

	Index *Expression // EIndex

	TargetType TypeExpr // ECast

	Cond *Expression // ETernary cond, EMatch subject (reused as Cond)
	Then *Expression // ETernary then value
	Else *Expression // ETernary else value

	RefMutable bool // ERef

	UnOp UnaryOp // EUnary

	BinOp BinaryOp    // EBinary
	Lhs   *Expression // EBinary, EAssign, ECompoundAssign
	Rhs   *Expression // EBinary, EAssign, ECompoundAssign

	CompoundOp BinaryOp // ECompoundAssign's underlying op

	SizeofTarget TypeExpr    // ESizeof(type) form
	SizeofExpr   *Expression // ESizeof(expr) form
	OffsetofBase TypeExpr
	OffsetofField string

	MatchArms []MatchArm // EMatch

	ClosureParams []ClosureParam // EClosure
	ClosureBody   Expression
}

// GetToken/TokenLiteral satisfy no interface here on purpose: per §9 there
// is no Node interface with virtual dispatch. Passes switch on Kind.

// TypeExprKind tags a syntactic type annotation (pre name-resolution).
type TypeExprKind int

const (
	TENamed TypeExprKind = iota // `i32`, `MyStruct`, `A::B<T>`
	TEPointer
	TEReference
	TEArray
	TETuple
	TEFunction
)

// TypeExpr is the syntactic (unresolved) counterpart of types.Type: what
// the parser produces before the checker interns it into the TypeRegistry.
type TypeExpr struct {
	Kind     TypeExprKind
	NodeSpan source.Span

	// TENamed
	Segments []PathSegment

	// TEPointer / TEReference
	Pointee *TypeExpr
	Mutable bool

	// TEArray
	Element *TypeExpr
	Len     Expression // may be a const expression, evaluated by consteval

	// TETuple
	Elements []TypeExpr

	// TEFunction
	Params    []TypeExpr
	Ret       *TypeExpr
	CVariadic bool
}
