// Package token defines the token contract the core consumes from an
// external token producer (spec §6). The core never constructs a lexer of
// its own beyond the reference one in internal/lexer.
package token

import "github.com/blanketsucks/language-sub000/internal/source"

// Kind enumerates every token kind in the §6 token contract.
type Kind int

const (
	Illegal Kind = iota
	EOF

	Identifier
	Integer
	Float
	Char
	String
	RawString

	// Keywords
	KwFunc
	KwLet
	KwConst
	KwStruct
	KwTrait
	KwImpl
	KwEnum
	KwIf
	KwElse
	KwWhile
	KwFor
	KwIn
	KwBreak
	KwContinue
	KwReturn
	KwDefer
	KwMatch
	KwUsing
	KwFrom
	KwImport
	KwModule
	KwType
	KwStaticAssert
	KwMut
	KwAs
	KwSizeof
	KwOffsetof
	KwExtern
	KwTrue
	KwFalse
	KwNull

	// Punctuation / operators
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Comma
	Colon
	ColonColon
	Semicolon
	Dot
	DotDot
	DotDotEq
	Arrow // ->
	FatArrow // =>
	Bang
	Question

	Assign
	Plus
	Minus
	Star
	Slash
	Percent
	Amp
	Pipe
	Caret
	Tilde
	Shl
	Shr
	Lt
	Gt
	Le
	Ge
	EqEq
	Ne
	AmpAmp
	PipePipe

	PlusEq
	MinusEq
	StarEq
	SlashEq
	PercentEq
	AmpEq
	PipeEq
	CaretEq
	ShlEq
	ShrEq
)

var names = map[Kind]string{
	Illegal: "illegal", EOF: "eof", Identifier: "identifier",
	Integer: "integer", Float: "float", Char: "char", String: "string", RawString: "raw_string",
	KwFunc: "func", KwLet: "let", KwConst: "const", KwStruct: "struct", KwTrait: "trait",
	KwImpl: "impl", KwEnum: "enum", KwIf: "if", KwElse: "else", KwWhile: "while", KwFor: "for",
	KwIn: "in", KwBreak: "break", KwContinue: "continue", KwReturn: "return", KwDefer: "defer",
	KwMatch: "match", KwUsing: "using", KwFrom: "from", KwImport: "import", KwModule: "module",
	KwType: "type", KwStaticAssert: "static_assert", KwMut: "mut", KwAs: "as", KwSizeof: "sizeof",
	KwOffsetof: "offsetof", KwExtern: "extern", KwTrue: "true", KwFalse: "false", KwNull: "null",
	LParen: "(", RParen: ")", LBrace: "{", RBrace: "}", LBracket: "[", RBracket: "]",
	Comma: ",", Colon: ":", ColonColon: "::", Semicolon: ";", Dot: ".", DotDot: "..", DotDotEq: "..=",
	Arrow: "->", FatArrow: "=>", Bang: "!", Question: "?",
	Assign: "=", Plus: "+", Minus: "-", Star: "*", Slash: "/", Percent: "%",
	Amp: "&", Pipe: "|", Caret: "^", Tilde: "~", Shl: "<<", Shr: ">>",
	Lt: "<", Gt: ">", Le: "<=", Ge: ">=", EqEq: "==", Ne: "!=", AmpAmp: "&&", PipePipe: "||",
	PlusEq: "+=", MinusEq: "-=", StarEq: "*=", SlashEq: "/=", PercentEq: "%=",
	AmpEq: "&=", PipeEq: "|=", CaretEq: "^=", ShlEq: "<<=", ShrEq: ">>=",
}

func (k Kind) String() string {
	if n, ok := names[k]; ok {
		return n
	}
	return "unknown"
}

var Keywords = map[string]Kind{
	"func": KwFunc, "let": KwLet, "const": KwConst, "struct": KwStruct, "trait": KwTrait,
	"impl": KwImpl, "enum": KwEnum, "if": KwIf, "else": KwElse, "while": KwWhile, "for": KwFor,
	"in": KwIn, "break": KwBreak, "continue": KwContinue, "return": KwReturn, "defer": KwDefer,
	"match": KwMatch, "using": KwUsing, "from": KwFrom, "import": KwImport, "module": KwModule,
	"type": KwType, "static_assert": KwStaticAssert, "mut": KwMut, "as": KwAs, "sizeof": KwSizeof,
	"offsetof": KwOffsetof, "extern": KwExtern, "true": KwTrue, "false": KwFalse, "null": KwNull,
}

// Token is the unit the parser pulls from a TokenStream.
type Token struct {
	Kind Kind
	Span source.Span
	Text string
}

// TokenStream is the external producer contract (spec §6): anything that
// can yield a token stream terminated by a single EOF token.
type TokenStream interface {
	Next() Token
}
