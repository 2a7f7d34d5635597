package ast

import "github.com/blanketsucks/language-sub000/internal/source"

// PatternKind tags a `match` pattern (§4.1).
type PatternKind int

const (
	PLiteral PatternKind = iota
	PBinding // bare identifier, binds the scrutinee
	PWildcard
	PTuple
	PStruct
)

// Pattern is one arm pattern of a match expression.
type Pattern struct {
	Kind PatternKind
	Span source.Span

	Literal Expression // PLiteral

	Name string // PBinding

	Elements []Pattern // PTuple

	StructPath []PathSegment
	FieldNames []string
	Fields     []Pattern // PStruct, parallel to FieldNames
}
