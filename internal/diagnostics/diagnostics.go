// Package diagnostics implements the §7 error taxonomy and formatting: a
// single Error type shared by every pass (parser, checker, const evaluator,
// generator) instead of one ad-hoc error type per package, since §7
// centralizes the taxonomy and print format across all of them.
package diagnostics

import (
	"fmt"
	"strings"

	"github.com/blanketsucks/language-sub000/internal/source"
)

// Kind is one member of the closed §7 ErrorKind taxonomy.
type Kind int

const (
	// Lex/Parse
	UnexpectedToken Kind = iota
	UnexpectedEof
	InvalidLiteral
	UnknownAttribute
	InvalidContext

	// Resolve
	UnknownIdentifier
	DuplicateSymbol
	NotANamespace
	CircularImport
	AmbiguousImport
	PrivateAccess

	// Type
	TypeMismatch
	NotCallable
	ArityMismatch
	NotIndexable
	NotDereferenceable
	MutabilityMismatch
	NonExhaustiveMatch
	NotAField
	NotAMethod
	UnsizedField
	RecursiveStructByValue

	// Const
	NotConstant
	ConstLoopOverflow
	IndexOutOfRange
	DivisionByZero

	// IR
	InternalInvariant
)

var kindNames = map[Kind]string{
	UnexpectedToken: "UnexpectedToken", UnexpectedEof: "UnexpectedEof",
	InvalidLiteral: "InvalidLiteral", UnknownAttribute: "UnknownAttribute",
	InvalidContext: "InvalidContext", UnknownIdentifier: "UnknownIdentifier",
	DuplicateSymbol: "DuplicateSymbol", NotANamespace: "NotANamespace",
	CircularImport: "CircularImport", AmbiguousImport: "AmbiguousImport",
	PrivateAccess: "PrivateAccess", TypeMismatch: "TypeMismatch",
	NotCallable: "NotCallable", ArityMismatch: "ArityMismatch",
	NotIndexable: "NotIndexable", NotDereferenceable: "NotDereferenceable",
	MutabilityMismatch: "MutabilityMismatch", NonExhaustiveMatch: "NonExhaustiveMatch",
	NotAField: "NotAField", NotAMethod: "NotAMethod", UnsizedField: "UnsizedField",
	RecursiveStructByValue: "RecursiveStructByValue", NotConstant: "NotConstant",
	ConstLoopOverflow: "ConstLoopOverflow", IndexOutOfRange: "IndexOutOfRange",
	DivisionByZero: "DivisionByZero", InternalInvariant: "InternalInvariant",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "Unknown"
}

// IsFatal reports whether this kind always aborts the enclosing declaration.
// Every Kind is fatal; there are no warning kinds.
func (k Kind) IsFatal() bool {
	return true
}

// Note is an auxiliary span attached to an Error (e.g. "previous definition
// here").
type Note struct {
	Span    source.Span
	Message string
}

// Error is the one error type every pass returns, per §7.
type Error struct {
	Span    source.Span
	Kind    Kind
	Message string
	Notes   []Note
	Pass    string // only meaningful for InternalInvariant
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New builds a fatal diagnostic.
func New(kind Kind, span source.Span, message string, args ...any) *Error {
	return &Error{Kind: kind, Span: span, Message: fmt.Sprintf(message, args...)}
}

// Internal builds an InternalInvariant error naming the compiler pass that
// tripped it. This kind is reserved for compiler bugs, never user input.
func Internal(pass, message string, args ...any) *Error {
	return &Error{Kind: InternalInvariant, Pass: pass, Message: fmt.Sprintf(message, args...)}
}

// WithNote appends a note and returns e for chaining.
func (e *Error) WithNote(span source.Span, message string, args ...any) *Error {
	e.Notes = append(e.Notes, Note{Span: span, Message: fmt.Sprintf(message, args...)})
	return e
}

// Warning is a non-fatal diagnostic recorded by Collector and printed at
// the end of the run (§4.10), e.g. "declared mut but never mutated".
type Warning struct {
	Span    source.Span
	Message string
}

// Collector accumulates fatal errors and warnings across a best-effort
// top-level run (§7: the driver may continue past a declaration's first
// fatal error to surface more diagnostics).
type Collector struct {
	Errors   []*Error
	Warnings []Warning
}

func (c *Collector) Report(err *Error) {
	c.Errors = append(c.Errors, err)
}

func (c *Collector) Warn(span source.Span, message string, args ...any) {
	c.Warnings = append(c.Warnings, Warning{Span: span, Message: fmt.Sprintf(message, args...)})
}

func (c *Collector) HasErrors() bool { return len(c.Errors) > 0 }

// Format renders every collected error/warning against sm: a kind tag, the
// primary source line with an underline, the message, then any notes each
// with their own snippet (§7).
func (c *Collector) Format(sm *source.Map) string {
	var b strings.Builder
	for _, e := range c.Errors {
		writeBlock(&b, sm, e.Kind.String(), e.Span, e.Message)
		for _, n := range e.Notes {
			writeBlock(&b, sm, "note", n.Span, n.Message)
		}
	}
	for _, w := range c.Warnings {
		writeBlock(&b, sm, "warning", w.Span, w.Message)
	}
	return b.String()
}

func writeBlock(b *strings.Builder, sm *source.Map, tag string, sp source.Span, message string) {
	loc := sm.Locate(sp)
	line, us, ue := sm.Snippet(sp)
	fmt.Fprintf(b, "%s: %s\n", tag, message)
	fmt.Fprintf(b, "  --> %s:%d:%d\n", loc.File, loc.Line, loc.Column)
	fmt.Fprintf(b, "   | %s\n", line)
	underline := strings.Repeat(" ", us) + strings.Repeat("^", max(1, ue-us))
	fmt.Fprintf(b, "   | %s\n", underline)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// FormatInternal renders a compiler-bug message per §7's other branch.
func FormatInternal(err *Error) string {
	return fmt.Sprintf("internal compiler error: %s (pass: %s)", err.Message, err.Pass)
}
