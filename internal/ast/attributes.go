package ast

import "github.com/blanketsucks/language-sub000/internal/source"

// AttributeArg is one `name(args)` argument; positional args have empty Key.
type AttributeArg struct {
	Key   string
	Value string
}

// Attribute is one `![name(args)]` annotation preceding a declaration.
type Attribute struct {
	Name string
	Args []AttributeArg
	Span source.Span
}

// Attributes is the metadata attached to a declaration (§2.3 `Ast`
// carries `Attributes` metadata alongside the node tree).
type Attributes struct {
	List []Attribute
}

// Get returns the first attribute named `name`, if present.
func (a Attributes) Get(name string) (Attribute, bool) {
	for _, attr := range a.List {
		if attr.Name == name {
			return attr, true
		}
	}
	return Attribute{}, false
}

// Has reports whether `name` is present at all.
func (a Attributes) Has(name string) bool {
	_, ok := a.Get(name)
	return ok
}

// KnownAttributes is the §6 surface vocabulary; the parser fails parsing an
// attribute whose name is not in this table (`UnknownAttribute`, §4.1).
var KnownAttributes = map[string]bool{
	"link":            true,
	"llvm_intrinsic":  true,
	"no_mangle":       true,
	"packed":          true,
	"noreturn":        true,
	"inline":          true,
	"always_inline":   true,
	"cold":            true,
}
