package symbols

import (
	"fmt"

	"github.com/blanketsucks/language-sub000/internal/source"
)

// PathError is returned by ResolvePath for resolution failures that the
// caller renders as a diagnostics.Error with the given kind name; kept as a
// plain Go error here since this package does not depend on diagnostics
// (diagnostics is a pure-data package most passes depend on, and this
// package sits below the checker in the dependency order).
type PathError struct {
	Kind string // "UnknownIdentifier" | "NotANamespace" | "PrivateAccess"
	Name string
	Span source.Span
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Name)
}

// ResolvePath resolves `A::B::C::last` (§4.3): every segment except the
// last must denote a namespace-like symbol (Module or Struct); the last
// segment returns the resolved Symbol itself.
func ResolvePath(from *Scope, segments []string, spans []source.Span, allowGenericsOnLast bool) (*Symbol, error) {
	if len(segments) == 0 {
		return nil, &PathError{Kind: "UnknownIdentifier", Name: ""}
	}

	sym, ok := Resolve(from, segments[0])
	if !ok {
		return nil, &PathError{Kind: "UnknownIdentifier", Name: segments[0], Span: spans[0]}
	}

	for i := 1; i < len(segments); i++ {
		var ns *Scope
		switch sym.Kind {
		case SymModule:
			ns = sym.ModScope
		case SymStruct:
			ns = sym.StructScope
		default:
			return nil, &PathError{Kind: "NotANamespace", Name: segments[i-1], Span: spans[i-1]}
		}
		next, found := ns.LookupLocal(segments[i])
		if !found {
			return nil, &PathError{Kind: "UnknownIdentifier", Name: segments[i], Span: spans[i]}
		}
		sym = next
	}
	return sym, nil
}

// Import copies aliases for a `use`/`using a::b::{x, y}` statement: each
// selected name in `names` is bound in `into` pointing at the same Symbol
// resolved from `fromScope`. A wildcard (`names == nil`) copies every
// public symbol of fromScope (§4.3).
func Import(into *Scope, fromScope *Scope, names []string) []*PathError {
	var errs []*PathError
	if names == nil {
		for name, sym := range fromScope.All() {
			if !isPublic(sym) {
				continue
			}
			into.symbols[name] = sym
		}
		return errs
	}
	for _, name := range names {
		sym, ok := fromScope.LookupLocal(name)
		if !ok {
			errs = append(errs, &PathError{Kind: "UnknownIdentifier", Name: name})
			continue
		}
		if !isPublic(sym) {
			errs = append(errs, &PathError{Kind: "PrivateAccess", Name: name})
			continue
		}
		into.symbols[name] = sym
	}
	return errs
}

func isPublic(sym *Symbol) bool {
	switch sym.Kind {
	case SymStruct:
		return sym.Public
	case SymVariable:
		return sym.HasVarFlag(VarPublic)
	default:
		return true
	}
}
