package symbols

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestWildcardImportSharesSymbolPointer guards against a regression where
// the wildcard branch of Import cloned each Symbol's fields into a new
// *Symbol instead of binding the same pointer the named-import branch
// uses. In-place mutation tracking (flags set by the checker as a symbol
// is used/mutated) must be visible through every alias of that symbol,
// wildcard-imported or not.
func TestWildcardImportSharesSymbolPointer(t *testing.T) {
	from := NewScope("from", ScopeModule, nil)
	sym := &Symbol{Kind: SymVariable, Name: "x", VarFlags: VarPublic}
	_, ok := from.Insert(sym)
	require.True(t, ok)

	into := NewScope("into", ScopeModule, nil)
	errs := Import(into, from, nil)
	require.Empty(t, errs)

	imported, ok := into.LookupLocal("x")
	require.True(t, ok)
	assert.Same(t, sym, imported, "wildcard import must bind the same *Symbol, not a copy")

	imported.VarFlags |= VarMutable
	assert.True(t, sym.HasVarFlag(VarMutable), "mutating the imported alias must be visible on the original symbol")
}

func TestNamedImportAlsoSharesSymbolPointer(t *testing.T) {
	from := NewScope("from", ScopeModule, nil)
	sym := &Symbol{Kind: SymVariable, Name: "x", VarFlags: VarPublic}
	_, ok := from.Insert(sym)
	require.True(t, ok)

	into := NewScope("into", ScopeModule, nil)
	errs := Import(into, from, []string{"x"})
	require.Empty(t, errs)

	imported, ok := into.LookupLocal("x")
	require.True(t, ok)
	assert.Same(t, sym, imported)
}

func TestWildcardImportSkipsPrivateSymbols(t *testing.T) {
	from := NewScope("from", ScopeModule, nil)
	_, ok := from.Insert(&Symbol{Kind: SymVariable, Name: "hidden"})
	require.True(t, ok)

	into := NewScope("into", ScopeModule, nil)
	errs := Import(into, from, nil)
	require.Empty(t, errs)

	_, found := into.LookupLocal("hidden")
	assert.False(t, found)
}
