// Package pipeline orchestrates one compilation's parse -> check -> generate
// control flow (spec §2) and fans independent compilation units out across
// goroutines (SPEC_FULL.md §A: "parallelism across, never within, a
// compilation"). Each unit gets its own state.State/types.Registry/
// symbols.Scope tree; nothing is shared between units, so the single-
// threaded-per-compilation invariant (spec §5) holds inside each one.
package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/blanketsucks/language-sub000/internal/ast"
	"github.com/blanketsucks/language-sub000/internal/checker"
	"github.com/blanketsucks/language-sub000/internal/codegen"
	"github.com/blanketsucks/language-sub000/internal/ir"
	"github.com/blanketsucks/language-sub000/internal/lexer"
	"github.com/blanketsucks/language-sub000/internal/parser"
	"github.com/blanketsucks/language-sub000/internal/state"
)

// Input is one independent compilation unit: a named source file's full
// text. Units never share compiler state with one another.
type Input struct {
	Name   string
	Source string
}

// Result is one unit's complete pipeline output: the checked AST, the
// State it was checked and lowered against, and the lowered IR envelope
// (spec §6's {global_instructions, functions, structs, globals}).
type Result struct {
	Name    string
	Program *ast.Program
	State   *state.State
	Unit    *ir.CompiledUnit
}

// Run compiles every input independently, fanning them out across
// goroutines with errgroup. The first unit to fail cancels ctx for the
// others; callers that want every unit's diagnostics regardless of a
// sibling's failure should call RunOne per input themselves instead.
func Run(ctx context.Context, inputs []Input) ([]*Result, error) {
	results := make([]*Result, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := RunOne(in)
			if err != nil {
				return fmt.Errorf("%s: %w", in.Name, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// RunOne compiles a single unit through the full parse -> check -> generate
// pipeline, stopping at the first stage that fails. The returned Result is
// never nil, even on error: callers that want to render diagnostics (§7)
// need Result.State's Sources and Diags, which are populated as far as the
// pipeline got before failing.
func RunOne(in Input) (*Result, error) {
	st := state.New()
	sourceID := st.Sources.AddFile(in.Name, in.Source)
	res := &Result{Name: in.Name, State: st}

	lx := lexer.New(in.Source, sourceID)
	p := parser.New(lx, in.Name)
	prog, err := p.ParseProgram()
	if err != nil {
		return res, err
	}
	res.Program = prog

	ck := checker.New(st)
	if err := ck.CheckProgram(prog); err != nil {
		return res, err
	}

	gen := codegen.New(st, ck)
	unit, err := gen.Generate(prog)
	if err != nil {
		return res, err
	}
	res.Unit = unit

	return res, nil
}
