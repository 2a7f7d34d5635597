// Command quartc is the ahead-of-time driver: source in, lowered IR out
// (spec §6's CLI surface). It owns nothing the compiler passes don't
// already own — its job is argument parsing, diagnostic printing, and
// picking an --emit strategy for pipeline.RunOne's result.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/blanketsucks/language-sub000/internal/backendrpc"
	"github.com/blanketsucks/language-sub000/internal/config"
	"github.com/blanketsucks/language-sub000/internal/diagnostics"
	"github.com/blanketsucks/language-sub000/internal/ir"
	"github.com/blanketsucks/language-sub000/internal/pipeline"
)

// options holds the parsed §6 CLI surface. inputs may name more than one
// file (SPEC_FULL.md §A: "quartc a.qt b.qt" fans independent compilations
// out via pipeline.Run); -o only applies when there is exactly one.
type options struct {
	inputs       []string
	output       string
	optLevel     string
	target       string
	emit         string
	libPaths     []string
	libs         []string
	includePaths []string
	defines      map[string]string
	verbose      bool
}

var optLevels = map[string]bool{"-O0": true, "-O1": true, "-O2": true, "-O3": true, "-Os": true, "-Oz": true}
var emitKinds = map[string]bool{"obj": true, "asm": true, "ir": true, "exe": true, "lib": true}

func parseArgs(args []string) (*options, error) {
	opts := &options{emit: "exe", defines: map[string]string{}}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case optLevels[arg]:
			opts.optLevel = arg
		case arg == "-o":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("-o requires a path argument")
			}
			i++
			opts.output = args[i]
		case arg == "--target":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--target requires a triple argument")
			}
			i++
			opts.target = args[i]
		case arg == "--emit":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--emit requires one of obj|asm|ir|exe|lib")
			}
			i++
			if !emitKinds[args[i]] {
				return nil, fmt.Errorf("unrecognized --emit kind %q", args[i])
			}
			opts.emit = args[i]
		case strings.HasPrefix(arg, "-L"):
			opts.libPaths = append(opts.libPaths, valueOf(arg, "-L", args, &i))
		case strings.HasPrefix(arg, "-l"):
			opts.libs = append(opts.libs, valueOf(arg, "-l", args, &i))
		case strings.HasPrefix(arg, "-I"):
			opts.includePaths = append(opts.includePaths, valueOf(arg, "-I", args, &i))
		case strings.HasPrefix(arg, "-D"):
			def := valueOf(arg, "-D", args, &i)
			name, value, _ := strings.Cut(def, "=")
			opts.defines[name] = value
		case arg == "-v":
			opts.verbose = true
		case strings.HasPrefix(arg, "-"):
			return nil, fmt.Errorf("unrecognized flag %q", arg)
		default:
			opts.inputs = append(opts.inputs, arg)
		}
	}
	if len(opts.inputs) == 0 {
		return nil, fmt.Errorf("no input file given")
	}
	if opts.output != "" && len(opts.inputs) > 1 {
		return nil, fmt.Errorf("-o requires exactly one input file, got %d", len(opts.inputs))
	}
	return opts, nil
}

// valueOf reads an `-Xvalue` or `-X value` flag, advancing i for the
// two-token form.
func valueOf(arg, flag string, args []string, i *int) string {
	rest := strings.TrimPrefix(arg, flag)
	if rest != "" {
		return rest
	}
	if *i+1 < len(args) {
		*i++
		return args[*i]
	}
	return ""
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) (exitCode int) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "internal compiler error: panic: %v\n", r)
			exitCode = 2
		}
	}()

	opts, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "quartc: %s\n", err)
		fmt.Fprintln(os.Stderr, usage)
		return 1
	}
	config.IsVerbose = opts.verbose

	inputs := make([]pipeline.Input, len(opts.inputs))
	for i, path := range opts.inputs {
		src, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "quartc: reading %s: %s\n", path, err)
			return 1
		}
		if opts.verbose {
			fmt.Fprintf(os.Stderr, "quartc: compiling %s (%s)\n", path, humanize.Bytes(uint64(len(src))))
		}
		inputs[i] = pipeline.Input{Name: path, Source: string(src)}
	}

	// Each input is its own independent compilation (never sharing a
	// State/TypeRegistry/ScopeTree), fanned out across goroutines; a
	// single input still goes through the same RunOne path Run calls
	// internally, so there is exactly one compilation code path.
	results, runErr := pipeline.Run(context.Background(), inputs)
	if runErr != nil {
		// Run cancels on the first failure, so re-run every input
		// individually to recover each one's own diagnostics for report.
		worst := 0
		for _, in := range inputs {
			res, err := pipeline.RunOne(in)
			if err != nil {
				if code := report(res, err); code > worst {
					worst = code
				}
				continue
			}
			if err := emit(opts, res); err != nil {
				fmt.Fprintf(os.Stderr, "quartc: %s\n", err)
				if worst < 1 {
					worst = 1
				}
				continue
			}
			if opts.verbose {
				printSummary(opts, res)
			}
		}
		return worst
	}

	for _, res := range results {
		if err := emit(opts, res); err != nil {
			fmt.Fprintf(os.Stderr, "quartc: %s\n", err)
			return 1
		}
		if opts.verbose {
			printSummary(opts, res)
		}
	}
	return 0
}

// report prints err (and anything else State.Diags collected along the
// way) per §7, distinguishing a compiler-bug InternalInvariant (exit 2)
// from every other user-visible diagnostic (exit 1).
func report(res *pipeline.Result, err error) int {
	if diag, ok := err.(*diagnostics.Error); ok && diag.Kind == diagnostics.InternalInvariant {
		fmt.Fprintln(os.Stderr, diagnostics.FormatInternal(diag))
		return 2
	}

	if res == nil || res.State == nil {
		fmt.Fprintf(os.Stderr, "quartc: %s\n", err)
		return 1
	}

	collector := res.State.Diags
	if !collector.HasErrors() {
		if diag, ok := err.(*diagnostics.Error); ok {
			collector.Report(diag)
		} else {
			fmt.Fprintf(os.Stderr, "quartc: %s\n", err)
			return 1
		}
	}
	fmt.Fprint(os.Stderr, colorize(collector.Format(res.State.Sources)))
	return 1
}

// colorize colours "warning:" lines yellow, "note:" lines cyan and error
// header lines red when stderr is a real terminal (go-isatty), never when piped to a file or CI
// log collector.
func colorize(formatted string) string {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		return formatted
	}
	lines := strings.Split(formatted, "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "warning:"):
			lines[i] = "\x1b[33m" + line + "\x1b[0m"
		case strings.HasPrefix(line, "note:"):
			lines[i] = "\x1b[36m" + line + "\x1b[0m"
		case strings.Contains(line[:min(len(line), 40)], ":") && !strings.HasPrefix(line, "  -->") && !strings.HasPrefix(line, "   |"):
			lines[i] = "\x1b[31m" + line + "\x1b[0m"
		}
	}
	return strings.Join(lines, "\n")
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// emit writes res.Unit in the form opts.emit names. Only "ir" has a
// self-contained textual form; every other kind hands the lowered unit to
// a backend over the §6 IR consumer contract via backendrpc's dynamic-
// protobuf encoding, since this repo carries no native object/asm/exe/lib
// backend of its own.
func emit(opts *options, res *pipeline.Result) error {
	out := opts.output
	if out == "" {
		out = defaultOutputPath(opts, res.Name)
	}

	var data []byte
	if opts.emit == "ir" {
		data = []byte(dumpIR(res.Unit))
	} else {
		schema, err := backendrpc.NewSchema()
		if err != nil {
			return fmt.Errorf("building backend schema: %w", err)
		}
		msg, err := backendrpc.NewExporter(schema).Encode(res.Unit, res.State)
		if err != nil {
			return fmt.Errorf("encoding compiled unit: %w", err)
		}
		data, err = msg.Marshal()
		if err != nil {
			return fmt.Errorf("marshaling compiled unit: %w", err)
		}
	}

	if out == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(out, data, 0644)
}

func defaultOutputPath(opts *options, inputPath string) string {
	base := strings.TrimSuffix(inputPath, filepath.Ext(inputPath))
	switch opts.emit {
	case "ir":
		return base + ".ir"
	case "obj":
		return base + ".o"
	case "asm":
		return base + ".s"
	case "lib":
		return base + ".a"
	default:
		return base
	}
}

// dumpIR renders a CompiledUnit as readable text: one line per
// instruction, grouped by function and basic block. This is a debugging
// aid, not a format the backend is required to round-trip — the real
// contract is the backendrpc-encoded form.
func dumpIR(unit *ir.CompiledUnit) string {
	var b strings.Builder
	if len(unit.Globals) > 0 {
		fmt.Fprintln(&b, "globals:")
		for _, g := range unit.Globals {
			fmt.Fprintf(&b, "  %s: type=%d mutable=%v index=%d\n", g.Name, g.Type, g.Mutable, g.Index)
		}
	}
	if len(unit.GlobalInstructions) > 0 {
		fmt.Fprintln(&b, "init:")
		dumpInstructions(&b, unit.GlobalInstructions, "  ")
	}
	for _, s := range unit.Structs {
		fmt.Fprintf(&b, "struct %s:\n", s.Name)
		for _, f := range s.Fields {
			fmt.Fprintf(&b, "  .%s: type=%d index=%d\n", f.Name, f.Type, f.Index)
		}
	}
	names := make([]string, 0, len(unit.Functions))
	byName := make(map[string]*ir.Function, len(unit.Functions))
	for _, fn := range unit.Functions {
		names = append(names, fn.QualifiedName)
		byName[fn.QualifiedName] = fn
	}
	sort.Strings(names)
	for _, name := range names {
		fn := byName[name]
		fmt.Fprintf(&b, "func %s(", fn.Name)
		for i, p := range fn.Params {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s: type=%d", p.Name, p.Type)
		}
		fmt.Fprintf(&b, ") -> type=%d\n", fn.ReturnType)
		if !fn.Defined {
			continue
		}
		for _, blk := range fn.Blocks {
			fmt.Fprintf(&b, " %s:\n", blk.Name)
			dumpInstructions(&b, blk.Instructions, "   ")
		}
	}
	return b.String()
}

func dumpInstructions(b *strings.Builder, insts []ir.Instruction, indent string) {
	for _, inst := range insts {
		fmt.Fprintf(b, "%s%s", indent, inst.Op)
		if inst.HasValue {
			fmt.Fprintf(b, " r%d <-", inst.Dst)
		}
		fmt.Fprintf(b, " src=%s", dumpOperand(inst.Src))
		if inst.Op.IsBinary() {
			fmt.Fprintf(b, " src2=%s", dumpOperand(inst.Src2))
		}
		if inst.FnName != "" {
			fmt.Fprintf(b, " fn=%s", inst.FnName)
		}
		if inst.StructName != "" {
			fmt.Fprintf(b, " struct=%s", inst.StructName)
		}
		if inst.Target != "" {
			fmt.Fprintf(b, " -> %s", inst.Target)
		}
		if inst.TrueTarget != "" || inst.FalseTarget != "" {
			fmt.Fprintf(b, " true=%s false=%s", inst.TrueTarget, inst.FalseTarget)
		}
		b.WriteString("\n")
	}
}

func dumpOperand(op ir.Operand) string {
	if op.Kind == ir.OpImmediate {
		if op.IsF {
			return strconv.FormatFloat(op.ImmF, 'g', -1, 64)
		}
		return strconv.FormatInt(op.Imm, 10)
	}
	return "r" + strconv.FormatUint(uint64(op.Reg), 10)
}

func printSummary(opts *options, res *pipeline.Result) {
	instrCount := len(res.Unit.GlobalInstructions)
	for _, fn := range res.Unit.Functions {
		for _, blk := range fn.Blocks {
			instrCount += len(blk.Instructions)
		}
	}
	fmt.Fprintf(os.Stderr, "quartc: %s functions, %s structs, %s globals, %s instructions -> %s\n",
		humanize.Comma(int64(len(res.Unit.Functions))),
		humanize.Comma(int64(len(res.Unit.Structs))),
		humanize.Comma(int64(len(res.Unit.Globals))),
		humanize.Comma(int64(instrCount)),
		outputDisplayPath(opts, res.Name))
}

func outputDisplayPath(opts *options, inputPath string) string {
	if opts.output != "" {
		return opts.output
	}
	return defaultOutputPath(opts, inputPath)
}

const usage = `usage: quartc <input> [-o <output>] [-O0|O1|O2|O3|Os|Oz] [--target <triple>]
               [--emit obj|asm|ir|exe|lib] [-L <path>] [-l <name>]
               [-I <path>] [-D <name>[=<value>]] [-v]`
