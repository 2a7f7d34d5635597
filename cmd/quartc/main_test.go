package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blanketsucks/language-sub000/internal/pipeline"
)

func TestParseArgsDefaults(t *testing.T) {
	opts, err := parseArgs([]string{"main.qt"})
	require.NoError(t, err)
	assert.Equal(t, []string{"main.qt"}, opts.inputs)
	assert.Equal(t, "exe", opts.emit)
	assert.Empty(t, opts.output)
}

func TestParseArgsFullSurface(t *testing.T) {
	opts, err := parseArgs([]string{
		"main.qt", "-o", "out.bin", "-O2", "--target", "x86_64-unknown-linux-gnu",
		"--emit", "ir", "-Llibdir", "-lm", "-Iinclude", "-DFOO=1", "-v",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"main.qt"}, opts.inputs)
	assert.Equal(t, "out.bin", opts.output)
	assert.Equal(t, "-O2", opts.optLevel)
	assert.Equal(t, "x86_64-unknown-linux-gnu", opts.target)
	assert.Equal(t, "ir", opts.emit)
	assert.Equal(t, []string{"libdir"}, opts.libPaths)
	assert.Equal(t, []string{"m"}, opts.libs)
	assert.Equal(t, []string{"include"}, opts.includePaths)
	assert.Equal(t, "1", opts.defines["FOO"])
	assert.True(t, opts.verbose)
}

func TestParseArgsRejectsUnknownEmitKind(t *testing.T) {
	_, err := parseArgs([]string{"main.qt", "--emit", "bogus"})
	assert.Error(t, err)
}

func TestParseArgsRequiresInput(t *testing.T) {
	_, err := parseArgs([]string{"-v"})
	assert.Error(t, err)
}

func TestParseArgsAcceptsMultipleInputs(t *testing.T) {
	opts, err := parseArgs([]string{"a.qt", "b.qt", "c.qt"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.qt", "b.qt", "c.qt"}, opts.inputs)
}

func TestParseArgsRejectsOutputWithMultipleInputs(t *testing.T) {
	_, err := parseArgs([]string{"a.qt", "b.qt", "-o", "out.bin"})
	assert.Error(t, err)
}

func TestDefaultOutputPathByEmitKind(t *testing.T) {
	opts := &options{emit: "ir"}
	assert.Equal(t, "prog.ir", defaultOutputPath(opts, "prog.qt"))
	opts.emit = "obj"
	assert.Equal(t, "prog.o", defaultOutputPath(opts, "prog.qt"))
	opts.emit = "exe"
	assert.Equal(t, "prog", defaultOutputPath(opts, "prog.qt"))
}

func TestDumpIRContainsFunctionAndBlock(t *testing.T) {
	res, err := pipeline.RunOne(pipeline.Input{Name: "t.qt", Source: `
		func add(x: i32, y: i32) -> i32 { return x + y; }
	`})
	require.NoError(t, err)

	text := dumpIR(res.Unit)
	assert.Contains(t, text, "func add(")
	assert.Contains(t, text, "Return")
}

func TestReportFormatsCollectedDiagnostics(t *testing.T) {
	res, err := pipeline.RunOne(pipeline.Input{Name: "bad.qt", Source: `func f() -> i32 { return; }`})
	require.Error(t, err)

	code := report(res, err)
	assert.Equal(t, 1, code)
}

func TestReportHandlesParseErrorWithNoCollectedDiags(t *testing.T) {
	res, err := pipeline.RunOne(pipeline.Input{Name: "bad.qt", Source: `func ( {`})
	require.Error(t, err)
	require.NotNil(t, res)
	require.NotNil(t, res.State)

	code := report(res, err)
	assert.Equal(t, 1, code)
}

func TestDumpOperandFormatsImmediateAndRegister(t *testing.T) {
	res, err := pipeline.RunOne(pipeline.Input{Name: "t.qt", Source: `
		func one() -> i32 { return 1; }
	`})
	require.NoError(t, err)
	text := dumpIR(res.Unit)
	assert.True(t, strings.Contains(text, "r") || strings.Contains(text, "1"))
}
