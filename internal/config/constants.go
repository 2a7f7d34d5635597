// Package config holds build-time constants and project-level overrides
// for the Quart compiler.
package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Version is the current compiler version.
var Version = "0.1.0"

// SourceFileExt is the canonical extension for Quart source files.
const SourceFileExt = ".qt"

// SourceFileExtensions are all recognized source file extensions.
var SourceFileExtensions = []string{".qt", ".quart"}

// ModuleRootFileName is the directory-module file name (`a/b/c/module.qt`
// for `import a::b::c`). No import resolution in this module reads it.
const ModuleRootFileName = "module"

// IsTestMode marks a run under the test harness. Nothing in this module
// reads it; build IDs and other output are not normalized by it.
var IsTestMode = false

// IsVerbose controls -v diagnostic/stat output in the CLI.
var IsVerbose = false

// TrimSourceExt removes any recognized source extension from a filename.
func TrimSourceExt(name string) string {
	for _, ext := range SourceFileExtensions {
		if len(name) >= len(ext) && name[len(name)-len(ext):] == ext {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}

// HasSourceExt returns true if path ends with any recognized source extension.
func HasSourceExt(path string) bool {
	for _, ext := range SourceFileExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// ConstEvalIterationCap bounds ConstantEvaluator's `while` loops (§4.5).
const ConstEvalIterationCap = 1_000_000

// Project is the optional `quartc.yaml` project file: per-project overrides
// layered on top of CLI flags.
type Project struct {
	ImportRoots []string `yaml:"import_roots"`
	Optimize    string   `yaml:"optimize"`
	Target      string   `yaml:"target"`
}

// LoadProject reads a `quartc.yaml` project file. A missing file yields a
// zero-value Project and no error: the file is optional.
func LoadProject(path string) (Project, error) {
	var p Project
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return p, err
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, err
	}
	return p, nil
}
