// Package domain defines the value types shared across the LaTeX toolchain
// orchestration: compile and clean requests, their outcomes, and the closed
// enumerations for compiler engines and compilation modes.
package domain

import (
	"fmt"
	"path/filepath"
	"strings"
)

// CompilerKind identifies which TeX engine binary to invoke.
type CompilerKind string

const (
	CompilerPDFLaTeX CompilerKind = "pdflatex"
	CompilerXeLaTeX  CompilerKind = "xelatex"
	CompilerLuaLaTeX CompilerKind = "lualatex"
)

// CompilerKinds lists all supported engines in canonical order.
var CompilerKinds = []CompilerKind{CompilerPDFLaTeX, CompilerXeLaTeX, CompilerLuaLaTeX}

// ParseCompilerKind converts a string to a CompilerKind.
func ParseCompilerKind(s string) (CompilerKind, error) {
	switch CompilerKind(s) {
	case CompilerPDFLaTeX, CompilerXeLaTeX, CompilerLuaLaTeX:
		return CompilerKind(s), nil
	}
	return "", fmt.Errorf("%w: unknown compiler %q", ErrInvalidParameter, s)
}

// CompileMode selects the compilation strategy.
type CompileMode string

const (
	// ModeAuto delegates multi-pass orchestration to latexmk.
	ModeAuto CompileMode = "auto"
	// ModeManual drives a fixed-count pass loop directly.
	ModeManual CompileMode = "manual"
)

// ParseCompileMode converts a string to a CompileMode.
func ParseCompileMode(s string) (CompileMode, error) {
	switch CompileMode(s) {
	case ModeAuto, ModeManual:
		return CompileMode(s), nil
	}
	return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidParameter, s)
}

// Pass count bounds for manual mode.
const (
	MinPasses = 1
	MaxPasses = 5
)

// CompileRequest describes one compilation run. TexFile and Bibliography are
// relative to WorkingDir. Bibliography and Passes only apply in manual mode.
type CompileRequest struct {
	TexFile      string
	Mode         CompileMode
	Compiler     CompilerKind
	WorkingDir   string
	Bibliography string
	Passes       int
	Options      []string
	CleanAfter   bool
}

// Validate checks the request invariants before any process is spawned.
func (r *CompileRequest) Validate() error {
	if strings.TrimSpace(r.TexFile) == "" {
		return fmt.Errorf("%w: tex_file must not be empty", ErrInvalidParameter)
	}
	if _, err := ParseCompileMode(string(r.Mode)); err != nil {
		return err
	}
	if _, err := ParseCompilerKind(string(r.Compiler)); err != nil {
		return err
	}
	if r.Passes < MinPasses || r.Passes > MaxPasses {
		return fmt.Errorf("%w: passes must be between %d and %d, got %d",
			ErrInvalidParameter, MinPasses, MaxPasses, r.Passes)
	}
	return nil
}

// CompileOutcome is the result of one compilation run. PDFPath is set iff
// Success is true, and is relative to the request's working directory.
type CompileOutcome struct {
	Success  bool
	PDFPath  string
	Log      string
	Errors   []string
	Warnings []string
}

// CleanRequest asks for auxiliary files to be removed. An empty TexFile
// cleans the whole working directory.
type CleanRequest struct {
	WorkingDir string
	TexFile    string
}

// CleanOutcome reports which auxiliary files were removed.
type CleanOutcome struct {
	Success      bool
	RemovedFiles []string
	Message      string
}

// Stem returns the file name without its directory or final extension,
// e.g. "chapters/main.tex" -> "main".
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
