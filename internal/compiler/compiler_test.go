package compiler

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/SepineTam/latex-mcp/internal/domain"
	"github.com/SepineTam/latex-mcp/internal/texcmd"
)

// newTestOrchestrator installs shell stubs for the given tools on a private
// PATH and returns an orchestrator with a fresh resolver cache.
func newTestOrchestrator(t *testing.T, scripts map[string]string) *Orchestrator {
	t.Helper()
	bin := t.TempDir()
	for name, body := range scripts {
		path := filepath.Join(bin, name)
		if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	t.Setenv("PATH", bin)
	return &Orchestrator{Resolver: texcmd.NewResolver()}
}

func workspace(t *testing.T, texFile string) string {
	t.Helper()
	dir := t.TempDir()
	if texFile != "" {
		if err := os.WriteFile(filepath.Join(dir, texFile), []byte(`\documentclass{article}\begin{document}hi\end{document}`), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func autoRequest(dir string) domain.CompileRequest {
	return domain.CompileRequest{
		TexFile:    "main.tex",
		Mode:       domain.ModeAuto,
		Compiler:   domain.CompilerPDFLaTeX,
		WorkingDir: dir,
		Passes:     2,
	}
}

func TestCompile_MissingWorkingDir(t *testing.T) {
	o := newTestOrchestrator(t, nil)

	req := autoRequest(filepath.Join(t.TempDir(), "does-not-exist"))
	outcome := o.Compile(context.Background(), req)

	if outcome.Success {
		t.Fatal("expected failure")
	}
	if len(outcome.Errors) != 1 {
		t.Fatalf("errors = %v, want exactly one", outcome.Errors)
	}
	want := "Working directory does not exist: " + req.WorkingDir
	if outcome.Errors[0] != want {
		t.Errorf("error = %q, want %q", outcome.Errors[0], want)
	}
	if outcome.PDFPath != "" {
		t.Error("failed compile must not report a PDF path")
	}
}

func TestCompile_MissingTexFile(t *testing.T) {
	o := newTestOrchestrator(t, nil)

	outcome := o.Compile(context.Background(), autoRequest(workspace(t, "")))
	if outcome.Success {
		t.Fatal("expected failure")
	}
	if len(outcome.Errors) != 1 || outcome.Errors[0] != "TeX file does not exist: main.tex" {
		t.Errorf("errors = %v", outcome.Errors)
	}
}

func TestCompile_InvalidRequest(t *testing.T) {
	o := newTestOrchestrator(t, nil)

	req := autoRequest(workspace(t, "main.tex"))
	req.Passes = 9
	outcome := o.Compile(context.Background(), req)
	if outcome.Success || len(outcome.Errors) != 1 {
		t.Errorf("outcome = %+v, want single validation error", outcome)
	}
}

func TestCompile_AutoSuccess(t *testing.T) {
	o := newTestOrchestrator(t, map[string]string{
		"latexmk": "echo 'Latexmk: All targets are up-to-date'\nexit 0\n",
	})

	outcome := o.Compile(context.Background(), autoRequest(workspace(t, "main.tex")))
	if !outcome.Success {
		t.Fatalf("expected success, errors = %v", outcome.Errors)
	}
	if outcome.PDFPath != "main.pdf" {
		t.Errorf("pdf path = %q, want main.pdf", outcome.PDFPath)
	}
	if !strings.Contains(outcome.Log, "up-to-date") {
		t.Errorf("log = %q, missing tool output", outcome.Log)
	}
}

func TestCompile_AutoToolNotFound(t *testing.T) {
	// pdflatex is present but latexmk is not; automatic mode cannot run.
	o := newTestOrchestrator(t, map[string]string{"pdflatex": "exit 0\n"})

	outcome := o.Compile(context.Background(), autoRequest(workspace(t, "main.tex")))
	if outcome.Success {
		t.Fatal("expected failure")
	}
	if len(outcome.Errors) != 1 || !strings.Contains(outcome.Errors[0], "latexmk not found") {
		t.Errorf("errors = %v", outcome.Errors)
	}
}

func TestCompile_AutoFailureParsesLog(t *testing.T) {
	o := newTestOrchestrator(t, map[string]string{
		"latexmk": "echo '! Undefined control sequence.'\necho 'l.3 \\\\nope'\nexit 1\n",
	})

	outcome := o.Compile(context.Background(), autoRequest(workspace(t, "main.tex")))
	if outcome.Success {
		t.Fatal("expected failure")
	}
	if outcome.PDFPath != "" {
		t.Error("failed compile must not report a PDF path")
	}
	if len(outcome.Errors) != 2 {
		t.Errorf("errors = %v, want 2 parsed lines", outcome.Errors)
	}
}

func TestCompile_ManualStopsAtFirstFailingPass(t *testing.T) {
	o := newTestOrchestrator(t, map[string]string{
		"pdflatex": "echo run >> pdflatex-runs.txt\necho '! Emergency stop.'\nexit 1\n",
	})

	dir := workspace(t, "main.tex")
	req := autoRequest(dir)
	req.Mode = domain.ModeManual
	req.Passes = 2

	outcome := o.Compile(context.Background(), req)
	if outcome.Success {
		t.Fatal("expected failure")
	}
	if got := strings.Count(outcome.Log, "--- Pass 1 ---"); got != 1 {
		t.Errorf("log has %d 'Pass 1' sections, want 1", got)
	}
	if strings.Contains(outcome.Log, "--- Pass 2 ---") {
		t.Error("loop should stop before pass 2")
	}

	data, err := os.ReadFile(filepath.Join(dir, "pdflatex-runs.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if runs := strings.Count(string(data), "run"); runs != 1 {
		t.Errorf("pdflatex ran %d times, want 1", runs)
	}
}

func TestCompile_ManualRunsAllPasses(t *testing.T) {
	o := newTestOrchestrator(t, map[string]string{
		"pdflatex": "echo run >> pdflatex-runs.txt\nexit 0\n",
	})

	dir := workspace(t, "main.tex")
	req := autoRequest(dir)
	req.Mode = domain.ModeManual
	req.Passes = 3

	outcome := o.Compile(context.Background(), req)
	if !outcome.Success {
		t.Fatalf("expected success, errors = %v", outcome.Errors)
	}
	if outcome.PDFPath != "main.pdf" {
		t.Errorf("pdf path = %q", outcome.PDFPath)
	}

	data, err := os.ReadFile(filepath.Join(dir, "pdflatex-runs.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if runs := strings.Count(string(data), "run"); runs != 3 {
		t.Errorf("pdflatex ran %d times, want 3", runs)
	}
	for _, label := range []string{"--- Pass 1 ---", "--- Pass 2 ---", "--- Pass 3 ---"} {
		if !strings.Contains(outcome.Log, label) {
			t.Errorf("log missing %q", label)
		}
	}
}

func TestCompile_ManualDeduplicatesAcrossPasses(t *testing.T) {
	o := newTestOrchestrator(t, map[string]string{
		"pdflatex": "echo 'LaTeX Warning: There were undefined references.'\nexit 0\n",
	})

	req := autoRequest(workspace(t, "main.tex"))
	req.Mode = domain.ModeManual
	req.Passes = 2

	outcome := o.Compile(context.Background(), req)
	if !outcome.Success {
		t.Fatalf("expected success, errors = %v", outcome.Errors)
	}
	if len(outcome.Warnings) != 1 {
		t.Errorf("warnings = %v, want the duplicate collapsed to one", outcome.Warnings)
	}
}

func TestCompile_ManualBibtexRunsOnceOnFirstPass(t *testing.T) {
	o := newTestOrchestrator(t, map[string]string{
		"pdflatex": "exit 0\n",
		"bibtex":   "echo run >> bibtex-runs.txt\nexit 0\n",
	})

	dir := workspace(t, "main.tex")
	req := autoRequest(dir)
	req.Mode = domain.ModeManual
	req.Passes = 3
	req.Bibliography = "refs.bib"

	outcome := o.Compile(context.Background(), req)
	if !outcome.Success {
		t.Fatalf("expected success, errors = %v", outcome.Errors)
	}

	data, err := os.ReadFile(filepath.Join(dir, "bibtex-runs.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if runs := strings.Count(string(data), "run"); runs != 1 {
		t.Errorf("bibtex ran %d times, want 1", runs)
	}
}

func TestCompile_ManualBibtexFailureIsSwallowed(t *testing.T) {
	o := newTestOrchestrator(t, map[string]string{
		"pdflatex": "exit 0\n",
		"bibtex":   "exit 2\n",
	})

	req := autoRequest(workspace(t, "main.tex"))
	req.Mode = domain.ModeManual
	req.Passes = 1
	req.Bibliography = "refs.bib"

	outcome := o.Compile(context.Background(), req)
	if !outcome.Success {
		t.Errorf("bibtex failure must not fail the compile: %v", outcome.Errors)
	}
}

func TestCompile_ManualBibtexMissingIsSwallowed(t *testing.T) {
	o := newTestOrchestrator(t, map[string]string{"pdflatex": "exit 0\n"})

	req := autoRequest(workspace(t, "main.tex"))
	req.Mode = domain.ModeManual
	req.Passes = 1
	req.Bibliography = "refs.bib"

	outcome := o.Compile(context.Background(), req)
	if !outcome.Success {
		t.Errorf("missing bibtex must not fail the compile: %v", outcome.Errors)
	}
}

func TestCompile_CleanAfterRemovesAuxFiles(t *testing.T) {
	o := newTestOrchestrator(t, map[string]string{
		"pdflatex": "touch main.aux main.log\nexit 0\n",
	})

	dir := workspace(t, "main.tex")
	req := autoRequest(dir)
	req.Mode = domain.ModeManual
	req.Passes = 1
	req.CleanAfter = true

	outcome := o.Compile(context.Background(), req)
	if !outcome.Success {
		t.Fatalf("expected success, errors = %v", outcome.Errors)
	}
	if _, err := os.Stat(filepath.Join(dir, "main.aux")); !os.IsNotExist(err) {
		t.Error("main.aux should have been cleaned")
	}
	if _, err := os.Stat(filepath.Join(dir, "main.tex")); err != nil {
		t.Error("main.tex must survive clean-after")
	}
}

func TestClean_Outcome(t *testing.T) {
	o := newTestOrchestrator(t, nil)

	dir := t.TempDir()
	for _, name := range []string{"a.aux", "b.log"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	outcome := o.Clean(domain.CleanRequest{WorkingDir: dir})
	if !outcome.Success {
		t.Fatalf("clean failed: %s", outcome.Message)
	}
	if len(outcome.RemovedFiles) != 2 {
		t.Errorf("removed = %v, want 2 entries", outcome.RemovedFiles)
	}
	if outcome.Message != "Removed 2 auxiliary file(s)" {
		t.Errorf("message = %q", outcome.Message)
	}
}

func TestClean_MissingWorkingDir(t *testing.T) {
	o := newTestOrchestrator(t, nil)

	dir := filepath.Join(t.TempDir(), "gone")
	outcome := o.Clean(domain.CleanRequest{WorkingDir: dir})
	if outcome.Success {
		t.Fatal("expected failure")
	}
	if outcome.Message != "Working directory does not exist: "+dir {
		t.Errorf("message = %q", outcome.Message)
	}
}
