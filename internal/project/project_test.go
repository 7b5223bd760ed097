package project

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFile(t *testing.T) {
	f, err := Load(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if f != nil {
		t.Errorf("got %+v, want nil for missing project file", f)
	}
}

func TestLoad_ProjectFile(t *testing.T) {
	dir := t.TempDir()
	content := `
main: thesis.tex
compiler: xelatex
mode: manual
bibliography: refs.bib
passes: 3
options:
  - -shell-escape
clean_after: true
`
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if f.Main != "thesis.tex" {
		t.Errorf("Main = %q", f.Main)
	}
	if f.Compiler != "xelatex" {
		t.Errorf("Compiler = %q", f.Compiler)
	}
	if f.Mode != "manual" {
		t.Errorf("Mode = %q", f.Mode)
	}
	if f.Bibliography != "refs.bib" {
		t.Errorf("Bibliography = %q", f.Bibliography)
	}
	if f.Passes != 3 {
		t.Errorf("Passes = %d", f.Passes)
	}
	if len(f.Options) != 1 || f.Options[0] != "-shell-escape" {
		t.Errorf("Options = %v", f.Options)
	}
	if !f.CleanAfter {
		t.Error("CleanAfter should be true")
	}
}

func TestLoad_BadYAML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("main: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Error("expected parse error")
	}
}
