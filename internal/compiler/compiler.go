// Package compiler orchestrates LaTeX compilation: it validates requests,
// picks between automatic (latexmk) and manual multi-pass strategies, runs
// the external toolchain, and assembles structured outcomes from the raw
// compiler logs.
package compiler

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/SepineTam/latex-mcp/internal/cleaner"
	"github.com/SepineTam/latex-mcp/internal/domain"
	"github.com/SepineTam/latex-mcp/internal/logparse"
	"github.com/SepineTam/latex-mcp/internal/texcmd"
)

// Orchestrator drives external LaTeX toolchain processes. The zero value is
// usable and runs against the process-wide resolver with no timeout.
type Orchestrator struct {
	Resolver *texcmd.Resolver
	Timeout  time.Duration // per-process deadline, 0 disables it
	Debug    bool
}

// New returns an Orchestrator backed by the process-wide resolver.
func New() *Orchestrator {
	return &Orchestrator{Resolver: texcmd.Default}
}

func (o *Orchestrator) resolver() *texcmd.Resolver {
	if o.Resolver != nil {
		return o.Resolver
	}
	return texcmd.Default
}

func failure(msgs ...string) domain.CompileOutcome {
	return domain.CompileOutcome{Success: false, Errors: msgs}
}

// Compile runs one compilation according to the request. Failures that occur
// before a process is spawned (bad request, missing paths, unresolved tools)
// come back as unsuccessful outcomes with a single error message.
func (o *Orchestrator) Compile(ctx context.Context, req domain.CompileRequest) domain.CompileOutcome {
	if err := req.Validate(); err != nil {
		return failure(err.Error())
	}

	if _, err := os.Stat(req.WorkingDir); err != nil {
		return failure(fmt.Sprintf("Working directory does not exist: %s", req.WorkingDir))
	}
	if _, err := os.Stat(filepath.Join(req.WorkingDir, req.TexFile)); err != nil {
		return failure(fmt.Sprintf("TeX file does not exist: %s", req.TexFile))
	}

	if req.Mode == domain.ModeAuto {
		return o.compileAuto(ctx, req)
	}
	return o.compileManual(ctx, req)
}

// compileAuto delegates multi-pass orchestration to latexmk in a single run.
func (o *Orchestrator) compileAuto(ctx context.Context, req domain.CompileRequest) domain.CompileOutcome {
	argv, err := o.resolver().BuildAutomationCommand(req.Compiler, req.TexFile, req.Options)
	if err != nil {
		return failure(err.Error())
	}

	res, err := o.runCommand(ctx, argv, req.WorkingDir)
	if err != nil {
		return failure(err.Error())
	}

	errs, warnings := logparse.Parse(res.stdout)
	outcome := domain.CompileOutcome{
		Success:  res.exitCode == 0,
		Log:      res.stdout,
		Errors:   dedupe(errs),
		Warnings: dedupe(warnings),
	}
	o.finish(&outcome, req)
	return outcome
}

// compileManual drives an explicit pass loop with an optional bibtex step
// after the first pass. The loop stops early at the first failing pass.
func (o *Orchestrator) compileManual(ctx context.Context, req domain.CompileRequest) domain.CompileOutcome {
	argv, err := o.resolver().BuildDirectCommand(req.Compiler, req.TexFile, req.Options)
	if err != nil {
		return failure(err.Error())
	}

	var (
		passLogs []string
		allErrs  []string
		allWarns []string
		exitCode int
	)

	for pass := 1; pass <= req.Passes; pass++ {
		res, err := o.runCommand(ctx, argv, req.WorkingDir)
		if err != nil {
			return failure(err.Error())
		}
		exitCode = res.exitCode

		passLogs = append(passLogs, fmt.Sprintf("--- Pass %d ---\n%s", pass, res.stdout))

		errs, warnings := logparse.Parse(res.stdout)
		allErrs = append(allErrs, errs...)
		allWarns = append(allWarns, warnings...)

		if pass == 1 && req.Bibliography != "" {
			// Best effort: a missing bibtex binary or a failed bibtex run
			// never aborts the pass loop.
			if err := o.runBibtex(ctx, req); err != nil && o.Debug {
				log.Printf("[compiler] bibtex skipped: %v", err)
			}
		}

		if exitCode != 0 {
			break
		}
	}

	outcome := domain.CompileOutcome{
		Success:  exitCode == 0,
		Log:      strings.Join(passLogs, "\n"),
		Errors:   dedupe(allErrs),
		Warnings: dedupe(allWarns),
	}
	o.finish(&outcome, req)
	return outcome
}

// finish derives the PDF path on success and applies clean-after.
func (o *Orchestrator) finish(outcome *domain.CompileOutcome, req domain.CompileRequest) {
	if !outcome.Success {
		return
	}
	outcome.PDFPath = domain.Stem(req.TexFile) + ".pdf"
	if req.CleanAfter {
		cleaner.Clean(req.WorkingDir, req.TexFile)
	}
}

// runBibtex processes the bibliography for the source file's aux stem.
func (o *Orchestrator) runBibtex(ctx context.Context, req domain.CompileRequest) error {
	argv, err := o.resolver().BuildBibtexCommand(domain.Stem(req.TexFile))
	if err != nil {
		return err
	}
	res, err := o.runCommand(ctx, argv, req.WorkingDir)
	if err != nil {
		return err
	}
	if res.exitCode != 0 {
		return fmt.Errorf("bibtex exited with code %d", res.exitCode)
	}
	return nil
}

// Clean removes auxiliary files from the request's working directory.
func (o *Orchestrator) Clean(req domain.CleanRequest) domain.CleanOutcome {
	if _, err := os.Stat(req.WorkingDir); err != nil {
		return domain.CleanOutcome{
			Success: false,
			Message: fmt.Sprintf("Working directory does not exist: %s", req.WorkingDir),
		}
	}

	removed := cleaner.Clean(req.WorkingDir, req.TexFile)
	return domain.CleanOutcome{
		Success:      true,
		RemovedFiles: removed,
		Message:      fmt.Sprintf("Removed %d auxiliary file(s)", len(removed)),
	}
}

// dedupe removes duplicate entries, keeping the first occurrence so
// diagnostics stay in log order.
func dedupe(items []string) []string {
	if len(items) == 0 {
		return items
	}
	seen := make(map[string]struct{}, len(items))
	out := items[:0:0]
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
