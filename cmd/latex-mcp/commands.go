package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/SepineTam/latex-mcp/internal/compiler"
	"github.com/SepineTam/latex-mcp/internal/config"
	"github.com/SepineTam/latex-mcp/internal/domain"
	"github.com/SepineTam/latex-mcp/internal/history"
	"github.com/SepineTam/latex-mcp/internal/mcpserver"
	"github.com/SepineTam/latex-mcp/internal/texcmd"
	"github.com/SepineTam/latex-mcp/internal/watcher"
	"github.com/spf13/cobra"
)

var (
	compileFile     string
	compileDir      string
	compileMode     string
	compileCompiler string
	compilePasses   int
	compileBib      string
	compileOptions  []string
	compileClean    bool

	cleanDir     string
	cleanFile    string
	cleanLatexmk bool

	watchDir  string
	watchFile string

	historyLimit int
)

func init() {
	// serve command
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server on stdin/stdout",
		RunE:  runServe,
	}
	rootCmd.AddCommand(serveCmd)

	// compile command
	compileCmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile a TeX file to PDF",
		RunE:  runCompile,
	}
	compileCmd.Flags().StringVar(&compileFile, "file", "main.tex", "main .tex file")
	compileCmd.Flags().StringVar(&compileDir, "dir", "", "working directory (defaults to configured workspace)")
	compileCmd.Flags().StringVar(&compileMode, "mode", "", "compilation mode: auto or manual")
	compileCmd.Flags().StringVar(&compileCompiler, "compiler", "", "pdflatex, xelatex, or lualatex")
	compileCmd.Flags().IntVar(&compilePasses, "passes", 0, "number of passes in manual mode")
	compileCmd.Flags().StringVar(&compileBib, "bib", "", "bibliography file for manual mode")
	compileCmd.Flags().StringArrayVar(&compileOptions, "option", nil, "extra compiler option (repeatable)")
	compileCmd.Flags().BoolVar(&compileClean, "clean", false, "remove auxiliary files after a successful compile")
	rootCmd.AddCommand(compileCmd)

	// clean command
	cleanCmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove auxiliary files from a working directory",
		RunE:  runClean,
	}
	cleanCmd.Flags().StringVar(&cleanDir, "dir", "", "working directory (defaults to configured workspace)")
	cleanCmd.Flags().StringVar(&cleanFile, "file", "", "limit cleanup to files belonging to this .tex file")
	cleanCmd.Flags().BoolVar(&cleanLatexmk, "latexmk", false, "delegate cleanup to latexmk -c instead")
	rootCmd.AddCommand(cleanCmd)

	// compilers command
	compilersCmd := &cobra.Command{
		Use:   "compilers",
		Short: "List available LaTeX compilers and auxiliary tools",
		RunE:  runCompilers,
	}
	rootCmd.AddCommand(compilersCmd)

	// watch command
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Recompile whenever LaTeX sources change",
		RunE:  runWatch,
	}
	watchCmd.Flags().StringVar(&watchDir, "dir", "", "working directory (defaults to configured workspace)")
	watchCmd.Flags().StringVar(&watchFile, "file", "main.tex", "main .tex file")
	rootCmd.AddCommand(watchCmd)

	// history command
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent compile and clean runs",
		RunE:  runHistory,
	}
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of runs to show")
	rootCmd.AddCommand(historyCmd)
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	return config.Load(path)
}

func newOrchestrator(cfg *config.Config) *compiler.Orchestrator {
	o := compiler.New()
	o.Timeout = time.Duration(cfg.Compile.TimeoutSecs) * time.Second
	o.Debug = cfg.General.Debug
	return o
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// History is optional; the server runs without it.
	store, err := history.New(cfg.General.DatabasePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "history disabled: %v\n", err)
		store = nil
	} else {
		defer store.Close()
	}

	server := mcpserver.NewServer(newOrchestrator(cfg), cfg, store)
	return server.Run(cmd.Context())
}

func runCompile(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	req := domain.CompileRequest{
		TexFile:      compileFile,
		WorkingDir:   cfg.General.WorkspaceDir,
		Bibliography: compileBib,
		Passes:       cfg.Compile.Passes,
		Options:      compileOptions,
		CleanAfter:   compileClean,
	}
	if compileDir != "" {
		req.WorkingDir = compileDir
	}
	if compilePasses != 0 {
		req.Passes = compilePasses
	}

	modeStr := cfg.Compile.Mode
	if compileMode != "" {
		modeStr = compileMode
	}
	if req.Mode, err = domain.ParseCompileMode(modeStr); err != nil {
		return err
	}

	compilerStr := cfg.Compile.Compiler
	if compileCompiler != "" {
		compilerStr = compileCompiler
	}
	if req.Compiler, err = domain.ParseCompilerKind(compilerStr); err != nil {
		return err
	}

	orch := newOrchestrator(cfg)
	start := time.Now()
	outcome := orch.Compile(cmd.Context(), req)
	recordRun(cfg, &history.Run{
		Kind:         history.KindCompile,
		TexFile:      req.TexFile,
		WorkingDir:   req.WorkingDir,
		Mode:         string(req.Mode),
		Compiler:     string(req.Compiler),
		Success:      outcome.Success,
		ErrorCount:   len(outcome.Errors),
		WarningCount: len(outcome.Warnings),
		DurationMs:   time.Since(start).Milliseconds(),
	})

	for _, w := range outcome.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	for _, e := range outcome.Errors {
		fmt.Fprintf(os.Stderr, "error: %s\n", e)
	}

	if !outcome.Success {
		return fmt.Errorf("compilation failed with %d error(s)", len(outcome.Errors))
	}
	fmt.Printf("OK: %s\n", outcome.PDFPath)
	return nil
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dir := cfg.General.WorkspaceDir
	if cleanDir != "" {
		dir = cleanDir
	}

	if cleanLatexmk {
		return runLatexmkClean(cmd.Context(), dir)
	}

	outcome := newOrchestrator(cfg).Clean(domain.CleanRequest{
		WorkingDir: dir,
		TexFile:    cleanFile,
	})
	recordRun(cfg, &history.Run{
		Kind:         history.KindClean,
		TexFile:      cleanFile,
		WorkingDir:   dir,
		Success:      outcome.Success,
		RemovedCount: len(outcome.RemovedFiles),
	})

	if !outcome.Success {
		return fmt.Errorf("%s", outcome.Message)
	}
	for _, f := range outcome.RemovedFiles {
		fmt.Printf("removed %s\n", f)
	}
	fmt.Println(outcome.Message)
	return nil
}

// runLatexmkClean delegates cleanup to latexmk -c, which consults its own
// dependency records instead of matching extensions.
func runLatexmkClean(ctx context.Context, dir string) error {
	argv, err := texcmd.Default.BuildCleanCommand(cleanFile)
	if err != nil {
		return err
	}

	c := exec.CommandContext(ctx, argv[0], argv[1:]...)
	c.Dir = dir
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	return c.Run()
}

func runCompilers(cmd *cobra.Command, args []string) error {
	r := texcmd.Default

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TOOL\tKIND\tSTATUS")
	for _, kind := range domain.CompilerKinds {
		status := "not found"
		if _, ok := r.ResolveCompiler(kind); ok {
			status = "available"
		}
		fmt.Fprintf(w, "%s\tcompiler\t%s\n", kind, status)
	}
	for _, name := range texcmd.AuxToolNames {
		status := "not found"
		if _, ok := r.ResolveAuxTool(name); ok {
			status = "available"
		}
		fmt.Fprintf(w, "%s\tauxiliary\t%s\n", name, status)
	}
	return w.Flush()
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dir := cfg.General.WorkspaceDir
	if watchDir != "" {
		dir = watchDir
	}

	mode, err := domain.ParseCompileMode(cfg.Compile.Mode)
	if err != nil {
		return err
	}
	kind, err := domain.ParseCompilerKind(cfg.Compile.Compiler)
	if err != nil {
		return err
	}
	req := domain.CompileRequest{
		TexFile:    watchFile,
		Mode:       mode,
		Compiler:   kind,
		WorkingDir: dir,
		Passes:     cfg.Compile.Passes,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	orch := newOrchestrator(cfg)
	rebuild := func(changed []string) {
		fmt.Printf("change detected (%d file(s)), recompiling...\n", len(changed))
		outcome := orch.Compile(ctx, req)
		if outcome.Success {
			fmt.Printf("OK: %s\n", outcome.PDFPath)
			return
		}
		for _, e := range outcome.Errors {
			fmt.Fprintf(os.Stderr, "error: %s\n", e)
		}
	}

	w, err := watcher.New(dir, time.Duration(cfg.Watch.DebounceMs)*time.Millisecond, rebuild)
	if err != nil {
		return err
	}
	defer w.Stop()
	w.Start(ctx)

	fmt.Printf("watching %s (ctrl-c to stop)\n", dir)
	rebuild(nil)

	<-ctx.Done()
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := history.New(cfg.General.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Recent(historyLimit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tKIND\tFILE\tRESULT\tERRORS\tWARNINGS\tDURATION")
	for _, run := range runs {
		result := "failed"
		if run.Success {
			result = "ok"
		}
		file := run.TexFile
		if file == "" {
			file = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%dms\n",
			run.StartedAt.Format("2006-01-02 15:04:05"), run.Kind, file,
			result, run.ErrorCount, run.WarningCount, run.DurationMs)
	}
	return w.Flush()
}

// recordRun persists a run if the history database can be opened.
func recordRun(cfg *config.Config, run *history.Run) {
	store, err := history.New(cfg.General.DatabasePath)
	if err != nil {
		return
	}
	defer store.Close()
	_ = store.Record(run)
}
