// Package mcpserver exposes LaTeX compilation, cleanup, and toolchain
// discovery as MCP tools over stdio JSON-RPC.
package mcpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/SepineTam/latex-mcp/internal/compiler"
	"github.com/SepineTam/latex-mcp/internal/config"
	"github.com/SepineTam/latex-mcp/internal/domain"
	"github.com/SepineTam/latex-mcp/internal/history"
	"github.com/SepineTam/latex-mcp/internal/project"
	"github.com/SepineTam/latex-mcp/internal/texcmd"
)

// Server implements the MCP protocol for LaTeX tools
type Server struct {
	orch  *compiler.Orchestrator
	cfg   *config.Config
	store *history.Store // optional; nil disables run history

	in  io.Reader
	out io.Writer
}

// Tool describes an available tool
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// NewServer creates a new MCP server on stdin/stdout
func NewServer(orch *compiler.Orchestrator, cfg *config.Config, store *history.Store) *Server {
	return &Server{
		orch:  orch,
		cfg:   cfg,
		store: store,
		in:    os.Stdin,
		out:   os.Stdout,
	}
}

// ListTools returns available tools
func (s *Server) ListTools() []Tool {
	return []Tool{
		{
			Name:        "latex_compile",
			Description: "Compile a TeX file to PDF using LaTeX",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"tex_file": map[string]interface{}{
						"type":        "string",
						"description": "Path to the main .tex file (relative to working_dir)",
						"default":     "main.tex",
					},
					"mode": map[string]interface{}{
						"type":        "string",
						"description": "Compilation mode: 'auto' uses latexmk, 'manual' drives the compiler directly",
						"enum":        []string{"auto", "manual"},
						"default":     "auto",
					},
					"compiler": map[string]interface{}{
						"type":        "string",
						"description": "LaTeX compiler to use",
						"enum":        []string{"pdflatex", "xelatex", "lualatex"},
						"default":     "pdflatex",
					},
					"working_dir": map[string]interface{}{
						"type":        "string",
						"description": "Working directory for compilation",
					},
					"bibliography": map[string]interface{}{
						"type":        "string",
						"description": "Path to .bib file (only used in manual mode)",
					},
					"compile_times": map[string]interface{}{
						"type":        "integer",
						"description": "Number of compilation passes, 1-5 (only used in manual mode)",
						"default":     2,
					},
					"options": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Additional compiler options",
					},
					"clean_after": map[string]interface{}{
						"type":        "boolean",
						"description": "Whether to clean auxiliary files after compilation",
					},
				},
			},
		},
		{
			Name:        "latex_list_compilers",
			Description: "List all available LaTeX compilers and auxiliary tools",
			InputSchema: map[string]interface{}{
				"type": "object",
			},
		},
		{
			Name:        "latex_clean",
			Description: "Clean auxiliary files generated during LaTeX compilation",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"working_dir": map[string]interface{}{
						"type":        "string",
						"description": "Working directory to clean",
					},
					"tex_file": map[string]interface{}{
						"type":        "string",
						"description": "Specific .tex file to clean auxiliary files for. If omitted, cleans all",
					},
				},
			},
		},
		{
			Name:        "latex_history",
			Description: "List recent compile and clean runs",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of runs to return",
						"default":     20,
					},
				},
			},
		},
	}
}

// CallTool executes a tool and returns the result as JSON text
func (s *Server) CallTool(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	switch name {
	case "latex_compile":
		return s.compile(ctx, args)
	case "latex_list_compilers":
		return s.listCompilers()
	case "latex_clean":
		return s.clean(args)
	case "latex_history":
		return s.recentRuns(args)
	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}

type compileResponse struct {
	Success  bool     `json:"success"`
	PDFPath  *string  `json:"pdf_path"`
	Log      string   `json:"log"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func invalidParameter(err error) (string, error) {
	msg := strings.TrimPrefix(err.Error(), domain.ErrInvalidParameter.Error()+": ")
	return marshalJSON(compileResponse{
		Success:  false,
		Errors:   []string{"Invalid parameter: " + msg},
		Warnings: []string{},
	})
}

func (s *Server) compile(ctx context.Context, args map[string]interface{}) (string, error) {
	req, err := s.buildCompileRequest(args)
	if err != nil {
		return invalidParameter(err)
	}

	start := time.Now()
	outcome := s.orch.Compile(ctx, req)
	s.recordCompile(req, outcome, time.Since(start))

	resp := compileResponse{
		Success:  outcome.Success,
		Log:      outcome.Log,
		Errors:   outcome.Errors,
		Warnings: outcome.Warnings,
	}
	if outcome.PDFPath != "" {
		resp.PDFPath = &outcome.PDFPath
	}
	if resp.Errors == nil {
		resp.Errors = []string{}
	}
	if resp.Warnings == nil {
		resp.Warnings = []string{}
	}
	return marshalJSON(resp)
}

// buildCompileRequest layers request parameters: explicit args win over the
// working directory's latexbuild.yaml, which wins over configured defaults.
func (s *Server) buildCompileRequest(args map[string]interface{}) (domain.CompileRequest, error) {
	if args == nil {
		args = make(map[string]interface{})
	}

	workingDir := s.cfg.General.WorkspaceDir
	if v, ok := args["working_dir"].(string); ok && v != "" {
		workingDir = v
	}

	// Project file defaults are best effort; a malformed file is ignored.
	proj, _ := project.Load(workingDir)
	if proj == nil {
		proj = &project.File{}
	}

	texFile := "main.tex"
	if proj.Main != "" {
		texFile = proj.Main
	}
	if v, ok := args["tex_file"].(string); ok && v != "" {
		texFile = v
	}

	modeStr := s.cfg.Compile.Mode
	if proj.Mode != "" {
		modeStr = proj.Mode
	}
	if v, ok := args["mode"].(string); ok && v != "" {
		modeStr = v
	}
	mode, err := domain.ParseCompileMode(modeStr)
	if err != nil {
		return domain.CompileRequest{}, err
	}

	compilerStr := s.cfg.Compile.Compiler
	if proj.Compiler != "" {
		compilerStr = proj.Compiler
	}
	if v, ok := args["compiler"].(string); ok && v != "" {
		compilerStr = v
	}
	kind, err := domain.ParseCompilerKind(compilerStr)
	if err != nil {
		return domain.CompileRequest{}, err
	}

	passes := s.cfg.Compile.Passes
	if proj.Passes != 0 {
		passes = proj.Passes
	}
	if v, ok := args["compile_times"].(float64); ok {
		passes = int(v)
	}

	bibliography := proj.Bibliography
	if v, ok := args["bibliography"].(string); ok {
		bibliography = v
	}

	options := proj.Options
	if v, ok := args["options"].([]interface{}); ok {
		options = make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				options = append(options, str)
			}
		}
	}

	cleanAfter := proj.CleanAfter
	if v, ok := args["clean_after"].(bool); ok {
		cleanAfter = v
	}

	req := domain.CompileRequest{
		TexFile:      texFile,
		Mode:         mode,
		Compiler:     kind,
		WorkingDir:   workingDir,
		Bibliography: bibliography,
		Passes:       passes,
		Options:      options,
		CleanAfter:   cleanAfter,
	}
	if err := req.Validate(); err != nil {
		return domain.CompileRequest{}, err
	}
	return req, nil
}

func (s *Server) listCompilers() (string, error) {
	r := s.orch.Resolver
	if r == nil {
		r = texcmd.Default
	}

	compilers := []string{}
	for _, kind := range r.AvailableCompilers() {
		compilers = append(compilers, string(kind))
	}
	auxTools := r.AvailableAuxTools()
	if auxTools == nil {
		auxTools = []string{}
	}

	return marshalJSON(map[string]interface{}{
		"compilers":         compilers,
		"aux_commands":      auxTools,
		"latexmk_available": r.LatexmkAvailable(),
	})
}

func (s *Server) clean(args map[string]interface{}) (string, error) {
	if args == nil {
		args = make(map[string]interface{})
	}

	req := domain.CleanRequest{WorkingDir: s.cfg.General.WorkspaceDir}
	if v, ok := args["working_dir"].(string); ok && v != "" {
		req.WorkingDir = v
	}
	if v, ok := args["tex_file"].(string); ok {
		req.TexFile = v
	}

	start := time.Now()
	outcome := s.orch.Clean(req)
	s.recordClean(req, outcome, time.Since(start))

	removed := outcome.RemovedFiles
	if removed == nil {
		removed = []string{}
	}
	return marshalJSON(map[string]interface{}{
		"success":       outcome.Success,
		"removed_files": removed,
		"message":       outcome.Message,
	})
}

type historyEntry struct {
	ID           string `json:"id"`
	Kind         string `json:"kind"`
	TexFile      string `json:"tex_file,omitempty"`
	WorkingDir   string `json:"working_dir"`
	Mode         string `json:"mode,omitempty"`
	Compiler     string `json:"compiler,omitempty"`
	Success      bool   `json:"success"`
	ErrorCount   int    `json:"error_count"`
	WarningCount int    `json:"warning_count"`
	RemovedCount int    `json:"removed_count"`
	DurationMs   int64  `json:"duration_ms"`
	StartedAt    string `json:"started_at"`
}

func (s *Server) recentRuns(args map[string]interface{}) (string, error) {
	if s.store == nil {
		return marshalJSON(map[string]interface{}{
			"runs":  []historyEntry{},
			"error": "run history is disabled",
		})
	}

	limit := 20
	if v, ok := args["limit"].(float64); ok && v > 0 {
		limit = int(v)
	}

	runs, err := s.store.Recent(limit)
	if err != nil {
		return "", fmt.Errorf("querying history: %w", err)
	}

	entries := make([]historyEntry, 0, len(runs))
	for _, run := range runs {
		entries = append(entries, historyEntry{
			ID:           run.ID,
			Kind:         run.Kind,
			TexFile:      run.TexFile,
			WorkingDir:   run.WorkingDir,
			Mode:         run.Mode,
			Compiler:     run.Compiler,
			Success:      run.Success,
			ErrorCount:   run.ErrorCount,
			WarningCount: run.WarningCount,
			RemovedCount: run.RemovedCount,
			DurationMs:   run.DurationMs,
			StartedAt:    run.StartedAt.Format(time.RFC3339),
		})
	}
	return marshalJSON(map[string]interface{}{"runs": entries})
}

// recordCompile persists a compile run. History is best effort and never
// affects the tool result.
func (s *Server) recordCompile(req domain.CompileRequest, outcome domain.CompileOutcome, d time.Duration) {
	if s.store == nil {
		return
	}
	_ = s.store.Record(&history.Run{
		Kind:         history.KindCompile,
		TexFile:      req.TexFile,
		WorkingDir:   req.WorkingDir,
		Mode:         string(req.Mode),
		Compiler:     string(req.Compiler),
		Success:      outcome.Success,
		ErrorCount:   len(outcome.Errors),
		WarningCount: len(outcome.Warnings),
		DurationMs:   d.Milliseconds(),
	})
}

func (s *Server) recordClean(req domain.CleanRequest, outcome domain.CleanOutcome, d time.Duration) {
	if s.store == nil {
		return
	}
	_ = s.store.Record(&history.Run{
		Kind:         history.KindClean,
		TexFile:      req.TexFile,
		WorkingDir:   req.WorkingDir,
		Success:      outcome.Success,
		RemovedCount: len(outcome.RemovedFiles),
		DurationMs:   d.Milliseconds(),
	})
}

func marshalJSON(v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Run starts the MCP server on stdin/stdout
func (s *Server) Run(ctx context.Context) error {
	reader := bufio.NewReader(s.in)

	for {
		line, err := reader.ReadBytes('\n')
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read error: %w", err)
		}

		var request map[string]interface{}
		if err := json.Unmarshal(line, &request); err != nil {
			continue
		}

		response := s.handleRequest(ctx, request)

		respBytes, _ := json.Marshal(response)
		fmt.Fprintln(s.out, string(respBytes))
	}
}

func (s *Server) handleRequest(ctx context.Context, req map[string]interface{}) map[string]interface{} {
	method, _ := req["method"].(string)
	id, _ := req["id"].(float64)

	switch method {
	case "initialize":
		return map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      id,
			"result": map[string]interface{}{
				"protocolVersion": "2024-11-05",
				"capabilities": map[string]interface{}{
					"tools": map[string]interface{}{},
				},
				"serverInfo": map[string]interface{}{
					"name":    "latex-mcp",
					"version": "1.0.0",
				},
			},
		}

	case "tools/list":
		return map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      id,
			"result": map[string]interface{}{
				"tools": s.ListTools(),
			},
		}

	case "tools/call":
		params, _ := req["params"].(map[string]interface{})
		name, _ := params["name"].(string)
		args, _ := params["arguments"].(map[string]interface{})

		result, err := s.CallTool(ctx, name, args)
		if err != nil {
			return map[string]interface{}{
				"jsonrpc": "2.0",
				"id":      id,
				"error": map[string]interface{}{
					"code":    -32000,
					"message": err.Error(),
				},
			}
		}

		return map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      id,
			"result": map[string]interface{}{
				"content": []map[string]interface{}{
					{"type": "text", "text": result},
				},
			},
		}

	default:
		return map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      id,
			"error": map[string]interface{}{
				"code":    -32601,
				"message": "method not found",
			},
		}
	}
}
