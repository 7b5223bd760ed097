package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	rootCmd    = &cobra.Command{
		Use:   "latex-mcp",
		Short: "LaTeX MCP - LaTeX compilation server for AI agents",
		Long: `LaTeX MCP exposes the LaTeX toolchain over the Model Context Protocol.
It compiles TeX sources with pdflatex, xelatex, or lualatex (directly or
through latexmk), parses compiler logs into structured diagnostics, and
cleans up auxiliary build files.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
