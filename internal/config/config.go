// Package config loads application configuration from a TOML file.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration
type Config struct {
	General GeneralConfig `toml:"general"`
	Compile CompileConfig `toml:"compile"`
	Watch   WatchConfig   `toml:"watch"`
}

// GeneralConfig holds general settings
type GeneralConfig struct {
	WorkspaceDir string `toml:"workspace_dir"`
	DatabasePath string `toml:"database_path"`
	Debug        bool   `toml:"debug"`
}

// CompileConfig holds compilation defaults
type CompileConfig struct {
	Compiler    string `toml:"compiler"`
	Mode        string `toml:"mode"`
	Passes      int    `toml:"passes"`
	TimeoutSecs int    `toml:"timeout_secs"` // 0 disables the per-process deadline
}

// WatchConfig holds watch-mode settings
type WatchConfig struct {
	DebounceMs int `toml:"debounce_ms"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		General: GeneralConfig{
			WorkspaceDir: "/workspace",
			DatabasePath: filepath.Join(home, ".latex-mcp", "history.db"),
		},
		Compile: CompileConfig{
			Compiler:    "pdflatex",
			Mode:        "auto",
			Passes:      2,
			TimeoutSecs: 0,
		},
		Watch: WatchConfig{
			DebounceMs: 500,
		},
	}
}

// Load reads configuration from a TOML file, falling back to defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// Expand paths
	cfg.General.WorkspaceDir = ExpandPath(cfg.General.WorkspaceDir)
	cfg.General.DatabasePath = ExpandPath(cfg.General.DatabasePath)

	return cfg, nil
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultConfigPath returns the default config file location
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "latex-mcp", "config.toml")
}
