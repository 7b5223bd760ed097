// Package project loads per-directory build defaults from a latexbuild.yaml
// file in the working directory. Explicit request parameters always win over
// project values.
package project

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the project file looked up in the working directory.
const FileName = "latexbuild.yaml"

// File holds per-project compile defaults.
type File struct {
	Main         string   `yaml:"main"`
	Compiler     string   `yaml:"compiler"`
	Mode         string   `yaml:"mode"`
	Bibliography string   `yaml:"bibliography"`
	Passes       int      `yaml:"passes"`
	Options      []string `yaml:"options"`
	CleanAfter   bool     `yaml:"clean_after"`
}

// Load reads the project file from dir. A missing file is not an error;
// it returns (nil, nil).
func Load(dir string) (*File, error) {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FileName, err)
	}
	return &f, nil
}
