// Package cleaner removes auxiliary build artifacts left behind by the LaTeX
// toolchain. Removal is best effort: per-file failures are swallowed and only
// successfully removed paths are reported.
package cleaner

import (
	"os"
	"path/filepath"
)

// AuxExtensions is the fixed set of auxiliary file extensions considered
// build byproducts.
var AuxExtensions = []string{
	".aux", ".log", ".out", ".toc", ".lof", ".lot",
	".fls", ".fdb_latexmk", ".bbl", ".blg", ".nav",
	".snm", ".vrb", ".dvi", ".ps", ".idx", ".ilg",
	".ind", ".glo", ".gls", ".acn", ".acr", ".ist",
	".bcf", ".run.xml", ".xdv", ".synctex.gz",
}

// Clean removes auxiliary files from dir and returns the removed paths.
// When texFile is non-empty only artifacts with its exact stem are removed;
// otherwise every matching file in dir is removed. Files outside dir are
// never touched.
func Clean(dir, texFile string) []string {
	var removed []string

	if texFile != "" {
		base := filepath.Base(texFile)
		stem := base[:len(base)-len(filepath.Ext(base))]
		for _, ext := range AuxExtensions {
			path := filepath.Join(dir, stem+ext)
			if err := os.Remove(path); err == nil {
				removed = append(removed, path)
			}
		}
		return removed
	}

	for _, ext := range AuxExtensions {
		matches, err := filepath.Glob(filepath.Join(dir, "*"+ext))
		if err != nil {
			continue
		}
		for _, path := range matches {
			if err := os.Remove(path); err == nil {
				removed = append(removed, path)
			}
		}
	}
	return removed
}
