// Package texcmd resolves LaTeX toolchain binaries on PATH and builds the
// argument vectors for every supported operation.
package texcmd

import (
	"fmt"
	"os/exec"
	"sync"

	"github.com/SepineTam/latex-mcp/internal/domain"
)

// AuxToolNames lists the auxiliary tools the resolver knows about,
// in canonical order.
var AuxToolNames = []string{"bibtex", "biber", "makeindex", "makeglossaries", "latexmk"}

// Interaction flags passed to every engine invocation so a broken document
// fails instead of dropping into the interactive TeX prompt.
var interactionFlags = []string{
	"-interaction=nonstopmode",
	"-halt-on-error",
	"-file-line-error",
}

// engineFlags maps each compiler kind to the latexmk flag selecting it.
var engineFlags = map[domain.CompilerKind]string{
	domain.CompilerPDFLaTeX: "-pdf",
	domain.CompilerXeLaTeX:  "-xelatex",
	domain.CompilerLuaLaTeX: "-lualatex",
}

// Resolver locates toolchain binaries and caches the results. Lookups happen
// at most once per Resolver; the cache is read-only afterwards.
type Resolver struct {
	once      sync.Once
	compilers map[domain.CompilerKind]string
	aux       map[string]string
}

// NewResolver returns a Resolver with an unpopulated cache. The first lookup
// resolves all known tools in one sweep.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Default is the process-wide resolver instance.
var Default = NewResolver()

func (r *Resolver) populate() {
	r.once.Do(func() {
		r.compilers = make(map[domain.CompilerKind]string, len(domain.CompilerKinds))
		for _, kind := range domain.CompilerKinds {
			if path, err := exec.LookPath(string(kind)); err == nil {
				r.compilers[kind] = path
			}
		}
		r.aux = make(map[string]string, len(AuxToolNames))
		for _, name := range AuxToolNames {
			if path, err := exec.LookPath(name); err == nil {
				r.aux[name] = path
			}
		}
	})
}

// ResolveCompiler returns the executable path for the given engine,
// or false if it is not installed.
func (r *Resolver) ResolveCompiler(kind domain.CompilerKind) (string, bool) {
	r.populate()
	path, ok := r.compilers[kind]
	return path, ok
}

// ResolveAuxTool returns the executable path for a named auxiliary tool,
// or false if it is not installed.
func (r *Resolver) ResolveAuxTool(name string) (string, bool) {
	r.populate()
	path, ok := r.aux[name]
	return path, ok
}

// AvailableCompilers returns the engines resolvable on PATH, in canonical order.
func (r *Resolver) AvailableCompilers() []domain.CompilerKind {
	r.populate()
	kinds := make([]domain.CompilerKind, 0, len(r.compilers))
	for _, kind := range domain.CompilerKinds {
		if _, ok := r.compilers[kind]; ok {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}

// AvailableAuxTools returns the auxiliary tools resolvable on PATH,
// in canonical order.
func (r *Resolver) AvailableAuxTools() []string {
	r.populate()
	names := make([]string, 0, len(r.aux))
	for _, name := range AuxToolNames {
		if _, ok := r.aux[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

// LatexmkAvailable reports whether automatic mode can work at all.
func (r *Resolver) LatexmkAvailable() bool {
	_, ok := r.ResolveAuxTool("latexmk")
	return ok
}

// BuildDirectCommand constructs the argument vector for a single engine pass
// over texFile.
func (r *Resolver) BuildDirectCommand(kind domain.CompilerKind, texFile string, options []string) ([]string, error) {
	path, ok := r.ResolveCompiler(kind)
	if !ok {
		return nil, fmt.Errorf("%w: compiler %s not found", domain.ErrToolNotFound, kind)
	}

	cmd := append([]string{path}, interactionFlags...)
	cmd = append(cmd, options...)
	cmd = append(cmd, texFile)
	return cmd, nil
}

// BuildAutomationCommand constructs the latexmk argument vector for texFile,
// selecting the engine via the matching latexmk flag.
func (r *Resolver) BuildAutomationCommand(kind domain.CompilerKind, texFile string, options []string) ([]string, error) {
	path, ok := r.ResolveAuxTool("latexmk")
	if !ok {
		return nil, fmt.Errorf("%w: latexmk not found", domain.ErrToolNotFound)
	}

	cmd := []string{path, engineFlags[kind]}
	cmd = append(cmd, interactionFlags...)
	cmd = append(cmd, options...)
	cmd = append(cmd, texFile)
	return cmd, nil
}

// BuildBibtexCommand constructs the bibtex argument vector for the given
// aux-file stem.
func (r *Resolver) BuildBibtexCommand(auxStem string) ([]string, error) {
	path, ok := r.ResolveAuxTool("bibtex")
	if !ok {
		return nil, fmt.Errorf("%w: bibtex not found", domain.ErrToolNotFound)
	}
	return []string{path, auxStem}, nil
}

// BuildCleanCommand constructs a latexmk -c argument vector for texFile.
// Extension matching in the cleaner package is the authoritative cleanup
// path; this command backs the opt-in latexmk delegation only.
func (r *Resolver) BuildCleanCommand(texFile string) ([]string, error) {
	path, ok := r.ResolveAuxTool("latexmk")
	if !ok {
		return nil, fmt.Errorf("%w: latexmk not found", domain.ErrToolNotFound)
	}
	return []string{path, "-c", texFile}, nil
}
