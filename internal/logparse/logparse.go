// Package logparse extracts error and warning lines from LaTeX compiler
// output. It is a pure, stateless line classifier; deduplication across
// passes is the orchestrator's job.
package logparse

import (
	"regexp"
	"strings"
)

// Error patterns, checked in order; the first match classifies the line.
var errorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^! (.+)$`),
	regexp.MustCompile(`^l\.(\d+) (.+)$`),
	regexp.MustCompile(`Error: (.+)`),
}

// Warning patterns; any match classifies the line as a warning.
var warningPatterns = []*regexp.Regexp{
	regexp.MustCompile(`Warning: (.+)`),
	regexp.MustCompile(`LaTeX Warning: (.+)`),
	regexp.MustCompile(`Package (\w+) Warning: (.+)`),
	regexp.MustCompile(`Overfull \\hbox`),
	regexp.MustCompile(`Underfull \\hbox`),
}

// Parse classifies each line of log text. A line may appear in both lists
// when it matches an error pattern and a warning pattern; matched lines are
// emitted trimmed, in log order, duplicates permitted.
func Parse(log string) (errs, warnings []string) {
	for _, line := range strings.Split(log, "\n") {
		for _, pat := range errorPatterns {
			if pat.MatchString(line) {
				errs = append(errs, strings.TrimSpace(line))
				break
			}
		}
		for _, pat := range warningPatterns {
			if pat.MatchString(line) {
				warnings = append(warnings, strings.TrimSpace(line))
				break
			}
		}
	}
	return errs, warnings
}
