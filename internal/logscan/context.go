package logscan

import (
	"regexp"
	"strings"
)

var (
	// includePattern matches the notice printed when a level-1 %INCLUDE starts.
	// Deeper nesting levels and include-exit notices are deliberately not matched.
	includePattern = regexp.MustCompile(`^NOTE: %INCLUDE \(level 1\) file (\S+) is file`)

	// contextPattern matches MLOGIC trace lines and captures the macro name.
	contextPattern = regexp.MustCompile(`^MLOGIC\(([^)]*)\):`)
)

// ContextState is the ambient attribution context at a given point in the log.
//
// Both fields are last-write-wins cursors, not stacks: when a nested include
// ends nothing is restored. The zero value is the state before the first line.
type ContextState struct {
	IncludeFile string `json:"includeFile"`
	Context     string `json:"context"`
}

// Advance returns the state after observing line. The receiver is not modified.
// line must already have its line terminator removed.
func (s ContextState) Advance(line string) ContextState {
	if strings.HasPrefix(line, "NOTE: %INCLUDE") {
		if m := includePattern.FindStringSubmatch(line); m != nil {
			s.IncludeFile = m[1]
		}
	}
	if strings.HasPrefix(line, "MLOGIC(") {
		if m := contextPattern.FindStringSubmatch(line); m != nil {
			s.Context = m[1]
		}
	}
	return s
}
