package logscan

import (
	"fmt"
	"strings"
	"unicode"
)

// Kind identifies which canonical marker a runtime message carried.
type Kind int

const (
	KindError Kind = iota
	KindWarning
)

const (
	errorMarker   = "ERROR:"
	warningMarker = "WARNING:"
)

func (k Kind) String() string {
	switch k {
	case KindError:
		return "error"
	case KindWarning:
		return "warning"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MarshalText renders the kind as its lowercase name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// RuntimeMessage is one ERROR: or WARNING: line observed in the log.
type RuntimeMessage struct {
	LineNo      int    `json:"lineNo"`
	IncludeFile string `json:"includeFile"`
	Context     string `json:"context"`
	Text        string `json:"text"` // normalized signature, marker retained
	Kind        Kind   `json:"kind"`
}

// Extract returns the runtime message carried by line, if any.
//
// Only the leading token after indentation counts: a line that merely contains
// "ERROR:" further along (echoed source, %put text) yields nothing. The message
// is attributed to st, which callers must already have advanced past line.
func Extract(lineNo int, line string, st ContextState) (RuntimeMessage, bool) {
	stripped := strings.TrimLeftFunc(line, unicode.IsSpace)

	var kind Kind
	switch {
	case strings.HasPrefix(stripped, errorMarker):
		kind = KindError
	case strings.HasPrefix(stripped, warningMarker):
		kind = KindWarning
	default:
		return RuntimeMessage{}, false
	}

	return RuntimeMessage{
		LineNo:      lineNo,
		IncludeFile: st.IncludeFile,
		Context:     st.Context,
		Text:        Normalize(stripped),
		Kind:        kind,
	}, true
}
