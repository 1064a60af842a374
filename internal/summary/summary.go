// Package summary aggregates runtime messages into the count tables used for
// reporting and invariant validation.
package summary

import (
	"sastriage/internal/classify"
	"sastriage/internal/logscan"
)

// TripleKey is the finest attribution key: include file, MLOGIC context and
// signature together.
type TripleKey struct {
	IncludeFile string
	Context     string
	Signature   string
}

// String renders the key as "include | context | signature".
func (k TripleKey) String() string {
	return k.IncludeFile + " | " + k.Context + " | " + k.Signature
}

// MarshalText lets TripleKey act as a JSON/YAML map key.
func (k TripleKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Summary holds the aggregate tables for one log. It is never modified after
// Build returns. Fields are declared in the order they are serialized.
type Summary struct {
	CategoryCounts  map[classify.Category]int `json:"category_counts" yaml:"category_counts"`
	ContextCounts   map[TripleKey]int         `json:"context_counts" yaml:"context_counts"`
	FirstOccurrence map[string]int            `json:"first_occurrence" yaml:"first_occurrence"`
	IncludeCounts   map[string]int            `json:"include_counts" yaml:"include_counts"`
	SignatureCounts map[string]int            `json:"signature_counts" yaml:"signature_counts"`
}

// Build aggregates messages in a single pass.
//
// Signature, context and first-occurrence tables cover every message passed in;
// include and category tables only count KindError messages. Callers normally
// pass the error list alone.
func Build(messages []logscan.RuntimeMessage, c classify.Classifier) *Summary {
	s := &Summary{
		CategoryCounts:  make(map[classify.Category]int),
		ContextCounts:   make(map[TripleKey]int),
		FirstOccurrence: make(map[string]int),
		IncludeCounts:   make(map[string]int),
		SignatureCounts: make(map[string]int),
	}

	for _, msg := range messages {
		s.SignatureCounts[msg.Text]++
		s.ContextCounts[TripleKey{IncludeFile: msg.IncludeFile, Context: msg.Context, Signature: msg.Text}]++
		if _, seen := s.FirstOccurrence[msg.Text]; !seen {
			s.FirstOccurrence[msg.Text] = msg.LineNo
		}

		if msg.Kind != logscan.KindError {
			continue
		}
		s.IncludeCounts[msg.IncludeFile]++
		s.CategoryCounts[c.Classify(msg.Text)]++
	}

	return s
}

// UniqueSignatures returns the number of distinct signatures.
func (s *Summary) UniqueSignatures() int {
	return len(s.SignatureCounts)
}

// Categorized returns the number of errors that landed in a named category,
// excluding Unclassified.
func (s *Summary) Categorized() int {
	total := 0
	for _, c := range classify.Categories {
		total += s.CategoryCounts[c]
	}
	return total
}

// Unclassified returns the number of errors no rule matched.
func (s *Summary) Unclassified() int {
	return s.CategoryCounts[classify.Unclassified]
}
