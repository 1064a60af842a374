package history

import (
	"fmt"
	"sort"

	"github.com/vmihailenco/msgpack/v5"

	"sastriage/internal/analysis"
	"sastriage/internal/classify"
)

// Snapshot is the stored copy of a run's aggregate tables. It is encoded
// with msgpack and compressed with zstd before it is written.
type Snapshot struct {
	LogPath         string            `msgpack:"log_path"`
	TotalLines      int               `msgpack:"total_lines"`
	ErrorCount      int               `msgpack:"error_count"`
	WarningCount    int               `msgpack:"warning_count"`
	Issues          []string          `msgpack:"issues"`
	CategoryCounts  map[string]int    `msgpack:"category_counts"`
	IncludeCounts   map[string]int    `msgpack:"include_counts"`
	SignatureCounts map[string]int    `msgpack:"signature_counts"`
	FirstOccurrence map[string]int    `msgpack:"first_occurrence"`
	ContextCounts   map[string]int    `msgpack:"context_counts"`
	Categories      map[string]string `msgpack:"categories"` // signature -> category
}

// NewSnapshot captures res. Context keys are stored in their text form.
func NewSnapshot(res *analysis.Result, c classify.Classifier) *Snapshot {
	sum := res.Summary
	snap := &Snapshot{
		LogPath:         res.LogPath,
		TotalLines:      res.TotalLines,
		ErrorCount:      res.ErrorCount(),
		WarningCount:    res.WarningCount(),
		Issues:          append([]string{}, res.Issues...),
		CategoryCounts:  make(map[string]int, len(sum.CategoryCounts)),
		IncludeCounts:   sum.IncludeCounts,
		SignatureCounts: sum.SignatureCounts,
		FirstOccurrence: sum.FirstOccurrence,
		ContextCounts:   make(map[string]int, len(sum.ContextCounts)),
		Categories:      make(map[string]string, len(sum.SignatureCounts)),
	}
	for cat, n := range sum.CategoryCounts {
		snap.CategoryCounts[string(cat)] = n
	}
	for k, n := range sum.ContextCounts {
		snap.ContextCounts[k.String()] = n
	}
	for sig := range sum.SignatureCounts {
		snap.Categories[sig] = string(c.Classify(sig))
	}
	return snap
}

// UniqueSignatures returns the number of distinct error signatures.
func (s *Snapshot) UniqueSignatures() int { return len(s.SignatureCounts) }

func (s *Store) encodeSnapshot(snap *Snapshot) ([]byte, error) {
	raw, err := msgpack.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return s.enc.EncodeAll(raw, make([]byte, 0, len(raw)/4)), nil
}

func (s *Store) decodeSnapshot(blob []byte) (*Snapshot, error) {
	raw, err := s.dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot: %w", err)
	}
	var snap Snapshot
	if err := msgpack.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// SignatureDelta is the change in one signature's count between two runs.
type SignatureDelta struct {
	Signature string
	Category  string
	Before    int
	After     int
}

// Delta returns After - Before.
func (d SignatureDelta) Delta() int { return d.After - d.Before }

// Compare lists every signature whose count differs between before and
// after, largest absolute change first, then by signature.
func Compare(before, after *Snapshot) []SignatureDelta {
	seen := make(map[string]bool, len(before.SignatureCounts)+len(after.SignatureCounts))
	var deltas []SignatureDelta
	add := func(sig string) {
		if seen[sig] {
			return
		}
		seen[sig] = true
		b, a := before.SignatureCounts[sig], after.SignatureCounts[sig]
		if a == b {
			return
		}
		cat := after.Categories[sig]
		if cat == "" {
			cat = before.Categories[sig]
		}
		deltas = append(deltas, SignatureDelta{Signature: sig, Category: cat, Before: b, After: a})
	}
	for sig := range before.SignatureCounts {
		add(sig)
	}
	for sig := range after.SignatureCounts {
		add(sig)
	}

	sort.Slice(deltas, func(i, j int) bool {
		di, dj := abs(deltas[i].Delta()), abs(deltas[j].Delta())
		if di != dj {
			return di > dj
		}
		return deltas[i].Signature < deltas[j].Signature
	})
	return deltas
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
