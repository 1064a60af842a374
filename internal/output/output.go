// Package output provides the deterministic ordering and encoding shared by
// every report format. Two runs over the same log must render byte-identical
// output.
package output

import (
	"bytes"
	"encoding/json"
	"sort"
)

// CountRow is one row of a count table.
type CountRow struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// SortCountRows sorts rows by count DESC, key ASC
func SortCountRows(rows []CountRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		// Primary: count DESC
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		// Secondary: key ASC
		return rows[i].Key < rows[j].Key
	})
}

// CountRows converts a count map to sorted rows.
func CountRows(m map[string]int) []CountRow {
	return CountRowsBy(m, func(k string) string { return k })
}

// CountRowsBy converts a count map with any key type to sorted rows, naming
// each row with key(k).
func CountRowsBy[K comparable](m map[K]int, key func(K) string) []CountRow {
	rows := make([]CountRow, 0, len(m))
	for k, n := range m {
		rows = append(rows, CountRow{Key: key(k), Count: n})
	}
	SortCountRows(rows)
	return rows
}

// EncodeIndented marshals v as two-space indented JSON with a trailing
// newline. HTML characters are not escaped so signatures such as
// "%IF ... <" stay readable. Map keys are sorted by encoding/json.
func EncodeIndented(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
