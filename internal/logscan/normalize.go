package logscan

import "strings"

// Normalize collapses every run of whitespace in text to a single space and
// trims both ends, so messages differing only in spacing share a signature.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
