// Package invariant compares an observed summary against a baseline and
// reports every mismatch as a human-readable issue.
package invariant

import (
	"fmt"

	"sastriage/internal/baseline"
	"sastriage/internal/classify"
	"sastriage/internal/summary"
)

// Validate returns one issue per violated expectation. Mismatches are data,
// not errors: an empty, non-nil slice means every expectation held.
//
// Checks run in a fixed order: scalar counts, include counts in baseline
// order, categories A through E, the categorized total and finally
// unclassified errors.
func Validate(errorCount, warningCount int, s *summary.Summary, b baseline.Baseline) []string {
	if s == nil {
		s = &summary.Summary{}
	}

	issues := []string{}
	check := func(label string, expected, actual int) {
		if expected != actual {
			issues = append(issues, fmt.Sprintf("%s mismatch: expected %d, got %d", label, expected, actual))
		}
	}

	check("runtime_errors", b.RuntimeErrors, errorCount)
	check("runtime_warnings", b.RuntimeWarnings, warningCount)
	check("unique_signatures", b.UniqueSignatures, s.UniqueSignatures())

	for _, inc := range b.Includes {
		check(inc.Name+" include count", inc.Errors, s.IncludeCounts[inc.Path])
	}

	for _, c := range classify.Categories {
		check("category "+string(c), b.Expected(c), s.CategoryCounts[c])
	}

	// Categorized total is measured against the observed error count.
	check("categorized total", errorCount, s.Categorized())

	if n := s.Unclassified(); n > 0 {
		issues = append(issues, fmt.Sprintf("unclassified errors present: %d", n))
	}

	return issues
}
