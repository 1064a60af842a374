// Package classify maps runtime error signatures to root-cause categories.
//
// Classification is a priority list, not a partition: a signature may satisfy
// several predicates, and the first declared rule decides. Signatures that
// match nothing are Unclassified and are always surfaced, never guessed at.
package classify

import (
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Category is a root-cause class agreed during manual triage.
type Category string

const (
	CategoryA    Category = "A"
	CategoryB    Category = "B"
	CategoryC    Category = "C"
	CategoryD    Category = "D"
	CategoryE    Category = "E"
	Unclassified Category = "UNCLASSIFIED"
)

// Categories lists the classified categories in report order.
var Categories = []Category{CategoryA, CategoryB, CategoryC, CategoryD, CategoryE}

// AllCategories returns Categories followed by Unclassified.
func AllCategories() []Category {
	all := make([]Category, 0, len(Categories)+1)
	all = append(all, Categories...)
	return append(all, Unclassified)
}

// ParseCategory converts a label such as "c" or "UNCLASSIFIED" to a Category.
func ParseCategory(s string) (Category, error) {
	for _, c := range AllCategories() {
		if strings.EqualFold(string(c), s) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Classifier assigns exactly one category to a signature. Implementations must
// be pure: the same signature always yields the same category.
type Classifier interface {
	Classify(signature string) Category
}

// RuleTable evaluates rules in declared order.
type RuleTable struct {
	rules []Rule
}

// NewRuleTable creates a table over rules. The slice is copied.
func NewRuleTable(rules []Rule) *RuleTable {
	return &RuleTable{rules: append([]Rule(nil), rules...)}
}

// Default returns a table over DefaultRules.
func Default() *RuleTable {
	return NewRuleTable(DefaultRules)
}

// Classify returns the category of the first matching rule, or Unclassified.
func (t *RuleTable) Classify(signature string) Category {
	for _, r := range t.rules {
		if r.Match.Matches(signature) {
			return r.Category
		}
	}
	return Unclassified
}

// Overlaps returns every rule that matches signature, in declared order.
// More than one entry means the result of Classify depends on rule order.
func (t *RuleTable) Overlaps(signature string) []Rule {
	var matched []Rule
	for _, r := range t.rules {
		if r.Match.Matches(signature) {
			matched = append(matched, r)
		}
	}
	return matched
}

// Rules returns a copy of the table in evaluation order.
func (t *RuleTable) Rules() []Rule {
	return append([]Rule(nil), t.rules...)
}

// Cached memoizes another classifier. It is safe for concurrent use.
type Cached struct {
	next  Classifier
	cache *lru.Cache[string, Category]
}

// NewCached wraps next with an LRU cache holding up to size signatures.
func NewCached(next Classifier, size int) (*Cached, error) {
	cache, err := lru.New[string, Category](size)
	if err != nil {
		return nil, fmt.Errorf("create classifier cache: %w", err)
	}
	return &Cached{next: next, cache: cache}, nil
}

// Classify returns the cached category for signature, computing it on a miss.
func (c *Cached) Classify(signature string) Category {
	if cat, ok := c.cache.Get(signature); ok {
		return cat
	}
	cat := c.next.Classify(signature)
	c.cache.Add(signature, cat)
	return cat
}
