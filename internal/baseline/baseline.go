// Package baseline holds the expected counts a log analysis is checked against.
//
// A baseline records what has already been manually verified for one reference
// log. It is configuration data: the built-in Reference values can be replaced
// by a TOML or YAML file so different environments pin different logs.
package baseline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"sastriage/internal/classify"
	triageerrors "sastriage/internal/errors"
	"sastriage/internal/summary"
)

// IncludeExpectation pins the error count attributed to one include file.
type IncludeExpectation struct {
	Name   string `toml:"name" yaml:"name" json:"name"`
	Path   string `toml:"path" yaml:"path" json:"path"`
	Errors int    `toml:"errors" yaml:"errors" json:"errors"`
}

// Baseline is the set of expected scalar values for one reference log.
type Baseline struct {
	RuntimeErrors    int                  `toml:"runtime_errors" yaml:"runtime_errors" json:"runtime_errors"`
	RuntimeWarnings  int                  `toml:"runtime_warnings" yaml:"runtime_warnings" json:"runtime_warnings"`
	UniqueSignatures int                  `toml:"unique_signatures" yaml:"unique_signatures" json:"unique_signatures"`
	Categories       map[string]int       `toml:"categories" yaml:"categories" json:"categories"`
	Includes         []IncludeExpectation `toml:"include" yaml:"includes" json:"includes"`
}

const (
	predicatesPath = "/parm_share/small_business/modeling/sassyverse/src/pipr/predicates.sas"
	piprPath       = "/parm_share/small_business/modeling/sassyverse/src/pipr/pipr.sas"
)

// Reference returns the baseline verified against the project's reference log.
func Reference() Baseline {
	return Baseline{
		RuntimeErrors:    1307,
		RuntimeWarnings:  58,
		UniqueSignatures: 36,
		Includes: []IncludeExpectation{
			{Name: "predicates", Path: predicatesPath, Errors: 1305},
			{Name: "pipr", Path: piprPath, Errors: 2},
		},
		Categories: map[string]int{
			"A": 3,
			"B": 108,
			"C": 60,
			"D": 1134,
			"E": 2,
		},
	}
}

// Expected returns the pinned count for category c; absent categories expect 0.
func (b Baseline) Expected(c classify.Category) int {
	return b.Categories[string(c)]
}

// Validate checks the baseline is well formed.
func (b Baseline) Validate() error {
	if b.RuntimeErrors < 0 || b.RuntimeWarnings < 0 || b.UniqueSignatures < 0 {
		return fmt.Errorf("counts must not be negative")
	}
	for key, n := range b.Categories {
		c, err := classify.ParseCategory(key)
		if err != nil {
			return err
		}
		if c == classify.Unclassified {
			return fmt.Errorf("category %s cannot be pinned; unclassified errors are always reported", key)
		}
		if string(c) != key {
			return fmt.Errorf("category key %q must be upper case", key)
		}
		if n < 0 {
			return fmt.Errorf("category %s: count must not be negative", key)
		}
	}
	seen := make(map[string]bool, len(b.Includes))
	for i, inc := range b.Includes {
		if inc.Path == "" {
			return fmt.Errorf("include %d: path is required", i)
		}
		if inc.Name == "" {
			return fmt.Errorf("include %s: name is required", inc.Path)
		}
		if seen[inc.Name] {
			return fmt.Errorf("include name %q is used twice", inc.Name)
		}
		seen[inc.Name] = true
		if inc.Errors < 0 {
			return fmt.Errorf("include %s: count must not be negative", inc.Name)
		}
	}
	return nil
}

// Load reads a baseline file. The format is chosen by extension: .toml, .yaml or .yml.
func Load(path string) (Baseline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Baseline{}, triageerrors.NewTriageError(triageerrors.BaselineInvalid,
			"cannot read baseline "+path, err)
	}

	var b Baseline
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		md, err := toml.Decode(string(data), &b)
		if err != nil {
			return Baseline{}, triageerrors.NewTriageError(triageerrors.BaselineInvalid,
				"cannot parse baseline "+path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return Baseline{}, triageerrors.NewTriageError(triageerrors.BaselineInvalid,
				fmt.Sprintf("unknown keys in baseline %s: %v", path, undecoded), nil)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(strings.NewReader(string(data)))
		dec.KnownFields(true)
		if err := dec.Decode(&b); err != nil && err != io.EOF {
			return Baseline{}, triageerrors.NewTriageError(triageerrors.BaselineInvalid,
				"cannot parse baseline "+path, err)
		}
	default:
		return Baseline{}, triageerrors.NewTriageError(triageerrors.BaselineInvalid,
			fmt.Sprintf("unsupported baseline format %q (use .toml, .yaml or .yml)", filepath.Ext(path)), nil)
	}

	if err := b.Validate(); err != nil {
		return Baseline{}, triageerrors.NewTriageError(triageerrors.BaselineInvalid,
			"invalid baseline "+path, err)
	}
	return b, nil
}

// FromSummary pins the counts observed in one run. Include expectations keep
// the names and paths of includes; only their counts are refreshed.
func FromSummary(errorCount, warningCount int, s *summary.Summary, includes []IncludeExpectation) Baseline {
	b := Baseline{
		RuntimeErrors:    errorCount,
		RuntimeWarnings:  warningCount,
		UniqueSignatures: s.UniqueSignatures(),
		Categories:       make(map[string]int, len(classify.Categories)),
	}
	for _, c := range classify.Categories {
		b.Categories[string(c)] = s.CategoryCounts[c]
	}
	for _, inc := range includes {
		inc.Errors = s.IncludeCounts[inc.Path]
		b.Includes = append(b.Includes, inc)
	}
	return b
}

// WriteTOML encodes b in the format Load accepts for .toml files.
func WriteTOML(w io.Writer, b Baseline) error {
	return toml.NewEncoder(w).Encode(b)
}
