// Package hardening runs static guard checks over a source tree. Each check
// applies one regular expression to one file and reports PASS or FAIL.
package hardening

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	triageerrors "sastriage/internal/errors"
	"sastriage/internal/paths"
)

// ChecksFile is the default name of a project's check definitions.
const ChecksFile = "hardening.toml"

//go:embed default_checks.toml
var defaultChecks []byte

// Kind selects how a check's pattern is evaluated.
type Kind string

const (
	// KindForbid fails when the pattern matches.
	KindForbid Kind = "forbid"
	// KindRequire fails when the pattern does not match.
	KindRequire Kind = "require"
	// KindIncludePaths collects the "|"-separated items captured by the
	// pattern and fails when any is missing under the include root, or when
	// the pattern matches nothing at all.
	KindIncludePaths Kind = "include-paths"
)

// Check is one guard as declared in TOML.
type Check struct {
	Name        string `toml:"name"`
	File        string `toml:"file"`
	Kind        Kind   `toml:"kind"`
	Pattern     string `toml:"pattern"`
	Detail      string `toml:"detail"`
	IncludeRoot string `toml:"include_root,omitempty"`

	re *regexp.Regexp
}

// CheckSet is the root of a check definitions file.
type CheckSet struct {
	Version int     `toml:"version"`
	Checks  []Check `toml:"check"`
}

// DefaultTOML returns the built-in check definitions.
func DefaultTOML() []byte {
	return append([]byte(nil), defaultChecks...)
}

// Default returns the built-in check set.
func Default() *CheckSet {
	cs, err := Parse(defaultChecks)
	if err != nil {
		panic(fmt.Sprintf("hardening: built-in checks are invalid: %v", err))
	}
	return cs
}

// LoadFile reads and validates a check definitions file.
func LoadFile(path string) (*CheckSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, triageerrors.NewTriageError(triageerrors.ChecksInvalid,
			fmt.Sprintf("cannot read checks file %s", path), err)
	}
	cs, err := Parse(data)
	if err != nil {
		return nil, triageerrors.NewTriageError(triageerrors.ChecksInvalid,
			fmt.Sprintf("invalid checks file %s", path), err)
	}
	return cs, nil
}

// Parse decodes check definitions and compiles every pattern. Patterns run
// in multi-line mode.
func Parse(data []byte) (*CheckSet, error) {
	var cs CheckSet
	if err := toml.Unmarshal(data, &cs); err != nil {
		return nil, fmt.Errorf("failed to parse checks: %w", err)
	}
	if cs.Version < 1 {
		cs.Version = 1
	}
	if len(cs.Checks) == 0 {
		return nil, fmt.Errorf("no checks declared")
	}

	seen := make(map[string]bool, len(cs.Checks))
	for i := range cs.Checks {
		c := &cs.Checks[i]
		if c.Name == "" {
			return nil, fmt.Errorf("check #%d: missing name", i+1)
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("check %s: duplicate name", c.Name)
		}
		seen[c.Name] = true
		if c.File == "" {
			return nil, fmt.Errorf("check %s: missing file", c.Name)
		}

		re, err := regexp.Compile("(?m)" + c.Pattern)
		if err != nil {
			return nil, fmt.Errorf("check %s: bad pattern: %w", c.Name, err)
		}
		c.re = re

		switch c.Kind {
		case KindForbid, KindRequire:
		case KindIncludePaths:
			if re.NumSubexp() < 1 {
				return nil, fmt.Errorf("check %s: include-paths pattern needs a capture group", c.Name)
			}
			if c.IncludeRoot == "" {
				c.IncludeRoot = "src"
			}
		default:
			return nil, fmt.Errorf("check %s: unknown kind %q", c.Name, c.Kind)
		}
	}
	return &cs, nil
}

// Result is the outcome of one check.
type Result struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail"`
}

// Report holds results in declaration order.
type Report struct {
	Root    string   `json:"root"`
	Results []Result `json:"results"`
}

// Failed returns the failing results.
func (r Report) Failed() []Result {
	var failed []Result
	for _, res := range r.Results {
		if !res.OK {
			failed = append(failed, res)
		}
	}
	return failed
}

// Passed reports whether every check passed.
func (r Report) Passed() bool { return len(r.Failed()) == 0 }

// Run evaluates every check against files under root. A file that cannot
// be read is treated as empty.
func (cs *CheckSet) Run(root string) Report {
	texts := make(map[string]string)
	read := func(rel string) string {
		if text, ok := texts[rel]; ok {
			return text
		}
		data, err := os.ReadFile(paths.JoinSlash(root, rel))
		text := ""
		if err == nil {
			text = string(data)
		}
		texts[rel] = text
		return text
	}

	rep := Report{Root: root, Results: make([]Result, 0, len(cs.Checks))}
	for _, c := range cs.Checks {
		text := read(c.File)
		res := Result{Name: c.Name, Detail: c.Detail}
		switch c.Kind {
		case KindForbid:
			res.OK = !c.re.MatchString(text)
		case KindRequire:
			res.OK = c.re.MatchString(text)
		case KindIncludePaths:
			found, missing := c.missingIncludes(root, text)
			res.OK = found && len(missing) == 0
			if len(missing) > 0 {
				res.Detail = "missing include files: " + strings.Join(missing, ", ")
			}
		}
		rep.Results = append(rep.Results, res)
	}
	return rep
}

// missingIncludes reports whether any include block was found and lists the
// referenced files that do not exist, as root-relative slash paths.
func (c Check) missingIncludes(root, text string) (bool, []string) {
	blocks := c.re.FindAllStringSubmatch(text, -1)
	includeDir := paths.JoinSlash(root, c.IncludeRoot)

	var missing []string
	for _, block := range blocks {
		for _, item := range strings.Split(block[1], "|") {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			path := paths.JoinSlash(includeDir, item)
			rel := strings.TrimSuffix(c.IncludeRoot, "/") + "/" + filepath.ToSlash(item)
			if !paths.IsWithin(path, includeDir) {
				missing = append(missing, rel)
				continue
			}
			if _, err := os.Stat(path); err != nil {
				missing = append(missing, rel)
			}
		}
	}
	return len(blocks) > 0, missing
}

// WriteText prints one "[STATUS] name: detail" line per result followed by a
// summary line. label renders the status word; nil prints it plain.
func WriteText(w io.Writer, rep Report, label func(ok bool) string) error {
	if label == nil {
		label = func(ok bool) string {
			if ok {
				return "PASS"
			}
			return "FAIL"
		}
	}
	for _, res := range rep.Results {
		if _, err := fmt.Fprintf(w, "[%s] %s: %s\n", label(res.OK), res.Name, res.Detail); err != nil {
			return err
		}
	}
	if failed := rep.Failed(); len(failed) > 0 {
		_, err := fmt.Fprintf(w, "\n%d check(s) failed.\n", len(failed))
		return err
	}
	_, err := fmt.Fprintln(w, "\nAll import-hardening checks passed.")
	return err
}
