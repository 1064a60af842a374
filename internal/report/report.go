// Package report renders analysis results as Markdown, JSON or YAML.
//
// Every table is ordered by count descending, then key ascending, so the same
// log always produces byte-identical reports.
package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"sastriage/internal/analysis"
	"sastriage/internal/classify"
	"sastriage/internal/output"
	"sastriage/internal/summary"
)

// Document is the machine-readable form of a result. Fields are declared in
// key order.
type Document struct {
	InvariantIssues     []string         `json:"invariant_issues" yaml:"invariant_issues"`
	LogPath             string           `json:"log_path" yaml:"log_path"`
	RuntimeErrorCount   int              `json:"runtime_error_count" yaml:"runtime_error_count"`
	RuntimeWarningCount int              `json:"runtime_warning_count" yaml:"runtime_warning_count"`
	Summary             *summary.Summary `json:"summary" yaml:"summary"`
}

// NewDocument builds the document for res.
func NewDocument(res *analysis.Result) Document {
	issues := res.Issues
	if issues == nil {
		issues = []string{}
	}
	return Document{
		InvariantIssues:     issues,
		LogPath:             res.LogPath,
		RuntimeErrorCount:   res.ErrorCount(),
		RuntimeWarningCount: res.WarningCount(),
		Summary:             res.Summary,
	}
}

// JSON writes res as indented JSON.
func JSON(w io.Writer, res *analysis.Result) error {
	data, err := output.EncodeIndented(NewDocument(res))
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// YAML writes res as a YAML document.
func YAML(w io.Writer, res *analysis.Result) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(NewDocument(res)); err != nil {
		return err
	}
	return enc.Close()
}

// Markdown writes the human-readable error catalog. c supplies the category
// shown next to each signature.
func Markdown(w io.Writer, res *analysis.Result, c classify.Classifier) error {
	bw := bufio.NewWriter(w)
	s := res.Summary

	fmt.Fprintln(bw, "# Pass 1 Error Catalog and Root-Cause Classification")
	fmt.Fprintln(bw)
	fmt.Fprintf(bw, "- Log file: `%s`\n", res.LogPath)
	fmt.Fprintf(bw, "- Total lines: `%d`\n", res.TotalLines)
	fmt.Fprintf(bw, "- Runtime errors (`^ERROR:`): `%d`\n", res.ErrorCount())
	fmt.Fprintf(bw, "- Runtime warnings (`^WARNING:`): `%d`\n", res.WarningCount())
	fmt.Fprintf(bw, "- Unique runtime error signatures: `%d`\n", s.UniqueSignatures())
	fmt.Fprintln(bw)

	section(bw, "Include File Error Distribution", "| Include file | Error count |", "|---|---:|")
	for _, row := range output.CountRows(s.IncludeCounts) {
		label := row.Key
		if label == "" {
			label = "(unknown)"
		}
		fmt.Fprintf(bw, "| `%s` | %d |\n", label, row.Count)
	}
	fmt.Fprintln(bw)

	section(bw, "Category Counts", "| Category | Count |", "|---|---:|")
	for _, cat := range classify.AllCategories() {
		if n, ok := s.CategoryCounts[cat]; ok {
			fmt.Fprintf(bw, "| `%s` | %d |\n", cat, n)
		}
	}
	fmt.Fprintln(bw)

	fmt.Fprintln(bw, "## Invariant Validation")
	fmt.Fprintln(bw)
	if len(res.Issues) == 0 {
		fmt.Fprintln(bw, "- All invariants passed.")
	}
	for _, issue := range res.Issues {
		fmt.Fprintf(bw, "- FAILED: %s\n", issue)
	}
	fmt.Fprintln(bw)

	section(bw, "Runtime Error Signatures", "| Count | First line | Category | Signature |", "|---:|---:|---:|---|")
	for _, row := range output.CountRows(s.SignatureCounts) {
		fmt.Fprintf(bw, "| %d | %d | `%s` | `%s` |\n", row.Count, s.FirstOccurrence[row.Key], c.Classify(row.Key), row.Key)
	}
	fmt.Fprintln(bw)

	warningCounts := make(map[string]int)
	for _, msg := range res.Warnings {
		warningCounts[msg.Text]++
	}
	section(bw, "Warning Signatures", "| Count | Signature |", "|---:|---|")
	for _, row := range output.CountRows(warningCounts) {
		fmt.Fprintf(bw, "| %d | `%s` |\n", row.Count, row.Key)
	}

	return bw.Flush()
}

func section(w io.Writer, title, header, align string) {
	fmt.Fprintf(w, "## %s\n\n%s\n%s\n", title, header, align)
}

// Paths names the report files to write. Empty entries are skipped.
type Paths struct {
	Markdown string
	JSON     string
	YAML     string
}

// ForLog returns p with the log's stem inserted before each file extension,
// for runs that analyze several logs at once:
// reports/run.pass1.md -> reports/run.pass1.<stem>.md.
func (p Paths) ForLog(logPath string) Paths {
	return p.WithStem(Stem(logPath))
}

// ForLogs returns one set of paths per log, in order. Logs whose stems
// collide get a 1-based suffix in input order (nightly-1, nightly-2) so no
// two logs write the same report.
func (p Paths) ForLogs(logPaths []string) []Paths {
	stems := make([]string, len(logPaths))
	seen := make(map[string]int, len(logPaths))
	for i, lp := range logPaths {
		stems[i] = Stem(lp)
		seen[stems[i]]++
	}
	next := make(map[string]int, len(seen))
	out := make([]Paths, len(logPaths))
	for i, stem := range stems {
		if seen[stem] > 1 {
			next[stem]++
			stem = fmt.Sprintf("%s-%d", stem, next[stem])
		}
		out[i] = p.WithStem(stem)
	}
	return out
}

// Stem returns the base name of logPath with every extension removed:
// /logs/nightly.log.gz -> nightly.
func Stem(logPath string) string {
	stem := filepath.Base(logPath)
	for ext := filepath.Ext(stem); ext != "" && ext != stem; ext = filepath.Ext(stem) {
		stem = strings.TrimSuffix(stem, ext)
	}
	return stem
}

// WithStem returns p with stem inserted before each file extension. Empty
// entries stay empty.
func (p Paths) WithStem(stem string) Paths {
	insert := func(path string) string {
		if path == "" {
			return ""
		}
		ext := filepath.Ext(path)
		return strings.TrimSuffix(path, ext) + "." + stem + ext
	}
	return Paths{Markdown: insert(p.Markdown), JSON: insert(p.JSON), YAML: insert(p.YAML)}
}

// WriteAll renders res into every configured path, creating parent
// directories. It returns the paths written, in Markdown, JSON, YAML order.
func WriteAll(res *analysis.Result, c classify.Classifier, p Paths) ([]string, error) {
	targets := []struct {
		path   string
		render func(io.Writer) error
	}{
		{p.Markdown, func(w io.Writer) error { return Markdown(w, res, c) }},
		{p.JSON, func(w io.Writer) error { return JSON(w, res) }},
		{p.YAML, func(w io.Writer) error { return YAML(w, res) }},
	}

	var written []string
	for _, t := range targets {
		if t.path == "" {
			continue
		}
		if err := writeFile(t.path, t.render); err != nil {
			return written, fmt.Errorf("write report %s: %w", t.path, err)
		}
		written = append(written, t.path)
	}
	return written, nil
}

func writeFile(path string, render func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
