package baseline

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"sastriage/internal/classify"
	triageerrors "sastriage/internal/errors"
	"sastriage/internal/logscan"
	"sastriage/internal/summary"
)

func TestReference(t *testing.T) {
	b := Reference()
	if err := b.Validate(); err != nil {
		t.Fatalf("Reference baseline invalid: %v", err)
	}

	sum := 0
	for _, c := range classify.Categories {
		sum += b.Expected(c)
	}
	if sum != b.RuntimeErrors {
		t.Errorf("category sum %d != runtime errors %d", sum, b.RuntimeErrors)
	}
	if b.Expected(classify.Unclassified) != 0 {
		t.Error("reference baseline must expect zero unclassified errors")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "baseline.toml", `
runtime_errors = 10
runtime_warnings = 2
unique_signatures = 3

[categories]
A = 1
D = 9

[[include]]
name = "predicates"
path = "/src/pipr/predicates.sas"
errors = 10
`)

	b, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := Baseline{
		RuntimeErrors:    10,
		RuntimeWarnings:  2,
		UniqueSignatures: 3,
		Categories:       map[string]int{"A": 1, "D": 9},
		Includes:         []IncludeExpectation{{Name: "predicates", Path: "/src/pipr/predicates.sas", Errors: 10}},
	}
	if diff := cmp.Diff(want, b); diff != "" {
		t.Errorf("Load mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "baseline.yaml", `
runtime_errors: 4
runtime_warnings: 0
unique_signatures: 1
categories:
  E: 4
includes:
  - name: pipr
    path: /src/pipr/pipr.sas
    errors: 4
`)

	b, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if b.RuntimeErrors != 4 || b.Expected(classify.CategoryE) != 4 || len(b.Includes) != 1 {
		t.Errorf("unexpected baseline: %+v", b)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"unknown toml key", "b.toml", "runtime_errors = 1\nbogus = 2\n"},
		{"unknown yaml key", "b.yaml", "runtime_errors: 1\nbogus: 2\n"},
		{"bad category", "b.toml", "[categories]\nF = 1\n"},
		{"unclassified pinned", "b.toml", "[categories]\nUNCLASSIFIED = 0\n"},
		{"lowercase category", "b.toml", "[categories]\na = 1\n"},
		{"negative count", "b.toml", "runtime_errors = -1\n"},
		{"include without path", "b.toml", "[[include]]\nname = \"x\"\nerrors = 1\n"},
		{"duplicate include name", "b.toml", "[[include]]\nname = \"x\"\npath = \"/a\"\n[[include]]\nname = \"x\"\npath = \"/b\"\n"},
		{"unsupported extension", "b.json", "{}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			var te *triageerrors.TriageError
			if !errors.As(err, &te) || te.Code != triageerrors.BaselineInvalid {
				t.Errorf("expected BASELINE_INVALID, got %v", err)
			}
		})
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestFromSummary_RoundTrip(t *testing.T) {
	msgs := []logscan.RuntimeMessage{
		{LineNo: 1, IncludeFile: "/p.sas", Text: "ERROR: Expected %DO not found.", Kind: logscan.KindError},
		{LineNo: 2, IncludeFile: "/p.sas", Text: "ERROR: Maximum level of nesting of macro functions exceeded.", Kind: logscan.KindError},
	}
	s := summary.Build(msgs, classify.Default())

	b := FromSummary(2, 5, s, []IncludeExpectation{{Name: "p", Path: "/p.sas", Errors: 99}})
	if b.Includes[0].Errors != 2 {
		t.Errorf("include count not refreshed: %d", b.Includes[0].Errors)
	}
	if b.Expected(classify.CategoryD) != 1 || b.Expected(classify.CategoryE) != 1 {
		t.Errorf("categories = %v", b.Categories)
	}

	var buf bytes.Buffer
	if err := WriteTOML(&buf, b); err != nil {
		t.Fatalf("WriteTOML: %v", err)
	}
	path := writeFile(t, "pinned.toml", buf.String())
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load written baseline: %v\n%s", err, buf.String())
	}
	if diff := cmp.Diff(b, loaded); diff != "" {
		t.Errorf("round trip mismatch (-written +loaded):\n%s", diff)
	}
}
