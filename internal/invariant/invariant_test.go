package invariant

import (
	"strings"
	"testing"

	"sastriage/internal/baseline"
	"sastriage/internal/classify"
	"sastriage/internal/logscan"
	"sastriage/internal/summary"
	"sastriage/internal/testutil"
)

func referenceRun(t *testing.T) (logscan.Result, *summary.Summary) {
	t.Helper()
	res := logscan.Scan(testutil.ReferenceLog())
	return res, summary.Build(res.Errors, classify.Default())
}

func TestValidate_ReferenceLogPasses(t *testing.T) {
	res, s := referenceRun(t)

	issues := Validate(len(res.Errors), len(res.Warnings), s, baseline.Reference())
	if issues == nil {
		t.Fatal("Validate must return a non-nil slice")
	}
	if len(issues) != 0 {
		t.Errorf("expected no issues, got:\n%s", strings.Join(issues, "\n"))
	}
}

func TestValidate_WrongCategoryExpectation(t *testing.T) {
	res, s := referenceRun(t)

	b := baseline.Reference()
	b.Categories["A"] = 4

	issues := Validate(len(res.Errors), len(res.Warnings), s, b)
	if len(issues) != 1 {
		t.Fatalf("expected exactly one issue, got %d:\n%s", len(issues), strings.Join(issues, "\n"))
	}
	if issues[0] != "category A mismatch: expected 4, got 3" {
		t.Errorf("issue = %q", issues[0])
	}
}

func TestValidate_UnclassifiedError(t *testing.T) {
	lines := append(testutil.ReferenceLog(), "ERROR: Something nobody has seen before.")
	res := logscan.Scan(lines)
	s := summary.Build(res.Errors, classify.Default())

	issues := Validate(len(res.Errors), len(res.Warnings), s, baseline.Reference())
	joined := strings.Join(issues, "\n")

	for _, want := range []string{
		"runtime_errors mismatch: expected 1307, got 1308",
		"unique_signatures mismatch: expected 36, got 37",
		"predicates include count mismatch: expected 1305, got 1306",
		"categorized total mismatch: expected 1308, got 1307",
		"unclassified errors present: 1",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing issue %q in:\n%s", want, joined)
		}
	}
	if last := issues[len(issues)-1]; last != "unclassified errors present: 1" {
		t.Errorf("unclassified issue should be reported last, got %q", last)
	}
}

func TestValidate_IncludeMismatch(t *testing.T) {
	b := baseline.Baseline{
		Includes: []baseline.IncludeExpectation{{Name: "pipr", Path: "/src/pipr.sas", Errors: 2}},
	}
	s := summary.Build([]logscan.RuntimeMessage{
		{LineNo: 1, IncludeFile: "/src/other.sas", Text: "ERROR: Expected %DO not found.", Kind: logscan.KindError},
	}, classify.Default())

	issues := Validate(1, 0, s, b)
	joined := strings.Join(issues, "\n")
	if !strings.Contains(joined, "pipr include count mismatch: expected 2, got 0") {
		t.Errorf("missing include issue:\n%s", joined)
	}
}

func TestValidate_NilSummary(t *testing.T) {
	issues := Validate(0, 0, nil, baseline.Baseline{})
	if issues == nil || len(issues) != 0 {
		t.Errorf("Validate(nil) = %#v, want empty slice", issues)
	}
}
