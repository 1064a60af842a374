package analysis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"

	"sastriage/internal/baseline"
	"sastriage/internal/classify"
	triageerrors "sastriage/internal/errors"
	"sastriage/internal/slogutil"
	"sastriage/internal/testutil"
)

func newAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	a, err := New(classify.Default(), baseline.Reference(), 128, slogutil.NewDiscardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestAnalyze_ReferenceLog(t *testing.T) {
	path := testutil.WriteReferenceLog(t, t.TempDir(), "reference.log")

	res, err := newAnalyzer(t).Analyze(context.Background(), path)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if res.ErrorCount() != 1307 || res.WarningCount() != 58 {
		t.Errorf("counts = %d errors, %d warnings", res.ErrorCount(), res.WarningCount())
	}
	if res.Summary.UniqueSignatures() != 36 {
		t.Errorf("unique signatures = %d, want 36", res.Summary.UniqueSignatures())
	}
	if !res.Passed() {
		t.Errorf("expected reference log to pass, issues:\n%s", strings.Join(res.Issues, "\n"))
	}
	if res.LogPath != path {
		t.Errorf("LogPath = %q", res.LogPath)
	}
	if res.TotalLines != len(testutil.ReferenceLog()) {
		t.Errorf("TotalLines = %d, want %d", res.TotalLines, len(testutil.ReferenceLog()))
	}
}

func TestAnalyze_GzipMatchesPlain(t *testing.T) {
	dir := t.TempDir()
	plain := testutil.WriteReferenceLog(t, dir, "reference.log")

	data, err := os.ReadFile(plain)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	gz := filepath.Join(dir, "reference.log.gz")
	if err := os.WriteFile(gz, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	a := newAnalyzer(t)
	want, err := a.Analyze(context.Background(), plain)
	if err != nil {
		t.Fatal(err)
	}
	got, err := a.Analyze(context.Background(), gz)
	if err != nil {
		t.Fatalf("Analyze gzip: %v", err)
	}
	if got.ErrorCount() != want.ErrorCount() || len(got.Issues) != len(want.Issues) {
		t.Errorf("gzip result differs: %d/%d errors", got.ErrorCount(), want.ErrorCount())
	}
}

func TestAnalyze_MissingLog(t *testing.T) {
	_, err := newAnalyzer(t).Analyze(context.Background(), filepath.Join(t.TempDir(), "missing.log"))
	if triageerrors.CodeOf(err) != triageerrors.LogNotFound {
		t.Errorf("expected LOG_NOT_FOUND, got %v", err)
	}
}

func TestAnalyze_Cancelled(t *testing.T) {
	path := testutil.WriteReferenceLog(t, t.TempDir(), "reference.log")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newAnalyzer(t).Analyze(ctx, path)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestAnalyzeLines_ReportsIssues(t *testing.T) {
	res := newAnalyzer(t).AnalyzeLines("inline", []string{
		"ERROR: Expected %DO not found.",
		"ERROR: totally new.",
	})
	if res.Passed() {
		t.Fatal("expected issues against the reference baseline")
	}
	if res.Issues[len(res.Issues)-1] != "unclassified errors present: 1" {
		t.Errorf("last issue = %q", res.Issues[len(res.Issues)-1])
	}
}

func TestAnalyzeAll_PreservesOrder(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i := 0; i < 5; i++ {
		lines := make([]string, 0, i)
		for j := 0; j < i; j++ {
			lines = append(lines, "ERROR: Expected %DO not found.")
		}
		paths = append(paths, testutil.WriteLog(t, dir, fmt.Sprintf("run%d.log", i), lines))
	}

	results, err := newAnalyzer(t).AnalyzeAll(context.Background(), paths, 2)
	if err != nil {
		t.Fatalf("AnalyzeAll: %v", err)
	}
	if len(results) != len(paths) {
		t.Fatalf("got %d results, want %d", len(results), len(paths))
	}
	for i, res := range results {
		if res.LogPath != paths[i] {
			t.Errorf("results[%d].LogPath = %s, want %s", i, res.LogPath, paths[i])
		}
		if res.ErrorCount() != i {
			t.Errorf("results[%d] has %d errors, want %d", i, res.ErrorCount(), i)
		}
	}
}

func TestAnalyzeAll_FailsOnMissing(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		testutil.WriteLog(t, dir, "ok.log", []string{"NOTE: fine"}),
		filepath.Join(dir, "gone.log"),
	}
	if _, err := newAnalyzer(t).AnalyzeAll(context.Background(), paths, 0); triageerrors.CodeOf(err) != triageerrors.LogNotFound {
		t.Errorf("expected LOG_NOT_FOUND, got %v", err)
	}
}

func TestAnalyze_LogsRuleOverlaps(t *testing.T) {
	rules := classify.NewRuleTable([]classify.Rule{
		{Name: "broad", Match: classify.HasPrefix("ERROR: The macro"), Category: classify.CategoryB},
		{Name: "registry", Match: classify.Exact("ERROR: The macro _PRED_REGISTRY_ADD will stop executing."), Category: classify.CategoryC},
	})
	var logs bytes.Buffer
	a, err := New(rules, baseline.Baseline{}, 0, slogutil.NewLogger(&logs, slog.LevelWarn))
	if err != nil {
		t.Fatal(err)
	}

	res := a.AnalyzeLines("inline", []string{"ERROR: The macro _PRED_REGISTRY_ADD will stop executing."})
	if res.Summary.CategoryCounts[classify.CategoryB] != 1 {
		t.Errorf("first declared rule should win: %v", res.Summary.CategoryCounts)
	}
	if !strings.Contains(logs.String(), "broad(B)") || !strings.Contains(logs.String(), "registry(C)") {
		t.Errorf("expected overlap warning naming both rules, got: %s", logs.String())
	}
}

func TestNew_NonPositiveCacheSizeDisablesCache(t *testing.T) {
	if _, err := New(classify.Default(), baseline.Reference(), -1, nil); err != nil {
		t.Errorf("negative cache size disables caching, got error %v", err)
	}
}
