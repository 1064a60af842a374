package summary

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"sastriage/internal/classify"
	"sastriage/internal/logscan"
)

func errMsg(line int, include, ctx, text string) logscan.RuntimeMessage {
	return logscan.RuntimeMessage{LineNo: line, IncludeFile: include, Context: ctx, Text: text, Kind: logscan.KindError}
}

const (
	nesting = "ERROR: Maximum level of nesting of macro functions exceeded."
	doBlock = "ERROR: Expected %DO not found."
	unknown = "ERROR: brand new failure."
)

func TestBuild_Tables(t *testing.T) {
	msgs := []logscan.RuntimeMessage{
		errMsg(3, "/p.sas", "M1", nesting),
		errMsg(5, "/p.sas", "M1", nesting),
		errMsg(9, "/q.sas", "", doBlock),
		errMsg(12, "/p.sas", "M2", nesting),
		errMsg(20, "", "", unknown),
	}

	s := Build(msgs, classify.Default())

	wantSignatures := map[string]int{nesting: 3, doBlock: 1, unknown: 1}
	if diff := cmp.Diff(wantSignatures, s.SignatureCounts); diff != "" {
		t.Errorf("SignatureCounts (-want +got):\n%s", diff)
	}

	wantIncludes := map[string]int{"/p.sas": 3, "/q.sas": 1, "": 1}
	if diff := cmp.Diff(wantIncludes, s.IncludeCounts); diff != "" {
		t.Errorf("IncludeCounts (-want +got):\n%s", diff)
	}

	wantCategories := map[classify.Category]int{classify.CategoryD: 3, classify.CategoryE: 1, classify.Unclassified: 1}
	if diff := cmp.Diff(wantCategories, s.CategoryCounts); diff != "" {
		t.Errorf("CategoryCounts (-want +got):\n%s", diff)
	}

	wantContexts := map[TripleKey]int{
		{IncludeFile: "/p.sas", Context: "M1", Signature: nesting}: 2,
		{IncludeFile: "/p.sas", Context: "M2", Signature: nesting}: 1,
		{IncludeFile: "/q.sas", Context: "", Signature: doBlock}:   1,
		{IncludeFile: "", Context: "", Signature: unknown}:         1,
	}
	if diff := cmp.Diff(wantContexts, s.ContextCounts); diff != "" {
		t.Errorf("ContextCounts (-want +got):\n%s", diff)
	}

	wantFirst := map[string]int{nesting: 3, doBlock: 9, unknown: 20}
	if diff := cmp.Diff(wantFirst, s.FirstOccurrence); diff != "" {
		t.Errorf("FirstOccurrence (-want +got):\n%s", diff)
	}

	if s.UniqueSignatures() != 3 {
		t.Errorf("UniqueSignatures = %d, want 3", s.UniqueSignatures())
	}
	if s.Categorized() != 4 {
		t.Errorf("Categorized = %d, want 4", s.Categorized())
	}
	if s.Unclassified() != 1 {
		t.Errorf("Unclassified = %d, want 1", s.Unclassified())
	}
}

func TestBuild_CategoryPartition(t *testing.T) {
	msgs := []logscan.RuntimeMessage{
		errMsg(1, "", "", nesting),
		errMsg(2, "", "", unknown),
		errMsg(3, "", "", doBlock),
		errMsg(4, "", "", "ERROR: Expecting a variable name after %LET."),
	}
	s := Build(msgs, classify.Default())
	if got := s.Categorized() + s.Unclassified(); got != len(msgs) {
		t.Errorf("categorized+unclassified = %d, want %d", got, len(msgs))
	}
}

func TestBuild_WarningsNotAttributed(t *testing.T) {
	warn := logscan.RuntimeMessage{LineNo: 2, IncludeFile: "/p.sas", Text: "WARNING: x.", Kind: logscan.KindWarning}
	s := Build([]logscan.RuntimeMessage{warn}, classify.Default())

	if len(s.IncludeCounts) != 0 {
		t.Errorf("warnings must not be attributed by include file: %v", s.IncludeCounts)
	}
	if len(s.CategoryCounts) != 0 {
		t.Errorf("warnings must not be classified: %v", s.CategoryCounts)
	}
	if s.SignatureCounts["WARNING: x."] != 1 {
		t.Errorf("warning signature not counted")
	}
}

func TestBuild_Empty(t *testing.T) {
	s := Build(nil, classify.Default())
	if s.UniqueSignatures() != 0 || s.Categorized() != 0 || s.Unclassified() != 0 {
		t.Errorf("expected empty summary, got %+v", s)
	}
	if s.SignatureCounts == nil || s.ContextCounts == nil {
		t.Error("maps should be allocated even when empty")
	}
}

func TestSummary_JSONContextKeys(t *testing.T) {
	s := Build([]logscan.RuntimeMessage{errMsg(1, "/p.sas", "M", nesting)}, classify.Default())
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `"/p.sas | M | ` + nesting + `":1`
	if !strings.Contains(string(data), want) {
		t.Errorf("JSON missing context key %s\n%s", want, data)
	}
}
