// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Include paths used by ReferenceLog. They match the built-in baseline.
const (
	PredicatesPath = "/parm_share/small_business/modeling/sassyverse/src/pipr/predicates.sas"
	PiprPath       = "/parm_share/small_business/modeling/sassyverse/src/pipr/pipr.sas"
)

// Signatures the reference log repeats, keyed by the category they belong to.
const (
	NestingSignature   = "ERROR: Maximum level of nesting of macro functions exceeded."
	RecursiveSignature = "ERROR: A recursive reference to the macro variable X was detected."
	RegistrySignature  = "ERROR: The macro _PRED_REGISTRY_ADD will stop executing."
	LetSignature       = "ERROR: Expecting a variable name after %LET."
)

var scopeSignatures = []string{
	"ERROR: Attempt to %GLOBAL a name (_N) which exists in a local environment.",
	"ERROR: %EVAL function has no expression to evaluate, or %IF statement has no condition.",
	"ERROR: The %TO value of the %DO _I loop is invalid.",
	"ERROR: The macro _PRED_RESOLVE_GEN_ARGS will stop executing.",
}

var warningTexts = []string{
	"WARNING: Apparent symbolic reference _PIPR_FN not resolved.",
	"WARNING: Apparent invocation of macro _PRED_EVAL not resolved.",
	"WARNING: The quoted string currently being processed has become more than 262 characters long.",
}

func includeNote(path string, level int) string {
	return fmt.Sprintf("NOTE: %%INCLUDE (level %d) file %s is file %s.", level, path, path)
}

// ReferenceLog builds a synthetic log whose analysis reproduces the built-in
// baseline exactly: 1307 errors, 58 warnings, 36 distinct error signatures,
// 1305 errors under predicates.sas and 2 under pipr.sas, and category counts
// A=3 B=108 C=60 D=1134 E=2.
//
// The log also carries lines that must not be counted: echoed source with
// ERROR: in the middle, level 2 include notes and NOTE lines.
func ReferenceLog() []string {
	var lines []string
	add := func(l ...string) { lines = append(lines, l...) }

	add(
		"1                                                          The SAS System",
		"NOTE: Copyright (c) 2016 by SAS Institute Inc., Cary, NC, USA.",
		"NOTE: SAS initialization used:",
		"78         %put ERROR: retry;",
		includeNote(PiprPath, 1),
		"MLOGIC(PIPR_INIT):  Beginning execution.",
		"ERROR: Expected %DO not found.",
		"MLOGIC(PIPR_INIT):  %DO loop beginning; index variable I.",
		"  ERROR: Skipping to next %END statement.",
		includeNote("/parm_share/small_business/modeling/sassyverse/src/util/strings.sas", 2),
		"NOTE: There were 0 observations read from the data set WORK.FNS.",
		includeNote(PredicatesPath, 1),
	)

	warnings := 0
	warn := func() {
		add(warningTexts[warnings%len(warningTexts)])
		warnings++
	}

	// D: one signature, 1134 occurrences spread over several macro contexts.
	for i := 0; i < 1134; i++ {
		if i%100 == 0 {
			add(fmt.Sprintf("MLOGIC(_PRED_GEN_%d):  Beginning execution.", i/100))
		}
		switch i % 7 {
		case 0:
			add("ERROR:  Maximum level of nesting of macro   functions exceeded.")
		case 1:
			add("    " + NestingSignature + "   ")
		default:
			add(NestingSignature)
		}
		if i%25 == 0 {
			warn()
		}
	}

	// B: four signatures, 27 each.
	add("MLOGIC(_PRED_RESOLVE_GEN_ARGS):  Beginning execution.")
	for i := 0; i < 27; i++ {
		for _, sig := range scopeSignatures {
			add(sig)
		}
		add("78         %put ERROR: arguments could not be resolved;")
	}

	// A: one signature, 3 occurrences.
	add("MLOGIC(_PRED_BIND):  Beginning execution.")
	for i := 0; i < 3; i++ {
		add(RecursiveSignature)
	}

	// C: two exact signatures four times each, then 26 prefix-matched
	// signatures twice each.
	add("MLOGIC(_PRED_REGISTRY_ADD):  Beginning execution.")
	for i := 0; i < 4; i++ {
		add(RegistrySignature, LetSignature)
	}
	for i := 0; i < 13; i++ {
		name := fmt.Sprintf("_PIPR_FUNCTION_%02d_IS_MUCH_TOO_LONG_FOR_SAS", i)
		for j := 0; j < 2; j++ {
			add(fmt.Sprintf("ERROR: Symbolic variable name %s must be 32 or fewer characters long.", name))
			add(fmt.Sprintf("ERROR: Invalid symbolic variable name _PIPR_FUNCTION_%02d.", i))
		}
	}

	for warnings < 58 {
		warn()
	}

	add(
		"NOTE: %INCLUDE (level 1) ending.",
		"NOTE: SAS Institute Inc., SAS Campus Drive, Cary, NC USA 27513-2414",
		"NOTE: The SAS System used:",
	)
	return lines
}

// WriteReferenceLog writes ReferenceLog to dir/name and returns its path.
func WriteReferenceLog(t *testing.T, dir, name string) string {
	t.Helper()
	return WriteLog(t, dir, name, ReferenceLog())
}

// WriteLog writes lines joined by newlines to dir/name and returns its path.
func WriteLog(t *testing.T, dir, name string, lines []string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("Failed to write log: %v", err)
	}
	return path
}
