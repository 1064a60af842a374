package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"sastriage/internal/classify"
	"sastriage/internal/history"
	"sastriage/internal/output"
)

// printIssues prints the invariant verdict in the order the validator
// produced the issues.
func printIssues(w io.Writer, p palette, issues []string) {
	if len(issues) == 0 {
		fmt.Fprintf(w, "[%s] All invariants passed.\n", p.status(true))
		return
	}
	fmt.Fprintf(w, "[%s] Invariant issues:\n", p.status(false))
	for _, issue := range issues {
		fmt.Fprintf(w, "- %s\n", issue)
	}
}

const timeFormat = "2006-01-02 15:04:05"

func writeRuns(w io.Writer, p palette, runs []history.Run) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tRECORDED\tERRORS\tWARNINGS\tSIGNATURES\tSTATUS\tLOG")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			r.ShortID(), r.RecordedAt.Local().Format(timeFormat),
			r.RuntimeErrors, r.RuntimeWarnings, r.UniqueSignatures,
			p.status(r.Passed()), r.LogPath)
	}
	return tw.Flush()
}

func writeRunDetail(w io.Writer, p palette, run history.Run, snap *history.Snapshot, top int) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Run:\t%s\n", run.ID)
	fmt.Fprintf(tw, "Log:\t%s\n", run.LogPath)
	fmt.Fprintf(tw, "Recorded:\t%s\n", run.RecordedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(tw, "Lines:\t%d\n", run.TotalLines)
	fmt.Fprintf(tw, "Errors:\t%d\n", run.RuntimeErrors)
	fmt.Fprintf(tw, "Warnings:\t%d\n", run.RuntimeWarnings)
	fmt.Fprintf(tw, "Signatures:\t%d\n", run.UniqueSignatures)
	fmt.Fprintf(tw, "Status:\t%s\n", p.status(run.Passed()))
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nCategories:")
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, c := range classify.AllCategories() {
		fmt.Fprintf(tw, "  %s\t%d\n", c, snap.CategoryCounts[string(c)])
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(snap.Issues) > 0 {
		fmt.Fprintln(w, "\nInvariant issues:")
		for _, issue := range snap.Issues {
			fmt.Fprintf(w, "- %s\n", issue)
		}
	}

	rows := output.CountRows(snap.SignatureCounts)
	if top > 0 && len(rows) > top {
		rows = rows[:top]
	}
	if len(rows) == 0 {
		return nil
	}
	fmt.Fprintln(w, "\nTop signatures:")
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, r := range rows {
		fmt.Fprintf(tw, "  %d\t%s\t%s\n", r.Count, snap.Categories[r.Key], r.Key)
	}
	return tw.Flush()
}

func writeDeltas(w io.Writer, deltas []history.SignatureDelta) error {
	if len(deltas) == 0 {
		_, err := fmt.Fprintln(w, "No signature counts changed.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DELTA\tBEFORE\tAFTER\tCATEGORY\tSIGNATURE")
	for _, d := range deltas {
		delta := strconv.Itoa(d.Delta())
		if d.Delta() > 0 {
			delta = "+" + delta
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\n", delta, d.Before, d.After, d.Category, d.Signature)
	}
	return tw.Flush()
}
