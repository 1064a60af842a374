package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sastriage/internal/history"
	"sastriage/internal/output"
)

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded analysis runs",
	}
	cmd.AddCommand(newHistoryListCmd(a), newHistoryShowCmd(a), newHistoryDiffCmd(a))
	return cmd
}

func newHistoryListCmd(a *app) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				if runs == nil {
					runs = []history.Run{}
				}
				return writeJSON(a, runs)
			}
			return writeRuns(a.stdout, a.palette, runs)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum runs to list (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newHistoryShowCmd(a *app) *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run; any unique id prefix works",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			run, snap, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeRunDetail(a.stdout, a.palette, run, snap, top)
		},
	}
	cmd.Flags().IntVar(&top, "top", 10, "signatures to show (0 for all)")
	return cmd
}

func newHistoryDiffCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "diff <old-run> <new-run>",
		Short:   "Show signature counts that changed between two runs",
		Example: `  sastriage history diff 3f2a 9c41`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			before, beforeSnap, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			after, afterSnap, err := store.Get(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "%s -> %s\n", before.ShortID(), after.ShortID())
			fmt.Fprintf(a.stdout, "Errors: %d -> %d, warnings: %d -> %d, signatures: %d -> %d\n\n",
				before.RuntimeErrors, after.RuntimeErrors,
				before.RuntimeWarnings, after.RuntimeWarnings,
				before.UniqueSignatures, after.UniqueSignatures)
			return writeDeltas(a.stdout, history.Compare(beforeSnap, afterSnap))
		},
	}
	return cmd
}

func writeJSON(a *app, v any) error {
	data, err := output.EncodeIndented(v)
	if err != nil {
		return err
	}
	_, err = a.stdout.Write(data)
	return err
}
