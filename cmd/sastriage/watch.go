package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"sastriage/internal/analysis"
	triageerrors "sastriage/internal/errors"
	"sastriage/internal/history"
	"sastriage/internal/paths"
	"sastriage/internal/report"
	"sastriage/internal/watch"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		debounce  time.Duration
		noHistory bool
	)
	cmd := &cobra.Command{
		Use:   "watch [log...]",
		Short: "Re-analyze logs whenever they are rewritten",
		Long: `Watch SAS logs and re-run the analysis once a log has stopped changing
for the debounce period. Reports are rewritten on each pass and a one-line
verdict is printed. Stop with Ctrl-C.`,
		Example: `  sastriage watch
  sastriage watch --debounce 5s logs/nightly.log`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logs := args
			if len(logs) == 0 {
				logs = []string{a.cfg.Log.Path}
			}
			for i, l := range logs {
				logs[i] = paths.Resolve(a.root, l)
			}
			if !changed(cmd, "debounce") {
				debounce = a.cfg.Watch.Debounce
			}

			b, source, err := a.loadBaseline("")
			if err != nil {
				return err
			}
			analyzer, err := a.newAnalyzer(b)
			if err != nil {
				return err
			}
			store, err := a.maybeHistory(noHistory)
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
			}

			base := a.reportPaths()
			perLog := make(map[string]report.Paths, len(logs))
			for i, p := range base.ForLogs(logs) {
				perLog[filepath.Clean(logs[i])] = p
			}
			handle := func(ctx context.Context, logPath string, events []watch.Event) {
				p := base
				if len(logs) > 1 {
					var ok bool
					if p, ok = perLog[filepath.Clean(logPath)]; !ok {
						p = base.ForLog(logPath)
					}
				}
				a.logger.Debug("Log settled", "path", logPath, "events", len(events))
				if err := reanalyze(ctx, a, analyzer, logPath, p, store); err != nil {
					fmt.Fprintf(a.stderr, "%s %s: %v\n", stamp(), a.displayPath(logPath), err)
				}
			}

			a.logger.Info("Watching logs", "count", len(logs), "debounce", debounce, "baseline", source)
			fmt.Fprintf(a.stdout, "Watching %d log(s); press Ctrl-C to stop.\n", len(logs))
			w := watch.New(watch.Config{Debounce: debounce, Initial: true}, a.logger, handle)
			return w.Run(cmd.Context(), logs...)
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 0, "quiet period before re-analyzing (default from watch.debounce)")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "do not record runs")
	return cmd
}

func reanalyze(ctx context.Context, a *app, an *analysis.Analyzer, logPath string, p report.Paths, store *history.Store) error {
	res, err := an.Analyze(ctx, logPath)
	if err != nil {
		if triageerrors.CodeOf(err) == triageerrors.LogNotFound {
			a.logger.Debug("Log not present yet", "path", logPath)
			return nil
		}
		return err
	}
	if _, err := report.WriteAll(res, an.Classifier, p); err != nil {
		return err
	}
	if store != nil {
		if _, err := store.Record(ctx, res, an.Classifier); err != nil {
			return err
		}
	}
	fmt.Fprintf(a.stdout, "%s ", stamp())
	summarize(a, res)
	for _, issue := range res.Issues {
		fmt.Fprintf(a.stdout, "    - %s\n", issue)
	}
	return nil
}

func stamp() string { return time.Now().Format("15:04:05") }
