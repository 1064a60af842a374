package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sastriage/internal/analysis"
	"sastriage/internal/paths"
)

type analyzeOptions struct {
	log       string
	outMD     string
	outJSON   string
	outYAML   string
	baseline  string
	strict    bool
	jobs      int
	noHistory bool
}

func newAnalyzeCmd(a *app) *cobra.Command {
	var opts analyzeOptions
	cmd := &cobra.Command{
		Use:   "analyze [log...]",
		Short: "Analyze SAS logs and write triage reports",
		Long: `Analyze one or more SAS logs. Each log is scanned for runtime ERROR and
WARNING messages, which are grouped by signature and include context, classified,
and validated against the baseline. Reports are written to the configured paths;
with several logs, each report name gains the log's stem.

Exit status is 2 when --strict is set and any invariant fails.`,
		Example: `  sastriage analyze
  sastriage analyze --strict logs/nightly.log
  sastriage analyze --out-yaml reports/run.yaml a.log b.log.gz`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, a, opts, args)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.log, "log", "", "SAS log to analyze (default from log.path)")
	f.StringVar(&opts.outMD, "out-md", "", "Markdown report path (default from report.markdown)")
	f.StringVar(&opts.outJSON, "out-json", "", "JSON summary path (default from report.json)")
	f.StringVar(&opts.outYAML, "out-yaml", "", "YAML summary path (default from report.yaml)")
	f.StringVar(&opts.baseline, "baseline", "", "baseline file (.toml, .yaml)")
	f.BoolVar(&opts.strict, "strict", false, "exit 2 if any invariant fails")
	f.IntVarP(&opts.jobs, "jobs", "j", 0, "logs analyzed in parallel (default from jobs)")
	f.BoolVar(&opts.noHistory, "no-history", false, "do not record the run")
	return cmd
}

func runAnalyze(cmd *cobra.Command, a *app, opts analyzeOptions, args []string) error {
	ctx := cmd.Context()
	cfg := a.cfg

	logs := append([]string{}, args...)
	if opts.log != "" {
		logs = append([]string{opts.log}, logs...)
	}
	if len(logs) == 0 {
		logs = []string{cfg.Log.Path}
	}
	for i, l := range logs {
		logs[i] = paths.Resolve(a.root, l)
	}

	strict := cfg.Strict
	if changed(cmd, "strict") {
		strict = opts.strict
	}
	jobs := cfg.Jobs
	if changed(cmd, "jobs") {
		jobs = opts.jobs
	}

	b, source, err := a.loadBaseline(opts.baseline)
	if err != nil {
		return err
	}
	a.logger.Debug("Using baseline", "source", source)

	analyzer, err := a.newAnalyzer(b)
	if err != nil {
		return err
	}
	results, err := analyzer.AnalyzeAll(ctx, logs, jobs)
	if err != nil {
		return err
	}

	store, err := a.maybeHistory(opts.noHistory)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	base := a.reportPaths()
	override := func(flag, value string, target *string) {
		if !changed(cmd, flag) {
			return
		}
		*target = ""
		if value != "" {
			*target = paths.Resolve(a.root, value)
		}
	}
	override("out-md", opts.outMD, &base.Markdown)
	override("out-json", opts.outJSON, &base.JSON)
	override("out-yaml", opts.outYAML, &base.YAML)

	perLog := base.ForLogs(logs)
	failed := 0
	for i, res := range results {
		p := base
		if len(results) > 1 {
			p = perLog[i]
			if i > 0 {
				fmt.Fprintln(a.stdout)
			}
			fmt.Fprintf(a.stdout, "== %s ==\n", a.displayPath(res.LogPath))
		}
		if err := a.emit(ctx, res, analyzer.Classifier, p, store); err != nil {
			return err
		}
		if !res.Passed() {
			failed++
		}
	}

	if len(results) > 1 {
		fmt.Fprintf(a.stdout, "\n%d of %d logs passed.\n", len(results)-failed, len(results))
	}
	if strict && failed > 0 {
		return &exitError{code: 2}
	}
	return nil
}

// summarize prints a one-line verdict, used by watch mode.
func summarize(a *app, res *analysis.Result) {
	fmt.Fprintf(a.stdout, "[%s] %s: %d errors, %d warnings, %d signatures, %d issues\n",
		a.palette.status(res.Passed()), a.displayPath(res.LogPath),
		res.ErrorCount(), res.WarningCount(), res.Summary.UniqueSignatures(), len(res.Issues))
}
