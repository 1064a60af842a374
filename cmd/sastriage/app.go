package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"sastriage/internal/analysis"
	"sastriage/internal/baseline"
	"sastriage/internal/classify"
	"sastriage/internal/config"
	"sastriage/internal/history"
	"sastriage/internal/paths"
	"sastriage/internal/report"
	"sastriage/internal/slogutil"
)

// app carries state shared by every subcommand.
type app struct {
	stdout io.Writer
	stderr io.Writer

	// persistent flags
	colorMode  string
	verbose    int
	quiet      bool
	configPath string

	root      string
	cfg       *config.Config
	logger    *slog.Logger
	logCloser io.Closer
	palette   palette
}

func (a *app) setup() error {
	if a.root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		a.root = wd
	}

	loaded, err := config.Load(a.root, a.configPath)
	if err != nil {
		return err
	}
	a.cfg = loaded.Config

	level := slogutil.LevelFromVerbosity(a.verbose, a.quiet)
	if a.verbose == 0 && !a.quiet && a.cfg.Logging.Level != "" {
		level = slogutil.LevelFromString(a.cfg.Logging.Level)
	}
	logFile := ""
	if a.cfg.Logging.File != "" {
		logFile = paths.Resolve(a.root, a.cfg.Logging.File)
	}
	logger, closer, err := slogutil.New(a.stderr, slogutil.Options{
		Level:      level,
		Format:     a.cfg.Logging.Format,
		File:       logFile,
		MaxSize:    a.cfg.Logging.MaxSize,
		MaxBackups: a.cfg.Logging.MaxBackups,
	})
	if err != nil {
		return err
	}
	a.logger, a.logCloser = logger, closer

	a.palette, err = newPalette(a.colorMode, a.stdout)
	if err != nil {
		return err
	}

	if loaded.ConfigPath != "" {
		a.logger.Debug("Loaded config", "path", loaded.ConfigPath)
	}
	if loaded.EnvFile != "" {
		a.logger.Debug("Loaded environment file", "path", loaded.EnvFile)
	}
	return nil
}

func (a *app) close() {
	if a.logCloser != nil {
		_ = a.logCloser.Close()
	}
}

// loadBaseline returns the baseline at path, the configured baseline, or the
// built-in reference, in that order, with a label naming its source.
func (a *app) loadBaseline(path string) (baseline.Baseline, string, error) {
	if path == "" {
		path = a.cfg.Baseline.Path
	}
	if path == "" {
		return baseline.Reference(), "built-in reference", nil
	}
	b, err := baseline.Load(paths.Resolve(a.root, path))
	if err != nil {
		return baseline.Baseline{}, "", err
	}
	return b, path, nil
}

func (a *app) newAnalyzer(b baseline.Baseline) (*analysis.Analyzer, error) {
	return analysis.New(classify.Default(), b, a.cfg.Classifier.CacheSize, a.logger)
}

func (a *app) openHistory() (*history.Store, error) {
	return history.Open(a.cfg.HistoryPath(a.root), a.logger)
}

// maybeHistory opens the history store unless recording is disabled by
// config or skip, in which case it returns nil.
func (a *app) maybeHistory(skip bool) (*history.Store, error) {
	if skip || !a.cfg.History.Enabled {
		return nil, nil
	}
	return a.openHistory()
}

// reportPaths returns the configured report paths, resolved against the root.
func (a *app) reportPaths() report.Paths {
	resolve := func(p string) string {
		if p == "" {
			return ""
		}
		return paths.Resolve(a.root, p)
	}
	return report.Paths{
		Markdown: resolve(a.cfg.Report.Markdown),
		JSON:     resolve(a.cfg.Report.JSON),
		YAML:     resolve(a.cfg.Report.YAML),
	}
}

// emit writes the reports for res, records the run when store is not nil and
// prints whether the invariants held.
func (a *app) emit(ctx context.Context, res *analysis.Result, c classify.Classifier, p report.Paths, store *history.Store) error {
	written, err := report.WriteAll(res, c, p)
	if err != nil {
		return err
	}
	for _, path := range written {
		fmt.Fprintf(a.stdout, "%s %s\n", writtenLabel(path, p), a.displayPath(path))
	}

	if store != nil {
		run, err := store.Record(ctx, res, c)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "Recorded run: %s\n", run.ShortID())
	}

	printIssues(a.stdout, a.palette, res.Issues)
	return nil
}

func writtenLabel(path string, p report.Paths) string {
	switch path {
	case p.Markdown:
		return "Wrote report:"
	case p.JSON:
		return "Wrote summary:"
	default:
		return "Wrote YAML summary:"
	}
}

// displayPath shows paths under the root relative to it.
func (a *app) displayPath(path string) string {
	if paths.IsWithin(path, a.root) {
		if rel, err := paths.Relative(path, a.root); err == nil {
			return rel
		}
	}
	return path
}

// changed reports whether the named flag was set on the command line.
func changed(cmd *cobra.Command, name string) bool {
	f := cmd.Flags().Lookup(name)
	return f != nil && f.Changed
}
