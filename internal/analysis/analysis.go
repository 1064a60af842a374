// Package analysis runs the full triage pipeline over one or more logs:
// scan, aggregate, classify and validate against a baseline.
package analysis

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"sastriage/internal/baseline"
	"sastriage/internal/classify"
	triageerrors "sastriage/internal/errors"
	"sastriage/internal/invariant"
	"sastriage/internal/logscan"
	"sastriage/internal/logsource"
	"sastriage/internal/summary"
)

// Result is the outcome of analyzing one log.
type Result struct {
	LogPath    string
	TotalLines int
	Errors     []logscan.RuntimeMessage
	Warnings   []logscan.RuntimeMessage
	Summary    *summary.Summary
	Issues     []string
	Duration   time.Duration
}

// Passed reports whether every baseline expectation held.
func (r *Result) Passed() bool {
	return len(r.Issues) == 0
}

// ErrorCount returns the number of runtime errors found.
func (r *Result) ErrorCount() int { return len(r.Errors) }

// WarningCount returns the number of runtime warnings found.
func (r *Result) WarningCount() int { return len(r.Warnings) }

// Analyzer holds the read-only inputs shared by every analysis. An Analyzer
// may be used from several goroutines at once as long as its Classifier is.
type Analyzer struct {
	Rules      *classify.RuleTable
	Classifier classify.Classifier
	Baseline   baseline.Baseline
	Logger     *slog.Logger
}

// New creates an Analyzer classifying with rules. When cacheSize is positive
// the rule table is wrapped in an LRU cache of that many signatures.
func New(rules *classify.RuleTable, b baseline.Baseline, cacheSize int, logger *slog.Logger) (*Analyzer, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	var c classify.Classifier = rules
	if cacheSize > 0 {
		cached, err := classify.NewCached(rules, cacheSize)
		if err != nil {
			return nil, triageerrors.NewTriageError(triageerrors.ConfigInvalid, "invalid classifier cache size", err)
		}
		c = cached
	}
	return &Analyzer{Rules: rules, Classifier: c, Baseline: b, Logger: logger}, nil
}

// Analyze opens and analyzes the log at path.
func (a *Analyzer) Analyze(ctx context.Context, path string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	src, err := logsource.Open(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	res, err := a.AnalyzeReader(ctx, path, src)
	if err != nil {
		return nil, err
	}
	res.Duration = time.Since(start)

	a.Logger.Info("Analyzed log",
		"path", path,
		"compression", string(src.Compression),
		"lines", res.TotalLines,
		"errors", res.ErrorCount(),
		"warnings", res.WarningCount(),
		"issues", len(res.Issues),
		"duration", res.Duration,
	)
	return res, nil
}

// AnalyzeReader analyzes a decoded log stream. name is recorded as the
// result's LogPath.
func (a *Analyzer) AnalyzeReader(ctx context.Context, name string, r io.Reader) (*Result, error) {
	scan, err := logscan.ScanReader(&ctxReader{ctx: ctx, r: r})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, triageerrors.NewTriageError(triageerrors.LogUnreadable, "cannot read "+name, err)
	}
	return a.finish(name, scan), nil
}

// AnalyzeLines analyzes a log that is already split into lines.
func (a *Analyzer) AnalyzeLines(name string, lines []string) *Result {
	return a.finish(name, logscan.Scan(lines))
}

func (a *Analyzer) finish(name string, scan logscan.Result) *Result {
	s := summary.Build(scan.Errors, a.Classifier)
	a.logOverlaps(name, s)

	return &Result{
		LogPath:    name,
		TotalLines: scan.TotalLines,
		Errors:     scan.Errors,
		Warnings:   scan.Warnings,
		Summary:    s,
		Issues:     invariant.Validate(len(scan.Errors), len(scan.Warnings), s, a.Baseline),
	}
}

// logOverlaps warns about signatures whose category depends on rule order.
func (a *Analyzer) logOverlaps(name string, s *summary.Summary) {
	if a.Rules == nil {
		return
	}
	sigs := make([]string, 0, len(s.SignatureCounts))
	for sig := range s.SignatureCounts {
		sigs = append(sigs, sig)
	}
	sort.Strings(sigs)

	for _, sig := range sigs {
		matched := a.Rules.Overlaps(sig)
		if len(matched) < 2 {
			continue
		}
		names := make([]string, len(matched))
		for i, r := range matched {
			names[i] = fmt.Sprintf("%s(%s)", r.Name, r.Category)
		}
		a.Logger.Warn("Signature matches several rules; first one wins",
			"path", name,
			"signature", sig,
			"rules", names,
		)
	}
}

// AnalyzeAll analyzes paths concurrently with at most jobs analyses in flight
// (GOMAXPROCS when jobs <= 0). Results are in the order of paths. The first
// failure cancels the remaining analyses and is returned.
func (a *Analyzer) AnalyzeAll(ctx context.Context, paths []string, jobs int) ([]*Result, error) {
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	results := make([]*Result, len(paths))
	if len(paths) == 0 {
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(paths)))

	for i, path := range paths {
		g.Go(func() error {
			res, err := a.Analyze(gctx, path)
			if err != nil {
				return err
			}
			// each goroutine owns index i
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ctxReader stops a scan once ctx is cancelled.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
