package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"sastriage/internal/baseline"
	"sastriage/internal/output"
	"sastriage/internal/paths"
)

func newBaselineCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Show or pin the expected counts logs are validated against",
	}
	cmd.AddCommand(newBaselineShowCmd(a), newBaselineWriteCmd(a))
	return cmd
}

func newBaselineShowCmd(a *app) *cobra.Command {
	var (
		file   string
		format string
	)
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the active baseline",
		Example: `  sastriage baseline show
  sastriage baseline show --format yaml --baseline baselines/nightly.toml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, source, err := a.loadBaseline(file)
			if err != nil {
				return err
			}
			a.logger.Debug("Showing baseline", "source", source)
			return encodeBaseline(a.stdout, b, format)
		},
	}
	cmd.Flags().StringVar(&file, "baseline", "", "baseline file (default from baseline.path, else built-in)")
	cmd.Flags().StringVar(&format, "format", "toml", "output format: toml, yaml or json")
	return cmd
}

func newBaselineWriteCmd(a *app) *cobra.Command {
	var (
		file string
		out  string
	)
	cmd := &cobra.Command{
		Use:   "write [log]",
		Short: "Pin the counts observed in a log as a new baseline",
		Long: `Analyze a log and write its observed counts as a baseline. Include
expectations keep the names and paths of the active baseline; only their
counts are refreshed. The format follows the output file's extension
(.toml, .yaml or .yml); without -o the baseline is printed as TOML.`,
		Example: `  sastriage baseline write logs/nightly.log -o baselines/nightly.toml`,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logPath := a.cfg.Log.Path
			if len(args) == 1 {
				logPath = args[0]
			}

			current, _, err := a.loadBaseline(file)
			if err != nil {
				return err
			}
			analyzer, err := a.newAnalyzer(current)
			if err != nil {
				return err
			}
			res, err := analyzer.Analyze(cmd.Context(), paths.Resolve(a.root, logPath))
			if err != nil {
				return err
			}
			pinned := baseline.FromSummary(res.ErrorCount(), res.WarningCount(), res.Summary, current.Includes)

			if out == "" {
				return baseline.WriteTOML(a.stdout, pinned)
			}
			target := paths.Resolve(a.root, out)
			format := strings.TrimPrefix(strings.ToLower(filepath.Ext(target)), ".")
			if format == "yml" {
				format = "yaml"
			}
			if format != "toml" && format != "yaml" {
				return fmt.Errorf("unsupported baseline extension %q (use .toml, .yaml or .yml)", filepath.Ext(target))
			}

			var buf bytes.Buffer
			if err := encodeBaseline(&buf, pinned, format); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(target, buf.Bytes(), 0o644); err != nil {
				return err
			}
			a.logger.Info("Pinned baseline", "log", logPath, "errors", pinned.RuntimeErrors,
				"warnings", pinned.RuntimeWarnings, "signatures", pinned.UniqueSignatures)
			fmt.Fprintf(a.stdout, "Wrote baseline: %s\n", a.displayPath(target))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "baseline", "", "baseline whose include list is kept")
	cmd.Flags().StringVarP(&out, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

func encodeBaseline(w io.Writer, b baseline.Baseline, format string) error {
	switch format {
	case "toml":
		return baseline.WriteTOML(w, b)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(b); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		data, err := output.EncodeIndented(b)
		if err != nil {
			return err
		}
		_, err = w.Write(append(data, '\n'))
		return err
	default:
		return fmt.Errorf("unknown format %q (want toml, yaml or json)", format)
	}
}
