package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sastriage/internal/hardening"
	"sastriage/internal/output"
	"sastriage/internal/paths"
)

func newHardeningCmd(a *app) *cobra.Command {
	var (
		root         string
		checks       string
		printDefault bool
		format       string
	)
	cmd := &cobra.Command{
		Use:   "check-hardening",
		Short: "Check the SAS sources for import-hardening regressions",
		Long: `Run regex checks over the SAS source tree: forbidden constructs that must
not come back, required guards that must stay, and include lists whose files
must exist. Exit status is 1 when any check fails.`,
		Example: `  sastriage check-hardening --root ../sassyverse
  sastriage check-hardening --print-default > hardening.toml
  sastriage check-hardening --checks hardening.toml --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if printDefault {
				_, err := a.stdout.Write(hardening.DefaultTOML())
				return err
			}
			if !changed(cmd, "root") {
				root = a.cfg.Hardening.Root
			}
			if !changed(cmd, "checks") {
				checks = a.cfg.Hardening.Checks
			}

			set := hardening.Default()
			if checks != "" {
				var err error
				if set, err = hardening.LoadFile(paths.Resolve(a.root, checks)); err != nil {
					return err
				}
			}

			rep := set.Run(paths.Resolve(a.root, root))
			a.logger.Debug("Hardening checks finished", "root", rep.Root,
				"checks", len(rep.Results), "failed", len(rep.Failed()))

			switch format {
			case "text":
				if err := hardening.WriteText(a.stdout, rep, a.palette.status); err != nil {
					return err
				}
			case "json":
				data, err := output.EncodeIndented(rep)
				if err != nil {
					return err
				}
				if _, err := a.stdout.Write(data); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown format %q (want text or json)", format)
			}

			if !rep.Passed() {
				return &exitError{code: 1}
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&root, "root", ".", "repository root holding the SAS sources (default from hardening.root)")
	f.StringVar(&checks, "checks", "", "TOML check set (default from hardening.checks, else built-in)")
	f.BoolVar(&printDefault, "print-default", false, "print the built-in check set and exit")
	f.StringVar(&format, "format", "text", "output format: text or json")
	return cmd
}
