package main

import (
	"github.com/spf13/cobra"

	"sastriage/internal/version"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "sastriage",
		Short: "Triage SAS batch logs against a verified baseline",
		Long: `sastriage reads SAS batch logs, groups runtime ERROR and WARNING messages by
normalized signature and include-file context, classifies error signatures into
root-cause categories, and checks the counts against a manually verified baseline.`,
		Version:           version.Info(),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return a.setup() },
	}
	root.SetVersionTemplate("sastriage version {{.Version}}\n")

	flags := root.PersistentFlags()
	flags.StringVar(&a.colorMode, "color", "auto", "colorize output (auto|on|off)")
	flags.CountVarP(&a.verbose, "verbose", "v", "increase log verbosity (-v info, -vv debug)")
	flags.BoolVarP(&a.quiet, "quiet", "q", false, "suppress log output")
	flags.StringVar(&a.configPath, "config", "", "config file (default .sastriage/config.json)")

	root.AddCommand(
		newAnalyzeCmd(a),
		newBaselineCmd(a),
		newHardeningCmd(a),
		newRemoteCmd(a),
		newHistoryCmd(a),
		newWatchCmd(a),
		newVersionCmd(a),
	)
	return root
}
