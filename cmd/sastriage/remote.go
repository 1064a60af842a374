package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"sastriage/internal/paths"
	"sastriage/internal/remote"
)

// dialRemote is replaced in tests.
var dialRemote = remote.Dial

func newRemoteCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Run SAS programs on a remote host",
	}
	cmd.AddCommand(newRemoteRunCmd(a))
	return cmd
}

type remoteRunOptions struct {
	script    string
	host      string
	port      int
	user      string
	password  string
	knownHost string
	remoteDir string
	sas       string
	logName   string
	download  string
	analyze   bool
	noHistory bool
}

func newRemoteRunCmd(a *app) *cobra.Command {
	var opts remoteRunOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Upload a SAS program, run it in batch mode and download the log",
		Long: `Upload a SAS program over SSH, run it in batch mode and download the
resulting log. The process exits with the SAS exit status, so warnings (1)
and errors (2) reach the caller. With --analyze the downloaded log is
triaged as by the analyze command before exiting.`,
		Example: `  sastriage remote run --script tests/run_tests.sas --host sas01 --user etl
  sastriage remote run --script tests/run_tests.sas --analyze`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemote(cmd, a, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.script, "script", "", "local SAS program to run")
	f.StringVar(&opts.host, "host", "", "SSH host (default from remote.host)")
	f.IntVar(&opts.port, "port", remote.DefaultPort, "SSH port")
	f.StringVar(&opts.user, "user", "", "SSH user (default from remote.user)")
	f.StringVar(&opts.password, "password-file", "", "file holding the SSH password; prompts when unset")
	f.StringVar(&opts.knownHost, "known-hosts", "", "known_hosts file used to verify the host key")
	f.StringVar(&opts.remoteDir, "remote-dir", remote.DefaultRemoteDir, "remote working directory")
	f.StringVar(&opts.sas, "sas", remote.DefaultSASCommand, "remote SAS executable")
	f.StringVar(&opts.logName, "log-name", remote.DefaultLogName, "name of the log file")
	f.StringVar(&opts.download, "download-dir", ".", "local directory for the downloaded log")
	f.BoolVar(&opts.analyze, "analyze", false, "analyze the downloaded log")
	f.BoolVar(&opts.noHistory, "no-history", false, "do not record the analysis")
	_ = cmd.MarkFlagRequired("script")
	return cmd
}

// remoteConfig applies changed flags over the configured remote settings.
func remoteConfig(cmd *cobra.Command, a *app, opts remoteRunOptions) remote.Config {
	cfg := a.cfg.Remote
	set := func(flag string, target *string, value string) {
		if changed(cmd, flag) {
			*target = value
		}
	}
	set("host", &cfg.Host, opts.host)
	set("user", &cfg.User, opts.user)
	set("password-file", &cfg.PasswordFile, opts.password)
	set("known-hosts", &cfg.KnownHosts, opts.knownHost)
	set("remote-dir", &cfg.RemoteDir, opts.remoteDir)
	set("sas", &cfg.SASCommand, opts.sas)
	set("log-name", &cfg.LogName, opts.logName)
	set("download-dir", &cfg.DownloadDir, opts.download)
	if changed(cmd, "port") {
		cfg.Port = opts.port
	}

	for _, p := range []*string{&cfg.PasswordFile, &cfg.KnownHosts, &cfg.DownloadDir} {
		if *p != "" {
			*p = paths.Resolve(a.root, *p)
		}
	}
	if cfg.DownloadDir == "" {
		cfg.DownloadDir = a.root
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = remote.DefaultTimeout
	}
	return cfg
}

func runRemote(cmd *cobra.Command, a *app, opts remoteRunOptions) error {
	ctx := cmd.Context()
	cfg := remoteConfig(cmd, a, opts)

	dialCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	exec, err := dialRemote(dialCtx, cfg, a.logger)
	cancel()
	if err != nil {
		return err
	}
	defer exec.Close()

	runner := remote.NewRunner(cfg, exec, a.logger)
	runner.Stdout, runner.Stderr = a.stdout, a.stderr
	res, err := runner.Run(ctx, paths.Resolve(a.root, opts.script))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Downloaded log to: %s\n", a.displayPath(res.LocalLog))
	if res.ExitStatus != 0 {
		fmt.Fprintln(a.stdout, a.palette.warn(fmt.Sprintf("SAS exited with status %d", res.ExitStatus)))
	}

	if opts.analyze {
		if err := analyzeDownloaded(cmd, a, res.LocalLog, opts.noHistory); err != nil {
			return err
		}
	}
	if res.ExitStatus != 0 {
		return &exitError{code: res.ExitStatus}
	}
	return nil
}

func analyzeDownloaded(cmd *cobra.Command, a *app, logPath string, noHistory bool) error {
	b, _, err := a.loadBaseline("")
	if err != nil {
		return err
	}
	analyzer, err := a.newAnalyzer(b)
	if err != nil {
		return err
	}
	res, err := analyzer.Analyze(cmd.Context(), logPath)
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
	return a.emit(cmd.Context(), res, analyzer.Classifier, a.reportPaths().ForLog(logPath), store)
}
