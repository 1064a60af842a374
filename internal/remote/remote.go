// Package remote uploads a SAS program to a host over SSH, runs it in batch
// mode and downloads the resulting log.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
	"golang.org/x/term"

	triageerrors "sastriage/internal/errors"
	"sastriage/internal/slogutil"
)

// Defaults applied by Config.withDefaults.
const (
	DefaultPort       = 22
	DefaultSASCommand = "/sas/install/SASHome9.5/SASFoundation/9.4/bin/sas_u8"
	DefaultRemoteDir  = "sastriage"
	DefaultLogName    = "run_tests.log"
	DefaultTimeout    = 30 * time.Second
)

// Config describes one remote run.
type Config struct {
	Host         string        `json:"host" mapstructure:"host"`
	Port         int           `json:"port" mapstructure:"port"`
	User         string        `json:"user" mapstructure:"user"`
	PasswordFile string        `json:"passwordFile" mapstructure:"passwordFile"`
	KnownHosts   string        `json:"knownHosts" mapstructure:"knownHosts"`
	RemoteDir    string        `json:"remoteDir" mapstructure:"remoteDir"`
	SASCommand   string        `json:"sasCommand" mapstructure:"sasCommand"`
	LogName      string        `json:"logName" mapstructure:"logName"`
	DownloadDir  string        `json:"downloadDir" mapstructure:"downloadDir"`
	Timeout      time.Duration `json:"timeout" mapstructure:"timeout"`
}

func (c Config) withDefaults() Config {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.SASCommand == "" {
		c.SASCommand = DefaultSASCommand
	}
	if c.RemoteDir == "" {
		c.RemoteDir = DefaultRemoteDir
	}
	if c.LogName == "" {
		c.LogName = DefaultLogName
	}
	if c.DownloadDir == "" {
		c.DownloadDir = "."
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Validate checks the fields a connection needs.
func (c Config) Validate() error {
	var missing []string
	if c.Host == "" {
		missing = append(missing, "remote.host")
	}
	if c.User == "" {
		missing = append(missing, "remote.user")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing %s", strings.Join(missing, ", "))
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("remote.port %d out of range", c.Port)
	}
	return nil
}

// Result describes a finished remote run.
type Result struct {
	ExitStatus   int
	RemoteScript string
	RemoteLog    string
	LocalLog     string
}

// Executor runs one shell command on the remote host and returns its exit
// status. A non-zero status is not an error.
type Executor interface {
	Exec(ctx context.Context, cmd string, stdin io.Reader, stdout, stderr io.Writer) (int, error)
	Close() error
}

// Runner drives the upload, run and download steps.
type Runner struct {
	cfg    Config
	exec   Executor
	logger *slog.Logger

	// Stdout and Stderr receive the SAS process output.
	Stdout io.Writer
	Stderr io.Writer
}

// NewRunner wraps an established executor.
func NewRunner(cfg Config, exec Executor, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &Runner{cfg: cfg.withDefaults(), exec: exec, logger: logger, Stdout: io.Discard, Stderr: io.Discard}
}

// Run uploads localScript, executes it and downloads the log. The returned
// Result carries the SAS exit status; err is set only when a step could not
// be carried out.
func (r *Runner) Run(ctx context.Context, localScript string) (Result, error) {
	script, err := os.Open(localScript)
	if err != nil {
		return Result{}, failed(fmt.Sprintf("local script not found: %s", localScript), err)
	}
	defer script.Close()

	remoteDir := strings.TrimRight(r.cfg.RemoteDir, "/")
	if remoteDir == "" {
		remoteDir = "/"
	}
	res := Result{
		RemoteScript: path.Join(remoteDir, filepath.Base(localScript)),
		RemoteLog:    path.Join(remoteDir, r.cfg.LogName),
		LocalLog:     filepath.Join(r.cfg.DownloadDir, r.cfg.LogName),
	}

	upload := fmt.Sprintf("mkdir -p %s && cat > %s", ShellQuote(remoteDir), ShellQuote(res.RemoteScript))
	if err := r.mustSucceed(ctx, upload, script, io.Discard); err != nil {
		return res, failed("upload failed", err)
	}
	r.logger.Debug("Uploaded script", "local", localScript, "remote", res.RemoteScript)

	cmd := BuildCommand(r.cfg.SASCommand, res.RemoteScript, res.RemoteLog)
	r.logger.Info("Running SAS", "host", r.cfg.Host, "command", cmd)
	start := time.Now()
	status, err := r.exec.Exec(ctx, cmd, nil, r.Stdout, r.Stderr)
	if err != nil {
		return res, failed("remote command failed", err)
	}
	res.ExitStatus = status
	r.logger.Info("SAS finished", "exit_status", status, "duration", time.Since(start).Round(time.Millisecond))

	if err := os.MkdirAll(r.cfg.DownloadDir, 0o755); err != nil {
		return res, failed("cannot create download directory", err)
	}
	if err := r.download(ctx, res.RemoteLog, res.LocalLog); err != nil {
		return res, failed("download failed", err)
	}
	r.logger.Info("Downloaded log", "path", res.LocalLog)
	return res, nil
}

func (r *Runner) download(ctx context.Context, remotePath, localPath string) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(localPath), "."+filepath.Base(localPath)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = r.mustSucceed(ctx, "cat "+ShellQuote(remotePath), nil, tmp); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), localPath)
}

func (r *Runner) mustSucceed(ctx context.Context, cmd string, stdin io.Reader, stdout io.Writer) error {
	var stderr strings.Builder
	status, err := r.exec.Exec(ctx, cmd, stdin, stdout, &stderr)
	if err != nil {
		return err
	}
	if status != 0 {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return fmt.Errorf("%q exited with status %d", cmd, status)
		}
		return fmt.Errorf("%q exited with status %d: %s", cmd, status, msg)
	}
	return nil
}

// BuildCommand returns the batch invocation of sas for script, writing the
// log to logPath and listing output next to it.
func BuildCommand(sas, script, logPath string) string {
	return fmt.Sprintf("%s -sysin %s -log %s -print %s",
		ShellQuote(sas), ShellQuote(script), ShellQuote(logPath), ShellQuote(logPath+".lst"))
}

var shellSafe = regexp.MustCompile(`^[A-Za-z0-9@%_+=:,./-]+$`)

// ShellQuote quotes s for a POSIX shell. Words made only of safe characters
// are returned unchanged.
func ShellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if shellSafe.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// ReadPasswordFile returns the contents of path without surrounding whitespace.
func ReadPasswordFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Dial connects to cfg.Host with password authentication. The password comes
// from cfg.PasswordFile or, when that is empty, an interactive prompt.
func Dial(ctx context.Context, cfg Config, logger *slog.Logger) (Executor, error) {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, triageerrors.NewTriageError(triageerrors.ConfigInvalid, "incomplete remote configuration", err)
	}

	password, err := resolvePassword(cfg)
	if err != nil {
		return nil, failed("cannot read password", err)
	}

	hostKey, err := hostKeyCallback(cfg, logger)
	if err != nil {
		return nil, failed("cannot load known hosts", err)
	}

	clientCfg := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{ssh.Password(password)},
		HostKeyCallback: hostKey,
		Timeout:         cfg.Timeout,
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	dialer := net.Dialer{Timeout: cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, failed(fmt.Sprintf("cannot reach %s", addr), err)
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, clientCfg)
	if err != nil {
		_ = conn.Close()
		return nil, failed(fmt.Sprintf("ssh handshake with %s failed", addr), err)
	}
	logger.Debug("Connected", "addr", addr, "user", cfg.User)
	return &sshExecutor{client: ssh.NewClient(c, chans, reqs)}, nil
}

func resolvePassword(cfg Config) (string, error) {
	if cfg.PasswordFile != "" {
		return ReadPasswordFile(cfg.PasswordFile)
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("no password file configured and stdin is not a terminal")
	}
	fmt.Fprintf(os.Stderr, "%s@%s's password: ", cfg.User, cfg.Host)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

func hostKeyCallback(cfg Config, logger *slog.Logger) (ssh.HostKeyCallback, error) {
	if cfg.KnownHosts != "" {
		return knownhosts.New(cfg.KnownHosts)
	}
	logger.Warn("Host key not verified; set remote.knownHosts to pin it", "host", cfg.Host)
	return ssh.InsecureIgnoreHostKey(), nil
}

type sshExecutor struct {
	client *ssh.Client
}

func (e *sshExecutor) Exec(ctx context.Context, cmd string, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	session, err := e.client.NewSession()
	if err != nil {
		return 0, err
	}
	defer session.Close()

	session.Stdin = stdin
	session.Stdout = stdout
	session.Stderr = stderr

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = session.Signal(ssh.SIGTERM)
			_ = session.Close()
		case <-done:
		}
	}()

	err = session.Run(cmd)
	var exitErr *ssh.ExitError
	switch {
	case err == nil:
		return 0, nil
	case errors.As(err, &exitErr):
		return exitErr.ExitStatus(), nil
	case ctx.Err() != nil:
		return 0, ctx.Err()
	default:
		return 0, err
	}
}

func (e *sshExecutor) Close() error { return e.client.Close() }

func failed(msg string, err error) error {
	return triageerrors.NewTriageError(triageerrors.RemoteFailed, msg, err)
}
