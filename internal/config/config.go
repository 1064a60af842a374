package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	triageerrors "sastriage/internal/errors"
	"sastriage/internal/paths"
	"sastriage/internal/remote"
	"sastriage/internal/slogutil"
)

// CurrentVersion is the config schema version written by Save.
const CurrentVersion = 1

// EnvPrefix prefixes every environment override, e.g. SASTRIAGE_LOG_PATH.
const EnvPrefix = "SASTRIAGE"

// Config represents the complete sastriage configuration
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	Log        LogConfig        `json:"log" mapstructure:"log"`
	Report     ReportConfig     `json:"report" mapstructure:"report"`
	Baseline   BaselineConfig   `json:"baseline" mapstructure:"baseline"`
	Strict     bool             `json:"strict" mapstructure:"strict"`
	Jobs       int              `json:"jobs" mapstructure:"jobs"`
	Classifier ClassifierConfig `json:"classifier" mapstructure:"classifier"`
	History    HistoryConfig    `json:"history" mapstructure:"history"`
	Logging    LoggingConfig    `json:"logging" mapstructure:"logging"`
	Remote     remote.Config    `json:"remote" mapstructure:"remote"`
	Hardening  HardeningConfig  `json:"hardening" mapstructure:"hardening"`
	Watch      WatchConfig      `json:"watch" mapstructure:"watch"`
}

// LogConfig names the default SAS log to analyze
type LogConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// ReportConfig contains report output paths; an empty path skips that format
type ReportConfig struct {
	Markdown string `json:"markdown" mapstructure:"markdown"`
	JSON     string `json:"json" mapstructure:"json"`
	YAML     string `json:"yaml" mapstructure:"yaml"`
}

// BaselineConfig points at a baseline file; empty means the built-in reference
type BaselineConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// ClassifierConfig contains classifier tuning
type ClassifierConfig struct {
	CacheSize int `json:"cacheSize" mapstructure:"cacheSize"`
}

// HistoryConfig controls run recording
type HistoryConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" mapstructure:"path"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `json:"level" mapstructure:"level"`
	Format     string `json:"format" mapstructure:"format"`
	File       string `json:"file" mapstructure:"file"`
	MaxSize    string `json:"maxSize" mapstructure:"maxSize"`
	MaxBackups int    `json:"maxBackups" mapstructure:"maxBackups"`
}

// HardeningConfig locates the source tree and optional custom checks
type HardeningConfig struct {
	Root   string `json:"root" mapstructure:"root"`
	Checks string `json:"checks" mapstructure:"checks"`
}

// WatchConfig contains watch mode settings
type WatchConfig struct {
	Debounce time.Duration `json:"debounce" mapstructure:"debounce"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Log: LogConfig{
			Path: "log-with-errors.txt",
		},
		Report: ReportConfig{
			Markdown: "reports/log-with-errors.pass1.md",
			JSON:     "reports/log-with-errors.pass1.json",
		},
		Jobs: 4,
		Classifier: ClassifierConfig{
			CacheSize: 1024,
		},
		History: HistoryConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Format:     "text",
			MaxSize:    "10MB",
			MaxBackups: 3,
		},
		Remote: remote.Config{
			Port:       remote.DefaultPort,
			RemoteDir:  remote.DefaultRemoteDir,
			SASCommand: remote.DefaultSASCommand,
			LogName:    remote.DefaultLogName,
			Timeout:    remote.DefaultTimeout,
		},
		Hardening: HardeningConfig{
			Root: ".",
		},
		Watch: WatchConfig{
			Debounce: 2 * time.Second,
		},
	}
}

// setDefaults registers every key so environment overrides reach Unmarshal.
func setDefaults(v *viper.Viper, d *Config) {
	defaults := map[string]any{
		"version":              d.Version,
		"log.path":             d.Log.Path,
		"report.markdown":      d.Report.Markdown,
		"report.json":          d.Report.JSON,
		"report.yaml":          d.Report.YAML,
		"baseline.path":        d.Baseline.Path,
		"strict":               d.Strict,
		"jobs":                 d.Jobs,
		"classifier.cacheSize": d.Classifier.CacheSize,
		"history.enabled":      d.History.Enabled,
		"history.path":         d.History.Path,
		"logging.level":        d.Logging.Level,
		"logging.format":       d.Logging.Format,
		"logging.file":         d.Logging.File,
		"logging.maxSize":      d.Logging.MaxSize,
		"logging.maxBackups":   d.Logging.MaxBackups,
		"remote.host":          d.Remote.Host,
		"remote.port":          d.Remote.Port,
		"remote.user":          d.Remote.User,
		"remote.passwordFile":  d.Remote.PasswordFile,
		"remote.knownHosts":    d.Remote.KnownHosts,
		"remote.remoteDir":     d.Remote.RemoteDir,
		"remote.sasCommand":    d.Remote.SASCommand,
		"remote.logName":       d.Remote.LogName,
		"remote.downloadDir":   d.Remote.DownloadDir,
		"remote.timeout":       d.Remote.Timeout,
		"hardening.root":       d.Hardening.Root,
		"hardening.checks":     d.Hardening.Checks,
		"watch.debounce":       d.Watch.Debounce,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// LoadResult contains the loaded config and where it came from
type LoadResult struct {
	Config       *Config
	ConfigPath   string // empty when no config file was read
	EnvFile      string // .env file that was loaded, if any
	UsedDefaults bool
}

// Load reads configuration for the project at repoRoot. Sources, lowest
// precedence first: defaults, .sastriage/config.json (or configPath, or
// $SASTRIAGE_CONFIG_PATH), then SASTRIAGE_* environment variables. A .env
// file in repoRoot is loaded into the environment first without replacing
// variables that are already set.
func Load(repoRoot, configPath string) (*LoadResult, error) {
	result := &LoadResult{}

	envFile := filepath.Join(repoRoot, ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, invalid(fmt.Sprintf("cannot load %s", envFile), err)
		}
		result.EnvFile = envFile
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath == "" {
		configPath = os.Getenv(EnvPrefix + "_CONFIG_PATH")
	}
	explicit := configPath != ""
	if !explicit {
		configPath = paths.ConfigPath(repoRoot)
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound), errors.Is(err, os.ErrNotExist):
			if explicit {
				return nil, invalid(fmt.Sprintf("config file %s not found", configPath), err)
			}
			result.UsedDefaults = true
		default:
			return nil, invalid(fmt.Sprintf("cannot parse %s", configPath), err)
		}
	} else {
		result.ConfigPath = configPath
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, invalid("cannot decode configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, invalid("invalid configuration", err)
	}
	result.Config = &cfg
	return result, nil
}

// Save writes the configuration to .sastriage/config.json
func (c *Config) Save(repoRoot string) error {
	if _, err := paths.EnsureWorkspaceDir(repoRoot); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(paths.ConfigPath(repoRoot), append(data, '\n'), 0o644)
}

// HistoryPath returns the history database path for repoRoot.
func (c *Config) HistoryPath(repoRoot string) string {
	if c.History.Path == "" {
		return paths.HistoryDBPath(repoRoot)
	}
	return paths.Resolve(repoRoot, c.History.Path)
}

var (
	validLevels  = []string{"", "debug", "info", "warn", "warning", "error"}
	validFormats = []string{"text", "json"}
)

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: fmt.Sprintf("unsupported config version %d", c.Version)}
	}
	if c.Jobs < 0 {
		return &ConfigError{Field: "jobs", Message: "must not be negative"}
	}
	if c.Classifier.CacheSize < 0 {
		return &ConfigError{Field: "classifier.cacheSize", Message: "must not be negative"}
	}
	if !slices.Contains(validLevels, strings.ToLower(c.Logging.Level)) {
		return &ConfigError{Field: "logging.level", Message: fmt.Sprintf("unknown level %q", c.Logging.Level)}
	}
	if !slices.Contains(validFormats, strings.ToLower(c.Logging.Format)) {
		return &ConfigError{Field: "logging.format", Message: fmt.Sprintf("unknown format %q (want text or json)", c.Logging.Format)}
	}
	if c.Logging.MaxSize != "" && slogutil.ParseSize(c.Logging.MaxSize) <= 0 {
		return &ConfigError{Field: "logging.maxSize", Message: fmt.Sprintf("cannot parse size %q", c.Logging.MaxSize)}
	}
	if c.Logging.MaxBackups < 0 {
		return &ConfigError{Field: "logging.maxBackups", Message: "must not be negative"}
	}
	if c.Remote.Port < 0 || c.Remote.Port > 65535 {
		return &ConfigError{Field: "remote.port", Message: fmt.Sprintf("port %d out of range", c.Remote.Port)}
	}
	if c.Watch.Debounce < 0 {
		return &ConfigError{Field: "watch.debounce", Message: "must not be negative"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}

func invalid(msg string, err error) error {
	return triageerrors.NewTriageError(triageerrors.ConfigInvalid, msg, err)
}
