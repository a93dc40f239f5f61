package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration for the supervisor run state.
type Paths struct {
	// RunDir holds the pid file, the raw miner capture files, the metrics
	// database, the IPC socket, and the instance lock.
	RunDir string `toml:"run_dir"`
	// LogDir holds rotated structured supervisor logs.
	LogDir string `toml:"log_dir"`
}

// Miner contains the ore-cli invocation parameters.
type Miner struct {
	Binary        string `toml:"binary"`
	Cores         int    `toml:"cores"`
	Keypair       string `toml:"keypair"`
	FeePayer      string `toml:"fee_payer"`
	RPCURL        string `toml:"rpc_url"`
	DynamicFee    bool   `toml:"dynamic_fee"`
	DynamicFeeURL string `toml:"dynamic_fee_url"`
}

// Supervisor contains restart and shutdown timing knobs.
type Supervisor struct {
	RestartBackoffSeconds    int `toml:"restart_backoff_seconds"`
	MaxRestartBackoffSeconds int `toml:"max_restart_backoff_seconds"`
	MaxRestarts              int `toml:"max_restarts"`
	StopGraceSeconds         int `toml:"stop_grace_seconds"`
	HealthIntervalSeconds    int `toml:"health_interval_seconds"`
}

// Metrics contains configuration for the local metrics store.
type Metrics struct {
	Enabled       bool `toml:"enabled"`
	RetentionDays int  `toml:"retention_days"`
}

// Notifications contains ntfy push notification settings.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for the oreminer supervisor.
//
// Configuration sections by subsystem:
//   - Paths: run directory and structured log directory
//   - Miner: ore-cli binary location and mining flags
//   - Supervisor: child restart backoff and shutdown grace
//   - Metrics: local metrics store toggle and retention
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Miner         Miner         `toml:"miner"`
	Supervisor    Supervisor    `toml:"supervisor"`
	Metrics       Metrics       `toml:"metrics"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/oreminer/config.toml")
}

// Load locates and parses a configuration file. The returned config has all
// path fields expanded and normalized but is not validated: the miner section
// may be completed by command-line flags, so callers that need a runnable
// miner configuration call Validate after applying their overrides.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("oreminer.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the run and log directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.RunDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// PIDFilePath returns the daemon pid file location inside the run directory.
func (c *Config) PIDFilePath() string {
	return filepath.Join(c.Paths.RunDir, "process.pid")
}

// StdoutLogPath returns the raw miner stdout capture file.
func (c *Config) StdoutLogPath() string {
	return filepath.Join(c.Paths.RunDir, "daemon.log")
}

// StderrLogPath returns the raw miner stderr capture file.
func (c *Config) StderrLogPath() string {
	return filepath.Join(c.Paths.RunDir, "daemon.err")
}

// SocketPath returns the IPC unix socket location.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.RunDir, "oreminer.sock")
}

// LockFilePath returns the flock path guarding single-instance execution.
func (c *Config) LockFilePath() string {
	return filepath.Join(c.Paths.RunDir, "oreminer.lock")
}

// MetricsDBPath returns the SQLite metrics database location.
func (c *Config) MetricsDBPath() string {
	return filepath.Join(c.Paths.RunDir, "metrics.db")
}

// MinerBinary returns the ore-cli executable name.
func (c *Config) MinerBinary() string {
	if strings.TrimSpace(c.Miner.Binary) == "" {
		return defaultMinerBinary
	}
	return c.Miner.Binary
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
