package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeMiner(); err != nil {
		return err
	}
	c.normalizeSupervisor()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.RunDir) == "" {
		c.Paths.RunDir = defaultRunDir
	}
	if c.Paths.RunDir, err = expandPath(c.Paths.RunDir); err != nil {
		return fmt.Errorf("paths.run_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = c.Paths.RunDir + "/logs"
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeMiner() error {
	var err error
	c.Miner.Binary = strings.TrimSpace(c.Miner.Binary)
	c.Miner.RPCURL = strings.TrimSpace(c.Miner.RPCURL)
	c.Miner.DynamicFeeURL = strings.TrimSpace(c.Miner.DynamicFeeURL)
	if c.Miner.Keypair = strings.TrimSpace(c.Miner.Keypair); c.Miner.Keypair != "" {
		if c.Miner.Keypair, err = expandPath(c.Miner.Keypair); err != nil {
			return fmt.Errorf("miner.keypair: %w", err)
		}
	}
	if c.Miner.FeePayer = strings.TrimSpace(c.Miner.FeePayer); c.Miner.FeePayer != "" {
		if c.Miner.FeePayer, err = expandPath(c.Miner.FeePayer); err != nil {
			return fmt.Errorf("miner.fee_payer: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeSupervisor() {
	if c.Supervisor.RestartBackoffSeconds <= 0 {
		c.Supervisor.RestartBackoffSeconds = defaultRestartBackoffSeconds
	}
	if c.Supervisor.MaxRestartBackoffSeconds <= 0 {
		c.Supervisor.MaxRestartBackoffSeconds = defaultMaxRestartBackoffSeconds
	}
	if c.Supervisor.MaxRestartBackoffSeconds < c.Supervisor.RestartBackoffSeconds {
		c.Supervisor.MaxRestartBackoffSeconds = c.Supervisor.RestartBackoffSeconds
	}
	if c.Supervisor.StopGraceSeconds <= 0 {
		c.Supervisor.StopGraceSeconds = defaultStopGraceSeconds
	}
	if c.Supervisor.HealthIntervalSeconds <= 0 {
		c.Supervisor.HealthIntervalSeconds = defaultHealthIntervalSeconds
	}
	if c.Supervisor.MaxRestarts < 0 {
		c.Supervisor.MaxRestarts = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
	if c.Metrics.RetentionDays < 0 {
		c.Metrics.RetentionDays = 0
	}
}
