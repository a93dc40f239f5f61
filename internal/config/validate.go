package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateMiner(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateMiner() error {
	if c.Miner.Cores < 1 {
		return errors.New("miner.cores must be at least 1")
	}
	if c.Miner.Keypair == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/oreminer/config.toml"
		}
		return fmt.Errorf("miner.keypair is required. Pass --keypair or edit %s (create with 'oreminer config init')", defaultPath)
	}
	if c.Miner.RPCURL == "" {
		return errors.New("miner.rpc_url is required. Pass --rpc or set it in the config file")
	}
	if err := validateURL("miner.rpc_url", c.Miner.RPCURL); err != nil {
		return err
	}
	if c.Miner.DynamicFee && c.Miner.DynamicFeeURL == "" {
		return errors.New("miner.dynamic_fee_url must be set when miner.dynamic_fee is enabled")
	}
	if c.Miner.DynamicFeeURL != "" {
		if err := validateURL("miner.dynamic_fee_url", c.Miner.DynamicFeeURL); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout < 0 {
		return errors.New("notifications.request_timeout must not be negative")
	}
	if topic := strings.TrimSpace(c.Notifications.NtfyTopic); topic != "" {
		if err := validateURL("notifications.ntfy_topic", topic); err != nil {
			return err
		}
	}
	return nil
}

func validateURL(key, value string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: invalid url %q: %w", key, value, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s: url %q must use http or https", key, value)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s: url %q is missing a host", key, value)
	}
	return nil
}
