package testsupport

import (
	"path/filepath"
	"testing"

	"oreminer/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.RunDir = filepath.Join(base, "run")
	cfg.Paths.LogDir = filepath.Join(base, "run", "logs")
	cfg.Miner.Keypair = filepath.Join(base, "id.json")
	cfg.Miner.RPCURL = "https://api.mainnet-beta.solana.com"

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithMinerBinary overrides the ore-cli binary on the test config.
func WithMinerBinary(binary string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Miner.Binary = binary
	}
}

// WithNtfyTopic sets the notification topic on the test config.
func WithNtfyTopic(topic string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Notifications.NtfyTopic = topic
	}
}
