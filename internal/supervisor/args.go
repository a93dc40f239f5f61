package supervisor

import (
	"strconv"
	"strings"

	"oreminer/internal/config"
)

// MinerArgs builds the ore-cli argument vector from the miner configuration.
// Optional flags are appended only when configured so the child sees the same
// command line an operator would type.
func MinerArgs(cfg *config.Config) []string {
	args := []string{
		"mine",
		"--cores", strconv.Itoa(cfg.Miner.Cores),
		"--keypair", cfg.Miner.Keypair,
		"--rpc", cfg.Miner.RPCURL,
	}
	if fp := strings.TrimSpace(cfg.Miner.FeePayer); fp != "" {
		args = append(args, "--fee-payer", fp)
	}
	if cfg.Miner.DynamicFee {
		args = append(args, "--dynamic-fee")
	}
	if u := strings.TrimSpace(cfg.Miner.DynamicFeeURL); u != "" {
		args = append(args, "--dynamic-fee-url", u)
	}
	return args
}
