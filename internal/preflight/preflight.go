package preflight

import (
	"context"

	"oreminer/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Run directory", cfg.Paths.RunDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	results = append(results, CheckMinerBinary(cfg.MinerBinary()))
	results = append(results, CheckKeypairFile("Keypair", cfg.Miner.Keypair))

	if cfg.Miner.FeePayer != "" {
		results = append(results, CheckKeypairFile("Fee payer keypair", cfg.Miner.FeePayer))
	}

	results = append(results, CheckRPCEndpoint(ctx, cfg.Miner.RPCURL))

	if cfg.Miner.DynamicFee && cfg.Miner.DynamicFeeURL != "" {
		results = append(results, CheckHTTPEndpoint(ctx, "Dynamic fee endpoint", cfg.Miner.DynamicFeeURL))
	}

	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}
