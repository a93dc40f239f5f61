package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"oreminer/internal/config"
	"oreminer/internal/daemonrun"
)

// minerOverrides collects the miner flags a `start` invocation forwards to
// the daemon process. Flags left unset keep the configured values.
type minerOverrides struct {
	cores         int
	keypair       string
	feePayer      string
	rpcURL        string
	dynamicFee    bool
	dynamicFeeURL string
}

func (m *minerOverrides) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&m.cores, "cores", 0, "Number of CPU cores ore-cli may use")
	cmd.Flags().StringVar(&m.keypair, "keypair", "", "Path to the mining identity keypair")
	cmd.Flags().StringVar(&m.feePayer, "fee-payer", "", "Path to the fee payer keypair")
	cmd.Flags().StringVar(&m.rpcURL, "rpc", "", "Solana RPC endpoint URL")
	cmd.Flags().BoolVar(&m.dynamicFee, "dynamic-fee", false, "Enable dynamic priority fees")
	cmd.Flags().StringVar(&m.dynamicFeeURL, "dynamic-fee-url", "", "Dynamic fee estimation endpoint URL")
}

func (m *minerOverrides) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("cores") {
		cfg.Miner.Cores = m.cores
	}
	if keypair := strings.TrimSpace(m.keypair); keypair != "" {
		cfg.Miner.Keypair = keypair
	}
	if feePayer := strings.TrimSpace(m.feePayer); feePayer != "" {
		cfg.Miner.FeePayer = feePayer
	}
	if rpcURL := strings.TrimSpace(m.rpcURL); rpcURL != "" {
		cfg.Miner.RPCURL = rpcURL
	}
	if cmd.Flags().Changed("dynamic-fee") {
		cfg.Miner.DynamicFee = m.dynamicFee
	}
	if feeURL := strings.TrimSpace(m.dynamicFeeURL); feeURL != "" {
		cfg.Miner.DynamicFeeURL = feeURL
	}
}

// forward converts the set flags back into command-line arguments for the
// spawned daemon process.
func (m *minerOverrides) forward(cmd *cobra.Command) []string {
	var args []string
	if cmd.Flags().Changed("cores") {
		args = append(args, "--cores", cmd.Flags().Lookup("cores").Value.String())
	}
	if keypair := strings.TrimSpace(m.keypair); keypair != "" {
		args = append(args, "--keypair", keypair)
	}
	if feePayer := strings.TrimSpace(m.feePayer); feePayer != "" {
		args = append(args, "--fee-payer", feePayer)
	}
	if rpcURL := strings.TrimSpace(m.rpcURL); rpcURL != "" {
		args = append(args, "--rpc", rpcURL)
	}
	if cmd.Flags().Changed("dynamic-fee") && m.dynamicFee {
		args = append(args, "--dynamic-fee")
	}
	if feeURL := strings.TrimSpace(m.dynamicFeeURL); feeURL != "" {
		args = append(args, "--dynamic-fee-url", feeURL)
	}
	return args
}

// effectiveConfig returns a copy of cfg with the command's miner flags
// applied, validated as a runnable miner configuration. Flags can complete
// a [miner] section the config file leaves empty.
func (m *minerOverrides) effectiveConfig(cmd *cobra.Command, cfg *config.Config) (*config.Config, error) {
	if cfg == nil {
		return nil, errors.New("configuration not available")
	}
	effective := *cfg
	m.apply(cmd, &effective)
	if err := effective.Validate(); err != nil {
		return nil, err
	}
	return &effective, nil
}

func newDaemonRunCommand(ctx *commandContext) *cobra.Command {
	var logLevel string
	overrides := &minerOverrides{}

	cmd := &cobra.Command{
		Use:          "daemon",
		Short:        "Run the oreminer daemon (internal)",
		Hidden:       true,
		Annotations:  map[string]string{"skipConfigLoad": "true"},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			overrides.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel: logLevel,
			})
		},
	}

	overrides.register(cmd)
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
	return cmd
}
