package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"oreminer/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the [miner] section to point at your ore binary and keypair before starting.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "show",
		Short:       "Show the resolved configuration",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := ""
			if ctx.configFlag != nil {
				configPath = strings.TrimSpace(*ctx.configFlag)
			}
			cfg, path, exists, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			for _, line := range renderSectionHeader("Configuration", colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderStatusLine("Config file", statusInfo, path, colorize))
			if !exists {
				fmt.Fprintln(out, renderStatusLine("Source", statusWarn, "file not found; defaults in effect", colorize))
			}
			fmt.Fprintln(out, renderStatusLine("Run directory", statusInfo, cfg.Paths.RunDir, colorize))
			fmt.Fprintln(out, renderStatusLine("Log directory", statusInfo, cfg.Paths.LogDir, colorize))
			fmt.Fprintln(out, renderStatusLine("Miner binary", statusInfo, cfg.MinerBinary(), colorize))
			fmt.Fprintln(out, renderStatusLine("Cores", statusInfo, fmt.Sprintf("%d", cfg.Miner.Cores), colorize))
			fmt.Fprintln(out, renderStatusLine("Keypair", statusInfo, cfg.Miner.Keypair, colorize))
			if cfg.Miner.FeePayer != "" {
				fmt.Fprintln(out, renderStatusLine("Fee payer", statusInfo, cfg.Miner.FeePayer, colorize))
			}
			fmt.Fprintln(out, renderStatusLine("RPC endpoint", statusInfo, cfg.Miner.RPCURL, colorize))
			fmt.Fprintln(out, renderStatusLine("Dynamic fee", statusInfo, yesNo(cfg.Miner.DynamicFee), colorize))
			if cfg.Miner.DynamicFeeURL != "" {
				fmt.Fprintln(out, renderStatusLine("Dynamic fee URL", statusInfo, cfg.Miner.DynamicFeeURL, colorize))
			}
			fmt.Fprintln(out, renderStatusLine("Metrics", statusInfo, yesNo(cfg.Metrics.Enabled), colorize))
			fmt.Fprintln(out, renderStatusLine("Notifications", statusInfo, yesNo(cfg.Notifications.NtfyTopic != ""), colorize))
			fmt.Fprintln(out, renderStatusLine("Log level", statusInfo, cfg.Logging.Level, colorize))
			fmt.Fprintln(out, renderStatusLine("Log format", statusInfo, cfg.Logging.Format, colorize))
			return nil
		},
	}
}
