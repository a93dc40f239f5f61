package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"oreminer/internal/daemonctl"
	"oreminer/internal/ipc"
	"oreminer/internal/preflight"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startOverrides := &minerOverrides{}
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the oreminer daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			cfg, err := startOverrides.effectiveConfig(cmd, ctx.configValue())
			if err != nil {
				return err
			}
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			opts := daemonLaunchOptions(ctx)
			opts.MinerArgs = startOverrides.forward(cmd)

			result, err := daemonctl.EnsureStarted(
				ctx.socketPath(),
				cfg,
				exe,
				opts,
				10*time.Second,
			)
			if err != nil {
				return err
			}

			if result.Launched {
				fmt.Fprintln(stdout, "Daemon not running, launching...")
			}

			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintln(stdout, "Daemon started")
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon already running")
			case daemonctl.StartStateRequested:
				if strings.TrimSpace(result.Message) != "" {
					fmt.Fprintln(stdout, result.Message)
					return nil
				}
				fmt.Fprintln(stdout, "Start request sent")
			}
			return nil
		},
	}
	startOverrides.register(startCmd)

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the oreminer daemon (terminates the mining process)",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(ctx.socketPath(), ctx.configValue(), 5*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if !result.StopAcknowledged {
				fmt.Fprintln(stdout, "Stop request sent")
			} else {
				fmt.Fprintln(stdout, "Stopping miner supervision...")
			}
			if result.ForcedKill && result.PID > 0 {
				fmt.Fprintf(stdout, "Stopping daemon process (pid %d)...\n", result.PID)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	var restartMiner bool
	restartOverrides := &minerOverrides{}
	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the oreminer daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()

			if restartMiner {
				return ctx.withClient(func(client *ipc.Client) error {
					resp, err := client.MinerRestart()
					if err != nil {
						return fmt.Errorf("restart miner: %w", err)
					}
					if resp == nil {
						return errors.New("miner restart response missing")
					}
					if resp.Restarted {
						fmt.Fprintln(stdout, "Miner restart requested")
					} else if strings.TrimSpace(resp.Message) != "" {
						fmt.Fprintln(stdout, resp.Message)
					} else {
						fmt.Fprintln(stdout, "Miner restart rejected")
					}
					return nil
				})
			}

			cfg, err := restartOverrides.effectiveConfig(cmd, ctx.configValue())
			if err != nil {
				return err
			}
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			opts := daemonLaunchOptions(ctx)
			opts.MinerArgs = restartOverrides.forward(cmd)

			result, err := daemonctl.Restart(
				ctx.socketPath(),
				cfg,
				exe,
				opts,
				5*time.Second,
				10*time.Second,
			)
			if err != nil {
				return err
			}

			if result.WasRunning {
				if result.Stop.ForcedKill && result.Stop.PID > 0 {
					fmt.Fprintf(stdout, "Stopping daemon process (pid %d)...\n", result.Stop.PID)
				}
				fmt.Fprintln(stdout, "Daemon stopped")
			}

			switch result.Start.State {
			case daemonctl.StartStateStarted, daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon restarted")
			case daemonctl.StartStateRequested:
				if strings.TrimSpace(result.Start.Message) != "" {
					fmt.Fprintln(stdout, result.Start.Message)
					return nil
				}
				fmt.Fprintln(stdout, "Start request sent")
			}
			return nil
		},
	}
	restartCmd.Flags().BoolVar(&restartMiner, "miner", false, "Restart only the mining process, not the daemon")
	restartOverrides.register(restartCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, miner, and environment status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			snapshot, err := daemonctl.BuildStatusSnapshot(cmd.Context(), ctx.socketPath(), cfg)
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			renderDaemonSection(stdout, snapshot, colorize)
			fmt.Fprintln(stdout)
			renderMinerSection(stdout, snapshot.Daemon, snapshot.DaemonReachable, colorize)
			fmt.Fprintln(stdout)
			renderEnvironmentSection(stdout, snapshot.Environment, colorize)
			fmt.Fprintln(stdout)
			renderBinariesSection(stdout, snapshot.Binaries, colorize)

			if snapshot.DaemonReachable && snapshot.Daemon.MetricsEnabled {
				renderLatestMetrics(ctx, stdout, colorize)
			}
			return nil
		},
	}

	return []*cobra.Command{startCmd, stopCmd, restartCmd, statusCmd}
}

func renderDaemonSection(stdout io.Writer, snapshot daemonctl.Snapshot, colorize bool) {
	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(stdout, line)
	}

	daemon := snapshot.Daemon
	if !snapshot.DaemonReachable {
		detail := "not running"
		kind := statusWarn
		if snapshot.StalePID > 0 {
			detail = fmt.Sprintf("not running (stale pid file, pid %d); run `oreminer start`", snapshot.StalePID)
		}
		fmt.Fprintln(stdout, renderStatusLine("Daemon", kind, detail, colorize))
		fmt.Fprintln(stdout, renderStatusLine("PID file", statusInfo, daemon.PIDFilePath, colorize))
		fmt.Fprintln(stdout, renderStatusLine("Lock file", statusInfo, daemon.LockPath, colorize))
		return
	}

	fmt.Fprintln(stdout, renderStatusLine("Daemon", statusOK, fmt.Sprintf("running (pid %d)", daemon.PID), colorize))
	if !daemon.StartedAt.IsZero() {
		uptime := time.Since(daemon.StartedAt).Round(time.Second)
		fmt.Fprintln(stdout, renderStatusLine("Uptime", statusInfo, uptime.String(), colorize))
	}
	supervision := "stopped"
	supervisionKind := statusWarn
	switch {
	case daemon.GaveUp:
		supervision = fmt.Sprintf("gave up after %d consecutive failures; run `oreminer restart --miner`", daemon.Restarts)
		supervisionKind = statusError
	case daemon.Running:
		supervision = "active"
		supervisionKind = statusOK
	}
	fmt.Fprintln(stdout, renderStatusLine("Supervision", supervisionKind, supervision, colorize))
	fmt.Fprintln(stdout, renderStatusLine("Restarts", statusInfo, fmt.Sprintf("%d", daemon.Restarts), colorize))
	if daemon.LastExit != nil {
		detail := fmt.Sprintf("code %d at %s", daemon.LastExit.Code, daemon.LastExit.At.Format("2006-01-02 15:04:05"))
		kind := statusInfo
		if daemon.LastExit.Code != 0 {
			kind = statusWarn
		}
		fmt.Fprintln(stdout, renderStatusLine("Last miner exit", kind, detail, colorize))
	}
	fmt.Fprintln(stdout, renderStatusLine("Log file", statusInfo, daemon.LogPath, colorize))
	fmt.Fprintln(stdout, renderStatusLine("Notifications", statusInfo, yesNo(daemon.NotificationsOn), colorize))
}

func renderMinerSection(stdout io.Writer, daemon *ipc.StatusResponse, reachable bool, colorize bool) {
	for _, line := range renderSectionHeader("Miner", colorize) {
		fmt.Fprintln(stdout, line)
	}

	if !reachable {
		fmt.Fprintln(stdout, renderStatusLine("Miner", statusWarn, "daemon not running", colorize))
		fmt.Fprintln(stdout, renderStatusLine("Binary", statusInfo, daemon.MinerBinary, colorize))
		return
	}

	if daemon.MinerRunning {
		fmt.Fprintln(stdout, renderStatusLine("Miner", statusOK, fmt.Sprintf("running (pid %d)", daemon.MinerPID), colorize))
		if !daemon.MinerStartedAt.IsZero() {
			uptime := time.Since(daemon.MinerStartedAt).Round(time.Second)
			fmt.Fprintln(stdout, renderStatusLine("Miner uptime", statusInfo, uptime.String(), colorize))
		}
	} else {
		fmt.Fprintln(stdout, renderStatusLine("Miner", statusWarn, "not running", colorize))
	}
	if daemon.SessionID != "" {
		fmt.Fprintln(stdout, renderStatusLine("Session", statusInfo, daemon.SessionID, colorize))
	}
	fmt.Fprintln(stdout, renderStatusLine("Binary", statusInfo, daemon.MinerBinary, colorize))
	if len(daemon.MinerArgs) > 0 {
		fmt.Fprintln(stdout, renderStatusLine("Arguments", statusInfo, strings.Join(daemon.MinerArgs, " "), colorize))
	}
	fmt.Fprintln(stdout, renderStatusLine("Stdout capture", statusInfo, daemon.StdoutLogPath, colorize))
	fmt.Fprintln(stdout, renderStatusLine("Stderr capture", statusInfo, daemon.StderrLogPath, colorize))
}

func renderEnvironmentSection(stdout io.Writer, results []preflight.Result, colorize bool) {
	for _, line := range renderSectionHeader("Environment", colorize) {
		fmt.Fprintln(stdout, line)
	}
	for _, result := range results {
		kind := statusOK
		if !result.Passed {
			kind = statusError
		}
		fmt.Fprintln(stdout, renderStatusLine(result.Name, kind, result.Detail, colorize))
	}
	if preflight.AllPassed(results) {
		fmt.Fprintln(stdout, renderStatusLine("Summary", statusOK, "all checks passed", colorize))
		return
	}
	failing := 0
	for _, result := range results {
		if !result.Passed {
			failing++
		}
	}
	fmt.Fprintln(stdout, renderStatusLine("Summary", statusWarn, fmt.Sprintf("%d check(s) failing", failing), colorize))
}

func renderBinariesSection(stdout io.Writer, statuses []preflight.Status, colorize bool) {
	for _, line := range renderSectionHeader("Dependencies", colorize) {
		fmt.Fprintln(stdout, line)
	}
	for _, status := range statuses {
		if status.Available {
			message := "Ready"
			if status.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", status.Command)
			}
			fmt.Fprintln(stdout, renderStatusLine(status.Name, statusOK, message, colorize))
			continue
		}
		detail := strings.TrimSpace(status.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if status.Optional {
			kind = statusWarn
		}
		fmt.Fprintln(stdout, renderStatusLine(status.Name, kind, detail, colorize))
	}
}

func renderLatestMetrics(ctx *commandContext, stdout io.Writer, colorize bool) {
	// Best effort: status stays useful even if the metrics fetch fails.
	_ = ctx.withClient(func(client *ipc.Client) error {
		summary, err := client.MetricsSummary()
		if err != nil || summary == nil || !summary.Enabled || len(summary.Latest) == 0 {
			return nil
		}
		fmt.Fprintln(stdout)
		for _, line := range renderSectionHeader("Latest Metrics", colorize) {
			fmt.Fprintln(stdout, line)
		}
		rows := latestMetricRows(summary.Latest)
		table := renderTable([]string{"Metric", "Value", "Recorded"}, rows, []columnAlignment{alignLeft, alignRight, alignLeft})
		fmt.Fprintln(stdout, table)
		return nil
	})
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return exe, nil
}

func daemonLaunchOptions(ctx *commandContext) daemonctl.LaunchOptions {
	opts := daemonctl.LaunchOptions{}
	if ctx.socketFlag != nil {
		if socket := strings.TrimSpace(*ctx.socketFlag); socket != "" {
			opts.SocketPath = socket
		}
	}
	if ctx.configFlag != nil {
		if config := strings.TrimSpace(*ctx.configFlag); config != "" {
			opts.ConfigPath = config
		}
	}
	return opts
}
