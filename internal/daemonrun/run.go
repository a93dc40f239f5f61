// Package daemonrun wires the daemon process together: logging, pid file,
// metrics store, supervisor, and IPC server, then blocks until a shutdown
// signal arrives.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"oreminer/internal/config"
	"oreminer/internal/ipc"
	"oreminer/internal/logging"
	"oreminer/internal/metrics"
	"oreminer/internal/notifications"
	"oreminer/internal/pidfile"
	"oreminer/internal/supervisor"
)

// Options configures daemon process runtime behavior.
type Options struct {
	// LogLevel overrides the configured logging level when set.
	LogLevel string
	// Executor overrides miner process execution (tests only).
	Executor supervisor.Executor
}

// Run starts the oreminer daemon runtime loop. It returns once the signal
// context is cancelled and the supervisor has drained.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("oreminer-%s.log", runID))

	level := opts.LogLevel
	if strings.TrimSpace(level) == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update oreminer.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "oreminer-*.log", Exclude: []string{logPath}},
	)

	if err := pidfile.Write(cfg.PIDFilePath()); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer func() {
		_ = pidfile.Remove(cfg.PIDFilePath())
	}()

	var store *metrics.Store
	if cfg.Metrics.Enabled {
		store, err = metrics.Open(cfg)
		if err != nil {
			logger.Error("open metrics store", logging.Error(err))
			return err
		}
		defer store.Close()
	}

	logEnvironmentSnapshot(logger, cfg, store)

	notifier := notifications.NewService(cfg)
	var supOpts []supervisor.Option
	if opts.Executor != nil {
		supOpts = append(supOpts, supervisor.WithExecutor(opts.Executor))
	}
	sup, err := supervisor.New(cfg, store, logger, notifier, supOpts...)
	if err != nil {
		return fmt.Errorf("create supervisor: %w", err)
	}
	defer sup.Stop()

	ipcServer, err := ipc.NewServer(signalCtx, cfg.SocketPath(), ipc.Deps{
		Config:     cfg,
		Supervisor: sup,
		Store:      store,
		Notifier:   notifier,
		LogPath:    logPath,
	}, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := sup.Start(signalCtx); err != nil {
		logger.Warn("supervisor start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "supervisor_start_failed"),
			logging.String(logging.FieldErrorHint, "check the instance lock and run directory access"),
			logging.String(logging.FieldImpact, "miner is not being supervised"),
		)
	}

	<-signalCtx.Done()
	logger.Info("oreminer daemon shutting down")
	return nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "oreminer.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func logEnvironmentSnapshot(logger *slog.Logger, cfg *config.Config, store *metrics.Store) {
	if logger == nil || cfg == nil {
		return
	}
	binary := cfg.MinerBinary()
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "environment_snapshot"),
		logging.String("miner_binary", binary),
		logging.Bool("miner_binary_available", binaryAvailable(binary)),
		logging.Bool("keypair_present", fileExists(cfg.Miner.Keypair)),
		logging.Bool("fee_payer_configured", cfg.Miner.FeePayer != ""),
		logging.String("rpc_url", cfg.Miner.RPCURL),
		logging.Bool("dynamic_fee", cfg.Miner.DynamicFee),
		logging.Bool("metrics_enabled", store != nil),
		logging.Bool("notifications_configured", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
	}
	logger.Info("environment snapshot", logging.Args(attrs...)...)
}

func binaryAvailable(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	_, err := exec.LookPath(name)
	return err == nil
}

func fileExists(path string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
