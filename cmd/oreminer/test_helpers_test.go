package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"oreminer/internal/config"
	"oreminer/internal/ipc"
	"oreminer/internal/logging"
	"oreminer/internal/metrics"
	"oreminer/internal/supervisor"
	"oreminer/internal/testsupport"
)

// blockingExecutor emits a couple of recognizable miner lines and then runs
// until the supervisor cancels it.
type blockingExecutor struct{}

func (blockingExecutor) Run(ctx context.Context, req supervisor.RunRequest) (int, error) {
	if req.OnStart != nil {
		req.OnStart(4242)
	}
	req.OnStdoutLine("Stake: 3.5")
	req.OnStdoutLine("OK 5VfYt3xExampleTx")
	<-ctx.Done()
	return -1, nil
}

type cliTestEnv struct {
	cfg        *config.Config
	store      *metrics.Store
	supervisor *supervisor.Supervisor
	server     *ipc.Server
	socketPath string
	configPath string
	logPath    string
	cancel     context.CancelFunc
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	configPath := filepath.Join(cfg.Paths.RunDir, "config.toml")
	writeTestConfig(t, configPath, cfg)

	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()

	sup, err := supervisor.New(cfg, store, logger, nil, supervisor.WithExecutor(blockingExecutor{}))
	if err != nil {
		t.Fatalf("supervisor.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	logPath := filepath.Join(cfg.Paths.LogDir, "oreminer.log")
	deps := ipc.Deps{Config: cfg, Supervisor: sup, Store: store, LogPath: logPath}
	srv, err := ipc.NewServer(ctx, cfg.SocketPath(), deps, logger)
	if err != nil {
		cancel()
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping CLI test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	env := &cliTestEnv{
		cfg:        cfg,
		store:      store,
		supervisor: sup,
		server:     srv,
		socketPath: cfg.SocketPath(),
		configPath: configPath,
		logPath:    logPath,
		cancel:     cancel,
	}

	t.Cleanup(func() {
		cancel()
		srv.Close()
		sup.Stop()
	})

	return env
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\nrun_dir = %q\nlog_dir = %q\n\n[miner]\nbinary = %q\ncores = %d\nkeypair = %q\nrpc_url = %q\n\n[metrics]\nenabled = %v\n",
		cfg.Paths.RunDir,
		cfg.Paths.LogDir,
		cfg.Miner.Binary,
		cfg.Miner.Cores,
		cfg.Miner.Keypair,
		cfg.Miner.RPCURL,
		cfg.Metrics.Enabled,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(line + "\n")
	return err
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
