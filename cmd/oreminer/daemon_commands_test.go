package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"oreminer/internal/testsupport"
)

func TestCLIStartStatusAndMinerRestart(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"start"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	requireContains(t, out, "Daemon started")

	waitFor(t, 5*time.Second, func() bool {
		return env.supervisor.Status().MinerRunning
	})

	out, _, err = runCLI(t, []string{"start"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	requireContains(t, out, "Daemon already running")

	out, _, err = runCLI(t, []string{"status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "== Daemon ==")
	requireContains(t, out, "running (pid")
	requireContains(t, out, "== Miner ==")
	requireContains(t, out, "4242")
	requireContains(t, out, "== Environment ==")
	requireContains(t, out, "Summary")
	requireContains(t, out, "== Dependencies ==")

	out, _, err = runCLI(t, []string{"restart", "--miner"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("restart --miner: %v", err)
	}
	requireContains(t, out, "Miner restart requested")
}

func TestCLIStartFlagsCompleteEmptyMinerSection(t *testing.T) {
	env := setupCLITestEnv(t)

	// A config file that only pins the directories; the miner section must
	// be completed on the command line.
	content := fmt.Sprintf(
		"[paths]\nrun_dir = %q\nlog_dir = %q\n",
		env.cfg.Paths.RunDir,
		env.cfg.Paths.LogDir,
	)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, _, err := runCLI(t, []string{"start"}, env.socketPath, env.configPath)
	if err == nil {
		t.Fatal("expected start without keypair to fail")
	}
	requireContains(t, err.Error(), "miner.keypair is required")

	out, _, err := runCLI(t, []string{
		"start",
		"--cores", "3",
		"--keypair", env.cfg.Miner.Keypair,
		"--rpc", "https://api.mainnet-beta.solana.com",
	}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("start with miner flags: %v", err)
	}
	requireContains(t, out, "Daemon started")
}

func TestCLIStopWithoutDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	configPath := filepath.Join(cfg.Paths.RunDir, "config.toml")
	writeTestConfig(t, configPath, cfg)

	out, _, err := runCLI(t, []string{"stop"}, cfg.SocketPath(), configPath)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "Daemon is not running")
}

func TestCLIStatusOffline(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	configPath := filepath.Join(cfg.Paths.RunDir, "config.toml")
	writeTestConfig(t, configPath, cfg)

	out, _, err := runCLI(t, []string{"status"}, cfg.SocketPath(), configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "not running")
	requireContains(t, out, "== Environment ==")
}
