package main

import (
	"os"
	"path/filepath"
	"testing"

	"oreminer/internal/testsupport"
)

func TestConfigInitAndShow(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	configPath := filepath.Join(cfg.Paths.RunDir, "config.toml")
	writeTestConfig(t, configPath, cfg)

	tmp := t.TempDir()
	target := filepath.Join(tmp, "config.toml")
	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, cfg.SocketPath(), configPath)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, cfg.SocketPath(), configPath)
	if err == nil {
		t.Fatal("expected config init to refuse overwriting an existing file")
	}
	requireContains(t, err.Error(), "already exists")

	out, _, err = runCLI(t, []string{"config", "show"}, cfg.SocketPath(), configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "== Configuration ==")
	requireContains(t, out, cfg.Paths.RunDir)
	requireContains(t, out, cfg.Miner.Keypair)
}

func TestConfigShowWithoutConfigFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.toml")

	out, _, err := runCLI(t, []string{"config", "show"}, "/nonexistent/oreminer.sock", missing)
	if err != nil {
		t.Fatalf("config show without file: %v", err)
	}
	requireContains(t, out, "defaults in effect")
	requireContains(t, out, "/tmp/ore_miner")
}
