package main

import (
	"reflect"
	"testing"

	"github.com/spf13/cobra"

	"oreminer/internal/config"
)

func TestMinerOverridesApplyWinOverFileValues(t *testing.T) {
	overrides := &minerOverrides{}
	cmd := &cobra.Command{Use: "test"}
	overrides.register(cmd)

	args := []string{
		"--cores", "7",
		"--keypair", "/keys/flag.json",
		"--rpc", "https://rpc.flag.example",
		"--dynamic-fee",
		"--dynamic-fee-url", "https://fees.flag.example",
	}
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg := config.Default()
	cfg.Miner.Cores = 4
	cfg.Miner.Keypair = "/keys/file.json"
	cfg.Miner.FeePayer = "/keys/fee-payer.json"
	cfg.Miner.RPCURL = "https://rpc.file.example"

	overrides.apply(cmd, &cfg)

	if cfg.Miner.Cores != 7 {
		t.Fatalf("expected cores flag to win, got %d", cfg.Miner.Cores)
	}
	if cfg.Miner.Keypair != "/keys/flag.json" {
		t.Fatalf("expected keypair flag to win, got %q", cfg.Miner.Keypair)
	}
	if cfg.Miner.RPCURL != "https://rpc.flag.example" {
		t.Fatalf("expected rpc flag to win, got %q", cfg.Miner.RPCURL)
	}
	if !cfg.Miner.DynamicFee || cfg.Miner.DynamicFeeURL != "https://fees.flag.example" {
		t.Fatalf("expected dynamic fee flags to win, got %v %q", cfg.Miner.DynamicFee, cfg.Miner.DynamicFeeURL)
	}
	// Unset flags leave file values alone.
	if cfg.Miner.FeePayer != "/keys/fee-payer.json" {
		t.Fatalf("expected fee payer file value to survive, got %q", cfg.Miner.FeePayer)
	}

	forwarded := overrides.forward(cmd)
	want := []string{
		"--cores", "7",
		"--keypair", "/keys/flag.json",
		"--rpc", "https://rpc.flag.example",
		"--dynamic-fee",
		"--dynamic-fee-url", "https://fees.flag.example",
	}
	if !reflect.DeepEqual(forwarded, want) {
		t.Fatalf("unexpected forwarded args\ngot:  %v\nwant: %v", forwarded, want)
	}
}

func TestMinerOverridesForwardOmitsUnsetFlags(t *testing.T) {
	overrides := &minerOverrides{}
	cmd := &cobra.Command{Use: "test"}
	overrides.register(cmd)

	if err := cmd.ParseFlags(nil); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg := config.Default()
	cfg.Miner.Cores = 4
	overrides.apply(cmd, &cfg)
	if cfg.Miner.Cores != 4 {
		t.Fatalf("expected file cores untouched, got %d", cfg.Miner.Cores)
	}

	if forwarded := overrides.forward(cmd); len(forwarded) != 0 {
		t.Fatalf("expected no forwarded args, got %v", forwarded)
	}
}
