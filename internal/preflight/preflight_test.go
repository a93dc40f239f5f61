package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"oreminer/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckKeypairFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "id.json")
	if err := os.WriteFile(path, []byte("[1,2,3]"), 0o600); err != nil {
		t.Fatal(err)
	}

	if result := CheckKeypairFile("Keypair", path); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if result := CheckKeypairFile("Keypair", filepath.Join(t.TempDir(), "missing.json")); result.Passed {
		t.Fatal("expected failure for missing keypair")
	}
	if result := CheckKeypairFile("Keypair", ""); result.Passed {
		t.Fatal("expected failure for unset keypair")
	}
}

func TestCheckMinerBinary(t *testing.T) {
	// A shell is present on any system these tests run on.
	if result := CheckMinerBinary("sh"); !result.Passed {
		t.Fatalf("expected pass for sh, got: %s", result.Detail)
	}
	if result := CheckMinerBinary("definitely-not-a-binary-xyz"); result.Passed {
		t.Fatal("expected failure for unknown binary")
	}

	script := filepath.Join(t.TempDir(), "ore")
	if err := os.WriteFile(script, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	if result := CheckMinerBinary(script); !result.Passed {
		t.Fatalf("expected pass for absolute path, got: %s", result.Detail)
	}
}

func TestCheckRPCEndpoint_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","result":"ok","id":1}`))
	}))
	defer srv.Close()

	result := CheckRPCEndpoint(context.Background(), srv.URL)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckRPCEndpoint_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	result := CheckRPCEndpoint(context.Background(), srv.URL)
	if result.Passed {
		t.Fatal("expected failure for 502 response")
	}
}

func TestCheckRPCEndpoint_MissingURL(t *testing.T) {
	result := CheckRPCEndpoint(context.Background(), "")
	if result.Passed {
		t.Fatal("expected failure for missing URL")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_IncludesDynamicFeeWhenEnabled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Paths.RunDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Miner.DynamicFee = true
	cfg.Miner.DynamicFeeURL = srv.URL

	results := RunAll(context.Background(), &cfg)
	found := false
	for _, r := range results {
		if r.Name == "Dynamic fee endpoint" {
			found = true
			if !r.Passed {
				t.Errorf("dynamic fee check failed: %s", r.Detail)
			}
		}
	}
	if !found {
		t.Fatal("expected dynamic fee check in results")
	}
}

func TestCheckBinaries(t *testing.T) {
	statuses := CheckBinaries([]Requirement{
		{Name: "Shell", Command: "sh", Description: "POSIX shell"},
		{Name: "Missing", Command: "definitely-not-a-binary-xyz", Optional: true},
		{Name: "Unset", Command: ""},
	})
	if len(statuses) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(statuses))
	}
	if !statuses[0].Available {
		t.Fatalf("expected sh available: %s", statuses[0].Detail)
	}
	if statuses[1].Available || !statuses[1].Optional {
		t.Fatalf("unexpected status for missing binary: %+v", statuses[1])
	}
	if statuses[2].Available || statuses[2].Detail == "" {
		t.Fatalf("unexpected status for unset command: %+v", statuses[2])
	}
}
