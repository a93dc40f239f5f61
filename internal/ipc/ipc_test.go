package ipc_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"oreminer/internal/ipc"
	"oreminer/internal/logging"
	"oreminer/internal/supervisor"
	"oreminer/internal/testsupport"
)

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

func newTestServer(t *testing.T) (*ipc.Client, *supervisor.Supervisor) {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()

	sup, err := supervisor.New(cfg, store, logger, nil, supervisor.WithExecutor(blockingExecutor{}))
	if err != nil {
		t.Fatalf("supervisor.New: %v", err)
	}
	t.Cleanup(sup.Stop)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	logPath := filepath.Join(cfg.Paths.LogDir, "ipc-test.log")
	deps := ipc.Deps{Config: cfg, Supervisor: sup, Store: store, LogPath: logPath}
	srv, err := ipc.NewServer(ctx, cfg.SocketPath(), deps, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	time.Sleep(50 * time.Millisecond)

	client, err := ipc.Dial(cfg.SocketPath())
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})
	return client, sup
}

func waitForCondition(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestIPCServerClient(t *testing.T) {
	client, _ := newTestServer(t)

	startResp, err := client.Start()
	if err != nil {
		t.Fatalf("Start RPC failed: %v", err)
	}
	if !startResp.Started {
		t.Fatalf("expected Started=true, message=%s", startResp.Message)
	}

	// Starting twice reports the error in-band instead of failing the RPC.
	again, err := client.Start()
	if err != nil {
		t.Fatalf("second Start RPC failed: %v", err)
	}
	if again.Started {
		t.Fatal("expected second start to be rejected")
	}

	waitForCondition(t, 5*time.Second, func() bool {
		status, err := client.Status()
		return err == nil && status.MinerRunning
	})

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if !status.Running || status.MinerPID != 4242 {
		t.Fatalf("unexpected status: %+v", status)
	}
	if status.PID != os.Getpid() {
		t.Fatalf("expected daemon pid %d, got %d", os.Getpid(), status.PID)
	}
	if !status.MetricsEnabled {
		t.Fatal("expected metrics enabled")
	}

	waitForCondition(t, 5*time.Second, func() bool {
		summary, err := client.MetricsSummary()
		return err == nil && summary.Submissions == 1
	})

	summary, err := client.MetricsSummary()
	if err != nil {
		t.Fatalf("MetricsSummary RPC failed: %v", err)
	}
	if !summary.Enabled || summary.SampleCount != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if sample, ok := summary.Latest["stake"]; !ok || sample.Value != 3.5 {
		t.Fatalf("unexpected latest stake: %+v", summary.Latest)
	}

	recent, err := client.MetricsRecent(10)
	if err != nil {
		t.Fatalf("MetricsRecent RPC failed: %v", err)
	}
	if len(recent.Samples) != 1 || len(recent.Submissions) != 1 {
		t.Fatalf("unexpected recent metrics: %+v", recent)
	}
	if recent.Submissions[0].TxHash != "5VfYt3xExampleTx" {
		t.Fatalf("unexpected submission: %+v", recent.Submissions[0])
	}

	restart, err := client.MinerRestart()
	if err != nil {
		t.Fatalf("MinerRestart RPC failed: %v", err)
	}
	if !restart.Restarted {
		t.Fatalf("expected restart, message=%s", restart.Message)
	}

	stopResp, err := client.Stop()
	if err != nil {
		t.Fatalf("Stop RPC failed: %v", err)
	}
	if !stopResp.Stopped {
		t.Fatal("expected Stopped=true")
	}

	status, err = client.Status()
	if err != nil {
		t.Fatalf("Status after stop failed: %v", err)
	}
	if status.Running {
		t.Fatal("expected supervision stopped")
	}
}

func TestIPCLogTail(t *testing.T) {
	client, sup := newTestServer(t)

	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("start supervisor: %v", err)
	}

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if err := os.WriteFile(status.LogPath, []byte("first\nsecond\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	resp, err := client.LogTail(ipc.LogTailRequest{Offset: -1, Limit: 10})
	if err != nil {
		t.Fatalf("LogTail RPC failed: %v", err)
	}
	if len(resp.Lines) != 2 || resp.Lines[1] != "second" {
		t.Fatalf("unexpected lines: %#v", resp.Lines)
	}

	// The miner stdout capture is reachable as its own source.
	waitForCondition(t, 5*time.Second, func() bool {
		resp, err := client.LogTail(ipc.LogTailRequest{Source: "miner", Offset: 0})
		return err == nil && len(resp.Lines) >= 2
	})

	if _, err := client.LogTail(ipc.LogTailRequest{Source: "bogus"}); err == nil {
		t.Fatal("expected error for unknown source")
	}
}

func TestIPCTestNotificationDisabled(t *testing.T) {
	client, _ := newTestServer(t)

	resp, err := client.TestNotification()
	if err != nil {
		t.Fatalf("TestNotification RPC failed: %v", err)
	}
	if resp.Sent {
		t.Fatal("expected notification to be skipped without a topic")
	}
	if !strings.Contains(resp.Message, "disabled") {
		t.Fatalf("unexpected message: %q", resp.Message)
	}
}
