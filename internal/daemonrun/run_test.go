package daemonrun_test

import (
	"context"
	"os"
	"testing"
	"time"

	"oreminer/internal/daemonrun"
	"oreminer/internal/ipc"
	"oreminer/internal/supervisor"
	"oreminer/internal/testsupport"
)

type idleExecutor struct{}

func (idleExecutor) Run(ctx context.Context, req supervisor.RunRequest) (int, error) {
	if req.OnStart != nil {
		req.OnStart(1234)
	}
	<-ctx.Done()
	return -1, nil
}

func TestRunServesIPCUntilCancelled(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- daemonrun.Run(ctx, cfg, daemonrun.Options{Executor: idleExecutor{}})
	}()

	var client *ipc.Client
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		var err error
		client, err = ipc.Dial(cfg.SocketPath())
		if err == nil {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	if client == nil {
		cancel()
		t.Fatal("IPC socket never became available")
	}

	status, err := client.Status()
	_ = client.Close()
	if err != nil {
		cancel()
		t.Fatalf("status: %v", err)
	}
	if !status.Running {
		cancel()
		t.Fatal("expected supervision running")
	}
	if status.PID != os.Getpid() {
		cancel()
		t.Fatalf("expected daemon pid %d, got %d", os.Getpid(), status.PID)
	}
	if _, err := os.Stat(cfg.PIDFilePath()); err != nil {
		cancel()
		t.Fatalf("expected pid file: %v", err)
	}
	if _, err := os.Lstat(cfg.Paths.LogDir + "/oreminer.log"); err != nil {
		cancel()
		t.Fatalf("expected current log pointer: %v", err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("daemon did not shut down")
	}

	if _, err := os.Stat(cfg.PIDFilePath()); !os.IsNotExist(err) {
		t.Fatal("expected pid file removed on shutdown")
	}
}
