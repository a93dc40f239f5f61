package supervisor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// RunRequest describes one miner invocation.
type RunRequest struct {
	Binary    string
	Args      []string
	StopGrace time.Duration

	// OnStart receives the child pid once the process is running.
	OnStart func(pid int)
	// OnStdoutLine and OnStderrLine receive one line per call, without the
	// trailing newline.
	OnStdoutLine func(line string)
	OnStderrLine func(line string)
}

// Executor abstracts miner process execution for testability.
type Executor interface {
	// Run executes the miner until it exits or ctx is cancelled, returning
	// the process exit code. Cancellation delivers SIGTERM and escalates to
	// SIGKILL after the stop grace elapses.
	Run(ctx context.Context, req RunRequest) (int, error)
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, req RunRequest) (int, error) {
	cmd := exec.CommandContext(ctx, req.Binary, req.Args...) //nolint:gosec
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	if req.StopGrace > 0 {
		cmd.WaitDelay = req.StopGrace
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return -1, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return -1, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return -1, fmt.Errorf("start miner: %w", err)
	}
	if req.OnStart != nil {
		req.OnStart(cmd.Process.Pid)
	}

	var wg sync.WaitGroup
	scan := func(r *bufio.Scanner, forward func(string)) {
		defer wg.Done()
		r.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for r.Scan() {
			if forward != nil {
				forward(r.Text())
			}
		}
	}

	wg.Add(2)
	go scan(bufio.NewScanner(stdout), req.OnStdoutLine)
	go scan(bufio.NewScanner(stderr), req.OnStderrLine)
	wg.Wait()

	err = cmd.Wait()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, fmt.Errorf("wait miner: %w", err)
}
