package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"oreminer/internal/config"
	"oreminer/internal/ipc"
	"oreminer/internal/pidfile"
	"oreminer/internal/preflight"
)

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	SocketPath string
	ConfigPath string
	// MinerArgs are extra daemon flags (miner overrides from the start
	// command) forwarded verbatim to the daemon process.
	MinerArgs []string
}

type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
	StartStateRequested      StartState = "start_requested"
)

// StartResult captures daemon start orchestration state.
type StartResult struct {
	State    StartState
	Launched bool
	Message  string
}

// ErrDaemonNotRunning indicates daemon IPC is unavailable.
var ErrDaemonNotRunning = errors.New("daemon not running")

// Launch starts a detached oreminer daemon process.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}

	args := []string{"daemon"}
	if socket := strings.TrimSpace(opts.SocketPath); socket != "" {
		args = append(args, "--socket", socket)
	}
	if cfg := strings.TrimSpace(opts.ConfigPath); cfg != "" {
		args = append(args, "--config", cfg)
	}
	args = append(args, opts.MinerArgs...)

	proc := exec.Command(executablePath, args...)
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// WaitForClient waits for IPC socket availability and returns a connected client.
func WaitForClient(socketPath string, timeout time.Duration) (*ipc.Client, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		client, err := ipc.Dial(socketPath)
		if err == nil {
			return client, nil
		}
		lastErr = err
		time.Sleep(200 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for daemon")
	}
	return nil, fmt.Errorf("daemon failed to start: %w", lastErr)
}

// EnsureStarted launches and/or starts the daemon and returns the resulting
// state. A stale pid file left by a crashed daemon is detected with a
// signal-0 probe and cleaned up before launching.
func EnsureStarted(socketPath string, cfg *config.Config, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	client, err := ipc.Dial(socketPath)
	launched := false
	if err != nil {
		if cfg != nil {
			if pid, alive, checkErr := pidfile.Check(cfg.PIDFilePath()); checkErr == nil {
				if alive && pid != os.Getpid() {
					return StartResult{}, fmt.Errorf("daemon appears to be running (pid %d) but its socket %q is unreachable; run `oreminer stop`", pid, socketPath)
				}
				// Stale pid from a crashed daemon; never trust it.
				_ = pidfile.Remove(cfg.PIDFilePath())
			}
		}
		if launchErr := Launch(executablePath, opts); launchErr != nil {
			return StartResult{}, launchErr
		}
		client, err = WaitForClient(socketPath, waitTimeout)
		if err != nil {
			return StartResult{}, err
		}
		launched = true
	}
	defer client.Close()

	statusResp, statusErr := client.Status()
	if statusErr == nil && statusResp != nil && statusResp.Running {
		if launched {
			return StartResult{State: StartStateStarted, Launched: true}, nil
		}
		return StartResult{State: StartStateAlreadyRunning}, nil
	}

	resp, err := client.Start()
	if err != nil {
		return StartResult{}, err
	}

	if resp != nil {
		message := strings.TrimSpace(resp.Message)
		if resp.Started {
			return StartResult{State: StartStateStarted, Launched: launched, Message: message}, nil
		}
		if message != "" {
			return StartResult{State: StartStateRequested, Launched: launched, Message: message}, nil
		}
	}
	return StartResult{State: StartStateRequested, Launched: launched, Message: "Start request sent"}, nil
}

// WaitForShutdown waits for daemon IPC to disappear or report not-running.
func WaitForShutdown(socketPath string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		client, err := ipc.Dial(socketPath)
		if err != nil {
			if isDaemonUnavailable(err) {
				return nil
			}
			lastErr = err
			time.Sleep(200 * time.Millisecond)
			continue
		}
		status, statusErr := client.Status()
		_ = client.Close()
		if statusErr != nil {
			lastErr = statusErr
		} else if status != nil && !status.Running {
			return nil
		} else {
			lastErr = fmt.Errorf("daemon still running")
		}
		time.Sleep(200 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for shutdown")
	}
	return fmt.Errorf("daemon did not stop: %w", lastErr)
}

// ProcessInfo returns whether daemon IPC is reachable and the daemon PID when available.
func ProcessInfo(socketPath string) (bool, int, error) {
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if isDaemonUnavailable(err) {
			return false, 0, nil
		}
		return false, 0, err
	}
	defer client.Close()
	status, statusErr := client.Status()
	if statusErr != nil {
		return true, 0, statusErr
	}
	pid := 0
	if status != nil {
		pid = status.PID
	}
	return true, pid, nil
}

// StopResult captures daemon stop/termination outcome.
type StopResult struct {
	StopAcknowledged bool
	ForcedKill       bool
	PID              int
}

// StopAndTerminate terminates the daemon process: SIGTERM first, then
// SIGKILL when it is still alive after gracePeriod. The daemon pid comes
// from IPC status when the socket answers, otherwise from the pid file, so
// stop works even when the daemon has wedged.
func StopAndTerminate(socketPath string, cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	if cfg == nil {
		return StopResult{}, errors.New("configuration not available")
	}

	pid := 0
	if client, err := ipc.Dial(socketPath); err == nil {
		if status, statusErr := client.Status(); statusErr == nil && status != nil {
			pid = status.PID
		}
		_ = client.Close()
	}

	pidPath := cfg.PIDFilePath()
	if pid == 0 {
		filePID, alive, err := pidfile.Check(pidPath)
		if err != nil && !errors.Is(err, pidfile.ErrNotFound) {
			return StopResult{}, err
		}
		if !alive {
			// Clean up leftovers from a crashed daemon.
			_ = pidfile.Remove(pidPath)
			_ = os.Remove(socketPath)
			return StopResult{}, ErrDaemonNotRunning
		}
		pid = filePID
	}
	if pid == os.Getpid() {
		return StopResult{}, fmt.Errorf("refusing to kill current process (pid %d)", pid)
	}

	result := StopResult{PID: pid}
	if err := unix.Kill(pid, unix.SIGTERM); err != nil {
		if errors.Is(err, unix.ESRCH) {
			_ = pidfile.Remove(pidPath)
			_ = os.Remove(socketPath)
			return StopResult{}, ErrDaemonNotRunning
		}
		return result, fmt.Errorf("signal daemon process %d: %w", pid, err)
	}
	result.StopAcknowledged = true

	deadline := time.Now().Add(gracePeriod)
	for time.Now().Before(deadline) {
		if !pidfile.Alive(pid) {
			_ = pidfile.Remove(pidPath)
			_ = os.Remove(socketPath)
			return result, nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	killedPID, killErr := ForceKillProcess(pidPath, cfg.LockFilePath(), pid)
	if killErr != nil {
		return result, fmt.Errorf("failed to stop daemon process: %w", killErr)
	}
	_ = os.Remove(socketPath)
	result.ForcedKill = true
	result.PID = killedPID
	return result, nil
}

// ForceKillProcess sends SIGKILL to the daemon process and cleans pid/lock files.
func ForceKillProcess(pidPath, lockPath string, fallbackPID int) (int, error) {
	pid := fallbackPID
	if filePID, err := pidfile.Read(pidPath); err == nil {
		pid = filePID
	} else if !errors.Is(err, pidfile.ErrNotFound) {
		return 0, err
	}
	if pid <= 0 {
		return 0, fmt.Errorf("unable to determine daemon pid (pid file: %s)", pidPath)
	}
	if pid == os.Getpid() {
		return 0, fmt.Errorf("refusing to kill current process (pid %d)", pid)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, fmt.Errorf("locate daemon process %d: %w", pid, err)
	}
	if err := proc.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return 0, fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	if err := pidfile.Remove(pidPath); err != nil {
		return 0, err
	}
	if lockPath != "" {
		_ = os.Remove(lockPath)
	}
	return pid, nil
}

// RestartResult captures stop/start outcomes for daemon restart.
type RestartResult struct {
	WasRunning bool
	Stop       StopResult
	Start      StartResult
}

// Restart stops the daemon if running, then ensures it is started.
func Restart(socketPath string, cfg *config.Config, executablePath string, opts LaunchOptions, stopGracePeriod, startWaitTimeout time.Duration) (RestartResult, error) {
	stopResult, stopErr := StopAndTerminate(socketPath, cfg, stopGracePeriod)
	if stopErr != nil && !errors.Is(stopErr, ErrDaemonNotRunning) {
		return RestartResult{}, stopErr
	}

	startResult, err := EnsureStarted(socketPath, cfg, executablePath, opts, startWaitTimeout)
	if err != nil {
		return RestartResult{}, err
	}

	return RestartResult{
		WasRunning: stopErr == nil,
		Stop:       stopResult,
		Start:      startResult,
	}, nil
}

// Snapshot combines daemon runtime status with local environment checks for
// the status command.
type Snapshot struct {
	Daemon          *ipc.StatusResponse
	DaemonReachable bool
	StalePID        int
	Environment     []preflight.Result
	Binaries        []preflight.Status
}

// BuildStatusSnapshot collects daemon status and applies offline fallbacks
// so `oreminer status` stays useful when the daemon is down.
func BuildStatusSnapshot(ctx context.Context, socketPath string, cfg *config.Config) (Snapshot, error) {
	if cfg == nil {
		return Snapshot{}, errors.New("configuration not available")
	}

	snapshot := Snapshot{Daemon: &ipc.StatusResponse{}}
	if client, err := ipc.Dial(socketPath); err == nil {
		if resp, statusErr := client.Status(); statusErr == nil && resp != nil {
			snapshot.Daemon = resp
			snapshot.DaemonReachable = true
		}
		_ = client.Close()
	}

	if !snapshot.DaemonReachable {
		snapshot.Daemon.LockPath = cfg.LockFilePath()
		snapshot.Daemon.MetricsDBPath = cfg.MetricsDBPath()
		snapshot.Daemon.StdoutLogPath = cfg.StdoutLogPath()
		snapshot.Daemon.StderrLogPath = cfg.StderrLogPath()
		snapshot.Daemon.PIDFilePath = cfg.PIDFilePath()
		snapshot.Daemon.MinerBinary = cfg.MinerBinary()
		snapshot.Daemon.NotificationsOn = cfg.Notifications.NtfyTopic != ""

		if pid, alive, err := pidfile.Check(cfg.PIDFilePath()); err == nil && !alive && pid > 0 {
			snapshot.StalePID = pid
		}
	}

	snapshot.Environment = preflight.RunAll(ctx, cfg)
	snapshot.Binaries = preflight.CheckBinaries([]preflight.Requirement{
		{
			Name:        "ore-cli",
			Command:     cfg.MinerBinary(),
			Description: "Required for mining",
		},
	})
	return snapshot, nil
}

func isDaemonUnavailable(err error) bool {
	return os.IsNotExist(err) ||
		errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, syscall.ECONNREFUSED)
}
