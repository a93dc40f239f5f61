package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"oreminer/internal/config"
	"oreminer/internal/logging"
	"oreminer/internal/metrics"
	"oreminer/internal/notifications"
)

// stableRunThreshold is how long a miner must stay up before the consecutive
// failure counter resets.
const stableRunThreshold = 5 * time.Minute

// ExitStatus records the most recent miner exit.
type ExitStatus struct {
	Code int
	At   time.Time
}

// Status is a point-in-time snapshot of the supervisor.
type Status struct {
	Running        bool
	GaveUp         bool
	StartedAt      time.Time
	SessionID      string
	MinerPID       int
	MinerRunning   bool
	MinerStartedAt time.Time
	Restarts       int
	LastExit       *ExitStatus
	Binary         string
	Args           []string
	LockFilePath   string
}

// Supervisor owns the ore-cli child process: it launches the miner, captures
// its output, feeds metrics to the store, and restarts it with capped
// exponential backoff when it dies.
type Supervisor struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *metrics.Store
	notifier notifications.Service
	exec     Executor

	lockPath string
	lock     *flock.Flock

	mu             sync.Mutex
	running        bool
	gaveUp         bool
	cancel         context.CancelFunc
	wg             sync.WaitGroup
	startedAt      time.Time
	sessionID      string
	minerPID       int
	minerStartedAt time.Time
	restarts       int
	lastExit       *ExitStatus
	attemptCancel  context.CancelFunc
	manualRestart  bool
}

// Option configures optional Supervisor behavior.
type Option func(*Supervisor)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(s *Supervisor) {
		if exec != nil {
			s.exec = exec
		}
	}
}

// New constructs a supervisor. The store may be nil when metrics recording is
// disabled.
func New(cfg *config.Config, store *metrics.Store, logger *slog.Logger, notifier notifications.Service, opts ...Option) (*Supervisor, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("supervisor requires config and logger")
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	s := &Supervisor{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "supervisor"),
		store:    store,
		notifier: notifier,
		exec:     commandExecutor{},
		lockPath: cfg.LockFilePath(),
	}
	s.lock = flock.New(s.lockPath)
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start acquires the instance lock and launches the restart loop.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("supervisor already running")
	}

	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another oreminer daemon instance is already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.gaveUp = false
	s.restarts = 0
	s.startedAt = time.Now()

	s.wg.Add(1)
	go s.run(loopCtx)
	s.wg.Add(1)
	go s.healthLoop(loopCtx)

	s.logger.Info("supervisor started",
		logging.String(logging.FieldEventType, "supervisor_started"),
		logging.String("lock", s.lockPath),
		logging.String("binary", s.cfg.MinerBinary()))
	return nil
}

// Stop terminates the miner, waits for the loop to drain, and releases the
// instance lock.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()

	s.mu.Lock()
	s.running = false
	s.minerPID = 0
	s.sessionID = ""
	s.mu.Unlock()

	if err := s.lock.Unlock(); err != nil {
		s.logger.Warn("failed to release instance lock", logging.Error(err))
	}
	s.logger.Info("supervisor stopped",
		logging.String(logging.FieldEventType, "supervisor_stopped"))
}

// RestartMiner terminates the current miner process. The restart loop
// relaunches it immediately and resets the backoff schedule.
func (s *Supervisor) RestartMiner() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return errors.New("supervisor not running")
	}
	if s.gaveUp {
		return errors.New("supervisor gave up; stop and start the daemon to resume")
	}
	if s.attemptCancel == nil {
		return errors.New("miner not currently running")
	}
	s.manualRestart = true
	s.attemptCancel()
	return nil
}

// Status reports the current supervisor state.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	var lastExit *ExitStatus
	if s.lastExit != nil {
		copied := *s.lastExit
		lastExit = &copied
	}
	return Status{
		Running:        s.running,
		GaveUp:         s.gaveUp,
		StartedAt:      s.startedAt,
		SessionID:      s.sessionID,
		MinerPID:       s.minerPID,
		MinerRunning:   s.minerPID > 0,
		MinerStartedAt: s.minerStartedAt,
		Restarts:       s.restarts,
		LastExit:       lastExit,
		Binary:         s.cfg.MinerBinary(),
		Args:           MinerArgs(s.cfg),
		LockFilePath:   s.lockPath,
	}
}

func (s *Supervisor) run(ctx context.Context) {
	defer s.wg.Done()

	backoff := time.Duration(s.cfg.Supervisor.RestartBackoffSeconds) * time.Second
	maxBackoff := time.Duration(s.cfg.Supervisor.MaxRestartBackoffSeconds) * time.Second
	initialBackoff := backoff
	failures := 0

	for ctx.Err() == nil {
		attemptStart := time.Now()
		exitCode, runErr := s.runOnce(ctx)

		manual := false
		s.mu.Lock()
		manual = s.manualRestart
		s.manualRestart = false
		s.minerPID = 0
		s.lastExit = &ExitStatus{Code: exitCode, At: time.Now()}
		session := s.sessionID
		s.mu.Unlock()

		if ctx.Err() != nil {
			return
		}

		switch {
		case manual:
			s.logger.Info("miner restart requested, relaunching",
				logging.String(logging.FieldEventType, "miner_manual_restart"))
			failures = 0
			backoff = initialBackoff
			s.notifyExited(ctx, session, exitCode, true)
			continue
		case runErr != nil:
			s.logger.Error("miner launch failed",
				logging.String(logging.FieldEventType, "miner_launch_failed"),
				logging.Error(runErr))
			if err := s.notifier.NotifyError(ctx, runErr, "miner launch"); err != nil {
				s.logger.Warn("notification failed", logging.Error(err))
			}
		default:
			if time.Since(attemptStart) >= stableRunThreshold {
				failures = 0
				backoff = initialBackoff
			}
		}

		failures++
		s.mu.Lock()
		s.restarts++
		s.mu.Unlock()

		givingUp := false
		if limit := s.cfg.Supervisor.MaxRestarts; limit > 0 && failures >= limit {
			givingUp = true
		}

		// The exit notification must state whether a relaunch is coming,
		// so it is sent only after the give-up decision is made.
		if runErr == nil {
			s.notifyExited(ctx, session, exitCode, !givingUp)
		}

		if givingUp {
			s.mu.Lock()
			s.gaveUp = true
			s.mu.Unlock()
			s.logger.Error("miner failed repeatedly, giving up",
				logging.String(logging.FieldEventType, "supervisor_gave_up"),
				logging.Int("consecutive_failures", failures))
			if err := s.notifier.NotifyMinerGaveUp(ctx, failures); err != nil {
				s.logger.Warn("notification failed", logging.Error(err))
			}
			return
		}

		s.logger.Warn("miner exited, restarting after backoff",
			logging.String(logging.FieldEventType, "miner_restart_scheduled"),
			logging.Int("exit_code", exitCode),
			logging.Duration("backoff", backoff),
			logging.Int("consecutive_failures", failures))

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// runOnce launches the miner and blocks until it exits, wiring output capture
// and metric recording for one session.
func (s *Supervisor) runOnce(ctx context.Context) (int, error) {
	sessionID := uuid.NewString()

	attemptCtx, cancelAttempt := context.WithCancel(ctx)
	defer cancelAttempt()

	s.mu.Lock()
	s.sessionID = sessionID
	s.attemptCancel = cancelAttempt
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.attemptCancel = nil
		s.mu.Unlock()
	}()

	stdoutCapture, err := openCapture(s.cfg.StdoutLogPath())
	if err != nil {
		return -1, err
	}
	defer stdoutCapture.Close()
	stderrCapture, err := openCapture(s.cfg.StderrLogPath())
	if err != nil {
		return -1, err
	}
	defer stderrCapture.Close()

	binary := s.cfg.MinerBinary()
	args := MinerArgs(s.cfg)

	if s.store != nil {
		if err := s.store.BeginSession(ctx, sessionID, binary, s.cfg.Miner.RPCURL); err != nil {
			s.logger.Warn("failed to record session start", logging.Error(err))
		}
	}

	sessionLogger := s.logger.With(logging.String(logging.FieldSessionID, sessionID))
	req := RunRequest{
		Binary:    binary,
		Args:      args,
		StopGrace: time.Duration(s.cfg.Supervisor.StopGraceSeconds) * time.Second,
		OnStart: func(pid int) {
			s.mu.Lock()
			s.minerPID = pid
			s.minerStartedAt = time.Now()
			s.mu.Unlock()
			sessionLogger.Info("miner started",
				logging.String(logging.FieldEventType, "miner_started"),
				logging.Int("pid", pid),
				logging.String("binary", binary))
			if err := s.notifier.NotifyMinerStarted(ctx, sessionID, pid); err != nil {
				sessionLogger.Warn("notification failed", logging.Error(err))
			}
		},
		OnStdoutLine: func(line string) {
			fmt.Fprintln(stdoutCapture, line)
			s.handleMinerLine(ctx, sessionLogger, sessionID, line)
		},
		OnStderrLine: func(line string) {
			fmt.Fprintln(stderrCapture, line)
			sessionLogger.Debug("miner stderr", logging.String("line", line))
		},
	}

	exitCode, runErr := s.exec.Run(attemptCtx, req)

	if s.store != nil {
		if err := s.store.EndSession(context.WithoutCancel(ctx), sessionID, exitCode); err != nil {
			s.logger.Warn("failed to record session end", logging.Error(err))
		}
	}

	return exitCode, runErr
}

// handleMinerLine records metric events parsed from one miner stdout line.
func (s *Supervisor) handleMinerLine(ctx context.Context, logger *slog.Logger, sessionID, line string) {
	event, err := metrics.ParseLine(line)
	if err != nil {
		logger.Debug("malformed metric line",
			logging.String("line", line),
			logging.Error(err))
		return
	}
	if !event.Matched {
		return
	}

	switch {
	case event.Sample != nil:
		logger.Debug("metric sample",
			logging.String("kind", string(event.Sample.Kind)),
			logging.Float64("value", event.Sample.Value))
		if s.store != nil {
			if err := s.store.RecordSample(ctx, sessionID, *event.Sample); err != nil {
				logger.Warn("failed to record sample", logging.Error(err))
			}
		}
	case event.Submission != nil:
		logger.Info("reward submission confirmed",
			logging.String(logging.FieldEventType, "submission_confirmed"),
			logging.String("tx_hash", event.Submission.TxHash))
		if s.store != nil {
			if err := s.store.RecordSubmission(ctx, sessionID, event.Submission.TxHash); err != nil {
				logger.Warn("failed to record submission", logging.Error(err))
			}
		}
		if err := s.notifier.NotifySubmission(ctx, event.Submission.TxHash); err != nil {
			logger.Warn("notification failed", logging.Error(err))
		}
	case event.Timestamp != nil:
		logger.Debug("miner heartbeat",
			logging.String("reported_at", event.Timestamp.Format(time.RFC3339)))
	}
}

// healthLoop emits a periodic liveness line and prunes expired metrics.
func (s *Supervisor) healthLoop(ctx context.Context) {
	defer s.wg.Done()

	interval := time.Duration(s.cfg.Supervisor.HealthIntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		status := s.Status()
		s.logger.Info("supervisor health",
			logging.String(logging.FieldEventType, "supervisor_health"),
			logging.Bool("miner_running", status.MinerRunning),
			logging.Int("pid", status.MinerPID),
			logging.Int("restarts", status.Restarts),
			logging.Duration("uptime", time.Since(status.StartedAt).Round(time.Second)))

		if s.store != nil && s.cfg.Metrics.RetentionDays > 0 {
			if pruned, err := s.store.Prune(ctx, s.cfg.Metrics.RetentionDays); err != nil {
				s.logger.Warn("metrics pruning failed", logging.Error(err))
			} else if pruned > 0 {
				s.logger.Debug("pruned expired metrics", logging.Int64("rows", pruned))
			}
		}
	}
}

func (s *Supervisor) notifyExited(ctx context.Context, sessionID string, exitCode int, restarting bool) {
	if err := s.notifier.NotifyMinerExited(context.WithoutCancel(ctx), sessionID, exitCode, restarting); err != nil {
		s.logger.Warn("notification failed", logging.Error(err))
	}
}

func openCapture(path string) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open capture file %q: %w", path, err)
	}
	return file, nil
}
