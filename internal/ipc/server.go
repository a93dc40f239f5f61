package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"log/slog"

	"oreminer/internal/config"
	"oreminer/internal/logging"
	"oreminer/internal/logs"
	"oreminer/internal/metrics"
	"oreminer/internal/notifications"
	"oreminer/internal/supervisor"
)

// Deps carries the daemon-side collaborators the RPC service exposes.
type Deps struct {
	Config     *config.Config
	Supervisor *supervisor.Supervisor
	Store      *metrics.Store
	Notifier   notifications.Service
	// LogPath is the active structured supervisor log file.
	LogPath string
}

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, deps Deps, logger *slog.Logger) (*Server, error) {
	if deps.Config == nil || deps.Supervisor == nil {
		return nil, errors.New("ipc server requires config and supervisor")
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewService(deps.Config)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{deps: deps, logger: logging.NewComponentLogger(logger, "ipc"), ctx: ctx}
	if err := rpcServer.RegisterName("OreMiner", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually or rerun oreminer stop"))
	}
}

type service struct {
	deps   Deps
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	s.logger.Debug("supervision start requested")
	if err := s.deps.Supervisor.Start(s.ctx); err != nil {
		resp.Started = false
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "supervision started"
	s.logger.Info("supervision started via IPC",
		logging.String(logging.FieldEventType, "supervision_start"))
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.logger.Debug("supervision stop requested")
	s.deps.Supervisor.Stop()
	resp.Stopped = true
	s.logger.Info("supervision stopped via IPC",
		logging.String(logging.FieldEventType, "supervision_stop"))
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.deps.Supervisor.Status()
	cfg := s.deps.Config

	resp.Running = status.Running
	resp.GaveUp = status.GaveUp
	resp.PID = os.Getpid()
	resp.StartedAt = status.StartedAt
	resp.SessionID = status.SessionID
	resp.MinerPID = status.MinerPID
	resp.MinerRunning = status.MinerRunning
	resp.MinerStartedAt = status.MinerStartedAt
	resp.Restarts = status.Restarts
	if status.LastExit != nil {
		resp.LastExit = &ExitInfo{Code: status.LastExit.Code, At: status.LastExit.At}
	}
	resp.MinerBinary = status.Binary
	resp.MinerArgs = status.Args
	resp.LockPath = status.LockFilePath
	resp.MetricsDBPath = cfg.MetricsDBPath()
	resp.MetricsEnabled = s.deps.Store != nil
	resp.LogPath = s.deps.LogPath
	resp.StdoutLogPath = cfg.StdoutLogPath()
	resp.StderrLogPath = cfg.StderrLogPath()
	resp.PIDFilePath = cfg.PIDFilePath()
	resp.NotificationsOn = cfg.Notifications.NtfyTopic != ""
	return nil
}

func (s *service) MinerRestart(_ MinerRestartRequest, resp *MinerRestartResponse) error {
	s.logger.Debug("miner restart requested")
	if err := s.deps.Supervisor.RestartMiner(); err != nil {
		resp.Restarted = false
		resp.Message = err.Error()
		return nil
	}
	resp.Restarted = true
	resp.Message = "miner restarting"
	s.logger.Info("miner restarted via IPC",
		logging.String(logging.FieldEventType, "miner_restart"))
	return nil
}

func (s *service) MetricsSummary(_ MetricsSummaryRequest, resp *MetricsSummaryResponse) error {
	if s.deps.Store == nil {
		resp.Enabled = false
		return nil
	}
	summary, err := s.deps.Store.Summarize(s.ctx)
	if err != nil {
		return err
	}
	resp.Enabled = true
	resp.SampleCount = summary.SampleCount
	resp.Submissions = summary.Submissions
	resp.SessionCount = summary.SessionCount
	resp.Latest = make(map[string]MetricSample, len(summary.Latest))
	for kind, sample := range summary.Latest {
		resp.Latest[string(kind)] = toMetricSample(sample)
	}
	if summary.LastSession != nil {
		session := toSessionInfo(*summary.LastSession)
		resp.LastSession = &session
	}
	return nil
}

func (s *service) MetricsRecent(req MetricsRecentRequest, resp *MetricsRecentResponse) error {
	if s.deps.Store == nil {
		resp.Enabled = false
		return nil
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}

	samples, err := s.deps.Store.RecentSamples(s.ctx, limit)
	if err != nil {
		return err
	}
	submissions, err := s.deps.Store.RecentSubmissions(s.ctx, limit)
	if err != nil {
		return err
	}

	resp.Enabled = true
	resp.Samples = make([]MetricSample, 0, len(samples))
	for _, sample := range samples {
		resp.Samples = append(resp.Samples, toMetricSample(sample))
	}
	resp.Submissions = make([]MetricSubmission, 0, len(submissions))
	for _, submission := range submissions {
		resp.Submissions = append(resp.Submissions, MetricSubmission{
			SessionID:  submission.SessionID,
			TxHash:     submission.TxHash,
			RecordedAt: submission.RecordedAt,
		})
	}
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	source, err := logs.ParseSource(req.Source)
	if err != nil {
		return err
	}
	logPath := logs.ResolvePath(s.deps.Config, source, s.deps.LogPath)

	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if wait <= 0 && req.Follow {
		wait = time.Second
	}
	ctx := s.ctx
	if req.Follow && wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}

	result, err := logs.Tail(ctx, logPath, logs.TailOptions{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   wait,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			resp.Offset = result.Offset
			return nil
		}
		return err
	}
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	if s.deps.Config.Notifications.NtfyTopic == "" {
		resp.Sent = false
		resp.Message = "notifications disabled: no ntfy topic configured"
		return nil
	}
	if err := s.deps.Notifier.TestNotification(s.ctx); err != nil {
		resp.Sent = false
		resp.Message = err.Error()
		return nil
	}
	resp.Sent = true
	resp.Message = "test notification sent"
	return nil
}

func toMetricSample(sample metrics.SampleRecord) MetricSample {
	return MetricSample{
		SessionID:  sample.SessionID,
		Kind:       string(sample.Kind),
		Value:      sample.Value,
		RecordedAt: sample.RecordedAt,
	}
}

func toSessionInfo(session metrics.Session) SessionInfo {
	return SessionInfo{
		ID:        session.ID,
		StartedAt: session.StartedAt,
		EndedAt:   session.EndedAt,
		ExitCode:  session.ExitCode,
		Binary:    session.Binary,
		RPCURL:    session.RPCURL,
	}
}
