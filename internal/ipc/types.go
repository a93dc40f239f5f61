package ipc

import "time"

// StartRequest resumes miner supervision inside a running daemon.
type StartRequest struct{}

// StartResponse indicates whether supervision was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops miner supervision.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// ExitInfo describes the most recent miner exit.
type ExitInfo struct {
	Code int       `json:"code"`
	At   time.Time `json:"at"`
}

// StatusResponse represents combined daemon/supervisor status information.
type StatusResponse struct {
	Running         bool      `json:"running"`
	GaveUp          bool      `json:"gave_up"`
	PID             int       `json:"pid"`
	StartedAt       time.Time `json:"started_at"`
	SessionID       string    `json:"session_id"`
	MinerPID        int       `json:"miner_pid"`
	MinerRunning    bool      `json:"miner_running"`
	MinerStartedAt  time.Time `json:"miner_started_at"`
	Restarts        int       `json:"restarts"`
	LastExit        *ExitInfo `json:"last_exit"`
	MinerBinary     string    `json:"miner_binary"`
	MinerArgs       []string  `json:"miner_args"`
	LockPath        string    `json:"lock_path"`
	MetricsDBPath   string    `json:"metrics_db_path"`
	MetricsEnabled  bool      `json:"metrics_enabled"`
	LogPath         string    `json:"log_path"`
	StdoutLogPath   string    `json:"stdout_log_path"`
	StderrLogPath   string    `json:"stderr_log_path"`
	PIDFilePath     string    `json:"pid_file_path"`
	NotificationsOn bool      `json:"notifications_on"`
}

// MinerRestartRequest forces an immediate miner relaunch.
type MinerRestartRequest struct{}

// MinerRestartResponse reports the restart outcome.
type MinerRestartResponse struct {
	Restarted bool   `json:"restarted"`
	Message   string `json:"message"`
}

// MetricsSummaryRequest fetches aggregate metrics.
type MetricsSummaryRequest struct{}

// MetricSample is the wire form of one recorded sample.
type MetricSample struct {
	SessionID  string    `json:"session_id"`
	Kind       string    `json:"kind"`
	Value      float64   `json:"value"`
	RecordedAt time.Time `json:"recorded_at"`
}

// MetricSubmission is the wire form of one recorded transaction submission.
type MetricSubmission struct {
	SessionID  string    `json:"session_id"`
	TxHash     string    `json:"tx_hash"`
	RecordedAt time.Time `json:"recorded_at"`
}

// SessionInfo is the wire form of one supervised miner session.
type SessionInfo struct {
	ID        string     `json:"id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at"`
	ExitCode  *int       `json:"exit_code"`
	Binary    string     `json:"binary"`
	RPCURL    string     `json:"rpc_url"`
}

// MetricsSummaryResponse aggregates the latest value per metric kind plus
// store totals.
type MetricsSummaryResponse struct {
	Enabled      bool                    `json:"enabled"`
	Latest       map[string]MetricSample `json:"latest"`
	SampleCount  int64                   `json:"sample_count"`
	Submissions  int64                   `json:"submissions"`
	SessionCount int64                   `json:"session_count"`
	LastSession  *SessionInfo            `json:"last_session"`
}

// MetricsRecentRequest fetches the most recent samples and submissions.
type MetricsRecentRequest struct {
	Limit int `json:"limit"`
}

// MetricsRecentResponse contains recent metric rows, newest first.
type MetricsRecentResponse struct {
	Enabled     bool               `json:"enabled"`
	Samples     []MetricSample     `json:"samples"`
	Submissions []MetricSubmission `json:"submissions"`
}

// LogTailRequest fetches log lines based on offset and follow semantics.
// Source selects between the structured supervisor log and the raw miner
// captures.
type LogTailRequest struct {
	Source     string `json:"source"`
	Offset     int64  `json:"offset"`
	Limit      int    `json:"limit"`
	Follow     bool   `json:"follow"`
	WaitMillis int    `json:"wait_millis"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
