package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"oreminer/internal/config"
)

const userAgent = "oreminer/0.1.0"

// Service defines the notification surface exposed to the supervisor.
type Service interface {
	NotifyMinerStarted(ctx context.Context, sessionID string, pid int) error
	NotifyMinerExited(ctx context.Context, sessionID string, exitCode int, restarting bool) error
	NotifyMinerGaveUp(ctx context.Context, restarts int) error
	NotifySubmission(ctx context.Context, txHash string) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyMinerStarted(ctx context.Context, sessionID string, pid int) error {
	data := payload{
		title:   "Ore Miner - Started",
		message: fmt.Sprintf("Mining started (pid %d, session %s)", pid, strings.TrimSpace(sessionID)),
		tags:    []string{"oreminer", "miner", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyMinerExited(ctx context.Context, sessionID string, exitCode int, restarting bool) error {
	message := fmt.Sprintf("Miner exited with status %d (session %s)", exitCode, strings.TrimSpace(sessionID))
	if restarting {
		message += "\nRestarting after backoff"
	}
	data := payload{
		title:   "Ore Miner - Exited",
		message: message,
		tags:    []string{"oreminer", "miner", "exited"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyMinerGaveUp(ctx context.Context, restarts int) error {
	data := payload{
		title:    "Ore Miner - Giving Up",
		message:  fmt.Sprintf("Miner failed %d consecutive restarts; supervisor stopped retrying", restarts),
		tags:     []string{"oreminer", "miner", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifySubmission(ctx context.Context, txHash string) error {
	data := payload{
		title:   "Ore Miner - Reward Submitted",
		message: fmt.Sprintf("Transaction confirmed: %s", strings.TrimSpace(txHash)),
		tags:    []string{"oreminer", "submission"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Ore Miner - Error",
		message:  builder.String(),
		tags:     []string{"oreminer", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Ore Miner - Test",
		message:  "Notification system test",
		tags:     []string{"oreminer", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyMinerStarted(context.Context, string, int) error      { return nil }
func (noopService) NotifyMinerExited(context.Context, string, int, bool) error { return nil }
func (noopService) NotifyMinerGaveUp(context.Context, int) error               { return nil }
func (noopService) NotifySubmission(context.Context, string) error             { return nil }
func (noopService) NotifyError(context.Context, error, string) error           { return nil }
func (noopService) TestNotification(context.Context) error                     { return nil }
