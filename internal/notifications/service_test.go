package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"oreminer/internal/notifications"
	"oreminer/internal/testsupport"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(cfg)
	if err := svc.NotifySubmission(context.Background(), "abc123"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsMessages(t *testing.T) {
	tests := []struct {
		name           string
		notify         func(svc notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "miner started",
			notify: func(svc notifications.Service) error {
				return svc.NotifyMinerStarted(context.Background(), "session-1", 4242)
			},
			expectTitle:   "Ore Miner - Started",
			expectMessage: "Mining started (pid 4242, session session-1)",
			expectTags:    "oreminer,miner,started",
		},
		{
			name: "miner exited with restart pending",
			notify: func(svc notifications.Service) error {
				return svc.NotifyMinerExited(context.Background(), "session-1", 2, true)
			},
			expectTitle:   "Ore Miner - Exited",
			expectMessage: "Miner exited with status 2 (session session-1)\nRestarting after backoff",
			expectTags:    "oreminer,miner,exited",
		},
		{
			name: "miner gave up",
			notify: func(svc notifications.Service) error {
				return svc.NotifyMinerGaveUp(context.Background(), 5)
			},
			expectTitle:    "Ore Miner - Giving Up",
			expectMessage:  "Miner failed 5 consecutive restarts; supervisor stopped retrying",
			expectTags:     "oreminer,miner,failed",
			expectPriority: "high",
		},
		{
			name: "submission",
			notify: func(svc notifications.Service) error {
				return svc.NotifySubmission(context.Background(), "5VfYt3x")
			},
			expectTitle:   "Ore Miner - Reward Submitted",
			expectMessage: "Transaction confirmed: 5VfYt3x",
			expectTags:    "oreminer,submission",
		},
		{
			name: "error",
			notify: func(svc notifications.Service) error {
				return svc.NotifyError(context.Background(), errors.New("rpc unreachable"), "metrics")
			},
			expectTitle:    "Ore Miner - Error",
			expectMessage:  "Error with metrics: rpc unreachable",
			expectTags:     "oreminer,error,alert",
			expectPriority: "high",
		},
		{
			name: "test notification",
			notify: func(svc notifications.Service) error {
				return svc.TestNotification(context.Background())
			},
			expectTitle:    "Ore Miner - Test",
			expectMessage:  "Notification system test",
			expectTags:     "oreminer,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Fatalf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := testsupport.NewConfig(t, testsupport.WithNtfyTopic(server.URL))
			svc := notifications.NewService(cfg)
			if err := tc.notify(svc); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceReportsServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic over quota", http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithNtfyTopic(server.URL))
	svc := notifications.NewService(cfg)
	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
