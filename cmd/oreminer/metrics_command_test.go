package main

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestCLIMetricsSummaryAndRecent(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"start"}, env.socketPath, env.configPath); err != nil {
		t.Fatalf("start: %v", err)
	}

	ctx := context.Background()
	waitFor(t, 5*time.Second, func() bool {
		summary, err := env.store.Summarize(ctx)
		return err == nil && summary.SampleCount > 0 && summary.Submissions > 0
	})

	out, _, err := runCLI(t, []string{"metrics"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	requireContains(t, out, "Latest Metrics")
	requireContains(t, out, "stake")
	requireContains(t, out, "3.5")
	requireContains(t, out, "Submissions")

	out, _, err = runCLI(t, []string{"metrics", "recent"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("metrics recent: %v", err)
	}
	requireContains(t, out, "Recent Samples")
	requireContains(t, out, "5VfYt3xExampleTx")
}

func TestCLIMetricsRecentKindFilter(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"start"}, env.socketPath, env.configPath); err != nil {
		t.Fatalf("start: %v", err)
	}

	ctx := context.Background()
	waitFor(t, 5*time.Second, func() bool {
		summary, err := env.store.Summarize(ctx)
		return err == nil && summary.SampleCount > 0
	})

	out, _, err := runCLI(t, []string{"metrics", "recent", "--kind", "stake"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("metrics recent --kind stake: %v", err)
	}
	requireContains(t, out, "Recent Samples")
	requireContains(t, out, "stake")
	if strings.Contains(out, "Recent Submissions") {
		t.Fatalf("kind filter should omit the submissions table, got:\n%s", out)
	}

	if _, _, err := runCLI(t, []string{"metrics", "recent", "--kind", "hashrate"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected an error for an unknown metric kind")
	} else if !strings.Contains(err.Error(), "unknown metric kind") {
		t.Fatalf("unexpected error for unknown kind: %v", err)
	}
}

func TestCLINotifyTestDisabled(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"notify", "test"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("notify test: %v", err)
	}
	requireContains(t, out, "notifications disabled")
}
