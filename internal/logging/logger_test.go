package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConsoleHandlerFormatsLine(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl)).With(String(FieldComponent, "supervisor"))

	logger.Info("miner started", Int("pid", 42), String("binary", "ore"))

	line := buf.String()
	if !strings.Contains(line, "INFO supervisor: miner started") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, "pid=42") || !strings.Contains(line, "binary=ore") {
		t.Fatalf("missing attrs in line: %q", line)
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	logger.Warn("child exited", Error(errors.New("exit status 1")))

	if !strings.Contains(buf.String(), `error="exit status 1"`) {
		t.Fatalf("expected quoted error value, got %q", buf.String())
	}
}

func TestNewWritesToFile(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "nested", "run.log")
	logger, err := New(Options{Level: "debug", Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Debug("hello")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"hello"`) {
		t.Fatalf("unexpected log contents: %s", data)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	if got := parseLevel("bogus"); got != slog.LevelInfo {
		t.Fatalf("expected info, got %v", got)
	}
	if got := parseLevel("debug"); got != slog.LevelDebug {
		t.Fatalf("expected debug, got %v", got)
	}
}

func TestCleanupOldLogsHonorsExclusions(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "oreminer-old.log")
	current := filepath.Join(dir, "oreminer-current.log")
	for _, path := range []string{old, current} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	stale := time.Now().AddDate(0, 0, -10)
	for _, path := range []string{old, current} {
		if err := os.Chtimes(path, stale, stale); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	CleanupOldLogs(NewNop(), 7, RetentionTarget{Dir: dir, Pattern: "oreminer-*.log", Exclude: []string{current}})

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatal("expected old log to be pruned")
	}
	if _, err := os.Stat(current); err != nil {
		t.Fatalf("expected current log to survive: %v", err)
	}
}
