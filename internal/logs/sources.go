package logs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"oreminer/internal/config"
)

// Source names one of the log streams the daemon maintains.
type Source string

const (
	// SourceSupervisor is the structured supervisor log.
	SourceSupervisor Source = "supervisor"
	// SourceMiner is the raw miner stdout capture.
	SourceMiner Source = "miner"
	// SourceMinerStderr is the raw miner stderr capture.
	SourceMinerStderr Source = "miner-stderr"
)

// ParseSource normalizes a user-supplied source name.
func ParseSource(value string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(SourceSupervisor):
		return SourceSupervisor, nil
	case string(SourceMiner), "stdout":
		return SourceMiner, nil
	case string(SourceMinerStderr), "stderr":
		return SourceMinerStderr, nil
	default:
		return "", fmt.Errorf("unknown log source %q (expected supervisor, miner, or miner-stderr)", value)
	}
}

// ResolvePath maps a source to its file path. supervisorLog is the active
// structured log file; when empty the stable pointer inside the log directory
// is used.
func ResolvePath(cfg *config.Config, source Source, supervisorLog string) string {
	switch source {
	case SourceMiner:
		return cfg.StdoutLogPath()
	case SourceMinerStderr:
		return cfg.StderrLogPath()
	default:
		if supervisorLog != "" {
			return supervisorLog
		}
		return filepath.Join(cfg.Paths.LogDir, "oreminer.log")
	}
}

// FileInfo describes one rotated supervisor log file.
type FileInfo struct {
	Path     string
	Size     int64
	Modified time.Time
}

// ListRotated returns the per-run supervisor logs in the log directory,
// newest first.
func ListRotated(logDir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(logDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read log directory: %w", err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		matched, err := filepath.Match("oreminer-*.log", entry.Name())
		if err != nil || !matched {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:     filepath.Join(logDir, entry.Name()),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Modified.After(files[j].Modified)
	})
	return files, nil
}
