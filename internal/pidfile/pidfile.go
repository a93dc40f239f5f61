// Package pidfile reads and writes the daemon pid file and probes whether the
// recorded process is still alive.
package pidfile

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// ErrNotFound indicates the pid file does not exist.
var ErrNotFound = errors.New("pid file not found")

// Write records the current process id at path, single line with a trailing
// newline.
func Write(path string) error {
	return WritePID(path, os.Getpid())
}

// WritePID records an arbitrary process id at path.
func WritePID(path string, pid int) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("pid file path is required")
	}
	if pid <= 0 {
		return fmt.Errorf("invalid pid %d", pid)
	}
	value := strconv.Itoa(pid) + "\n"
	if err := os.WriteFile(path, []byte(value), 0o644); err != nil {
		return fmt.Errorf("write pid file %q: %w", path, err)
	}
	return nil
}

// Read parses the process id stored at path.
func Read(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("read pid file %q: %w", path, err)
	}
	value := strings.TrimSpace(string(data))
	pid, err := strconv.Atoi(value)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("pid file %q contains invalid pid %q", path, value)
	}
	return pid, nil
}

// Remove deletes the pid file, tolerating a missing file.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove pid file %q: %w", path, err)
	}
	return nil
}

// Alive reports whether a process with the given pid exists, using a signal-0
// probe. EPERM means the process exists but belongs to another user.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// Check reads the pid file and classifies it: a live pid, a stale file whose
// process has exited, or no file at all.
func Check(path string) (pid int, alive bool, err error) {
	pid, err = Read(path)
	if err != nil {
		return 0, false, err
	}
	return pid, Alive(pid), nil
}
