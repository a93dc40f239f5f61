package pidfile_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"oreminer/internal/pidfile"
)

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "process.pid")
	if err := pidfile.Write(path); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	pid, err := pidfile.Read(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if pid != os.Getpid() {
		t.Fatalf("expected pid %d, got %d", os.Getpid(), pid)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read raw file: %v", err)
	}
	if data[len(data)-1] != '\n' {
		t.Fatal("expected trailing newline in pid file")
	}
}

func TestReadMissingFile(t *testing.T) {
	_, err := pidfile.Read(filepath.Join(t.TempDir(), "absent.pid"))
	if !errors.Is(err, pidfile.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "process.pid")
	if err := os.WriteFile(path, []byte("not-a-pid\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := pidfile.Read(path); err == nil {
		t.Fatal("expected error for invalid pid contents")
	}
}

func TestCheckReportsLiveProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "process.pid")
	if err := pidfile.Write(path); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	pid, alive, err := pidfile.Check(path)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if pid != os.Getpid() || !alive {
		t.Fatalf("expected current process to be alive, got pid=%d alive=%v", pid, alive)
	}
}

func TestAliveRejectsBogusPID(t *testing.T) {
	if pidfile.Alive(0) {
		t.Fatal("pid 0 must not be reported alive")
	}
	// Max pid on Linux is bounded well below this.
	if pidfile.Alive(1 << 30) {
		t.Fatal("absurd pid must not be reported alive")
	}
}

func TestRemoveToleratesMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "process.pid")
	if err := pidfile.Remove(path); err != nil {
		t.Fatalf("Remove of missing file failed: %v", err)
	}
	if err := pidfile.Write(path); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := pidfile.Remove(path); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("expected pid file to be removed")
	}
}
