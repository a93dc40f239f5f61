package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// TailOptions controls how much of a log file Tail returns and whether it
// waits for new lines.
type TailOptions struct {
	// Offset is the byte position to read from. A negative offset means
	// "the last Limit lines of the file".
	Offset int64
	// Limit caps the number of lines returned for a negative offset read.
	Limit int
	// Follow keeps the call open until new lines appear or Wait elapses.
	Follow bool
	// Wait bounds how long a Follow call blocks.
	Wait time.Duration
}

// TailResult carries the returned lines and the offset to resume from.
type TailResult struct {
	Lines  []string
	Offset int64
}

const (
	tailPollInterval = 250 * time.Millisecond
	maxLineBytes     = 1024 * 1024
)

// Tail reads log lines from path. A missing file is not an error; it yields
// an empty result with offset zero so callers can poll for a file that the
// daemon has not created yet.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	if opts.Wait < 0 {
		opts.Wait = 0
	}

	var (
		result TailResult
		err    error
	)
	if opts.Offset < 0 {
		result, err = tailEnd(path, opts.Limit)
	} else {
		result, err = readFrom(path, opts.Offset)
	}
	if err != nil {
		return result, err
	}

	if opts.Follow && opts.Wait > 0 && len(result.Lines) == 0 {
		return pollForLines(ctx, path, result.Offset, opts.Wait)
	}
	return result, nil
}

// tailEnd returns up to limit trailing lines and the end-of-file offset.
func tailEnd(path string, limit int) (TailResult, error) {
	file, size, err := openLog(path)
	if err != nil || file == nil {
		return TailResult{}, err
	}
	defer file.Close()

	if limit <= 0 {
		return TailResult{Offset: size}, nil
	}

	ring := make([]string, 0, limit)
	next := 0
	scanner := newLineScanner(file)
	for scanner.Scan() {
		if len(ring) < limit {
			ring = append(ring, scanner.Text())
		} else {
			ring[next] = scanner.Text()
		}
		next = (next + 1) % limit
	}
	if err := scanner.Err(); err != nil {
		return TailResult{}, fmt.Errorf("read log file: %w", err)
	}

	lines := make([]string, 0, len(ring))
	if len(ring) == limit {
		lines = append(lines, ring[next:]...)
		lines = append(lines, ring[:next]...)
	} else {
		lines = append(lines, ring...)
	}
	return TailResult{Lines: lines, Offset: size}, nil
}

// readFrom returns every complete line at or after offset.
func readFrom(path string, offset int64) (TailResult, error) {
	file, size, err := openLog(path)
	if err != nil || file == nil {
		return TailResult{}, err
	}
	defer file.Close()

	// The file may have been truncated or rotated under us.
	if offset > size {
		offset = size
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return TailResult{}, fmt.Errorf("seek log file: %w", err)
	}

	result := TailResult{Offset: offset}
	reader := bufio.NewReaderSize(file, 64*1024)
	for {
		line, err := reader.ReadString('\n')
		if err == nil {
			result.Lines = append(result.Lines, trimLineEnding(line))
			result.Offset += int64(len(line))
			continue
		}
		if errors.Is(err, io.EOF) {
			// A partial final line stays unread until the writer
			// finishes it.
			return result, nil
		}
		return result, fmt.Errorf("read log file: %w", err)
	}
}

func pollForLines(ctx context.Context, path string, offset int64, wait time.Duration) (TailResult, error) {
	deadline := time.Now().Add(wait)
	ticker := time.NewTicker(tailPollInterval)
	defer ticker.Stop()

	for {
		result, err := readFrom(path, offset)
		if err != nil {
			return result, err
		}
		if len(result.Lines) > 0 || time.Now().After(deadline) {
			return result, nil
		}
		offset = result.Offset

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-ticker.C:
		}
	}
}

// openLog opens path for reading. A missing file yields (nil, 0, nil).
func openLog(path string) (*os.File, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, 0, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		file.Close()
		return nil, 0, fmt.Errorf("log path %q is a directory", path)
	}
	return file, info.Size(), nil
}

func newLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return scanner
}

func trimLineEnding(line string) string {
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line
}
