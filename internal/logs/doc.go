// Package logs provides file tailing and offset helpers shared by the CLI and
// daemon diagnostics.
//
// It streams log files with bounded memory usage, supports negative offsets
// for "tail last N lines" operations, and powers follow-mode updates for
// `oreminer logs --follow`. Besides the structured supervisor log it knows
// how to resolve the raw miner stdout and stderr captures in the run
// directory, so every stream the daemon writes is reachable through one
// consistent surface.
package logs
