// Package daemonctl orchestrates the daemon process from the CLI side:
// launching the detached daemon, waiting for its IPC socket, stopping it via
// SIGTERM with a SIGKILL fallback, and assembling status snapshots that stay
// useful when the daemon is offline.
//
// Stale pid files left by a crashed daemon are probed with signal 0 and
// cleaned up rather than trusted.
package daemonctl
