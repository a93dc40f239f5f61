// Package supervisor owns the ore-cli child process lifecycle.
//
// The supervisor launches the miner with the configured flags, captures its
// stdout and stderr into the run directory, parses metric lines into the
// metrics store, and restarts the process with capped exponential backoff
// when it exits. A flock-backed instance lock guarantees at most one
// supervisor per run directory.
package supervisor
