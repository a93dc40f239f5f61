// Package metrics parses mining statistics from ore-cli stdout and persists
// them to a local SQLite database.
//
// The parser recognizes the handful of line shapes the miner prints (stake,
// change, multiplier, best-hash difficulty, timestamps, and confirmed
// transaction hashes). The store keys everything by supervisor session so the
// CLI can report per-run history alongside aggregate totals.
package metrics
