// Package logging assembles structured slog loggers and formatting helpers
// used across the oreminer supervisor.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and provides retention cleanup for the rotated per-run log files.
// A no-op logger is available for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits data with the same shape.
package logging
