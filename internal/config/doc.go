// Package config loads, normalizes, and validates oreminer configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and derives the well-known run-directory
// paths (pid file, capture files, socket, lock, metrics database) that the
// daemon and CLI share.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
