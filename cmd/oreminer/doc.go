// Package main hosts the oreminer CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into IPC calls
// against the daemon: starting and stopping supervision, tailing the
// supervisor log and the raw miner captures, querying the metrics store, and
// configuration scaffolding. It centralizes configuration resolution and
// socket discovery so subcommands can focus on user experience.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
