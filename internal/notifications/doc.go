// Package notifications delivers supervisor events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. The supervisor depends only on the Service interface, so
// alternative transports can be added without touching the restart loop.
package notifications
