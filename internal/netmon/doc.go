// Package netmon observes the host's uplink and classifies connectivity
// transitions.
//
// netmon.go defines Snapshot (connected flag + medium + cellular
// generation), the Good gate used by the dispatcher, and the pure
// IsUpgrade classifier that decides when a transition is worth flushing
// the local buffer for. The classifier is deliberately conservative:
// ambiguous input never reports an upgrade.
//
// Two snapshot sources are provided. ExporterProber scrapes a router or
// modem-manager Prometheus exporter (link_up, link_medium,
// link_cellular_generation) on demand. Feed subscribes to a connectivity
// daemon's WebSocket event stream and caches the latest state,
// reconnecting with truncated exponential backoff when the stream drops.
//
// Watcher turns any Prober into a polled stream of Transitions; Feed
// emits Transitions natively. Both implement Source, so the run loop
// treats them interchangeably.
package netmon
