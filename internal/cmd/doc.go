// Package cmd builds the logmule command tree.
//
// `logmule run` is the daemon: it wires the buffer store, sink client,
// connectivity source, dispatcher, flush coordinator and intake API
// together and blocks until SIGINT/SIGTERM. `logmule flush` and
// `logmule status` are thin clients that talk to a running daemon over
// its intake API; LOGMULE_API overrides the target URL when the daemon
// listens somewhere non-standard.
package cmd
