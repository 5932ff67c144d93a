// Package logging configures the process-wide slog default: JSON on
// stderr for the daemon, text on stderr for interactive commands, with
// a LevelVar so config reloads can adjust verbosity without a restart.
package logging
