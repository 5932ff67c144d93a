// Package config loads and validates the logmule YAML configuration.
//
// Secrets never live in the file: auth fields name environment variables
// (key_env, token_env) and the accessors resolve them at use time. Watch
// re-loads the file on change; a reload that fails validation keeps the
// previous configuration active.
package config
