// Package sink is the HTTP client for the remote log ingestion service.
//
// Two operations mirror the two shipping paths: SendOne posts a single
// formatted line to /v1/logs on the strong-link fast path, SendBatch
// posts a whole drained buffer to /v1/logs/batch as one atomic request.
// A batch either lands with a 2xx or it failed as a unit; there is no
// partial delivery. Batch bodies are gzipped by default and each attempt
// carries its own X-Batch-ID so the service can tell attempts apart in
// its own logs. Delivery is at-least-once: a batch whose clear failed is
// resent wholesale by a later flush, and receivers must tolerate that.
//
// Auth modes none, apikey, bearer and mtls follow the agent-wide auth
// configuration, with secrets resolved from the environment.
package sink
