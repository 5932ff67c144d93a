// Package intake implements the local HTTP API that producers and the
// logmule CLI talk to.
//
// New(cfg, ...) returns a *Server serving:
//
//	POST /v1/logs    — submit one event ({"severity","message","extra"})
//	                   or a JSON array of them; 202 with per-route counts
//	POST /v1/flush   — drain the buffered log to the sink now
//	GET  /v1/status  — agent identity, link snapshot, buffer occupancy,
//	                   last flush outcome
//	GET  /healthz    — liveness, no auth
//
// All endpoints respond with Content-Type: application/json. Submissions
// that are not parseable JSON get a 400; parseable events that fail
// validation are counted under the "rejected" route in the 202 body, so
// a batch with one bad event still delivers the rest. The /v1 routes
// optionally require an API key header (intake.auth in the config);
// /healthz never does.
package intake
