package intake

import (
	"github.com/logmule/logmule/internal/flush"
	"github.com/logmule/logmule/internal/netmon"
)

// IngestResponse is the payload for POST /v1/logs.
type IngestResponse struct {
	// Accepted counts events that took any route except rejection.
	Accepted int `json:"accepted"`
	// Routes maps route name (sent, buffered, dropped, rejected, debug)
	// to how many events took it.
	Routes map[string]int `json:"routes"`
}

// FlushResponse is the payload for POST /v1/flush.
type FlushResponse struct {
	Sent    int    `json:"sent"`
	Cleared bool   `json:"cleared"`
	Error   string `json:"error,omitempty"`
}

// BufferStatus is the buffer occupancy block in StatusResponse.
type BufferStatus struct {
	Entries int `json:"entries"`
	Bytes   int `json:"bytes"`
}

// StatusResponse is the payload for GET /v1/status.
type StatusResponse struct {
	AgentID       string           `json:"agent_id"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Link          *netmon.Snapshot `json:"link,omitempty"`
	LinkError     string           `json:"link_error,omitempty"`
	Buffer        BufferStatus     `json:"buffer"`
	LastFlush     *flush.Status    `json:"last_flush,omitempty"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
