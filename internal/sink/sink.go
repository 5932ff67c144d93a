package sink

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"

	"github.com/logmule/logmule/internal/config"
	"github.com/logmule/logmule/internal/event"
)

const (
	pathSingle = "/v1/logs"
	pathBatch  = "/v1/logs/batch"

	headerAgentID = "X-Agent-ID"
	headerBatchID = "X-Batch-ID"
)

// APIError is a non-2xx response from the ingest service.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sink: ingest returned %d: %s", e.StatusCode, e.Body)
}

// singlePayload is the body of a fast-path send.
type singlePayload struct {
	AgentID string    `json:"agent_id"`
	SentAt  time.Time `json:"sent_at"`
	Line    string    `json:"line"`
}

// batchPayload is the body of a buffer drain. Entries keep their buffer
// keys and chronological order.
type batchPayload struct {
	BatchID string        `json:"batch_id"`
	AgentID string        `json:"agent_id"`
	SentAt  time.Time     `json:"sent_at"`
	Entries []event.Entry `json:"entries"`
}

// Client talks to the remote ingestion service.
type Client struct {
	cfg     config.SinkConfig
	agentID string
	client  *http.Client

	newID func() string // injectable for tests
}

// New builds a Client for the configured sink. agentID identifies this
// host in headers and payloads.
func New(cfg config.SinkConfig, agentID string) (*Client, error) {
	httpClient, err := buildHTTPClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("sink: build http client: %w", err)
	}
	return &Client{
		cfg:     cfg,
		agentID: agentID,
		client:  httpClient,
		newID:   uuid.NewString,
	}, nil
}

// SendOne posts a single formatted line. The client timeout bounds the
// whole attempt.
func (c *Client) SendOne(ctx context.Context, e event.LogEntry) error {
	payload := singlePayload{
		AgentID: c.agentID,
		SentAt:  time.Now().UTC(),
		Line:    e.FormatLine(),
	}
	return c.post(ctx, pathSingle, payload, false, "")
}

// SendBatch posts all entries as one atomic batch in the order given.
// An empty batch is a no-op. Any transport error or non-2xx status means
// the batch as a whole did not land.
func (c *Client) SendBatch(ctx context.Context, entries []event.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	batchID := c.newID()
	payload := batchPayload{
		BatchID: batchID,
		AgentID: c.agentID,
		SentAt:  time.Now().UTC(),
		Entries: entries,
	}
	return c.post(ctx, pathBatch, payload, c.cfg.Compressed(), batchID)
}

func (c *Client) post(ctx context.Context, path string, payload any, compress bool, batchID string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("sink: encode payload: %w", err)
	}

	var rd io.Reader = bytes.NewReader(body)
	if compress {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(body); err != nil {
			return fmt.Errorf("sink: compress payload: %w", err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("sink: compress payload: %w", err)
		}
		rd = &buf
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.cfg.Endpoint, "/")+path, rd)
	if err != nil {
		return fmt.Errorf("sink: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerAgentID, c.agentID)
	if compress {
		req.Header.Set("Content-Encoding", "gzip")
	}
	if batchID != "" {
		req.Header.Set(headerBatchID, batchID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("sink: post %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// authRoundTripper injects authentication headers into every outgoing request.
type authRoundTripper struct {
	base http.RoundTripper
	auth config.AuthConfig
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	switch t.auth.Mode {
	case "apikey":
		req = req.Clone(req.Context())
		req.Header.Set(t.auth.Header, t.auth.Key())
	case "bearer":
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+t.auth.Token())
	}
	return t.base.RoundTrip(req)
}

// buildHTTPClient constructs an http.Client for the sink's auth and TLS settings.
func buildHTTPClient(cfg config.SinkConfig) (*http.Client, error) {
	tlsCfg := &tls.Config{
		InsecureSkipVerify: cfg.TLS.InsecureSkipVerify, //nolint:gosec // user-configured
	}

	if cfg.Auth.Mode == "mtls" {
		cert, err := tls.LoadX509KeyPair(cfg.Auth.CertFile, cfg.Auth.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client cert: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}

		if cfg.Auth.CAFile != "" {
			caPEM, err := os.ReadFile(cfg.Auth.CAFile)
			if err != nil {
				return nil, fmt.Errorf("read ca file: %w", err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(caPEM) {
				return nil, fmt.Errorf("no valid certs found in ca file %q", cfg.Auth.CAFile)
			}
			tlsCfg.RootCAs = pool
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultSinkTimeout
	}
	transport := &authRoundTripper{
		base: &http.Transport{TLSClientConfig: tlsCfg},
		auth: cfg.Auth,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}, nil
}
