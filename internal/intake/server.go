package intake

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/valyala/fastjson"

	"github.com/logmule/logmule/internal/config"
	"github.com/logmule/logmule/internal/dispatch"
	"github.com/logmule/logmule/internal/event"
	"github.com/logmule/logmule/internal/flush"
	"github.com/logmule/logmule/internal/netmon"
)

// maxBodyBytes caps a single submission. Producers send one event or a
// small batch; anything bigger is a misbehaving client.
const maxBodyBytes = 1 << 20

// Dispatcher routes one submitted event.
type Dispatcher interface {
	Dispatch(ctx context.Context, e event.LogEntry) dispatch.Result
}

// Flusher drains the buffered log on demand and remembers the last
// outcome for the status endpoint.
type Flusher interface {
	Flush(ctx context.Context) flush.Result
	Last() (flush.Status, bool)
}

// BufferStats reports current buffer occupancy.
type BufferStats interface {
	Stats(ctx context.Context) (entries, bytes int, err error)
}

// Server is the local HTTP API server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	dispatcher Dispatcher
	flusher    Flusher
	buffer     BufferStats
	probe      netmon.Prober
	agentID    string
	started    time.Time
	parsers    fastjson.ParserPool
}

// New builds a Server bound to cfg.Listen with all routes registered.
// It does not start listening; call Start.
func New(cfg config.IntakeConfig, agentID string, d Dispatcher, f Flusher, b BufferStats, p netmon.Prober) *Server {
	router := mux.NewRouter()
	s := &Server{
		router:     router,
		dispatcher: d,
		flusher:    f,
		buffer:     b,
		probe:      p,
		agentID:    agentID,
		started:    time.Now(),
		httpServer: &http.Server{
			Addr:         cfg.Listen,
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
	s.setupRoutes(cfg.Auth)
	return s
}

func (s *Server) setupRoutes(auth config.IntakeAuthConfig) {
	api := s.router.PathPrefix("/v1").Subrouter()
	api.Use(apiKeyMiddleware(auth.Mode, auth.Header, auth.Key()))
	api.HandleFunc("/logs", s.handleLogs).Methods(http.MethodPost)
	api.HandleFunc("/flush", s.handleFlush).Methods(http.MethodPost)
	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)

	s.router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
}

// ServeHTTP lets tests drive the router without a listener.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start begins serving in the background. A listen failure is reported
// on the returned channel; a clean shutdown is not.
func (s *Server) Start() <-chan error {
	errc := make(chan error, 1)
	go func() {
		slog.Info("intake: listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()
	return errc
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// apiKeyMiddleware enforces API key authentication on every /v1 call.
//
//   - If mode != "apikey" or key == "", all calls are allowed.
//   - Otherwise the request must carry the key in the configured header;
//     a missing or wrong key gets a 401.
func apiKeyMiddleware(mode, header, key string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if mode != "apikey" || key == "" {
				next.ServeHTTP(w, r)
				return
			}
			if r.Header.Get(header) != key {
				jsonErr(w, http.StatusUnauthorized, "invalid api key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// --- route handlers ---------------------------------------------------------

// handleLogs accepts POST /v1/logs: a single event object or an array of
// them. Each event is dispatched independently; the response counts the
// route every event took.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		jsonErr(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}

	p := s.parsers.Get()
	defer s.parsers.Put(p)

	v, err := p.ParseBytes(body)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	var events []event.LogEntry
	if v.Type() == fastjson.TypeArray {
		arr, _ := v.Array()
		for _, item := range arr {
			events = append(events, toEntry(item))
		}
	} else {
		events = append(events, toEntry(v))
	}

	resp := IngestResponse{Routes: make(map[string]int)}
	for _, e := range events {
		res := s.dispatcher.Dispatch(r.Context(), e)
		resp.Routes[string(res.Route)]++
		if res.Route != dispatch.RouteRejected {
			resp.Accepted++
		}
	}
	jsonResp(w, http.StatusAccepted, resp)
}

// toEntry lifts one event out of a parsed JSON value. Validation is the
// dispatcher's job; a non-object value simply yields an empty entry that
// will be rejected there.
func toEntry(v *fastjson.Value) event.LogEntry {
	e := event.LogEntry{
		Severity: event.Severity(v.GetStringBytes("severity")),
		Message:  string(v.GetStringBytes("message")),
	}
	if extra := v.Get("extra"); extra != nil && extra.Type() != fastjson.TypeNull {
		e.Extra = extra.MarshalTo(nil)
	}
	return e
}

// handleFlush runs POST /v1/flush — a synchronous drain of the buffer.
func (s *Server) handleFlush(w http.ResponseWriter, r *http.Request) {
	res := s.flusher.Flush(r.Context())
	resp := FlushResponse{Sent: res.Sent, Cleared: res.Cleared}
	if res.Err != nil {
		resp.Error = res.Err.Error()
		jsonResp(w, http.StatusBadGateway, resp)
		return
	}
	jsonResp(w, http.StatusOK, resp)
}

// handleStatus returns GET /v1/status — identity, link, buffer, last
// flush. A failing connectivity probe is reported inline rather than
// failing the whole status call.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		AgentID:       s.agentID,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	}

	if snap, err := s.probe.Probe(r.Context()); err != nil {
		resp.LinkError = err.Error()
	} else {
		resp.Link = &snap
	}

	entries, bytes, err := s.buffer.Stats(r.Context())
	if err != nil {
		jsonErr(w, http.StatusInternalServerError, "buffer stats: "+err.Error())
		return
	}
	resp.Buffer = BufferStatus{Entries: entries, Bytes: bytes}

	if last, ok := s.flusher.Last(); ok {
		resp.LastFlush = &last
	}

	jsonResp(w, http.StatusOK, resp)
}

// handleHealthz returns GET /healthz — process liveness only.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
