package netmon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	backoffInitial    = 1 * time.Second
	backoffMax        = 60 * time.Second
	backoffMultiplier = 2.0

	feedHandshakeTimeout = 10 * time.Second
	// feedReadWait bounds the gap between frames. Connectivity daemons
	// ping their subscribers well inside this window; a silent socket is
	// a dead socket.
	feedReadWait = 90 * time.Second
)

// feedEvent is one state message on the connectivity daemon's stream.
type feedEvent struct {
	Connected  bool   `json:"connected"`
	Medium     string `json:"medium"`
	Generation string `json:"generation"`
}

// feedDialFunc opens the WebSocket connection. Abstracted so tests can
// point the feed at an httptest server or fail dials on purpose.
type feedDialFunc func(ctx context.Context, url string) (*websocket.Conn, error)

// Feed subscribes to a connectivity daemon's WebSocket event stream and
// turns consecutive state events into Transitions. It also caches the
// latest snapshot and serves it through Probe, so the dispatcher can ask
// about the link without its own subscription.
//
// Before the first event arrives Probe reports the startup snapshot
// (MediumUnknown, not connected); that is an answer, not a probe
// failure.
type Feed struct {
	url    string
	dialFn feedDialFunc
	ch     chan Transition

	mu   sync.Mutex
	last Snapshot
	seen bool
}

// NewFeed builds a Feed for the stream at url (ws:// or wss://).
func NewFeed(url string) *Feed {
	return &Feed{
		url:    url,
		dialFn: defaultFeedDial,
		ch:     make(chan Transition, transitionBuffer),
	}
}

// Transitions returns the stream of observed snapshot changes.
func (f *Feed) Transitions() <-chan Transition {
	return f.ch
}

// Probe returns the most recent snapshot seen on the stream.
func (f *Feed) Probe(ctx context.Context) (Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.seen {
		return Snapshot{Medium: MediumUnknown}, nil
	}
	return f.last, nil
}

// Run connects to the stream and reads events until ctx is done,
// reconnecting with truncated exponential backoff when the connection
// drops. The cached snapshot is kept across reconnects; a reconnect by
// itself is not a transition.
func (f *Feed) Run(ctx context.Context) error {
	bo := newBackoff()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn, err := f.dialFn(ctx, f.url)
		if err != nil {
			wait := bo.next()
			slog.Warn("netmon: feed dial failed, will retry",
				"url", f.url, "err", err, "retry_in", wait)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
				continue
			}
		}

		slog.Info("netmon: feed connected", "url", f.url)
		bo.reset()

		err = f.readLoop(ctx, conn)
		conn.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}

		wait := bo.next()
		slog.Warn("netmon: feed disconnected, will reconnect",
			"url", f.url, "err", err, "retry_in", wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// readLoop consumes events until the connection fails or ctx is done.
func (f *Feed) readLoop(ctx context.Context, conn *websocket.Conn) error {
	// Unblock ReadMessage when ctx ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(feedReadWait))
	conn.SetPingHandler(func(appData string) error {
		_ = conn.SetReadDeadline(time.Now().Add(feedReadWait))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(10*time.Second))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		_ = conn.SetReadDeadline(time.Now().Add(feedReadWait))

		var ev feedEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			slog.Warn("netmon: malformed feed event, skipping", "err", err)
			continue
		}
		f.observe(snapshotFromEvent(ev))
	}
}

// observe records a new snapshot and emits a Transition when it differs
// from the previous one.
func (f *Feed) observe(cur Snapshot) {
	f.mu.Lock()
	prev := f.last
	if !f.seen {
		prev = Snapshot{Medium: MediumUnknown}
	}
	changed := !f.seen || cur != f.last
	f.last = cur
	f.seen = true
	f.mu.Unlock()

	if changed {
		slog.Info("netmon: link changed", "from", prev.String(), "to", cur.String())
		emit(f.ch, Transition{Prev: prev, Cur: cur})
	}
}

func snapshotFromEvent(ev feedEvent) Snapshot {
	snap := Snapshot{
		Connected: ev.Connected,
		Medium:    ParseMedium(ev.Medium),
	}
	if snap.Medium == MediumCellular {
		snap.Generation = ParseGeneration(ev.Generation)
	}
	return snap
}

func defaultFeedDial(ctx context.Context, url string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: feedHandshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return nil, err
	}
	return conn, nil
}

// backoff implements truncated exponential backoff with jitter.
type backoff struct {
	current time.Duration
}

func newBackoff() *backoff {
	return &backoff{current: backoffInitial}
}

// next returns the current backoff duration and advances the internal state.
func (b *backoff) next() time.Duration {
	d := b.current
	// Apply ±25 % jitter.
	jitter := time.Duration(float64(b.current) * 0.25 * (rand.Float64()*2 - 1)) //nolint:gosec // not crypto
	d += jitter
	if d < 0 {
		d = 0
	}

	// Advance for next call.
	b.current = time.Duration(float64(b.current) * backoffMultiplier)
	if b.current > backoffMax {
		b.current = backoffMax
	}
	return d
}

func (b *backoff) reset() {
	b.current = backoffInitial
}
