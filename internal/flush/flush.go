package flush

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/logmule/logmule/internal/buffer"
	"github.com/logmule/logmule/internal/diag"
	"github.com/logmule/logmule/internal/event"
)

// BatchSender ships a drained buffer as one atomic batch.
type BatchSender interface {
	SendBatch(ctx context.Context, entries []event.Entry) error
}

// Result describes one flush attempt.
type Result struct {
	// Sent is the number of entries delivered. It stays non-zero when
	// delivery succeeded but the clear did not.
	Sent int
	// Cleared reports whether the buffer was removed after delivery.
	Cleared bool
	// Err is nil on full success and on the empty no-op.
	Err error
}

// Status is the last flush outcome, shaped for the status API.
type Status struct {
	At      time.Time `json:"at"`
	Sent    int       `json:"sent"`
	Cleared bool      `json:"cleared"`
	Error   string    `json:"error,omitempty"`
}

// Coordinator runs flushes against the buffer store. Flushes are already
// serialized by the store's guard: a second Flush entering mid-drain
// waits, then finds an empty buffer and no-ops.
type Coordinator struct {
	store *buffer.Store
	sink  BatchSender
	diag  diag.Channel

	mu   sync.Mutex
	last *Status

	now func() time.Time // injectable for tests
}

// New builds a Coordinator.
func New(store *buffer.Store, sink BatchSender, d diag.Channel) *Coordinator {
	return &Coordinator{
		store: store,
		sink:  sink,
		diag:  d,
		now:   time.Now,
	}
}

// Flush drains the whole buffered log to the sink in original order as
// one atomic batch, clearing it on confirmed delivery.
func (c *Coordinator) Flush(ctx context.Context) Result {
	n, err := c.store.Drain(ctx, c.sink.SendBatch)

	var res Result
	switch {
	case err == nil && n == 0:
		// Nothing buffered. Not even worth a log line.
		res = Result{}
	case err == nil:
		slog.Info("flush: buffer delivered", "entries", n)
		res = Result{Sent: n, Cleared: true}
	case errors.Is(err, buffer.ErrClearFailed):
		c.diag.Error("flush: delivered but clear failed, next flush may resend",
			"entries", n, "err", err)
		res = Result{Sent: n, Err: err}
	default:
		c.diag.Warn("flush: buffer retained after failed send", "err", err)
		res = Result{Err: err}
	}

	c.record(res)
	return res
}

// Last returns the most recent flush outcome, or false when no flush has
// run yet.
func (c *Coordinator) Last() (Status, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return Status{}, false
	}
	return *c.last, true
}

func (c *Coordinator) record(res Result) {
	st := Status{
		At:      c.now().UTC(),
		Sent:    res.Sent,
		Cleared: res.Cleared,
	}
	if res.Err != nil {
		st.Error = res.Err.Error()
	}
	c.mu.Lock()
	c.last = &st
	c.mu.Unlock()
}
