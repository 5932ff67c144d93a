package dispatch

import (
	"context"

	"github.com/logmule/logmule/internal/diag"
	"github.com/logmule/logmule/internal/event"
	"github.com/logmule/logmule/internal/netmon"
)

// Sender ships one event immediately.
type Sender interface {
	SendOne(ctx context.Context, e event.LogEntry) error
}

// Appender parks one event in the durable buffer for a later flush.
type Appender interface {
	Append(ctx context.Context, e event.LogEntry) error
}

// Route is the decision taken for a dispatched event.
type Route string

const (
	// RouteDebug: echoed to the diagnostic channel (debug mode).
	RouteDebug Route = "debug"
	// RouteRejected: failed validation, nothing stored or sent.
	RouteRejected Route = "rejected"
	// RouteSent: an immediate send was attempted. Err carries the
	// outcome; a failed attempt means the event is gone.
	RouteSent Route = "sent"
	// RouteBuffered: persisted for the next flush.
	RouteBuffered Route = "buffered"
	// RouteDropped: discarded (probe failure, info on a weak link, or a
	// buffer write failure).
	RouteDropped Route = "dropped"
)

// Result reports the route taken and any advisory error. Errors here
// never mean "retry": the dispatcher has already done everything it is
// going to do with the event.
type Result struct {
	Route Route
	Err   error
}

// Dispatcher routes events according to current connectivity.
// Safe for concurrent use as long as its collaborators are.
type Dispatcher struct {
	probe  netmon.Prober
	sink   Sender
	buffer Appender
	diag   diag.Channel
	debug  bool
}

// New builds a Dispatcher. debug switches every valid event onto the
// diagnostic channel instead of the network and buffer.
func New(probe netmon.Prober, sink Sender, buf Appender, d diag.Channel, debug bool) *Dispatcher {
	return &Dispatcher{
		probe:  probe,
		sink:   sink,
		buffer: buf,
		diag:   d,
		debug:  debug,
	}
}

// Dispatch routes one event.
func (d *Dispatcher) Dispatch(ctx context.Context, e event.LogEntry) Result {
	if d.debug {
		if err := e.Validate(); err != nil {
			d.diag.Warn("dispatch: invalid event in debug mode", "err", err)
			return Result{Route: RouteRejected, Err: err}
		}
		d.diag.Event(e.Severity, e.Message, e.Extra)
		return Result{Route: RouteDebug}
	}

	if err := e.Validate(); err != nil {
		return Result{Route: RouteRejected, Err: err}
	}

	snap, err := d.probe.Probe(ctx)
	if err != nil {
		d.diag.Warn("dispatch: connectivity probe failed, dropping event",
			"severity", string(e.Severity), "err", err)
		return Result{Route: RouteDropped, Err: err}
	}

	if snap.Good() {
		if err := d.sink.SendOne(ctx, e); err != nil {
			d.diag.Warn("dispatch: immediate send failed, event lost",
				"severity", string(e.Severity), "err", err)
			return Result{Route: RouteSent, Err: err}
		}
		return Result{Route: RouteSent}
	}

	// Weak link: only warning and error earn a buffer slot.
	if e.Severity == event.SeverityInfo {
		return Result{Route: RouteDropped}
	}
	if err := d.buffer.Append(ctx, e); err != nil {
		d.diag.Error("dispatch: buffer append failed, event lost", "err", err)
		return Result{Route: RouteDropped, Err: err}
	}
	return Result{Route: RouteBuffered}
}
