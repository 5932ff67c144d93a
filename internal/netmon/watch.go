package netmon

import (
	"context"
	"log/slog"
	"time"
)

const defaultPollInterval = 15 * time.Second

// transitionBuffer is the channel capacity for pending transitions. When
// the consumer lags, the oldest transition is evicted so the stream
// always converges on current state.
const transitionBuffer = 16

// Watcher polls a Prober on a fixed interval and emits a Transition on
// every snapshot change. Probe failures are logged and skipped; they do
// not produce transitions, so a flapping exporter cannot fake an
// upgrade.
type Watcher struct {
	prober   Prober
	interval time.Duration
	ch       chan Transition
}

// NewWatcher builds a Watcher around p. A zero interval selects the
// default.
func NewWatcher(p Prober, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Watcher{
		prober:   p,
		interval: interval,
		ch:       make(chan Transition, transitionBuffer),
	}
}

// Transitions returns the stream of observed snapshot changes.
func (w *Watcher) Transitions() <-chan Transition {
	return w.ch
}

// Run probes immediately, then on every interval tick, until ctx is
// done. The first successful probe is itself a transition from the
// startup snapshot (MediumUnknown), so an agent booting onto wifi
// classifies as an upgrade and drains whatever the last run left behind.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	prev := Snapshot{Medium: MediumUnknown}
	for {
		cur, err := w.prober.Probe(ctx)
		if err != nil {
			slog.Warn("netmon: probe failed", "err", err)
		} else if cur != prev {
			slog.Info("netmon: link changed", "from", prev.String(), "to", cur.String())
			emit(w.ch, Transition{Prev: prev, Cur: cur})
			prev = cur
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// emit delivers t on ch, evicting the oldest pending transition when the
// buffer is full.
func emit(ch chan Transition, t Transition) {
	for {
		select {
		case ch <- t:
			return
		default:
		}
		select {
		case <-ch:
			slog.Debug("netmon: transition buffer full, dropping oldest")
		default:
		}
	}
}
