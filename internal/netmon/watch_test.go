package netmon

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// scriptedProber replays a fixed sequence of probe outcomes, repeating
// the last one once the script runs out.
type scriptedProber struct {
	mu    sync.Mutex
	snaps []Snapshot
	errs  []error
	i     int
}

func (p *scriptedProber) Probe(ctx context.Context) (Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := p.i
	if idx >= len(p.snaps) {
		idx = len(p.snaps) - 1
	} else {
		p.i++
	}
	if p.errs != nil && p.errs[idx] != nil {
		return Snapshot{}, p.errs[idx]
	}
	return p.snaps[idx], nil
}

func waitTransition(t *testing.T, ch <-chan Transition) Transition {
	t.Helper()
	select {
	case tr := <-ch:
		return tr
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for transition")
		return Transition{}
	}
}

func TestWatcherEmitsOnChangeOnly(t *testing.T) {
	offline := Snapshot{Medium: MediumNone}
	wifi := Snapshot{Connected: true, Medium: MediumWifi}
	p := &scriptedProber{snaps: []Snapshot{offline, offline, wifi}}

	w := NewWatcher(p, 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	first := waitTransition(t, w.Transitions())
	if first.Prev != (Snapshot{Medium: MediumUnknown}) || first.Cur != offline {
		t.Fatalf("first transition = %+v", first)
	}
	if first.Upgrade() {
		t.Fatal("startup to offline must not classify as upgrade")
	}

	second := waitTransition(t, w.Transitions())
	if second.Prev != offline || second.Cur != wifi {
		t.Fatalf("second transition = %+v", second)
	}
	if !second.Upgrade() {
		t.Fatal("offline to wifi must classify as upgrade")
	}

	// The repeated offline probe between the two changes must not have
	// produced a transition of its own.
	select {
	case tr := <-w.Transitions():
		t.Fatalf("unexpected extra transition %+v", tr)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWatcherSkipsFailedProbes(t *testing.T) {
	wifi := Snapshot{Connected: true, Medium: MediumWifi}
	p := &scriptedProber{
		snaps: []Snapshot{{}, wifi},
		errs:  []error{errors.New("exporter down"), nil},
	}

	w := NewWatcher(p, 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	// The failed probe produces nothing; the next good one transitions
	// straight from the startup snapshot.
	tr := waitTransition(t, w.Transitions())
	if tr.Prev != (Snapshot{Medium: MediumUnknown}) || tr.Cur != wifi {
		t.Fatalf("transition = %+v", tr)
	}
}

func TestWatcherStopsOnCancel(t *testing.T) {
	p := &scriptedProber{snaps: []Snapshot{{Medium: MediumNone}}}
	w := NewWatcher(p, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}

func TestEmitEvictsOldestWhenFull(t *testing.T) {
	ch := make(chan Transition, 2)
	mk := func(i int) Transition {
		return Transition{Cur: Snapshot{Medium: MediumCellular, Generation: Generation(rune('0' + i))}}
	}
	emit(ch, mk(1))
	emit(ch, mk(2))
	emit(ch, mk(3)) // evicts 1

	got := []Transition{<-ch, <-ch}
	if got[0] != mk(2) || got[1] != mk(3) {
		t.Fatalf("got %+v, want transitions 2 and 3", got)
	}
}
